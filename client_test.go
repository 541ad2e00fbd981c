package sharepoint

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/AllenInstitute/wnm-sharepoint-client/config"
)

const drivePrefix = "/sites/site-1/drives/drive-1"

type staticToken string

func (s staticToken) Token() (string, error) { return string(s), nil }

// fakeItem is one node in the fake drive tree.
type fakeItem struct {
	id       string
	name     string
	parentID string
	folder   bool
	content  []byte
}

// fakeDrive is an in-memory Graph drive backing an httptest server. It
// implements the item endpoints the client uses: children listing, item
// metadata, content download, upload, move, create-folder, and delete.
type fakeDrive struct {
	t   *testing.T
	srv *httptest.Server

	mu            sync.Mutex
	items         map[string]*fakeItem
	order         []string // insertion order, for deterministic listings
	nextID        int
	childrenCalls int
}

func newFakeDrive(t *testing.T) *fakeDrive {
	t.Helper()

	d := &fakeDrive{
		t:     t,
		items: map[string]*fakeItem{"root": {id: "root", name: "root", folder: true}},
	}
	d.srv = httptest.NewServer(http.HandlerFunc(d.handle))
	t.Cleanup(d.srv.Close)

	return d
}

func (d *fakeDrive) addFolder(parentID, name string) string {
	return d.add(parentID, name, true, nil)
}

func (d *fakeDrive) addFile(parentID, name string, content []byte) string {
	return d.add(parentID, name, false, content)
}

func (d *fakeDrive) add(parentID, name string, folder bool, content []byte) string {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.nextID++
	id := fmt.Sprintf("item-%d", d.nextID)
	d.items[id] = &fakeItem{id: id, name: name, parentID: parentID, folder: folder, content: content}
	d.order = append(d.order, id)

	return id
}

func (d *fakeDrive) childCalls() int {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.childrenCalls
}

func (d *fakeDrive) itemJSON(it *fakeItem) map[string]any {
	out := map[string]any{
		"id":              it.id,
		"name":            it.name,
		"parentReference": map[string]any{"id": it.parentID},
	}

	if it.folder {
		out["folder"] = map[string]any{"childCount": 0}
	} else {
		out["file"] = map[string]any{"mimeType": "application/octet-stream"}
		out["size"] = len(it.content)
		out["@microsoft.graph.downloadUrl"] = d.srv.URL + "/content/" + it.id
	}

	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeGraphError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, map[string]any{
		"error": map[string]any{"code": code, "message": code},
	})
}

func (d *fakeDrive) handle(w http.ResponseWriter, r *http.Request) {
	switch {
	case strings.HasPrefix(r.URL.Path, "/content/"):
		d.handleContent(w, r)
	case r.URL.Path == "/sites/site-1/drives" && r.Method == http.MethodGet:
		writeJSON(w, http.StatusOK, map[string]any{"value": []map[string]any{{
			"id": "drive-1", "name": "Documents", "driveType": "documentLibrary",
			"webUrl": "https://sharepoint.example/sites/lab/Documents",
		}}})
	case strings.HasPrefix(r.URL.Path, drivePrefix+"/items/"):
		d.handleItems(w, r)
	default:
		writeGraphError(w, http.StatusNotFound, "itemNotFound")
	}
}

func (d *fakeDrive) handleContent(w http.ResponseWriter, r *http.Request) {
	d.mu.Lock()
	defer d.mu.Unlock()

	it, ok := d.items[strings.TrimPrefix(r.URL.Path, "/content/")]
	if !ok {
		w.WriteHeader(http.StatusNotFound)

		return
	}

	w.Write(it.content)
}

func (d *fakeDrive) handleItems(w http.ResponseWriter, r *http.Request) {
	d.mu.Lock()
	defer d.mu.Unlock()

	rest := strings.TrimPrefix(r.URL.Path, drivePrefix+"/items/")

	// PUT .../items/{parent}:/{name}:/content
	if r.Method == http.MethodPut && strings.HasSuffix(rest, ":/content") {
		d.handleUpload(w, r, strings.TrimSuffix(rest, ":/content"))

		return
	}

	if id, ok := strings.CutSuffix(rest, "/children"); ok {
		switch r.Method {
		case http.MethodGet:
			d.handleListChildren(w, id)
		case http.MethodPost:
			d.handleCreateFolder(w, r, id)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}

		return
	}

	it, ok := d.items[rest]
	if !ok {
		writeGraphError(w, http.StatusNotFound, "itemNotFound")

		return
	}

	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, d.itemJSON(it))
	case http.MethodPatch:
		d.handleMove(w, r, it)
	case http.MethodDelete:
		delete(d.items, it.id)
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (d *fakeDrive) handleListChildren(w http.ResponseWriter, parentID string) {
	d.childrenCalls++

	if _, ok := d.items[parentID]; !ok {
		writeGraphError(w, http.StatusNotFound, "itemNotFound")

		return
	}

	children := make([]map[string]any, 0)

	for _, id := range d.order {
		if it, ok := d.items[id]; ok && it.parentID == parentID {
			children = append(children, d.itemJSON(it))
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{"value": children})
}

func (d *fakeDrive) handleUpload(w http.ResponseWriter, r *http.Request, rest string) {
	parentID, name, ok := strings.Cut(rest, ":/")
	if !ok {
		writeGraphError(w, http.StatusBadRequest, "invalidRequest")

		return
	}

	content, err := io.ReadAll(r.Body)
	require.NoError(d.t, err)

	// Replace an existing file of the same name, per upload semantics.
	for _, it := range d.items {
		if it.parentID == parentID && it.name == name && !it.folder {
			it.content = content
			writeJSON(w, http.StatusOK, d.itemJSON(it))

			return
		}
	}

	d.nextID++
	id := fmt.Sprintf("item-%d", d.nextID)
	it := &fakeItem{id: id, name: name, parentID: parentID, content: content}
	d.items[id] = it
	d.order = append(d.order, id)

	writeJSON(w, http.StatusCreated, d.itemJSON(it))
}

func (d *fakeDrive) handleCreateFolder(w http.ResponseWriter, r *http.Request, parentID string) {
	var req struct {
		Name             string `json:"name"`
		ConflictBehavior string `json:"@microsoft.graph.conflictBehavior"`
	}
	require.NoError(d.t, json.NewDecoder(r.Body).Decode(&req))

	for _, it := range d.items {
		if it.parentID == parentID && it.name == req.Name {
			if req.ConflictBehavior != "replace" {
				writeGraphError(w, http.StatusConflict, "nameAlreadyExists")

				return
			}

			writeJSON(w, http.StatusCreated, d.itemJSON(it))

			return
		}
	}

	d.nextID++
	id := fmt.Sprintf("item-%d", d.nextID)
	it := &fakeItem{id: id, name: req.Name, parentID: parentID, folder: true}
	d.items[id] = it
	d.order = append(d.order, id)

	writeJSON(w, http.StatusCreated, d.itemJSON(it))
}

func (d *fakeDrive) handleMove(w http.ResponseWriter, r *http.Request, it *fakeItem) {
	var req struct {
		ParentReference *struct {
			ID string `json:"id"`
		} `json:"parentReference"`
		Name string `json:"name"`
	}
	require.NoError(d.t, json.NewDecoder(r.Body).Decode(&req))

	if req.ParentReference != nil {
		it.parentID = req.ParentReference.ID
	}

	if req.Name != "" {
		it.name = req.Name
	}

	writeJSON(w, http.StatusOK, d.itemJSON(it))
}

func newTestClient(t *testing.T, d *fakeDrive, opts ...Option) *Client {
	t.Helper()

	cfg := &config.Config{
		Auth: config.Auth{
			TenantID: "tenant", ClientID: "client", ClientSecret: "secret",
			Scope: "https://graph.microsoft.com/.default",
			GraphBaseURL: d.srv.URL, Top: 200,
		},
		Sites: map[string]config.Site{
			"default": {SiteID: "site-1", DriveID: "drive-1"},
		},
	}

	c, err := New(cfg, "default", staticToken("tok"), opts...)
	require.NoError(t, err)

	return c
}

func TestNew_NilTokenSource(t *testing.T) {
	_, err := New(&config.Config{}, "default", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nil token source")
}

func TestNew_UnknownSite(t *testing.T) {
	d := newFakeDrive(t)
	cfg := &config.Config{
		Auth:  config.Auth{GraphBaseURL: d.srv.URL, Top: 200},
		Sites: map[string]config.Site{"default": {SiteID: "site-1", DriveID: "drive-1"}},
	}

	_, err := New(cfg, "nope", staticToken("tok"))
	require.ErrorIs(t, err, config.ErrInvalidConfig)
}

func TestResolveID_WalksOneListingPerSegment(t *testing.T) {
	d := newFakeDrive(t)
	a := d.addFolder("root", "A")
	b := d.addFolder(a, "B")
	cID := d.addFolder(b, "C")

	client := newTestClient(t, d)

	id, err := client.ResolveID(context.Background(), "A/B/C")
	require.NoError(t, err)
	assert.Equal(t, cID, id)
	assert.Equal(t, 3, d.childCalls())
}

func TestResolveID_Root(t *testing.T) {
	d := newFakeDrive(t)
	client := newTestClient(t, d)

	id, err := client.ResolveID(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "root", id)
	assert.Equal(t, 0, d.childCalls())
}

func TestResolveID_NotFoundShortCircuits(t *testing.T) {
	d := newFakeDrive(t)
	d.addFolder("root", "A")

	client := newTestClient(t, d)

	_, err := client.ResolveID(context.Background(), "Missing/B/C")
	require.ErrorIs(t, err, ErrNotFound)
	assert.Contains(t, err.Error(), `"Missing"`)

	// The walk stops at the first unmatched segment.
	assert.Equal(t, 1, d.childCalls())
}

func TestResolveID_CaseInsensitive(t *testing.T) {
	d := newFakeDrive(t)
	a := d.addFolder("root", "Reports")
	fileID := d.addFile(a, "Data.csv", []byte("x"))

	client := newTestClient(t, d)

	id, err := client.ResolveID(context.Background(), "reports/data.CSV")
	require.NoError(t, err)
	assert.Equal(t, fileID, id)
}

func TestResolveID_CacheAvoidsRepeatListings(t *testing.T) {
	d := newFakeDrive(t)
	a := d.addFolder("root", "A")
	d.addFolder(a, "B")

	client := newTestClient(t, d, WithPathCache())

	_, err := client.ResolveID(context.Background(), "A/B")
	require.NoError(t, err)
	assert.Equal(t, 2, d.childCalls())

	_, err = client.ResolveID(context.Background(), "A/B")
	require.NoError(t, err)
	assert.Equal(t, 2, d.childCalls())
}

func TestWithRootFolder(t *testing.T) {
	d := newFakeDrive(t)
	base := d.addFolder("root", "TeamData")
	sub := d.addFolder(base, "Reports")

	client := newTestClient(t, d, WithRootFolder("TeamData"))

	id, err := client.ResolveID(context.Background(), "Reports")
	require.NoError(t, err)
	assert.Equal(t, sub, id)
}

func TestListItems(t *testing.T) {
	d := newFakeDrive(t)
	a := d.addFolder("root", "A")
	d.addFolder(a, "Sub")
	d.addFile(a, "notes.txt", []byte("hello"))

	client := newTestClient(t, d)

	items, err := client.ListItems(context.Background(), "A")
	require.NoError(t, err)
	require.Len(t, items, 2)

	assert.Equal(t, "Sub", items[0].Name)
	assert.True(t, items[0].IsFolder)
	assert.Equal(t, "notes.txt", items[1].Name)
	assert.False(t, items[1].IsFolder)
	assert.Equal(t, int64(5), items[1].Size)
}

func TestListItems_NotFound(t *testing.T) {
	d := newFakeDrive(t)
	client := newTestClient(t, d)

	_, err := client.ListItems(context.Background(), "NoSuchFolder")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestListTopLevelFolders(t *testing.T) {
	d := newFakeDrive(t)
	d.addFolder("root", "Alpha")
	d.addFile("root", "readme.md", []byte("x"))
	d.addFolder("root", "Beta")

	client := newTestClient(t, d)

	names, err := client.ListTopLevelFolders(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Alpha", "Beta"}, names)
}

func TestListDrives(t *testing.T) {
	d := newFakeDrive(t)
	client := newTestClient(t, d)

	drives, err := client.ListDrives(context.Background())
	require.NoError(t, err)
	require.Len(t, drives, 1)
	assert.Equal(t, "drive-1", drives[0].ID)
	assert.Equal(t, "documentLibrary", drives[0].DriveType)
}

func TestPrintDirectory(t *testing.T) {
	d := newFakeDrive(t)
	a := d.addFolder("root", "A")
	d.addFile("root", "top.txt", []byte("x"))
	d.addFolder(a, "Nested")
	d.addFile(a, "inner.csv", []byte("x"))

	client := newTestClient(t, d)

	var foldersOnly bytes.Buffer
	require.NoError(t, client.PrintDirectory(context.Background(), &foldersOnly, "", false))
	assert.Equal(t, "A\n    Nested\n", foldersOnly.String())

	var withFiles bytes.Buffer
	require.NoError(t, client.PrintDirectory(context.Background(), &withFiles, "", true))
	assert.Equal(t, "A\n    Nested\n    inner.csv\ntop.txt\n", withFiles.String())
}

func TestStat(t *testing.T) {
	d := newFakeDrive(t)
	a := d.addFolder("root", "A")
	d.addFile(a, "notes.txt", []byte("hello"))

	client := newTestClient(t, d)

	item, err := client.Stat(context.Background(), "A/notes.txt")
	require.NoError(t, err)
	assert.Equal(t, "notes.txt", item.Name)
	assert.Equal(t, int64(5), item.Size)
	assert.False(t, item.IsFolder)
}

func TestDownload(t *testing.T) {
	d := newFakeDrive(t)
	d.addFile("root", "blob.bin", []byte("payload"))

	client := newTestClient(t, d)

	var buf bytes.Buffer
	n, err := client.Download(context.Background(), "blob.bin", &buf)
	require.NoError(t, err)
	assert.Equal(t, int64(7), n)
	assert.Equal(t, "payload", buf.String())
}

func TestDownloadFile(t *testing.T) {
	d := newFakeDrive(t)
	d.addFile("root", "blob.bin", []byte("payload"))

	client := newTestClient(t, d)

	dest := filepath.Join(t.TempDir(), "blob.bin")
	require.NoError(t, client.DownloadFile(context.Background(), "blob.bin", dest))

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))
}

func TestDownloadFile_RemoteMissing(t *testing.T) {
	d := newFakeDrive(t)
	client := newTestClient(t, d)

	dest := filepath.Join(t.TempDir(), "blob.bin")
	err := client.DownloadFile(context.Background(), "nope.bin", dest)
	require.ErrorIs(t, err, ErrNotFound)

	// No partial file left behind.
	_, statErr := os.Stat(dest)
	assert.True(t, errors.Is(statErr, os.ErrNotExist))
}

func TestUploadJSON_ReadJSON_RoundTrip(t *testing.T) {
	d := newFakeDrive(t)
	d.addFolder("root", "Configs")

	client := newTestClient(t, d)
	ctx := context.Background()

	payload := map[string]any{"name": "experiment-1", "runs": []any{float64(1), float64(2)}}

	item, err := client.UploadJSON(ctx, payload, "Configs", "exp.json")
	require.NoError(t, err)
	assert.Equal(t, "exp.json", item.Name)

	got, err := client.ReadJSON(ctx, "Configs/exp.json")
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

func TestReadJSON_ParseError(t *testing.T) {
	d := newFakeDrive(t)
	d.addFile("root", "bad.json", []byte("{not json"))

	client := newTestClient(t, d)

	_, err := client.ReadJSON(context.Background(), "bad.json")
	require.ErrorIs(t, err, ErrParse)
	assert.Contains(t, err.Error(), "bad.json")
}

func TestReadSpreadsheet_CSV(t *testing.T) {
	d := newFakeDrive(t)
	d.addFile("root", "cells.csv", []byte("cell_id,depth\nc1,120.5\nc2,88.0\n"))

	client := newTestClient(t, d)

	df, err := client.ReadSpreadsheet(context.Background(), "cells.csv")
	require.NoError(t, err)
	assert.Equal(t, []string{"cell_id", "depth"}, df.Names())
	assert.Equal(t, 2, df.Nrow())
	assert.Equal(t, "c1", df.Elem(0, 0).String())
}

func TestReadSpreadsheet_Excel(t *testing.T) {
	wb := excelize.NewFile()
	require.NoError(t, wb.SetSheetRow("Sheet1", "A1", &[]any{"cell_id", "depth"}))
	require.NoError(t, wb.SetSheetRow("Sheet1", "A2", &[]any{"c1", 120.5}))
	require.NoError(t, wb.SetSheetRow("Sheet1", "A3", &[]any{"c2", 88.0}))

	var buf bytes.Buffer
	require.NoError(t, wb.Write(&buf))
	require.NoError(t, wb.Close())

	d := newFakeDrive(t)
	d.addFile("root", "cells.xlsx", buf.Bytes())

	client := newTestClient(t, d)

	df, err := client.ReadSpreadsheet(context.Background(), "cells.xlsx")
	require.NoError(t, err)
	assert.Equal(t, []string{"cell_id", "depth"}, df.Names())
	assert.Equal(t, 2, df.Nrow())
	assert.Equal(t, "c2", df.Elem(1, 0).String())
}

func TestReadSpreadsheet_UnsupportedExtension(t *testing.T) {
	d := newFakeDrive(t)
	client := newTestClient(t, d)

	_, err := client.ReadSpreadsheet(context.Background(), "notes.txt")
	require.ErrorIs(t, err, ErrUnsupportedFileType)

	// Rejected before any network round trip.
	assert.Equal(t, 0, d.childCalls())
}

func TestUploadCSV_ReadSpreadsheet_RoundTrip(t *testing.T) {
	d := newFakeDrive(t)
	d.addFolder("root", "Reports")

	client := newTestClient(t, d)
	ctx := context.Background()

	d.addFile("root", "seed.csv", []byte("id,score\na,1\nb,2\n"))

	df, err := client.ReadSpreadsheet(ctx, "seed.csv")
	require.NoError(t, err)

	_, err = client.UploadCSV(ctx, df, "Reports", "copy.csv")
	require.NoError(t, err)

	got, err := client.ReadSpreadsheet(ctx, "Reports/copy.csv")
	require.NoError(t, err)
	assert.Equal(t, df.Names(), got.Names())
	assert.Equal(t, df.Records(), got.Records())
}

func TestUpload_ReplacesExisting(t *testing.T) {
	d := newFakeDrive(t)
	d.addFile("root", "notes.txt", []byte("old"))

	client := newTestClient(t, d)
	ctx := context.Background()

	_, err := client.Upload(ctx, strings.NewReader("new"), "", "notes.txt", "text/plain")
	require.NoError(t, err)

	var buf bytes.Buffer
	_, err = client.Download(ctx, "notes.txt", &buf)
	require.NoError(t, err)
	assert.Equal(t, "new", buf.String())
}

func TestUploadFile(t *testing.T) {
	src := filepath.Join(t.TempDir(), "local.dat")
	require.NoError(t, os.WriteFile(src, []byte("local bytes"), 0o644))

	d := newFakeDrive(t)
	d.addFolder("root", "Incoming")

	client := newTestClient(t, d)

	item, err := client.UploadFile(context.Background(), src, "Incoming")
	require.NoError(t, err)
	assert.Equal(t, "local.dat", item.Name)

	var buf bytes.Buffer
	_, err = client.Download(context.Background(), "Incoming/local.dat", &buf)
	require.NoError(t, err)
	assert.Equal(t, "local bytes", buf.String())
}

func TestCreateFolder(t *testing.T) {
	d := newFakeDrive(t)
	d.addFolder("root", "A")

	client := newTestClient(t, d)
	ctx := context.Background()

	item, err := client.CreateFolder(ctx, "A", "New", false)
	require.NoError(t, err)
	assert.Equal(t, "New", item.Name)
	assert.True(t, item.IsFolder)

	_, err = client.CreateFolder(ctx, "A", "New", false)
	require.ErrorIs(t, err, ErrConflict)

	_, err = client.CreateFolder(ctx, "A", "New", true)
	require.NoError(t, err)
}

func TestMoveFile(t *testing.T) {
	d := newFakeDrive(t)
	src := d.addFolder("root", "Src")
	d.addFolder("root", "Dest")
	d.addFile(src, "report.csv", []byte("a,b\n1,2\n"))

	client := newTestClient(t, d)
	ctx := context.Background()

	item, err := client.MoveFile(ctx, "Src", "report.csv", "Dest", "")
	require.NoError(t, err)
	assert.Equal(t, "report.csv", item.Name)

	_, err = client.Stat(ctx, "Src/report.csv")
	require.ErrorIs(t, err, ErrNotFound)

	var buf bytes.Buffer
	_, err = client.Download(ctx, "Dest/report.csv", &buf)
	require.NoError(t, err)
	assert.Equal(t, "a,b\n1,2\n", buf.String())
}

func TestMoveFile_Rename(t *testing.T) {
	d := newFakeDrive(t)
	src := d.addFolder("root", "Src")
	d.addFolder("root", "Dest")
	d.addFile(src, "draft.txt", []byte("x"))

	client := newTestClient(t, d)

	item, err := client.MoveFile(context.Background(), "Src", "draft.txt", "Dest", "final.txt")
	require.NoError(t, err)
	assert.Equal(t, "final.txt", item.Name)

	_, err = client.Stat(context.Background(), "Dest/final.txt")
	require.NoError(t, err)
}

func TestMoveFile_InvalidatesPathCache(t *testing.T) {
	d := newFakeDrive(t)
	src := d.addFolder("root", "Src")
	d.addFolder("root", "Dest")
	d.addFile(src, "report.csv", []byte("x"))

	client := newTestClient(t, d, WithPathCache())
	ctx := context.Background()

	// Prime the cache with the pre-move location.
	_, err := client.Stat(ctx, "Src/report.csv")
	require.NoError(t, err)

	_, err = client.MoveFile(ctx, "Src", "report.csv", "Dest", "")
	require.NoError(t, err)

	// A stale cache entry would resolve the old path to the moved
	// item's ID and Stat would still succeed.
	_, err = client.Stat(ctx, "Src/report.csv")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestDelete(t *testing.T) {
	d := newFakeDrive(t)
	d.addFile("root", "old.txt", []byte("x"))

	client := newTestClient(t, d)
	ctx := context.Background()

	require.NoError(t, client.Delete(ctx, "old.txt"))

	_, err := client.Stat(ctx, "old.txt")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestDelete_NotFound(t *testing.T) {
	d := newFakeDrive(t)
	client := newTestClient(t, d)

	err := client.Delete(context.Background(), "ghost.txt")
	require.ErrorIs(t, err, ErrNotFound)
}
