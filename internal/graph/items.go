package graph

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Conflict behaviors for CreateFolder.
const (
	ConflictFail    = "fail"
	ConflictReplace = "replace"
)

// encodePathSegments URL-encodes each segment of a slash-separated path.
// Characters like #, ?, %, and spaces are encoded per-segment so the
// resulting path is safe for interpolation into Graph API URLs.
func encodePathSegments(path string) string {
	segments := strings.Split(path, "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}

	return strings.Join(segments, "/")
}

// driveItemResponse mirrors the Graph API driveItem JSON exactly.
// Unexported — callers use Item via toItem() normalization.
type driveItemResponse struct {
	ID                   string       `json:"id"`
	Name                 string       `json:"name"`
	Size                 int64        `json:"size"`
	WebURL               string       `json:"webUrl"`
	CreatedDateTime      string       `json:"createdDateTime"`
	LastModifiedDateTime string       `json:"lastModifiedDateTime"`
	ParentReference      *parentRef   `json:"parentReference"`
	File                 *fileFacet   `json:"file"`
	Folder               *folderFacet `json:"folder"`
	DownloadURL          string       `json:"@microsoft.graph.downloadUrl"` //nolint:tagliatelle // Graph API annotation key
}

type parentRef struct {
	ID string `json:"id"`
}

type fileFacet struct {
	MimeType string `json:"mimeType"`
}

type folderFacet struct {
	ChildCount int `json:"childCount"`
}

type listChildrenResponse struct {
	Value    []driveItemResponse `json:"value"`
	NextLink string              `json:"@odata.nextLink"` //nolint:tagliatelle // OData annotation key
}

type createFolderRequest struct {
	Name             string      `json:"name"`
	Folder           folderFacet `json:"folder"`
	ConflictBehavior string      `json:"@microsoft.graph.conflictBehavior"` //nolint:tagliatelle // Graph API annotation key
}

type moveItemRequest struct {
	ParentReference *moveParentRef `json:"parentReference,omitempty"`
	Name            string         `json:"name,omitempty"`
}

type moveParentRef struct {
	ID string `json:"id"`
}

// toItem normalizes a Graph API driveItem response into our Item type.
func (d *driveItemResponse) toItem(logger *slog.Logger) Item {
	item := Item{
		ID:          d.ID,
		Name:        d.Name,
		Size:        d.Size,
		IsFolder:    d.Folder != nil,
		ChildCount:  ChildCountUnknown,
		DownloadURL: d.DownloadURL,
		WebURL:      d.WebURL,
	}

	if d.ParentReference != nil {
		item.ParentID = d.ParentReference.ID
	}

	if d.Folder != nil {
		item.ChildCount = d.Folder.ChildCount
	}

	if d.File != nil {
		item.MimeType = d.File.MimeType
	}

	item.CreatedAt = parseTimestamp(d.CreatedDateTime, "createdDateTime", d.ID, logger)
	item.ModifiedAt = parseTimestamp(d.LastModifiedDateTime, "lastModifiedDateTime", d.ID, logger)

	return item
}

// parseTimestamp parses an RFC3339 timestamp. Missing or malformed
// timestamps yield the zero time and a debug log — listing should never
// fail over a cosmetic field.
func parseTimestamp(raw, field, itemID string, logger *slog.Logger) time.Time {
	if raw == "" {
		return time.Time{}
	}

	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		logger.Debug("invalid timestamp in item response",
			slog.String("field", field),
			slog.String("item_id", itemID),
			slog.String("raw", raw),
		)

		return time.Time{}
	}

	return t
}

// GetItem retrieves a single drive item by ID. "root" addresses the drive root.
func (c *Client) GetItem(ctx context.Context, itemID string) (*Item, error) {
	c.logger.Debug("getting item",
		slog.String("item_id", itemID),
	)

	return c.fetchItem(ctx, fmt.Sprintf("%s/items/%s", c.drivePath(), itemID))
}

// GetItemByPath retrieves a drive item by its slash-delimited path relative
// to the drive root. The path must not have a leading slash; for the root
// itself use GetItem with itemID "root".
func (c *Client) GetItemByPath(ctx context.Context, remotePath string) (*Item, error) {
	c.logger.Debug("getting item by path",
		slog.String("path", remotePath),
	)

	return c.fetchItem(ctx, fmt.Sprintf("%s/root:/%s:", c.drivePath(), encodePathSegments(remotePath)))
}

// fetchItem fetches a single drive item from the given API path and decodes it.
func (c *Client) fetchItem(ctx context.Context, apiPath string) (*Item, error) {
	resp, err := c.Do(ctx, http.MethodGet, apiPath, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var dir driveItemResponse
	if err := json.NewDecoder(resp.Body).Decode(&dir); err != nil {
		return nil, fmt.Errorf("graph: decoding item response: %w", err)
	}

	item := dir.toItem(c.logger)

	return &item, nil
}

// ListChildren returns all children of the folder with the given item ID,
// following @odata.nextLink pagination. "root" addresses the drive root.
// Items are returned in service order; no client-side sorting.
func (c *Client) ListChildren(ctx context.Context, parentID string) ([]Item, error) {
	c.logger.Debug("listing children",
		slog.String("parent_id", parentID),
	)

	apiPath := fmt.Sprintf("%s/items/%s/children?$top=%d", c.drivePath(), parentID, c.pageSize)

	var items []Item

	page := 1

	for apiPath != "" {
		pageItems, nextPath, err := c.listChildrenPage(ctx, apiPath, page)
		if err != nil {
			return nil, err
		}

		items = append(items, pageItems...)
		apiPath = nextPath
		page++
	}

	c.logger.Debug("listed children",
		slog.String("parent_id", parentID),
		slog.Int("total_items", len(items)),
	)

	return items, nil
}

// listChildrenPage fetches a single page of children and returns the items
// and the next page path (empty if no more pages).
func (c *Client) listChildrenPage(ctx context.Context, path string, page int) ([]Item, string, error) {
	resp, err := c.Do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	var lcr listChildrenResponse
	if err := json.NewDecoder(resp.Body).Decode(&lcr); err != nil {
		return nil, "", fmt.Errorf("graph: decoding children response: %w", err)
	}

	items := make([]Item, 0, len(lcr.Value))
	for i := range lcr.Value {
		items = append(items, lcr.Value[i].toItem(c.logger))
	}

	c.logger.Debug("fetched children page",
		slog.Int("page", page),
		slog.Int("count", len(items)),
	)

	var nextPath string
	if lcr.NextLink != "" {
		var stripErr error

		nextPath, stripErr = c.stripBaseURL(lcr.NextLink)
		if stripErr != nil {
			return nil, "", stripErr
		}
	}

	return items, nextPath, nil
}

// stripBaseURL removes the client's base URL prefix from a full URL,
// returning the path + query string for use with Do().
// Returns an error if the URL doesn't start with the expected base.
func (c *Client) stripBaseURL(fullURL string) (string, error) {
	if !strings.HasPrefix(fullURL, c.baseURL) {
		return "", fmt.Errorf("graph: nextLink URL %q does not match base URL %q", fullURL, c.baseURL)
	}

	return fullURL[len(c.baseURL):], nil
}

// CreateFolder creates a new folder under the given parent item.
// With ConflictFail, a name collision surfaces as ErrConflict (409);
// ConflictReplace overwrites the existing folder.
func (c *Client) CreateFolder(ctx context.Context, parentID, name, conflictBehavior string) (*Item, error) {
	c.logger.Info("creating folder",
		slog.String("parent_id", parentID),
		slog.String("name", name),
		slog.String("conflict_behavior", conflictBehavior),
	)

	path := fmt.Sprintf("%s/items/%s/children", c.drivePath(), parentID)

	reqBody := createFolderRequest{
		Name:             name,
		Folder:           folderFacet{},
		ConflictBehavior: conflictBehavior,
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("graph: marshaling create folder request: %w", err)
	}

	resp, err := c.Do(ctx, http.MethodPost, path, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var dir driveItemResponse
	if err := json.NewDecoder(resp.Body).Decode(&dir); err != nil {
		return nil, fmt.Errorf("graph: decoding create folder response: %w", err)
	}

	item := dir.toItem(c.logger)

	return &item, nil
}

// MoveItem moves and/or renames an item via PATCH. At least one of
// newParentID or newName must be non-empty.
func (c *Client) MoveItem(ctx context.Context, itemID, newParentID, newName string) (*Item, error) {
	if newParentID == "" && newName == "" {
		return nil, fmt.Errorf("graph: MoveItem requires at least one of newParentID or newName")
	}

	c.logger.Info("moving item",
		slog.String("item_id", itemID),
		slog.String("new_parent_id", newParentID),
		slog.String("new_name", newName),
	)

	path := fmt.Sprintf("%s/items/%s", c.drivePath(), itemID)

	req := moveItemRequest{}
	if newParentID != "" {
		req.ParentReference = &moveParentRef{ID: newParentID}
	}

	if newName != "" {
		req.Name = newName
	}

	bodyBytes, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("graph: marshaling move request: %w", err)
	}

	resp, err := c.Do(ctx, http.MethodPatch, path, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var dir driveItemResponse
	if err := json.NewDecoder(resp.Body).Decode(&dir); err != nil {
		return nil, fmt.Errorf("graph: decoding move response: %w", err)
	}

	item := dir.toItem(c.logger)

	return &item, nil
}

// DeleteItem deletes a drive item. Returns nil on success (HTTP 204).
func (c *Client) DeleteItem(ctx context.Context, itemID string) error {
	c.logger.Info("deleting item",
		slog.String("item_id", itemID),
	)

	path := fmt.Sprintf("%s/items/%s", c.drivePath(), itemID)

	resp, err := c.Do(ctx, http.MethodDelete, path, nil)
	if err != nil {
		return err
	}

	// 204 No Content — drain and close to reuse connection.
	defer resp.Body.Close()

	if _, copyErr := io.Copy(io.Discard, resp.Body); copyErr != nil {
		return fmt.Errorf("graph: draining delete response body: %w", copyErr)
	}

	return nil
}
