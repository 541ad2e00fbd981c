package sharepoint

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/go-gota/gota/dataframe"

	"github.com/AllenInstitute/wnm-sharepoint-client/internal/graph"
)

// Upload writes the reader's content to fileName inside the folder at
// folderPath, overwriting any existing file of the same name (the Graph
// API's default upload semantics).
func (c *Client) Upload(ctx context.Context, r io.Reader, folderPath, fileName, contentType string) (*Item, error) {
	parentID, err := c.ResolveID(ctx, folderPath)
	if err != nil {
		return nil, err
	}

	gi, err := c.gc.Upload(ctx, parentID, fileName, contentType, r)
	if err != nil {
		return nil, fmt.Errorf("uploading %q to %q: %w", fileName, folderPath, err)
	}

	c.invalidatePath(joinPath(folderPath, fileName))

	item := fromGraphItem(*gi)

	return &item, nil
}

// UploadCSV serializes a DataFrame as CSV (with header row) and uploads
// it to folderPath/fileName.
func (c *Client) UploadCSV(ctx context.Context, df dataframe.DataFrame, folderPath, fileName string) (*Item, error) {
	var buf bytes.Buffer
	if err := df.WriteCSV(&buf); err != nil {
		return nil, fmt.Errorf("sharepoint: serializing csv for %q: %w", fileName, err)
	}

	return c.Upload(ctx, &buf, folderPath, fileName, "text/csv")
}

// UploadJSON marshals v as indented JSON and uploads it to
// folderPath/fileName.
func (c *Client) UploadJSON(ctx context.Context, v any, folderPath, fileName string) (*Item, error) {
	data, err := json.MarshalIndent(v, "", "    ")
	if err != nil {
		return nil, fmt.Errorf("sharepoint: serializing json for %q: %w", fileName, err)
	}

	return c.Upload(ctx, bytes.NewReader(data), folderPath, fileName, "application/json")
}

// UploadFile uploads a local file into the folder at folderPath, keeping
// its base name.
func (c *Client) UploadFile(ctx context.Context, localPath, folderPath string) (*Item, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", localPath, err)
	}
	defer f.Close()

	return c.Upload(ctx, f, folderPath, filepath.Base(localPath), "application/octet-stream")
}

// MoveFile moves fileName from srcFolder into destFolder, optionally
// renaming it (empty newName keeps the original name). The move is a
// single metadata PATCH; it is not transactional, and a name collision
// at the destination surfaces as ErrConflict.
func (c *Client) MoveFile(ctx context.Context, srcFolder, fileName, destFolder, newName string) (*Item, error) {
	srcID, err := c.ResolveID(ctx, joinPath(srcFolder, fileName))
	if err != nil {
		return nil, err
	}

	destID, err := c.ResolveID(ctx, destFolder)
	if err != nil {
		return nil, err
	}

	gi, err := c.gc.MoveItem(ctx, srcID, destID, newName)
	if err != nil {
		return nil, fmt.Errorf("moving %q from %q to %q: %w", fileName, srcFolder, destFolder, err)
	}

	c.invalidatePath(joinPath(srcFolder, fileName))
	c.invalidatePath(destFolder)

	item := fromGraphItem(*gi)

	return &item, nil
}

// CreateFolder creates a folder named name under the folder at
// parentPath. With replace false, an existing folder of the same name
// surfaces as ErrConflict; with replace true it is overwritten.
func (c *Client) CreateFolder(ctx context.Context, parentPath, name string, replace bool) (*Item, error) {
	parentID, err := c.ResolveID(ctx, parentPath)
	if err != nil {
		return nil, err
	}

	behavior := graph.ConflictFail
	if replace {
		behavior = graph.ConflictReplace
	}

	gi, err := c.gc.CreateFolder(ctx, parentID, name, behavior)
	if err != nil {
		return nil, fmt.Errorf("creating folder %q under %q: %w", name, parentPath, err)
	}

	c.invalidatePath(joinPath(parentPath, name))

	item := fromGraphItem(*gi)

	return &item, nil
}

// Delete removes the item at the given path (files and folders alike;
// folder deletion is recursive on the service side).
func (c *Client) Delete(ctx context.Context, remotePath string) error {
	id, err := c.ResolveID(ctx, remotePath)
	if err != nil {
		return err
	}

	if err := c.gc.DeleteItem(ctx, id); err != nil {
		return fmt.Errorf("deleting %q: %w", remotePath, err)
	}

	c.invalidatePath(remotePath)

	return nil
}
