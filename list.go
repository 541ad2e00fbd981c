package sharepoint

import (
	"context"
	"fmt"
	"io"
	"strings"
)

// indentStep is the indentation added per directory level by PrintDirectory.
const indentStep = 4

// ListItems returns the children of the folder at the given path, with
// name/type/size metadata, in the order the service returned them.
// A missing path surfaces ErrNotFound rather than an empty list.
func (c *Client) ListItems(ctx context.Context, path string) ([]Item, error) {
	id, err := c.ResolveID(ctx, path)
	if err != nil {
		return nil, err
	}

	children, err := c.gc.ListChildren(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("listing %q: %w", path, err)
	}

	return fromGraphItems(children), nil
}

// ListTopLevelFolders returns the names of the folders directly under
// the drive root (or the configured root folder). Files are excluded.
func (c *Client) ListTopLevelFolders(ctx context.Context) ([]string, error) {
	items, err := c.ListItems(ctx, "")
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(items))

	for _, item := range items {
		if item.IsFolder {
			names = append(names, item.Name)
		}
	}

	return names, nil
}

// ListDrives returns all document libraries under the client's site.
func (c *Client) ListDrives(ctx context.Context) ([]Drive, error) {
	drives, err := c.gc.ListDrives(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]Drive, 0, len(drives))
	for _, d := range drives {
		out = append(out, Drive(d))
	}

	return out, nil
}

// PrintDirectory writes an indented tree of the folder at path to w.
// Folders are always shown; files only when showFiles is true. Recursion
// has no depth limit — Graph folder hierarchies are acyclic by
// construction.
func (c *Client) PrintDirectory(ctx context.Context, w io.Writer, path string, showFiles bool) error {
	id, err := c.ResolveID(ctx, path)
	if err != nil {
		return err
	}

	return c.printTree(ctx, w, id, 0, showFiles)
}

func (c *Client) printTree(ctx context.Context, w io.Writer, parentID string, indent int, showFiles bool) error {
	children, err := c.gc.ListChildren(ctx, parentID)
	if err != nil {
		return err
	}

	pad := strings.Repeat(" ", indent)

	for i := range children {
		child := &children[i]

		switch {
		case child.IsFolder:
			if _, err := fmt.Fprintf(w, "%s%s\n", pad, child.Name); err != nil {
				return err
			}

			if err := c.printTree(ctx, w, child.ID, indent+indentStep, showFiles); err != nil {
				return err
			}
		case showFiles:
			if _, err := fmt.Fprintf(w, "%s%s\n", pad, child.Name); err != nil {
				return err
			}
		}
	}

	return nil
}
