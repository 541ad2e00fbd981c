package graph

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
)

// ErrNoDownloadURL is returned when a drive item has no pre-authenticated
// download URL. This happens for folders and zero-byte files.
var ErrNoDownloadURL = errors.New("graph: item has no download URL")

// Download streams the content of a drive item to the given writer.
// It first fetches the item metadata to obtain the pre-authenticated
// download URL, then streams the content directly from that URL
// (bypassing the Graph API). Returns the number of bytes written.
func (c *Client) Download(ctx context.Context, itemID string, w io.Writer) (int64, error) {
	c.logger.Debug("downloading item",
		slog.String("item_id", itemID),
	)

	item, err := c.GetItem(ctx, itemID)
	if err != nil {
		return 0, fmt.Errorf("graph: getting item for download: %w", err)
	}

	if item.DownloadURL == "" {
		c.logger.Warn("item has no download URL",
			slog.String("item_id", itemID),
			slog.Bool("is_folder", item.IsFolder),
		)

		return 0, ErrNoDownloadURL
	}

	n, err := c.downloadFromURL(ctx, item.DownloadURL, w)
	if err != nil {
		return 0, err
	}

	c.logger.Debug("download complete",
		slog.String("item_id", itemID),
		slog.Int64("bytes_written", n),
	)

	return n, nil
}

// downloadFromURL streams content from a pre-authenticated URL directly to
// the writer. No Authorization header is sent; the URL embeds its own
// auth token and is therefore never logged.
func (c *Client) downloadFromURL(ctx context.Context, downloadURL string, w io.Writer) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, downloadURL, http.NoBody)
	if err != nil {
		return 0, fmt.Errorf("graph: creating download request: %w", err)
	}

	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("graph: download request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body) //nolint:errcheck // best-effort read for error message

		return 0, &GraphError{
			StatusCode: resp.StatusCode,
			RequestID:  resp.Header.Get("request-id"),
			Message:    string(body),
			Err:        classifyStatus(resp.StatusCode),
		}
	}

	n, copyErr := io.Copy(w, resp.Body)
	if copyErr != nil {
		c.logger.Error("streaming download content failed",
			slog.String("error", copyErr.Error()),
			slog.Int64("bytes_before_error", n),
		)

		return n, fmt.Errorf("graph: streaming download content: %w", copyErr)
	}

	return n, nil
}
