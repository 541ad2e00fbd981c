package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
)

// Upload uploads file content in a single PUT to
// .../items/{parent}:/{name}:/content, overwriting any existing file of
// the same name (the Graph API's default upload semantics).
// "root" addresses the drive root as parent.
// Unlike Do(), this does not retry — retrying a partially-consumed reader
// is not safe.
func (c *Client) Upload(ctx context.Context, parentID, name, contentType string, body io.Reader) (*Item, error) {
	c.logger.Info("uploading file",
		slog.String("parent_id", parentID),
		slog.String("name", name),
		slog.String("content_type", contentType),
	)

	path := fmt.Sprintf("%s/items/%s:/%s:/content", c.drivePath(), parentID, url.PathEscape(name))

	resp, err := c.doRawUpload(ctx, http.MethodPut, path, contentType, body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var dir driveItemResponse
	if decErr := json.NewDecoder(resp.Body).Decode(&dir); decErr != nil {
		return nil, fmt.Errorf("graph: decoding upload response: %w", decErr)
	}

	item := dir.toItem(c.logger)

	return &item, nil
}

// doRawUpload sends an authenticated request with a custom content type.
func (c *Client) doRawUpload(
	ctx context.Context, method, path, contentType string, body io.Reader,
) (*http.Response, error) {
	url := c.baseURL + path

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("graph: creating upload request: %w", err)
	}

	tok, err := c.token.Token()
	if err != nil {
		return nil, fmt.Errorf("graph: obtaining token for upload: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+tok)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("upload request failed",
			slog.String("method", method),
			slog.String("path", path),
			slog.String("error", err.Error()),
		)

		return nil, fmt.Errorf("graph: upload request failed: %w", err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		errBody, _ := io.ReadAll(resp.Body) //nolint:errcheck // best-effort read for error message
		resp.Body.Close()

		return nil, &GraphError{
			StatusCode: resp.StatusCode,
			RequestID:  resp.Header.Get("request-id"),
			Message:    string(errBody),
			Err:        classifyStatus(resp.StatusCode),
		}
	}

	return resp, nil
}
