package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
)

// driveResponse mirrors the Graph API drive JSON response.
// Unexported — callers use Drive via toDrive() normalization.
type driveResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	DriveType string `json:"driveType"`
	WebURL    string `json:"webUrl"`
}

// drivesListResponse wraps the value array from GET /sites/{site}/drives.
type drivesListResponse struct {
	Value []driveResponse `json:"value"`
}

func (d *driveResponse) toDrive() Drive {
	return Drive{
		ID:        d.ID,
		Name:      d.Name,
		DriveType: d.DriveType,
		WebURL:    d.WebURL,
	}
}

// ListDrives returns all document libraries under the client's site.
func (c *Client) ListDrives(ctx context.Context) ([]Drive, error) {
	c.logger.Debug("listing site drives",
		slog.String("site_id", c.siteID),
	)

	path := fmt.Sprintf("/sites/%s/drives", c.siteID)

	resp, err := c.Do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var dlr drivesListResponse
	if err := json.NewDecoder(resp.Body).Decode(&dlr); err != nil {
		return nil, fmt.Errorf("graph: decoding drives response: %w", err)
	}

	drives := make([]Drive, 0, len(dlr.Value))
	for i := range dlr.Value {
		drives = append(drives, dlr.Value[i].toDrive())
	}

	c.logger.Info("listed drives",
		slog.Int("count", len(drives)),
	)

	return drives, nil
}
