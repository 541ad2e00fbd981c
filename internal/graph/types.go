package graph

import "time"

// ChildCountUnknown indicates the child count was not present in the API response.
const ChildCountUnknown = -1

// Item represents a drive item (file or folder) in a SharePoint document
// library. Fields are normalized from the Graph API response — callers
// never see raw API data.
type Item struct {
	ID          string
	Name        string
	ParentID    string
	Size        int64
	IsFolder    bool
	MimeType    string
	ChildCount  int // ChildCountUnknown if not present
	CreatedAt   time.Time
	ModifiedAt  time.Time
	DownloadURL string // pre-authenticated, ephemeral; never log
	WebURL      string
}

// Drive represents a document library under a SharePoint site.
type Drive struct {
	ID        string
	Name      string
	DriveType string
	WebURL    string
}
