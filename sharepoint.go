// Package sharepoint is a client library for file operations against a
// SharePoint document library through the Microsoft Graph REST API.
// A Client is bound at construction to one site and drive from the
// configuration registry; every operation addresses items by
// slash-delimited paths relative to the drive root (or a configured
// root folder) and blocks until the underlying HTTP calls complete.
package sharepoint

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/AllenInstitute/wnm-sharepoint-client/config"
	"github.com/AllenInstitute/wnm-sharepoint-client/internal/graph"
)

// Sentinel errors surfaced by client operations.
// Use errors.Is to check; ErrNotFound wraps path context.
var (
	ErrNotFound  = graph.ErrNotFound
	ErrConflict  = graph.ErrConflict
	ErrThrottled = graph.ErrThrottled

	// ErrParse is wrapped by every file decode failure (CSV, JSON, SWC,
	// Excel), with the remote path in the message.
	ErrParse = errors.New("sharepoint: parse error")

	// ErrUnsupportedFileType is returned by ReadSpreadsheet for
	// extensions other than .csv and .xlsx.
	ErrUnsupportedFileType = errors.New("sharepoint: unsupported file type")
)

// TokenSource provides OAuth2 bearer tokens for Graph requests.
// The auth package's TokenManager is the standard implementation.
type TokenSource interface {
	Token() (string, error)
}

// Item is file or folder metadata within the drive.
type Item struct {
	ID         string
	Name       string
	Size       int64
	IsFolder   bool
	MimeType   string
	CreatedAt  time.Time
	ModifiedAt time.Time
	WebURL     string
}

// Drive is a document library under the client's site.
type Drive struct {
	ID        string
	Name      string
	DriveType string
	WebURL    string
}

// Client performs file operations against one SharePoint document
// library. The site descriptor is selected at construction and held
// immutable; the client itself holds no per-call state and is safe for
// concurrent use (path-cache access is internally synchronized).
type Client struct {
	site       config.Site
	gc         *graph.Client
	logger     *slog.Logger
	rootFolder string
	cache      *pathCache // nil when caching is disabled (the default)
}

// Option customizes a Client.
type Option func(*options)

type options struct {
	logger     *slog.Logger
	httpClient *http.Client
	rootFolder string
	pathCache  bool
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithHTTPClient sets the HTTP client used for Graph requests.
func WithHTTPClient(hc *http.Client) Option {
	return func(o *options) { o.httpClient = hc }
}

// WithRootFolder makes all paths relative to the given folder instead of
// the drive root.
func WithRootFolder(folder string) Option {
	return func(o *options) { o.rootFolder = folder }
}

// WithPathCache enables memoization of path-to-item-ID resolution.
// Cache entries under an affected path are invalidated by every mutating
// operation, so observable behavior is unchanged; stale entries can only
// arise from out-of-band modification of the drive.
func WithPathCache() Option {
	return func(o *options) { o.pathCache = true }
}

// New builds a Client for the named site from the configuration registry.
// The token source is constructed separately (auth.NewTokenManager) and
// injected so one token manager can be shared across clients.
func New(cfg *config.Config, siteName string, tokens TokenSource, opts ...Option) (*Client, error) {
	if tokens == nil {
		return nil, fmt.Errorf("sharepoint: nil token source")
	}

	site, err := cfg.Site(siteName)
	if err != nil {
		return nil, err
	}

	o := options{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}

	c := &Client{
		site:       site,
		logger:     o.logger,
		rootFolder: cleanPath(o.rootFolder),
		gc: graph.NewClient(
			cfg.Auth.GraphBaseURL, site.SiteID, site.DriveID, cfg.Auth.Top,
			o.httpClient, tokens, o.logger,
		),
	}

	if o.pathCache {
		c.cache = newPathCache()
	}

	return c, nil
}

// Site returns the immutable site descriptor this client addresses.
func (c *Client) Site() config.Site {
	return c.site
}

// fromGraphItem converts the transport item to the public type.
func fromGraphItem(gi graph.Item) Item {
	return Item{
		ID:         gi.ID,
		Name:       gi.Name,
		Size:       gi.Size,
		IsFolder:   gi.IsFolder,
		MimeType:   gi.MimeType,
		CreatedAt:  gi.CreatedAt,
		ModifiedAt: gi.ModifiedAt,
		WebURL:     gi.WebURL,
	}
}

func fromGraphItems(gis []graph.Item) []Item {
	items := make([]Item, 0, len(gis))
	for i := range gis {
		items = append(items, fromGraphItem(gis[i]))
	}

	return items
}
