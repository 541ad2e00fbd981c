// Package config loads and validates wnm-sharepoint-client configuration:
// OAuth2 client-credentials secrets plus the registry of SharePoint sites
// the client may address. Configuration is built exactly once at startup
// and passed by reference into the token manager and the client — there
// are no package-level globals.
package config

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// defaultGraphBaseURL is the Graph API endpoint used when the config file
// does not override it.
const defaultGraphBaseURL = "https://graph.microsoft.com/v1.0"

// defaultTop is the $top page size for children listings when unset.
// 200 is the maximum the Graph API allows for drive item collections.
const defaultTop = 200

// ErrInvalidConfig is the sentinel wrapped by every configuration
// validation failure. Use errors.Is(err, config.ErrInvalidConfig).
var ErrInvalidConfig = errors.New("config: invalid configuration")

// Auth holds the OAuth2 client-credentials grant parameters.
// JSON keys are UPPER_SNAKE to match the config.json contract.
type Auth struct {
	TenantID     string `json:"TENANT_ID"`
	ClientID     string `json:"CLIENT_ID"`
	ClientSecret string `json:"CLIENT_SECRET"`
	Scope        string `json:"SCOPE"`
	GraphBaseURL string `json:"GRAPH_API_BASE_URL"`
	Top          int    `json:"TOP"`
}

// Site identifies one SharePoint document library: the site, the drive
// within it, and the human-facing URL (informational only).
type Site struct {
	SiteID  string `json:"SITE_ID"`
	DriveID string `json:"DRIVE_ID"`
	SiteURL string `json:"SITE_URL"`
}

// Config is the full client configuration: credentials plus named sites.
// Immutable for the process lifetime once loaded.
type Config struct {
	Auth  Auth            `json:"auth"`
	Sites map[string]Site `json:"sites"`
}

// Site looks up a named site. The error lists the known site names so a
// typo is immediately diagnosable.
func (c *Config) Site(name string) (Site, error) {
	site, ok := c.Sites[name]
	if !ok {
		return Site{}, fmt.Errorf("%w: unknown site %q (known sites: %s)",
			ErrInvalidConfig, name, strings.Join(c.SiteNames(), ", "))
	}

	return site, nil
}

// SiteNames returns the configured site names, sorted.
func (c *Config) SiteNames() []string {
	names := make([]string, 0, len(c.Sites))
	for name := range c.Sites {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// Validate checks that every required auth and site key is present,
// reporting all missing keys at once rather than one per run.
func Validate(cfg *Config) error {
	var missing []string

	authKeys := []struct {
		key, val string
	}{
		{"auth.TENANT_ID", cfg.Auth.TenantID},
		{"auth.CLIENT_ID", cfg.Auth.ClientID},
		{"auth.CLIENT_SECRET", cfg.Auth.ClientSecret},
		{"auth.SCOPE", cfg.Auth.Scope},
	}
	for _, k := range authKeys {
		if k.val == "" {
			missing = append(missing, k.key)
		}
	}

	if len(cfg.Sites) == 0 {
		missing = append(missing, "sites (at least one site)")
	}

	for _, name := range cfg.SiteNames() {
		site := cfg.Sites[name]
		if site.SiteID == "" {
			missing = append(missing, fmt.Sprintf("sites.%s.SITE_ID", name))
		}

		if site.DriveID == "" {
			missing = append(missing, fmt.Sprintf("sites.%s.DRIVE_ID", name))
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("%w: missing keys: %s", ErrInvalidConfig, strings.Join(missing, ", "))
	}

	return nil
}

// applyDefaults fills GraphBaseURL and Top when the config omits them.
func applyDefaults(cfg *Config) {
	if cfg.Auth.GraphBaseURL == "" {
		cfg.Auth.GraphBaseURL = defaultGraphBaseURL
	}

	if cfg.Auth.Top <= 0 {
		cfg.Auth.Top = defaultTop
	}
}
