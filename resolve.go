package sharepoint

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/text/unicode/norm"
)

// rootItemID is the Graph item ID alias for the drive root.
const rootItemID = "root"

// cleanPath strips leading/trailing slashes; returns "" for the root.
func cleanPath(path string) string {
	return strings.Trim(strings.TrimSpace(path), "/")
}

// joinPath joins path elements, ignoring empty ones.
func joinPath(elems ...string) string {
	parts := make([]string, 0, len(elems))

	for _, e := range elems {
		if clean := cleanPath(e); clean != "" {
			parts = append(parts, clean)
		}
	}

	return strings.Join(parts, "/")
}

// fullPath applies the configured root folder prefix.
func (c *Client) fullPath(path string) string {
	return joinPath(c.rootFolder, path)
}

// nameEqual compares item names the way the Graph service does:
// case-insensitive, after NFC normalization (SharePoint may return
// decomposed Unicode for names created on macOS).
func nameEqual(a, b string) bool {
	return strings.EqualFold(norm.NFC.String(a), norm.NFC.String(b))
}

// ResolveID resolves a slash-delimited path (relative to the configured
// root) to a Graph drive-item ID by walking one children listing per
// segment. The first unmatched segment short-circuits with ErrNotFound.
// Without WithPathCache, repeated calls with overlapping prefixes
// re-issue the same listing calls.
func (c *Client) ResolveID(ctx context.Context, path string) (string, error) {
	clean := c.fullPath(path)
	if clean == "" {
		return rootItemID, nil
	}

	if c.cache != nil {
		if id, ok := c.cache.get(clean); ok {
			return id, nil
		}
	}

	current := rootItemID
	segments := strings.Split(clean, "/")

	for i, segment := range segments {
		children, err := c.gc.ListChildren(ctx, current)
		if err != nil {
			return "", fmt.Errorf("resolving %q: %w", path, err)
		}

		next := ""

		for j := range children {
			if nameEqual(children[j].Name, segment) {
				next = children[j].ID
				break
			}
		}

		if next == "" {
			return "", fmt.Errorf("resolving %q: no item named %q under %q: %w",
				path, segment, joinPath(segments[:i]...), ErrNotFound)
		}

		current = next
	}

	if c.cache != nil {
		c.cache.put(clean, current)
	}

	return current, nil
}

// invalidatePath drops cached resolutions for the given path and
// everything beneath it. No-op when caching is disabled.
func (c *Client) invalidatePath(path string) {
	if c.cache != nil {
		c.cache.invalidate(c.fullPath(path))
	}
}

// pathCache memoizes path-to-ID resolutions. Keys are full cleaned
// paths; values are item IDs.
type pathCache struct {
	mu      sync.Mutex
	entries map[string]string
}

func newPathCache() *pathCache {
	return &pathCache{entries: make(map[string]string)}
}

func (p *pathCache) get(path string) (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	id, ok := p.entries[path]

	return id, ok
}

func (p *pathCache) put(path, id string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.entries[path] = id
}

// invalidate removes the entry for path and all entries beneath it.
func (p *pathCache) invalidate(path string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if path == "" {
		p.entries = make(map[string]string)

		return
	}

	delete(p.entries, path)

	prefix := path + "/"
	for key := range p.entries {
		if strings.HasPrefix(key, prefix) {
			delete(p.entries, key)
		}
	}
}
