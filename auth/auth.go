// Package auth implements the OAuth2 client-credentials token lifecycle
// for the Graph API. A TokenManager lazily fetches a bearer token from the
// tenant's token endpoint and transparently replaces it shortly before
// expiry. Tokens are never mutated — a refresh discards the old token.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/AllenInstitute/wnm-sharepoint-client/config"
)

// expiryMargin is how long before the reported expiry a token is treated
// as stale. Matches the token endpoint's clock-skew guidance.
const expiryMargin = 60 * time.Second

// ErrAuthentication is the sentinel wrapped by every token acquisition
// failure. Use errors.Is(err, auth.ErrAuthentication).
var ErrAuthentication = errors.New("auth: token acquisition failed")

// TokenManager obtains and caches a client-credentials bearer token.
// It is safe for concurrent use: the check-and-refresh sequence is
// serialized by the underlying oauth2 reuse source, so concurrent callers
// never trigger duplicate refreshes.
type TokenManager struct {
	src    oauth2.TokenSource
	logger *slog.Logger

	// mu guards lastExpiry, used only to detect and log refreshes.
	mu         sync.Mutex
	lastExpiry time.Time
}

// Option customizes a TokenManager.
type Option func(*settings)

type settings struct {
	tokenURL   string
	httpClient *http.Client
	margin     time.Duration
	logger     *slog.Logger
}

// WithTokenURL overrides the token endpoint. Used by tests to point the
// manager at a local server.
func WithTokenURL(u string) Option {
	return func(s *settings) { s.tokenURL = u }
}

// WithHTTPClient sets the HTTP client used for token endpoint calls.
func WithHTTPClient(hc *http.Client) Option {
	return func(s *settings) { s.httpClient = hc }
}

// WithExpiryMargin overrides the stale-token safety margin.
func WithExpiryMargin(d time.Duration) Option {
	return func(s *settings) { s.margin = d }
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *settings) { s.logger = l }
}

// NewTokenManager builds a TokenManager for the given credentials.
// It fails fast when any required credential is missing — a bad
// configuration should never survive construction.
func NewTokenManager(a config.Auth, opts ...Option) (*TokenManager, error) {
	var missing []string

	for _, f := range []struct{ key, val string }{
		{"TENANT_ID", a.TenantID},
		{"CLIENT_ID", a.ClientID},
		{"CLIENT_SECRET", a.ClientSecret},
		{"SCOPE", a.Scope},
	} {
		if f.val == "" {
			missing = append(missing, f.key)
		}
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing credentials: %v", config.ErrInvalidConfig, missing)
	}

	s := settings{
		tokenURL: fmt.Sprintf("https://login.microsoftonline.com/%s/oauth2/v2.0/token", a.TenantID),
		margin:   expiryMargin,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(&s)
	}

	cc := &clientcredentials.Config{
		ClientID:     a.ClientID,
		ClientSecret: a.ClientSecret,
		TokenURL:     s.tokenURL,
		Scopes:       []string{a.Scope},
		AuthStyle:    oauth2.AuthStyleInParams,
	}

	// The context carries the HTTP client for token endpoint calls and
	// must outlive the manager.
	ctx := context.Background()
	if s.httpClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, s.httpClient)
	}

	// ReuseTokenSourceWithExpiry caches the token and serializes the
	// check-and-refresh sequence under its own mutex; the margin makes
	// the token stale slightly before its reported expiry.
	src := oauth2.ReuseTokenSourceWithExpiry(nil, cc.TokenSource(ctx), s.margin)

	return &TokenManager{src: src, logger: s.logger}, nil
}

// Token returns a valid bearer token, fetching a new one when none is
// held or the held one is stale. Token endpoint failures surface
// synchronously and are not retried.
func (m *TokenManager) Token() (string, error) {
	t, err := m.src.Token()
	if err != nil {
		m.logger.Warn("token acquisition failed", slog.String("error", err.Error()))
		return "", fmt.Errorf("%w: %v", ErrAuthentication, err)
	}

	m.mu.Lock()
	refreshed := !t.Expiry.Equal(m.lastExpiry)
	m.lastExpiry = t.Expiry
	m.mu.Unlock()

	if refreshed {
		m.logger.Info("token refreshed",
			slog.Time("expiry", t.Expiry),
		)
	} else {
		m.logger.Debug("token reused",
			slog.Time("expiry", t.Expiry),
		)
	}

	return t.AccessToken, nil
}
