package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"
	googleoauth "golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
)

// CalendarEventsScope allows creating events without access to calendar settings
const CalendarEventsScope = calendar.CalendarEventsScope

const refreshTimeout = 30 * time.Second

var errInlineToken = errors.New("token was provided inline and cannot be saved")

// TokenManager loads, refreshes and persists the OAuth2 token used to write events.
// Credentials and token may each be given as a file path or as inline JSON,
// the latter when resolved from a secret store. Inline tokens are never written back.
type TokenManager struct {
	config *oauth2.Config
	store  tokenStore
	logger *slog.Logger
}

// NewTokenManager reads the client secrets and prepares the token store
func NewTokenManager(credentials, token string, logger *slog.Logger) (*TokenManager, error) {
	if logger == nil {
		logger = slog.Default()
	}

	secrets, err := jsonOrFile(credentials)
	if err != nil {
		return nil, fmt.Errorf("failed to read credentials: %w", err)
	}

	cfg, err := googleoauth.ConfigFromJSON(secrets, CalendarEventsScope, calendar.CalendarReadonlyScope)
	if err != nil {
		return nil, fmt.Errorf("no valid OAuth2 configuration in credentials: %w", err)
	}
	var store tokenStore = fileStore(token)
	if isInline(token) {
		store = inlineStore(token)
	}

	return &TokenManager{
		config: cfg,
		store:  store,
		logger: logger,
	}, nil
}

// GetAuthURL returns the consent page URL for first-time authorization
func (tm *TokenManager) GetAuthURL() string {
	// prompt=consent forces a refresh token on re-authorization
	return tm.config.AuthCodeURL("event-creator",
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "consent"))
}

// ExchangeCode trades an authorization code for a token and stores it
func (tm *TokenManager) ExchangeCode(ctx context.Context, code string) (*oauth2.Token, error) {
	token, err := tm.config.Exchange(ctx, strings.TrimSpace(code))
	if err != nil {
		return nil, fmt.Errorf("failed to exchange authorization code: %w", err)
	}

	if err := tm.SaveToken(token); err != nil {
		return nil, err
	}

	tm.logger.Info("OAuth2 token stored", "expiry", token.Expiry)
	return token, nil
}

// LoadToken returns the stored token
func (tm *TokenManager) LoadToken() (*oauth2.Token, error) {
	return tm.store.load()
}

// SaveToken stores token, failing for inline tokens
func (tm *TokenManager) SaveToken(token *oauth2.Token) error {
	if err := tm.store.save(token); err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}
	return nil
}

// GetClient returns an HTTP client whose token refreshes on demand.
// Refreshed tokens are written back when the token lives in a file.
func (tm *TokenManager) GetClient(ctx context.Context) (*http.Client, error) {
	token, err := tm.LoadToken()
	if err != nil {
		return nil, fmt.Errorf("%w (run the google-auth example first)", err)
	}

	// bound token refresh requests
	ctx = context.WithValue(ctx, oauth2.HTTPClient, &http.Client{Timeout: refreshTimeout})

	src := &persistingSource{
		base: tm.config.TokenSource(ctx, token),
		last: token.AccessToken,
		tm:   tm,
	}

	// fail early on a revoked refresh token rather than on the first insert
	if _, err := src.Token(); err != nil {
		return nil, fmt.Errorf("failed to get valid token: %w", err)
	}

	return oauth2.NewClient(ctx, src), nil
}

// IsTokenValid reports whether a usable or refreshable token is stored
func (tm *TokenManager) IsTokenValid() bool {
	token, err := tm.LoadToken()
	if err != nil {
		return false
	}
	return token.Valid() || token.RefreshToken != ""
}

// GetTokenExpiry returns the expiry of the stored access token
func (tm *TokenManager) GetTokenExpiry() (time.Time, error) {
	token, err := tm.LoadToken()
	if err != nil {
		return time.Time{}, err
	}
	return token.Expiry, nil
}

// persistingSource saves every newly minted access token
type persistingSource struct {
	mu   sync.Mutex
	base oauth2.TokenSource
	last string
	tm   *TokenManager
}

func (s *persistingSource) Token() (*oauth2.Token, error) {
	token, err := s.base.Token()
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if token.AccessToken == s.last {
		return token, nil
	}
	s.last = token.AccessToken

	if err := s.tm.store.save(token); err != nil && !errors.Is(err, errInlineToken) {
		s.tm.logger.Warn("Failed to save refreshed token", "error", err)
	} else if err == nil {
		s.tm.logger.Info("Saved refreshed token", "expiry", token.Expiry)
	}
	return token, nil
}

type tokenStore interface {
	load() (*oauth2.Token, error)
	save(*oauth2.Token) error
}

// fileStore keeps the token in a JSON file readable only by the owner
type fileStore string

func (f fileStore) load() (*oauth2.Token, error) {
	data, err := os.ReadFile(string(f))
	if err != nil {
		return nil, fmt.Errorf("failed to read token file: %w", err)
	}
	return decodeToken(data)
}

func (f fileStore) save(token *oauth2.Token) error {
	data, err := json.MarshalIndent(token, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(string(f), data, 0o600)
}

// inlineStore holds a token resolved from a secret store
type inlineStore string

func (s inlineStore) load() (*oauth2.Token, error) {
	return decodeToken([]byte(s))
}

func (inlineStore) save(*oauth2.Token) error {
	return errInlineToken
}

func decodeToken(data []byte) (*oauth2.Token, error) {
	var token oauth2.Token
	if err := json.Unmarshal(data, &token); err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}
	return &token, nil
}

func isInline(s string) bool {
	return strings.HasPrefix(strings.TrimSpace(s), "{")
}

func jsonOrFile(value string) ([]byte, error) {
	if isInline(value) {
		return []byte(value), nil
	}
	return os.ReadFile(value)
}
