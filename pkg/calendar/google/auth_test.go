package google

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

const testCredentials = `{
  "installed": {
    "client_id": "client-123.apps.googleusercontent.com",
    "client_secret": "shh",
    "redirect_uris": ["http://localhost"],
    "auth_uri": "https://accounts.google.com/o/oauth2/auth",
    "token_uri": "https://oauth2.googleapis.com/token"
  }
}`

func TestNewTokenManager_FromFiles(t *testing.T) {
	dir := t.TempDir()
	credsPath := filepath.Join(dir, "credentials.json")
	tokenPath := filepath.Join(dir, "token.json")
	require.NoError(t, os.WriteFile(credsPath, []byte(testCredentials), 0o600))

	tm, err := NewTokenManager(credsPath, tokenPath, nil)
	require.NoError(t, err)

	assert.Equal(t, "client-123.apps.googleusercontent.com", tm.config.ClientID)
	assert.Equal(t, "http://localhost", tm.config.RedirectURL)
	assert.Contains(t, tm.config.Scopes, CalendarEventsScope)
	assert.False(t, tm.IsTokenValid())

	token := &oauth2.Token{
		AccessToken:  "access",
		RefreshToken: "refresh",
		Expiry:       time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, tm.SaveToken(token))

	info, err := os.Stat(tokenPath)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	assert.True(t, tm.IsTokenValid())
	expiry, err := tm.GetTokenExpiry()
	require.NoError(t, err)
	assert.True(t, expiry.Equal(token.Expiry))
}

func TestNewTokenManager_Inline(t *testing.T) {
	tm, err := NewTokenManager(testCredentials, `{"access_token":"a","refresh_token":"r"}`, nil)
	require.NoError(t, err)

	token, err := tm.LoadToken()
	require.NoError(t, err)
	assert.Equal(t, "r", token.RefreshToken)
	assert.True(t, tm.IsTokenValid())

	assert.Error(t, tm.SaveToken(token))
}

func TestNewTokenManager_Errors(t *testing.T) {
	_, err := NewTokenManager(filepath.Join(t.TempDir(), "missing.json"), "token.json", nil)
	assert.Error(t, err)

	_, err = NewTokenManager(`{"other": {}}`, "token.json", nil)
	assert.ErrorContains(t, err, "no valid OAuth2 configuration in credentials")
}

func TestGetAuthURL(t *testing.T) {
	tm, err := NewTokenManager(testCredentials, "token.json", nil)
	require.NoError(t, err)

	url := tm.GetAuthURL()
	assert.True(t, strings.HasPrefix(url, "https://accounts.google.com/o/oauth2/auth?"))
	assert.Contains(t, url, "access_type=offline")
	assert.Contains(t, url, "prompt=consent")
}

func TestNewTokenManager_WebClient(t *testing.T) {
	creds := `{"web": {"client_id": "web-1", "client_secret": "s",
		"redirect_uris": ["https://example.com/callback"],
		"auth_uri": "https://accounts.google.com/o/oauth2/auth",
		"token_uri": "https://oauth2.googleapis.com/token"}}`

	tm, err := NewTokenManager(creds, "token.json", nil)
	require.NoError(t, err)
	assert.Equal(t, "web-1", tm.config.ClientID)
	assert.Equal(t, "https://example.com/callback", tm.config.RedirectURL)
	assert.Equal(t, "https://oauth2.googleapis.com/token", tm.config.Endpoint.TokenURL)
}

func TestPersistingSource_SavesRefreshedToken(t *testing.T) {
	tokenPath := filepath.Join(t.TempDir(), "token.json")
	tm, err := NewTokenManager(testCredentials, tokenPath, nil)
	require.NoError(t, err)

	fresh := &oauth2.Token{AccessToken: "new", Expiry: time.Now().Add(time.Hour)}
	src := &persistingSource{
		base: oauth2.StaticTokenSource(fresh),
		last: "old",
		tm:   tm,
	}

	got, err := src.Token()
	require.NoError(t, err)
	assert.Equal(t, "new", got.AccessToken)

	stored, err := tm.LoadToken()
	require.NoError(t, err)
	assert.Equal(t, "new", stored.AccessToken)
}
