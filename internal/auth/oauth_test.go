package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/cleberrangel/basecamp-dashboard/internal/metrics"
	"github.com/cleberrangel/basecamp-dashboard/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

// fakeLaunchpad records token requests and answers with a numbered token
type fakeLaunchpad struct {
	mu    sync.Mutex
	forms []url.Values
	fail  bool
}

func (f *fakeLaunchpad) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	_ = r.ParseForm()

	f.mu.Lock()
	f.forms = append(f.forms, r.PostForm)
	n := len(f.forms)
	fail := f.fail
	f.mu.Unlock()

	if fail {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"authorization_expired"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"access_token":  "access-" + string(rune('0'+n)),
		"refresh_token": "refresh-" + string(rune('0'+n)),
		"expires_in":    1209600,
	})
}

func (f *fakeLaunchpad) lastForm() url.Values {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.forms[len(f.forms)-1]
}

func newTestAuthenticator(t *testing.T, store TokenStore) (*Authenticator, *fakeLaunchpad, *metrics.Metrics) {
	t.Helper()
	lp := &fakeLaunchpad{}
	srv := httptest.NewServer(lp)
	t.Cleanup(srv.Close)

	m := metrics.New()
	a := NewAuthenticator(Config{
		ClientID:     "client-1",
		ClientSecret: "secret-1",
		RedirectURI:  "http://localhost:3000/auth/callback",
		AuthURL:      srv.URL + "/authorization/new",
		TokenURL:     srv.URL + "/authorization/token",
		Metrics:      m,
	}, store)
	t.Cleanup(a.Close)
	return a, lp, m
}

func stateFrom(t *testing.T, authURL string) string {
	t.Helper()
	u, err := url.Parse(authURL)
	require.NoError(t, err)
	return u.Query().Get("state")
}

func TestAuthCodeURL(t *testing.T) {
	a, _, _ := newTestAuthenticator(t, NewMemoryStore())

	u, err := url.Parse(a.AuthCodeURL(context.Background()))
	require.NoError(t, err)

	q := u.Query()
	assert.Equal(t, "/authorization/new", u.Path)
	assert.Equal(t, "client-1", q.Get("client_id"))
	assert.Equal(t, "web_server", q.Get("type"))
	assert.Equal(t, "http://localhost:3000/auth/callback", q.Get("redirect_uri"))
	assert.NotEmpty(t, q.Get("state"))
}

func TestExchangeStoresTokenAndConsumesState(t *testing.T) {
	store := NewMemoryStore()
	a, lp, m := newTestAuthenticator(t, store)
	ctx := context.Background()

	state := stateFrom(t, a.AuthCodeURL(ctx))

	tok, err := a.Exchange(ctx, "code-123", state)
	require.NoError(t, err)
	assert.Equal(t, "access-1", tok.AccessToken)

	form := lp.lastForm()
	assert.Equal(t, "web_server", form.Get("type"))
	assert.Equal(t, "authorization_code", form.Get("grant_type"))
	assert.Equal(t, "code-123", form.Get("code"))
	assert.Equal(t, "client-1", form.Get("client_id"))
	assert.Equal(t, "secret-1", form.Get("client_secret"))

	stored, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "refresh-1", stored.RefreshToken)

	has, err := a.HasToken(ctx)
	require.NoError(t, err)
	assert.True(t, has)

	// o mesmo state não pode ser reutilizado
	_, err = a.Exchange(ctx, "code-123", state)
	assert.ErrorIs(t, err, ErrInvalidState)

	snap := m.Snapshot()
	assert.Equal(t, int64(2), snap.OAuth.Exchanges)
	assert.Equal(t, int64(1), snap.OAuth.Errors)
}

func TestExchangeRejectsUnknownStateWithoutCallingLaunchpad(t *testing.T) {
	a, lp, _ := newTestAuthenticator(t, NewMemoryStore())

	_, err := a.Exchange(context.Background(), "code", "forged")
	assert.ErrorIs(t, err, ErrInvalidState)

	_, err = a.Exchange(context.Background(), "code", "")
	assert.ErrorIs(t, err, ErrInvalidState)
	assert.Empty(t, lp.forms)
}

func TestExchangeRequiresCode(t *testing.T) {
	a, _, _ := newTestAuthenticator(t, NewMemoryStore())
	state := stateFrom(t, a.AuthCodeURL(context.Background()))

	_, err := a.Exchange(context.Background(), " ", state)
	assert.ErrorIs(t, err, ErrMissingCode)
}

func TestTokenSourceWithoutToken(t *testing.T) {
	a, _, _ := newTestAuthenticator(t, NewMemoryStore())

	_, err := a.TokenSource().Token()
	assert.ErrorIs(t, err, model.ErrNoToken)
}

func TestTokenSourceRefreshesExpiredToken(t *testing.T) {
	store := NewMemoryStore()
	require.NoError(t, store.Save(context.Background(), &oauth2.Token{
		AccessToken:  "stale",
		RefreshToken: "refresh-0",
		Expiry:       time.Now().Add(-time.Hour),
	}))
	a, lp, m := newTestAuthenticator(t, store)

	tok, err := a.TokenSource().Token()
	require.NoError(t, err)
	assert.Equal(t, "access-1", tok.AccessToken)

	form := lp.lastForm()
	assert.Equal(t, "refresh", form.Get("type"))
	assert.Equal(t, "refresh_token", form.Get("grant_type"))
	assert.Equal(t, "refresh-0", form.Get("refresh_token"))

	stored, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "access-1", stored.AccessToken)

	// the cached token is reused while valid
	_, err = a.TokenSource().Token()
	require.NoError(t, err)
	assert.Len(t, lp.forms, 1)
	assert.Equal(t, int64(1), m.Snapshot().OAuth.Refreshes)
}

func TestTokenSourceRefreshFailureIsUnauthorized(t *testing.T) {
	store := NewMemoryStore()
	require.NoError(t, store.Save(context.Background(), &oauth2.Token{
		AccessToken:  "stale",
		RefreshToken: "revoked",
		Expiry:       time.Now().Add(-time.Hour),
	}))
	a, lp, _ := newTestAuthenticator(t, store)
	lp.fail = true

	_, err := a.TokenSource().Token()
	assert.ErrorIs(t, err, model.ErrUnauthorized)
}

func TestTokenSourceExpiredWithoutRefresh(t *testing.T) {
	store := NewMemoryStore()
	require.NoError(t, store.Save(context.Background(), &oauth2.Token{
		AccessToken: "stale",
		Expiry:      time.Now().Add(-time.Hour),
	}))
	a, _, _ := newTestAuthenticator(t, store)

	_, err := a.TokenSource().Token()
	assert.ErrorIs(t, err, model.ErrUnauthorized)
}
