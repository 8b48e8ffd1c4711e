package session

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tableflip.dev/colcon/pkg/api"
)

type fakeAuth struct {
	login      *api.AuthData
	loginErr   error
	refresh    *api.AuthData
	refreshErr error

	logins     int
	refreshes  int
	lastRT     string
	refreshCtx context.Context
}

func (f *fakeAuth) Login(_ context.Context, _ api.LoginRequest) (*api.AuthData, error) {
	f.logins++
	return f.login, f.loginErr
}

func (f *fakeAuth) RefreshTokenLogin(ctx context.Context, rt string) (*api.AuthData, error) {
	f.refreshes++
	f.refreshCtx = ctx
	f.lastRT = rt
	return f.refresh, f.refreshErr
}

type memStore struct {
	token   *Token
	saves   int
	cleared int
}

func (m *memStore) LoadToken() (*Token, error) {
	if m.token == nil {
		return nil, nil
	}
	cp := *m.token
	return &cp, nil
}

func (m *memStore) SaveToken(t *Token) error {
	cp := *t
	m.token = &cp
	m.saves++
	return nil
}

func (m *memStore) ClearToken() error {
	m.token = nil
	m.cleared++
	return nil
}

type clock struct{ now time.Time }

func (c *clock) Now() time.Time { return c.now }

func TestLoginPersistsToken(t *testing.T) {
	auth := &fakeAuth{login: &api.AuthData{AccessToken: "at", RefreshToken: "rt", ExpiresIn: 300, RefreshExpiresIn: 3600}}
	store := &memStore{}
	clk := &clock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
	m := NewManager(auth, store, WithClock(clk.Now))

	tok, err := m.Login(context.Background(), Credentials{Username: " ops@example.com ", Password: "pw"})
	require.NoError(t, err)
	assert.Equal(t, "ops@example.com", tok.Username)
	assert.Equal(t, clk.now.Add(5*time.Minute), tok.Expiry)
	assert.Equal(t, clk.now.Add(time.Hour), tok.RefreshExpiry)
	require.NotNil(t, store.token)
	assert.Equal(t, "at", store.token.AccessToken)
}

func TestLoginRejectsEmptyCredentials(t *testing.T) {
	auth := &fakeAuth{}
	m := NewManager(auth, &memStore{})
	_, err := m.Login(context.Background(), Credentials{Username: "  ", Password: "pw"})
	require.Error(t, err)
	_, err = m.Login(context.Background(), Credentials{Username: "u"})
	require.Error(t, err)
	assert.Zero(t, auth.logins)
}

func TestTokenWithoutSessionRequiresLogin(t *testing.T) {
	m := NewManager(&fakeAuth{}, &memStore{})
	_, err := m.Token(context.Background())
	require.ErrorIs(t, err, ErrLoginRequired)
	assert.True(t, errors.Is(err, api.ErrUnauthorized))
}

func TestTokenRefreshesExpiredAccessToken(t *testing.T) {
	clk := &clock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
	store := &memStore{token: &Token{
		AccessToken:  "old",
		RefreshToken: "rt",
		Expiry:       clk.now.Add(10 * time.Second),
		Username:     "ops",
	}}
	auth := &fakeAuth{refresh: &api.AuthData{AccessToken: "new", ExpiresIn: 600}}
	m := NewManager(auth, store, WithClock(clk.Now))

	tok, err := m.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "new", tok.AccessToken)
	assert.Equal(t, "rt", tok.RefreshToken, "refresh token is kept when the service does not rotate it")
	assert.Equal(t, "ops", tok.Username)
	assert.Equal(t, "rt", auth.lastRT)
	assert.Equal(t, "new", store.token.AccessToken)

	_, err = m.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, auth.refreshes, "fresh token is reused")
}

func TestTokenRefreshRejectedClearsSession(t *testing.T) {
	clk := &clock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
	store := &memStore{token: &Token{AccessToken: "old", RefreshToken: "rt", Expiry: clk.now.Add(-time.Minute)}}
	auth := &fakeAuth{refreshErr: &api.Error{Status: http.StatusUnauthorized}}
	m := NewManager(auth, store, WithClock(clk.Now))

	_, err := m.Token(context.Background())
	require.ErrorIs(t, err, ErrLoginRequired)
	assert.Nil(t, store.token)
}

func TestTokenRefreshNetworkFailureKeepsSession(t *testing.T) {
	clk := &clock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
	store := &memStore{token: &Token{AccessToken: "old", RefreshToken: "rt", Expiry: clk.now.Add(-time.Minute)}}
	auth := &fakeAuth{refreshErr: &api.NetworkError{Op: "POST", Err: io.ErrUnexpectedEOF}}
	m := NewManager(auth, store, WithClock(clk.Now))

	_, err := m.Token(context.Background())
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrLoginRequired))
	assert.NotNil(t, store.token)
}

func TestExpiredRefreshTokenRequiresLogin(t *testing.T) {
	clk := &clock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
	store := &memStore{token: &Token{
		AccessToken:   "old",
		RefreshToken:  "rt",
		Expiry:        clk.now.Add(-time.Hour),
		RefreshExpiry: clk.now.Add(-time.Minute),
	}}
	auth := &fakeAuth{}
	m := NewManager(auth, store, WithClock(clk.Now))
	_, err := m.Token(context.Background())
	require.ErrorIs(t, err, ErrLoginRequired)
	assert.Zero(t, auth.refreshes)
}

func TestLogoutAndInvalidate(t *testing.T) {
	store := &memStore{token: &Token{AccessToken: "at"}}
	m := NewManager(&fakeAuth{}, store)

	cur, err := m.Current()
	require.NoError(t, err)
	require.NotNil(t, cur)

	m.Invalidate()
	assert.Nil(t, store.token)
	cur, err = m.Current()
	require.NoError(t, err)
	assert.Nil(t, cur)

	require.NoError(t, m.Logout())
	assert.Equal(t, 2, store.cleared)
}

func TestHTTPClientAttachesBearerHeader(t *testing.T) {
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("Authorization")
		_, _ = io.WriteString(w, `{"status":200,"data":[]}`)
	}))
	defer srv.Close()

	store := &memStore{token: &Token{AccessToken: "at", TokenType: "jwt"}}
	m := NewManager(&fakeAuth{}, store)
	c, err := api.New(srv.URL, api.WithHTTPClient(m.HTTPClient(nil, 0)))
	require.NoError(t, err)

	_, err = c.GetAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Bearer at", got)
}

func TestHTTPClientWithoutTokenFailsAsUnauthorized(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	m := NewManager(&fakeAuth{}, &memStore{})
	c, err := api.New(srv.URL, api.WithHTTPClient(m.HTTPClient(nil, 0)))
	require.NoError(t, err)

	_, err = c.GetAll(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, api.ErrUnauthorized))
	assert.False(t, called, "request must not leave without a token")
}

type requestKey struct{}

func TestHTTPClientRefreshesUnderRequestContext(t *testing.T) {
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("Authorization")
		_, _ = io.WriteString(w, `{"status":200,"data":[]}`)
	}))
	defer srv.Close()

	clk := &clock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
	store := &memStore{token: &Token{
		AccessToken:   "old",
		RefreshToken:  "rt",
		Expiry:        clk.now.Add(-time.Minute),
		RefreshExpiry: clk.now.Add(time.Hour),
	}}
	auth := &fakeAuth{refresh: &api.AuthData{AccessToken: "fresh", RefreshToken: "rt2", ExpiresIn: 300}}
	m := NewManager(auth, store, WithClock(clk.Now))
	c, err := api.New(srv.URL, api.WithHTTPClient(m.HTTPClient(nil, 0)))
	require.NoError(t, err)

	ctx := context.WithValue(context.Background(), requestKey{}, "list")
	_, err = c.GetAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Bearer fresh", got)
	require.Equal(t, 1, auth.refreshes)
	require.NotNil(t, auth.refreshCtx)
	assert.Equal(t, "list", auth.refreshCtx.Value(requestKey{}))
}

func TestHTTPClientCancelledRequestSkipsRefresh(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	clk := &clock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
	store := &memStore{token: &Token{
		AccessToken:   "old",
		RefreshToken:  "rt",
		Expiry:        clk.now.Add(-time.Minute),
		RefreshExpiry: clk.now.Add(time.Hour),
	}}
	auth := &fakeAuth{refreshErr: context.Canceled}
	m := NewManager(auth, store, WithClock(clk.Now))
	c, err := api.New(srv.URL, api.WithHTTPClient(m.HTTPClient(nil, 0)))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = c.GetAll(ctx)
	require.Error(t, err)
	assert.False(t, called, "request must not leave after a failed refresh")
	assert.Equal(t, "rt", store.token.RefreshToken, "a cancelled refresh must keep the stored pair")
}

func TestReloadPicksUpForeignLogin(t *testing.T) {
	store := &memStore{}
	m := NewManager(&fakeAuth{}, store)

	_, err := m.Token(context.Background())
	require.ErrorIs(t, err, ErrLoginRequired)

	store.token = &Token{AccessToken: "other", RefreshToken: "rt"}
	_, err = m.Token(context.Background())
	require.ErrorIs(t, err, ErrLoginRequired, "cached empty session should be used until Reload")

	m.Reload()
	tok, err := m.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "other", tok.AccessToken)
}
