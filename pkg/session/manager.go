package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"tableflip.dev/colcon/pkg/api"
)

var validate = validator.New()

// Authenticator is the part of the catalog API that issues tokens.
type Authenticator interface {
	Login(ctx context.Context, req api.LoginRequest) (*api.AuthData, error)
	RefreshTokenLogin(ctx context.Context, refreshToken string) (*api.AuthData, error)
}

// TokenStore persists the token pair. LoadToken returns (nil, nil) when no
// token has been stored.
type TokenStore interface {
	LoadToken() (*Token, error)
	SaveToken(t *Token) error
	ClearToken() error
}

// Credentials are what the operator types at the login prompt.
type Credentials struct {
	Username string `validate:"required,max=256"`
	Password string `validate:"required"`
}

// Manager hands out valid access tokens, refreshing them when they expire.
type Manager struct {
	auth  Authenticator
	store TokenStore
	now   func() time.Time
	log   *zap.Logger

	mu     sync.Mutex
	token  *Token
	loaded bool
}

// Option customises a Manager.
type Option func(*Manager)

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.log = l
		}
	}
}

// NewManager creates a Manager. store may be nil for an in-memory session.
func NewManager(auth Authenticator, store TokenStore, opts ...Option) *Manager {
	m := &Manager{auth: auth, store: store, now: time.Now, log: zap.NewNop()}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Login validates the credentials, exchanges them for a token pair and
// persists it.
func (m *Manager) Login(ctx context.Context, creds Credentials) (*Token, error) {
	creds.Username = strings.TrimSpace(creds.Username)
	if err := validate.Struct(creds); err != nil {
		return nil, fmt.Errorf("session: invalid credentials: %w", err)
	}
	data, err := m.auth.Login(ctx, api.LoginRequest{Username: creds.Username, Password: creds.Password})
	if err != nil {
		m.log.Info("login failed", zap.String("username", creds.Username), zap.Error(err))
		return nil, err
	}
	t := newToken(data, creds.Username, m.now())

	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = t
	m.loaded = true
	if err := m.saveLocked(); err != nil {
		return nil, err
	}
	m.log.Info("logged in", zap.String("username", creds.Username))
	return t, nil
}

// Logout forgets the token pair.
func (m *Manager) Logout() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = nil
	m.loaded = true
	if m.store == nil {
		return nil
	}
	if err := m.store.ClearToken(); err != nil {
		return fmt.Errorf("session: clear token: %w", err)
	}
	return nil
}

// Current returns the stored token without checking or refreshing it.
func (m *Manager) Current() (*Token, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.loadLocked(); err != nil {
		return nil, err
	}
	if m.token == nil {
		return nil, nil
	}
	cp := *m.token
	return &cp, nil
}

// Token returns a token that is valid right now, exchanging the refresh token
// when the access token expired. ErrLoginRequired means the operator has to
// log in again.
func (m *Manager) Token(ctx context.Context) (*Token, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.loadLocked(); err != nil {
		return nil, err
	}
	now := m.now()
	if m.token.Valid(now) {
		cp := *m.token
		return &cp, nil
	}
	if !m.token.Refreshable(now) {
		return nil, ErrLoginRequired
	}

	m.log.Debug("access token expired, refreshing")
	data, err := m.auth.RefreshTokenLogin(ctx, m.token.RefreshToken)
	if err != nil {
		if errors.Is(err, api.ErrUnauthorized) {
			m.token = nil
			if err := m.saveLocked(); err != nil {
				m.log.Warn("clear rejected token", zap.Error(err))
			}
			return nil, ErrLoginRequired
		}
		return nil, fmt.Errorf("session: refresh token: %w", err)
	}
	next := newToken(data, m.token.Username, m.now())
	if next.RefreshToken == "" {
		next.RefreshToken = m.token.RefreshToken
		next.RefreshExpiry = m.token.RefreshExpiry
	}
	m.token = next
	if err := m.saveLocked(); err != nil {
		return nil, err
	}
	cp := *m.token
	return &cp, nil
}

// Invalidate drops the access token after the service rejected it. The refresh
// token is dropped too: a 401 on a token we believed valid means the pair is
// no longer trusted.
func (m *Manager) Invalidate() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.token == nil {
		return
	}
	m.token = nil
	if err := m.saveLocked(); err != nil {
		m.log.Warn("invalidate token", zap.Error(err))
	}
}

// Reload forgets the cached token so the next call reads the TokenStore
// again, picking up a login or logout made by another process.
func (m *Manager) Reload() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = nil
	m.loaded = false
}

// TokenSource adapts the manager to oauth2. ctx is used for refresh calls.
func (m *Manager) TokenSource(ctx context.Context) oauth2.TokenSource {
	return &tokenSource{ctx: ctx, m: m}
}

// HTTPClient returns a client whose transport attaches the bearer token to
// every request. A refresh runs under the context of the request that
// needed it.
func (m *Manager) HTTPClient(base http.RoundTripper, timeout time.Duration) *http.Client {
	if base == nil {
		base = http.DefaultTransport
	}
	return &http.Client{
		Transport: &bearerTransport{m: m, base: base},
		Timeout:   timeout,
	}
}

type bearerTransport struct {
	m    *Manager
	base http.RoundTripper
}

func (t *bearerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	rt := &oauth2.Transport{Source: t.m.TokenSource(req.Context()), Base: t.base}
	return rt.RoundTrip(req)
}

func (m *Manager) loadLocked() error {
	if m.loaded || m.store == nil {
		m.loaded = true
		return nil
	}
	t, err := m.store.LoadToken()
	if err != nil {
		return fmt.Errorf("session: load token: %w", err)
	}
	m.token = t
	m.loaded = true
	return nil
}

func (m *Manager) saveLocked() error {
	if m.store == nil {
		return nil
	}
	if m.token == nil {
		if err := m.store.ClearToken(); err != nil {
			return fmt.Errorf("session: clear token: %w", err)
		}
		return nil
	}
	if err := m.store.SaveToken(m.token); err != nil {
		return fmt.Errorf("session: save token: %w", err)
	}
	return nil
}

type tokenSource struct {
	ctx context.Context
	m   *Manager
}

func (s *tokenSource) Token() (*oauth2.Token, error) {
	t, err := s.m.Token(s.ctx)
	if err != nil {
		return nil, err
	}
	return t.OAuth2(), nil
}
