// Package api is a client for the remote catalog service's REST contract.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"tableflip.dev/colcon/pkg/catalog"
)

const maxBody = 8 << 20

// Client talks to the catalog service. Authentication is the job of the
// http.Client's transport (see the session package); Client only adds the JSON
// headers.
type Client struct {
	base *url.URL
	http *http.Client
	log  *zap.Logger
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient sets the http.Client used for every call.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithLogger sets the logger used for request tracing.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

// New creates a client rooted at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, errors.New("api: base url required")
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("api: parse base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("api: base url %q must be absolute", baseURL)
	}
	c := &Client{base: u, http: http.DefaultClient, log: zap.NewNop()}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the service root.
func (c *Client) BaseURL() string { return c.base.String() }

// LoginRequest is the body of /Auth/Login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// AuthData is the token pair issued by the auth endpoints.
type AuthData struct {
	ID               string `json:"id"`
	AccessToken      string `json:"accessToken"`
	ExpiresIn        int    `json:"expiresIn"`
	RefreshExpiresIn int    `json:"refreshExpiresIn"`
	RefreshToken     string `json:"refreshToken"`
	TokenType        string `json:"tokenType"`
}

type envelope[T any] struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
	Data    T      `json:"data"`
}

// Login exchanges credentials for a token pair.
func (c *Client) Login(ctx context.Context, req LoginRequest) (*AuthData, error) {
	var out envelope[*AuthData]
	if err := c.do(ctx, http.MethodPost, []string{"Auth", "Login"}, req, &out); err != nil {
		return nil, err
	}
	return authData(out)
}

// RefreshTokenLogin exchanges a refresh token for a new token pair.
func (c *Client) RefreshTokenLogin(ctx context.Context, refreshToken string) (*AuthData, error) {
	body := struct {
		RefreshToken string `json:"refreshToken"`
	}{RefreshToken: refreshToken}
	var out envelope[*AuthData]
	if err := c.do(ctx, http.MethodPost, []string{"Auth", "RefreshTokenLogin"}, body, &out); err != nil {
		return nil, err
	}
	return authData(out)
}

func authData(out envelope[*AuthData]) (*AuthData, error) {
	if out.Data == nil || out.Data.AccessToken == "" {
		msg := out.Message
		if msg == "" {
			msg = "no token issued"
		}
		return nil, &Error{Status: http.StatusUnauthorized, Message: msg, Path: "Auth"}
	}
	return out.Data, nil
}

// GetAll lists every collection.
func (c *Client) GetAll(ctx context.Context) ([]catalog.Collection, error) {
	var out envelope[[]catalog.Collection]
	if err := c.do(ctx, http.MethodGet, []string{"Collection", "GetAll"}, nil, &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

// GetFiltersForConstants returns the filter metadata offered for a collection.
func (c *Client) GetFiltersForConstants(ctx context.Context, collectionID int) (catalog.FilterSet, error) {
	var out envelope[catalog.FilterSet]
	path := []string{"Collection", strconv.Itoa(collectionID), "GetFiltersForConstants"}
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return catalog.FilterSet{}, err
	}
	return out.Data, nil
}

// GetProductsForConstants returns one filtered catalog page for a collection.
func (c *Client) GetProductsForConstants(ctx context.Context, collectionID int, q catalog.ProductQuery) (*catalog.ProductPage, error) {
	if q.AdditionalFilters == nil {
		q.AdditionalFilters = []catalog.AdditionalFilter{}
	}
	var out envelope[*catalog.ProductPage]
	path := []string{"Collection", strconv.Itoa(collectionID), "GetProductsForConstants"}
	if err := c.do(ctx, http.MethodPost, path, q, &out); err != nil {
		return nil, err
	}
	if out.Data == nil {
		return &catalog.ProductPage{Data: []catalog.Product{}}, nil
	}
	if out.Data.Data == nil {
		out.Data.Data = []catalog.Product{}
	}
	return out.Data, nil
}

func (c *Client) do(ctx context.Context, method string, path []string, in, out interface{}) error {
	u := c.base.JoinPath(path...)
	op := method + " " + u.Path

	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("api: encode %s: %w", op, err)
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return fmt.Errorf("api: build %s: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Debug("request failed", zap.String("op", op), zap.Error(err))
		if errors.Is(err, ErrUnauthorized) || errors.Is(err, context.Canceled) {
			return err
		}
		return &NetworkError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return &NetworkError{Op: op, Err: err}
	}
	c.log.Debug("request done",
		zap.String("op", op),
		zap.Int("status", resp.StatusCode),
		zap.Duration("took", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &Error{Status: resp.StatusCode, Message: serverMessage(data), Path: u.Path}
	}
	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("api: decode %s: %w", op, err)
	}
	return nil
}

func serverMessage(data []byte) string {
	var e struct {
		Message *string `json:"message"`
	}
	if err := json.Unmarshal(data, &e); err != nil || e.Message == nil {
		return ""
	}
	return strings.TrimSpace(*e.Message)
}
