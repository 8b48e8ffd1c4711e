// Package app wires configuration, durable storage, the session and the
// catalog client into one Service shared by the CLI commands and the
// interactive console.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"tableflip.dev/colcon/pkg/api"
	"tableflip.dev/colcon/pkg/catalog"
	"tableflip.dev/colcon/pkg/session"
	"tableflip.dev/colcon/pkg/store"
	"tableflip.dev/colcon/pkg/viewmodel"
)

// ErrNoAPI is returned when no catalog service URL is configured.
var ErrNoAPI = errors.New("app: api_url not configured (set COLCON_API_URL or api_url in .colcon.yaml)")

// Service provides the operations the console surfaces share.
type Service struct {
	Config      store.Config
	Persistence store.Persistence
	Session     *session.Manager
	Catalog     *api.Client
	Log         *zap.Logger
}

// Option customises Open.
type Option func(*options)

type options struct {
	transport http.RoundTripper
	log       *zap.Logger
}

// WithTransport sets the base HTTP transport, for tests.
func WithTransport(rt http.RoundTripper) Option {
	return func(o *options) { o.transport = rt }
}

// WithLogger sets the logger handed to every component.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.log = l }
}

// Open builds a Service. A missing api_url is not an error until a remote
// call is made.
func Open(cfg store.Config, opts ...Option) (*Service, error) {
	o := &options{log: zap.NewNop()}
	for _, opt := range opts {
		opt(o)
	}
	if o.log == nil {
		o.log = zap.NewNop()
	}

	if cfg == nil {
		var err error
		if cfg, err = store.LoadConfig(); err != nil {
			return nil, err
		}
	}
	p, err := store.Load(cfg, store.WithLogger(o.log.Named("store")))
	if err != nil {
		return nil, err
	}

	s := &Service{Config: cfg, Persistence: p, Log: o.log}

	base := strings.TrimSpace(cfg.APIURL())
	if base == "" {
		s.Session = session.NewManager(nil, p, session.WithLogger(o.log.Named("session")))
		return s, nil
	}

	transport := o.transport
	if transport == nil {
		transport = http.DefaultTransport
	}
	auth, err := api.New(base,
		api.WithHTTPClient(&http.Client{Transport: transport, Timeout: cfg.RequestTimeout()}),
		api.WithLogger(o.log.Named("api")))
	if err != nil {
		return nil, err
	}
	s.Session = session.NewManager(auth, p, session.WithLogger(o.log.Named("session")))
	s.Catalog, err = api.New(base,
		api.WithHTTPClient(s.Session.HTTPClient(transport, cfg.RequestTimeout())),
		api.WithLogger(o.log.Named("api")))
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Service) catalog() (*api.Client, error) {
	if s.Catalog == nil {
		return nil, ErrNoAPI
	}
	return s.Catalog, nil
}

// Check drops the session when err is a 401 from the service, so the next
// call asks for a login instead of resending a rejected token.
func (s *Service) Check(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, api.ErrUnauthorized) && !errors.Is(err, session.ErrLoginRequired) {
		s.Log.Info("service rejected the access token")
		s.Session.Invalidate()
	}
	return err
}

// Login exchanges credentials for a token pair.
func (s *Service) Login(ctx context.Context, creds session.Credentials) (*session.Token, error) {
	if s.Catalog == nil {
		return nil, ErrNoAPI
	}
	return s.Session.Login(ctx, creds)
}

// Logout forgets the token pair.
func (s *Service) Logout() error {
	return s.Session.Logout()
}

// Collections lists every collection.
func (s *Service) Collections(ctx context.Context) ([]catalog.Collection, error) {
	c, err := s.catalog()
	if err != nil {
		return nil, err
	}
	cols, err := c.GetAll(ctx)
	return cols, s.Check(err)
}

// Overview is a collection together with its filter metadata and the first
// catalog page.
type Overview struct {
	Collection catalog.Collection   `json:"collection" yaml:"collection"`
	Filters    catalog.FilterSet    `json:"filters" yaml:"filters"`
	Page       *catalog.ProductPage `json:"page" yaml:"page"`
}

// Overview fetches the collection list, the collection's filter metadata and
// its first catalog page concurrently.
func (s *Service) Overview(ctx context.Context, id int) (*Overview, error) {
	c, err := s.catalog()
	if err != nil {
		return nil, err
	}
	out := &Overview{}
	var cols []catalog.Collection

	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		var err error
		cols, err = c.GetAll(egCtx)
		return err
	})
	eg.Go(func() error {
		var err error
		out.Filters, err = c.GetFiltersForConstants(egCtx, id)
		return err
	})
	eg.Go(func() error {
		var err error
		out.Page, err = c.GetProductsForConstants(egCtx, id, catalog.FirstPage(s.Config.CatalogPageSize(), nil))
		return err
	})
	if err := eg.Wait(); err != nil {
		return nil, s.Check(err)
	}

	col, ok := catalog.Find(cols, id)
	if !ok {
		return nil, fmt.Errorf("app: collection %d not found", id)
	}
	out.Collection = col
	return out, nil
}

// ViewModel returns the persisted editing session, or an empty one, wired to
// write back to storage on every change.
func (s *Service) ViewModel() (*viewmodel.Store, error) {
	opts := []viewmodel.Option{
		viewmodel.WithPersister(s.Persistence),
		viewmodel.WithPageSize(s.Config.ConstantsPageSize()),
		viewmodel.WithLogger(s.Log.Named("viewmodel")),
	}
	rec, err := s.Persistence.LoadViewModel()
	switch {
	case errors.Is(err, store.ErrNotFound):
		return viewmodel.New(opts...), nil
	case err != nil:
		return nil, err
	}
	return viewmodel.Rehydrate(rec, opts...), nil
}

// RemoveConstant removes key from the persisted working set.
func (s *Service) RemoveConstant(key string) (*viewmodel.Store, error) {
	vm, err := s.ViewModel()
	if err != nil {
		return nil, err
	}
	if !vm.Unpin(key) {
		return nil, fmt.Errorf("app: %q is not in the working set", key)
	}
	if err := vm.Err(); err != nil {
		return nil, err
	}
	return vm, nil
}

// Watch subscribes to changes made by other console processes.
func (s *Service) Watch(ctx context.Context) (<-chan store.Event, error) {
	return s.Persistence.Watch(ctx)
}
