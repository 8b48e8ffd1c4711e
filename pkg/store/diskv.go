package store

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/peterbourgon/diskv/v3"
	"go.uber.org/zap"

	"tableflip.dev/colcon/pkg/session"
	"tableflip.dev/colcon/pkg/viewmodel"
)

// ErrNotFound is returned when a record has never been written.
var ErrNotFound = errors.New("store: not found")

const (
	viewModelNamespace = "viewmodel"
	sessionNamespace   = "session"
	tokenName          = "token"
	tempDirName        = ".tmp"
)

var (
	viewModelKey = viewModelNamespace + ":" + viewmodel.StoreName
	tokenKey     = sessionNamespace + ":" + tokenName
)

// Persistence is the durable state shared by every console process on the
// machine: the view-model record and the session token pair.
type Persistence interface {
	BasePath() string
	LoadViewModel() (viewmodel.Record, error)
	SaveViewModel(rec viewmodel.Record) error
	ClearViewModel() error
	LoadToken() (*session.Token, error)
	SaveToken(t *session.Token) error
	ClearToken() error
	Watch(ctx context.Context) (<-chan Event, error)
}

// Option customises the persistence returned by Load.
type Option func(*persistence)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(p *persistence) {
		if l != nil {
			p.log = l
		}
	}
}

// Load creates a Persistence backed by diskv using the provided config.
func Load(cfg Config, opts ...Option) (Persistence, error) {
	if cfg == nil {
		var err error
		cfg, err = LoadConfig()
		if err != nil {
			return nil, err
		}
	}

	basePath := cfg.BasePath()
	if basePath == "" {
		return nil, errors.New("store: base path unknown")
	}
	if err := os.MkdirAll(basePath, 0o700); err != nil {
		return nil, fmt.Errorf("store: ensure base path: %w", err)
	}
	p := &persistence{
		// No cache: another process may rewrite a record at any time.
		d: diskv.New(diskv.Options{
			BasePath:          basePath,
			TempDir:           filepath.Join(basePath, tempDirName),
			AdvancedTransform: keyToPathTransform,
			InverseTransform:  pathToKeyTransform,
			FilePerm:          0o600,
			PathPerm:          0o700,
		}),
		basePath: basePath,
		log:      zap.NewNop(),
		written:  make(map[string][32]byte),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

type persistence struct {
	d        *diskv.Diskv
	basePath string
	log      *zap.Logger

	// written remembers the digest of our own last write per key so the
	// watcher can tell it apart from a write by another process.
	mu      sync.Mutex
	written map[string][32]byte
}

func (p *persistence) BasePath() string { return p.basePath }

func (p *persistence) LoadViewModel() (viewmodel.Record, error) {
	var rec viewmodel.Record
	if err := p.readJSON(viewModelKey, &rec); err != nil {
		return viewmodel.Record{}, err
	}
	return rec, nil
}

func (p *persistence) SaveViewModel(rec viewmodel.Record) error {
	return p.writeJSON(viewModelKey, rec)
}

func (p *persistence) ClearViewModel() error {
	return p.erase(viewModelKey)
}

// LoadToken returns (nil, nil) when no session is stored.
func (p *persistence) LoadToken() (*session.Token, error) {
	var t session.Token
	if err := p.readJSON(tokenKey, &t); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &t, nil
}

func (p *persistence) SaveToken(t *session.Token) error {
	if t == nil {
		return p.ClearToken()
	}
	return p.writeJSON(tokenKey, t)
}

func (p *persistence) ClearToken() error {
	return p.erase(tokenKey)
}

func (p *persistence) readJSON(key string, into any) error {
	val, err := p.d.Read(key)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ErrNotFound
		}
		return fmt.Errorf("store: read %s: %w", key, err)
	}
	if err := json.Unmarshal(val, into); err != nil {
		return fmt.Errorf("store: decode %s: %w", key, err)
	}
	return nil
}

func (p *persistence) writeJSON(key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("store: encode %s: %w", key, err)
	}
	p.remember(key, data)
	if err := p.d.Write(key, data); err != nil {
		return fmt.Errorf("store: write %s: %w", key, err)
	}
	p.log.Debug("record written", zap.String("key", key), zap.Int("bytes", len(data)))
	return nil
}

func (p *persistence) erase(key string) error {
	p.remember(key, nil)
	if err := p.d.Erase(key); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("store: erase %s: %w", key, err)
	}
	return nil
}

func (p *persistence) remember(key string, data []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.written[key] = digest(data)
}

// foreign reports whether the current content of key differs from what this
// process last wrote.
func (p *persistence) foreign(key string) bool {
	data, err := p.d.Read(key)
	if err != nil {
		data = nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	mine, ok := p.written[key]
	if !ok {
		return true
	}
	return mine != digest(data)
}

func digest(data []byte) [32]byte {
	if len(data) == 0 {
		return [32]byte{}
	}
	return sha256.Sum256(data)
}

// keyToPathTransform maps `namespace:name` to <base>/namespace/name.
func keyToPathTransform(s string) *diskv.PathKey {
	parts := strings.Split(s, ":")
	return &diskv.PathKey{
		Path:     parts[:len(parts)-1],
		FileName: parts[len(parts)-1],
	}
}

func pathToKeyTransform(pathKey *diskv.PathKey) string {
	if len(pathKey.Path) == 0 {
		return pathKey.FileName
	}
	return fmt.Sprintf("%s:%s", strings.Join(pathKey.Path, ":"), pathKey.FileName)
}
