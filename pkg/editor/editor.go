// Package editor is the collection editor state machine. It owns no I/O: it
// hands out tagged requests, the caller runs them, and results come back
// through ApplyCatalog and ApplyCollections, where late results from an
// earlier session are dropped.
package editor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"tableflip.dev/colcon/pkg/api"
	"tableflip.dev/colcon/pkg/catalog"
	"tableflip.dev/colcon/pkg/filter"
	"tableflip.dev/colcon/pkg/viewmodel"
)

var validate = validator.New()

// DefaultCatalogPageSize is the number of catalog products fetched per query.
const DefaultCatalogPageSize = 36

// State of the editor.
type State int

const (
	StateLoading State = iota
	StateReady
	StateFiltering
	StateError
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateFiltering:
		return "filtering"
	case StateError:
		return "error"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Editor drives one collection editing session over a view-model store.
// It is not safe for concurrent use; call it from the UI loop only.
type Editor struct {
	store *viewmodel.Store
	log   *zap.Logger
	now   func() time.Time
	size  int

	id  int
	gen uuid.UUID
	seq uint64

	state         State
	message       string
	forbidden     bool
	loginRequired bool
	selected      string

	collection *catalog.Collection
	options    []catalog.Filter
	preselect  []catalog.Filter
	criteria   filter.Values
	pending    filter.Values
}

// Option customises an Editor.
type Option func(*Editor)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *Editor) {
		if l != nil {
			e.log = l
		}
	}
}

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(e *Editor) { e.now = now }
}

// WithCatalogPageSize sets the catalog query page size.
func WithCatalogPageSize(n int) Option {
	return func(e *Editor) {
		if n > 0 {
			e.size = n
		}
	}
}

// New returns an editor over store. Call Mount before anything else.
func New(store *viewmodel.Store, opts ...Option) *Editor {
	e := &Editor{
		store: store,
		log:   zap.NewNop(),
		now:   time.Now,
		size:  DefaultCatalogPageSize,
		state: StateLoading,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Mount opens collection id with a fresh store, whatever was bound before.
// Use Reload to re-fetch while keeping the working set. Both returned
// requests are independent and may complete in any order.
func (e *Editor) Mount(id int) (CatalogRequest, CollectionsRequest) {
	e.log.Info("mounting collection, resetting working set",
		zap.Int("from", e.store.CollectionID()), zap.Int("to", id))
	e.store.Reset()
	e.store.Bind(id)
	e.id = id
	e.collection = nil
	e.options = nil
	e.preselect = nil
	return e.begin()
}

// Reload re-issues the mount requests for the current collection without
// touching the working set.
func (e *Editor) Reload() (CatalogRequest, CollectionsRequest) {
	return e.begin()
}

func (e *Editor) begin() (CatalogRequest, CollectionsRequest) {
	e.gen = uuid.New()
	e.seq = 1
	e.state = StateLoading
	e.message = ""
	e.forbidden = false
	e.loginRequired = false
	e.selected = ""
	e.criteria = filter.Values{}
	e.pending = filter.Values{}

	tag := e.tag()
	e.log.Debug("mount", zap.Stringer("tag", tag))
	return CatalogRequest{Tag: tag, Query: catalog.FirstPage(e.size, nil)},
		CollectionsRequest{Tag: Tag{CollectionID: e.id, Generation: e.gen}}
}

func (e *Editor) tag() Tag {
	return Tag{CollectionID: e.id, Generation: e.gen, Seq: e.seq}
}

func (e *Editor) current(t Tag) bool {
	return t.CollectionID == e.id && t.Generation == e.gen
}

// ApplyCatalog applies a catalog result. It returns false when the result
// belongs to an earlier mount or a superseded query and was dropped.
func (e *Editor) ApplyCatalog(res CatalogResult) bool {
	if !e.current(res.Tag) || res.Tag.Seq != e.seq {
		e.log.Debug("dropping stale catalog result", zap.Stringer("tag", res.Tag), zap.Stringer("current", e.tag()))
		return false
	}
	if res.Err != nil {
		e.fail(res.Err, res.Filtering)
		return true
	}
	var products []catalog.Product
	if res.Page != nil {
		products = res.Page.Data
	}
	e.store.SetCatalogPage(products)
	if res.Filtering {
		e.criteria = e.pending
	}
	e.state = StateReady
	e.message = ""
	e.log.Debug("catalog page applied", zap.Int("products", len(products)), zap.Bool("filtering", res.Filtering))
	return true
}

// ApplyCollections seeds the filter options from the collection's stored
// filters. Failures other than 401 are only logged.
func (e *Editor) ApplyCollections(res CollectionsResult) bool {
	if !e.current(res.Tag) {
		e.log.Debug("dropping stale collections result", zap.Stringer("tag", res.Tag))
		return false
	}
	if res.Err != nil {
		if errors.Is(res.Err, api.ErrUnauthorized) {
			e.loginRequired = true
		}
		e.log.Warn("load collection filters", zap.Int("collection", e.id), zap.Error(res.Err))
		return true
	}
	c, ok := catalog.Find(res.Collections, e.id)
	if !ok {
		e.log.Warn("collection missing from list", zap.Int("collection", e.id))
		return true
	}
	e.collection = &c
	e.options = catalog.AsSelection(c.Filters.Filters)
	e.preselect = catalog.AsSelection(c.Filters.Filters)
	return true
}

func (e *Editor) fail(err error, filtering bool) {
	switch {
	case errors.Is(err, context.Canceled):
		e.log.Debug("catalog request cancelled")
		if filtering {
			e.state = StateReady
		}
	case errors.Is(err, api.ErrUnauthorized):
		e.log.Info("catalog request unauthorized, login required", zap.Int("collection", e.id))
		e.loginRequired = true
		if filtering {
			e.state = StateReady
		}
	case errors.Is(err, api.ErrForbidden):
		e.log.Warn("collection forbidden", zap.Int("collection", e.id), zap.Error(err))
		e.forbidden = true
		e.state = StateError
		e.message = api.ForbiddenMessage()
	case filtering:
		e.log.Warn("filter query failed", zap.Int("collection", e.id), zap.Error(err))
		e.state = StateReady
		e.message = api.Describe(err)
	default:
		e.log.Error("load collection", zap.Int("collection", e.id), zap.Error(err))
		e.state = StateError
		e.message = api.Describe(err)
	}
}

// BeginFilter starts a catalog query for page 1 with the given criteria.
// The working set is not touched.
func (e *Editor) BeginFilter(values filter.Values) (CatalogRequest, error) {
	if e.forbidden {
		return CatalogRequest{}, ErrHalted
	}
	if err := values.Validate(); err != nil {
		return CatalogRequest{}, err
	}
	e.seq++
	e.state = StateFiltering
	e.message = ""
	e.pending = values
	tag := e.tag()
	e.log.Debug("filter", zap.Stringer("tag", tag), zap.Int("criteria", len(values.Criteria())))
	return CatalogRequest{Tag: tag, Query: catalog.FirstPage(e.size, values.Criteria()), Filtering: true}, nil
}

// DragPayload encodes product for a pick-up gesture. Products already in the
// working set cannot be picked up.
func (e *Editor) DragPayload(p catalog.Product) ([]byte, error) {
	if e.store.Has(p.Key()) {
		return nil, ErrDuplicate
	}
	return json.Marshal(p)
}

// CanDrag reports whether product can be picked up.
func (e *Editor) CanDrag(p catalog.Product) bool {
	return !e.store.Has(p.Key())
}

// Drop completes a drag gesture. A payload that does not decode to a product
// is a *ValidationError and changes nothing; a product already present is
// rejected with ErrDuplicate.
func (e *Editor) Drop(payload []byte) (catalog.Product, error) {
	var p catalog.Product
	if err := json.Unmarshal(payload, &p); err != nil {
		verr := &ValidationError{Err: err}
		e.log.Warn("drop rejected", zap.Error(verr))
		return catalog.Product{}, verr
	}
	if err := validate.Struct(p); err != nil {
		verr := &ValidationError{Err: err}
		e.log.Warn("drop rejected", zap.Error(verr))
		return catalog.Product{}, verr
	}
	if !e.store.Pin(p) {
		e.log.Debug("duplicate drop ignored", zap.String("key", p.Key()))
		return p, ErrDuplicate
	}
	return p, nil
}

// Select marks key as selected for deletion.
func (e *Editor) Select(key string) { e.selected = key }

// Selected returns the key selected for deletion, if any.
func (e *Editor) Selected() string { return e.selected }

// ClearSelection forgets the selection.
func (e *Editor) ClearSelection() { e.selected = "" }

// Delete removes key from the working set and the membership index. The
// caller confirms first.
func (e *Editor) Delete(key string) bool {
	removed := e.store.Unpin(key)
	e.selected = ""
	if removed {
		e.log.Debug("constant removed", zap.String("key", key))
	}
	return removed
}

// NextPage moves the constants cursor forward, clamped.
func (e *Editor) NextPage() {
	e.store.UpdatePageCursor(func(prev int) int { return prev + 1 })
}

// PrevPage moves the constants cursor back, clamped.
func (e *Editor) PrevPage() {
	e.store.UpdatePageCursor(func(prev int) int { return prev - 1 })
}

// TotalPages is derived from the working set length on every call.
func (e *Editor) TotalPages() int { return e.store.TotalPages() }

// CanNext reports whether a later page exists.
func (e *Editor) CanNext() bool { return e.store.Cursor() < e.store.TotalPages() }

// CanPrev reports whether an earlier page exists.
func (e *Editor) CanPrev() bool { return e.store.Cursor() > 1 }

// Save acknowledges the current working set locally: the record is flushed
// with a saved-at stamp. Nothing is sent to the catalog service.
func (e *Editor) Save() (time.Time, error) {
	at := e.now().UTC()
	e.store.MarkSaved(at)
	if err := e.store.Err(); err != nil {
		return at, fmt.Errorf("editor: save: %w", err)
	}
	e.log.Info("working set saved", zap.Int("collection", e.id), zap.Int("constants", e.store.Len()))
	return at, nil
}

// External absorbs a record written by another console process. It returns
// false when the record belongs to another collection and was ignored.
func (e *Editor) External(rec viewmodel.Record) bool {
	if rec.CollectionID != e.id {
		e.log.Warn("another process is editing a different collection",
			zap.Int("theirs", rec.CollectionID), zap.Int("ours", e.id))
		return false
	}
	e.store.Restore(rec)
	if e.selected != "" && !e.store.Has(e.selected) {
		e.selected = ""
	}
	return true
}

// LoginRequired reports whether a request failed with 401.
func (e *Editor) LoginRequired() bool { return e.loginRequired }

// State returns the current state.
func (e *Editor) State() State { return e.state }

// Message is the operator-facing text of the last failure.
func (e *Editor) Message() string { return e.message }

// DismissMessage clears a message left by a failed filter query.
func (e *Editor) DismissMessage() {
	if e.state != StateError {
		e.message = ""
	}
}

// Forbidden reports whether the collection was refused with 403.
func (e *Editor) Forbidden() bool { return e.forbidden }

// CatalogVisible reports whether the catalog pane may be rendered.
func (e *Editor) CatalogVisible() bool { return !e.forbidden }

// CollectionID returns the mounted collection.
func (e *Editor) CollectionID() int { return e.id }

// Collection returns the mounted collection once the list has loaded.
func (e *Editor) Collection() (catalog.Collection, bool) {
	if e.collection == nil {
		return catalog.Collection{}, false
	}
	return *e.collection, true
}

// FilterOptions returns the options and pre-selected options for the filter
// panel.
func (e *Editor) FilterOptions() (options, selected []catalog.Filter) {
	return e.options, e.preselect
}

// Criteria returns the filter values of the catalog page on screen.
func (e *Editor) Criteria() filter.Values { return e.criteria }

// Store returns the underlying view-model.
func (e *Editor) Store() *viewmodel.Store { return e.store }
