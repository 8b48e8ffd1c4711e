// Package viewmodel holds the in-progress state of one collection editing
// session: the catalog page on screen, the operator's working set of
// constants, the membership index over it and the page cursor.
package viewmodel

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"tableflip.dev/colcon/pkg/catalog"
)

// Store is the session-scoped view-model. Every mutation is written through
// to the Persister. The zero value is not usable; call New or Rehydrate.
type Store struct {
	mu sync.RWMutex

	collectionID int
	products     []catalog.Product
	constants    []catalog.Product
	added        map[string]struct{}
	page         int
	savedAt      *time.Time

	pageSize  int
	persister Persister
	log       *zap.Logger
	err       error
}

// Option customises a Store.
type Option func(*Store)

// WithPageSize sets the number of constants per page.
func WithPageSize(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.pageSize = n
		}
	}
}

// WithPersister sets where records are written.
func WithPersister(p Persister) Option {
	return func(s *Store) { s.persister = p }
}

// WithLogger sets the logger used for persistence failures.
func WithLogger(l *zap.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.log = l
		}
	}
}

// New returns an empty store.
func New(opts ...Option) *Store {
	s := &Store{
		products:  []catalog.Product{},
		constants: []catalog.Product{},
		added:     map[string]struct{}{},
		page:      1,
		pageSize:  DefaultPageSize,
		log:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Rehydrate builds a store from a persisted record. The index array is turned
// back into a set; when it disagrees with the constants it is re-derived
// from them.
func Rehydrate(rec Record, opts ...Option) *Store {
	s := New(opts...)
	s.restoreLocked(rec)
	return s
}

// Restore replaces the state with a record read back from storage, such as
// one written by another process. It does not write the record again.
func (s *Store) Restore(rec Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.restoreLocked(rec)
}

func (s *Store) restoreLocked(rec Record) {
	s.collectionID = rec.CollectionID
	s.products = cloneProducts(rec.Products)
	s.constants = cloneProducts(rec.Constants)
	s.added = arrayToIndex(rec.AddedProducts)
	if derived := deriveIndex(s.constants); !sameIndex(derived, s.added) {
		s.log.Warn("membership index out of sync with constants, rebuilding",
			zap.Int("index", len(s.added)), zap.Int("constants", len(s.constants)))
		s.added = derived
	}
	s.page = ClampPage(rec.CurrentPage, TotalPages(len(s.constants), s.pageSize))
	s.savedAt = nil
	if rec.SavedAt != nil {
		t := *rec.SavedAt
		s.savedAt = &t
	}
}

// Record returns the serializable form of the current state.
func (s *Store) Record() Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.recordLocked()
}

func (s *Store) recordLocked() Record {
	rec := Record{
		CollectionID:  s.collectionID,
		Products:      cloneProducts(s.products),
		Constants:     cloneProducts(s.constants),
		AddedProducts: indexToArray(s.added),
		CurrentPage:   s.page,
	}
	if s.savedAt != nil {
		t := *s.savedAt
		rec.SavedAt = &t
	}
	return rec
}

// persistLocked must be called with the write lock held.
func (s *Store) persistLocked() {
	if s.persister == nil {
		return
	}
	if err := s.persister.SaveViewModel(s.recordLocked()); err != nil {
		s.err = err
		s.log.Error("persist view-model", zap.Error(err))
		return
	}
	s.err = nil
}

// Err returns the last persistence error, if the last write failed.
func (s *Store) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}

// PageSize returns the number of constants per page.
func (s *Store) PageSize() int { return s.pageSize }

// CollectionID returns the collection the state belongs to.
func (s *Store) CollectionID() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collectionID
}

// Bind records which collection the state belongs to.
func (s *Store) Bind(collectionID int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.collectionID = collectionID
	s.persistLocked()
}

// SetCatalogPage replaces the displayed catalog page.
func (s *Store) SetCatalogPage(products []catalog.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products = cloneProducts(products)
	s.persistLocked()
}

// SetWorkingSet replaces the constants wholesale. The caller keeps the
// membership index in sync.
func (s *Store) SetWorkingSet(items []catalog.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.constants = cloneProducts(items)
	s.clampLocked()
	s.persistLocked()
}

// AddToWorkingSet appends product. It does not check for duplicates.
func (s *Store) AddToWorkingSet(product catalog.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.constants = append(s.constants, product)
	s.persistLocked()
}

// RemoveFromWorkingSet removes every constant with the given key and returns
// how many were removed.
func (s *Store) RemoveFromWorkingSet(key string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := s.removeLocked(key)
	s.persistLocked()
	return n
}

func (s *Store) removeLocked(key string) int {
	kept := s.constants[:0]
	removed := 0
	for _, p := range s.constants {
		if p.Key() == key {
			removed++
			continue
		}
		kept = append(kept, p)
	}
	s.constants = kept
	s.clampLocked()
	return removed
}

// SetMembershipIndex replaces the index.
func (s *Store) SetMembershipIndex(keys []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.added = arrayToIndex(keys)
	s.persistLocked()
}

// AddKey adds a key to the index.
func (s *Store) AddKey(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.added[key] = struct{}{}
	s.persistLocked()
}

// RemoveKey removes a key from the index.
func (s *Store) RemoveKey(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.added, key)
	s.persistLocked()
}

// Pin appends product and indexes it in one step. It returns false, and
// changes nothing, when the key is already present.
func (s *Store) Pin(product catalog.Product) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := product.Key()
	if _, ok := s.added[key]; ok {
		return false
	}
	s.constants = append(s.constants, product)
	s.added[key] = struct{}{}
	s.persistLocked()
	return true
}

// Unpin removes the key from both the constants and the index.
func (s *Store) Unpin(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := s.removeLocked(key)
	_, indexed := s.added[key]
	delete(s.added, key)
	if n == 0 && !indexed {
		return false
	}
	s.persistLocked()
	return true
}

// ReplaceWorkingSet sets the constants and re-derives the index from them.
func (s *Store) ReplaceWorkingSet(items []catalog.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.constants = make([]catalog.Product, 0, len(items))
	s.added = make(map[string]struct{}, len(items))
	for _, p := range items {
		if _, dup := s.added[p.Key()]; dup {
			continue
		}
		s.constants = append(s.constants, p)
		s.added[p.Key()] = struct{}{}
	}
	s.clampLocked()
	s.persistLocked()
}

// SetPageCursor moves the cursor to page, clamped to the valid range.
func (s *Store) SetPageCursor(page int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.page = page
	s.clampLocked()
	s.persistLocked()
}

// UpdatePageCursor moves the cursor relative to its previous value.
func (s *Store) UpdatePageCursor(fn func(prev int) int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.page = fn(s.page)
	s.clampLocked()
	s.persistLocked()
}

func (s *Store) clampLocked() {
	s.page = ClampPage(s.page, TotalPages(len(s.constants), s.pageSize))
}

// MarkSaved stamps the record with the time of the last save acknowledgement.
func (s *Store) MarkSaved(at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.savedAt = &at
	s.persistLocked()
}

// SavedAt returns the last save acknowledgement time, if any.
func (s *Store) SavedAt() (time.Time, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.savedAt == nil {
		return time.Time{}, false
	}
	return *s.savedAt, true
}

// Reset clears the catalog page, the constants, the index and the cursor.
// The bound collection id is left for the caller to change.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products = []catalog.Product{}
	s.constants = []catalog.Product{}
	s.added = map[string]struct{}{}
	s.page = 1
	s.savedAt = nil
	s.persistLocked()
}

// CatalogPage returns a copy of the displayed catalog page.
func (s *Store) CatalogPage() []catalog.Product {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneProducts(s.products)
}

// WorkingSet returns a copy of the constants in insertion order.
func (s *Store) WorkingSet() []catalog.Product {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneProducts(s.constants)
}

// Len returns the number of constants.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.constants)
}

// MembershipIndex returns the indexed keys, sorted.
func (s *Store) MembershipIndex() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return indexToArray(s.added)
}

// Has reports whether key is in the membership index.
func (s *Store) Has(key string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.added[key]
	return ok
}

// Consistent reports whether the index equals the keys of the constants.
func (s *Store) Consistent() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sameIndex(deriveIndex(s.constants), s.added)
}

// Cursor returns the current page number.
func (s *Store) Cursor() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.page
}

// TotalPages is computed from the current number of constants.
func (s *Store) TotalPages() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return TotalPages(len(s.constants), s.pageSize)
}

// Page returns the constants on the current page.
func (s *Store) Page() []catalog.Product {
	s.mu.RLock()
	defer s.mu.RUnlock()
	start, end := PageBounds(s.page, s.pageSize, len(s.constants))
	return cloneProducts(s.constants[start:end])
}
