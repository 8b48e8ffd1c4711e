package viewmodel

import (
	"sort"
	"time"

	"tableflip.dev/colcon/pkg/catalog"
)

// StoreName is the fixed key the record is persisted under.
const StoreName = "collection-storage"

// Record is the serialized form of a Store. The membership index is kept as a
// sorted array because the storage format has no set type.
type Record struct {
	CollectionID  int               `json:"collectionId"`
	Products      []catalog.Product `json:"products"`
	Constants     []catalog.Product `json:"constants"`
	AddedProducts []string          `json:"addedProducts"`
	CurrentPage   int               `json:"currentPage"`
	SavedAt       *time.Time        `json:"savedAt,omitempty"`
}

// Persister receives the full record after every mutation.
type Persister interface {
	SaveViewModel(rec Record) error
}

// PersisterFunc adapts a function to Persister.
type PersisterFunc func(rec Record) error

// SaveViewModel implements Persister.
func (f PersisterFunc) SaveViewModel(rec Record) error { return f(rec) }

func indexToArray(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func arrayToIndex(keys []string) map[string]struct{} {
	set := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		set[k] = struct{}{}
	}
	return set
}

func deriveIndex(products []catalog.Product) map[string]struct{} {
	set := make(map[string]struct{}, len(products))
	for _, p := range products {
		set[p.Key()] = struct{}{}
	}
	return set
}

func sameIndex(a, b map[string]struct{}) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if _, ok := b[k]; !ok {
			return false
		}
	}
	return true
}

func cloneProducts(in []catalog.Product) []catalog.Product {
	if in == nil {
		return []catalog.Product{}
	}
	out := make([]catalog.Product, len(in))
	copy(out, in)
	return out
}
