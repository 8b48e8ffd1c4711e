package editor

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"tableflip.dev/colcon/pkg/catalog"
)

// Catalog is the part of the catalog service the editor reads from.
type Catalog interface {
	GetAll(ctx context.Context) ([]catalog.Collection, error)
	GetProductsForConstants(ctx context.Context, collectionID int, q catalog.ProductQuery) (*catalog.ProductPage, error)
}

// Tag identifies the editing session a request was issued under. Generation
// changes on every mount; Seq orders the catalog queries within one mount.
type Tag struct {
	CollectionID int
	Generation   uuid.UUID
	Seq          uint64
}

func (t Tag) String() string {
	return fmt.Sprintf("%d/%s/%d", t.CollectionID, t.Generation, t.Seq)
}

// CatalogRequest fetches one page of the catalog.
type CatalogRequest struct {
	Tag       Tag
	Query     catalog.ProductQuery
	Filtering bool
}

// Do runs the request. It is safe to call from any goroutine.
func (r CatalogRequest) Do(ctx context.Context, c Catalog) CatalogResult {
	page, err := c.GetProductsForConstants(ctx, r.Tag.CollectionID, r.Query)
	return CatalogResult{Tag: r.Tag, Filtering: r.Filtering, Page: page, Err: err}
}

// CatalogResult is handed back to Editor.ApplyCatalog.
type CatalogResult struct {
	Tag       Tag
	Filtering bool
	Page      *catalog.ProductPage
	Err       error
}

// CollectionsRequest fetches every collection to recover the stored filters
// of the one being edited.
type CollectionsRequest struct {
	Tag Tag
}

// Do runs the request. It is safe to call from any goroutine.
func (r CollectionsRequest) Do(ctx context.Context, c Catalog) CollectionsResult {
	cols, err := c.GetAll(ctx)
	return CollectionsResult{Tag: r.Tag, Collections: cols, Err: err}
}

// CollectionsResult is handed back to Editor.ApplyCollections.
type CollectionsResult struct {
	Tag         Tag
	Collections []catalog.Collection
	Err         error
}
