package editor

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"tableflip.dev/colcon/pkg/api"
	"tableflip.dev/colcon/pkg/catalog"
	"tableflip.dev/colcon/pkg/filter"
	"tableflip.dev/colcon/pkg/viewmodel"
)

type fakeCatalog struct {
	pages       map[int][]catalog.Product
	collections []catalog.Collection
	productErr  error
	allErr      error
	queries     []catalog.ProductQuery
}

func (f *fakeCatalog) GetAll(context.Context) ([]catalog.Collection, error) {
	if f.allErr != nil {
		return nil, f.allErr
	}
	return f.collections, nil
}

func (f *fakeCatalog) GetProductsForConstants(_ context.Context, id int, q catalog.ProductQuery) (*catalog.ProductPage, error) {
	f.queries = append(f.queries, q)
	if f.productErr != nil {
		return nil, f.productErr
	}
	data := f.pages[id]
	return &catalog.ProductPage{Meta: catalog.PageMeta{Page: q.Page, PageSize: q.PageSize, TotalProduct: len(data)}, Data: data}, nil
}

func items(prefix string, n int) []catalog.Product {
	out := make([]catalog.Product, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, catalog.Product{ProductCode: fmt.Sprintf("%s%02d", prefix, i), ColorCode: "BLK"})
	}
	return out
}

func payload(t *testing.T, e *Editor, p catalog.Product) []byte {
	t.Helper()
	b, err := e.DragPayload(p)
	if err != nil {
		t.Fatalf("drag payload: %v", err)
	}
	return b
}

// mounted returns an editor in Ready state for collection 7 whose catalog
// page holds 10 products.
func mounted(t *testing.T) (*Editor, *fakeCatalog) {
	t.Helper()
	fc := &fakeCatalog{
		pages: map[int][]catalog.Product{7: items("C", 10)},
		collections: []catalog.Collection{{
			ID:   7,
			Name: "Autumn",
			Filters: catalog.FilterSet{Filters: []catalog.Filter{
				{ID: "f1", Title: "Stock", Value: "inStock", ValueName: "In stock", ComparisonType: 2},
			}},
		}},
	}
	e := New(viewmodel.New())
	catReq, colReq := e.Mount(7)
	if e.State() != StateLoading {
		t.Fatalf("expected loading after mount, got %v", e.State())
	}
	ctx := context.Background()
	if !e.ApplyCollections(colReq.Do(ctx, fc)) {
		t.Fatalf("collections result dropped")
	}
	if !e.ApplyCatalog(catReq.Do(ctx, fc)) {
		t.Fatalf("catalog result dropped")
	}
	if e.State() != StateReady {
		t.Fatalf("expected ready, got %v (%s)", e.State(), e.Message())
	}
	return e, fc
}

func TestMountLoadsFirstPage(t *testing.T) {
	e, fc := mounted(t)
	if got := len(e.Store().CatalogPage()); got != 10 {
		t.Fatalf("expected 10 catalog products, got %d", got)
	}
	want := catalog.ProductQuery{Page: 1, PageSize: 36, AdditionalFilters: []catalog.AdditionalFilter{}}
	if diff := cmp.Diff(want, fc.queries[0]); diff != "" {
		t.Fatalf("mount query mismatch (-want +got):\n%s", diff)
	}
	if e.Store().Cursor() != 1 {
		t.Fatalf("expected cursor 1, got %d", e.Store().Cursor())
	}
	if e.Store().CollectionID() != 7 {
		t.Fatalf("store not bound to collection")
	}
}

func TestCollectionsSeedFilterSelection(t *testing.T) {
	e, _ := mounted(t)
	options, selected := e.FilterOptions()
	want := []catalog.Filter{{ID: "inStock", Title: "In stock", Value: "inStock", ValueName: "In stock"}}
	if diff := cmp.Diff(want, options); diff != "" {
		t.Fatalf("options mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(want, selected); diff != "" {
		t.Fatalf("selection mismatch (-want +got):\n%s", diff)
	}
	if c, ok := e.Collection(); !ok || c.Name != "Autumn" {
		t.Fatalf("collection not recorded: %+v %v", c, ok)
	}
}

func TestResultsApplyInEitherOrder(t *testing.T) {
	fc := &fakeCatalog{
		pages:       map[int][]catalog.Product{3: items("A", 2)},
		collections: []catalog.Collection{{ID: 3, Name: "Basics"}},
	}
	e := New(viewmodel.New())
	catReq, colReq := e.Mount(3)
	ctx := context.Background()
	catRes := catReq.Do(ctx, fc)
	colRes := colReq.Do(ctx, fc)

	if !e.ApplyCatalog(catRes) || !e.ApplyCollections(colRes) {
		t.Fatalf("results dropped")
	}
	if e.State() != StateReady {
		t.Fatalf("expected ready, got %v", e.State())
	}
}

func TestCollectionsFailureIsLoggedOnly(t *testing.T) {
	fc := &fakeCatalog{pages: map[int][]catalog.Product{7: items("C", 1)}, allErr: &api.Error{Status: 500}}
	e := New(viewmodel.New())
	catReq, colReq := e.Mount(7)
	e.ApplyCollections(colReq.Do(context.Background(), fc))
	e.ApplyCatalog(catReq.Do(context.Background(), fc))
	if e.State() != StateReady || e.Message() != "" || e.LoginRequired() {
		t.Fatalf("collections failure leaked into state: %v %q", e.State(), e.Message())
	}
}

func TestRemountSameCollectionResets(t *testing.T) {
	e, fc := mounted(t)
	e.Drop(payload(t, e, e.Store().CatalogPage()[0]))

	catReq, _ := e.Mount(7)
	s := e.Store()
	if s.Len() != 0 || len(s.MembershipIndex()) != 0 || s.Cursor() != 1 {
		t.Fatalf("store not reset on remount: %+v", s.Record())
	}
	if s.CollectionID() != 7 {
		t.Fatalf("store bound to %d", s.CollectionID())
	}
	e.ApplyCatalog(catReq.Do(context.Background(), fc))
	if s.Len() != 0 {
		t.Fatalf("working set came back after remount: %d", s.Len())
	}
}

func TestReloadKeepsWorkingSet(t *testing.T) {
	e, fc := mounted(t)
	e.Drop(payload(t, e, e.Store().CatalogPage()[0]))

	catReq, _ := e.Reload()
	e.ApplyCatalog(catReq.Do(context.Background(), fc))
	if e.Store().Len() != 1 || e.State() != StateReady {
		t.Fatalf("reload lost the working set: len=%d state=%v", e.Store().Len(), e.State())
	}
}

func TestMountOtherCollectionResets(t *testing.T) {
	e, _ := mounted(t)
	e.Drop(payload(t, e, e.Store().CatalogPage()[0]))

	e.Mount(8)
	s := e.Store()
	if s.Len() != 0 || len(s.MembershipIndex()) != 0 || len(s.CatalogPage()) != 0 || s.Cursor() != 1 {
		t.Fatalf("store not reset for new collection: %+v", s.Record())
	}
	if s.CollectionID() != 8 {
		t.Fatalf("store bound to %d", s.CollectionID())
	}
}

func TestStaleResultFromPreviousCollectionDropped(t *testing.T) {
	fc := &fakeCatalog{pages: map[int][]catalog.Product{1: items("OLD", 5), 2: items("NEW", 2)}}
	e := New(viewmodel.New())
	oldReq, oldCols := e.Mount(1)
	newReq, _ := e.Mount(2)

	ctx := context.Background()
	if !e.ApplyCatalog(newReq.Do(ctx, fc)) {
		t.Fatalf("current result dropped")
	}
	if e.ApplyCatalog(oldReq.Do(ctx, fc)) {
		t.Fatalf("stale result applied")
	}
	if e.ApplyCollections(oldCols.Do(ctx, fc)) {
		t.Fatalf("stale collections result applied")
	}
	if diff := cmp.Diff(catalog.Keys(items("NEW", 2)), catalog.Keys(e.Store().CatalogPage())); diff != "" {
		t.Fatalf("catalog page corrupted (-want +got):\n%s", diff)
	}
}

func TestStaleResultFromSameCollectionRemountDropped(t *testing.T) {
	fc := &fakeCatalog{pages: map[int][]catalog.Product{1: items("A", 1)}}
	e := New(viewmodel.New())
	first, _ := e.Mount(1)
	second, _ := e.Reload()
	if first.Tag.Generation == second.Tag.Generation {
		t.Fatalf("reload reused the generation")
	}
	if e.ApplyCatalog(first.Do(context.Background(), fc)) {
		t.Fatalf("result from an earlier generation applied")
	}
}

func TestSupersededFilterDropped(t *testing.T) {
	e, fc := mounted(t)
	first, err := e.BeginFilter(filter.Values{StockStatus: filter.StockOut})
	if err != nil {
		t.Fatalf("begin filter: %v", err)
	}
	second, err := e.BeginFilter(filter.Values{StockStatus: filter.StockIn})
	if err != nil {
		t.Fatalf("begin filter: %v", err)
	}
	ctx := context.Background()
	if !e.ApplyCatalog(second.Do(ctx, fc)) {
		t.Fatalf("latest filter result dropped")
	}
	if e.ApplyCatalog(first.Do(ctx, fc)) {
		t.Fatalf("superseded filter result applied")
	}
	if e.Criteria().StockStatus != filter.StockIn {
		t.Fatalf("criteria from wrong query: %+v", e.Criteria())
	}
}

func TestDropAddsOnce(t *testing.T) {
	e, _ := mounted(t)
	p := e.Store().CatalogPage()[2]
	b, _ := e.DragPayload(p)

	if _, err := e.Drop(b); err != nil {
		t.Fatalf("first drop: %v", err)
	}
	if _, err := e.Drop(b); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate on second drop, got %v", err)
	}
	if e.Store().Len() != 1 {
		t.Fatalf("expected exactly one entry, got %d", e.Store().Len())
	}
	if !e.Store().Has(p.Key()) || !e.Store().Consistent() {
		t.Fatalf("index out of sync")
	}
}

func TestDragPayloadRefusesAddedProducts(t *testing.T) {
	e, _ := mounted(t)
	p := e.Store().CatalogPage()[0]
	e.Drop(payload(t, e, p))
	if e.CanDrag(p) {
		t.Fatalf("added product still draggable")
	}
	if _, err := e.DragPayload(p); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
}

func TestMalformedDropIsValidationError(t *testing.T) {
	e, _ := mounted(t)
	for _, in := range []string{`not json`, `{"productCode":"X"}`, `{}`, `[]`} {
		_, err := e.Drop([]byte(in))
		var verr *ValidationError
		if !errors.As(err, &verr) {
			t.Fatalf("payload %q: expected ValidationError, got %v", in, err)
		}
	}
	if e.Store().Len() != 0 {
		t.Fatalf("malformed drop changed the working set")
	}
}

func TestDeleteClearsSelection(t *testing.T) {
	e, _ := mounted(t)
	p := e.Store().CatalogPage()[0]
	e.Drop(payload(t, e, p))
	e.Select(p.Key())
	if !e.Delete(p.Key()) {
		t.Fatalf("delete reported nothing removed")
	}
	if e.Selected() != "" {
		t.Fatalf("selection survived delete")
	}
	if e.Store().Has(p.Key()) || e.Store().Len() != 0 {
		t.Fatalf("product not removed from working set and index")
	}
	if !e.CanDrag(p) {
		t.Fatalf("removed product should be draggable again")
	}
}

func TestFilterLeavesWorkingSetUnchanged(t *testing.T) {
	e, fc := mounted(t)
	for _, p := range e.Store().CatalogPage()[:3] {
		e.Drop(payload(t, e, p))
	}
	before := e.Store().Record()

	fc.pages[7] = items("F", 4)
	req, err := e.BeginFilter(filter.Values{StockStatus: "inStock"})
	if err != nil {
		t.Fatalf("begin filter: %v", err)
	}
	if e.State() != StateFiltering {
		t.Fatalf("expected filtering, got %v", e.State())
	}
	wantCriteria := []catalog.AdditionalFilter{{ID: "stockStatus", Value: "inStock"}}
	if diff := cmp.Diff(wantCriteria, req.Query.AdditionalFilters); diff != "" {
		t.Fatalf("criteria mismatch (-want +got):\n%s", diff)
	}
	e.ApplyCatalog(req.Do(context.Background(), fc))

	after := e.Store().Record()
	if diff := cmp.Diff(catalog.Keys(items("F", 4)), catalog.Keys(after.Products)); diff != "" {
		t.Fatalf("catalog page not replaced (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(before.Constants, after.Constants); diff != "" {
		t.Fatalf("working set changed by filter (-before +after):\n%s", diff)
	}
	if diff := cmp.Diff(before.AddedProducts, after.AddedProducts); diff != "" {
		t.Fatalf("membership index changed by filter (-before +after):\n%s", diff)
	}
	if e.State() != StateReady {
		t.Fatalf("expected ready after filter, got %v", e.State())
	}
}

func TestInvalidFilterNotIssued(t *testing.T) {
	e, _ := mounted(t)
	if _, err := e.BeginFilter(filter.Values{MinStock: "many"}); err == nil {
		t.Fatalf("expected validation error")
	}
	if e.State() != StateReady {
		t.Fatalf("invalid filter changed state to %v", e.State())
	}
}

func TestUnauthorizedRequiresLoginAndKeepsWorkingSet(t *testing.T) {
	e, fc := mounted(t)
	for _, p := range e.Store().CatalogPage()[:2] {
		e.Drop(payload(t, e, p))
	}
	before := e.Store().WorkingSet()

	fc.productErr = fmt.Errorf("wrapped: %w", api.ErrUnauthorized)
	req, _ := e.BeginFilter(filter.Values{Year: "2024"})
	e.ApplyCatalog(req.Do(context.Background(), fc))

	if !e.LoginRequired() {
		t.Fatalf("401 did not require login")
	}
	if diff := cmp.Diff(before, e.Store().WorkingSet()); diff != "" {
		t.Fatalf("working set changed on 401 (-before +after):\n%s", diff)
	}
}

func TestUnauthorizedOnMountKeepsWorkingSet(t *testing.T) {
	e, fc := mounted(t)
	e.Drop(payload(t, e, e.Store().CatalogPage()[0]))

	fc.productErr = &api.Error{Status: 401}
	req, _ := e.Reload()
	e.ApplyCatalog(req.Do(context.Background(), fc))
	if !e.LoginRequired() {
		t.Fatalf("401 did not require login")
	}
	if e.Store().Len() != 1 {
		t.Fatalf("working set reset on 401")
	}
}

func TestForbiddenHaltsCatalog(t *testing.T) {
	fc := &fakeCatalog{productErr: &api.Error{Status: 403}}
	e := New(viewmodel.New())
	req, _ := e.Mount(4)
	e.ApplyCatalog(req.Do(context.Background(), fc))

	if e.State() != StateError || !e.Forbidden() || e.CatalogVisible() {
		t.Fatalf("expected halted error state, got %v forbidden=%v", e.State(), e.Forbidden())
	}
	if e.Message() != api.ForbiddenMessage() {
		t.Fatalf("unexpected message %q", e.Message())
	}
	if _, err := e.BeginFilter(filter.Values{}); !errors.Is(err, ErrHalted) {
		t.Fatalf("expected ErrHalted, got %v", err)
	}
	if e.LoginRequired() {
		t.Fatalf("403 must not redirect to login")
	}
}

func TestNetworkErrorWhileLoading(t *testing.T) {
	fc := &fakeCatalog{productErr: &api.NetworkError{Op: "POST", Err: errors.New("connection refused")}}
	e := New(viewmodel.New())
	req, _ := e.Mount(4)
	e.ApplyCatalog(req.Do(context.Background(), fc))
	if e.State() != StateError {
		t.Fatalf("expected error state, got %v", e.State())
	}
	if e.Message() == "" {
		t.Fatalf("expected a message")
	}
}

func TestFailedFilterKeepsPreviousCatalog(t *testing.T) {
	e, fc := mounted(t)
	before := e.Store().CatalogPage()

	fc.productErr = &api.Error{Status: 500}
	req, _ := e.BeginFilter(filter.Values{ProductCode: "C01"})
	e.ApplyCatalog(req.Do(context.Background(), fc))

	if e.State() != StateReady {
		t.Fatalf("expected ready after failed filter, got %v", e.State())
	}
	if e.Message() != api.GenericMessage() {
		t.Fatalf("unexpected message %q", e.Message())
	}
	if diff := cmp.Diff(before, e.Store().CatalogPage()); diff != "" {
		t.Fatalf("catalog page changed (-before +after):\n%s", diff)
	}
	if !e.Criteria().IsZero() {
		t.Fatalf("criteria of a failed query recorded: %+v", e.Criteria())
	}
	e.DismissMessage()
	if e.Message() != "" {
		t.Fatalf("message not dismissed")
	}
}

func TestPaginationAcrossSeventhItem(t *testing.T) {
	fc := &fakeCatalog{pages: map[int][]catalog.Product{7: items("C", 10)}}
	e := New(viewmodel.New(viewmodel.WithPageSize(6)))
	req, _ := e.Mount(7)
	e.ApplyCatalog(req.Do(context.Background(), fc))
	page := e.Store().CatalogPage()

	for _, p := range page[:6] {
		e.Drop(payload(t, e, p))
	}
	if e.TotalPages() != 1 || e.CanNext() || e.CanPrev() {
		t.Fatalf("6 items: totalPages=%d next=%v prev=%v", e.TotalPages(), e.CanNext(), e.CanPrev())
	}

	e.Drop(payload(t, e, page[6]))
	if e.TotalPages() != 2 || !e.CanNext() {
		t.Fatalf("7 items: totalPages=%d next=%v", e.TotalPages(), e.CanNext())
	}
	if e.Store().Cursor() != 1 {
		t.Fatalf("cursor moved on drop: %d", e.Store().Cursor())
	}

	e.NextPage()
	e.NextPage()
	if e.Store().Cursor() != 2 || e.CanNext() || !e.CanPrev() {
		t.Fatalf("cursor not clamped at last page: %d", e.Store().Cursor())
	}

	e.Delete(page[6].Key())
	if e.TotalPages() != 1 || e.Store().Cursor() != 1 {
		t.Fatalf("removing last item on final page: totalPages=%d cursor=%d", e.TotalPages(), e.Store().Cursor())
	}
	e.PrevPage()
	if e.Store().Cursor() != 1 {
		t.Fatalf("cursor went below 1")
	}
}

func TestSaveIsLocalAcknowledgement(t *testing.T) {
	var written []viewmodel.Record
	store := viewmodel.New(viewmodel.WithPersister(viewmodel.PersisterFunc(func(rec viewmodel.Record) error {
		written = append(written, rec)
		return nil
	})))
	at := time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)
	fc := &fakeCatalog{pages: map[int][]catalog.Product{7: items("C", 1)}}
	e := New(store, WithClock(func() time.Time { return at }))
	req, _ := e.Mount(7)
	e.ApplyCatalog(req.Do(context.Background(), fc))
	calls := len(fc.queries)

	got, err := e.Save()
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if !got.Equal(at) {
		t.Fatalf("unexpected save time %v", got)
	}
	if len(fc.queries) != calls {
		t.Fatalf("save issued a catalog request")
	}
	last := written[len(written)-1]
	if last.SavedAt == nil || !last.SavedAt.Equal(at) {
		t.Fatalf("savedAt not flushed: %+v", last.SavedAt)
	}
}

func TestSaveReportsPersistFailure(t *testing.T) {
	store := viewmodel.New(viewmodel.WithPersister(viewmodel.PersisterFunc(func(viewmodel.Record) error {
		return errors.New("read-only file system")
	})))
	e := New(store)
	e.Mount(1)
	if _, err := e.Save(); err == nil {
		t.Fatalf("expected save error")
	}
}

func TestExternalRecordForSameCollection(t *testing.T) {
	e, _ := mounted(t)
	p := e.Store().CatalogPage()[0]
	e.Drop(payload(t, e, p))
	e.Select(p.Key())

	theirs := viewmodel.Record{
		CollectionID:  7,
		Constants:     items("T", 2),
		AddedProducts: catalog.Keys(items("T", 2)),
		CurrentPage:   1,
	}
	if !e.External(theirs) {
		t.Fatalf("record for the same collection ignored")
	}
	if diff := cmp.Diff(catalog.Keys(items("T", 2)), catalog.Keys(e.Store().WorkingSet())); diff != "" {
		t.Fatalf("working set not replaced (-want +got):\n%s", diff)
	}
	if e.Selected() != "" {
		t.Fatalf("selection of a vanished product kept")
	}

	if e.External(viewmodel.Record{CollectionID: 99}) {
		t.Fatalf("record for another collection applied")
	}
	if e.Store().Len() != 2 {
		t.Fatalf("foreign collection record changed the working set")
	}
}
