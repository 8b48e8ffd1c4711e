// Package collections prints collections from the catalog service.
package collections

import (
	"context"
	"errors"

	"github.com/fatih/color"

	"tableflip.dev/colcon/pkg/app"
	"tableflip.dev/colcon/pkg/printers"
)

// List prints every collection with its filter summary.
type List struct {
	Service *app.Service
	Format  printers.Format
}

func (l *List) Do(ctx context.Context) error {
	if l.Service == nil {
		return errors.New("collections: no service")
	}
	cols, err := l.Service.Collections(ctx)
	if err != nil {
		return err
	}
	if l.Format != printers.FormatText {
		return printers.Encode(color.Output, l.Format, cols)
	}
	pp := printers.PrettyPrint{}
	pp.NewLine()
	pp.TitleWithCount("Collections", len(cols), "collection")
	pp.Collections(cols)
	return nil
}

// Show prints one collection, its filter metadata and its first catalog page.
type Show struct {
	Service *app.Service
	ID      int
	Format  printers.Format
}

func (s *Show) Do(ctx context.Context) error {
	if s.Service == nil {
		return errors.New("collections: no service")
	}
	ov, err := s.Service.Overview(ctx, s.ID)
	if err != nil {
		return err
	}
	if s.Format != printers.FormatText {
		return printers.Encode(color.Output, s.Format, ov)
	}

	vm, err := s.Service.ViewModel()
	if err != nil {
		return err
	}
	added := func(string) bool { return false }
	if vm.CollectionID() == s.ID {
		added = vm.Has
	}

	pp := printers.PrettyPrint{}
	pp.NewLine()
	pp.Title(ov.Collection.Name)
	pp.Filters(ov.Collection.Filters.Filters)
	pp.TitleWithCount("Available filters", len(ov.Filters.Filters), "filter")
	pp.Filters(ov.Filters.Filters)
	pp.TitleWithCount("Catalog", ov.Page.Meta.TotalProduct, "product")
	pp.Products(ov.Page.Data, added)
	return nil
}
