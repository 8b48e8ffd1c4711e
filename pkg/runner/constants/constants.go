// Package constants prints and edits the persisted working set.
package constants

import (
	"context"
	"errors"
	"fmt"

	"github.com/fatih/color"

	"tableflip.dev/colcon/pkg/app"
	"tableflip.dev/colcon/pkg/catalog"
	"tableflip.dev/colcon/pkg/printers"
)

// List prints one page of the working set.
type List struct {
	Service *app.Service
	Page    int
	All     bool
	Format  printers.Format
}

type listing struct {
	CollectionID int               `json:"collectionId" yaml:"collectionId"`
	Page         int               `json:"page" yaml:"page"`
	TotalPages   int               `json:"totalPages" yaml:"totalPages"`
	Constants    []catalog.Product `json:"constants" yaml:"constants"`
}

func (l *List) Do(_ context.Context) error {
	if l.Service == nil {
		return errors.New("constants: no service")
	}
	vm, err := l.Service.ViewModel()
	if err != nil {
		return err
	}
	if l.Page > 0 {
		// Reading a page moves the shared cursor like the console does.
		vm.SetPageCursor(l.Page)
	}
	out := listing{CollectionID: vm.CollectionID(), Page: vm.Cursor(), TotalPages: vm.TotalPages()}
	products := vm.Page()
	if l.All {
		products = vm.WorkingSet()
	}
	out.Constants = products

	if l.Format != printers.FormatText {
		return printers.Encode(color.Output, l.Format, out)
	}
	pp := printers.PrettyPrint{}
	pp.NewLine()
	pp.TitleWithCount(fmt.Sprintf("Constants of collection %d", out.CollectionID), vm.Len(), "constant")
	pp.Products(products, nil)
	if !l.All {
		pp.PageFooter(out.Page, out.TotalPages)
	}
	return nil
}

// Remove deletes one constant by identity key.
type Remove struct {
	Service *app.Service
	Key     string
}

func (r *Remove) Do(_ context.Context) error {
	if r.Service == nil {
		return errors.New("constants: no service")
	}
	vm, err := r.Service.RemoveConstant(r.Key)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(color.Output, "Removed %s, %d constants left.\n", r.Key, vm.Len())
	return nil
}
