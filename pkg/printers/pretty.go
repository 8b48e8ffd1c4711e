// Package printers renders console data for the CLI commands.
package printers

import (
	"fmt"
	"io"
	"strconv"

	"github.com/fatih/color"
	"github.com/gosuri/uitable"
	"github.com/muesli/reflow/truncate"

	"tableflip.dev/colcon/pkg/catalog"
)

const nameWidth = 40

// PrettyPrint writes colored tables. Out defaults to color.Output.
type PrettyPrint struct {
	Out io.Writer
}

func (pp *PrettyPrint) out() io.Writer {
	if pp.Out == nil {
		return color.Output
	}
	return pp.Out
}

func (pp *PrettyPrint) NewLine() {
	_, _ = fmt.Fprintln(pp.out(), "")
}

func (pp *PrettyPrint) Title(title string) {
	t := color.New(color.Bold, color.Underline)
	_, _ = t.Fprintln(pp.out(), title)
}

// TitleWithCount prints title followed by a faint count of noun.
func (pp *PrettyPrint) TitleWithCount(title string, count int, noun string) {
	t := color.New(color.Bold, color.Underline)
	c := color.New(color.Faint)

	_, _ = t.Fprint(pp.out(), title)
	if count == 1 {
		_, _ = c.Fprintf(pp.out(), " - %d %s\n", count, noun)
		return
	}
	_, _ = c.Fprintf(pp.out(), " - %d %ss\n", count, noun)
}

func (pp *PrettyPrint) None() {
	f := color.New(color.Faint, color.Italic)
	_, _ = f.Fprint(pp.out(), " none\n\n")
}

// Collections prints one row per collection with its filter summary.
func (pp *PrettyPrint) Collections(cols []catalog.Collection) {
	if len(cols) == 0 {
		pp.None()
		return
	}
	bold := color.New(color.Bold)
	faint := color.New(color.Faint)

	tbl := uitable.New()
	tbl.Separator = "  "
	tbl.AddRow(bold.Sprint("ID"), bold.Sprint("Name"), bold.Sprint("Channel"), bold.Sprint("Filters"))
	for _, c := range cols {
		summary := c.FilterSummary()
		if summary == "-" {
			summary = faint.Sprint(summary)
		}
		tbl.AddRow(strconv.Itoa(c.ID), truncate.StringWithTail(c.Name, nameWidth, "…"), strconv.Itoa(c.SalesChannelID), summary)
	}
	tbl.RightAlign(0)
	_, _ = fmt.Fprintln(pp.out(), tbl)
}

// Filters prints filter criteria with their comparison type.
func (pp *PrettyPrint) Filters(filters []catalog.Filter) {
	if len(filters) == 0 {
		pp.None()
		return
	}
	bold := color.New(color.Bold)
	tbl := uitable.New()
	tbl.Separator = "  "
	tbl.AddRow(bold.Sprint("Title"), bold.Sprint("Value"), bold.Sprint("Comparison"))
	for _, f := range filters {
		tbl.AddRow(f.Title, f.Label(), f.ComparisonType.String())
	}
	_, _ = fmt.Fprintln(pp.out(), tbl)
}

// Products prints products with their stock flags. Keys in added are
// marked as already pinned.
func (pp *PrettyPrint) Products(products []catalog.Product, added func(key string) bool) {
	if len(products) == 0 {
		pp.None()
		return
	}
	bold := color.New(color.Bold)
	green := color.New(color.FgGreen)
	red := color.New(color.FgRed, color.Faint)
	yellow := color.New(color.FgHiYellow)

	tbl := uitable.New()
	tbl.Separator = "  "
	tbl.AddRow("", bold.Sprint("Key"), bold.Sprint("Name"), bold.Sprint("Stock"), bold.Sprint("B2B"))
	for _, p := range products {
		mark := ""
		if added != nil && added(p.Key()) {
			mark = yellow.Sprint("●")
		}
		stock := green.Sprint("in stock")
		if p.OutOfStock {
			stock = red.Sprint("out of stock")
		}
		b2b := ""
		if p.IsSaleB2B {
			b2b = "yes"
		}
		tbl.AddRow(mark, p.Key(), truncate.StringWithTail(p.DisplayName(), nameWidth, "…"), stock, b2b)
	}
	_, _ = fmt.Fprintln(pp.out(), tbl)
}

// PageFooter prints "page x of y".
func (pp *PrettyPrint) PageFooter(page, total int) {
	if total == 0 {
		return
	}
	f := color.New(color.Faint)
	_, _ = f.Fprintf(pp.out(), "page %d of %d\n", page, total)
}
