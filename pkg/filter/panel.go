package filter

import (
	"tableflip.dev/colcon/pkg/catalog"
)

// Panel is the filter form state. It never fetches anything: Apply and Clear
// return the values for the caller to query with.
type Panel struct {
	options  []catalog.Filter
	selected []catalog.Filter

	values Values
	chips  []string
}

// NewPanel seeds the form. Stock status starts from the first pre-selected
// option that carries a value, year from the first one shaped like a year;
// the chips start as the labels of the pre-selected options.
func NewPanel(options, selected []catalog.Filter) *Panel {
	p := &Panel{}
	p.Seed(options, selected)
	return p
}

// Seed replaces the available and pre-selected options and resets the form
// to match them.
func (p *Panel) Seed(options, selected []catalog.Filter) {
	p.options = append([]catalog.Filter(nil), options...)
	p.selected = append([]catalog.Filter(nil), selected...)
	p.values = Values{}
	p.chips = nil
	for _, f := range selected {
		if f.Value == "" {
			continue
		}
		if p.values.StockStatus == "" {
			p.values.StockStatus = f.Value
		}
		if p.values.Year == "" && isYear(f.Value) {
			p.values.Year = f.Value
		}
	}
	for _, f := range selected {
		p.chips = append(p.chips, f.Label())
	}
}

// Options returns every available option.
func (p *Panel) Options() []catalog.Filter {
	return append([]catalog.Filter(nil), p.options...)
}

// Selected returns the pre-selected options.
func (p *Panel) Selected() []catalog.Filter {
	return append([]catalog.Filter(nil), p.selected...)
}

// StockOptions lists the values the stock status field can take: the
// available options, or in/out of stock when the collection offers none.
func (p *Panel) StockOptions() []catalog.Filter {
	if len(p.options) > 0 {
		return p.Options()
	}
	return []catalog.Filter{
		{ID: StockIn, Value: StockIn, ValueName: StockLabel(StockIn)},
		{ID: StockOut, Value: StockOut, ValueName: StockLabel(StockOut)},
	}
}

// YearOptions lists the available options tagged as a year.
func (p *Panel) YearOptions() []catalog.Filter {
	var out []catalog.Filter
	for _, f := range p.options {
		if f.ID == FieldYear || f.Value == FieldYear {
			out = append(out, f)
		}
	}
	return out
}

// Values returns the form as currently edited.
func (p *Panel) Values() Values { return p.values }

// Chips returns the applied-criteria labels.
func (p *Panel) Chips() []string { return append([]string(nil), p.chips...) }

func (p *Panel) SetStockStatus(v string)    { p.values.StockStatus = v }
func (p *Panel) SetYear(v string)           { p.values.Year = v }
func (p *Panel) SetProductCode(v string)    { p.values.ProductCode = v }
func (p *Panel) SetMinStock(v string)       { p.values.MinStock = v }
func (p *Panel) SetMaxStock(v string)       { p.values.MaxStock = v }
func (p *Panel) SetAllSizesInStock(on bool) { p.values.AllSizesInStock = on }
func (p *Panel) ToggleAllSizesInStock()     { p.values.AllSizesInStock = !p.values.AllSizesInStock }

// Apply validates the form. On success the chips are rebuilt from the values
// and the trimmed values are returned for the caller to query with. On
// failure nothing changes.
func (p *Panel) Apply() (Values, error) {
	if err := p.values.Validate(); err != nil {
		return Values{}, err
	}
	p.values = p.values.trimmed()
	p.chips = p.values.Chips()
	return p.values, nil
}

// Clear resets every field and the chips, and returns the empty values.
func (p *Panel) Clear() Values {
	p.values = Values{}
	p.chips = nil
	return p.values
}

// RemoveChip drops label from the chip list. The form values and the last
// query are left alone; nothing is re-applied.
func (p *Panel) RemoveChip(label string) bool {
	kept := make([]string, 0, len(p.chips))
	for _, c := range p.chips {
		if c != label {
			kept = append(kept, c)
		}
	}
	removed := len(kept) != len(p.chips)
	p.chips = kept
	return removed
}
