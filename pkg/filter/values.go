// Package filter holds the catalog filter form: the values an operator can
// set, the criteria they turn into and the applied-criteria chips.
package filter

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"tableflip.dev/colcon/pkg/catalog"
)

var validate = validator.New()

// Criterion ids sent to the catalog service.
const (
	FieldStockStatus     = "stockStatus"
	FieldYear            = "year"
	FieldProductCode     = "productCode"
	FieldMinStock        = "minStock"
	FieldMaxStock        = "maxStock"
	FieldAllSizesInStock = "allSizesInStock"
)

// Stock status option values.
const (
	StockIn  = "inStock"
	StockOut = "outOfStock"
)

// Values is the state of the filter form. Empty fields are not sent.
type Values struct {
	StockStatus     string `json:"stockStatus,omitempty" yaml:"stockStatus,omitempty"`
	Year            string `json:"year,omitempty" yaml:"year,omitempty" validate:"omitempty,numeric,len=4"`
	ProductCode     string `json:"productCode,omitempty" yaml:"productCode,omitempty" validate:"omitempty,max=64"`
	MinStock        string `json:"minStock,omitempty" yaml:"minStock,omitempty" validate:"omitempty,numeric"`
	MaxStock        string `json:"maxStock,omitempty" yaml:"maxStock,omitempty" validate:"omitempty,numeric"`
	AllSizesInStock bool   `json:"allSizesInStock,omitempty" yaml:"allSizesInStock,omitempty"`
}

// ErrStockRange is returned when the minimum stock exceeds the maximum.
var ErrStockRange = errors.New("filter: min stock is greater than max stock")

func (v Values) trimmed() Values {
	v.StockStatus = strings.TrimSpace(v.StockStatus)
	v.Year = strings.TrimSpace(v.Year)
	v.ProductCode = strings.TrimSpace(v.ProductCode)
	v.MinStock = strings.TrimSpace(v.MinStock)
	v.MaxStock = strings.TrimSpace(v.MaxStock)
	return v
}

// Validate checks the numeric fields.
func (v Values) Validate() error {
	v = v.trimmed()
	if err := validate.Struct(v); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("filter: %s must be %s", fieldLabel(fe.Field()), ruleText(fe.Tag()))
		}
		return fmt.Errorf("filter: %w", err)
	}
	if v.MinStock != "" && v.MaxStock != "" {
		lo, _ := strconv.ParseFloat(v.MinStock, 64)
		hi, _ := strconv.ParseFloat(v.MaxStock, 64)
		if lo > hi {
			return ErrStockRange
		}
	}
	return nil
}

func isYear(s string) bool {
	return validate.Var(strings.TrimSpace(s), "numeric,len=4") == nil
}

// IsZero reports whether no field is set.
func (v Values) IsZero() bool {
	return v.trimmed() == Values{}
}

// Criteria converts the set fields to additional filters, in form order, all
// with equality comparison.
func (v Values) Criteria() []catalog.AdditionalFilter {
	v = v.trimmed()
	out := []catalog.AdditionalFilter{}
	add := func(id, value string) {
		if value == "" {
			return
		}
		out = append(out, catalog.AdditionalFilter{ID: id, Value: value, ComparisonType: catalog.ComparisonEqual})
	}
	add(FieldStockStatus, v.StockStatus)
	add(FieldYear, v.Year)
	add(FieldProductCode, v.ProductCode)
	add(FieldMinStock, v.MinStock)
	add(FieldMaxStock, v.MaxStock)
	if v.AllSizesInStock {
		add(FieldAllSizesInStock, "true")
	}
	return out
}

// Chips renders the human readable applied-criteria labels.
func (v Values) Chips() []string {
	v = v.trimmed()
	var chips []string
	if v.StockStatus != "" {
		chips = append(chips, "Stock: "+StockLabel(v.StockStatus))
	}
	if v.Year != "" {
		chips = append(chips, "Year: "+v.Year)
	}
	if v.ProductCode != "" {
		chips = append(chips, "Product code: "+v.ProductCode)
	}
	if v.MinStock != "" {
		chips = append(chips, "Min stock: "+v.MinStock)
	}
	if v.MaxStock != "" {
		chips = append(chips, "Max stock: "+v.MaxStock)
	}
	if v.AllSizesInStock {
		chips = append(chips, "All sizes in stock")
	}
	return chips
}

// StockLabel names a stock status value.
func StockLabel(status string) string {
	if status == StockIn {
		return "In stock"
	}
	return "Out of stock"
}

func fieldLabel(field string) string {
	switch field {
	case "Year":
		return "year"
	case "ProductCode":
		return "product code"
	case "MinStock":
		return "min stock"
	case "MaxStock":
		return "max stock"
	default:
		return strings.ToLower(field)
	}
}

func ruleText(tag string) string {
	switch tag {
	case "numeric":
		return "a number"
	case "len":
		return "four digits"
	case "max":
		return "at most 64 characters"
	default:
		return "valid"
	}
}
