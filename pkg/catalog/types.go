// Package catalog defines the remote catalog model shared by the API client,
// the view-model store and the console UIs.
package catalog

import (
	"fmt"
	"strings"
)

// Product is one product variant as returned by the catalog service.
type Product struct {
	ProductCode string  `json:"productCode" yaml:"productCode" validate:"required"`
	ColorCode   string  `json:"colorCode" yaml:"colorCode" validate:"required"`
	Name        *string `json:"name" yaml:"name,omitempty"`
	OutOfStock  bool    `json:"outOfStock" yaml:"outOfStock"`
	IsSaleB2B   bool    `json:"isSaleB2B" yaml:"isSaleB2B"`
	ImageURL    string  `json:"imageUrl" yaml:"imageUrl"`
}

// Key returns the composite identity `productCode-colorCode`.
func (p Product) Key() string {
	return Key(p.ProductCode, p.ColorCode)
}

// Key builds an identity key from its parts.
func Key(productCode, colorCode string) string {
	return productCode + "-" + colorCode
}

// DisplayName returns the product name, falling back to the identity key.
func (p Product) DisplayName() string {
	if p.Name != nil {
		if name := strings.TrimSpace(*p.Name); name != "" {
			return name
		}
	}
	return p.Key()
}

// Keys returns the identity keys of products in order.
func Keys(products []Product) []string {
	keys := make([]string, 0, len(products))
	for _, p := range products {
		keys = append(keys, p.Key())
	}
	return keys
}

// Collection is a named, filterable grouping of products tied to a sales
// channel. It is read-only from the console's point of view.
type Collection struct {
	ID             int       `json:"id" yaml:"id"`
	Name           string    `json:"name" yaml:"name"`
	Filters        FilterSet `json:"filters" yaml:"filters"`
	SalesChannelID int       `json:"salesChannelId" yaml:"salesChannelId"`
}

// FilterSummary joins the human readable filter values of the collection.
func (c Collection) FilterSummary() string {
	if len(c.Filters.Filters) == 0 {
		return "-"
	}
	parts := make([]string, 0, len(c.Filters.Filters))
	for _, f := range c.Filters.Filters {
		parts = append(parts, f.Label())
	}
	return strings.Join(parts, ", ")
}

// Find returns the collection with the given id.
func Find(collections []Collection, id int) (Collection, bool) {
	for _, c := range collections {
		if c.ID == id {
			return c, true
		}
	}
	return Collection{}, false
}

// PageMeta describes the paging window of a catalog response.
type PageMeta struct {
	Page         int `json:"page" yaml:"page"`
	PageSize     int `json:"pageSize" yaml:"pageSize"`
	TotalProduct int `json:"totalProduct" yaml:"totalProduct"`
}

// ProductPage is one page of the filtered catalog for a collection.
type ProductPage struct {
	Meta    PageMeta  `json:"meta" yaml:"meta"`
	Data    []Product `json:"data" yaml:"data"`
	Filters FilterSet `json:"filters" yaml:"filters"`
}

// ProductQuery is the request body of GetProductsForConstants.
type ProductQuery struct {
	Page              int                `json:"page"`
	PageSize          int                `json:"pageSize"`
	AdditionalFilters []AdditionalFilter `json:"additionalFilters"`
}

// FirstPage builds a page 1 query with the provided criteria.
func FirstPage(pageSize int, criteria []AdditionalFilter) ProductQuery {
	if criteria == nil {
		criteria = []AdditionalFilter{}
	}
	return ProductQuery{Page: 1, PageSize: pageSize, AdditionalFilters: criteria}
}

func (q ProductQuery) String() string {
	return fmt.Sprintf("page=%d size=%d filters=%d", q.Page, q.PageSize, len(q.AdditionalFilters))
}
