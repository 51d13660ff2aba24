package catalog

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/clickora/storefront/internal/domain"
)

// DefaultPageSize is the listing page size.
const DefaultPageSize = 12

// ErrInvalidCriteria indicates malformed filter input such as an inverted price range.
var ErrInvalidCriteria = errors.New("catalog: invalid criteria")

// PriceRange is an inclusive [Min, Max] bound.
type PriceRange struct {
	Min decimal.Decimal `json:"min"`
	Max decimal.Decimal `json:"max"`
}

// Contains reports whether price lies within the inclusive range.
func (r PriceRange) Contains(price decimal.Decimal) bool {
	return !price.LessThan(r.Min) && !price.GreaterThan(r.Max)
}

// Criteria selects products. Empty sets place no restriction on their dimension; a nil
// Price places no restriction on price. Colors and Tags are accepted but do not filter
// because products carry no color attribute and tag matching is not enabled.
type Criteria struct {
	Categories []string    `json:"categories"`
	Brands     []string    `json:"brands"`
	Price      *PriceRange `json:"price_range,omitempty"`
	Colors     []string    `json:"colors"`
	Tags       []string    `json:"tags"`
}

// Validate enforces min ≤ max and non-negative bounds.
func (c Criteria) Validate() error {
	if c.Price == nil {
		return nil
	}
	if c.Price.Min.IsNegative() {
		return fmt.Errorf("%w: min price must be non-negative", ErrInvalidCriteria)
	}
	if c.Price.Min.GreaterThan(c.Price.Max) {
		return fmt.Errorf("%w: min price %s exceeds max price %s", ErrInvalidCriteria, c.Price.Min, c.Price.Max)
	}
	return nil
}

// Clone returns a deep copy.
func (c Criteria) Clone() Criteria {
	out := Criteria{
		Categories: append([]string(nil), c.Categories...),
		Brands:     append([]string(nil), c.Brands...),
		Colors:     append([]string(nil), c.Colors...),
		Tags:       append([]string(nil), c.Tags...),
	}
	if c.Price != nil {
		price := *c.Price
		out.Price = &price
	}
	return out
}

// Equal compares criteria as sets per dimension.
func (c Criteria) Equal(other Criteria) bool {
	if !sameSet(c.Categories, other.Categories) || !sameSet(c.Brands, other.Brands) ||
		!sameSet(c.Colors, other.Colors) || !sameSet(c.Tags, other.Tags) {
		return false
	}
	switch {
	case c.Price == nil && other.Price == nil:
		return true
	case c.Price == nil || other.Price == nil:
		return false
	default:
		return c.Price.Min.Equal(other.Price.Min) && c.Price.Max.Equal(other.Price.Max)
	}
}

func sameSet(a, b []string) bool {
	left := toSet(a)
	right := toSet(b)
	if len(left) != len(right) {
		return false
	}
	for k := range left {
		if _, ok := right[k]; !ok {
			return false
		}
	}
	return true
}

func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}

// Filter keeps products matching every restricted dimension, preserving input order.
func Filter(products []domain.Product, criteria Criteria) []domain.Product {
	categories := toSet(criteria.Categories)
	brands := toSet(criteria.Brands)
	out := make([]domain.Product, 0, len(products))
	for _, p := range products {
		if len(categories) > 0 {
			if _, ok := categories[p.Category]; !ok {
				continue
			}
		}
		if len(brands) > 0 {
			if _, ok := brands[p.Brand]; !ok {
				continue
			}
		}
		if criteria.Price != nil && !criteria.Price.Contains(p.Price) {
			continue
		}
		out = append(out, p)
	}
	return out
}

// SortKey selects listing order.
type SortKey string

const (
	SortDefault   SortKey = "default"
	SortPriceLow  SortKey = "price-low"
	SortPriceHigh SortKey = "price-high"
	SortRating    SortKey = "rating"
	SortNewest    SortKey = "newest"
)

// ParseSortKey maps a query value to a SortKey. Unrecognised values such as "trending"
// fall back to SortDefault.
func ParseSortKey(raw string) SortKey {
	switch key := SortKey(strings.ToLower(strings.TrimSpace(raw))); key {
	case SortPriceLow, SortPriceHigh, SortRating, SortNewest:
		return key
	default:
		return SortDefault
	}
}

// Sort returns a stably sorted copy of products.
func Sort(products []domain.Product, key SortKey) []domain.Product {
	out := append([]domain.Product(nil), products...)
	var less func(a, b domain.Product) bool
	switch key {
	case SortPriceLow:
		less = func(a, b domain.Product) bool { return a.Price.LessThan(b.Price) }
	case SortPriceHigh:
		less = func(a, b domain.Product) bool { return a.Price.GreaterThan(b.Price) }
	case SortRating:
		less = func(a, b domain.Product) bool { return a.Rating > b.Rating }
	case SortNewest:
		less = func(a, b domain.Product) bool { return a.ID > b.ID }
	default:
		return out
	}
	sort.SliceStable(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}

// Page is one slice of a listing.
type Page struct {
	Items      []domain.Product `json:"items"`
	Page       int              `json:"page"`
	PageSize   int              `json:"page_size"`
	TotalItems int              `json:"total_items"`
	TotalPages int              `json:"total_pages"`
}

// Paginate slices [(page-1)×size, page×size). Pages below 1 clamp to 1; pages past the
// end yield no items.
func Paginate(products []domain.Product, page, size int) Page {
	if size <= 0 {
		size = DefaultPageSize
	}
	if page < 1 {
		page = 1
	}
	total := len(products)
	result := Page{
		Items:      []domain.Product{},
		Page:       page,
		PageSize:   size,
		TotalItems: total,
		TotalPages: (total + size - 1) / size,
	}
	start := (page - 1) * size
	if start >= total {
		return result
	}
	end := start + size
	if end > total {
		end = total
	}
	result.Items = append(result.Items, products[start:end]...)
	return result
}

// Run applies filter, sort and paginate in order.
func Run(products []domain.Product, criteria Criteria, key SortKey, page, size int) (Page, error) {
	if err := criteria.Validate(); err != nil {
		return Page{}, err
	}
	return Paginate(Sort(Filter(products, criteria), key), page, size), nil
}
