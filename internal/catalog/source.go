package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/clickora/storefront/internal/domain"
)

//go:embed products.yaml
var embeddedProducts []byte

var (
	// ErrNotFound indicates the requested product id does not exist.
	ErrNotFound = errors.New("catalog: product not found")
	// ErrInvalidData indicates the product source could not be parsed.
	ErrInvalidData = errors.New("catalog: invalid product data")
)

const (
	defaultRelatedLimit  = 4
	defaultFeaturedLimit = 8
)

// Catalog is the static, ordered product list loaded once at startup.
type Catalog struct {
	products []domain.Product
	byID     map[int]int
	maxPrice decimal.Decimal
}

type productFile struct {
	Products []productRecord `yaml:"products"`
}

type productRecord struct {
	ID            int      `yaml:"id"`
	Name          string   `yaml:"name"`
	Price         string   `yaml:"price"`
	OriginalPrice string   `yaml:"original_price"`
	ImageURL      string   `yaml:"image_url"`
	Rating        float64  `yaml:"rating"`
	ReviewCount   int      `yaml:"review_count"`
	Category      string   `yaml:"category"`
	Brand         string   `yaml:"brand"`
	Tags          []string `yaml:"tags"`
	InStock       *bool    `yaml:"in_stock"`
	Description   string   `yaml:"description"`
}

// Load reads the catalog from path, or from the embedded product list when path is empty.
func Load(path string) (*Catalog, error) {
	data := embeddedProducts
	if path = strings.TrimSpace(path); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("catalog: read %s: %w", path, err)
		}
		data = raw
	}
	return Parse(data)
}

// Parse decodes a YAML product document.
func Parse(data []byte) (*Catalog, error) {
	var file productFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidData, err)
	}
	products := make([]domain.Product, 0, len(file.Products))
	for i, rec := range file.Products {
		product, err := rec.toDomain()
		if err != nil {
			return nil, fmt.Errorf("%w: product #%d: %v", ErrInvalidData, i, err)
		}
		products = append(products, product)
	}
	return New(products)
}

// New builds a catalog from an in-memory list, preserving its order.
func New(products []domain.Product) (*Catalog, error) {
	c := &Catalog{
		products: append([]domain.Product(nil), products...),
		byID:     make(map[int]int, len(products)),
		maxPrice: decimal.Zero,
	}
	for i, p := range c.products {
		if _, dup := c.byID[p.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate product id %d", ErrInvalidData, p.ID)
		}
		c.byID[p.ID] = i
		if p.Price.GreaterThan(c.maxPrice) {
			c.maxPrice = p.Price
		}
	}
	return c, nil
}

func (r productRecord) toDomain() (domain.Product, error) {
	if r.ID <= 0 {
		return domain.Product{}, errors.New("id must be positive")
	}
	if strings.TrimSpace(r.Name) == "" {
		return domain.Product{}, fmt.Errorf("id %d: name is required", r.ID)
	}
	price, err := decimal.NewFromString(strings.TrimSpace(r.Price))
	if err != nil {
		return domain.Product{}, fmt.Errorf("id %d: price: %v", r.ID, err)
	}
	if price.IsNegative() {
		return domain.Product{}, fmt.Errorf("id %d: price must be non-negative", r.ID)
	}
	if r.Rating < 0 || r.Rating > 5 {
		return domain.Product{}, fmt.Errorf("id %d: rating must be within 0-5", r.ID)
	}
	product := domain.Product{
		ID:          r.ID,
		Name:        r.Name,
		Price:       price,
		ImageURL:    r.ImageURL,
		Rating:      r.Rating,
		ReviewCount: r.ReviewCount,
		Category:    r.Category,
		Brand:       r.Brand,
		Tags:        append([]string(nil), r.Tags...),
		InStock:     r.InStock == nil || *r.InStock,
		Description: r.Description,
	}
	if raw := strings.TrimSpace(r.OriginalPrice); raw != "" {
		original, err := decimal.NewFromString(raw)
		if err != nil {
			return domain.Product{}, fmt.Errorf("id %d: original_price: %v", r.ID, err)
		}
		product.OriginalPrice = &original
	}
	return product, nil
}

// Products returns a copy of the full ordered list.
func (c *Catalog) Products() []domain.Product {
	return append([]domain.Product(nil), c.products...)
}

// Len reports the number of products.
func (c *Catalog) Len() int { return len(c.products) }

// MaxPrice returns the highest product price, used as the default upper price bound.
func (c *Catalog) MaxPrice() decimal.Decimal { return c.maxPrice }

// DefaultPriceRange spans the whole catalog.
func (c *Catalog) DefaultPriceRange() PriceRange {
	return PriceRange{Min: decimal.Zero, Max: c.maxPrice}
}

// Product looks up a product by id.
func (c *Catalog) Product(id int) (domain.Product, error) {
	idx, ok := c.byID[id]
	if !ok {
		return domain.Product{}, ErrNotFound
	}
	return c.products[idx], nil
}

// Related returns up to limit products sharing the category of id, excluding id itself.
func (c *Catalog) Related(id, limit int) ([]domain.Product, error) {
	product, err := c.Product(id)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultRelatedLimit
	}
	related := make([]domain.Product, 0, limit)
	for _, p := range c.products {
		if len(related) == limit {
			break
		}
		if p.ID != id && p.Category == product.Category {
			related = append(related, p)
		}
	}
	return related, nil
}

// Featured returns the leading products of the catalog.
func (c *Catalog) Featured(limit int) []domain.Product {
	if limit <= 0 {
		limit = defaultFeaturedLimit
	}
	if limit > len(c.products) {
		limit = len(c.products)
	}
	return append([]domain.Product(nil), c.products[:limit]...)
}

// Facets lists the filter options offered by the listing page.
type Facets struct {
	Categories []string   `json:"categories"`
	Brands     []string   `json:"brands"`
	Colors     []string   `json:"colors"`
	Tags       []string   `json:"tags"`
	PriceRange PriceRange `json:"price_range"`
}

var (
	facetBrands = []string{"Apple", "Samsung", "Sony", "ASUS", "Acer", "Lenovo", "Amazon", "Seagate", "Aroma", "DEWALT", "Skullcandy"}
	facetColors = []string{"white", "black", "blue", "red", "green", "orange", "purple", "pink"}
	facetTags   = []string{"wireless", "audio", "premium", "smartphone", "5g", "storage", "portable", "tablet", "laptop", "gaming"}
)

// Facets returns the filter option lists. Brands present in the data but missing from the
// curated list are appended alphabetically.
func (c *Catalog) Facets() Facets {
	known := make(map[string]struct{}, len(facetBrands))
	for _, b := range facetBrands {
		known[b] = struct{}{}
	}
	var extra []string
	for _, p := range c.products {
		if _, ok := known[p.Brand]; !ok && p.Brand != "" {
			known[p.Brand] = struct{}{}
			extra = append(extra, p.Brand)
		}
	}
	sort.Strings(extra)
	return Facets{
		Categories: Categories(),
		Brands:     append(append([]string(nil), facetBrands...), extra...),
		Colors:     append([]string(nil), facetColors...),
		Tags:       append([]string(nil), facetTags...),
		PriceRange: c.DefaultPriceRange(),
	}
}
