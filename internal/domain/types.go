package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is a read-only catalog record.
type Product struct {
	ID            int              `json:"id"`
	Name          string           `json:"name"`
	Price         decimal.Decimal  `json:"price"`
	OriginalPrice *decimal.Decimal `json:"original_price,omitempty"`
	ImageURL      string           `json:"image_url"`
	Rating        float64          `json:"rating"`
	ReviewCount   int              `json:"review_count"`
	Category      string           `json:"category"`
	Brand         string           `json:"brand"`
	Tags          []string         `json:"tags,omitempty"`
	InStock       bool             `json:"in_stock"`
	Description   string           `json:"description,omitempty"`
}

// Snapshot captures the product fields copied into a cart line at time of add.
func (p Product) Snapshot() ProductSnapshot {
	return ProductSnapshot{ID: p.ID, Name: p.Name, Price: p.Price, ImageURL: p.ImageURL}
}

// WishlistItem converts the product into a wishlist entry.
func (p Product) WishlistItem() WishlistItem {
	return WishlistItem{ID: p.ID, Name: p.Name, Price: p.Price, ImageURL: p.ImageURL, Category: p.Category}
}

// ProductSnapshot is the input to cart additions.
type ProductSnapshot struct {
	ID       int             `json:"id"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	ImageURL string          `json:"image_url"`
}

// CartItem is a single cart line. Quantity is always at least one.
type CartItem struct {
	ID       int             `json:"id"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	ImageURL string          `json:"image_url"`
	Quantity int             `json:"quantity"`
}

// LineTotal returns price × quantity.
func (c CartItem) LineTotal() decimal.Decimal {
	return c.Price.Mul(decimal.NewFromInt(int64(c.Quantity)))
}

// WishlistItem is a bookmarked product.
type WishlistItem struct {
	ID       int             `json:"id"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	ImageURL string          `json:"image_url"`
	Category string          `json:"category"`
}

// User is the placeholder shopper profile.
type User struct {
	ID        int64  `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone,omitempty"`
}

// FullName joins first and last name.
func (u User) FullName() string {
	switch {
	case u.FirstName == "":
		return u.LastName
	case u.LastName == "":
		return u.FirstName
	default:
		return u.FirstName + " " + u.LastName
	}
}

// OrderStatus enumerates fulfilment states shown in order history.
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
)

// OrderSummary is a row in the profile order history.
type OrderSummary struct {
	ID        string          `json:"id"`
	PlacedAt  time.Time       `json:"placed_at"`
	Status    OrderStatus     `json:"status"`
	Total     decimal.Decimal `json:"total"`
	ItemCount int             `json:"item_count"`
}
