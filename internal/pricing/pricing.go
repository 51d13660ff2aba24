// Package pricing derives monetary summaries from cart lines. Two distinct shipping rules
// exist: the cart page uses a flat fee waived above a threshold, while checkout charges a
// fee keyed by the chosen shipping method.
package pricing

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/clickora/storefront/internal/domain"
)

// ErrUnknownShippingMethod is returned when parsing an unsupported method name.
var ErrUnknownShippingMethod = errors.New("pricing: unknown shipping method")

var (
	// FreeShippingThreshold is the subtotal above which cart shipping is waived.
	FreeShippingThreshold = decimal.NewFromInt(50)
	// FlatShippingFee applies on the cart page at or below the threshold.
	FlatShippingFee = decimal.RequireFromString("5.99")
	// TaxRate applies to the checkout subtotal.
	TaxRate = decimal.RequireFromString("0.08")
)

// ShippingMethod selects the checkout shipping tier.
type ShippingMethod string

const (
	ShippingStandard  ShippingMethod = "standard"
	ShippingExpress   ShippingMethod = "express"
	ShippingOvernight ShippingMethod = "overnight"
)

var methodFees = map[ShippingMethod]decimal.Decimal{
	ShippingStandard:  decimal.RequireFromString("5.99"),
	ShippingExpress:   decimal.RequireFromString("15.99"),
	ShippingOvernight: decimal.RequireFromString("25.99"),
}

var methodLabels = map[ShippingMethod]string{
	ShippingStandard:  "Standard Shipping (5-7 business days)",
	ShippingExpress:   "Express Shipping (2-3 business days)",
	ShippingOvernight: "Overnight Shipping (1 business day)",
}

// ParseShippingMethod normalises a method name. Empty input selects standard.
func ParseShippingMethod(raw string) (ShippingMethod, error) {
	method := ShippingMethod(strings.ToLower(strings.TrimSpace(raw)))
	if method == "" {
		return ShippingStandard, nil
	}
	if _, ok := methodFees[method]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownShippingMethod, raw)
	}
	return method, nil
}

// Fee returns the checkout fee for the method; unknown methods cost the standard fee.
func (m ShippingMethod) Fee() decimal.Decimal {
	if fee, ok := methodFees[m]; ok {
		return fee
	}
	return methodFees[ShippingStandard]
}

// Label returns the human readable description of the method.
func (m ShippingMethod) Label() string {
	if label, ok := methodLabels[m]; ok {
		return label
	}
	return methodLabels[ShippingStandard]
}

// ShippingOption describes a selectable checkout tier.
type ShippingOption struct {
	Method ShippingMethod  `json:"method"`
	Label  string          `json:"label"`
	Fee    decimal.Decimal `json:"fee"`
}

// ShippingOptions lists the checkout tiers in display order.
func ShippingOptions() []ShippingOption {
	methods := []ShippingMethod{ShippingStandard, ShippingExpress, ShippingOvernight}
	options := make([]ShippingOption, 0, len(methods))
	for _, m := range methods {
		options = append(options, ShippingOption{Method: m, Label: m.Label(), Fee: m.Fee()})
	}
	return options
}

// CartSummary holds the cart page totals.
type CartSummary struct {
	Subtotal  decimal.Decimal `json:"subtotal"`
	Shipping  decimal.Decimal `json:"shipping"`
	Total     decimal.Decimal `json:"total"`
	ItemCount int             `json:"item_count"`
}

// CheckoutSummary holds the checkout totals including tax.
type CheckoutSummary struct {
	Subtotal       decimal.Decimal `json:"subtotal"`
	ShippingMethod ShippingMethod  `json:"shipping_method"`
	Shipping       decimal.Decimal `json:"shipping"`
	Tax            decimal.Decimal `json:"tax"`
	Total          decimal.Decimal `json:"total"`
	ItemCount      int             `json:"item_count"`
}

// Subtotal returns Σ price × quantity.
func Subtotal(items []domain.CartItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.LineTotal())
	}
	return total
}

// ItemCount returns Σ quantity.
func ItemCount(items []domain.CartItem) int {
	count := 0
	for _, item := range items {
		count += item.Quantity
	}
	return count
}

// CartShipping applies the flat-rate rule: free strictly above the threshold.
func CartShipping(subtotal decimal.Decimal) decimal.Decimal {
	if subtotal.GreaterThan(FreeShippingThreshold) {
		return decimal.Zero
	}
	return FlatShippingFee
}

// Tax returns subtotal × rate rounded to cents.
func Tax(subtotal decimal.Decimal) decimal.Decimal {
	return subtotal.Mul(TaxRate).Round(2)
}

// SummarizeCart computes the cart page totals.
func SummarizeCart(items []domain.CartItem) CartSummary {
	subtotal := Subtotal(items)
	shipping := CartShipping(subtotal)
	return CartSummary{
		Subtotal:  subtotal,
		Shipping:  shipping,
		Total:     subtotal.Add(shipping),
		ItemCount: ItemCount(items),
	}
}

// SummarizeCheckout computes checkout totals for the selected method.
func SummarizeCheckout(items []domain.CartItem, method ShippingMethod) CheckoutSummary {
	if _, ok := methodFees[method]; !ok {
		method = ShippingStandard
	}
	subtotal := Subtotal(items)
	shipping := method.Fee()
	tax := Tax(subtotal)
	return CheckoutSummary{
		Subtotal:       subtotal,
		ShippingMethod: method,
		Shipping:       shipping,
		Tax:            tax,
		Total:          subtotal.Add(shipping).Add(tax),
		ItemCount:      ItemCount(items),
	}
}

// DiscountPercent returns round((original − price) / original × 100), or 0 when the
// product is not discounted.
func DiscountPercent(price decimal.Decimal, original *decimal.Decimal) int {
	if original == nil || !original.IsPositive() || !original.GreaterThan(price) {
		return 0
	}
	pct := original.Sub(price).Div(*original).Mul(decimal.NewFromInt(100)).Round(0)
	return int(pct.IntPart())
}
