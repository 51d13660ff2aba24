package services

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/clickora/storefront/internal/domain"
)

// mockOrderHistory is the placeholder order list shown on the account page until an order
// backend exists.
func mockOrderHistory() []domain.OrderSummary {
	return []domain.OrderSummary{
		{
			ID:        "1001",
			PlacedAt:  time.Date(2024, time.January, 15, 0, 0, 0, 0, time.UTC),
			Status:    domain.OrderStatusDelivered,
			Total:     decimal.RequireFromString("89.99"),
			ItemCount: 2,
		},
		{
			ID:        "1002",
			PlacedAt:  time.Date(2024, time.January, 10, 0, 0, 0, 0, time.UTC),
			Status:    domain.OrderStatusShipped,
			Total:     decimal.RequireFromString("45.50"),
			ItemCount: 1,
		},
		{
			ID:        "1003",
			PlacedAt:  time.Date(2024, time.January, 5, 0, 0, 0, 0, time.UTC),
			Status:    domain.OrderStatusProcessing,
			Total:     decimal.RequireFromString("129.99"),
			ItemCount: 3,
		},
	}
}
