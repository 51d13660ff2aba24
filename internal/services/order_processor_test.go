package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"

	"github.com/clickora/storefront/internal/domain"
)

func TestSimulatedOrderProcessor_AcceptsOrders(t *testing.T) {
	var slept time.Duration
	now := time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)
	p := NewSimulatedOrderProcessor(SimulatedOrderProcessorDeps{
		Delay: 2 * time.Second,
		Sleep: func(_ context.Context, d time.Duration) error {
			slept = d
			return nil
		},
		Clock:       fixedClock(now),
		OrderNumber: func() int { return 424242 },
	})

	result, err := p.Process(context.Background(), Order{Items: []domain.CartItem{{ID: 1, Name: "A", Price: decimal.RequireFromString("10"), Quantity: 1}}})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if slept != 2*time.Second {
		t.Fatalf("expected simulated delay, got %v", slept)
	}
	if !result.Succeeded || result.OrderNumber != 424242 || !result.ProcessedAt.Equal(now) {
		t.Fatalf("unexpected result %+v", result)
	}
	if _, err := ulid.Parse(result.OrderID); err != nil {
		t.Fatalf("expected ulid order id, got %q: %v", result.OrderID, err)
	}
}

func TestSimulatedOrderProcessor_DeclinesEmptyOrders(t *testing.T) {
	p := NewSimulatedOrderProcessor(SimulatedOrderProcessorDeps{Sleep: instantSleep})
	result, err := p.Process(context.Background(), Order{})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if result.Succeeded || result.Reason == "" || result.OrderID != "" {
		t.Fatalf("expected declined result, got %+v", result)
	}
}

func TestSimulatedOrderProcessor_HonoursCancellation(t *testing.T) {
	p := NewSimulatedOrderProcessor(SimulatedOrderProcessorDeps{Delay: time.Hour})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := p.Process(ctx, Order{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestSimulatedOrderProcessor_DefaultOrderNumberRange(t *testing.T) {
	p := NewSimulatedOrderProcessor(SimulatedOrderProcessorDeps{Sleep: instantSleep})
	for range 50 {
		n := p.orderNumber()
		if n < 100000 || n >= 1100000 {
			t.Fatalf("order number %d out of range", n)
		}
	}
}
