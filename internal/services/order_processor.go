package services

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/oklog/ulid/v2"
)

const (
	orderNumberBase  = 100000
	orderNumberRange = 1000000
)

// SimulatedOrderProcessorDeps configures the stand-in for a payment backend.
type SimulatedOrderProcessorDeps struct {
	Delay time.Duration
	Sleep Sleeper
	Clock func() time.Time
	// OrderNumber draws the display number; defaults to a random value in
	// [100000, 1099999].
	OrderNumber func() int
}

// SimulatedOrderProcessor waits for a fixed delay and accepts every non-empty order.
type SimulatedOrderProcessor struct {
	delay       time.Duration
	sleep       Sleeper
	now         func() time.Time
	orderNumber func() int
}

// NewSimulatedOrderProcessor constructs the processor.
func NewSimulatedOrderProcessor(deps SimulatedOrderProcessorDeps) *SimulatedOrderProcessor {
	p := &SimulatedOrderProcessor{
		delay:       deps.Delay,
		sleep:       deps.Sleep,
		now:         deps.Clock,
		orderNumber: deps.OrderNumber,
	}
	if p.sleep == nil {
		p.sleep = ContextSleep
	}
	if p.now == nil {
		p.now = time.Now
	}
	if p.orderNumber == nil {
		p.orderNumber = func() int { return orderNumberBase + rand.IntN(orderNumberRange) }
	}
	return p
}

// Process implements OrderProcessor.
func (p *SimulatedOrderProcessor) Process(ctx context.Context, order Order) (OrderResult, error) {
	if err := p.sleep(ctx, p.delay); err != nil {
		return OrderResult{}, err
	}
	now := p.now().UTC()
	if len(order.Items) == 0 {
		return OrderResult{Succeeded: false, Reason: "order has no items", ProcessedAt: now}, nil
	}
	return OrderResult{
		Succeeded:   true,
		OrderID:     ulid.Make().String(),
		OrderNumber: p.orderNumber(),
		ProcessedAt: now,
	}, nil
}
