package platform

import (
	"context"
	"time"

	"github.com/sony/gobreaker"

	"github.com/dealwire/social-engine/internal/render"
)

const (
	breakerMaxRequests = 1
	breakerInterval    = 5 * time.Minute
	breakerTimeout     = 10 * time.Minute
	breakerMinRequests = 3
	breakerFailureRate = 0.6
)

// BreakerPublisher wraps a Publisher with a circuit breaker so a platform
// that is hard-down stops consuming cycle time. A tripped breaker fails the
// attempt immediately; the orchestrator records it like any other publish
// failure and moves on to the next platform.
type BreakerPublisher struct {
	inner   Publisher
	breaker *gobreaker.CircuitBreaker
}

// WithBreaker wraps a publisher with its own circuit breaker.
func WithBreaker(inner Publisher) *BreakerPublisher {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        inner.Name(),
		MaxRequests: breakerMaxRequests,
		Interval:    breakerInterval,
		Timeout:     breakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < breakerMinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= breakerFailureRate
		},
	})

	return &BreakerPublisher{inner: inner, breaker: cb}
}

func (b *BreakerPublisher) Name() string         { return b.inner.Name() }
func (b *BreakerPublisher) NeedsPublicURL() bool { return b.inner.NeedsPublicURL() }
func (b *BreakerPublisher) FlyerFormat() string  { return b.inner.FlyerFormat() }

func (b *BreakerPublisher) Publish(ctx context.Context, caption render.Caption, img ImagePayload) (string, error) {
	result, err := b.breaker.Execute(func() (any, error) {
		return b.inner.Publish(ctx, caption, img)
	})
	if err != nil {
		return "", err
	}
	id, _ := result.(string)
	return id, nil
}
