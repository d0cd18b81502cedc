package audio

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker"
)

// BreakerSynthesizer stops calling a provider after repeated quota errors.
// Other failures do not count towards tripping.
type BreakerSynthesizer struct {
	next Synthesizer
	cb   *gobreaker.CircuitBreaker
}

// NewBreakerSynthesizer wraps next in a circuit breaker that opens after
// trips consecutive quota errors and probes again after a minute
func NewBreakerSynthesizer(next Synthesizer, trips uint32) Synthesizer {
	settings := gobreaker.Settings{
		Name:        "speech-" + next.Name(),
		MaxRequests: 1,
		Timeout:     time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= trips
		},
		IsSuccessful: func(err error) bool {
			return err == nil || !IsQuotaError(err)
		},
	}
	return &BreakerSynthesizer{next: next, cb: gobreaker.NewCircuitBreaker(settings)}
}

// Synthesize forwards to the wrapped provider unless the breaker is open
func (b *BreakerSynthesizer) Synthesize(ctx context.Context, text string) (*Buffer, error) {
	result, err := b.cb.Execute(func() (interface{}, error) {
		return b.next.Synthesize(ctx, text)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%w (%s paused: %v)", ErrQuotaExceeded, b.next.Name(), err)
	}
	if err != nil {
		return nil, err
	}
	return result.(*Buffer), nil
}

// State returns the breaker state
func (b *BreakerSynthesizer) State() gobreaker.State {
	return b.cb.State()
}

// Name returns the wrapped provider name
func (b *BreakerSynthesizer) Name() string {
	return b.next.Name()
}

// IsAvailable reports the wrapped provider availability
func (b *BreakerSynthesizer) IsAvailable() error {
	return b.next.IsAvailable()
}
