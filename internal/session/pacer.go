package session

import (
	"context"
	"math/rand/v2"
	"time"
)

// Pacer inserts a random human-scale delay between consecutive actions so
// batches do not fire at machine cadence.
type Pacer struct {
	Min time.Duration
	Max time.Duration

	sleep func(ctx context.Context, d time.Duration) error
}

// NewPacer builds a pacer drawing delays uniformly from [min, max]. Invalid
// bounds fall back to the 2-6 second default window.
func NewPacer(min, max time.Duration) *Pacer {
	if min <= 0 || max < min {
		min, max = 2*time.Second, 6*time.Second
	}
	return &Pacer{Min: min, Max: max, sleep: sleepCtx}
}

// Wait blocks for a random delay in the pacer's window, or until ctx is done.
func (p *Pacer) Wait(ctx context.Context) error {
	d := p.Min
	if span := p.Max - p.Min; span > 0 {
		d += time.Duration(rand.Int64N(int64(span) + 1))
	}
	return p.sleep(ctx, d)
}
