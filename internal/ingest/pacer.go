package ingest

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Pacer spaces out requests by a fixed interval, the first Wait returns
// immediately.
type Pacer struct {
	limiter *rate.Limiter
}

// NewPacer returns a pacer allowing one request per interval, an interval
// of zero disables pacing.
func NewPacer(interval time.Duration) *Pacer {
	if interval <= 0 {
		return &Pacer{}
	}
	return &Pacer{limiter: rate.NewLimiter(rate.Every(interval), 1)}
}

func (p *Pacer) Wait(ctx context.Context) error {
	if p == nil || p.limiter == nil {
		return ctx.Err()
	}
	return p.limiter.Wait(ctx)
}
