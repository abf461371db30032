package blobstore

import (
	"context"

	"golang.org/x/time/rate"
)

// Throttled limits the rate of Put calls on a sink. All workers share the
// limiter, so the bound is global to the run.
type Throttled struct {
	Sink
	limiter *rate.Limiter
}

// NewThrottled wraps s so that at most perSecond blobs are stored per second.
func NewThrottled(s Sink, perSecond float64, burst int) *Throttled {
	if burst < 1 {
		burst = 1
	}
	return &Throttled{Sink: s, limiter: rate.NewLimiter(rate.Limit(perSecond), burst)}
}

// Put waits for the limiter, then stores data.
func (t *Throttled) Put(ctx context.Context, name string, data []byte) error {
	if err := t.limiter.Wait(ctx); err != nil {
		return err
	}
	return t.Sink.Put(ctx, name, data)
}
