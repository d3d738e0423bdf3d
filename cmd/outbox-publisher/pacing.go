package main

import (
	"context"
	"math/rand/v2"
	"time"
)

const (
	backoffCeiling = 10 * time.Second
	jitterSpread   = 250 * time.Millisecond
)

// pacer doubles the wait after each failed batch, up to backoffCeiling.
type pacer struct {
	base    time.Duration
	current time.Duration
}

func newPacer(base time.Duration) *pacer {
	if base <= 0 {
		base = fallbackPoll
	}
	return &pacer{base: base, current: base}
}

func (p *pacer) failed() time.Duration {
	p.current = min(p.current*2, backoffCeiling)
	return jittered(p.current)
}

func (p *pacer) idle() time.Duration {
	return jittered(p.base)
}

func (p *pacer) reset() {
	p.current = p.base
}

func jittered(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	return d + rand.N(jitterSpread)
}

func pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
