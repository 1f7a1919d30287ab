package ratelimit

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"
)

// Limiter spaces out page visits. The first Wait returns immediately, every
// later one blocks until the interval since the previous slot has elapsed,
// shifted by up to jitter*interval in either direction.
// It is safe for concurrent use by multiple goroutines.
type Limiter struct {
	mu       sync.Mutex
	interval time.Duration
	jitter   float64 // 0.0 to 1.0
	next     time.Time
}

// NewLimiter creates a limiter allowing rps visits per second. Jitter is
// clamped to [0, 1]. If rps is <= 0, the limiter does not block.
func NewLimiter(rps float64, jitter float64) *Limiter {
	if jitter < 0 {
		jitter = 0
	} else if jitter > 1 {
		jitter = 1
	}
	l := &Limiter{jitter: jitter}
	if rps > 0 {
		l.interval = time.Duration(float64(time.Second) / rps)
	}
	return l
}

// Interval reports the base spacing between visits.
func (l *Limiter) Interval() time.Duration {
	return l.interval
}

// Wait blocks until the next slot, or until the context is canceled.
func (l *Limiter) Wait(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if l == nil || l.interval <= 0 {
		return nil
	}

	l.mu.Lock()
	now := time.Now()
	slot := l.next
	if slot.Before(now) {
		slot = now
	}
	l.next = slot.Add(l.spacing())
	l.mu.Unlock()

	d := time.Until(slot)
	if d <= 0 {
		return nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (l *Limiter) spacing() time.Duration {
	if l.jitter == 0 {
		return l.interval
	}
	factor := rand.Float64()*2 - 1 // -1.0 to 1.0
	return l.interval + time.Duration(float64(l.interval)*l.jitter*factor)
}

// Stop is kept for callers that defer it; the limiter holds no timers
// between calls.
func (l *Limiter) Stop() {}
