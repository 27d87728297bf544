package framework

import (
	"context"
	"time"
)

// DefaultInterval is used when Ticker.Interval is not set.
const DefaultInterval = 100 * time.Millisecond

// Ticker runs Func periodically, and immediately when triggered.
type Ticker struct {
	Interval time.Duration
	Func     func(context.Context)

	wakeUpCh chan struct{}
}

// NewTicker creates a Ticker.
func NewTicker(interval time.Duration, fn func(context.Context)) *Ticker {
	return &Ticker{Interval: interval, Func: fn, wakeUpCh: make(chan struct{}, 1)}
}

// TriggerNext schedules the next run immediately.
func (t *Ticker) TriggerNext() {
	select {
	case t.wakeUpCh <- struct{}{}:
	default:
	}
}

// Run implements Runnable.
func (t *Ticker) Run(ctx context.Context) error {
	if t.wakeUpCh == nil {
		t.wakeUpCh = make(chan struct{}, 1)
	}
	interval := t.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			t.Func(ctx)
		case <-t.wakeUpCh:
			t.Func(ctx)
		}
	}
}
