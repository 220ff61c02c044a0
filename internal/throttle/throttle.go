package throttle

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"
)

// Throttler runs one function at a time and keeps a randomized gap between
// the end of one run and the start of the next.
type Throttler struct {
	sync.Mutex

	minInterval   time.Duration
	maxInterval   time.Duration
	lastExecution time.Time
}

func New(minInterval, maxInterval time.Duration) *Throttler {
	if minInterval > maxInterval {
		panic("minInterval must be less than maxInterval")
	}

	return &Throttler{
		minInterval: minInterval,
		maxInterval: maxInterval,
	}
}

func (t *Throttler) Run(ctx context.Context, f func(ctx context.Context) error) error {
	t.Lock()
	defer t.Unlock()

	// Pick a random throttle interval
	interval := t.minInterval + time.Duration(rand.Float64()*(float64(t.maxInterval-t.minInterval)))

	if wait := interval - time.Since(t.lastExecution); !t.lastExecution.IsZero() && wait > 0 {
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	err := f(ctx)
	t.lastExecution = time.Now()
	return err
}
