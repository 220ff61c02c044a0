package retry

import (
	"context"
	"math/rand/v2"
	"time"
)

type ExponentialBackoffWithJitter struct {
	Min         time.Duration // Minimal wait interval
	Max         time.Duration // Maximal wait interval
	Multiplier  float64       // Multiplier for the wait interval
	Jttr        float64       // Jitter for the wait interval
	MaxAttempts int           // Maximal number of attempts to run the function
}

// Retry runs f until it succeeds, returns a non-retriable error, the attempts
// run out or ctx is done. The last error is returned.
func (e *ExponentialBackoffWithJitter) Retry(ctx context.Context, f func(ctx context.Context) error, retriable func(error) bool) error {
	backoff := e.Min

	attempts := max(e.MaxAttempts, 1)
	var lastRetriableErr error
	for i := 0; i < attempts; i++ {
		err := f(ctx)

		if err == nil {
			return nil
		}

		if !retriable(err) {
			return err
		}

		lastRetriableErr = err
		if i == attempts-1 {
			break
		}

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return lastRetriableErr
		case <-timer.C:
		}

		backoff = time.Duration(float64(backoff) * e.Multiplier)
		backoff += time.Duration(rand.Float64() * e.Jttr * float64(backoff))
		if backoff > e.Max {
			backoff = e.Max
		}
	}

	return lastRetriableErr
}
