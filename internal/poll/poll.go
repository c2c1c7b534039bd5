package poll

import (
	"context"
	"fmt"
	"time"
)

// Options bounds a wait loop. MaxAttempts <= 0 polls until the check
// reports done, fails, or ctx is cancelled.
type Options struct {
	Interval    time.Duration
	MaxAttempts int
}

// ExhaustedError is returned when MaxAttempts checks ran without the
// operation reaching a terminal state.
type ExhaustedError struct {
	Attempts int
	Waited   time.Duration
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("poll: not done after %d attempts (%s)", e.Attempts, e.Waited.Round(time.Millisecond))
}

// CheckFunc reports whether the awaited operation is done. A non-nil error
// stops polling immediately and is returned unchanged.
type CheckFunc func(ctx context.Context, attempt int) (done bool, err error)

// Until runs check right away and then once per Interval until it returns
// done, returns an error, or the attempt budget is spent.
func Until(ctx context.Context, opt Options, check CheckFunc) error {
	if opt.Interval <= 0 {
		opt.Interval = time.Second
	}

	start := time.Now()
	for attempt := 1; ; attempt++ {
		done, err := check(ctx, attempt)
		if err != nil {
			return err
		}
		if done {
			return nil
		}
		if opt.MaxAttempts > 0 && attempt >= opt.MaxAttempts {
			return &ExhaustedError{Attempts: attempt, Waited: time.Since(start)}
		}

		t := time.NewTimer(opt.Interval)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}
}
