package automation

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/vatm-cli/internal/paragon"
)

// minInterval keeps a misconfigured refresh interval from spinning.
const minInterval = 100 * time.Millisecond

// Poller bounds a fixed-interval wait.
type Poller struct {
	Timeout  time.Duration
	Interval time.Duration
	Logger   *zap.Logger
}

// Predicate is evaluated once per poll. It reports a value and whether the
// wait is over.
type Predicate[T any] func(ctx context.Context) (T, bool, error)

// Poll evaluates fn until it resolves or the timeout passes, sleeping
// Interval between attempts. Running out of time is not an error: Poll
// returns the zero value and false. Errors wrapping
// paragon.ErrScreenUnavailable are logged and retried; any other error,
// including cancellation of ctx, ends the poll and is returned.
func Poll[T any](ctx context.Context, p Poller, fn Predicate[T]) (T, bool, error) {
	var zero T
	logger := p.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	interval := max(p.Interval, minInterval)

	start := time.Now()
	deadline := start.Add(p.Timeout)
	for attempt := 1; time.Now().Before(deadline); attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, false, err
		}

		v, ok, err := fn(ctx)
		switch {
		case err == nil && ok:
			return v, true, nil
		case err != nil && !errors.Is(err, paragon.ErrScreenUnavailable):
			return zero, false, err
		case err != nil:
			logger.Debug("Screen not readable yet, retrying.", zap.Int("attempt", attempt), zap.Error(err))
		}

		wait := min(interval, time.Until(deadline))
		if wait <= 0 {
			break
		}
		if err := Sleep(ctx, wait); err != nil {
			return zero, false, err
		}
	}
	return zero, false, nil
}

// Sleep pauses for d or until ctx is done, whichever comes first.
func Sleep(ctx context.Context, d time.Duration) error {
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
