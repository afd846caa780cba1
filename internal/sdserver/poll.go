package sdserver

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// errBudgetExceeded is returned by pollUntil when the budget elapses first.
var errBudgetExceeded = errors.New("poll budget exceeded")

// pollUntil calls check every interval until it reports done, returns an
// error wrapped with backoff.Permanent, budget elapses or ctx ends. The last
// transient error returned by check is passed back alongside
// errBudgetExceeded so callers can report it.
func pollUntil(ctx context.Context, interval, budget time.Duration, check func(ctx context.Context) (bool, error)) (last error, err error) {
	pctx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()
	b := backoff.WithContext(backoff.NewConstantBackOff(interval), pctx)
	err = backoff.Retry(func() error {
		done, cerr := check(pctx)
		if cerr != nil {
			var perm *backoff.PermanentError
			if errors.As(cerr, &perm) {
				return cerr
			}
			last = cerr
			return cerr
		}
		if !done {
			return errNotYet
		}
		return nil
	}, b)
	if err == nil {
		return nil, nil
	}
	if ctx.Err() != nil {
		return last, ctx.Err()
	}
	if pctx.Err() != nil {
		return last, errBudgetExceeded
	}
	return last, err
}

var errNotYet = errors.New("not yet")
