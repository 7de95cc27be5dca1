package interceptor

import (
	"context"
	"fmt"
	"time"

	"github.com/openbidder/bidserver/errortypes"
)

// Bounded runs a collaborator call and waits at most timeout for it. On expiry it returns a
// *errortypes.Timeout and the late result of call is dropped. A timeout <= 0 only bounds the call by
// the deadline of ctx.
func Bounded[T any](ctx context.Context, timeout time.Duration, call func(ctx context.Context) (T, error)) (T, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	type result struct {
		value T
		err   error
	}
	done := make(chan result, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				var zero T
				done <- result{zero, fmt.Errorf("collaborator panic: %v", r)}
			}
		}()
		v, err := call(ctx)
		done <- result{v, err}
	}()

	select {
	case r := <-done:
		return r.value, r.err
	case <-ctx.Done():
		var zero T
		return zero, &errortypes.Timeout{Message: fmt.Sprintf("collaborator call did not complete: %v", ctx.Err())}
	}
}
