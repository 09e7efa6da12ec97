package auth

import (
	"context"
	"errors"
	"fmt"
)

// ErrQueryFault is returned when evaluating a principal's authorization
// panics or the principal is unusable.
var ErrQueryFault = errors.New("authorization query fault")

// Result is the outcome of an authorization query.
type Result struct {
	Authorized bool
	Err        error
}

// Check runs p.Authorize and converts a nil principal or a panic into an
// ErrQueryFault error. Denials are reported as (false, nil).
func Check(ctx context.Context, p Principal, role Role) (authorized bool, err error) {
	if p == nil {
		return false, fmt.Errorf("%w: %w", ErrQueryFault, ErrNoPrincipal)
	}
	defer func() {
		if r := recover(); r != nil {
			authorized = false
			err = fmt.Errorf("%w: %v", ErrQueryFault, r)
		}
	}()
	return p.Authorize(ctx, role)
}

// CheckAsync starts an authorization query and returns a channel that
// receives exactly one Result and is then closed. If ctx ends before the
// query finishes, the Result carries ctx.Err(); the query goroutine still
// drains into the buffered channel and exits.
func CheckAsync(ctx context.Context, p Principal, role Role) <-chan Result {
	out := make(chan Result, 1)
	done := make(chan Result, 1)

	go func() {
		ok, err := Check(ctx, p, role)
		done <- Result{Authorized: ok, Err: err}
	}()

	go func() {
		defer close(out)
		select {
		case res := <-done:
			out <- res
		case <-ctx.Done():
			out <- Result{Err: ctx.Err()}
		}
	}()

	return out
}
