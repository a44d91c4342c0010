package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Branch names used in logs and metrics.
const (
	BranchLoad      = "load"
	BranchRepo      = "repository"
	BranchAudit     = "audit"
	BranchNarrative = "narrative"
)

// errSkipped marks a branch whose input was not supplied.
var errSkipped = errors.New("branch skipped: no input")

// Result is the settled outcome of one branch. Value is the zero value
// whenever Err is set.
type Result[T any] struct {
	Value   T
	Err     error
	Elapsed time.Duration
}

// OK reports whether the branch produced a value.
func (r Result[T]) OK() bool { return r.Err == nil }

// Skipped reports whether the branch never ran.
func (r Result[T]) Skipped() bool { return r.Err == errSkipped }

func skipped[T any]() Result[T] {
	return Result[T]{Err: errSkipped}
}

// settle runs fn under its own timeout and converts every failure mode into
// Result.Err: returned errors, panics, and collaborators that ignore ctx and
// overrun the deadline.
func settle[T any](ctx context.Context, timeout time.Duration, fn func(context.Context) (T, error)) Result[T] {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan Result[T], 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- Result[T]{Err: fmt.Errorf("branch panicked: %v", r)}
			}
		}()
		v, err := fn(ctx)
		done <- Result[T]{Value: v, Err: err}
	}()

	var res Result[T]
	select {
	case res = <-done:
		if res.Err == nil && ctx.Err() != nil {
			res.Err = fmt.Errorf("branch overran its deadline: %w", ctx.Err())
		}
		if res.Err != nil {
			var zero T
			res.Value = zero
		}
	case <-ctx.Done():
		res = Result[T]{Err: fmt.Errorf("branch abandoned: %w", ctx.Err())}
	}
	res.Elapsed = time.Since(start)
	return res
}
