package worker

import (
	"context"
	"sync"
)

// Outcome is the result of one Map call, in input order
type Outcome[T any] struct {
	Value T
	Err   error
}

// Map applies fn to every input with at most workers calls in flight and
// returns the outcomes in input order. Inputs not started before ctx is
// cancelled report ctx.Err().
func Map[In, Out any](ctx context.Context, workers int, inputs []In, fn func(context.Context, In) (Out, error)) []Outcome[Out] {
	outcomes := make([]Outcome[Out], len(inputs))
	if len(inputs) == 0 {
		return outcomes
	}
	if workers <= 0 {
		workers = 1
	}

	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup

	for i, in := range inputs {
		select {
		case <-ctx.Done():
			outcomes[i].Err = ctx.Err()
			continue
		case sem <- struct{}{}:
		}

		wg.Add(1)
		go func(i int, in In) {
			defer wg.Done()
			defer func() { <-sem }()

			v, err := fn(ctx, in)
			outcomes[i] = Outcome[Out]{Value: v, Err: err}
		}(i, in)
	}

	wg.Wait()
	return outcomes
}
