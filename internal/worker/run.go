// Package worker runs bulk lookups with bounded concurrency.
package worker

import (
	"context"

	"github.com/sourcegraph/conc/iter"
)

// Result pairs an input with the outcome of processing it.
type Result[T any] struct {
	Input  string
	Output T
	Err    error
}

// Run applies fn to every input using at most concurrency goroutines and
// returns the results in input order. Inputs not yet started when ctx ends
// report ctx.Err() without calling fn.
func Run[T any](ctx context.Context, inputs []string, concurrency int, fn func(context.Context, string) (T, error)) []Result[T] {
	mapper := iter.Mapper[string, Result[T]]{MaxGoroutines: max(concurrency, 1)}
	return mapper.Map(inputs, func(input *string) Result[T] {
		r := Result[T]{Input: *input}
		if err := ctx.Err(); err != nil {
			r.Err = err
			return r
		}
		r.Output, r.Err = fn(ctx, *input)
		return r
	})
}
