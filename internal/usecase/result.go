package usecase

import "context"

// Result carries either the state produced by a stage or the error that
// stopped the pipeline.
type Result[S any] struct {
	State S
	Err   *PipelineError
}

// Ok wraps a successful stage output.
func Ok[S any](state S) Result[S] {
	return Result[S]{State: state}
}

// Fail wraps a stage error.
func Fail[S any](err *PipelineError) Result[S] {
	return Result[S]{Err: err}
}

// Then lifts stage so it only runs on a successful input; an incoming error
// is passed through and stage is never called.
func Then[In, Out any](stage func(context.Context, In) Result[Out]) func(context.Context, Result[In]) Result[Out] {
	return func(ctx context.Context, in Result[In]) Result[Out] {
		if in.Err != nil {
			return Fail[Out](in.Err)
		}
		return stage(ctx, in.State)
	}
}
