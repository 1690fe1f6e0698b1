package usecase

import (
	"context"
	"testing"
)

func TestThenSkipsStageAfterFailure(t *testing.T) {
	t.Parallel()

	calls := 0
	double := Then(func(ctx context.Context, n int) Result[int] {
		calls++
		return Ok(n * 2)
	})

	failed := Fail[int](notFoundError("gone"))
	got := double(context.Background(), failed)
	if calls != 0 {
		t.Fatalf("stage ran on a failed input")
	}
	if got.Err != failed.Err {
		t.Fatalf("error not passed through: %+v", got.Err)
	}

	got = double(context.Background(), Ok(21))
	if calls != 1 || got.Err != nil || got.State != 42 {
		t.Fatalf("unexpected result: %+v calls=%d", got, calls)
	}
}

func TestThenStopsAtFirstFailure(t *testing.T) {
	t.Parallel()

	var ran []string
	stage := func(name string, fail bool) func(context.Context, Result[string]) Result[string] {
		return Then(func(ctx context.Context, in string) Result[string] {
			ran = append(ran, name)
			if fail {
				return Fail[string](upstreamError(name, nil))
			}
			return Ok(in + name)
		})
	}

	ctx := context.Background()
	out := stage("c", false)(ctx, stage("b", true)(ctx, stage("a", false)(ctx, Ok(""))))

	if len(ran) != 2 || ran[0] != "a" || ran[1] != "b" {
		t.Fatalf("unexpected stages: %v", ran)
	}
	if out.Err == nil || out.Err.Message != "b" {
		t.Fatalf("unexpected error: %+v", out.Err)
	}
}
