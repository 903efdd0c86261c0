package fn

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
)

// Stage is one context-aware step of a workflow: it consumes an In and
// produces a Result[Out].
type Stage[In, Out any] func(context.Context, In) Result[Out]

// Pipeline chains same-typed stages into one. The first failing stage
// ends the run and its error is returned; otherwise each stage feeds
// the next.
func Pipeline[T any](stages ...Stage[T, T]) Stage[T, T] {
	return func(ctx context.Context, v T) Result[T] {
		for _, stage := range stages {
			r := stage(ctx, v)
			if r.err != nil {
				return r
			}
			v = r.val
		}
		return Ok(v)
	}
}

// TracedStage runs the stage inside an OpenTelemetry span named name.
// Stage errors are recorded on the span.
func TracedStage[In, Out any](name string, stage Stage[In, Out]) Stage[In, Out] {
	tracer := otel.Tracer("fieldmate/fn")
	return func(ctx context.Context, in In) Result[Out] {
		ctx, span := tracer.Start(ctx, name)
		defer span.End()

		r := stage(ctx, in)
		if r.err != nil {
			span.RecordError(r.err)
			span.SetStatus(codes.Error, r.err.Error())
		}
		return r
	}
}
