// Package fn provides the small functional toolkit the recommendation
// workflow is built from: a Result type, composable context-aware
// stages, bounded parallel mapping, and retry with backoff.
package fn

import "fmt"

// Result holds either a value or the error that prevented one. A Result
// is ok exactly when its error is nil.
type Result[T any] struct {
	val T
	err error
}

// Ok wraps a value.
func Ok[T any](v T) Result[T] {
	return Result[T]{val: v}
}

// Err wraps a failure. The error should be non-nil; Err with a nil
// error is indistinguishable from Ok with a zero value.
func Err[T any](err error) Result[T] {
	return Result[T]{err: err}
}

// Errf wraps a failure built with fmt.Errorf, so %w wrapping works.
func Errf[T any](format string, args ...any) Result[T] {
	return Result[T]{err: fmt.Errorf(format, args...)}
}

// IsOk reports whether the result carries a value.
func (r Result[T]) IsOk() bool { return r.err == nil }

// IsErr reports whether the result carries an error.
func (r Result[T]) IsErr() bool { return r.err != nil }

// Unwrap returns the value and error as an ordinary Go pair.
func (r Result[T]) Unwrap() (T, error) { return r.val, r.err }
