package upstream

// Result carries either a value or the failure that prevented it. Callers
// choose explicitly between propagating the failure (Get) and replacing it
// with a default (OrElse).
type Result[T any] struct {
	value T
	err   error
}

// Capture wraps a (value, error) pair.
func Capture[T any](v T, err error) Result[T] {
	if err != nil {
		var zero T
		return Result[T]{value: zero, err: err}
	}
	return Result[T]{value: v}
}

// Ok wraps a successful value.
func Ok[T any](v T) Result[T] { return Result[T]{value: v} }

// Fail wraps a failure.
func Fail[T any](err error) Result[T] { return Result[T]{err: err} }

// Get returns the value or the failure.
func (r Result[T]) Get() (T, error) { return r.value, r.err }

// Err returns the failure, or nil.
func (r Result[T]) Err() error { return r.err }

// Ok reports whether the result holds a value.
func (r Result[T]) Ok() bool { return r.err == nil }

// OrElse returns the value, or def when the call failed.
func (r Result[T]) OrElse(def T) T {
	if r.err != nil {
		return def
	}
	return r.value
}
