package client

// Result is the uniform envelope every client operation returns. Exactly one
// of value and error is populated; Ok reports which.
type Result[T any] struct {
	value T
	err   error
	ok    bool
}

// OkResult wraps a successful value
func OkResult[T any](value T) Result[T] {
	return Result[T]{value: value, ok: true}
}

// FailResult wraps a failure
func FailResult[T any](err error) Result[T] {
	return Result[T]{err: err}
}

// Ok reports whether the operation succeeded
func (r Result[T]) Ok() bool {
	return r.ok
}

// Failure reports whether the operation failed
func (r Result[T]) Failure() bool {
	return !r.ok
}

// Value returns the payload. On failure it returns the zero value; check Ok
// or Err first.
func (r Result[T]) Value() T {
	return r.value
}

// Err returns the failure cause, nil on success
func (r Result[T]) Err() error {
	return r.err
}

// IsEmpty reports whether a successful result carries no payload (a null
// reply from the server)
func (r Result[T]) IsEmpty() bool {
	if !r.ok {
		return false
	}
	return isNil(r.value)
}

func isNil(v any) bool {
	return v == nil
}
