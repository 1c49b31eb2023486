package domain

import "fmt"

// CallResult is the outcome of a remote procedure call: Map, Scalar or Fault.
type CallResult interface {
	callResult()
}

// Map is a structured result keyed by field name.
type Map map[string]any

// Scalar is a plain string result.
type Scalar string

// Fault is a failed call. Reason wraps one of the sentinel errors.
type Fault struct {
	Reason error
}

func (Map) callResult()    {}
func (Scalar) callResult() {}
func (Fault) callResult()  {}

func (f Fault) Error() string {
	if f.Reason == nil {
		return ErrServiceUnavailable.Error()
	}
	return f.Reason.Error()
}

func (f Fault) Unwrap() error {
	if f.Reason == nil {
		return ErrServiceUnavailable
	}
	return f.Reason
}

// ExpectMap returns the map carried by r. A Fault yields its reason,
// any other shape is a protocol violation.
func ExpectMap(r CallResult) (Map, error) {
	switch v := r.(type) {
	case Map:
		return v, nil
	case Fault:
		return nil, v
	default:
		return nil, fmt.Errorf("%w: expected struct result, got %T", ErrInternal, r)
	}
}

// ExpectScalar returns the string carried by r. A Fault yields its reason,
// any other shape is a protocol violation.
func ExpectScalar(r CallResult) (string, error) {
	switch v := r.(type) {
	case Scalar:
		return string(v), nil
	case Fault:
		return "", v
	default:
		return "", fmt.Errorf("%w: expected string result, got %T", ErrInternal, r)
	}
}
