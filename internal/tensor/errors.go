package tensor

import (
	"errors"
	"fmt"
)

// ErrorCode classifies the failure modes of the differentiation core.
type ErrorCode int

// Error codes, one per failure class.
const (
	// ShapeMismatch: an operation was given incompatible dimensions.
	ShapeMismatch ErrorCode = iota
	// BackendMismatch: an operation mixed tensors resident on different
	// backends without an explicit Transfer.
	BackendMismatch
	// AllocationFailure: a backend could not satisfy a memory request.
	AllocationFailure
	// TapeConsumed: replay was called on a tape that was already replayed.
	TapeConsumed
	// NonDifferentiableRoot: backward was called on a tensor with no
	// recorded history.
	NonDifferentiableRoot
	// UseAfterFree: an operation touched a released storage descriptor.
	UseAfterFree
)

// String returns the canonical name of the error code.
func (c ErrorCode) String() string {
	switch c {
	case ShapeMismatch:
		return "shape-mismatch"
	case BackendMismatch:
		return "backend-mismatch"
	case AllocationFailure:
		return "allocation-failure"
	case TapeConsumed:
		return "tape-reuse"
	case NonDifferentiableRoot:
		return "non-differentiable-root"
	case UseAfterFree:
		return "use-after-free"
	default:
		return "unknown"
	}
}

// Error is the typed error value surfaced by the core. Op names the
// operation that detected the failure ("matmul", "replay", ...).
type Error struct {
	Code ErrorCode
	Op   string
	Msg  string
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.Op, e.Code, e.Msg)
}

// Errorf builds a typed *Error with a formatted message.
func Errorf(code ErrorCode, op, format string, args ...any) *Error {
	return &Error{Code: code, Op: op, Msg: fmt.Sprintf(format, args...)}
}

// IsCode reports whether err is (or wraps) a core *Error with the given code.
func IsCode(err error, code ErrorCode) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == code
}
