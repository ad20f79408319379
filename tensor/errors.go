// Copyright 2025 The Tapegrad Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package tensor

import (
	"github.com/tapegrad-ml/tapegrad/internal/tensor"
)

// ErrorCode classifies a failure.
type ErrorCode = tensor.ErrorCode

// Error codes, one per failure class.
const (
	ShapeMismatch         ErrorCode = tensor.ShapeMismatch
	BackendMismatch       ErrorCode = tensor.BackendMismatch
	AllocationFailure     ErrorCode = tensor.AllocationFailure
	TapeConsumed          ErrorCode = tensor.TapeConsumed
	NonDifferentiableRoot ErrorCode = tensor.NonDifferentiableRoot
	UseAfterFree          ErrorCode = tensor.UseAfterFree
)

// Error is the typed error carried by both panics from forward kernels
// and error returns from resource and replay operations.
type Error = tensor.Error

// Errorf builds a typed error for the given code and operation.
func Errorf(code ErrorCode, op, format string, args ...any) *Error {
	return tensor.Errorf(code, op, format, args...)
}

// IsCode reports whether err is a tensor error with the given code.
func IsCode(err error, code ErrorCode) bool {
	return tensor.IsCode(err, code)
}
