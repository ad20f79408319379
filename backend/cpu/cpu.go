// Copyright 2025 The Tapegrad Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package cpu provides a pure Go CPU backend for tensor operations.
//
// The backend implements every kernel with portable Go loops and splits
// large element-wise operations across a chunked worker pool. It supports
// NumPy-compatible broadcasting and float32, float64, int32, and int64
// element types.
package cpu

import (
	internalcpu "github.com/tapegrad-ml/tapegrad/internal/backend/cpu"
	"github.com/tapegrad-ml/tapegrad/tensor"
)

// Backend represents the CPU backend implementation.
type Backend = internalcpu.Backend

// Compile-time check that Backend implements tensor.Backend.
var _ tensor.Backend = (*Backend)(nil)

// New creates a new CPU backend.
//
// Example:
//
//	backend := cpu.New()
//	x := tensor.Zeros[float32](tensor.Shape{2, 3}, backend)
func New() *Backend {
	return internalcpu.New()
}
