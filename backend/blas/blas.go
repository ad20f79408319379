// Copyright 2025 The Tapegrad Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package blas provides a CPU backend that routes matrix multiplication
// through gonum's BLAS implementation.
//
// All memory stays CPU-resident, so the backend reports
// Device() == tensor.CPU and its tensors mix freely with the plain CPU
// backend's. Every operation other than MatMul falls through to the
// portable loop kernels.
package blas

import (
	internalblas "github.com/tapegrad-ml/tapegrad/internal/backend/blas"
	"github.com/tapegrad-ml/tapegrad/tensor"
)

// Backend represents the BLAS-accelerated CPU backend.
type Backend = internalblas.Backend

// Compile-time check that Backend implements tensor.Backend.
var _ tensor.Backend = (*Backend)(nil)

// New creates a new BLAS backend.
//
// Example:
//
//	backend := blas.New()
//	a := tensor.Randn[float64](tensor.Shape{512, 512}, backend)
//	b := tensor.Randn[float64](tensor.Shape{512, 512}, backend)
//	c := a.MatMul(b) // GEMM via gonum
func New() *Backend {
	return internalblas.New()
}
