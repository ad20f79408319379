// Copyright 2025 The Tapegrad Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package webgpu provides the WebGPU backend for GPU-accelerated tensor
// operations.
//
// Element-wise float32 operations and matrix multiplication run as WGSL
// compute shaders; everything else falls back to CPU kernels with the
// result retagged as GPU-resident.
//
// Example:
//
//	import (
//	    "github.com/tapegrad-ml/tapegrad/autodiff"
//	    "github.com/tapegrad-ml/tapegrad/backend/webgpu"
//	    "github.com/tapegrad-ml/tapegrad/tensor"
//	)
//
//	func main() {
//	    gpu, err := webgpu.New()
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    defer gpu.Release()
//
//	    backend := autodiff.New(gpu)
//	    x := tensor.Randn[float32](tensor.Shape{1024, 1024}, backend)
//	}
package webgpu

import (
	internalwebgpu "github.com/tapegrad-ml/tapegrad/internal/backend/webgpu"
	"github.com/tapegrad-ml/tapegrad/tensor"
)

// Backend represents the WebGPU backend implementation.
type Backend = internalwebgpu.Backend

// Compile-time check that Backend implements tensor.Backend.
var _ tensor.Backend = (*Backend)(nil)

// New creates a new WebGPU backend.
//
// It initializes the WebGPU instance, adapter, and device. Call Release
// when done to free GPU resources. Returns an error if no compatible GPU
// or native library is available.
func New() (*Backend, error) {
	return internalwebgpu.New()
}

// IsAvailable reports whether a WebGPU device can be initialized on the
// current system.
func IsAvailable() bool {
	backend, err := New()
	if err != nil {
		return false
	}
	backend.Release()
	return true
}
