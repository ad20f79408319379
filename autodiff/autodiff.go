// Copyright 2025 The Tapegrad Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package autodiff provides reverse-mode automatic differentiation.
//
// The package implements backpropagation using a gradient tape. It wraps
// any backend with a decorator that records operations during the forward
// pass and replays them in reverse to accumulate gradients.
//
// Example:
//
//	import (
//	    "github.com/tapegrad-ml/tapegrad/autodiff"
//	    "github.com/tapegrad-ml/tapegrad/backend/cpu"
//	    "github.com/tapegrad-ml/tapegrad/tensor"
//	)
//
//	func main() {
//	    // Wrap CPU backend with autodiff
//	    backend := autodiff.New(cpu.New())
//	    backend.Tape().StartRecording()
//
//	    x := tensor.Ones[float32](tensor.Shape{2, 3}, backend).RequireGrad()
//	    loss := x.Square().Sum() // Operations recorded on tape
//
//	    // Compute gradients
//	    grads, err := autodiff.Backward(loss, backend)
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    dx, _ := grads.Peek(x.ID())
//	}
package autodiff

import (
	"github.com/tapegrad-ml/tapegrad/internal/autodiff"
	"github.com/tapegrad-ml/tapegrad/internal/tensor"
)

// Backend is the autodiff-enabled backend decorator.
type Backend[B tensor.Backend] = autodiff.AutodiffBackend[B]

// New creates a new autodiff backend wrapping the given backend.
//
// Example:
//
//	base := cpu.New()
//	backend := autodiff.New(base)
func New[B tensor.Backend](backend B) *Backend[B] {
	return autodiff.New(backend)
}

// GradientTape records operations for automatic differentiation.
//
// A tape is single-use: once replayed it refuses further replays until
// Clear re-arms it.
type GradientTape = autodiff.GradientTape

// NewGradientTape creates a new gradient tape. Recording starts disabled.
func NewGradientTape() *GradientTape {
	return autodiff.NewGradientTape()
}

// Gradients holds accumulated gradients keyed by tensor ID.
type Gradients = autodiff.Gradients

// NewGradients creates an empty gradient store.
func NewGradients() *Gradients {
	return autodiff.NewGradients()
}

// BackwardCapable is the interface for backends that support
// backpropagation.
type BackwardCapable = autodiff.BackwardCapable

// Backward computes gradients of the scalar loss with respect to every
// tensor that contributed to it, by replaying the tape in reverse.
func Backward[T tensor.DType, B BackwardCapable](loss *tensor.Tensor[T, B], backend B) (*Gradients, error) {
	return autodiff.Backward(loss, backend)
}
