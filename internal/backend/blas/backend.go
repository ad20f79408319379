// Package blas implements a CPU-resident backend that routes matrix
// multiplication through gonum's BLAS bindings. Every other kernel is
// inherited from the portable CPU backend, so the two backends share
// residency and tensors move between them without a Transfer.
package blas

import (
	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/blas32"
	"gonum.org/v1/gonum/blas/blas64"

	"github.com/tapegrad-ml/tapegrad/internal/backend/cpu"
	"github.com/tapegrad-ml/tapegrad/internal/tensor"
)

// Backend is the portable CPU backend with GEMM replaced by BLAS.
type Backend struct {
	*cpu.Backend
}

// New creates a new BLAS backend.
func New() *Backend {
	return &Backend{Backend: cpu.New()}
}

// Name returns the backend name.
func (b *Backend) Name() string { return "BLAS" }

// MatMul performs 2D matrix multiplication: (M,K) @ (K,N) -> (M,N).
// Float matrices go through single- or double-precision GEMM; integer
// matrices fall back to the portable loop kernel.
func (b *Backend) MatMul(x, y *tensor.RawTensor) *tensor.RawTensor {
	xShape, yShape := x.Shape(), y.Shape()

	if len(xShape) != 2 || len(yShape) != 2 {
		panic(tensor.Errorf(tensor.ShapeMismatch, "matmul",
			"only 2D tensors supported, got %dD and %dD", len(xShape), len(yShape)))
	}
	if x.DType() != y.DType() {
		panic(tensor.Errorf(tensor.ShapeMismatch, "matmul", "dtype mismatch: %s vs %s", x.DType(), y.DType()))
	}

	m, k := xShape[0], xShape[1]
	kAlt, n := yShape[0], yShape[1]
	if k != kAlt {
		panic(tensor.Errorf(tensor.ShapeMismatch, "matmul",
			"inner dimensions differ: [%d,%d] @ [%d,%d]", m, k, kAlt, n))
	}

	switch x.DType() {
	case tensor.Float32, tensor.Float64:
	default:
		return b.Backend.MatMul(x, y)
	}

	result, err := tensor.NewRaw(tensor.Shape{m, n}, x.DType(), b.Device())
	if err != nil {
		panic(tensor.Errorf(tensor.AllocationFailure, "matmul", "result allocation: %v", err))
	}

	switch x.DType() {
	case tensor.Float32:
		blas32.Gemm(blas.NoTrans, blas.NoTrans, 1,
			blas32.General{Rows: m, Cols: k, Stride: k, Data: x.AsFloat32()},
			blas32.General{Rows: k, Cols: n, Stride: n, Data: y.AsFloat32()},
			0,
			blas32.General{Rows: m, Cols: n, Stride: n, Data: result.AsFloat32()})
	case tensor.Float64:
		blas64.Gemm(blas.NoTrans, blas.NoTrans, 1,
			blas64.General{Rows: m, Cols: k, Stride: k, Data: x.AsFloat64()},
			blas64.General{Rows: k, Cols: n, Stride: n, Data: y.AsFloat64()},
			0,
			blas64.General{Rows: m, Cols: n, Stride: n, Data: result.AsFloat64()})
	}

	return result
}

var _ tensor.Backend = (*Backend)(nil)
