package cpu

import (
	"github.com/tapegrad-ml/tapegrad/internal/parallel"
	"github.com/tapegrad-ml/tapegrad/internal/tensor"
)

// MatMul performs 2D matrix multiplication: (M,K) @ (K,N) -> (M,N).
// Rows are distributed across the worker pool.
func (c *Backend) MatMul(a, b *tensor.RawTensor) *tensor.RawTensor {
	aShape, bShape := a.Shape(), b.Shape()

	if len(aShape) != 2 || len(bShape) != 2 {
		panic(tensor.Errorf(tensor.ShapeMismatch, "matmul",
			"only 2D tensors supported, got %dD and %dD", len(aShape), len(bShape)))
	}
	if a.DType() != b.DType() {
		panic(tensor.Errorf(tensor.ShapeMismatch, "matmul", "dtype mismatch: %s vs %s", a.DType(), b.DType()))
	}

	m, k := aShape[0], aShape[1]
	kAlt, n := bShape[0], bShape[1]
	if k != kAlt {
		panic(tensor.Errorf(tensor.ShapeMismatch, "matmul",
			"inner dimensions differ: [%d,%d] @ [%d,%d]", m, k, kAlt, n))
	}

	result := mustAllocate("matmul", tensor.Shape{m, n}, a.DType(), c.device)

	switch a.DType() {
	case tensor.Float32:
		matmulSlice(result.AsFloat32(), a.AsFloat32(), b.AsFloat32(), m, k, n, c.pool)
	case tensor.Float64:
		matmulSlice(result.AsFloat64(), a.AsFloat64(), b.AsFloat64(), m, k, n, c.pool)
	case tensor.Int32:
		matmulSlice(result.AsInt32(), a.AsInt32(), b.AsInt32(), m, k, n, c.pool)
	case tensor.Int64:
		matmulSlice(result.AsInt64(), a.AsInt64(), b.AsInt64(), m, k, n, c.pool)
	}

	return result
}

// matmulSlice computes C[i,j] = sum_k A[i,k] * B[k,j], one output row per
// pool task. The k-inner ordering keeps B accesses sequential per row of A.
func matmulSlice[T number](dst, a, b []T, m, k, n int, pool parallel.Config) {
	parallel.For(m, func(i int) {
		row := dst[i*n : (i+1)*n]
		for j := range row {
			row[j] = 0
		}
		for kk := 0; kk < k; kk++ {
			av := a[i*k+kk]
			bRow := b[kk*n : (kk+1)*n]
			for j, bv := range bRow {
				row[j] += av * bv
			}
		}
	}, pool)
}
