package cpu

import "github.com/tapegrad-ml/tapegrad/internal/tensor"

// Reshape returns a tensor with the same elements and a different shape.
func (c *Backend) Reshape(t *tensor.RawTensor, newShape tensor.Shape) *tensor.RawTensor {
	if err := newShape.Validate(); err != nil {
		panic(tensor.Errorf(tensor.ShapeMismatch, "reshape", "invalid shape: %v", err))
	}
	if t.NumElements() != newShape.NumElements() {
		panic(tensor.Errorf(tensor.ShapeMismatch, "reshape",
			"incompatible shapes: %v -> %v (different number of elements)", t.Shape(), newShape))
	}

	result := mustAllocate("reshape", newShape, t.DType(), c.device)
	copy(result.Data(), t.Data())
	return result
}

// Transpose permutes the tensor's dimensions. With no axes given, all
// dimensions are reversed.
func (c *Backend) Transpose(t *tensor.RawTensor, axes ...int) *tensor.RawTensor {
	shape := t.Shape()
	ndim := len(shape)

	if len(axes) == 0 {
		axes = make([]int, ndim)
		for i := range axes {
			axes[i] = ndim - 1 - i
		}
	}

	if len(axes) != ndim {
		panic(tensor.Errorf(tensor.ShapeMismatch, "transpose", "axes length %d != ndim %d", len(axes), ndim))
	}
	seen := make([]bool, ndim)
	for _, ax := range axes {
		if ax < 0 || ax >= ndim {
			panic(tensor.Errorf(tensor.ShapeMismatch, "transpose", "invalid axis %d for %dD tensor", ax, ndim))
		}
		if seen[ax] {
			panic(tensor.Errorf(tensor.ShapeMismatch, "transpose", "duplicate axis %d", ax))
		}
		seen[ax] = true
	}

	newShape := make(tensor.Shape, ndim)
	for i, ax := range axes {
		newShape[i] = shape[ax]
	}

	result := mustAllocate("transpose", newShape, t.DType(), c.device)

	switch t.DType() {
	case tensor.Float32:
		transposeSlice(result.AsFloat32(), t.AsFloat32(), shape, newShape, axes)
	case tensor.Float64:
		transposeSlice(result.AsFloat64(), t.AsFloat64(), shape, newShape, axes)
	case tensor.Int32:
		transposeSlice(result.AsInt32(), t.AsInt32(), shape, newShape, axes)
	case tensor.Int64:
		transposeSlice(result.AsInt64(), t.AsInt64(), shape, newShape, axes)
	}

	return result
}

// transposeSlice copies src into dst with dimensions permuted by axes:
// dst coordinate d maps to src coordinate axes[d].
func transposeSlice[T number](dst, src []T, srcShape, dstShape tensor.Shape, axes []int) {
	srcStrides := srcShape.ComputeStrides()
	dstStrides := dstShape.ComputeStrides()
	n := dstShape.NumElements()

	for i := 0; i < n; i++ {
		srcIdx := 0
		temp := i
		for d := 0; d < len(dstShape); d++ {
			coord := temp / dstStrides[d]
			temp %= dstStrides[d]
			srcIdx += coord * srcStrides[axes[d]]
		}
		dst[i] = src[srcIdx]
	}
}

// Expand materializes a broadcast of x to the given shape.
func (c *Backend) Expand(x *tensor.RawTensor, shape tensor.Shape) *tensor.RawTensor {
	out, _, err := tensor.BroadcastShapes(x.Shape(), shape)
	if err != nil || !out.Equal(shape) {
		panic(tensor.Errorf(tensor.ShapeMismatch, "expand",
			"cannot broadcast %v to %v", x.Shape(), shape))
	}

	result := mustAllocate("expand", shape, x.DType(), c.device)

	switch x.DType() {
	case tensor.Float32:
		expandSlice(result.AsFloat32(), x.AsFloat32(), shape, x.Shape())
	case tensor.Float64:
		expandSlice(result.AsFloat64(), x.AsFloat64(), shape, x.Shape())
	case tensor.Int32:
		expandSlice(result.AsInt32(), x.AsInt32(), shape, x.Shape())
	case tensor.Int64:
		expandSlice(result.AsInt64(), x.AsInt64(), shape, x.Shape())
	}

	return result
}

func expandSlice[T number](dst, src []T, dstShape, srcShape tensor.Shape) {
	dstStrides := dstShape.ComputeStrides()
	srcStrides := srcShape.ComputeStrides()
	n := dstShape.NumElements()
	for i := 0; i < n; i++ {
		dst[i] = src[srcIndex(i, dstShape, dstStrides, srcShape, srcStrides)]
	}
}
