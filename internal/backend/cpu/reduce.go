package cpu

import "github.com/tapegrad-ml/tapegrad/internal/tensor"

// Sum reduces all elements to a rank-0 scalar. NaN propagates.
func (c *Backend) Sum(x *tensor.RawTensor) *tensor.RawTensor {
	result := mustAllocate("sum", tensor.Shape{}, x.DType(), c.device)

	switch x.DType() {
	case tensor.Float32:
		result.AsFloat32()[0] = sumSlice(x.AsFloat32())
	case tensor.Float64:
		result.AsFloat64()[0] = sumSlice(x.AsFloat64())
	case tensor.Int32:
		result.AsInt32()[0] = sumSlice(x.AsInt32())
	case tensor.Int64:
		result.AsInt64()[0] = sumSlice(x.AsInt64())
	}

	return result
}

func sumSlice[T number](src []T) T {
	var acc T
	for _, v := range src {
		acc += v
	}
	return acc
}

// SumDim sums elements along one dimension. Negative dims index from the
// end; keepDim retains the reduced dimension with size 1.
func (c *Backend) SumDim(x *tensor.RawTensor, dim int, keepDim bool) *tensor.RawTensor {
	dim = normalizeDim("sumdim", x.Shape(), dim)
	result := mustAllocate("sumdim", reducedShape(x.Shape(), dim, keepDim), x.DType(), c.device)

	outer, n, inner := splitAt(x.Shape(), dim)
	switch x.DType() {
	case tensor.Float32:
		sumDimSlice(result.AsFloat32(), x.AsFloat32(), outer, n, inner)
	case tensor.Float64:
		sumDimSlice(result.AsFloat64(), x.AsFloat64(), outer, n, inner)
	case tensor.Int32:
		sumDimSlice(result.AsInt32(), x.AsInt32(), outer, n, inner)
	case tensor.Int64:
		sumDimSlice(result.AsInt64(), x.AsInt64(), outer, n, inner)
	}

	return result
}

// MeanDim averages elements along one dimension.
func (c *Backend) MeanDim(x *tensor.RawTensor, dim int, keepDim bool) *tensor.RawTensor {
	result := c.SumDim(x, dim, keepDim)
	divisor := float64(x.Shape()[normalizeDim("meandim", x.Shape(), dim)])

	switch result.DType() {
	case tensor.Float32:
		data := result.AsFloat32()
		d := float32(divisor)
		for i := range data {
			data[i] /= d
		}
	case tensor.Float64:
		data := result.AsFloat64()
		for i := range data {
			data[i] /= divisor
		}
	default:
		panic(tensor.Errorf(tensor.ShapeMismatch, "meandim",
			"unsupported dtype %s (only float32/float64 supported)", result.DType()))
	}

	return result
}

// sumDimSlice reduces the middle axis of a tensor viewed as
// [outer, n, inner]: dst[o,in] = sum_k src[o,k,in].
func sumDimSlice[T number](dst, src []T, outer, n, inner int) {
	for o := 0; o < outer; o++ {
		for in := 0; in < inner; in++ {
			var acc T
			base := o*n*inner + in
			for k := 0; k < n; k++ {
				acc += src[base+k*inner]
			}
			dst[o*inner+in] = acc
		}
	}
}

func normalizeDim(op string, shape tensor.Shape, dim int) int {
	ndim := len(shape)
	if dim < 0 {
		dim += ndim
	}
	if dim < 0 || dim >= ndim {
		panic(tensor.Errorf(tensor.ShapeMismatch, op, "dimension %d out of range for %dD tensor", dim, ndim))
	}
	return dim
}

func reducedShape(shape tensor.Shape, dim int, keepDim bool) tensor.Shape {
	if keepDim {
		out := shape.Clone()
		out[dim] = 1
		return out
	}
	out := make(tensor.Shape, 0, len(shape)-1)
	for i, d := range shape {
		if i != dim {
			out = append(out, d)
		}
	}
	return out
}

// splitAt views shape as [outer, shape[dim], inner].
func splitAt(shape tensor.Shape, dim int) (outer, n, inner int) {
	outer, inner = 1, 1
	for i := 0; i < dim; i++ {
		outer *= shape[i]
	}
	for i := dim + 1; i < len(shape); i++ {
		inner *= shape[i]
	}
	return outer, shape[dim], inner
}
