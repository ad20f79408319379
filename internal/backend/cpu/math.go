package cpu

import (
	"math"

	"github.com/tapegrad-ml/tapegrad/internal/tensor"
)

// Exp computes element-wise exp(x).
func (c *Backend) Exp(x *tensor.RawTensor) *tensor.RawTensor {
	return c.unaryFloat("exp", x, math.Exp)
}

// Log computes element-wise ln(x).
func (c *Backend) Log(x *tensor.RawTensor) *tensor.RawTensor {
	return c.unaryFloat("log", x, math.Log)
}

// Sqrt computes element-wise sqrt(x).
func (c *Backend) Sqrt(x *tensor.RawTensor) *tensor.RawTensor {
	return c.unaryFloat("sqrt", x, math.Sqrt)
}

// ReLU computes element-wise max(0, x).
func (c *Backend) ReLU(x *tensor.RawTensor) *tensor.RawTensor {
	return c.unaryFloat("relu", x, func(v float64) float64 {
		if v > 0 {
			return v
		}
		return 0
	})
}

func (c *Backend) unaryFloat(op string, x *tensor.RawTensor, f func(float64) float64) *tensor.RawTensor {
	result := mustAllocate(op, x.Shape(), x.DType(), c.device)

	switch x.DType() {
	case tensor.Float32:
		src := x.AsFloat32()
		dst := result.AsFloat32()
		for i, v := range src {
			dst[i] = float32(f(float64(v)))
		}
	case tensor.Float64:
		src := x.AsFloat64()
		dst := result.AsFloat64()
		for i, v := range src {
			dst[i] = f(v)
		}
	default:
		panic(tensor.Errorf(tensor.ShapeMismatch, op, "unsupported dtype %s (only float32/float64 supported)", x.DType()))
	}

	return result
}

// AddScalar adds a scalar to every element.
func (c *Backend) AddScalar(x *tensor.RawTensor, scalar float64) *tensor.RawTensor {
	return c.scalarOp("addscalar", x, scalar, false)
}

// MulScalar multiplies every element by a scalar.
func (c *Backend) MulScalar(x *tensor.RawTensor, scalar float64) *tensor.RawTensor {
	return c.scalarOp("mulscalar", x, scalar, true)
}

func (c *Backend) scalarOp(op string, x *tensor.RawTensor, scalar float64, multiply bool) *tensor.RawTensor {
	result := mustAllocate(op, x.Shape(), x.DType(), c.device)

	switch x.DType() {
	case tensor.Float32:
		scalarSlice(result.AsFloat32(), x.AsFloat32(), float32(scalar), multiply)
	case tensor.Float64:
		scalarSlice(result.AsFloat64(), x.AsFloat64(), scalar, multiply)
	case tensor.Int32:
		scalarSlice(result.AsInt32(), x.AsInt32(), int32(scalar), multiply)
	case tensor.Int64:
		scalarSlice(result.AsInt64(), x.AsInt64(), int64(scalar), multiply)
	}

	return result
}

func scalarSlice[T number](dst, src []T, s T, multiply bool) {
	if multiply {
		for i, v := range src {
			dst[i] = v * s
		}
		return
	}
	for i, v := range src {
		dst[i] = v + s
	}
}
