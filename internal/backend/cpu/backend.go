// Package cpu implements the portable CPU backend: plain Go loop kernels
// with a chunked worker pool for the matmul and convolution hot paths.
package cpu

import (
	"github.com/tapegrad-ml/tapegrad/internal/parallel"
	"github.com/tapegrad-ml/tapegrad/internal/tensor"
)

// number covers the element types the loop kernels operate on.
type number interface {
	~float32 | ~float64 | ~int32 | ~int64
}

// Backend implements tensor.Backend with portable loop kernels.
type Backend struct {
	device tensor.Device
	pool   parallel.Config
}

// New creates a new CPU backend.
func New() *Backend {
	return &Backend{
		device: tensor.CPU,
		pool:   parallel.DefaultConfig(),
	}
}

// Name returns the backend name.
func (c *Backend) Name() string { return "CPU" }

// Device returns the compute device.
func (c *Backend) Device() tensor.Device { return c.device }

// Allocate reserves a zero-initialized buffer in host memory.
func (c *Backend) Allocate(shape tensor.Shape, dtype tensor.DataType) (*tensor.RawTensor, error) {
	return tensor.NewRaw(shape, dtype, c.device)
}

// Transfer materializes a copy of t in CPU memory. Every backend in this
// module keeps host-addressable bytes, so the transfer is a buffer copy
// plus a residency retag.
func (c *Backend) Transfer(t *tensor.RawTensor) (*tensor.RawTensor, error) {
	out, err := tensor.NewRaw(t.Shape(), t.DType(), c.device)
	if err != nil {
		return nil, err
	}
	copy(out.Data(), t.Data())
	return out, nil
}

// binKind selects a binary elementwise kernel.
type binKind int

const (
	binAdd binKind = iota
	binSub
	binMul
	binDiv
)

func (k binKind) String() string {
	switch k {
	case binAdd:
		return "add"
	case binSub:
		return "sub"
	case binMul:
		return "mul"
	default:
		return "div"
	}
}

// Add performs element-wise addition with NumPy-style broadcasting.
func (c *Backend) Add(a, b *tensor.RawTensor) *tensor.RawTensor {
	return c.binary(binAdd, a, b)
}

// Sub performs element-wise subtraction with broadcasting.
func (c *Backend) Sub(a, b *tensor.RawTensor) *tensor.RawTensor {
	return c.binary(binSub, a, b)
}

// Mul performs element-wise multiplication with broadcasting.
func (c *Backend) Mul(a, b *tensor.RawTensor) *tensor.RawTensor {
	return c.binary(binMul, a, b)
}

// Div performs element-wise division with broadcasting.
func (c *Backend) Div(a, b *tensor.RawTensor) *tensor.RawTensor {
	return c.binary(binDiv, a, b)
}

func (c *Backend) binary(kind binKind, a, b *tensor.RawTensor) *tensor.RawTensor {
	op := kind.String()
	if a.DType() != b.DType() {
		panic(tensor.Errorf(tensor.ShapeMismatch, op, "dtype mismatch: %s vs %s", a.DType(), b.DType()))
	}

	outShape, needsBroadcast, err := tensor.BroadcastShapes(a.Shape(), b.Shape())
	if err != nil {
		panic(err)
	}

	if !needsBroadcast {
		// Fast path: identical shapes. Reuse a's buffer when nothing else
		// references it.
		if a.IsUnique() {
			binarySame(kind, a, a, b)
			return a
		}
		result := mustAllocate(op, outShape, a.DType(), c.device)
		binarySame(kind, result, a, b)
		return result
	}

	result := mustAllocate(op, outShape, a.DType(), c.device)
	binaryBroadcast(kind, result, a, b)
	return result
}

func mustAllocate(op string, shape tensor.Shape, dtype tensor.DataType, device tensor.Device) *tensor.RawTensor {
	result, err := tensor.NewRaw(shape, dtype, device)
	if err != nil {
		panic(tensor.Errorf(tensor.AllocationFailure, op, "result allocation: %v", err))
	}
	return result
}

func binarySame(kind binKind, dst, a, b *tensor.RawTensor) {
	switch dst.DType() {
	case tensor.Float32:
		binarySameSlice(kind, dst.AsFloat32(), a.AsFloat32(), b.AsFloat32())
	case tensor.Float64:
		binarySameSlice(kind, dst.AsFloat64(), a.AsFloat64(), b.AsFloat64())
	case tensor.Int32:
		binarySameSlice(kind, dst.AsInt32(), a.AsInt32(), b.AsInt32())
	case tensor.Int64:
		binarySameSlice(kind, dst.AsInt64(), a.AsInt64(), b.AsInt64())
	}
}

func binarySameSlice[T number](kind binKind, dst, a, b []T) {
	switch kind {
	case binAdd:
		for i := range dst {
			dst[i] = a[i] + b[i]
		}
	case binSub:
		for i := range dst {
			dst[i] = a[i] - b[i]
		}
	case binMul:
		for i := range dst {
			dst[i] = a[i] * b[i]
		}
	case binDiv:
		for i := range dst {
			dst[i] = a[i] / b[i]
		}
	}
}

func binaryBroadcast(kind binKind, dst, a, b *tensor.RawTensor) {
	switch dst.DType() {
	case tensor.Float32:
		binaryBroadcastSlice(kind, dst.AsFloat32(), a.AsFloat32(), b.AsFloat32(), dst.Shape(), a.Shape(), b.Shape())
	case tensor.Float64:
		binaryBroadcastSlice(kind, dst.AsFloat64(), a.AsFloat64(), b.AsFloat64(), dst.Shape(), a.Shape(), b.Shape())
	case tensor.Int32:
		binaryBroadcastSlice(kind, dst.AsInt32(), a.AsInt32(), b.AsInt32(), dst.Shape(), a.Shape(), b.Shape())
	case tensor.Int64:
		binaryBroadcastSlice(kind, dst.AsInt64(), a.AsInt64(), b.AsInt64(), dst.Shape(), a.Shape(), b.Shape())
	}
}

func binaryBroadcastSlice[T number](kind binKind, dst, a, b []T, outShape, aShape, bShape tensor.Shape) {
	outStrides := outShape.ComputeStrides()
	aStrides := aShape.ComputeStrides()
	bStrides := bShape.ComputeStrides()

	n := outShape.NumElements()
	for i := 0; i < n; i++ {
		av := a[srcIndex(i, outShape, outStrides, aShape, aStrides)]
		bv := b[srcIndex(i, outShape, outStrides, bShape, bStrides)]
		switch kind {
		case binAdd:
			dst[i] = av + bv
		case binSub:
			dst[i] = av - bv
		case binMul:
			dst[i] = av * bv
		case binDiv:
			dst[i] = av / bv
		}
	}
}

// srcIndex maps a flat index in the broadcast output to the flat index of
// the (possibly lower-rank, size-1-dimension) source tensor. Shapes align
// from the right per the broadcasting rules.
func srcIndex(i int, outShape tensor.Shape, outStrides []int, srcShape tensor.Shape, srcStrides []int) int {
	idx := 0
	off := len(outShape) - len(srcShape)
	temp := i
	for d := 0; d < len(outShape); d++ {
		coord := temp / outStrides[d]
		temp %= outStrides[d]
		sd := d - off
		if sd >= 0 {
			if srcShape[sd] == 1 {
				coord = 0
			}
			idx += coord * srcStrides[sd]
		}
	}
	return idx
}
