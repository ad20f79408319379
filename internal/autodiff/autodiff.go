// Package autodiff implements reverse-mode automatic differentiation as a
// decorator over any compute backend.
//
// AutodiffBackend[B] wraps a tensor.Backend and records every
// differentiable operation whose inputs request gradients onto a
// GradientTape. Backward replays the tape in reverse and returns a
// Gradients store keyed by tensor identity.
//
// Usage:
//
//	backend := autodiff.New(cpu.New())
//	backend.Tape().StartRecording()
//
//	x, _ := tensor.FromSlice([]float32{1, 2, 3}, tensor.Shape{3}, backend)
//	x.RequireGrad()
//	loss := x.Square().Sum()
//
//	grads, err := autodiff.Backward(loss, backend)
//	gx, _ := grads.Peek(x.ID()) // d(Σx²)/dx = 2x
package autodiff

import (
	"github.com/tapegrad-ml/tapegrad/internal/autodiff/ops"
	"github.com/tapegrad-ml/tapegrad/internal/tensor"
)

// AutodiffBackend wraps a Backend and adds gradient recording. It
// implements tensor.Backend, so tensors built on it go through the
// recording layer transparently.
type AutodiffBackend[B tensor.Backend] struct {
	inner B
	tape  *GradientTape
}

// New creates an AutodiffBackend wrapping the given backend.
func New[B tensor.Backend](backend B) *AutodiffBackend[B] {
	return &AutodiffBackend[B]{
		inner: backend,
		tape:  NewGradientTape(),
	}
}

// Tape returns the gradient tape for recording control.
func (b *AutodiffBackend[B]) Tape() *GradientTape { return b.tape }

// Inner returns the wrapped backend.
func (b *AutodiffBackend[B]) Inner() B { return b.inner }

// Name returns the backend name.
func (b *AutodiffBackend[B]) Name() string { return "Autodiff(" + b.inner.Name() + ")" }

// Device returns the compute device.
func (b *AutodiffBackend[B]) Device() tensor.Device { return b.inner.Device() }

// Allocate reserves memory in the wrapped backend. Allocation is not a
// differentiable operation and is never recorded.
func (b *AutodiffBackend[B]) Allocate(shape tensor.Shape, dtype tensor.DataType) (*tensor.RawTensor, error) {
	return b.inner.Allocate(shape, dtype)
}

// Transfer materializes a copy of t in the wrapped backend's memory. The
// copy carries a fresh identity and is not connected to the tape.
func (b *AutodiffBackend[B]) Transfer(t *tensor.RawTensor) (*tensor.RawTensor, error) {
	return b.inner.Transfer(t)
}

// guard panics with a backend-mismatch error when an input resides on a
// different device than this backend computes on. Mixing backends requires
// an explicit Transfer.
func (b *AutodiffBackend[B]) guard(op string, tensors ...*tensor.RawTensor) {
	device := b.inner.Device()
	for _, t := range tensors {
		if t.Device() != device {
			panic(tensor.Errorf(tensor.BackendMismatch, op,
				"tensor %d resides on %s but %s computes on %s; Transfer it first",
				t.ID(), t.Device(), b.Name(), device))
		}
	}
}

// shouldRecord reports whether an operation over the given inputs belongs
// on the tape: the tape must be recording and at least one input must
// request gradients.
func (b *AutodiffBackend[B]) shouldRecord(inputs ...*tensor.RawTensor) bool {
	if !b.tape.IsRecording() {
		return false
	}
	for _, in := range inputs {
		if in.RequiresGrad() {
			return true
		}
	}
	return false
}

// record marks the output as requesting gradients (the flag propagates
// forward through recorded operations) and appends the entry.
func (b *AutodiffBackend[B]) record(op ops.Operation, output *tensor.RawTensor) {
	output.SetRequiresGrad(true)
	b.tape.Record(op)
}

// Add performs element-wise addition and records it.
//
// Inputs are pinned non-unique for the duration of the forward kernel so
// the wrapped backend never computes in place over values a recorded
// operation saved for its backward pass.
func (b *AutodiffBackend[B]) Add(x, y *tensor.RawTensor) *tensor.RawTensor {
	b.guard("add", x, y)
	defer x.ForceNonUnique()()
	defer y.ForceNonUnique()()

	out := b.inner.Add(x, y)
	if b.shouldRecord(x, y) {
		b.record(ops.NewAddOp(x, y, out), out)
	}
	return out
}

// Sub performs element-wise subtraction and records it.
func (b *AutodiffBackend[B]) Sub(x, y *tensor.RawTensor) *tensor.RawTensor {
	b.guard("sub", x, y)
	defer x.ForceNonUnique()()
	defer y.ForceNonUnique()()

	out := b.inner.Sub(x, y)
	if b.shouldRecord(x, y) {
		b.record(ops.NewSubOp(x, y, out), out)
	}
	return out
}

// Mul performs element-wise multiplication and records it.
func (b *AutodiffBackend[B]) Mul(x, y *tensor.RawTensor) *tensor.RawTensor {
	b.guard("mul", x, y)
	defer x.ForceNonUnique()()
	defer y.ForceNonUnique()()

	out := b.inner.Mul(x, y)
	if b.shouldRecord(x, y) {
		b.record(ops.NewMulOp(x, y, out), out)
	}
	return out
}

// Div performs element-wise division and records it.
func (b *AutodiffBackend[B]) Div(x, y *tensor.RawTensor) *tensor.RawTensor {
	b.guard("div", x, y)
	defer x.ForceNonUnique()()
	defer y.ForceNonUnique()()

	out := b.inner.Div(x, y)
	if b.shouldRecord(x, y) {
		b.record(ops.NewDivOp(x, y, out), out)
	}
	return out
}

// AddScalar adds a constant to every element and records it.
func (b *AutodiffBackend[B]) AddScalar(x *tensor.RawTensor, scalar float64) *tensor.RawTensor {
	b.guard("addscalar", x)
	defer x.ForceNonUnique()()

	out := b.inner.AddScalar(x, scalar)
	if b.shouldRecord(x) {
		b.record(ops.NewAddScalarOp(x, out), out)
	}
	return out
}

// MulScalar multiplies every element by a constant and records it.
func (b *AutodiffBackend[B]) MulScalar(x *tensor.RawTensor, scalar float64) *tensor.RawTensor {
	b.guard("mulscalar", x)
	defer x.ForceNonUnique()()

	out := b.inner.MulScalar(x, scalar)
	if b.shouldRecord(x) {
		b.record(ops.NewMulScalarOp(x, out, scalar), out)
	}
	return out
}

// MatMul performs matrix multiplication and records it.
func (b *AutodiffBackend[B]) MatMul(x, y *tensor.RawTensor) *tensor.RawTensor {
	b.guard("matmul", x, y)
	defer x.ForceNonUnique()()
	defer y.ForceNonUnique()()

	out := b.inner.MatMul(x, y)
	if b.shouldRecord(x, y) {
		b.record(ops.NewMatMulOp(x, y, out), out)
	}
	return out
}

// Conv2D performs 2D convolution and records it.
func (b *AutodiffBackend[B]) Conv2D(input, kernel *tensor.RawTensor, stride, padding int) *tensor.RawTensor {
	b.guard("conv2d", input, kernel)
	defer input.ForceNonUnique()()
	defer kernel.ForceNonUnique()()

	out := b.inner.Conv2D(input, kernel, stride, padding)
	if b.shouldRecord(input, kernel) {
		b.record(ops.NewConv2DOp(input, kernel, out, stride, padding), out)
	}
	return out
}

// Conv2DInputBackward passes through to the wrapped backend. Backward
// kernels are gradient arithmetic and are never themselves recorded.
func (b *AutodiffBackend[B]) Conv2DInputBackward(input, kernel, grad *tensor.RawTensor, stride, padding int) *tensor.RawTensor {
	return b.inner.Conv2DInputBackward(input, kernel, grad, stride, padding)
}

// Conv2DKernelBackward passes through to the wrapped backend.
func (b *AutodiffBackend[B]) Conv2DKernelBackward(input, kernel, grad *tensor.RawTensor, stride, padding int) *tensor.RawTensor {
	return b.inner.Conv2DKernelBackward(input, kernel, grad, stride, padding)
}

// Exp computes the element-wise exponential and records it.
func (b *AutodiffBackend[B]) Exp(x *tensor.RawTensor) *tensor.RawTensor {
	b.guard("exp", x)
	defer x.ForceNonUnique()()

	out := b.inner.Exp(x)
	if b.shouldRecord(x) {
		b.record(ops.NewExpOp(x, out), out)
	}
	return out
}

// Log computes the element-wise natural logarithm and records it.
func (b *AutodiffBackend[B]) Log(x *tensor.RawTensor) *tensor.RawTensor {
	b.guard("log", x)
	defer x.ForceNonUnique()()

	out := b.inner.Log(x)
	if b.shouldRecord(x) {
		b.record(ops.NewLogOp(x, out), out)
	}
	return out
}

// Sqrt computes the element-wise square root and records it.
func (b *AutodiffBackend[B]) Sqrt(x *tensor.RawTensor) *tensor.RawTensor {
	b.guard("sqrt", x)
	defer x.ForceNonUnique()()

	out := b.inner.Sqrt(x)
	if b.shouldRecord(x) {
		b.record(ops.NewSqrtOp(x, out), out)
	}
	return out
}

// ReLU computes element-wise max(0, x) and records it.
func (b *AutodiffBackend[B]) ReLU(x *tensor.RawTensor) *tensor.RawTensor {
	b.guard("relu", x)
	defer x.ForceNonUnique()()

	out := b.inner.ReLU(x)
	if b.shouldRecord(x) {
		b.record(ops.NewReLUOp(x, out), out)
	}
	return out
}

// Sum reduces all elements to a rank-0 scalar and records it.
func (b *AutodiffBackend[B]) Sum(x *tensor.RawTensor) *tensor.RawTensor {
	b.guard("sum", x)
	defer x.ForceNonUnique()()

	out := b.inner.Sum(x)
	if b.shouldRecord(x) {
		b.record(ops.NewSumOp(x, out), out)
	}
	return out
}

// SumDim sums along one dimension and records it.
func (b *AutodiffBackend[B]) SumDim(x *tensor.RawTensor, dim int, keepDim bool) *tensor.RawTensor {
	b.guard("sumdim", x)
	defer x.ForceNonUnique()()

	out := b.inner.SumDim(x, dim, keepDim)
	if b.shouldRecord(x) {
		if dim < 0 {
			dim += len(x.Shape())
		}
		b.record(ops.NewSumDimOp(x, out, dim, keepDim), out)
	}
	return out
}

// MeanDim averages along one dimension and records it.
func (b *AutodiffBackend[B]) MeanDim(x *tensor.RawTensor, dim int, keepDim bool) *tensor.RawTensor {
	b.guard("meandim", x)
	defer x.ForceNonUnique()()

	out := b.inner.MeanDim(x, dim, keepDim)
	if b.shouldRecord(x) {
		if dim < 0 {
			dim += len(x.Shape())
		}
		b.record(ops.NewMeanDimOp(x, out, dim, keepDim), out)
	}
	return out
}

// Reshape changes the tensor's shape and records it. Even though the data
// is untouched, the output is a new identity: without the recorded entry,
// gradients would never reach the pre-reshape tensor.
func (b *AutodiffBackend[B]) Reshape(x *tensor.RawTensor, newShape tensor.Shape) *tensor.RawTensor {
	b.guard("reshape", x)
	defer x.ForceNonUnique()()

	out := b.inner.Reshape(x, newShape)
	if b.shouldRecord(x) {
		b.record(ops.NewReshapeOp(x, out), out)
	}
	return out
}

// Transpose permutes dimensions and records it with the resolved
// permutation, so the backward pass can invert it.
func (b *AutodiffBackend[B]) Transpose(x *tensor.RawTensor, axes ...int) *tensor.RawTensor {
	b.guard("transpose", x)
	defer x.ForceNonUnique()()

	rank := len(x.Shape())
	if len(axes) == 0 {
		axes = make([]int, rank)
		for i := range axes {
			axes[i] = rank - 1 - i
		}
	}

	out := b.inner.Transpose(x, axes...)
	if b.shouldRecord(x) {
		b.record(ops.NewTransposeOp(x, out, axes), out)
	}
	return out
}

// Expand broadcasts the tensor to a larger shape and records it.
func (b *AutodiffBackend[B]) Expand(x *tensor.RawTensor, shape tensor.Shape) *tensor.RawTensor {
	b.guard("expand", x)
	defer x.ForceNonUnique()()

	out := b.inner.Expand(x, shape)
	if b.shouldRecord(x) {
		b.record(ops.NewExpandOp(x, out), out)
	}
	return out
}
