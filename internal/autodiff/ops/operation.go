// Package ops defines the differentiable operations recorded on the
// gradient tape.
//
// Each operation saves the forward inputs it needs (as reference-counted
// views) and knows how to turn the gradient of its output into gradients
// of its inputs:
//   - AddOp / SubOp: gradient flows through unchanged (negated for b in Sub)
//   - MulOp / DivOp: product and quotient rules
//   - MatMulOp: d(A@B)/dA = grad@Bᵀ, d(A@B)/dB = Aᵀ@grad
//   - Conv2DOp: delegates to the backend's convolution backward kernels
//   - shape ops (Reshape, Transpose, Expand): move the gradient back
//     through the inverse shape transformation
//   - reductions (Sum, SumDim, MeanDim): broadcast the gradient back to
//     the input shape
//
// Operations identify tensors by their identity key, never by handle, so
// a recorded tape does not keep a dropped output alive.
package ops

import "github.com/tapegrad-ml/tapegrad/internal/tensor"

// Operation is a single recorded step of the forward pass.
type Operation interface {
	// Backward computes input gradients given the output gradient.
	// The returned slice is parallel to InputIDs; a nil entry means the
	// operation produces no gradient for that input.
	Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor

	// InputIDs returns the identity keys of the operation's inputs.
	InputIDs() []tensor.ID

	// InputShapes returns the shapes of the operation's inputs, used to
	// validate gradients before they are accumulated.
	InputShapes() []tensor.Shape

	// OutputID returns the identity key of the operation's output.
	OutputID() tensor.ID
}

// opBase carries the bookkeeping shared by all operations: saved input
// views and the output's identity key. Inputs are cloned so the buffers an
// operation needs for its backward pass stay alive (and stay non-unique,
// which keeps in-place kernels away from them) until the tape is dropped.
type opBase struct {
	inputs []*tensor.RawTensor
	outID  tensor.ID
}

func newOpBase(output *tensor.RawTensor, inputs ...*tensor.RawTensor) opBase {
	saved := make([]*tensor.RawTensor, len(inputs))
	for i, in := range inputs {
		saved[i] = in.Clone()
	}
	return opBase{inputs: saved, outID: output.ID()}
}

// InputIDs returns the identity keys of the saved inputs.
func (b *opBase) InputIDs() []tensor.ID {
	ids := make([]tensor.ID, len(b.inputs))
	for i, in := range b.inputs {
		ids[i] = in.ID()
	}
	return ids
}

// InputShapes returns the shapes of the saved inputs.
func (b *opBase) InputShapes() []tensor.Shape {
	shapes := make([]tensor.Shape, len(b.inputs))
	for i, in := range b.inputs {
		shapes[i] = in.Shape()
	}
	return shapes
}

// OutputID returns the output's identity key.
func (b *opBase) OutputID() tensor.ID {
	return b.outID
}
