package ops

import "github.com/tapegrad-ml/tapegrad/internal/tensor"

// ReshapeOp records y = reshape(x). The data is untouched, so the backward
// pass reshapes the gradient back to the input shape.
type ReshapeOp struct {
	opBase
}

// NewReshapeOp creates a ReshapeOp.
func NewReshapeOp(input, output *tensor.RawTensor) *ReshapeOp {
	return &ReshapeOp{opBase: newOpBase(output, input)}
}

// Backward reshapes the gradient to the input shape.
func (op *ReshapeOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	return []*tensor.RawTensor{backend.Reshape(outputGrad, op.inputs[0].Shape())}
}

// TransposeOp records y = transpose(x, axes). The backward pass applies
// the inverse permutation to the gradient.
type TransposeOp struct {
	opBase
	axes []int // resolved permutation, never empty
}

// NewTransposeOp creates a TransposeOp. axes must be the resolved
// permutation actually used in the forward pass.
func NewTransposeOp(input, output *tensor.RawTensor, axes []int) *TransposeOp {
	return &TransposeOp{
		opBase: newOpBase(output, input),
		axes:   append([]int(nil), axes...),
	}
}

// Backward transposes the gradient with the inverse permutation.
func (op *TransposeOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	inverse := make([]int, len(op.axes))
	for i, axis := range op.axes {
		inverse[axis] = i
	}
	return []*tensor.RawTensor{backend.Transpose(outputGrad, inverse...)}
}

// ExpandOp records y = expand(x, shape): broadcast materialization. Each
// input element fans out to several output positions, so the backward pass
// sums the gradient back over the broadcast dimensions.
type ExpandOp struct {
	opBase
}

// NewExpandOp creates an ExpandOp.
func NewExpandOp(input, output *tensor.RawTensor) *ExpandOp {
	return &ExpandOp{opBase: newOpBase(output, input)}
}

// Backward reduces the gradient to the input shape.
func (op *ExpandOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	return []*tensor.RawTensor{reduceBroadcast(outputGrad, op.inputs[0].Shape(), backend)}
}
