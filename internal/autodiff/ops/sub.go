package ops

import "github.com/tapegrad-ml/tapegrad/internal/tensor"

// SubOp records output = a - b.
//
// d(a-b)/da = 1 and d(a-b)/db = -1.
type SubOp struct {
	opBase
}

// NewSubOp creates a SubOp.
func NewSubOp(a, b, output *tensor.RawTensor) *SubOp {
	return &SubOp{opBase: newOpBase(output, a, b)}
}

// Backward computes the input gradients for subtraction.
func (op *SubOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	a, b := op.inputs[0], op.inputs[1]
	return []*tensor.RawTensor{
		reduceBroadcast(outputGrad, a.Shape(), backend),
		reduceBroadcast(negate(outputGrad, backend), b.Shape(), backend),
	}
}
