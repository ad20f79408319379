package ops

import "github.com/tapegrad-ml/tapegrad/internal/tensor"

// MulOp records output = a * b (element-wise).
//
// Product rule: d(a*b)/da = b, d(a*b)/db = a.
type MulOp struct {
	opBase
}

// NewMulOp creates a MulOp.
func NewMulOp(a, b, output *tensor.RawTensor) *MulOp {
	return &MulOp{opBase: newOpBase(output, a, b)}
}

// Backward computes the input gradients for element-wise multiplication.
func (op *MulOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	a, b := op.inputs[0], op.inputs[1]
	gradA := backend.Mul(outputGrad, b)
	gradB := backend.Mul(outputGrad, a)
	return []*tensor.RawTensor{
		reduceBroadcast(gradA, a.Shape(), backend),
		reduceBroadcast(gradB, b.Shape(), backend),
	}
}
