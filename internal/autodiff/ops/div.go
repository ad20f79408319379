package ops

import "github.com/tapegrad-ml/tapegrad/internal/tensor"

// DivOp records output = a / b (element-wise).
//
// Quotient rule: d(a/b)/da = 1/b, d(a/b)/db = -a/b².
type DivOp struct {
	opBase
}

// NewDivOp creates a DivOp.
func NewDivOp(a, b, output *tensor.RawTensor) *DivOp {
	return &DivOp{opBase: newOpBase(output, a, b)}
}

// Backward computes the input gradients for element-wise division.
func (op *DivOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	a, b := op.inputs[0], op.inputs[1]

	gradA := backend.Div(outputGrad, b)

	// grad_b = -grad * a / b²
	bSquared := backend.Mul(b, b)
	gradB := negate(backend.Div(backend.Mul(outputGrad, a), bSquared), backend)

	return []*tensor.RawTensor{
		reduceBroadcast(gradA, a.Shape(), backend),
		reduceBroadcast(gradB, b.Shape(), backend),
	}
}
