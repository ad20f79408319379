package ops

import "github.com/tapegrad-ml/tapegrad/internal/tensor"

// AddScalarOp records output = x + s for a constant scalar s.
// The constant contributes nothing to the gradient: grad_x = outputGrad.
type AddScalarOp struct {
	opBase
}

// NewAddScalarOp creates an AddScalarOp.
func NewAddScalarOp(x, output *tensor.RawTensor) *AddScalarOp {
	return &AddScalarOp{opBase: newOpBase(output, x)}
}

// Backward passes the output gradient through unchanged.
func (op *AddScalarOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	return []*tensor.RawTensor{outputGrad.Clone()}
}

// MulScalarOp records output = x * s for a constant scalar s.
// grad_x = outputGrad * s.
type MulScalarOp struct {
	opBase
	scalar float64
}

// NewMulScalarOp creates a MulScalarOp.
func NewMulScalarOp(x, output *tensor.RawTensor, scalar float64) *MulScalarOp {
	return &MulScalarOp{opBase: newOpBase(output, x), scalar: scalar}
}

// Backward scales the output gradient by the recorded constant.
func (op *MulScalarOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	return []*tensor.RawTensor{backend.MulScalar(outputGrad, op.scalar)}
}
