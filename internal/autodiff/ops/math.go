package ops

import "github.com/tapegrad-ml/tapegrad/internal/tensor"

// ExpOp records y = exp(x). Since dy/dx = exp(x) = y, the backward pass
// reuses the saved output: grad_x = outputGrad * y.
type ExpOp struct {
	opBase
	output *tensor.RawTensor
}

// NewExpOp creates an ExpOp.
func NewExpOp(input, output *tensor.RawTensor) *ExpOp {
	return &ExpOp{opBase: newOpBase(output, input), output: output.Clone()}
}

// Backward computes grad_x = outputGrad * exp(x).
func (op *ExpOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	return []*tensor.RawTensor{backend.Mul(outputGrad, op.output)}
}

// LogOp records y = ln(x). dy/dx = 1/x, so grad_x = outputGrad / x.
type LogOp struct {
	opBase
}

// NewLogOp creates a LogOp.
func NewLogOp(input, output *tensor.RawTensor) *LogOp {
	return &LogOp{opBase: newOpBase(output, input)}
}

// Backward computes grad_x = outputGrad / x.
func (op *LogOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	return []*tensor.RawTensor{backend.Div(outputGrad, op.inputs[0])}
}

// SqrtOp records y = √x. dy/dx = 1/(2√x) = 1/(2y), so the backward pass
// reuses the saved output: grad_x = outputGrad / (2y).
type SqrtOp struct {
	opBase
	output *tensor.RawTensor
}

// NewSqrtOp creates a SqrtOp.
func NewSqrtOp(input, output *tensor.RawTensor) *SqrtOp {
	return &SqrtOp{opBase: newOpBase(output, input), output: output.Clone()}
}

// Backward computes grad_x = outputGrad / (2 * √x).
func (op *SqrtOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	return []*tensor.RawTensor{backend.Div(outputGrad, backend.MulScalar(op.output, 2))}
}
