package ops

import "github.com/tapegrad-ml/tapegrad/internal/tensor"

// SumOp records y = Σx over all elements, producing a rank-0 scalar.
// Every input element contributes with weight 1, so the backward pass
// broadcasts the scalar gradient back to the input shape.
type SumOp struct {
	opBase
}

// NewSumOp creates a SumOp.
func NewSumOp(input, output *tensor.RawTensor) *SumOp {
	return &SumOp{opBase: newOpBase(output, input)}
}

// Backward broadcasts the scalar gradient to the input shape.
func (op *SumOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	return []*tensor.RawTensor{backend.Expand(outputGrad, op.inputs[0].Shape())}
}

// SumDimOp records y = Σx along one dimension.
type SumDimOp struct {
	opBase
	dim     int
	keepDim bool
}

// NewSumDimOp creates a SumDimOp. dim must already be normalized to a
// non-negative axis.
func NewSumDimOp(input, output *tensor.RawTensor, dim int, keepDim bool) *SumDimOp {
	return &SumDimOp{opBase: newOpBase(output, input), dim: dim, keepDim: keepDim}
}

// Backward broadcasts the gradient back along the reduced dimension.
func (op *SumDimOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	return []*tensor.RawTensor{op.spread(outputGrad, backend)}
}

// spread restores the reduced dimension (when it was dropped) and expands
// the gradient to the input shape.
func (op *SumDimOp) spread(outputGrad *tensor.RawTensor, backend tensor.Backend) *tensor.RawTensor {
	inShape := op.inputs[0].Shape()
	grad := outputGrad
	if !op.keepDim {
		kept := inShape.Clone()
		kept[op.dim] = 1
		grad = backend.Reshape(grad, kept)
	}
	return backend.Expand(grad, inShape)
}

// MeanDimOp records y = mean(x) along one dimension: a SumDimOp whose
// backward pass also divides by the reduced dimension's size.
type MeanDimOp struct {
	SumDimOp
}

// NewMeanDimOp creates a MeanDimOp. dim must already be normalized.
func NewMeanDimOp(input, output *tensor.RawTensor, dim int, keepDim bool) *MeanDimOp {
	return &MeanDimOp{SumDimOp: SumDimOp{opBase: newOpBase(output, input), dim: dim, keepDim: keepDim}}
}

// Backward broadcasts the gradient and scales it by 1/n.
func (op *MeanDimOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	n := op.inputs[0].Shape()[op.dim]
	spread := op.spread(outputGrad, backend)
	return []*tensor.RawTensor{backend.MulScalar(spread, 1 / float64(n))}
}
