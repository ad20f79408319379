package ops

import "github.com/tapegrad-ml/tapegrad/internal/tensor"

// MatMulOp records output = a @ b for 2D matrices (M,K) @ (K,N) -> (M,N).
//
// Backward pass:
//
//	grad_a = outputGrad @ bᵀ   shape (M,N) @ (N,K) -> (M,K)
//	grad_b = aᵀ @ outputGrad   shape (K,M) @ (M,N) -> (K,N)
type MatMulOp struct {
	opBase
}

// NewMatMulOp creates a MatMulOp.
func NewMatMulOp(a, b, output *tensor.RawTensor) *MatMulOp {
	return &MatMulOp{opBase: newOpBase(output, a, b)}
}

// Backward computes the input gradients for matrix multiplication.
func (op *MatMulOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	a, b := op.inputs[0], op.inputs[1]
	gradA := backend.MatMul(outputGrad, backend.Transpose(b, 1, 0))
	gradB := backend.MatMul(backend.Transpose(a, 1, 0), outputGrad)
	return []*tensor.RawTensor{gradA, gradB}
}
