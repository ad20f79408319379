package ops

import "github.com/tapegrad-ml/tapegrad/internal/tensor"

// ReLUOp records y = max(0, x).
//
// dy/dx is 1 where x > 0 and 0 elsewhere; the backward pass multiplies the
// output gradient by that mask.
type ReLUOp struct {
	opBase
}

// NewReLUOp creates a ReLUOp.
func NewReLUOp(input, output *tensor.RawTensor) *ReLUOp {
	return &ReLUOp{opBase: newOpBase(output, input)}
}

// Backward computes grad_x = outputGrad * (x > 0).
func (op *ReLUOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	mask := reluMask(op.inputs[0], backend)
	return []*tensor.RawTensor{backend.Mul(outputGrad, mask)}
}

// reluMask builds a {0,1} tensor marking where the input is positive. All
// backends keep host-addressable bytes, so the mask is filled directly.
func reluMask(input *tensor.RawTensor, backend tensor.Backend) *tensor.RawTensor {
	mask, err := backend.Allocate(input.Shape(), input.DType())
	if err != nil {
		panic(err)
	}

	switch input.DType() {
	case tensor.Float32:
		in, out := input.AsFloat32(), mask.AsFloat32()
		for i, v := range in {
			if v > 0 {
				out[i] = 1
			}
		}
	case tensor.Float64:
		in, out := input.AsFloat64(), mask.AsFloat64()
		for i, v := range in {
			if v > 0 {
				out[i] = 1
			}
		}
	default:
		panic(tensor.Errorf(tensor.ShapeMismatch, "relu",
			"backward needs a float tensor, got %s", input.DType()))
	}
	return mask
}
