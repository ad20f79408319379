package ops

import "github.com/tapegrad-ml/tapegrad/internal/tensor"

// Conv2DOp records output = Conv2D(input, kernel, stride, padding) over
// NCHW input with an (COut,CIn,KH,KW) kernel.
//
// The backward pass delegates to the backend's dedicated convolution
// backward kernels, which share the forward geometry.
type Conv2DOp struct {
	opBase
	stride  int
	padding int
}

// NewConv2DOp creates a Conv2DOp.
func NewConv2DOp(input, kernel, output *tensor.RawTensor, stride, padding int) *Conv2DOp {
	return &Conv2DOp{
		opBase:  newOpBase(output, input, kernel),
		stride:  stride,
		padding: padding,
	}
}

// Backward computes the input and kernel gradients for convolution.
func (op *Conv2DOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	input, kernel := op.inputs[0], op.inputs[1]
	return []*tensor.RawTensor{
		backend.Conv2DInputBackward(input, kernel, outputGrad, op.stride, op.padding),
		backend.Conv2DKernelBackward(input, kernel, outputGrad, op.stride, op.padding),
	}
}
