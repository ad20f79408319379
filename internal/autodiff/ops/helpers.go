package ops

import "github.com/tapegrad-ml/tapegrad/internal/tensor"

// reduceBroadcast reduces a gradient to the given target shape, undoing
// NumPy-style broadcasting from the forward pass.
//
// Example:
//
//	Forward:  a[3,1] + b[3,4] -> c[3,4]  (a broadcast along dim 1)
//	Backward: grad_c[3,4] -> grad_a[3,1] (sum along dim 1)
//
// When the shapes already match, the gradient is returned as a shared view
// so that downstream accumulation never writes into it in place.
func reduceBroadcast(grad *tensor.RawTensor, target tensor.Shape, backend tensor.Backend) *tensor.RawTensor {
	if grad.Shape().Equal(target) {
		return grad.Clone()
	}

	// Broadcasting aligns from the right: extra leading dimensions of the
	// gradient are summed away first.
	result := grad
	for len(result.Shape()) > len(target) {
		result = backend.SumDim(result, 0, false)
	}

	// Then sum (keeping the dimension) wherever the target is 1.
	for i, want := range target {
		if want == 1 && result.Shape()[i] > 1 {
			result = backend.SumDim(result, i, true)
		}
	}

	if !result.Shape().Equal(target) {
		result = backend.Reshape(result, target)
	}
	return result
}

// negate returns -grad without touching the input buffer.
func negate(grad *tensor.RawTensor, backend tensor.Backend) *tensor.RawTensor {
	return backend.MulScalar(grad, -1)
}
