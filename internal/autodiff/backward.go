package autodiff

import "github.com/tapegrad-ml/tapegrad/internal/tensor"

// BackwardCapable is a backend that carries a gradient tape.
// AutodiffBackend implements it.
type BackwardCapable interface {
	tensor.Backend
	GetTape() *GradientTape
}

// GetTape returns the gradient tape (implements BackwardCapable).
func (b *AutodiffBackend[B]) GetTape() *GradientTape {
	return b.tape
}

// Backward differentiates a scalar loss with respect to everything
// recorded on the backend's tape.
//
// The loss must hold exactly one element, must request gradients, and must
// have been produced by a recorded operation; otherwise Backward fails
// with a non-differentiable-root error. The seed gradient is a unit tensor
// of the loss's shape, replayed backward through the consumed tape.
//
// Example:
//
//	backend := autodiff.New(cpu.New())
//	backend.Tape().StartRecording()
//	x, _ := tensor.FromSlice([]float32{1, 2, 3}, tensor.Shape{3}, backend)
//	x.RequireGrad()
//	loss := x.Square().Sum()
//	grads, err := autodiff.Backward(loss, backend)
func Backward[T tensor.DType, B BackwardCapable](loss *tensor.Tensor[T, B], backend B) (*Gradients, error) {
	if len(loss.Shape()) != 0 {
		return nil, tensor.Errorf(tensor.NonDifferentiableRoot, "backward",
			"loss must be a rank-0 scalar, got shape %v", loss.Shape())
	}
	if !loss.RequiresGrad() {
		return nil, tensor.Errorf(tensor.NonDifferentiableRoot, "backward",
			"loss does not request gradients; nothing upstream was recorded")
	}

	tape := backend.GetTape()
	if !tape.Produced(loss.ID()) {
		return nil, tensor.Errorf(tensor.NonDifferentiableRoot, "backward",
			"loss %d was not produced by a recorded operation", loss.ID())
	}

	seed, err := unitGradient(loss.Shape(), loss.DType(), backend)
	if err != nil {
		return nil, err
	}
	return tape.Replay(loss.ID(), seed, backend)
}

// unitGradient builds the seed gradient dL/dL = 1.
func unitGradient(shape tensor.Shape, dtype tensor.DataType, backend tensor.Backend) (*tensor.RawTensor, error) {
	seed, err := backend.Allocate(shape, dtype)
	if err != nil {
		return nil, err
	}
	switch dtype {
	case tensor.Float32:
		data := seed.AsFloat32()
		for i := range data {
			data[i] = 1
		}
	case tensor.Float64:
		data := seed.AsFloat64()
		for i := range data {
			data[i] = 1
		}
	default:
		return nil, tensor.Errorf(tensor.NonDifferentiableRoot, "backward",
			"loss dtype %s is not differentiable", dtype)
	}
	return seed, nil
}
