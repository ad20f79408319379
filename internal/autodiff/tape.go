package autodiff

import (
	"github.com/tapegrad-ml/tapegrad/internal/autodiff/ops"
	"github.com/tapegrad-ml/tapegrad/internal/tensor"
)

// GradientTape records operations during the forward pass and replays them
// in reverse to compute gradients.
//
// A tape covers one forward/backward cycle: Replay consumes it, and a
// second Replay fails with a tape-reuse error until Clear is called.
//
// Usage:
//
//	backend := autodiff.New(cpu.New())
//	tape := backend.Tape()
//	tape.StartRecording()
//	// ... forward pass ...
//	grads, err := autodiff.Backward(loss, backend)
//	tape.Clear() // ready for the next cycle
type GradientTape struct {
	entries   []ops.Operation
	outputs   map[tensor.ID]struct{} // identity keys produced while recording
	recording bool
	consumed  bool
}

// NewGradientTape creates a new gradient tape.
func NewGradientTape() *GradientTape {
	return &GradientTape{
		entries: make([]ops.Operation, 0, 64),
		outputs: make(map[tensor.ID]struct{}),
	}
}

// StartRecording enables operation recording.
func (t *GradientTape) StartRecording() { t.recording = true }

// StopRecording disables operation recording.
func (t *GradientTape) StopRecording() { t.recording = false }

// IsRecording reports whether the tape currently records operations.
func (t *GradientTape) IsRecording() bool { return t.recording }

// Record appends an operation to the tape. No-op unless recording.
func (t *GradientTape) Record(op ops.Operation) {
	if !t.recording {
		return
	}
	t.entries = append(t.entries, op)
	t.outputs[op.OutputID()] = struct{}{}
}

// Produced reports whether the given tensor identity was produced by a
// recorded operation.
func (t *GradientTape) Produced(id tensor.ID) bool {
	_, ok := t.outputs[id]
	return ok
}

// NumOps returns the number of recorded operations.
func (t *GradientTape) NumOps() int { return len(t.entries) }

// Clear drops all recorded operations and re-arms a consumed tape for the
// next forward/backward cycle. Recording state is preserved.
func (t *GradientTape) Clear() {
	t.entries = t.entries[:0]
	t.outputs = make(map[tensor.ID]struct{})
	t.consumed = false
}

// Replay walks the tape in reverse from the seed gradient and returns the
// accumulated gradients.
//
// Entries whose output never received a gradient are skipped: branches
// that do not contribute to the seed cost nothing in the backward pass.
// Each input gradient is validated against the recorded input shape before
// accumulation.
//
// Replay consumes the tape. A second call fails with a tape-reuse error
// until Clear re-arms it.
func (t *GradientTape) Replay(seedID tensor.ID, seed *tensor.RawTensor, backend tensor.Backend) (*Gradients, error) {
	if t.consumed {
		return nil, tensor.Errorf(tensor.TapeConsumed, "replay",
			"tape already replayed; Clear it before recording the next cycle")
	}
	t.consumed = true

	// Gradient arithmetic must not append to the tape being replayed.
	wasRecording := t.recording
	t.recording = false
	defer func() { t.recording = wasRecording }()

	grads := NewGradients()
	if err := grads.Accumulate(seedID, seed, backend); err != nil {
		return nil, err
	}

	for i := len(t.entries) - 1; i >= 0; i-- {
		entry := t.entries[i]
		outputGrad, ok := grads.Take(entry.OutputID())
		if !ok {
			continue // dead branch
		}

		inputGrads := t.backward(entry, outputGrad, backend)

		ids := entry.InputIDs()
		shapes := entry.InputShapes()
		for j, grad := range inputGrads {
			if grad == nil {
				continue
			}
			if !grad.Shape().Equal(shapes[j]) {
				return nil, tensor.Errorf(tensor.ShapeMismatch, "replay",
					"gradient for input %d of tensor %d has shape %v, want %v",
					j, entry.OutputID(), grad.Shape(), shapes[j])
			}
			if err := grads.Accumulate(ids[j], grad, backend); err != nil {
				return nil, err
			}
		}
	}

	return grads, nil
}

// backward runs one entry's backward pass with the output gradient pinned,
// so ops that use it twice (Mul, Div) never see an in-place kernel
// clobber it between uses.
func (t *GradientTape) backward(entry ops.Operation, outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	defer outputGrad.ForceNonUnique()()
	return entry.Backward(outputGrad, backend)
}
