package autodiff

import "github.com/tapegrad-ml/tapegrad/internal/tensor"

// Gradients accumulates gradients keyed by tensor identity. Keying by ID
// rather than by handle means two handles over the same allocation share
// one gradient slot, and the store never extends a dropped tensor's
// lifetime on its own.
//
// A tensor contributing to the loss through several paths receives the sum
// of the per-path gradients; an existing entry is never overwritten.
type Gradients struct {
	grads map[tensor.ID]*tensor.RawTensor
}

// NewGradients creates an empty gradient store.
func NewGradients() *Gradients {
	return &Gradients{grads: make(map[tensor.ID]*tensor.RawTensor)}
}

// Accumulate adds delta into the slot for id. The first contribution moves
// delta into the store; later contributions are summed element-wise.
// Fails with a shape-mismatch error when delta's shape disagrees with the
// slot's existing gradient.
func (g *Gradients) Accumulate(id tensor.ID, delta *tensor.RawTensor, backend tensor.Backend) error {
	existing, ok := g.grads[id]
	if !ok {
		g.grads[id] = delta
		return nil
	}
	if !existing.Shape().Equal(delta.Shape()) {
		return tensor.Errorf(tensor.ShapeMismatch, "accumulate",
			"gradient for tensor %d has shape %v, new contribution has shape %v",
			id, existing.Shape(), delta.Shape())
	}
	g.grads[id] = backend.Add(existing, delta)
	return nil
}

// Peek returns the accumulated gradient for id without removing it.
func (g *Gradients) Peek(id tensor.ID) (*tensor.RawTensor, bool) {
	grad, ok := g.grads[id]
	return grad, ok
}

// Take removes and returns the gradient for id. The tape uses it when an
// entry consumes its output gradient.
func (g *Gradients) Take(id tensor.ID) (*tensor.RawTensor, bool) {
	grad, ok := g.grads[id]
	if ok {
		delete(g.grads, id)
	}
	return grad, ok
}

// Has reports whether a gradient has been accumulated for id.
func (g *Gradients) Has(id tensor.ID) bool {
	_, ok := g.grads[id]
	return ok
}

// Len returns the number of gradient slots currently held.
func (g *Gradients) Len() int {
	return len(g.grads)
}

// IDs returns the identity keys with accumulated gradients, in no
// particular order.
func (g *Gradients) IDs() []tensor.ID {
	ids := make([]tensor.ID, 0, len(g.grads))
	for id := range g.grads {
		ids = append(ids, id)
	}
	return ids
}
