package ops

import (
	"testing"

	"github.com/tapegrad-ml/tapegrad/internal/backend/cpu"
	"github.com/tapegrad-ml/tapegrad/internal/tensor"
)

func raw(t *testing.T, data []float32, shape tensor.Shape) *tensor.RawTensor {
	t.Helper()
	r, err := tensor.NewRaw(shape, tensor.Float32, tensor.CPU)
	if err != nil {
		t.Fatalf("NewRaw: %v", err)
	}
	copy(r.AsFloat32(), data)
	return r
}

func TestReduceBroadcast_SameShape(t *testing.T) {
	backend := cpu.New()
	grad := raw(t, []float32{1, 2, 3}, tensor.Shape{3})

	got := reduceBroadcast(grad, tensor.Shape{3}, backend)
	if got.ID() != grad.ID() {
		t.Error("matching shapes should return a view of the gradient")
	}
	if grad.IsUnique() {
		t.Error("returned view must keep the gradient buffer non-unique")
	}
}

func TestReduceBroadcast_SumsLeadingDims(t *testing.T) {
	backend := cpu.New()
	grad := raw(t, []float32{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3})

	got := reduceBroadcast(grad, tensor.Shape{3}, backend)
	if !got.Shape().Equal(tensor.Shape{3}) {
		t.Fatalf("shape = %v, want [3]", got.Shape())
	}
	want := []float32{5, 7, 9}
	for i, v := range got.AsFloat32() {
		if v != want[i] {
			t.Errorf("[%d] = %f, want %f", i, v, want[i])
		}
	}
}

func TestReduceBroadcast_SumsSizeOneDims(t *testing.T) {
	backend := cpu.New()
	grad := raw(t, []float32{1, 2, 3, 4, 5, 6}, tensor.Shape{3, 2})

	got := reduceBroadcast(grad, tensor.Shape{3, 1}, backend)
	if !got.Shape().Equal(tensor.Shape{3, 1}) {
		t.Fatalf("shape = %v, want [3 1]", got.Shape())
	}
	want := []float32{3, 7, 11}
	for i, v := range got.AsFloat32() {
		if v != want[i] {
			t.Errorf("[%d] = %f, want %f", i, v, want[i])
		}
	}
}

func TestReduceBroadcast_ToScalar(t *testing.T) {
	backend := cpu.New()
	grad := raw(t, []float32{1, 2, 3, 4}, tensor.Shape{2, 2})

	got := reduceBroadcast(grad, tensor.Shape{}, backend)
	if !got.Shape().IsScalar() {
		t.Fatalf("shape = %v, want rank-0", got.Shape())
	}
	if got.AsFloat32()[0] != 10 {
		t.Errorf("value = %f, want 10", got.AsFloat32()[0])
	}
}

func TestTransposeOp_InversePermutation(t *testing.T) {
	backend := cpu.New()
	input := raw(t, make([]float32, 24), tensor.Shape{2, 3, 4})
	output := backend.Transpose(input, 2, 0, 1) // shape (4, 2, 3)

	op := NewTransposeOp(input, output, []int{2, 0, 1})
	grad := raw(t, make([]float32, 24), tensor.Shape{4, 2, 3})

	grads := op.Backward(grad, backend)
	if len(grads) != 1 {
		t.Fatalf("got %d gradients, want 1", len(grads))
	}
	if !grads[0].Shape().Equal(tensor.Shape{2, 3, 4}) {
		t.Errorf("grad shape = %v, want the input shape [2 3 4]", grads[0].Shape())
	}
}

func TestSumDimOp_SpreadsDroppedDim(t *testing.T) {
	backend := cpu.New()
	input := raw(t, []float32{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3})
	output := backend.SumDim(input, 1, false) // shape (2)

	op := NewSumDimOp(input, output, 1, false)
	grad := raw(t, []float32{10, 20}, tensor.Shape{2})

	grads := op.Backward(grad, backend)
	if !grads[0].Shape().Equal(tensor.Shape{2, 3}) {
		t.Fatalf("grad shape = %v, want [2 3]", grads[0].Shape())
	}
	want := []float32{10, 10, 10, 20, 20, 20}
	for i, v := range grads[0].AsFloat32() {
		if v != want[i] {
			t.Errorf("[%d] = %f, want %f", i, v, want[i])
		}
	}
}

func TestOpBase_Identity(t *testing.T) {
	a := raw(t, []float32{1}, tensor.Shape{1})
	b := raw(t, []float32{2}, tensor.Shape{1})
	out := raw(t, []float32{3}, tensor.Shape{1})

	op := NewAddOp(a, b, out)
	ids := op.InputIDs()
	if ids[0] != a.ID() || ids[1] != b.ID() {
		t.Error("InputIDs should carry the inputs' identity keys")
	}
	if op.OutputID() != out.ID() {
		t.Error("OutputID should carry the output's identity key")
	}
	if a.IsUnique() || b.IsUnique() {
		t.Error("recording must pin the saved inputs")
	}
}
