package autodiff_test

import (
	"testing"

	"github.com/tapegrad-ml/tapegrad/internal/autodiff"
	"github.com/tapegrad-ml/tapegrad/internal/backend/cpu"
	"github.com/tapegrad-ml/tapegrad/internal/tensor"
)

type Backend = *autodiff.AutodiffBackend[*cpu.Backend]

func newBackend() Backend {
	backend := autodiff.New(cpu.New())
	backend.Tape().StartRecording()
	return backend
}

func param(t *testing.T, backend Backend, data []float32, shape tensor.Shape) *tensor.Tensor[float32, Backend] {
	t.Helper()
	x, err := tensor.FromSlice(data, shape, backend)
	if err != nil {
		t.Fatalf("FromSlice: %v", err)
	}
	return x.RequireGrad()
}

func gradOf(t *testing.T, grads *autodiff.Gradients, id tensor.ID) []float32 {
	t.Helper()
	grad, ok := grads.Peek(id)
	if !ok {
		t.Fatalf("no gradient accumulated for tensor %d", id)
	}
	return grad.AsFloat32()
}

func TestAutodiffBackend_Name(t *testing.T) {
	backend := autodiff.New(cpu.New())
	if got := backend.Name(); got != "Autodiff(CPU)" {
		t.Errorf("Name() = %s, want Autodiff(CPU)", got)
	}
	if backend.Device() != tensor.CPU {
		t.Errorf("Device() = %v, want CPU", backend.Device())
	}
}

func TestTape_Recording(t *testing.T) {
	backend := autodiff.New(cpu.New())
	tape := backend.Tape()

	if tape.IsRecording() {
		t.Error("tape should not record initially")
	}
	tape.StartRecording()
	if !tape.IsRecording() {
		t.Error("tape should record after StartRecording")
	}
	tape.StopRecording()
	if tape.IsRecording() {
		t.Error("tape should not record after StopRecording")
	}
}

func TestTape_RecordsOnlyGradientRequests(t *testing.T) {
	backend := newBackend()

	a, _ := tensor.FromSlice([]float32{1, 2}, tensor.Shape{2}, backend)
	b, _ := tensor.FromSlice([]float32{3, 4}, tensor.Shape{2}, backend)
	a.Add(b)
	if got := backend.Tape().NumOps(); got != 0 {
		t.Fatalf("op over constants recorded %d entries, want 0", got)
	}

	a.RequireGrad()
	c := a.Add(b)
	if got := backend.Tape().NumOps(); got != 1 {
		t.Fatalf("op over a parameter recorded %d entries, want 1", got)
	}
	if !c.RequiresGrad() {
		t.Error("recorded output should request gradients")
	}
}

func TestTape_Clear(t *testing.T) {
	backend := newBackend()
	x := param(t, backend, []float32{1, 2}, tensor.Shape{2})
	x.Add(x)

	tape := backend.Tape()
	if tape.NumOps() == 0 {
		t.Fatal("tape should have recorded operations")
	}
	tape.Clear()
	if tape.NumOps() != 0 {
		t.Errorf("tape has %d ops after Clear, want 0", tape.NumOps())
	}
	if !tape.IsRecording() {
		t.Error("Clear should preserve recording state")
	}
}

func TestBackward_SumOfSquares(t *testing.T) {
	backend := newBackend()
	x := param(t, backend, []float32{1, 2, 3}, tensor.Shape{3})

	loss := x.Square().Sum()
	grads, err := autodiff.Backward(loss, backend)
	if err != nil {
		t.Fatalf("Backward: %v", err)
	}

	// d(Σx²)/dx = 2x
	got := gradOf(t, grads, x.ID())
	want := []float32{2, 4, 6}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("grad[%d] = %f, want %f", i, got[i], want[i])
		}
	}
}

func TestBackward_AddSplitsGradient(t *testing.T) {
	backend := newBackend()
	x := param(t, backend, []float32{1, 2}, tensor.Shape{2})
	y := param(t, backend, []float32{3, 4}, tensor.Shape{2})

	loss := x.Add(y).Sum()
	grads, err := autodiff.Backward(loss, backend)
	if err != nil {
		t.Fatalf("Backward: %v", err)
	}

	for _, id := range []tensor.ID{x.ID(), y.ID()} {
		for i, v := range gradOf(t, grads, id) {
			if v != 1 {
				t.Errorf("grad of %d at [%d] = %f, want 1", id, i, v)
			}
		}
	}
}

func TestBackward_FanOutAccumulates(t *testing.T) {
	backend := newBackend()
	x := param(t, backend, []float32{1, 2, 3}, tensor.Shape{3})

	// x feeds the loss through two paths: d(Σ(x+x))/dx = 2.
	loss := x.Add(x).Sum()
	grads, err := autodiff.Backward(loss, backend)
	if err != nil {
		t.Fatalf("Backward: %v", err)
	}
	for i, v := range gradOf(t, grads, x.ID()) {
		if v != 2 {
			t.Errorf("grad[%d] = %f, want 2 (sum of both paths)", i, v)
		}
	}
}

func TestBackward_MulFanOut(t *testing.T) {
	backend := newBackend()
	x := param(t, backend, []float32{1, 2, 3}, tensor.Shape{3})

	// y = x*x uses x twice: dy/dx = x + x = 2x.
	loss := x.Mul(x).Sum()
	grads, err := autodiff.Backward(loss, backend)
	if err != nil {
		t.Fatalf("Backward: %v", err)
	}
	want := []float32{2, 4, 6}
	for i, v := range gradOf(t, grads, x.ID()) {
		if v != want[i] {
			t.Errorf("grad[%d] = %f, want %f", i, v, want[i])
		}
	}
}

func TestBackward_TapeSingleUse(t *testing.T) {
	backend := newBackend()
	x := param(t, backend, []float32{1, 2}, tensor.Shape{2})
	loss := x.Square().Sum()

	if _, err := autodiff.Backward(loss, backend); err != nil {
		t.Fatalf("first Backward: %v", err)
	}

	_, err := autodiff.Backward(loss, backend)
	if err == nil {
		t.Fatal("second Backward on a consumed tape should fail")
	}
	if !tensor.IsCode(err, tensor.TapeConsumed) {
		t.Errorf("error code = %v, want tape-reuse", err)
	}

	// Clear re-arms the tape for a fresh cycle.
	backend.Tape().Clear()
	loss2 := x.Square().Sum()
	if _, err := autodiff.Backward(loss2, backend); err != nil {
		t.Fatalf("Backward after Clear: %v", err)
	}
}

func TestBackward_DeadBranchSkipped(t *testing.T) {
	backend := newBackend()
	x := param(t, backend, []float32{1, 2}, tensor.Shape{2})
	v := param(t, backend, []float32{5, 6}, tensor.Shape{2})

	v.Mul(v) // recorded, but disconnected from the loss
	loss := x.Mul(x).Sum()

	grads, err := autodiff.Backward(loss, backend)
	if err != nil {
		t.Fatalf("Backward: %v", err)
	}
	if !grads.Has(x.ID()) {
		t.Error("connected branch should receive a gradient")
	}
	if grads.Has(v.ID()) {
		t.Error("disconnected branch should receive no gradient")
	}
}

func TestBackward_NonDifferentiableRoot(t *testing.T) {
	backend := newBackend()
	x := param(t, backend, []float32{1, 2}, tensor.Shape{2})

	// Non-scalar root.
	y := x.Square()
	if _, err := autodiff.Backward(y, backend); !tensor.IsCode(err, tensor.NonDifferentiableRoot) {
		t.Errorf("non-scalar root: error = %v, want non-differentiable-root", err)
	}

	// Single-element rank-1 root: only rank-0 scalars qualify.
	w := param(t, backend, []float32{3}, tensor.Shape{1})
	z := w.Square()
	if _, err := autodiff.Backward(z, backend); !tensor.IsCode(err, tensor.NonDifferentiableRoot) {
		t.Errorf("rank-1 root: error = %v, want non-differentiable-root", err)
	}

	// Scalar, but never produced by a recorded operation.
	leaf := param(t, backend, []float32{1}, tensor.Shape{})
	if _, err := autodiff.Backward(leaf, backend); !tensor.IsCode(err, tensor.NonDifferentiableRoot) {
		t.Errorf("untracked root: error = %v, want non-differentiable-root", err)
	}

	// Scalar computed entirely outside gradient tracking.
	c, _ := tensor.FromSlice([]float32{2}, tensor.Shape{}, backend)
	d := c.Square()
	if _, err := autodiff.Backward(d, backend); !tensor.IsCode(err, tensor.NonDifferentiableRoot) {
		t.Errorf("constant root: error = %v, want non-differentiable-root", err)
	}
}

func TestBackward_BroadcastGradients(t *testing.T) {
	backend := newBackend()
	a := param(t, backend, []float32{1, 2, 3}, tensor.Shape{3, 1})
	b := param(t, backend, []float32{10, 20}, tensor.Shape{1, 2})

	loss := a.Add(b).Sum()
	grads, err := autodiff.Backward(loss, backend)
	if err != nil {
		t.Fatalf("Backward: %v", err)
	}

	gradA, _ := grads.Peek(a.ID())
	if !gradA.Shape().Equal(tensor.Shape{3, 1}) {
		t.Fatalf("grad a shape = %v, want [3 1]", gradA.Shape())
	}
	for i, v := range gradA.AsFloat32() {
		if v != 2 {
			t.Errorf("grad a[%d] = %f, want 2 (broadcast along 2 columns)", i, v)
		}
	}

	gradB, _ := grads.Peek(b.ID())
	if !gradB.Shape().Equal(tensor.Shape{1, 2}) {
		t.Fatalf("grad b shape = %v, want [1 2]", gradB.Shape())
	}
	for i, v := range gradB.AsFloat32() {
		if v != 3 {
			t.Errorf("grad b[%d] = %f, want 3 (broadcast along 3 rows)", i, v)
		}
	}
}

func TestBackward_MatMulShapes(t *testing.T) {
	backend := newBackend()
	x := param(t, backend, []float32{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3})
	w := param(t, backend, []float32{1, 0, 0, 1, 1, 1}, tensor.Shape{3, 2})

	loss := x.MatMul(w).Sum()
	grads, err := autodiff.Backward(loss, backend)
	if err != nil {
		t.Fatalf("Backward: %v", err)
	}

	gradX, _ := grads.Peek(x.ID())
	if !gradX.Shape().Equal(tensor.Shape{2, 3}) {
		t.Errorf("grad x shape = %v, want [2 3]", gradX.Shape())
	}
	gradW, _ := grads.Peek(w.ID())
	if !gradW.Shape().Equal(tensor.Shape{3, 2}) {
		t.Errorf("grad w shape = %v, want [3 2]", gradW.Shape())
	}

	// dΣ(x@w)/dx row i, col k = Σ_j w[k][j] (row sums of w).
	wantX := []float32{1, 1, 2, 1, 1, 2}
	for i, v := range gradX.AsFloat32() {
		if v != wantX[i] {
			t.Errorf("grad x[%d] = %f, want %f", i, v, wantX[i])
		}
	}
	// dΣ(x@w)/dw row k = column sums of x.
	wantW := []float32{5, 5, 7, 7, 9, 9}
	for i, v := range gradW.AsFloat32() {
		if v != wantW[i] {
			t.Errorf("grad w[%d] = %f, want %f", i, v, wantW[i])
		}
	}
}

func TestBackward_MatMulRejectsBadShapes(t *testing.T) {
	backend := newBackend()
	a := param(t, backend, make([]float32, 6), tensor.Shape{2, 3})
	b := param(t, backend, make([]float32, 20), tensor.Shape{4, 5})

	defer func() {
		r := recover()
		err, ok := r.(error)
		if !ok || !tensor.IsCode(err, tensor.ShapeMismatch) {
			t.Errorf("expected shape-mismatch panic, got %v", r)
		}
	}()
	a.MatMul(b)
}

func TestBackendMismatchGuard(t *testing.T) {
	backend := newBackend()
	x := param(t, backend, []float32{1, 2}, tensor.Shape{2})
	y := param(t, backend, []float32{3, 4}, tensor.Shape{2})

	foreign := y.Raw().Adopt(tensor.WebGPU)
	defer func() {
		r := recover()
		err, ok := r.(error)
		if !ok || !tensor.IsCode(err, tensor.BackendMismatch) {
			t.Errorf("expected backend-mismatch panic, got %v", r)
		}
	}()
	backend.Add(x.Raw(), foreign)
}

func TestBackendMismatchResolvedByTransfer(t *testing.T) {
	backend := newBackend()
	x := param(t, backend, []float32{1, 2}, tensor.Shape{2})
	y := param(t, backend, []float32{3, 4}, tensor.Shape{2})

	foreign := y.Raw().Adopt(tensor.WebGPU)

	guarded := func() (mismatch bool) {
		defer func() {
			err, ok := recover().(error)
			mismatch = ok && tensor.IsCode(err, tensor.BackendMismatch)
		}()
		backend.Add(x.Raw(), foreign)
		return false
	}()
	if !guarded {
		t.Fatal("expected backend-mismatch panic before Transfer")
	}

	local, err := backend.Transfer(foreign)
	if err != nil {
		t.Fatalf("Transfer: %v", err)
	}
	if local.Device() != tensor.CPU {
		t.Fatalf("transferred device = %v, want CPU", local.Device())
	}

	got := backend.Add(x.Raw(), local).AsFloat32()
	want := backend.Add(x.Raw(), y.Raw()).AsFloat32()
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sum[%d] = %f, want %f (same-backend result)", i, got[i], want[i])
		}
	}
}

func TestGradients_PeekKeepsSlot(t *testing.T) {
	backend := cpu.New()
	grads := autodiff.NewGradients()

	delta, err := backend.Allocate(tensor.Shape{2}, tensor.Float32)
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	id := delta.ID()
	if err := grads.Accumulate(id, delta, backend); err != nil {
		t.Fatalf("Accumulate: %v", err)
	}

	if _, ok := grads.Peek(id); !ok {
		t.Fatal("Peek found no gradient")
	}
	if _, ok := grads.Peek(id); !ok {
		t.Fatal("Peek removed the slot")
	}
	if _, ok := grads.Take(id); !ok {
		t.Fatal("Take found no gradient")
	}
	if grads.Has(id) {
		t.Error("slot still present after Take")
	}
}

func TestBackward_DetachBlocksGradient(t *testing.T) {
	backend := newBackend()
	x := param(t, backend, []float32{1, 2}, tensor.Shape{2})

	d := x.Detach()
	d.Mul(d)
	if got := backend.Tape().NumOps(); got != 0 {
		t.Errorf("ops over a detached tensor recorded %d entries, want 0", got)
	}
}

func TestBackward_ReplayDoesNotRecord(t *testing.T) {
	backend := newBackend()
	x := param(t, backend, []float32{1, 2}, tensor.Shape{2})
	loss := x.Square().Sum()

	before := backend.Tape().NumOps()
	if _, err := autodiff.Backward(loss, backend); err != nil {
		t.Fatalf("Backward: %v", err)
	}
	if got := backend.Tape().NumOps(); got != before {
		t.Errorf("backward pass appended %d entries to the tape", got-before)
	}
	if !backend.Tape().IsRecording() {
		t.Error("Backward should restore the recording state")
	}
}
