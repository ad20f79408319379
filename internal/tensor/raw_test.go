package tensor

import "testing"

func TestNewRaw(t *testing.T) {
	raw, err := NewRaw(Shape{2, 3}, Float32, CPU)
	if err != nil {
		t.Fatalf("NewRaw: %v", err)
	}
	if raw.ByteSize() != 24 {
		t.Errorf("ByteSize = %d, want 24", raw.ByteSize())
	}
	if raw.ID() == 0 {
		t.Error("expected non-zero identity")
	}
	for _, v := range raw.AsFloat32() {
		if v != 0 {
			t.Fatal("memory not zero-initialized")
		}
	}
}

func TestNewRaw_InvalidShape(t *testing.T) {
	_, err := NewRaw(Shape{-1}, Float32, CPU)
	if err == nil {
		t.Fatal("expected error for negative dimension")
	}
	if !IsCode(err, AllocationFailure) {
		t.Errorf("error code = %v, want allocation-failure", err)
	}
}

func TestRawIdentity(t *testing.T) {
	a, _ := NewRaw(Shape{2}, Float32, CPU)
	b, _ := NewRaw(Shape{2}, Float32, CPU)
	if a.ID() == b.ID() {
		t.Error("distinct allocations must have distinct identities")
	}

	view := a.Clone()
	if view.ID() != a.ID() {
		t.Error("a view of the same allocation must keep the identity key")
	}
}

func TestRefCounting(t *testing.T) {
	raw, _ := NewRaw(Shape{4}, Float32, CPU)
	if !raw.IsUnique() {
		t.Error("fresh tensor should be unique")
	}

	view := raw.Clone()
	if raw.IsUnique() || view.IsUnique() {
		t.Error("shared buffer should not report unique")
	}

	view.Release()
	if !raw.IsUnique() {
		t.Error("releasing the view should restore uniqueness")
	}
	if raw.Released() {
		t.Error("buffer reclaimed while a reference remains")
	}

	raw.Release()
	if !raw.Released() {
		t.Error("buffer should be reclaimed at refcount zero")
	}
}

func TestUseAfterFree(t *testing.T) {
	raw, _ := NewRaw(Shape{4}, Float32, CPU)
	raw.Release()

	defer func() {
		r := recover()
		err, ok := r.(error)
		if !ok || !IsCode(err, UseAfterFree) {
			t.Errorf("expected use-after-free error, got %v", r)
		}
	}()
	_ = raw.AsFloat32()
}

func TestFinalizerRunsOnce(t *testing.T) {
	raw, _ := NewRaw(Shape{4}, Float32, CPU)
	calls := 0
	raw.SetFinalizer(func() { calls++ })

	view := raw.Clone()
	view.Release()
	if calls != 0 {
		t.Fatal("finalizer ran while references remain")
	}
	raw.Release()
	if calls != 1 {
		t.Errorf("finalizer ran %d times, want 1", calls)
	}
}

func TestForceNonUnique(t *testing.T) {
	raw, _ := NewRaw(Shape{4}, Float32, CPU)
	release := raw.ForceNonUnique()
	if raw.IsUnique() {
		t.Error("pinned tensor should not report unique")
	}
	release()
	if !raw.IsUnique() {
		t.Error("releasing the pin should restore uniqueness")
	}
}

func TestAdopt(t *testing.T) {
	raw, _ := NewRaw(Shape{4}, Float32, CPU)
	view := raw.Adopt(WebGPU)
	if view.Device() != WebGPU {
		t.Errorf("Device = %v, want WebGPU", view.Device())
	}
	if view.ID() != raw.ID() {
		t.Error("retagged view must keep the identity key")
	}
	view.AsFloat32()[0] = 7
	if raw.AsFloat32()[0] != 7 {
		t.Error("retagged view must alias the same buffer")
	}
}
