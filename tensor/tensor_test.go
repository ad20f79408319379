// Copyright 2025 The Tapegrad Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package tensor_test

import (
	"testing"

	internalcpu "github.com/tapegrad-ml/tapegrad/internal/backend/cpu"
	"github.com/tapegrad-ml/tapegrad/tensor"
)

// TestBackendInterface verifies that the CPU backend implements the public
// tensor.Backend interface.
func TestBackendInterface(_ *testing.T) {
	var _ tensor.Backend = (*internalcpu.Backend)(nil)
}

// TestRawTensorAPI verifies the RawTensor alias exposes the expected API.
func TestRawTensorAPI(t *testing.T) {
	raw, err := tensor.NewRaw(tensor.Shape{2, 3}, tensor.Float32, tensor.CPU)
	if err != nil {
		t.Fatalf("NewRaw failed: %v", err)
	}

	if !raw.Shape().Equal(tensor.Shape{2, 3}) {
		t.Errorf("Shape() = %v, want [2 3]", raw.Shape())
	}
	if raw.DType() != tensor.Float32 {
		t.Errorf("DType() = %v, want Float32", raw.DType())
	}
	if raw.Device() != tensor.CPU {
		t.Errorf("Device() = %v, want CPU", raw.Device())
	}
	if raw.NumElements() != 6 {
		t.Errorf("NumElements() = %d, want 6", raw.NumElements())
	}
	if raw.ByteSize() != 6*4 {
		t.Errorf("ByteSize() = %d, want 24", raw.ByteSize())
	}

	clone := raw.Clone()
	if clone.ID() != raw.ID() {
		t.Errorf("Clone() ID = %d, want %d", clone.ID(), raw.ID())
	}
	if raw.IsUnique() {
		t.Error("IsUnique() = true after Clone(), want false")
	}
	clone.Release()
	if !raw.IsUnique() {
		t.Error("IsUnique() = false after clone.Release(), want true")
	}
}

// TestCreationFunctions exercises the re-exported constructors.
func TestCreationFunctions(t *testing.T) {
	backend := internalcpu.New()

	zeros := tensor.Zeros[float32](tensor.Shape{2, 2}, backend)
	for i, v := range zeros.Data() {
		if v != 0 {
			t.Fatalf("Zeros[%d] = %v, want 0", i, v)
		}
	}

	full := tensor.Full[float64](tensor.Shape{3}, 2.5, backend)
	for i, v := range full.Data() {
		if v != 2.5 {
			t.Fatalf("Full[%d] = %v, want 2.5", i, v)
		}
	}

	ar := tensor.Arange[int32](3, 7, backend)
	want := []int32{3, 4, 5, 6}
	for i, v := range ar.Data() {
		if v != want[i] {
			t.Fatalf("Arange[%d] = %d, want %d", i, v, want[i])
		}
	}

	s := tensor.Scalar[float32](1.5, backend)
	if s.Item() != 1.5 {
		t.Errorf("Scalar Item() = %v, want 1.5", s.Item())
	}

	x, err := tensor.FromSlice([]float32{1, 2, 3, 4}, tensor.Shape{2, 2}, backend)
	if err != nil {
		t.Fatalf("FromSlice failed: %v", err)
	}
	if x.At(1, 0) != 3 {
		t.Errorf("At(1,0) = %v, want 3", x.At(1, 0))
	}
}

// TestErrorTaxonomy verifies the error aliases round-trip through IsCode.
func TestErrorTaxonomy(t *testing.T) {
	codes := []tensor.ErrorCode{
		tensor.ShapeMismatch,
		tensor.BackendMismatch,
		tensor.AllocationFailure,
		tensor.TapeConsumed,
		tensor.NonDifferentiableRoot,
		tensor.UseAfterFree,
	}
	for _, code := range codes {
		err := tensor.Errorf(code, "test", "boom")
		if !tensor.IsCode(err, code) {
			t.Errorf("IsCode(%v) = false, want true", code)
		}
	}
	if tensor.IsCode(tensor.Errorf(tensor.ShapeMismatch, "test", "boom"), tensor.TapeConsumed) {
		t.Error("IsCode matched the wrong code")
	}
}

// TestBroadcastShapes verifies the re-exported broadcast helper.
func TestBroadcastShapes(t *testing.T) {
	out, broadcast, err := tensor.BroadcastShapes(tensor.Shape{3, 1}, tensor.Shape{1, 2})
	if err != nil {
		t.Fatalf("BroadcastShapes failed: %v", err)
	}
	if !broadcast || !out.Equal(tensor.Shape{3, 2}) {
		t.Errorf("BroadcastShapes = %v (broadcast=%v), want [3 2] true", out, broadcast)
	}

	_, _, err = tensor.BroadcastShapes(tensor.Shape{3}, tensor.Shape{4})
	if !tensor.IsCode(err, tensor.ShapeMismatch) {
		t.Errorf("BroadcastShapes error = %v, want ShapeMismatch", err)
	}
}
