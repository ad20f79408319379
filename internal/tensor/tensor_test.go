package tensor

import "testing"

// hostBackend is a minimal Backend for exercising handle semantics without
// pulling in a real compute package (which would create an import cycle).
type hostBackend struct{}

func (hostBackend) Allocate(shape Shape, dtype DataType) (*RawTensor, error) {
	return NewRaw(shape, dtype, CPU)
}

func (hostBackend) Transfer(t *RawTensor) (*RawTensor, error) {
	out, err := NewRaw(t.Shape(), t.DType(), CPU)
	if err != nil {
		return nil, err
	}
	copy(out.Data(), t.Data())
	return out, nil
}

func (hostBackend) Add(a, b *RawTensor) *RawTensor  { panic("not implemented") }
func (hostBackend) Sub(a, b *RawTensor) *RawTensor  { panic("not implemented") }
func (hostBackend) Mul(a, b *RawTensor) *RawTensor  { panic("not implemented") }
func (hostBackend) Div(a, b *RawTensor) *RawTensor  { panic("not implemented") }
func (hostBackend) AddScalar(x *RawTensor, scalar float64) *RawTensor { panic("not implemented") }
func (hostBackend) MulScalar(x *RawTensor, scalar float64) *RawTensor { panic("not implemented") }
func (hostBackend) MatMul(a, b *RawTensor) *RawTensor                 { panic("not implemented") }
func (hostBackend) Conv2D(input, kernel *RawTensor, stride, padding int) *RawTensor {
	panic("not implemented")
}
func (hostBackend) Conv2DInputBackward(input, kernel, grad *RawTensor, stride, padding int) *RawTensor {
	panic("not implemented")
}
func (hostBackend) Conv2DKernelBackward(input, kernel, grad *RawTensor, stride, padding int) *RawTensor {
	panic("not implemented")
}
func (hostBackend) Exp(x *RawTensor) *RawTensor  { panic("not implemented") }
func (hostBackend) Log(x *RawTensor) *RawTensor  { panic("not implemented") }
func (hostBackend) Sqrt(x *RawTensor) *RawTensor { panic("not implemented") }
func (hostBackend) ReLU(x *RawTensor) *RawTensor { panic("not implemented") }
func (hostBackend) Sum(x *RawTensor) *RawTensor  { panic("not implemented") }
func (hostBackend) SumDim(x *RawTensor, dim int, keepDim bool) *RawTensor {
	panic("not implemented")
}
func (hostBackend) MeanDim(x *RawTensor, dim int, keepDim bool) *RawTensor {
	panic("not implemented")
}
func (hostBackend) Reshape(t *RawTensor, newShape Shape) *RawTensor { panic("not implemented") }
func (hostBackend) Transpose(t *RawTensor, axes ...int) *RawTensor  { panic("not implemented") }
func (hostBackend) Expand(x *RawTensor, shape Shape) *RawTensor     { panic("not implemented") }
func (hostBackend) Name() string                                    { return "host" }
func (hostBackend) Device() Device                                  { return CPU }

var _ Backend = hostBackend{}

func TestFromSlice(t *testing.T) {
	x, err := FromSlice([]float32{1, 2, 3, 4, 5, 6}, Shape{2, 3}, hostBackend{})
	if err != nil {
		t.Fatalf("FromSlice: %v", err)
	}
	if !x.Shape().Equal(Shape{2, 3}) {
		t.Errorf("Shape = %v, want [2 3]", x.Shape())
	}
	if x.DType() != Float32 {
		t.Errorf("DType = %v, want Float32", x.DType())
	}
	if got := x.At(1, 2); got != 6 {
		t.Errorf("At(1,2) = %v, want 6", got)
	}
}

func TestFromSlice_LengthMismatch(t *testing.T) {
	_, err := FromSlice([]float32{1, 2, 3}, Shape{2, 2}, hostBackend{})
	if err == nil {
		t.Fatal("expected error for mismatched data length")
	}
	if !IsCode(err, ShapeMismatch) {
		t.Errorf("error code = %v, want shape-mismatch", err)
	}
}

func TestAtSet(t *testing.T) {
	x, _ := FromSlice([]float64{0, 0, 0, 0}, Shape{2, 2}, hostBackend{})
	x.Set(3.5, 1, 0)
	if got := x.At(1, 0); got != 3.5 {
		t.Errorf("At(1,0) = %v, want 3.5", got)
	}
	if got := x.Data()[2]; got != 3.5 {
		t.Errorf("Data()[2] = %v, want 3.5 (row-major)", got)
	}
}

func TestItem(t *testing.T) {
	s, _ := FromSlice([]float32{42}, Shape{}, hostBackend{})
	if got := s.Item(); got != 42 {
		t.Errorf("Item = %v, want 42", got)
	}

	x, _ := FromSlice([]float32{1, 2}, Shape{2}, hostBackend{})
	defer func() {
		if recover() == nil {
			t.Error("Item on multi-element tensor should panic")
		}
	}()
	x.Item()
}

func TestRequireGradChaining(t *testing.T) {
	x, _ := FromSlice([]float32{1}, Shape{1}, hostBackend{})
	if x.RequiresGrad() {
		t.Error("fresh tensor should not request gradients")
	}
	if y := x.RequireGrad(); y != x || !x.RequiresGrad() {
		t.Error("RequireGrad should set the flag and return the receiver")
	}
}

func TestDetach(t *testing.T) {
	x, _ := FromSlice([]float32{1, 2}, Shape{2}, hostBackend{})
	x.RequireGrad()

	d := x.Detach()
	if d.RequiresGrad() {
		t.Error("detached handle should not request gradients")
	}
	if d.ID() != x.ID() {
		t.Error("detached handle should alias the same allocation")
	}
	d.Data()[0] = 9
	if x.Data()[0] != 9 {
		t.Error("detached handle should share the buffer")
	}
}

func TestTo(t *testing.T) {
	x, _ := FromSlice([]float32{1, 2, 3}, Shape{3}, hostBackend{})
	x.RequireGrad()

	y, err := To(x, hostBackend{})
	if err != nil {
		t.Fatalf("To: %v", err)
	}
	if y.ID() == x.ID() {
		t.Error("transferred tensor must carry a fresh identity")
	}
	if y.RequiresGrad() {
		t.Error("transfer must not carry the gradient flag")
	}
	if y.Data()[1] != 2 {
		t.Errorf("Data[1] = %v, want 2", y.Data()[1])
	}
}
