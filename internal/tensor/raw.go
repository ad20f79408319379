package tensor

import (
	"sync"
	"sync/atomic"
	"unsafe"
)

// Device represents the memory residency of a tensor.
type Device int

// Supported devices. The BLAS backend operates on CPU-resident memory and
// therefore reports Device() == CPU.
const (
	CPU Device = iota
	WebGPU
)

// String returns a human-readable device name.
func (d Device) String() string {
	switch d {
	case CPU:
		return "CPU"
	case WebGPU:
		return "WebGPU"
	default:
		return "Unknown"
	}
}

// ID is the lightweight identity key of a storage descriptor. Tape entries
// and the gradient store hold IDs rather than tensor handles, so a recorded
// pass never extends the lifetime of a dropped tensor's allocation.
type ID uint64

var nextID atomic.Uint64

// tensorBuffer is a reference-counted shared buffer. Sharing enables cheap
// views and in-place optimizations when refCount == 1; the buffer is
// reclaimed when the last reference is released.
type tensorBuffer struct {
	data     []byte
	refCount atomic.Int32
	mu       sync.Mutex // guards deallocation
	free     func()     // optional backend reclaim hook, called once at refCount 0
}

func newTensorBuffer(size int) *tensorBuffer {
	buf := &tensorBuffer{data: make([]byte, size)}
	buf.refCount.Store(1)
	return buf
}

func (tb *tensorBuffer) addRef() {
	tb.refCount.Add(1)
}

func (tb *tensorBuffer) release() {
	if tb.refCount.Add(-1) == 0 {
		tb.mu.Lock()
		defer tb.mu.Unlock()
		tb.data = nil
		if tb.free != nil {
			tb.free()
			tb.free = nil
		}
	}
}

func (tb *tensorBuffer) isUnique() bool {
	return tb.refCount.Load() == 1
}

// RawTensor is the storage descriptor: element type, shape, strides, device
// residency, and the shared data buffer, plus the process-unique identity
// key used by the tape and the gradient store.
type RawTensor struct {
	id           ID
	buffer       *tensorBuffer
	shape        Shape
	stride       []int
	dtype        DataType
	device       Device
	offset       int
	requiresGrad bool
}

// NewRaw creates a new RawTensor with the given shape and type.
// Memory is zero-initialized.
func NewRaw(shape Shape, dtype DataType, device Device) (*RawTensor, error) {
	if err := shape.Validate(); err != nil {
		return nil, Errorf(AllocationFailure, "allocate", "invalid shape: %v", err)
	}

	byteSize := shape.NumElements() * dtype.Size()
	if byteSize < 0 {
		return nil, Errorf(AllocationFailure, "allocate", "shape %v overflows addressable size", shape)
	}

	return &RawTensor{
		id:     ID(nextID.Add(1)),
		buffer: newTensorBuffer(byteSize),
		shape:  shape.Clone(),
		stride: shape.ComputeStrides(),
		dtype:  dtype,
		device: device,
		offset: 0,
	}, nil
}

// ID returns the descriptor's identity key.
func (r *RawTensor) ID() ID { return r.id }

// Shape returns the tensor's shape.
func (r *RawTensor) Shape() Shape { return r.shape }

// Strides returns the tensor's element strides.
func (r *RawTensor) Strides() []int { return r.stride }

// DType returns the tensor's element type.
func (r *RawTensor) DType() DataType { return r.dtype }

// Device returns the tensor's memory residency.
func (r *RawTensor) Device() Device { return r.device }

// NumElements returns the total number of elements.
func (r *RawTensor) NumElements() int { return r.shape.NumElements() }

// ByteSize returns the total memory size in bytes.
func (r *RawTensor) ByteSize() int { return r.NumElements() * r.dtype.Size() }

// RequiresGrad reports whether operations consuming this tensor are
// recorded for differentiation. The flag is a property of the tensor and
// persists across forward/backward cycles.
func (r *RawTensor) RequiresGrad() bool { return r.requiresGrad }

// SetRequiresGrad sets the requests-gradient flag. The recording layer
// propagates it forward: an operation output requests gradients when any
// of its inputs does.
func (r *RawTensor) SetRequiresGrad(v bool) { r.requiresGrad = v }

// Released reports whether the underlying buffer has been reclaimed.
func (r *RawTensor) Released() bool {
	return r.buffer.data == nil
}

// Data returns the raw byte slice.
// Panics with a use-after-free error if the buffer was released.
func (r *RawTensor) Data() []byte {
	r.check()
	return r.buffer.data[r.offset:]
}

func (r *RawTensor) check() {
	if r.buffer.data == nil {
		panic(Errorf(UseAfterFree, "access", "tensor %d (%s%v) used after its buffer was released", r.id, r.dtype, r.shape))
	}
}

// AsFloat32 interprets the data as []float32.
// Panics if the tensor's dtype is not Float32.
func (r *RawTensor) AsFloat32() []float32 {
	if r.dtype != Float32 {
		panic(Errorf(ShapeMismatch, "access", "tensor dtype is %s, not float32", r.dtype))
	}
	r.check()
	data := r.buffer.data[r.offset:]
	return unsafe.Slice((*float32)(unsafe.Pointer(&data[0])), r.NumElements())
}

// AsFloat64 interprets the data as []float64.
// Panics if the tensor's dtype is not Float64.
func (r *RawTensor) AsFloat64() []float64 {
	if r.dtype != Float64 {
		panic(Errorf(ShapeMismatch, "access", "tensor dtype is %s, not float64", r.dtype))
	}
	r.check()
	data := r.buffer.data[r.offset:]
	return unsafe.Slice((*float64)(unsafe.Pointer(&data[0])), r.NumElements())
}

// AsInt32 interprets the data as []int32.
// Panics if the tensor's dtype is not Int32.
func (r *RawTensor) AsInt32() []int32 {
	if r.dtype != Int32 {
		panic(Errorf(ShapeMismatch, "access", "tensor dtype is %s, not int32", r.dtype))
	}
	r.check()
	data := r.buffer.data[r.offset:]
	return unsafe.Slice((*int32)(unsafe.Pointer(&data[0])), r.NumElements())
}

// AsInt64 interprets the data as []int64.
// Panics if the tensor's dtype is not Int64.
func (r *RawTensor) AsInt64() []int64 {
	if r.dtype != Int64 {
		panic(Errorf(ShapeMismatch, "access", "tensor dtype is %s, not int64", r.dtype))
	}
	r.check()
	data := r.buffer.data[r.offset:]
	return unsafe.Slice((*int64)(unsafe.Pointer(&data[0])), r.NumElements())
}

// Clone creates a shallow copy sharing the buffer (reference counted).
// The copy keeps the same identity key: it aliases the same allocation and
// accumulates into the same gradient slot.
func (r *RawTensor) Clone() *RawTensor {
	r.buffer.addRef()
	return &RawTensor{
		id:           r.id,
		buffer:       r.buffer,
		shape:        r.shape.Clone(),
		stride:       append([]int(nil), r.stride...),
		dtype:        r.dtype,
		device:       r.device,
		offset:       r.offset,
		requiresGrad: r.requiresGrad,
	}
}

// Adopt returns a view of this tensor retagged with a different device.
// Backend implementations use it when they compute on borrowed host
// kernels but own the result's residency.
func (r *RawTensor) Adopt(device Device) *RawTensor {
	view := r.Clone()
	view.device = device
	return view
}

// Release decrements the reference count and reclaims the buffer when it
// reaches zero, invoking the owning backend's reclaim hook exactly once.
func (r *RawTensor) Release() {
	r.buffer.release()
}

// SetFinalizer registers a backend reclaim hook invoked when the last
// reference to the buffer is released.
func (r *RawTensor) SetFinalizer(free func()) {
	r.buffer.free = free
}

// IsUnique returns true if this tensor is the only reference to the buffer.
// When true, backends may compute in place.
func (r *RawTensor) IsUnique() bool {
	return r.buffer.isUnique()
}

// ForceNonUnique temporarily increases the refcount so IsUnique reports
// false, preventing in-place kernels from clobbering values the tape saved
// for the backward pass. The returned cleanup must be deferred.
func (r *RawTensor) ForceNonUnique() func() {
	r.buffer.addRef()
	return func() {
		r.buffer.release()
	}
}
