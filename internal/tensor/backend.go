package tensor

// Backend is the closed capability set implemented once per compute
// target. A backend owns the physical memory of the tensors it allocates
// and executes the forward (and, for convolution, backward) kernels.
//
// Dispatch is static: the (operation, backend) pair resolves through Go
// interface dispatch at the call site, with no runtime inspection of
// tensor contents on the hot path.
//
// Implementations:
//   - cpu:    portable Go loop kernels with a chunked worker pool
//   - blas:   CPU-resident memory, GEMM routed to gonum BLAS
//   - webgpu: WGSL compute shaders behind a pooled transient-buffer layer
//
// Forward kernels panic with a typed *Error on shape or backend misuse;
// fallible resource operations (Allocate, Transfer) return errors.
type Backend interface {
	// Allocate reserves a zero-initialized buffer in this backend's memory.
	// Fails with an allocation-failure error if the request cannot be
	// satisfied.
	Allocate(shape Shape, dtype DataType) (*RawTensor, error)

	// Element-wise binary operations with NumPy-style broadcasting.
	Add(a, b *RawTensor) *RawTensor
	Sub(a, b *RawTensor) *RawTensor
	Mul(a, b *RawTensor) *RawTensor
	Div(a, b *RawTensor) *RawTensor

	// Element-wise operations against a scalar.
	AddScalar(x *RawTensor, scalar float64) *RawTensor
	MulScalar(x *RawTensor, scalar float64) *RawTensor

	// MatMul performs 2D matrix multiplication: (M,K) @ (K,N) -> (M,N).
	MatMul(a, b *RawTensor) *RawTensor

	// Conv2D performs 2D convolution over NCHW input with an
	// (COut,CIn,KH,KW) kernel. The backward kernels compute the input and
	// kernel gradients for the same geometry.
	Conv2D(input, kernel *RawTensor, stride, padding int) *RawTensor
	Conv2DInputBackward(input, kernel, grad *RawTensor, stride, padding int) *RawTensor
	Conv2DKernelBackward(input, kernel, grad *RawTensor, stride, padding int) *RawTensor

	// Element-wise math.
	Exp(x *RawTensor) *RawTensor
	Log(x *RawTensor) *RawTensor
	Sqrt(x *RawTensor) *RawTensor
	ReLU(x *RawTensor) *RawTensor

	// Reductions. Sum reduces all elements to a rank-0 scalar. NaN values
	// propagate into the result (plain floating-point accumulation).
	Sum(x *RawTensor) *RawTensor
	SumDim(x *RawTensor, dim int, keepDim bool) *RawTensor
	MeanDim(x *RawTensor, dim int, keepDim bool) *RawTensor

	// Shape operations.
	Reshape(t *RawTensor, newShape Shape) *RawTensor
	Transpose(t *RawTensor, axes ...int) *RawTensor
	Expand(x *RawTensor, shape Shape) *RawTensor

	// Transfer materializes a copy of t in this backend's memory. It is
	// required before mixing tensors from two different backends in one
	// operation; mixing without it fails with a backend-mismatch error.
	Transfer(t *RawTensor) (*RawTensor, error)

	// Metadata.
	Name() string
	Device() Device
}
