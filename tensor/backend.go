// Copyright 2025 The Tapegrad Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package tensor

// Backend defines the interface that all compute backends must implement.
// Backends own the physical memory of the tensors they allocate and
// execute the actual kernels for tensor operations.
//
// Implementations:
//   - backend/cpu:    portable Go loop kernels with a chunked worker pool
//   - backend/blas:   CPU-resident memory with GEMM routed to gonum BLAS
//   - backend/webgpu: WGSL compute shaders via WebGPU
//
// Decorator backends for additional functionality:
//   - autodiff: reverse-mode automatic differentiation (wraps any backend)
//
// Forward kernels panic with a typed *Error on shape or backend misuse;
// fallible resource operations (Allocate, Transfer) return errors.
//
// Example:
//
//	backend := cpu.New()
//	x := tensor.Zeros[float32](tensor.Shape{2, 3}, backend)
//	y := tensor.Ones[float32](tensor.Shape{2, 3}, backend)
//	z := x.Add(y)  // Uses backend.Add under the hood
type Backend interface {
	// Allocate reserves a zero-initialized buffer in this backend's memory.
	Allocate(shape Shape, dtype DataType) (*RawTensor, error)

	// Element-wise binary operations with NumPy-style broadcasting.
	Add(a, b *RawTensor) *RawTensor // Element-wise addition.
	Sub(a, b *RawTensor) *RawTensor // Element-wise subtraction.
	Mul(a, b *RawTensor) *RawTensor // Element-wise multiplication.
	Div(a, b *RawTensor) *RawTensor // Element-wise division.

	// Scalar operations (element-wise with scalar).
	AddScalar(x *RawTensor, scalar float64) *RawTensor // Add scalar.
	MulScalar(x *RawTensor, scalar float64) *RawTensor // Multiply by scalar.

	// MatMul performs 2D matrix multiplication: (M,K) @ (K,N) -> (M,N).
	MatMul(a, b *RawTensor) *RawTensor

	// Convolutional operations over NCHW input.
	Conv2D(input, kernel *RawTensor, stride, padding int) *RawTensor                     // 2D convolution.
	Conv2DInputBackward(input, kernel, grad *RawTensor, stride, padding int) *RawTensor  // Conv2D input gradient.
	Conv2DKernelBackward(input, kernel, grad *RawTensor, stride, padding int) *RawTensor // Conv2D kernel gradient.

	// Math operations (element-wise).
	Exp(x *RawTensor) *RawTensor  // Exponential.
	Log(x *RawTensor) *RawTensor  // Natural logarithm.
	Sqrt(x *RawTensor) *RawTensor // Square root.
	ReLU(x *RawTensor) *RawTensor // Rectified linear unit.

	// Reductions.
	Sum(x *RawTensor) *RawTensor                            // Sum all elements to a rank-0 scalar.
	SumDim(x *RawTensor, dim int, keepDim bool) *RawTensor  // Sum along one dimension.
	MeanDim(x *RawTensor, dim int, keepDim bool) *RawTensor // Mean along one dimension.

	// Shape operations.
	Reshape(t *RawTensor, newShape Shape) *RawTensor // Reshape tensor.
	Transpose(t *RawTensor, axes ...int) *RawTensor  // Transpose dimensions.
	Expand(x *RawTensor, shape Shape) *RawTensor     // Broadcast to a larger shape.

	// Transfer materializes a copy of t in this backend's memory.
	Transfer(t *RawTensor) (*RawTensor, error)

	// Metadata.
	Name() string   // Human-readable backend name.
	Device() Device // Memory residency of tensors this backend allocates.
}
