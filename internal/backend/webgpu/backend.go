// Package webgpu implements the GPU backend on WebGPU compute shaders,
// using go-webgpu for zero-CGO bindings.
//
// Tensors keep host-addressable bytes regardless of backend; a WebGPU
// tensor is distinguished by its residency tag. Each dispatch uploads its
// inputs, runs the cached pipeline, and reads the result back through a
// pooled staging buffer. Operations without a shader (reductions, shape
// ops, convolution) borrow the portable CPU kernels and retag the result.
package webgpu

import (
	"fmt"
	"sync"

	"github.com/go-webgpu/webgpu/wgpu"

	"github.com/tapegrad-ml/tapegrad/internal/backend/cpu"
	"github.com/tapegrad-ml/tapegrad/internal/tensor"
)

// Backend implements tensor.Backend on a WebGPU device.
type Backend struct {
	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	device   *wgpu.Device
	queue    *wgpu.Queue

	// shader and pipeline caches
	shaders   map[string]*wgpu.ShaderModule
	pipelines map[string]*wgpu.ComputePipeline
	mu        sync.RWMutex

	adapterInfo *wgpu.AdapterInfoGo

	bufferPool *BufferPool

	// host kernels for operations without a shader
	host *cpu.Backend
}

// New creates a WebGPU backend. Fails with an error when no adapter or
// device is available (headless CI, missing native library).
func New() (backend *Backend, err error) {
	// RequestAdapter panics when the wgpu native library is absent.
	defer func() {
		if r := recover(); r != nil {
			backend = nil
			err = fmt.Errorf("webgpu: native library not available: %v", r)
		}
	}()

	instance, instanceErr := wgpu.CreateInstance(nil)
	if instanceErr != nil {
		return nil, fmt.Errorf("webgpu: failed to create instance: %w", instanceErr)
	}
	adapter, adapterErr := instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		PowerPreference: wgpu.PowerPreferenceHighPerformance,
	})
	if adapterErr != nil {
		instance.Release()
		return nil, fmt.Errorf("webgpu: failed to request adapter: %w", adapterErr)
	}

	adapterInfo, _ := adapter.GetInfo()

	device, deviceErr := adapter.RequestDevice(nil)
	if deviceErr != nil {
		adapter.Release()
		instance.Release()
		return nil, fmt.Errorf("webgpu: failed to request device: %w", deviceErr)
	}

	queue := device.GetQueue()
	if queue == nil {
		device.Release()
		adapter.Release()
		instance.Release()
		return nil, fmt.Errorf("webgpu: failed to get queue")
	}

	return &Backend{
		instance:    instance,
		adapter:     adapter,
		device:      device,
		queue:       queue,
		shaders:     make(map[string]*wgpu.ShaderModule),
		pipelines:   make(map[string]*wgpu.ComputePipeline),
		adapterInfo: adapterInfo,
		bufferPool:  NewBufferPool(device),
		host:        cpu.New(),
	}, nil
}

// Release frees all GPU resources held by the backend.
func (b *Backend) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.bufferPool != nil {
		b.bufferPool.Clear()
		b.bufferPool = nil
	}
	for _, pipeline := range b.pipelines {
		pipeline.Release()
	}
	b.pipelines = nil
	for _, shader := range b.shaders {
		shader.Release()
	}
	b.shaders = nil

	if b.device != nil {
		b.device.Release()
		b.device = nil
	}
	if b.adapter != nil {
		b.adapter.Release()
		b.adapter = nil
	}
	if b.instance != nil {
		b.instance.Release()
		b.instance = nil
	}
}

// Name returns the backend name.
func (b *Backend) Name() string { return "WebGPU" }

// Device returns the compute device.
func (b *Backend) Device() tensor.Device { return tensor.WebGPU }

// AdapterName returns the GPU adapter's self-reported name.
func (b *Backend) AdapterName() string {
	if b.adapterInfo == nil {
		return "unknown"
	}
	return b.adapterInfo.Device
}

// Allocate reserves a zero-initialized buffer tagged with GPU residency.
func (b *Backend) Allocate(shape tensor.Shape, dtype tensor.DataType) (*tensor.RawTensor, error) {
	return tensor.NewRaw(shape, dtype, tensor.WebGPU)
}

// Transfer materializes a copy of t in this backend's memory.
func (b *Backend) Transfer(t *tensor.RawTensor) (*tensor.RawTensor, error) {
	out, err := tensor.NewRaw(t.Shape(), t.DType(), tensor.WebGPU)
	if err != nil {
		return nil, err
	}
	copy(out.Data(), t.Data())
	return out, nil
}

// retag stamps GPU residency onto a result produced by the host kernels.
func retag(t *tensor.RawTensor) *tensor.RawTensor {
	if t.Device() == tensor.WebGPU {
		return t
	}
	return t.Adopt(tensor.WebGPU)
}

// gpuEligible reports whether a binary elementwise op can dispatch to the
// GPU: the shaders cover float32 with identical shapes. Broadcasts and the
// other element types go through the host kernels.
func gpuEligible(x, y *tensor.RawTensor) bool {
	return x.DType() == tensor.Float32 && y.DType() == tensor.Float32 && x.Shape().Equal(y.Shape())
}

func (b *Backend) binary(x, y *tensor.RawTensor, name, code string, hostOp func(a, c *tensor.RawTensor) *tensor.RawTensor) *tensor.RawTensor {
	if x.DType() != y.DType() {
		panic(tensor.Errorf(tensor.ShapeMismatch, name, "dtype mismatch: %s vs %s", x.DType(), y.DType()))
	}
	if gpuEligible(x, y) {
		if result, err := b.runBinaryOp(x, y, name, code); err == nil {
			return result
		}
	}
	return retag(hostOp(x, y))
}

// Add performs element-wise addition with NumPy-style broadcasting.
func (b *Backend) Add(x, y *tensor.RawTensor) *tensor.RawTensor {
	return b.binary(x, y, "add", addShader, b.host.Add)
}

// Sub performs element-wise subtraction with broadcasting.
func (b *Backend) Sub(x, y *tensor.RawTensor) *tensor.RawTensor {
	return b.binary(x, y, "sub", subShader, b.host.Sub)
}

// Mul performs element-wise multiplication with broadcasting.
func (b *Backend) Mul(x, y *tensor.RawTensor) *tensor.RawTensor {
	return b.binary(x, y, "mul", mulShader, b.host.Mul)
}

// Div performs element-wise division with broadcasting.
func (b *Backend) Div(x, y *tensor.RawTensor) *tensor.RawTensor {
	return b.binary(x, y, "div", divShader, b.host.Div)
}

func (b *Backend) unary(x *tensor.RawTensor, name, code string, hostOp func(t *tensor.RawTensor) *tensor.RawTensor) *tensor.RawTensor {
	if x.DType() == tensor.Float32 {
		if result, err := b.runUnaryOp(x, name, code); err == nil {
			return result
		}
	}
	return retag(hostOp(x))
}

// Exp computes the element-wise exponential.
func (b *Backend) Exp(x *tensor.RawTensor) *tensor.RawTensor {
	return b.unary(x, "exp", expShader, b.host.Exp)
}

// Log computes the element-wise natural logarithm.
func (b *Backend) Log(x *tensor.RawTensor) *tensor.RawTensor {
	return b.unary(x, "log", logShader, b.host.Log)
}

// Sqrt computes the element-wise square root.
func (b *Backend) Sqrt(x *tensor.RawTensor) *tensor.RawTensor {
	return b.unary(x, "sqrt", sqrtShader, b.host.Sqrt)
}

// ReLU computes element-wise max(0, x).
func (b *Backend) ReLU(x *tensor.RawTensor) *tensor.RawTensor {
	return b.unary(x, "relu", reluShader, b.host.ReLU)
}

// MatMul performs 2D matrix multiplication: (M,K) @ (K,N) -> (M,N).
func (b *Backend) MatMul(x, y *tensor.RawTensor) *tensor.RawTensor {
	xShape, yShape := x.Shape(), y.Shape()
	if len(xShape) != 2 || len(yShape) != 2 {
		panic(tensor.Errorf(tensor.ShapeMismatch, "matmul",
			"only 2D tensors supported, got %dD and %dD", len(xShape), len(yShape)))
	}
	if x.DType() != y.DType() {
		panic(tensor.Errorf(tensor.ShapeMismatch, "matmul", "dtype mismatch: %s vs %s", x.DType(), y.DType()))
	}
	if xShape[1] != yShape[0] {
		panic(tensor.Errorf(tensor.ShapeMismatch, "matmul",
			"inner dimensions differ: [%d,%d] @ [%d,%d]", xShape[0], xShape[1], yShape[0], yShape[1]))
	}

	if x.DType() == tensor.Float32 {
		if result, err := b.runMatMul(x, y); err == nil {
			return result
		}
	}
	return retag(b.host.MatMul(x, y))
}

// AddScalar adds a constant to every element.
func (b *Backend) AddScalar(x *tensor.RawTensor, scalar float64) *tensor.RawTensor {
	return retag(b.host.AddScalar(x, scalar))
}

// MulScalar multiplies every element by a constant.
func (b *Backend) MulScalar(x *tensor.RawTensor, scalar float64) *tensor.RawTensor {
	return retag(b.host.MulScalar(x, scalar))
}

// Conv2D performs 2D convolution over NCHW input.
func (b *Backend) Conv2D(input, kernel *tensor.RawTensor, stride, padding int) *tensor.RawTensor {
	return retag(b.host.Conv2D(input, kernel, stride, padding))
}

// Conv2DInputBackward computes the convolution's input gradient.
func (b *Backend) Conv2DInputBackward(input, kernel, grad *tensor.RawTensor, stride, padding int) *tensor.RawTensor {
	return retag(b.host.Conv2DInputBackward(input, kernel, grad, stride, padding))
}

// Conv2DKernelBackward computes the convolution's kernel gradient.
func (b *Backend) Conv2DKernelBackward(input, kernel, grad *tensor.RawTensor, stride, padding int) *tensor.RawTensor {
	return retag(b.host.Conv2DKernelBackward(input, kernel, grad, stride, padding))
}

// Sum reduces all elements to a rank-0 scalar.
func (b *Backend) Sum(x *tensor.RawTensor) *tensor.RawTensor {
	return retag(b.host.Sum(x))
}

// SumDim sums along one dimension.
func (b *Backend) SumDim(x *tensor.RawTensor, dim int, keepDim bool) *tensor.RawTensor {
	return retag(b.host.SumDim(x, dim, keepDim))
}

// MeanDim averages along one dimension.
func (b *Backend) MeanDim(x *tensor.RawTensor, dim int, keepDim bool) *tensor.RawTensor {
	return retag(b.host.MeanDim(x, dim, keepDim))
}

// Reshape returns a tensor with the same data in a new shape.
func (b *Backend) Reshape(x *tensor.RawTensor, newShape tensor.Shape) *tensor.RawTensor {
	return retag(b.host.Reshape(x, newShape))
}

// Transpose permutes the tensor's dimensions.
func (b *Backend) Transpose(x *tensor.RawTensor, axes ...int) *tensor.RawTensor {
	return retag(b.host.Transpose(x, axes...))
}

// Expand broadcasts the tensor to a larger shape.
func (b *Backend) Expand(x *tensor.RawTensor, shape tensor.Shape) *tensor.RawTensor {
	return retag(b.host.Expand(x, shape))
}

var _ tensor.Backend = (*Backend)(nil)
