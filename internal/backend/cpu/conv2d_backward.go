package cpu

import (
	"github.com/tapegrad-ml/tapegrad/internal/parallel"
	"github.com/tapegrad-ml/tapegrad/internal/tensor"
)

// Conv2DInputBackward computes the input gradient for Conv2D: for each
// input position, gather the contributions of every output element the
// position fed during the forward pass.
func (c *Backend) Conv2DInputBackward(input, kernel, grad *tensor.RawTensor, stride, padding int) *tensor.RawTensor {
	n, cIn, h, w, cOut, kh, kw, hOut, wOut := conv2dGeom("conv2d-input-backward", input, kernel, stride, padding)

	result := mustAllocate("conv2d-input-backward", input.Shape().Clone(), input.DType(), c.device)

	switch input.DType() {
	case tensor.Float32:
		conv2dInputBackwardSlice(result.AsFloat32(), kernel.AsFloat32(), grad.AsFloat32(),
			n, cIn, h, w, cOut, kh, kw, hOut, wOut, stride, padding, c.pool)
	case tensor.Float64:
		conv2dInputBackwardSlice(result.AsFloat64(), kernel.AsFloat64(), grad.AsFloat64(),
			n, cIn, h, w, cOut, kh, kw, hOut, wOut, stride, padding, c.pool)
	}

	return result
}

func conv2dInputBackwardSlice[T ~float32 | ~float64](dst, k, grad []T,
	n, cIn, h, w, cOut, kh, kw, hOut, wOut, stride, padding int, pool parallel.Config) {
	parallel.For2D(n, cIn, func(b, ci int) {
		dstBase := (b*cIn + ci) * h * w
		for ih := 0; ih < h; ih++ {
			for iw := 0; iw < w; iw++ {
				var acc T
				for co := 0; co < cOut; co++ {
					gradBase := (b*cOut + co) * hOut * wOut
					kBase := ((co*cIn + ci) * kh) * kw
					for r := 0; r < kh; r++ {
						// Which output row consumed input row ih with
						// kernel row r: oh*stride = ih + padding - r.
						num := ih + padding - r
						if num < 0 || num%stride != 0 {
							continue
						}
						oh := num / stride
						if oh >= hOut {
							continue
						}
						for s := 0; s < kw; s++ {
							num := iw + padding - s
							if num < 0 || num%stride != 0 {
								continue
							}
							ow := num / stride
							if ow >= wOut {
								continue
							}
							acc += grad[gradBase+oh*wOut+ow] * k[kBase+r*kw+s]
						}
					}
				}
				dst[dstBase+ih*w+iw] = acc
			}
		}
	}, pool)
}

// Conv2DKernelBackward computes the kernel gradient for Conv2D: correlate
// the saved input with the output gradient.
func (c *Backend) Conv2DKernelBackward(input, kernel, grad *tensor.RawTensor, stride, padding int) *tensor.RawTensor {
	n, cIn, h, w, cOut, kh, kw, hOut, wOut := conv2dGeom("conv2d-kernel-backward", input, kernel, stride, padding)

	result := mustAllocate("conv2d-kernel-backward", kernel.Shape().Clone(), kernel.DType(), c.device)

	switch input.DType() {
	case tensor.Float32:
		conv2dKernelBackwardSlice(result.AsFloat32(), input.AsFloat32(), grad.AsFloat32(),
			n, cIn, h, w, cOut, kh, kw, hOut, wOut, stride, padding, c.pool)
	case tensor.Float64:
		conv2dKernelBackwardSlice(result.AsFloat64(), input.AsFloat64(), grad.AsFloat64(),
			n, cIn, h, w, cOut, kh, kw, hOut, wOut, stride, padding, c.pool)
	}

	return result
}

func conv2dKernelBackwardSlice[T ~float32 | ~float64](dst, in, grad []T,
	n, cIn, h, w, cOut, kh, kw, hOut, wOut, stride, padding int, pool parallel.Config) {
	parallel.For2D(cOut, cIn, func(co, ci int) {
		for r := 0; r < kh; r++ {
			for s := 0; s < kw; s++ {
				var acc T
				for b := 0; b < n; b++ {
					inBase := (b*cIn + ci) * h * w
					gradBase := (b*cOut + co) * hOut * wOut
					for oh := 0; oh < hOut; oh++ {
						ih := oh*stride - padding + r
						if ih < 0 || ih >= h {
							continue
						}
						for ow := 0; ow < wOut; ow++ {
							iw := ow*stride - padding + s
							if iw < 0 || iw >= w {
								continue
							}
							acc += grad[gradBase+oh*wOut+ow] * in[inBase+ih*w+iw]
						}
					}
				}
				dst[((co*cIn+ci)*kh+r)*kw+s] = acc
			}
		}
	}, pool)
}
