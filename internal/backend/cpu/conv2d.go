package cpu

import (
	"github.com/tapegrad-ml/tapegrad/internal/parallel"
	"github.com/tapegrad-ml/tapegrad/internal/tensor"
)

// conv2dGeom validates the convolution geometry and returns the output
// spatial dimensions. Input is NCHW, kernel is (COut, CIn, KH, KW).
func conv2dGeom(op string, input, kernel *tensor.RawTensor, stride, padding int) (n, cIn, h, w, cOut, kh, kw, hOut, wOut int) {
	inShape, kShape := input.Shape(), kernel.Shape()

	if len(inShape) != 4 || len(kShape) != 4 {
		panic(tensor.Errorf(tensor.ShapeMismatch, op,
			"expected 4D input and kernel, got %v and %v", inShape, kShape))
	}
	if inShape[1] != kShape[1] {
		panic(tensor.Errorf(tensor.ShapeMismatch, op,
			"input channels %d != kernel channels %d", inShape[1], kShape[1]))
	}
	if stride < 1 {
		panic(tensor.Errorf(tensor.ShapeMismatch, op, "stride must be >= 1, got %d", stride))
	}

	n, cIn, h, w = inShape[0], inShape[1], inShape[2], inShape[3]
	cOut, kh, kw = kShape[0], kShape[2], kShape[3]
	hOut = (h+2*padding-kh)/stride + 1
	wOut = (w+2*padding-kw)/stride + 1
	if hOut < 1 || wOut < 1 {
		panic(tensor.Errorf(tensor.ShapeMismatch, op,
			"kernel %v larger than padded input %v", kShape, inShape))
	}
	return
}

// Conv2D performs 2D convolution over NCHW input. The (batch, output
// channel) pairs are distributed across the worker pool.
func (c *Backend) Conv2D(input, kernel *tensor.RawTensor, stride, padding int) *tensor.RawTensor {
	n, cIn, h, w, cOut, kh, kw, hOut, wOut := conv2dGeom("conv2d", input, kernel, stride, padding)

	result := mustAllocate("conv2d", tensor.Shape{n, cOut, hOut, wOut}, input.DType(), c.device)

	switch input.DType() {
	case tensor.Float32:
		conv2dSlice(result.AsFloat32(), input.AsFloat32(), kernel.AsFloat32(),
			n, cIn, h, w, cOut, kh, kw, hOut, wOut, stride, padding, c.pool)
	case tensor.Float64:
		conv2dSlice(result.AsFloat64(), input.AsFloat64(), kernel.AsFloat64(),
			n, cIn, h, w, cOut, kh, kw, hOut, wOut, stride, padding, c.pool)
	default:
		panic(tensor.Errorf(tensor.ShapeMismatch, "conv2d",
			"unsupported dtype %s (only float32/float64 supported)", input.DType()))
	}

	return result
}

func conv2dSlice[T ~float32 | ~float64](dst, in, k []T,
	n, cIn, h, w, cOut, kh, kw, hOut, wOut, stride, padding int, pool parallel.Config) {
	parallel.For2D(n, cOut, func(b, co int) {
		outBase := (b*cOut + co) * hOut * wOut
		for oh := 0; oh < hOut; oh++ {
			for ow := 0; ow < wOut; ow++ {
				var acc T
				for ci := 0; ci < cIn; ci++ {
					inBase := (b*cIn + ci) * h * w
					kBase := ((co*cIn + ci) * kh) * kw
					for r := 0; r < kh; r++ {
						ih := oh*stride - padding + r
						if ih < 0 || ih >= h {
							continue
						}
						for s := 0; s < kw; s++ {
							iw := ow*stride - padding + s
							if iw < 0 || iw >= w {
								continue
							}
							acc += in[inBase+ih*w+iw] * k[kBase+r*kw+s]
						}
					}
				}
				dst[outBase+oh*wOut+ow] = acc
			}
		}
	}, pool)
}
