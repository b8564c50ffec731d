package pixpipe

import "fmt"

// KernelType selects the convolution applied by Convolve.
type KernelType int

// Convolution kernels.
const (
	KernelIdentity KernelType = iota
	KernelEdgeDetect
	KernelGaussianBlur
	KernelSharpen
)

// kernelTable holds window*window coefficients and the right shift applied
// to the accumulated sum.
type kernelTable struct {
	coeffs []int16
	shift  uint
}

var kernels3x3 = map[KernelType]kernelTable{
	KernelIdentity: {coeffs: []int16{
		0, 0, 0,
		0, 1, 0,
		0, 0, 0,
	}},
	KernelEdgeDetect: {coeffs: []int16{
		-1, -1, -1,
		-1, 8, -1,
		-1, -1, -1,
	}},
	KernelGaussianBlur: {coeffs: []int16{
		1, 2, 1,
		2, 4, 2,
		1, 2, 1,
	}, shift: 4},
	KernelSharpen: {coeffs: []int16{
		0, -1, 0,
		-1, 5, -1,
		0, -1, 0,
	}},
}

var kernels5x5 = map[KernelType]kernelTable{
	KernelIdentity: {coeffs: []int16{
		0, 0, 0, 0, 0,
		0, 0, 0, 0, 0,
		0, 0, 1, 0, 0,
		0, 0, 0, 0, 0,
		0, 0, 0, 0, 0,
	}},
	KernelEdgeDetect: {coeffs: []int16{
		-1, -1, -1, -1, -1,
		-1, -1, -1, -1, -1,
		-1, -1, 24, -1, -1,
		-1, -1, -1, -1, -1,
		-1, -1, -1, -1, -1,
	}},
	KernelGaussianBlur: {coeffs: []int16{
		1, 4, 6, 4, 1,
		4, 16, 24, 16, 4,
		6, 24, 36, 24, 6,
		4, 16, 24, 16, 4,
		1, 4, 6, 4, 1,
	}, shift: 8},
	// Unsharp mask: amplified center minus the gaussian surroundings.
	KernelSharpen: {coeffs: []int16{
		-1, -4, -6, -4, -1,
		-4, -16, -24, -16, -4,
		-6, -24, 476, -24, -6,
		-4, -16, -24, -16, -4,
		-1, -4, -6, -4, -1,
	}, shift: 8},
}

// convolveLine applies a square kernel to every pixel of a line, repeating
// the edge columns to fill the window near the borders.
func convolveLine(win [][]byte, dst []byte, width, channels int, k kernelTable) {
	w := len(win)
	half := w / 2

	for x := 0; x < width; x++ {
		for c := 0; c < channels; c++ {
			sum := int32(0)
			ki := 0

			for h := 0; h < w; h++ {
				row := win[h]

				for j := 0; j < w; j++ {
					col := clampInt(x+j-half, 0, width-1)
					sum += int32(row[col*channels+c]) * int32(k.coeffs[ki])
					ki++
				}
			}

			dst[x*channels+c] = clampU8(sum >> k.shift)
		}
	}
}

// medianLine replaces every pixel with the median of its neighborhood,
// channel by channel. The median is found by an 8-step binary search over
// the value range instead of sorting the window.
func medianLine(win [][]byte, dst []byte, width, channels int) {
	w := len(win)
	half := w / 2

	for x := 0; x < width; x++ {
		for c := 0; c < channels; c++ {
			bot, top := int32(0), int32(0xff)

			for i := 0; i < 8; i++ {
				pivot := (top + bot) / 2
				higher := 0

				for h := 0; h < w; h++ {
					row := win[h]

					for j := 0; j < w; j++ {
						col := clampInt(x+j-half, 0, width-1)
						if int32(row[col*channels+c]) > pivot {
							higher++
						}
					}
				}

				if higher > w*w/2 {
					bot = pivot
				} else if higher < w*w/2 {
					top = pivot
				}
			}

			dst[x*channels+c] = byte((top + bot) / 2)
		}
	}
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

type kernelOp struct {
	baseOp

	line lineKernel
}

func (o *kernelOp) run() error { return o.windowCycle(o.line) }

func kernelChannels(c FourCC) int {
	switch c {
	case FormatRGB24:
		return 3
	case FormatGrey:
		return 1
	}
	return 0
}

func (img *Image) appendKernel(name string, window int, line lineKernel) *Image {
	if int(img.fmt.Width) < window || int(img.fmt.Height) < window {
		return img.fail(fmt.Errorf("%s: frame %s smaller than window: %w", name, img.fmt, ErrUnsupported))
	}

	op := &kernelOp{line: line}
	op.name = name
	op.windowSize = window

	return img.append(op, img.fmt.Code, img.fmt)
}

// Convolve appends a convolution with a built-in kernel over a 3x3 or 5x5
// window, on RGB24 or GREY.
func (img *Image) Convolve(t KernelType, window int) *Image {
	if img.err != nil {
		return img
	}

	channels := kernelChannels(img.fmt.Code)
	if channels == 0 {
		return img.fail(fmt.Errorf("convolve on %s: %w", img.fmt.Code, ErrUnsupported))
	}

	var (
		k  kernelTable
		ok bool
	)

	switch window {
	case 3:
		k, ok = kernels3x3[t]
	case 5:
		k, ok = kernels5x5[t]
	}

	if !ok {
		return img.fail(fmt.Errorf("convolve kernel %d window %d: %w", t, window, ErrUnsupported))
	}

	width := int(img.fmt.Width)

	return img.appendKernel(fmt.Sprintf("convolve-%dx%d", window, window), window,
		func(win [][]byte, _ int, dst []byte) {
			convolveLine(win, dst, width, channels, k)
		})
}

// Denoise appends a median filter over a 3x3 or 5x5 window, on RGB24 or
// GREY. It removes shot noise while keeping region edges sharp.
func (img *Image) Denoise(window int) *Image {
	if img.err != nil {
		return img
	}

	channels := kernelChannels(img.fmt.Code)
	if channels == 0 {
		return img.fail(fmt.Errorf("denoise on %s: %w", img.fmt.Code, ErrUnsupported))
	}

	if window != 3 && window != 5 {
		return img.fail(fmt.Errorf("denoise window %d: %w", window, ErrUnsupported))
	}

	width := int(img.fmt.Width)

	return img.appendKernel(fmt.Sprintf("denoise-%dx%d", window, window), window,
		func(win [][]byte, _ int, dst []byte) {
			medianLine(win, dst, width, channels)
		})
}
