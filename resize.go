package pixpipe

import "fmt"

// subsampleOp resizes by nearest-neighbor sampling, one input line at a
// time. Each input line emits however many output lines map onto it, zero
// when downscaling past it.
type subsampleOp struct {
	baseOp

	out Format
}

func (o *subsampleOp) run() error {
	var src [1][]byte

	if err := o.inputLines(src[:]); err != nil {
		return err
	}

	srcH, dstH := int(o.fmt.Height), int(o.out.Height)
	prev := o.lineOffset * dstH / srcH
	next := (o.lineOffset + 1) * dstH / srcH

	for i := prev; i < next; i++ {
		dst, err := o.outputLine()
		if err != nil {
			return err
		}

		subsampleLine(src[0], int(o.fmt.Width), dst, int(o.out.Width), o.fmt.Code.BitsPerPixel())

		if err := o.outputDone(); err != nil {
			return err
		}
	}

	o.inputDone(1)

	return nil
}

func subsampleLine(src []byte, srcWidth int, dst []byte, dstWidth, bpp int) {
	size := bpp / 8

	for x := 0; x < dstWidth; x++ {
		srcX := x * srcWidth / dstWidth
		copy(dst[x*size:(x+1)*size], src[srcX*size:])
	}
}

// Subsample appends a nearest-neighbor resize to the given dimensions,
// keeping the pixel format. It works on any fixed-size format and buffers a
// single line, making it the cheap path for thumbnails; interpolated resize
// lives on the whole-frame interop path.
func (img *Image) Subsample(width, height uint16) *Image {
	if img.err != nil {
		return img
	}

	if width == 0 || height == 0 {
		return img.fail(fmt.Errorf("subsample to %dx%d: %w", width, height, ErrUnsupported))
	}

	bpp := img.fmt.Code.BitsPerPixel()
	if bpp == 0 || bpp%8 != 0 {
		return img.fail(fmt.Errorf("subsample %s: %w", img.fmt.Code, ErrUnsupported))
	}

	out := Format{Code: img.fmt.Code, Width: width, Height: height}
	op := &subsampleOp{out: out}
	op.name = "subsample"

	return img.append(op, img.fmt.Code, out)
}
