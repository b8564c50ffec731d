package pixpipe

import "fmt"

type cropOp struct {
	baseOp

	xOffset int
	yOffset int
	width   int
	height  int
}

func (o *cropOp) run() error {
	var src [1][]byte

	if err := o.inputLines(src[:]); err != nil {
		return err
	}

	// Lines above and below the region are consumed without output.
	if o.lineOffset < o.yOffset || o.lineOffset >= o.yOffset+o.height {
		o.inputDone(1)

		return nil
	}

	dst, err := o.outputLine()
	if err != nil {
		return err
	}

	bpp := o.fmt.Code.BitsPerPixel()
	start := o.xOffset * bpp / 8

	copy(dst, src[0][start:start+o.width*bpp/8])

	if err := o.outputDone(); err != nil {
		return err
	}

	o.inputDone(1)

	return nil
}

// Crop appends extraction of a rectangle out of the frame. The horizontal
// offset and width must land on byte boundaries, which any offset satisfies
// for formats of 8 bits per pixel and up.
func (img *Image) Crop(xOffset, yOffset, width, height uint16) *Image {
	if img.err != nil {
		return img
	}

	if width == 0 || height == 0 ||
		int(xOffset)+int(width) > int(img.fmt.Width) ||
		int(yOffset)+int(height) > int(img.fmt.Height) {
		return img.fail(fmt.Errorf("crop (%d,%d) %dx%d of %s: %w",
			xOffset, yOffset, width, height, img.fmt, ErrUnsupported))
	}

	bpp := img.fmt.Code.BitsPerPixel()
	if bpp == 0 || int(xOffset)*bpp%8 != 0 || int(width)*bpp%8 != 0 {
		return img.fail(fmt.Errorf("crop %s at x=%d: %w", img.fmt.Code, xOffset, ErrUnsupported))
	}

	op := &cropOp{
		xOffset: int(xOffset),
		yOffset: int(yOffset),
		width:   int(width),
		height:  int(height),
	}
	op.name = "crop"

	return img.append(op, img.fmt.Code, Format{Code: img.fmt.Code, Width: width, Height: height})
}
