package pixpipe

import "fmt"

// debayer2x2Line interpolates one RGB24 line from two Bayer lines. pattern
// names the Bayer phase of the top-left sample of the pair.
func debayer2x2Line(src0, src1, dst []byte, width int, pattern FourCC) {
	// Each 2x2 cell holds one red, one blue and two green samples. The cell
	// starting at each column yields one pixel, the last column reuses the
	// column before the edge.
	cell := func(a, b, c, d byte, order FourCC, out []byte) {
		var r, g0, g1, bl byte

		switch order {
		case FormatSRGGB8:
			r, g0, g1, bl = a, b, c, d
		case FormatSGRBG8:
			g0, r, bl, g1 = a, b, c, d
		case FormatSBGGR8:
			bl, g0, g1, r = a, b, c, d
		case FormatSGBRG8:
			g0, bl, r, g1 = a, b, c, d
		}

		out[0] = r
		out[1] = byte((uint16(g0) + uint16(g1)) / 2)
		out[2] = bl
	}

	right, _ := bayerColumnRight(pattern)

	for x := 0; x+1 < width; x++ {
		order := pattern
		if x%2 == 1 {
			order = right
		}

		cell(src0[x], src0[x+1], src1[x], src1[x+1], order, dst[x*3:])
	}

	// Right edge mirrors the column before it.
	x := width - 1
	order := pattern
	if x%2 == 1 {
		order = right
	}

	cell(src0[x], src0[x-1], src1[x], src1[x-1], order, dst[x*3:])
}

// bayerColumnRight returns the Bayer pattern one column to the right.
func bayerColumnRight(c FourCC) (FourCC, bool) {
	switch c {
	case FormatSRGGB8:
		return FormatSGRBG8, true
	case FormatSGRBG8:
		return FormatSRGGB8, true
	case FormatSBGGR8:
		return FormatSGBRG8, true
	case FormatSGBRG8:
		return FormatSBGGR8, true
	}
	return c, false
}

// debayer3x3Cell interpolates the pixel centered in a 3x3 Bayer
// neighborhood. pattern is the phase of the center sample's line starting at
// the left column of the neighborhood.
func debayer3x3Cell(r0, r1, r2 []byte, pattern FourCC, out []byte) {
	switch pattern {
	case FormatSRGGB8:
		// Center is blue.
		out[0] = byte((uint16(r0[0]) + uint16(r0[2]) + uint16(r2[0]) + uint16(r2[2])) / 4)
		out[1] = byte((uint16(r0[1]) + uint16(r1[2]) + uint16(r1[0]) + uint16(r2[1])) / 4)
		out[2] = r1[1]
	case FormatSBGGR8:
		// Center is red.
		out[0] = r1[1]
		out[1] = byte((uint16(r0[1]) + uint16(r1[2]) + uint16(r1[0]) + uint16(r2[1])) / 4)
		out[2] = byte((uint16(r0[0]) + uint16(r0[2]) + uint16(r2[0]) + uint16(r2[2])) / 4)
	case FormatSGRBG8:
		// Center is green on a red row.
		out[0] = byte((uint16(r0[1]) + uint16(r2[1])) / 2)
		out[1] = r1[1]
		out[2] = byte((uint16(r1[0]) + uint16(r1[2])) / 2)
	case FormatSGBRG8:
		// Center is green on a blue row.
		out[0] = byte((uint16(r1[0]) + uint16(r1[2])) / 2)
		out[1] = r1[1]
		out[2] = byte((uint16(r0[1]) + uint16(r2[1])) / 2)
	}
}

// debayer3x3Line interpolates one RGB24 line from three Bayer lines, with
// the left and right columns mirrored across the frame edge.
func debayer3x3Line(src [][]byte, dst []byte, width int, pattern FourCC) {
	right, _ := bayerColumnRight(pattern)

	var edge [3][3]byte

	// Left edge: columns 1,0,1.
	for i := 0; i < 3; i++ {
		edge[i] = [3]byte{src[i][1], src[i][0], src[i][1]}
	}

	debayer3x3Cell(edge[0][:], edge[1][:], edge[2][:], right, dst[0:])

	// The neighborhood starts one column left of the center pixel, so its
	// phase follows the parity of x-1.
	for x := 1; x+1 < width; x++ {
		order := pattern
		if (x-1)%2 == 1 {
			order = right
		}

		debayer3x3Cell(src[0][x-1:], src[1][x-1:], src[2][x-1:], order, dst[x*3:])
	}

	// Right edge: columns w-2, w-1, w-2.
	for i := 0; i < 3; i++ {
		edge[i] = [3]byte{src[i][width-2], src[i][width-1], src[i][width-2]}
	}

	order := pattern
	if (width-1)%2 == 0 {
		order = right
	}

	debayer3x3Cell(edge[0][:], edge[1][:], edge[2][:], order, dst[(width-1)*3:])
}

type debayer1x1Op struct {
	baseOp
}

func (o *debayer1x1Op) run() error {
	var src [1][]byte

	if err := o.inputLines(src[:]); err != nil {
		return err
	}

	dst, err := o.outputLine()
	if err != nil {
		return err
	}

	convertGreyToRGB24(src[0], dst, int(o.fmt.Width))

	if err := o.outputDone(); err != nil {
		return err
	}

	o.inputDone(1)

	return nil
}

type debayer2x2Op struct {
	baseOp
}

func (o *debayer2x2Op) run() error {
	var src [2][]byte

	if err := o.inputLines(src[:]); err != nil {
		return err
	}

	even := o.fmt.Code
	odd, _ := bayerLineDown(even)
	width := int(o.fmt.Width)

	pattern := even
	if o.lineOffset%2 == 1 {
		pattern = odd
	}

	dst, err := o.outputLine()
	if err != nil {
		return err
	}

	debayer2x2Line(src[0], src[1], dst, width, pattern)

	if err := o.outputDone(); err != nil {
		return err
	}

	// The last pair also yields the bottom line, reusing the same window.
	if o.lineOffset+2 == int(o.fmt.Height) {
		dst, err := o.outputLine()
		if err != nil {
			return err
		}

		debayer2x2Line(src[0], src[1], dst, width, even)

		if err := o.outputDone(); err != nil {
			return err
		}

		o.inputDone(1)
	}

	o.inputDone(1)

	return nil
}

type debayer3x3Op struct {
	baseOp
}

func (o *debayer3x3Op) run() error {
	var src [3][]byte

	if err := o.inputLines(src[:]); err != nil {
		return err
	}

	even := o.fmt.Code
	odd, _ := bayerLineDown(even)
	width := int(o.fmt.Width)

	emit := func(pattern FourCC) error {
		dst, err := o.outputLine()
		if err != nil {
			return err
		}

		debayer3x3Line(src[:], dst, width, pattern)

		return o.outputDone()
	}

	// Top edge repeats the first window.
	if o.lineOffset == 0 {
		if err := emit(even); err != nil {
			return err
		}
	}

	pattern := even
	if o.lineOffset%2 == 1 {
		pattern = odd
	}

	if err := emit(pattern); err != nil {
		return err
	}

	// Bottom edge repeats the last window, then the lookahead drains.
	if o.lineOffset+3 == int(o.fmt.Height) {
		if err := emit(odd); err != nil {
			return err
		}

		o.inputDone(2)
	}

	o.inputDone(1)

	return nil
}

// Debayer appends Bayer-to-RGB24 interpolation over a window of 1, 2 or 3
// lines. Larger windows trade memory for quality. Frames must be at least
// window lines tall and 4 pixels wide with even width.
func (img *Image) Debayer(window int) *Image {
	if img.err != nil {
		return img
	}

	code := img.fmt.Code
	if !isBayer(code) {
		return img.fail(fmt.Errorf("debayer: %s is not a bayer format: %w", code, ErrFormatMismatch))
	}

	if img.fmt.Width < 4 || img.fmt.Width%2 != 0 || int(img.fmt.Height) < window {
		return img.fail(fmt.Errorf("debayer: frame %s too small: %w", img.fmt, ErrUnsupported))
	}

	var op operation

	switch window {
	case 1:
		o := &debayer1x1Op{}
		o.name = "debayer-1x1"
		o.windowSize = 1
		op = o
	case 2:
		o := &debayer2x2Op{}
		o.name = "debayer-2x2"
		o.windowSize = 2
		op = o
	case 3:
		o := &debayer3x3Op{}
		o.name = "debayer-3x3"
		o.windowSize = 3
		op = o
	default:
		return img.fail(fmt.Errorf("debayer: window %d: %w", window, ErrUnsupported))
	}

	return img.append(op, code, Format{Code: FormatRGB24, Width: img.fmt.Width, Height: img.fmt.Height})
}
