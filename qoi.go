package pixpipe

import "fmt"

// QOI opcodes.
const (
	qoiOpIndex = 0x00
	qoiOpDiff  = 0x40
	qoiOpLuma  = 0x80
	qoiOpRun   = 0xc0
	qoiOpRGB   = 0xfe
)

// qoiEncodeOp compresses RGB24 lines into a QOI stream. The recently-seen
// color cache, previous pixel and pending run length persist across lines,
// so the output is a single valid stream for the whole frame.
type qoiEncodeOp struct {
	baseOp

	cache   [64][3]byte
	prev    [3]byte
	runLen  int
	scratch []byte
}

func qoiHash(r, g, b byte) int {
	return (int(r)*3 + int(g)*5 + int(b)*7 + 255*11) % 64
}

// encodePixel appends the encoding of one pixel to buf. last forces the
// pending run out, for the final pixel of the frame.
func (o *qoiEncodeOp) encodePixel(buf []byte, r, g, b byte, last bool) []byte {
	if o.prev == [3]byte{r, g, b} {
		o.runLen++

		if o.runLen >= 62 || last {
			buf = append(buf, qoiOpRun|byte(o.runLen-1))
			o.runLen = 0
		}

		return buf
	}

	if o.runLen > 0 {
		buf = append(buf, qoiOpRun|byte(o.runLen-1))
		o.runLen = 0
	}

	idx := qoiHash(r, g, b)
	if o.cache[idx] == [3]byte{r, g, b} {
		o.prev = o.cache[idx]

		return append(buf, qoiOpIndex|byte(idx))
	}

	o.cache[idx] = [3]byte{r, g, b}

	dr := int8(r - o.prev[0])
	dg := int8(g - o.prev[1])
	db := int8(b - o.prev[2])
	o.prev = [3]byte{r, g, b}

	if dr >= -2 && dr <= 1 && dg >= -2 && dg <= 1 && db >= -2 && db <= 1 {
		return append(buf, qoiOpDiff|byte(dr+2)<<4|byte(dg+2)<<2|byte(db+2))
	}

	dgr, dgb := dr-dg, db-dg
	if dg >= -32 && dg <= 31 && dgr >= -8 && dgr <= 7 && dgb >= -8 && dgb <= 7 {
		return append(buf, qoiOpLuma|byte(dg+32), byte(dgr+8)<<4|byte(dgb+8))
	}

	return append(buf, qoiOpRGB, r, g, b)
}

func (o *qoiEncodeOp) run() error {
	var src [1][]byte

	if err := o.inputLines(src[:]); err != nil {
		return err
	}

	if o.scratch == nil {
		// Worst case is four bytes per pixel plus header and end marker.
		o.scratch = make([]byte, 0, int(o.fmt.Width)*4+32)
	}

	buf := o.scratch[:0]

	if o.lineOffset == 0 {
		w, h := uint32(o.fmt.Width), uint32(o.fmt.Height)
		buf = append(buf, 'q', 'o', 'i', 'f',
			byte(w>>24), byte(w>>16), byte(w>>8), byte(w),
			byte(h>>24), byte(h>>16), byte(h>>8), byte(h),
			3, 0)
	}

	lastLine := o.lineOffset+1 == int(o.fmt.Height)
	width := int(o.fmt.Width)
	line := src[0]

	for x := 0; x < width; x++ {
		last := lastLine && x+1 == width
		buf = o.encodePixel(buf, line[x*3], line[x*3+1], line[x*3+2], last)
	}

	if lastLine {
		buf = append(buf, 0, 0, 0, 0, 0, 0, 0, 1)
	}

	out, err := o.outputBytes(len(buf))
	if err != nil {
		return err
	}

	copy(out, buf)

	if err := o.outputDone(); err != nil {
		return err
	}

	o.inputDone(1)

	return nil
}

// QOIEncode appends lossless compression of RGB24 into the QOI format. The
// output is variable-length, so it must be the last operation before a sink
// sized for the worst case, four bytes per pixel plus 22 bytes of framing.
func (img *Image) QOIEncode() *Image {
	if img.err != nil {
		return img
	}

	if img.fmt.Code != FormatRGB24 {
		return img.fail(fmt.Errorf("qoi encode on %s: %w", img.fmt.Code, ErrUnsupported))
	}

	op := &qoiEncodeOp{}
	op.name = "qoi-encode"

	return img.append(op, FormatRGB24, Format{Code: FormatQOI, Width: img.fmt.Width, Height: img.fmt.Height})
}
