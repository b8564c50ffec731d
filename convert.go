package pixpipe

import "fmt"

// lineConvert converts one line of width pixels from one format to another.
type lineConvert func(src, dst []byte, width int)

type conversionKey struct {
	from, to FourCC
}

// conversions is the built-in conversion table. Application formats hook in
// through RegisterConversion.
var conversions = map[conversionKey]lineConvert{
	{FormatRGB24, FormatRGB332}:   convertRGB24ToRGB332,
	{FormatRGB332, FormatRGB24}:   convertRGB332ToRGB24,
	{FormatRGB24, FormatRGB565}:   convertRGB24ToRGB565LE,
	{FormatRGB565, FormatRGB24}:   convertRGB565LEToRGB24,
	{FormatRGB24, FormatRGB565X}:  convertRGB24ToRGB565BE,
	{FormatRGB565X, FormatRGB24}:  convertRGB565BEToRGB24,
	{FormatRGB24, FormatGrey}:     convertRGB24ToGrey,
	{FormatGrey, FormatRGB24}:     convertGreyToRGB24,
	{FormatRGB24, FormatYUV24}:    convertRGB24ToYUV24,
	{FormatYUV24, FormatRGB24}:    convertYUV24ToRGB24,
	{FormatRGB24, FormatYUYV}:     convertRGB24ToYUYV,
	{FormatYUYV, FormatRGB24}:     convertYUYVToRGB24,
	{FormatYUV24, FormatYUYV}:     convertYUV24ToYUYV,
	{FormatYUYV, FormatYUV24}:     convertYUYVToYUV24,
}

// RegisterConversion adds a line conversion for a format pair, typically one
// registered through RegisterFormat.
func RegisterConversion(from, to FourCC, fn lineConvert) {
	conversions[conversionKey{from, to}] = fn
}

func findConversion(from, to FourCC) lineConvert {
	return conversions[conversionKey{from, to}]
}

type convertOp struct {
	baseOp
	convert lineConvert
}

func (o *convertOp) run() error {
	var src [1][]byte

	if err := o.inputLines(src[:]); err != nil {
		return err
	}

	dst, err := o.outputLine()
	if err != nil {
		return err
	}

	o.convert(src[0], dst, int(o.fmt.Width))

	if err := o.outputDone(); err != nil {
		return err
	}

	o.inputDone(1)

	return nil
}

// Convert appends a pixel format conversion. Converting to the current
// format is a no-op.
func (img *Image) Convert(to FourCC) *Image {
	if img.err != nil {
		return img
	}

	from := img.fmt.Code
	if from == to {
		return img
	}

	fn := findConversion(from, to)
	if fn == nil {
		return img.fail(fmt.Errorf("convert %s to %s: %w", from, to, ErrUnsupported))
	}

	// YUYV pairs pixels, an odd width would leave the last pixel of every
	// line unwritten.
	if (from == FormatYUYV || to == FormatYUYV) && img.fmt.Width%2 != 0 {
		return img.fail(fmt.Errorf("convert %s to %s: odd width %d: %w",
			from, to, img.fmt.Width, ErrUnsupported))
	}

	op := &convertOp{convert: fn}
	op.name = "convert"

	return img.append(op, from, Format{Code: to, Width: img.fmt.Width, Height: img.fmt.Height})
}

// BT.709 limited-range coefficients in Q21 fixed point.
func q21(v float64) int32 { return int32(v * (1 << 21)) }

var (
	lumaR, lumaG, lumaB = q21(0.1826), q21(0.6142), q21(0.0620)
	cbR, cbG, cbB       = q21(-0.1006), q21(-0.3386), q21(0.4392)
	crR, crG, crB       = q21(0.4392), q21(-0.3989), q21(-0.0403)

	yGain    = q21(1.1644)
	rCr      = q21(1.7928)
	gCb, gCr = q21(-0.2133), q21(-0.5330)
	bCb      = q21(2.1124)
)

func clampU8(v int32) byte {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return byte(v)
}

func rgbToLuma(r, g, b int32) byte {
	return clampU8(((lumaR*r + lumaG*g + lumaB*b) >> 21) + 16)
}

func rgbToCb(r, g, b int32) byte {
	return clampU8(((cbR*r + cbG*g + cbB*b) >> 21) + 128)
}

func rgbToCr(r, g, b int32) byte {
	return clampU8(((crR*r + crG*g + crB*b) >> 21) + 128)
}

func yuvToRGB(y, u, v int32, dst []byte) {
	y, u, v = y-16, u-128, v-128
	dst[0] = clampU8((yGain*y + rCr*v) >> 21)
	dst[1] = clampU8((yGain*y + gCb*u + gCr*v) >> 21)
	dst[2] = clampU8((yGain*y + bCb*u) >> 21)
}

func convertRGB24ToRGB332(src, dst []byte, width int) {
	for i := 0; i < width; i++ {
		s := src[i*3:]
		dst[i] = s[0]&0xe0 | s[1]>>3&0x1c | s[2]>>6
	}
}

func convertRGB332ToRGB24(src, dst []byte, width int) {
	for i := 0; i < width; i++ {
		v := src[i]
		d := dst[i*3:]
		d[0] = v & 0xe0
		d[1] = v << 3 & 0xe0
		d[2] = v << 6 & 0xc0
	}
}

func convertRGB24ToRGB565LE(src, dst []byte, width int) {
	for i := 0; i < width; i++ {
		s := src[i*3:]
		v := uint16(s[0]>>3)<<11 | uint16(s[1]>>2)<<5 | uint16(s[2]>>3)
		dst[i*2] = byte(v)
		dst[i*2+1] = byte(v >> 8)
	}
}

func convertRGB565LEToRGB24(src, dst []byte, width int) {
	for i := 0; i < width; i++ {
		v := uint16(src[i*2]) | uint16(src[i*2+1])<<8
		d := dst[i*3:]
		d[0] = byte(v>>11) << 3
		d[1] = byte(v>>5&0x3f) << 2
		d[2] = byte(v&0x1f) << 3
	}
}

func convertRGB24ToRGB565BE(src, dst []byte, width int) {
	for i := 0; i < width; i++ {
		s := src[i*3:]
		v := uint16(s[0]>>3)<<11 | uint16(s[1]>>2)<<5 | uint16(s[2]>>3)
		dst[i*2] = byte(v >> 8)
		dst[i*2+1] = byte(v)
	}
}

func convertRGB565BEToRGB24(src, dst []byte, width int) {
	for i := 0; i < width; i++ {
		v := uint16(src[i*2])<<8 | uint16(src[i*2+1])
		d := dst[i*3:]
		d[0] = byte(v>>11) << 3
		d[1] = byte(v>>5&0x3f) << 2
		d[2] = byte(v&0x1f) << 3
	}
}

func convertRGB24ToGrey(src, dst []byte, width int) {
	for i := 0; i < width; i++ {
		s := src[i*3:]
		dst[i] = rgbToLuma(int32(s[0]), int32(s[1]), int32(s[2]))
	}
}

func convertGreyToRGB24(src, dst []byte, width int) {
	for i := 0; i < width; i++ {
		d := dst[i*3:]
		d[0], d[1], d[2] = src[i], src[i], src[i]
	}
}

func convertRGB24ToYUV24(src, dst []byte, width int) {
	for i := 0; i < width; i++ {
		s := src[i*3:]
		r, g, b := int32(s[0]), int32(s[1]), int32(s[2])
		d := dst[i*3:]
		d[0] = rgbToLuma(r, g, b)
		d[1] = rgbToCb(r, g, b)
		d[2] = rgbToCr(r, g, b)
	}
}

func convertYUV24ToRGB24(src, dst []byte, width int) {
	for i := 0; i < width; i++ {
		s := src[i*3:]
		yuvToRGB(int32(s[0]), int32(s[1]), int32(s[2]), dst[i*3:])
	}
}

// YUYV packs two pixels into four bytes, the chroma of the even pixel feeds
// Cb and the chroma of the odd pixel feeds Cr.
func convertRGB24ToYUYV(src, dst []byte, width int) {
	for i := 0; i+1 < width; i += 2 {
		s0, s1 := src[i*3:], src[i*3+3:]
		d := dst[i*2:]
		d[0] = rgbToLuma(int32(s0[0]), int32(s0[1]), int32(s0[2]))
		d[1] = rgbToCb(int32(s0[0]), int32(s0[1]), int32(s0[2]))
		d[2] = rgbToLuma(int32(s1[0]), int32(s1[1]), int32(s1[2]))
		d[3] = rgbToCr(int32(s1[0]), int32(s1[1]), int32(s1[2]))
	}
}

func convertYUYVToRGB24(src, dst []byte, width int) {
	for i := 0; i+1 < width; i += 2 {
		s := src[i*2:]
		y0, u, y1, v := int32(s[0]), int32(s[1]), int32(s[2]), int32(s[3])
		yuvToRGB(y0, u, v, dst[i*3:])
		yuvToRGB(y1, u, v, dst[i*3+3:])
	}
}

func convertYUV24ToYUYV(src, dst []byte, width int) {
	for i := 0; i+1 < width; i += 2 {
		s0, s1 := src[i*3:], src[i*3+3:]
		d := dst[i*2:]
		d[0], d[1] = s0[0], s0[1]
		d[2], d[3] = s1[0], s1[2]
	}
}

func convertYUYVToYUV24(src, dst []byte, width int) {
	for i := 0; i+1 < width; i += 2 {
		s := src[i*2:]
		d := dst[i*3:]
		d[0], d[1], d[2] = s[0], s[1], s[3]
		d[3], d[4], d[5] = s[2], s[1], s[3]
	}
}
