package pixpipe

import (
	"fmt"
	"math"
)

func clampI32(v, lo, hi int32) int32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// identityQ10 is the neutral value for Q10 gain controls.
const identityQ10 = 1 << 10

func correctBlackLevelRaw8(src, dst []byte, n int, level int32) {
	for i := 0; i < n; i++ {
		v := int32(src[i]) - level
		if v < 0 {
			v = 0
		}

		dst[i] = byte(v)
	}
}

func correctWhiteBalanceRGB24(src, dst []byte, width int, redQ10, blueQ10 int32) {
	for i := 0; i < width*3; i += 3 {
		dst[i] = clampU8(int32(src[i]) * redQ10 >> 10)
		dst[i+1] = src[i+1]
		dst[i+2] = clampU8(int32(src[i+2]) * blueQ10 >> 10)
	}
}

func correctColorMatrixRGB24(src, dst []byte, width int, m *[9]int32) {
	for i := 0; i < width*3; i += 3 {
		r, g, b := int32(src[i]), int32(src[i+1]), int32(src[i+2])
		dst[i] = clampU8(r*m[0]>>10 + g*m[1]>>10 + b*m[2]>>10)
		dst[i+1] = clampU8(r*m[3]>>10 + g*m[4]>>10 + b*m[5]>>10)
		dst[i+2] = clampU8(r*m[6]>>10 + g*m[7]>>10 + b*m[8]>>10)
	}
}

// gammaLUT maps input values through out = 255 * (in/255)^(1024/gamma) with
// the exponent in Q10, so gamma 2048 doubles the brightness response.
func gammaLUT(lut *[256]byte, gammaQ10 int32) {
	if gammaQ10 <= 0 {
		gammaQ10 = identityQ10
	}

	exp := float64(identityQ10) / float64(gammaQ10)

	for i := range lut {
		lut[i] = byte(math.Round(255 * math.Pow(float64(i)/255, exp)))
	}
}

type blackLevelOp struct {
	baseOp

	level [1]int32
}

func (o *blackLevelOp) run() error {
	var src [1][]byte

	if err := o.inputLines(src[:]); err != nil {
		return err
	}

	dst, err := o.outputLine()
	if err != nil {
		return err
	}

	correctBlackLevelRaw8(src[0], dst, o.pitch(), o.level[0])

	if err := o.outputDone(); err != nil {
		return err
	}

	o.inputDone(1)

	return nil
}

type whiteBalanceOp struct {
	baseOp

	red  [1]int32
	blue [1]int32
}

func (o *whiteBalanceOp) run() error {
	var src [1][]byte

	if err := o.inputLines(src[:]); err != nil {
		return err
	}

	dst, err := o.outputLine()
	if err != nil {
		return err
	}

	correctWhiteBalanceRGB24(src[0], dst, int(o.fmt.Width), o.red[0], o.blue[0])

	if err := o.outputDone(); err != nil {
		return err
	}

	o.inputDone(1)

	return nil
}

type gammaOp struct {
	baseOp

	level [1]int32

	lut      [256]byte
	lutLevel int32
}

func (o *gammaOp) run() error {
	var src [1][]byte

	if err := o.inputLines(src[:]); err != nil {
		return err
	}

	// The control can change between frames, rebuild lazily.
	if o.lutLevel != o.level[0] {
		gammaLUT(&o.lut, o.level[0])
		o.lutLevel = o.level[0]
	}

	dst, err := o.outputLine()
	if err != nil {
		return err
	}

	for i, v := range src[0][:o.pitch()] {
		dst[i] = o.lut[v]
	}

	if err := o.outputDone(); err != nil {
		return err
	}

	o.inputDone(1)

	return nil
}

type colorMatrixOp struct {
	baseOp

	matrix [9]int32
}

func (o *colorMatrixOp) run() error {
	var src [1][]byte

	if err := o.inputLines(src[:]); err != nil {
		return err
	}

	dst, err := o.outputLine()
	if err != nil {
		return err
	}

	correctColorMatrixRGB24(src[0], dst, int(o.fmt.Width), &o.matrix)

	if err := o.outputDone(); err != nil {
		return err
	}

	o.inputDone(1)

	return nil
}

// fusedOp applies black level, color matrix and gamma in one pass over each
// line, saving two ring buffers compared to chaining the standalone ops.
type fusedOp struct {
	baseOp

	level  [1]int32
	gamma  [1]int32
	matrix [9]int32

	lut      [256]byte
	lutLevel int32
}

func (o *fusedOp) run() error {
	var src [1][]byte

	if err := o.inputLines(src[:]); err != nil {
		return err
	}

	if o.lutLevel != o.gamma[0] {
		gammaLUT(&o.lut, o.gamma[0])
		o.lutLevel = o.gamma[0]
	}

	dst, err := o.outputLine()
	if err != nil {
		return err
	}

	m := &o.matrix

	for i := 0; i < int(o.fmt.Width)*3; i += 3 {
		r := int32(src[0][i]) - o.level[0]
		g := int32(src[0][i+1]) - o.level[0]
		b := int32(src[0][i+2]) - o.level[0]

		if r < 0 {
			r = 0
		}
		if g < 0 {
			g = 0
		}
		if b < 0 {
			b = 0
		}

		dst[i] = o.lut[clampU8(r*m[0]>>10+g*m[1]>>10+b*m[2]>>10)]
		dst[i+1] = o.lut[clampU8(r*m[3]>>10+g*m[4]>>10+b*m[5]>>10)]
		dst[i+2] = o.lut[clampU8(r*m[6]>>10+g*m[7]>>10+b*m[8]>>10)]
	}

	if err := o.outputDone(); err != nil {
		return err
	}

	o.inputDone(1)

	return nil
}

func isRaw8(c FourCC) bool {
	return c == FormatGrey || isBayer(c)
}

// CorrectBlackLevel appends sensor black level subtraction on RGB24, GREY or
// raw Bayer data. The level comes from CtrlBlackLevel, default 0.
func (img *Image) CorrectBlackLevel() *Image {
	if img.err != nil {
		return img
	}

	if c := img.fmt.Code; c != FormatRGB24 && !isRaw8(c) {
		return img.fail(fmt.Errorf("black level on %s: %w", c, ErrUnsupported))
	}

	op := &blackLevelOp{}
	op.name = "correct-black-level"

	img.registerControl(CtrlBlackLevel, op.level[:])

	return img.append(op, img.fmt.Code, img.fmt)
}

// CorrectWhiteBalance appends red/blue channel gains on RGB24. Gains come
// from CtrlRedBalance and CtrlBlueBalance in Q10, default 1024 (neutral).
func (img *Image) CorrectWhiteBalance() *Image {
	if img.err != nil {
		return img
	}

	if img.fmt.Code != FormatRGB24 {
		return img.fail(fmt.Errorf("white balance on %s: %w", img.fmt.Code, ErrUnsupported))
	}

	op := &whiteBalanceOp{red: [1]int32{identityQ10}, blue: [1]int32{identityQ10}}
	op.name = "correct-white-balance"

	img.registerControl(CtrlRedBalance, op.red[:])
	img.registerControl(CtrlBlueBalance, op.blue[:])

	return img.append(op, img.fmt.Code, img.fmt)
}

// CorrectGamma appends a gamma curve on RGB24 or GREY, driven by
// CtrlGammaLevel in Q10, default 1024 (linear).
func (img *Image) CorrectGamma() *Image {
	if img.err != nil {
		return img
	}

	if c := img.fmt.Code; c != FormatRGB24 && c != FormatGrey {
		return img.fail(fmt.Errorf("gamma on %s: %w", c, ErrUnsupported))
	}

	op := &gammaOp{level: [1]int32{identityQ10}, lutLevel: -1}
	op.name = "correct-gamma"

	img.registerControl(CtrlGammaLevel, op.level[:])

	return img.append(op, img.fmt.Code, img.fmt)
}

var identityMatrixQ10 = [9]int32{
	identityQ10, 0, 0,
	0, identityQ10, 0,
	0, 0, identityQ10,
}

// CorrectColorMatrix appends a 3x3 color correction matrix on RGB24, driven
// by CtrlColorMatrix in row-major Q10, default identity.
func (img *Image) CorrectColorMatrix() *Image {
	if img.err != nil {
		return img
	}

	if img.fmt.Code != FormatRGB24 {
		return img.fail(fmt.Errorf("color matrix on %s: %w", img.fmt.Code, ErrUnsupported))
	}

	op := &colorMatrixOp{matrix: identityMatrixQ10}
	op.name = "correct-color-matrix"

	img.registerControl(CtrlColorMatrix, op.matrix[:])

	return img.append(op, img.fmt.Code, img.fmt)
}

// CorrectFused appends black level, color matrix and gamma as a single
// RGB24 pass sharing one ring buffer. It registers CtrlBlackLevel,
// CtrlColorMatrix and CtrlGammaLevel.
func (img *Image) CorrectFused() *Image {
	if img.err != nil {
		return img
	}

	if img.fmt.Code != FormatRGB24 {
		return img.fail(fmt.Errorf("fused correction on %s: %w", img.fmt.Code, ErrUnsupported))
	}

	op := &fusedOp{gamma: [1]int32{identityQ10}, matrix: identityMatrixQ10, lutLevel: -1}
	op.name = "correct-fused"

	img.registerControl(CtrlBlackLevel, op.level[:])
	img.registerControl(CtrlGammaLevel, op.gamma[:])
	img.registerControl(CtrlColorMatrix, op.matrix[:])

	return img.append(op, img.fmt.Code, img.fmt)
}
