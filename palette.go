package pixpipe

import "fmt"

// Palette is a caller-owned color table for the indexed formats. Colors
// holds 3<<depth bytes of packed RGB24, indexed directly by pixel value.
type Palette struct {
	Code   FourCC
	Colors []byte
}

// NewPalette allocates an all-black palette for the given indexed format.
func NewPalette(code FourCC) (*Palette, error) {
	depth := paletteDepth(code)
	if depth == 0 {
		return nil, fmt.Errorf("palette %s: %w", code, ErrUnsupported)
	}

	return &Palette{Code: code, Colors: make([]byte, 3<<depth)}, nil
}

func (p *Palette) depth() int { return paletteDepth(p.Code) }

// nearestColor returns the palette index whose color has the smallest
// squared RGB distance to the sample.
func (p *Palette) nearestColor(rgb []byte) int {
	best := 0
	bestDist := uint32(1<<32 - 1)

	for i := 0; i < 1<<p.depth(); i++ {
		c := p.Colors[i*3:]
		dr := int32(c[0]) - int32(rgb[0])
		dg := int32(c[1]) - int32(rgb[1])
		db := int32(c[2]) - int32(rgb[2])

		dist := uint32(dr*dr + dg*dg + db*db)
		if dist < bestDist {
			bestDist = dist
			best = i
		}
	}

	return best
}

// encodeLine packs width RGB24 pixels into palette indices.
func (p *Palette) encodeLine(src, dst []byte, width int) {
	depth := p.depth()
	perByte := 8 / depth

	for x := 0; x < width; x += perByte {
		var packed byte

		for i := 0; i < perByte; i++ {
			idx := p.nearestColor(src[(x+i)*3:])
			packed |= byte(idx) << uint((perByte-1-i)*depth)
		}

		dst[x/perByte] = packed
	}
}

// decodeLine expands palette indices back to RGB24.
func (p *Palette) decodeLine(src, dst []byte, width int) {
	depth := p.depth()
	perByte := 8 / depth
	mask := byte(1<<depth - 1)

	for x := 0; x < width; x += perByte {
		packed := src[x/perByte]

		for i := 0; i < perByte; i++ {
			idx := packed >> uint((perByte-1-i)*depth) & mask
			copy(dst[(x+i)*3:(x+i)*3+3], p.Colors[int(idx)*3:])
		}
	}
}

type paletteEncodeOp struct {
	baseOp

	code    FourCC
	palette *Palette
}

func (o *paletteEncodeOp) setPalette(p *Palette) bool {
	if p.Code != o.code {
		return false
	}

	o.palette = p

	return true
}

func (o *paletteEncodeOp) run() error {
	if o.palette == nil {
		return fmt.Errorf("%s: %w", o.name, ErrNoPalette)
	}

	var src [1][]byte

	if err := o.inputLines(src[:]); err != nil {
		return err
	}

	dst, err := o.outputLine()
	if err != nil {
		return err
	}

	o.palette.encodeLine(src[0], dst, int(o.fmt.Width))

	if err := o.outputDone(); err != nil {
		return err
	}

	o.inputDone(1)

	return nil
}

type paletteDecodeOp struct {
	baseOp

	code    FourCC
	palette *Palette
}

func (o *paletteDecodeOp) setPalette(p *Palette) bool {
	if p.Code != o.code {
		return false
	}

	o.palette = p

	return true
}

func (o *paletteDecodeOp) run() error {
	if o.palette == nil {
		return fmt.Errorf("%s: %w", o.name, ErrNoPalette)
	}

	var src [1][]byte

	if err := o.inputLines(src[:]); err != nil {
		return err
	}

	dst, err := o.outputLine()
	if err != nil {
		return err
	}

	o.palette.decodeLine(src[0], dst, int(o.fmt.Width))

	if err := o.outputDone(); err != nil {
		return err
	}

	o.inputDone(1)

	return nil
}

// PaletteEncode appends quantization of RGB24 into an indexed format. The
// width must pack whole bytes: a multiple of 8 for PLT1, 4 for PLT2, 2 for
// PLT4. Assign the palette with SetPalette before processing.
func (img *Image) PaletteEncode(code FourCC) *Image {
	if img.err != nil {
		return img
	}

	depth := paletteDepth(code)
	if depth == 0 {
		return img.fail(fmt.Errorf("palette encode to %s: %w", code, ErrUnsupported))
	}

	if int(img.fmt.Width)*depth%8 != 0 {
		return img.fail(fmt.Errorf("palette encode: width %d does not pack %d-bit indices: %w",
			img.fmt.Width, depth, ErrUnsupported))
	}

	op := &paletteEncodeOp{code: code}
	op.name = "palette-encode"

	return img.append(op, FormatRGB24, Format{Code: code, Width: img.fmt.Width, Height: img.fmt.Height})
}

// PaletteDecode appends expansion of an indexed format back to RGB24, using
// the palette assigned with SetPalette.
func (img *Image) PaletteDecode() *Image {
	if img.err != nil {
		return img
	}

	code := img.fmt.Code

	depth := paletteDepth(code)
	if depth == 0 {
		return img.fail(fmt.Errorf("palette decode from %s: %w", code, ErrUnsupported))
	}

	if int(img.fmt.Width)*depth%8 != 0 {
		return img.fail(fmt.Errorf("palette decode: width %d does not pack %d-bit indices: %w",
			img.fmt.Width, depth, ErrUnsupported))
	}

	op := &paletteDecodeOp{code: code}
	op.name = "palette-decode"

	return img.append(op, code, Format{Code: FormatRGB24, Width: img.fmt.Width, Height: img.fmt.Height})
}

// OptimizePalette runs one k-means pass refining the palette toward the
// image content: numSamples pixels are drawn at random, assigned to their
// nearest palette color, and each color moves to the mean of its bucket.
// Colors that attracted no samples drift by +0x10 per channel so they can
// catch a cluster on the next pass. Several passes improve the fit; zero
// samples leaves the palette untouched.
func (img *Image) OptimizePalette(p *Palette, numSamples int) *Image {
	if img.err != nil {
		return img
	}

	if p == nil || p.depth() == 0 {
		return img.fail(fmt.Errorf("optimize palette: %w", ErrNoPalette))
	}

	if numSamples == 0 {
		return img
	}

	if img.buffer == nil {
		return img.fail(ErrNoInput)
	}

	// Sampling reads the raw input frame, before any appended operation.
	srcFmt := img.fmt
	if img.first != nil {
		srcFmt = img.first.base().fmt
	}

	colors := 1 << p.depth()
	sums := make([]uint32, colors*3)
	nums := make([]uint16, colors)

	var rgb [3]byte

	for i := 0; i < numSamples; i++ {
		if err := sampleRandomRGB(img.buffer, srcFmt, rgb[:]); err != nil {
			return img.fail(err)
		}

		idx := p.nearestColor(rgb[:])
		sums[idx*3] += uint32(rgb[0])
		sums[idx*3+1] += uint32(rgb[1])
		sums[idx*3+2] += uint32(rgb[2])
		nums[idx]++
	}

	for idx := 0; idx < colors; idx++ {
		c := p.Colors[idx*3 : idx*3+3]

		if nums[idx] == 0 {
			c[0] += 0x10
			c[1] += 0x10
			c[2] += 0x10

			continue
		}

		c[0] = byte(sums[idx*3] / uint32(nums[idx]))
		c[1] = byte(sums[idx*3+1] / uint32(nums[idx]))
		c[2] = byte(sums[idx*3+2] / uint32(nums[idx]))
	}

	return img
}
