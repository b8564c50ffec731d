package pixpipe

import "fmt"

// lcgState seeds the pixel sampler. The generator is a plain LCG, good
// enough for picking sample positions; SeedSampler makes runs reproducible.
var lcgState uint32

// SeedSampler resets the random sampler state.
func SeedSampler(seed uint32) { lcgState = seed }

func lcgRand() uint32 {
	lcgState = lcgState*1103515245 + 12345

	return lcgState
}

// sampleRandomRGB reads one pixel at a random position of a raw frame and
// returns it as RGB24. Bayer formats sample an even-aligned 2x2 cell.
func sampleRandomRGB(buf []byte, f Format, rgb []byte) error {
	width, height := uint32(f.Width), uint32(f.Height)

	switch f.Code {
	case FormatRGB24:
		i := lcgRand() % (width * height) * 3
		copy(rgb, buf[i:i+3])
	case FormatRGB565:
		i := lcgRand() % (width * height) * 2
		convertRGB565LEToRGB24(buf[i:i+2], rgb, 1)
	case FormatRGB565X:
		i := lcgRand() % (width * height) * 2
		convertRGB565BEToRGB24(buf[i:i+2], rgb, 1)
	case FormatYUYV:
		i := lcgRand() % (width * height) / 2 * 4
		var pair [6]byte
		convertYUYVToRGB24(buf[i:i+4], pair[:], 2)
		copy(rgb, pair[:3])
	case FormatGrey:
		i := lcgRand() % (width * height)
		rgb[0], rgb[1], rgb[2] = buf[i], buf[i], buf[i]
	case FormatSRGGB8, FormatSBGGR8, FormatSGBRG8, FormatSGRBG8:
		sampleRandomBayer(buf, width, height, f.Code, rgb)
	default:
		return fmt.Errorf("sampling %s: %w", f.Code, ErrUnsupported)
	}

	return nil
}

func sampleRandomBayer(buf []byte, width, height uint32, code FourCC, rgb []byte) {
	w := lcgRand() % width &^ 1
	h := lcgRand() % height &^ 1

	a := buf[h*width+w]
	b := buf[h*width+w+1]
	c := buf[(h+1)*width+w]
	d := buf[(h+1)*width+w+1]

	switch code {
	case FormatSRGGB8:
		rgb[0], rgb[1], rgb[2] = a, byte((uint16(b)+uint16(c))/2), d
	case FormatSBGGR8:
		rgb[0], rgb[1], rgb[2] = d, byte((uint16(b)+uint16(c))/2), a
	case FormatSGBRG8:
		rgb[0], rgb[1], rgb[2] = c, byte((uint16(a)+uint16(d))/2), b
	case FormatSGRBG8:
		rgb[0], rgb[1], rgb[2] = b, byte((uint16(a)+uint16(d))/2), c
	}
}
