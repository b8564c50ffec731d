package pixpipe

import "fmt"

// FourCC is a 32-bit pixel format code built from four ASCII characters,
// matching the V4L2 naming convention.
type FourCC uint32

// Built-in pixel format codes.
const (
	// FormatRGB332 is 8-bit RGB with 3/3/2 bits per channel.
	FormatRGB332 FourCC = 'R' | 'G'<<8 | 'B'<<16 | '1'<<24
	// FormatRGB565 is 16-bit RGB, little-endian.
	FormatRGB565 FourCC = 'R' | 'G'<<8 | 'B'<<16 | 'P'<<24
	// FormatRGB565X is 16-bit RGB, big-endian.
	FormatRGB565X FourCC = 'R' | 'G'<<8 | 'B'<<16 | 'R'<<24
	// FormatRGB24 is 24-bit RGB, one byte per channel.
	FormatRGB24 FourCC = 'R' | 'G'<<8 | 'B'<<16 | '3'<<24
	// FormatYUV24 is 24-bit YUV, one byte per channel.
	FormatYUV24 FourCC = 'Y' | 'U'<<8 | 'V'<<16 | '3'<<24
	// FormatYUYV is 16-bit packed YUV 4:2:2.
	FormatYUYV FourCC = 'Y' | 'U'<<8 | 'Y'<<16 | 'V'<<24
	// FormatGrey is 8-bit luminance.
	FormatGrey FourCC = 'G' | 'R'<<8 | 'E'<<16 | 'Y'<<24

	// FormatSRGGB8, FormatSBGGR8, FormatSGBRG8 and FormatSGRBG8 are the four
	// 8-bit Bayer patterns, named after their top-left 2x2 cell.
	FormatSRGGB8 FourCC = 'R' | 'G'<<8 | 'G'<<16 | 'B'<<24
	FormatSBGGR8 FourCC = 'B' | 'G'<<8 | 'G'<<16 | 'R'<<24
	FormatSGBRG8 FourCC = 'G' | 'B'<<8 | 'R'<<16 | 'G'<<24
	FormatSGRBG8 FourCC = 'G' | 'R'<<8 | 'B'<<16 | 'G'<<24

	// FormatPalette1..FormatPalette8 are indexed-color formats with 1, 2, 4
	// or 8 bits per pixel.
	FormatPalette1 FourCC = 'P' | 'L'<<8 | 'T'<<16 | '1'<<24
	FormatPalette2 FourCC = 'P' | 'L'<<8 | 'T'<<16 | '2'<<24
	FormatPalette4 FourCC = 'P' | 'L'<<8 | 'T'<<16 | '4'<<24
	FormatPalette8 FourCC = 'P' | 'L'<<8 | 'T'<<16 | '8'<<24

	// FormatQOI is a variable-length QOI compressed stream.
	FormatQOI FourCC = 'Q' | 'O'<<8 | 'I'<<16 | 'F'<<24
	// FormatJPEG is a variable-length JPEG stream.
	FormatJPEG FourCC = 'J' | 'P'<<8 | 'E'<<16 | 'G'<<24
)

// customFormats holds application-registered format codes, the fallback for
// everything outside the built-in table.
var customFormats = map[FourCC]int{}

// RegisterFormat declares an application-defined format code with its bit
// depth. Use 0 bits for variable-length (compressed) formats.
func RegisterFormat(code FourCC, bitsPerPixel int) {
	customFormats[code] = bitsPerPixel
}

func (c FourCC) String() string {
	b := [4]byte{byte(c), byte(c >> 8), byte(c >> 16), byte(c >> 24)}
	for _, ch := range b {
		if ch < 0x20 || ch > 0x7e {
			return fmt.Sprintf("%08x", uint32(c))
		}
	}
	return string(b[:])
}

// BitsPerPixel returns the storage size of one pixel, or 0 for
// variable-length formats such as QOI and JPEG.
func (c FourCC) BitsPerPixel() int {
	switch c {
	case FormatRGB332, FormatGrey,
		FormatSRGGB8, FormatSBGGR8, FormatSGBRG8, FormatSGRBG8,
		FormatPalette8:
		return 8
	case FormatRGB565, FormatRGB565X, FormatYUYV:
		return 16
	case FormatRGB24, FormatYUV24:
		return 24
	case FormatPalette1:
		return 1
	case FormatPalette2:
		return 2
	case FormatPalette4:
		return 4
	case FormatQOI, FormatJPEG:
		return 0
	}
	return customFormats[c]
}

// paletteDepth returns the index bit depth of a palette format, or 0 if the
// code is not a palette format.
func paletteDepth(c FourCC) int {
	switch c {
	case FormatPalette1:
		return 1
	case FormatPalette2:
		return 2
	case FormatPalette4:
		return 4
	case FormatPalette8:
		return 8
	}
	return 0
}

// bayerLineDown returns the Bayer pattern seen when moving down one line, and
// reports whether the input was a Bayer pattern at all.
func bayerLineDown(c FourCC) (FourCC, bool) {
	switch c {
	case FormatSRGGB8:
		return FormatSGBRG8, true
	case FormatSGBRG8:
		return FormatSRGGB8, true
	case FormatSBGGR8:
		return FormatSGRBG8, true
	case FormatSGRBG8:
		return FormatSBGGR8, true
	}
	return c, false
}

func isBayer(c FourCC) bool {
	_, ok := bayerLineDown(c)
	return ok
}

// Format describes a frame: its pixel format code and dimensions.
type Format struct {
	Code   FourCC
	Width  uint16
	Height uint16
}

// Pitch returns the size of one line in bytes. It is only meaningful for
// fixed-bits-per-pixel formats and returns 0 otherwise.
func (f Format) Pitch() int {
	return int(f.Width) * f.Code.BitsPerPixel() / 8
}

// FrameSize returns the size of one full frame in bytes, 0 for
// variable-length formats.
func (f Format) FrameSize() int {
	return f.Pitch() * int(f.Height)
}

func (f Format) String() string {
	return fmt.Sprintf("%s %dx%d", f.Code, f.Width, f.Height)
}
