package pixpipe

import (
	"bytes"
	"errors"
	"testing"
)

func TestRGB24ToGreyLimitedRange(t *testing.T) {
	src := []byte{255, 255, 255, 0, 0, 0}
	dst := make([]byte, 2)

	convertRGB24ToGrey(src, dst, 2)

	// BT.709 limited range: white is 235, black is 16.
	if dst[0] != 235 || dst[1] != 16 {
		t.Fatalf("grey levels: %v", dst)
	}
}

func TestRGB565RoundTrip(t *testing.T) {
	src := []byte{0xf8, 0x84, 0x40}
	mid := make([]byte, 2)
	out := make([]byte, 3)

	convertRGB24ToRGB565LE(src, mid, 1)
	convertRGB565LEToRGB24(mid, out, 1)

	// Values whose low bits are already zero survive the round trip.
	if !bytes.Equal(out, src) {
		t.Fatalf("round trip: %v -> %v", src, out)
	}
}

func TestRGB565Endianness(t *testing.T) {
	src := []byte{0xff, 0x00, 0x00}
	le := make([]byte, 2)
	be := make([]byte, 2)

	convertRGB24ToRGB565LE(src, le, 1)
	convertRGB24ToRGB565BE(src, be, 1)

	if le[0] != be[1] || le[1] != be[0] {
		t.Fatalf("LE %02x%02x and BE %02x%02x are not byte-swapped", le[0], le[1], be[0], be[1])
	}
}

func TestRGB332RoundTrip(t *testing.T) {
	src := []byte{0xe0, 0xe0, 0xc0}
	mid := make([]byte, 1)
	out := make([]byte, 3)

	convertRGB24ToRGB332(src, mid, 1)
	convertRGB332ToRGB24(mid, out, 1)

	if !bytes.Equal(out, src) {
		t.Fatalf("round trip: %v -> %v", src, out)
	}
}

func TestGreyToRGB24(t *testing.T) {
	dst := make([]byte, 6)

	convertGreyToRGB24([]byte{7, 9}, dst, 2)

	if !bytes.Equal(dst, []byte{7, 7, 7, 9, 9, 9}) {
		t.Fatalf("expanded: %v", dst)
	}
}

func TestYUYVRoundTripGrey(t *testing.T) {
	// A neutral grey has no chroma, so 4:2:2 subsampling loses nothing.
	src := []byte{128, 128, 128, 128, 128, 128}
	mid := make([]byte, 4)
	out := make([]byte, 6)

	convertRGB24ToYUYV(src, mid, 2)
	convertYUYVToRGB24(mid, out, 2)

	// Limited-range quantization costs a few code points both ways.
	for i := range out {
		d := int(out[i]) - int(src[i])
		if d < -6 || d > 6 {
			t.Fatalf("round trip drifted: %v -> %v", src, out)
		}
	}
}

func TestConvertYUYVRejectsOddWidth(t *testing.T) {
	img := NewImage(make([]byte, 5*2*3), 5, 2, FormatRGB24).Convert(FormatYUYV)

	if !errors.Is(img.Err(), ErrUnsupported) {
		t.Fatalf("YUYV needs an even width, got %v", img.Err())
	}

	img = NewImage(make([]byte, 5*2*2), 5, 2, FormatYUYV).Convert(FormatRGB24)

	if !errors.Is(img.Err(), ErrUnsupported) {
		t.Fatalf("YUYV needs an even width, got %v", img.Err())
	}
}

func TestRegisterConversion(t *testing.T) {
	const formatXY = FourCC('X') | FourCC('Y')<<8 | FourCC('Z')<<16 | FourCC('0')<<24

	RegisterFormat(formatXY, 8)
	RegisterConversion(FormatGrey, formatXY, func(src, dst []byte, width int) {
		for i := 0; i < width; i++ {
			dst[i] = src[i] ^ 0xff
		}
	})

	img := NewImage([]byte{0x00, 0x01, 0x02, 0x03}, 2, 2, FormatGrey).Convert(formatXY)

	dst := make([]byte, 4)

	if _, err := img.ToBuffer(dst); err != nil {
		t.Fatalf("process: %v", err)
	}

	if !bytes.Equal(dst, []byte{0xff, 0xfe, 0xfd, 0xfc}) {
		t.Fatalf("custom conversion output: %v", dst)
	}
}

func TestFourCCString(t *testing.T) {
	if got := FormatRGB24.String(); got != "RGB3" {
		t.Fatalf("RGB24 code: %q", got)
	}

	if got := FormatSGRBG8.String(); got != "GRBG" {
		t.Fatalf("SGRBG8 code: %q", got)
	}
}
