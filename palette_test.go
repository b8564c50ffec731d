package pixpipe

import (
	"bytes"
	"errors"
	"testing"
)

func testPalette4Colors(t *testing.T) *Palette {
	t.Helper()

	p, err := NewPalette(FormatPalette2)
	if err != nil {
		t.Fatalf("new palette: %v", err)
	}

	copy(p.Colors, []byte{
		0, 0, 0,
		255, 0, 0,
		0, 255, 0,
		0, 0, 255,
	})

	return p
}

func TestNewPalette(t *testing.T) {
	p, err := NewPalette(FormatPalette8)
	if err != nil {
		t.Fatalf("new palette: %v", err)
	}

	if len(p.Colors) != 3*256 {
		t.Fatalf("PLT8 colors: %d bytes", len(p.Colors))
	}

	if _, err := NewPalette(FormatRGB24); err == nil {
		t.Fatalf("non-indexed format should be rejected")
	}
}

func TestPaletteEncode(t *testing.T) {
	p := testPalette4Colors(t)

	// One pixel of each palette color per line, twice.
	line := []byte{0, 0, 0, 255, 0, 0, 0, 255, 0, 0, 0, 255}
	src := append(append([]byte{}, line...), line...)

	img := NewImage(src, 4, 2, FormatRGB24).
		PaletteEncode(FormatPalette2).
		SetPalette(p)

	dst := make([]byte, 2)

	n, err := img.ToBuffer(dst)
	if err != nil {
		t.Fatalf("process: %v", err)
	}

	// Indices 0,1,2,3 pack MSB first into 00 01 10 11.
	if n != 2 || dst[0] != 0x1b || dst[1] != 0x1b {
		t.Fatalf("packed bytes: %x", dst[:n])
	}
}

func TestPaletteDecode(t *testing.T) {
	p := testPalette4Colors(t)

	img := NewImage([]byte{0x1b, 0xe4}, 4, 2, FormatPalette2).
		PaletteDecode().
		SetPalette(p)

	dst := make([]byte, 4*2*3)

	if _, err := img.ToBuffer(dst); err != nil {
		t.Fatalf("process: %v", err)
	}

	want := []byte{
		0, 0, 0, 255, 0, 0, 0, 255, 0, 0, 0, 255, // 00 01 10 11
		0, 0, 255, 0, 255, 0, 255, 0, 0, 0, 0, 0, // 11 10 01 00
	}
	if !bytes.Equal(dst, want) {
		t.Fatalf("decoded frame:\n%v\nwant:\n%v", dst, want)
	}
}

func TestPaletteRoundTrip(t *testing.T) {
	p := testPalette4Colors(t)

	// Colors close to, but not exactly, palette entries must snap to the
	// nearest entry and come back as exact palette colors.
	src := []byte{
		10, 5, 0, 250, 10, 3, 8, 240, 12, 0, 6, 255,
		10, 5, 0, 250, 10, 3, 8, 240, 12, 0, 6, 255,
	}

	enc := NewImage(src, 4, 2, FormatRGB24).
		PaletteEncode(FormatPalette2).
		SetPalette(p)

	packed := make([]byte, 2)
	if _, err := enc.ToBuffer(packed); err != nil {
		t.Fatalf("encode: %v", err)
	}

	dec := NewImage(packed, 4, 2, FormatPalette2).
		PaletteDecode().
		SetPalette(p)

	dst := make([]byte, len(src))
	if _, err := dec.ToBuffer(dst); err != nil {
		t.Fatalf("decode: %v", err)
	}

	want := []byte{
		0, 0, 0, 255, 0, 0, 0, 255, 0, 0, 0, 255,
		0, 0, 0, 255, 0, 0, 0, 255, 0, 0, 0, 255,
	}
	if !bytes.Equal(dst, want) {
		t.Fatalf("snapped frame:\n%v\nwant:\n%v", dst, want)
	}
}

func TestPaletteMissingAtRun(t *testing.T) {
	img := NewImage(make([]byte, 4*2*3), 4, 2, FormatRGB24).
		PaletteEncode(FormatPalette2)

	if _, err := img.ToBuffer(make([]byte, 2)); !errors.Is(err, ErrNoPalette) {
		t.Fatalf("expected missing palette error, got %v", err)
	}
}

func TestSetPaletteNoMatch(t *testing.T) {
	p, err := NewPalette(FormatPalette4)
	if err != nil {
		t.Fatalf("new palette: %v", err)
	}

	img := NewImage(make([]byte, 4*2*3), 4, 2, FormatRGB24).
		PaletteEncode(FormatPalette2).
		SetPalette(p)

	if !errors.Is(img.Err(), ErrNoPalette) {
		t.Fatalf("mismatched palette format should fail, got %v", img.Err())
	}
}

func TestPaletteEncodeWidthMustPack(t *testing.T) {
	img := NewImage(make([]byte, 5*2*3), 5, 2, FormatRGB24).
		PaletteEncode(FormatPalette2)

	if img.Err() == nil {
		t.Fatalf("width 5 cannot pack 2-bit indices")
	}
}

func TestPaletteDecodeWidthMustPack(t *testing.T) {
	img := NewImage(make([]byte, 4), 5, 2, FormatPalette4).
		PaletteDecode()

	if !errors.Is(img.Err(), ErrUnsupported) {
		t.Fatalf("width 5 cannot pack 4-bit indices, got %v", img.Err())
	}
}

func TestOptimizePalette(t *testing.T) {
	SeedSampler(42)

	p, err := NewPalette(FormatPalette1)
	if err != nil {
		t.Fatalf("new palette: %v", err)
	}

	src := rgb24Frame(4, 4, 100, 50, 25)

	img := NewImage(src, 4, 4, FormatRGB24).OptimizePalette(p, 16)
	if img.Err() != nil {
		t.Fatalf("optimize: %v", img.Err())
	}

	// Every sample lands in color 0, which moves to the frame color. Color 1
	// caught nothing and drifts so a later pass can pick up a cluster.
	if !bytes.Equal(p.Colors[:3], []byte{100, 50, 25}) {
		t.Fatalf("color 0: %v", p.Colors[:3])
	}

	if !bytes.Equal(p.Colors[3:6], []byte{0x10, 0x10, 0x10}) {
		t.Fatalf("color 1: %v", p.Colors[3:6])
	}
}

func TestOptimizePaletteZeroSamples(t *testing.T) {
	p := testPalette4Colors(t)
	before := append([]byte{}, p.Colors...)

	img := NewImage(rgb24Frame(4, 4, 9, 9, 9), 4, 4, FormatRGB24).OptimizePalette(p, 0)
	if img.Err() != nil {
		t.Fatalf("optimize: %v", img.Err())
	}

	if !bytes.Equal(p.Colors, before) {
		t.Fatalf("zero samples must not touch the palette")
	}
}
