package pixpipe

import (
	"bytes"
	"errors"
	"testing"
)

// rgb24Frame builds a frame where every pixel is the same color.
func rgb24Frame(width, height int, r, g, b byte) []byte {
	buf := make([]byte, width*height*3)
	for i := 0; i < len(buf); i += 3 {
		buf[i], buf[i+1], buf[i+2] = r, g, b
	}

	return buf
}

func TestConvertPipeline(t *testing.T) {
	src := rgb24Frame(4, 4, 0xff, 0x00, 0x80)

	img := NewImage(src, 4, 4, FormatRGB24).Convert(FormatRGB565)

	dst := make([]byte, 4*4*2)

	n, err := img.ToBuffer(dst)
	if err != nil {
		t.Fatalf("process: %v", err)
	}

	if n != 32 {
		t.Fatalf("output size: %d", n)
	}

	// 0xff0080 packs to 11111 000000 10000.
	want := []byte{0x10, 0xf8}
	for i := 0; i < n; i += 2 {
		if !bytes.Equal(dst[i:i+2], want) {
			t.Fatalf("pixel %d: %02x%02x, want %02x%02x", i/2, dst[i], dst[i+1], want[0], want[1])
		}
	}
}

func TestChainedConversions(t *testing.T) {
	src := rgb24Frame(8, 4, 10, 200, 30)

	img := NewImage(src, 8, 4, FormatRGB24).
		Convert(FormatYUV24).
		Convert(FormatYUYV).
		Convert(FormatRGB24)

	dst := make([]byte, 8*4*3)

	if _, err := img.ToBuffer(dst); err != nil {
		t.Fatalf("process: %v", err)
	}

	// Round-tripping through YUV is lossy but must stay in the
	// neighborhood of the original color.
	for i := 0; i < len(dst); i += 3 {
		for c := 0; c < 3; c++ {
			d := int(dst[i+c]) - int(src[i+c])
			if d < -8 || d > 8 {
				t.Fatalf("pixel %d channel %d drifted: %d -> %d", i/3, c, src[i+c], dst[i+c])
			}
		}
	}
}

func TestAppendFormatMismatch(t *testing.T) {
	img := NewImage(make([]byte, 16), 4, 4, FormatGrey)

	img = img.CorrectWhiteBalance()

	if img.Err() == nil {
		t.Fatalf("white balance on GREY should fail")
	}

	if !errors.Is(img.Err(), ErrUnsupported) {
		t.Fatalf("unexpected error: %v", img.Err())
	}

	// The failed append must not have grown the chain.
	if img.first != nil {
		t.Fatalf("chain not empty after failed append")
	}
}

func TestErrorSticks(t *testing.T) {
	img := NewImage(make([]byte, 48), 4, 4, FormatRGB24).
		Convert(FormatYUV24).
		Convert(FormatRGB332). // no YUV24 to RGB332 conversion
		Convert(FormatRGB24)

	if !errors.Is(img.Err(), ErrUnsupported) {
		t.Fatalf("expected unsupported conversion, got %v", img.Err())
	}

	if _, err := img.ToBuffer(make([]byte, 48)); !errors.Is(err, ErrUnsupported) {
		t.Fatalf("sticky error not returned by ToBuffer: %v", err)
	}
}

func TestEmptyPipeline(t *testing.T) {
	img := NewImage(make([]byte, 48), 4, 4, FormatRGB24)

	if _, err := img.ToBuffer(make([]byte, 48)); !errors.Is(err, ErrEmptyPipeline) {
		t.Fatalf("expected empty pipeline error, got %v", err)
	}
}

func TestInputBufferTooSmall(t *testing.T) {
	img := NewImage(make([]byte, 10), 4, 4, FormatRGB24).Convert(FormatGrey)

	if _, err := img.ToBuffer(make([]byte, 16)); !errors.Is(err, ErrBufferTooSmall) {
		t.Fatalf("expected buffer too small, got %v", err)
	}
}

func TestOutputBufferTooSmall(t *testing.T) {
	img := NewImage(make([]byte, 48), 4, 4, FormatRGB24).Convert(FormatGrey)

	if _, err := img.ToBuffer(make([]byte, 8)); !errors.Is(err, ErrBufferTooSmall) {
		t.Fatalf("expected buffer too small, got %v", err)
	}
}

func TestSetControlUnknown(t *testing.T) {
	img := NewImage(make([]byte, 48), 4, 4, FormatRGB24).
		Convert(FormatGrey).
		SetControl(CtrlRedBalance, 2048)

	if !errors.Is(img.Err(), ErrUnknownControl) {
		t.Fatalf("expected unknown control, got %v", img.Err())
	}
}

func TestWhiteBalanceControl(t *testing.T) {
	src := rgb24Frame(4, 2, 100, 100, 100)

	img := NewImage(src, 4, 2, FormatRGB24).
		CorrectWhiteBalance().
		SetControl(CtrlRedBalance, 2048). // 2.0
		SetControl(CtrlBlueBalance, 512)  // 0.5

	dst := make([]byte, len(src))

	if _, err := img.ToBuffer(dst); err != nil {
		t.Fatalf("process: %v", err)
	}

	if dst[0] != 200 || dst[1] != 100 || dst[2] != 50 {
		t.Fatalf("balanced pixel: %v", dst[:3])
	}
}

func TestWhiteBalanceClamps(t *testing.T) {
	src := rgb24Frame(4, 2, 200, 0, 0)

	img := NewImage(src, 4, 2, FormatRGB24).
		CorrectWhiteBalance().
		SetControl(CtrlRedBalance, 2048)

	dst := make([]byte, len(src))

	if _, err := img.ToBuffer(dst); err != nil {
		t.Fatalf("process: %v", err)
	}

	if dst[0] != 255 {
		t.Fatalf("red channel should clamp to 255, got %d", dst[0])
	}
}

func TestBlackLevel(t *testing.T) {
	src := rgb24Frame(4, 2, 20, 100, 10)

	img := NewImage(src, 4, 2, FormatRGB24).
		CorrectBlackLevel().
		SetControl(CtrlBlackLevel, 16)

	dst := make([]byte, len(src))

	if _, err := img.ToBuffer(dst); err != nil {
		t.Fatalf("process: %v", err)
	}

	if dst[0] != 4 || dst[1] != 84 || dst[2] != 0 {
		t.Fatalf("corrected pixel: %v", dst[:3])
	}
}

func TestColorMatrixSwapsChannels(t *testing.T) {
	src := rgb24Frame(4, 2, 10, 20, 30)

	// Permutation matrix rotating R<-G, G<-B, B<-R.
	img := NewImage(src, 4, 2, FormatRGB24).
		CorrectColorMatrix().
		SetControl(CtrlColorMatrix,
			0, 1024, 0,
			0, 0, 1024,
			1024, 0, 0)

	dst := make([]byte, len(src))

	if _, err := img.ToBuffer(dst); err != nil {
		t.Fatalf("process: %v", err)
	}

	if dst[0] != 20 || dst[1] != 30 || dst[2] != 10 {
		t.Fatalf("rotated pixel: %v", dst[:3])
	}
}

func TestGammaIdentity(t *testing.T) {
	src := rgb24Frame(4, 2, 0, 128, 255)

	img := NewImage(src, 4, 2, FormatRGB24).CorrectGamma()

	dst := make([]byte, len(src))

	if _, err := img.ToBuffer(dst); err != nil {
		t.Fatalf("process: %v", err)
	}

	if !bytes.Equal(dst, src) {
		t.Fatalf("gamma 1.0 must be the identity")
	}
}

func TestGammaBrightens(t *testing.T) {
	src := rgb24Frame(4, 2, 64, 64, 64)

	img := NewImage(src, 4, 2, FormatRGB24).
		CorrectGamma().
		SetControl(CtrlGammaLevel, 2048)

	dst := make([]byte, len(src))

	if _, err := img.ToBuffer(dst); err != nil {
		t.Fatalf("process: %v", err)
	}

	if dst[0] <= 64 {
		t.Fatalf("gamma 2.0 should brighten midtones, got %d", dst[0])
	}
}

type countingAllocator struct {
	allocs int
	frees  int
}

func (a *countingAllocator) Alloc(size int) ([]byte, error) {
	a.allocs++

	return make([]byte, size), nil
}

func (a *countingAllocator) Free([]byte) { a.frees++ }

func TestAllocatorLifecycle(t *testing.T) {
	alloc := &countingAllocator{}

	src := rgb24Frame(4, 4, 1, 2, 3)
	img := NewImage(src, 4, 4, FormatRGB24, WithAllocator(alloc)).
		Convert(FormatYUV24).
		Convert(FormatRGB24)

	// Nothing is allocated while only building the chain.
	if alloc.allocs != 0 {
		t.Fatalf("allocations before process: %d", alloc.allocs)
	}

	dst := make([]byte, len(src))
	if _, err := img.ToBuffer(dst); err != nil {
		t.Fatalf("process: %v", err)
	}

	// The head ring is the input buffer and the sink is the output buffer,
	// so only the op between the two conversions needed storage.
	if alloc.allocs != 1 || alloc.frees != 1 {
		t.Fatalf("allocs %d frees %d, want 1 and 1", alloc.allocs, alloc.frees)
	}
}

func TestSubsampleUpscale(t *testing.T) {
	// 2x2 GREY checkerboard doubled to 4x4: every source pixel becomes a
	// 2x2 block.
	src := []byte{
		10, 20,
		30, 40,
	}

	img := NewImage(src, 2, 2, FormatGrey).Subsample(4, 4)

	dst := make([]byte, 16)

	if _, err := img.ToBuffer(dst); err != nil {
		t.Fatalf("process: %v", err)
	}

	want := []byte{
		10, 10, 20, 20,
		10, 10, 20, 20,
		30, 30, 40, 40,
		30, 30, 40, 40,
	}
	if !bytes.Equal(dst, want) {
		t.Fatalf("upscaled frame:\n%v\nwant:\n%v", dst, want)
	}
}

func TestCrop(t *testing.T) {
	src := make([]byte, 16)
	for i := range src {
		src[i] = byte(i)
	}

	img := NewImage(src, 4, 4, FormatGrey).Crop(1, 1, 2, 2)

	dst := make([]byte, 4)

	n, err := img.ToBuffer(dst)
	if err != nil {
		t.Fatalf("process: %v", err)
	}

	if n != 4 || !bytes.Equal(dst, []byte{5, 6, 9, 10}) {
		t.Fatalf("cropped region: %v", dst[:n])
	}
}

func TestCropOutOfBounds(t *testing.T) {
	img := NewImage(make([]byte, 16), 4, 4, FormatGrey).Crop(2, 2, 4, 4)

	if !errors.Is(img.Err(), ErrUnsupported) {
		t.Fatalf("expected out of bounds error, got %v", img.Err())
	}
}

func TestProcessOnlyOnce(t *testing.T) {
	src := rgb24Frame(4, 4, 1, 2, 3)

	img := NewImage(src, 4, 4, FormatRGB24).Convert(FormatGrey)

	if _, err := img.ToBuffer(make([]byte, 16)); err != nil {
		t.Fatalf("process: %v", err)
	}

	// The chain is spent after one frame, a rerun must fail loudly instead
	// of producing garbage.
	if _, err := img.ToBuffer(make([]byte, 16)); !errors.Is(err, ErrCanceled) {
		t.Fatalf("expected rerun error, got %v", err)
	}
}

func TestCloseResets(t *testing.T) {
	img := NewImage(make([]byte, 16), 4, 4, FormatGrey).Crop(9, 9, 1, 1)

	if img.Err() == nil {
		t.Fatalf("expected configuration error")
	}

	img.Close()

	if img.Err() != nil || img.first != nil {
		t.Fatalf("close did not reset the descriptor")
	}
}

func TestToWriter(t *testing.T) {
	src := rgb24Frame(4, 4, 50, 60, 70)

	var out bytes.Buffer

	img := NewImage(src, 4, 4, FormatRGB24).Convert(FormatGrey)

	if err := img.ToWriter(&out); err != nil {
		t.Fatalf("process: %v", err)
	}

	if out.Len() != 16 {
		t.Fatalf("streamed %d bytes, want 16", out.Len())
	}
}

type failingWriter struct{ err error }

func (w failingWriter) Write([]byte) (int, error) { return 0, w.err }

func TestToWriterPropagatesError(t *testing.T) {
	src := rgb24Frame(4, 4, 1, 2, 3)
	sinkErr := errors.New("disk full")

	img := NewImage(src, 4, 4, FormatRGB24).Convert(FormatGrey)

	if err := img.ToWriter(failingWriter{err: sinkErr}); !errors.Is(err, sinkErr) {
		t.Fatalf("writer error not propagated: %v", err)
	}
}
