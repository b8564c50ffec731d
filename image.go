package pixpipe

import (
	"fmt"

	"github.com/google/uuid"
)

// ControlID identifies a runtime-tunable parameter registered by an
// operation when it is appended.
type ControlID int

// Control identifiers.
const (
	// CtrlBlackLevel is the black level subtracted per channel, 0..255.
	CtrlBlackLevel ControlID = iota + 1
	// CtrlRedBalance and CtrlBlueBalance are Q10 white balance gains,
	// 1024 meaning 1.0.
	CtrlRedBalance
	CtrlBlueBalance
	// CtrlGammaLevel is the Q10 gamma exponent, 1024 meaning 1.0.
	CtrlGammaLevel
	// CtrlColorMatrix is a row-major 3x3 Q10 color correction matrix.
	CtrlColorMatrix
)

// Image is a frame descriptor and the builder for its processing chain.
// Configuration errors stick to the image: later calls become no-ops and the
// first error comes back out of ToBuffer or ToWriter.
type Image struct {
	id     string
	buffer []byte
	fmt    Format

	first operation
	last  operation

	ctrls map[ControlID][]int32
	alloc Allocator
	err   error
	done  bool
}

// Option adjusts image construction.
type Option func(img *Image)

// WithAllocator makes the pipeline draw ring storage from alloc instead of
// the heap.
func WithAllocator(alloc Allocator) Option {
	return func(img *Image) { img.alloc = alloc }
}

// NewImage wraps a caller-owned buffer holding one frame of the given format
// and dimensions. The buffer is read in place, never copied.
func NewImage(buf []byte, width, height uint16, code FourCC, opts ...Option) *Image {
	img := &Image{
		id:     uuid.NewString(),
		buffer: buf,
		fmt:    Format{Code: code, Width: width, Height: height},
		ctrls:  map[ControlID][]int32{},
		alloc:  heapAllocator{},
	}

	for _, o := range opts {
		o(img)
	}

	return img
}

// Format returns the pixel format the chain currently ends with.
func (img *Image) Format() Format { return img.fmt }

// Err returns the first configuration error recorded on the image, if any.
func (img *Image) Err() error { return img.err }

// Close drops the chain and clears the error state so the descriptor can be
// reused for another frame.
func (img *Image) Close() {
	if img.first != nil {
		chainFree(img.first, img.alloc)
	}

	img.first, img.last = nil, nil
	img.ctrls = map[ControlID][]int32{}
	img.err = nil
	img.done = false
}

// fail records the first error and makes the image inert.
func (img *Image) fail(err error) *Image {
	if img.err == nil {
		img.err = err
		log.WithError(err).WithField("image", img.id).Error("pipeline configuration failed")
	}

	return img
}

// append links op to the end of the chain, checking that it accepts the
// format the chain currently produces and sizing its ring for windowSize
// lines. No memory is allocated until the chain runs.
func (img *Image) append(op operation, inCode FourCC, out Format) *Image {
	if img.err != nil {
		return img
	}

	b := op.base()

	if img.fmt.Code != inCode {
		return img.fail(fmt.Errorf("%s: chain produces %s, need %s: %w",
			b.name, img.fmt.Code, inCode, ErrFormatMismatch))
	}

	b.fmt = img.fmt
	if b.windowSize == 0 {
		b.windowSize = 1
	}

	pitch := img.fmt.Pitch()
	b.threshold = b.windowSize * pitch

	if p := out.Pitch(); p > pitch {
		pitch = p
	}

	b.bufSize = b.windowSize * pitch

	if img.first == nil {
		img.first = op
	} else {
		img.last.base().next = op
	}

	img.last = op
	img.fmt = out

	log.WithFields(map[string]interface{}{
		"image": img.id, "op": b.name, "in": b.fmt.String(), "out": out.String(),
	}).Debug("operation appended")

	return img
}

// registerControl exposes node-owned storage under a control identifier.
func (img *Image) registerControl(id ControlID, storage []int32) {
	img.ctrls[id] = storage
}

// SetControl writes a control value through to the operation that registered
// it. The value count must match the control's width, 9 for the color matrix
// and 1 for everything else.
func (img *Image) SetControl(id ControlID, v ...int32) *Image {
	if img.err != nil {
		return img
	}

	s, ok := img.ctrls[id]
	if !ok {
		return img.fail(fmt.Errorf("control %d: %w", id, ErrUnknownControl))
	}

	if len(v) != len(s) {
		return img.fail(fmt.Errorf("control %d: got %d values, want %d: %w",
			id, len(v), len(s), ErrUnsupported))
	}

	copy(s, v)

	return img
}

// paletteUser is implemented by operations that consume a palette.
type paletteUser interface {
	setPalette(p *Palette) bool
}

// SetPalette hands a caller-owned palette to every palette operation in the
// chain whose indexed format matches the palette's. The palette is shared,
// not copied, so it can be retuned between frames.
func (img *Image) SetPalette(p *Palette) *Image {
	if img.err != nil {
		return img
	}

	if p == nil || paletteDepth(p.Code) == 0 || len(p.Colors) != 3<<paletteDepth(p.Code) {
		return img.fail(fmt.Errorf("set palette: %w", ErrNoPalette))
	}

	matched := false

	for op := img.first; op != nil; op = op.base().next {
		if pu, ok := op.(paletteUser); ok && pu.setPalette(p) {
			matched = true
		}
	}

	if !matched {
		return img.fail(fmt.Errorf("no operation takes palette %s: %w", p.Code, ErrNoPalette))
	}

	return img
}

// process binds the image buffer as the head ring, allocates the remaining
// rings and pumps the chain to completion. Ring storage is released before
// returning, whatever the outcome.
func (img *Image) process() error {
	if img.err != nil {
		return img.err
	}

	if img.first == nil {
		img.fail(ErrEmptyPipeline)

		return img.err
	}

	if img.buffer == nil {
		img.fail(ErrNoInput)

		return img.err
	}

	// The operations' line offsets and rings are spent after one frame, the
	// chain cannot run twice.
	if img.done {
		img.fail(ErrCanceled)

		return img.err
	}

	img.done = true

	head := img.first.base()

	frame := head.fmt.FrameSize()
	if len(img.buffer) < frame {
		img.fail(fmt.Errorf("input %d bytes, frame needs %d: %w",
			len(img.buffer), frame, ErrBufferTooSmall))

		return img.err
	}

	head.ring.init(img.buffer[:frame])
	head.ring.write(frame)
	head.external = true

	if err := chainAlloc(img.first, img.alloc); err != nil {
		img.fail(fmt.Errorf("ring allocation: %w", err))
		chainFree(img.first, img.alloc)

		return img.err
	}

	log.WithFields(map[string]interface{}{
		"image": img.id, "format": head.fmt.String(),
	}).Debug("processing frame")

	err := runLoop(img.first)

	if debugEnabled() {
		for op := img.first; op != nil; op = op.base().next {
			b := op.base()
			log.WithFields(map[string]interface{}{
				"image": img.id, "op": b.name, "us": b.totalUS,
			}).Debug("operation timing")
		}
	}

	chainFree(img.first, img.alloc)

	if err != nil {
		img.fail(err)
	}

	return img.err
}

// ToBuffer terminates the chain into the caller-owned dst buffer, runs the
// whole pipeline and returns the number of bytes produced. For
// variable-length formats such as QOI the count is the compressed size; for
// everything else it is the output frame size.
func (img *Image) ToBuffer(dst []byte) (int, error) {
	if img.err != nil {
		return 0, img.err
	}

	out := img.fmt

	if s := out.FrameSize(); s > 0 && len(dst) < s {
		img.fail(fmt.Errorf("output %d bytes, frame needs %d: %w",
			len(dst), s, ErrBufferTooSmall))

		return 0, img.err
	}

	if img.first == nil {
		img.fail(ErrEmptyPipeline)

		return 0, img.err
	}

	sink := &sinkOp{}
	sink.name = "to-buffer"
	sink.fmt = out
	sink.ring.init(dst)
	sink.external = true

	img.last.base().next = sink
	img.last = sink

	if err := img.process(); err != nil {
		return 0, err
	}

	// The descriptor keeps the source frame: Stats and OptimizePalette
	// sample it with the head operation's input format, which must stay
	// consistent with the buffer they read.
	return sink.ring.used(), nil
}

// sinkOp terminates a chain into caller-owned storage. It never consumes,
// upstream nodes write straight into its ring.
type sinkOp struct {
	baseOp
}

func (o *sinkOp) run() error { return errAgain }
