package pixpipe

import (
	"fmt"
	"image"
	"image/color"

	"github.com/nfnt/resize"
)

// ToImage converts a raw RGB24 or GREY frame into a standard library image.
// It copies the frame, the returned image does not alias buf.
func ToImage(buf []byte, f Format) (image.Image, error) {
	w, h := int(f.Width), int(f.Height)

	if len(buf) < f.FrameSize() {
		return nil, fmt.Errorf("frame %s needs %d bytes, got %d: %w", f, f.FrameSize(), len(buf), ErrBufferTooSmall)
	}

	switch f.Code {
	case FormatRGB24:
		out := image.NewRGBA(image.Rect(0, 0, w, h))

		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				i := (y*w + x) * 3
				out.SetRGBA(x, y, color.RGBA{R: buf[i], G: buf[i+1], B: buf[i+2], A: 0xff})
			}
		}

		return out, nil
	case FormatGrey:
		out := image.NewGray(image.Rect(0, 0, w, h))

		for y := 0; y < h; y++ {
			copy(out.Pix[y*out.Stride:], buf[y*w:(y+1)*w])
		}

		return out, nil
	}

	return nil, fmt.Errorf("to image from %s: %w", f.Code, ErrUnsupported)
}

// FromImage flattens a standard library image into an RGB24 frame, ready to
// feed NewImage.
func FromImage(src image.Image) ([]byte, Format) {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	buf := make([]byte, w*h*3)

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, bl, _ := src.At(b.Min.X+x, b.Min.Y+y).RGBA()
			i := (y*w + x) * 3
			buf[i] = byte(r >> 8)
			buf[i+1] = byte(g >> 8)
			buf[i+2] = byte(bl >> 8)
		}
	}

	return buf, Format{Code: FormatRGB24, Width: uint16(w), Height: uint16(h)}
}

// ResizeFrameOptions controls the whole-frame interpolated resize.
type ResizeFrameOptions struct {
	// Interpolation is any filter supported by nfnt/resize, Lanczos3 by
	// default.
	Interpolation resize.InterpolationFunction
}

// ResizeFrame resizes an RGB24 or GREY frame with proper interpolation. It
// buffers the whole frame, unlike the streaming Subsample operation, and is
// meant for offline use where quality matters more than memory.
func ResizeFrame(buf []byte, f Format, width, height uint16, opts ...func(o *ResizeFrameOptions)) ([]byte, Format, error) {
	opt := ResizeFrameOptions{Interpolation: resize.Lanczos3}

	for _, applyOpt := range opts {
		applyOpt(&opt)
	}

	src, err := ToImage(buf, f)
	if err != nil {
		return nil, Format{}, err
	}

	dst := resize.Resize(uint(width), uint(height), src, opt.Interpolation)

	out, outFmt := FromImage(dst)

	if f.Code == FormatGrey {
		// The source was grey so all channels are equal, no luma math needed.
		grey := make([]byte, int(width)*int(height))
		for i := range grey {
			grey[i] = out[i*3]
		}

		return grey, Format{Code: FormatGrey, Width: width, Height: height}, nil
	}

	return out, outFmt, nil
}
