package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/pixpipe/pixpipe"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	switch os.Args[1] {
	case "convert":
		if err := runConvert(os.Args[2:]); err != nil {
			fail(err)
		}
	case "thumbnail":
		if err := runThumbnail(os.Args[2:]); err != nil {
			fail(err)
		}
	case "qoi":
		if err := runQOI(os.Args[2:]); err != nil {
			fail(err)
		}
	case "stats":
		if err := runStats(os.Args[2:]); err != nil {
			fail(err)
		}
	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "Usage: pixtool <command> [args]")
	fmt.Fprintln(os.Stderr, "Commands:")
	fmt.Fprintln(os.Stderr, "  convert   -in raw.bin -in-fmt RGGB -w 640 -h 480 -out out.bin -out-fmt RGB565 [-v]")
	fmt.Fprintln(os.Stderr, "  thumbnail -in raw.bin -in-fmt RGB3 -w 640 -h 480 -out out.bin -tw 160 -th 120 [-smooth]")
	fmt.Fprintln(os.Stderr, "  qoi       -in raw.bin -in-fmt RGB3 -w 640 -h 480 -out out.qoi")
	fmt.Fprintln(os.Stderr, "  stats     -in raw.bin -in-fmt RGB3 -w 640 -h 480 [-samples 1000]")
	fmt.Fprintln(os.Stderr, "Formats are FourCC codes: RGB3 RGBP RGBR RGB1 GREY YUYV YUV3 RGGB BGGR GBRG GRBG")
}

func fail(err error) {
	fmt.Fprintln(os.Stderr, "error:", err)
	os.Exit(1)
}

func parseFourCC(s string) (pixpipe.FourCC, error) {
	if len(s) != 4 {
		return 0, fmt.Errorf("format %q: want a four character code", s)
	}

	return pixpipe.FourCC(s[0]) | pixpipe.FourCC(s[1])<<8 |
		pixpipe.FourCC(s[2])<<16 | pixpipe.FourCC(s[3])<<24, nil
}

// prepare converts whatever raw input format into RGB24, debayering when
// needed.
func prepare(img *pixpipe.Image, code pixpipe.FourCC) *pixpipe.Image {
	switch code {
	case pixpipe.FormatSRGGB8, pixpipe.FormatSBGGR8, pixpipe.FormatSGBRG8, pixpipe.FormatSGRBG8:
		return img.Debayer(3)
	case pixpipe.FormatRGB24:
		return img
	default:
		return img.Convert(pixpipe.FormatRGB24)
	}
}

func runConvert(args []string) error {
	fs := flag.NewFlagSet("convert", flag.ContinueOnError)
	inPath := fs.String("in", "", "input raw frame")
	inFmt := fs.String("in-fmt", "", "input format FourCC")
	width := fs.Int("w", 0, "frame width")
	height := fs.Int("h", 0, "frame height")
	outPath := fs.String("out", "", "output raw frame")
	outFmt := fs.String("out-fmt", "", "output format FourCC")
	verbose := fs.Bool("v", false, "debug logging")
	fs.SetOutput(os.Stderr)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *inPath == "" || *outPath == "" || *inFmt == "" || *outFmt == "" || *width <= 0 || *height <= 0 {
		return errors.New("missing required arguments")
	}
	if *verbose {
		l := logrus.New()
		l.SetLevel(logrus.DebugLevel)
		pixpipe.SetLogger(l)
	}

	src, err := parseFourCC(strings.ToUpper(*inFmt))
	if err != nil {
		return err
	}
	dst, err := parseFourCC(strings.ToUpper(*outFmt))
	if err != nil {
		return err
	}

	buf, err := os.ReadFile(filepath.Clean(*inPath))
	if err != nil {
		return err
	}

	img := pixpipe.NewImage(buf, uint16(*width), uint16(*height), src)
	img = prepare(img, src)
	if dst != pixpipe.FormatRGB24 {
		img = img.Convert(dst)
	}

	out := make([]byte, pixpipe.Format{Code: dst, Width: uint16(*width), Height: uint16(*height)}.FrameSize())
	n, err := img.ToBuffer(out)
	if err != nil {
		return err
	}

	return os.WriteFile(*outPath, out[:n], 0o600)
}

func runThumbnail(args []string) error {
	fs := flag.NewFlagSet("thumbnail", flag.ContinueOnError)
	inPath := fs.String("in", "", "input raw frame")
	inFmt := fs.String("in-fmt", "", "input format FourCC")
	width := fs.Int("w", 0, "frame width")
	height := fs.Int("h", 0, "frame height")
	outPath := fs.String("out", "", "output RGB24 frame")
	tw := fs.Int("tw", 0, "thumbnail width")
	th := fs.Int("th", 0, "thumbnail height")
	smooth := fs.Bool("smooth", false, "interpolated whole-frame resize instead of streaming subsample")
	fs.SetOutput(os.Stderr)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *inPath == "" || *outPath == "" || *inFmt == "" || *width <= 0 || *height <= 0 || *tw <= 0 || *th <= 0 {
		return errors.New("missing required arguments")
	}

	src, err := parseFourCC(strings.ToUpper(*inFmt))
	if err != nil {
		return err
	}

	buf, err := os.ReadFile(filepath.Clean(*inPath))
	if err != nil {
		return err
	}

	if *smooth {
		img := pixpipe.NewImage(buf, uint16(*width), uint16(*height), src)
		img = prepare(img, src)

		rgb := make([]byte, *width**height*3)
		n, err := img.ToBuffer(rgb)
		if err != nil {
			return err
		}

		out, _, err := pixpipe.ResizeFrame(rgb[:n],
			pixpipe.Format{Code: pixpipe.FormatRGB24, Width: uint16(*width), Height: uint16(*height)},
			uint16(*tw), uint16(*th))
		if err != nil {
			return err
		}

		return os.WriteFile(*outPath, out, 0o600)
	}

	img := pixpipe.NewImage(buf, uint16(*width), uint16(*height), src)
	img = prepare(img, src).Subsample(uint16(*tw), uint16(*th))

	out := make([]byte, *tw**th*3)
	n, err := img.ToBuffer(out)
	if err != nil {
		return err
	}

	return os.WriteFile(*outPath, out[:n], 0o600)
}

func runQOI(args []string) error {
	fs := flag.NewFlagSet("qoi", flag.ContinueOnError)
	inPath := fs.String("in", "", "input raw frame")
	inFmt := fs.String("in-fmt", "", "input format FourCC")
	width := fs.Int("w", 0, "frame width")
	height := fs.Int("h", 0, "frame height")
	outPath := fs.String("out", "", "output QOI file")
	fs.SetOutput(os.Stderr)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *inPath == "" || *outPath == "" || *inFmt == "" || *width <= 0 || *height <= 0 {
		return errors.New("missing required arguments")
	}

	src, err := parseFourCC(strings.ToUpper(*inFmt))
	if err != nil {
		return err
	}

	buf, err := os.ReadFile(filepath.Clean(*inPath))
	if err != nil {
		return err
	}

	out, err := os.Create(filepath.Clean(*outPath))
	if err != nil {
		return err
	}
	defer out.Close()

	img := pixpipe.NewImage(buf, uint16(*width), uint16(*height), src)
	img = prepare(img, src).QOIEncode()

	return img.ToWriter(out)
}

func runStats(args []string) error {
	fs := flag.NewFlagSet("stats", flag.ContinueOnError)
	inPath := fs.String("in", "", "input raw frame")
	inFmt := fs.String("in-fmt", "", "input format FourCC")
	width := fs.Int("w", 0, "frame width")
	height := fs.Int("h", 0, "frame height")
	samples := fs.Int("samples", 1000, "number of random samples")
	fs.SetOutput(os.Stderr)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *inPath == "" || *inFmt == "" || *width <= 0 || *height <= 0 {
		return errors.New("missing required arguments")
	}

	src, err := parseFourCC(strings.ToUpper(*inFmt))
	if err != nil {
		return err
	}

	buf, err := os.ReadFile(filepath.Clean(*inPath))
	if err != nil {
		return err
	}

	img := pixpipe.NewImage(buf, uint16(*width), uint16(*height), src)

	st, err := img.Stats(*samples)
	if err != nil {
		return err
	}

	fmt.Printf("rgb average: #%02x%02x%02x\n", st.RGBAverage[0], st.RGBAverage[1], st.RGBAverage[2])
	fmt.Printf("y mean: %d\n", st.YMean())

	return nil
}
