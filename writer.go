package pixpipe

import (
	"fmt"
	"io"
)

// writerOp drains whatever the upstream operations produced into an
// io.Writer. It is the one operation allowed to block, everything upstream
// stays pure computation.
type writerOp struct {
	baseOp

	w io.Writer
}

func (o *writerOp) run() error {
	n := o.ring.tailroom()
	if n == 0 {
		return errAgain
	}

	buf := o.ring.read(n)

	if _, err := o.w.Write(buf); err != nil {
		return err
	}

	return nil
}

// ToWriter terminates the chain into w, runs the whole pipeline and streams
// the output as it is produced. Write errors abort processing and come back
// unchanged.
func (img *Image) ToWriter(w io.Writer) error {
	if img.err != nil {
		return img.err
	}

	if img.first == nil {
		img.fail(ErrEmptyPipeline)

		return img.err
	}

	if w == nil {
		img.fail(fmt.Errorf("to writer: %w", ErrUnsupported))

		return img.err
	}

	op := &writerOp{w: w}
	op.name = "to-writer"

	img.append(op, img.fmt.Code, img.fmt)

	// Variable-length formats have no pitch to size the ring from, use the
	// worst-case compressed line instead.
	if op.bufSize == 0 {
		op.bufSize = int(img.fmt.Width)*4 + 32
		op.threshold = op.bufSize
	}

	return img.process()
}
