package pixpipe

import "fmt"

// operation is one node of a processing chain. Implementations embed baseOp
// and provide run, which consumes whole lines from the node's ring and emits
// whole lines into the next node's ring.
type operation interface {
	base() *baseOp
	run() error
}

// baseOp carries the per-node state shared by all operations: the input
// format, the ring holding pending input lines, the window geometry and the
// position within the frame.
type baseOp struct {
	next operation
	name string

	// fmt is the format of the lines this node consumes. The output format
	// is the input format of the next node.
	fmt Format

	// windowSize is how many input lines run needs at once. threshold and
	// bufSize are the minimum and allocated ring capacities in bytes.
	windowSize int
	threshold  int
	bufSize    int

	// lineOffset is the frame line index of the next unconsumed input line.
	lineOffset int

	ring ring
	// external marks ring storage owned by the caller, not the allocator.
	external bool

	// srcLines and winLines are scratch for windowCycle, sized at build.
	srcLines [][]byte
	winLines [][]byte

	startUS int64
	totalUS int64
}

func (o *baseOp) base() *baseOp { return o }

func (o *baseOp) pitch() int { return o.fmt.Pitch() }

// inputLines fills dst with the next len(dst) input lines without consuming
// them. Returns errAgain when the ring holds less than the node's threshold.
func (o *baseOp) inputLines(dst [][]byte) error {
	if o.ring.used() < o.threshold {
		return errAgain
	}

	pitch := o.pitch()
	o.ring.resetPeek()

	for i := range dst {
		line := o.ring.peekAhead(pitch)
		if line == nil {
			return errAgain
		}
		dst[i] = line
	}

	return nil
}

// inputDone consumes n input lines previously observed through inputLines.
func (o *baseOp) inputDone(n int) {
	o.lineOffset += n
	o.ring.read(o.pitch() * n)
}

// outputLine reserves one line in the next node's ring for the caller to
// fill.
func (o *baseOp) outputLine() ([]byte, error) {
	nb := o.next.base()

	out := nb.ring.write(nb.pitch())
	if out == nil {
		return nil, fmt.Errorf("%s: output ring %d bytes: %w", o.name, nb.ring.size(), ErrBufferTooSmall)
	}

	return out, nil
}

// outputBytes reserves n raw bytes in the next node's ring, for
// variable-length producers.
func (o *baseOp) outputBytes(n int) ([]byte, error) {
	nb := o.next.base()

	out := nb.ring.write(n)
	if out == nil {
		return nil, fmt.Errorf("%s: output ring %d bytes, need %d: %w", o.name, nb.ring.size(), n, ErrBufferTooSmall)
	}

	return out, nil
}

// outputDone hands control to the next node so emitted lines flow down the
// chain before this node buffers more input. The node's own clock is paused
// while the rest of the chain runs.
func (o *baseOp) outputDone() error {
	now := clockNow()
	o.totalUS += now - o.startUS

	err := runOnce(o.next)

	o.startUS = clockNow()

	return err
}

// lineKernel computes one output line from a window of input lines. row is
// the frame index of the line being produced; win[windowSize/2] is centered
// on it, with out-of-frame rows replaced by the nearest edge line.
type lineKernel func(win [][]byte, row int, dst []byte)

// windowCycle runs one step of a windowed operation with odd window size:
// peek windowSize lines, emit the top edge rows on the first cycle, the
// window's center row every cycle, and the bottom edge rows plus a full drain
// on the last cycle.
func (o *baseOp) windowCycle(k lineKernel) error {
	w := o.windowSize
	half := (w - 1) / 2

	if o.srcLines == nil {
		o.srcLines = make([][]byte, w)
		o.winLines = make([][]byte, w)
	}

	if err := o.inputLines(o.srcLines); err != nil {
		return err
	}

	emit := func(row int, idx func(j int) int) error {
		for j := 0; j < w; j++ {
			o.winLines[j] = o.srcLines[idx(j)]
		}

		dst, err := o.outputLine()
		if err != nil {
			return err
		}

		k(o.winLines, row, dst)

		return o.outputDone()
	}

	clamp := func(j int) int {
		if j < 0 {
			return 0
		}
		if j > w-1 {
			return w - 1
		}
		return j
	}

	if o.lineOffset == 0 {
		for i := 0; i < half; i++ {
			if err := emit(i, func(j int) int { return clamp(j - (half - i)) }); err != nil {
				return err
			}
		}
	}

	if err := emit(o.lineOffset+half, func(j int) int { return j }); err != nil {
		return err
	}

	if o.lineOffset+w == int(o.fmt.Height) {
		for i := 0; i < half; i++ {
			if err := emit(o.lineOffset+half+1+i, func(j int) int { return clamp(j + i + 1) }); err != nil {
				return err
			}
		}

		o.inputDone(w)
	} else {
		o.inputDone(1)
	}

	return nil
}
