package pixpipe

import (
	"errors"
	"time"
)

// Clock returns a monotonic timestamp in microseconds. It only feeds the
// per-operation timing diagnostics, never control flow.
type Clock func() int64

var clockNow Clock = func() Clock {
	base := time.Now()

	return func() int64 { return time.Since(base).Microseconds() }
}()

// SetClock replaces the timing source, for tests and platforms with their
// own cycle counters.
func SetClock(c Clock) {
	if c != nil {
		clockNow = c
	}
}

// Allocator provides ring buffer storage. The default allocates from the
// heap; constrained targets can plug a static pool instead.
type Allocator interface {
	Alloc(size int) ([]byte, error)
	Free(buf []byte)
}

type heapAllocator struct{}

func (heapAllocator) Alloc(size int) ([]byte, error) { return make([]byte, size), nil }
func (heapAllocator) Free([]byte)                    {}

// runOnce gives one operation a chance to make progress. An operation that
// is merely short on input is not an error, the loop simply stops feeding
// it.
func runOnce(op operation) error {
	if op == nil {
		return nil
	}

	b := op.base()
	b.startUS = clockNow()

	err := op.run()

	b.totalUS += clockNow() - b.startUS

	if errors.Is(err, errAgain) {
		return nil
	}

	return err
}

// runLoop pumps the head operation until the amount of data in its ring
// stops changing, meaning the chain converged for the input seen so far.
func runLoop(head operation) error {
	b := head.base()

	for {
		before := b.ring.used()

		if err := runOnce(head); err != nil {
			log.WithError(err).WithField("op", b.name).Error("pipeline run failed")

			return err
		}

		if b.ring.used() == before {
			return nil
		}
	}
}

// chainAlloc gives every ring without storage a buffer of its configured
// size. Rings bound to caller memory keep it.
func chainAlloc(head operation, alloc Allocator) error {
	for op := head; op != nil; op = op.base().next {
		b := op.base()
		if b.ring.data != nil || b.bufSize == 0 {
			continue
		}

		buf, err := alloc.Alloc(b.bufSize)
		if err != nil {
			return err
		}

		b.ring.init(buf)
	}

	return nil
}

// chainFree returns allocator-owned ring storage and detaches it. Rings
// bound to caller memory are left alone so results stay readable.
func chainFree(head operation, alloc Allocator) {
	for op := head; op != nil; op = op.base().next {
		b := op.base()
		if b.ring.data != nil && !b.external {
			alloc.Free(b.ring.data)
			b.ring.data = nil
		}
	}
}
