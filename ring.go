package pixpipe

// ring is a fixed-capacity circular byte buffer with three cursors. Data is
// written at head, consumed at tail, and previewed at peek without consuming.
// All accessors hand out sub-slices of the ring's own storage, so a caller
// never copies through an intermediate buffer. A request larger than the
// contiguous run up to the wrap point fails even when total space would
// suffice.
type ring struct {
	data []byte
	// head is the write position, tail the read position, peek the preview
	// position. full disambiguates head == tail.
	head, tail, peek int
	full             bool
}

func (r *ring) init(data []byte) {
	r.data = data
	r.head, r.tail, r.peek = 0, 0, 0
	r.full = false
}

func (r *ring) size() int { return len(r.data) }

// used returns the total number of bytes stored, contiguous or not.
func (r *ring) used() int {
	if len(r.data) == 0 {
		return 0
	}
	if r.full {
		return len(r.data)
	}
	return (r.head - r.tail + len(r.data)) % len(r.data)
}

func (r *ring) free() int { return len(r.data) - r.used() }

// headroom returns the contiguous writable run at head.
func (r *ring) headroom() int {
	if r.full {
		return 0
	}
	if r.head >= r.tail {
		return len(r.data) - r.head
	}
	return r.tail - r.head
}

// tailroom returns the contiguous readable run at tail.
func (r *ring) tailroom() int {
	if r.full {
		return len(r.data) - r.tail
	}
	if r.head >= r.tail {
		return r.head - r.tail
	}
	return len(r.data) - r.tail
}

// peekroom returns the contiguous readable run at peek.
func (r *ring) peekroom() int {
	// Bytes between peek and head, ignoring the wrap limit.
	ahead := r.used() - (r.peek-r.tail+len(r.data))%len(r.data)
	if room := len(r.data) - r.peek; ahead > room {
		ahead = room
	}
	return ahead
}

// write reserves n contiguous bytes at head and returns them for the caller
// to fill, or nil when the contiguous run is too short.
func (r *ring) write(n int) []byte {
	if n == 0 || n > r.headroom() {
		return nil
	}
	out := r.data[r.head : r.head+n]
	r.head = (r.head + n) % len(r.data)
	r.full = r.head == r.tail
	// Stored bytes changed, any preview position is stale.
	r.peek = r.tail
	return out
}

// read consumes n contiguous bytes at tail and returns them, or nil when the
// contiguous run is too short. Draining the ring empty resets all cursors to
// zero so the next writer gets the full capacity in one run.
func (r *ring) read(n int) []byte {
	if n == 0 || n > r.tailroom() {
		return nil
	}
	out := r.data[r.tail : r.tail+n]
	r.tail = (r.tail + n) % len(r.data)
	r.full = false
	r.peek = r.tail
	if r.used() == 0 {
		r.head, r.tail, r.peek = 0, 0, 0
	}
	return out
}

// peekAhead returns the next n contiguous bytes at the peek cursor and
// advances it, without consuming anything. resetPeek rewinds the cursor back
// to tail.
func (r *ring) peekAhead(n int) []byte {
	if n == 0 || n > r.peekroom() {
		return nil
	}
	out := r.data[r.peek : r.peek+n]
	r.peek = (r.peek + n) % len(r.data)
	return out
}

func (r *ring) resetPeek() { r.peek = r.tail }
