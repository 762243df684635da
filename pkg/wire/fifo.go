package wire

// Fifo is a fixed-capacity circular byte queue used to assemble wire
// frames incrementally. All operations are O(1) and non-blocking. It
// carries no internal locking: a Fifo belongs to exactly one polling
// context (single producer, single consumer).
type Fifo struct {
	buf  []byte
	head int
	tail int
	used int
}

// NewFifo creates a Fifo with the given capacity. Capacity should be
// at least 3x the largest expected frame so a prelude byte plus a full
// header can always be inspected without overrun.
func NewFifo(capacity int) *Fifo {
	if capacity < HeaderLen+1 {
		capacity = HeaderLen + 1
	}
	return &Fifo{buf: make([]byte, capacity)}
}

// Capacity returns the fixed capacity.
func (f *Fifo) Capacity() int { return len(f.buf) }

// Used returns the number of bytes currently queued.
func (f *Fifo) Used() int { return f.used }

// Full reports whether no more bytes can be enqueued.
func (f *Fifo) Full() bool { return f.used == len(f.buf) }

// Empty reports whether no bytes are queued.
func (f *Fifo) Empty() bool { return f.head == f.tail && f.used == 0 }

// Clear resets the queue to empty.
func (f *Fifo) Clear() {
	f.head = 0
	f.tail = 0
	f.used = 0
}

// Enqueue appends one byte. It returns false without writing anything
// when the queue is full.
func (f *Fifo) Enqueue(b byte) bool {
	if f.Full() {
		return false
	}
	f.buf[f.head] = b
	f.head = (f.head + 1) % len(f.buf)
	f.used++
	return true
}

// Dequeue removes and returns the oldest byte. The second return is
// false when the queue is empty; the queue is not mutated in that case.
func (f *Fifo) Dequeue() (byte, bool) {
	if f.Empty() {
		return 0, false
	}
	b := f.buf[f.tail]
	f.buf[f.tail] = 0
	f.tail = (f.tail + 1) % len(f.buf)
	f.used--
	return b, true
}

// Peek copies out up to max-1 of the oldest bytes without consuming
// them. One slot is always reserved as a sentinel terminator, matching
// the convention of the callers' fixed inspection windows.
func (f *Fifo) Peek(max int) []byte {
	if f.Empty() || max <= 1 {
		return nil
	}
	n := max - 1
	if n > f.used {
		n = f.used
	}
	out := make([]byte, n)
	i := f.tail
	for k := 0; k < n; k++ {
		out[k] = f.buf[i]
		i = (i + 1) % len(f.buf)
	}
	return out
}
