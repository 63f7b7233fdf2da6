package app

import "ble-autolock.klederson.com/internal/proximity"

// ReadingRing is a circular buffer of recent readings for the sparkline.
type ReadingRing struct {
	buf   []proximity.Reading
	pos   int
	count int
}

// NewReadingRing creates a ring with the given capacity.
func NewReadingRing(capacity int) *ReadingRing {
	return &ReadingRing{buf: make([]proximity.Reading, capacity)}
}

// Push adds a reading, overwriting the oldest when full.
func (r *ReadingRing) Push(val proximity.Reading) {
	r.buf[r.pos] = val
	r.pos = (r.pos + 1) % len(r.buf)
	if r.count < len(r.buf) {
		r.count++
	}
}

// Values returns all stored readings in chronological order.
func (r *ReadingRing) Values() []proximity.Reading {
	if r.count == 0 {
		return nil
	}
	result := make([]proximity.Reading, r.count)
	if r.count < len(r.buf) {
		copy(result, r.buf[:r.count])
	} else {
		n := copy(result, r.buf[r.pos:])
		copy(result[n:], r.buf[:r.pos])
	}
	return result
}

// Len returns the number of stored readings.
func (r *ReadingRing) Len() int {
	return r.count
}
