package utils

import (
	"live-dashboard/src/models"
)

// -----------------------------------------------------------------------------
// RingBuffer is a fixed-size circular buffer of data points in arrival order.
// True ring buffer - no resizing allowed! When full, Append overwrites the
// oldest arrival regardless of its timestamp.
// -----------------------------------------------------------------------------

type RingBuffer struct {
	data     []models.MDataPoint
	capacity int
	index    int // Next write position
	size     int // Current number of elements
}

// -----------------------------------------------------------------------------

// NewRingBuffer creates a new buffer with fixed capacity
func NewRingBuffer(capacity int) *RingBuffer {
	if capacity <= 0 {
		capacity = DefaultCacheCapacity
	}

	return &RingBuffer{
		data:     make([]models.MDataPoint, capacity),
		capacity: capacity,
	}
}

// -----------------------------------------------------------------------------

// Append adds a point as the newest arrival. It reports whether the oldest
// arrival was overwritten.
func (rb *RingBuffer) Append(point models.MDataPoint) bool {
	evicted := rb.size == rb.capacity

	rb.data[rb.index] = point
	rb.index = (rb.index + 1) % rb.capacity

	// Update size (never exceeds capacity)
	if rb.size < rb.capacity {
		rb.size++
	}
	return evicted
}

// -----------------------------------------------------------------------------

// GetNewestFirst returns every held point, newest arrival first
func (rb *RingBuffer) GetNewestFirst() []models.MDataPoint {
	result := make([]models.MDataPoint, rb.size)

	for i := 0; i < rb.size; i++ {
		idx := (rb.index - 1 - i + rb.capacity) % rb.capacity
		result[i] = rb.data[idx]
	}

	return result
}

// -----------------------------------------------------------------------------

// Size returns current number of elements
func (rb *RingBuffer) Size() int {
	return rb.size
}

// -----------------------------------------------------------------------------

// Capacity returns buffer capacity (fixed)
func (rb *RingBuffer) Capacity() int {
	return rb.capacity
}

// -----------------------------------------------------------------------------

// Clear resets the buffer and drops references to the held points
func (rb *RingBuffer) Clear() {
	for i := range rb.data {
		rb.data[i] = models.MDataPoint{}
	}
	rb.index = 0
	rb.size = 0
}
