package motion

import (
	"time"

	"github.com/rotblauer/catwalk/sensor"
)

// AccelReading is one buffered accelerometer tick.
type AccelReading struct {
	Time      time.Time
	Magnitude float64
	X, Y, Z   float64
}

func NewAccelReading(s sensor.AccelSample, t time.Time) AccelReading {
	return AccelReading{
		Time:      t,
		Magnitude: s.Magnitude(),
		X:         s.X,
		Y:         s.Y,
		Z:         s.Z,
	}
}

// AccelBuffer is a fixed capacity FIFO of the most recent readings.
// It is not safe for concurrent use; the owning Session serializes access.
type AccelBuffer struct {
	data []AccelReading
	head int
	size int
}

func NewAccelBuffer(capacity int) *AccelBuffer {
	if capacity < 1 {
		capacity = 1
	}
	return &AccelBuffer{
		data: make([]AccelReading, capacity),
	}
}

// Push appends r, evicting the oldest reading when full.
func (b *AccelBuffer) Push(r AccelReading) {
	b.data[b.head] = r
	b.head = (b.head + 1) % len(b.data)
	if b.size < len(b.data) {
		b.size++
	}
}

func (b *AccelBuffer) Len() int {
	return b.size
}

func (b *AccelBuffer) Cap() int {
	return len(b.data)
}

// Readings returns the buffered readings, oldest first.
func (b *AccelBuffer) Readings() []AccelReading {
	out := make([]AccelReading, b.size)
	for i := 0; i < b.size; i++ {
		idx := (b.head - b.size + i + len(b.data)) % len(b.data)
		out[i] = b.data[idx]
	}
	return out
}

func (b *AccelBuffer) Reset() {
	b.head = 0
	b.size = 0
}

func magnitudes(readings []AccelReading) []float64 {
	out := make([]float64, len(readings))
	for i, r := range readings {
		out[i] = r.Magnitude
	}
	return out
}
