package capture

import (
	"math"
	"sync"

	"github.com/golang/geo/r2"
)

// HistorySize is the number of recent intensity samples kept by a MotionExtractor.
const HistorySize = 30

// MotionConfig controls frame differencing.
type MotionConfig struct {
	// Threshold is the averaged per-channel delta above which a sampled
	// pixel counts as a motion pixel.
	Threshold float64
	// MinPixels is the motion pixel count that must be exceeded before a
	// centroid is produced.
	MinPixels int
	// Stride samples every Nth pixel in row-major order.
	Stride int
	// Smoothing is the EMA weight given to the previous motion level.
	Smoothing float64
}

// MotionSample is the per-tick result of differencing two frames.
type MotionSample struct {
	// Intensity is the mean delta over motion pixels, capped at 100.
	Intensity        float64
	MotionPixelCount int
	// Centroid is the delta-weighted mean motion pixel position in pixel
	// coordinates. Only meaningful when HasCentroid is set.
	Centroid    r2.Point
	HasCentroid bool
}

// MotionExtractor differences each frame against the previous one it saw.
// It owns a private copy of the previous frame so callers may reuse buffers.
type MotionExtractor struct {
	cfg MotionConfig

	mu      sync.Mutex
	prev    *Frame
	level   float64
	history []float64
}

// NewMotionExtractor creates an extractor. A stride below 1 is treated as 1.
func NewMotionExtractor(cfg MotionConfig) *MotionExtractor {
	if cfg.Stride < 1 {
		cfg.Stride = 1
	}
	return &MotionExtractor{
		cfg:     cfg,
		history: make([]float64, 0, HistorySize),
	}
}

// Extract compares frame with the previous frame and then stores frame as
// the new previous. The second return value is false when there was nothing
// to compare against: the first frame, a shape change, or an invalid frame.
func (m *MotionExtractor) Extract(frame *Frame) (MotionSample, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !frame.Valid() {
		return MotionSample{}, false
	}

	if m.prev == nil || !m.prev.SameShape(frame) {
		m.prev = frame.Clone()
		return MotionSample{}, false
	}

	sample := m.diff(m.prev, frame)
	m.prev = frame.copyInto(m.prev)

	m.level = m.level*m.cfg.Smoothing + sample.Intensity*(1-m.cfg.Smoothing)
	if len(m.history) == HistorySize {
		copy(m.history, m.history[1:])
		m.history = m.history[:HistorySize-1]
	}
	m.history = append(m.history, sample.Intensity)

	return sample, true
}

func (m *MotionExtractor) diff(prev, cur *Frame) MotionSample {
	ch := cur.Channels
	used := ch
	if used > 3 {
		used = 3
	}

	var (
		count          int
		sum            float64
		sumX, sumY, wt float64
	)

	pixels := cur.Width * cur.Height
	for p := 0; p < pixels; p += m.cfg.Stride {
		off := p * ch
		var d int
		for c := 0; c < used; c++ {
			v := int(cur.Pix[off+c]) - int(prev.Pix[off+c])
			if v < 0 {
				v = -v
			}
			d += v
		}
		delta := float64(d) / float64(used)
		if delta <= m.cfg.Threshold {
			continue
		}
		count++
		sum += delta
		sumX += float64(p%cur.Width) * delta
		sumY += float64(p/cur.Width) * delta
		wt += delta
	}

	s := MotionSample{MotionPixelCount: count}
	if count > 0 {
		s.Intensity = math.Min(100, sum/float64(count))
	}
	if count > m.cfg.MinPixels && wt > 0 {
		s.Centroid = r2.Point{X: sumX / wt, Y: sumY / wt}
		s.HasCentroid = true
	}
	return s
}

// Level returns the smoothed motion level in [0,100].
func (m *MotionExtractor) Level() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.level
}

// History returns a copy of the most recent intensities, oldest first.
func (m *MotionExtractor) History() []float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]float64, len(m.history))
	copy(out, m.history)
	return out
}

// Reset forgets the previous frame and the motion level.
func (m *MotionExtractor) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prev = nil
	m.level = 0
	m.history = m.history[:0]
}
