package capture

import "time"

// Frame is one captured image as a row-major, channel-interleaved byte grid.
// A Frame belongs to the source for the duration of one tick; consumers must
// copy anything they want to keep.
type Frame struct {
	Pix       []byte
	Width     int
	Height    int
	Channels  int
	Timestamp time.Time
}

// NewFrame allocates a zeroed frame.
func NewFrame(width, height, channels int) *Frame {
	return &Frame{
		Pix:      make([]byte, width*height*channels),
		Width:    width,
		Height:   height,
		Channels: channels,
	}
}

// Valid reports whether the pixel buffer matches the declared geometry.
func (f *Frame) Valid() bool {
	if f == nil || f.Width <= 0 || f.Height <= 0 || f.Channels <= 0 {
		return false
	}
	return len(f.Pix) == f.Width*f.Height*f.Channels
}

// SameShape reports whether f and o have identical geometry.
func (f *Frame) SameShape(o *Frame) bool {
	return f != nil && o != nil &&
		f.Width == o.Width && f.Height == o.Height && f.Channels == o.Channels
}

// Clone returns a deep copy of the frame.
func (f *Frame) Clone() *Frame {
	if f == nil {
		return nil
	}
	c := *f
	c.Pix = make([]byte, len(f.Pix))
	copy(c.Pix, f.Pix)
	return &c
}

// copyInto copies f into dst, reusing dst's buffer when it is large enough.
func (f *Frame) copyInto(dst *Frame) *Frame {
	if dst == nil || cap(dst.Pix) < len(f.Pix) {
		return f.Clone()
	}
	dst.Pix = dst.Pix[:len(f.Pix)]
	copy(dst.Pix, f.Pix)
	dst.Width = f.Width
	dst.Height = f.Height
	dst.Channels = f.Channels
	dst.Timestamp = f.Timestamp
	return dst
}
