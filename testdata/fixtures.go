// Package testdata provides synthetic frames and recorded landmark streams
// for tests.
package testdata

import (
	"embed"
	"fmt"

	"github.com/ayusman/touchless/internal/capture"
)

//go:embed recordings/*
var recordingsFS embed.FS

// LoadRecording returns an embedded landmark recording by file name.
func LoadRecording(name string) ([]byte, error) {
	data, err := recordingsFS.ReadFile("recordings/" + name)
	if err != nil {
		return nil, fmt.Errorf("load recording %s: %w", name, err)
	}
	return data, nil
}

// BlankFrame returns a black 3-channel frame.
func BlankFrame(w, h int) *capture.Frame {
	return capture.NewFrame(w, h, 3)
}

// BlockFrame returns a black frame with a bw x bh block of value v whose
// top-left corner is at (x, y).
func BlockFrame(w, h, x, y, bw, bh int, v byte) *capture.Frame {
	f := capture.NewFrame(w, h, 3)
	for row := y; row < y+bh && row < h; row++ {
		for col := x; col < x+bw && col < w; col++ {
			off := (row*w + col) * 3
			f.Pix[off], f.Pix[off+1], f.Pix[off+2] = v, v, v
		}
	}
	return f
}

// Swipe returns frames in which a block flashes at fromX, then at toX, with
// blank frames between so each difference isolates one position.
func Swipe(w, h, fromX, toX, size int) []*capture.Frame {
	y := (h - size) / 2
	return []*capture.Frame{
		BlankFrame(w, h),
		BlockFrame(w, h, fromX, y, size, size, 200),
		BlankFrame(w, h),
		BlockFrame(w, h, toX, y, size, size, 200),
	}
}

// Static returns n identical frames.
func Static(w, h, n int) []*capture.Frame {
	frames := make([]*capture.Frame, n)
	for i := range frames {
		frames[i] = BlockFrame(w, h, w/4, h/4, w/2, h/2, 120)
	}
	return frames
}
