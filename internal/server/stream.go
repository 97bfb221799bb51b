package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/ayusman/touchless/internal/capture"
)

const defaultStreamInterval = 66 * time.Millisecond // ~15 FPS

// FrameSource exposes the most recent captured frame.
type FrameSource interface {
	LatestFrame() *capture.Frame
}

// StreamHandler serves the pipeline's latest frames as MJPEG.
type StreamHandler struct {
	source   FrameSource
	encode   capture.Encoder
	interval time.Duration
}

// NewStreamHandler creates a StreamHandler that compresses frames from
// source with encode.
func NewStreamHandler(source FrameSource, encode capture.Encoder) *StreamHandler {
	return &StreamHandler{
		source:   source,
		encode:   encode,
		interval: defaultStreamInterval,
	}
}

// ServeHTTP streams MJPEG frames until the client disconnects. A frame is
// written only when the source has a new one.
func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	var last *capture.Frame
	for {
		if frame := h.source.LatestFrame(); frame != nil && frame != last {
			last = frame
			if buf, err := h.encode(frame); err == nil {
				if err := writePart(w, buf); err != nil {
					return
				}
			}
		}

		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
		}
	}
}

func writePart(w http.ResponseWriter, jpeg []byte) error {
	if _, err := fmt.Fprintf(w, "--frame\r\nContent-Type: image/jpeg\r\nContent-Length: %d\r\n\r\n", len(jpeg)); err != nil {
		return err
	}
	if _, err := w.Write(jpeg); err != nil {
		return err
	}
	if _, err := fmt.Fprint(w, "\r\n"); err != nil {
		return err
	}
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
	return nil
}
