package detector

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"time"
)

// RecordedFrame is one line of a landmark recording.
type RecordedFrame struct {
	// At is the offset from the start of the recording.
	At    time.Duration
	Hands []HandLandmarks
	// Rejected counts hands dropped for not having 21 points.
	Rejected int
}

type recordLine struct {
	T     int64      `json:"t"`
	Hands []jsonHand `json:"hands"`
}

// ReadRecording parses a JSON-lines landmark recording. Each line is
// {"t": <ms>, "hands": [{"points": [...], "handedness": ..., "score": ...}]}.
// Lines without "t" are spaced by step. Blank lines are skipped.
func ReadRecording(r io.Reader, step time.Duration) ([]RecordedFrame, error) {
	var out []RecordedFrame
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 4*1024*1024)

	lineNo := 0
	var last time.Duration
	for sc.Scan() {
		lineNo++
		raw := sc.Bytes()
		if len(raw) == 0 {
			continue
		}

		var ln recordLine
		ln.T = -1
		if err := json.Unmarshal(raw, &ln); err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}

		rf := RecordedFrame{At: time.Duration(ln.T) * time.Millisecond}
		if ln.T < 0 {
			rf.At = last
			if len(out) > 0 {
				rf.At += step
			}
		}
		last = rf.At

		for _, h := range ln.Hands {
			lm, err := FromPoints(h.Points, h.Handedness, h.Score)
			if err != nil {
				rf.Rejected++
				continue
			}
			rf.Hands = append(rf.Hands, lm)
		}
		out = append(out, rf)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read recording: %w", err)
	}
	return out, nil
}
