package commands

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayusman/touchless/internal/detector"
	"github.com/ayusman/touchless/internal/events"
	"github.com/ayusman/touchless/internal/gesture"
	"github.com/ayusman/touchless/internal/logging"
)

type recordedLine struct {
	T     int64                    `json:"t"`
	Hands []detector.HandLandmarks `json:"hands"`
}

// recording renders a JSON-lines landmark stream.
func recording(t *testing.T, lines ...recordedLine) string {
	t.Helper()
	var b strings.Builder
	for _, l := range lines {
		if l.Hands == nil {
			l.Hands = []detector.HandLandmarks{}
		}
		data, err := json.Marshal(l)
		require.NoError(t, err)
		b.Write(data)
		b.WriteByte('\n')
	}
	return b.String()
}

func line(ms int64, hands ...detector.HandLandmarks) recordedLine {
	return recordedLine{T: ms, Hands: hands}
}

func sampleRecording(t *testing.T) string {
	return recording(t,
		line(0, detector.ThumbsUpLandmarks()),
		line(500, detector.FistLandmarks()), // inside the debounce window
		line(1300, detector.PeaceLandmarks()),
		line(1400),
		line(2600, detector.OpenPalmLandmarks()),
	)
}

func TestReplay_JSON(t *testing.T) {
	var out bytes.Buffer
	n, err := replay(strings.NewReader(sampleRecording(t)), &out, gesture.DefaultSettings(), 100*time.Millisecond, outputJSON, logging.Nop())
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	var got []events.Message
	for _, l := range strings.Split(strings.TrimSpace(out.String()), "\n") {
		var m events.Message
		require.NoError(t, json.Unmarshal([]byte(l), &m))
		got = append(got, m)
	}
	require.Len(t, got, 3)

	assert.Equal(t, "thumbs_up", got[0].Gesture)
	assert.Equal(t, "peace", got[1].Gesture)
	assert.Equal(t, "open_palm", got[2].Gesture)
	assert.Equal(t, got[0].Timestamp+1300, got[1].Timestamp)
	assert.Equal(t, got[0].Timestamp+2600, got[2].Timestamp)
	assert.Equal(t, gesture.SourceLandmarks, got[0].Source)
}

func TestReplay_DefaultFormat(t *testing.T) {
	var out bytes.Buffer
	_, err := replay(strings.NewReader(sampleRecording(t)), &out, gesture.DefaultSettings(), 100*time.Millisecond, outputDefault, logging.Nop())
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "00:00.000"), lines[0])
	assert.Contains(t, lines[0], "Thumbs Up")
	assert.True(t, strings.HasPrefix(lines[1], "00:01.300"), lines[1])
	assert.Contains(t, lines[2], "(landmarks)")
}

func TestReplay_ShorterDebounce(t *testing.T) {
	s := gesture.DefaultSettings()
	s.Debounce = 400 * time.Millisecond

	var out bytes.Buffer
	n, err := replay(strings.NewReader(sampleRecording(t)), &out, s, 100*time.Millisecond, outputJSON, logging.Nop())
	require.NoError(t, err)
	assert.Equal(t, 4, n, "the fist at 500ms is outside a 400ms window")
}

func TestReplay_BadRecording(t *testing.T) {
	_, err := replay(strings.NewReader("{\"t\":0}\nnot json\n"), &bytes.Buffer{}, gesture.DefaultSettings(), time.Millisecond, outputJSON, logging.Nop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")
}

func TestReplayCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.jsonl")
	require.NoError(t, os.WriteFile(path, []byte(sampleRecording(t)), 0644))

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"replay", "--file", path, "--output", "json", "--log-level", "error"})
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		replayOutput = outputDefault
		logLevel = ""
	})

	require.NoError(t, rootCmd.Execute())
	assert.Equal(t, 3, strings.Count(out.String(), "\"gesture\""))
}

func TestReplayCommand_InvalidOutput(t *testing.T) {
	rootCmd.SetArgs([]string{"replay", "--file", "x.jsonl", "--output", "yaml"})
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		replayOutput = outputDefault
	})

	err := rootCmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown output format")
}
