package detector

import (
	"bufio"
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	"github.com/ayusman/touchless/internal/capture"
	"github.com/ayusman/touchless/internal/logging"
)

// IdleShutdown is how long the MediaPipe process may sit unused before it
// is stopped. It is restarted on the next detection.
const IdleShutdown = 30 * time.Second

// ResponseTimeout bounds a single frame round trip. A service that misses
// it is killed and restarted on the next detection.
const ResponseTimeout = 5 * time.Second

// shutdownGrace is how long the service gets to exit after stdin closes
// before it is killed.
const shutdownGrace = 2 * time.Second

// MediaPipeDetector implements Detector using a Python MediaPipe subprocess.
//
// Frames are sent as a 4-byte big-endian length followed by JPEG bytes; the
// service answers each one with a single JSON line. A zero-length frame is a
// readiness check.
type MediaPipeDetector struct {
	config    Config
	script    string
	encode    capture.Encoder
	log       logging.Logger
	cmd       *exec.Cmd
	stdin     io.WriteCloser
	stdout    *bufio.Reader
	mu        sync.Mutex
	started   bool
	idleTimer *time.Timer

	respTimeout time.Duration
}

// NewMediaPipeDetector creates a new MediaPipe detector that sends frames
// compressed by encode. The Python process is started lazily on first use.
func NewMediaPipeDetector(config Config, encode capture.Encoder, log logging.Logger) (*MediaPipeDetector, error) {
	if encode == nil {
		return nil, fmt.Errorf("%w: no frame encoder", ErrDetectorInitFailed)
	}
	script := config.ScriptPath
	if script == "" {
		script = findMediaPipeScript()
	}
	if script == "" {
		return nil, fmt.Errorf("%w: mediapipe_service.py not found", ErrDetectorInitFailed)
	}
	if log == nil {
		log = logging.Nop()
	}

	return &MediaPipeDetector{
		config: config,
		script: script,
		encode: encode,
		log:    log.With("component", "mediapipe"),

		respTimeout: ResponseTimeout,
	}, nil
}

// Ready starts the service if needed and waits for it to answer a readiness check.
func (d *MediaPipeDetector) Ready(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.ensureStarted(); err != nil {
		return err
	}
	if _, err := d.roundTrip(nil); err != nil {
		d.shutdown()
		return fmt.Errorf("readiness check: %w", err)
	}
	d.resetIdleTimer()
	return nil
}

// Detect analyzes a frame and returns detected hand landmarks. Hands whose
// point count is not 21 are dropped.
func (d *MediaPipeDetector) Detect(frame *capture.Frame) ([]HandLandmarks, error) {
	data, err := d.encode(frame)
	if err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.ensureStarted(); err != nil {
		return nil, err
	}

	resp, err := d.roundTrip(data)
	if err != nil {
		// A broken pipe leaves the stream unframed; restart on next call.
		d.shutdown()
		return nil, err
	}

	result := make([]HandLandmarks, 0, len(resp.Hands))
	for _, h := range resp.Hands {
		lm, err := FromPoints(h.Points, h.Handedness, h.Score)
		if err != nil {
			d.log.Debugf("discarding hand: %v", err)
			continue
		}
		result = append(result, lm)
	}

	d.resetIdleTimer()

	return result, nil
}

// Close shuts down the Python process.
func (d *MediaPipeDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.shutdown()
}

type serviceResponse struct {
	Hands []jsonHand `json:"hands"`
	Error string     `json:"error,omitempty"`
}

// jsonHand represents the JSON structure from the Python service.
type jsonHand struct {
	Points     []Point3D `json:"points"`
	Handedness string    `json:"handedness"`
	Score      float64   `json:"score"`
}

func (d *MediaPipeDetector) roundTrip(data []byte) (*serviceResponse, error) {
	length := make([]byte, 4)
	binary.BigEndian.PutUint32(length, uint32(len(data)))

	cmd := d.cmd
	timer := time.AfterFunc(d.respTimeout, func() { cmd.Process.Kill() })
	defer timer.Stop()

	if _, err := d.stdin.Write(length); err != nil {
		return nil, fmt.Errorf("write length: %w", err)
	}
	if len(data) > 0 {
		if _, err := d.stdin.Write(data); err != nil {
			return nil, fmt.Errorf("write data: %w", err)
		}
	}

	line, err := d.stdout.ReadString('\n')
	if !timer.Stop() {
		return nil, fmt.Errorf("read response: no answer within %s", d.respTimeout)
	}
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var resp serviceResponse
	if err := json.Unmarshal([]byte(line), &resp); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("mediapipe: %s", resp.Error)
	}
	return &resp, nil
}

func (d *MediaPipeDetector) ensureStarted() error {
	if d.started {
		return nil
	}

	// Use virtual environment Python if available
	pythonPath := findVenvPython()
	if pythonPath == "" {
		pythonPath = "python3"
	}

	d.cmd = exec.Command(pythonPath, d.script)
	d.cmd.Env = append(os.Environ(),
		fmt.Sprintf("TOUCHLESS_MAX_HANDS=%d", d.config.MaxHands),
		fmt.Sprintf("TOUCHLESS_MIN_DETECTION_CONFIDENCE=%g", d.config.MinConfidence),
		fmt.Sprintf("TOUCHLESS_MIN_TRACKING_CONFIDENCE=%g", d.config.MinTrackingConf),
	)

	stdin, err := d.cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("create stdin pipe: %w", err)
	}

	stdout, err := d.cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("create stdout pipe: %w", err)
	}

	d.cmd.Stderr = os.Stderr

	if err := d.cmd.Start(); err != nil {
		return fmt.Errorf("start mediapipe service: %w", err)
	}

	d.log.Infof("started mediapipe service pid=%d", d.cmd.Process.Pid)
	d.stdin = stdin
	d.stdout = bufio.NewReader(stdout)
	d.started = true

	return nil
}

func (d *MediaPipeDetector) shutdown() error {
	if !d.started {
		return nil
	}

	if d.idleTimer != nil {
		d.idleTimer.Stop()
		d.idleTimer = nil
	}

	if d.stdin != nil {
		d.stdin.Close()
	}

	cmd := d.cmd
	kill := time.AfterFunc(shutdownGrace, func() { cmd.Process.Kill() })
	err := cmd.Wait()
	kill.Stop()

	d.started = false
	d.cmd = nil
	d.stdin = nil
	d.stdout = nil

	return err
}

func (d *MediaPipeDetector) resetIdleTimer() {
	if d.idleTimer != nil {
		d.idleTimer.Stop()
	}
	d.idleTimer = time.AfterFunc(IdleShutdown, func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		d.log.Debugf("stopping idle mediapipe service")
		d.shutdown()
	})
}

func findMediaPipeScript() string {
	return firstExisting(
		"scripts/mediapipe_service.py",
		"../scripts/mediapipe_service.py",
		fromExecDir("scripts/mediapipe_service.py"),
		filepath.Join(os.Getenv("HOME"), ".touchless/scripts/mediapipe_service.py"),
	)
}

// findVenvPython looks for a Python interpreter in a virtual environment.
func findVenvPython() string {
	return firstExisting(
		"venv/bin/python",
		"../venv/bin/python",
		"../../venv/bin/python",
		fromExecDir("venv/bin/python"),
		filepath.Join(os.Getenv("HOME"), ".touchless/venv/bin/python"),
	)
}

func fromExecDir(rel string) string {
	execPath, err := os.Executable()
	if err != nil {
		return ""
	}
	return filepath.Join(filepath.Dir(execPath), rel)
}

func firstExisting(candidates ...string) string {
	for _, path := range candidates {
		if path == "" {
			continue
		}
		if _, err := os.Stat(path); err == nil {
			if abs, err := filepath.Abs(path); err == nil {
				return abs
			}
			return path
		}
	}
	return ""
}
