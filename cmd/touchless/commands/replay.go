package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/spf13/cobra"

	"github.com/ayusman/touchless/internal/detector"
	"github.com/ayusman/touchless/internal/events"
	"github.com/ayusman/touchless/internal/gesture"
	"github.com/ayusman/touchless/internal/logging"
)

const (
	outputDefault = "default"
	outputJSON    = "json"
)

var (
	replayFile   string
	replayOutput string
	replayStep   time.Duration
)

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Classify a recorded landmark stream",
	Long: `Run the landmark pipeline and debounce over a JSON-lines recording
without a camera or detector. Each line is
  {"t": <ms>, "hands": [{"points": [...21 points...], "handedness": "Right", "score": 0.9}]}

Examples:
  touchless replay --file session.jsonl
  touchless replay --file session.jsonl --output=json`,
	RunE: runReplay,
}

func init() {
	replayCmd.Flags().StringVarP(&replayFile, "file", "f", "", "Recording to replay (- for stdin)")
	replayCmd.Flags().StringVarP(&replayOutput, "output", "o", outputDefault, "Output format (default or json)")
	replayCmd.Flags().DurationVar(&replayStep, "step", 100*time.Millisecond, "Spacing for lines without a timestamp")
	replayCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(replayCmd)
}

func runReplay(cmd *cobra.Command, args []string) error {
	if err := checkOutput(replayOutput); err != nil {
		return err
	}
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}

	var in io.Reader = cmd.InOrStdin()
	if replayFile != "-" {
		f, err := os.Open(replayFile)
		if err != nil {
			return fmt.Errorf("open recording: %w", err)
		}
		defer f.Close()
		in = f
	}

	n, err := replay(in, cmd.OutOrStdout(), cfg.Detection, replayStep, replayOutput, log)
	if err != nil {
		return err
	}
	log.Infof("replay accepted %d gestures", n)
	return nil
}

// replay classifies every recorded frame on a clock advanced to the frame's
// offset, so debouncing matches the original timing. It returns the number
// of accepted events.
func replay(in io.Reader, out io.Writer, s gesture.Settings, step time.Duration, format string, log logging.Logger) (int, error) {
	frames, err := detector.ReadRecording(in, step)
	if err != nil {
		return 0, fmt.Errorf("read recording: %w", err)
	}

	clk := clock.NewMock()
	start := clk.Now()
	strategy := gesture.NewLandmarkStrategy(log)
	coord := gesture.NewCoordinator(s.Debounce, clk)

	accepted := 0
	for i, f := range frames {
		if f.Rejected > 0 {
			log.Debugf("frame %d: rejected %d malformed hands", i, f.Rejected)
		}
		clk.Set(start.Add(f.At))

		kind, ok := strategy.Classify(f.Hands)
		if !ok {
			continue
		}
		ev, ok := coord.Offer(kind, strategy.Name())
		if !ok {
			continue
		}
		accepted++
		if err := printEvent(out, format, ev, formatOffset(ev.Timestamp.Sub(start))); err != nil {
			return accepted, err
		}
	}
	return accepted, nil
}

func checkOutput(format string) error {
	switch format {
	case outputDefault, outputJSON:
		return nil
	}
	return fmt.Errorf("unknown output format %q (valid: default, json)", format)
}

// printEvent writes ev as a line. when is shown in the default format.
func printEvent(w io.Writer, format string, ev gesture.Event, when string) error {
	if format == outputJSON {
		data, err := json.Marshal(events.NewMessage(ev))
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(w, "%s\n", data)
		return err
	}
	_, err := fmt.Fprintf(w, "%-12s  %-12s (%s)\n", when, ev.Kind.Label(), ev.Source)
	return err
}

func formatOffset(d time.Duration) string {
	ms := d.Milliseconds()
	return fmt.Sprintf("%02d:%02d.%03d", ms/60000, ms/1000%60, ms%1000)
}
