package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ayusman/touchless/internal/events"
	"github.com/ayusman/touchless/internal/logging"
)

var (
	watchAddr    string
	watchChannel string
	watchOutput  string
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Print gestures published to redis",
	Long: `Subscribe to the redis channel a running touchless instance publishes
to and print each accepted gesture.

Examples:
  touchless watch --redis localhost:6379
  touchless watch --output=json > gestures.jsonl`,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVar(&watchAddr, "redis", "", "Redis address (overrides redis.addr)")
	watchCmd.Flags().StringVar(&watchChannel, "channel", "", "Channel (overrides redis.channel)")
	watchCmd.Flags().StringVarP(&watchOutput, "output", "o", outputDefault, "Output format (default or json)")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	if err := checkOutput(watchOutput); err != nil {
		return err
	}
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	if watchAddr != "" {
		cfg.Redis.Addr = watchAddr
	}
	if watchChannel != "" {
		cfg.Redis.Channel = watchChannel
	}
	if !cfg.Redis.Enabled() {
		return fmt.Errorf("no redis address: set redis.addr or pass --redis")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sub, err := events.Subscribe(ctx, redisOptions(cfg.Redis), cfg.Redis.Channel)
	if err != nil {
		return err
	}
	defer sub.Close()

	log.Infof("watching %s on %s", cfg.Redis.Channel, cfg.Redis.Addr)
	return watch(ctx, sub, cmd.OutOrStdout(), watchOutput, log)
}

// watch prints messages from sub until ctx is done or the subscription
// closes.
func watch(ctx context.Context, sub *events.Subscription, out io.Writer, format string, log logging.Logger) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case err, ok := <-sub.Errors():
			if ok {
				log.Warnf("skipping message: %v", err)
			}
		case msg, ok := <-sub.Events():
			if !ok {
				return nil
			}
			ev, err := msg.Event()
			if err != nil {
				log.Warnf("skipping message: %v", err)
				continue
			}
			if err := printEvent(out, format, ev, ev.Timestamp.Local().Format("15:04:05.000")); err != nil {
				return err
			}
		}
	}
}
