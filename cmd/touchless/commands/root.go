// Package commands implements the touchless command line.
package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ayusman/touchless/internal/config"
	"github.com/ayusman/touchless/internal/logging"
)

var (
	configPath string
	logLevel   string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "touchless",
	Short: "Touchless - camera gesture control",
	Long: `Touchless watches a camera and turns hand gestures into actions.

Two pipelines are available: frame-differencing motion (swipes) and
MediaPipe hand landmarks (poses). Accepted gestures are recorded, pushed
to websocket and redis subscribers, and dispatched to bound plugins.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

// Execute runs the root command.
func Execute() error {
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true
	return rootCmd.Execute()
}

// SetVersionInfo sets the version information for the CLI
func SetVersionInfo(v, c, d string) {
	rootCmd.Version = fmt.Sprintf("%s (commit: %s, built: %s)", v, c, d)
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to a YAML config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override the configured log level")
}

// loadConfig reads the config file and builds the logger for a command.
func loadConfig() (*config.Config, logging.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	log, err := logging.New(cfg.Log.Level, cfg.Log.Dir)
	if err != nil {
		return nil, nil, err
	}
	return cfg, log, nil
}
