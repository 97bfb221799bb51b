package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/ayusman/touchless/internal/app"
	"github.com/ayusman/touchless/internal/capture/cv"
	"github.com/ayusman/touchless/internal/config"
	"github.com/ayusman/touchless/internal/detector"
	"github.com/ayusman/touchless/internal/events"
	"github.com/ayusman/touchless/internal/plugin"
	"github.com/ayusman/touchless/internal/server"
	"github.com/ayusman/touchless/internal/store"
	"github.com/ayusman/touchless/internal/tray"
)

var (
	serveAddr     string
	servePipeline string
	serveTray     bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run gesture detection and the HTTP API",
	Long: `Open the camera, run the configured detection pipeline, and serve the
HTTP API and web UI until interrupted.

Examples:
  # Motion pipeline with defaults
  touchless serve

  # Landmark pipeline with a tray icon
  touchless serve --pipeline landmarks --tray`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (overrides server.addr)")
	serveCmd.Flags().StringVar(&servePipeline, "pipeline", "", "Detection pipeline: motion or landmarks")
	serveCmd.Flags().BoolVar(&serveTray, "tray", false, "Show a system tray icon")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	if serveAddr != "" {
		cfg.Server.Addr = serveAddr
	}
	if servePipeline != "" {
		cfg.Pipeline = servePipeline
	}
	if serveTray {
		cfg.Tray = true
	}

	pipeline, err := app.ParsePipeline(cfg.Pipeline)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dataDir, err := cfg.ResolveDataDir()
	if err != nil {
		return err
	}
	st, err := store.New(filepath.Join(dataDir, "touchless.db"))
	if err != nil {
		return fmt.Errorf("failed to initialize store: %w", err)
	}
	defer st.Close()

	settings, err := st.Settings().LoadDetection(cfg.Detection)
	if err != nil {
		log.Warnf("ignoring stored detection settings: %v", err)
		settings = cfg.Detection
	}
	if cfg.EventRetention > 0 {
		n, err := st.Events().Prune(ctx, time.Now().Add(-cfg.EventRetention))
		if err != nil {
			log.Warnf("prune event log: %v", err)
		} else if n > 0 {
			log.Infof("pruned %d events older than %v", n, cfg.EventRetention)
		}
	}

	manager := plugin.NewManager(cfg.PluginDir(dataDir), log)
	if err := manager.Discover(); err != nil {
		log.Warnf("plugin discovery: %v", err)
	}
	log.Infof("loaded %d plugins from %s", len(manager.List()), manager.PluginDir())

	hub := events.NewHub(log)
	fanout := events.NewFanout(log)
	fanout.Add("store", events.NewRecorder(st.Events()))
	fanout.Add("ws", hub)
	fanout.Add("plugins", plugin.NewDispatcher(st.Actions(), manager, plugin.NewExecutor(cfg.Plugins.Timeout), log))

	if cfg.Redis.Enabled() {
		pub, err := events.NewRedisPublisher(ctx, redisOptions(cfg.Redis), cfg.Redis.Channel)
		if err != nil {
			return err
		}
		defer pub.Close()
		fanout.Add("redis", pub)
		log.Infof("publishing gestures to redis channel %s", pub.Channel())
	}

	var tr *tray.Tray
	if cfg.Tray {
		tr = tray.New()
		fanout.Add("tray", tr)
	}

	var det detector.Detector
	if pipeline == app.PipelineLandmarks {
		det, err = detector.NewMediaPipeDetector(cfg.Detector.Config, cv.EncodeJPEG, log)
		if err != nil {
			return err
		}
	}

	a, err := app.New(app.Config{
		Camera:       cv.NewCamera(cfg.Camera.Device),
		Detector:     det,
		Pipeline:     pipeline,
		Settings:     settings,
		IdleFPS:      cfg.Camera.IdleFPS,
		ActiveFPS:    cfg.Camera.ActiveFPS,
		InitAttempts: cfg.Detector.InitAttempts,
		InitInterval: cfg.Detector.InitInterval,
		Sink:         fanout,
		Logger:       log,
	})
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.Start(ctx); err != nil {
		return err
	}
	log.Infof("detection running: pipeline=%s camera=%d", pipeline, cfg.Camera.Device)

	srvCfg := server.Config{
		StaticDir: cfg.Server.StaticDir,
		Store:     st,
		Pipeline:  a,
		Plugins:   manager,
		Encoder:   cv.EncodeJPEG,
		Events:    hub,
		Logger:    log,
	}
	if srvCfg.StaticDir == "" {
		srvCfg.StaticDir = findWebDir(dataDir)
	}
	if srvCfg.StaticDir != "" {
		log.Infof("serving static files from %s", srvCfg.StaticDir)
	}
	if tr != nil {
		srvCfg.OnToggle = tr.SetEnabled
	}
	srv := server.New(srvCfg)

	if tr == nil {
		return serve(ctx, srv, cfg.Server.Addr)
	}

	// The tray must own the main goroutine.
	tr.OnToggle(a.SetEnabled)
	tr.OnSettings(func() { log.Infof("settings: http://%s", displayAddr(cfg.Server.Addr)) })
	tr.OnQuit(stop)

	errCh := make(chan error, 1)
	go func() {
		errCh <- serve(ctx, srv, cfg.Server.Addr)
		tr.Quit()
	}()
	tr.Run()
	stop()
	return <-errCh
}

func serve(ctx context.Context, srv *server.Server, addr string) error {
	if err := srv.ListenAndServe(ctx, addr); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

func redisOptions(c config.RedisConfig) *redis.Options {
	return &redis.Options{
		Addr:     c.Addr,
		Password: c.Password,
		DB:       c.DB,
	}
}

func displayAddr(addr string) string {
	if len(addr) > 0 && addr[0] == ':' {
		return "localhost" + addr
	}
	return addr
}

// findWebDir searches for the web directory in common locations.
// It checks: "web", "../web", "../../web", and <data dir>/web.
// Returns the first existing directory or empty string if none found.
func findWebDir(dataDir string) string {
	relativePaths := []string{"web", "../web", "../../web"}
	for _, p := range relativePaths {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			absPath, err := filepath.Abs(p)
			if err == nil {
				return absPath
			}
			return p
		}
	}

	dataWebDir := filepath.Join(dataDir, "web")
	if info, err := os.Stat(dataWebDir); err == nil && info.IsDir() {
		return dataWebDir
	}

	return ""
}
