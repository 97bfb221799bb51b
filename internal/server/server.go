// Package server provides the HTTP server for the touchless gesture
// pipeline.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/ayusman/touchless/internal/capture"
	"github.com/ayusman/touchless/internal/logging"
	"github.com/ayusman/touchless/internal/plugin"
	"github.com/ayusman/touchless/internal/server/api"
	"github.com/ayusman/touchless/internal/store"
)

const shutdownTimeout = 5 * time.Second

// Pipeline is the running detector the server exposes.
type Pipeline interface {
	api.DetectionController
	api.SettingsTarget
	api.FaceObserver
	LatestFrame() *capture.Frame
}

// Config holds the server configuration. Routes whose dependency is nil
// are not registered.
type Config struct {
	StaticDir string
	Store     *store.Store
	Pipeline  Pipeline
	Plugins   *plugin.Manager
	// Encoder compresses frames for /api/stream.
	Encoder capture.Encoder
	// Events serves the live event websocket at /api/ws.
	Events http.Handler
	// OnToggle is called after detection is enabled or disabled over HTTP.
	OnToggle func(enabled bool)
	Logger   logging.Logger
}

// Server represents the HTTP server for the touchless application.
type Server struct {
	config Config
	log    logging.Logger
	mux    *http.ServeMux
	start  time.Time
}

// New creates a new Server with the given configuration.
func New(config Config) *Server {
	log := config.Logger
	if log == nil {
		log = logging.Nop()
	}
	s := &Server{
		config: config,
		log:    log.With("component", "server"),
		mux:    http.NewServeMux(),
		start:  time.Now(),
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures all HTTP routes for the server.
func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/api/health", s.handleHealth)

	if st := s.config.Store; st != nil {
		var lookup api.PluginLookup
		if s.config.Plugins != nil {
			lookup = s.config.Plugins
		}
		actions := api.NewActionHandler(st, lookup)
		s.mux.Handle("/api/actions", actions)
		s.mux.Handle("/api/actions/", actions)

		events := api.NewEventHandler(st)
		s.mux.Handle("/api/events", events)
		s.mux.Handle("/api/events/", events)

		var target api.SettingsTarget
		if s.config.Pipeline != nil {
			target = s.config.Pipeline
		}
		s.mux.Handle("/api/settings", api.NewSettingsHandler(st, target))
	}

	if s.config.Plugins != nil {
		s.mux.Handle("/api/plugins", api.NewPluginHandler(s.config.Plugins))
	}

	if p := s.config.Pipeline; p != nil {
		detection := api.NewDetectionHandler(p, s.config.OnToggle)
		s.mux.Handle("/api/detection", detection)
		s.mux.Handle("/api/detection/", detection)
		s.mux.Handle("/api/faces", api.NewFaceHandler(p))
		if s.config.Encoder != nil {
			s.mux.Handle("/api/stream", NewStreamHandler(p, s.config.Encoder))
		}
	}

	if s.config.Events != nil {
		s.mux.Handle("/api/ws", s.config.Events)
	}

	// Serve static files if StaticDir is configured
	if s.config.StaticDir != "" {
		fs := http.FileServer(http.Dir(s.config.StaticDir))
		s.mux.Handle("/", fs)
	}
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// handleHealth handles GET requests to /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := map[string]interface{}{
		"status": "ok",
		"uptime": time.Since(s.start).String(),
	}
	if s.config.Pipeline != nil {
		response["detection"] = s.config.Pipeline.Enabled()
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		return
	}
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Infof("listening on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
