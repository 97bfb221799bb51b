// Package main provides a webhook plugin.
// It posts the accepted gesture as JSON to the URL in the action config.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

// Request represents the input from the plugin executor.
type Request struct {
	Action    string          `json:"action"`
	Gesture   string          `json:"gesture"`
	Source    string          `json:"source"`
	Timestamp int64           `json:"timestamp"`
	Config    json.RawMessage `json:"config"`
	Params    json.RawMessage `json:"params"`
}

// Response represents the output to the plugin executor.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Config is the per-action configuration stored with the binding.
type Config struct {
	URL     string            `json:"url"`
	Headers map[string]string `json:"headers"`
	Timeout string            `json:"timeout"` // Go duration, default 3s
}

// payload is the body posted to the endpoint.
type payload struct {
	Gesture   string `json:"gesture"`
	Source    string `json:"source,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

const defaultTimeout = 3 * time.Second

func main() {
	resp := run(os.Stdin, http.DefaultClient)
	json.NewEncoder(os.Stdout).Encode(resp)
}

func run(in io.Reader, client *http.Client) Response {
	var req Request
	if err := json.NewDecoder(in).Decode(&req); err != nil {
		return errorResponse(fmt.Sprintf("failed to decode request: %v", err))
	}

	switch req.Action {
	case "post":
		status, err := post(client, req)
		if err != nil {
			return errorResponse(fmt.Sprintf("action %s failed: %v", req.Action, err))
		}
		data, _ := json.Marshal(map[string]int{"status": status})
		return Response{Success: true, Data: data}
	default:
		return errorResponse(fmt.Sprintf("unknown action: %s", req.Action))
	}
}

// post sends the gesture and returns the response status code.
func post(client *http.Client, req Request) (int, error) {
	var cfg Config
	if len(req.Config) > 0 {
		if err := json.Unmarshal(req.Config, &cfg); err != nil {
			return 0, fmt.Errorf("failed to parse config: %w", err)
		}
	}
	if cfg.URL == "" {
		return 0, fmt.Errorf("url is required")
	}
	if !strings.HasPrefix(cfg.URL, "http://") && !strings.HasPrefix(cfg.URL, "https://") {
		return 0, fmt.Errorf("unsupported url %q", cfg.URL)
	}

	timeout := defaultTimeout
	if cfg.Timeout != "" {
		d, err := time.ParseDuration(cfg.Timeout)
		if err != nil {
			return 0, fmt.Errorf("invalid timeout: %w", err)
		}
		timeout = d
	}

	body, err := json.Marshal(payload{Gesture: req.Gesture, Source: req.Source, Timestamp: req.Timestamp})
	if err != nil {
		return 0, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, cfg.URL, bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	for k, v := range cfg.Headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := client.Do(httpReq)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 300 {
		return resp.StatusCode, fmt.Errorf("endpoint returned %s", resp.Status)
	}
	return resp.StatusCode, nil
}

func errorResponse(msg string) Response {
	return Response{Success: false, Error: msg}
}
