package plugin

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ayusman/touchless/internal/gesture"
	"github.com/ayusman/touchless/internal/store"
)

type actionMap map[string]*store.Action

func (m actionMap) GetByGesture(g string) (*store.Action, error) {
	if a, ok := m["error"]; ok && a == nil {
		return nil, errors.New("database is locked")
	}
	return m[g], nil
}

// recordingPlugin stores the request it receives in request.json next to
// the script.
func recordingPlugin(t *testing.T) (*Manager, string) {
	t.Helper()
	p := writeScript(t, `cat > request.json
echo '{"success":true}'
`)
	m := NewManager(filepath.Dir(p.Path), nil)
	m.plugins[p.Manifest.Name] = p
	return m, filepath.Join(p.Path, "request.json")
}

func testEvent() gesture.Event {
	return gesture.Event{
		Kind:      gesture.ThumbsUp,
		Source:    gesture.SourceLandmarks,
		Timestamp: time.UnixMilli(1700000000123),
	}
}

func TestDispatcher_Publish(t *testing.T) {
	manager, requestPath := recordingPlugin(t)
	actions := actionMap{
		"thumbs_up": {
			ID:         "a1",
			Gesture:    "thumbs_up",
			PluginName: "test-plugin",
			ActionName: "test-action",
			Config:     json.RawMessage(`{"url":"http://localhost"}`),
			Enabled:    true,
		},
	}

	d := NewDispatcher(actions, manager, NewExecutor(5*time.Second), nil)
	if err := d.Publish(context.Background(), testEvent()); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	data, err := os.ReadFile(requestPath)
	if err != nil {
		t.Fatalf("plugin did not record a request: %v", err)
	}
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		t.Fatalf("invalid request JSON %q: %v", data, err)
	}
	if req.Action != "test-action" || req.Gesture != "thumbs_up" || req.Source != "landmarks" {
		t.Errorf("request = %+v", req)
	}
	if req.Timestamp != 1700000000123 {
		t.Errorf("timestamp = %d, want unix ms", req.Timestamp)
	}
	if string(req.Config) != `{"url":"http://localhost"}` {
		t.Errorf("config = %s", req.Config)
	}
}

func TestDispatcher_Publish_Skips(t *testing.T) {
	tests := []struct {
		name    string
		actions actionMap
	}{
		{"unbound", actionMap{}},
		{"disabled", actionMap{"thumbs_up": {PluginName: "test-plugin", ActionName: "test-action", Enabled: false}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			manager, requestPath := recordingPlugin(t)
			d := NewDispatcher(tt.actions, manager, NewExecutor(0), nil)
			if err := d.Publish(context.Background(), testEvent()); err != nil {
				t.Fatalf("Publish() error = %v", err)
			}
			if _, err := os.Stat(requestPath); !os.IsNotExist(err) {
				t.Error("plugin should not have run")
			}
		})
	}
}

func TestDispatcher_Publish_Errors(t *testing.T) {
	bound := func(plugin, action string) actionMap {
		return actionMap{"thumbs_up": {ID: "a1", PluginName: plugin, ActionName: action, Enabled: true}}
	}

	tests := []struct {
		name    string
		actions actionMap
		want    string
		is      error
	}{
		{"lookup failure", actionMap{"error": nil}, "database is locked", nil},
		{"missing plugin", bound("gone", "test-action"), "gone", ErrPluginNotFound},
		{"unsupported action", bound("test-plugin", "explode"), "does not support", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			manager, _ := recordingPlugin(t)
			d := NewDispatcher(tt.actions, manager, NewExecutor(0), nil)
			err := d.Publish(context.Background(), testEvent())
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %v, want it to mention %q", err, tt.want)
			}
			if tt.is != nil && !errors.Is(err, tt.is) {
				t.Errorf("error = %v, want errors.Is %v", err, tt.is)
			}
		})
	}
}

func TestDispatcher_Publish_UnsuccessfulResponse(t *testing.T) {
	p := writeScript(t, `cat > /dev/null
echo '{"success":false,"error":"endpoint refused"}'
`)
	m := NewManager(filepath.Dir(p.Path), nil)
	m.plugins[p.Manifest.Name] = p

	actions := actionMap{"thumbs_up": {PluginName: "test-plugin", ActionName: "test-action", Enabled: true}}
	err := NewDispatcher(actions, m, NewExecutor(0), nil).Publish(context.Background(), testEvent())
	if err == nil || !strings.Contains(err.Error(), "endpoint refused") {
		t.Errorf("error = %v, want plugin error surfaced", err)
	}
}
