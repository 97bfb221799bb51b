package api

import (
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/ayusman/touchless/internal/gesture"
	"github.com/ayusman/touchless/internal/store"
)

type fakeTarget struct {
	settings gesture.Settings
	applied  int
}

func (f *fakeTarget) Settings() gesture.Settings { return f.settings }

func (f *fakeTarget) ApplySettings(s gesture.Settings) error {
	f.settings = s
	f.applied++
	return nil
}

func TestSettingsHandler_Get(t *testing.T) {
	s := newTestStore(t)
	target := &fakeTarget{settings: gesture.DefaultSettings()}
	target.settings.GestureThreshold = 60

	rec := serve(t, NewSettingsHandler(s, target), http.MethodGet, "/api/settings", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
	var resp store.DetectionSettings
	decode(t, rec, &resp)
	if resp.GestureThreshold != 60 || resp.DebounceMs != 1200 {
		t.Errorf("unexpected settings: %+v", resp)
	}
}

func TestSettingsHandler_GetFromStore(t *testing.T) {
	s := newTestStore(t)
	saved := gesture.DefaultSettings()
	saved.DetectEvery = 5
	if err := s.Settings().SaveDetection(saved); err != nil {
		t.Fatalf("failed to save settings: %v", err)
	}

	rec := serve(t, NewSettingsHandler(s, nil), http.MethodGet, "/api/settings", nil)
	var resp store.DetectionSettings
	decode(t, rec, &resp)
	if resp.DetectEvery != 5 {
		t.Errorf("detect_every = %d, want 5", resp.DetectEvery)
	}
}

func TestSettingsHandler_PutPartial(t *testing.T) {
	s := newTestStore(t)
	target := &fakeTarget{settings: gesture.DefaultSettings()}
	handler := NewSettingsHandler(s, target)

	rec := serve(t, handler, http.MethodPut, "/api/settings", map[string]any{"debounce_ms": 800, "sample_stride": 4})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, rec.Code, rec.Body.String())
	}

	if target.applied != 1 {
		t.Errorf("ApplySettings called %d times, want 1", target.applied)
	}
	want := gesture.DefaultSettings()
	want.Debounce = 800 * time.Millisecond
	want.SampleStride = 4
	if target.settings != want {
		t.Errorf("applied %+v, want %+v", target.settings, want)
	}

	stored, err := s.Settings().LoadDetection(gesture.DefaultSettings())
	if err != nil {
		t.Fatalf("LoadDetection: %v", err)
	}
	if stored != want {
		t.Errorf("stored %+v, want %+v", stored, want)
	}
}

func TestSettingsHandler_PutInvalid(t *testing.T) {
	s := newTestStore(t)
	target := &fakeTarget{settings: gesture.DefaultSettings()}
	handler := NewSettingsHandler(s, target)

	rec := serve(t, handler, http.MethodPut, "/api/settings", map[string]any{"smoothing_factor": 1.5})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d", http.StatusBadRequest, rec.Code)
	}
	var resp errorResponse
	decode(t, rec, &resp)
	if !strings.Contains(resp.Error, "smoothing_factor") {
		t.Errorf("error = %q", resp.Error)
	}
	if target.applied != 0 {
		t.Error("invalid settings must not be applied")
	}

	if rec := serve(t, handler, http.MethodPut, "/api/settings", "not json"); rec.Code != http.StatusBadRequest {
		t.Errorf("bad JSON expected %d, got %d", http.StatusBadRequest, rec.Code)
	}
	if rec := serve(t, handler, http.MethodDelete, "/api/settings", nil); rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("DELETE expected %d, got %d", http.StatusMethodNotAllowed, rec.Code)
	}
}
