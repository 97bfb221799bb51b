package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ayusman/touchless/internal/gesture"
)

// DetectionKey holds the persisted detection settings.
const DetectionKey = "detection"

// DetectionSettings is the stored and wire form of gesture.Settings with
// durations in milliseconds.
type DetectionSettings struct {
	MotionThreshold   float64 `json:"motion_threshold"`
	GestureThreshold  float64 `json:"gesture_threshold"`
	DebounceMs        int64   `json:"debounce_ms"`
	MinMotionPixels   int     `json:"min_motion_pixels"`
	SmoothingFactor   float64 `json:"smoothing_factor"`
	SampleStride      int     `json:"sample_stride"`
	DetectEvery       int     `json:"detect_every"`
	EmotionDebounceMs int64   `json:"emotion_debounce_ms"`
}

// FromSettings converts s to its stored form.
func FromSettings(s gesture.Settings) DetectionSettings {
	return DetectionSettings{
		MotionThreshold:   s.MotionThreshold,
		GestureThreshold:  s.GestureThreshold,
		DebounceMs:        s.Debounce.Milliseconds(),
		MinMotionPixels:   s.MinMotionPixels,
		SmoothingFactor:   s.SmoothingFactor,
		SampleStride:      s.SampleStride,
		DetectEvery:       s.DetectEvery,
		EmotionDebounceMs: s.EmotionDebounce.Milliseconds(),
	}
}

// Settings converts back to gesture.Settings.
func (d DetectionSettings) Settings() gesture.Settings {
	return gesture.Settings{
		MotionThreshold:  d.MotionThreshold,
		GestureThreshold: d.GestureThreshold,
		Debounce:         time.Duration(d.DebounceMs) * time.Millisecond,
		MinMotionPixels:  d.MinMotionPixels,
		SmoothingFactor:  d.SmoothingFactor,
		SampleStride:     d.SampleStride,
		DetectEvery:      d.DetectEvery,
		EmotionDebounce:  time.Duration(d.EmotionDebounceMs) * time.Millisecond,
	}
}

// SettingsRepository stores key-value settings.
type SettingsRepository struct {
	db *sql.DB
}

// Settings returns the settings repository for this store.
func (s *Store) Settings() *SettingsRepository {
	return &SettingsRepository{db: s.db}
}

// Get returns the value for key or ErrNotFound.
func (r *SettingsRepository) Get(key string) (string, error) {
	var value string
	err := r.db.QueryRow(`SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	return value, err
}

// Set inserts or replaces the value for key.
func (r *SettingsRepository) Set(key, value string) error {
	_, err := r.db.Exec(
		`INSERT INTO settings (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value,
	)
	return err
}

// GetJSON decodes the JSON value for key into v.
func (r *SettingsRepository) GetJSON(key string, v any) error {
	raw, err := r.Get(key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return fmt.Errorf("decode setting %s: %w", key, err)
	}
	return nil
}

// SetJSON stores v as JSON under key.
func (r *SettingsRepository) SetJSON(key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode setting %s: %w", key, err)
	}
	return r.Set(key, string(data))
}

// Delete removes key. Deleting a missing key is not an error.
func (r *SettingsRepository) Delete(key string) error {
	_, err := r.db.Exec(`DELETE FROM settings WHERE key = ?`, key)
	return err
}

// LoadDetection returns the persisted detection settings, or fallback when
// none are stored. Stored values that fail validation are an error.
func (r *SettingsRepository) LoadDetection(fallback gesture.Settings) (gesture.Settings, error) {
	stored := FromSettings(fallback)
	err := r.GetJSON(DetectionKey, &stored)
	if errors.Is(err, ErrNotFound) {
		return fallback, nil
	}
	if err != nil {
		return fallback, err
	}
	s := stored.Settings()
	if err := s.Validate(); err != nil {
		return fallback, err
	}
	return s, nil
}

// SaveDetection validates and persists s.
func (r *SettingsRepository) SaveDetection(s gesture.Settings) error {
	if err := s.Validate(); err != nil {
		return err
	}
	return r.SetJSON(DetectionKey, FromSettings(s))
}
