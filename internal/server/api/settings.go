package api

import (
	"encoding/json"
	"net/http"

	"github.com/ayusman/touchless/internal/gesture"
	"github.com/ayusman/touchless/internal/store"
)

// SettingsTarget receives validated detection settings.
type SettingsTarget interface {
	Settings() gesture.Settings
	ApplySettings(s gesture.Settings) error
}

// SettingsHandler serves GET and PUT /api/settings.
type SettingsHandler struct {
	repo     *store.SettingsRepository
	target   SettingsTarget
	fallback gesture.Settings
}

// NewSettingsHandler creates a SettingsHandler. Saved settings are applied
// to target when it is non-nil; otherwise only the store is updated.
func NewSettingsHandler(s *store.Store, target SettingsTarget) *SettingsHandler {
	return &SettingsHandler{
		repo:     s.Settings(),
		target:   target,
		fallback: gesture.DefaultSettings(),
	}
}

func (h *SettingsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.get(w)
	case http.MethodPut:
		h.put(w, r)
	default:
		methodNotAllowed(w)
	}
}

func (h *SettingsHandler) current() (gesture.Settings, error) {
	if h.target != nil {
		return h.target.Settings(), nil
	}
	return h.repo.LoadDetection(h.fallback)
}

func (h *SettingsHandler) get(w http.ResponseWriter) {
	cur, err := h.current()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load settings")
		return
	}
	writeJSON(w, http.StatusOK, store.FromSettings(cur))
}

// put decodes the body over the current settings, so clients may send a
// subset of fields.
func (h *SettingsHandler) put(w http.ResponseWriter, r *http.Request) {
	cur, err := h.current()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load settings")
		return
	}

	body := store.FromSettings(cur)
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	next := body.Settings()
	if err := next.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.repo.SaveDetection(next); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save settings")
		return
	}
	if h.target != nil {
		if err := h.target.ApplySettings(next); err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to apply settings")
			return
		}
	}

	writeJSON(w, http.StatusOK, store.FromSettings(next))
}
