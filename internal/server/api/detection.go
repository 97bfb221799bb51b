package api

import (
	"net/http"

	"github.com/ayusman/touchless/internal/app"
)

// DetectionController is the part of the pipeline the API can toggle.
type DetectionController interface {
	SetEnabled(enabled bool)
	Enabled() bool
	Status() app.Status
}

// DetectionHandler serves /api/detection and its enable/disable actions.
type DetectionHandler struct {
	ctl      DetectionController
	onToggle func(enabled bool)
}

// NewDetectionHandler creates a DetectionHandler. onToggle, if non-nil, is
// called after each enable or disable so other surfaces can mirror it.
func NewDetectionHandler(ctl DetectionController, onToggle func(enabled bool)) *DetectionHandler {
	return &DetectionHandler{ctl: ctl, onToggle: onToggle}
}

type enabledResponse struct {
	Enabled bool `json:"enabled"`
}

func (h *DetectionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	action := subPath(r, "/api/detection")

	if action == "" {
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		writeJSON(w, http.StatusOK, h.ctl.Status())
		return
	}

	var enabled bool
	switch action {
	case "enable":
		enabled = true
	case "disable":
		enabled = false
	default:
		writeError(w, http.StatusNotFound, "Not found")
		return
	}
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}

	h.ctl.SetEnabled(enabled)
	if h.onToggle != nil {
		h.onToggle(enabled)
	}
	writeJSON(w, http.StatusOK, enabledResponse{Enabled: h.ctl.Enabled()})
}
