package api

import (
	"encoding/json"
	"net/http"

	"github.com/ayusman/touchless/internal/gesture"
)

// FaceObserver classifies face landmarks reported by a client.
type FaceObserver interface {
	ObserveFace(face gesture.Face) (gesture.Event, bool)
}

// FaceHandler serves POST /api/faces. A face that produces a gesture is
// answered with the event; anything else gets 204.
type FaceHandler struct {
	observer FaceObserver
}

// NewFaceHandler creates a FaceHandler backed by observer.
func NewFaceHandler(observer FaceObserver) *FaceHandler {
	return &FaceHandler{observer: observer}
}

func (h *FaceHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}

	var face gesture.Face
	if err := json.NewDecoder(r.Body).Decode(&face); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	ev, ok := h.observer.ObserveFace(face)
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, ev)
}
