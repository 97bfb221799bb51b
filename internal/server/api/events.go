package api

import (
	"net/http"
	"strconv"

	"github.com/ayusman/touchless/internal/store"
)

const (
	defaultEventLimit = 50
	maxEventLimit     = 500
)

// EventHandler serves the gesture event log.
type EventHandler struct {
	events *store.EventRepository
}

// NewEventHandler creates an EventHandler backed by s.
func NewEventHandler(s *store.Store) *EventHandler {
	return &EventHandler{events: s.Events()}
}

// ServeHTTP routes /api/events and /api/events/stats.
func (h *EventHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}

	switch subPath(r, "/api/events") {
	case "":
		h.list(w, r)
	case "stats":
		h.stats(w, r)
	default:
		writeError(w, http.StatusNotFound, "Not found")
	}
}

type eventResponse struct {
	ID        string `json:"id"`
	Gesture   string `json:"gesture"`
	Source    string `json:"source"`
	Timestamp int64  `json:"timestamp"`
}

type listEventsResponse struct {
	Events []eventResponse `json:"events"`
}

type statsResponse struct {
	Counts map[string]int64 `json:"counts"`
	Total  int64            `json:"total"`
}

func (h *EventHandler) list(w http.ResponseWriter, r *http.Request) {
	limit := defaultEventLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxEventLimit)
	}

	events, err := h.events.ListRecent(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list events")
		return
	}

	resp := listEventsResponse{Events: make([]eventResponse, 0, len(events))}
	for _, e := range events {
		resp.Events = append(resp.Events, eventResponse{
			ID:        e.ID,
			Gesture:   e.Kind,
			Source:    e.Source,
			Timestamp: e.Timestamp.UnixMilli(),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *EventHandler) stats(w http.ResponseWriter, r *http.Request) {
	counts, err := h.events.CountByKind(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to count events")
		return
	}

	resp := statsResponse{Counts: make(map[string]int64, len(counts))}
	for _, c := range counts {
		resp.Counts[c.Kind] = c.Count
		resp.Total += c.Count
	}
	writeJSON(w, http.StatusOK, resp)
}
