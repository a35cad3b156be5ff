package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/charmbracelet/log"

	"gakushu/internal/db"
)

var eventTypes = map[string]bool{
	"テスト":  true,
	"小テスト": true,
	"提出物":  true,
	"試験":   true,
	"行事":   true,
	"その他":  true,
}

type eventRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Date        string `json:"date"`
	Type        string `json:"type"`
	Color       string `json:"color"`
}

func validateEvent(req *eventRequest) string {
	if req.Title == "" || req.Date == "" || req.Type == "" {
		return "title, date and type are required"
	}
	if _, err := time.Parse(studyDateFormat, req.Date); err != nil {
		return "date must be YYYY-MM-DD"
	}
	if !eventTypes[req.Type] {
		return "unknown event type"
	}
	if req.Color == "" {
		req.Color = "#3498DB"
	}
	return ""
}

func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	u := currentUser(r)
	events, err := s.db.ListEvents(r.Context(), u.ID)
	if err != nil {
		log.Error("list events failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if events == nil {
		events = []db.Event{}
	}
	writeJSON(w, http.StatusOK, events)
}

func (s *Server) handleCreateEvent(w http.ResponseWriter, r *http.Request) {
	u := currentUser(r)
	var req eventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if msg := validateEvent(&req); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	ev, err := s.db.CreateEvent(r.Context(), u.ID, req.Title, req.Description,
		req.Date, req.Type, req.Color)
	if err != nil {
		log.Error("create event failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusCreated, ev)
}

func (s *Server) handleUpdateEvent(w http.ResponseWriter, r *http.Request) {
	u := currentUser(r)
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	var req eventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if msg := validateEvent(&req); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	ev, err := s.db.UpdateEvent(r.Context(), u.ID, id, req.Title, req.Description,
		req.Date, req.Type, req.Color)
	if errors.Is(err, db.ErrNotFound) {
		writeError(w, http.StatusNotFound, "event not found")
		return
	}
	if err != nil {
		log.Error("update event failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, ev)
}

func (s *Server) handleDeleteEvent(w http.ResponseWriter, r *http.Request) {
	u := currentUser(r)
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	if err := s.db.DeleteEvent(r.Context(), u.ID, id); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			writeError(w, http.StatusNotFound, "event not found")
			return
		}
		log.Error("delete event failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
