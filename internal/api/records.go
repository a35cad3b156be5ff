package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/charmbracelet/log"

	"gakushu/internal/db"
	"gakushu/internal/stats"
)

const (
	maxMemoLength    = 500
	minRecordMinutes = 5
	studyDateFormat  = "2006-01-02"
)

type recordRequest struct {
	StudyDate string `json:"studyDate"`
	SubjectID int64  `json:"subjectId"`
	Hours     int    `json:"hours"`
	Minutes   int    `json:"minutes"`
	Memo      string `json:"memo"`
}

// validate enforces the entity invariants the statistics engine relies on but
// does not check itself: a parseable date, at least 5 combined minutes, and a
// bounded memo.
func (s *Server) validateRecord(r *http.Request, req recordRequest) string {
	if _, err := time.Parse(studyDateFormat, req.StudyDate); err != nil {
		return "studyDate must be YYYY-MM-DD"
	}
	if req.Hours < 0 || req.Minutes < 0 {
		return "duration must not be negative"
	}
	if req.Hours*60+req.Minutes < minRecordMinutes {
		return "minimum 5 minutes required"
	}
	if len([]rune(req.Memo)) > maxMemoLength {
		return "memo must be at most 500 characters"
	}
	if req.SubjectID != 0 {
		ok, err := s.db.SubjectExists(r.Context(), req.SubjectID)
		if err != nil || !ok {
			return "unknown subject"
		}
	}
	return ""
}

func (s *Server) handleListRecords(w http.ResponseWriter, r *http.Request) {
	u := currentUser(r)
	from := r.URL.Query().Get("from")
	to := r.URL.Query().Get("to")

	var (
		records []stats.Session
		err     error
	)
	if from != "" && to != "" {
		records, err = s.db.SessionsBetween(r.Context(), u.ID, from, to)
	} else {
		records, err = s.db.RecentSessions(r.Context(), u.ID, 100)
	}
	if err != nil {
		log.Error("list records failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if records == nil {
		records = []stats.Session{}
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleCreateRecord(w http.ResponseWriter, r *http.Request) {
	u := currentUser(r)
	var req recordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if msg := s.validateRecord(r, req); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	rec, err := s.db.CreateRecord(r.Context(), u.ID, req.StudyDate, req.SubjectID,
		req.Hours, req.Minutes, req.Memo)
	if err != nil {
		log.Error("create record failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

func (s *Server) handleUpdateRecord(w http.ResponseWriter, r *http.Request) {
	u := currentUser(r)
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	var req recordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if msg := s.validateRecord(r, req); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	rec, err := s.db.UpdateRecord(r.Context(), u.ID, id, req.StudyDate, req.SubjectID,
		req.Hours, req.Minutes, req.Memo)
	if errors.Is(err, db.ErrNotFound) {
		writeError(w, http.StatusNotFound, "record not found")
		return
	}
	if err != nil {
		log.Error("update record failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleDeleteRecord(w http.ResponseWriter, r *http.Request) {
	u := currentUser(r)
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	if err := s.db.DeleteRecord(r.Context(), u.ID, id); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			writeError(w, http.StatusNotFound, "record not found")
			return
		}
		log.Error("delete record failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleStudyStats returns the full dashboard snapshot. The reference date is
// derived once here and threaded through the whole computation.
func (s *Server) handleStudyStats(w http.ResponseWriter, r *http.Request) {
	u := currentUser(r)
	snap, err := s.stats.Snapshot(r.Context(), u.ID, s.today())
	if err != nil {
		log.Error("snapshot failed", "user", u.Email, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// handleStudyDaily returns all records and a subject summary for one date.
func (s *Server) handleStudyDaily(w http.ResponseWriter, r *http.Request) {
	u := currentUser(r)
	dateStr := r.URL.Query().Get("date")
	if dateStr == "" {
		dateStr = s.today().Format(studyDateFormat)
	}
	date, err := time.Parse(studyDateFormat, dateStr)
	if err != nil {
		writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}

	records, err := s.db.SessionsOn(r.Context(), u.ID, dateStr)
	if err != nil {
		log.Error("daily records failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if records == nil {
		records = []stats.Session{}
	}
	summary, err := s.stats.SubjectBreakdown(r.Context(), u.ID, date, date)
	if err != nil {
		log.Error("daily breakdown failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	totalMinutes := 0
	for _, rec := range records {
		totalMinutes += rec.TotalMinutes()
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"date":           dateStr,
		"records":        records,
		"subjectSummary": summary,
		"totalMinutes":   totalMinutes,
		"recordCount":    len(records),
		"subjectCount":   len(summary),
	})
}

func (s *Server) handleListSubjects(w http.ResponseWriter, r *http.Request) {
	subjects, err := s.db.ListSubjects(r.Context())
	if err != nil {
		log.Error("list subjects failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, subjects)
}

func (s *Server) handleGetGoal(w http.ResponseWriter, r *http.Request) {
	u := currentUser(r)
	minutes, err := s.db.DailyGoalMinutes(r.Context(), u.ID)
	if err != nil {
		log.Error("get goal failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"dailyGoalMinutes": minutes})
}

func (s *Server) handleSetGoal(w http.ResponseWriter, r *http.Request) {
	u := currentUser(r)
	var req struct {
		DailyGoalMinutes int `json:"dailyGoalMinutes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if err := s.db.SetDailyGoal(r.Context(), u.ID, req.DailyGoalMinutes); err != nil {
		if errors.Is(err, db.ErrInvalidGoal) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		log.Error("set goal failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"dailyGoalMinutes": req.DailyGoalMinutes})
}
