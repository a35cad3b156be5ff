// Package api exposes the JSON HTTP interface: authentication, study-record
// CRUD, statistics, goals, events, and admin user management.
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"gakushu/internal/db"
	"gakushu/internal/stats"
)

type Server struct {
	db    *db.DB
	stats *stats.Engine
	loc   *time.Location
}

func New(database *db.DB, engine *stats.Engine, loc *time.Location) *Server {
	return &Server{db: database, stats: engine, loc: loc}
}

// today is the single temporal reference point for a request. It is computed
// once per request in the configured timezone and passed down explicitly;
// aggregations never consult the clock themselves.
func (s *Server) today() time.Time {
	now := time.Now().In(s.loc)
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.loc)
}

func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	// Public
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("POST /api/auth/login", s.handleLogin)

	// Authenticated
	app := http.NewServeMux()
	app.HandleFunc("POST /api/auth/logout", s.handleLogout)
	app.HandleFunc("POST /api/auth/change-password", s.handleChangePassword)

	app.HandleFunc("GET /api/study-records", s.handleListRecords)
	app.HandleFunc("POST /api/study-records", s.handleCreateRecord)
	app.HandleFunc("PUT /api/study-records/{id}", s.handleUpdateRecord)
	app.HandleFunc("DELETE /api/study-records/{id}", s.handleDeleteRecord)

	app.HandleFunc("GET /api/study-stats", s.handleStudyStats)
	app.HandleFunc("GET /api/study-daily", s.handleStudyDaily)
	app.HandleFunc("GET /api/subjects", s.handleListSubjects)

	app.HandleFunc("GET /api/goal", s.handleGetGoal)
	app.HandleFunc("PUT /api/goal", s.handleSetGoal)

	app.HandleFunc("GET /api/events", s.handleListEvents)
	app.HandleFunc("POST /api/events", s.handleCreateEvent)
	app.HandleFunc("PUT /api/events/{id}", s.handleUpdateEvent)
	app.HandleFunc("DELETE /api/events/{id}", s.handleDeleteEvent)

	// Admin
	app.HandleFunc("GET /api/admin/users", s.requireAdmin(s.handleListUsers))
	app.HandleFunc("POST /api/admin/users", s.requireAdmin(s.handleCreateUser))
	app.HandleFunc("POST /api/admin/users/{id}/approve", s.requireAdmin(s.handleApproveUser))
	app.HandleFunc("DELETE /api/admin/users/{id}", s.requireAdmin(s.handleDeleteUser))

	mux.Handle("/api/", s.authMiddleware(app))
	return mux
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
