package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/skilldesk/skilldesk/internal/content"
	"github.com/skilldesk/skilldesk/internal/events"
	"github.com/skilldesk/skilldesk/internal/platform/cache"
	"github.com/skilldesk/skilldesk/internal/platform/database"
	"github.com/skilldesk/skilldesk/internal/progress"
	"github.com/skilldesk/skilldesk/internal/report"
)

// app wires the core into the HTTP surface consumed by the course player and
// the dashboards. Authorization lives in front of this server, not here.
type app struct {
	ledger   *progress.Ledger
	users    progress.Store
	hub      *events.Hub
	db       *database.DB
	cache    *cache.Cache
	cacheTTL time.Duration
}

func (a *app) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", a.handleHealthz)
	mux.HandleFunc("GET /readyz", a.handleReadyz)
	mux.HandleFunc("POST /api/users/{userID}/courses/{courseID}/completions", a.handleRecordCompletion)
	mux.HandleFunc("GET /api/users/{userID}/courses/{courseID}/progress", a.handleCourseProgress)
	mux.HandleFunc("GET /api/users/{userID}/progress", a.handleOverall)
	mux.HandleFunc("GET /api/brands/{brandID}/teams/{teamID}/progress", a.handleTeamProgress)
	mux.HandleFunc("GET /api/brands/{brandID}/teams/{teamID}/report.xlsx", a.handleTeamReport)
	mux.Handle("GET /ws/events", a.hub)
	return mux
}

func (a *app) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *app) handleReadyz(w http.ResponseWriter, r *http.Request) {
	if err := a.db.HealthCheck(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "database unavailable"})
		return
	}
	if a.cache != nil {
		if err := a.cache.HealthCheck(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "cache unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (a *app) handleRecordCompletion(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ItemIndex int `json:"item_index"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	rec, err := a.ledger.RecordCompletion(r.Context(), r.PathValue("userID"), r.PathValue("courseID"), body.ItemIndex)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (a *app) handleCourseProgress(w http.ResponseWriter, r *http.Request) {
	rec, err := a.ledger.CourseProgress(r.Context(), r.PathValue("userID"), r.PathValue("courseID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (a *app) handleOverall(w http.ResponseWriter, r *http.Request) {
	overall, err := a.ledger.Overall(r.Context(), r.PathValue("userID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, overall)
}

// handleTeamProgress serves the team dashboard. On store failure the
// dashboard degrades to the last cached snapshot, or an empty overview,
// rather than an error page.
func (a *app) handleTeamProgress(w http.ResponseWriter, r *http.Request) {
	brandID, teamID := r.PathValue("brandID"), r.PathValue("teamID")
	key := fmt.Sprintf("team-progress:%s:%s", brandID, teamID)

	team, err := a.ledger.Team(r.Context(), brandID, teamID)
	if err != nil {
		slog.Error("team aggregation failed", "brand_id", brandID, "team_id", teamID, "error", err)
		cached := &progress.TeamOverview{BrandID: brandID, TeamID: teamID, Members: []progress.Overall{}}
		if a.cache != nil {
			if err := a.cache.GetJSON(r.Context(), key, cached); err != nil && !errors.Is(err, cache.ErrMiss) {
				slog.Warn("snapshot read failed", "key", key, "error", err)
			}
		}
		writeJSON(w, http.StatusOK, cached)
		return
	}

	if a.cache != nil {
		if err := a.cache.SetJSON(r.Context(), key, team, a.cacheTTL); err != nil {
			slog.Warn("snapshot write failed", "key", key, "error", err)
		}
	}
	writeJSON(w, http.StatusOK, team)
}

func (a *app) handleTeamReport(w http.ResponseWriter, r *http.Request) {
	brandID, teamID := r.PathValue("brandID"), r.PathValue("teamID")

	team, err := a.ledger.Team(r.Context(), brandID, teamID)
	if err != nil {
		writeError(w, err)
		return
	}
	members, err := a.users.ListTeamUsers(r.Context(), brandID, teamID)
	if err != nil {
		writeError(w, err)
		return
	}

	f, err := report.TeamWorkbook(team, members)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "team-progress-"+teamID+".xlsx"))
	if err := f.Write(w); err != nil {
		slog.Error("report write failed", "error", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("response encode failed", "error", err)
	}
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, content.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
	case errors.Is(err, progress.ErrIndexOutOfRange), errors.Is(err, content.ErrInvalidInput):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, content.ErrContention):
		writeJSON(w, http.StatusConflict, map[string]string{"error": "concurrent modification, retry"})
	default:
		slog.Error("request failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}
