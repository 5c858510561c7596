package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/zennify/zennify/internal/app/engagement"
)

func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	id := identityFrom(r.Context())
	view, err := s.Progress.View(r.Context(), id.UserID)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleBadges(w http.ResponseWriter, r *http.Request) {
	id := identityFrom(r.Context())
	p, err := s.Progress.Get(r.Context(), id.UserID)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"badges": engagement.BadgeStatuses(p.UnlockedBadgeIDs),
	})
}

func (s *Server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	quests := engagement.SearchCatalog(r.URL.Query().Get("q"))
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"quests": quests,
		"count":  len(quests),
	})
}

// ─── Notifications ──────────────────────────────────────────────────────────

func (s *Server) handleNotifications(w http.ResponseWriter, r *http.Request) {
	id := identityFrom(r.Context())
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}
	pending, err := s.Notifications.Pending(r.Context(), id.UserID, limit)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"notifications": pending,
		"count":         len(pending),
	})
}

func (s *Server) handleNotificationShown(w http.ResponseWriter, r *http.Request) {
	id := identityFrom(r.Context())
	if err := s.Notifications.MarkShown(r.Context(), id.UserID, chi.URLParam(r, "id")); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
