package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/zennify/zennify/internal/app/engagement"
	"github.com/zennify/zennify/internal/domain"
)

type moodRequest struct {
	Mood string `json:"mood"`
	Note string `json:"note"`
}

func (s *Server) handlePutMood(w http.ResponseWriter, r *http.Request) {
	id := identityFrom(r.Context())
	var req moodRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	mood, err := engagement.ParseMood(req.Mood)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	date := chi.URLParam(r, "date")
	if date == "today" {
		date = s.Moods.TodayKey()
	}
	res, err := s.Moods.Submit(r.Context(), id.UserID, date, mood, req.Note)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	status := http.StatusOK
	if res.Created {
		status = http.StatusCreated
	}
	writeJSON(w, status, res)
}

func (s *Server) handleGetMood(w http.ResponseWriter, r *http.Request) {
	id := identityFrom(r.Context())
	date := chi.URLParam(r, "date")
	if date == "today" {
		date = s.Moods.TodayKey()
	}
	m, err := s.Moods.ForDate(r.Context(), id.UserID, date)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	if m == nil {
		writeError(w, http.StatusNotFound, "no mood logged for "+date)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// handleMoodHistory lists recent moods, or a date range when from and to
// are given.
func (s *Server) handleMoodHistory(w http.ResponseWriter, r *http.Request) {
	id := identityFrom(r.Context())
	q := r.URL.Query()

	var (
		moods []domain.MoodEntry
		err   error
	)
	if from, to := q.Get("from"), q.Get("to"); from != "" || to != "" {
		moods, err = s.Moods.Between(r.Context(), id.UserID, from, to)
	} else {
		limit := 0
		if v := q.Get("limit"); v != "" {
			limit, err = strconv.Atoi(v)
			if err != nil || limit < 0 {
				writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
				return
			}
		}
		moods, err = s.Moods.History(r.Context(), id.UserID, limit)
	}
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"moods": moods,
		"count": len(moods),
	})
}

func (s *Server) handleMoodTrend(w http.ResponseWriter, r *http.Request) {
	id := identityFrom(r.Context())
	trend, err := s.Moods.Trend(r.Context(), id.UserID)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"trend": trend})
}
