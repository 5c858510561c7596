package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/zennify/zennify/internal/app/engagement"
	"github.com/zennify/zennify/internal/domain"
)

type questListResponse struct {
	Date      string                 `json:"date"`
	Quests    []domain.QuestInstance `json:"quests"`
	Completed int                    `json:"completed"`
	Total     int                    `json:"total"`
}

type createQuestRequest struct {
	Date string `json:"date"`
	engagement.QuestDraft
}

func (s *Server) handleQuests(w http.ResponseWriter, r *http.Request) {
	id := identityFrom(r.Context())
	q := r.URL.Query()
	filter := engagement.QuestFilter{
		Category: domain.QuestCategory(q.Get("category")),
		Status:   engagement.QuestStatus(q.Get("status")),
	}
	if err := filter.Validate(); err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	var (
		a   *domain.DailyQuestAssignment
		err error
	)
	if date := q.Get("date"); date == "" {
		a, err = s.Quests.Today(r.Context(), id.UserID)
	} else {
		a, err = s.Quests.ForDate(r.Context(), id.UserID, date)
	}
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	completed := 0
	for _, qi := range a.Quests {
		if qi.Completed {
			completed++
		}
	}
	writeJSON(w, http.StatusOK, questListResponse{
		Date:      a.Date,
		Quests:    filter.Apply(a.Quests),
		Completed: completed,
		Total:     len(a.Quests),
	})
}

func (s *Server) handleCreateQuest(w http.ResponseWriter, r *http.Request) {
	id := identityFrom(r.Context())
	var req createQuestRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	date := req.Date
	if date == "" {
		date = s.Quests.TodayKey()
	}
	inst, err := s.Quests.CreateCustom(r.Context(), id.UserID, date, req.QuestDraft)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, inst)
}

func (s *Server) handleCompleteQuest(w http.ResponseWriter, r *http.Request) {
	id := identityFrom(r.Context())
	out, err := s.Quests.Complete(r.Context(), id.UserID, chi.URLParam(r, "date"), chi.URLParam(r, "questID"))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}
