package engagement

import (
	"context"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/zennify/zennify/internal/domain"
	"github.com/zennify/zennify/internal/infra/metrics"
)

// QuestService manages daily quest assignments.
// Each (user, date) gets one assignment, created lazily for today by
// sampling the catalog. Past dates are never backfilled.
type QuestService struct {
	*core
}

// NewQuestService creates a quest service.
func NewQuestService(store domain.Store, opts ...Option) *QuestService {
	return &QuestService{core: newCore(store, "quests", opts)}
}

// Today returns today's assignment, creating it on first access.
func (q *QuestService) Today(ctx context.Context, userID string) (*domain.DailyQuestAssignment, error) {
	today := q.today()
	var out *domain.DailyQuestAssignment
	err := q.inTx(ctx, "today_quests", userID, func(tx domain.Store) error {
		a, err := q.getOrCreate(ctx, tx, userID, today)
		out = a
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// getOrCreate returns the stored assignment for date, or samples a new
// one and persists it.
func (q *QuestService) getOrCreate(ctx context.Context, tx domain.Store, userID, date string) (*domain.DailyQuestAssignment, error) {
	a, err := tx.GetDailyQuests(ctx, userID, date)
	if err != nil || a != nil {
		return a, err
	}
	templates := q.sample(q.settings.DailyQuestCount)
	a = &domain.DailyQuestAssignment{
		UserID: userID,
		Date:   date,
		Quests: make([]domain.QuestInstance, 0, len(templates)),
	}
	for _, t := range templates {
		a.Quests = append(a.Quests, instanceOf(t, t.ID))
	}
	if err := tx.PutDailyQuests(ctx, *a); err != nil {
		return nil, err
	}
	q.log.Debug("assigned daily quests", "user_id", userID, "date", date, "count", len(a.Quests))
	return a, nil
}

// ForDate returns the assignment for date. Today is created on demand;
// any other date without a stored assignment yields an empty one.
func (q *QuestService) ForDate(ctx context.Context, userID, date string) (*domain.DailyQuestAssignment, error) {
	if _, err := domain.ParseDate(date); err != nil {
		return nil, domain.Invalid("date", err.Error())
	}
	if date == q.today() {
		return q.Today(ctx, userID)
	}
	a, err := q.store.GetDailyQuests(ctx, userID, date)
	if err != nil {
		q.logFailure("get_quests", userID, err)
		return nil, err
	}
	if a == nil {
		return &domain.DailyQuestAssignment{UserID: userID, Date: date, Quests: []domain.QuestInstance{}}, nil
	}
	return a, nil
}

// Complete marks a quest done and credits its points. Completing a quest
// that is already done, or that is not in the date's assignment, changes
// nothing and returns an outcome with Applied false.
//
// The completion flag, quest counter, XP, level and badge set are written
// in one transaction.
func (q *QuestService) Complete(ctx context.Context, userID, date, questID string) (Outcome, error) {
	if _, err := domain.ParseDate(date); err != nil {
		return Outcome{}, domain.Invalid("date", err.Error())
	}
	if questID == "" {
		return Outcome{}, domain.Invalid("quest_id", "required")
	}

	var (
		out   Outcome
		quest domain.QuestInstance
	)
	err := q.inTx(ctx, "complete_quest", userID, func(tx domain.Store) error {
		p, err := loadProgress(ctx, tx, userID)
		if err != nil {
			return err
		}
		out = Outcome{Progress: *p, PreviousLevel: p.Level}

		a, err := tx.GetDailyQuests(ctx, userID, date)
		if err != nil || a == nil {
			return err
		}
		i := a.Find(questID)
		if i < 0 || a.Quests[i].Completed {
			return nil
		}

		now := q.now()
		a.Quests[i].Completed = true
		a.Quests[i].CompletedAt = &now
		quest = a.Quests[i]
		if err := tx.PutDailyQuests(ctx, *a); err != nil {
			return err
		}

		p.QuestsCompletedCount++
		award(p, quest.Points)
		out.NewBadges = applyBadges(p)
		p.UpdatedAt = now
		if err := tx.PutProgress(ctx, *p); err != nil {
			return err
		}
		out.Progress = *p
		out.XPAwarded = quest.Points
		out.Applied = true
		return nil
	})
	if err != nil {
		return Outcome{}, err
	}

	if out.Applied {
		metrics.QuestsCompleted.WithLabelValues(string(quest.Category)).Inc()
		q.log.Info("quest completed", "user_id", userID, "date", date, "quest", questID, "points", quest.Points)
	}
	q.settle(ctx, "quest", out, domain.Event{
		Type: domain.EventQuestCompleted, UserID: userID, At: q.now(),
		Data: map[string]any{"date": date, "quest_id": questID, "points": quest.Points},
	})
	return out, nil
}

// QuestDraft is user input for a custom quest.
type QuestDraft struct {
	Title        string               `json:"title"`
	Description  string               `json:"description"`
	Points       int64                `json:"points"`
	Category     domain.QuestCategory `json:"category"`
	TimeEstimate string               `json:"time_estimate"`
}

const (
	defaultCustomPoints   = 10
	defaultCustomCategory = domain.QuestMeditation
	defaultCustomEstimate = "10 min"
	maxCustomTitleLen     = 80
)

// normalize fills defaults and validates the draft.
func (d QuestDraft) normalize(maxPoints int64) (QuestDraft, error) {
	d.Title = strings.TrimSpace(d.Title)
	d.Description = strings.TrimSpace(d.Description)
	d.TimeEstimate = strings.TrimSpace(d.TimeEstimate)

	if d.Title == "" {
		return d, domain.Invalid("title", "required")
	}
	if utf8.RuneCountInString(d.Title) > maxCustomTitleLen {
		return d, domain.Invalid("title", "too long")
	}
	if d.Points == 0 {
		d.Points = defaultCustomPoints
	}
	if d.Points < 1 || d.Points > maxPoints {
		return d, domain.Invalid("points", "must be between 1 and "+strconv.FormatInt(maxPoints, 10))
	}
	if d.Category == "" {
		d.Category = defaultCustomCategory
	}
	if !d.Category.Valid() {
		return d, domain.Invalid("category", "unknown category "+string(d.Category))
	}
	if d.TimeEstimate == "" {
		d.TimeEstimate = defaultCustomEstimate
	}
	return d, nil
}

// CreateCustom appends a user-defined quest to the date's assignment.
// Today's assignment is sampled first if it does not exist yet so the
// custom quest joins the regular ones. Stats are not touched.
func (q *QuestService) CreateCustom(ctx context.Context, userID, date string, draft QuestDraft) (domain.QuestInstance, error) {
	if _, err := domain.ParseDate(date); err != nil {
		return domain.QuestInstance{}, domain.Invalid("date", err.Error())
	}
	d, err := draft.normalize(q.settings.CustomQuestMaxPoints)
	if err != nil {
		return domain.QuestInstance{}, err
	}

	inst := domain.QuestInstance{
		ID:           uuid.New().String(),
		Title:        d.Title,
		Description:  d.Description,
		Points:       d.Points,
		Category:     d.Category,
		TimeEstimate: d.TimeEstimate,
	}
	err = q.inTx(ctx, "create_custom_quest", userID, func(tx domain.Store) error {
		var a *domain.DailyQuestAssignment
		var err error
		if date == q.today() {
			a, err = q.getOrCreate(ctx, tx, userID, date)
		} else {
			a, err = tx.GetDailyQuests(ctx, userID, date)
		}
		if err != nil {
			return err
		}
		if a == nil {
			a = &domain.DailyQuestAssignment{UserID: userID, Date: date}
		}
		a.Quests = append(a.Quests, inst)
		return tx.PutDailyQuests(ctx, *a)
	})
	if err != nil {
		return domain.QuestInstance{}, err
	}
	q.log.Info("custom quest created", "user_id", userID, "date", date, "quest", inst.ID)
	return inst, nil
}

// ─── Filtering ──────────────────────────────────────────────────────────────

// QuestStatus selects quests by completion.
type QuestStatus string

const (
	StatusAll       QuestStatus = ""
	StatusActive    QuestStatus = "active"
	StatusCompleted QuestStatus = "completed"
)

// QuestFilter narrows an assignment for display. Zero values match all.
type QuestFilter struct {
	Category domain.QuestCategory
	Status   QuestStatus
}

// Validate rejects unknown categories and statuses.
func (f QuestFilter) Validate() error {
	if f.Category != "" && !f.Category.Valid() {
		return domain.Invalid("category", "unknown category "+string(f.Category))
	}
	switch f.Status {
	case StatusAll, StatusActive, StatusCompleted:
		return nil
	}
	return domain.Invalid("status", "must be active or completed")
}

// Apply returns the quests matching f, preserving assignment order.
func (f QuestFilter) Apply(quests []domain.QuestInstance) []domain.QuestInstance {
	out := make([]domain.QuestInstance, 0, len(quests))
	for _, q := range quests {
		if f.Category != "" && q.Category != f.Category {
			continue
		}
		if f.Status == StatusActive && q.Completed {
			continue
		}
		if f.Status == StatusCompleted && !q.Completed {
			continue
		}
		out = append(out, q)
	}
	return out
}
