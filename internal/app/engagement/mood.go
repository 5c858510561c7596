package engagement

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/zennify/zennify/internal/domain"
	"github.com/zennify/zennify/internal/infra/metrics"
)

// MoodService records at most one mood per user per day. The first entry
// of a day earns the mood bonus and counts toward the streak; later
// submissions for that day only edit the entry.
type MoodService struct {
	*core
}

// NewMoodService creates a mood service.
func NewMoodService(store domain.Store, opts ...Option) *MoodService {
	return &MoodService{core: newCore(store, "moods", opts)}
}

// MoodResult is the stored entry plus the progression change it caused.
type MoodResult struct {
	Entry   domain.MoodEntry `json:"entry"`
	Created bool             `json:"created"`
	Outcome Outcome          `json:"outcome"`
}

// ParseMood validates a mood name.
func ParseMood(s string) (domain.MoodCategory, error) {
	m := domain.MoodCategory(strings.ToLower(strings.TrimSpace(s)))
	if m == "" {
		return "", domain.Invalid("mood", "required")
	}
	if !m.Valid() {
		return "", domain.Invalid("mood", "must be one of terrible, bad, okay, good, great")
	}
	return m, nil
}

// Submit writes the mood for date.
func (m *MoodService) Submit(ctx context.Context, userID, date string, mood domain.MoodCategory, note string) (MoodResult, error) {
	if _, err := domain.ParseDate(date); err != nil {
		return MoodResult{}, domain.Invalid("date", err.Error())
	}
	if date > m.today() {
		return MoodResult{}, domain.Invalid("date", "cannot log a mood for a future day")
	}
	mood, err := ParseMood(string(mood))
	if err != nil {
		return MoodResult{}, err
	}
	note = strings.TrimSpace(note)
	if limit := m.settings.MoodNoteMaxLen; limit > 0 && utf8.RuneCountInString(note) > limit {
		return MoodResult{}, domain.Invalid("note", "too long")
	}

	var res MoodResult
	err = m.inTx(ctx, "submit_mood", userID, func(tx domain.Store) error {
		p, err := loadProgress(ctx, tx, userID)
		if err != nil {
			return err
		}
		res = MoodResult{Outcome: Outcome{Progress: *p, PreviousLevel: p.Level}}

		existing, err := tx.GetMood(ctx, userID, date)
		if err != nil {
			return err
		}
		now := m.now()
		entry := domain.MoodEntry{UserID: userID, Date: date, Mood: mood, Note: note, UpdatedAt: now}
		res.Entry = entry
		if err := tx.PutMood(ctx, entry); err != nil {
			return err
		}
		if existing != nil {
			return nil
		}

		res.Created = true
		p.MoodEntriesCount++
		award(p, m.settings.MoodXPBonus)
		// Backfilled days earn XP but never move the streak.
		if date == m.today() {
			applyStreak(p, date)
		}
		res.Outcome.NewBadges = applyBadges(p)
		p.UpdatedAt = now
		if err := tx.PutProgress(ctx, *p); err != nil {
			return err
		}
		res.Outcome.Progress = *p
		res.Outcome.XPAwarded = m.settings.MoodXPBonus
		res.Outcome.Applied = true
		return nil
	})
	if err != nil {
		return MoodResult{}, err
	}

	kind := "edit"
	if res.Created {
		kind = "new"
	}
	metrics.MoodsLogged.WithLabelValues(string(mood), kind).Inc()
	m.log.Info("mood logged", "user_id", userID, "date", date, "mood", string(mood), "kind", kind)

	ev := domain.Event{
		Type: domain.EventMoodLogged, UserID: userID, At: m.now(),
		Data: map[string]any{"date": date, "mood": string(mood), "score": mood.Score(), "created": res.Created},
	}
	if res.Outcome.Applied {
		m.settle(ctx, "mood", res.Outcome, ev)
	} else {
		m.publish(ctx, ev)
	}
	return res, nil
}

// ForDate returns the entry for date, or nil when none was logged.
func (m *MoodService) ForDate(ctx context.Context, userID, date string) (*domain.MoodEntry, error) {
	if _, err := domain.ParseDate(date); err != nil {
		return nil, domain.Invalid("date", err.Error())
	}
	e, err := m.store.GetMood(ctx, userID, date)
	m.logFailure("get_mood", userID, err)
	return e, err
}

// History returns up to limit entries, newest first. limit <= 0 uses the
// configured history size.
func (m *MoodService) History(ctx context.Context, userID string, limit int) ([]domain.MoodEntry, error) {
	if limit <= 0 {
		limit = m.settings.MoodHistoryLimit
	}
	entries, err := m.store.RecentMoods(ctx, userID, limit)
	if err != nil {
		m.logFailure("recent_moods", userID, err)
		return nil, err
	}
	if entries == nil {
		entries = []domain.MoodEntry{}
	}
	return entries, nil
}

// Trend returns the recent history in chronological order, scored 1..5.
func (m *MoodService) Trend(ctx context.Context, userID string) ([]domain.TrendPoint, error) {
	entries, err := m.History(ctx, userID, 0)
	if err != nil {
		return nil, err
	}
	return TrendOf(entries), nil
}

// Between returns entries in [from, to], oldest first.
func (m *MoodService) Between(ctx context.Context, userID, from, to string) ([]domain.MoodEntry, error) {
	if _, err := domain.ParseDate(from); err != nil {
		return nil, domain.Invalid("from", err.Error())
	}
	if _, err := domain.ParseDate(to); err != nil {
		return nil, domain.Invalid("to", err.Error())
	}
	if from > to {
		return nil, domain.Invalid("from", "must not be after to")
	}
	entries, err := m.store.MoodsBetween(ctx, userID, from, to)
	m.logFailure("moods_between", userID, err)
	return entries, err
}

// TrendOf converts newest-first entries into chronological chart points.
func TrendOf(newestFirst []domain.MoodEntry) []domain.TrendPoint {
	out := make([]domain.TrendPoint, 0, len(newestFirst))
	for i := len(newestFirst) - 1; i >= 0; i-- {
		e := newestFirst[i]
		label := e.Date
		if t, err := domain.ParseDate(e.Date); err == nil {
			label = t.Format("01/02")
		}
		out = append(out, domain.TrendPoint{Date: e.Date, Label: label, Mood: e.Mood, Score: e.Mood.Score()})
	}
	return out
}
