package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/zennify/zennify/internal/domain"
)

// ─── Progress ───────────────────────────────────────────────────────────────

// GetProgress retrieves a user's progress record. Returns (nil, nil) if absent.
func (d *DB) GetProgress(ctx context.Context, userID string) (*domain.UserProgress, error) {
	row := d.q.QueryRowContext(ctx,
		`SELECT user_id, username, xp, level, streak_days, longest_streak, last_activity_date,
		        quests_completed, mood_entries, badges, created_at, updated_at
		 FROM progress WHERE user_id = ?`, userID,
	)
	p, err := scanProgress(row)
	return p, domain.Remote("get progress", err)
}

// PutProgress inserts or replaces a progress record.
func (d *DB) PutProgress(ctx context.Context, p domain.UserProgress) error {
	badges := p.UnlockedBadgeIDs
	if badges == nil {
		badges = []string{}
	}
	badgesJSON, err := encodeJSON(badges)
	if err != nil {
		return fmt.Errorf("encode badges: %w", err)
	}
	_, err = d.q.ExecContext(ctx,
		`INSERT INTO progress (user_id, username, xp, level, streak_days, longest_streak, last_activity_date,
		                       quests_completed, mood_entries, badges, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET
			username=excluded.username,
			xp=excluded.xp,
			level=excluded.level,
			streak_days=excluded.streak_days,
			longest_streak=excluded.longest_streak,
			last_activity_date=excluded.last_activity_date,
			quests_completed=excluded.quests_completed,
			mood_entries=excluded.mood_entries,
			badges=excluded.badges,
			updated_at=excluded.updated_at`,
		p.UserID, p.Username, p.ExperiencePoints, p.Level, p.StreakDays, p.LongestStreak,
		p.LastActivityDate, p.QuestsCompletedCount, p.MoodEntriesCount, badgesJSON,
		p.CreatedAt.Unix(), p.UpdatedAt.Unix(),
	)
	return domain.Remote("put progress", err)
}

func scanProgress(s scanner) (*domain.UserProgress, error) {
	var p domain.UserProgress
	var badges string
	var createdAt, updatedAt int64
	err := s.Scan(&p.UserID, &p.Username, &p.ExperiencePoints, &p.Level, &p.StreakDays,
		&p.LongestStreak, &p.LastActivityDate, &p.QuestsCompletedCount, &p.MoodEntriesCount,
		&badges, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil // Not found, no error
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(badges), &p.UnlockedBadgeIDs); err != nil {
		return nil, fmt.Errorf("decode badges: %w", err)
	}
	if p.UnlockedBadgeIDs == nil {
		p.UnlockedBadgeIDs = []string{}
	}
	p.CreatedAt = unixOrZero(createdAt)
	p.UpdatedAt = unixOrZero(updatedAt)
	return &p, nil
}

// ─── Daily Quests ───────────────────────────────────────────────────────────

// GetDailyQuests retrieves the assignment for (user, date). Returns (nil, nil) if absent.
func (d *DB) GetDailyQuests(ctx context.Context, userID, date string) (*domain.DailyQuestAssignment, error) {
	var raw string
	err := d.q.QueryRowContext(ctx,
		`SELECT quests FROM daily_quests WHERE user_id = ? AND date = ?`, userID, date,
	).Scan(&raw)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, domain.Remote("get daily quests", err)
	}
	a := &domain.DailyQuestAssignment{UserID: userID, Date: date}
	if err := json.Unmarshal([]byte(raw), &a.Quests); err != nil {
		return nil, fmt.Errorf("decode quests: %w", err)
	}
	if a.Quests == nil {
		a.Quests = []domain.QuestInstance{}
	}
	return a, nil
}

// PutDailyQuests creates or replaces the assignment for (user, date).
func (d *DB) PutDailyQuests(ctx context.Context, a domain.DailyQuestAssignment) error {
	quests := a.Quests
	if quests == nil {
		quests = []domain.QuestInstance{}
	}
	raw, err := encodeJSON(quests)
	if err != nil {
		return fmt.Errorf("encode quests: %w", err)
	}
	_, err = d.q.ExecContext(ctx,
		`INSERT INTO daily_quests (user_id, date, quests) VALUES (?, ?, ?)
		 ON CONFLICT(user_id, date) DO UPDATE SET quests=excluded.quests`,
		a.UserID, a.Date, raw,
	)
	return domain.Remote("put daily quests", err)
}

// ─── Moods ──────────────────────────────────────────────────────────────────

// GetMood retrieves the entry for (user, date). Returns (nil, nil) if absent.
func (d *DB) GetMood(ctx context.Context, userID, date string) (*domain.MoodEntry, error) {
	row := d.q.QueryRowContext(ctx,
		`SELECT user_id, date, mood, note, updated_at FROM moods WHERE user_id = ? AND date = ?`,
		userID, date,
	)
	m, err := scanMood(row)
	return m, domain.Remote("get mood", err)
}

// PutMood creates or replaces the entry for (user, date).
func (d *DB) PutMood(ctx context.Context, m domain.MoodEntry) error {
	_, err := d.q.ExecContext(ctx,
		`INSERT INTO moods (user_id, date, mood, note, updated_at) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(user_id, date) DO UPDATE SET
			mood=excluded.mood,
			note=excluded.note,
			updated_at=excluded.updated_at`,
		m.UserID, m.Date, string(m.Mood), m.Note, m.UpdatedAt.Unix(),
	)
	return domain.Remote("put mood", err)
}

// RecentMoods returns up to limit entries ordered by date descending.
func (d *DB) RecentMoods(ctx context.Context, userID string, limit int) ([]domain.MoodEntry, error) {
	rows, err := d.q.QueryContext(ctx,
		`SELECT user_id, date, mood, note, updated_at FROM moods
		 WHERE user_id = ? ORDER BY date DESC LIMIT ?`, userID, limit,
	)
	if err != nil {
		return nil, domain.Remote("recent moods", err)
	}
	return collectMoods(rows)
}

// MoodsBetween returns entries with from <= date <= to, ordered by date ascending.
func (d *DB) MoodsBetween(ctx context.Context, userID, from, to string) ([]domain.MoodEntry, error) {
	rows, err := d.q.QueryContext(ctx,
		`SELECT user_id, date, mood, note, updated_at FROM moods
		 WHERE user_id = ? AND date >= ? AND date <= ? ORDER BY date ASC`, userID, from, to,
	)
	if err != nil {
		return nil, domain.Remote("moods between", err)
	}
	return collectMoods(rows)
}

func collectMoods(rows *sql.Rows) ([]domain.MoodEntry, error) {
	defer rows.Close()

	moods := []domain.MoodEntry{}
	for rows.Next() {
		m, err := scanMood(rows)
		if err != nil {
			return nil, domain.Remote("scan mood", err)
		}
		moods = append(moods, *m)
	}
	return moods, domain.Remote("scan moods", rows.Err())
}

func scanMood(s scanner) (*domain.MoodEntry, error) {
	var m domain.MoodEntry
	var mood string
	var updatedAt int64
	err := s.Scan(&m.UserID, &m.Date, &mood, &m.Note, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	m.Mood = domain.MoodCategory(mood)
	m.UpdatedAt = unixOrZero(updatedAt)
	return &m, nil
}
