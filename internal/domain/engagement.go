// Package domain holds the progression types, errors and store interfaces.
// The engagement engine drives the wellness loop: daily quests, mood logging,
// XP and levels, streaks and badges.
package domain

import (
	"slices"
	"time"
)

// ─── Progress Aggregate ─────────────────────────────────────────────────────

// UserProgress is the per-user progression record.
// Level is always LevelForXP(ExperiencePoints) after any write.
type UserProgress struct {
	UserID               string    `json:"user_id" bson:"_id"`
	Username             string    `json:"username" bson:"username"`
	ExperiencePoints     int64     `json:"experience_points" bson:"experience_points"`
	Level                int       `json:"level" bson:"level"`
	StreakDays           int       `json:"streak_days" bson:"streak_days"`
	LongestStreak        int       `json:"longest_streak" bson:"longest_streak"`
	LastActivityDate     string    `json:"last_activity_date" bson:"last_activity_date"` // YYYY-MM-DD
	QuestsCompletedCount int       `json:"quests_completed_count" bson:"quests_completed_count"`
	MoodEntriesCount     int       `json:"mood_entries_count" bson:"mood_entries_count"`
	UnlockedBadgeIDs     []string  `json:"unlocked_badge_ids" bson:"unlocked_badge_ids"`
	CreatedAt            time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt            time.Time `json:"updated_at" bson:"updated_at"`
}

// HasBadge reports whether the badge id is already unlocked.
func (p UserProgress) HasBadge(id string) bool {
	return slices.Contains(p.UnlockedBadgeIDs, id)
}

// Counters returns the badge-relevant counters of this record.
func (p UserProgress) Counters() BadgeCounters {
	return BadgeCounters{
		QuestsCompleted: p.QuestsCompletedCount,
		StreakDays:      p.StreakDays,
		MoodEntries:     p.MoodEntriesCount,
		Registered:      p.UserID != "",
	}
}

// ─── Badges ─────────────────────────────────────────────────────────────────

// RequirementKind names the counter a badge is gated on.
type RequirementKind string

const (
	RequireStreak       RequirementKind = "streak"
	RequireQuests       RequirementKind = "quests"
	RequireMoods        RequirementKind = "moods"
	RequireRegistration RequirementKind = "registration"
)

// BadgeRequirement unlocks a badge once Kind's counter reaches Threshold.
type BadgeRequirement struct {
	Kind      RequirementKind `json:"kind"`
	Threshold int             `json:"threshold"`
}

// BadgeDefinition is an immutable catalog entry.
type BadgeDefinition struct {
	ID          string           `json:"id"`
	Name        string           `json:"name"`
	Description string           `json:"description"`
	Icon        string           `json:"icon"`
	Color       string           `json:"color"`
	Requirement BadgeRequirement `json:"requirement"`
}

// BadgeCounters is the snapshot fed to badge evaluation.
type BadgeCounters struct {
	QuestsCompleted int  `json:"quests_completed"`
	StreakDays      int  `json:"streak_days"`
	MoodEntries     int  `json:"mood_entries"`
	Registered      bool `json:"registered"`
}

// Value returns the counter a requirement kind refers to.
func (c BadgeCounters) Value(kind RequirementKind) int {
	switch kind {
	case RequireStreak:
		return c.StreakDays
	case RequireQuests:
		return c.QuestsCompleted
	case RequireMoods:
		return c.MoodEntries
	case RequireRegistration:
		if c.Registered {
			return 1
		}
	}
	return 0
}

// BadgeStatus pairs a definition with its unlock state for display.
type BadgeStatus struct {
	BadgeDefinition
	Unlocked bool `json:"unlocked"`
}

// ─── Quests ─────────────────────────────────────────────────────────────────

// QuestCategory is the fixed set of wellness quest kinds.
type QuestCategory string

const (
	QuestMeditation  QuestCategory = "meditation"
	QuestExercise    QuestCategory = "exercise"
	QuestMindfulness QuestCategory = "mindfulness"
	QuestGratitude   QuestCategory = "gratitude"
	QuestMood        QuestCategory = "mood"
)

// QuestCategories lists every valid category in display order.
var QuestCategories = []QuestCategory{
	QuestMeditation, QuestExercise, QuestMindfulness, QuestGratitude, QuestMood,
}

// Valid reports whether c is a known category.
func (c QuestCategory) Valid() bool {
	return slices.Contains(QuestCategories, c)
}

// QuestTemplate is an immutable quest definition.
type QuestTemplate struct {
	ID           string        `json:"id"`
	Title        string        `json:"title"`
	Description  string        `json:"description"`
	Points       int64         `json:"points"`
	Category     QuestCategory `json:"category"`
	TimeEstimate string        `json:"time_estimate"`
}

// QuestInstance is a copy of a template assigned to a specific day.
type QuestInstance struct {
	ID           string        `json:"id" bson:"id"`
	TemplateID   string        `json:"template_id,omitempty" bson:"template_id,omitempty"`
	Title        string        `json:"title" bson:"title"`
	Description  string        `json:"description" bson:"description"`
	Points       int64         `json:"points" bson:"points"`
	Category     QuestCategory `json:"category" bson:"category"`
	TimeEstimate string        `json:"time_estimate" bson:"time_estimate"`
	Completed    bool          `json:"completed" bson:"completed"`
	CompletedAt  *time.Time    `json:"completed_at,omitempty" bson:"completed_at,omitempty"`
}

// DailyQuestAssignment holds one user's quests for one calendar day.
// Membership and order are fixed once created; only Completed flags change.
type DailyQuestAssignment struct {
	UserID string          `json:"user_id" bson:"user_id"`
	Date   string          `json:"date" bson:"date"`
	Quests []QuestInstance `json:"quests" bson:"quests"`
}

// Find returns the index of the quest with the given id, or -1.
func (a DailyQuestAssignment) Find(questID string) int {
	for i, q := range a.Quests {
		if q.ID == questID {
			return i
		}
	}
	return -1
}

// CompletedCount returns how many quests are done.
func (a DailyQuestAssignment) CompletedCount() int {
	n := 0
	for _, q := range a.Quests {
		if q.Completed {
			n++
		}
	}
	return n
}

// ─── Mood ───────────────────────────────────────────────────────────────────

// MoodCategory is the ordered mood scale terrible < bad < okay < good < great.
type MoodCategory string

const (
	MoodTerrible MoodCategory = "terrible"
	MoodBad      MoodCategory = "bad"
	MoodOkay     MoodCategory = "okay"
	MoodGood     MoodCategory = "good"
	MoodGreat    MoodCategory = "great"
)

var moodScale = []MoodCategory{MoodTerrible, MoodBad, MoodOkay, MoodGood, MoodGreat}

// Score maps the mood to 1..5, or 0 for an unknown value.
func (m MoodCategory) Score() int {
	return slices.Index(moodScale, m) + 1
}

// Valid reports whether m is on the scale.
func (m MoodCategory) Valid() bool { return m.Score() > 0 }

// MoodEntry is at most one per user per day.
type MoodEntry struct {
	UserID    string       `json:"user_id" bson:"user_id"`
	Date      string       `json:"date" bson:"date"`
	Mood      MoodCategory `json:"mood" bson:"mood"`
	Note      string       `json:"note" bson:"note"`
	UpdatedAt time.Time    `json:"updated_at" bson:"updated_at"`
}

// TrendPoint is one chronological chart sample.
type TrendPoint struct {
	Date  string       `json:"date"`
	Label string       `json:"label"` // MM/DD
	Mood  MoodCategory `json:"mood"`
	Score int          `json:"score"`
}

// ─── Notification Types ─────────────────────────────────────────────────────

// NotificationType categorizes notifications.
type NotificationType string

const (
	NotifyBadge   NotificationType = "badge_unlocked"
	NotifyLevelUp NotificationType = "level_up"
)

// Notification is a user-facing message.
type Notification struct {
	ID        string           `json:"id" bson:"_id"`
	UserID    string           `json:"user_id" bson:"user_id"`
	Type      NotificationType `json:"type" bson:"type"`
	Title     string           `json:"title" bson:"title"`
	Body      string           `json:"body" bson:"body"`
	CreatedAt time.Time        `json:"created_at" bson:"created_at"`
	Shown     bool             `json:"shown" bson:"shown"`
}

// NotificationPolicy governs how often notifications are created.
type NotificationPolicy struct {
	MaxPerDay  int    `json:"max_per_day" toml:"max_per_day"`
	QuietStart string `json:"quiet_start" toml:"quiet_start"` // "22:00"
	QuietEnd   string `json:"quiet_end" toml:"quiet_end"`     // "08:00"
}

// DefaultNotificationPolicy allows a few celebratory messages per day.
func DefaultNotificationPolicy() NotificationPolicy {
	return NotificationPolicy{
		MaxPerDay:  3,
		QuietStart: "22:00",
		QuietEnd:   "08:00",
	}
}
