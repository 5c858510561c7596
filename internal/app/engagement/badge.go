package engagement

import (
	"slices"

	"github.com/zennify/zennify/internal/domain"
)

// ─── Badge Definitions ──────────────────────────────────────────────────────
// Six badges gated on streak, quest, mood and registration counters.

var badgeCatalog = []domain.BadgeDefinition{
	{
		ID: "newbie", Name: "Newbie", Icon: "star", Color: "#4C66EE",
		Description: "Welcome to your mental wellness journey!",
		Requirement: domain.BadgeRequirement{Kind: domain.RequireRegistration, Threshold: 1},
	},
	{
		ID: "streak-3", Name: "Consistency", Icon: "calendar", Color: "#FF8C42",
		Description: "Logged in for 3 days in a row",
		Requirement: domain.BadgeRequirement{Kind: domain.RequireStreak, Threshold: 3},
	},
	{
		ID: "streak-7", Name: "Wellness Warrior", Icon: "award", Color: "#60A5FA",
		Description: "Maintained a 7-day streak",
		Requirement: domain.BadgeRequirement{Kind: domain.RequireStreak, Threshold: 7},
	},
	{
		ID: "quests-10", Name: "Quest Master", Icon: "check-circle", Color: "#34D399",
		Description: "Completed 10 wellness quests",
		Requirement: domain.BadgeRequirement{Kind: domain.RequireQuests, Threshold: 10},
	},
	{
		ID: "moods-5", Name: "Mood Tracker", Icon: "smile", Color: "#A78BFA",
		Description: "Tracked your mood for 5 days",
		Requirement: domain.BadgeRequirement{Kind: domain.RequireMoods, Threshold: 5},
	},
	{
		ID: "streak-30", Name: "Wellness Guru", Icon: "trophy", Color: "#F59E0B",
		Description: "Maintained a 30-day streak",
		Requirement: domain.BadgeRequirement{Kind: domain.RequireStreak, Threshold: 30},
	},
}

// AllBadges returns a copy of the badge catalog.
func AllBadges() []domain.BadgeDefinition {
	return slices.Clone(badgeCatalog)
}

// BadgeByID looks up a catalog entry.
func BadgeByID(id string) (domain.BadgeDefinition, bool) {
	for _, b := range badgeCatalog {
		if b.ID == id {
			return b, true
		}
	}
	return domain.BadgeDefinition{}, false
}

// EvaluateBadges returns every badge id whose requirement the counters
// satisfy, in catalog order.
func EvaluateBadges(c domain.BadgeCounters) []string {
	var ids []string
	for _, b := range badgeCatalog {
		if c.Value(b.Requirement.Kind) >= b.Requirement.Threshold {
			ids = append(ids, b.ID)
		}
	}
	return ids
}

// NewlyUnlocked returns the ids in satisfied that are not in prev.
func NewlyUnlocked(prev, satisfied []string) []string {
	var delta []string
	for _, id := range satisfied {
		if !slices.Contains(prev, id) {
			delta = append(delta, id)
		}
	}
	return delta
}

// applyBadges re-evaluates p's counters and appends the delta to its
// unlocked set. Existing ids are never removed.
func applyBadges(p *domain.UserProgress) []string {
	delta := NewlyUnlocked(p.UnlockedBadgeIDs, EvaluateBadges(p.Counters()))
	p.UnlockedBadgeIDs = append(p.UnlockedBadgeIDs, delta...)
	return delta
}

// BadgeStatuses pairs the catalog with unlock flags for display.
func BadgeStatuses(unlocked []string) []domain.BadgeStatus {
	out := make([]domain.BadgeStatus, 0, len(badgeCatalog))
	for _, b := range badgeCatalog {
		out = append(out, domain.BadgeStatus{BadgeDefinition: b, Unlocked: slices.Contains(unlocked, b.ID)})
	}
	return out
}
