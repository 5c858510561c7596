// Package engagement implements the Zennify progression engine: levels,
// badges, daily quests, mood logging and streaks.
package engagement

import "github.com/zennify/zennify/internal/domain"

// NextStreak applies the streak-continuation rule for a qualifying
// activity on day, given the previous activity date last.
//
// If last is the day before, the streak extends. Otherwise it resets to 1.
// changed is false when the activity does not move the streak: a repeat
// on the same day, or a backfill for a day before last.
func NextStreak(current int, last, day string) (next int, changed bool) {
	if last != "" && day <= last {
		return current, false
	}
	if last != "" {
		if yesterday, err := domain.AddDays(day, -1); err == nil && yesterday == last {
			return current + 1, true
		}
	}
	return 1, true
}

// applyStreak records a qualifying activity on day against p.
func applyStreak(p *domain.UserProgress, day string) bool {
	next, changed := NextStreak(p.StreakDays, p.LastActivityDate, day)
	if !changed {
		return false
	}
	p.StreakDays = next
	p.LastActivityDate = day
	if p.StreakDays > p.LongestStreak {
		p.LongestStreak = p.StreakDays
	}
	return true
}
