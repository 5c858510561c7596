package engagement

// levelThresholds[i] is the minimum XP for level i+1.
var levelThresholds = []int64{0, 100, 300, 600, 1000, 1500, 2100, 2800, 3600, 4500}

// xpPerLevelAfterTable is the flat XP span of every level past the table.
const xpPerLevelAfterTable = 1000

// XPForLevel returns the cumulative XP required to reach a given level.
// Levels 1..10 come from the threshold table; each level after that costs
// a flat 1000 XP.
func XPForLevel(level int) int64 {
	if level <= 1 {
		return 0
	}
	if level <= len(levelThresholds) {
		return levelThresholds[level-1]
	}
	last := levelThresholds[len(levelThresholds)-1]
	return last + int64(level-len(levelThresholds))*xpPerLevelAfterTable
}

// LevelForXP returns the level for a given XP amount. Negative XP is
// treated as zero.
func LevelForXP(xp int64) int {
	last := levelThresholds[len(levelThresholds)-1]
	if xp >= last {
		return len(levelThresholds) + int((xp-last)/xpPerLevelAfterTable)
	}
	level := 1
	for level < len(levelThresholds) && xp >= levelThresholds[level] {
		level++
	}
	return level
}

// XPToNextLevel returns XP remaining until the level after LevelForXP(xp).
func XPToNextLevel(xp int64) int64 {
	remaining := XPForLevel(LevelForXP(xp)+1) - xp
	if remaining < 0 {
		remaining = 0
	}
	return remaining
}

// ProgressPct returns progress toward level+1 as a percentage (0.0–100.0).
// Level 1 is measured as xp/100.
func ProgressPct(xp int64, level int) float64 {
	var progress float64
	if level <= 1 {
		progress = float64(xp) / float64(levelThresholds[1]) * 100.0
	} else {
		lower := XPForLevel(level)
		upper := XPForLevel(level + 1)
		progress = float64(xp-lower) / float64(upper-lower) * 100.0
	}
	if progress < 0 {
		progress = 0
	}
	if progress > 100 {
		progress = 100
	}
	return progress
}
