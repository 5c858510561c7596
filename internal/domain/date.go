package domain

import "time"

// DateLayout is the day-granularity key used for quest and mood documents.
const DateLayout = "2006-01-02"

// DateKey formats t as YYYY-MM-DD in loc (UTC when loc is nil).
func DateKey(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format(DateLayout)
}

// ParseDate validates a YYYY-MM-DD key.
func ParseDate(key string) (time.Time, error) {
	t, err := time.Parse(DateLayout, key)
	if err != nil {
		return time.Time{}, ErrInvalidDate
	}
	return t, nil
}

// AddDays shifts a valid date key by n days.
func AddDays(key string, n int) (string, error) {
	t, err := ParseDate(key)
	if err != nil {
		return "", err
	}
	return t.AddDate(0, 0, n).Format(DateLayout), nil
}
