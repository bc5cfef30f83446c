package services

import (
	"time"

	"reward-ledger/models"
)

const dayLayout = "2006-01-02"

// Calendar is the single time reference every dedup decision uses. All nodes
// must be configured with the same Location.
type Calendar struct {
	Location *time.Location
	Now      func() time.Time
}

func (c Calendar) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

func (c Calendar) location() *time.Location {
	if c.Location != nil {
		return c.Location
	}
	return time.UTC
}

// Today is the current calendar day in the canonical timezone.
func (c Calendar) Today() string {
	return CalendarDay(c.now(), c.location())
}

func CalendarDay(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format(dayLayout)
}

// ShouldGrant reports whether a reward keyed by key may be granted today.
// Call it only while holding the user row lock, and follow an allowed grant
// with MarkGranted in the same transaction.
func ShouldGrant(st models.GamificationState, key, today string) bool {
	last, ok := st.DailyLimits[key]
	return !ok || last != today
}

// MarkGranted records that key was granted today.
func MarkGranted(st models.GamificationState, key, today string) models.GamificationState {
	limits := make(map[string]string, len(st.DailyLimits)+1)
	for k, v := range st.DailyLimits {
		limits[k] = v
	}
	limits[key] = today
	st.DailyLimits = limits
	return st
}

// PruneDailyLimits drops every marker not dated today. A stale marker never
// blocks a grant, so removing it cannot change any decision. The int is the
// number of markers removed.
func PruneDailyLimits(st models.GamificationState, today string) (models.GamificationState, int) {
	removed := 0
	limits := make(map[string]string, len(st.DailyLimits))
	for k, v := range st.DailyLimits {
		if v == today {
			limits[k] = v
			continue
		}
		removed++
	}
	st.DailyLimits = limits
	return st, removed
}
