package reminder

import (
	"math"
	"time"
)

// Tier is the urgency bucket for a bill relative to "now".
type Tier string

const (
	TierOverdue     Tier = "OVERDUE"
	TierDueToday    Tier = "DUE_TODAY"
	TierDueTomorrow Tier = "DUE_TOMORROW"
	TierDueSoon     Tier = "DUE_SOON"      // due in 2-3 days
	TierDueThisWeek Tier = "DUE_THIS_WEEK" // due in 4-7 days
	TierNone        Tier = "NONE"          // more than a week out: no reminder yet
)

// Classify maps a due date and the current instant to an urgency tier and the
// signed calendar-day delta between them. Both instants are floored to
// midnight in loc before subtracting, so time-of-day and DST shifts cannot
// produce off-by-one deltas. A zero due date yields TierNone.
func Classify(due, now time.Time, loc *time.Location) (Tier, int) {
	if due.IsZero() {
		return TierNone, 0
	}
	delta := DayDelta(due, now, loc)
	switch {
	case delta < 0:
		return TierOverdue, delta
	case delta == 0:
		return TierDueToday, delta
	case delta == 1:
		return TierDueTomorrow, delta
	case delta <= 3:
		return TierDueSoon, delta
	case delta <= 7:
		return TierDueThisWeek, delta
	}
	return TierNone, delta
}

// DayDelta returns the calendar-day difference due-now in loc. Rounding, not
// truncating, keeps 23h/25h DST days from shaving a day off the result.
func DayDelta(due, now time.Time, loc *time.Location) int {
	d := midnight(due, loc)
	n := midnight(now, loc)
	return int(math.Round(d.Sub(n).Hours() / 24))
}

// DayOf formats the calendar day of t in loc. Used as the day component of
// ledger keys.
func DayOf(t time.Time, loc *time.Location) string {
	return t.In(loc).Format("2006-01-02")
}

func midnight(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}
