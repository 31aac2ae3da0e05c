package billing

import (
	"time"

	"github.com/ManuelReschke/PlayerFolio/app/models"
)

// NextRenewal returns from plus one billing period of plan. Month and year
// arithmetic clamps to the last valid day, so Jan 31 + 1 month is the last
// day of February. The second return value is false for unpaid plans.
func NextRenewal(plan models.SubscriptionPlan, from time.Time) (time.Time, bool) {
	switch plan {
	case models.PlanMonthly:
		return addMonthsClamped(from, 1), true
	case models.PlanYearly:
		return addMonthsClamped(from, 12), true
	default:
		return time.Time{}, false
	}
}

func addMonthsClamped(t time.Time, months int) time.Time {
	year, month, day := t.Date()
	hour, minute, sec := t.Clock()

	total := int(month) - 1 + months
	targetYear := year + total/12
	targetMonth := time.Month(total%12 + 1)

	if last := daysIn(targetYear, targetMonth, t.Location()); day > last {
		day = last
	}
	return time.Date(targetYear, targetMonth, day, hour, minute, sec, t.Nanosecond(), t.Location())
}

func daysIn(year int, month time.Month, loc *time.Location) int {
	// day 0 of the following month is the last day of month
	return time.Date(year, month+1, 0, 0, 0, 0, 0, loc).Day()
}
