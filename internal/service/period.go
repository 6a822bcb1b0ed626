package service

import (
	"time"

	"github.com/noah-isme/lms-ranking-api/internal/models"
)

// ResolveWindow returns the ledger window a leaderboard aggregates at now.
// Explicit start/end dates take precedence over the rolling period; either bound may be set alone.
func ResolveWindow(lb *models.Leaderboard, now time.Time, loc *time.Location) models.TimeWindow {
	if lb == nil {
		return models.TimeWindow{}
	}
	if lb.StartDate != nil || lb.EndDate != nil {
		return models.TimeWindow{From: lb.StartDate, To: lb.EndDate}
	}
	if loc == nil {
		loc = time.UTC
	}

	local := now.In(loc)
	year, month, day := local.Date()
	var from time.Time
	switch lb.TimePeriod {
	case models.PeriodWeekly:
		sinceMonday := (int(local.Weekday()) + 6) % 7
		from = time.Date(year, month, day-sinceMonday, 0, 0, 0, 0, loc)
	case models.PeriodMonthly:
		from = time.Date(year, month, 1, 0, 0, 0, 0, loc)
	case models.PeriodYearly:
		from = time.Date(year, time.January, 1, 0, 0, 0, 0, loc)
	default:
		return models.TimeWindow{}
	}
	from = from.UTC()
	return models.TimeWindow{From: &from}
}
