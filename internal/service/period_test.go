package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lms-ranking-api/internal/models"
)

func TestResolveWindowRollingPeriods(t *testing.T) {
	// Wednesday.
	now := time.Date(2026, 10, 21, 15, 30, 0, 0, time.UTC)

	cases := []struct {
		period models.TimePeriod
		want   *time.Time
	}{
		{models.PeriodWeekly, timePtr(time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC))},
		{models.PeriodMonthly, timePtr(time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC))},
		{models.PeriodYearly, timePtr(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))},
		{models.PeriodAllTime, nil},
	}
	for _, tc := range cases {
		t.Run(string(tc.period), func(t *testing.T) {
			window := ResolveWindow(&models.Leaderboard{TimePeriod: tc.period}, now, time.UTC)
			assert.Nil(t, window.To)
			if tc.want == nil {
				assert.Nil(t, window.From)
				return
			}
			require.NotNil(t, window.From)
			assert.True(t, tc.want.Equal(*window.From), "got %s", window.From)
		})
	}
}

func TestResolveWindowWeeklyOnSundayAndMonday(t *testing.T) {
	sunday := time.Date(2026, 10, 25, 23, 59, 0, 0, time.UTC)
	window := ResolveWindow(&models.Leaderboard{TimePeriod: models.PeriodWeekly}, sunday, time.UTC)
	require.NotNil(t, window.From)
	assert.Equal(t, time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC), *window.From)

	monday := time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC)
	window = ResolveWindow(&models.Leaderboard{TimePeriod: models.PeriodWeekly}, monday, time.UTC)
	assert.Equal(t, monday, *window.From)
}

func TestResolveWindowUsesLocation(t *testing.T) {
	loc := time.FixedZone("UTC+7", 7*3600)
	// 2026-11-01 02:00 local, still October in UTC.
	now := time.Date(2026, 10, 31, 19, 0, 0, 0, time.UTC)

	window := ResolveWindow(&models.Leaderboard{TimePeriod: models.PeriodMonthly}, now, loc)
	require.NotNil(t, window.From)
	assert.Equal(t, time.Date(2026, 10, 31, 17, 0, 0, 0, time.UTC), *window.From)
}

func TestResolveWindowExplicitOverride(t *testing.T) {
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC)
	lb := &models.Leaderboard{TimePeriod: models.PeriodWeekly, StartDate: &start, EndDate: &end}

	window := ResolveWindow(lb, time.Now(), time.UTC)
	assert.Equal(t, &start, window.From)
	assert.Equal(t, &end, window.To)

	lb.StartDate = nil
	window = ResolveWindow(lb, time.Now(), time.UTC)
	assert.Nil(t, window.From)
	assert.Equal(t, &end, window.To)
}

func timePtr(t time.Time) *time.Time {
	return &t
}
