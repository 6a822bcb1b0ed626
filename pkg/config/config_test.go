package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("RANKING_TIE_POLICY", "")
	t.Setenv("WORKER_RETRY_DELAY", "not-a-duration")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "/api/v1", cfg.APIPrefix)
	assert.Equal(t, "@every 15m", cfg.Scheduler.RankingCron)
	assert.True(t, cfg.Ranking.EntriesPublicDefault)
	assert.Equal(t, 5*time.Second, cfg.Worker.RetryDelay)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("RANKING_TIE_POLICY", "shared")
	t.Setenv("RANKING_TIMEZONE", "Asia/Jakarta")
	t.Setenv("LEADERBOARD_ENTRIES_PUBLIC", "false")
	t.Setenv("SCHEDULER_LEASE_TTL", "2m")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "shared", cfg.Ranking.TiePolicy)
	assert.False(t, cfg.Ranking.EntriesPublicDefault)
	assert.Equal(t, 2*time.Minute, cfg.Scheduler.LeaseTTL)
	assert.Equal(t, "Asia/Jakarta", cfg.Ranking.Timezone)
}

func TestRankingLocationFallback(t *testing.T) {
	assert.Equal(t, time.UTC, RankingConfig{Timezone: "Mars/Olympus"}.Location())
	assert.Equal(t, time.UTC, RankingConfig{}.Location())
}

func TestSplitAndTrim(t *testing.T) {
	assert.Nil(t, splitAndTrim(""))
	assert.Equal(t, []string{"a", "b"}, splitAndTrim(" a , ,b "))
}
