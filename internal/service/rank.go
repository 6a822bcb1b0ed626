package service

import (
	"math"
	"sort"
	"strings"

	"github.com/noah-isme/lms-ranking-api/internal/models"
)

// TiePolicy decides how equal scores are ranked.
type TiePolicy string

const (
	// TiePolicyDistinct gives equal scores consecutive ranks ordered by user id (1, 2, 3).
	TiePolicyDistinct TiePolicy = "distinct"
	// TiePolicyShared gives equal scores the same rank and skips the following ones (1, 1, 3).
	TiePolicyShared TiePolicy = "shared"
)

// ParseTiePolicy maps a config value onto a policy; unknown values fall back to distinct.
func ParseTiePolicy(raw string) TiePolicy {
	if strings.EqualFold(strings.TrimSpace(raw), string(TiePolicyShared)) {
		return TiePolicyShared
	}
	return TiePolicyDistinct
}

// ScoredUser is a user with the value they are ranked by.
type ScoredUser struct {
	UserID string
	Score  float64
}

// RankedUser is a ScoredUser with its position in the scope.
type RankedUser struct {
	UserID     string
	Score      float64
	Rank       int
	Percentile float64
}

// scoreEpsilon absorbs floating point noise when comparing scores.
const scoreEpsilon = 1e-9

// RankScores orders users by score descending, then user id ascending, and assigns 1-based ranks.
// Ranking uses the exact score; the returned Score is rounded to 2 decimals for storage.
func RankScores(items []ScoredUser, policy TiePolicy) []RankedUser {
	sorted := make([]ScoredUser, len(items))
	copy(sorted, items)
	sort.Slice(sorted, func(i, j int) bool {
		if !sameScore(sorted[i].Score, sorted[j].Score) {
			return sorted[i].Score > sorted[j].Score
		}
		return sorted[i].UserID < sorted[j].UserID
	})

	total := len(sorted)
	ranked := make([]RankedUser, total)
	for i, item := range sorted {
		rank := i + 1
		if policy == TiePolicyShared && i > 0 && sameScore(item.Score, sorted[i-1].Score) {
			rank = ranked[i-1].Rank
		}
		ranked[i] = RankedUser{
			UserID:     item.UserID,
			Score:      round2(item.Score),
			Rank:       rank,
			Percentile: percentile(rank, total),
		}
	}
	return ranked
}

// MeanLatestScores averages each user's current (subject, metric) percentages without rounding.
// Users without rows are absent from the result.
func MeanLatestScores(scores []models.CurrentScore) []ScoredUser {
	type accumulator struct {
		sum   float64
		count int
	}
	byUser := make(map[string]*accumulator)
	order := make([]string, 0)
	for _, score := range scores {
		acc, ok := byUser[score.UserID]
		if !ok {
			acc = &accumulator{}
			byUser[score.UserID] = acc
			order = append(order, score.UserID)
		}
		acc.sum += score.Percentage
		acc.count++
	}
	sort.Strings(order)

	result := make([]ScoredUser, 0, len(order))
	for _, userID := range order {
		acc := byUser[userID]
		result = append(result, ScoredUser{UserID: userID, Score: acc.sum / float64(acc.count)})
	}
	return result
}

func percentile(rank, total int) float64 {
	if total <= 1 {
		return 100
	}
	return 100 * float64(total-rank) / float64(total-1)
}

func sameScore(a, b float64) bool {
	return math.Abs(a-b) < scoreEpsilon
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
