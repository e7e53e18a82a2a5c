// Package score turns a chart and its element analysis into deterministic
// fortune scores and a personality reading. Scores are a pure function of
// the chart: the same chart and category always produce the same value.
package score

import (
	"github.com/unselab/saju/internal/saju/calendar"
	"github.com/unselab/saju/internal/saju/element"
	"github.com/unselab/saju/internal/saju/oheng"
)

// FortuneScores holds the per-category scores, each within [50, 95].
type FortuneScores struct {
	Overall int `json:"overall"`
	Wealth  int `json:"wealth"`
	Love    int `json:"love"`
	Career  int `json:"career"`
	Health  int `json:"health"`
}

const (
	scoreMin = 50
	scoreMax = 95

	baseBalanced = 80
	baseStrong   = 75
	baseWeak     = 70

	categoryBonus = 5
	// bonusCount is the element count at which a category bonus applies.
	bonusCount = 2
)

// Scores computes the five category scores for a chart.
func Scores(chart calendar.Chart, analysis oheng.Result) FortuneScores {
	base := baseFor(analysis.Strength)
	counts := analysis.Balance.Counts

	return FortuneScores{
		Overall: category(chart, "overall", base, overallBonus(analysis)),
		Wealth:  category(chart, "wealth", base, countBonus(counts, element.Metal)),
		Love:    category(chart, "love", base, countBonus(counts, element.Fire)),
		Career:  category(chart, "career", base, countBonus(counts, element.Water)),
		Health:  category(chart, "health", base, countBonus(counts, element.Earth)),
	}
}

func category(chart calendar.Chart, seed string, base, bonus int) int {
	h := rollingHash(chart.Day.Stem.String() + chart.Day.Branch.String() + seed)
	return clamp(base+int(h%20)-10+bonus, scoreMin, scoreMax)
}

func baseFor(strength oheng.Strength) int {
	switch strength {
	case oheng.StrengthBalanced:
		return baseBalanced
	case oheng.StrengthStrong:
		return baseStrong
	default:
		return baseWeak
	}
}

func countBonus(counts map[element.Element]int, e element.Element) int {
	if counts[e] >= bonusCount {
		return categoryBonus
	}
	return 0
}

func overallBonus(analysis oheng.Result) int {
	if len(analysis.Balance.Missing) == 0 {
		return categoryBonus
	}
	return 0
}

// rollingHash is a polynomial rolling hash over the seed string. It is the
// only source of per-category variation, so scores carry no randomness.
func rollingHash(s string) uint32 {
	var h uint32
	for _, c := range s {
		h = h*31 + uint32(c)
	}
	return h
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
