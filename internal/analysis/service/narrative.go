package service

import (
	"fmt"
	"strings"

	"github.com/unselab/saju/internal/saju/element"
	"github.com/unselab/saju/internal/saju/oheng"
	"github.com/unselab/saju/internal/saju/score"
)

// Narrative templates keyed by day-master strength. Deterministic: the same
// chart always produces the same text.
var strengthPhrases = map[oheng.Strength]string{
	oheng.StrengthWeak:     "your day master runs light this cycle, so borrow energy rather than spend it",
	oheng.StrengthBalanced: "your day master sits in balance, which favors steady, deliberate moves",
	oheng.StrengthStrong:   "your day master carries surplus force, best spent on output rather than accumulation",
}

var elementHabits = map[element.Element]string{
	element.Wood:  "mornings, growth projects and green spaces",
	element.Fire:  "midday hours, public settings and bright colors",
	element.Earth: "routines, shared meals and unhurried decisions",
	element.Metal: "clear deadlines, decluttering and firm commitments",
	element.Water: "evenings, reading and conversations that wander",
}

func generalAdvice(keyword string, analysis oheng.Result) string {
	return fmt.Sprintf(
		"You carry the nature of %s. This season %s. Resist the urge to force outcomes; the chart rewards timing over effort, and your %s current does its best work unforced.",
		keyword,
		strengthPhrases[analysis.Strength],
		analysis.DayElement,
	)
}

func peerComparison(scores score.FortuneScores) string {
	standing := "around the middle of"
	switch {
	case scores.Overall >= 85:
		standing = "near the top of"
	case scores.Overall >= 78:
		standing = "above most of"
	case scores.Overall < 65:
		standing = "below much of"
	}
	return fmt.Sprintf(
		"With an overall score of %d, your chart sits %s people sharing your day pillar.",
		scores.Overall,
		standing,
	)
}

func categoryAdvice(label string, sc int, favored element.Element, analysis oheng.Result) string {
	count := analysis.Balance.Counts[favored]
	lean := "thin"
	if count >= 2 {
		lean = "well fed"
	} else if count == 1 {
		lean = "present but quiet"
	}
	return fmt.Sprintf(
		"Your %s reading scores %d. The %s element that feeds it is %s in your chart. Lean on %s to keep it moving.",
		label,
		sc,
		favored,
		lean,
		elementHabits[favored],
	)
}

func yongsinGuide(analysis oheng.Result) string {
	names := make([]string, 0, len(analysis.Yongsin))
	for _, e := range analysis.Yongsin {
		names = append(names, string(e))
	}
	avoid := make([]string, 0, len(analysis.Gisin))
	for _, e := range analysis.Gisin {
		avoid = append(avoid, string(e))
	}
	return fmt.Sprintf(
		"Your favorable elements are %s; weave them into daily life through %s. Keep %s at arm's length when the stakes are high.",
		strings.Join(names, " and "),
		elementHabits[analysis.Yongsin[0]],
		strings.Join(avoid, " and "),
	)
}

// monthlyOutlook cycles a fixed 12-entry rhythm, anchored on the day branch
// so two charts with different day pillars read differently.
var monthMoods = [12]string{
	"opens slowly", "builds momentum", "tests your patience", "delivers an answer",
	"asks for restraint", "rewards persistence", "brings a useful stranger",
	"favors travel", "closes an old account", "plants next year's seed",
	"calls for rest", "ends on a high note",
}

func monthlyOutlook(dayBranchIndex int) string {
	var b strings.Builder
	for m := 0; m < 12; m++ {
		if m > 0 {
			b.WriteString(" ")
		}
		mood := monthMoods[(m+dayBranchIndex)%12]
		fmt.Fprintf(&b, "Month %d %s.", m+1, mood)
	}
	return b.String()
}
