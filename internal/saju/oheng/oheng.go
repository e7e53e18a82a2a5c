// Package oheng aggregates the five-element balance of a chart and derives
// the day-master strength and favorable/unfavorable elements.
package oheng

import (
	"github.com/unselab/saju/internal/saju/calendar"
	"github.com/unselab/saju/internal/saju/element"
)

// Strength classifies the day master relative to its supporting elements.
type Strength string

const (
	StrengthWeak     Strength = "weak"
	StrengthBalanced Strength = "balanced"
	StrengthStrong   Strength = "strong"
)

// Classification thresholds. These bands reproduce the numeric literals of
// the original scoring model; they are not derived from classical doctrine.
const (
	// strongMin is the minimum combined count of the day element and its
	// generator for a strong classification.
	strongMin = 3
	// balancedMin is the lower edge of the balanced band.
	balancedMin = 2
)

// Balance holds the element counts over the known pillars. One element is
// counted per pillar (the stem element), so the counts always sum to the
// number of known pillars.
type Balance struct {
	Counts   map[element.Element]int
	Dominant element.Element
	Missing  []element.Element
}

// Result is the five-element analysis of a chart.
type Result struct {
	Balance    Balance
	DayMaster  calendar.Stem
	DayElement element.Element
	Strength   Strength
	Yongsin    []element.Element
	Gisin      []element.Element
}

// Analyze derives the element balance, strength classification and
// favorable/unfavorable elements for a chart.
func Analyze(chart calendar.Chart) Result {
	balance := countElements(chart)

	day := chart.DayMaster()
	dayElem := day.Element()
	strength := classify(balance.Counts, dayElem)
	yongsin, gisin := favorability(dayElem, strength)

	return Result{
		Balance:    balance,
		DayMaster:  day,
		DayElement: dayElem,
		Strength:   strength,
		Yongsin:    yongsin,
		Gisin:      gisin,
	}
}

func countElements(chart calendar.Chart) Balance {
	counts := make(map[element.Element]int, len(element.All))
	for _, e := range element.All {
		counts[e] = 0
	}
	for _, pillar := range chart.Pillars() {
		counts[pillar.Stem.Element()]++
	}

	dominant := element.All[0]
	for _, e := range element.All {
		if counts[e] > counts[dominant] {
			dominant = e
		}
	}

	var missing []element.Element
	for _, e := range element.All {
		if counts[e] == 0 {
			missing = append(missing, e)
		}
	}

	return Balance{Counts: counts, Dominant: dominant, Missing: missing}
}

// classify compares the day element's own count plus its generator's count
// against the strength bands.
func classify(counts map[element.Element]int, day element.Element) Strength {
	support := counts[day] + counts[element.GeneratedBy(day)]
	switch {
	case support >= strongMin:
		return StrengthStrong
	case support >= balancedMin:
		return StrengthBalanced
	default:
		return StrengthWeak
	}
}

// favorability derives yongsin (favorable) and gisin (unfavorable) elements
// from the relation tables. A weak day master favors what strengthens it; a
// strong one favors what drains or controls it.
func favorability(day element.Element, strength Strength) (yongsin, gisin []element.Element) {
	generator := element.GeneratedBy(day)
	drain := element.Generates[day]
	controller := element.ControlledBy(day)

	switch strength {
	case StrengthWeak:
		yongsin = []element.Element{generator, day}
		gisin = []element.Element{controller, drain}
	case StrengthStrong:
		yongsin = []element.Element{drain, controller}
		gisin = []element.Element{generator, day}
	default:
		yongsin = []element.Element{generator}
		gisin = []element.Element{controller}
	}
	return yongsin, gisin
}
