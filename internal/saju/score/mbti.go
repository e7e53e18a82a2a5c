package score

import (
	"strings"

	"github.com/unselab/saju/internal/saju/calendar"
)

// PersonalityAnalysis combines the stem-based reading with the optional MBTI
// cross analysis.
type PersonalityAnalysis struct {
	SajuTraits    []string       `json:"saju_traits"`
	CoreKeyword   string         `json:"core_keyword"`
	MBTITraits    []string       `json:"mbti_traits,omitempty"`
	CrossAnalysis *CrossAnalysis `json:"cross_analysis,omitempty"`
}

// CrossAnalysis describes how the saju reading and MBTI type line up.
type CrossAnalysis struct {
	MatchRate  int    `json:"match_rate"`
	Synergy    string `json:"synergy"`
	Conflict   string `json:"conflict"`
	Resolution string `json:"resolution"`
}

// defaultMatchRate applies when the stem/MBTI pair has no table entry.
const defaultMatchRate = 75

// Narrative tier edges for the cross analysis.
const (
	highConsistencyMin = 85
	complementaryMin   = 70
)

var mbtiTraits = map[string][]string{
	"INTJ": {"strategic long-range planner", "independent to a fault", "trusts systems over moods"},
	"INTP": {"conceptual problem solver", "allergic to unexamined rules", "energized by open questions"},
	"ENTJ": {"organizes people around a goal", "impatient with drift", "decides fast, corrects faster"},
	"ENTP": {"debates to discover", "novelty over routine", "quick to reframe a problem"},
	"INFJ": {"principled quiet influence", "reads undercurrents", "needs meaning to commit"},
	"INFP": {"values-led and imaginative", "loyal to inner ideals", "private emotional depth"},
	"ENFJ": {"draws out the best in others", "harmonizes groups", "over-commits to people"},
	"ENFP": {"contagious enthusiasm", "many threads at once", "follows resonance, not plans"},
	"ISTJ": {"thorough and dependable", "facts before feelings", "keeps systems running"},
	"ISFJ": {"steady behind-the-scenes care", "long memory for details", "protects what works"},
	"ESTJ": {"direct and organized", "comfortable taking charge", "measures by results"},
	"ESFJ": {"attentive host", "keeps the group fed and heard", "tradition as glue"},
	"ISTP": {"hands-on troubleshooter", "calm in a crisis", "economical with words"},
	"ISFP": {"quiet aesthetic sense", "acts on present feeling", "gentle but stubborn core"},
	"ESTP": {"moves first, reads fast", "thrives on the edge", "practical charm"},
	"ESFP": {"lives in vivid present", "warms up any room", "learns by doing"},
}

// mbtiMatchRates is a sparse lookup keyed by "stem/MBTI". Pairs absent from
// the table fall back to defaultMatchRate.
var mbtiMatchRates = map[string]int{
	"gap/ENTJ":    90,
	"gap/INTJ":    86,
	"gap/ISFP":    62,
	"eul/INFP":    88,
	"eul/ISFJ":    84,
	"eul/ESTP":    60,
	"byeong/ENFP": 92,
	"byeong/ESFP": 87,
	"byeong/ISTJ": 58,
	"jeong/INFJ":  89,
	"jeong/ISFJ":  85,
	"mu/ISTJ":     91,
	"mu/ESTJ":     86,
	"mu/ENFP":     61,
	"gi/ISFJ":     88,
	"gi/ESFJ":     84,
	"gyeong/ESTJ": 90,
	"gyeong/ENTJ": 87,
	"gyeong/INFP": 59,
	"sin/INTJ":    88,
	"sin/ISTP":    83,
	"im/ENTP":     89,
	"im/INTP":     86,
	"im/ESFJ":     63,
	"gye/INFP":    90,
	"gye/INFJ":    87,
	"gye/ESTP":    57,
}

// Personality builds the personality analysis for a chart. mbti may be empty;
// an unknown MBTI string yields a saju-only reading.
func Personality(chart calendar.Chart, mbti string) PersonalityAnalysis {
	day := chart.DayMaster()
	out := PersonalityAnalysis{
		SajuTraits:  TraitsFor(day),
		CoreKeyword: KeywordFor(day),
	}

	mbti = strings.ToUpper(strings.TrimSpace(mbti))
	traits, ok := mbtiTraits[mbti]
	if !ok {
		return out
	}

	out.MBTITraits = append([]string(nil), traits...)
	out.CrossAnalysis = crossAnalysis(day, mbti)
	return out
}

func crossAnalysis(day calendar.Stem, mbti string) *CrossAnalysis {
	rate, ok := mbtiMatchRates[day.String()+"/"+mbti]
	if !ok {
		rate = defaultMatchRate
	}

	switch {
	case rate >= highConsistencyMin:
		return &CrossAnalysis{
			MatchRate:  rate,
			Synergy:    "Your birth chart and personality type tell the same story: what you project is what you are, which makes you unusually convincing.",
			Conflict:   "When both layers push the same habit, blind spots compound instead of canceling out.",
			Resolution: "Borrow a perspective you lack. Your consistency gives you a stable base to experiment from.",
		}
	case rate >= complementaryMin:
		return &CrossAnalysis{
			MatchRate:  rate,
			Synergy:    "Your chart and personality type cover different ground, so each supplies what the other misses.",
			Conflict:   "Under stress the two layers can pull in different directions and stall decisions.",
			Resolution: "Name which side is speaking before deciding. The tension is an asset once you can tell them apart.",
		}
	default:
		return &CrossAnalysis{
			MatchRate:  rate,
			Synergy:    "This is a rare combination: the gap between your innate chart and learned type gives you range most people lack.",
			Conflict:   "People read you inconsistently, and you may read yourself inconsistently too.",
			Resolution: "Treat the two sides as tools for different rooms rather than a contradiction to resolve.",
		}
	}
}
