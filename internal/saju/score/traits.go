package score

import "github.com/unselab/saju/internal/saju/calendar"

// stemTraits maps each day stem to its fixed trait phrases.
var stemTraits = map[string][]string{
	"gap":    {"pioneering and upright", "grows steadily toward a goal", "uncomfortable bending principles", "natural initiator"},
	"eul":    {"flexible and adaptive", "quietly persistent", "reads the room before acting", "thrives in cooperation"},
	"byeong": {"expressive and warm", "draws people in", "acts on conviction", "restless without an audience"},
	"jeong":  {"attentive and devoted", "steady inner warmth", "notices what others miss", "careful with commitments"},
	"mu":     {"reliable and grounded", "slow to move, hard to stop", "keeps promises", "prefers the proven path"},
	"gi":     {"nurturing and practical", "patient cultivator", "modest about achievements", "strong sense of duty"},
	"gyeong": {"decisive and direct", "cuts through ambiguity", "values fairness", "blunt under pressure"},
	"sin":    {"refined and precise", "high standards for self and others", "quietly competitive", "polishes until it shines"},
	"im":     {"broad-minded and resourceful", "moves like open water", "comfortable with change", "thinks in long arcs"},
	"gye":    {"intuitive and gentle", "absorbs before deciding", "empathetic listener", "deep but private emotions"},
}

// stemKeywords is the one-line core keyword per day stem.
var stemKeywords = map[string]string{
	"gap":    "the tall tree",
	"eul":    "the winding vine",
	"byeong": "the blazing sun",
	"jeong":  "the lantern flame",
	"mu":     "the great mountain",
	"gi":     "the fertile field",
	"gyeong": "the forged blade",
	"sin":    "the polished jewel",
	"im":     "the wide river",
	"gye":    "the morning dew",
}

// TraitsFor returns the trait phrases for a day stem.
func TraitsFor(stem calendar.Stem) []string {
	traits := stemTraits[stem.String()]
	out := make([]string, len(traits))
	copy(out, traits)
	return out
}

// KeywordFor returns the core keyword for a day stem.
func KeywordFor(stem calendar.Stem) string {
	return stemKeywords[stem.String()]
}
