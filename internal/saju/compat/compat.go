// Package compat scores pairwise and group compatibility from day elements.
package compat

import (
	"errors"
	"fmt"

	"github.com/unselab/saju/internal/saju/element"
)

// Relation classifies how two day elements interact.
type Relation string

const (
	RelationSame        Relation = "same"
	RelationGenerating  Relation = "generating"
	RelationControlling Relation = "controlling"
	RelationNeutral     Relation = "neutral"
)

// Fixed relation scores.
const (
	scoreSame        = 70
	scoreGenerating  = 88
	scoreControlling = 55
	scoreNeutral     = 75
)

// Group size bounds.
const (
	MinGroupSize = 2
	MaxGroupSize = 5
)

// ErrGroupSize rejects group analyses outside the 2-5 member range.
var ErrGroupSize = errors.New("group size must be between 2 and 5 members")

// Pairwise classifies the relation between two day elements and returns its
// score. Direction matters only for the narrative: the controlling score is
// the same whichever member controls the other.
func Pairwise(a, b element.Element) (Relation, int) {
	switch {
	case a == b:
		return RelationSame, scoreSame
	case element.Generates[a] == b || element.Generates[b] == a:
		return RelationGenerating, scoreGenerating
	case element.Controls[a] == b || element.Controls[b] == a:
		return RelationControlling, scoreControlling
	default:
		return RelationNeutral, scoreNeutral
	}
}

// Member is one participant in a group analysis.
type Member struct {
	Name       string
	DayElement element.Element
}

// PairScore is one scored pair within a group.
type PairScore struct {
	A        string   `json:"a"`
	B        string   `json:"b"`
	Relation Relation `json:"relation"`
	Score    int      `json:"score"`
}

// MemberRole assigns a group role to a member based on their day element.
type MemberRole struct {
	Name       string          `json:"name"`
	DayElement element.Element `json:"day_element"`
	Role       string          `json:"role"`
}

// GroupReport aggregates group-level dynamics.
type GroupReport struct {
	Pairs           []PairScore       `json:"pairs"`
	OverallHarmony  int               `json:"overall_harmony"`
	DominantElement element.Element   `json:"dominant_element"`
	MissingElements []element.Element `json:"missing_elements"`
	Roles           []MemberRole      `json:"roles"`
}

// elementRoles is the fixed element-to-role table.
var elementRoles = map[element.Element]string{
	element.Wood:  "the initiator who starts things moving",
	element.Fire:  "the energizer who keeps the group lit",
	element.Earth: "the anchor who holds the group together",
	element.Metal: "the finisher who makes decisions stick",
	element.Water: "the connector who keeps ideas flowing",
}

// Group scores every pair in a 2-5 member group and derives the group-level
// dynamics. Invalid group sizes and unknown elements are validation errors,
// not panics.
func Group(members []Member) (GroupReport, error) {
	if len(members) < MinGroupSize || len(members) > MaxGroupSize {
		return GroupReport{}, ErrGroupSize
	}
	for i, m := range members {
		if !element.Valid(m.DayElement) {
			return GroupReport{}, fmt.Errorf("member %d: unknown element %q", i, m.DayElement)
		}
	}

	var pairs []PairScore
	total := 0
	for i := 0; i < len(members); i++ {
		for j := i + 1; j < len(members); j++ {
			rel, s := Pairwise(members[i].DayElement, members[j].DayElement)
			pairs = append(pairs, PairScore{
				A:        members[i].Name,
				B:        members[j].Name,
				Relation: rel,
				Score:    s,
			})
			total += s
		}
	}

	counts := make(map[element.Element]int, len(element.All))
	for _, m := range members {
		counts[m.DayElement]++
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

	roles := make([]MemberRole, 0, len(members))
	for _, m := range members {
		roles = append(roles, MemberRole{
			Name:       m.Name,
			DayElement: m.DayElement,
			Role:       elementRoles[m.DayElement],
		})
	}

	return GroupReport{
		Pairs:           pairs,
		OverallHarmony:  (total + len(pairs)/2) / len(pairs),
		DominantElement: dominant,
		MissingElements: missing,
		Roles:           roles,
	}, nil
}
