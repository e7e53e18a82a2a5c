package compat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/unselab/saju/internal/saju/element"
)

func TestPairwiseRelations(t *testing.T) {
	cases := []struct {
		name     string
		a, b     element.Element
		relation Relation
		score    int
	}{
		{"same element", element.Wood, element.Wood, RelationSame, 70},
		{"generating forward", element.Wood, element.Fire, RelationGenerating, 88},
		{"generating reversed", element.Fire, element.Wood, RelationGenerating, 88},
		{"controlling forward", element.Wood, element.Earth, RelationControlling, 55},
		{"controlling reversed", element.Earth, element.Wood, RelationControlling, 55},
		{"controlled across the cycle", element.Wood, element.Metal, RelationControlling, 55},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rel, s := Pairwise(tc.a, tc.b)
			assert.Equal(t, tc.relation, rel)
			assert.Equal(t, tc.score, s)
		})
	}
}

func TestPairwiseCoversEveryCombination(t *testing.T) {
	// Every distinct pair of the five elements is adjacent on the
	// generating cycle or two steps apart on it, so the neutral fallback
	// is unreachable for valid input. Nothing may escape classification.
	for _, a := range element.All {
		for _, b := range element.All {
			rel, s := Pairwise(a, b)
			switch rel {
			case RelationSame:
				assert.Equal(t, a, b)
				assert.Equal(t, 70, s)
			case RelationGenerating:
				assert.Equal(t, 88, s)
			case RelationControlling:
				assert.Equal(t, 55, s)
			default:
				t.Fatalf("pair %s/%s fell through to %s", a, b, rel)
			}
		}
	}
}

func TestGroupOfTwoGenerating(t *testing.T) {
	report, err := Group([]Member{
		{Name: "a", DayElement: element.Wood},
		{Name: "b", DayElement: element.Fire},
	})
	require.NoError(t, err)

	require.Len(t, report.Pairs, 1)
	assert.Equal(t, RelationGenerating, report.Pairs[0].Relation)
	assert.Equal(t, 88, report.Pairs[0].Score)
	assert.Equal(t, 88, report.OverallHarmony)
}

func TestGroupSizeValidation(t *testing.T) {
	_, err := Group([]Member{{Name: "solo", DayElement: element.Wood}})
	assert.ErrorIs(t, err, ErrGroupSize)

	six := make([]Member, 6)
	for i := range six {
		six[i] = Member{Name: "m", DayElement: element.Wood}
	}
	_, err = Group(six)
	assert.ErrorIs(t, err, ErrGroupSize)

	_, err = Group(nil)
	assert.ErrorIs(t, err, ErrGroupSize)
}

func TestGroupRejectsUnknownElement(t *testing.T) {
	_, err := Group([]Member{
		{Name: "a", DayElement: element.Wood},
		{Name: "b", DayElement: element.Element("plasma")},
	})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrGroupSize)
}

func TestGroupDynamics(t *testing.T) {
	report, err := Group([]Member{
		{Name: "a", DayElement: element.Wood},
		{Name: "b", DayElement: element.Wood},
		{Name: "c", DayElement: element.Fire},
		{Name: "d", DayElement: element.Water},
	})
	require.NoError(t, err)

	assert.Equal(t, element.Wood, report.DominantElement)
	assert.ElementsMatch(t, []element.Element{element.Earth, element.Metal}, report.MissingElements)
	assert.Len(t, report.Pairs, 6)
	assert.Len(t, report.Roles, 4)

	for _, role := range report.Roles {
		assert.NotEmpty(t, role.Role)
	}

	// Harmony is the rounded mean of all pairwise scores.
	total := 0
	for _, p := range report.Pairs {
		total += p.Score
	}
	assert.Equal(t, (total+len(report.Pairs)/2)/len(report.Pairs), report.OverallHarmony)
}

func TestEveryElementHasRole(t *testing.T) {
	for _, e := range element.All {
		assert.NotEmpty(t, elementRoles[e], "element %s", e)
	}
}
