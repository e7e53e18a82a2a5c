// Package redact applies the blinding policy to an analysis result. The
// policy table is the single source of truth for which fields are premium
// and how each is masked; Apply never touches a field the table does not
// name.
package redact

import (
	"strings"

	"github.com/unselab/saju/internal/analysis/domain"
)

// LockedSentinel replaces premium content in the blinded view.
const LockedSentinel = "This section is locked. Unlock the full reading to view it."

// Behavior is how one premium field is masked.
type Behavior int

const (
	// ReplaceAll swaps the whole field for the locked sentinel.
	ReplaceAll Behavior = iota
	// KeepFirstSentence keeps the first sentence as a teaser and locks
	// the rest.
	KeepFirstSentence
)

// Rule binds one premium field to its masking behavior. Field selects the
// string inside a Result so the table stays the only enumeration of
// premium fields.
type Rule struct {
	Name     string
	Behavior Behavior
	Field    func(*domain.Result) *string
}

// Policy enumerates every premium field. Fields absent from this table
// (chart, element balance, scores, personality traits, peer comparison,
// core keyword) are free-teaser content and pass through untouched.
var Policy = []Rule{
	{"general_advice", KeepFirstSentence, func(r *domain.Result) *string { return &r.GeneralAdvice }},
	{"wealth_advice", ReplaceAll, func(r *domain.Result) *string { return &r.WealthAdvice }},
	{"love_advice", ReplaceAll, func(r *domain.Result) *string { return &r.LoveAdvice }},
	{"career_advice", ReplaceAll, func(r *domain.Result) *string { return &r.CareerAdvice }},
	{"health_advice", ReplaceAll, func(r *domain.Result) *string { return &r.HealthAdvice }},
	{"yongsin_guide", ReplaceAll, func(r *domain.Result) *string { return &r.YongsinGuide }},
	{"monthly_outlook", ReplaceAll, func(r *domain.Result) *string { return &r.MonthlyOutlook }},
}

// Apply returns a redacted copy of result when unlocked is false, and the
// result unchanged when true. Pure transform.
func Apply(result domain.Result, unlocked bool) domain.Result {
	if unlocked {
		return result
	}
	for _, rule := range Policy {
		field := rule.Field(&result)
		switch rule.Behavior {
		case KeepFirstSentence:
			*field = teaser(*field)
		default:
			*field = LockedSentinel
		}
	}
	return result
}

// teaser keeps the first sentence and appends the sentinel. A field with
// no sentence boundary is fully replaced.
func teaser(s string) string {
	idx := strings.Index(s, ". ")
	if idx < 0 {
		return LockedSentinel
	}
	return s[:idx+1] + " " + LockedSentinel
}
