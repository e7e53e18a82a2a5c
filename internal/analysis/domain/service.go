package domain

import (
	"context"

	"github.com/unselab/saju/internal/identity"
	"github.com/unselab/saju/internal/saju/compat"
)

// GroupResponse is the group compatibility report plus per-member chart
// summaries.
type GroupResponse struct {
	Members []GroupMemberView  `json:"members"`
	Report  compat.GroupReport `json:"report"`
}

// Service runs the analysis pipeline behind the API surface.
type Service interface {
	// Analyze computes a chart, decides entitlement, redacts accordingly
	// and persists the full document. A persistence failure is logged and
	// the computed result is still returned.
	Analyze(ctx context.Context, user identity.User, input BirthInput) (*Response, error)

	// Get re-serves a stored analysis, redacted per its current blind
	// state. Records belonging to other users read as not found.
	Get(ctx context.Context, user identity.User, analysisID string) (*Response, error)

	// Unblind unlocks a stored analysis, charging points or redeeming a
	// voucher. Unlocking an already-unlocked record is a no-op.
	Unblind(ctx context.Context, user identity.User, analysisID string, useVoucher bool) (*Response, error)

	// AnalyzeGroup computes charts for 2-5 members and scores the group.
	AnalyzeGroup(ctx context.Context, members []GroupMemberInput) (*GroupResponse, error)
}
