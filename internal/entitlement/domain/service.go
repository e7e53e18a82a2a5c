package domain

import "context"

// Service gates analysis requests against free quota and point balance.
type Service interface {
	// CanUseFreeAnalysis reports today's quota standing for a user.
	CanUseFreeAnalysis(ctx context.Context, userID, email string) (FreeAnalysisStatus, error)

	// IncrementFreeAnalysis bumps today's counter. The caller must have
	// verified CanUseFreeAnalysis first; no ceiling check happens here.
	IncrementFreeAnalysis(ctx context.Context, userID string) error

	// PointBalance returns the user's current balance.
	PointBalance(ctx context.Context, userID string) (int64, error)

	// DeductPoints atomically charges the tier cost. The balance check is
	// re-evaluated at write time; an insufficient balance fails without
	// mutation and yields *InsufficientPointsError.
	DeductPoints(ctx context.Context, userID string, tier ProductTier, sourceType, sourceID string) error

	// CreditPoints adds amount to the balance and posts a ledger row.
	// Replays of the same (sourceType, sourceID) are no-ops.
	CreditPoints(ctx context.Context, userID string, amount int64, sourceType, sourceID, memo string) (credited bool, err error)

	// Authorize applies the per-request decision policy: privileged users
	// bypass everything, free quota is consumed next, then points.
	Authorize(ctx context.Context, userID, email string, tier ProductTier, requestID string) (AccessDecision, error)
}
