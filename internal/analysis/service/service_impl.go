package service

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/unselab/saju/internal/analysis/domain"
	"github.com/unselab/saju/internal/analysis/redact"
	"github.com/unselab/saju/internal/clock"
	entitlementdomain "github.com/unselab/saju/internal/entitlement/domain"
	"github.com/unselab/saju/internal/identity"
	ledgerdomain "github.com/unselab/saju/internal/ledger/domain"
	obsmetrics "github.com/unselab/saju/internal/observability/metrics"
	"github.com/unselab/saju/internal/saju/calendar"
	"github.com/unselab/saju/internal/saju/compat"
	"github.com/unselab/saju/internal/saju/element"
	"github.com/unselab/saju/internal/saju/oheng"
	"github.com/unselab/saju/internal/saju/score"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Log         *zap.Logger
	Clock       clock.Clock
	GenID       *snowflake.Node
	Repo        domain.Repository
	Entitlement entitlementdomain.Service
	ObsMetrics  *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	log         *zap.Logger
	clock       clock.Clock
	genID       *snowflake.Node
	repo        domain.Repository
	entitlement entitlementdomain.Service
	obsMetrics  *obsmetrics.Metrics
}

func NewService(p Params) domain.Service {
	return &Service{
		log:         p.Log.Named("analysis.service"),
		clock:       p.Clock,
		genID:       p.GenID,
		repo:        p.Repo,
		entitlement: p.Entitlement,
		obsMetrics:  p.ObsMetrics,
	}
}

func (s *Service) Analyze(ctx context.Context, user identity.User, input domain.BirthInput) (*domain.Response, error) {
	if strings.TrimSpace(user.ID) == "" {
		return nil, entitlementdomain.ErrInvalidUser
	}
	if err := input.Validate(); err != nil {
		return nil, err
	}

	analysisID := s.genID.Generate()
	full := s.compute(input)

	decision, err := s.entitlement.Authorize(ctx, user.ID, user.Email, input.Tier, analysisID.String())
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	record := &domain.Record{
		ID:          analysisID,
		UserID:      user.ID,
		ProductType: input.Tier,
		IsPremium:   input.Tier != entitlementdomain.TierBasic,
		IsBlinded:   !decision.Unblinded,
		PointsPaid:  decision.Cost,
		CreatedAt:   now,
		ExpiresAt:   now.Add(domain.RetentionFor(input.Tier)),
	}
	if record.Input, err = json.Marshal(input); err != nil {
		return nil, err
	}
	if record.Result, err = json.Marshal(full); err != nil {
		return nil, err
	}

	// The user already paid for the computation; losing durability is
	// worth logging, not worth failing the request.
	if err := s.repo.Create(ctx, record); err != nil {
		s.log.Error("failed to persist analysis",
			zap.String("analysis_id", analysisID.String()),
			zap.String("user_id", user.ID),
			zap.Error(err),
		)
	}

	if s.obsMetrics != nil {
		s.obsMetrics.RecordAnalysis(ctx, string(input.Tier), string(decision.Mode))
	}

	return s.respond(ctx, user, record, full, decision.Mode)
}

func (s *Service) Get(ctx context.Context, user identity.User, analysisID string) (*domain.Response, error) {
	record, err := s.load(ctx, user, analysisID)
	if err != nil {
		return nil, err
	}

	var full domain.Result
	if err := json.Unmarshal(record.Result, &full); err != nil {
		return nil, err
	}
	return s.respond(ctx, user, record, full, "")
}

func (s *Service) Unblind(ctx context.Context, user identity.User, analysisID string, useVoucher bool) (*domain.Response, error) {
	record, err := s.load(ctx, user, analysisID)
	if err != nil {
		return nil, err
	}

	if record.IsBlinded {
		cost := entitlementdomain.TierCosts[record.ProductType]
		if useVoucher {
			redeemed, rerr := s.repo.RedeemVoucher(ctx, user.ID, record.ProductType, s.clock.Now())
			if rerr != nil {
				return nil, rerr
			}
			if !redeemed {
				return nil, domain.ErrNoVoucher
			}
			cost = 0
		} else {
			if err := s.entitlement.DeductPoints(ctx, user.ID, record.ProductType,
				string(ledgerdomain.SourceTypeUnblind), record.ID.String()); err != nil {
				return nil, err
			}
		}

		// A losing racer finds the flag already flipped; the charge was
		// idempotent on the record id, so just re-read.
		if _, err := s.repo.MarkUnblinded(ctx, record.ID, cost); err != nil {
			return nil, err
		}
		record, err = s.load(ctx, user, analysisID)
		if err != nil {
			return nil, err
		}
	}

	var full domain.Result
	if err := json.Unmarshal(record.Result, &full); err != nil {
		return nil, err
	}
	return s.respond(ctx, user, record, full, "")
}

func (s *Service) AnalyzeGroup(ctx context.Context, members []domain.GroupMemberInput) (*domain.GroupResponse, error) {
	if len(members) < compat.MinGroupSize || len(members) > compat.MaxGroupSize {
		return nil, compat.ErrGroupSize
	}

	views := make([]domain.GroupMemberView, 0, len(members))
	compatMembers := make([]compat.Member, 0, len(members))
	for i, m := range members {
		if m.BirthDate.IsZero() {
			return nil, domain.ErrMissingBirthDate
		}
		name := strings.TrimSpace(m.Name)
		if name == "" {
			name = memberFallbackName(i)
		}
		chart := calendar.Compute(m.BirthDate, m.BirthTime)
		day := chart.DayMaster()
		views = append(views, domain.GroupMemberView{
			Name:       name,
			DayMaster:  day.String(),
			DayElement: day.Element(),
		})
		compatMembers = append(compatMembers, compat.Member{
			Name:       name,
			DayElement: day.Element(),
		})
	}

	report, err := compat.Group(compatMembers)
	if err != nil {
		return nil, err
	}
	return &domain.GroupResponse{Members: views, Report: report}, nil
}

// compute runs the pure pipeline: chart, element analysis, scores,
// personality and the narrative fields the redaction gate operates on.
func (s *Service) compute(input domain.BirthInput) domain.Result {
	chart := calendar.Compute(input.BirthDate, input.BirthTime)
	analysis := oheng.Analyze(chart)
	scores := score.Scores(chart, analysis)
	personality := score.Personality(chart, input.MBTI)

	return domain.Result{
		Chart:          domain.NewChartView(chart),
		Elements:       domain.NewElementView(analysis),
		Scores:         scores,
		Personality:    personality,
		PeerComparison: peerComparison(scores),
		GeneralAdvice:  generalAdvice(personality.CoreKeyword, analysis),
		WealthAdvice:   categoryAdvice("wealth", scores.Wealth, element.Metal, analysis),
		LoveAdvice:     categoryAdvice("love", scores.Love, element.Fire, analysis),
		CareerAdvice:   categoryAdvice("career", scores.Career, element.Water, analysis),
		HealthAdvice:   categoryAdvice("health", scores.Health, element.Earth, analysis),
		YongsinGuide:   yongsinGuide(analysis),
		MonthlyOutlook: monthlyOutlook(int(chart.Day.Branch)),
	}
}

func (s *Service) load(ctx context.Context, user identity.User, analysisID string) (*domain.Record, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(analysisID))
	if err != nil {
		return nil, domain.ErrNotFound
	}
	record, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	// Other users' records read as not found rather than forbidden.
	if record.UserID != user.ID {
		return nil, domain.ErrNotFound
	}
	if !record.ExpiresAt.After(s.clock.Now()) {
		return nil, domain.ErrNotFound
	}
	return record, nil
}

// respond redacts per the record's blind state and attaches entitlement
// metadata. Metadata reads are best-effort.
func (s *Service) respond(ctx context.Context, user identity.User, record *domain.Record, full domain.Result, mode entitlementdomain.AccessMode) (*domain.Response, error) {
	served := redact.Apply(full, !record.IsBlinded)

	meta := domain.Meta{
		AnalysisID: record.ID.String(),
		IsBlinded:  record.IsBlinded,
		AccessMode: mode,
	}
	if record.IsBlinded {
		meta.UpgradeCost = entitlementdomain.TierCosts[record.ProductType]
	}
	if balance, err := s.entitlement.PointBalance(ctx, user.ID); err == nil {
		meta.PointBalance = balance
	} else {
		s.log.Warn("failed to read point balance", zap.String("user_id", user.ID), zap.Error(err))
	}
	if status, err := s.entitlement.CanUseFreeAnalysis(ctx, user.ID, user.Email); err == nil {
		meta.FreeAnalysisStatus = status
	} else {
		s.log.Warn("failed to read free quota", zap.String("user_id", user.ID), zap.Error(err))
	}

	return &domain.Response{Result: served, Meta: meta}, nil
}

var fallbackNames = []string{"first member", "second member", "third member", "fourth member", "fifth member"}

func memberFallbackName(i int) string {
	if i < len(fallbackNames) {
		return fallbackNames[i]
	}
	return "member"
}
