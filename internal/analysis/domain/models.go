package domain

import (
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	entitlementdomain "github.com/unselab/saju/internal/entitlement/domain"
	"github.com/unselab/saju/internal/saju/calendar"
	"github.com/unselab/saju/internal/saju/element"
	"github.com/unselab/saju/internal/saju/oheng"
	"github.com/unselab/saju/internal/saju/score"
	"gorm.io/datatypes"
)

// CalendarSystem is the calendar the birth date was given in. Lunar dates
// are recorded as-is; the engine does not convert them.
type CalendarSystem string

const (
	CalendarSolar CalendarSystem = "solar"
	CalendarLunar CalendarSystem = "lunar"
)

// BirthInput is one analysis request. Immutable once validated.
type BirthInput struct {
	Name           string                        `json:"name,omitempty"`
	BirthDate      time.Time                     `json:"birth_date"`
	BirthTime      *calendar.TimeOfDay           `json:"birth_time,omitempty"`
	Gender         string                        `json:"gender,omitempty"`
	CalendarSystem CalendarSystem                `json:"calendar_system"`
	MBTI           string                        `json:"mbti,omitempty"`
	Tier           entitlementdomain.ProductTier `json:"tier"`
}

// Validate normalizes defaults and rejects malformed input before any
// state is touched.
func (in *BirthInput) Validate() error {
	if in.BirthDate.IsZero() {
		return ErrMissingBirthDate
	}
	if in.CalendarSystem == "" {
		in.CalendarSystem = CalendarSolar
	}
	if in.CalendarSystem != CalendarSolar && in.CalendarSystem != CalendarLunar {
		return ErrInvalidCalendar
	}
	if in.Tier == "" {
		in.Tier = entitlementdomain.TierBasic
	}
	if !entitlementdomain.ValidTier(in.Tier) {
		return entitlementdomain.ErrInvalidTier
	}
	if in.BirthTime != nil {
		if in.BirthTime.Hour < 0 || in.BirthTime.Hour > 23 ||
			in.BirthTime.Minute < 0 || in.BirthTime.Minute > 59 {
			return ErrInvalidBirthTime
		}
	}
	return nil
}

// PillarView is the serialized form of one pillar.
type PillarView struct {
	Stem    string          `json:"stem"`
	Branch  string          `json:"branch"`
	Element element.Element `json:"element"`
}

// ChartView is the serialized chart. Hour is omitted for 3-pillar charts.
type ChartView struct {
	Year  PillarView  `json:"year"`
	Month PillarView  `json:"month"`
	Day   PillarView  `json:"day"`
	Hour  *PillarView `json:"hour,omitempty"`
}

// NewChartView renders a computed chart for persistence and responses.
func NewChartView(c calendar.Chart) ChartView {
	view := ChartView{
		Year:  newPillarView(c.Year),
		Month: newPillarView(c.Month),
		Day:   newPillarView(c.Day),
	}
	if c.Hour != nil {
		hour := newPillarView(*c.Hour)
		view.Hour = &hour
	}
	return view
}

func newPillarView(p calendar.Pillar) PillarView {
	return PillarView{
		Stem:    p.Stem.String(),
		Branch:  p.Branch.String(),
		Element: p.Stem.Element(),
	}
}

// ElementView is the serialized five-element analysis.
type ElementView struct {
	Counts     map[element.Element]int `json:"counts"`
	Dominant   element.Element         `json:"dominant"`
	Missing    []element.Element       `json:"missing"`
	DayMaster  string                  `json:"day_master"`
	DayElement element.Element         `json:"day_element"`
	Strength   oheng.Strength          `json:"strength"`
	Yongsin    []element.Element       `json:"yongsin"`
	Gisin      []element.Element       `json:"gisin"`
}

// NewElementView renders an oheng analysis.
func NewElementView(r oheng.Result) ElementView {
	return ElementView{
		Counts:     r.Balance.Counts,
		Dominant:   r.Balance.Dominant,
		Missing:    r.Balance.Missing,
		DayMaster:  r.DayMaster.String(),
		DayElement: r.DayElement,
		Strength:   r.Strength,
		Yongsin:    r.Yongsin,
		Gisin:      r.Gisin,
	}
}

// Result is the full analysis document. The redaction gate operates on
// this shape; its narrative fields are the ones gated behind payment.
type Result struct {
	Chart       ChartView                 `json:"chart"`
	Elements    ElementView               `json:"elements"`
	Scores      score.FortuneScores       `json:"scores"`
	Personality score.PersonalityAnalysis `json:"personality"`

	// Free teaser fields.
	PeerComparison string `json:"peer_comparison"`

	// GeneralAdvice keeps its first sentence in the blinded view; the
	// remaining fields are fully locked.
	GeneralAdvice  string `json:"general_advice"`
	WealthAdvice   string `json:"wealth_advice"`
	LoveAdvice     string `json:"love_advice"`
	CareerAdvice   string `json:"career_advice"`
	HealthAdvice   string `json:"health_advice"`
	YongsinGuide   string `json:"yongsin_guide"`
	MonthlyOutlook string `json:"monthly_outlook"`
}

// Retention windows per tier, applied to expires_at on persist.
const (
	RetentionBasic   = 30 * 24 * time.Hour
	RetentionPremium = 45 * 24 * time.Hour
)

// RetentionFor returns how long a stored analysis of the given tier lives.
func RetentionFor(tier entitlementdomain.ProductTier) time.Duration {
	if tier == entitlementdomain.TierBasic {
		return RetentionBasic
	}
	return RetentionPremium
}

// Record is the persisted analysis row. Result and Input are stored as
// JSON documents; Result always holds the full, unredacted document, and
// IsBlinded decides how it is served.
type Record struct {
	ID          snowflake.ID                  `gorm:"primaryKey"`
	UserID      string                        `gorm:"type:text;not null;index"`
	ProductType entitlementdomain.ProductTier `gorm:"type:text;not null"`
	IsPremium   bool                          `gorm:"not null;default:false"`
	IsBlinded   bool                          `gorm:"not null;default:true"`
	PointsPaid  int64                         `gorm:"not null;default:0"`
	Input       datatypes.JSON                `gorm:"not null"`
	Result      datatypes.JSON                `gorm:"not null"`
	CreatedAt   time.Time                     `gorm:"not null"`
	ExpiresAt   time.Time                     `gorm:"not null;index"`
}

func (Record) TableName() string { return "analyses" }

// Voucher is a pre-paid credit for one unblind of a given product type,
// sold through the QR flow. Redeemed exactly once.
type Voucher struct {
	ID          snowflake.ID                  `gorm:"primaryKey"`
	UserID      string                        `gorm:"type:text;not null;index"`
	ProductType entitlementdomain.ProductTier `gorm:"type:text;not null"`
	Redeemed    bool                          `gorm:"not null;default:false"`
	RedeemedAt  *time.Time
	CreatedAt   time.Time `gorm:"not null"`
}

func (Voucher) TableName() string { return "vouchers" }

// Meta is the entitlement metadata returned alongside a result.
type Meta struct {
	AnalysisID         string                               `json:"analysis_id"`
	IsBlinded          bool                                 `json:"is_blinded"`
	AccessMode         entitlementdomain.AccessMode         `json:"access_mode"`
	PointBalance       int64                                `json:"point_balance"`
	FreeAnalysisStatus entitlementdomain.FreeAnalysisStatus `json:"free_analysis_status"`
	UpgradeCost        int64                                `json:"upgrade_cost,omitempty"`
}

// Response pairs a (possibly redacted) result with its metadata.
type Response struct {
	Result Result `json:"result"`
	Meta   Meta   `json:"meta"`
}

// GroupMemberInput is one participant of a group compatibility request.
type GroupMemberInput struct {
	Name      string              `json:"name"`
	BirthDate time.Time           `json:"birth_date"`
	BirthTime *calendar.TimeOfDay `json:"birth_time,omitempty"`
}

// GroupMemberView summarizes one member's chart in the group response.
type GroupMemberView struct {
	Name       string          `json:"name"`
	DayMaster  string          `json:"day_master"`
	DayElement element.Element `json:"day_element"`
}

var (
	ErrMissingBirthDate = errors.New("missing_birth_date")
	ErrInvalidBirthTime = errors.New("invalid_birth_time")
	ErrInvalidCalendar  = errors.New("invalid_calendar_system")
	ErrNotFound         = errors.New("analysis_not_found")
	ErrNoVoucher        = errors.New("no_voucher")
)
