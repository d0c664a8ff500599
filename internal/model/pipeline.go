// Package model defines the core domain models used throughout the application.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Stage is the position of a pipeline in the fixed deal progression.
type Stage string

// Stage constants, ordered roughly by deal progress. Failed is a legacy code
// that still occurs in external sheets; it behaves like a terminal lost state.
const (
	StageExploration         Stage = "EXPLORATION"
	StageDiscovery           Stage = "DISCOVERY"
	StageWeakInterest        Stage = "WEAK_INTEREST"
	StageInterest            Stage = "INTEREST"
	StageStrongInterest      Stage = "STRONG_INTEREST"
	StageAgreement           Stage = "AGREEMENT"
	StageReadyToDeliver      Stage = "READY_TO_DELIVER"
	StageDistributionStarted Stage = "DISTRIBUTION_STARTED"
	StageWon                 Stage = "WON"
	StageClosed              Stage = "CLOSED"
	StageFailed              Stage = "FAILED"
)

// AllStages lists every recognized stage in progression order.
var AllStages = []Stage{
	StageExploration,
	StageDiscovery,
	StageWeakInterest,
	StageInterest,
	StageStrongInterest,
	StageAgreement,
	StageReadyToDeliver,
	StageDistributionStarted,
	StageWon,
	StageClosed,
	StageFailed,
}

// stageLabels maps stages to the decorated labels the external sheets use.
// Decoration is presentation only; logic compares Stage values, never labels.
var stageLabels = map[Stage]string{
	StageExploration:         "[E] Exploration",
	StageDiscovery:           "[D] Discovery",
	StageWeakInterest:        "[W-] Weak Interest",
	StageInterest:            "[I] Interest",
	StageStrongInterest:      "[I+] Strong Interest",
	StageAgreement:           "[A] Agreement",
	StageReadyToDeliver:      "[R] Ready to Deliver",
	StageDistributionStarted: "[S-] Distribution Started",
	StageWon:                 "[S] Won",
	StageClosed:              "[C] Closed",
	StageFailed:              "[F] Failed",
}

// Label returns the decorated human-facing label for the stage.
func (s Stage) Label() string {
	if label, ok := stageLabels[s]; ok {
		return label
	}
	return string(s)
}

// IsValid reports whether s is one of the recognized stages.
func (s Stage) IsValid() bool {
	_, ok := stageLabels[s]
	return ok
}

// IsZeroRevenue reports whether the stage forces all derived revenue to zero
// regardless of financial inputs.
func (s Stage) IsZeroRevenue() bool {
	return s == StageDiscovery || s == StageExploration || s == StageFailed
}

// ParseStage resolves a stage from either the canonical code or the decorated
// sheet label. Returns false if the value matches neither form.
func ParseStage(value string) (Stage, bool) {
	candidate := Stage(value)
	if candidate.IsValid() {
		return candidate, true
	}
	for stage, label := range stageLabels {
		if label == value {
			return stage, true
		}
	}
	return "", false
}

// ConfirmationStatus tracks the Distribution-Started confirmation sub-protocol.
type ConfirmationStatus string

// Confirmation status values. An empty status means the confirmation is
// still pending.
const (
	ConfirmationPending   ConfirmationStatus = ""
	ConfirmationConfirmed ConfirmationStatus = "confirmed"
	ConfirmationDeclined  ConfirmationStatus = "declined"
)

// QuarterlyBreakdown records the three per-month gross/net figures, mirroring
// the spreadsheet's column layout for downstream display.
type QuarterlyBreakdown struct {
	Months [3]MonthRevenue `json:"months"`
}

// MonthRevenue is one month's slice of the quarterly breakdown.
type MonthRevenue struct {
	Year         int             `json:"year"`
	Month        int             `json:"month"`
	DeliveryDays int             `json:"delivery_days"`
	Gross        decimal.Decimal `json:"gross"`
	Net          decimal.Decimal `json:"net"`
}

// Pipeline is the canonical sales/delivery opportunity record.
type Pipeline struct {
	ID               string `json:"id"`
	Group            Group  `json:"group"`
	QuarterlySheetID int64  `json:"quarterly_sheet_id"`
	SheetRowNumber   *int64 `json:"sheet_row_number,omitempty"`

	Assignee  string `json:"assignee"`
	Publisher string `json:"publisher"`
	Zone      string `json:"zone,omitempty"`

	// Financial inputs. Null inputs propagate to null derived dailies and
	// zero monthly figures rather than erroring.
	MaxGross        decimal.NullDecimal `json:"max_gross"`
	RevenueShare    decimal.NullDecimal `json:"revenue_share"`
	ProgressPercent decimal.NullDecimal `json:"progress_percent"`

	// Derived financial outputs, recomputed by the revenue calculator and
	// never hand-edited.
	DayGross  decimal.NullDecimal `json:"day_gross"`
	DayNetRev decimal.NullDecimal `json:"day_net_rev"`
	QGross    decimal.Decimal     `json:"q_gross"`
	QNetRev   decimal.Decimal     `json:"q_net_rev"`
	Breakdown *QuarterlyBreakdown `json:"quarterly_breakdown,omitempty"`

	Status             Stage              `json:"status"`
	StartingDate       *time.Time         `json:"starting_date,omitempty"`
	ActualStartingDate *time.Time         `json:"actual_starting_date,omitempty"`
	CloseWonDate       *time.Time         `json:"close_won_date,omitempty"`
	ConfirmationStatus ConfirmationStatus `json:"s_confirmation_status,omitempty"`
	ConfirmedAt        *time.Time         `json:"s_confirmed_at,omitempty"`
	DeclinedAt         *time.Time         `json:"s_declined_at,omitempty"`
	ConfirmationNotes  string             `json:"s_confirmation_notes,omitempty"`

	NextAction  string `json:"next_action,omitempty"`
	ActionNotes string `json:"action_notes,omitempty"`

	CreatedBy string    `json:"created_by"`
	UpdatedBy string    `json:"updated_by"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
