package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// MonthlyForecast is one month of a pipeline's active fiscal quarter. Exactly
// three rows exist per pipeline; they are replaced wholesale whenever the
// revenue calculator runs and are never edited directly.
type MonthlyForecast struct {
	ID             int64           `json:"id"`
	PipelineID     string          `json:"pipeline_id"`
	Year           int             `json:"year"`
	Month          int             `json:"month"`
	DeliveryDays   int             `json:"delivery_days"`
	GrossRevenue   decimal.Decimal `json:"gross_revenue"`
	NetRevenue     decimal.Decimal `json:"net_revenue"`
	ValidationFlag bool            `json:"validation_flag"`
	CreatedAt      time.Time       `json:"created_at"`
}
