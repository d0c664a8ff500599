package revenue

import (
	"time"

	"github.com/Irislinhnguyen/mc-team-hub-sub008/internal/model"
	"github.com/shopspring/decimal"
)

var (
	thirty  = decimal.NewFromInt(30)
	hundred = decimal.NewFromInt(100)
)

// MonthInput is one month's share of a calculation request. A nil
// DeliveryDays falls back to 30 (plain calculation mode); an explicit zero
// stays zero.
type MonthInput struct {
	Year         int
	Month        int
	DeliveryDays *int
}

// Input carries the financial inputs for one pipeline.
type Input struct {
	MaxGross        decimal.NullDecimal
	RevenueShare    decimal.NullDecimal
	ProgressPercent decimal.NullDecimal
	Status          model.Stage
	Months          [3]MonthInput
}

// Result holds every derived financial field. Monetary values are rounded
// half-up to 2 decimal places; quarter totals are the rounded sum of the
// already-rounded monthly values so the printed cells always add up.
type Result struct {
	DayGross  decimal.NullDecimal
	DayNetRev decimal.NullDecimal
	Months    [3]model.MonthRevenue
	QGross    decimal.Decimal
	QNetRev   decimal.Decimal
}

// Breakdown converts the result into the stored quarterly breakdown.
func (r Result) Breakdown() *model.QuarterlyBreakdown {
	return &model.QuarterlyBreakdown{Months: r.Months}
}

// ApplyTo writes the derived fields back onto a pipeline.
func (r Result) ApplyTo(p *model.Pipeline) {
	p.DayGross = r.DayGross
	p.DayNetRev = r.DayNetRev
	p.QGross = r.QGross
	p.QNetRev = r.QNetRev
	p.Breakdown = r.Breakdown()
}

// Forecasts renders the result as the pipeline's three monthly forecast rows.
// The validation flag marks months whose delivery days came from the default
// table rather than a real starting date.
func (r Result) Forecasts(pipelineID string, defaulted bool) []model.MonthlyForecast {
	forecasts := make([]model.MonthlyForecast, 0, len(r.Months))
	for _, m := range r.Months {
		forecasts = append(forecasts, model.MonthlyForecast{
			PipelineID:     pipelineID,
			Year:           m.Year,
			Month:          m.Month,
			DeliveryDays:   m.DeliveryDays,
			GrossRevenue:   m.Gross,
			NetRevenue:     m.Net,
			ValidationFlag: defaulted,
		})
	}
	return forecasts
}

// Calculate derives daily, monthly, and quarterly revenue from the inputs.
// Null inputs propagate to null dailies and zero monthly figures; the
// zero-revenue stages force every output to zero regardless of inputs.
func Calculate(in Input) Result {
	var out Result

	if in.MaxGross.Valid {
		out.DayGross = decimal.NewNullDecimal(in.MaxGross.Decimal.Div(thirty).Round(2))
		if in.RevenueShare.Valid {
			out.DayNetRev = decimal.NewNullDecimal(
				out.DayGross.Decimal.Mul(in.RevenueShare.Decimal.Div(hundred)).Round(2))
		}
	}

	progress := decimal.Zero
	if in.ProgressPercent.Valid {
		progress = in.ProgressPercent.Decimal.Div(hundred)
	}

	zeroRevenue := in.Status.IsZeroRevenue()

	for i, m := range in.Months {
		days := 30
		if m.DeliveryDays != nil {
			days = *m.DeliveryDays
		}
		month := model.MonthRevenue{
			Year:         m.Year,
			Month:        m.Month,
			DeliveryDays: days,
			Gross:        decimal.Zero,
			Net:          decimal.Zero,
		}
		if !zeroRevenue && out.DayGross.Valid {
			dayCount := decimal.NewFromInt(int64(days))
			month.Gross = out.DayGross.Decimal.Mul(progress).Mul(dayCount).Round(2)
			if out.DayNetRev.Valid {
				month.Net = out.DayNetRev.Decimal.Mul(progress).Mul(dayCount).Round(2)
			}
		}
		out.Months[i] = month
	}

	out.QGross = out.Months[0].Gross.Add(out.Months[1].Gross).Add(out.Months[2].Gross).Round(2)
	out.QNetRev = out.Months[0].Net.Add(out.Months[1].Net).Add(out.Months[2].Net).Round(2)
	return out
}

// CalculateFromStart derives the three delivery-day entries for the fiscal
// quarter containing now from the pipeline's starting date, then calculates.
func CalculateFromStart(in Input, startingDate *time.Time, now time.Time) Result {
	fy, q := FiscalQuarter(now)
	months := QuarterMonths(fy, q)
	for i, ym := range months {
		days := DeliveryDays(startingDate, ym.Year, ym.Month)
		in.Months[i] = MonthInput{Year: ym.Year, Month: ym.Month, DeliveryDays: &days}
	}
	return Calculate(in)
}
