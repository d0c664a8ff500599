package storage

import (
	"context"
	"fmt"

	"github.com/Irislinhnguyen/mc-team-hub-sub008/internal/model"
)

// ReplaceForecasts swaps out a pipeline's three monthly forecast rows. The
// calculator always produces a full quarter; partial replacement is not a
// thing.
func (s *SQLiteStorage) ReplaceForecasts(ctx context.Context, pipelineID string, forecasts []model.MonthlyForecast) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(pipelineID, "pipelineID"); err != nil {
		return err
	}
	if len(forecasts) != 3 {
		return fmt.Errorf("%w: got %d", ErrForecastsCount, len(forecasts))
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM monthly_forecasts WHERE pipeline_id = ?`, pipelineID); err != nil {
		return fmt.Errorf("failed to clear forecasts: %w", err)
	}

	query := `
		INSERT INTO monthly_forecasts (
			pipeline_id, year, month, delivery_days,
			gross_revenue, net_revenue, validation_flag
		) VALUES (?, ?, ?, ?, ?, ?, ?)`

	for _, f := range forecasts {
		if _, err := tx.ExecContext(ctx, query,
			pipelineID, f.Year, f.Month, f.DeliveryDays,
			f.GrossRevenue.String(), f.NetRevenue.String(), f.ValidationFlag); err != nil {
			return fmt.Errorf("failed to insert forecast %d-%02d: %w", f.Year, f.Month, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit forecasts: %w", err)
	}
	return nil
}

// GetForecasts returns a pipeline's forecast rows in calendar order.
func (s *SQLiteStorage) GetForecasts(ctx context.Context, pipelineID string) ([]model.MonthlyForecast, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(pipelineID, "pipelineID"); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, pipeline_id, year, month, delivery_days,
			gross_revenue, net_revenue, validation_flag, created_at
		FROM monthly_forecasts
		WHERE pipeline_id = ?
		ORDER BY year, month`, pipelineID)
	if err != nil {
		return nil, fmt.Errorf("failed to query forecasts: %w", err)
	}
	defer rows.Close()

	var forecasts []model.MonthlyForecast
	for rows.Next() {
		var (
			f          model.MonthlyForecast
			gross, net string
		)
		if err := rows.Scan(&f.ID, &f.PipelineID, &f.Year, &f.Month, &f.DeliveryDays,
			&gross, &net, &f.ValidationFlag, &f.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan forecast: %w", err)
		}
		if f.GrossRevenue, err = scanDecimal(gross); err != nil {
			return nil, err
		}
		if f.NetRevenue, err = scanDecimal(net); err != nil {
			return nil, err
		}
		forecasts = append(forecasts, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating forecasts: %w", err)
	}
	return forecasts, nil
}
