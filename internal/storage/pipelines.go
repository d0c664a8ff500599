package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Irislinhnguyen/mc-team-hub-sub008/internal/common"
	"github.com/Irislinhnguyen/mc-team-hub-sub008/internal/model"
	"github.com/Irislinhnguyen/mc-team-hub-sub008/internal/service"
	"github.com/shopspring/decimal"
)

const pipelineColumns = `id, group_name, quarterly_sheet_id, sheet_row_number,
	assignee, publisher, zone,
	max_gross, revenue_share, progress_percent,
	day_gross, day_net_rev, q_gross, q_net_rev, quarterly_breakdown,
	status, starting_date, actual_starting_date, close_won_date,
	s_confirmation_status, s_confirmed_at, s_declined_at, s_confirmation_notes,
	next_action, action_notes,
	created_by, updated_by, created_at, updated_at`

// nullDecimalArg converts a NullDecimal to a driver argument.
func nullDecimalArg(d decimal.NullDecimal) any {
	if !d.Valid {
		return nil
	}
	return d.Decimal.String()
}

func scanNullDecimal(s sql.NullString) (decimal.NullDecimal, error) {
	if !s.Valid || s.String == "" {
		return decimal.NullDecimal{}, nil
	}
	d, err := decimal.NewFromString(s.String)
	if err != nil {
		return decimal.NullDecimal{}, fmt.Errorf("invalid decimal %q: %w", s.String, err)
	}
	return decimal.NewNullDecimal(d), nil
}

func scanDecimal(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(s)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPipeline(row rowScanner) (*model.Pipeline, error) {
	var (
		p                                model.Pipeline
		sheetRow                         sql.NullInt64
		maxGross, revShare, progress     sql.NullString
		dayGross, dayNet                 sql.NullString
		qGross, qNet                     string
		breakdown                        sql.NullString
		startDate, actualStart, closeWon sql.NullTime
		confirmedAt, declinedAt          sql.NullTime
		status, confirmationStatus       string
		group                            string
	)

	err := row.Scan(
		&p.ID, &group, &p.QuarterlySheetID, &sheetRow,
		&p.Assignee, &p.Publisher, &p.Zone,
		&maxGross, &revShare, &progress,
		&dayGross, &dayNet, &qGross, &qNet, &breakdown,
		&status, &startDate, &actualStart, &closeWon,
		&confirmationStatus, &confirmedAt, &declinedAt, &p.ConfirmationNotes,
		&p.NextAction, &p.ActionNotes,
		&p.CreatedBy, &p.UpdatedBy, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	p.Group = model.Group(group)
	p.Status = model.Stage(status)
	p.ConfirmationStatus = model.ConfirmationStatus(confirmationStatus)
	if sheetRow.Valid {
		p.SheetRowNumber = &sheetRow.Int64
	}
	if p.MaxGross, err = scanNullDecimal(maxGross); err != nil {
		return nil, err
	}
	if p.RevenueShare, err = scanNullDecimal(revShare); err != nil {
		return nil, err
	}
	if p.ProgressPercent, err = scanNullDecimal(progress); err != nil {
		return nil, err
	}
	if p.DayGross, err = scanNullDecimal(dayGross); err != nil {
		return nil, err
	}
	if p.DayNetRev, err = scanNullDecimal(dayNet); err != nil {
		return nil, err
	}
	if p.QGross, err = scanDecimal(qGross); err != nil {
		return nil, err
	}
	if p.QNetRev, err = scanDecimal(qNet); err != nil {
		return nil, err
	}
	if breakdown.Valid && breakdown.String != "" {
		var b model.QuarterlyBreakdown
		if err := json.Unmarshal([]byte(breakdown.String), &b); err != nil {
			return nil, fmt.Errorf("failed to decode quarterly breakdown: %w", err)
		}
		p.Breakdown = &b
	}
	if startDate.Valid {
		p.StartingDate = &startDate.Time
	}
	if actualStart.Valid {
		p.ActualStartingDate = &actualStart.Time
	}
	if closeWon.Valid {
		p.CloseWonDate = &closeWon.Time
	}
	if confirmedAt.Valid {
		p.ConfirmedAt = &confirmedAt.Time
	}
	if declinedAt.Valid {
		p.DeclinedAt = &declinedAt.Time
	}
	return &p, nil
}

func pipelineArgs(p *model.Pipeline) ([]any, error) {
	var breakdown any
	if p.Breakdown != nil {
		raw, err := json.Marshal(p.Breakdown)
		if err != nil {
			return nil, fmt.Errorf("failed to encode quarterly breakdown: %w", err)
		}
		breakdown = string(raw)
	}

	var sheetRow any
	if p.SheetRowNumber != nil {
		sheetRow = *p.SheetRowNumber
	}

	var startDate, actualStart, closeWon, confirmedAt, declinedAt any
	if p.StartingDate != nil {
		startDate = *p.StartingDate
	}
	if p.ActualStartingDate != nil {
		actualStart = *p.ActualStartingDate
	}
	if p.CloseWonDate != nil {
		closeWon = *p.CloseWonDate
	}
	if p.ConfirmedAt != nil {
		confirmedAt = *p.ConfirmedAt
	}
	if p.DeclinedAt != nil {
		declinedAt = *p.DeclinedAt
	}

	return []any{
		string(p.Group), p.QuarterlySheetID, sheetRow,
		p.Assignee, p.Publisher, p.Zone,
		nullDecimalArg(p.MaxGross), nullDecimalArg(p.RevenueShare), nullDecimalArg(p.ProgressPercent),
		nullDecimalArg(p.DayGross), nullDecimalArg(p.DayNetRev),
		p.QGross.String(), p.QNetRev.String(), breakdown,
		string(p.Status), startDate, actualStart, closeWon,
		string(p.ConfirmationStatus), confirmedAt, declinedAt, p.ConfirmationNotes,
		p.NextAction, p.ActionNotes,
		p.CreatedBy, p.UpdatedBy,
	}, nil
}

// CreatePipeline inserts a pipeline. Only ingestion calls this; the API layer
// has no create path.
func (s *SQLiteStorage) CreatePipeline(ctx context.Context, p *model.Pipeline) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validatePipeline(p); err != nil {
		return err
	}

	args, err := pipelineArgs(p)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO pipelines (
			group_name, quarterly_sheet_id, sheet_row_number,
			assignee, publisher, zone,
			max_gross, revenue_share, progress_percent,
			day_gross, day_net_rev, q_gross, q_net_rev, quarterly_breakdown,
			status, starting_date, actual_starting_date, close_won_date,
			s_confirmation_status, s_confirmed_at, s_declined_at, s_confirmation_notes,
			next_action, action_notes,
			created_by, updated_by, id
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	if _, err := s.db.ExecContext(ctx, query, append(args, p.ID)...); err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return fmt.Errorf("%w: pipeline %s", common.ErrDuplicateEntry, p.ID)
		}
		return fmt.Errorf("failed to insert pipeline: %w", err)
	}

	slog.Debug("created pipeline", "id", p.ID, "sheet_id", p.QuarterlySheetID)
	return nil
}

// GetPipeline returns one pipeline by id.
func (s *SQLiteStorage) GetPipeline(ctx context.Context, id string) (*model.Pipeline, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`SELECT %s FROM pipelines WHERE id = ?`, pipelineColumns)
	p, err := scanPipeline(s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: pipeline %s", common.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query pipeline: %w", err)
	}
	return p, nil
}

// GetPipelines returns pipelines matching the filter, most recent first.
func (s *SQLiteStorage) GetPipelines(ctx context.Context, filter service.PipelineFilter) ([]model.Pipeline, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	var (
		conds []string
		args  []any
	)
	if filter.SheetID != nil {
		conds = append(conds, "quarterly_sheet_id = ?")
		args = append(args, *filter.SheetID)
	}
	if len(filter.IDs) > 0 {
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(filter.IDs)), ",")
		conds = append(conds, fmt.Sprintf("id IN (%s)", placeholders))
		for _, id := range filter.IDs {
			args = append(args, id)
		}
	}

	query := fmt.Sprintf(`SELECT %s FROM pipelines`, pipelineColumns)
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_at DESC, id DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
		if filter.Offset > 0 {
			query += " OFFSET ?"
			args = append(args, filter.Offset)
		}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query pipelines: %w", err)
	}
	defer rows.Close()

	var pipelines []model.Pipeline
	for rows.Next() {
		p, scanErr := scanPipeline(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan pipeline: %w", scanErr)
		}
		pipelines = append(pipelines, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating pipelines: %w", err)
	}

	slog.Debug("retrieved pipelines", "count", len(pipelines))
	return pipelines, nil
}

// UpdatePipeline overwrites every mutable column of a pipeline.
func (s *SQLiteStorage) UpdatePipeline(ctx context.Context, p *model.Pipeline) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validatePipeline(p); err != nil {
		return err
	}

	args, err := pipelineArgs(p)
	if err != nil {
		return err
	}

	query := `
		UPDATE pipelines SET
			group_name = ?, quarterly_sheet_id = ?, sheet_row_number = ?,
			assignee = ?, publisher = ?, zone = ?,
			max_gross = ?, revenue_share = ?, progress_percent = ?,
			day_gross = ?, day_net_rev = ?, q_gross = ?, q_net_rev = ?, quarterly_breakdown = ?,
			status = ?, starting_date = ?, actual_starting_date = ?, close_won_date = ?,
			s_confirmation_status = ?, s_confirmed_at = ?, s_declined_at = ?, s_confirmation_notes = ?,
			next_action = ?, action_notes = ?,
			created_by = ?, updated_by = ?
		WHERE id = ?`

	result, err := s.db.ExecContext(ctx, query, append(args, p.ID)...)
	if err != nil {
		return fmt.Errorf("failed to update pipeline: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: pipeline %s", common.ErrNotFound, p.ID)
	}
	return nil
}

// SetSheetRowNumber records the external row a pipeline occupies.
func (s *SQLiteStorage) SetSheetRowNumber(ctx context.Context, id string, row int64) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx,
		`UPDATE pipelines SET sheet_row_number = ? WHERE id = ?`, row, id)
	if err != nil {
		return fmt.Errorf("failed to set sheet row number: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: pipeline %s", common.ErrNotFound, id)
	}
	return nil
}

// DeletePipeline removes a pipeline and cascades to its forecasts and
// activity entries. External row deletion is the sync engine's concern.
func (s *SQLiteStorage) DeletePipeline(ctx context.Context, id string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM monthly_forecasts WHERE pipeline_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete forecasts: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM activity_log WHERE pipeline_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete activity entries: %w", err)
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM pipelines WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete pipeline: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: pipeline %s", common.ErrNotFound, id)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit delete: %w", err)
	}

	slog.Info("deleted pipeline", "id", id)
	return nil
}
