package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Irislinhnguyen/mc-team-hub-sub008/internal/common"
	"github.com/Irislinhnguyen/mc-team-hub-sub008/internal/model"
)

// CreateSheet registers a new quarterly sheet target.
func (s *SQLiteStorage) CreateSheet(ctx context.Context, sheet *model.QuarterlySheet) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if sheet == nil {
		return fmt.Errorf("%w: sheet", ErrNilParameter)
	}
	if err := sheet.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSheet, err)
	}

	query := `
		INSERT INTO quarterly_sheets (
			year, quarter, group_name, document_id, tab_name, webhook_token, sync_status
		) VALUES (?, ?, ?, ?, ?, ?, ?)`

	result, err := s.db.ExecContext(ctx, query,
		sheet.Year, sheet.Quarter, string(sheet.Group),
		sheet.DocumentID, sheet.TabName, sheet.WebhookToken, string(sheet.SyncStatus))
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return fmt.Errorf("%w: sheet for %d Q%d %s",
				common.ErrDuplicateEntry, sheet.Year, sheet.Quarter, sheet.Group)
		}
		return fmt.Errorf("failed to insert sheet: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read sheet id: %w", err)
	}
	sheet.ID = id

	slog.Info("registered quarterly sheet",
		"id", id, "year", sheet.Year, "quarter", sheet.Quarter, "group", sheet.Group)
	return nil
}

const sheetColumns = `id, year, quarter, group_name, document_id, tab_name,
	webhook_token, sync_status, created_at, updated_at`

func scanSheet(row rowScanner) (*model.QuarterlySheet, error) {
	var (
		sheet  model.QuarterlySheet
		group  string
		status string
	)
	err := row.Scan(&sheet.ID, &sheet.Year, &sheet.Quarter, &group,
		&sheet.DocumentID, &sheet.TabName, &sheet.WebhookToken, &status,
		&sheet.CreatedAt, &sheet.UpdatedAt)
	if err != nil {
		return nil, err
	}
	sheet.Group = model.Group(group)
	sheet.SyncStatus = model.SyncStatus(status)
	return &sheet, nil
}

// GetSheet returns one registry entry by id.
func (s *SQLiteStorage) GetSheet(ctx context.Context, id int64) (*model.QuarterlySheet, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`SELECT %s FROM quarterly_sheets WHERE id = ?`, sheetColumns)
	sheet, err := scanSheet(s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: sheet %d", common.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query sheet: %w", err)
	}
	return sheet, nil
}

// ListSheets returns every registry entry with its pipeline count, newest
// quarter first.
func (s *SQLiteStorage) ListSheets(ctx context.Context) ([]model.QuarterlySheet, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	query := `
		SELECT s.id, s.year, s.quarter, s.group_name, s.document_id, s.tab_name,
			s.webhook_token, s.sync_status, s.created_at, s.updated_at,
			COUNT(p.id) AS pipeline_count
		FROM quarterly_sheets s
		LEFT JOIN pipelines p ON p.quarterly_sheet_id = s.id
		GROUP BY s.id
		ORDER BY s.year DESC, s.quarter DESC, s.group_name`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query sheets: %w", err)
	}
	defer rows.Close()

	var sheets []model.QuarterlySheet
	for rows.Next() {
		var (
			sheet  model.QuarterlySheet
			group  string
			status string
		)
		if err := rows.Scan(&sheet.ID, &sheet.Year, &sheet.Quarter, &group,
			&sheet.DocumentID, &sheet.TabName, &sheet.WebhookToken, &status,
			&sheet.CreatedAt, &sheet.UpdatedAt, &sheet.PipelineCount); err != nil {
			return nil, fmt.Errorf("failed to scan sheet: %w", err)
		}
		sheet.Group = model.Group(group)
		sheet.SyncStatus = model.SyncStatus(status)
		sheets = append(sheets, sheet)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sheets: %w", err)
	}
	return sheets, nil
}

// UpdateSheetStatus moves a sheet among active/paused/archived.
func (s *SQLiteStorage) UpdateSheetStatus(ctx context.Context, id int64, status model.SyncStatus) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if !status.IsValid() {
		return fmt.Errorf("%w: unknown sync status %q", ErrInvalidSheet, status)
	}

	result, err := s.db.ExecContext(ctx,
		`UPDATE quarterly_sheets SET sync_status = ? WHERE id = ?`, string(status), id)
	if err != nil {
		return fmt.Errorf("failed to update sheet status: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: sheet %d", common.ErrNotFound, id)
	}
	return nil
}

// DeleteSheet removes a registry entry. Pipelines pointing at it go first,
// each cascading to its own forecasts and activity entries.
func (s *SQLiteStorage) DeleteSheet(ctx context.Context, id int64) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `
		DELETE FROM monthly_forecasts WHERE pipeline_id IN
			(SELECT id FROM pipelines WHERE quarterly_sheet_id = ?)`, id); err != nil {
		return fmt.Errorf("failed to delete forecasts: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
		DELETE FROM activity_log WHERE pipeline_id IN
			(SELECT id FROM pipelines WHERE quarterly_sheet_id = ?)`, id); err != nil {
		return fmt.Errorf("failed to delete activity entries: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM pipelines WHERE quarterly_sheet_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete pipelines: %w", err)
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM quarterly_sheets WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete sheet: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: sheet %d", common.ErrNotFound, id)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit delete: %w", err)
	}

	slog.Info("deleted quarterly sheet", "id", id)
	return nil
}
