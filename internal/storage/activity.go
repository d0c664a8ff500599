package storage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Irislinhnguyen/mc-team-hub-sub008/internal/model"
	"github.com/Irislinhnguyen/mc-team-hub-sub008/internal/service"
)

// AppendActivity writes one immutable audit entry. There is no update or
// delete path; only cascading pipeline deletion removes entries.
func (s *SQLiteStorage) AppendActivity(ctx context.Context, entry *model.ActivityLogEntry) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateActivityEntry(entry); err != nil {
		return err
	}

	query := `
		INSERT INTO activity_log (
			pipeline_id, activity_type, field_changed,
			old_value, new_value, notes, logged_by, logged_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, COALESCE(?, CURRENT_TIMESTAMP))`

	var loggedAt any
	if !entry.LoggedAt.IsZero() {
		loggedAt = entry.LoggedAt
	}

	result, err := s.db.ExecContext(ctx, query,
		entry.PipelineID, string(entry.Type), entry.FieldChanged,
		entry.OldValue, entry.NewValue, entry.Notes, entry.LoggedBy, loggedAt)
	if err != nil {
		return fmt.Errorf("failed to append activity: %w", err)
	}

	if id, idErr := result.LastInsertId(); idErr == nil {
		entry.ID = id
	}

	slog.Debug("appended activity",
		"pipeline_id", entry.PipelineID,
		"type", entry.Type,
		"field", entry.FieldChanged)
	return nil
}

// GetActivity returns a page of a pipeline's audit trail, newest first, along
// with the total count matching the filter.
func (s *SQLiteStorage) GetActivity(ctx context.Context, pipelineID string, filter service.ActivityFilter) ([]model.ActivityLogEntry, int, error) {
	if err := validateContext(ctx); err != nil {
		return nil, 0, err
	}
	if err := validateString(pipelineID, "pipelineID"); err != nil {
		return nil, 0, err
	}

	where := "WHERE pipeline_id = ?"
	args := []any{pipelineID}
	if filter.Type != nil {
		where += " AND activity_type = ?"
		args = append(args, string(*filter.Type))
	}

	var total int
	countQuery := "SELECT COUNT(*) FROM activity_log " + where
	if err := s.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count activity: %w", err)
	}

	query := `
		SELECT id, pipeline_id, activity_type, field_changed,
			old_value, new_value, notes, logged_by, logged_at
		FROM activity_log ` + where + `
		ORDER BY logged_at DESC, id DESC`

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
		return nil, 0, fmt.Errorf("failed to query activity: %w", err)
	}
	defer rows.Close()

	var entries []model.ActivityLogEntry
	for rows.Next() {
		var (
			e            model.ActivityLogEntry
			activityType string
		)
		if err := rows.Scan(&e.ID, &e.PipelineID, &activityType, &e.FieldChanged,
			&e.OldValue, &e.NewValue, &e.Notes, &e.LoggedBy, &e.LoggedAt); err != nil {
			return nil, 0, fmt.Errorf("failed to scan activity entry: %w", err)
		}
		e.Type = model.ActivityType(activityType)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating activity: %w", err)
	}
	return entries, total, nil
}
