package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// ExpectedSchemaVersion is the latest schema version that the application expects.
// If the database cannot be migrated to this version, it's a fatal error.
const ExpectedSchemaVersion = 3

// Migration represents a database schema migration.
type Migration struct {
	Up          func(*sql.Tx) error
	Description string
	Version     int
}

var migrations = []Migration{
	{
		Version:     1,
		Description: "Initial schema",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS quarterly_sheets (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					year INTEGER NOT NULL,
					quarter INTEGER NOT NULL,
					group_name TEXT NOT NULL,
					document_id TEXT NOT NULL,
					tab_name TEXT NOT NULL,
					webhook_token TEXT NOT NULL,
					sync_status TEXT NOT NULL DEFAULT 'active',
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					UNIQUE(year, quarter, group_name)
				)`,

				`CREATE TABLE IF NOT EXISTS pipelines (
					id TEXT PRIMARY KEY,
					group_name TEXT NOT NULL,
					quarterly_sheet_id INTEGER NOT NULL,
					sheet_row_number INTEGER,
					assignee TEXT NOT NULL DEFAULT '',
					publisher TEXT NOT NULL DEFAULT '',
					zone TEXT NOT NULL DEFAULT '',
					max_gross TEXT,
					revenue_share TEXT,
					progress_percent TEXT,
					day_gross TEXT,
					day_net_rev TEXT,
					q_gross TEXT NOT NULL DEFAULT '0',
					q_net_rev TEXT NOT NULL DEFAULT '0',
					quarterly_breakdown TEXT,
					status TEXT NOT NULL,
					starting_date DATETIME,
					actual_starting_date DATETIME,
					close_won_date DATETIME,
					s_confirmation_status TEXT NOT NULL DEFAULT '',
					s_confirmed_at DATETIME,
					s_declined_at DATETIME,
					s_confirmation_notes TEXT NOT NULL DEFAULT '',
					next_action TEXT NOT NULL DEFAULT '',
					action_notes TEXT NOT NULL DEFAULT '',
					created_by TEXT NOT NULL DEFAULT '',
					updated_by TEXT NOT NULL DEFAULT '',
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					FOREIGN KEY (quarterly_sheet_id) REFERENCES quarterly_sheets(id)
				)`,

				`CREATE TABLE IF NOT EXISTS monthly_forecasts (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					pipeline_id TEXT NOT NULL,
					year INTEGER NOT NULL,
					month INTEGER NOT NULL,
					delivery_days INTEGER NOT NULL DEFAULT 0,
					gross_revenue TEXT NOT NULL DEFAULT '0',
					net_revenue TEXT NOT NULL DEFAULT '0',
					validation_flag BOOLEAN DEFAULT 0,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					UNIQUE(pipeline_id, year, month),
					FOREIGN KEY (pipeline_id) REFERENCES pipelines(id)
				)`,

				`CREATE TABLE IF NOT EXISTS activity_log (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					pipeline_id TEXT NOT NULL,
					activity_type TEXT NOT NULL,
					field_changed TEXT,
					old_value TEXT,
					new_value TEXT,
					notes TEXT,
					logged_by TEXT NOT NULL DEFAULT '',
					logged_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					FOREIGN KEY (pipeline_id) REFERENCES pipelines(id)
				)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query: %w", err)
				}
			}
			return nil
		},
	},
	{
		Version:     2,
		Description: "Add lookup indexes",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE INDEX IF NOT EXISTS idx_pipelines_sheet ON pipelines(quarterly_sheet_id)`,
				`CREATE INDEX IF NOT EXISTS idx_pipelines_status ON pipelines(status)`,
				`CREATE INDEX IF NOT EXISTS idx_pipelines_created ON pipelines(created_at)`,
				`CREATE INDEX IF NOT EXISTS idx_forecasts_pipeline ON monthly_forecasts(pipeline_id)`,
				`CREATE INDEX IF NOT EXISTS idx_activity_pipeline ON activity_log(pipeline_id)`,
				`CREATE INDEX IF NOT EXISTS idx_activity_logged_at ON activity_log(logged_at)`,
				`CREATE INDEX IF NOT EXISTS idx_activity_type ON activity_log(activity_type)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query '%s': %w", query, err)
				}
			}
			return nil
		},
	},
	{
		Version:     3,
		Description: "Keep updated_at current via triggers",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TRIGGER IF NOT EXISTS update_pipelines_updated_at
				AFTER UPDATE ON pipelines
				FOR EACH ROW
				BEGIN
					UPDATE pipelines SET updated_at = CURRENT_TIMESTAMP WHERE id = NEW.id;
				END`,
				`CREATE TRIGGER IF NOT EXISTS update_quarterly_sheets_updated_at
				AFTER UPDATE ON quarterly_sheets
				FOR EACH ROW
				BEGIN
					UPDATE quarterly_sheets SET updated_at = CURRENT_TIMESTAMP WHERE id = NEW.id;
				END`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query '%s': %w", query, err)
				}
			}
			return nil
		},
	},
}

// Migrate applies all pending database migrations.
func (s *SQLiteStorage) Migrate(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	// Get current version
	var currentVersion int
	err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&currentVersion)
	if err != nil {
		return fmt.Errorf("failed to get schema version: %w", err)
	}

	// Apply migrations
	for _, migration := range migrations {
		if migration.Version <= currentVersion {
			continue
		}

		tx, txErr := s.db.BeginTx(ctx, nil)
		if txErr != nil {
			return fmt.Errorf("failed to begin transaction: %w", txErr)
		}

		if upErr := migration.Up(tx); upErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d failed: %w", migration.Version, upErr)
		}

		// Update version
		if _, execErr := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", migration.Version)); execErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to update schema version: %w", execErr)
		}

		if commitErr := tx.Commit(); commitErr != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, commitErr)
		}

		slog.Info("Applied migration",
			"version", migration.Version,
			"description", migration.Description)
	}

	// Verify we're at the expected schema version
	var finalVersion int
	err = s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&finalVersion)
	if err != nil {
		return fmt.Errorf("failed to verify final schema version: %w", err)
	}

	if finalVersion != ExpectedSchemaVersion {
		return fmt.Errorf("database schema version mismatch: expected %d, got %d", ExpectedSchemaVersion, finalVersion)
	}

	return nil
}
