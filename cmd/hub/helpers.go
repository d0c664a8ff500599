package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Irislinhnguyen/mc-team-hub-sub008/internal/cache"
	"github.com/Irislinhnguyen/mc-team-hub-sub008/internal/config"
	"github.com/Irislinhnguyen/mc-team-hub-sub008/internal/engine"
	"github.com/Irislinhnguyen/mc-team-hub-sub008/internal/service"
	"github.com/Irislinhnguyen/mc-team-hub-sub008/internal/sheets"
	"github.com/Irislinhnguyen/mc-team-hub-sub008/internal/storage"
	"github.com/Irislinhnguyen/mc-team-hub-sub008/internal/syncer"
	"github.com/spf13/viper"
)

// initStorage initializes the storage service with proper path expansion.
func initStorage(ctx context.Context) (*storage.SQLiteStorage, error) {
	// Get database path from config
	dbPath := viper.GetString("database.path")
	if dbPath == "" {
		dbPath = "$HOME/.local/share/hub/hub.db"
	}

	// Expand tilde and environment variables
	dbPath = config.ExpandPath(dbPath)

	// Initialize storage
	store, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		return nil, err
	}

	// Run migrations
	if err := store.Migrate(ctx); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}

// initSheetAPI builds the Google Sheets client from configuration.
func initSheetAPI(ctx context.Context) (service.SheetAPI, error) {
	sheetsConfig, err := config.LoadSheetsConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load sheets config: %w", err)
	}
	return sheets.NewClient(ctx, *sheetsConfig, slog.Default())
}

// initEngine wires storage, sync engine, and lifecycle engine together.
func initEngine(ctx context.Context) (*engine.Engine, *storage.SQLiteStorage, error) {
	store, err := initStorage(ctx)
	if err != nil {
		return nil, nil, err
	}

	api, err := initSheetAPI(ctx)
	if err != nil {
		_ = store.Close()
		return nil, nil, err
	}

	syncConfig := syncer.DefaultConfig()
	syncConfig.WriteDelay = config.SyncWriteDelay()
	sync := syncer.New(store, api, syncConfig)

	eng := engine.NewWithConfig(store, sync, engine.Config{
		Cache: cache.NewMemory(5 * time.Minute),
	})
	return eng, store, nil
}

// initOfflineEngine wires the engine without external sheet credentials.
// Registry-only commands never touch the document service, so they should
// not demand its auth configuration.
func initOfflineEngine(ctx context.Context) (*engine.Engine, *storage.SQLiteStorage, error) {
	store, err := initStorage(ctx)
	if err != nil {
		return nil, nil, err
	}
	sync := syncer.New(store, nil, syncer.DefaultConfig())
	return engine.New(store, sync), store, nil
}
