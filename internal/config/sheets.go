// Package config provides configuration utilities for the application.
package config

import (
	"os"
	"time"

	"github.com/Irislinhnguyen/mc-team-hub-sub008/internal/sheets"
	"github.com/spf13/viper"
)

// LoadSheetsConfig loads Google Sheets configuration with this precedence:
// 1. Viper configuration (from config file or HUB_ env vars)
// 2. Direct environment variables (GOOGLE_SHEETS_*)
// 3. Default values
func LoadSheetsConfig() (*sheets.Config, error) {
	config := sheets.DefaultConfig()

	// Load from Viper first
	if v := viper.GetString("sheets.service_account_path"); v != "" {
		config.ServiceAccountPath = ExpandPath(v)
	}
	if v := viper.GetString("sheets.client_id"); v != "" {
		config.ClientID = v
	}
	if v := viper.GetString("sheets.client_secret"); v != "" {
		config.ClientSecret = v
	}
	if v := viper.GetString("sheets.refresh_token"); v != "" {
		config.RefreshToken = v
	}
	if v := viper.GetString("sheets.time_zone"); v != "" {
		config.TimeZone = v
	}
	if v := viper.GetDuration("sheets.write_delay"); v > 0 {
		config.WriteDelay = v
	}
	if v := viper.GetInt("sheets.retry_attempts"); v > 0 {
		config.RetryAttempts = v
	}
	if v := viper.GetDuration("sheets.retry_delay"); v > 0 {
		config.RetryDelay = v
	}

	// Override with direct environment variables if not set
	if config.ServiceAccountPath == "" {
		if v := os.Getenv("GOOGLE_SHEETS_SERVICE_ACCOUNT_PATH"); v != "" {
			config.ServiceAccountPath = ExpandPath(v)
		}
	}
	if config.ClientID == "" {
		config.ClientID = os.Getenv("GOOGLE_SHEETS_CLIENT_ID")
	}
	if config.ClientSecret == "" {
		config.ClientSecret = os.Getenv("GOOGLE_SHEETS_CLIENT_SECRET")
	}
	if config.RefreshToken == "" {
		config.RefreshToken = os.Getenv("GOOGLE_SHEETS_REFRESH_TOKEN")
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// SyncWriteDelay returns the configured pacing between external row writes.
func SyncWriteDelay() time.Duration {
	if v := viper.GetDuration("sheets.write_delay"); v > 0 {
		return v
	}
	return 1500 * time.Millisecond
}
