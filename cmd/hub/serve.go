package main

import (
	"fmt"
	"log/slog"

	"github.com/Irislinhnguyen/mc-team-hub-sub008/internal/api"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		Long: `Start the HTTP server exposing pipeline records, the confirmation
gate, the sheet registry, and the edit-webhook sync endpoint.`,
		RunE: runServe,
	}

	cmd.Flags().String("addr", "", "listen address (default :8080)")
	_ = viper.BindPFlag("server.addr", cmd.Flags().Lookup("addr"))

	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	eng, store, err := initEngine(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	addr := viper.GetString("server.addr")
	if addr == "" {
		addr = ":8080"
	}

	server := api.NewServer(eng)
	slog.Info("Starting API server", "addr", addr)
	if err := server.ListenAndServe(ctx, addr); err != nil {
		return fmt.Errorf("server stopped: %w", err)
	}
	return nil
}
