package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/Irislinhnguyen/mc-team-hub-sub008/internal/cli"
	"github.com/Irislinhnguyen/mc-team-hub-sub008/internal/sheets"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func authCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Obtain Google Sheets credentials",
		Long: `Run the browser OAuth2 consent flow and print the refresh token the
sync engine needs. Requires sheets.client_id and sheets.client_secret in the
config (or GOOGLE_SHEETS_CLIENT_ID / GOOGLE_SHEETS_CLIENT_SECRET).

Service-account deployments can skip this entirely and set
sheets.service_account_path instead.`,
		RunE: runAuth,
	}

	cmd.Flags().Int("port", 8484, "local port for the OAuth callback")

	return cmd
}

func runAuth(cmd *cobra.Command, _ []string) error {
	clientID := viper.GetString("sheets.client_id")
	if clientID == "" {
		clientID = os.Getenv("GOOGLE_SHEETS_CLIENT_ID")
	}
	clientSecret := viper.GetString("sheets.client_secret")
	if clientSecret == "" {
		clientSecret = os.Getenv("GOOGLE_SHEETS_CLIENT_SECRET")
	}
	if clientID == "" || clientSecret == "" {
		return fmt.Errorf("sheets.client_id and sheets.client_secret must be configured first")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}
	port, _ := cmd.Flags().GetInt("port")

	token, err := sheets.GetOrCreateToken(cmd.Context(), sheets.OAuth2Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenFile:    filepath.Join(home, ".config", "hub", "sheets-token.json"),
		CallbackPort: port,
	})
	if err != nil {
		return err
	}

	fmt.Println(cli.FormatSuccess("Authentication complete"))
	fmt.Println(cli.RenderBox("Refresh token", fmt.Sprintf(
		"%s\n\n%s", token.RefreshToken,
		cli.StyleInfo("Set this as sheets.refresh_token (or GOOGLE_SHEETS_REFRESH_TOKEN)."))))
	return nil
}
