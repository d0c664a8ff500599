package main

import (
	"fmt"
	"strconv"

	"github.com/Irislinhnguyen/mc-team-hub-sub008/internal/cli"
	"github.com/Irislinhnguyen/mc-team-hub-sub008/internal/model"
	"github.com/spf13/cobra"
)

func sheetsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sheets",
		Short: "Manage the quarterly sheet registry",
	}

	cmd.AddCommand(sheetsListCmd())
	cmd.AddCommand(sheetsAddCmd())
	cmd.AddCommand(sheetsStatusCmd())
	cmd.AddCommand(sheetsRemoveCmd())

	return cmd
}

func sheetsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List registered quarterly sheets",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			sheets, err := store.ListSheets(ctx)
			if err != nil {
				return err
			}

			fmt.Println(cli.FormatTitle("Registered quarterly sheets"))
			if len(sheets) == 0 {
				fmt.Println(cli.FormatInfo("No sheets registered yet. Use 'hub sheets add' to register one."))
				return nil
			}
			for _, sheet := range sheets {
				line := fmt.Sprintf("%3d  FY%d Q%d %-5s  %-10s  %4d pipelines  %s!%s",
					sheet.ID, sheet.Year, sheet.Quarter, sheet.Group,
					sheet.SyncStatus, sheet.PipelineCount, sheet.DocumentID, sheet.TabName)
				switch sheet.SyncStatus {
				case model.SyncActive:
					fmt.Println(line)
				default:
					fmt.Println(cli.StyleWarning(line))
				}
			}
			return nil
		},
	}
}

func sheetsAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Register a quarterly sheet",
		Long: `Register one external document tab for a (fiscal year, quarter, group)
slot. The document may be given as a full URL or a bare id. The printed
webhook token is shown once; install it in the sheet's edit trigger.`,
		RunE: runSheetsAdd,
	}

	cmd.Flags().Int("year", 0, "fiscal year, e.g. 2025")
	cmd.Flags().Int("quarter", 0, "fiscal quarter 1-4")
	cmd.Flags().String("group", "", "business group (sales, cs)")
	cmd.Flags().String("doc", "", "document URL or id")
	cmd.Flags().String("tab", "", "tab name inside the document")
	_ = cmd.MarkFlagRequired("year")
	_ = cmd.MarkFlagRequired("quarter")
	_ = cmd.MarkFlagRequired("group")
	_ = cmd.MarkFlagRequired("doc")
	_ = cmd.MarkFlagRequired("tab")

	return cmd
}

func runSheetsAdd(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	year, _ := cmd.Flags().GetInt("year")
	quarter, _ := cmd.Flags().GetInt("quarter")
	group, _ := cmd.Flags().GetString("group")
	doc, _ := cmd.Flags().GetString("doc")
	tab, _ := cmd.Flags().GetString("tab")

	eng, store, err := initOfflineEngine(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	sheet := &model.QuarterlySheet{
		Year:       year,
		Quarter:    quarter,
		Group:      model.Group(group),
		DocumentID: doc,
		TabName:    tab,
	}
	if err := eng.RegisterSheet(ctx, sheet); err != nil {
		return err
	}

	fmt.Println(cli.FormatSuccess(fmt.Sprintf("Registered sheet %d: FY%d Q%d %s",
		sheet.ID, sheet.Year, sheet.Quarter, sheet.Group)))
	fmt.Println(cli.RenderBox("Webhook token",
		sheet.WebhookToken+"\n\n"+cli.StyleInfo("Shown once. Configure the sheet's edit trigger with it.")))
	return nil
}

func sheetsStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status <id> <active|paused|archived>",
		Short: "Change a sheet's sync status",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			sheetID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("sheet id must be an integer: %w", err)
			}

			eng, store, err := initOfflineEngine(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			if err := eng.SetSheetStatus(ctx, sheetID, model.SyncStatus(args[1])); err != nil {
				return err
			}
			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Sheet %d is now %s", sheetID, args[1])))
			return nil
		},
	}
	return cmd
}

func sheetsRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <id>",
		Short: "Remove a sheet and everything recorded against it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			sheetID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("sheet id must be an integer: %w", err)
			}

			eng, store, err := initOfflineEngine(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			if err := eng.DeleteSheet(ctx, sheetID); err != nil {
				return err
			}
			fmt.Println(cli.FormatWarning(fmt.Sprintf(
				"Removed sheet %d and its pipelines, forecasts, and activity log", sheetID)))
			return nil
		},
	}
}
