package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/Irislinhnguyen/mc-team-hub-sub008/internal/cli"
	"github.com/Irislinhnguyen/mc-team-hub-sub008/internal/engine"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

func syncCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Reconcile pipelines with their quarterly sheets",
		Long: `Reconcile ingests human edits from the selected sheets, recomputes the
derived revenue, and writes the refreshed rows back out.

Select targets with exactly one of --all, --ids, or --sheet. With --dry-run
no sheet is modified; the cells that would change are printed instead.`,
		RunE: runSync,
	}

	cmd.Flags().Bool("all", false, "reconcile every registered sheet")
	cmd.Flags().StringSlice("ids", nil, "comma-separated pipeline ids to reconcile")
	cmd.Flags().Int64("sheet", 0, "reconcile one sheet by registry id")
	cmd.Flags().Bool("dry-run", false, "report would-be cell changes without writing")

	return cmd
}

func runSync(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	all, _ := cmd.Flags().GetBool("all")
	ids, _ := cmd.Flags().GetStringSlice("ids")
	sheetID, _ := cmd.Flags().GetInt64("sheet")
	dryRun, _ := cmd.Flags().GetBool("dry-run")

	selector := engine.Selector{All: all, IDs: ids}
	if sheetID != 0 {
		selector.SheetID = &sheetID
	}

	eng, store, err := initEngine(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	title := "Reconciling sheets..."
	if dryRun {
		title = "Reconciling sheets (dry run)..."
	}
	fmt.Println(cli.FormatTitle(title))

	var reports []engine.SheetReport
	if all {
		// One sheet at a time so the bar tracks real progress: a full
		// backfill is paced and can take a while.
		sheets, err := eng.ListSheets(ctx)
		if err != nil {
			return err
		}
		bar := progressbar.NewOptions(len(sheets),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionShowCount(),
			progressbar.OptionShowElapsedTimeOnFinish(),
			progressbar.OptionSetWidth(40),
			progressbar.OptionSetDescription("Reconciling"),
		)
		for i := range sheets {
			report, err := eng.Reconcile(ctx, engine.Selector{SheetID: &sheets[i].ID}, dryRun)
			if err != nil {
				return err
			}
			reports = append(reports, report.Sheets...)
			_ = bar.Add(1)
		}
		_ = bar.Finish()
		fmt.Println()
	} else {
		report, err := eng.Reconcile(ctx, selector, dryRun)
		if err != nil {
			return err
		}
		reports = report.Sheets
	}

	failures := 0
	for _, sheetReport := range reports {
		printSheetReport(sheetReport, dryRun)
		if sheetReport.Error != "" {
			failures++
		}
	}

	if failures > 0 {
		return fmt.Errorf("%d of %d sheets failed to reconcile", failures, len(reports))
	}
	fmt.Println(cli.FormatSuccess(fmt.Sprintf("Reconciled %d sheet(s)", len(reports))))
	return nil
}

func printSheetReport(r engine.SheetReport, dryRun bool) {
	name := fmt.Sprintf("FY%d Q%d %s", r.Sheet.Year, r.Sheet.Quarter, r.Sheet.Group)

	if r.Error != "" {
		fmt.Println(cli.FormatError(fmt.Sprintf("%s: %s", name, r.Error)))
		return
	}

	var lines []string
	if r.Ingest != nil {
		lines = append(lines, fmt.Sprintf("ingested %d rows (%d imported, %d rejected)",
			r.Ingest.Rows, r.Ingest.Imported, r.Ingest.Rejected))
		for _, issue := range r.Ingest.Issues {
			lines = append(lines, cli.FormatWarning(
				fmt.Sprintf("  row %d: %s", issue.Row, issue.Reason)))
		}
	}
	if r.Sync != nil {
		if dryRun {
			lines = append(lines, fmt.Sprintf("%d cell(s) would change", len(r.Sync.Diffs)))
			for _, diff := range r.Sync.Diffs {
				lines = append(lines, fmt.Sprintf("  %s %s%d: %q -> %q",
					diff.PipelineID, diff.Column, diff.Row, diff.Old, diff.New))
			}
		} else {
			lines = append(lines, fmt.Sprintf("wrote %d of %d pipelines (%d failed)",
				r.Sync.Written, r.Sync.Scanned, r.Sync.Failed))
			for _, issue := range r.Sync.Issues {
				lines = append(lines, cli.FormatWarning(
					fmt.Sprintf("  %s: %s", issue.PipelineID, issue.Reason)))
			}
		}
	}

	fmt.Println(cli.RenderBox(name, strings.Join(lines, "\n")))
}
