package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/urfave/cli/v3"

	"github.com/ekaya-inc/ekaya-ask/pkg/models"
)

func ingestCommand() *cli.Command {
	return &cli.Command{
		Name:      "ingest",
		Usage:     "Load an .xlsx workbook into the store, one table per sheet",
		ArgsUsage: "<workbook.xlsx>",
		Description: `Each non-empty sheet replaces the table named after it. Headers become column
names (normalized to letters, digits and underscores) and column types are
inferred from the cells. Only sqlite stores accept ingestion.`,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			path := cmd.Args().First()
			if path == "" || cmd.Args().Len() > 1 {
				return fmt.Errorf("expected exactly one workbook path")
			}

			a, err := setup(ctx, cmd, "info", nil)
			if err != nil {
				return err
			}
			defer a.Close()

			summary, err := a.ingestion.IngestFile(ctx, path)
			if err != nil {
				return err
			}
			printIngestionSummary(summary)
			return nil
		},
	}
}

func printIngestionSummary(summary *models.IngestionSummary) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SHEET\tTABLE\tROWS\tCOLUMNS")
	for _, t := range summary.Tables {
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\n", t.Sheet, t.Table, t.RowCount, len(t.Columns))
	}
	_ = w.Flush()

	fmt.Printf("\nIngested %d rows from %s\n", summary.TotalRows, summary.Source)
	for _, sheet := range summary.Skipped {
		fmt.Printf("Skipped empty sheet %q\n", sheet)
	}
}
