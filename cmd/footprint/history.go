package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"carbon-scribe/dairy-footprint/internal/reports/export"
	"carbon-scribe/dairy-footprint/internal/reports/views"
)

var (
	historyLimit  int
	historyExport string
)

var historyCmd = &cobra.Command{
	Use:   "history [run-id]",
	Short: "List stored runs or show one run",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		ctx := context.Background()
		if len(args) == 0 {
			runs, err := store.ListRuns(ctx, historyLimit)
			if err != nil {
				return err
			}
			views.PrintHistory(os.Stdout, runs)
			return nil
		}

		run, err := store.GetRun(ctx, args[0])
		if err != nil {
			return err
		}
		views.PrintRun(os.Stdout, run)
		if historyExport != "" {
			path, err := export.WriteRun(run, "", historyExport, true)
			if err != nil {
				return err
			}
			cmd.Println("report written to", path)
		}
		return nil
	},
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Number of runs to list (0 for all)")
	historyCmd.Flags().StringVarP(&historyExport, "export", "o", "", "Write the selected run to an xlsx report")
}
