package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"carbon-scribe/dairy-footprint/internal/reports/export"
)

var templateCmd = &cobra.Command{
	Use:   "template [path]",
	Short: "Write an empty farm input workbook with one example row",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := "."
		if len(args) == 1 {
			path = args[0]
		}
		out, err := export.WriteTemplate(path)
		if err != nil {
			return err
		}
		fmt.Fprintln(os.Stdout, "template written to", out)
		return nil
	},
}
