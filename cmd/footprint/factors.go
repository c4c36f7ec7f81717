package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"carbon-scribe/dairy-footprint/internal/reports/views"
)

var factorsTier int

var factorsCmd = &cobra.Command{
	Use:   "factors [substance] [region-or-country]",
	Short: "List substances or look up one emission factor",
	Long: `Without arguments lists every substance in the registry, including
overrides from factors.overrides_path. With a substance, resolves the factor
for a region or ISO country code, falling back to the global value.`,
	Args: cobra.MaximumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		registry, err := cfg.Factors.Registry()
		if err != nil {
			return err
		}

		if len(args) == 0 {
			for _, s := range registry.Substances() {
				fmt.Fprintln(os.Stdout, s)
			}
			return nil
		}

		region := ""
		if len(args) == 2 {
			region = args[1]
		}
		f, err := registry.Get(args[0], region, factorsTier)
		if err != nil {
			return err
		}
		views.PrintFactor(os.Stdout, f)
		return nil
	},
}

func init() {
	factorsCmd.Flags().IntVarP(&factorsTier, "tier", "t", 1, "Methodology tier")
}
