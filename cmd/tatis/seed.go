package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/amasuba/uraics-revenue-assurance/cmd/tatis/internal"
	"github.com/amasuba/uraics-revenue-assurance/internal/seed"
)

var seedCmd = &cobra.Command{
	Use:   "seed <fixture.yaml>",
	Short: "Load a YAML fixture into the graph",
	Long: `Load taxpayers, risk flags, auditors, filings and FLAGGED_BY links from a
YAML fixture. Loading is idempotent: nodes are merged on their IDs.`,
	Args: cobra.ExactArgs(1),
	RunE: runSeed,
}

var seedDryRun bool

func init() {
	seedCmd.Flags().BoolVar(&seedDryRun, "dry-run", false, "Validate the fixture without touching the graph")
}

func runSeed(cmd *cobra.Command, args []string) error {
	f, err := seed.ParseFile(args[0])
	if err != nil {
		return err
	}
	out := formatter(cmd)
	if seedDryRun {
		return out.PrintSuccess(fmt.Sprintf("%s is valid: %d taxpayers, %d risks, %d flags",
			args[0], len(f.Taxpayers), len(f.RiskFlags), len(f.Flags)))
	}

	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	res, err := seed.NewLoader(a.client, a.logger).Load(cmd.Context(), f)
	if err != nil {
		return err
	}
	if globalFlags.GetOutputFormat() == internal.FormatJSON {
		if err := out.PrintJSON(res); err != nil {
			return err
		}
	} else {
		if err := out.PrintTable([]string{"entity", "loaded"}, [][]string{
			{"taxpayers", fmt.Sprint(res.Taxpayers)},
			{"risk flags", fmt.Sprint(res.RiskFlags)},
			{"auditors", fmt.Sprint(res.Auditors)},
			{"flags", fmt.Sprint(res.Flags)},
			{"IT returns", fmt.Sprint(res.ITReturns)},
			{"EFRIS returns", fmt.Sprint(res.EFRISReturns)},
		}); err != nil {
			return err
		}
		for _, e := range res.Errors {
			_ = out.PrintError(e.Error())
		}
	}
	if res.HasErrors() {
		return internal.NewCLIError(internal.ExitDatabaseError, fmt.Sprintf("%d batches failed to load", len(res.Errors)))
	}
	return nil
}
