package main

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/amasuba/uraics-revenue-assurance/cmd/tatis/internal"
	"github.com/amasuba/uraics-revenue-assurance/internal/intent"
	"github.com/amasuba/uraics-revenue-assurance/internal/router"
)

var taxpayerCmd = &cobra.Command{
	Use:     "taxpayer",
	Aliases: []string{"tp"},
	Short:   "Query taxpayers and their risk flags",
}

var taxpayerShowCmd = &cobra.Command{
	Use:   "show <tin>",
	Short: "Show a taxpayer with flagged risks and filings",
	Args:  cobra.ExactArgs(1),
	RunE:  runIntent(intent.SearchByIdentifier),
}

var taxpayerSearchCmd = &cobra.Command{
	Use:   "search <name...>",
	Short: "Search taxpayers by name",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runIntent(intent.SearchByName),
}

var taxpayerRisksCmd = &cobra.Command{
	Use:   "risks <tin>",
	Short: "Risk profile of a taxpayer",
	Args:  cobra.ExactArgs(1),
	RunE:  runIntent(intent.RiskAnalysis),
}

var taxpayerRelatedCmd = &cobra.Command{
	Use:   "related <tin>",
	Short: "Taxpayers sharing risk flags with a taxpayer",
	Args:  cobra.ExactArgs(1),
	RunE:  runIntent(intent.FindRelated),
}

var taxpayerPathwayCmd = &cobra.Command{
	Use:   "pathway <tin> [risk-id]",
	Short: "Evidence pathway for one of a taxpayer's risks",
	Long: `Show the evidence behind a risk flag together with the latest IT and
EFRIS filings and their variance. Without a risk ID the highest-exposure
flag is used.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runIntent(intent.EvidencePathway),
}

var taxpayerSectorCmd = &cobra.Command{
	Use:   "sector <name...>",
	Short: "Risk profile of a sector",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runIntent(intent.SectorAnalysis),
}

var taxpayerHighImpactCmd = &cobra.Command{
	Use:   "high-impact [risk-id]",
	Short: "Largest exposures, optionally for one risk",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runIntent(intent.HighImpactCases),
}

var taxpayerTraceCmd = &cobra.Command{
	Use:   "trace <from-tin> <to-tin>",
	Short: "Shortest connection between two taxpayers through shared risks",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRouter(cmd, func(r *router.Router) router.Reply {
			return r.Trace(cmd.Context(), args[0], args[1])
		})
	},
}

func init() {
	taxpayerCmd.AddCommand(
		taxpayerShowCmd,
		taxpayerSearchCmd,
		taxpayerRisksCmd,
		taxpayerRelatedCmd,
		taxpayerPathwayCmd,
		taxpayerSectorCmd,
		taxpayerHighImpactCmd,
		taxpayerTraceCmd,
	)
}

// runIntent returns a RunE that dispatches in with the joined arguments.
func runIntent(in intent.Intent) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		param := strings.Join(args, " ")
		return withRouter(cmd, func(r *router.Router) router.Reply {
			return r.Run(cmd.Context(), in, param)
		})
	}
}

// withRouter runs fn against a fresh router and prints its reply. Error
// envelopes exit non-zero.
func withRouter(cmd *cobra.Command, fn func(*router.Router) router.Reply) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	r, err := a.router()
	if err != nil {
		return err
	}
	reply := fn(r)
	if err := formatter(cmd).PrintResult(reply.Text, reply); err != nil {
		return err
	}
	if reply.Kind == router.KindError {
		return errStoreUnavailable
	}
	return nil
}

var errStoreUnavailable = internal.NewCLIError(internal.ExitDatabaseError, "the graph store could not answer the query")
