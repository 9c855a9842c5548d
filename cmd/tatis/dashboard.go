package main

import (
	"fmt"
	"io"
	"maps"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/amasuba/uraics-revenue-assurance/cmd/tatis/internal"
	"github.com/amasuba/uraics-revenue-assurance/internal/queries"
	"github.com/amasuba/uraics-revenue-assurance/internal/router"
)

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Portfolio-level compliance and risk figures",
	Long: `Print the headline KPIs, the top risks by exposure, per-region flag
rates, the severity distribution and the detection trend, followed by the
administrative views: data quality, graph volume, sector compliance and
auditor performance. Pass --section to print one part.`,
	Args: cobra.NoArgs,
	RunE: runDashboard,
}

// dashboardSections lists the --section values in print order.
var dashboardSections = []string{
	"kpis", "risks", "regions", "severity", "trend",
	"quality", "volume", "sectors", "auditors",
}

var (
	dashboardSection string
	dashboardDays    int
)

func init() {
	dashboardCmd.Flags().StringVar(&dashboardSection, "section", "", "Only print one of: "+strings.Join(dashboardSections, ", "))
	dashboardCmd.Flags().IntVar(&dashboardDays, "days", 30, "Days of detections covered by the trend")
}

// dashboardReport is the JSON shape of the full dashboard.
type dashboardReport struct {
	KPIs     *queries.KPIs                `json:"kpis,omitempty"`
	TopRisks []queries.RiskSummary        `json:"top_risks,omitempty"`
	Regions  []queries.RegionStat         `json:"regions,omitempty"`
	Severity []queries.SeverityStat       `json:"severity,omitempty"`
	Trend    []queries.TrendPoint         `json:"risk_trend,omitempty"`
	Quality  *queries.DataQuality         `json:"data_quality,omitempty"`
	Volume   *queries.DataVolume          `json:"data_volume,omitempty"`
	Sectors  []queries.SectorStat         `json:"sectors,omitempty"`
	Auditors []queries.AuditorPerformance `json:"auditors,omitempty"`
}

func runDashboard(cmd *cobra.Command, args []string) error {
	if dashboardSection != "" && !slices.Contains(dashboardSections, dashboardSection) {
		return internal.NewCLIError(internal.ExitError, fmt.Sprintf("unknown section %q", dashboardSection))
	}
	if dashboardDays < 1 {
		return internal.NewCLIError(internal.ExitError, "--days must be at least 1")
	}
	want := func(name string) bool { return dashboardSection == "" || dashboardSection == name }

	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	// Sections are independent reads and run concurrently.
	q := a.dashboard()
	var rep dashboardReport
	g, ctx := errgroup.WithContext(cmd.Context())
	if want("kpis") {
		g.Go(func() (err error) {
			rep.KPIs, err = q.KPIs(ctx)
			return err
		})
	}
	if want("risks") {
		g.Go(func() (err error) {
			rep.TopRisks, err = q.TopRisks(ctx)
			return err
		})
	}
	if want("regions") {
		g.Go(func() (err error) {
			rep.Regions, err = q.Regional(ctx)
			return err
		})
	}
	if want("severity") {
		g.Go(func() (err error) {
			rep.Severity, err = q.SeverityDistribution(ctx)
			return err
		})
	}
	if want("trend") {
		since := time.Now().AddDate(0, 0, -dashboardDays)
		g.Go(func() (err error) {
			rep.Trend, err = q.RiskTrend(ctx, since)
			return err
		})
	}
	if want("quality") {
		g.Go(func() (err error) {
			rep.Quality, err = q.DataQuality(ctx)
			return err
		})
	}
	if want("volume") {
		g.Go(func() (err error) {
			rep.Volume, err = q.DataVolume(ctx)
			return err
		})
	}
	if want("sectors") {
		g.Go(func() (err error) {
			rep.Sectors, err = q.SectorCompliance(ctx)
			return err
		})
	}
	if want("auditors") {
		g.Go(func() (err error) {
			rep.Auditors, err = q.AuditorPerformance(ctx)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	out := formatter(cmd)
	if globalFlags.GetOutputFormat() == internal.FormatJSON {
		return out.PrintJSON(rep)
	}
	return printDashboard(cmd.OutOrStdout(), out, rep, a.cfg.Router.Currency)
}

// printDashboard renders every non-nil section of rep as a titled table.
func printDashboard(w io.Writer, out internal.Formatter, rep dashboardReport, currency string) error {
	amount := func(v float64) string { return router.FormatAmount(currency, v) }
	pct := func(v float64) string { return fmt.Sprintf("%.1f%%", v) }

	type table struct {
		title   string
		headers []string
		rows    [][]string
	}
	var tables []table

	if k := rep.KPIs; k != nil {
		tables = append(tables, table{"Key indicators", []string{"metric", "value"}, [][]string{
			{"Taxpayers", strconv.Itoa(k.TotalTaxpayers)},
			{"Flagged", strconv.Itoa(k.FlaggedTaxpayers)},
			{"Compliant", strconv.Itoa(k.CompliantTaxpayers)},
			{"Compliance rate", fmt.Sprintf("%.2f%%", k.ComplianceRate)},
			{"Total exposure", amount(k.TotalExposure)},
			{"Average exposure", amount(k.AverageExposure)},
			{"Active risk types", fmt.Sprintf("%d/%d", k.ActiveRiskTypes, k.TotalRiskTypes)},
		}})
	}

	if rep.TopRisks != nil {
		rows := make([][]string, 0, len(rep.TopRisks))
		for _, r := range rep.TopRisks {
			rows = append(rows, []string{
				r.Risk.ID, r.Risk.Name, string(r.Risk.Severity),
				strconv.Itoa(r.FlaggedTaxpayers), amount(r.TotalExposure),
				strconv.Itoa(r.RegionsAffected), strconv.Itoa(r.SectorsAffected), r.LatestDetection,
			})
		}
		tables = append(tables, table{"Top risks", []string{"risk", "name", "severity", "taxpayers", "exposure", "regions", "sectors", "latest"}, rows})
	}

	if rep.Regions != nil {
		rows := make([][]string, 0, len(rep.Regions))
		for _, r := range rep.Regions {
			rows = append(rows, []string{
				r.Region, strconv.Itoa(r.Total), strconv.Itoa(r.Flagged),
				fmt.Sprintf("%.2f%%", r.FlagRate), amount(r.Exposure),
			})
		}
		tables = append(tables, table{"Regions", []string{"region", "taxpayers", "flagged", "flag rate", "exposure"}, rows})
	}

	if rep.Severity != nil {
		rows := make([][]string, 0, len(rep.Severity))
		for _, s := range rep.Severity {
			rows = append(rows, []string{string(s.Severity), strconv.Itoa(s.Count), amount(s.Exposure)})
		}
		tables = append(tables, table{"Severity", []string{"severity", "flags", "exposure"}, rows})
	}

	if rep.Trend != nil {
		rows := make([][]string, 0, len(rep.Trend))
		for _, p := range rep.Trend {
			rows = append(rows, []string{p.Date, p.RiskID, p.RiskName, strconv.Itoa(p.Count), amount(p.Exposure)})
		}
		tables = append(tables, table{"Detection trend", []string{"date", "risk", "name", "taxpayers", "exposure"}, rows})
	}

	if d := rep.Quality; d != nil {
		tables = append(tables, table{"Data quality", []string{"metric", "value"}, [][]string{
			{"Taxpayers", strconv.Itoa(d.TotalTaxpayers)},
			{"TIN completeness", pct(d.TINCompleteness)},
			{"Name completeness", pct(d.NameCompleteness)},
			{"Region completeness", pct(d.RegionCompleteness)},
			{"Sector completeness", pct(d.SectorCompleteness)},
			{"IT returns", fmt.Sprintf("%d (%s complete)", d.ITReturns, pct(d.ITCompleteness))},
			{"EFRIS returns", fmt.Sprintf("%d (%s complete)", d.EFRISReturns, pct(d.EFRISCompleteness))},
			{"Reconciled taxpayers", fmt.Sprintf("%d (%s)", d.ReconciledTaxpayers, pct(d.ReconciliationRate))},
			{"Overall score", pct(d.OverallScore)},
		}})
	}

	if v := rep.Volume; v != nil {
		rows := make([][]string, 0, len(v.Nodes)+len(v.Relationships)+2)
		for _, label := range slices.Sorted(maps.Keys(v.Nodes)) {
			rows = append(rows, []string{"node", label, strconv.Itoa(v.Nodes[label])})
		}
		rows = append(rows, []string{"node", "total", strconv.Itoa(v.TotalNodes)})
		for _, rel := range slices.Sorted(maps.Keys(v.Relationships)) {
			rows = append(rows, []string{"relationship", rel, strconv.Itoa(v.Relationships[rel])})
		}
		rows = append(rows, []string{"relationship", "total", strconv.Itoa(v.TotalRelationships)})
		tables = append(tables, table{"Graph volume", []string{"kind", "name", "count"}, rows})
	}

	if rep.Sectors != nil {
		rows := make([][]string, 0, len(rep.Sectors))
		for _, s := range rep.Sectors {
			rows = append(rows, []string{
				s.Sector, strconv.Itoa(s.Total), pct(s.ComplianceRate), pct(s.FlagRate),
				strconv.Itoa(s.ActiveRisks), pct(s.RiskCoverage), amount(s.Exposure),
			})
		}
		tables = append(tables, table{"Sectors", []string{"sector", "taxpayers", "compliance", "flag rate", "risks", "coverage", "exposure"}, rows})
	}

	if rep.Auditors != nil {
		rows := make([][]string, 0, len(rep.Auditors))
		for _, p := range rep.Auditors {
			rows = append(rows, []string{
				p.ID, p.Name, p.Region, strconv.Itoa(p.AssignedTasks), strconv.Itoa(p.CompletedTasks),
				pct(p.CompletionRate), amount(p.TotalExposure),
			})
		}
		tables = append(tables, table{"Auditor performance", []string{"id", "name", "region", "tasks", "completed", "completion", "exposure"}, rows})
	}

	for i, t := range tables {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintln(w, t.title)
		if err := out.PrintTable(t.headers, t.rows); err != nil {
			return err
		}
	}
	return nil
}
