package router

import (
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/amasuba/uraics-revenue-assurance/internal/audit"
)

// PayloadType tells the presentation layer how to render Payload.Data
// without inspecting it.
type PayloadType string

const (
	PayloadTaxpayer      PayloadType = "taxpayer"
	PayloadRiskProfile   PayloadType = "risk_profile"
	PayloadSearchResults PayloadType = "search_results"
	PayloadRelated       PayloadType = "related"
	PayloadPathway       PayloadType = "pathway"
	PayloadCases         PayloadType = "cases"
	PayloadSector        PayloadType = "sector"
	PayloadPath          PayloadType = "path"
	PayloadNone          PayloadType = "none"
)

// Payload is the typed visualization payload returned with display text.
type Payload struct {
	Type PayloadType `json:"type"`
	Data any         `json:"data,omitempty"`
}

// HelpText is the static capability summary.
const HelpText = `TATIS - Tax Audit Intelligent Search

Search and investigation:
  "search 1000123456"                  find a taxpayer by TIN
  "find taxpayer Kampala Traders"      search by name
  "similar to 1000123456"              taxpayers sharing risk flags

Risk analysis:
  "risk analysis for 1000123456"       full risk profile
  "evidence pathway 1000123456 R007"   risk detail with filing variance

Portfolio:
  "sector manufacturing"               risk profile of a sector
  "high impact cases"                  largest exposures
  "high impact cases for risk R003"    largest exposures for one risk`

// Formatter renders envelopes as text. Output is deterministic for a given
// envelope.
type Formatter struct {
	currency string
	title    cases.Caser
}

// NewFormatter creates a Formatter that prefixes amounts with currency.
func NewFormatter(currency string) *Formatter {
	return &Formatter{
		currency: currency,
		title:    cases.Title(language.English),
	}
}

func (f *Formatter) amount(v float64) string {
	return FormatAmount(f.currency, v)
}

// Format turns an envelope into display text plus a typed payload. Only
// result envelopes carry data.
func (f *Formatter) Format(env Envelope) (string, Payload) {
	if env.Kind != KindResult {
		return env.Message, Payload{Type: PayloadNone}
	}

	var b strings.Builder
	var typ PayloadType

	switch p := env.Payload.(type) {
	case *IdentifierResult:
		typ = PayloadTaxpayer
		f.writeIdentifier(&b, p)
	case *RiskProfileResult:
		typ = PayloadRiskProfile
		f.writeRiskProfile(&b, p)
	case *NameSearchResult:
		typ = PayloadSearchResults
		f.writeNameSearch(&b, p)
	case *RelatedResult:
		typ = PayloadRelated
		f.writeRelated(&b, p)
	case *PathwayResult:
		typ = PayloadPathway
		f.writePathway(&b, p)
	case *HighImpactResult:
		typ = PayloadCases
		f.writeHighImpact(&b, p)
	case *SectorResult:
		typ = PayloadSector
		f.writeSector(&b, p)
	case *ConnectionResult:
		typ = PayloadPath
		f.writeConnection(&b, p)
	default:
		return env.Message, Payload{Type: PayloadNone}
	}

	return strings.TrimRight(b.String(), "\n"), Payload{Type: typ, Data: env.Payload}
}

func writeTaxpayer(b *strings.Builder, t audit.Taxpayer) {
	w := tabwriter.NewWriter(b, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Name:\t%s\n", t.Name)
	fmt.Fprintf(w, "TIN:\t%s\n", t.TIN)
	fmt.Fprintf(w, "Region:\t%s\n", t.Region)
	fmt.Fprintf(w, "Sector:\t%s\n", t.Sector)
	fmt.Fprintf(w, "Status:\t%s\n", t.ComplianceStatus)
	w.Flush()
}

func (f *Formatter) writeIdentifier(b *strings.Builder, r *IdentifierResult) {
	p := r.Profile
	b.WriteString("Found taxpayer\n\n")
	writeTaxpayer(b, p.Taxpayer)

	b.WriteString("\nRisk profile\n")
	w := tabwriter.NewWriter(b, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "  Flagged risks:\t%d/%d\n", r.RiskCount, r.TotalCategories)
	fmt.Fprintf(w, "  Total exposure:\t%s\n", f.amount(r.TotalExposure))
	fmt.Fprintf(w, "  IT returns filed:\t%d\n", len(p.ITReturns))
	fmt.Fprintf(w, "  EFRIS returns:\t%d\n", len(p.EFRISReturns))
	w.Flush()

	fmt.Fprintf(b, "\nRecommended action: %s\n", r.Recommendation)
}

func (f *Formatter) writeRiskProfile(b *strings.Builder, r *RiskProfileResult) {
	fmt.Fprintf(b, "Risk profile for %s (TIN %s)\n\n", r.Taxpayer.Name, r.Taxpayer.TIN)
	if len(r.Flags) == 0 {
		b.WriteString("No risk flags recorded.\n")
	} else {
		w := tabwriter.NewWriter(b, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "RISK\tNAME\tSEVERITY\tEXPOSURE")
		for _, fl := range r.Flags {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", fl.Risk.ID, fl.Risk.Name, fl.Risk.Severity, f.amount(fl.Exposure))
		}
		w.Flush()
	}

	b.WriteString("\nBy severity: ")
	b.WriteString(severitySummary(r.SeverityCounts))
	fmt.Fprintf(b, "\nTotal exposure: %s\n", f.amount(r.TotalExposure))
	fmt.Fprintf(b, "Recommended action: %s\n", r.Recommendation)
}

// severitySummary lists counts most severe first, e.g. "Critical 1, High 2".
func severitySummary(counts map[audit.Severity]int) string {
	keys := make([]audit.Severity, 0, len(counts))
	for s, n := range counts {
		if n > 0 {
			keys = append(keys, s)
		}
	}
	if len(keys) == 0 {
		return "none"
	}
	sort.Slice(keys, func(i, j int) bool {
		if ri, rj := keys[i].Rank(), keys[j].Rank(); ri != rj {
			return ri > rj
		}
		return keys[i] < keys[j]
	})
	parts := make([]string, 0, len(keys))
	for _, s := range keys {
		parts = append(parts, fmt.Sprintf("%s %d", s, counts[s]))
	}
	return strings.Join(parts, ", ")
}

func (f *Formatter) writeNameSearch(b *strings.Builder, r *NameSearchResult) {
	fmt.Fprintf(b, "Found %d taxpayers matching '%s'\n\n", len(r.Taxpayers), r.Query)
	w := tabwriter.NewWriter(b, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TIN\tNAME\tREGION\tRISKS\tEXPOSURE")
	for _, t := range r.Taxpayers {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n", t.Taxpayer.TIN, t.Taxpayer.Name, t.Taxpayer.Region, t.RiskCount, f.amount(t.TotalExposure))
	}
	w.Flush()
}

func (f *Formatter) writeRelated(b *strings.Builder, r *RelatedResult) {
	fmt.Fprintf(b, "Found %d taxpayers with similar risk profiles to %s\n\n", len(r.Matches), r.TIN)
	w := tabwriter.NewWriter(b, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TIN\tNAME\tSHARED\tSIMILARITY\tEXPOSURE")
	for _, m := range r.Matches {
		fmt.Fprintf(w, "%s\t%s\t%d\t%.1f%%\t%s\n", m.Taxpayer.TIN, m.Taxpayer.Name, m.SharedRisks, m.Similarity, f.amount(m.Exposure))
	}
	w.Flush()
}

func (f *Formatter) writePathway(b *strings.Builder, r *PathwayResult) {
	p := r.Pathway
	fmt.Fprintf(b, "Evidence pathway for %s - risk %s\n\n", p.Taxpayer.Name, p.Flag.Risk.ID)

	w := tabwriter.NewWriter(b, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Risk:\t%s (%s)\n", p.Flag.Risk.Name, p.Flag.Risk.Severity)
	fmt.Fprintf(w, "Exposure:\t%s\n", f.amount(p.Flag.Exposure))
	if p.Flag.DetectedDate != "" {
		fmt.Fprintf(w, "Detected:\t%s\n", p.Flag.DetectedDate)
	}
	if p.Flag.Evidence != "" {
		fmt.Fprintf(w, "Evidence:\t%s\n", p.Flag.Evidence)
	}
	if p.ITReturn != nil {
		fmt.Fprintf(w, "IT return:\t%s (%s) income %s\n", p.ITReturn.ReturnID, p.ITReturn.TaxYear, f.amount(p.ITReturn.TotalIncome))
	}
	if p.EFRISReturn != nil {
		fmt.Fprintf(w, "EFRIS return:\t%s (%s) sales %s\n", p.EFRISReturn.ReturnID, p.EFRISReturn.Period, f.amount(p.EFRISReturn.TotalSales))
	}
	if r.HasVariance {
		fmt.Fprintf(w, "Variance:\t%s\n", f.amount(r.Variance))
	} else {
		fmt.Fprintf(w, "Variance:\tn/a (missing filing)\n")
	}
	w.Flush()
}

func (f *Formatter) writeHighImpact(b *strings.Builder, r *HighImpactResult) {
	scope := ""
	if r.RiskID != "" {
		scope = " for risk " + r.RiskID
	}
	fmt.Fprintf(b, "Found %d high-impact audit cases%s (exposure >= %s)\n\n", len(r.Cases), scope, f.amount(r.MinExposure))

	w := tabwriter.NewWriter(b, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TIN\tNAME\tSECTOR\tRISKS\tEXPOSURE")
	for _, c := range r.Cases {
		risks := fmt.Sprintf("%d", c.RiskCount)
		if c.RiskID != "" {
			risks = c.RiskID
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", c.Taxpayer.TIN, c.Taxpayer.Name, c.Taxpayer.Sector, risks, f.amount(c.Exposure))
	}
	w.Flush()
}

func (f *Formatter) writeSector(b *strings.Builder, r *SectorResult) {
	fmt.Fprintf(b, "Risk profile for the %s sector\n", f.title.String(r.Sector))
	fmt.Fprintf(b, "%d risk types active in this sector\n\n", len(r.Risks))

	w := tabwriter.NewWriter(b, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "RISK\tNAME\tTAXPAYERS\tTOTAL\tAVERAGE")
	for _, s := range r.Risks {
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n", s.Risk.ID, s.Risk.Name, s.Prevalence, f.amount(s.TotalExposure), f.amount(s.AverageExposure))
	}
	w.Flush()
}

func (f *Formatter) writeConnection(b *strings.Builder, r *ConnectionResult) {
	fmt.Fprintf(b, "Connection from %s to %s in %d hops (max %d)\n\n", r.FromTIN, r.ToTIN, r.Path.Hops, r.MaxHops)

	names := make([]string, 0, len(r.Path.Taxpayers))
	for _, t := range r.Path.Taxpayers {
		names = append(names, fmt.Sprintf("%s (%s)", t.Name, t.TIN))
	}
	fmt.Fprintf(b, "Taxpayers: %s\n", strings.Join(names, " -> "))

	risks := make([]string, 0, len(r.Path.CommonRisks))
	for _, rf := range r.Path.CommonRisks {
		risks = append(risks, fmt.Sprintf("%s %s", rf.ID, rf.Name))
	}
	fmt.Fprintf(b, "Via risks: %s\n", strings.Join(risks, ", "))
}
