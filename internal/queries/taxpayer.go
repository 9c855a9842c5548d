package queries

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/amasuba/uraics-revenue-assurance/internal/audit"
	"github.com/amasuba/uraics-revenue-assurance/internal/graph"
)

// TaxpayerProfile is a taxpayer with its flags and filings, depth-1 fan-out.
type TaxpayerProfile struct {
	Taxpayer     audit.Taxpayer      `json:"taxpayer"`
	Flags        []audit.Flag        `json:"risks"`
	ITReturns    []audit.ITReturn    `json:"it_returns"`
	EFRISReturns []audit.EFRISReturn `json:"efris_returns"`
}

// RiskCount is the number of distinct risk flags raised against the taxpayer.
func (p TaxpayerProfile) RiskCount() int {
	seen := make(map[string]struct{}, len(p.Flags))
	for _, f := range p.Flags {
		seen[f.Risk.ID] = struct{}{}
	}
	return len(seen)
}

// TotalExposure sums exposure across all flags.
func (p TaxpayerProfile) TotalExposure() float64 {
	var total float64
	for _, f := range p.Flags {
		total += f.Exposure
	}
	return total
}

// TopFlag returns the flag with the highest exposure, ties broken by risk ID.
func (p TaxpayerProfile) TopFlag() (audit.Flag, bool) {
	if len(p.Flags) == 0 {
		return audit.Flag{}, false
	}
	best := p.Flags[0]
	for _, f := range p.Flags[1:] {
		if f.Exposure > best.Exposure || (f.Exposure == best.Exposure && f.Risk.ID < best.Risk.ID) {
			best = f
		}
	}
	return best, true
}

// TaxpayerSummary is one row of a name search or high-impact listing.
type TaxpayerSummary struct {
	Taxpayer      audit.Taxpayer `json:"taxpayer"`
	RiskCount     int            `json:"risk_count"`
	TotalExposure float64        `json:"total_exposure"`
}

// RelatedTaxpayer shares at least one risk flag with the queried taxpayer.
type RelatedTaxpayer struct {
	Taxpayer    audit.Taxpayer `json:"taxpayer"`
	SharedRisks int            `json:"shared_risks"`
	Exposure    float64        `json:"exposure"`
}

// RiskPathway is the evidence trail for one flag: the risk, the latest
// correlated income-tax and EFRIS filings, and their variance.
type RiskPathway struct {
	Taxpayer    audit.Taxpayer     `json:"taxpayer"`
	Flag        audit.Flag         `json:"risk"`
	ITReturn    *audit.ITReturn    `json:"it_return,omitempty"`
	EFRISReturn *audit.EFRISReturn `json:"efris_return,omitempty"`
}

// Variance is |declared income - declared sales|. ok is false unless both
// filings are present.
func (p RiskPathway) Variance() (float64, bool) {
	if p.ITReturn == nil || p.EFRISReturn == nil {
		return 0, false
	}
	v := p.ITReturn.TotalIncome - p.EFRISReturn.TotalSales
	if v < 0 {
		v = -v
	}
	return v, true
}

// HighImpactCase is either one flag (when scoped to a risk) or a taxpayer's
// aggregate over all qualifying flags.
type HighImpactCase struct {
	Taxpayer     audit.Taxpayer `json:"taxpayer"`
	RiskID       string         `json:"risk_id,omitempty"`
	RiskName     string         `json:"risk_name,omitempty"`
	RiskCount    int            `json:"risk_count"`
	Exposure     float64        `json:"exposure"`
	DetectedDate string         `json:"detected_date,omitempty"`
}

// ConnectionPath is the shortest FLAGGED_BY path between two taxpayers.
type ConnectionPath struct {
	Hops        int              `json:"path_length"`
	Taxpayers   []audit.Taxpayer `json:"taxpayers"`
	CommonRisks []audit.RiskFlag `json:"common_risks"`
}

// SectorRisk aggregates one risk flag over the taxpayers of a sector.
type SectorRisk struct {
	Risk            audit.RiskFlag `json:"risk"`
	Prevalence      int            `json:"prevalence"`
	TotalExposure   float64        `json:"total_exposure"`
	AverageExposure float64        `json:"average_exposure"`
}

// Limits caps list queries. Each cap is applied in the statement and again
// on the returned rows.
type Limits struct {
	Search     int
	Related    int
	HighImpact int
	PathHops   int
}

// MaxPathHops bounds every connection trace.
const MaxPathHops = 3

// DefaultLimits returns the standard caps.
func DefaultLimits() Limits {
	return Limits{Search: 10, Related: 10, HighImpact: 20, PathHops: MaxPathHops}
}

// TaxpayerQueries runs the read-only taxpayer/risk traversals behind the
// chat intents.
type TaxpayerQueries struct {
	client graph.GraphClient
	limits Limits
}

// NewTaxpayerQueries creates TaxpayerQueries. Zero limits take defaults; a
// hop limit above MaxPathHops is reset to it.
func NewTaxpayerQueries(client graph.GraphClient, limits Limits) *TaxpayerQueries {
	def := DefaultLimits()
	if limits.Search <= 0 {
		limits.Search = def.Search
	}
	if limits.Related <= 0 {
		limits.Related = def.Related
	}
	if limits.HighImpact <= 0 {
		limits.HighImpact = def.HighImpact
	}
	if limits.PathHops <= 0 || limits.PathHops > MaxPathHops {
		limits.PathHops = def.PathHops
	}
	return &TaxpayerQueries{client: client, limits: limits}
}

// Limits returns the effective caps.
func (q *TaxpayerQueries) Limits() Limits {
	return q.limits
}

const taxpayerByTINCypher = `
		MATCH (t:Taxpayer {TIN: $tin})
		OPTIONAL MATCH (t)-[f:FLAGGED_BY]->(rf:RiskFlag)
		WITH t, collect(CASE WHEN rf IS NULL THEN NULL ELSE {
			risk_id: rf.RiskID,
			risk_name: rf.RiskName,
			severity: rf.Severity,
			exposure: f.ExposureAmount,
			detected_date: f.DetectedDate
		} END) AS risks
		OPTIONAL MATCH (t)-[:FILED]->(ir:ITReturn)
		WITH t, risks, collect(CASE WHEN ir IS NULL THEN NULL ELSE {
			return_id: ir.ReturnID,
			year: ir.TaxYear,
			filed_date: ir.FiledDate,
			total_income: ir.TotalIncome
		} END) AS it_returns
		OPTIONAL MATCH (t)-[:REPORTED]->(er:EFRISReturn)
		WITH t, risks, it_returns, collect(CASE WHEN er IS NULL THEN NULL ELSE {
			return_id: er.ReturnID,
			period: er.Period,
			total_sales: er.TotalSales,
			vat: er.VATAmount
		} END) AS efris_returns
		RETURN t.TIN AS tin, t.TaxpayerName AS name, t.Region AS region,
			t.Sector AS sector, t.ComplianceStatus AS status,
			risks, it_returns, efris_returns
	`

// ByTIN looks up one taxpayer by exact TIN. Returns an ErrCodeNotFound
// error when no taxpayer matches.
func (q *TaxpayerQueries) ByTIN(ctx context.Context, tin string) (*TaxpayerProfile, error) {
	tin = strings.TrimSpace(tin)
	if tin == "" {
		return nil, invalidInput("TIN is required")
	}

	result, err := q.client.Query(ctx, taxpayerByTINCypher, map[string]any{"tin": tin})
	if err != nil {
		return nil, err
	}
	if result.Empty() {
		return nil, notFound("taxpayer", tin)
	}

	r := result.Records[0]
	profile := &TaxpayerProfile{Taxpayer: recordToTaxpayer(r, "")}

	for _, m := range toMaps(r["risks"]) {
		flag := recordToFlag(m)
		if flag.Risk.ID == "" {
			continue
		}
		profile.Flags = append(profile.Flags, flag)
	}
	sort.SliceStable(profile.Flags, func(i, j int) bool {
		return profile.Flags[i].Exposure > profile.Flags[j].Exposure
	})

	for _, m := range toMaps(r["it_returns"]) {
		if toString(m["return_id"]) == "" {
			continue
		}
		profile.ITReturns = append(profile.ITReturns, audit.ITReturn{
			ReturnID:    toString(m["return_id"]),
			TaxYear:     toString(m["year"]),
			FiledDate:   toString(m["filed_date"]),
			TotalIncome: toFloat64(m["total_income"]),
		})
	}
	for _, m := range toMaps(r["efris_returns"]) {
		if toString(m["return_id"]) == "" {
			continue
		}
		profile.EFRISReturns = append(profile.EFRISReturns, audit.EFRISReturn{
			ReturnID:   toString(m["return_id"]),
			Period:     toString(m["period"]),
			TotalSales: toFloat64(m["total_sales"]),
			VATAmount:  toFloat64(m["vat"]),
		})
	}

	return profile, nil
}

const taxpayersByNameCypher = `
		MATCH (t:Taxpayer)
		WHERE toLower(t.TaxpayerName) CONTAINS toLower($name)
		OPTIONAL MATCH (t)-[f:FLAGGED_BY]->(rf:RiskFlag)
		WITH t, count(DISTINCT rf) AS risk_count, coalesce(sum(f.ExposureAmount), 0) AS total_exposure
		RETURN t.TIN AS tin, t.TaxpayerName AS name, t.Region AS region,
			t.Sector AS sector, t.ComplianceStatus AS status,
			risk_count, total_exposure
		ORDER BY total_exposure DESC, tin ASC
		LIMIT $limit
	`

// ByName runs a case-insensitive substring match on the taxpayer name,
// ranked by aggregate exposure.
func (q *TaxpayerQueries) ByName(ctx context.Context, name string) ([]TaxpayerSummary, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, invalidInput("name is required")
	}

	result, err := q.client.Query(ctx, taxpayersByNameCypher, map[string]any{
		"name":  name,
		"limit": q.limits.Search,
	})
	if err != nil {
		return nil, err
	}

	out := make([]TaxpayerSummary, 0, len(result.Records))
	for _, r := range result.Records {
		out = append(out, TaxpayerSummary{
			Taxpayer:      recordToTaxpayer(r, ""),
			RiskCount:     toInt(r["risk_count"]),
			TotalExposure: toFloat64(r["total_exposure"]),
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].TotalExposure > out[j].TotalExposure
	})
	return capped(out, q.limits.Search), nil
}

const relatedTaxpayersCypher = `
		MATCH (t:Taxpayer {TIN: $tin})-[:FLAGGED_BY]->(rf:RiskFlag)<-[f:FLAGGED_BY]-(t2:Taxpayer)
		WHERE t2.TIN <> $tin
		WITH t2, count(DISTINCT rf) AS shared_risks, coalesce(sum(f.ExposureAmount), 0) AS exposure
		RETURN t2.TIN AS tin, t2.TaxpayerName AS name, t2.Region AS region,
			t2.Sector AS sector, t2.ComplianceStatus AS status,
			shared_risks, exposure
		ORDER BY shared_risks DESC, exposure DESC
		LIMIT $limit
	`

// Related finds taxpayers sharing at least one risk flag with tin, ranked
// by shared-flag count.
func (q *TaxpayerQueries) Related(ctx context.Context, tin string) ([]RelatedTaxpayer, error) {
	tin = strings.TrimSpace(tin)
	if tin == "" {
		return nil, invalidInput("TIN is required")
	}

	result, err := q.client.Query(ctx, relatedTaxpayersCypher, map[string]any{
		"tin":   tin,
		"limit": q.limits.Related,
	})
	if err != nil {
		return nil, err
	}

	out := make([]RelatedTaxpayer, 0, len(result.Records))
	for _, r := range result.Records {
		out = append(out, RelatedTaxpayer{
			Taxpayer:    recordToTaxpayer(r, ""),
			SharedRisks: toInt(r["shared_risks"]),
			Exposure:    toFloat64(r["exposure"]),
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].SharedRisks > out[j].SharedRisks
	})
	return capped(out, q.limits.Related), nil
}

const riskPathwayCypher = `
		MATCH (t:Taxpayer {TIN: $tin})-[f:FLAGGED_BY]->(rf:RiskFlag)
		WHERE toUpper(rf.RiskID) = toUpper($risk_id)
		OPTIONAL MATCH (t)-[:FILED]->(ir:ITReturn)
		OPTIONAL MATCH (t)-[:REPORTED]->(er:EFRISReturn)
		RETURN t.TIN AS tin, t.TaxpayerName AS name, t.Region AS region,
			t.Sector AS sector, t.ComplianceStatus AS status,
			rf.RiskID AS risk_id, rf.RiskName AS risk_name, rf.Severity AS severity,
			rf.Description AS description, f.ExposureAmount AS exposure,
			f.DetectedDate AS detected_date, f.EvidenceDetails AS evidence,
			ir.ReturnID AS it_return_id, ir.TaxYear AS it_year,
			ir.FiledDate AS it_filed_date, ir.TotalIncome AS total_income,
			er.ReturnID AS efris_return_id, er.Period AS efris_period,
			er.TotalSales AS total_sales, er.VATAmount AS vat
		ORDER BY ir.TaxYear DESC, er.Period DESC
		LIMIT 1
	`

// RiskPathway returns the evidence trail for one flag on a taxpayer. The
// risk ID match is case-insensitive.
func (q *TaxpayerQueries) RiskPathway(ctx context.Context, tin, riskID string) (*RiskPathway, error) {
	tin, riskID = strings.TrimSpace(tin), strings.TrimSpace(riskID)
	if tin == "" || riskID == "" {
		return nil, invalidInput("TIN and risk ID are required")
	}

	result, err := q.client.Query(ctx, riskPathwayCypher, map[string]any{
		"tin":     tin,
		"risk_id": riskID,
	})
	if err != nil {
		return nil, err
	}
	if result.Empty() {
		return nil, notFound("pathway", tin+"/"+riskID)
	}

	r := result.Records[0]
	pathway := &RiskPathway{
		Taxpayer: recordToTaxpayer(r, ""),
		Flag:     recordToFlag(r),
	}
	if id := toString(r["it_return_id"]); id != "" {
		pathway.ITReturn = &audit.ITReturn{
			ReturnID:    id,
			TaxYear:     toString(r["it_year"]),
			FiledDate:   toString(r["it_filed_date"]),
			TotalIncome: toFloat64(r["total_income"]),
		}
	}
	if id := toString(r["efris_return_id"]); id != "" {
		pathway.EFRISReturn = &audit.EFRISReturn{
			ReturnID:   id,
			Period:     toString(r["efris_period"]),
			TotalSales: toFloat64(r["total_sales"]),
			VATAmount:  toFloat64(r["vat"]),
		}
	}
	return pathway, nil
}

const highImpactByRiskCypher = `
		MATCH (t:Taxpayer)-[f:FLAGGED_BY]->(rf:RiskFlag)
		WHERE toUpper(rf.RiskID) = toUpper($risk_id) AND f.ExposureAmount >= $min_exposure
		RETURN t.TIN AS tin, t.TaxpayerName AS name, t.Region AS region,
			t.Sector AS sector, t.ComplianceStatus AS status,
			rf.RiskID AS risk_id, rf.RiskName AS risk_name, 1 AS risk_count,
			f.ExposureAmount AS exposure, f.DetectedDate AS detected_date
		ORDER BY exposure DESC
		LIMIT $limit
	`

const highImpactCypher = `
		MATCH (t:Taxpayer)-[f:FLAGGED_BY]->(rf:RiskFlag)
		WHERE f.ExposureAmount >= $min_exposure
		WITH t, count(DISTINCT rf) AS risk_count, sum(f.ExposureAmount) AS exposure
		RETURN t.TIN AS tin, t.TaxpayerName AS name, t.Region AS region,
			t.Sector AS sector, t.ComplianceStatus AS status,
			risk_count, exposure
		ORDER BY exposure DESC
		LIMIT $limit
	`

// HighImpact lists flags with exposure at or above minExposure. With a
// risk ID it returns one row per flag of that risk; without, one row per
// taxpayer aggregating its qualifying flags.
func (q *TaxpayerQueries) HighImpact(ctx context.Context, riskID string, minExposure float64) ([]HighImpactCase, error) {
	riskID = strings.TrimSpace(riskID)
	params := map[string]any{
		"min_exposure": minExposure,
		"limit":        q.limits.HighImpact,
	}

	cypher := highImpactCypher
	if riskID != "" {
		cypher = highImpactByRiskCypher
		params["risk_id"] = riskID
	}

	result, err := q.client.Query(ctx, cypher, params)
	if err != nil {
		return nil, err
	}

	out := make([]HighImpactCase, 0, len(result.Records))
	for _, r := range result.Records {
		out = append(out, HighImpactCase{
			Taxpayer:     recordToTaxpayer(r, ""),
			RiskID:       toString(r["risk_id"]),
			RiskName:     toString(r["risk_name"]),
			RiskCount:    toInt(r["risk_count"]),
			Exposure:     audit.ClampExposure(toFloat64(r["exposure"])),
			DetectedDate: toString(r["detected_date"]),
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Exposure > out[j].Exposure
	})
	return capped(out, q.limits.HighImpact), nil
}

// tracePathCypher takes the hop bound as a formatted integer: Cypher cannot
// bind variable-length bounds as parameters. The value comes from validated
// configuration, never from user input.
const tracePathCypher = `
		MATCH (a:Taxpayer {TIN: $from_tin}), (b:Taxpayer {TIN: $to_tin})
		MATCH path = shortestPath((a)-[:FLAGGED_BY*1..%d]-(b))
		RETURN length(path) AS hops,
			[n IN nodes(path) WHERE n:Taxpayer | {tin: n.TIN, name: n.TaxpayerName, region: n.Region, sector: n.Sector}] AS taxpayers,
			[n IN nodes(path) WHERE n:RiskFlag | {risk_id: n.RiskID, risk_name: n.RiskName, severity: n.Severity}] AS risks
		LIMIT 1
	`

// TracePath finds the shortest FLAGGED_BY path between two taxpayers, bounded
// by the configured hop limit.
func (q *TaxpayerQueries) TracePath(ctx context.Context, fromTIN, toTIN string) (*ConnectionPath, error) {
	fromTIN, toTIN = strings.TrimSpace(fromTIN), strings.TrimSpace(toTIN)
	if fromTIN == "" || toTIN == "" {
		return nil, invalidInput("two TINs are required")
	}
	if fromTIN == toTIN {
		return nil, invalidInput("cannot trace a taxpayer to itself")
	}

	cypher := fmt.Sprintf(tracePathCypher, q.limits.PathHops)
	result, err := q.client.Query(ctx, cypher, map[string]any{
		"from_tin": fromTIN,
		"to_tin":   toTIN,
	})
	if err != nil {
		return nil, err
	}
	if result.Empty() {
		return nil, notFound("path", fromTIN+" -> "+toTIN)
	}

	r := result.Records[0]
	path := &ConnectionPath{Hops: toInt(r["hops"])}
	for _, m := range toMaps(r["taxpayers"]) {
		path.Taxpayers = append(path.Taxpayers, recordToTaxpayer(m, ""))
	}
	for _, m := range toMaps(r["risks"]) {
		path.CommonRisks = append(path.CommonRisks, recordToRiskFlag(m))
	}
	return path, nil
}

const sectorProfileCypher = `
		MATCH (t:Taxpayer)-[f:FLAGGED_BY]->(rf:RiskFlag)
		WHERE toLower(t.Sector) = toLower($sector)
		WITH rf, count(DISTINCT t) AS prevalence,
			sum(f.ExposureAmount) AS total_exposure,
			avg(f.ExposureAmount) AS average_exposure
		RETURN rf.RiskID AS risk_id, rf.RiskName AS risk_name, rf.Severity AS severity,
			prevalence, total_exposure, average_exposure
		ORDER BY total_exposure DESC
	`

// SectorProfile aggregates each risk flag over the taxpayers of a sector,
// ranked by total exposure. The sector match is case-insensitive.
func (q *TaxpayerQueries) SectorProfile(ctx context.Context, sector string) ([]SectorRisk, error) {
	sector = strings.TrimSpace(sector)
	if sector == "" {
		return nil, invalidInput("sector is required")
	}

	result, err := q.client.Query(ctx, sectorProfileCypher, map[string]any{"sector": sector})
	if err != nil {
		return nil, err
	}

	out := make([]SectorRisk, 0, len(result.Records))
	for _, r := range result.Records {
		out = append(out, SectorRisk{
			Risk:            recordToRiskFlag(r),
			Prevalence:      toInt(r["prevalence"]),
			TotalExposure:   toFloat64(r["total_exposure"]),
			AverageExposure: toFloat64(r["average_exposure"]),
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].TotalExposure > out[j].TotalExposure
	})
	return out, nil
}

func capped[T any](items []T, limit int) []T {
	if limit > 0 && len(items) > limit {
		return items[:limit]
	}
	return items
}
