package queries

import (
	"context"
	"sort"
	"time"

	"github.com/amasuba/uraics-revenue-assurance/internal/audit"
)

// DataQuality reports how complete the loaded records are and how many
// taxpayers can be reconciled across IT and EFRIS filings. Percentages are
// in [0, 100].
type DataQuality struct {
	TotalTaxpayers      int     `json:"total_taxpayers"`
	TINCompleteness     float64 `json:"tin_completeness"`
	NameCompleteness    float64 `json:"name_completeness"`
	RegionCompleteness  float64 `json:"region_completeness"`
	SectorCompleteness  float64 `json:"sector_completeness"`
	ITReturns           int     `json:"it_returns"`
	ITCompleteness      float64 `json:"it_completeness"`
	EFRISReturns        int     `json:"efris_returns"`
	EFRISCompleteness   float64 `json:"efris_completeness"`
	ReconciledTaxpayers int     `json:"reconciled_taxpayers"`
	ReconciliationRate  float64 `json:"reconciliation_rate"`
	OverallScore        float64 `json:"overall_score"`
}

// DataVolume counts the nodes and relationships of the audit graph.
type DataVolume struct {
	Nodes              map[string]int `json:"nodes"`
	TotalNodes         int            `json:"total_nodes"`
	Relationships      map[string]int `json:"relationships"`
	TotalRelationships int            `json:"total_relationships"`
}

// SectorStat is the compliance and risk picture of one sector.
type SectorStat struct {
	Sector          string  `json:"sector"`
	Total           int     `json:"total"`
	Compliant       int     `json:"compliant"`
	ComplianceRate  float64 `json:"compliance_rate"`
	Flagged         int     `json:"flagged"`
	FlagRate        float64 `json:"flag_rate"`
	ActiveRisks     int     `json:"active_risks"`
	RiskCoverage    float64 `json:"risk_coverage"`
	Exposure        float64 `json:"exposure"`
	AverageExposure float64 `json:"average_exposure"`
}

// AuditorPerformance is an auditor's workload with completion figures.
type AuditorPerformance struct {
	audit.Auditor
	CompletedTasks  int     `json:"completed_tasks"`
	CompletionRate  float64 `json:"completion_rate"`
	TotalExposure   float64 `json:"total_exposure"`
	AverageExposure float64 `json:"average_exposure"`
}

// TrendPoint is the number of taxpayers flagged for one risk on one day.
type TrendPoint struct {
	Date     string  `json:"date"`
	RiskID   string  `json:"risk_id"`
	RiskName string  `json:"risk_name,omitempty"`
	Count    int     `json:"count"`
	Exposure float64 `json:"exposure"`
}

// RiskTrendLimit caps the rows RiskTrend returns.
const RiskTrendLimit = 1000

// volumeLabels and volumeRelationships are what DataVolume counts.
var (
	volumeLabels = []string{
		audit.LabelTaxpayer, audit.LabelRiskFlag, audit.LabelITReturn,
		audit.LabelEFRISReturn, audit.LabelAuditTask, audit.LabelAuditor,
	}
	volumeRelationships = []string{
		audit.RelFlaggedBy, audit.RelFiled, audit.RelReported,
		audit.RelAssignedTo, audit.RelTargets, audit.RelLinkedTo,
	}
)

const dataQualityCypher = `
		OPTIONAL MATCH (t:Taxpayer)
		WITH count(t) AS total_taxpayers, count(t.TIN) AS tin_complete,
			count(t.TaxpayerName) AS name_complete, count(t.Region) AS region_complete,
			count(t.Sector) AS sector_complete
		OPTIONAL MATCH (ir:ITReturn)
		WITH total_taxpayers, tin_complete, name_complete, region_complete, sector_complete,
			count(ir) AS it_returns, count(ir.TotalIncome) AS it_complete
		OPTIONAL MATCH (er:EFRISReturn)
		WITH total_taxpayers, tin_complete, name_complete, region_complete, sector_complete,
			it_returns, it_complete, count(er) AS efris_returns, count(er.TotalSales) AS efris_complete
		OPTIONAL MATCH (both:Taxpayer)-[:FILED]->(:ITReturn)
		WHERE (both)-[:REPORTED]->(:EFRISReturn)
		RETURN total_taxpayers, tin_complete, name_complete, region_complete, sector_complete,
			it_returns, it_complete, efris_returns, efris_complete,
			count(DISTINCT both) AS reconciled`

// DataQuality measures field completeness and IT/EFRIS reconciliation. The
// overall score weighs taxpayer fields and filing amounts equally.
func (q *DashboardQueries) DataQuality(ctx context.Context) (*DataQuality, error) {
	result, err := q.client.Query(ctx, dataQualityCypher, nil)
	if err != nil {
		return nil, err
	}

	d := &DataQuality{}
	if result.Empty() {
		return d, nil
	}
	r := result.Records[0]
	total := toInt(r["total_taxpayers"])
	tin, name := toInt(r["tin_complete"]), toInt(r["name_complete"])
	region, sector := toInt(r["region_complete"]), toInt(r["sector_complete"])
	itComplete, efrisComplete := toInt(r["it_complete"]), toInt(r["efris_complete"])

	d.TotalTaxpayers = total
	d.TINCompleteness = percent(tin, total)
	d.NameCompleteness = percent(name, total)
	d.RegionCompleteness = percent(region, total)
	d.SectorCompleteness = percent(sector, total)
	d.ITReturns = toInt(r["it_returns"])
	d.ITCompleteness = percent(itComplete, d.ITReturns)
	d.EFRISReturns = toInt(r["efris_returns"])
	d.EFRISCompleteness = percent(efrisComplete, d.EFRISReturns)
	d.ReconciledTaxpayers = toInt(r["reconciled"])
	d.ReconciliationRate = percent(d.ReconciledTaxpayers, total)

	fields := ratio(tin+name+region+sector, 4*total)
	filings := ratio(itComplete+efrisComplete, d.ITReturns+d.EFRISReturns)
	d.OverallScore = round(50*fields+50*filings, 1)
	return d, nil
}

const nodeVolumeCypher = `
		MATCH (n)
		UNWIND [l IN labels(n) WHERE l IN $labels] AS label
		RETURN label, count(n) AS count`

const relationshipVolumeCypher = `
		MATCH ()-[r]->()
		WHERE type(r) IN $types
		RETURN type(r) AS rel_type, count(r) AS count`

// DataVolume counts nodes per audit label and relationships per audit type.
// Every label and type is present in the result, zero when absent.
func (q *DashboardQueries) DataVolume(ctx context.Context) (*DataVolume, error) {
	nodes, err := q.client.Query(ctx, nodeVolumeCypher, map[string]any{"labels": volumeLabels})
	if err != nil {
		return nil, err
	}
	rels, err := q.client.Query(ctx, relationshipVolumeCypher, map[string]any{"types": volumeRelationships})
	if err != nil {
		return nil, err
	}

	v := &DataVolume{
		Nodes:         make(map[string]int, len(volumeLabels)),
		Relationships: make(map[string]int, len(volumeRelationships)),
	}
	for _, label := range volumeLabels {
		v.Nodes[label] = 0
	}
	for _, rel := range volumeRelationships {
		v.Relationships[rel] = 0
	}
	for _, r := range nodes.Records {
		n := toInt(r["count"])
		v.Nodes[toString(r["label"])] += n
		v.TotalNodes += n
	}
	for _, r := range rels.Records {
		n := toInt(r["count"])
		v.Relationships[toString(r["rel_type"])] += n
		v.TotalRelationships += n
	}
	return v, nil
}

const sectorComplianceCypher = `
		MATCH (t:Taxpayer)
		OPTIONAL MATCH (t)-[f:FLAGGED_BY]->(rf:RiskFlag)
		WITH t, count(f) AS flags, coalesce(sum(f.ExposureAmount), 0) AS exposure,
			collect(DISTINCT rf.RiskID) AS risk_ids
		WITH t.Sector AS sector, count(t) AS total,
			sum(CASE WHEN t.ComplianceStatus = $compliant THEN 1 ELSE 0 END) AS compliant,
			sum(CASE WHEN flags > 0 THEN 1 ELSE 0 END) AS flagged,
			sum(exposure) AS exposure,
			collect(risk_ids) AS risk_lists
		RETURN sector, total, compliant, flagged, exposure, risk_lists
		ORDER BY exposure DESC`

// SectorCompliance returns per-sector compliance, flag rates and exposure,
// largest exposure first. Compliance counts taxpayers whose recorded status
// is Compliant; the flag rate counts taxpayers with at least one flag.
func (q *DashboardQueries) SectorCompliance(ctx context.Context) ([]SectorStat, error) {
	result, err := q.client.Query(ctx, sectorComplianceCypher, map[string]any{"compliant": audit.StatusCompliant})
	if err != nil {
		return nil, err
	}

	out := make([]SectorStat, 0, len(result.Records))
	for _, r := range result.Records {
		stat := SectorStat{
			Sector:    toString(r["sector"]),
			Total:     toInt(r["total"]),
			Compliant: toInt(r["compliant"]),
			Flagged:   toInt(r["flagged"]),
			Exposure:  toFloat64(r["exposure"]),
		}
		stat.ActiveRisks = distinctCount(r["risk_lists"])
		stat.ComplianceRate = percent(stat.Compliant, stat.Total)
		stat.FlagRate = percent(stat.Flagged, stat.Total)
		stat.RiskCoverage = percent(stat.ActiveRisks, q.riskCategories)
		if stat.Flagged > 0 {
			stat.AverageExposure = round(stat.Exposure/float64(stat.Flagged), 0)
		}
		out = append(out, stat)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Exposure > out[j].Exposure
	})
	return out, nil
}

const auditorPerformanceCypher = auditorWorkload + `
		ORDER BY completed_tasks DESC, auditor_id ASC`

// AuditorPerformance returns every auditor's workload and completion rate,
// most completed tasks first. The average exposure is per assigned task.
func (q *DashboardQueries) AuditorPerformance(ctx context.Context) ([]AuditorPerformance, error) {
	result, err := q.client.Query(ctx, auditorPerformanceCypher, nil)
	if err != nil {
		return nil, err
	}

	out := make([]AuditorPerformance, 0, len(result.Records))
	for _, r := range result.Records {
		p := AuditorPerformance{
			Auditor:        recordToAuditor(r),
			CompletedTasks: toInt(r["completed_tasks"]),
			TotalExposure:  toFloat64(r["total_exposure"]),
		}
		p.CompletionRate = percent(p.CompletedTasks, p.AssignedTasks)
		if p.AssignedTasks > 0 {
			p.AverageExposure = round(p.TotalExposure/float64(p.AssignedTasks), 0)
		}
		out = append(out, p)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CompletedTasks != out[j].CompletedTasks {
			return out[i].CompletedTasks > out[j].CompletedTasks
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// Detection dates are stored as ISO strings; the first ten characters are
// the day whether or not a time follows.
const riskTrendCypher = `
		MATCH (t:Taxpayer)-[f:FLAGGED_BY]->(rf:RiskFlag)
		WHERE f.DetectedDate IS NOT NULL
		WITH t, f, rf, left(toString(f.DetectedDate), 10) AS day
		WHERE day >= $since
		WITH day, rf, count(DISTINCT t) AS count, sum(f.ExposureAmount) AS exposure
		RETURN day AS date, rf.RiskID AS risk_id, rf.RiskName AS risk_name, count, exposure
		ORDER BY date DESC, risk_id ASC
		LIMIT $limit`

// RiskTrend returns flag detections per day and risk from since onwards,
// newest day first.
func (q *DashboardQueries) RiskTrend(ctx context.Context, since time.Time) ([]TrendPoint, error) {
	result, err := q.client.Query(ctx, riskTrendCypher, map[string]any{
		"since": since.Format(time.DateOnly),
		"limit": RiskTrendLimit,
	})
	if err != nil {
		return nil, err
	}

	out := make([]TrendPoint, 0, len(result.Records))
	for _, r := range result.Records {
		out = append(out, TrendPoint{
			Date:     toString(r["date"]),
			RiskID:   toString(r["risk_id"]),
			RiskName: toString(r["risk_name"]),
			Count:    toInt(r["count"]),
			Exposure: toFloat64(r["exposure"]),
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date > out[j].Date
		}
		return out[i].RiskID < out[j].RiskID
	})
	return capped(out, RiskTrendLimit), nil
}

// ratio is part/whole, zero for an empty whole.
func ratio(part, whole int) float64 {
	if whole <= 0 {
		return 0
	}
	return float64(part) / float64(whole)
}

// percent is ratio as a percentage to one decimal.
func percent(part, whole int) float64 {
	return round(100*ratio(part, whole), 1)
}

// distinctCount counts the distinct strings across a list of string lists.
func distinctCount(v any) int {
	lists, _ := v.([]any)
	seen := make(map[string]struct{})
	for _, l := range lists {
		for _, s := range toStrings(l) {
			if s != "" {
				seen[s] = struct{}{}
			}
		}
	}
	return len(seen)
}
