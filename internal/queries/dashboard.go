package queries

import (
	"context"
	"sort"

	"github.com/amasuba/uraics-revenue-assurance/internal/audit"
	"github.com/amasuba/uraics-revenue-assurance/internal/graph"
)

// KPIs are the headline compliance figures.
type KPIs struct {
	TotalTaxpayers     int     `json:"total_taxpayers"`
	FlaggedTaxpayers   int     `json:"flagged_taxpayers"`
	CompliantTaxpayers int     `json:"compliant_taxpayers"`
	ComplianceRate     float64 `json:"compliance_rate"`
	TotalExposure      float64 `json:"total_exposure"`
	AverageExposure    float64 `json:"average_exposure"`
	ActiveRiskTypes    int     `json:"risks_active"`
	TotalRiskTypes     int     `json:"total_risk_types"`
}

// RiskSummary aggregates one risk flag across all flagged taxpayers.
type RiskSummary struct {
	Risk             audit.RiskFlag `json:"risk"`
	FlaggedTaxpayers int            `json:"flagged_taxpayers"`
	TotalExposure    float64        `json:"total_exposure"`
	AverageExposure  float64        `json:"average_exposure"`
	LatestDetection  string         `json:"latest_detection,omitempty"`
	RegionsAffected  int            `json:"regions_affected"`
	SectorsAffected  int            `json:"sectors_affected"`
}

// RegionStat is the flag rate and exposure for one region.
type RegionStat struct {
	Region   string  `json:"region"`
	Total    int     `json:"total"`
	Flagged  int     `json:"flagged"`
	Exposure float64 `json:"exposure"`
	FlagRate float64 `json:"flag_rate"`
}

// SeverityStat is the flagged-taxpayer count and exposure for one severity.
type SeverityStat struct {
	Severity audit.Severity `json:"severity"`
	Count    int            `json:"count"`
	Exposure float64        `json:"exposure"`
}

// TopRisksLimit is how many risks TopRisks returns.
const TopRisksLimit = 5

// DashboardQueries computes portfolio-wide aggregates.
type DashboardQueries struct {
	client         graph.GraphClient
	riskCategories int
}

// DashboardOption configures DashboardQueries.
type DashboardOption func(*DashboardQueries)

// WithRiskCategories sets the size of the risk catalogue that sector risk
// coverage is measured against. Without it coverage is left at zero.
func WithRiskCategories(n int) DashboardOption {
	return func(q *DashboardQueries) {
		q.riskCategories = n
	}
}

// NewDashboardQueries creates DashboardQueries.
func NewDashboardQueries(client graph.GraphClient, opts ...DashboardOption) *DashboardQueries {
	q := &DashboardQueries{client: client}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

const kpiCypher = `
		OPTIONAL MATCH (t:Taxpayer)
		WITH count(DISTINCT t) AS total_taxpayers
		OPTIONAL MATCH (ft:Taxpayer)-[f:FLAGGED_BY]->(frf:RiskFlag)
		WITH total_taxpayers,
			count(DISTINCT ft) AS flagged_taxpayers,
			coalesce(sum(f.ExposureAmount), 0) AS total_exposure,
			count(DISTINCT frf) AS risks_active
		OPTIONAL MATCH (rf:RiskFlag)
		RETURN total_taxpayers, flagged_taxpayers, total_exposure, risks_active,
			count(DISTINCT rf) AS total_risk_types`

// KPIs computes the headline figures. Rates and averages are derived here
// rather than in the statement.
func (q *DashboardQueries) KPIs(ctx context.Context) (*KPIs, error) {
	result, err := q.client.Query(ctx, kpiCypher, nil)
	if err != nil {
		return nil, err
	}

	k := &KPIs{}
	if result.Empty() {
		return k, nil
	}
	r := result.Records[0]
	k.TotalTaxpayers = toInt(r["total_taxpayers"])
	k.FlaggedTaxpayers = toInt(r["flagged_taxpayers"])
	k.TotalExposure = toFloat64(r["total_exposure"])
	k.ActiveRiskTypes = toInt(r["risks_active"])
	k.TotalRiskTypes = toInt(r["total_risk_types"])

	k.CompliantTaxpayers = k.TotalTaxpayers - k.FlaggedTaxpayers
	if k.CompliantTaxpayers < 0 {
		k.CompliantTaxpayers = 0
	}
	if k.TotalTaxpayers > 0 {
		k.ComplianceRate = round(100*float64(k.CompliantTaxpayers)/float64(k.TotalTaxpayers), 2)
	}
	if k.FlaggedTaxpayers > 0 {
		k.AverageExposure = round(k.TotalExposure/float64(k.FlaggedTaxpayers), 0)
	}
	return k, nil
}

const riskSummaryCypher = `
		MATCH (rf:RiskFlag)<-[f:FLAGGED_BY]-(t:Taxpayer)
		WITH rf, count(DISTINCT t) AS flagged_count,
			sum(f.ExposureAmount) AS total_exposure,
			avg(f.ExposureAmount) AS average_exposure,
			max(f.DetectedDate) AS latest_detection,
			count(DISTINCT t.Region) AS regions_affected,
			count(DISTINCT t.Sector) AS sectors_affected
		RETURN rf.RiskID AS risk_id, rf.RiskName AS risk_name, rf.Severity AS severity,
			rf.Description AS description, flagged_count, total_exposure,
			average_exposure, latest_detection, regions_affected, sectors_affected
		ORDER BY total_exposure DESC`

const topRisksCypher = riskSummaryCypher + `
		LIMIT $limit`

// RiskSummary aggregates every risk flag that has at least one taxpayer,
// ranked by total exposure.
func (q *DashboardQueries) RiskSummary(ctx context.Context) ([]RiskSummary, error) {
	return q.riskSummary(ctx, riskSummaryCypher, nil, 0)
}

// TopRisks returns the five risks with the highest total exposure.
func (q *DashboardQueries) TopRisks(ctx context.Context) ([]RiskSummary, error) {
	return q.riskSummary(ctx, topRisksCypher, map[string]any{"limit": TopRisksLimit}, TopRisksLimit)
}

func (q *DashboardQueries) riskSummary(ctx context.Context, cypher string, params map[string]any, limit int) ([]RiskSummary, error) {
	result, err := q.client.Query(ctx, cypher, params)
	if err != nil {
		return nil, err
	}

	out := make([]RiskSummary, 0, len(result.Records))
	for _, r := range result.Records {
		out = append(out, RiskSummary{
			Risk:             recordToRiskFlag(r),
			FlaggedTaxpayers: toInt(r["flagged_count"]),
			TotalExposure:    toFloat64(r["total_exposure"]),
			AverageExposure:  round(toFloat64(r["average_exposure"]), 0),
			LatestDetection:  toString(r["latest_detection"]),
			RegionsAffected:  toInt(r["regions_affected"]),
			SectorsAffected:  toInt(r["sectors_affected"]),
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].TotalExposure > out[j].TotalExposure
	})
	return capped(out, limit), nil
}

const regionalCypher = `
		MATCH (t:Taxpayer)
		OPTIONAL MATCH (t)-[f:FLAGGED_BY]->(:RiskFlag)
		WITH t.Region AS region, t, sum(f.ExposureAmount) AS exposure, count(f) AS flags
		WITH region, count(t) AS total,
			sum(CASE WHEN flags > 0 THEN 1 ELSE 0 END) AS flagged,
			sum(exposure) AS exposure
		RETURN region, total, flagged, exposure
		ORDER BY exposure DESC`

// Regional returns the taxpayer count, flagged count, exposure and flag
// rate per region.
func (q *DashboardQueries) Regional(ctx context.Context) ([]RegionStat, error) {
	result, err := q.client.Query(ctx, regionalCypher, nil)
	if err != nil {
		return nil, err
	}

	out := make([]RegionStat, 0, len(result.Records))
	for _, r := range result.Records {
		stat := RegionStat{
			Region:   toString(r["region"]),
			Total:    toInt(r["total"]),
			Flagged:  toInt(r["flagged"]),
			Exposure: toFloat64(r["exposure"]),
		}
		if stat.Total > 0 {
			stat.FlagRate = round(100*float64(stat.Flagged)/float64(stat.Total), 2)
		}
		out = append(out, stat)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Exposure > out[j].Exposure
	})
	return out, nil
}

const severityCypher = `
		MATCH (rf:RiskFlag)<-[f:FLAGGED_BY]-(t:Taxpayer)
		WITH rf.Severity AS severity, count(DISTINCT t) AS count, sum(f.ExposureAmount) AS exposure
		RETURN severity, count, exposure
		ORDER BY exposure DESC`

// SeverityDistribution returns flagged taxpayers and exposure per severity,
// most severe first.
func (q *DashboardQueries) SeverityDistribution(ctx context.Context) ([]SeverityStat, error) {
	result, err := q.client.Query(ctx, severityCypher, nil)
	if err != nil {
		return nil, err
	}

	out := make([]SeverityStat, 0, len(result.Records))
	for _, r := range result.Records {
		out = append(out, SeverityStat{
			Severity: audit.Severity(toString(r["severity"])),
			Count:    toInt(r["count"]),
			Exposure: toFloat64(r["exposure"]),
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Severity.Rank() > out[j].Severity.Rank()
	})
	return out, nil
}
