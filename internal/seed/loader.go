package seed

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/amasuba/uraics-revenue-assurance/internal/graph"
	"github.com/amasuba/uraics-revenue-assurance/internal/types"
)

// Result counts what a Load wrote.
type Result struct {
	Taxpayers    int `json:"taxpayers"`
	RiskFlags    int `json:"risk_flags"`
	Flags        int `json:"flags"`
	ITReturns    int `json:"it_returns"`
	EFRISReturns int `json:"efris_returns"`
	Auditors     int `json:"auditors"`

	// Errors holds per-batch failures. Loading continues past them.
	Errors []error `json:"-"`
}

// AddError adds an error to the result and returns the result for chaining.
func (r *Result) AddError(err error) *Result {
	r.Errors = append(r.Errors, err)
	return r
}

// HasErrors returns true if any batch failed.
func (r *Result) HasErrors() bool {
	return len(r.Errors) > 0
}

// Loader writes fixtures to the graph.
type Loader struct {
	client graph.GraphClient
	logger *slog.Logger
}

// NewLoader creates a Loader. A nil logger uses slog.Default.
func NewLoader(client graph.GraphClient, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{client: client, logger: logger}
}

const (
	mergeTaxpayersCypher = `
		UNWIND $rows AS row
		MERGE (t:Taxpayer {TIN: row.tin})
		SET t.TaxpayerName = row.name, t.Region = row.region,
			t.Sector = row.sector, t.ComplianceStatus = row.status
	`
	mergeRiskFlagsCypher = `
		UNWIND $rows AS row
		MERGE (rf:RiskFlag {RiskID: row.risk_id})
		SET rf.RiskName = row.name, rf.Severity = row.severity, rf.Description = row.description
	`
	mergeFlagsCypher = `
		UNWIND $rows AS row
		MATCH (t:Taxpayer {TIN: row.tin}), (rf:RiskFlag {RiskID: row.risk_id})
		MERGE (t)-[f:FLAGGED_BY]->(rf)
		SET f.ExposureAmount = row.exposure, f.DetectedDate = row.detected_date,
			f.EvidenceDetails = row.evidence
	`
	mergeITReturnsCypher = `
		UNWIND $rows AS row
		MATCH (t:Taxpayer {TIN: row.tin})
		MERGE (ir:ITReturn {ReturnID: row.return_id})
		SET ir.TaxYear = row.year, ir.FiledDate = row.filed_date, ir.TotalIncome = row.total_income
		MERGE (t)-[:FILED]->(ir)
	`
	mergeEFRISReturnsCypher = `
		UNWIND $rows AS row
		MATCH (t:Taxpayer {TIN: row.tin})
		MERGE (er:EFRISReturn {ReturnID: row.return_id})
		SET er.Period = row.period, er.TotalSales = row.total_sales, er.VATAmount = row.vat
		MERGE (t)-[:REPORTED]->(er)
	`
	mergeAuditorsCypher = `
		UNWIND $rows AS row
		MERGE (a:Auditor {AuditorID: row.auditor_id})
		SET a.AuditorName = row.name, a.Email = row.email, a.Phone = row.phone, a.Region = row.region
	`
)

type batch struct {
	name   string
	cypher string
	rows   []map[string]any
	count  *int
}

// Load merges every entity of f. Nodes go first so that relationship
// batches can match their endpoints. A failed batch is recorded in the
// result and the remaining batches still run; only a nil client is an error.
func (l *Loader) Load(ctx context.Context, f *Fixture) (*Result, error) {
	if l.client == nil {
		return nil, types.NewError(ErrCodeLoadFailed, "client is nil")
	}

	res := &Result{}
	for _, b := range l.batches(f, res) {
		if len(b.rows) == 0 {
			continue
		}
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if _, err := l.client.Execute(ctx, b.cypher, map[string]any{"rows": b.rows}); err != nil {
			res.AddError(fmt.Errorf("failed to merge %s: %w", b.name, err))
			l.logger.WarnContext(ctx, "seed batch failed", "batch", b.name, "rows", len(b.rows), "error", err)
			continue
		}
		*b.count = len(b.rows)
		l.logger.DebugContext(ctx, "seed batch merged", "batch", b.name, "rows", len(b.rows))
	}
	return res, nil
}

func (l *Loader) batches(f *Fixture, res *Result) []batch {
	taxpayers := make([]map[string]any, 0, len(f.Taxpayers))
	for _, t := range f.Taxpayers {
		taxpayers = append(taxpayers, map[string]any{
			"tin": t.TIN, "name": t.Name, "region": t.Region,
			"sector": t.Sector, "status": t.ComplianceStatus,
		})
	}

	risks := make([]map[string]any, 0, len(f.RiskFlags))
	for _, r := range f.RiskFlags {
		risks = append(risks, map[string]any{
			"risk_id": r.ID, "name": r.Name,
			"severity": string(r.Severity), "description": r.Description,
		})
	}

	flags := make([]map[string]any, 0, len(f.Flags))
	for _, fl := range f.Flags {
		flags = append(flags, map[string]any{
			"tin": fl.TIN, "risk_id": fl.RiskID, "exposure": fl.Exposure,
			"detected_date": fl.DetectedDate, "evidence": fl.Evidence,
		})
	}

	itReturns := make([]map[string]any, 0, len(f.ITReturns))
	for _, r := range f.ITReturns {
		itReturns = append(itReturns, map[string]any{
			"tin": r.TIN, "return_id": r.ReturnID, "year": r.TaxYear,
			"filed_date": r.FiledDate, "total_income": r.TotalIncome,
		})
	}

	efrisReturns := make([]map[string]any, 0, len(f.EFRISReturns))
	for _, r := range f.EFRISReturns {
		efrisReturns = append(efrisReturns, map[string]any{
			"tin": r.TIN, "return_id": r.ReturnID, "period": r.Period,
			"total_sales": r.TotalSales, "vat": r.VATAmount,
		})
	}

	auditors := make([]map[string]any, 0, len(f.Auditors))
	for _, a := range f.Auditors {
		auditors = append(auditors, map[string]any{
			"auditor_id": a.ID, "name": a.Name, "email": a.Email,
			"phone": a.Phone, "region": a.Region,
		})
	}

	return []batch{
		{"taxpayers", mergeTaxpayersCypher, taxpayers, &res.Taxpayers},
		{"risk flags", mergeRiskFlagsCypher, risks, &res.RiskFlags},
		{"auditors", mergeAuditorsCypher, auditors, &res.Auditors},
		{"flags", mergeFlagsCypher, flags, &res.Flags},
		{"IT returns", mergeITReturnsCypher, itReturns, &res.ITReturns},
		{"EFRIS returns", mergeEFRISReturnsCypher, efrisReturns, &res.EFRISReturns},
	}
}
