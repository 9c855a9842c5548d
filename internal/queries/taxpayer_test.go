package queries

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amasuba/uraics-revenue-assurance/internal/graph"
	"github.com/amasuba/uraics-revenue-assurance/internal/types"
)

func connectedMock(t *testing.T) *graph.MockGraphClient {
	t.Helper()
	client := graph.NewMockGraphClient()
	require.NoError(t, client.Connect(context.Background()))
	return client
}

func TestTaxpayerQueries_ByTIN(t *testing.T) {
	client := connectedMock(t)
	client.AddRecords(map[string]any{
		"tin":    "1000123456",
		"name":   "Kampala Traders Ltd",
		"region": "Central",
		"sector": "Retail",
		"status": "Non-Compliant",
		"risks": []any{
			map[string]any{"risk_id": "R001", "risk_name": "Income Under-Declaration", "severity": "High", "exposure": int64(400_000_000)},
			map[string]any{"risk_id": "R007", "risk_name": "VAT Mismatch", "severity": "Critical", "exposure": 1.9e9},
			map[string]any{"risk_id": "R002", "risk_name": "Negative Exposure", "severity": "Low", "exposure": -5.0},
		},
		"it_returns": []any{
			map[string]any{"return_id": "IT-2023-1", "year": int64(2023), "total_income": 5e8},
		},
		"efris_returns": []any{},
	})

	q := NewTaxpayerQueries(client, Limits{})
	profile, err := q.ByTIN(context.Background(), " 1000123456 ")
	require.NoError(t, err)

	assert.Equal(t, "Kampala Traders Ltd", profile.Taxpayer.Name)
	require.Len(t, profile.Flags, 3)
	assert.Equal(t, "R007", profile.Flags[0].Risk.ID, "flags sorted by exposure")
	assert.Equal(t, 0.0, profile.Flags[2].Exposure, "negative exposure clamped")
	assert.Equal(t, 3, profile.RiskCount())
	assert.InDelta(t, 2.3e9, profile.TotalExposure(), 1)
	require.Len(t, profile.ITReturns, 1)
	assert.Equal(t, "2023", profile.ITReturns[0].TaxYear)
	assert.Empty(t, profile.EFRISReturns)

	top, ok := profile.TopFlag()
	require.True(t, ok)
	assert.Equal(t, "R007", top.Risk.ID)

	calls := client.GetCallsByMethod("Query")
	require.Len(t, calls, 1)
	assert.Equal(t, "1000123456", calls[0].Params["tin"])
}

func TestTaxpayerQueries_ByTINNotFound(t *testing.T) {
	client := connectedMock(t)
	q := NewTaxpayerQueries(client, Limits{})

	_, err := q.ByTIN(context.Background(), "999999")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.Equal(t, ErrCodeNotFound, types.CodeOf(err))
}

func TestTaxpayerQueries_RejectsEmptyInput(t *testing.T) {
	client := connectedMock(t)
	q := NewTaxpayerQueries(client, Limits{})
	ctx := context.Background()

	_, err := q.ByTIN(ctx, "  ")
	assert.Equal(t, ErrCodeInvalidInput, types.CodeOf(err))
	_, err = q.ByName(ctx, "")
	assert.Equal(t, ErrCodeInvalidInput, types.CodeOf(err))
	_, err = q.Related(ctx, "")
	assert.Equal(t, ErrCodeInvalidInput, types.CodeOf(err))
	_, err = q.SectorProfile(ctx, "")
	assert.Equal(t, ErrCodeInvalidInput, types.CodeOf(err))

	assert.Equal(t, 0, len(client.GetCallsByMethod("Query")), "no store access on invalid input")
}

func TestTaxpayerQueries_ByNameCapsResults(t *testing.T) {
	client := connectedMock(t)
	rows := make([]map[string]any, 0, 15)
	for i := 0; i < 15; i++ {
		rows = append(rows, map[string]any{
			"tin":            fmt.Sprintf("10000000%02d", i),
			"name":           fmt.Sprintf("Masaka Holdings %d", i),
			"risk_count":     int64(i % 3),
			"total_exposure": float64(i) * 1e8,
		})
	}
	client.AddRecords(rows...)

	q := NewTaxpayerQueries(client, Limits{})
	results, err := q.ByName(context.Background(), "masaka")
	require.NoError(t, err)

	require.Len(t, results, 10)
	assert.Equal(t, "1000000014", results[0].Taxpayer.TIN, "highest exposure first")

	calls := client.GetCallsByMethod("Query")
	require.Len(t, calls, 1)
	assert.Equal(t, 10, calls[0].Params["limit"])
	assert.Equal(t, "masaka", calls[0].Params["name"])
}

func TestTaxpayerQueries_Related(t *testing.T) {
	client := connectedMock(t)
	client.AddRecords(
		map[string]any{"tin": "200", "name": "B", "shared_risks": int64(1), "exposure": 9e9},
		map[string]any{"tin": "300", "name": "C", "shared_risks": int64(3), "exposure": 1e6},
	)

	q := NewTaxpayerQueries(client, Limits{Related: 5})
	related, err := q.Related(context.Background(), "100")
	require.NoError(t, err)

	require.Len(t, related, 2)
	assert.Equal(t, "300", related[0].Taxpayer.TIN)
	assert.Equal(t, 3, related[0].SharedRisks)
	assert.Equal(t, 5, client.GetCallsByMethod("Query")[0].Params["limit"])
}

func TestTaxpayerQueries_RiskPathway(t *testing.T) {
	client := connectedMock(t)
	client.AddRecords(map[string]any{
		"tin":             "1000123456",
		"name":            "Kampala Traders Ltd",
		"risk_id":         "R007",
		"risk_name":       "VAT Mismatch",
		"severity":        "Critical",
		"exposure":        1.2e9,
		"evidence":        "EFRIS sales exceed declared income",
		"it_return_id":    "IT-2023-1",
		"it_year":         "2023",
		"total_income":    5e8,
		"efris_return_id": "EF-2023-12",
		"efris_period":    "2023-12",
		"total_sales":     2.1e9,
		"vat":             3.78e8,
	})

	q := NewTaxpayerQueries(client, Limits{})
	pathway, err := q.RiskPathway(context.Background(), "1000123456", "r007")
	require.NoError(t, err)

	assert.Equal(t, "R007", pathway.Flag.Risk.ID)
	require.NotNil(t, pathway.ITReturn)
	require.NotNil(t, pathway.EFRISReturn)
	variance, ok := pathway.Variance()
	require.True(t, ok)
	assert.InDelta(t, 1.6e9, variance, 1)
}

func TestTaxpayerQueries_RiskPathwayWithoutFilings(t *testing.T) {
	client := connectedMock(t)
	client.AddRecords(map[string]any{
		"tin":      "1000123456",
		"risk_id":  "R001",
		"exposure": 1e8,
	})

	q := NewTaxpayerQueries(client, Limits{})
	pathway, err := q.RiskPathway(context.Background(), "1000123456", "R001")
	require.NoError(t, err)

	assert.Nil(t, pathway.ITReturn)
	assert.Nil(t, pathway.EFRISReturn)
	_, ok := pathway.Variance()
	assert.False(t, ok)
}

func TestTaxpayerQueries_HighImpact(t *testing.T) {
	tests := []struct {
		name       string
		riskID     string
		wantRiskID bool
	}{
		{name: "aggregate per taxpayer"},
		{name: "scoped to one risk", riskID: "R003", wantRiskID: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := connectedMock(t)
			rows := make([]map[string]any, 0, 25)
			for i := 0; i < 25; i++ {
				rows = append(rows, map[string]any{
					"tin":      fmt.Sprintf("50000000%02d", i),
					"exposure": 1e9 + float64(i),
				})
			}
			client.AddRecords(rows...)

			q := NewTaxpayerQueries(client, Limits{})
			cases, err := q.HighImpact(context.Background(), tt.riskID, 1e9)
			require.NoError(t, err)
			assert.Len(t, cases, 20)

			params := client.GetCallsByMethod("Query")[0].Params
			assert.Equal(t, 1e9, params["min_exposure"])
			assert.Equal(t, 20, params["limit"])
			_, has := params["risk_id"]
			assert.Equal(t, tt.wantRiskID, has)
		})
	}
}

func TestTaxpayerQueries_TracePath(t *testing.T) {
	client := connectedMock(t)
	client.AddRecords(map[string]any{
		"hops": int64(2),
		"taxpayers": []any{
			map[string]any{"tin": "100", "name": "A"},
			map[string]any{"tin": "200", "name": "B"},
		},
		"risks": []any{
			map[string]any{"risk_id": "R004", "risk_name": "Related Party Transfers", "severity": "High"},
		},
	})

	q := NewTaxpayerQueries(client, Limits{PathHops: 2})
	path, err := q.TracePath(context.Background(), "100", "200")
	require.NoError(t, err)

	assert.Equal(t, 2, path.Hops)
	assert.Len(t, path.Taxpayers, 2)
	require.Len(t, path.CommonRisks, 1)
	assert.Equal(t, "R004", path.CommonRisks[0].ID)

	cypher := client.GetCallsByMethod("Query")[0].Cypher
	assert.Contains(t, cypher, "FLAGGED_BY*1..2")
}

func TestNewTaxpayerQueries_CapsPathHops(t *testing.T) {
	for _, hops := range []int{-1, 0, 4, 10} {
		q := NewTaxpayerQueries(graph.NewMockGraphClient(), Limits{PathHops: hops})
		assert.Equal(t, MaxPathHops, q.Limits().PathHops, "hops %d", hops)
	}
	assert.Equal(t, 1, NewTaxpayerQueries(graph.NewMockGraphClient(), Limits{PathHops: 1}).Limits().PathHops)
}

func TestTaxpayerQueries_TracePathRejectsSameTIN(t *testing.T) {
	client := connectedMock(t)
	q := NewTaxpayerQueries(client, Limits{})

	_, err := q.TracePath(context.Background(), "100", "100")
	assert.Equal(t, ErrCodeInvalidInput, types.CodeOf(err))

	_, err = q.TracePath(context.Background(), "100", "200")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestTaxpayerQueries_SectorProfile(t *testing.T) {
	client := connectedMock(t)
	client.AddRecords(
		map[string]any{"risk_id": "R001", "prevalence": int64(4), "total_exposure": 2e9, "average_exposure": 5e8},
		map[string]any{"risk_id": "R009", "prevalence": int64(1), "total_exposure": 7e9, "average_exposure": 7e9},
	)

	q := NewTaxpayerQueries(client, Limits{})
	risks, err := q.SectorProfile(context.Background(), "Manufacturing")
	require.NoError(t, err)

	require.Len(t, risks, 2)
	assert.Equal(t, "R009", risks[0].Risk.ID)
	assert.Equal(t, 4, risks[1].Prevalence)
}

func TestTaxpayerQueries_StoreErrorPropagates(t *testing.T) {
	client := connectedMock(t)
	client.SetQueryError(types.NewError(graph.ErrCodeGraphQueryFailed, "connection reset"))

	q := NewTaxpayerQueries(client, Limits{})
	_, err := q.ByName(context.Background(), "acme")
	require.Error(t, err)
	assert.Equal(t, graph.ErrCodeGraphQueryFailed, types.CodeOf(err))
}
