package queries

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amasuba/uraics-revenue-assurance/internal/audit"
)

func TestDashboardQueries_KPIs(t *testing.T) {
	client := connectedMock(t)
	client.AddRecords(map[string]any{
		"total_taxpayers":   int64(8),
		"flagged_taxpayers": int64(3),
		"total_exposure":    4.5e9,
		"risks_active":      int64(5),
		"total_risk_types":  int64(18),
	})

	q := NewDashboardQueries(client)
	k, err := q.KPIs(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 5, k.CompliantTaxpayers)
	assert.Equal(t, 62.5, k.ComplianceRate)
	assert.Equal(t, 1.5e9, k.AverageExposure)
	assert.Equal(t, 18, k.TotalRiskTypes)
}

func TestDashboardQueries_KPIsEmptyGraph(t *testing.T) {
	client := connectedMock(t)
	client.AddRecords(map[string]any{
		"total_taxpayers":   int64(0),
		"flagged_taxpayers": int64(0),
		"total_exposure":    int64(0),
	})

	q := NewDashboardQueries(client)
	k, err := q.KPIs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0.0, k.ComplianceRate)
	assert.Equal(t, 0.0, k.AverageExposure)
}

func TestDashboardQueries_TopRisksCaps(t *testing.T) {
	client := connectedMock(t)
	rows := make([]map[string]any, 0, 7)
	for i := 0; i < 7; i++ {
		rows = append(rows, map[string]any{
			"risk_id":        string(rune('A' + i)),
			"flagged_count":  int64(i),
			"total_exposure": float64(i) * 1e8,
		})
	}
	client.AddRecords(rows...)

	q := NewDashboardQueries(client)
	top, err := q.TopRisks(context.Background())
	require.NoError(t, err)

	require.Len(t, top, TopRisksLimit)
	assert.Equal(t, "G", top[0].Risk.ID)
	assert.Equal(t, TopRisksLimit, client.GetCallsByMethod("Query")[0].Params["limit"])
}

func TestDashboardQueries_RiskSummaryUncapped(t *testing.T) {
	client := connectedMock(t)
	rows := make([]map[string]any, 0, 7)
	for i := 0; i < 7; i++ {
		rows = append(rows, map[string]any{"risk_id": string(rune('A' + i)), "average_exposure": 1234.6})
	}
	client.AddRecords(rows...)

	q := NewDashboardQueries(client)
	all, err := q.RiskSummary(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, 7)
	assert.Equal(t, 1235.0, all[0].AverageExposure)
}

func TestDashboardQueries_Regional(t *testing.T) {
	client := connectedMock(t)
	client.AddRecords(
		map[string]any{"region": "Northern", "total": int64(3), "flagged": int64(1), "exposure": 1e8},
		map[string]any{"region": "Central", "total": int64(4), "flagged": int64(3), "exposure": 6e9},
	)

	q := NewDashboardQueries(client)
	regions, err := q.Regional(context.Background())
	require.NoError(t, err)

	require.Len(t, regions, 2)
	assert.Equal(t, "Central", regions[0].Region)
	assert.Equal(t, 75.0, regions[0].FlagRate)
	assert.Equal(t, 33.33, regions[1].FlagRate)
}

func TestDashboardQueries_SeverityDistribution(t *testing.T) {
	client := connectedMock(t)
	client.AddRecords(
		map[string]any{"severity": "Medium", "count": int64(4), "exposure": 9e9},
		map[string]any{"severity": "Critical", "count": int64(1), "exposure": 1e9},
		map[string]any{"severity": "High", "count": int64(2), "exposure": 2e9},
	)

	q := NewDashboardQueries(client)
	dist, err := q.SeverityDistribution(context.Background())
	require.NoError(t, err)

	require.Len(t, dist, 3)
	assert.Equal(t, audit.SeverityCritical, dist[0].Severity)
	assert.Equal(t, audit.SeverityMedium, dist[2].Severity)
}
