package router

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amasuba/uraics-revenue-assurance/internal/audit"
	"github.com/amasuba/uraics-revenue-assurance/internal/intent"
	"github.com/amasuba/uraics-revenue-assurance/internal/queries"
	"github.com/amasuba/uraics-revenue-assurance/internal/types"
)

// fakeStore is an in-memory TaxpayerStore. Unset fields answer not-found.
type fakeStore struct {
	profiles map[string]*queries.TaxpayerProfile
	byName   []queries.TaxpayerSummary
	related  []queries.RelatedTaxpayer
	pathway  *queries.RiskPathway
	cases    []queries.HighImpactCase
	sector   []queries.SectorRisk
	path     *queries.ConnectionPath
	err      error

	calls       []string
	pathwayRisk string
	minExposure float64
}

func (f *fakeStore) record(name string) error {
	f.calls = append(f.calls, name)
	return f.err
}

func (f *fakeStore) ByTIN(_ context.Context, tin string) (*queries.TaxpayerProfile, error) {
	if err := f.record("ByTIN"); err != nil {
		return nil, err
	}
	if p, ok := f.profiles[tin]; ok {
		return p, nil
	}
	return nil, types.NewError(queries.ErrCodeNotFound, "taxpayer "+tin+" not found")
}

func (f *fakeStore) ByName(context.Context, string) ([]queries.TaxpayerSummary, error) {
	return f.byName, f.record("ByName")
}

func (f *fakeStore) Related(context.Context, string) ([]queries.RelatedTaxpayer, error) {
	return f.related, f.record("Related")
}

func (f *fakeStore) RiskPathway(_ context.Context, _, riskID string) (*queries.RiskPathway, error) {
	f.pathwayRisk = riskID
	if err := f.record("RiskPathway"); err != nil {
		return nil, err
	}
	if f.pathway == nil {
		return nil, types.NewError(queries.ErrCodeNotFound, "pathway not found")
	}
	return f.pathway, nil
}

func (f *fakeStore) HighImpact(_ context.Context, _ string, minExposure float64) ([]queries.HighImpactCase, error) {
	f.minExposure = minExposure
	return f.cases, f.record("HighImpact")
}

func (f *fakeStore) TracePath(context.Context, string, string) (*queries.ConnectionPath, error) {
	if err := f.record("TracePath"); err != nil {
		return nil, err
	}
	if f.path == nil {
		return nil, types.NewError(queries.ErrCodeNotFound, "no path")
	}
	return f.path, nil
}

func (f *fakeStore) SectorProfile(context.Context, string) ([]queries.SectorRisk, error) {
	return f.sector, f.record("SectorProfile")
}

func flagsN(n int) []audit.Flag {
	flags := make([]audit.Flag, n)
	for i := range flags {
		flags[i] = audit.Flag{
			Risk:     audit.RiskFlag{ID: fmt.Sprintf("R%03d", i+1), Severity: audit.SeverityHigh},
			Exposure: float64(i+1) * 1e8,
		}
	}
	return flags
}

func profile(tin string, flags ...audit.Flag) *queries.TaxpayerProfile {
	return &queries.TaxpayerProfile{
		Taxpayer: audit.Taxpayer{TIN: tin, Name: "Kampala Traders Ltd", Region: "Central", Sector: "Retail"},
		Flags:    flags,
	}
}

func TestDispatch_MissingParamPrompts(t *testing.T) {
	for _, in := range []intent.Intent{
		intent.SearchByIdentifier,
		intent.SearchByName,
		intent.RiskAnalysis,
		intent.FindRelated,
		intent.EvidencePathway,
		intent.SectorAnalysis,
	} {
		t.Run(string(in), func(t *testing.T) {
			store := &fakeStore{}
			env := NewDispatcher(store, Options{}, nil).Dispatch(context.Background(), in, "  ")
			assert.Equal(t, KindPrompt, env.Kind)
			assert.Equal(t, in, env.Intent)
			assert.NotEmpty(t, env.Message)
			assert.Empty(t, store.calls, "prompts never reach the store")
		})
	}
}

func TestDispatch_HighImpactWithoutParamQueries(t *testing.T) {
	store := &fakeStore{}
	env := NewDispatcher(store, Options{}, nil).Dispatch(context.Background(), intent.HighImpactCases, "")
	assert.Equal(t, KindEmpty, env.Kind)
	assert.Equal(t, "No high-impact cases found.", env.Message)
	assert.Equal(t, []string{"HighImpact"}, store.calls)
	assert.Equal(t, 1e9, store.minExposure)
}

func TestDispatch_Help(t *testing.T) {
	store := &fakeStore{}
	env := NewDispatcher(store, Options{}, nil).Dispatch(context.Background(), intent.Help, "anything")
	assert.Equal(t, KindHelp, env.Kind)
	assert.Equal(t, HelpText, env.Message)
	assert.Empty(t, store.calls)
}

func TestDispatch_NotFoundIsEmpty(t *testing.T) {
	env := NewDispatcher(&fakeStore{}, Options{}, nil).Dispatch(context.Background(), intent.SearchByIdentifier, "9999999999")
	assert.Equal(t, KindEmpty, env.Kind)
	assert.Equal(t, "Taxpayer with TIN 9999999999 not found.", env.Message)
}

func TestDispatch_InvalidInputIsPrompt(t *testing.T) {
	store := &fakeStore{err: types.NewError(queries.ErrCodeInvalidInput, "tin must not be empty")}
	env := NewDispatcher(store, Options{}, nil).Dispatch(context.Background(), intent.RiskAnalysis, "x")
	assert.Equal(t, KindPrompt, env.Kind)
	assert.Equal(t, "Tin must not be empty.", env.Message)
}

func TestDispatch_StoreErrorIsHiddenAndLogged(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	store := &fakeStore{err: errors.New("bolt: connection reset by peer")}

	env := NewDispatcher(store, Options{}, logger).Dispatch(context.Background(), intent.SearchByName, "kampala")

	assert.Equal(t, KindError, env.Kind)
	assert.Equal(t, genericStoreError, env.Message)
	assert.NotContains(t, env.Message, "bolt")
	assert.Contains(t, buf.String(), "store query failed")
	assert.Contains(t, buf.String(), "connection reset by peer")
}

func TestSearchByIdentifier_RecommendationTiers(t *testing.T) {
	tests := []struct {
		flags int
		want  Recommendation
	}{
		{0, RecommendLow},
		{1, RecommendLow},
		{2, RecommendMedium},
		{4, RecommendMedium},
		{5, RecommendHigh},
		{9, RecommendHigh},
		{10, RecommendCritical},
		{18, RecommendCritical},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d flags", tt.flags), func(t *testing.T) {
			store := &fakeStore{profiles: map[string]*queries.TaxpayerProfile{
				"1000123456": profile("1000123456", flagsN(tt.flags)...),
			}}
			env := NewDispatcher(store, Options{}, nil).Dispatch(context.Background(), intent.SearchByIdentifier, "1000123456")
			require.Equal(t, KindResult, env.Kind)

			res := env.Payload.(*IdentifierResult)
			assert.Equal(t, tt.want, res.Recommendation)
			assert.Equal(t, tt.flags, res.RiskCount)
			assert.Equal(t, 18, res.TotalCategories)
		})
	}
}

func TestRiskAnalysis_SortsAndCountsSeverities(t *testing.T) {
	flags := []audit.Flag{
		{Risk: audit.RiskFlag{ID: "R001", Severity: audit.SeverityLow}, Exposure: 1e6},
		{Risk: audit.RiskFlag{ID: "R002", Severity: audit.SeverityCritical}, Exposure: 5e8},
		{Risk: audit.RiskFlag{ID: "R003", Severity: audit.SeverityCritical}, Exposure: 2e8},
	}
	p := profile("1000123456", flags...)
	store := &fakeStore{profiles: map[string]*queries.TaxpayerProfile{"1000123456": p}}

	env := NewDispatcher(store, Options{}, nil).Dispatch(context.Background(), intent.RiskAnalysis, "1000123456")
	require.Equal(t, KindResult, env.Kind)

	res := env.Payload.(*RiskProfileResult)
	assert.Equal(t, "R002", res.Flags[0].Risk.ID)
	assert.Equal(t, "R001", res.Flags[2].Risk.ID)
	assert.Equal(t, map[audit.Severity]int{audit.SeverityCritical: 2, audit.SeverityLow: 1}, res.SeverityCounts)
	assert.InDelta(t, 7.01e8, res.TotalExposure, 1)
	assert.Equal(t, RecommendMedium, res.Recommendation)
	assert.Equal(t, "R001", p.Flags[0].Risk.ID, "profile flags are not reordered in place")
}

func TestSearchByName_CapsAtTen(t *testing.T) {
	found := make([]queries.TaxpayerSummary, 25)
	for i := range found {
		found[i] = queries.TaxpayerSummary{
			Taxpayer:      audit.Taxpayer{TIN: fmt.Sprintf("10000000%02d", i)},
			TotalExposure: float64(i),
		}
	}
	env := NewDispatcher(&fakeStore{byName: found}, Options{}, nil).Dispatch(context.Background(), intent.SearchByName, "traders")
	require.Equal(t, KindResult, env.Kind)

	res := env.Payload.(*NameSearchResult)
	assert.Len(t, res.Taxpayers, 10)
	assert.Equal(t, float64(24), res.Taxpayers[0].TotalExposure)
}

func TestSearchByName_NoMatches(t *testing.T) {
	env := NewDispatcher(&fakeStore{}, Options{}, nil).Dispatch(context.Background(), intent.SearchByName, "nobody")
	assert.Equal(t, KindEmpty, env.Kind)
	assert.Equal(t, "No taxpayers found with name containing 'nobody'.", env.Message)
}

func TestFindRelated_SimilarityAndCap(t *testing.T) {
	related := make([]queries.RelatedTaxpayer, 15)
	for i := range related {
		related[i] = queries.RelatedTaxpayer{
			Taxpayer:    audit.Taxpayer{TIN: fmt.Sprintf("20000000%02d", i)},
			SharedRisks: 1,
		}
	}
	related[7].SharedRisks = 3

	env := NewDispatcher(&fakeStore{related: related}, Options{}, nil).Dispatch(context.Background(), intent.FindRelated, "1000123456")
	require.Equal(t, KindResult, env.Kind)

	res := env.Payload.(*RelatedResult)
	require.Len(t, res.Matches, 10)
	assert.Equal(t, "2000000007", res.Matches[0].Taxpayer.TIN)
	assert.Equal(t, 16.7, res.Matches[0].Similarity)
	assert.Equal(t, 5.6, res.Matches[1].Similarity)
}

func TestSimilarity(t *testing.T) {
	assert.Equal(t, 16.7, Similarity(3, 18))
	assert.Equal(t, 100.0, Similarity(18, 18))
	assert.Equal(t, 0.0, Similarity(3, 0))
}

func TestEvidencePathway_UsesTopFlagWithoutRiskID(t *testing.T) {
	flags := []audit.Flag{
		{Risk: audit.RiskFlag{ID: "R001"}, Exposure: 1e6},
		{Risk: audit.RiskFlag{ID: "R007"}, Exposure: 9e8},
	}
	store := &fakeStore{
		profiles: map[string]*queries.TaxpayerProfile{"1000123456": profile("1000123456", flags...)},
		pathway: &queries.RiskPathway{
			Flag:        flags[1],
			ITReturn:    &audit.ITReturn{TotalIncome: 5e8},
			EFRISReturn: &audit.EFRISReturn{TotalSales: 8e8},
		},
	}

	env := NewDispatcher(store, Options{}, nil).Dispatch(context.Background(), intent.EvidencePathway, "1000123456")
	require.Equal(t, KindResult, env.Kind)
	assert.Equal(t, "R007", store.pathwayRisk)
	assert.Equal(t, []string{"ByTIN", "RiskPathway"}, store.calls)

	res := env.Payload.(*PathwayResult)
	assert.True(t, res.HasVariance)
	assert.Equal(t, 3e8, res.Variance)
}

func TestEvidencePathway_ExplicitRiskID(t *testing.T) {
	store := &fakeStore{pathway: &queries.RiskPathway{Flag: audit.Flag{Risk: audit.RiskFlag{ID: "R003"}}}}

	env := NewDispatcher(store, Options{}, nil).Dispatch(context.Background(), intent.EvidencePathway, "1000123456 r003")
	require.Equal(t, KindResult, env.Kind)
	assert.Equal(t, "R003", store.pathwayRisk)
	assert.Equal(t, []string{"RiskPathway"}, store.calls)
	assert.False(t, env.Payload.(*PathwayResult).HasVariance)
}

func TestEvidencePathway_NoFlags(t *testing.T) {
	store := &fakeStore{profiles: map[string]*queries.TaxpayerProfile{"1000123456": profile("1000123456")}}
	env := NewDispatcher(store, Options{}, nil).Dispatch(context.Background(), intent.EvidencePathway, "1000123456")
	assert.Equal(t, KindEmpty, env.Kind)
	assert.Equal(t, "No evidence pathway found for TIN 1000123456.", env.Message)
}

func TestHighImpact_CapsAtTwentyAndUppercasesRisk(t *testing.T) {
	cases := make([]queries.HighImpactCase, 30)
	for i := range cases {
		cases[i] = queries.HighImpactCase{Exposure: float64(i) * 1e9}
	}
	store := &fakeStore{cases: cases}

	env := NewDispatcher(store, Options{HighImpactMinExposure: 5e8}, nil).Dispatch(context.Background(), intent.HighImpactCases, "r003")
	require.Equal(t, KindResult, env.Kind)

	res := env.Payload.(*HighImpactResult)
	assert.Len(t, res.Cases, 20)
	assert.Equal(t, "R003", res.RiskID)
	assert.Equal(t, 29e9, res.Cases[0].Exposure)
	assert.Equal(t, 5e8, store.minExposure)
}

func TestSectorAnalysis(t *testing.T) {
	store := &fakeStore{sector: []queries.SectorRisk{
		{Risk: audit.RiskFlag{ID: "R001"}, TotalExposure: 1e6},
		{Risk: audit.RiskFlag{ID: "R002"}, TotalExposure: 5e6},
	}}
	env := NewDispatcher(store, Options{}, nil).Dispatch(context.Background(), intent.SectorAnalysis, "manufacturing")
	require.Equal(t, KindResult, env.Kind)
	assert.Equal(t, "R002", env.Payload.(*SectorResult).Risks[0].Risk.ID)

	env = NewDispatcher(&fakeStore{}, Options{}, nil).Dispatch(context.Background(), intent.SectorAnalysis, "mining")
	assert.Equal(t, KindEmpty, env.Kind)
	assert.Equal(t, "No data available for the mining sector.", env.Message)
}

func TestTraceConnection(t *testing.T) {
	d := NewDispatcher(&fakeStore{}, Options{MaxPathHops: 2}, nil)

	env := d.TraceConnection(context.Background(), "1000123456", "")
	assert.Equal(t, KindPrompt, env.Kind)

	env = d.TraceConnection(context.Background(), "1000123456", "1000654321")
	assert.Equal(t, KindEmpty, env.Kind)
	assert.Equal(t, "No connection within 2 hops between 1000123456 and 1000654321.", env.Message)

	store := &fakeStore{path: &queries.ConnectionPath{Hops: 2}}
	env = NewDispatcher(store, Options{}, nil).TraceConnection(context.Background(), "1000123456", "1000654321")
	require.Equal(t, KindResult, env.Kind)
	assert.Equal(t, TraceIntent, env.Intent)
	assert.Equal(t, 3, env.Payload.(*ConnectionResult).MaxHops)
}

func TestNewDispatcher_Defaults(t *testing.T) {
	d := NewDispatcher(&fakeStore{}, Options{SearchLimit: -1, RelatedLimit: 5}, nil)
	opts := d.Options()
	assert.Equal(t, 10, opts.SearchLimit)
	assert.Equal(t, 5, opts.RelatedLimit)
	assert.Equal(t, 20, opts.HighImpactLimit)
	assert.Equal(t, 18, opts.TotalRiskCategories)
	assert.Equal(t, 3, opts.MaxPathHops)

	deep := NewDispatcher(&fakeStore{}, Options{MaxPathHops: 6}, nil)
	assert.Equal(t, 3, deep.Options().MaxPathHops)
}
