package intent

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify_Fixtures(t *testing.T) {
	tests := []struct {
		input      string
		wantIntent Intent
		wantParam  string
		wantStage  Stage
	}{
		// identifier
		{"Search 1234567890", SearchByIdentifier, "1234567890", StagePattern},
		{"search TIN 1000123456", SearchByIdentifier, "1000123456", StagePattern},
		{"find taxpayer 1000123456", SearchByIdentifier, "1000123456", StagePattern},
		{"TIN: 1000123456", SearchByIdentifier, "1000123456", StagePattern},
		{"  1000123456  ", SearchByIdentifier, "1000123456", StagePattern},

		// name
		{"Find Uganda Breweries", SearchByName, "uganda breweries", StagePattern},
		{"find taxpayer named Kampala Traders", SearchByName, "kampala traders", StagePattern},
		{"search company masaka holdings", SearchByName, "masaka holdings", StagePattern},

		// risk
		{"Risk analysis for TIN 1234567890", RiskAnalysis, "1234567890", StagePattern},
		{"analyze risks of 1000123456", RiskAnalysis, "1000123456", StagePattern},
		{"risks for 1000123456", RiskAnalysis, "1000123456", StagePattern},
		{"1000123456 risks", RiskAnalysis, "1000123456", StagePattern},

		// related
		{"Similar to TIN 1234567890", FindRelated, "1234567890", StagePattern},
		{"related taxpayers to 1000123456", FindRelated, "1000123456", StagePattern},
		{"network around 1000123456", FindRelated, "1000123456", StagePattern},

		// evidence
		{"Evidence pathway 1234567890", EvidencePathway, "1234567890", StagePattern},
		{"evidence for 1000123456 R007", EvidencePathway, "1000123456 r007", StagePattern},

		// sector
		{"Sector Manufacturing", SectorAnalysis, "manufacturing", StagePattern},
		{"sector profile for agriculture", SectorAnalysis, "agriculture", StagePattern},
		{"risk profile of the manufacturing sector", SectorAnalysis, "manufacturing", StagePattern},
		{"agriculture", SectorAnalysis, "agriculture", StagePattern},

		// high impact
		{"High impact cases", HighImpactCases, "", StagePattern},
		{"high-impact cases for risk R003", HighImpactCases, "r003", StagePattern},
		{"top 10 cases", HighImpactCases, "", StagePattern},
		{"priority cases", HighImpactCases, "", StagePattern},

		// questions and bare intent phrases carry no value
		{"which sector has the most risk", SectorAnalysis, "", StagePattern},
		{"what industry is riskiest", SectorAnalysis, "", StagePattern},
		{"find related", FindRelated, "", StagePattern},
		{"find similar taxpayers", FindRelated, "", StagePattern},
		{"find high impact cases", HighImpactCases, "", StagePattern},

		// keyword pass
		{"what is flagged", RiskAnalysis, "", StageKeyword},
		{"details please", EvidencePathway, "", StageKeyword},
		{"urgent", HighImpactCases, "", StageKeyword},
		{"show me the network", FindRelated, "", StageKeyword},
		{"sector analysis", SectorAnalysis, "", StageKeyword},

		// fallback
		{"hello there", Help, "", StageFallback},
		{"", Help, "", StageFallback},
		{"   \t ", Help, "", StageFallback},
	}

	c := Default()
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := c.Classify(tt.input)
			assert.Equal(t, tt.wantIntent, got.Intent)
			assert.Equal(t, tt.wantParam, got.Param)
			assert.Equal(t, tt.wantParam != "", got.HasParam)
			assert.Equal(t, tt.wantStage, got.Stage)
		})
	}
}

func TestClassify_PriorityOrder(t *testing.T) {
	c := Default()

	tests := []struct {
		name  string
		input string
		want  Intent
	}{
		// "taxpayers" hits the identifier keyword before "high" reaches
		// high-impact or "risk" reaches risk-analysis.
		{name: "identifier keyword beats risk and high", input: "show high risk taxpayers", want: SearchByIdentifier},
		// "find" + free text is a name search before it is a sector query.
		{name: "name pattern beats sector pattern", input: "find kampala services", want: SearchByName},
		// A name capture opening with another intent's word is skipped.
		{name: "intent phrase is not a name", input: "find high impact cases", want: HighImpactCases},
		// "business" and "name" are both name keywords.
		{name: "name keyword", input: "business name", want: SearchByName},
		// A sector mention wins over the high-impact phrase that follows it.
		{name: "sector pattern beats high-impact pattern", input: "high impact cases in the energy sector", want: SectorAnalysis},
		// Any pattern match outranks an earlier definition's keyword.
		{name: "pattern pass precedes keyword pass", input: "taxpayer risks for 1000123456", want: RiskAnalysis},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.Classify(tt.input).Intent)
		})
	}
}

func TestClassify_ReorderingChangesResult(t *testing.T) {
	defs := DefaultDefinitions()
	input := "show high risk taxpayers"

	require.Equal(t, SearchByIdentifier, NewClassifier(defs...).Classify(input).Intent)

	// Move high-impact to the front.
	reordered := append([]Definition{defs[len(defs)-1]}, defs[:len(defs)-1]...)
	assert.Equal(t, HighImpactCases, NewClassifier(reordered...).Classify(input).Intent)
}

func TestClassify_KeywordHitsCarryNoParam(t *testing.T) {
	got := Default().Classify("tin please")
	assert.Equal(t, SearchByIdentifier, got.Intent)
	assert.False(t, got.HasParam)
	assert.Empty(t, got.Param)
}

func TestNewClassifier_CustomDefinitions(t *testing.T) {
	c := NewClassifier(
		Definition{Intent: Help, Keywords: []string{"hello"}},
		Definition{Intent: "", Keywords: []string{"x"}},
		Definition{
			Intent:   SectorAnalysis,
			Patterns: []*regexp.Regexp{nil, regexp.MustCompile(`^industry=(\w+)$`)},
			Keywords: []string{""},
		},
	)

	require.Len(t, c.Definitions(), 1)
	assert.Equal(t, Result{Intent: SectorAnalysis, Param: "mining", HasParam: true, Stage: StagePattern}, c.Classify("industry=mining"))
	assert.Equal(t, Help, c.Classify("hello").Intent, "help definitions are ignored")
	assert.Equal(t, Help, c.Classify("anything").Intent, "empty keywords never match")
}

func TestClassify_PatternWithoutCaptureGroup(t *testing.T) {
	c := NewClassifier(Definition{
		Intent:   HighImpactCases,
		Patterns: []*regexp.Regexp{regexp.MustCompile(`biggest`)},
	})
	got := c.Classify("the biggest cases")
	assert.Equal(t, HighImpactCases, got.Intent)
	assert.False(t, got.HasParam)
}

func TestClassify_IgnoreLeading(t *testing.T) {
	c := NewClassifier(
		Definition{
			Intent:        SearchByName,
			Patterns:      []*regexp.Regexp{regexp.MustCompile(`^find (.+)$`)},
			IgnoreLeading: []string{"related"},
		},
		Definition{
			Intent:   FindRelated,
			Keywords: []string{"related"},
		},
	)

	got := c.Classify("find related taxpayers")
	assert.Equal(t, FindRelated, got.Intent)
	assert.Equal(t, StageKeyword, got.Stage)

	// Only the first word counts.
	got = c.Classify("find kampala related holdings")
	assert.Equal(t, SearchByName, got.Intent)
	assert.Equal(t, "kampala related holdings", got.Param)
}

func TestNormalize(t *testing.T) {
	tests := map[string]string{
		"  Search   TIN\t1000123456?  ": "search tin 1000123456",
		"High impact cases!!":           "high impact cases",
		"...":                           "",
	}
	for in, want := range tests {
		assert.Equal(t, want, Normalize(in), in)
	}
}

func TestIntent_IsValid(t *testing.T) {
	for _, i := range All {
		assert.True(t, i.IsValid(), i)
	}
	assert.False(t, Intent("search_tin").IsValid())
}

func FuzzClassify(f *testing.F) {
	f.Add("search 1000123456")
	f.Add("sector")
	f.Add("\x00\xff")
	c := Default()
	f.Fuzz(func(t *testing.T, input string) {
		got := c.Classify(input)
		if !got.Intent.IsValid() {
			t.Fatalf("invalid intent %q for %q", got.Intent, input)
		}
		if got.HasParam != (got.Param != "") {
			t.Fatalf("HasParam mismatch for %q", input)
		}
	})
}
