// Package seed loads development fixtures into the audit graph.
//
// Fixtures are YAML documents listing taxpayers, risk flags, the flags
// raised against taxpayers, income-tax and EFRIS filings, and auditors.
// Every entity is written with MERGE on its identifier, so loading the
// same file twice leaves the graph unchanged.
package seed

import (
	"fmt"
	"io"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/amasuba/uraics-revenue-assurance/internal/audit"
	"github.com/amasuba/uraics-revenue-assurance/internal/types"
)

// Error codes for fixture loading.
const (
	ErrCodeFixtureRead    = types.SEED_READ_FAILED
	ErrCodeFixtureParse   = types.SEED_PARSE_FAILED
	ErrCodeFixtureInvalid = types.SEED_INVALID
	ErrCodeLoadFailed     = types.SEED_APPLY_FAILED
)

// FlagFixture raises one risk flag against one taxpayer.
type FlagFixture struct {
	TIN          string  `yaml:"tin" validate:"required"`
	RiskID       string  `yaml:"risk_id" validate:"required"`
	Exposure     float64 `yaml:"exposure" validate:"min=0"`
	DetectedDate string  `yaml:"detected_date"`
	Evidence     string  `yaml:"evidence"`
}

// ITReturnFixture is an income-tax filing by TIN.
type ITReturnFixture struct {
	TIN            string `yaml:"tin" validate:"required"`
	audit.ITReturn `yaml:",inline"`
}

// EFRISReturnFixture is an EFRIS filing by TIN.
type EFRISReturnFixture struct {
	TIN               string `yaml:"tin" validate:"required"`
	audit.EFRISReturn `yaml:",inline"`
}

// Fixture is the document layout of a seed file.
type Fixture struct {
	Taxpayers    []audit.Taxpayer     `yaml:"taxpayers" validate:"dive"`
	RiskFlags    []audit.RiskFlag     `yaml:"risk_flags" validate:"dive"`
	Flags        []FlagFixture        `yaml:"flags" validate:"dive"`
	ITReturns    []ITReturnFixture    `yaml:"it_returns" validate:"dive"`
	EFRISReturns []EFRISReturnFixture `yaml:"efris_returns" validate:"dive"`
	Auditors     []audit.Auditor      `yaml:"auditors" validate:"dive"`
}

// Parse decodes and validates a fixture document.
func Parse(r io.Reader) (*Fixture, error) {
	var f Fixture
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && err != io.EOF {
		return nil, types.WrapError(ErrCodeFixtureParse, "failed to decode fixture", err)
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// ParseFile reads a fixture from path.
func ParseFile(path string) (*Fixture, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, types.WrapError(ErrCodeFixtureRead, "failed to open fixture "+path, err)
	}
	defer file.Close()
	return Parse(file)
}

// Validate checks required identifiers, severities, non-negative exposure
// and that every flag and filing refers to a declared taxpayer or risk.
func (f *Fixture) Validate() error {
	if err := validator.New().Struct(f); err != nil {
		return types.WrapError(ErrCodeFixtureInvalid, "fixture validation failed", err)
	}

	tins := make(map[string]struct{}, len(f.Taxpayers))
	for _, t := range f.Taxpayers {
		if t.TIN == "" {
			return types.NewError(ErrCodeFixtureInvalid, "taxpayer without tin")
		}
		tins[t.TIN] = struct{}{}
	}
	risks := make(map[string]struct{}, len(f.RiskFlags))
	for _, r := range f.RiskFlags {
		if r.ID == "" {
			return types.NewError(ErrCodeFixtureInvalid, "risk flag without id")
		}
		if !r.Severity.IsValid() {
			return types.NewError(ErrCodeFixtureInvalid, fmt.Sprintf("risk flag %s: unknown severity %q", r.ID, r.Severity))
		}
		risks[r.ID] = struct{}{}
	}

	for _, fl := range f.Flags {
		if _, ok := tins[fl.TIN]; !ok {
			return types.NewError(ErrCodeFixtureInvalid, "flag references unknown taxpayer "+fl.TIN)
		}
		if _, ok := risks[fl.RiskID]; !ok {
			return types.NewError(ErrCodeFixtureInvalid, "flag references unknown risk "+fl.RiskID)
		}
	}
	for _, r := range f.ITReturns {
		if _, ok := tins[r.TIN]; !ok {
			return types.NewError(ErrCodeFixtureInvalid, "IT return references unknown taxpayer "+r.TIN)
		}
	}
	for _, r := range f.EFRISReturns {
		if _, ok := tins[r.TIN]; !ok {
			return types.NewError(ErrCodeFixtureInvalid, "EFRIS return references unknown taxpayer "+r.TIN)
		}
	}
	for _, a := range f.Auditors {
		if a.ID == "" {
			return types.NewError(ErrCodeFixtureInvalid, "auditor without id")
		}
	}
	return nil
}
