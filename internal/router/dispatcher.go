package router

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/amasuba/uraics-revenue-assurance/internal/audit"
	"github.com/amasuba/uraics-revenue-assurance/internal/config"
	"github.com/amasuba/uraics-revenue-assurance/internal/intent"
	"github.com/amasuba/uraics-revenue-assurance/internal/queries"
	"github.com/amasuba/uraics-revenue-assurance/internal/types"
)

// TaxpayerStore is the read side the dispatcher queries.
// *queries.TaxpayerQueries implements it.
type TaxpayerStore interface {
	ByTIN(ctx context.Context, tin string) (*queries.TaxpayerProfile, error)
	ByName(ctx context.Context, name string) ([]queries.TaxpayerSummary, error)
	Related(ctx context.Context, tin string) ([]queries.RelatedTaxpayer, error)
	RiskPathway(ctx context.Context, tin, riskID string) (*queries.RiskPathway, error)
	HighImpact(ctx context.Context, riskID string, minExposure float64) ([]queries.HighImpactCase, error)
	TracePath(ctx context.Context, fromTIN, toTIN string) (*queries.ConnectionPath, error)
	SectorProfile(ctx context.Context, sector string) ([]queries.SectorRisk, error)
}

// Options holds the dispatcher's business parameters.
type Options struct {
	TotalRiskCategories   int
	HighImpactMinExposure float64
	SearchLimit           int
	RelatedLimit          int
	HighImpactLimit       int
	MaxPathHops           int
}

// OptionsFromConfig copies the router section of the configuration.
func OptionsFromConfig(cfg config.RouterConfig) Options {
	return Options{
		TotalRiskCategories:   cfg.TotalRiskCategories,
		HighImpactMinExposure: cfg.HighImpactMinExposure,
		SearchLimit:           cfg.SearchLimit,
		RelatedLimit:          cfg.RelatedLimit,
		HighImpactLimit:       cfg.HighImpactLimit,
		MaxPathHops:           cfg.MaxPathHops,
	}
}

// DefaultOptions returns the standard business parameters.
func DefaultOptions() Options {
	return OptionsFromConfig(config.DefaultConfig().Router)
}

// genericStoreError is all the user sees of a store failure.
const genericStoreError = "The audit database could not be queried right now. Please try again later."

// Dispatcher maps an intent and its parameter to a single store query and
// normalizes the outcome into an Envelope. It never returns an error.
type Dispatcher struct {
	store  TaxpayerStore
	opts   Options
	logger *slog.Logger
}

// NewDispatcher creates a Dispatcher. Zero options take defaults, a hop
// bound above queries.MaxPathHops is reset to the default, and a nil logger
// uses slog.Default.
func NewDispatcher(store TaxpayerStore, opts Options, logger *slog.Logger) *Dispatcher {
	def := DefaultOptions()
	if opts.TotalRiskCategories <= 0 {
		opts.TotalRiskCategories = def.TotalRiskCategories
	}
	if opts.HighImpactMinExposure <= 0 {
		opts.HighImpactMinExposure = def.HighImpactMinExposure
	}
	if opts.SearchLimit <= 0 {
		opts.SearchLimit = def.SearchLimit
	}
	if opts.RelatedLimit <= 0 {
		opts.RelatedLimit = def.RelatedLimit
	}
	if opts.HighImpactLimit <= 0 {
		opts.HighImpactLimit = def.HighImpactLimit
	}
	if opts.MaxPathHops <= 0 || opts.MaxPathHops > queries.MaxPathHops {
		opts.MaxPathHops = def.MaxPathHops
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{store: store, opts: opts, logger: logger}
}

// Options returns the effective business parameters.
func (d *Dispatcher) Options() Options {
	return d.opts
}

// Dispatch runs the query behind in. Intents that need a parameter return
// a prompt without touching the store when param is blank.
func (d *Dispatcher) Dispatch(ctx context.Context, in intent.Intent, param string) Envelope {
	param = strings.TrimSpace(param)

	switch in {
	case intent.SearchByIdentifier:
		if param == "" {
			return prompt(in, "Please provide a TIN to search, e.g. \"search 1000123456\".")
		}
		return d.searchByIdentifier(ctx, param)
	case intent.SearchByName:
		if param == "" {
			return prompt(in, "Please provide part of a taxpayer name, e.g. \"find Kampala Traders\".")
		}
		return d.searchByName(ctx, param)
	case intent.RiskAnalysis:
		if param == "" {
			return prompt(in, "Please provide a TIN for the risk analysis, e.g. \"risk analysis for 1000123456\".")
		}
		return d.riskAnalysis(ctx, param)
	case intent.FindRelated:
		if param == "" {
			return prompt(in, "Please provide a TIN to find related taxpayers, e.g. \"similar to 1000123456\".")
		}
		return d.findRelated(ctx, param)
	case intent.EvidencePathway:
		if param == "" {
			return prompt(in, "Please provide a TIN, optionally followed by a risk ID, e.g. \"evidence pathway 1000123456 R007\".")
		}
		return d.evidencePathway(ctx, param)
	case intent.SectorAnalysis:
		if param == "" {
			return prompt(in, "Please name a sector, e.g. \"sector manufacturing\".")
		}
		return d.sectorAnalysis(ctx, param)
	case intent.HighImpactCases:
		return d.highImpact(ctx, strings.ToUpper(param))
	default:
		return Envelope{Kind: KindHelp, Intent: intent.Help, Message: HelpText}
	}
}

func prompt(in intent.Intent, msg string) Envelope {
	return Envelope{Kind: KindPrompt, Intent: in, Message: msg}
}

func empty(in intent.Intent, msg string) Envelope {
	return Envelope{Kind: KindEmpty, Intent: in, Message: msg}
}

func result(in intent.Intent, payload any) Envelope {
	return Envelope{Kind: KindResult, Intent: in, Payload: payload}
}

// failed converts a query error into an envelope. Not-found is an empty
// result, invalid input is a prompt, anything else is logged and hidden.
func (d *Dispatcher) failed(ctx context.Context, in intent.Intent, param string, err error, emptyMsg string) Envelope {
	switch types.CodeOf(err) {
	case queries.ErrCodeNotFound:
		return empty(in, emptyMsg)
	case queries.ErrCodeInvalidInput:
		var tErr *types.Error
		if errors.As(err, &tErr) {
			return prompt(in, upperFirst(tErr.Message)+".")
		}
	}

	d.logger.ErrorContext(ctx, "store query failed",
		"intent", in,
		"param", param,
		"error", err,
	)
	return Envelope{Kind: KindError, Intent: in, Message: genericStoreError}
}

func (d *Dispatcher) searchByIdentifier(ctx context.Context, tin string) Envelope {
	in := intent.SearchByIdentifier
	profile, err := d.store.ByTIN(ctx, tin)
	if err != nil {
		return d.failed(ctx, in, tin, err, fmt.Sprintf("Taxpayer with TIN %s not found.", tin))
	}

	count := profile.RiskCount()
	return result(in, &IdentifierResult{
		Profile:         profile,
		RiskCount:       count,
		TotalCategories: d.opts.TotalRiskCategories,
		TotalExposure:   profile.TotalExposure(),
		Recommendation:  RecommendationFor(count),
	})
}

func (d *Dispatcher) searchByName(ctx context.Context, name string) Envelope {
	in := intent.SearchByName
	msg := fmt.Sprintf("No taxpayers found with name containing '%s'.", name)
	found, err := d.store.ByName(ctx, name)
	if err != nil {
		return d.failed(ctx, in, name, err, msg)
	}
	if len(found) == 0 {
		return empty(in, msg)
	}

	sort.SliceStable(found, func(i, j int) bool {
		return found[i].TotalExposure > found[j].TotalExposure
	})
	return result(in, &NameSearchResult{
		Query:     name,
		Taxpayers: limit(found, d.opts.SearchLimit),
	})
}

func (d *Dispatcher) riskAnalysis(ctx context.Context, tin string) Envelope {
	in := intent.RiskAnalysis
	profile, err := d.store.ByTIN(ctx, tin)
	if err != nil {
		return d.failed(ctx, in, tin, err, fmt.Sprintf("Taxpayer with TIN %s not found.", tin))
	}

	flags := append([]audit.Flag(nil), profile.Flags...)
	sort.SliceStable(flags, func(i, j int) bool {
		return flags[i].Exposure > flags[j].Exposure
	})
	counts := make(map[audit.Severity]int)
	for _, f := range flags {
		counts[f.Risk.Severity]++
	}

	return result(in, &RiskProfileResult{
		Taxpayer:       profile.Taxpayer,
		Flags:          flags,
		SeverityCounts: counts,
		TotalExposure:  profile.TotalExposure(),
		Recommendation: RecommendationFor(profile.RiskCount()),
	})
}

func (d *Dispatcher) findRelated(ctx context.Context, tin string) Envelope {
	in := intent.FindRelated
	msg := fmt.Sprintf("No related taxpayers found for TIN %s.", tin)
	related, err := d.store.Related(ctx, tin)
	if err != nil {
		return d.failed(ctx, in, tin, err, msg)
	}
	if len(related) == 0 {
		return empty(in, msg)
	}

	sort.SliceStable(related, func(i, j int) bool {
		return related[i].SharedRisks > related[j].SharedRisks
	})
	related = limit(related, d.opts.RelatedLimit)

	matches := make([]RelatedMatch, 0, len(related))
	for _, r := range related {
		matches = append(matches, RelatedMatch{
			RelatedTaxpayer: r,
			Similarity:      Similarity(r.SharedRisks, d.opts.TotalRiskCategories),
		})
	}
	return result(in, &RelatedResult{TIN: tin, Matches: matches})
}

// evidencePathway accepts "<tin>" or "<tin> <riskID>". Without a risk ID
// the taxpayer's highest-exposure flag is used.
func (d *Dispatcher) evidencePathway(ctx context.Context, param string) Envelope {
	in := intent.EvidencePathway
	fields := strings.Fields(param)
	tin := fields[0]
	var riskID string
	if len(fields) > 1 {
		riskID = strings.ToUpper(fields[1])
	}
	msg := fmt.Sprintf("No evidence pathway found for TIN %s.", tin)

	if riskID == "" {
		profile, err := d.store.ByTIN(ctx, tin)
		if err != nil {
			return d.failed(ctx, in, param, err, msg)
		}
		top, ok := profile.TopFlag()
		if !ok {
			return empty(in, msg)
		}
		riskID = top.Risk.ID
	}

	pathway, err := d.store.RiskPathway(ctx, tin, riskID)
	if err != nil {
		return d.failed(ctx, in, param, err, fmt.Sprintf("No evidence pathway found for TIN %s and risk %s.", tin, riskID))
	}

	variance, ok := pathway.Variance()
	return result(in, &PathwayResult{Pathway: pathway, Variance: variance, HasVariance: ok})
}

func (d *Dispatcher) sectorAnalysis(ctx context.Context, sector string) Envelope {
	in := intent.SectorAnalysis
	msg := fmt.Sprintf("No data available for the %s sector.", sector)
	risks, err := d.store.SectorProfile(ctx, sector)
	if err != nil {
		return d.failed(ctx, in, sector, err, msg)
	}
	if len(risks) == 0 {
		return empty(in, msg)
	}

	sort.SliceStable(risks, func(i, j int) bool {
		return risks[i].TotalExposure > risks[j].TotalExposure
	})
	return result(in, &SectorResult{Sector: sector, Risks: risks})
}

func (d *Dispatcher) highImpact(ctx context.Context, riskID string) Envelope {
	in := intent.HighImpactCases
	msg := "No high-impact cases found."
	if riskID != "" {
		msg = fmt.Sprintf("No high-impact cases found for risk %s.", riskID)
	}

	cases, err := d.store.HighImpact(ctx, riskID, d.opts.HighImpactMinExposure)
	if err != nil {
		return d.failed(ctx, in, riskID, err, msg)
	}
	if len(cases) == 0 {
		return empty(in, msg)
	}

	sort.SliceStable(cases, func(i, j int) bool {
		return cases[i].Exposure > cases[j].Exposure
	})
	return result(in, &HighImpactResult{
		RiskID:      riskID,
		MinExposure: d.opts.HighImpactMinExposure,
		Cases:       limit(cases, d.opts.HighImpactLimit),
	})
}

// TraceIntent tags envelopes from TraceConnection. It is not produced by the
// classifier; the CLI calls TraceConnection directly.
const TraceIntent intent.Intent = "trace-connection"

// TraceConnection finds the shortest FLAGGED_BY path between two taxpayers
// within the configured hop bound.
func (d *Dispatcher) TraceConnection(ctx context.Context, fromTIN, toTIN string) Envelope {
	in := TraceIntent
	fromTIN, toTIN = strings.TrimSpace(fromTIN), strings.TrimSpace(toTIN)
	if fromTIN == "" || toTIN == "" {
		return prompt(in, "Please provide two TINs to trace a connection.")
	}

	path, err := d.store.TracePath(ctx, fromTIN, toTIN)
	if err != nil {
		return d.failed(ctx, in, fromTIN+" "+toTIN, err,
			fmt.Sprintf("No connection within %d hops between %s and %s.", d.opts.MaxPathHops, fromTIN, toTIN))
	}
	return result(in, &ConnectionResult{
		FromTIN: fromTIN,
		ToTIN:   toTIN,
		MaxHops: d.opts.MaxPathHops,
		Path:    path,
	})
}

func limit[T any](items []T, n int) []T {
	if n > 0 && len(items) > n {
		return items[:n]
	}
	return items
}

func upperFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
