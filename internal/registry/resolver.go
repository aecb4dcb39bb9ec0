package registry

import (
	"context"
	"log/slog"
	"time"

	"github.com/a3tai/pdf-excel-mapper/internal/fields"
)

// LookupRecorder receives one observation per attempted strategy
type LookupRecorder interface {
	ObserveLookup(strategy string, status string, category string, elapsed time.Duration)
}

// Resolution is the resolver's answer for one document
type Resolution struct {
	// Fields is nil when no record was obtained; the caller keeps its own values
	Fields  *fields.FieldMap `json:"fields,omitempty"`
	Summary string           `json:"summary"`
	// Status of the deciding attempt; Failed is only reported when no strategy found a record
	Status   Status `json:"status"`
	Strategy string `json:"strategy,omitempty"`
	// Trusted is true only for identifier matches; name search is a best-effort guess
	Trusted bool  `json:"trusted"`
	Err     error `json:"-"`
}

// Found reports whether a record replaced the document values
func (r Resolution) Found() bool {
	return r.Fields != nil
}

// Resolver walks an ordered chain of strategies and projects the first
// record found. It holds no per-request state.
type Resolver struct {
	strategies []Strategy
	projection Projection
	summary    SummaryPaths
	logger     *slog.Logger
	recorder   LookupRecorder
}

// ResolverOption configures the Resolver
type ResolverOption func(*Resolver)

// WithProjection overrides the field → path table
func WithProjection(p Projection) ResolverOption {
	return func(r *Resolver) {
		r.projection = p
	}
}

// WithSummaryPaths overrides where the summary text is read from
func WithSummaryPaths(s SummaryPaths) ResolverOption {
	return func(r *Resolver) {
		r.summary = s
	}
}

// WithLogger sets the logger
func WithLogger(l *slog.Logger) ResolverOption {
	return func(r *Resolver) {
		r.logger = l
	}
}

// WithRecorder sets the metrics sink
func WithRecorder(rec LookupRecorder) ResolverOption {
	return func(r *Resolver) {
		r.recorder = rec
	}
}

// NewResolver builds a resolver over the given chain. An empty chain
// disables the registry: every query resolves to not found.
func NewResolver(strategies []Strategy, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		strategies: strategies,
		projection: DefaultProjection,
		summary:    DefaultSummaryPaths,
		logger:     slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve queries the chain with the document's identifier and name.
// Registry failures never surface as errors; they are reported in the
// Resolution and the caller falls back to the document values.
func (r *Resolver) Resolve(ctx context.Context, identifier, name string) Resolution {
	q := Query{Identifier: identifier, Name: name}
	res := Resolution{Status: StatusNotFound}

	var failed *Outcome
	for _, s := range r.strategies {
		if !s.Applies(q) {
			continue
		}

		start := time.Now()
		out := s.Resolve(ctx, q)
		r.observe(out, time.Since(start))

		if out.Status == StatusFound {
			fm := r.projection.Project(out.Record)
			return Resolution{
				Fields:   &fm,
				Summary:  r.summary.Summarize(out.Record),
				Status:   StatusFound,
				Strategy: out.Strategy,
				Trusted:  out.Strategy == StrategyByIdentifier,
			}
		}
		if out.Status == StatusFailed && failed == nil {
			failed = &out
		}
		res.Strategy = out.Strategy
	}

	if failed != nil {
		res.Status = StatusFailed
		res.Strategy = failed.Strategy
		res.Err = failed.Err
	}
	return res
}

func (r *Resolver) observe(out Outcome, elapsed time.Duration) {
	category := ""
	if out.Err != nil {
		category = string(CategoryOf(out.Err))
	}

	switch out.Status {
	case StatusFailed:
		r.logger.Warn("registry lookup failed, using document values",
			"strategy", out.Strategy,
			"category", category,
			"error", out.Err,
			"elapsed", elapsed)
	default:
		r.logger.Debug("registry lookup",
			"strategy", out.Strategy,
			"status", out.Status.String(),
			"elapsed", elapsed)
	}

	if r.recorder != nil {
		r.recorder.ObserveLookup(out.Strategy, out.Status.String(), category, elapsed)
	}
}
