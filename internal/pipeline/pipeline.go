// Package pipeline composes text extraction, field matching, registry
// enrichment and template writing into one run per uploaded document.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/a3tai/pdf-excel-mapper/internal/fields"
	"github.com/a3tai/pdf-excel-mapper/internal/pdf"
	"github.com/a3tai/pdf-excel-mapper/internal/registry"
)

// Stage names reported in StageError
const (
	StagePDF      = "pdf"
	StageTemplate = "template"
)

// Where the final field values came from
const (
	SourceDocument = "document"
	SourceRegistry = "registry"
)

const resultFailed = "failed"

var (
	ErrMissingDocument = errors.New("missing document")
	ErrMissingTemplate = errors.New("missing template")
)

// StageError wraps a fatal failure with the stage that produced it
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// StageOf returns the failing stage of err, or "" if err is not a StageError
func StageOf(err error) string {
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage
	}
	return ""
}

type requestIDKey struct{}

// ContextWithRequestID makes runs started with ctx report id as their
// request id instead of generating one
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

func requestIDFrom(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey{}).(string); ok && id != "" {
		return id
	}
	return uuid.NewString()
}

// TextExtractor returns the text layer of a PDF. A readable PDF without
// text reports pdf.ErrNoText.
type TextExtractor interface {
	ExtractText(data []byte) (string, error)
}

// Resolver enriches document fields from the company registry
type Resolver interface {
	Resolve(ctx context.Context, identifier, name string) registry.Resolution
}

// TemplateWriter fills a spreadsheet template
type TemplateWriter interface {
	Write(tmpl []byte, fm fields.FieldMap, summary string) ([]byte, error)
}

// RunRecorder counts finished runs by result
type RunRecorder interface {
	ObserveRun(result string)
}

// Input is one upload: a PDF document and a spreadsheet template
type Input struct {
	Document []byte
	Template []byte
}

// Result of a run. Workbook is nil for Extract.
type Result struct {
	RequestID string          `json:"request_id"`
	Fields    fields.FieldMap `json:"fields"`
	Summary   string          `json:"summary"`
	Source    string          `json:"source"`
	Trusted   bool            `json:"trusted"`
	Status    registry.Status `json:"registry_status"`
	Strategy  string          `json:"registry_strategy,omitempty"`
	Matched   []fields.Key    `json:"matched"`
	Workbook  []byte          `json:"-"`
}

// Pipeline is safe for concurrent use; every dependency is read-only.
type Pipeline struct {
	reader    TextExtractor
	extractor *fields.Extractor
	resolver  Resolver
	writer    TemplateWriter

	excerpt      bool
	maxSentences int

	logger   *slog.Logger
	recorder RunRecorder
	tracer   trace.Tracer
}

// Option configures the Pipeline
type Option func(*Pipeline)

// WithLogger sets the logger
func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = l
	}
}

// WithRecorder sets the run metrics sink
func WithRecorder(r RunRecorder) Option {
	return func(p *Pipeline) {
		p.recorder = r
	}
}

// WithTracer overrides the global tracer
func WithTracer(t trace.Tracer) Option {
	return func(p *Pipeline) {
		p.tracer = t
	}
}

// WithDocumentExcerpt makes the run fall back to the first sentences of
// the document when the registry gives no summary. maxSentences <= 0
// uses fields.DefaultSummarySentences.
func WithDocumentExcerpt(maxSentences int) Option {
	return func(p *Pipeline) {
		p.excerpt = true
		p.maxSentences = maxSentences
	}
}

// New wires a pipeline
func New(reader TextExtractor, extractor *fields.Extractor, resolver Resolver, writer TemplateWriter, opts ...Option) *Pipeline {
	p := &Pipeline{
		reader:    reader,
		extractor: extractor,
		resolver:  resolver,
		writer:    writer,
		logger:    slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.tracer == nil {
		p.tracer = otel.Tracer("pdf-excel-mapper/pipeline")
	}
	if p.maxSentences <= 0 {
		p.maxSentences = fields.DefaultSummarySentences
	}
	return p
}

// Run extracts, enriches and writes the template. Registry failures are
// not errors; pdf and template failures are returned as *StageError.
func (p *Pipeline) Run(ctx context.Context, in Input) (res *Result, err error) {
	if len(in.Document) == 0 {
		return nil, ErrMissingDocument
	}
	if len(in.Template) == 0 {
		return nil, ErrMissingTemplate
	}

	ctx, span := p.tracer.Start(ctx, "pipeline.run")
	defer func() { endSpan(span, err) }()

	res, err = p.enrich(ctx, in.Document)
	if err != nil {
		p.finish(nil, err)
		return nil, err
	}
	span.SetAttributes(attribute.String("request_id", res.RequestID))

	_, writeSpan := p.tracer.Start(ctx, "pipeline.write")
	workbook, werr := p.writer.Write(in.Template, res.Fields, res.Summary)
	endSpan(writeSpan, werr)
	if werr != nil {
		err = &StageError{Stage: StageTemplate, Err: werr}
		p.finish(res, err)
		return nil, err
	}
	res.Workbook = workbook

	p.finish(res, nil)
	return res, nil
}

// Extract runs the extract and resolve stages without a template
func (p *Pipeline) Extract(ctx context.Context, document []byte) (res *Result, err error) {
	if len(document) == 0 {
		return nil, ErrMissingDocument
	}

	ctx, span := p.tracer.Start(ctx, "pipeline.run")
	defer func() { endSpan(span, err) }()

	res, err = p.enrich(ctx, document)
	p.finish(res, err)
	return res, err
}

// ExtractDocument runs the extract stage only; the registry is not consulted
func (p *Pipeline) ExtractDocument(ctx context.Context, document []byte) (*Result, error) {
	if len(document) == 0 {
		return nil, ErrMissingDocument
	}
	res, _, err := p.extract(ctx, document)
	return res, err
}

func (p *Pipeline) extract(ctx context.Context, document []byte) (*Result, string, error) {
	requestID := requestIDFrom(ctx)
	_, span := p.tracer.Start(ctx, "pipeline.extract")
	text, err := p.reader.ExtractText(document)
	if errors.Is(err, pdf.ErrNoText) {
		// scans and graphics-only pages: nothing to match, not a failure
		p.logger.Warn("document has no text layer", "request_id", requestID)
		text, err = "", nil
	}
	if err != nil {
		endSpan(span, err)
		return nil, "", &StageError{Stage: StagePDF, Err: err}
	}

	res := &Result{
		RequestID: requestID,
		Source:    SourceDocument,
		Fields:    p.extractor.Extract(text),
		Matched:   p.extractor.Matched(text),
	}
	span.SetAttributes(
		attribute.String("request_id", res.RequestID),
		attribute.Int("fields.matched", len(res.Matched)),
	)
	endSpan(span, nil)

	p.logger.Debug("fields extracted",
		"request_id", res.RequestID,
		"matched", len(res.Matched),
		"text_length", len(text))
	return res, text, nil
}

func (p *Pipeline) enrich(ctx context.Context, document []byte) (*Result, error) {
	res, text, err := p.extract(ctx, document)
	if err != nil {
		return nil, err
	}
	extracted := res.Fields

	resolveCtx, span := p.tracer.Start(ctx, "pipeline.resolve")
	start := time.Now()
	resolution := p.resolver.Resolve(resolveCtx,
		extracted.Get(fields.OrgNumber),
		extracted.Get(fields.CompanyName))
	span.SetAttributes(
		attribute.String("registry.status", resolution.Status.String()),
		attribute.String("registry.strategy", resolution.Strategy),
	)
	endSpan(span, resolution.Err)

	res.Status = resolution.Status
	res.Strategy = resolution.Strategy
	if resolution.Found() {
		res.Fields = fields.Merge(extracted, *resolution.Fields)
		res.Source = SourceRegistry
		res.Trusted = resolution.Trusted
	}

	res.Summary = resolution.Summary
	if res.Summary == "" && p.excerpt {
		res.Summary = fields.Summarize(text, p.maxSentences)
	}

	p.logger.Info("document enriched",
		"request_id", res.RequestID,
		"source", res.Source,
		"registry_status", resolution.Status.String(),
		"strategy", resolution.Strategy,
		"trusted", res.Trusted,
		"elapsed", time.Since(start))
	return res, nil
}

func (p *Pipeline) finish(res *Result, err error) {
	result := resultFailed
	switch {
	case err != nil:
		p.logger.Error("pipeline run failed", "stage", StageOf(err), "error", err)
	case res != nil:
		result = res.Source
	}
	if p.recorder != nil {
		p.recorder.ObserveRun(result)
	}
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
