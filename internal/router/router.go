package router

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/amasuba/uraics-revenue-assurance/internal/intent"
	"github.com/amasuba/uraics-revenue-assurance/internal/observability"
)

// Reply is everything produced for one chat input.
type Reply struct {
	Intent   intent.Intent `json:"intent"`
	Param    string        `json:"param,omitempty"`
	Stage    intent.Stage  `json:"stage"`
	Envelope Envelope      `json:"-"`
	Kind     Kind          `json:"kind"`
	Text     string        `json:"text"`
	Payload  Payload       `json:"payload"`
}

// Router turns free text into a reply: classify, dispatch, format.
type Router struct {
	classifier  *intent.Classifier
	dispatcher  *Dispatcher
	formatter   *Formatter
	logger      *slog.Logger
	tracer      trace.Tracer
	instruments *observability.RouterInstruments
	now         func() time.Time
}

// Option configures a Router.
type Option func(*Router)

// WithTracer sets the tracer used for handle spans.
func WithTracer(t trace.Tracer) Option {
	return func(r *Router) { r.tracer = t }
}

// WithInstruments records request counts and durations.
func WithInstruments(i *observability.RouterInstruments) Option {
	return func(r *Router) { r.instruments = i }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Router) { r.logger = l }
}

// WithClock overrides the transcript clock.
func WithClock(now func() time.Time) Option {
	return func(r *Router) { r.now = now }
}

// WithClassifier replaces the default classifier.
func WithClassifier(c *intent.Classifier) Option {
	return func(r *Router) { r.classifier = c }
}

// New creates a Router over dispatcher and formatter.
func New(dispatcher *Dispatcher, formatter *Formatter, opts ...Option) *Router {
	r := &Router{
		classifier: intent.Default(),
		dispatcher: dispatcher,
		formatter:  formatter,
		logger:     slog.Default(),
		tracer:     noop.NewTracerProvider().Tracer(observability.TracerName),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Handle processes one input on session and records both turns in its
// transcript. Calls on the same session are serialized.
func (r *Router) Handle(ctx context.Context, s *Session, text string) Reply {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	ctx, span := r.tracer.Start(ctx, "tatis.router.handle",
		trace.WithAttributes(attribute.String("tatis.session.id", s.ID)))
	defer span.End()

	cls := r.classifier.Classify(text)
	span.SetAttributes(
		attribute.String("tatis.intent", cls.Intent.String()),
		attribute.String("tatis.intent.stage", string(cls.Stage)),
	)

	env := r.dispatcher.Dispatch(ctx, cls.Intent, cls.Param)
	reply := r.reply(env, cls)

	s.append(
		Turn{Role: RoleUser, Content: text, At: r.now()},
		Turn{Role: RoleAssistant, Content: reply.Text, At: r.now()},
	)

	r.finish(ctx, span, env, start)
	r.logger.DebugContext(ctx, "handled input",
		"session", s.ID,
		"intent", cls.Intent,
		"stage", cls.Stage,
		"kind", env.Kind,
	)
	return reply
}

// Run dispatches an already known intent, skipping classification and the
// transcript. The CLI subcommands use it.
func (r *Router) Run(ctx context.Context, in intent.Intent, param string) Reply {
	start := time.Now()
	ctx, span := r.tracer.Start(ctx, "tatis.router.run",
		trace.WithAttributes(attribute.String("tatis.intent", in.String())))
	defer span.End()

	env := r.dispatcher.Dispatch(ctx, in, param)
	reply := r.reply(env, intent.Result{Intent: in, Param: param, HasParam: param != "", Stage: intent.StagePattern})
	r.finish(ctx, span, env, start)
	return reply
}

// Trace runs a connection trace between two taxpayers outside the chat flow.
func (r *Router) Trace(ctx context.Context, fromTIN, toTIN string) Reply {
	start := time.Now()
	ctx, span := r.tracer.Start(ctx, "tatis.router.trace")
	defer span.End()

	env := r.dispatcher.TraceConnection(ctx, fromTIN, toTIN)
	reply := r.reply(env, intent.Result{Intent: TraceIntent, Stage: intent.StagePattern})
	r.finish(ctx, span, env, start)
	return reply
}

func (r *Router) reply(env Envelope, cls intent.Result) Reply {
	text, payload := r.formatter.Format(env)
	return Reply{
		Intent:   env.Intent,
		Param:    cls.Param,
		Stage:    cls.Stage,
		Envelope: env,
		Kind:     env.Kind,
		Text:     text,
		Payload:  payload,
	}
}

func (r *Router) finish(ctx context.Context, span trace.Span, env Envelope, start time.Time) {
	span.SetAttributes(attribute.String("tatis.envelope.kind", string(env.Kind)))
	if env.Kind == KindError {
		span.SetStatus(codes.Error, env.Message)
	} else {
		span.SetStatus(codes.Ok, "")
	}

	if r.instruments == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("intent", env.Intent.String()),
		attribute.String("kind", string(env.Kind)),
	)
	r.instruments.Requests.Add(ctx, 1, attrs)
	r.instruments.Duration.Record(ctx, float64(time.Since(start).Microseconds())/1000, attrs)
}
