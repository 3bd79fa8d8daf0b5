/*
Package craftai takes decisions with versioned decision trees computed by
the decision service, without contacting it.

An Interpreter wraps the evaluation of trees from the tree package with
structured logging, Prometheus metrics and OpenTelemetry spans, and
evaluates batches of independent contexts in parallel.
*/
package craftai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"github.com/matthieu-boussard/craft-ai-client-python/clock"
	"github.com/matthieu-boussard/craft-ai-client-python/property"
	"github.com/matthieu-boussard/craft-ai-client-python/tree"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

const tracerName = "github.com/matthieu-boussard/craft-ai-client-python"

/*
Interpreter takes decisions with decision trees. It is safe for concurrent
use by multiple goroutines.
*/
type Interpreter struct {
	logger      *slog.Logger
	metrics     *Metrics
	tracer      trace.Tracer
	store       tree.Store
	concurrency int
}

// Option configures an Interpreter.
type Option func(*Interpreter)

// WithLogger sets the logger of the interpreter. slog.Default() is used
// otherwise.
func WithLogger(logger *slog.Logger) Option {
	return func(in *Interpreter) {
		in.logger = logger
	}
}

// WithMetrics sets the metrics the interpreter records its decisions on.
func WithMetrics(m *Metrics) Option {
	return func(in *Interpreter) {
		in.metrics = m
	}
}

// WithTracerProvider sets the provider of the tracer used for spans.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(in *Interpreter) {
		in.tracer = tp.Tracer(tracerName)
	}
}

// WithStore sets the store DecideStored retrieves trees from.
func WithStore(s tree.Store) Option {
	return func(in *Interpreter) {
		in.store = s
	}
}

/*
WithConcurrency sets how many contexts DecideAll evaluates at the same
time. Values lower than 1 stand for the number of CPUs.
*/
func WithConcurrency(n int) Option {
	return func(in *Interpreter) {
		in.concurrency = n
	}
}

// New returns an Interpreter configured with the given options.
func New(opts ...Option) *Interpreter {
	in := &Interpreter{
		logger: slog.Default(),
		tracer: otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(in)
	}
	if in.concurrency < 1 {
		in.concurrency = runtime.NumCPU()
	}
	return in
}

/*
Request is a decision request for DecideAll: the state of the properties
and the optional time of the decision.
*/
type Request struct {
	State property.Context
	Time  *clock.Time
}

// Response holds the result of a Request or the error that prevented it.
type Response struct {
	Result *tree.Result
	Err    error
}

/*
Decide takes a context, a tree, the state of the properties and an optional
time and returns the decisions of the tree for the context rebuilt from
them. See tree.RebuildContext and (*tree.Tree).Decide.
*/
func (in *Interpreter) Decide(ctx context.Context, t *tree.Tree, state property.Context, tm *clock.Time) (*tree.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ctx, span := in.startSpan(ctx, t)
	defer span.End()

	start := time.Now()
	result, err := t.DecideAt(state, tm)
	in.metrics.observe(t, result, err, time.Since(start).Seconds())
	in.record(ctx, span, t, result, err)
	return result, err
}

/*
DecideAll takes a context, a tree and a slice of requests and evaluates the
requests in parallel, returning one response per request in the same order.
A failing request does not affect the others. Requests not started when the
context is done get the context error.
*/
func (in *Interpreter) DecideAll(ctx context.Context, t *tree.Tree, requests []Request) []Response {
	responses := make([]Response, len(requests))
	g := &errgroup.Group{}
	g.SetLimit(in.concurrency)
	for i, req := range requests {
		i, req := i, req
		g.Go(func() error {
			responses[i].Result, responses[i].Err = in.Decide(ctx, t, req.State, req.Time)
			return nil
		})
	}
	// requests report their own errors, no goroutine fails the group
	_ = g.Wait()
	return responses
}

/*
DecideStored works as Decide with the tree of the interpreter's store with
the given id. It returns tree.ErrTreeNotFound wrapped if the store does not
have it.
*/
func (in *Interpreter) DecideStored(ctx context.Context, id string, state property.Context, tm *clock.Time) (*tree.Result, error) {
	if in.store == nil {
		return nil, fmt.Errorf("deciding with tree %q: interpreter has no store", id)
	}
	t, err := in.store.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("deciding with tree %q: %w", id, err)
	}
	return in.Decide(ctx, t, state, tm)
}

func (in *Interpreter) startSpan(ctx context.Context, t *tree.Tree) (context.Context, trace.Span) {
	attrs := []attribute.KeyValue{}
	if t != nil {
		attrs = append(attrs,
			attribute.String("craftai.tree.id", t.ID),
			attribute.String("craftai.tree.version", t.Version),
			attribute.StringSlice("craftai.tree.outputs", t.Configuration.Output),
		)
	}
	return in.tracer.Start(ctx, "Interpreter.Decide", trace.WithAttributes(attrs...))
}

func (in *Interpreter) record(ctx context.Context, span trace.Span, t *tree.Tree, result *tree.Result, err error) {
	var ndErr *tree.NullDecisionError
	switch {
	case errors.As(err, &ndErr):
		span.SetAttributes(attribute.String("craftai.decision.result", resultNullDecision))
		in.logger.InfoContext(ctx, "null decision",
			slog.String("output", ndErr.Output),
			slog.String("property", ndErr.Property),
			slog.String("path", ndErr.Path),
			slog.String("reason", ndErr.Message))
	case err != nil:
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		in.logger.WarnContext(ctx, "decision failed", slog.String("error", err.Error()))
	default:
		span.SetAttributes(attribute.String("craftai.decision.result", resultOK))
		for _, output := range t.Configuration.Output {
			d := result.Output[output]
			in.logger.DebugContext(ctx, "decision taken",
				slog.String("output", output),
				slog.Any("value", d.PredictedValue),
				slog.String("path", d.DecisionPath),
				slog.Int("aggregated_leaves", d.AggregatedLeaves))
		}
	}
}
