package craftai

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/matthieu-boussard/craft-ai-client-python/clock"
	"github.com/matthieu-boussard/craft-ai-client-python/property"
	"github.com/matthieu-boussard/craft-ai-client-python/tree"
	treejson "github.com/matthieu-boussard/craft-ai-client-python/tree/json"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func loadTree(t *testing.T, name string) *tree.Tree {
	t.Helper()
	f, err := os.Open(filepath.Join("tree", "testdata", name))
	require.NoError(t, err)
	defer f.Close()
	dt, err := treejson.ReadTree(f)
	require.NoError(t, err)
	return dt
}

func newTestInterpreter(t *testing.T, opts ...Option) (*Interpreter, *Metrics, *bytes.Buffer) {
	t.Helper()
	m, err := NewMetrics(prometheus.NewRegistry())
	require.NoError(t, err)
	buf := &bytes.Buffer{}
	logger := slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	opts = append([]Option{WithLogger(logger), WithMetrics(m)}, opts...)
	return New(opts...), m, buf
}

func TestDecide(t *testing.T) {
	in, m, logs := newTestInterpreter(t)
	dt := loadTree(t, "v2_lamp.json")

	result, err := in.Decide(context.Background(), dt, property.Context{"time": 10, "presence": "home"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "ON", result.Output["lamp"].PredictedValue)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Decisions.WithLabelValues("2", resultOK)))
	assert.Contains(t, logs.String(), "decision taken")
	assert.Contains(t, logs.String(), "path=0-1-0")

	result, err = in.Decide(context.Background(), dt, property.Context{"time": 10, "presence": nil}, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Output["lamp"].AggregatedLeaves)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Decisions.WithLabelValues("2", resultOK)))
	assert.Equal(t, 1, testutil.CollectAndCount(m.AggregatedLeaves))

	_, err = in.Decide(context.Background(), dt, property.Context{"time": 10, "presence": "abroad"}, nil)
	var ndErr *tree.NullDecisionError
	require.True(t, errors.As(err, &ndErr))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Decisions.WithLabelValues("2", resultNullDecision)))
	assert.Contains(t, logs.String(), "null decision")
}

func TestDecideWithTime(t *testing.T) {
	in, m, _ := newTestInterpreter(t)
	dt := loadTree(t, "v1_lamp.json")

	tm, err := clock.New(1489998174, "+01:00")
	require.NoError(t, err)
	result, err := in.Decide(context.Background(), dt, property.Context{}, &tm)
	require.NoError(t, err)
	assert.Equal(t, "OFF", result.Output["lamp"].PredictedValue)

	_, err = in.Decide(context.Background(), dt, property.Context{}, nil)
	var itErr *clock.InvalidTimeError
	require.True(t, errors.As(err, &itErr))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Decisions.WithLabelValues("1", resultInvalidTime)))
}

func TestDecideCancelled(t *testing.T) {
	in, m, _ := newTestInterpreter(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := in.Decide(ctx, loadTree(t, "v2_lamp.json"), property.Context{}, nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, testutil.CollectAndCount(m.Decisions))
}

func TestDecideAll(t *testing.T) {
	in, m, _ := newTestInterpreter(t, WithConcurrency(3))
	dt := loadTree(t, "v2_temperature.json")

	requests := []Request{
		{State: property.Context{"heating": true}},
		{State: property.Context{"heating": false, "window": "open"}},
		{State: property.Context{"heating": false, "window": property.Optional}},
		{State: property.Context{"heating": false, "window": "closed"}},
		{State: property.Context{"heating": "maybe"}},
	}
	responses := in.DecideAll(context.Background(), dt, requests)
	require.Len(t, responses, len(requests))

	assert.NoError(t, responses[0].Err)
	assert.Equal(t, 21.0, responses[0].Result.Output["temperature"].PredictedValue)
	assert.NoError(t, responses[1].Err)
	assert.Equal(t, 14.0, responses[1].Result.Output["temperature"].PredictedValue)
	var ndErr *tree.NullDecisionError
	assert.True(t, errors.As(responses[2].Err, &ndErr))
	assert.NoError(t, responses[3].Err)
	assert.Equal(t, 18.0, responses[3].Result.Output["temperature"].PredictedValue)
	assert.Error(t, responses[4].Err)
	assert.Nil(t, responses[4].Result)

	assert.Equal(t, 3.0, testutil.ToFloat64(m.Decisions.WithLabelValues("2", resultOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Decisions.WithLabelValues("2", resultNullDecision)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Decisions.WithLabelValues("2", resultError)))
}

func TestDecideStored(t *testing.T) {
	ctx := context.Background()
	s := tree.NewMemoryStore()
	dt := loadTree(t, "v2_lamp.json")
	require.NoError(t, s.Create(ctx, dt))

	in, _, _ := newTestInterpreter(t, WithStore(s))
	result, err := in.DecideStored(ctx, dt.ID, property.Context{"time": 23}, nil)
	require.NoError(t, err)
	assert.Equal(t, "OFF", result.Output["lamp"].PredictedValue)

	_, err = in.DecideStored(ctx, "unknown", property.Context{}, nil)
	assert.ErrorIs(t, err, tree.ErrTreeNotFound)

	bare, _, _ := newTestInterpreter(t)
	_, err = bare.DecideStored(ctx, dt.ID, property.Context{}, nil)
	assert.Error(t, err)
}

func TestMetricsRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewMetrics(reg)
	require.NoError(t, err)
	_, err = NewMetrics(reg)
	assert.Error(t, err)

	expected := `
# HELP craftai_decisions_total Total number of decision requests by tree version and result
# TYPE craftai_decisions_total counter
craftai_decisions_total{result="malformed_tree",version="unknown"} 1
`
	m, err := NewMetrics(prometheus.NewRegistry())
	require.NoError(t, err)
	m.observe(nil, nil, &tree.MalformedTreeError{Reason: "x"}, 0.1)
	assert.NoError(t, testutil.CollectAndCompare(m.Decisions, strings.NewReader(expected)))
}

func TestDecideSpans(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	defer tp.Shutdown(context.Background())

	in, _, _ := newTestInterpreter(t, WithTracerProvider(tp))
	dt := loadTree(t, "v2_lamp.json")
	_, err := in.Decide(context.Background(), dt, property.Context{"time": 10, "presence": "home"}, nil)
	require.NoError(t, err)
	_, err = in.Decide(context.Background(), dt, property.Context{"time": 10, "presence": 3}, nil)
	require.Error(t, err)

	spans := recorder.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, "Interpreter.Decide", spans[0].Name())
	assert.Contains(t, spans[0].Attributes(), attribute.String("craftai.decision.result", resultOK))
	assert.Contains(t, spans[0].Attributes(), attribute.String("craftai.tree.version", dt.Version))
	assert.Equal(t, codes.Error, spans[1].Status().Code)
}
