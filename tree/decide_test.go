package tree_test

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/matthieu-boussard/craft-ai-client-python/clock"
	"github.com/matthieu-boussard/craft-ai-client-python/property"
	"github.com/matthieu-boussard/craft-ai-client-python/tree"
	treejson "github.com/matthieu-boussard/craft-ai-client-python/tree/json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadTree(t *testing.T, name string) *tree.Tree {
	t.Helper()
	f, err := os.Open(filepath.Join("testdata", name))
	require.NoError(t, err)
	defer f.Close()
	dt, err := treejson.ReadTree(f)
	require.NoError(t, err)
	return dt
}

func requireNullDecision(t *testing.T, err error) *tree.NullDecisionError {
	t.Helper()
	var ndErr *tree.NullDecisionError
	require.True(t, errors.As(err, &ndErr), "expected a null decision, got %v", err)
	return ndErr
}

func TestDecideV1(t *testing.T) {
	dt := loadTree(t, "v1_lamp.json")
	assert.Equal(t, 1, dt.Major())
	assert.True(t, dt.Configuration.DeactivateMissingValues)

	tm, err := clock.New(1489998174, "+01:00")
	require.NoError(t, err)
	result, err := dt.DecideAt(property.Context{}, &tm)
	require.NoError(t, err)

	assert.Equal(t, 0.0, result.Context["day"])
	assert.Equal(t, "+01:00", result.Context["tz"])
	d := result.Output["lamp"]
	require.NotNil(t, d)
	assert.Equal(t, "OFF", d.PredictedValue)
	require.NotNil(t, d.Confidence)
	assert.Equal(t, 0.9, *d.Confidence)
	assert.Equal(t, "0-0-0", d.DecisionPath)
	assert.Equal(t, []*property.DecisionRule{
		property.NewIn("day", 0, 5),
		property.NewIn("time", 8, 18),
	}, d.DecisionRules)
	assert.False(t, d.Aggregated())

	explanation, err := dt.Explain(d)
	require.NoError(t, err)
	assert.Equal(t, "day from Mon to Fri and time is between 08:00 and 18:00", explanation)
}

func TestDecideV1CyclicTime(t *testing.T) {
	dt := loadTree(t, "v1_lamp.json")
	result, err := dt.Decide(property.Context{"day": 2, "time": 23.5, "tz": "+00:00"})
	require.NoError(t, err)
	assert.Equal(t, "ON", result.Output["lamp"].PredictedValue)
	assert.Equal(t, "0-0-1", result.Output["lamp"].DecisionPath)

	result, err = dt.Decide(property.Context{"day": 6, "time": 12})
	require.NoError(t, err)
	assert.Equal(t, "ON", result.Output["lamp"].PredictedValue)
	assert.Equal(t, "0-1", result.Output["lamp"].DecisionPath)
}

func TestDecideV1MissingValue(t *testing.T) {
	dt := loadTree(t, "v1_lamp.json")
	_, err := dt.Decide(property.Context{"time": 12, "day": nil})
	ndErr := requireNullDecision(t, err)
	assert.Equal(t, "day", ndErr.Property)
	assert.Equal(t, "lamp", ndErr.Output)
	assert.Equal(t, "0", ndErr.Path)
	assert.Contains(t, err.Error(), "property 'day' is missing from the given context")

	// version 1 trees never aggregate
	_, err = dt.WithDeactivateMissingValues(false).Decide(property.Context{"time": 12})
	requireNullDecision(t, err)
}

func TestDecideAtWithoutTime(t *testing.T) {
	dt := loadTree(t, "v1_lamp.json")
	_, err := dt.DecideAt(property.Context{}, nil)
	var itErr *clock.InvalidTimeError
	assert.True(t, errors.As(err, &itErr))
}

func TestDecideV2Discrete(t *testing.T) {
	dt := loadTree(t, "v2_lamp.json")
	assert.False(t, dt.Configuration.DeactivateMissingValues)

	result, err := dt.Decide(property.Context{"time": 23, "presence": "home"})
	require.NoError(t, err)
	d := result.Output["lamp"]
	assert.Equal(t, "OFF", d.PredictedValue)
	assert.Equal(t, "0-0", d.DecisionPath)
	assert.Equal(t, 10, d.NbSamples)
	assert.Equal(t, []float64{0.9, 0.1}, d.Distribution)

	result, err = dt.Decide(property.Context{"time": 10, "presence": "home"})
	require.NoError(t, err)
	d = result.Output["lamp"]
	assert.Equal(t, "ON", d.PredictedValue)
	assert.Equal(t, "0-1-0", d.DecisionPath)
	require.NotNil(t, d.Confidence)
	assert.Equal(t, 0.8, *d.Confidence)
}

func TestDecideV2DiscreteAggregation(t *testing.T) {
	dt := loadTree(t, "v2_lamp.json")
	result, err := dt.Decide(property.Context{"time": 10, "presence": nil})
	require.NoError(t, err)
	d := result.Output["lamp"]
	assert.Equal(t, "ON", d.PredictedValue)
	assert.Nil(t, d.Confidence)
	assert.Equal(t, 40, d.NbSamples)
	assert.InDeltaSlice(t, []float64{0.325, 0.675}, d.Distribution, 1e-9)
	assert.Equal(t, "0-1", d.DecisionPath)
	assert.Equal(t, []*property.DecisionRule{property.NewIn("time", 6, 22)}, d.DecisionRules)
	assert.Equal(t, 2, d.AggregatedLeaves)

	_, err = dt.WithDeactivateMissingValues(true).Decide(property.Context{"time": 10, "presence": nil})
	ndErr := requireNullDecision(t, err)
	assert.Equal(t, "presence", ndErr.Property)
	assert.Equal(t, "0-1", ndErr.Path)
}

func TestDecideV2NullDecisions(t *testing.T) {
	dt := loadTree(t, "v2_lamp.json")

	_, err := dt.Decide(property.Context{"time": 10, "presence": "abroad"})
	ndErr := requireNullDecision(t, err)
	assert.Equal(t, "0-1-2", ndErr.Path)

	_, err = dt.Decide(property.Context{"time": 10, "presence": "garden"})
	ndErr = requireNullDecision(t, err)
	assert.Equal(t, "presence", ndErr.Property)
	assert.Equal(t, "garden", ndErr.Value)
	assert.Len(t, ndErr.Rules, 3)
	assert.Contains(t, err.Error(), "value 'garden' for property 'presence' doesn't validate any of the decision rules")

	// time is not optional, it cannot be aggregated over
	_, err = dt.Decide(property.Context{"presence": "home"})
	ndErr = requireNullDecision(t, err)
	assert.Equal(t, "time", ndErr.Property)

	_, err = dt.Decide(property.Context{"time": 10, "presence": 3})
	require.Error(t, err)
	assert.False(t, errors.As(err, &ndErr))
}

func TestDecideV2ContinuousAggregation(t *testing.T) {
	dt := loadTree(t, "v2_temperature.json")

	result, err := dt.Decide(property.Context{"window": "open", "outside": 5})
	require.NoError(t, err)
	d := result.Output["temperature"]
	mean := 280.0 / 15.0
	assert.InDelta(t, mean, d.PredictedValue, 1e-9)
	assert.Equal(t, 15, d.NbSamples)
	assert.Nil(t, d.Confidence)
	assert.Equal(t, "0", d.DecisionPath)
	assert.Empty(t, d.DecisionRules)
	variance := (9*1.0 + 4*2.25 + 10*(21-mean)*(21-mean) + 5*(14-mean)*(14-mean)) / 14
	require.NotNil(t, d.StandardDeviation)
	assert.InDelta(t, math.Sqrt(variance), *d.StandardDeviation, 1e-9)
	require.NotNil(t, d.Min)
	require.NotNil(t, d.Max)
	assert.Equal(t, 10.0, *d.Min)
	assert.Equal(t, 23.0, *d.Max)
}

func TestDecideV2NestedAggregation(t *testing.T) {
	dt := loadTree(t, "v2_temperature.json")

	result, err := dt.Decide(property.Context{"heating": false, "window": nil, "outside": 5})
	require.NoError(t, err)
	d := result.Output["temperature"]
	assert.InDelta(t, 760.0/45.0, d.PredictedValue, 1e-9)
	assert.Equal(t, 45, d.NbSamples)
	assert.Equal(t, 3, d.AggregatedLeaves)
	// one of the leaves has no deviation
	assert.Nil(t, d.StandardDeviation)
	assert.Equal(t, "0-1", d.DecisionPath)
}

func TestDecideV2OptionalBranch(t *testing.T) {
	dt := loadTree(t, "v2_temperature.json")

	result, err := dt.Decide(property.Context{"heating": false, "window": property.Optional, "outside": 12})
	require.NoError(t, err)
	d := result.Output["temperature"]
	assert.Equal(t, 19.0, d.PredictedValue)
	assert.Equal(t, "0-1-1-1", d.DecisionPath)
	assert.Equal(t, []*property.DecisionRule{
		property.NewIs("heating", false),
		property.NewIs("window", nil),
		property.NewGTE("outside", 10),
	}, d.DecisionRules)

	_, err = dt.Decide(property.Context{"heating": false, "window": property.Optional})
	ndErr := requireNullDecision(t, err)
	assert.Equal(t, "outside", ndErr.Property)
	assert.Equal(t, "0-1-1", ndErr.Path)

	_, err = dt.WithDeactivateMissingValues(true).Decide(property.Context{"window": "open", "outside": 5})
	ndErr = requireNullDecision(t, err)
	assert.Equal(t, "heating", ndErr.Property)
}

func TestDecideOutput(t *testing.T) {
	dt := loadTree(t, "v2_temperature.json")
	d, err := dt.DecideOutput("temperature", property.Context{"heating": true})
	require.NoError(t, err)
	assert.Equal(t, 21.0, d.PredictedValue)

	_, err = dt.DecideOutput("humidity", property.Context{"heating": true})
	assert.Error(t, err)
}
