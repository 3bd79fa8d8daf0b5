package tree

import (
	"fmt"
	"strings"

	"github.com/matthieu-boussard/craft-ai-client-python/property"
)

/*
Prediction represents the prediction held by a leaf of a decision tree.

Leaves of trees predicting a continuous output hold a numeric Value and
optionally its standard deviation and range. Leaves of trees predicting
a discrete output hold the most probable class as Value and, for version 2
trees, a Distribution of probabilities aligned with the OutputValues of the
root node.
*/
type Prediction struct {
	Value             interface{}
	Confidence        *float64
	NbSamples         int
	StandardDeviation *float64
	Min               *float64
	Max               *float64
	Distribution      []float64
}

func (p *Prediction) String() string {
	s := fmt.Sprintf("%v", p.Value)
	if p.Confidence != nil {
		s = fmt.Sprintf("%s (confidence %.2f)", s, *p.Confidence)
	}
	if p.NbSamples > 0 {
		s = fmt.Sprintf("%s [%d samples]", s, p.NbSamples)
	}
	return s
}

/*
Decision is the prediction of a tree for one of its outputs and a given
context, along with the decision rules and path that lead to it.
Aggregated decisions have a nil Confidence.
*/
type Decision struct {
	PredictedValue    interface{}              `json:"predicted_value"`
	Confidence        *float64                 `json:"confidence"`
	NbSamples         int                      `json:"nb_samples,omitempty"`
	StandardDeviation *float64                 `json:"standard_deviation,omitempty"`
	Min               *float64                 `json:"min,omitempty"`
	Max               *float64                 `json:"max,omitempty"`
	Distribution      []float64                `json:"distribution,omitempty"`
	DecisionRules     []*property.DecisionRule `json:"decision_rules"`
	DecisionPath      string                   `json:"decision_path"`
	// Number of leaves merged into the decision, 0 for decisions read from
	// a single leaf.
	AggregatedLeaves int `json:"aggregated_leaves,omitempty"`
}

// Aggregated returns whether the decision merges several leaves.
func (d *Decision) Aggregated() bool {
	return d.AggregatedLeaves > 0
}

// Result holds the decisions for every output of a tree and the context
// they were taken for.
type Result struct {
	Output  map[string]*Decision `json:"output"`
	Context property.Context     `json:"context"`
}

// TreeError represents an error related with decision trees
type TreeError string

func (te TreeError) Error() string {
	return string(te)
}

/*
ErrUnknownDecisionPath is the error returned when a decision path does not
lead to any node of a tree.
*/
const ErrUnknownDecisionPath = TreeError("unknown decision path")

/*
ErrTreeNotFound is the error returned by stores when no tree exists for
the requested ID.
*/
const ErrTreeNotFound = TreeError("decision tree not found")

/*
NullDecisionError is returned when a tree cannot take a decision for the
given context: the value of a property is missing, it does not satisfy any
of the rules of a branch, or the reached leaves hold no samples.
*/
type NullDecisionError struct {
	Output   string
	Property string
	Value    interface{}
	Path     string
	Rules    []*property.DecisionRule
	Message  string
}

func (e *NullDecisionError) Error() string {
	return fmt.Sprintf("unable to take decision for output %q: %s", e.Output, e.Message)
}

func missingValue(output, prop, path string) *NullDecisionError {
	return &NullDecisionError{
		Output:   output,
		Property: prop,
		Value:    property.Missing,
		Path:     path,
		Message:  fmt.Sprintf("property '%s' is missing from the given context", prop),
	}
}

func unmatchedValue(output, prop string, value interface{}, path string, rules []*property.DecisionRule) *NullDecisionError {
	expected := make([]string, len(rules))
	for i, r := range rules {
		expected[i] = r.String()
	}
	return &NullDecisionError{
		Output:   output,
		Property: prop,
		Value:    value,
		Path:     path,
		Rules:    rules,
		Message: fmt.Sprintf("value '%v' for property '%s' doesn't validate any of the decision rules: %s",
			value, prop, strings.Join(expected, ", ")),
	}
}

func emptyLeaf(output, path string) *NullDecisionError {
	return &NullDecisionError{
		Output:  output,
		Path:    path,
		Message: fmt.Sprintf("the decision path %s leads to a leaf without samples", path),
	}
}

/*
MalformedTreeError is returned when a decision tree does not follow the
expected format or uses an unsupported version.
*/
type MalformedTreeError struct {
	Reason string
}

func (e *MalformedTreeError) Error() string {
	return fmt.Sprintf("invalid decision tree format, %s", e.Reason)
}

func malformed(format string, args ...interface{}) error {
	return &MalformedTreeError{Reason: fmt.Sprintf(format, args...)}
}
