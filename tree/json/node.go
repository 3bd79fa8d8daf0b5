package json

import (
	"encoding/json"
	"fmt"

	"github.com/matthieu-boussard/craft-ai-client-python/property"
	"github.com/matthieu-boussard/craft-ai-client-python/tree"
)

type node struct {
	DecisionRule *property.DecisionRule `json:"decision_rule,omitempty"`
	Children     []*node                `json:"children,omitempty"`
	OutputValues []interface{}          `json:"output_values,omitempty"`
	// version 1 leaves
	PredictedValue    interface{} `json:"predicted_value,omitempty"`
	Confidence        *float64    `json:"confidence,omitempty"`
	StandardDeviation *float64    `json:"standard_deviation,omitempty"`
	// version 2 nodes
	Prediction *prediction `json:"prediction,omitempty"`
}

type prediction struct {
	Value        interface{}     `json:"value"`
	Confidence   *float64        `json:"confidence,omitempty"`
	NbSamples    int             `json:"nb_samples"`
	Distribution json.RawMessage `json:"distribution,omitempty"`
}

type continuousDistribution struct {
	StandardDeviation *float64 `json:"standard_deviation,omitempty"`
	Min               *float64 `json:"min,omitempty"`
	Max               *float64 `json:"max,omitempty"`
}

func decodeNode(jn *node, major int, path string) (*tree.Node, error) {
	if len(jn.Children) == 0 {
		p, err := decodePrediction(jn, major, path)
		if err != nil {
			return nil, err
		}
		n := tree.NewLeaf(p)
		n.OutputValues = jn.OutputValues
		return n, nil
	}
	n := &tree.Node{Kind: tree.BranchNode, OutputValues: jn.OutputValues}
	if major >= 2 && jn.Prediction != nil {
		p, err := decodePrediction(jn, major, path)
		if err != nil {
			return nil, err
		}
		n.Prediction = p
	}
	for i, jc := range jn.Children {
		childPath := fmt.Sprintf("%s-%d", path, i)
		if jc == nil || jc.DecisionRule == nil {
			return nil, &tree.MalformedTreeError{Reason: fmt.Sprintf("node %s has no decision rule", childPath)}
		}
		c, err := decodeNode(jc, major, childPath)
		if err != nil {
			return nil, err
		}
		n.Children = append(n.Children, tree.Child{Rule: jc.DecisionRule, Node: c})
	}
	return n, nil
}

func decodePrediction(jn *node, major int, path string) (*tree.Prediction, error) {
	if major < 2 {
		return &tree.Prediction{
			Value:             jn.PredictedValue,
			Confidence:        jn.Confidence,
			StandardDeviation: jn.StandardDeviation,
		}, nil
	}
	jp := jn.Prediction
	if jp == nil {
		return nil, &tree.MalformedTreeError{Reason: fmt.Sprintf("leaf %s has no prediction", path)}
	}
	p := &tree.Prediction{Value: jp.Value, Confidence: jp.Confidence, NbSamples: jp.NbSamples}
	if len(jp.Distribution) == 0 || string(jp.Distribution) == "null" {
		return p, nil
	}
	switch jp.Distribution[0] {
	case '[':
		if err := json.Unmarshal(jp.Distribution, &p.Distribution); err != nil {
			return nil, &tree.MalformedTreeError{Reason: fmt.Sprintf("leaf %s has an invalid distribution: %v", path, err)}
		}
	default:
		cd := &continuousDistribution{}
		if err := json.Unmarshal(jp.Distribution, cd); err != nil {
			return nil, &tree.MalformedTreeError{Reason: fmt.Sprintf("leaf %s has an invalid distribution: %v", path, err)}
		}
		p.StandardDeviation, p.Min, p.Max = cd.StandardDeviation, cd.Min, cd.Max
	}
	return p, nil
}

func encodeNode(n *tree.Node, rule *property.DecisionRule, major int) (*node, error) {
	jn := &node{DecisionRule: rule, OutputValues: n.OutputValues}
	if n.Prediction != nil && (n.Kind == tree.LeafNode || major >= 2) {
		if err := encodePrediction(jn, n.Prediction, major); err != nil {
			return nil, err
		}
	}
	for _, c := range n.Children {
		jc, err := encodeNode(c.Node, c.Rule, major)
		if err != nil {
			return nil, err
		}
		jn.Children = append(jn.Children, jc)
	}
	return jn, nil
}

func encodePrediction(jn *node, p *tree.Prediction, major int) error {
	if major < 2 {
		jn.PredictedValue = p.Value
		jn.Confidence = p.Confidence
		jn.StandardDeviation = p.StandardDeviation
		return nil
	}
	jp := &prediction{Value: p.Value, Confidence: p.Confidence, NbSamples: p.NbSamples}
	var d interface{}
	switch {
	case p.Distribution != nil:
		d = p.Distribution
	case p.StandardDeviation != nil || p.Min != nil || p.Max != nil:
		d = &continuousDistribution{StandardDeviation: p.StandardDeviation, Min: p.Min, Max: p.Max}
	}
	if d != nil {
		data, err := json.Marshal(d)
		if err != nil {
			return err
		}
		jp.Distribution = data
	}
	jn.Prediction = jp
	return nil
}
