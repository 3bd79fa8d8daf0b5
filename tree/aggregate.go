package tree

import (
	"fmt"

	"github.com/matthieu-boussard/craft-ai-client-python/property"
	"github.com/matthieu-boussard/craft-ai-client-python/stats"
)

type leaf struct {
	path       string
	prediction *Prediction
}

/*
aggregate merges the predictions of every leaf reachable from the given
branch. Branches below it are walked as usual, except that a child whose
rule cannot be satisfied contributes no leaf instead of failing the walk.
*/
func (w *walker) aggregate(n *Node, path string, rules []*property.DecisionRule) (*Decision, error) {
	leaves, err := w.collect(n, path, nil)
	if err != nil {
		return nil, err
	}
	if len(leaves) == 0 {
		return nil, &NullDecisionError{
			Output:   w.output,
			Property: n.Property(),
			Value:    w.ctx.Get(n.Property()),
			Path:     path,
			Rules:    rules,
			Message:  fmt.Sprintf("no leaf with samples can be reached from the decision path %s", path),
		}
	}
	d := &Decision{
		DecisionRules:    rules,
		DecisionPath:     path,
		AggregatedLeaves: len(leaves),
	}
	if w.tree.Configuration.Context[w.output].Type.IsDiscrete() {
		err = w.mergeDistributions(d, leaves)
	} else {
		err = mergeValues(d, leaves)
	}
	if err != nil {
		return nil, fmt.Errorf("aggregating leaves below %s: %w", path, err)
	}
	return d, nil
}

func (w *walker) collect(n *Node, path string, leaves []leaf) ([]leaf, error) {
	if n.Kind == LeafNode {
		if w.informative(n.Prediction) {
			leaves = append(leaves, leaf{path, n.Prediction})
		}
		return leaves, nil
	}
	prop := n.Property()
	value := w.ctx.Get(prop)
	if value == property.Optional {
		if i := n.optionalChild(); i >= 0 {
			return w.collect(n.Children[i].Node, childPath(path, i), leaves)
		}
	}
	if property.IsUnknown(value) {
		if !w.aggregates(prop) {
			return nil, missingValue(w.output, prop, path)
		}
		var err error
		for i, c := range n.Children {
			leaves, err = w.collect(c.Node, childPath(path, i), leaves)
			if err != nil {
				return nil, err
			}
		}
		return leaves, nil
	}
	if i := n.Child(value); i >= 0 {
		return w.collect(n.Children[i].Node, childPath(path, i), leaves)
	}
	return leaves, nil
}

func mergeValues(d *Decision, leaves []leaf) error {
	means := make([]float64, len(leaves))
	sizes := make([]float64, len(leaves))
	stds := make([]float64, len(leaves))
	withStds := true
	var lo, hi *float64
	for i, l := range leaves {
		p := l.prediction
		v, ok := p.Value.(float64)
		if !ok {
			return malformed("leaf %s predicts non numeric value %v for a continuous output", l.path, p.Value)
		}
		means[i] = v
		sizes[i] = float64(p.NbSamples)
		if p.StandardDeviation == nil {
			withStds = false
		} else {
			stds[i] = *p.StandardDeviation
		}
		if p.Min != nil && (lo == nil || *p.Min < *lo) {
			lo = p.Min
		}
		if p.Max != nil && (hi == nil || *p.Max > *hi) {
			hi = p.Max
		}
	}
	if !withStds {
		stds = nil
	}
	s, err := stats.MeanValues(means, sizes, stds)
	if err != nil {
		return err
	}
	d.PredictedValue = s.Mean
	d.NbSamples = int(s.Size)
	d.StandardDeviation = s.StandardDeviation
	d.Min = lo
	d.Max = hi
	return nil
}

func (w *walker) mergeDistributions(d *Decision, leaves []leaf) error {
	distributions := make([][]float64, len(leaves))
	sizes := make([]float64, len(leaves))
	for i, l := range leaves {
		if len(l.prediction.Distribution) == 0 {
			return malformed("leaf %s has no distribution", l.path)
		}
		distributions[i] = l.prediction.Distribution
		sizes[i] = float64(l.prediction.NbSamples)
	}
	distribution, size, err := stats.MeanDistributions(distributions, sizes)
	if err != nil {
		return err
	}
	values := w.tree.Trees[w.output].OutputValues
	best := stats.ArgMax(distribution)
	if best < 0 || best >= len(values) {
		return malformed("output values of %s do not match the leaves distributions", w.output)
	}
	d.PredictedValue = values[best]
	d.Distribution = distribution
	d.NbSamples = int(size)
	return nil
}
