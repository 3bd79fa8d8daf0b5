package tree

import (
	"strconv"

	"github.com/matthieu-boussard/craft-ai-client-python/property"
)

const rootPath = "0"

func childPath(path string, i int) string {
	return path + "-" + strconv.Itoa(i)
}

type walker struct {
	tree   *Tree
	output string
	ctx    property.Context
}

func (t *Tree) decideOutput(output string, ctx property.Context) (*Decision, error) {
	w := &walker{tree: t, output: output, ctx: ctx}
	return w.walk(t.Trees[output], rootPath, nil)
}

/*
aggregates returns whether an unknown value for the given property lets the
walk merge the leaves below the branch rather than fail.
*/
func (w *walker) aggregates(prop string) bool {
	cfg := w.tree.Configuration
	return w.tree.Major() >= 2 && !cfg.DeactivateMissingValues && cfg.Context[prop].IsOptional
}

/*
next takes a branch and returns the index of the child to follow for the
walker's context. It returns -1 and a nil error when the value of the
branch's property is unknown and the walk should merge all the children.
*/
func (w *walker) next(n *Node, path string) (int, error) {
	prop := n.Property()
	value := w.ctx.Get(prop)
	if value == property.Optional {
		if i := n.optionalChild(); i >= 0 {
			return i, nil
		}
	}
	if property.IsUnknown(value) {
		if w.aggregates(prop) {
			return -1, nil
		}
		return -1, missingValue(w.output, prop, path)
	}
	i := n.Child(value)
	if i < 0 {
		return -1, unmatchedValue(w.output, prop, value, path, n.rules())
	}
	return i, nil
}

func (w *walker) walk(n *Node, path string, rules []*property.DecisionRule) (*Decision, error) {
	for n.Kind == BranchNode {
		i, err := w.next(n, path)
		if err != nil {
			return nil, err
		}
		if i < 0 {
			return w.aggregate(n, path, rules)
		}
		rules = append(rules, n.Children[i].Rule)
		path = childPath(path, i)
		n = n.Children[i].Node
	}
	p := n.Prediction
	if !w.informative(p) {
		return nil, emptyLeaf(w.output, path)
	}
	return &Decision{
		PredictedValue:    p.Value,
		Confidence:        p.Confidence,
		NbSamples:         p.NbSamples,
		StandardDeviation: p.StandardDeviation,
		Min:               p.Min,
		Max:               p.Max,
		Distribution:      p.Distribution,
		DecisionRules:     rules,
		DecisionPath:      path,
	}, nil
}

// Version 1 leaves carry no sample counts.
func (w *walker) informative(p *Prediction) bool {
	if p == nil || p.Value == nil {
		return false
	}
	return w.tree.Major() < 2 || p.NbSamples > 0
}
