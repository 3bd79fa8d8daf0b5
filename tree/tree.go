/*
Package tree implements local decisions with versioned decision trees: it
walks the tree of each output with a context, merging the predictions of
several leaves when a property is missing and the tree allows it.
*/
package tree

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/matthieu-boussard/craft-ai-client-python/clock"
	"github.com/matthieu-boussard/craft-ai-client-python/property"
	"golang.org/x/mod/semver"
)

// Configuration describes the properties a tree is built on.
type Configuration struct {
	// Declarations of the context properties, outputs included
	Context map[string]property.Spec
	// Names of the predicted properties
	Output []string
	// Seconds, informative only
	TimeQuantum    float64
	LearningPeriod float64
	// When true a missing value always leads to a null decision, otherwise
	// version 2 trees merge the leaves below a branch on a missing
	// optional property.
	DeactivateMissingValues bool
}

/*
Tree represents a versioned decision tree. It holds one tree of nodes for
each of the output properties of its configuration.
*/
type Tree struct {
	// ID given by the store holding the tree, if any
	ID            string
	Version       string
	Configuration Configuration
	Trees         map[string]*Node
}

/*
New takes a version, a configuration and the root node for each output and
returns the corresponding tree, or a *MalformedTreeError if they do not
make a valid tree.
*/
func New(version string, cfg Configuration, trees map[string]*Node) (*Tree, error) {
	t := &Tree{Version: version, Configuration: cfg, Trees: trees}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

/*
Major returns the major version of the tree, or 0 if its version is not a
valid semantic version.
*/
func (t *Tree) Major() int {
	v := "v" + t.Version
	if !semver.IsValid(v) {
		return 0
	}
	major, err := strconv.Atoi(strings.TrimPrefix(semver.Major(v), "v"))
	if err != nil {
		return 0
	}
	return major
}

/*
Validate returns a *MalformedTreeError if the tree has an unsupported
version, if an output has no declaration or no tree, or if a node does not
follow the expected structure, nil otherwise.
*/
func (t *Tree) Validate() error {
	if t.Version == "" {
		return malformed("unable to find the version informations")
	}
	if !semver.IsValid("v" + t.Version) {
		return malformed("%q is not a valid version", t.Version)
	}
	if m := t.Major(); m != 1 && m != 2 {
		return malformed("%s is not a supported version", t.Version)
	}
	cfg := t.Configuration
	if len(cfg.Output) == 0 {
		return malformed("no output property found in configuration")
	}
	for name, spec := range cfg.Context {
		if !spec.Type.Valid() {
			return malformed("property %s has unknown type %q", name, spec.Type)
		}
		if spec.Generated() && !spec.Type.IsTime() && spec.Type != property.Timezone {
			return malformed("property %s of type %s cannot be generated", name, spec.Type)
		}
	}
	for _, output := range cfg.Output {
		if _, ok := cfg.Context[output]; !ok {
			return malformed("output property %s is not declared in the configuration", output)
		}
		root, ok := t.Trees[output]
		if !ok || root == nil {
			return malformed("no tree found for output property %s", output)
		}
		err := Traverse(root, false, func(path string, n *Node) error {
			return t.validateNode(path, n)
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func (t *Tree) validateNode(path string, n *Node) error {
	switch n.Kind {
	case LeafNode:
		if n.Prediction == nil {
			return malformed("leaf %s has no prediction", path)
		}
		return nil
	case BranchNode:
	default:
		return malformed("node %s is of unknown kind %d", path, n.Kind)
	}
	if len(n.Children) == 0 {
		return malformed("branch %s has no children", path)
	}
	prop := n.Property()
	if prop == "" {
		return malformed("branch %s has a child without decision rule", path)
	}
	if _, ok := t.Configuration.Context[prop]; !ok {
		return malformed("property %s used at %s is not declared in the configuration", prop, path)
	}
	for i, c := range n.Children {
		if c.Node == nil || c.Rule == nil {
			return malformed("child %d of branch %s is incomplete", i, path)
		}
		if c.Rule.Property != prop {
			return malformed("branch %s mixes rules on properties %s and %s", path, prop, c.Rule.Property)
		}
		if !c.Rule.Operator.Valid() {
			return malformed("branch %s has a rule with unknown operator %q", path, c.Rule.Operator)
		}
	}
	return nil
}

/*
WithDeactivateMissingValues returns a copy of the tree sharing its nodes
with the missing values policy of its configuration set to the given value.
*/
func (t *Tree) WithDeactivateMissingValues(deactivate bool) *Tree {
	cp := *t
	cp.Configuration.DeactivateMissingValues = deactivate
	return &cp
}

/*
Decide takes a context and returns the decisions of the tree for all its
outputs. The context is expected to hold the values of the time properties
already, see DecideAt and RebuildContext otherwise. A *NullDecisionError is
returned when a decision cannot be taken for an output.
*/
func (t *Tree) Decide(ctx property.Context) (*Result, error) {
	if t == nil {
		return nil, fmt.Errorf("nil tree cannot take decisions")
	}
	if err := t.checkContext(ctx); err != nil {
		return nil, err
	}
	result := &Result{Output: make(map[string]*Decision, len(t.Configuration.Output)), Context: ctx}
	for _, output := range t.Configuration.Output {
		d, err := t.decideOutput(output, ctx)
		if err != nil {
			return nil, err
		}
		result.Output[output] = d
	}
	return result, nil
}

/*
DecideAt takes the state of the properties read from the environment and an
optional decision time, rebuilds the full context with RebuildContext and
returns the decisions of the tree for it.
*/
func (t *Tree) DecideAt(state property.Context, tm *clock.Time) (*Result, error) {
	if t == nil {
		return nil, fmt.Errorf("nil tree cannot take decisions")
	}
	ctx, err := RebuildContext(t.Configuration, state, tm)
	if err != nil {
		return nil, err
	}
	return t.Decide(ctx)
}

/*
DecideOutput takes the name of an output property and a context and returns
the decision of the tree for that output only.
*/
func (t *Tree) DecideOutput(output string, ctx property.Context) (*Decision, error) {
	if _, ok := t.Trees[output]; !ok {
		return nil, fmt.Errorf("tree has no output property %s", output)
	}
	if err := t.checkContext(ctx); err != nil {
		return nil, err
	}
	return t.decideOutput(output, ctx)
}

func (t *Tree) checkContext(ctx property.Context) error {
	names := make([]string, 0, len(t.Configuration.Context))
	for name := range t.Configuration.Context {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := t.Configuration.Context[name].Valid(name, ctx.Get(name)); err != nil {
			return fmt.Errorf("invalid context: %w", err)
		}
	}
	return nil
}

/*
Explain takes a decision taken by the tree and returns the decision rules
that lead to it as a single human readable sentence.
*/
func (t *Tree) Explain(d *Decision) (string, error) {
	return property.FormatRules(t.Configuration.Context, d.DecisionRules)
}

/*
Traverse takes a root node, a bottomup boolean and an error-returning
function and goes through the subtree running the function with the
decision path and every traversed node. The function is called for a parent
node before its children if bottomup is false, after them otherwise. If a
call to the function returns an error, the traversing is aborted and the
error is returned.
*/
func Traverse(root *Node, bottomup bool, f func(path string, n *Node) error) error {
	return traverse(root, rootPath, bottomup, f)
}

func traverse(n *Node, path string, bottomup bool, f func(string, *Node) error) error {
	if !bottomup {
		if err := f(path, n); err != nil {
			return err
		}
	}
	for i, c := range n.Children {
		if c.Node == nil {
			continue
		}
		if err := traverse(c.Node, childPath(path, i), bottomup, f); err != nil {
			return err
		}
	}
	if bottomup {
		return f(path, n)
	}
	return nil
}

func (t *Tree) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "decision tree v%s\n", t.Version)
	for _, output := range t.Configuration.Output {
		root, ok := t.Trees[output]
		if !ok {
			continue
		}
		fmt.Fprintf(&b, "%s:\n%s", output, subtreeString(root, nil, rootPath))
	}
	return b.String()
}

func subtreeString(n *Node, rule *property.DecisionRule, path string) string {
	result := fmt.Sprintf("[%s]\n", path)
	if rule != nil {
		result = fmt.Sprintf("%s{ %v }\n", result, rule)
	}
	if n.Kind == LeafNode && n.Prediction != nil {
		result = fmt.Sprintf("%s{ %v }\n", result, n.Prediction)
	}
	if len(n.Children) > 0 {
		result = fmt.Sprintf("%s|\n", result)
	} else {
		result = fmt.Sprintf("%s \n", result)
	}
	for i, c := range n.Children {
		for j, line := range strings.Split(subtreeString(c.Node, c.Rule, childPath(path, i)), "\n") {
			if len(line) == 0 {
				continue
			}
			switch {
			case j == 0:
				result = fmt.Sprintf("%s|__%s\n", result, line)
			case i == len(n.Children)-1:
				result = fmt.Sprintf("%s   %s\n", result, line)
			default:
				result = fmt.Sprintf("%s|  %s\n", result, line)
			}
		}
	}
	return result
}
