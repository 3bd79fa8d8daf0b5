package tree

import (
	"github.com/matthieu-boussard/craft-ai-client-python/property"
)

// Kind tells leaves and branches apart.
type Kind int

const (
	// LeafNode nodes hold a Prediction and no children.
	LeafNode Kind = iota
	// BranchNode nodes hold children and ask about a single property.
	BranchNode
)

func (k Kind) String() string {
	if k == BranchNode {
		return "branch"
	}
	return "leaf"
}

/*
Node is a node of a decision tree
*/
type Node struct {
	Kind Kind
	// The prediction for contexts reaching a leaf. Branches of version 2
	// trees may carry one too, it is never used for decisions.
	Prediction *Prediction
	// The children of a branch, tried in order. All their rules apply to
	// the same property.
	Children []Child
	// The classes the distributions of the tree's leaves are aligned with.
	// Only set on the root of trees predicting a discrete output.
	OutputValues []interface{}
}

// Child is a subtree of a branch and the rule selecting it.
type Child struct {
	Rule *property.DecisionRule
	Node *Node
}

// NewLeaf returns a leaf holding the given prediction.
func NewLeaf(p *Prediction) *Node {
	return &Node{Kind: LeafNode, Prediction: p}
}

// NewBranch returns a branch with the given children.
func NewBranch(children ...Child) *Node {
	return &Node{Kind: BranchNode, Children: children}
}

/*
Property returns the name of the property the branch asks about, that is
the property of the rule of its first child. It returns an empty string for
leaves.
*/
func (n *Node) Property() string {
	if n.Kind != BranchNode || len(n.Children) == 0 || n.Children[0].Rule == nil {
		return ""
	}
	return n.Children[0].Rule.Property
}

/*
Child takes a value for the branch's property and returns the index of the
first child whose rule matches it, or -1 if none does.
*/
func (n *Node) Child(value interface{}) int {
	for i, c := range n.Children {
		if c.Rule.Matches(value) {
			return i
		}
	}
	return -1
}

// optionalChild returns the index of the child selecting contexts where the
// property is absent, or -1.
func (n *Node) optionalChild() int {
	for i, c := range n.Children {
		if c.Rule.IsOptionalBranch() {
			return i
		}
	}
	return -1
}

func (n *Node) rules() []*property.DecisionRule {
	rules := make([]*property.DecisionRule, len(n.Children))
	for i, c := range n.Children {
		rules[i] = c.Rule
	}
	return rules
}
