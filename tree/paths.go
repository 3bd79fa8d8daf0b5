package tree

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/matthieu-boussard/craft-ai-client-python/property"
)

/*
Paths returns the decision paths of every node of the subtree rooted at
the given node, the root itself being "0".
*/
func Paths(root *Node) map[string]struct{} {
	paths := make(map[string]struct{})
	_ = Traverse(root, false, func(path string, _ *Node) error {
		paths[path] = struct{}{}
		return nil
	})
	return paths
}

// Paths returns the decision paths of the tree of the given output.
func (t *Tree) Paths(output string) (map[string]struct{}, error) {
	root, ok := t.Trees[output]
	if !ok {
		return nil, fmt.Errorf("tree has no output property %s", output)
	}
	return Paths(root), nil
}

/*
NodeAt takes a root node and a decision path and returns the node the path
leads to, or ErrUnknownDecisionPath.
*/
func NodeAt(root *Node, path string) (*Node, error) {
	n, _, err := follow(root, path)
	return n, err
}

/*
RulesAt takes a root node and a decision path and returns the decision
rules of the nodes along the path, or ErrUnknownDecisionPath.
*/
func RulesAt(root *Node, path string) ([]*property.DecisionRule, error) {
	_, rules, err := follow(root, path)
	return rules, err
}

func follow(root *Node, path string) (*Node, []*property.DecisionRule, error) {
	indices, err := parsePath(path)
	if err != nil {
		return nil, nil, err
	}
	n := root
	rules := make([]*property.DecisionRule, 0, len(indices))
	for _, i := range indices {
		if i >= len(n.Children) {
			return nil, nil, fmt.Errorf("%w %s", ErrUnknownDecisionPath, path)
		}
		rules = append(rules, n.Children[i].Rule)
		n = n.Children[i].Node
	}
	return n, rules, nil
}

func parsePath(path string) ([]int, error) {
	parts := strings.Split(path, "-")
	if parts[0] != rootPath {
		return nil, fmt.Errorf("%w %s", ErrUnknownDecisionPath, path)
	}
	indices := make([]int, len(parts)-1)
	for k, p := range parts[1:] {
		i, err := strconv.Atoi(p)
		if err != nil || i < 0 {
			return nil, fmt.Errorf("%w %s", ErrUnknownDecisionPath, path)
		}
		indices[k] = i
	}
	return indices, nil
}

/*
Neighbours takes a root node, a decision path, a maximum depth and an
includeSelf boolean and returns the sorted decision paths of the siblings of
the node at the path and of its ancestors, up to maxDepth levels: level 1
holds the siblings of the node itself, level 2 the siblings of its parent,
and so on. A negative maxDepth walks up to the children of the root. The
path itself is part of the result if includeSelf is true.

ErrUnknownDecisionPath is returned if the path does not lead to a node.
*/
func Neighbours(root *Node, path string, maxDepth int, includeSelf bool) ([]string, error) {
	if _, err := NodeAt(root, path); err != nil {
		return nil, err
	}
	indices, _ := parsePath(path)
	depth := len(indices)
	if maxDepth < 0 || maxDepth > depth {
		maxDepth = depth
	}
	var neighbours []string
	if includeSelf {
		neighbours = append(neighbours, path)
	}
	for level := 1; level <= maxDepth; level++ {
		ancestor := indices[:depth-level+1]
		parentIndices := ancestor[:len(ancestor)-1]
		parent, _ := NodeAt(root, joinPath(parentIndices))
		for i := range parent.Children {
			if i == ancestor[len(ancestor)-1] {
				continue
			}
			neighbours = append(neighbours, childPath(joinPath(parentIndices), i))
		}
	}
	sort.Strings(neighbours)
	return neighbours, nil
}

func joinPath(indices []int) string {
	path := rootPath
	for _, i := range indices {
		path = childPath(path, i)
	}
	return path
}

type pathKey struct {
	id     string
	tree   *Tree
	output string
}

/*
PathCache memoizes the decision paths of trees. Trees are identified by
their ID when they have one, by their address otherwise. A PathCache is
safe for concurrent use, its zero value is ready to use.
*/
type PathCache struct {
	lock  sync.Mutex
	paths map[pathKey]map[string]struct{}
}

// Paths returns the decision paths of the tree of the given output.
func (pc *PathCache) Paths(t *Tree, output string) (map[string]struct{}, error) {
	key := pathKey{id: t.ID, output: output}
	if t.ID == "" {
		key.tree = t
	}
	pc.lock.Lock()
	defer pc.lock.Unlock()
	if paths, ok := pc.paths[key]; ok {
		return paths, nil
	}
	paths, err := t.Paths(output)
	if err != nil {
		return nil, err
	}
	if pc.paths == nil {
		pc.paths = make(map[pathKey]map[string]struct{})
	}
	pc.paths[key] = paths
	return paths, nil
}

// Contains returns whether the tree of the given output has a node at path.
func (pc *PathCache) Contains(t *Tree, output, path string) (bool, error) {
	paths, err := pc.Paths(t, output)
	if err != nil {
		return false, err
	}
	_, ok := paths[path]
	return ok, nil
}

// Forget drops the paths memoized for the tree.
func (pc *PathCache) Forget(t *Tree) {
	pc.lock.Lock()
	defer pc.lock.Unlock()
	for k := range pc.paths {
		if (t.ID != "" && k.id == t.ID) || k.tree == t {
			delete(pc.paths, k)
		}
	}
}
