// Package querytree models the nodes of a federated query plan together with
// their result structures, and normalizes the results of union branches into
// one output shape.
//
// Node is a closed set of variants. Code that consumes nodes switches over
// the concrete types exhaustively.
package querytree

import (
	"fmt"

	"github.com/mmcat/resultshape"
)

// Node is one node of a query plan. The implementations in this package are
// the only ones.
type Node interface {
	// Structure is the shape of the data the node produces. May be nil
	// before the planner has assigned one.
	Structure() *resultshape.Structure
	isNode()
}

// Datasource fetches one kind from one datasource.
type Datasource struct {
	Identifier string // datasource identifier
	KindName   string
	Shape      *resultshape.Structure
}

// JoinType is how two kinds are joined.
type JoinType string

const (
	JoinIDRef JoinType = "IdRef"
	JoinValue JoinType = "Value"
)

// Join joins two subplans on a shared variable.
type Join struct {
	From      Node
	To        Node
	Variable  resultshape.Binding
	Type      JoinType
	Recursion int // some datasources join a kind with itself recursively
	Optional  bool
	Shape     *resultshape.Structure
}

// Filter keeps the child's instances satisfying Condition.
type Filter struct {
	Child     Node
	Condition string
	Shape     *resultshape.Structure
}

// Minus removes from Primary the instances also produced by Subtracted.
type Minus struct {
	Primary    Node
	Subtracted Node
	Shape      *resultshape.Structure
}

// Optional extends Primary with Optional where it matches.
type Optional struct {
	Primary  Node
	Optional Node
	Shape    *resultshape.Structure
}

// Union concatenates the instances of its branches, each normalized to
// Shape.
type Union struct {
	Branches []Node
	Shape    *resultshape.Structure
}

func (n *Datasource) Structure() *resultshape.Structure { return n.Shape }
func (n *Join) Structure() *resultshape.Structure       { return n.Shape }
func (n *Filter) Structure() *resultshape.Structure     { return n.Shape }
func (n *Minus) Structure() *resultshape.Structure      { return n.Shape }
func (n *Optional) Structure() *resultshape.Structure   { return n.Shape }
func (n *Union) Structure() *resultshape.Structure      { return n.Shape }

func (*Datasource) isNode() {}
func (*Join) isNode()       {}
func (*Filter) isNode()     {}
func (*Minus) isNode()      {}
func (*Optional) isNode()   {}
func (*Union) isNode()      {}

// TypeName returns the serialized type tag of a node.
func TypeName(n Node) string {
	switch n.(type) {
	case *Datasource:
		return "datasource"
	case *Join:
		return "join"
	case *Filter:
		return "filter"
	case *Minus:
		return "minus"
	case *Optional:
		return "optional"
	case *Union:
		return "union"
	default:
		panic(fmt.Sprintf("unknown query node %T", n))
	}
}

// Children returns the direct children of n in plan order.
func Children(n Node) []Node {
	switch n := n.(type) {
	case *Datasource:
		return nil
	case *Join:
		return []Node{n.From, n.To}
	case *Filter:
		return []Node{n.Child}
	case *Minus:
		return []Node{n.Primary, n.Subtracted}
	case *Optional:
		return []Node{n.Primary, n.Optional}
	case *Union:
		return n.Branches
	default:
		panic(fmt.Sprintf("unknown query node %T", n))
	}
}

// ReplaceChild swaps a direct child of parent (not a deeper descendant) for
// replacement and reports whether original was found. original itself is
// left untouched.
func ReplaceChild(parent, original, replacement Node) bool {
	switch p := parent.(type) {
	case *Datasource:
		return false
	case *Join:
		return replaceIn(original, replacement, &p.From, &p.To)
	case *Filter:
		return replaceIn(original, replacement, &p.Child)
	case *Minus:
		return replaceIn(original, replacement, &p.Primary, &p.Subtracted)
	case *Optional:
		return replaceIn(original, replacement, &p.Primary, &p.Optional)
	case *Union:
		for i, b := range p.Branches {
			if b == original {
				p.Branches[i] = replacement
				return true
			}
		}
		return false
	default:
		panic(fmt.Sprintf("unknown query node %T", parent))
	}
}

func replaceIn(original, replacement Node, slots ...*Node) bool {
	for _, slot := range slots {
		if *slot == original {
			*slot = replacement
			return true
		}
	}
	return false
}

// Walk visits the plan depth-first, parents before children.
func Walk(n Node, fn func(Node) bool) {
	if n == nil || !fn(n) {
		return
	}
	for _, c := range Children(n) {
		Walk(c, fn)
	}
}

// Parents maps every node below root to its parent.
func Parents(root Node) map[Node]Node {
	parents := make(map[Node]Node)
	Walk(root, func(n Node) bool {
		for _, c := range Children(n) {
			parents[c] = n
		}
		return true
	})
	return parents
}
