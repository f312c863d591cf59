package resultshape

import (
	"fmt"
	"slices"
	"sort"
	"strings"
)

// Structure is one node of a result-structure tree: it describes one possible
// output shape of a query-plan node.
//
// A parent owns its children; the parent pointer and the incoming signature
// are lookup fields only. Trees are mutated only while being built by a single
// owner. Once handed to MatchRoots or Compile they must not change.
type Structure struct {
	// Label is the key under which this node's value is stored in its
	// parent's record. Unique among siblings.
	Label string
	// Binding identifies the logical value. Equality and ordering of nodes are
	// defined by it alone.
	Binding Binding
	// IsList is true iff the edge from the parent to this node is one-to-many.
	// On a root it means the whole instance is a list.
	IsList bool

	children []edge // sorted by signature

	parent              *Structure
	signatureFromParent Signature

	computations []Computation // sorted, deduplicated
}

type edge struct {
	signature Signature
	node      *Structure
}

// NewStructure creates a detached node. An empty label defaults to the
// binding name.
func NewStructure(label string, binding Binding, isList bool) *Structure {
	if label == "" {
		label = binding.Name
	}
	return &Structure{
		Label:   label,
		Binding: binding,
		IsList:  isList,
	}
}

// AddChild attaches child under signature and returns the child. A child
// already stored under the same signature is detached and replaced.
func (s *Structure) AddChild(child *Structure, signature Signature) *Structure {
	if child.parent != nil {
		// Moving a node between trees; drop the stale edge first.
		_, _ = child.parent.RemoveChild(child.signatureFromParent)
	}
	i, found := s.search(signature)
	if found {
		old := s.children[i].node
		old.parent = nil
		old.signatureFromParent = Signature{}
		s.children[i].node = child
	} else {
		s.children = slices.Insert(s.children, i, edge{signature: signature, node: child})
	}
	child.parent = s
	child.signatureFromParent = signature
	return child
}

// RemoveChild detaches and returns the child under signature.
func (s *Structure) RemoveChild(signature Signature) (*Structure, error) {
	i, found := s.search(signature)
	if !found {
		return nil, fmt.Errorf("remove child %s of %q: %w", signature, s.Label, ErrNotFound)
	}
	child := s.children[i].node
	s.children = slices.Delete(s.children, i, i+1)
	child.parent = nil
	child.signatureFromParent = Signature{}
	return child, nil
}

// Child returns the child under signature, or nil.
func (s *Structure) Child(signature Signature) *Structure {
	if i, found := s.search(signature); found {
		return s.children[i].node
	}
	return nil
}

func (s *Structure) search(signature Signature) (int, bool) {
	return slices.BinarySearchFunc(s.children, signature, func(e edge, sig Signature) int {
		return e.signature.Compare(sig)
	})
}

// Children returns the children in signature order.
func (s *Structure) Children() []*Structure {
	out := make([]*Structure, len(s.children))
	for i, e := range s.children {
		out[i] = e.node
	}
	return out
}

// ChildSignatures returns the child edge signatures in order.
func (s *Structure) ChildSignatures() []Signature {
	out := make([]Signature, len(s.children))
	for i, e := range s.children {
		out[i] = e.signature
	}
	return out
}

// Parent returns the parent node, or nil for a root.
func (s *Structure) Parent() *Structure {
	return s.parent
}

// SignatureFromParent returns the incoming edge signature. ok is false for a root.
func (s *Structure) SignatureFromParent() (sig Signature, ok bool) {
	return s.signatureFromParent, s.parent != nil
}

// IsLeaf reports whether the node has no children.
func (s *Structure) IsLeaf() bool {
	return len(s.children) == 0
}

// Root walks up to the root of the tree.
func (s *Structure) Root() *Structure {
	current := s
	for current.parent != nil {
		current = current.parent
	}
	return current
}

// IsDescendantOf reports whether ancestor lies strictly above s.
func (s *Structure) IsDescendantOf(ancestor *Structure) bool {
	for current := s.parent; current != nil; current = current.parent {
		if current == ancestor {
			return true
		}
	}
	return false
}

// TryFindDescendant returns the first node in depth-first, parent-first order
// (starting with s itself) bound to binding, or nil.
func (s *Structure) TryFindDescendant(binding Binding) *Structure {
	if s.Binding == binding {
		return s
	}
	for _, e := range s.children {
		if found := e.node.TryFindDescendant(binding); found != nil {
			return found
		}
	}
	return nil
}

// FindDescendant is TryFindDescendant that fails with ErrNotFound.
func (s *Structure) FindDescendant(binding Binding) (*Structure, error) {
	if found := s.TryFindDescendant(binding); found != nil {
		return found, nil
	}
	return nil, fmt.Errorf("no descendant of %q bound to %s: %w", s.Label, binding, ErrNotFound)
}

// TraverseSignature follows path as far as the tree allows and returns the
// deepest node reached. Segments that do not match an edge on their own are
// accumulated and retried together with the next segment, so composite edge
// signatures are found too.
func (s *Structure) TraverseSignature(path Signature) *Structure {
	current := s
	pending := EmptySignature()
	for _, base := range path.Bases() {
		pending = pending.Concat(base)
		if found := current.Child(pending); found != nil {
			current = found
			pending = EmptySignature()
		}
	}
	return current
}

// PathFromRoot returns the ancestors strictly between the root and s,
// root-side first. Both the root and s are excluded.
func (s *Structure) PathFromRoot() []*Structure {
	var path []*Structure
	for current := s.parent; current != nil && current.parent != nil; current = current.parent {
		path = append(path, current)
	}
	slices.Reverse(path)
	return path
}

// SignatureFromRoot concatenates the edge signatures from the root down to s.
func (s *Structure) SignatureFromRoot() Signature {
	if s.parent == nil {
		return EmptySignature()
	}
	path := s.PathFromRoot()
	sigs := make([]Signature, 0, len(path)+1)
	for _, node := range path {
		sigs = append(sigs, node.signatureFromParent)
	}
	// The path excludes s, so its own edge goes last.
	sigs = append(sigs, s.signatureFromParent)
	return ConcatSignatures(sigs...)
}

// Computations returns the computations referencing this node, in order.
func (s *Structure) Computations() []Computation {
	return slices.Clone(s.computations)
}

// HasComputation reports whether c is attached.
func (s *Structure) HasComputation(c Computation) bool {
	_, found := slices.BinarySearchFunc(s.computations, c, Computation.Compare)
	return found
}

// AddComputation attaches c and reports whether it was new.
func (s *Structure) AddComputation(c Computation) bool {
	i, found := slices.BinarySearchFunc(s.computations, c, Computation.Compare)
	if found {
		return false
	}
	c.Arguments = slices.Clone(c.Arguments)
	s.computations = slices.Insert(s.computations, i, c)
	return true
}

// Copy deep-copies the subtree rooted at s. The copy is a new root.
func (s *Structure) Copy() *Structure {
	return s.CopyAs(s.IsList)
}

// CopyAs deep-copies the subtree with the root's list flag replaced, for
// reusing a tree as a subtree of a different parent.
func (s *Structure) CopyAs(isList bool) *Structure {
	clone := NewStructure(s.Label, s.Binding, isList)
	for _, e := range s.children {
		clone.AddChild(e.node.Copy(), e.signature)
	}
	for _, c := range s.computations {
		clone.AddComputation(c)
	}
	return clone
}

// Compare orders nodes by binding.
func (s *Structure) Compare(other *Structure) int {
	return s.Binding.Compare(other.Binding)
}

// Equal reports whether both nodes carry the same binding.
func (s *Structure) Equal(other *Structure) bool {
	return other != nil && s.Binding == other.Binding
}

// Walk visits the subtree depth-first, parent before children, and stops
// descending below a node for which fn returns false.
func (s *Structure) Walk(fn func(*Structure) bool) {
	if !fn(s) {
		return
	}
	for _, e := range s.children {
		e.node.Walk(fn)
	}
}

// Depth returns the number of edges between s and its root.
func (s *Structure) Depth() int {
	depth := 0
	for current := s.parent; current != nil; current = current.parent {
		depth++
	}
	return depth
}

// String prints the subtree, one child per line:
//
//	a-rray[]:
//	    1: B
func (s *Structure) String() string {
	var b strings.Builder
	s.print(&b, 0)
	return b.String()
}

func (s *Structure) print(b *strings.Builder, depth int) {
	b.WriteString(s.Label)
	if s.IsList {
		b.WriteString("[]")
	}
	if len(s.computations) > 0 {
		names := make([]string, len(s.computations))
		for i, c := range s.computations {
			names[i] = c.String()
		}
		sort.Strings(names)
		b.WriteString(" {" + strings.Join(names, ", ") + "}")
	}
	if len(s.children) == 0 {
		return
	}
	b.WriteByte(':')
	for _, e := range s.children {
		b.WriteByte('\n')
		b.WriteString(strings.Repeat("    ", depth+1))
		b.WriteString(e.signature.String())
		b.WriteString(": ")
		e.node.print(b, depth+1)
	}
}
