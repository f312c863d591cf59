package resultshape

import "fmt"

// RelationKind tells where the target root sits in the source tree.
type RelationKind int

const (
	// SameRoot means the target root is bound like the source root.
	SameRoot RelationKind = iota
	// DescendantRoot means the target root is bound like a proper descendant
	// of the source root, so the reshape denormalizes.
	DescendantRoot
)

func (k RelationKind) String() string {
	switch k {
	case SameRoot:
		return "SameRoot"
	case DescendantRoot:
		return "DescendantRoot"
	default:
		return fmt.Sprintf("RelationKind(%d)", int(k))
	}
}

// RootRelation is the outcome of matching two roots.
type RootRelation struct {
	Kind RelationKind
	// Path runs from just below the source root down to the new root,
	// inclusive. Empty for SameRoot.
	Path []*Structure
}

func (r RootRelation) String() string {
	if r.Kind == SameRoot {
		return r.Kind.String()
	}
	labels := make([]string, len(r.Path))
	for i, node := range r.Path {
		labels[i] = node.Label
	}
	return fmt.Sprintf("%s(%s)", r.Kind, truncateList(labels, 0))
}

// Match is the correspondence between a source and a target structure.
type Match struct {
	source       *Structure
	target       *Structure
	relation     RootRelation
	counterparts map[*Structure]*Structure // target node -> source node
}

// MatchRoots pairs every node of target with the source node carrying the
// same binding and classifies the root relation. Labels play no part. It
// fails with ErrUnmatched when some target binding is absent from source.
func MatchRoots(source, target *Structure) (*Match, error) {
	if source == nil || target == nil {
		return nil, fmt.Errorf("match roots: source and target are required")
	}

	m := &Match{
		source:       source,
		target:       target,
		counterparts: make(map[*Structure]*Structure),
	}

	var unmatched *UnmatchedError
	target.Walk(func(t *Structure) bool {
		found := source.TryFindDescendant(t.Binding)
		if found == nil {
			unmatched = &UnmatchedError{
				Binding: t.Binding,
				Label:   t.Label,
				Source:  structureSummary(source, 5),
			}
			return false
		}
		m.counterparts[t] = found
		return true
	})
	if unmatched != nil {
		return nil, unmatched
	}

	newRoot := m.counterparts[target]
	if newRoot == source {
		m.relation = RootRelation{Kind: SameRoot}
	} else {
		m.relation = RootRelation{
			Kind: DescendantRoot,
			Path: append(newRoot.PathFromRoot(), newRoot),
		}
	}
	return m, nil
}

// Source returns the source structure.
func (m *Match) Source() *Structure { return m.source }

// Target returns the target structure.
func (m *Match) Target() *Structure { return m.target }

// Relation returns the root relation.
func (m *Match) Relation() RootRelation { return m.relation }

// Counterpart returns the source node matched to a target node, or nil if
// t is not part of the target tree.
func (m *Match) Counterpart(t *Structure) *Structure {
	return m.counterparts[t]
}

// NewRoot returns the source node the target root corresponds to.
func (m *Match) NewRoot() *Structure {
	return m.counterparts[m.target]
}
