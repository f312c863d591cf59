package resultshape

import (
	"cmp"
	"slices"
	"strings"
)

// Binding names the logical query value a Structure node represents. Two
// nodes from independently built trees describe the same data iff their
// bindings are equal.
type Binding struct {
	Name string `json:"name" yaml:"name"`
	// Original is true for variables written in the query itself and false
	// for the ones the planner generated.
	Original bool `json:"isOriginal" yaml:"isOriginal"`
}

// NewBinding returns an original binding with the given name.
func NewBinding(name string) Binding {
	return Binding{Name: name, Original: true}
}

// Compare orders bindings by name, generated before original.
func (b Binding) Compare(other Binding) int {
	if c := cmp.Compare(b.Name, other.Name); c != 0 {
		return c
	}
	switch {
	case b.Original == other.Original:
		return 0
	case !b.Original:
		return -1
	default:
		return 1
	}
}

func (b Binding) String() string {
	if b.Original {
		return "?" + b.Name
	}
	return "#" + b.Name
}

// Operator is the kind of a derived value.
type Operator string

const (
	OperatorCount         Operator = "count"
	OperatorCountDistinct Operator = "countDistinct"
	OperatorSum           Operator = "sum"
	OperatorMin           Operator = "min"
	OperatorMax           Operator = "max"
	OperatorAvg           Operator = "avg"
	OperatorConcat        Operator = "concat"
)

// Computation marks a derived value (typically an aggregate) whose reference
// point is the Structure node it is attached to.
type Computation struct {
	Operator  Operator
	Arguments []Binding
}

// Compare is the total order used to deduplicate computations.
func (c Computation) Compare(other Computation) int {
	if r := cmp.Compare(c.Operator, other.Operator); r != 0 {
		return r
	}
	return slices.CompareFunc(c.Arguments, other.Arguments, Binding.Compare)
}

func (c Computation) String() string {
	args := make([]string, len(c.Arguments))
	for i, a := range c.Arguments {
		args[i] = a.String()
	}
	return string(c.Operator) + "(" + strings.Join(args, ", ") + ")"
}
