package resultshape

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// wireStructure is the serialized form shared with the query client:
//
//	{"name": "a-rray", "isArray": true, "variable": {"name": "a", "isOriginal": true},
//	 "children": {"1": {...}}}
type wireStructure struct {
	Name         string                    `json:"name" yaml:"name"`
	IsArray      bool                      `json:"isArray" yaml:"isArray,omitempty"`
	Variable     *Binding                  `json:"variable,omitempty" yaml:"variable,omitempty"`
	Children     map[string]*wireStructure `json:"children,omitempty" yaml:"children,omitempty"`
	Computations []wireComputation         `json:"computations,omitempty" yaml:"computations,omitempty"`
}

type wireComputation struct {
	Operator  Operator  `json:"operator" yaml:"operator"`
	Arguments []Binding `json:"arguments,omitempty" yaml:"arguments,omitempty"`
}

func (s *Structure) toWire() *wireStructure {
	binding := s.Binding
	w := &wireStructure{
		Name:     s.Label,
		IsArray:  s.IsList,
		Variable: &binding,
	}
	if len(s.children) > 0 {
		w.Children = make(map[string]*wireStructure, len(s.children))
		for _, e := range s.children {
			w.Children[e.signature.String()] = e.node.toWire()
		}
	}
	for _, c := range s.computations {
		w.Computations = append(w.Computations, wireComputation{Operator: c.Operator, Arguments: c.Arguments})
	}
	return w
}

func (w *wireStructure) build() (*Structure, error) {
	if w == nil {
		return nil, fmt.Errorf("structure cannot be null")
	}
	binding := NewBinding(w.Name)
	if w.Variable != nil {
		binding = *w.Variable
	}
	if w.Name == "" && binding.Name == "" {
		return nil, fmt.Errorf("structure needs a name or a variable")
	}
	s := NewStructure(w.Name, binding, w.IsArray)
	for key, child := range w.Children {
		sig, err := ParseSignature(key)
		if err != nil {
			return nil, fmt.Errorf("child of %q: %w", s.Label, err)
		}
		built, err := child.build()
		if err != nil {
			return nil, fmt.Errorf("child %s of %q: %w", key, s.Label, err)
		}
		s.AddChild(built, sig)
	}
	for _, c := range w.Computations {
		s.AddComputation(Computation(c))
	}
	return s, nil
}

// MarshalJSON implements json.Marshaler.
func (s *Structure) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.toWire())
}

// UnmarshalJSON implements json.Unmarshaler. The receiver becomes a root.
func (s *Structure) UnmarshalJSON(data []byte) error {
	var w wireStructure
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	built, err := w.build()
	if err != nil {
		return err
	}
	s.adopt(built)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (s *Structure) MarshalYAML() (any, error) {
	return s.toWire(), nil
}

// UnmarshalYAML implements yaml.Unmarshaler. The receiver becomes a root.
func (s *Structure) UnmarshalYAML(value *yaml.Node) error {
	var w wireStructure
	if err := value.Decode(&w); err != nil {
		return err
	}
	built, err := w.build()
	if err != nil {
		return fmt.Errorf("line %d: %w", value.Line, err)
	}
	s.adopt(built)
	return nil
}

// adopt moves the contents of a freshly built root into s.
func (s *Structure) adopt(built *Structure) {
	s.Label = built.Label
	s.Binding = built.Binding
	s.IsList = built.IsList
	s.children = built.children
	s.computations = built.computations
	s.parent = nil
	s.signatureFromParent = Signature{}
	for _, e := range s.children {
		e.node.parent = s
	}
}

// UnmarshalJSON accepts either {"name":..,"isOriginal":..} or a bare name.
func (b *Binding) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err == nil {
		*b = NewBinding(name)
		return nil
	}
	type plain Binding
	p := plain{Original: true}
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*b = Binding(p)
	return nil
}

// UnmarshalYAML accepts either a mapping or a bare scalar name.
func (b *Binding) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		*b = NewBinding(value.Value)
		return nil
	}
	type plain Binding
	p := plain{Original: true}
	if err := value.Decode(&p); err != nil {
		return err
	}
	*b = Binding(p)
	return nil
}
