// Package shapeschema converts between result structures and JSON schemas.
//
// A Structure describes data positionally; its schema is the JSON schema of
// one instance: records become objects keyed by child labels, list edges
// become arrays, and leaves accept any value.
package shapeschema

import (
	"fmt"

	"github.com/mmcat/resultshape"
	"github.com/speakeasy-api/openapi/jsonschema/oas3"
	"github.com/speakeasy-api/openapi/sequencedmap"
)

// ToSchema returns the schema of one instance of s. A list root yields an
// array schema.
func ToSchema(s *resultshape.Structure) *oas3.Schema {
	if s == nil {
		return nil
	}
	value := valueSchema(s)
	if s.IsList {
		return ArrayType(value)
	}
	return value
}

// valueSchema is the schema of a single value of s, ignoring its list flag.
func valueSchema(s *resultshape.Structure) *oas3.Schema {
	if s.IsLeaf() {
		return Top()
	}
	children := s.Children()
	props := make([]property, 0, len(children))
	for _, c := range children {
		props = append(props, property{name: c.Label, schema: ToSchema(c)})
	}
	return buildObject(props)
}

type property struct {
	name   string
	schema *oas3.Schema
}

// buildObject creates an object schema with properties in the given order.
// Every property is required.
func buildObject(props []property) *oas3.Schema {
	propMap := sequencedmap.New[string, *oas3.JSONSchema[oas3.Referenceable]]()
	required := make([]string, 0, len(props))
	for _, p := range props {
		propMap.Set(p.name, oas3.NewJSONSchemaFromSchema[oas3.Referenceable](p.schema))
		required = append(required, p.name)
	}
	return &oas3.Schema{
		Type:       oas3.NewTypeFromString(oas3.SchemaTypeObject),
		Properties: propMap,
		Required:   required,
	}
}

// Top returns a schema that matches any value.
func Top() *oas3.Schema {
	return &oas3.Schema{}
}

// ArrayType creates an array schema with the given items schema.
func ArrayType(items *oas3.Schema) *oas3.Schema {
	return &oas3.Schema{
		Type:  oas3.NewTypeFromString(oas3.SchemaTypeArray),
		Items: oas3.NewJSONSchemaFromSchema[oas3.Referenceable](items),
	}
}

// FromSchema derives a structure from a schema. Object properties become
// children, keyed by fresh signatures in property order; an array marks the
// edge to its item structure as a list. Bindings are the dotted property
// path from the root, so they are unique within the tree.
//
// An array directly inside an array has no node to carry the inner list and
// is rejected.
func FromSchema(name string, schema *oas3.Schema) (*resultshape.Structure, error) {
	b := &builder{signatures: resultshape.NewSignatureGenerator()}
	return b.build(name, name, schema)
}

type builder struct {
	signatures *resultshape.SignatureGenerator
}

func (b *builder) build(label, binding string, schema *oas3.Schema) (*resultshape.Structure, error) {
	isList := false
	if getType(schema) == string(oas3.SchemaTypeArray) {
		isList = true
		schema = itemsOf(schema)
		if getType(schema) == string(oas3.SchemaTypeArray) {
			return nil, fmt.Errorf("property %q: nested arrays are not supported", binding)
		}
	}

	s := resultshape.NewStructure(label, resultshape.NewBinding(binding), isList)
	if schema == nil || schema.Properties == nil {
		return s, nil
	}
	for key, prop := range schema.Properties.All() {
		var child *oas3.Schema
		if prop != nil {
			child = prop.Left
		}
		sig := b.signatures.Next()
		built, err := b.build(key, binding+"."+key, child)
		if err != nil {
			return nil, err
		}
		s.AddChild(built, sig)
	}
	return s, nil
}

func itemsOf(schema *oas3.Schema) *oas3.Schema {
	if schema.Items == nil {
		return nil
	}
	return schema.Items.Left
}

// getType returns the single declared type of a schema, or "".
func getType(s *oas3.Schema) string {
	if s == nil {
		return ""
	}
	types := s.GetType()
	if len(types) != 1 {
		return ""
	}
	return string(types[0])
}
