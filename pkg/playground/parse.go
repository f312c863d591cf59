package playground

import (
	"fmt"
	"strings"

	"github.com/mmcat/resultshape"
	"gopkg.in/yaml.v3"
)

// Document is one playground input:
//
//	source: {name: a-rray, isArray: true, children: {"1": {name: B}}}
//	target: {name: items, variable: a-rray, children: {"1": {name: value, variable: B}}}
//	data: [{B: 1}, {B: 2}]
//	options: {strictNulls: false, format: yaml}
type Document struct {
	Source  *resultshape.Structure
	Target  *resultshape.Structure
	Data    any
	Options DocumentOptions
}

type DocumentOptions struct {
	StrictNulls bool   `yaml:"strictNulls"`
	Format      string `yaml:"format"` // json (default) or yaml
	TimeFormat  string `yaml:"timeFormat"`
}

// ParseDocument reads a playground document. source, target and data are
// required; options may be omitted.
func ParseDocument(text string) (*Document, error) {
	var root yaml.Node
	if err := yaml.Unmarshal([]byte(text), &root); err != nil {
		return nil, fmt.Errorf("failed to parse document: %w", err)
	}
	if root.Kind != yaml.DocumentNode || len(root.Content) == 0 {
		return nil, fmt.Errorf("document is empty")
	}
	mapping := root.Content[0]
	if mapping.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("document must be a mapping with source, target and data keys")
	}

	doc := &Document{}
	found := map[string]bool{}
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		key, value := mapping.Content[i], mapping.Content[i+1]
		var err error
		switch key.Value {
		case "source":
			doc.Source, err = decodeStructure(value)
		case "target":
			doc.Target, err = decodeStructure(value)
		case "data":
			err = value.Decode(&doc.Data)
		case "options":
			err = value.Decode(&doc.Options)
		default:
			return nil, fmt.Errorf("line %d: unknown key %q", key.Line, key.Value)
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", key.Value, err)
		}
		found[key.Value] = true
	}

	var missing []string
	for _, key := range []string{"source", "target", "data"} {
		if !found[key] {
			missing = append(missing, "'"+key+"'")
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("document requires %s", strings.Join(missing, ", "))
	}
	return doc, nil
}

func decodeStructure(n *yaml.Node) (*resultshape.Structure, error) {
	if n.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("line %d: structure must be a mapping", n.Line)
	}
	s := new(resultshape.Structure)
	if err := n.Decode(s); err != nil {
		return nil, err
	}
	return s, nil
}
