package shapeschema

import (
	"errors"
	"fmt"
	"strings"

	"github.com/mmcat/resultshape"
	"github.com/speakeasy-api/openapi/jsonschema/oas3"
	"github.com/xeipuuv/gojsonschema"
)

// ErrInvalid is returned when data does not conform to a structure.
var ErrInvalid = errors.New("data does not match structure")

// ValidationError lists every violation found.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", ErrInvalid, strings.Join(e.Problems, "; "))
}

func (e *ValidationError) Unwrap() error { return ErrInvalid }

// Validate checks that data is an instance of s: every record carries every
// child label and every list edge holds an array. Leaf values are not
// checked.
func Validate(s *resultshape.Structure, data any) error {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(JSONSchema(s)))
	if err != nil {
		return fmt.Errorf("invalid json schema: %w", err)
	}

	result, err := schema.Validate(gojsonschema.NewGoLoader(data))
	if err != nil {
		return fmt.Errorf("schema validation error: %w", err)
	}
	if result.Valid() {
		return nil
	}

	problems := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		problems = append(problems, desc.String())
	}
	return &ValidationError{Problems: problems}
}

// toDocument renders the subset of a schema that ToSchema produces as a
// JSON schema document.
func toDocument(s *oas3.Schema) map[string]any {
	doc := make(map[string]any)
	if s == nil {
		return doc
	}
	if typ := getType(s); typ != "" {
		doc["type"] = typ
	}
	if s.Properties != nil && s.Properties.Len() > 0 {
		props := make(map[string]any, s.Properties.Len())
		for k, v := range s.Properties.All() {
			if v != nil {
				props[k] = toDocument(v.Left)
			} else {
				props[k] = map[string]any{}
			}
		}
		doc["properties"] = props
	}
	if len(s.Required) > 0 {
		required := make([]any, len(s.Required))
		for i, r := range s.Required {
			required[i] = r
		}
		doc["required"] = required
	}
	if items := itemsOf(s); items != nil {
		doc["items"] = toDocument(items)
	}
	return doc
}

// JSONSchema returns the JSON schema document describing instances of s.
func JSONSchema(s *resultshape.Structure) map[string]any {
	return toDocument(ToSchema(s))
}
