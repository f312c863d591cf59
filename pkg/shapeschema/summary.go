package shapeschema

import (
	"fmt"
	"sort"
	"strings"

	"github.com/speakeasy-api/openapi/jsonschema/oas3"
)

// Summary renders a compact one-line description of a schema, e.g.
// array[object{B,c-rray}]. Nesting beyond maxDepth is elided.
func Summary(s *oas3.Schema, maxDepth int) string {
	if s == nil {
		return "Bottom"
	}
	typ := getType(s)
	switch typ {
	case "":
		if len(s.AnyOf) > 0 {
			return fmt.Sprintf("anyOf(%d)", len(s.AnyOf))
		}
		if s.Properties != nil {
			return fmt.Sprintf("object{~%d props}", s.Properties.Len())
		}
		return "Top"

	case "object":
		props := previewPropertyKeys(s, 5)
		if props == "" {
			return "object"
		}
		return "object{" + props + "}"

	case "array":
		if items := itemsOf(s); items != nil {
			if maxDepth <= 0 {
				return "array[...]"
			}
			return "array[" + Summary(items, maxDepth-1) + "]"
		}
		return "array"

	default:
		if s.Format != nil && *s.Format != "" && typ == "string" {
			return fmt.Sprintf("string(%s)", *s.Format)
		}
		return typ
	}
}

func previewPropertyKeys(s *oas3.Schema, limit int) string {
	keys := make([]string, 0, s.Properties.Len())
	for k := range s.Properties.All() {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	if len(keys) <= limit {
		return strings.Join(keys, ",")
	}
	return strings.Join(keys[:limit], ",") + fmt.Sprintf(",+%d", len(keys)-limit)
}
