// Package resultfmt renders reshaped instances as JSON or YAML with record
// keys in the order of the target structure.
package resultfmt

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"slices"
	"strconv"
	"time"

	"github.com/itchyny/timefmt-go"
	"github.com/mmcat/resultshape"
	"gopkg.in/yaml.v3"
)

type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// DefaultTimeFormat renders time values as RFC 3339 with seconds.
const DefaultTimeFormat = "%Y-%m-%dT%H:%M:%S%:z"

type Options struct {
	Format     Format
	Indent     int    // 0 renders compact JSON; YAML defaults to 2
	TimeFormat string // strftime layout for time.Time values
}

// ParseFormat accepts "json", "yaml" and "yml".
func ParseFormat(s string) (Format, error) {
	switch s {
	case "json", "":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unknown output format %q", s)
	}
}

// Render writes value, shaped by target, to w followed by a newline.
func Render(w io.Writer, target *resultshape.Structure, value any, opts Options) error {
	n, err := ToNode(target, value, opts.TimeFormat)
	if err != nil {
		return err
	}
	switch opts.Format {
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(orDefault(opts.Indent, 2))
		if err := enc.Encode(n); err != nil {
			return fmt.Errorf("failed to encode yaml: %w", err)
		}
		return enc.Close()
	case FormatJSON, "":
		var buf bytes.Buffer
		if err := writeJSON(&buf, n); err != nil {
			return err
		}
		out := buf.Bytes()
		if opts.Indent > 0 {
			var indented bytes.Buffer
			if err := json.Indent(&indented, out, "", spaces(opts.Indent)); err != nil {
				return fmt.Errorf("failed to indent json: %w", err)
			}
			out = indented.Bytes()
		}
		out = append(out, '\n')
		_, err := w.Write(out)
		return err
	default:
		return fmt.Errorf("unknown output format %q", opts.Format)
	}
}

// ToNode converts value into a YAML node tree. Records list the keys of
// target's children first, in child order, then any other keys sorted.
func ToNode(target *resultshape.Structure, value any, timeFormat string) (*yaml.Node, error) {
	if timeFormat == "" {
		timeFormat = DefaultTimeFormat
	}
	c := converter{timeFormat: timeFormat}
	return c.node(target, value)
}

type converter struct {
	timeFormat string
}

func (c converter) node(s *resultshape.Structure, value any) (*yaml.Node, error) {
	switch v := value.(type) {
	case []any:
		n := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for _, item := range v {
			child, err := c.node(s, item)
			if err != nil {
				return nil, err
			}
			n.Content = append(n.Content, child)
		}
		return n, nil
	case map[string]any:
		return c.record(s, v)
	default:
		return c.scalar(value)
	}
}

func (c converter) record(s *resultshape.Structure, m map[string]any) (*yaml.Node, error) {
	n := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	seen := make(map[string]bool, len(m))
	add := func(key string, child *resultshape.Structure) error {
		v, err := c.node(child, m[key])
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		n.Content = append(n.Content, &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key}, v)
		seen[key] = true
		return nil
	}

	if s != nil {
		for _, child := range s.Children() {
			if _, ok := m[child.Label]; ok && !seen[child.Label] {
				if err := add(child.Label, child); err != nil {
					return nil, err
				}
			}
		}
	}
	var rest []string
	for k := range m {
		if !seen[k] {
			rest = append(rest, k)
		}
	}
	slices.Sort(rest)
	for _, k := range rest {
		if err := add(k, nil); err != nil {
			return nil, err
		}
	}
	return n, nil
}

func (c converter) scalar(value any) (*yaml.Node, error) {
	n := &yaml.Node{Kind: yaml.ScalarNode}
	switch v := value.(type) {
	case nil:
		n.Tag, n.Value = "!!null", "null"
	case string:
		n.Tag, n.Value = "!!str", v
	case bool:
		n.Tag, n.Value = "!!bool", strconv.FormatBool(v)
	case int:
		n.Tag, n.Value = "!!int", strconv.Itoa(v)
	case int64:
		n.Tag, n.Value = "!!int", strconv.FormatInt(v, 10)
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("unsupported number %v", v)
		}
		if v == math.Trunc(v) && math.Abs(v) < 1e15 {
			n.Tag, n.Value = "!!int", strconv.FormatFloat(v, 'f', -1, 64)
		} else {
			n.Tag, n.Value = "!!float", strconv.FormatFloat(v, 'g', -1, 64)
		}
	case json.Number:
		if _, err := v.Int64(); err == nil {
			n.Tag = "!!int"
		} else {
			n.Tag = "!!float"
		}
		n.Value = v.String()
	case time.Time:
		n.Tag, n.Value = "!!str", timefmt.Format(v, c.timeFormat)
	default:
		n.Tag, n.Value = "!!str", fmt.Sprint(v)
	}
	return n, nil
}

// writeJSON writes n compactly, keeping mapping order.
func writeJSON(buf *bytes.Buffer, n *yaml.Node) error {
	switch n.Kind {
	case yaml.SequenceNode:
		buf.WriteByte('[')
		for i, item := range n.Content {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeJSON(buf, item); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case yaml.MappingNode:
		buf.WriteByte('{')
		for i := 0; i+1 < len(n.Content); i += 2 {
			if i > 0 {
				buf.WriteByte(',')
			}
			writeString(buf, n.Content[i].Value)
			buf.WriteByte(':')
			if err := writeJSON(buf, n.Content[i+1]); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	case yaml.ScalarNode:
		if n.Tag == "!!str" {
			writeString(buf, n.Value)
		} else {
			buf.WriteString(n.Value)
		}
	default:
		return fmt.Errorf("unexpected yaml node kind %d", n.Kind)
	}
	return nil
}

func writeString(buf *bytes.Buffer, s string) {
	b, _ := json.Marshal(s)
	buf.Write(b)
}

func spaces(n int) string {
	return string(bytes.Repeat([]byte{' '}, n))
}

func orDefault(v, fallback int) int {
	if v <= 0 {
		return fallback
	}
	return v
}
