package playground

import (
	"context"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

const listDocument = `
source:
  name: a-rray
  isArray: true
  children:
    "1": {name: B}
target:
  name: items
  variable: a-rray
  children:
    "1": {name: value, variable: B}
data:
  - B: 1
  - B: 2
`

func TestReshape(t *testing.T) {
	result, err := Reshape(context.Background(), listDocument)
	if err != nil {
		t.Fatalf("Reshape failed: %v", err)
	}

	expectedOutput := `[
  {
    "value": 1
  },
  {
    "value": 2
  }
]
`
	if diff := cmp.Diff(expectedOutput, result.Output); diff != "" {
		t.Errorf("output mismatch (-want +got):\n%s", diff)
	}
	if result.Relation != "SameRoot" || !result.ListOutput {
		t.Errorf("unexpected relation %s, list output %t", result.Relation, result.ListOutput)
	}
	for _, want := range []string{"iterate", "setField(value)", "descend(B)"} {
		if !strings.Contains(result.Plan, want) {
			t.Errorf("plan missing %q:\n%s", want, result.Plan)
		}
	}
	if !strings.HasPrefix(result.Target, "array[") {
		t.Errorf("expected list target summary, got %s", result.Target)
	}
	if len(result.Warnings) != 0 {
		t.Errorf("unexpected warnings: %v", result.Warnings)
	}
}

func TestReshape_YAMLOutputAndWarnings(t *testing.T) {
	doc := strings.Replace(listDocument, "  - B: 2\n", "  - C: 2\n", 1) + "options: {format: yaml}\n"

	result, err := Reshape(context.Background(), doc)
	if err != nil {
		t.Fatalf("Reshape failed: %v", err)
	}
	if diff := cmp.Diff("- value: 1\n- {}\n", result.Output); diff != "" {
		t.Errorf("output mismatch (-want +got):\n%s", diff)
	}
	if len(result.Warnings) == 0 {
		t.Errorf("expected a warning for the record without B")
	}
}

func TestReshape_Errors(t *testing.T) {
	tests := []struct {
		name     string
		document string
		expected []string
	}{
		{
			name:     "missing keys",
			document: "source: {name: a}\n",
			expected: []string{"The document is incomplete.", "'target', 'data'", "How to fix:"},
		},
		{
			name:     "unknown key",
			document: listDocument + "query: x\n",
			expected: []string{"unexpected key", "Location: line"},
		},
		{
			name:     "unmatched target",
			document: strings.Replace(listDocument, "variable: B", "variable: Z", 1),
			expected: []string{`Target node "value" has no counterpart`, "Location: target node value, variable Z"},
		},
		{
			name:     "shape mismatch",
			document: strings.Replace(listDocument, "  - B: 1\n  - B: 2\n", "  oops\n", 1),
			expected: []string{"where the source structure expects a list", "Location: step 1, iterate", `"isArray" flags`},
		},
		{
			name:     "bad format option",
			document: listDocument + "options: {format: xml}\n",
			expected: []string{"unknown output format"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Reshape(context.Background(), tt.document)
			if err == nil {
				t.Fatalf("expected an error")
			}
			msg := FormatError(err)
			for _, want := range tt.expected {
				if !strings.Contains(msg, want) {
					t.Errorf("message missing %q:\n%s", want, msg)
				}
			}
		})
	}
}

func TestFormatError_Nil(t *testing.T) {
	if got := FormatError(nil); got != "" {
		t.Errorf("expected empty message, got %q", got)
	}
}
