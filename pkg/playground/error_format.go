// Package playground runs reshaping documents for the interactive playground:
// a source structure, a target structure and sample data in, the compiled
// plan and the reshaped output back.
package playground

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/mmcat/resultshape"
)

var lineRe = regexp.MustCompile(`\bline (\d+)\b`)

// FormatError turns an error from Reshape into a user-facing message.
func FormatError(err error) string {
	if err == nil {
		return ""
	}
	msg, loc, hint := classify(err)

	var b strings.Builder
	b.WriteString("Reshaping failed.\n")
	fmt.Fprintf(&b, "- %s\n", msg)
	if loc != "" {
		fmt.Fprintf(&b, "  Location: %s\n", loc)
	}
	if hint != "" {
		fmt.Fprintf(&b, "  How to fix: %s\n", hint)
	}
	fmt.Fprintf(&b, "  Details: %s\n", err)
	return b.String()
}

func classify(err error) (msg, loc, hint string) {
	var unmatched *resultshape.UnmatchedError
	if errors.As(err, &unmatched) {
		msg = fmt.Sprintf("Target node %q has no counterpart in the source structure.", unmatched.Label)
		loc = fmt.Sprintf("target node %s, variable %s", unmatched.Label, unmatched.Binding.Name)
		hint = "Give the target node the variable of a source node, or add a node with that variable to the source."
		return
	}

	var mismatch *resultshape.ShapeMismatchError
	if errors.As(err, &mismatch) {
		msg = fmt.Sprintf("The data has %s where the source structure expects a %s.", mismatch.Actual, mismatch.Expected)
		loc = fmt.Sprintf("step %d, %s", mismatch.PC, mismatch.Step)
		hint = `Check the "isArray" flags of the source structure against the data: lists must be arrays and records must be objects.`
		return
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return "The run was interrupted before it finished.", "", "Retry with a smaller document or a longer timeout."
	}

	s := err.Error()
	if m := lineRe.FindStringSubmatch(s); len(m) == 2 {
		loc = "line " + m[1]
	}
	switch {
	case strings.Contains(s, "document requires"):
		return "The document is incomplete.", loc, "Provide the 'source', 'target' and 'data' keys."
	case strings.Contains(s, "unknown key"):
		return "The document has an unexpected key.", loc, "Only 'source', 'target', 'data' and 'options' are allowed."
	case strings.Contains(s, "failed to parse document"), strings.Contains(s, "structure"):
		return "The document could not be read.", loc, `Each structure needs a "name" and optional "isArray", "variable" and "children" keyed by signature, e.g. "1" or "1.2".`
	}
	return "Reshaping error.", loc, ""
}
