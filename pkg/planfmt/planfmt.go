// Package planfmt renders compiled plans as aligned, optionally coloured
// listings for terminals and the playground.
package planfmt

import (
	"fmt"
	"strings"

	"github.com/mattn/go-runewidth"
	"github.com/mmcat/resultshape"
)

type Config struct {
	Color  bool   // ANSI colour per step class
	Indent string // per nesting level (default: two spaces)
	Header bool   // print plan id, relation and list flag first
}

const (
	colorReset = "\x1b[0m"
	colorNav   = "\x1b[36m" // cursor movement
	colorBuild = "\x1b[32m" // construction
	colorLoop  = "\x1b[33m" // loops and output
	colorDim   = "\x1b[2m"
)

// Format renders plan as one numbered line per step. Loop steps carry their
// jump target in a right-hand column aligned across the listing.
func Format(plan *resultshape.Plan, cfg Config) string {
	indent := cfg.Indent
	if indent == "" {
		indent = "  "
	}
	steps := plan.Steps()

	texts := make([]string, len(steps))
	width := 0
	for i, step := range steps {
		texts[i] = strings.Repeat(indent, step.Depth) + step.String()
		width = max(width, runewidth.StringWidth(texts[i]))
	}
	pcWidth := len(fmt.Sprint(len(steps) - 1))

	var b strings.Builder
	if cfg.Header {
		fmt.Fprintf(&b, "plan %s\nrelation %s, list output %t\n", plan.ID(), plan.Relation(), plan.ListOutput())
	}
	for i, step := range steps {
		text := texts[i]
		note := ""
		if step.Jump >= 0 {
			note = fmt.Sprintf("-> %d", step.Jump)
			text = runewidth.FillRight(text, width)
		}
		if cfg.Color {
			text = colorFor(step.Op) + text + colorReset
			if note != "" {
				note = colorDim + note + colorReset
			}
		}
		fmt.Fprintf(&b, "%*d  %s", pcWidth, i, text)
		if note != "" {
			b.WriteString("  ")
			b.WriteString(note)
		}
		b.WriteByte('\n')
	}
	return b.String()
}

func colorFor(op string) string {
	switch op {
	case "descend", "ascend", "mark", "restore":
		return colorNav
	case "enterList", "exitList", "iterate", "emit":
		return colorLoop
	default:
		return colorBuild
	}
}
