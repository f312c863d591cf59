package resultshape

import (
	"fmt"
	"strings"
)

type code struct {
	v  any
	op opcode
}

// iterOperand is the operand of opiter.
type iterOperand struct {
	// inner holds, for every further list level merged into this loop, the
	// labels to descend from an element of the previous level to the next list.
	inner [][]string
	// exit is the pc of the matching opexitlist.
	exit int
}

type opcode int

const (
	openterlist opcode = iota
	opexitlist
	openterrecord
	opexitrecord
	opsetfield
	opappend
	opdescend
	opiter
	opascend
	opmark
	oprestore
	optake
	opemit
)

func (op opcode) String() string {
	switch op {
	case openterlist:
		return "enterList"
	case opexitlist:
		return "exitList"
	case openterrecord:
		return "enterRecord"
	case opexitrecord:
		return "exitRecord"
	case opsetfield:
		return "setField"
	case opappend:
		return "appendToList"
	case opdescend:
		return "descend"
	case opiter:
		return "iterate"
	case opascend:
		return "ascend"
	case opmark:
		return "mark"
	case oprestore:
		return "restore"
	case optake:
		return "take"
	case opemit:
		return "emit"
	default:
		panic(op)
	}
}

// depthDelta is how the step changes the nesting depth of a plan listing:
// before is applied before printing the step, after once it is printed.
func (op opcode) depthDelta() (before, after int) {
	switch op {
	case openterlist, openterrecord, opiter, opmark:
		return 0, 1
	case opexitlist:
		return -2, 0
	case opexitrecord, oprestore:
		return -1, 0
	default:
		return 0, 0
	}
}

func (c *code) String() string {
	switch v := c.v.(type) {
	case string:
		return c.op.String() + "(" + v + ")"
	case iterOperand:
		if len(v.inner) == 0 {
			return c.op.String()
		}
		return c.op.String() + formatInner(v.inner)
	default:
		return c.op.String()
	}
}

func formatInner(inner [][]string) string {
	var b strings.Builder
	for _, path := range inner {
		b.WriteByte('[')
		b.WriteString(strings.Join(path, "."))
		b.WriteByte(']')
	}
	return b.String()
}

// Step is the exported, read-only view of one plan step.
type Step struct {
	// Op is the step name, e.g. "enterList" or "setField".
	Op string
	// Label is the operand of setField and descend.
	Label string
	// Inner lists, for iterate, the descents between merged list levels.
	Inner [][]string
	// Depth is the nesting depth of the step in the plan listing.
	Depth int
	// Jump is the index of the matching exitList for iterate, and of the
	// matching iterate for exitList. -1 for other steps.
	Jump int
}

func (s Step) String() string {
	switch {
	case s.Label != "":
		return fmt.Sprintf("%s(%s)", s.Op, s.Label)
	case len(s.Inner) > 0:
		return s.Op + formatInner(s.Inner)
	default:
		return s.Op
	}
}
