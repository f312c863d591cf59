package resultshape

import (
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"
)

// Plan is a compiled reshape from one source structure to one target
// structure. It holds no mutable state and may be run concurrently.
type Plan struct {
	id         string
	codes      []*code
	source     *Structure
	target     *Structure
	relation   RootRelation
	listOutput bool
	opts       Options
	logger     Logger
}

// Compile matches target against source and compiles the reshape. The only
// failure is ErrUnmatched from matching.
//
// Example:
//
//	plan, err := resultshape.Compile(source, target)
//	if err != nil {
//	    return err
//	}
//	out, err := plan.Transform(data)
func Compile(source, target *Structure, opts ...Options) (*Plan, error) {
	m, err := MatchRoots(source, target)
	if err != nil {
		return nil, fmt.Errorf("failed to compile plan: %w", err)
	}
	return CompileMatch(m, opts...), nil
}

// CompileMatch compiles an already computed match. It cannot fail.
func CompileMatch(m *Match, opts ...Options) *Plan {
	opt := optionsOrDefault(opts)
	c := &compiler{match: m}
	c.compile()

	p := &Plan{
		id:         uuid.NewString(),
		codes:      c.codes,
		source:     m.Source(),
		target:     m.Target(),
		relation:   m.Relation(),
		listOutput: m.Source().IsList,
		opts:       opt,
	}
	for _, node := range p.relation.Path {
		p.listOutput = p.listOutput || node.IsList
	}
	p.logger = opt.logger().With(map[string]any{"plan": p.id})
	p.logger.With(map[string]any{
		"relation": p.relation,
		"steps":    len(p.codes),
		"source":   structureSummary(p.source, opt.maxChildren()),
		"target":   structureSummary(p.target, opt.maxChildren()),
	}).Debugf("compiled plan")
	return p
}

// ID returns the unique id assigned at compile time.
func (p *Plan) ID() string { return p.id }

// Source returns the structure the plan reads.
func (p *Plan) Source() *Structure { return p.source }

// Target returns the structure the plan produces.
func (p *Plan) Target() *Structure { return p.target }

// Relation returns the root relation the plan was compiled for.
func (p *Plan) Relation() RootRelation { return p.relation }

// ListOutput reports whether one input yields a sequence of target instances
// (the source root is a list, or re-rooting passes through a list) rather
// than exactly one.
func (p *Plan) ListOutput() bool { return p.listOutput }

// Steps returns the plan as a read-only step list.
func (p *Plan) Steps() []Step {
	steps := make([]Step, len(p.codes))
	depth := 0
	for i, c := range p.codes {
		before, after := c.op.depthDelta()
		depth += before
		step := Step{Op: c.op.String(), Depth: depth, Jump: -1}
		switch v := c.v.(type) {
		case string:
			step.Label = v
		case iterOperand:
			step.Inner = v.inner
			step.Jump = v.exit
		case int:
			step.Jump = v
		}
		steps[i] = step
		depth += after
	}
	return steps
}

// String lists the plan, one indented step per line.
func (p *Plan) String() string {
	var b strings.Builder
	for _, step := range p.Steps() {
		b.WriteString(strings.Repeat("  ", step.Depth))
		b.WriteString(step.String())
		b.WriteByte('\n')
	}
	return b.String()
}

// position is the compile-time picture of one entry of the run-time cursor
// chain.
type position struct {
	node *Structure
	// element is set when the cursor sits on one element of node's list
	// rather than on the list itself.
	element bool
}

// holdsValue reports whether the position stands for a single value of its
// node, i.e. something fields can be descended from.
func (p position) holdsValue() bool {
	return !p.node.IsList || p.element
}

type openLoop struct {
	pc        int // pc of the opiter
	cursorLen int // cursor length before the element was pushed
}

type compiler struct {
	match  *Match
	codes  []*code
	cursor []position
	loops  []openLoop
}

func (c *compiler) append(op opcode, v any) {
	c.codes = append(c.codes, &code{op: op, v: v})
}

func (c *compiler) compile() {
	source := c.match.Source()
	c.cursor = []position{{node: source}}

	open := 0
	if source.IsList {
		c.append(openterlist, nil)
		c.beginIterate(nil, position{node: source, element: true})
		open++
	}
	// Walk down to the new root; empty for SameRoot.
	for _, node := range c.match.Relation().Path {
		c.descend(node)
		if node.IsList {
			c.append(openterlist, nil)
			c.beginIterate(nil, position{node: node, element: true})
			open++
		}
	}
	c.compileValue(c.match.Target())
	c.append(opemit, nil)
	for ; open > 0; open-- {
		c.endIterate()
	}
}

// compileValue builds the value of target node t at the current cursor.
func (c *compiler) compileValue(t *Structure) {
	if t.IsLeaf() {
		// Values of source leaves must be scalars.
		c.append(optake, c.cursor[len(c.cursor)-1].node.IsLeaf())
		return
	}
	c.append(openterrecord, nil)
	for _, child := range t.Children() {
		c.compileField(child)
		c.append(opsetfield, child.Label)
	}
	c.append(opexitrecord, nil)
}

// compileField navigates from the current cursor to the source counterpart
// of t, builds its value and returns the cursor to where it was.
func (c *compiler) compileField(t *Structure) {
	src := c.match.Counterpart(t)
	anchor := c.anchorFor(src)
	ups := len(c.cursor) - 1 - anchor
	path := pathBetween(c.cursor[anchor].node, src)

	if ups == 0 && len(path) == 0 {
		c.compileValue(t)
		return
	}

	saved := slices.Clone(c.cursor)
	c.append(opmark, nil)
	for range ups {
		c.append(opascend, nil)
	}
	c.cursor = c.cursor[:anchor+1]
	c.compileDescent(t, path)
	c.append(oprestore, nil)
	c.cursor = saved
}

// anchorFor finds the deepest cursor entry that holds a single value of src
// or of one of its ancestors. Entries above it are left by ascending.
func (c *compiler) anchorFor(src *Structure) int {
	for i := len(c.cursor) - 1; i >= 0; i-- {
		p := c.cursor[i]
		if p.holdsValue() && (p.node == src || src.IsDescendantOf(p.node)) {
			return i
		}
	}
	return 0
}

// compileDescent descends along path (the source nodes below the cursor down
// to the counterpart of t) and builds t there. Every list edge on the path
// makes the value a list; consecutive list levels collapse into one loop.
func (c *compiler) compileDescent(t *Structure, path []*Structure) {
	var lists []int
	for i, node := range path {
		if node.IsList {
			lists = append(lists, i)
		}
	}
	if len(lists) == 0 {
		for _, node := range path {
			c.descend(node)
		}
		c.compileValue(t)
		return
	}

	c.append(openterlist, nil)
	first, last := lists[0], lists[len(lists)-1]
	for _, node := range path[:first+1] {
		c.descend(node)
	}
	// The cursor passes through the element of every merged level.
	chain := []position{{node: path[first], element: true}}
	inner := make([][]string, 0, len(lists)-1)
	for j := 1; j < len(lists); j++ {
		labels := make([]string, 0, lists[j]-lists[j-1])
		for _, node := range path[lists[j-1]+1 : lists[j]+1] {
			labels = append(labels, node.Label)
			chain = append(chain, position{node: node})
		}
		inner = append(inner, labels)
		chain = append(chain, position{node: path[lists[j]], element: true})
	}
	c.beginIterate(inner, chain...)
	for _, node := range path[last+1:] {
		c.descend(node)
	}
	c.compileValue(t)
	c.append(opappend, nil)
	c.endIterate()
}

func (c *compiler) descend(node *Structure) {
	c.append(opdescend, node.Label)
	c.cursor = append(c.cursor, position{node: node})
}

func (c *compiler) beginIterate(inner [][]string, chain ...position) {
	c.loops = append(c.loops, openLoop{pc: len(c.codes), cursorLen: len(c.cursor)})
	c.append(opiter, iterOperand{inner: inner})
	c.cursor = append(c.cursor, chain...)
}

func (c *compiler) endIterate() {
	l := c.loops[len(c.loops)-1]
	c.loops = c.loops[:len(c.loops)-1]

	exit := len(c.codes)
	c.append(opexitlist, l.pc)
	operand := c.codes[l.pc].v.(iterOperand)
	operand.exit = exit
	c.codes[l.pc].v = operand
	c.cursor = c.cursor[:l.cursorLen]
}

// pathBetween returns the nodes strictly below ancestor down to node,
// inclusive, top first. Empty when node == ancestor.
func pathBetween(ancestor, node *Structure) []*Structure {
	var path []*Structure
	for current := node; current != nil && current != ancestor; current = current.parent {
		path = append(path, current)
	}
	slices.Reverse(path)
	return path
}
