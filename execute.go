package resultshape

import (
	"context"
	"errors"
	"fmt"
)

// Iter is a lazy sequence of output values. An error is yielded as a value
// and ends the sequence.
type Iter interface {
	Next() (any, bool)
}

// Run starts the plan on input. Nothing is read from input until the first
// call to Next. Every call to Run starts over.
func (p *Plan) Run(input any) Iter {
	return p.RunContext(context.Background(), input)
}

// RunContext is like Run but stops with ctx.Err() once ctx is done. The
// context is checked every time a loop moves to its next element.
func (p *Plan) RunContext(ctx context.Context, input any) Iter {
	return &env{
		ctx:    ctx,
		codes:  p.codes,
		opts:   p.opts,
		logger: p.logger,
		pos:    &cursor{value: input},
		stack:  newBuildStack(),
	}
}

// Collect runs the plan to the end and gathers every emitted value.
func (p *Plan) Collect(input any) ([]any, error) {
	return collect(p.Run(input))
}

// CollectContext is Collect with cancellation.
func (p *Plan) CollectContext(ctx context.Context, input any) ([]any, error) {
	return collect(p.RunContext(ctx, input))
}

func collect(iter Iter) ([]any, error) {
	out := make([]any, 0)
	for {
		v, ok := iter.Next()
		if !ok {
			return out, nil
		}
		if err, ok := v.(error); ok {
			return nil, err
		}
		out = append(out, v)
	}
}

// Transform runs the plan and returns its result: a list of target instances
// when ListOutput is set, the single target instance otherwise.
func (p *Plan) Transform(input any) (any, error) {
	return p.TransformContext(context.Background(), input)
}

// TransformContext is Transform with cancellation.
func (p *Plan) TransformContext(ctx context.Context, input any) (any, error) {
	if p.listOutput {
		return p.CollectContext(ctx, input)
	}
	v, ok := p.RunContext(ctx, input).Next()
	if !ok {
		return nil, errors.New("plan produced no output")
	}
	if err, ok := v.(error); ok {
		return nil, err
	}
	return v, nil
}

// env is the execution state of one run of a plan.
type env struct {
	ctx    context.Context
	codes  []*code
	opts   Options
	logger Logger

	pc    int
	pos   *cursor
	marks []*cursor
	loops []*loopFrame
	stack *buildStack
	last  any
	done  bool
	count int
}

// loopFrame iterates one list, or several list levels merged into one loop.
// levels works like an odometer: the deepest level advances first and is
// refilled from the next element of the level above.
type loopFrame struct {
	listPos *cursor
	inner   [][]string
	levels  []level
	start   int
}

type level struct {
	items []any
	index int
	list  *cursor // position of the list value itself
}

func (env *env) Next() (any, bool) {
	if env.done {
		return nil, false
	}
	for env.pc < len(env.codes) {
		pc := env.pc
		c := env.codes[pc]
		env.pc++

		switch c.op {
		case openterlist:
			env.stack.push(newList())
		case openterrecord:
			env.stack.push(newRecord())
		case opexitrecord:
			env.last = env.stack.pop().value()
		case opsetfield:
			if _, absent := env.last.(missing); !absent {
				env.stack.top().record[c.v.(string)] = env.last
			}
		case opappend:
			top := env.stack.top()
			top.list = append(top.list, present(env.last))
		case opdescend:
			v, err := env.field(env.pos.value, c.v.(string))
			if err != nil {
				return env.fail(pc, err)
			}
			env.pos = env.pos.descend(v)
		case opascend:
			env.pos = env.pos.up
		case opmark:
			env.marks = append(env.marks, env.pos)
		case oprestore:
			env.pos = env.marks[len(env.marks)-1]
			env.marks = env.marks[:len(env.marks)-1]
		case optake:
			if c.v.(bool) {
				if err := env.scalar(env.pos.value); err != nil {
					return env.fail(pc, err)
				}
			}
			env.last = cloneValue(env.pos.value)
		case opiter:
			operand := c.v.(iterOperand)
			items, err := env.items(env.pos.value)
			if err != nil {
				return env.fail(pc, err)
			}
			frame := &loopFrame{
				listPos: env.pos,
				inner:   operand.inner,
				levels:  []level{{items: items, index: -1, list: env.pos}},
				start:   pc + 1,
			}
			env.loops = append(env.loops, frame)
			ok, err := env.advance(frame)
			if err != nil {
				return env.fail(pc, err)
			}
			if !ok {
				env.pc = operand.exit
			}
		case opexitlist:
			frame := env.loops[len(env.loops)-1]
			ok, err := env.advance(frame)
			if err != nil {
				return env.fail(pc, err)
			}
			if ok {
				env.pc = frame.start
				continue
			}
			env.loops = env.loops[:len(env.loops)-1]
			env.pos = frame.listPos
			env.last = env.stack.pop().value()
		case opemit:
			env.count++
			return present(env.last), true
		default:
			panic(fmt.Sprintf("unknown opcode: %s", c.op))
		}
	}
	env.done = true
	env.logger.With(map[string]any{"emitted": env.count}).Debugf("run finished")
	return nil, false
}

// advance moves frame to its next element and points the cursor at it. The
// cursor chain passes through the current element of every merged level, so
// detours can ascend to any of them. It reports false once every level is
// exhausted, and keeps doing so.
func (env *env) advance(frame *loopFrame) (bool, error) {
	if err := env.ctx.Err(); err != nil {
		return false, err
	}
	for len(frame.levels) > 0 {
		depth := len(frame.levels) - 1
		lv := &frame.levels[depth]
		lv.index++
		if lv.index >= len(lv.items) {
			frame.levels = frame.levels[:depth]
			continue
		}
		pos := lv.list.descend(lv.items[lv.index])
		if depth == len(frame.inner) {
			env.pos = pos
			return true, nil
		}
		for _, label := range frame.inner[depth] {
			v, err := env.field(pos.value, label)
			if err != nil {
				return false, err
			}
			pos = pos.descend(v)
		}
		items, err := env.items(pos.value)
		if err != nil {
			return false, err
		}
		frame.levels = append(frame.levels, level{items: items, index: -1, list: pos})
	}
	return false, nil
}

// missing is read from an absent key. Records leave the field out, lists
// and outputs see null.
type missing struct{}

func present(v any) any {
	if _, ok := v.(missing); ok {
		return nil
	}
	return v
}

// field reads label from a record. A missing label reads as absent.
func (env *env) field(v any, label string) (any, error) {
	switch t := v.(type) {
	case map[string]any:
		if x, ok := t[label]; ok {
			return x, nil
		}
		return missing{}, nil
	case nil, missing:
		if env.opts.StrictNulls {
			return nil, &ShapeMismatchError{Expected: "record", Actual: valueSummary(nil, 0)}
		}
		return missing{}, nil
	default:
		return nil, &ShapeMismatchError{Expected: "record", Actual: valueSummary(v, env.opts.maxChildren())}
	}
}

// items reads the elements of a list. Null reads as an empty list.
func (env *env) items(v any) ([]any, error) {
	switch t := v.(type) {
	case []any:
		return t, nil
	case nil, missing:
		if env.opts.StrictNulls {
			return nil, &ShapeMismatchError{Expected: "list", Actual: valueSummary(nil, 0)}
		}
		return nil, nil
	default:
		return nil, &ShapeMismatchError{Expected: "list", Actual: valueSummary(v, env.opts.maxChildren())}
	}
}

// scalar checks the value of a source leaf.
func (env *env) scalar(v any) error {
	switch v.(type) {
	case map[string]any, []any:
		return &ShapeMismatchError{Expected: "scalar", Actual: valueSummary(v, env.opts.maxChildren())}
	default:
		return nil
	}
}

// fail ends the run, yielding err as the final value.
func (env *env) fail(pc int, err error) (any, bool) {
	env.done = true
	var mismatch *ShapeMismatchError
	if errors.As(err, &mismatch) {
		mismatch.Step = env.codes[pc].String()
		mismatch.PC = pc
	}
	env.logger.With(map[string]any{
		"pc":   pc,
		"step": env.codes[pc].String(),
	}).Debugf("run failed: %v", err)
	return err, true
}

// cloneValue copies records and lists so outputs never alias the input.
func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, x := range t {
			out[k] = cloneValue(x)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, x := range t {
			out[i] = cloneValue(x)
		}
		return out
	default:
		return v
	}
}
