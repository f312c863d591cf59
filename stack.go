package resultshape

// container is a record or list under construction.
type container struct {
	record map[string]any
	list   []any
	isList bool
}

func newRecord() *container {
	return &container{record: make(map[string]any)}
}

func newList() *container {
	return &container{list: make([]any, 0), isList: true}
}

// value returns the finished record or list.
func (c *container) value() any {
	if c.isList {
		return c.list
	}
	return c.record
}

// buildStack implements a simple stack of containers under construction.
type buildStack struct {
	data []*container
}

// newBuildStack creates a new build stack.
func newBuildStack() *buildStack {
	return &buildStack{
		data: make([]*container, 0, 16),
	}
}

// push adds a container to the top of the stack.
func (s *buildStack) push(c *container) {
	s.data = append(s.data, c)
}

// pop removes and returns the top container.
// Panics if stack is empty.
func (s *buildStack) pop() *container {
	if len(s.data) == 0 {
		panic("build stack underflow")
	}
	c := s.data[len(s.data)-1]
	s.data = s.data[:len(s.data)-1]
	return c
}

// top returns the top container without removing it.
func (s *buildStack) top() *container {
	if len(s.data) == 0 {
		panic("build stack underflow")
	}
	return s.data[len(s.data)-1]
}

// cursor is one link of the navigation chain through the input. Links are
// never mutated, so saving a position is saving a pointer.
type cursor struct {
	value any
	up    *cursor
}

func (c *cursor) descend(v any) *cursor {
	return &cursor{value: v, up: c}
}
