package resultshape

import (
	"encoding/json"
	"testing"
)

var testSignatures = NewSignatureGenerator()

// node builds a source node bound to name and attaches children under fresh
// signatures, in order.
func node(name string, isList bool, children ...*Structure) *Structure {
	s := NewStructure(name, NewBinding(name), isList)
	for _, c := range children {
		s.AddChild(c, testSignatures.Next())
	}
	return s
}

// renamed builds a target node bound like the source node name but stored
// under label.
func renamed(name, label string, children ...*Structure) *Structure {
	s := NewStructure(label, NewBinding(name), false)
	for _, c := range children {
		s.AddChild(c, testSignatures.Next())
	}
	return s
}

func same(name string, children ...*Structure) *Structure {
	return renamed(name, name, children...)
}

func mustJSON(t *testing.T, s string) any {
	t.Helper()
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		t.Fatalf("invalid test JSON: %v", err)
	}
	return v
}

// nestedListSource is a-rray[] -> b-rray[] -> c-rray[] -> D.
func nestedListSource() *Structure {
	return node("a-rray", true,
		node("b-rray", true,
			node("c-rray", true,
				node("D", false))))
}

const nestedListData = `[ {
    "b-rray": [ {
        "c-rray": [ { "D": "a1b1c1d" }, { "D": "a1b1c2d" } ]
    }, {
        "c-rray": [ { "D": "a1b2c1d" }, { "D": "a1b2c2d" } ]
    } ]
}, {
    "b-rray": [ {
        "c-rray": [ { "D": "a2b1c1d" }, { "D": "a2b1c2d" } ]
    }, {
        "c-rray": [ { "D": "a2b2c1d" }, { "D": "a2b2c2d" } ]
    } ]
} ]`
