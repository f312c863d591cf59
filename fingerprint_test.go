package resultshape

import "testing"

// TestFingerprint_StructuralIdentity checks which differences change the hash.
func TestFingerprint_StructuralIdentity(t *testing.T) {
	base := func() *Structure {
		root := NewStructure("a-rray", NewBinding("a"), true)
		root.AddChild(NewStructure("B", NewBinding("b"), false), BaseSignature(1))
		return root
	}

	if Fingerprint(base()) != Fingerprint(base()) {
		t.Fatalf("identical trees hash differently")
	}

	variants := map[string]func(*Structure){
		"label":       func(s *Structure) { s.Children()[0].Label = "C" },
		"binding":     func(s *Structure) { s.Children()[0].Binding = Binding{Name: "b"} },
		"list_flag":   func(s *Structure) { s.IsList = false },
		"computation": func(s *Structure) { s.AddComputation(Computation{Operator: OperatorCount}) },
		"extra_child": func(s *Structure) { s.AddChild(NewStructure("C", NewBinding("c"), false), BaseSignature(3)) },
	}
	want := Fingerprint(base())
	for name, mutate := range variants {
		t.Run(name, func(t *testing.T) {
			s := base()
			mutate(s)
			if Fingerprint(s) == want {
				t.Errorf("%s change not reflected in the fingerprint", name)
			}
		})
	}
}

func TestFingerprint_IgnoresEdgeSignatures(t *testing.T) {
	build := func(sig Signature) *Structure {
		root := NewStructure("a-rray", NewBinding("a"), true)
		root.AddChild(NewStructure("B", NewBinding("b"), false), sig)
		return root
	}
	if Fingerprint(build(BaseSignature(1))) != Fingerprint(build(BaseSignature(7))) {
		t.Errorf("trees differing only in edge signatures hash differently")
	}

	// The test helpers hand out fresh signatures for every tree.
	if Fingerprint(node("a-rray", true, node("B", false))) != Fingerprint(node("a-rray", true, node("B", false))) {
		t.Errorf("independently built equal trees hash differently")
	}
}

func TestFingerprinter_Bounded(t *testing.T) {
	fp := NewFingerprinter(2)
	for _, name := range []string{"a", "b", "c"} {
		fp.Fingerprint(node(name, false))
	}
	if fp.Len() != 2 {
		t.Errorf("Len = %d, want 2", fp.Len())
	}
}

func TestFingerprinter_Caches(t *testing.T) {
	fp := NewFingerprinter(4)
	s := node("a-rray", true, node("B", false))

	first := fp.Fingerprint(s)
	s.Label = "changed" // frozen trees never change; the cache must not notice
	if fp.Fingerprint(s) != first {
		t.Errorf("expected the cached fingerprint")
	}

	fp.Reset()
	if fp.Fingerprint(s) == first {
		t.Errorf("expected a fresh fingerprint after Reset")
	}
	if fp.Fingerprint(nil) != 0 {
		t.Errorf("nil should hash to 0")
	}
}
