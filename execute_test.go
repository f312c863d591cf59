package resultshape

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// TestTransform_Projections runs the projection scenarios: each source and
// target pair is compiled once and applied to one data instance.
func TestTransform_Projections(t *testing.T) {
	tests := []struct {
		name     string
		source   *Structure
		target   *Structure
		data     string
		expected string
	}{
		{
			name:     "only_root_list",
			source:   node("a-rray", true),
			target:   same("a-rray"),
			data:     `[ "aaa", "bbb" ]`,
			expected: `[ "aaa", "bbb" ]`,
		},
		{
			name:     "list_with_map",
			source:   node("a-rray", true, node("B", false)),
			target:   same("a-rray", same("B")),
			data:     `[ { "B": "aaa" }, { "B": "bbb" } ]`,
			expected: `[ { "B": "aaa" }, { "B": "bbb" } ]`,
		},
		{
			name:     "rename",
			source:   node("a-rray", true, node("B", false)),
			target:   renamed("a-rray", "c-rray", renamed("B", "D")),
			data:     `[ { "B": "aaa" }, { "B": "bbb" } ]`,
			expected: `[ { "D": "aaa" }, { "D": "bbb" } ]`,
		},
		{
			name:   "rename_nested_lists",
			source: nestedListSource(),
			target: renamed("a-rray", "e-rray",
				renamed("b-rray", "f-rray",
					renamed("c-rray", "g-rray",
						renamed("D", "H")))),
			data: nestedListData,
			expected: `[ {
				"f-rray": [
					{ "g-rray": [ { "H": "a1b1c1d" }, { "H": "a1b1c2d" } ] },
					{ "g-rray": [ { "H": "a1b2c1d" }, { "H": "a1b2c2d" } ] }
				]
			}, {
				"f-rray": [
					{ "g-rray": [ { "H": "a2b1c1d" }, { "H": "a2b1c2d" } ] },
					{ "g-rray": [ { "H": "a2b2c1d" }, { "H": "a2b2c2d" } ] }
				]
			} ]`,
		},
		{
			name: "new_root",
			source: node("a-rray", true,
				node("b-rray", true, node("C", false)),
				node("D", false),
				node("E", false)),
			target: renamed("C", "c-rray", same("D"), same("E")),
			data: `[ {
				"b-rray": [ { "C": "a1b1c1" }, { "C": "a1b1c2" } ],
				"D": "a1d",
				"E": "a1e"
			}, {
				"b-rray": [ { "C": "a2b1c1" }, { "C": "a2b1c2" } ],
				"D": "a2d",
				"E": "a2e"
			} ]`,
			expected: `[
				{ "D": "a1d", "E": "a1e" },
				{ "D": "a1d", "E": "a1e" },
				{ "D": "a2d", "E": "a2e" },
				{ "D": "a2d", "E": "a2e" }
			]`,
		},
		{
			name: "new_root_with_list",
			source: node("a-rray", true,
				node("C", false),
				node("d-rray", true, node("F", false))),
			target: renamed("C", "c-rray", renamed("F", "f-rray")),
			data: `[ {
				"C": "a1c",
				"d-rray": [ { "F": "a1d1f" }, { "F": "a1d2f" } ]
			}, {
				"C": "a2c",
				"d-rray": [ { "F": "a2d1f" }, { "F": "a2d2f" } ]
			} ]`,
			expected: `[
				{ "f-rray": [ "a1d1f", "a1d2f" ] },
				{ "f-rray": [ "a2d1f", "a2d2f" ] }
			]`,
		},
		{
			name:   "shorten_list",
			source: nestedListSource(),
			target: same("a-rray", same("b-rray", renamed("D", "d-rray"))),
			data:   nestedListData,
			expected: `[ {
				"b-rray": [
					{ "d-rray": [ "a1b1c1d", "a1b1c2d" ] },
					{ "d-rray": [ "a1b2c1d", "a1b2c2d" ] }
				]
			}, {
				"b-rray": [
					{ "d-rray": [ "a2b1c1d", "a2b1c2d" ] },
					{ "d-rray": [ "a2b2c1d", "a2b2c2d" ] }
				]
			} ]`,
		},
		{
			name:   "shorten_list_from_root",
			source: nestedListSource(),
			target: same("a-rray", renamed("D", "d-rray")),
			data:   nestedListData,
			expected: `[
				{ "d-rray": [ "a1b1c1d", "a1b1c2d", "a1b2c1d", "a1b2c2d" ] },
				{ "d-rray": [ "a2b1c1d", "a2b1c2d", "a2b2c1d", "a2b2c2d" ] }
			]`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan, err := Compile(tt.source, tt.target)
			if err != nil {
				t.Fatalf("Compile failed: %v", err)
			}
			if !plan.ListOutput() {
				t.Errorf("expected list output")
			}

			got, err := plan.Transform(mustJSON(t, tt.data))
			if err != nil {
				t.Fatalf("Transform failed: %v\nplan:\n%s", err, plan)
			}
			if diff := cmp.Diff(mustJSON(t, tt.expected), got); diff != "" {
				t.Errorf("Transform mismatch (-want +got):\n%s\nplan:\n%s", diff, plan)
			}
		})
	}
}

func TestTransform_IdentityPreservesData(t *testing.T) {
	source := node("a-rray", true,
		node("B", false),
		node("c-rray", true, node("D", false), node("E", false)))
	data := mustJSON(t, `[
		{ "B": 1, "c-rray": [ { "D": "x", "E": true }, { "D": "y", "E": false } ] },
		{ "B": 2, "c-rray": [] }
	]`)

	got, err := Reshape(context.Background(), source, source.Copy(), data)
	if err != nil {
		t.Fatalf("Reshape failed: %v", err)
	}
	if diff := cmp.Diff(data, got); diff != "" {
		t.Errorf("identity reshape changed data (-want +got):\n%s", diff)
	}
}

func TestTransform_SingleInstance(t *testing.T) {
	source := node("r", false,
		node("x", false),
		node("s", false, node("y", false)),
		node("l", true, node("z", false)))

	t.Run("same_root", func(t *testing.T) {
		target := same("r", renamed("x", "X"), renamed("y", "Y"))
		plan, err := Compile(source, target)
		if err != nil {
			t.Fatalf("Compile failed: %v", err)
		}
		if plan.ListOutput() {
			t.Fatalf("expected a single instance")
		}
		got, err := plan.Transform(mustJSON(t, `{ "x": 1, "s": { "y": 2 }, "l": [] }`))
		if err != nil {
			t.Fatalf("Transform failed: %v", err)
		}
		if diff := cmp.Diff(mustJSON(t, `{ "X": 1, "Y": 2 }`), got); diff != "" {
			t.Errorf("mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("descendant_root_without_lists", func(t *testing.T) {
		target := same("s", same("y"), same("x"))
		plan, err := Compile(source, target)
		if err != nil {
			t.Fatalf("Compile failed: %v", err)
		}
		if plan.Relation().Kind != DescendantRoot {
			t.Fatalf("expected DescendantRoot, got %s", plan.Relation())
		}
		if plan.ListOutput() {
			t.Fatalf("expected a single instance")
		}
		got, err := plan.Transform(mustJSON(t, `{ "x": 1, "s": { "y": 2 } }`))
		if err != nil {
			t.Fatalf("Transform failed: %v", err)
		}
		if diff := cmp.Diff(mustJSON(t, `{ "x": 1, "y": 2 }`), got); diff != "" {
			t.Errorf("mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("descendant_root_through_list", func(t *testing.T) {
		target := same("z", same("x"))
		plan, err := Compile(source, target)
		if err != nil {
			t.Fatalf("Compile failed: %v", err)
		}
		if !plan.ListOutput() {
			t.Fatalf("expected list output")
		}
		got, err := plan.Transform(mustJSON(t, `{ "x": 7, "l": [ { "z": "a" }, { "z": "b" } ] }`))
		if err != nil {
			t.Fatalf("Transform failed: %v", err)
		}
		if diff := cmp.Diff(mustJSON(t, `[ { "x": 7 }, { "x": 7 } ]`), got); diff != "" {
			t.Errorf("mismatch (-want +got):\n%s", diff)
		}
	})
}

func TestTransform_Nulls(t *testing.T) {
	source := nestedListSource()
	target := same("a-rray", renamed("D", "d-rray"))
	data := `[ { "b-rray": null }, {}, { "b-rray": [ { "c-rray": [ {} ] } ] } ]`

	t.Run("tolerant", func(t *testing.T) {
		plan, err := Compile(source, target)
		if err != nil {
			t.Fatalf("Compile failed: %v", err)
		}
		got, err := plan.Transform(mustJSON(t, data))
		if err != nil {
			t.Fatalf("Transform failed: %v", err)
		}
		want := mustJSON(t, `[ { "d-rray": [] }, { "d-rray": [] }, { "d-rray": [ null ] } ]`)
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("strict", func(t *testing.T) {
		opts := DefaultOptions()
		opts.StrictNulls = true
		plan, err := Compile(source, target, opts)
		if err != nil {
			t.Fatalf("Compile failed: %v", err)
		}
		_, err = plan.Transform(mustJSON(t, data))
		if !errors.Is(err, ErrShapeMismatch) {
			t.Fatalf("expected ErrShapeMismatch, got %v", err)
		}
	})
}

func TestTransform_ShapeMismatch(t *testing.T) {
	tests := []struct {
		name     string
		data     string
		step     string
		expected string
	}{
		{name: "descend_into_scalar", data: `[ { "B": "x" }, "oops" ]`, step: "descend(B)", expected: "record"},
		{name: "iterate_record", data: `{ "B": "x" }`, step: "iterate", expected: "list"},
		{name: "record_in_leaf", data: `[ { "B": { "x": 1 } } ]`, step: "take", expected: "scalar"},
		{name: "list_in_leaf", data: `[ { "B": "x" }, { "B": [ 1, 2 ] } ]`, step: "take", expected: "scalar"},
	}

	source := node("a-rray", true, node("B", false))
	target := same("a-rray", same("B"))
	plan, err := Compile(source, target)
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := plan.Transform(mustJSON(t, tt.data))
			if !errors.Is(err, ErrShapeMismatch) {
				t.Fatalf("expected ErrShapeMismatch, got %v", err)
			}
			var mismatch *ShapeMismatchError
			if !errors.As(err, &mismatch) {
				t.Fatalf("expected *ShapeMismatchError, got %T", err)
			}
			if mismatch.Step != tt.step {
				t.Errorf("Step = %q, want %q", mismatch.Step, tt.step)
			}
			if mismatch.Expected != tt.expected {
				t.Errorf("Expected = %q, want %q", mismatch.Expected, tt.expected)
			}
		})
	}
}

func TestRun_IsLazyAndRestartable(t *testing.T) {
	source := node("a-rray", true, node("B", false))
	plan, err := Compile(source, same("a-rray", same("B")))
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	data := mustJSON(t, `[ { "B": 1 }, 2 ]`)

	for run := 0; run < 2; run++ {
		iter := plan.Run(data)

		v, ok := iter.Next()
		if !ok {
			t.Fatalf("run %d: expected a first value", run)
		}
		if diff := cmp.Diff(map[string]any{"B": float64(1)}, v); diff != "" {
			t.Errorf("run %d: first value mismatch (-want +got):\n%s", run, diff)
		}

		v, ok = iter.Next()
		if !ok {
			t.Fatalf("run %d: expected the error to be yielded", run)
		}
		if err, isErr := v.(error); !isErr || !errors.Is(err, ErrShapeMismatch) {
			t.Fatalf("run %d: expected shape mismatch, got %v", run, v)
		}

		if _, ok := iter.Next(); ok {
			t.Errorf("run %d: expected the sequence to end after an error", run)
		}
	}
}

func TestTransform_LeafListElementMismatch(t *testing.T) {
	_, err := Reshape(context.Background(), node("a-rray", true), same("a-rray"), mustJSON(t, `[ "aaa", { "b": 1 } ]`))
	var mismatch *ShapeMismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("expected *ShapeMismatchError, got %v", err)
	}
	if mismatch.Expected != "scalar" || mismatch.Step != "take" {
		t.Errorf("unexpected mismatch: %+v", mismatch)
	}
}

func TestTransform_AbsentFields(t *testing.T) {
	source := node("a-rray", true, node("B", false), node("C", false))

	got, err := Reshape(context.Background(), source, source.Copy(),
		mustJSON(t, `[ { "B": 1 }, { "B": 2, "C": null } ]`))
	if err != nil {
		t.Fatalf("Reshape failed: %v", err)
	}
	want := mustJSON(t, `[ { "B": 1 }, { "B": 2, "C": null } ]`)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("absent fields must stay absent (-want +got):\n%s", diff)
	}
}

// A detour from inside merged list levels reads the element of the level it
// belongs to, not every element of that level.
func TestTransform_DetourIntoMergedLevel(t *testing.T) {
	source := node("a-rray", true,
		node("b-rray", true,
			node("X", false),
			node("c-rray", true, node("D", false))))
	target := same("a-rray", renamed("D", "d-rray", same("X")))
	data := mustJSON(t, `[ { "b-rray": [
		{ "X": "x1", "c-rray": [ { "D": "d1" } ] },
		{ "X": "x2", "c-rray": [ { "D": "d2" }, { "D": "d3" } ] }
	] } ]`)

	got, err := Reshape(context.Background(), source, target, data)
	if err != nil {
		t.Fatalf("Reshape failed: %v", err)
	}
	want := mustJSON(t, `[ { "d-rray": [ { "X": "x1" }, { "X": "x2" }, { "X": "x2" } ] } ]`)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestRun_DoesNotAliasInput(t *testing.T) {
	source := node("a-rray", true, node("B", false, node("deep", true)))
	data := mustJSON(t, `[ { "B": { "deep": [1, 2] } } ]`)

	out, err := Reshape(context.Background(), source, same("a-rray", same("B")), data)
	if err != nil {
		t.Fatalf("Reshape failed: %v", err)
	}
	out.([]any)[0].(map[string]any)["B"].(map[string]any)["deep"] = "changed"

	if diff := cmp.Diff(mustJSON(t, `[ { "B": { "deep": [1, 2] } } ]`), data); diff != "" {
		t.Errorf("input was modified (-want +got):\n%s", diff)
	}
}

func TestRunContext_Canceled(t *testing.T) {
	source := node("a-rray", true, node("B", false))
	plan, err := Compile(source, same("a-rray", same("B")))
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = plan.CollectContext(ctx, mustJSON(t, `[ { "B": 1 } ]`))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestCollect_EmptyRootList(t *testing.T) {
	source := node("a-rray", true, node("B", false))
	plan, err := Compile(source, same("a-rray", same("B")))
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	got, err := plan.Collect([]any{})
	if err != nil {
		t.Fatalf("Collect failed: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("expected an empty, non-nil result, got %#v", got)
	}
}
