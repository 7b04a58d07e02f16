package task

import (
	"math"
	"testing"

	"exprsearch/internal/expr"
)

func execLib(t *testing.T) *expr.Library {
	t.Helper()
	lib, err := expr.DefaultLibrary(1, true)
	if err != nil {
		t.Fatalf("default library: %v", err)
	}
	return lib
}

func tokIDs(t *testing.T, lib *expr.Library, names ...string) []int {
	t.Helper()
	out := make([]int, len(names))
	for i, name := range names {
		tok, ok := lib.TokenByName(name)
		if !ok {
			t.Fatalf("unknown token %q", name)
		}
		out[i] = tok.ID
	}
	return out
}

func TestExecTraversalValues(t *testing.T) {
	lib := execLib(t)
	cases := []struct {
		name  string
		expr  []string
		x     float64
		want  float64
		close bool
	}{
		{name: "identity", expr: []string{"x1"}, x: 2, want: 2},
		{name: "add", expr: []string{"add", "x1", "x1"}, x: 3, want: 6},
		{name: "nested", expr: []string{"mul", "x1", "add", "x1", "x1"}, x: 2, want: 8},
		{name: "sin", expr: []string{"sin", "x1"}, x: math.Pi / 2, want: 1, close: true},
		{name: "constant placeholder", expr: []string{"mul", "const", "x1"}, x: 3, want: 3},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			v, execErr := execTraversal(lib, tokIDs(t, lib, tc.expr...), nil, []float64{tc.x})
			if execErr != nil {
				t.Fatalf("exec: %+v", execErr)
			}
			if tc.close {
				if math.Abs(v-tc.want) > 1e-9 {
					t.Fatalf("value = %v, want ~%v", v, tc.want)
				}
			} else if v != tc.want {
				t.Fatalf("value = %v, want %v", v, tc.want)
			}
		})
	}
}

func TestExecTraversalUsesFittedConstants(t *testing.T) {
	lib := execLib(t)
	v, execErr := execTraversal(lib, tokIDs(t, lib, "mul", "const", "x1"), []float64{2.5}, []float64{4})
	if execErr != nil {
		t.Fatalf("exec: %+v", execErr)
	}
	if v != 10 {
		t.Fatalf("value = %v, want 10", v)
	}
}

func TestExecTraversalTaxonomy(t *testing.T) {
	lib := execLib(t)
	cases := []struct {
		name string
		expr []string
		x    float64
		kind string
		node string
	}{
		{name: "log of negative", expr: []string{"log", "x1"}, x: -1, kind: expr.ErrKindDomain, node: "log"},
		{name: "zero over zero", expr: []string{"div", "x1", "x1"}, x: 0, kind: expr.ErrKindDomain, node: "div"},
		{name: "exp overflow", expr: []string{"exp", "exp", "exp", "x1"}, x: 100, kind: expr.ErrKindOverflow, node: "exp"},
		{name: "truncated traversal", expr: []string{"add", "x1"}, x: 1, kind: expr.ErrKindLength},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, execErr := execTraversal(lib, tokIDs(t, lib, tc.expr...), nil, []float64{tc.x})
			if execErr == nil {
				t.Fatal("expected an execution error")
			}
			if execErr.kind != tc.kind {
				t.Fatalf("kind = %q, want %q", execErr.kind, tc.kind)
			}
			if tc.node != "" && execErr.node != tc.node {
				t.Fatalf("node = %q, want %q", execErr.node, tc.node)
			}
		})
	}
}

func TestExecTraversalRejectsTrailingTokens(t *testing.T) {
	lib := execLib(t)
	_, execErr := execTraversal(lib, tokIDs(t, lib, "x1", "x1"), nil, []float64{1})
	if execErr == nil || execErr.kind != expr.ErrKindLength {
		t.Fatalf("expected incomplete taxonomy, got %+v", execErr)
	}
}
