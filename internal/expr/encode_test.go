package expr

import "testing"

func testLibrary(t *testing.T) *Library {
	t.Helper()
	lib, err := DefaultLibrary(1, false)
	if err != nil {
		t.Fatalf("default library: %v", err)
	}
	return lib
}

func ids(t *testing.T, lib *Library, names ...string) []int {
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

func toActions(traversal []int) []int32 {
	out := make([]int32, len(traversal))
	for i, id := range traversal {
		out[i] = int32(id)
	}
	return out
}

func TestCompleteLength(t *testing.T) {
	lib := testLibrary(t)
	cases := []struct {
		name  string
		names []string
		want  int
	}{
		{name: "single terminal", names: []string{"x1"}, want: 1},
		{name: "binary tree", names: []string{"add", "x1", "x1"}, want: 3},
		{name: "completes before padding", names: []string{"sin", "x1", "x1", "x1"}, want: 2},
		{name: "never completes", names: []string{"add", "add", "x1"}, want: 8},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			actions := toActions(ids(t, lib, tc.names...))
			if got := CompleteLength(actions, lib, 8); got != tc.want {
				t.Fatalf("complete length = %d, want %d", got, tc.want)
			}
		})
	}
}

func TestTraversalExtractsCompletePrefix(t *testing.T) {
	lib := testLibrary(t)
	actions := toActions(ids(t, lib, "sin", "x1", "x1", "x1"))
	got := Traversal(actions, lib, 8)
	want := ids(t, lib, "sin", "x1")
	if len(got) != len(want) {
		t.Fatalf("traversal = %v, want %v", got, want)
	}
	for i := range got {
		if got[i] != want[i] {
			t.Fatalf("traversal = %v, want %v", got, want)
		}
	}

	if Traversal(toActions(ids(t, lib, "add", "x1")), lib, 8) != nil {
		t.Fatal("incomplete row should yield nil traversal")
	}
}

func TestParentSibling(t *testing.T) {
	lib := testLibrary(t)
	add := ids(t, lib, "add")[0]
	sin := ids(t, lib, "sin")[0]
	x1 := ids(t, lib, "x1")[0]

	// Empty prefix: both sentinels.
	parent, sibling := lib.ParentSibling(nil)
	if parent != lib.EmptyParent() || sibling != lib.EmptyAction() {
		t.Fatalf("empty prefix = (%d, %d)", parent, sibling)
	}

	// After an operator, the operator is the parent with no sibling yet.
	parent, sibling = lib.ParentSibling([]int{add})
	if parent != lib.ParentAdjust(add) || sibling != lib.EmptyAction() {
		t.Fatalf("after add = (%d, %d)", parent, sibling)
	}

	// add x1 _: the pending slot is add's second child, sibling x1.
	parent, sibling = lib.ParentSibling([]int{add, x1})
	if parent != lib.ParentAdjust(add) || sibling != x1 {
		t.Fatalf("after add x1 = (%d, %d)", parent, sibling)
	}

	// add sin x1 _: the unary subtree closed, back to add with the sin
	// subtree as the expanded first child.
	parent, sibling = lib.ParentSibling([]int{add, sin, x1})
	if parent != lib.ParentAdjust(add) || sibling != sin {
		t.Fatalf("after add sin x1 = (%d, %d)", parent, sibling)
	}
}

func TestEncodeTraversal(t *testing.T) {
	lib := testLibrary(t)
	traversal := ids(t, lib, "add", "x1", "x1")
	row := lib.EncodeTraversal(traversal, 6)

	if row.Length != 3 {
		t.Fatalf("length = %d, want 3", row.Length)
	}
	if len(row.Actions) != 6 {
		t.Fatalf("padded width = %d, want 6", len(row.Actions))
	}
	for i, id := range traversal {
		if row.Actions[i] != int32(id) {
			t.Fatalf("action[%d] = %d, want %d", i, row.Actions[i], id)
		}
	}
	// Padding positions use sentinels.
	for i := 3; i < 6; i++ {
		if row.Actions[i] != int32(lib.EmptyAction()) {
			t.Fatalf("padding action[%d] = %d", i, row.Actions[i])
		}
		if row.Parent[i] != int32(lib.EmptyParent()) {
			t.Fatalf("padding parent[%d] = %d", i, row.Parent[i])
		}
	}
	// Prev shifts actions by one.
	if row.Prev[0] != int32(lib.EmptyAction()) || row.Prev[1] != row.Actions[0] {
		t.Fatalf("prev = %v", row.Prev)
	}
	// No constraint mass on externally encoded rows.
	for _, step := range row.Priors {
		if len(step) != lib.Len() {
			t.Fatalf("prior width = %d, want %d", len(step), lib.Len())
		}
		for _, p := range step {
			if p != 0 {
				t.Fatalf("expected zero priors, got %v", step)
			}
		}
	}

	// Re-extracting the traversal from the encoded row round-trips.
	back := Traversal(row.Actions, lib, 6)
	if len(back) != len(traversal) {
		t.Fatalf("round trip = %v", back)
	}
}
