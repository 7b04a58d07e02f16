package expr

import "testing"

func TestNewLibraryValidation(t *testing.T) {
	if _, err := NewLibrary(nil); err == nil {
		t.Fatal("expected error for empty token set")
	}
	if _, err := NewLibrary([]Token{{Name: "add", Arity: 2}, {Name: "add", Arity: 1}}); err == nil {
		t.Fatal("expected error for duplicate name")
	}
	if _, err := NewLibrary([]Token{{Name: "bad", Arity: 3}}); err == nil {
		t.Fatal("expected error for arity > 2")
	}
	if _, err := NewLibrary([]Token{
		{Name: "c1", Const: true},
		{Name: "c2", Const: true},
	}); err == nil {
		t.Fatal("expected error for two constant tokens")
	}
}

func TestDefaultLibrary(t *testing.T) {
	lib, err := DefaultLibrary(2, true)
	if err != nil {
		t.Fatalf("default library: %v", err)
	}
	// 8 operators, 2 input variables, 1 constant.
	if lib.Len() != 11 {
		t.Fatalf("library size = %d, want 11", lib.Len())
	}
	if lib.ConstToken() != 10 {
		t.Fatalf("const token = %d, want 10", lib.ConstToken())
	}
	if tok, ok := lib.TokenByName("x2"); !ok || tok.InputVar != 1 {
		t.Fatalf("x2 = %+v (ok=%v)", tok, ok)
	}
	if got := len(lib.Terminals()); got != 3 {
		t.Fatalf("terminals = %d, want 3", got)
	}
}

func TestParentAdjustCompaction(t *testing.T) {
	lib, err := DefaultLibrary(1, false)
	if err != nil {
		t.Fatalf("default library: %v", err)
	}
	// The 8 operators occupy parent indices 0..7 in declaration order;
	// terminals have no parent index.
	for id := 0; id < 8; id++ {
		if got := lib.ParentAdjust(id); got != id {
			t.Fatalf("parent adjust of operator %d = %d", id, got)
		}
	}
	x1, _ := lib.TokenByName("x1")
	if got := lib.ParentAdjust(x1.ID); got != -1 {
		t.Fatalf("terminal parent adjust = %d, want -1", got)
	}
	if lib.EmptyParent() != 8 {
		t.Fatalf("empty parent = %d, want 8", lib.EmptyParent())
	}
	if lib.EmptyAction() != lib.Len() {
		t.Fatalf("empty action = %d, want %d", lib.EmptyAction(), lib.Len())
	}
}

func TestKeyJoinsNames(t *testing.T) {
	lib, err := DefaultLibrary(1, false)
	if err != nil {
		t.Fatalf("default library: %v", err)
	}
	add, _ := lib.TokenByName("add")
	x1, _ := lib.TokenByName("x1")
	if got := lib.Key([]int{add.ID, x1.ID, x1.ID}); got != "add,x1,x1" {
		t.Fatalf("key = %q", got)
	}
	if got := lib.Key(nil); got != "" {
		t.Fatalf("empty key = %q", got)
	}
}
