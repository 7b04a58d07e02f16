package expr

// CompleteLength returns the index just past the first structurally complete
// prefix of the action row, or maxLength when no prefix completes. A prefix
// is complete when every operator has all of its children.
func CompleteLength(actions []int32, lib *Library, maxLength int) int {
	dangling := 1
	for i, a := range actions {
		if i >= maxLength {
			break
		}
		id := int(a)
		if id < 0 || id >= lib.Len() {
			break
		}
		dangling += lib.Arity(id) - 1
		if dangling == 0 {
			return i + 1
		}
	}
	return maxLength
}

// Traversal extracts the complete prefix of an action row, or nil when the
// row never completes within maxLength.
func Traversal(actions []int32, lib *Library, maxLength int) []int {
	n := CompleteLength(actions, lib, maxLength)
	out := make([]int, 0, n)
	dangling := 1
	for i := 0; i < n && i < len(actions); i++ {
		id := int(actions[i])
		if id < 0 || id >= lib.Len() {
			return nil
		}
		out = append(out, id)
		dangling += lib.Arity(id) - 1
		if dangling == 0 {
			return out
		}
	}
	return nil
}

// ParentSibling computes the structural observation for the position that
// follows the partial traversal: the parent of the pending slot (in the
// compacted parent index space) and its already-expanded first child, if
// any. Scans backward accumulating arity-1 per token.
func (l *Library) ParentSibling(partial []int) (parent, sibling int) {
	if len(partial) == 0 {
		return l.EmptyParent(), l.EmptyAction()
	}
	last := partial[len(partial)-1]
	if l.Arity(last) > 0 {
		return l.ParentAdjust(last), l.EmptyAction()
	}
	c := 0
	for i := len(partial) - 1; i >= 0; i-- {
		c += l.Arity(partial[i]) - 1
		if c == 0 {
			return l.ParentAdjust(partial[i]), partial[i+1]
		}
	}
	return l.EmptyParent(), l.EmptyAction()
}

// Row is one encoded batch row: the padded action sequence and the three
// observation channels a sampler conditions on at each step.
type Row struct {
	Actions []int32
	Prev    []int32
	Parent  []int32
	Sibling []int32
	Priors  [][]float32
	Length  int32
}

// EncodeTraversal renders a complete traversal into the exact row a live
// sampling pass would have produced for it. Priors are zero: externally
// produced rows carry no constraint mass.
func (l *Library) EncodeTraversal(traversal []int, maxLength int) Row {
	row := Row{
		Actions: make([]int32, maxLength),
		Prev:    make([]int32, maxLength),
		Parent:  make([]int32, maxLength),
		Sibling: make([]int32, maxLength),
		Priors:  make([][]float32, maxLength),
	}
	empty := int32(l.EmptyAction())
	for i := range row.Actions {
		row.Actions[i] = empty
		row.Prev[i] = empty
		row.Parent[i] = int32(l.EmptyParent())
		row.Sibling[i] = empty
		row.Priors[i] = make([]float32, l.Len())
	}
	n := len(traversal)
	if n > maxLength {
		n = maxLength
	}
	for t := 0; t < n; t++ {
		row.Actions[t] = int32(traversal[t])
		if t > 0 {
			row.Prev[t] = int32(traversal[t-1])
		}
		parent, sibling := l.ParentSibling(traversal[:t])
		row.Parent[t] = int32(parent)
		row.Sibling[t] = int32(sibling)
	}
	row.Length = int32(n)
	return row
}
