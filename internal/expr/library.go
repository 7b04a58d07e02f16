package expr

import (
	"fmt"
	"strings"
)

// Token is one entry of a fixed symbol library. ID is its index in the
// library; Arity is the number of children it takes in a prefix traversal.
type Token struct {
	ID         int
	Name       string
	Arity      int
	InputVar   int // variable index for terminals reading an input column, -1 otherwise
	Const      bool
	Complexity float64
}

// Library holds the token set candidates are built from, plus the derived
// parent-position adjustment table used by structural observations: only
// tokens with arity > 0 can be parents, so their IDs are compacted into a
// dense parent index space.
type Library struct {
	tokens       []Token
	byName       map[string]int
	parentAdjust []int
	nParents     int
	constToken   int
}

func NewLibrary(tokens []Token) (*Library, error) {
	if len(tokens) == 0 {
		return nil, fmt.Errorf("library requires at least one token")
	}
	lib := &Library{
		tokens:       make([]Token, len(tokens)),
		byName:       make(map[string]int, len(tokens)),
		parentAdjust: make([]int, len(tokens)),
		constToken:   -1,
	}
	for i, tok := range tokens {
		if tok.Name == "" {
			return nil, fmt.Errorf("token name is required at index %d", i)
		}
		if tok.Arity < 0 || tok.Arity > 2 {
			return nil, fmt.Errorf("token %s arity must be in [0, 2]", tok.Name)
		}
		if _, dup := lib.byName[tok.Name]; dup {
			return nil, fmt.Errorf("duplicate token name: %s", tok.Name)
		}
		tok.ID = i
		if tok.Complexity == 0 {
			tok.Complexity = 1
		}
		lib.tokens[i] = tok
		lib.byName[tok.Name] = i
		if tok.Arity > 0 {
			lib.parentAdjust[i] = lib.nParents
			lib.nParents++
		} else {
			lib.parentAdjust[i] = -1
		}
		if tok.Const {
			if lib.constToken >= 0 {
				return nil, fmt.Errorf("library allows at most one constant token")
			}
			lib.constToken = i
		}
	}
	return lib, nil
}

// DefaultLibrary builds the standard operator set over nInputs variables,
// optionally with a fitted-constant placeholder.
func DefaultLibrary(nInputs int, withConst bool) (*Library, error) {
	if nInputs <= 0 {
		return nil, fmt.Errorf("nInputs must be > 0")
	}
	tokens := []Token{
		{Name: "add", Arity: 2, InputVar: -1, Complexity: 1},
		{Name: "sub", Arity: 2, InputVar: -1, Complexity: 1},
		{Name: "mul", Arity: 2, InputVar: -1, Complexity: 1},
		{Name: "div", Arity: 2, InputVar: -1, Complexity: 2},
		{Name: "sin", Arity: 1, InputVar: -1, Complexity: 3},
		{Name: "cos", Arity: 1, InputVar: -1, Complexity: 3},
		{Name: "exp", Arity: 1, InputVar: -1, Complexity: 4},
		{Name: "log", Arity: 1, InputVar: -1, Complexity: 4},
	}
	for i := 0; i < nInputs; i++ {
		tokens = append(tokens, Token{Name: fmt.Sprintf("x%d", i+1), Arity: 0, InputVar: i, Complexity: 1})
	}
	if withConst {
		tokens = append(tokens, Token{Name: "const", Arity: 0, InputVar: -1, Const: true, Complexity: 2})
	}
	return NewLibrary(tokens)
}

func (l *Library) Len() int { return len(l.tokens) }

func (l *Library) Token(id int) Token { return l.tokens[id] }

func (l *Library) TokenByName(name string) (Token, bool) {
	id, ok := l.byName[name]
	if !ok {
		return Token{}, false
	}
	return l.tokens[id], true
}

func (l *Library) Arity(id int) int { return l.tokens[id].Arity }

// ConstToken returns the constant placeholder ID, or -1 when the library
// carries none.
func (l *Library) ConstToken() int { return l.constToken }

// EmptyAction is the sentinel ID used for "no token" in action and sibling
// observations.
func (l *Library) EmptyAction() int { return len(l.tokens) }

// EmptyParent is the sentinel in the compacted parent index space.
func (l *Library) EmptyParent() int { return l.nParents }

func (l *Library) ParentAdjust(id int) int { return l.parentAdjust[id] }

// Terminals returns the IDs of all arity-0 tokens.
func (l *Library) Terminals() []int {
	out := make([]int, 0, len(l.tokens))
	for _, tok := range l.tokens {
		if tok.Arity == 0 {
			out = append(out, tok.ID)
		}
	}
	return out
}

// Key renders a traversal into its canonical cache key.
func (l *Library) Key(traversal []int) string {
	names := make([]string, len(traversal))
	for i, id := range traversal {
		names[i] = l.tokens[id].Name
	}
	return strings.Join(names, ",")
}
