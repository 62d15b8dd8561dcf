// Package symbols implements the scope tree shared by name resolution, type
// checking, and (post TAC-generation) memory annotation: a Scope owns a
// name->Symbol map and a parent link, and a Symbol carries its type plus,
// once the annotator has run, its memory metadata.
package symbols

import "compiscript/internal/ast"

type Kind int

const (
	KindVar Kind = iota
	KindFunc
	KindClass
)

func (k Kind) String() string {
	switch k {
	case KindVar:
		return "var"
	case KindFunc:
		return "func"
	case KindClass:
		return "class"
	default:
		return "unknown"
	}
}

// Symbol is a single scope entry. The memory-metadata fields are zero until
// the symbol annotator (internal/tac.Annotate) runs after TAC generation.
type Symbol struct {
	Name  string
	Type  *ast.TypeRef
	Const bool
	Kind  Kind

	// Memory metadata, populated post-annotation.
	ByteSize    int
	IsGlobal    bool
	GlobalLabel string // valid when IsGlobal
	FrameOffset int    // valid when !IsGlobal: offset from $fp
	IsParam     bool
	ParamIndex  int
	FrameSize   int    // owning activation record's frame size, for functions
	TACLabel    string // for KindFunc: the function's entry label
}

// Scope owns a name->Symbol map and a parent link; lookup walks parents.
type Scope struct {
	Parent  *Scope
	Names   map[string]*Symbol
	Kind    string // "global", "function", "block", "class" - for diagnostics
	Owner   string // function/class name owning this scope, if any
	Ordered []string
}

func NewScope(parent *Scope, kind, owner string) *Scope {
	return &Scope{
		Parent: parent,
		Names:  make(map[string]*Symbol),
		Kind:   kind,
		Owner:  owner,
	}
}

// Declare adds a new symbol to this scope. Redeclaration in the same scope
// is a semantic-analyzer concern (§3); this method simply overwrites, since
// the analyzer is assumed to have rejected duplicates before TAC generation
// ever sees this scope.
func (s *Scope) Declare(sym *Symbol) {
	if _, exists := s.Names[sym.Name]; !exists {
		s.Ordered = append(s.Ordered, sym.Name)
	}
	s.Names[sym.Name] = sym
}

// Resolve walks parent scopes looking for name.
func (s *Scope) Resolve(name string) (*Symbol, bool) {
	for sc := s; sc != nil; sc = sc.Parent {
		if sym, ok := sc.Names[name]; ok {
			return sym, true
		}
	}
	return nil, false
}

// ResolveLocal looks up name only in this scope, not parents.
func (s *Scope) ResolveLocal(name string) (*Symbol, bool) {
	sym, ok := s.Names[name]
	return sym, ok
}

// IsGlobalScope reports whether this scope has no parent.
func (s *Scope) IsGlobalScope() bool { return s.Parent == nil }

// Walk visits this scope and every descendant in pre-order. children must be
// supplied externally since Scope itself has no Children slice - the AST
// walk that builds the tree is expected to track parent/child links in its
// own builder (internal/tac keeps a flat registry instead, see
// FunctionRegistry) rather than Scope re-deriving them.
func (s *Scope) Walk(children func(*Scope) []*Scope, visit func(*Scope)) {
	visit(s)
	for _, c := range children(s) {
		c.Walk(children, visit)
	}
}

// ByteSizeOf returns the canonical size of a type reference: 4 bytes for
// every primitive and every array/string/class reference (all of those are
// pointer-sized on a MIPS32 target).
func ByteSizeOf(t *ast.TypeRef) int {
	return 4
}
