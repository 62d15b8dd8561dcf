package symbols

import (
	"testing"

	"compiscript/internal/ast"
)

func TestScopeDeclareAndResolve(t *testing.T) {
	global := NewScope(nil, "global", "")
	global.Declare(&Symbol{Name: "x", Kind: KindVar})

	fn := NewScope(global, "function", "f")
	fn.Declare(&Symbol{Name: "a", Kind: KindVar, IsParam: true})

	if _, ok := fn.ResolveLocal("x"); ok {
		t.Error("ResolveLocal should not see parent-scope names")
	}
	if _, ok := fn.Resolve("x"); !ok {
		t.Error("Resolve should walk up to the parent scope")
	}
	if _, ok := fn.Resolve("a"); !ok {
		t.Error("Resolve should find a name declared in the current scope")
	}
	if _, ok := global.Resolve("a"); ok {
		t.Error("a parent scope should not see a child's declarations")
	}
}

func TestScopeDeclareOrderPreserved(t *testing.T) {
	s := NewScope(nil, "global", "")
	s.Declare(&Symbol{Name: "b"})
	s.Declare(&Symbol{Name: "a"})
	s.Declare(&Symbol{Name: "b"}) // redeclare, should not duplicate in Ordered

	want := []string{"b", "a"}
	if len(s.Ordered) != len(want) {
		t.Fatalf("got %d ordered names, want %d: %v", len(s.Ordered), len(want), s.Ordered)
	}
	for i := range want {
		if s.Ordered[i] != want[i] {
			t.Errorf("position %d: got %q, want %q", i, s.Ordered[i], want[i])
		}
	}
}

func TestScopeIsGlobalScope(t *testing.T) {
	global := NewScope(nil, "global", "")
	child := NewScope(global, "block", "")
	if !global.IsGlobalScope() {
		t.Error("a scope with no parent should report IsGlobalScope")
	}
	if child.IsGlobalScope() {
		t.Error("a scope with a parent should not report IsGlobalScope")
	}
}

func TestScopeWalkVisitsInPreOrder(t *testing.T) {
	root := NewScope(nil, "global", "")
	a := NewScope(root, "function", "a")
	b := NewScope(root, "function", "b")
	children := map[*Scope][]*Scope{root: {a, b}}

	var visited []string
	root.Walk(func(s *Scope) []*Scope { return children[s] }, func(s *Scope) {
		visited = append(visited, s.Owner)
	})

	want := []string{"", "a", "b"}
	if len(visited) != len(want) {
		t.Fatalf("got %d visits, want %d: %v", len(visited), len(want), visited)
	}
	for i := range want {
		if visited[i] != want[i] {
			t.Errorf("visit %d: got %q, want %q", i, visited[i], want[i])
		}
	}
}

func TestByteSizeOfIsWordSized(t *testing.T) {
	if got := ByteSizeOf(&ast.TypeRef{Base: ast.TypeInteger}); got != 4 {
		t.Errorf("expected every type to be word-sized (4), got %d", got)
	}
	if got := ByteSizeOf(&ast.TypeRef{Base: "Point"}); got != 4 {
		t.Errorf("expected a class reference to be word-sized (4), got %d", got)
	}
}
