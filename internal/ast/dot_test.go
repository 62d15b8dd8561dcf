package ast

import (
	"strings"
	"testing"
)

func TestRenderDOTWrapsDigraph(t *testing.T) {
	out := RenderDOT(&Program{})
	if !strings.Contains(out, "digraph AST {") || !strings.HasSuffix(out, "}\n") {
		t.Fatalf("expected a wrapped digraph, got %q", out)
	}
	if !strings.Contains(out, `n1 [label="Program"];`) {
		t.Errorf("expected a root Program node, got %q", out)
	}
}

func TestRenderDOTVarDeclAndExpr(t *testing.T) {
	prog := &Program{
		Stmts: []Stmt{
			&VarDecl{Name: "x", Init: &BinaryExpr{
				Left:     &IntLiteral{Value: 1},
				Operator: "+",
				Right:    &IntLiteral{Value: 2},
			}},
		},
	}
	out := RenderDOT(prog)
	for _, want := range []string{`label="Var(x)"`, `label="Binary(+)"`, `label="Int(1)"`, `label="Int(2)"`} {
		if !strings.Contains(out, want) {
			t.Errorf("expected output to contain %q, got %q", want, out)
		}
	}
}

func TestRenderDOTClassWithMethods(t *testing.T) {
	prog := &Program{
		Stmts: []Stmt{
			&ClassDecl{
				Name: "Point",
				Constructors: []FunctionDecl{
					{Name: "constructor"},
				},
				Methods: []FunctionDecl{
					{Name: "sum"},
				},
			},
		},
	}
	out := RenderDOT(prog)
	for _, want := range []string{`label="Class(Point)"`, `label="Function(constructor)"`, `label="Function(sum)"`} {
		if !strings.Contains(out, want) {
			t.Errorf("expected output to contain %q, got %q", want, out)
		}
	}
}

func TestRenderDOTControlFlowShapes(t *testing.T) {
	prog := &Program{
		Stmts: []Stmt{
			&IfStmt{Cond: &BoolLiteral{Value: true}, Then: []Stmt{&BreakStmt{}}, Else: []Stmt{&ContinueStmt{}}},
			&ForEachStmt{VarName: "item", Iterable: &Identifier{Name: "items"}, Body: []Stmt{&ReturnStmt{}}},
			&TryStmt{CatchVar: "e", Try: []Stmt{}, Catch: []Stmt{}},
		},
	}
	out := RenderDOT(prog)
	for _, want := range []string{`label="If"`, `label="Break"`, `label="Continue"`, `label="ForEach(item)"`, `label="Try(catch e)"`} {
		if !strings.Contains(out, want) {
			t.Errorf("expected output to contain %q, got %q", want, out)
		}
	}
}
