package frontend

import (
	"testing"

	"compiscript/internal/ast"
)

// assertParseSuccess parses input and fails the test with the parse error
// if it doesn't succeed, mirroring the teacher's own parser_test.go helper
// shape (assertParseSuccess/assertParseError), adapted to this package's
// (program, error) return instead of a panic-and-collect Errors slice.
func assertParseSuccess(t *testing.T, input, description string) {
	t.Helper()
	if _, err := Parse(input); err != nil {
		t.Fatalf("%s: expected parse success, got error: %v", description, err)
	}
}

func assertParseError(t *testing.T, input, description string) {
	t.Helper()
	if _, err := Parse(input); err == nil {
		t.Fatalf("%s: expected a parse error, got success", description)
	}
}

func TestVariableDeclarations(t *testing.T) {
	tests := []struct {
		name, input string
		wantErr     bool
	}{
		{"simple int", `var x: integer = 1;`, false},
		{"const string", `const name: string = "hi";`, false},
		{"expression init", `var r: integer = (1 + 2) * 3;`, false},
		{"missing type colon", `var x integer = 1;`, true},
		{"missing semicolon", `var x: integer = 1`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.wantErr {
				assertParseError(t, tt.input, tt.name)
			} else {
				assertParseSuccess(t, tt.input, tt.name)
			}
		})
	}
}

func TestFunctionDecl(t *testing.T) {
	src := `
	function factorial(n: integer): integer {
		if (n <= 1) return 1;
		return n * factorial(n - 1);
	}`
	prog, err := Parse(src)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(prog.Stmts) != 1 {
		t.Fatalf("expected 1 top-level statement, got %d", len(prog.Stmts))
	}
}

func TestClassDecl(t *testing.T) {
	src := `
	class Point {
		var x: integer;
		var y: integer;
		function constructor(a: integer, b: integer): void {
			this.x = a;
			this.y = b;
		}
		function sum(): integer {
			return this.x + this.y;
		}
	}`
	assertParseSuccess(t, src, "class with constructor and method")
}

func TestControlFlow(t *testing.T) {
	tests := []string{
		`function f(): void { if (a && b) { x = 1; } else { x = 2; } }`,
		`function f(): void { while (x < 10) { x = x + 1; } }`,
		`function f(): void { do { x = x + 1; } while (x < 10); }`,
		`function f(): void { for (var i: integer = 0; i < 10; i = i + 1) { } }`,
		`function f(): void { foreach (x in items) { } }`,
	}
	for _, src := range tests {
		assertParseSuccess(t, src, src)
	}
}

func TestExpressions(t *testing.T) {
	tests := []string{
		`function f(): void { x = a ? b : c; }`,
		`function f(): void { x = new Point(1, 2); }`,
		`function f(): void { x = arr[0]; }`,
		`function f(): void { x = obj.field; }`,
		`function f(): void { x = [1, 2, 3]; }`,
	}
	for _, src := range tests {
		assertParseSuccess(t, src, src)
	}
}

func TestNoTypeResolution(t *testing.T) {
	// §3's "(NEW) AST contract package shape": this package never assigns
	// ResolvedType - that is an external collaborator's job.
	prog, err := Parse(`var x: integer = 1 + 2;`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(prog.Stmts) != 1 {
		t.Fatalf("expected 1 statement")
	}
	decl, ok := prog.Stmts[0].(*ast.VarDecl)
	if !ok || decl.Init == nil {
		t.Fatalf("expected a VarDecl with an initializer, got %T", prog.Stmts[0])
	}
	if decl.Init.Type() != nil {
		t.Errorf("expected the initializer's ResolvedType to be nil, got %+v", decl.Init.Type())
	}
}
