package llvmir

import (
	"strings"
	"testing"

	"compiscript/internal/frontend"
	"compiscript/internal/tac"
)

func renderSource(t *testing.T, src string) string {
	t.Helper()
	prog, err := frontend.Parse(src)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	gen := tac.NewGenerator()
	if _, err := gen.GenerateProgram(prog); err != nil {
		t.Fatalf("tac generation error: %v", err)
	}
	out, err := Render(gen.Instrs, gen.Classes)
	if err != nil {
		t.Fatalf("llvmir render error: %v", err)
	}
	return out
}

func TestRenderSimpleArithmetic(t *testing.T) {
	out := renderSource(t, `var x: integer = 1 + 2;`)
	if !strings.Contains(out, "define") {
		t.Errorf("expected at least one defined function, got:\n%s", out)
	}
	if !strings.Contains(out, "add") {
		t.Errorf("expected an add instruction, got:\n%s", out)
	}
}

func TestRenderFunctionWithParamsAndReturn(t *testing.T) {
	out := renderSource(t, `
	function add(a: integer, b: integer): integer {
		return a + b;
	}`)
	if !strings.Contains(out, "@add") {
		t.Errorf("expected a function named @add, got:\n%s", out)
	}
	if !strings.Contains(out, "ret i32") {
		t.Errorf("expected an i32 ret instruction, got:\n%s", out)
	}
}

func TestRenderIfElseProducesBranches(t *testing.T) {
	out := renderSource(t, `
	function f(x: integer): integer {
		if (x > 0) {
			return 1;
		} else {
			return 0;
		}
	}`)
	if !strings.Contains(out, "icmp") {
		t.Errorf("expected an icmp instruction, got:\n%s", out)
	}
	if !strings.Contains(out, "br i1") {
		t.Errorf("expected a conditional branch, got:\n%s", out)
	}
}

func TestRenderClassConstructorAndMethod(t *testing.T) {
	out := renderSource(t, `
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
	}`)
	if !strings.Contains(out, "@Point_constructor") {
		t.Errorf("expected a @Point_constructor function, got:\n%s", out)
	}
	if !strings.Contains(out, "@compiscript_rt_alloc") {
		t.Errorf("expected a declared allocation helper, got:\n%s", out)
	}
	if !strings.Contains(out, "getelementptr") {
		t.Errorf("expected a getelementptr for field access, got:\n%s", out)
	}
}

func TestRenderWhileLoopProducesBackEdge(t *testing.T) {
	out := renderSource(t, `
	function loop(): void {
		var i: integer = 0;
		while (i < 10) {
			i = i + 1;
		}
	}`)
	if !strings.Contains(out, "br label") && !strings.Contains(out, "br i1") {
		t.Errorf("expected branch instructions forming a loop, got:\n%s", out)
	}
}

func TestRenderArrayAllocationAndIndexing(t *testing.T) {
	out := renderSource(t, `
	function f(): void {
		var arr: integer[] = [1, 2, 3];
		var x: integer = arr[0];
	}`)
	if !strings.Contains(out, "@compiscript_rt_alloc") {
		t.Errorf("expected the array backing allocation to call compiscript_rt_alloc, got:\n%s", out)
	}
	if !strings.Contains(out, "getelementptr") {
		t.Errorf("expected a getelementptr for array indexing, got:\n%s", out)
	}
}

func TestRenderEmptyProgramStillProducesAModule(t *testing.T) {
	out := renderSource(t, ``)
	if out == "" {
		t.Error("expected a non-empty module even for an empty program")
	}
}
