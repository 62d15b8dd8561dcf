package tac

import (
	"strings"
	"testing"

	"compiscript/internal/frontend"
)

func generate(t *testing.T, src string) (*Generator, []string) {
	t.Helper()
	prog, err := frontend.Parse(src)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	gen := NewGenerator()
	code, err := gen.GenerateProgram(prog)
	if err != nil {
		t.Fatalf("tac generation error: %v", err)
	}
	return gen, code
}

func TestGenerateSimpleAssignment(t *testing.T) {
	_, code := generate(t, `var x: integer = 1 + 2;`)
	joined := strings.Join(code, "\n")
	if !strings.Contains(joined, "+") {
		t.Errorf("expected addition in generated TAC, got:\n%s", joined)
	}
}

func TestGenerateFunctionProducesBeginEndFunc(t *testing.T) {
	_, code := generate(t, `
	function add(a: integer, b: integer): integer {
		return a + b;
	}`)
	joined := strings.Join(code, "\n")
	if !strings.Contains(joined, "BeginFunc add") {
		t.Errorf("expected BeginFunc add, got:\n%s", joined)
	}
	if !strings.Contains(joined, "EndFunc add") {
		t.Errorf("expected EndFunc add, got:\n%s", joined)
	}
	if !strings.Contains(joined, "return") {
		t.Errorf("expected a return instruction, got:\n%s", joined)
	}
}

func TestGenerateIfElseEmitsLabelsAndGotos(t *testing.T) {
	_, code := generate(t, `
	function f(x: integer): integer {
		if (x > 0) {
			return 1;
		} else {
			return 0;
		}
	}`)
	joined := strings.Join(code, "\n")
	if !strings.Contains(joined, "if x") && !strings.Contains(joined, "goto") {
		t.Errorf("expected conditional branching in generated TAC, got:\n%s", joined)
	}
}

func TestGenerateClassRegistersConstructorAndMethod(t *testing.T) {
	gen, code := generate(t, `
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
	if _, ok := gen.Classes["Point"]; !ok {
		t.Fatalf("expected Point to be registered as a class")
	}
	joined := strings.Join(code, "\n")
	if !strings.Contains(joined, "Point_constructor") {
		t.Errorf("expected a Point_constructor label in generated TAC, got:\n%s", joined)
	}
}

func TestGetCompleteStatisticsCounts(t *testing.T) {
	gen, _ := generate(t, `var x: integer = 1; var y: integer = x + 1;`)
	stats := gen.GetCompleteStatistics()
	if stats.InstructionCount == 0 {
		t.Error("expected a non-zero instruction count")
	}
}

func TestValidateTACNoWarningsForWellFormedProgram(t *testing.T) {
	gen, _ := generate(t, `
	function f(): integer {
		return 1;
	}`)
	if warnings := gen.ValidateTAC(); len(warnings) != 0 {
		t.Errorf("expected no validation warnings, got: %v", warnings)
	}
}
