package mips

import (
	"strings"
	"testing"
)

func TestRenderInstructionAndDirective(t *testing.T) {
	tests := []struct {
		n    Node
		want string
	}{
		{Instruction{Op: "jr", Operands: []string{"$ra"}}, "\tjr $ra"},
		{Instruction{Op: "addi", Operands: []string{"$sp", "$sp", "-32"}}, "\taddi $sp, $sp, -32"},
		{Directive{Name: ".globl", Operands: []string{"main"}}, "\t.globl main"},
		{Label{Name: "main"}, "main:"},
		{Comment{Text: "note"}, "# note"},
	}
	for _, tt := range tests {
		if got := Render(tt.n); got != tt.want {
			t.Errorf("got %q, want %q", got, tt.want)
		}
	}
}

func TestRenderInstructionWithTrailingComment(t *testing.T) {
	got := Render(Instruction{Op: "li", Operands: []string{"$t0", "1"}, Comment: "load constant"})
	if !strings.HasPrefix(got, "\tli $t0, 1") || !strings.HasSuffix(got, "# load constant") {
		t.Errorf("expected an aligned trailing comment, got %q", got)
	}
}

func TestRenderProgramOneLinePerNode(t *testing.T) {
	lines := RenderProgram([]Node{
		Directive{Name: ".text"},
		Label{Name: "main"},
		Instruction{Op: "jr", Operands: []string{"$ra"}},
	})
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d: %v", len(lines), lines)
	}
}
