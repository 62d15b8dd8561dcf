package mips

import (
	"testing"
	"time"
)

func TestPeepholeRedundantMoveAndNop(t *testing.T) {
	out, passes := Peephole([]Node{
		Instruction{Op: "move", Operands: []string{"$t0", "$t0"}},
		Instruction{Op: "nop"},
		Instruction{Op: "move", Operands: []string{"$t1", "$t2"}},
	})
	if passes == 0 {
		t.Fatalf("expected at least one optimization pass")
	}
	lines := RenderProgram(out)
	if len(lines) != 1 {
		t.Fatalf("expected only the non-redundant move to survive, got %v", lines)
	}
}

func TestPeepholeLoadStoreRedundancyBothDirections(t *testing.T) {
	out, _ := Peephole([]Node{
		Instruction{Op: "lw", Operands: []string{"$t0", "0($sp)"}},
		Instruction{Op: "sw", Operands: []string{"$t0", "0($sp)"}},
	})
	if len(out) != 1 {
		t.Fatalf("expected lw;sw on the same operands to collapse to one instruction, got %v", out)
	}
	if in := out[0].(Instruction); in.Op != "lw" {
		t.Errorf("expected the surviving instruction to be the load, got %q", in.Op)
	}

	out, _ = Peephole([]Node{
		Instruction{Op: "sw", Operands: []string{"$t0", "4($sp)"}},
		Instruction{Op: "lw", Operands: []string{"$t0", "4($sp)"}},
	})
	if len(out) != 1 {
		t.Fatalf("expected sw;lw on the same operands to collapse to one instruction, got %v", out)
	}
	if in := out[0].(Instruction); in.Op != "sw" {
		t.Errorf("expected the surviving instruction to be the store, got %q", in.Op)
	}
}

func TestPeepholeAlgebraicSimplification(t *testing.T) {
	tests := []struct {
		in     Instruction
		wantOp string
	}{
		{Instruction{Op: "add", Operands: []string{"$t0", "$t1", "$zero"}}, "move"},
		{Instruction{Op: "add", Operands: []string{"$t0", "$zero", "$t1"}}, "move"},
		{Instruction{Op: "sub", Operands: []string{"$t0", "$t1", "$zero"}}, "move"},
		{Instruction{Op: "mul", Operands: []string{"$t0", "$t1", "0"}}, "li"},
		{Instruction{Op: "mul", Operands: []string{"$t0", "$t1", "1"}}, "move"},
		{Instruction{Op: "mul", Operands: []string{"$t0", "1", "$t1"}}, "move"},
		{Instruction{Op: "or", Operands: []string{"$t0", "$t1", "$zero"}}, "move"},
	}
	for _, tt := range tests {
		out, passes := Peephole([]Node{tt.in})
		if passes == 0 {
			t.Errorf("%s %v: expected an optimization pass to fire", tt.in.Op, tt.in.Operands)
			continue
		}
		if got := out[0].(Instruction).Op; got != tt.wantOp {
			t.Errorf("%s %v: got op %q, want %q", tt.in.Op, tt.in.Operands, got, tt.wantOp)
		}
	}
}

func TestPeepholeAlgebraicSimplificationDoesNotFireOnNonIdentity(t *testing.T) {
	in := Instruction{Op: "add", Operands: []string{"$t0", "$t1", "$t2"}}
	out, _ := Peephole([]Node{in})
	if got := out[0].(Instruction); got.Op != "add" {
		t.Errorf("expected add x,y,z to be left alone, got %q", got.Op)
	}
}

func TestPeepholeStrengthReduction(t *testing.T) {
	tests := []struct {
		op, amount, wantOp, wantShift string
	}{
		{"mul", "2", "sll", "1"},
		{"mul", "4", "sll", "2"},
		{"mul", "8", "sll", "3"},
		{"div", "2", "sra", "1"},
		{"div", "4", "sra", "2"},
		{"div", "8", "sra", "3"},
	}
	for _, tt := range tests {
		out, _ := Peephole([]Node{Instruction{Op: tt.op, Operands: []string{"$t0", "$t1", tt.amount}}})
		got := out[0].(Instruction)
		if got.Op != tt.wantOp {
			t.Errorf("%s by %s: got op %q, want %q", tt.op, tt.amount, got.Op, tt.wantOp)
		}
		if len(got.Operands) != 3 || got.Operands[2] != tt.wantShift {
			t.Errorf("%s by %s: got shift operand %v, want %q", tt.op, tt.amount, got.Operands, tt.wantShift)
		}
	}
}

func TestPeepholeStrengthReductionDoesNotFireOnNonPowerOfTwo(t *testing.T) {
	for _, amount := range []string{"3", "0", "1"} {
		in := Instruction{Op: "mul", Operands: []string{"$t0", "$t1", amount}}
		out, _ := Peephole([]Node{in})
		got := out[0].(Instruction)
		if amount == "1" {
			if got.Op != "move" {
				t.Errorf("mul by 1: expected the algebraic-identity rule (move), got %q", got.Op)
			}
			continue
		}
		if amount == "0" {
			if got.Op != "li" {
				t.Errorf("mul by 0: expected the algebraic-identity rule (li), got %q", got.Op)
			}
			continue
		}
		if got.Op != "mul" {
			t.Errorf("mul by %s: expected no strength reduction to fire, got %q", amount, got.Op)
		}
	}
}

func TestPeepholeConstantFolding(t *testing.T) {
	out, _ := Peephole([]Node{
		Instruction{Op: "li", Operands: []string{"$t0", "5"}},
		Instruction{Op: "li", Operands: []string{"$t1", "3"}},
		Instruction{Op: "add", Operands: []string{"$t2", "$t0", "$t1"}},
	})
	lines := RenderProgram(out)
	found := false
	for _, n := range out {
		in, ok := n.(Instruction)
		if ok && in.Op == "li" && len(in.Operands) == 2 && in.Operands[0] == "$t2" && in.Operands[1] == "8" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected li $t2, 8 folded from li 5 + li 3, got:\n%v", lines)
	}
}

func TestPeepholeConstantFoldingInvalidatesAcrossLabelsAndLoads(t *testing.T) {
	out, _ := Peephole([]Node{
		Instruction{Op: "li", Operands: []string{"$t0", "5"}},
		Label{Name: "L1"},
		Instruction{Op: "li", Operands: []string{"$t1", "3"}},
		Instruction{Op: "add", Operands: []string{"$t2", "$t0", "$t1"}},
	})
	for _, n := range out {
		if in, ok := n.(Instruction); ok && in.Op == "li" && len(in.Operands) == 2 && in.Operands[0] == "$t2" {
			t.Errorf("expected no fold across a label (constant table must reset), got %v", in)
		}
	}

	out, _ = Peephole([]Node{
		Instruction{Op: "lw", Operands: []string{"$t0", "0($sp)"}},
		Instruction{Op: "li", Operands: []string{"$t1", "3"}},
		Instruction{Op: "add", Operands: []string{"$t2", "$t0", "$t1"}},
	})
	for _, n := range out {
		if in, ok := n.(Instruction); ok && in.Op == "li" && len(in.Operands) == 2 && in.Operands[0] == "$t2" {
			t.Errorf("expected no fold through a register last written by lw, got %v", in)
		}
	}
}

func TestPeepholeJumpChainCollapsingWithCycleDetection(t *testing.T) {
	out, _ := Peephole([]Node{
		Instruction{Op: "j", Operands: []string{"L1"}},
		Label{Name: "L1"},
		Instruction{Op: "j", Operands: []string{"L2"}},
		Label{Name: "L2"},
		Instruction{Op: "jr", Operands: []string{"$ra"}},
	})
	first := out[0].(Instruction)
	if first.Op != "j" || first.Operands[0] != "L2" {
		t.Errorf("expected the first jump to be redirected straight to L2, got %v", first)
	}

	// A cycle (L3 -> L4 -> L3) must not hang the optimizer.
	cyclic := []Node{
		Instruction{Op: "j", Operands: []string{"L3"}},
		Label{Name: "L3"},
		Instruction{Op: "j", Operands: []string{"L4"}},
		Label{Name: "L4"},
		Instruction{Op: "j", Operands: []string{"L3"}},
	}
	done := make(chan struct{})
	go func() {
		Peephole(cyclic)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Peephole did not terminate on a cyclic jump chain")
	}
}

func TestPeepholeUnreachableCodeAfterUnconditionalJump(t *testing.T) {
	out, _ := Peephole([]Node{
		Instruction{Op: "j", Operands: []string{"L1"}},
		Instruction{Op: "add", Operands: []string{"$t0", "$t1", "$t2"}},
		Label{Name: "L1"},
		Instruction{Op: "jr", Operands: []string{"$ra"}},
	})
	for _, n := range out {
		if in, ok := n.(Instruction); ok && in.Op == "add" {
			t.Errorf("expected the unreachable add after the unconditional jump to be removed, got %v", out)
		}
	}
}

func TestPeepholeIsIdempotentAtFixpoint(t *testing.T) {
	program := []Node{
		Instruction{Op: "li", Operands: []string{"$t0", "2"}},
		Instruction{Op: "li", Operands: []string{"$t1", "3"}},
		Instruction{Op: "add", Operands: []string{"$t2", "$t0", "$t1"}},
		Instruction{Op: "mul", Operands: []string{"$t3", "$t2", "4"}},
		Instruction{Op: "move", Operands: []string{"$t4", "$t4"}},
	}
	once, _ := Peephole(program)
	twice, passes := Peephole(once)
	onceLines, twiceLines := RenderProgram(once), RenderProgram(twice)
	if len(onceLines) != len(twiceLines) {
		t.Fatalf("running peephole on already-optimized code changed its length: %v vs %v", onceLines, twiceLines)
	}
	for i := range onceLines {
		if onceLines[i] != twiceLines[i] {
			t.Fatalf("peephole is not idempotent at fixpoint: line %d %q vs %q", i, onceLines[i], twiceLines[i])
		}
	}
	if passes != 0 {
		t.Errorf("re-running peephole on already-optimized code should report 0 changed passes, got %d", passes)
	}
}
