package mips

import "strconv"

// Peephole runs the fixpoint peephole optimizer (§4.14) over a rendered
// instruction stream: a fixed set of local rewrite rules, each looking at a
// small window of adjacent nodes (or, for jump-chain collapsing and constant
// folding, the whole stream), reapplied until no rule fires or 10 passes
// have run (the same iteration cap
// `_examples/original_source/program/mips/peephole_optimizer.py` uses, to
// bound pathological rewrite chains).
const maxPeepholePasses = 10

// Peephole returns the optimized node list and the number of passes that
// actually changed something (0 means the input was already fixpoint).
func Peephole(nodes []Node) ([]Node, int) {
	cur := nodes
	changedPasses := 0
	for pass := 0; pass < maxPeepholePasses; pass++ {
		next, changed := peepholePass(cur)
		if !changed {
			return next, changedPasses
		}
		cur = next
		changedPasses++
	}
	return cur, changedPasses
}

// peepholePass runs every optimization family once, in the same order the
// Python original's optimize() loop does, and reports whether any of them
// rewrote something.
func peepholePass(nodes []Node) ([]Node, bool) {
	changed := false
	var step bool

	nodes, step = rewriteLoadStoreRedundancy(nodes)
	changed = changed || step
	nodes, step = rewriteAlgebraicSimplify(nodes)
	changed = changed || step
	nodes, step = rewriteStrengthReduction(nodes)
	changed = changed || step
	nodes, step = rewriteConstantFolding(nodes)
	changed = changed || step
	nodes, step = rewriteJumpChains(nodes)
	changed = changed || step
	nodes, step = rewriteUnreachableAfterJump(nodes)
	changed = changed || step
	nodes, step = rewriteRedundantMovesAndNops(nodes)
	changed = changed || step

	return nodes, changed
}

// rewriteLoadStoreRedundancy covers both directions of load/store coalescing
// over the same operands: `lw $r, OFF($b); sw $r, OFF($b)` drops the now-
// redundant store (the value in memory is already what was just loaded), and
// `sw $r, OFF($b); lw $r, OFF($b)` drops the now-redundant load (the value is
// already in `$r`).
func rewriteLoadStoreRedundancy(nodes []Node) ([]Node, bool) {
	out := make([]Node, 0, len(nodes))
	changed := false
	i := 0
	for i < len(nodes) {
		if i+1 < len(nodes) {
			a, okA := nodes[i].(Instruction)
			b, okB := nodes[i+1].(Instruction)
			if okA && okB && len(a.Operands) == 2 && len(b.Operands) == 2 && a.Operands[1] == b.Operands[1] {
				if a.Op == "lw" && b.Op == "sw" && a.Operands[0] == b.Operands[0] {
					out = append(out, a)
					i += 2
					changed = true
					continue
				}
				if a.Op == "sw" && b.Op == "lw" && a.Operands[0] == b.Operands[0] {
					out = append(out, a)
					i += 2
					changed = true
					continue
				}
			}
		}
		out = append(out, nodes[i])
		i++
	}
	return out, changed
}

// rewriteAlgebraicSimplify simplifies operations against identity operands:
// add/sub with $zero, mul by 0 or 1, or with $zero.
func rewriteAlgebraicSimplify(nodes []Node) ([]Node, bool) {
	out := make([]Node, 0, len(nodes))
	changed := false
	for _, n := range nodes {
		in, ok := n.(Instruction)
		if !ok || len(in.Operands) != 3 {
			out = append(out, n)
			continue
		}
		dest, src1, src2 := in.Operands[0], in.Operands[1], in.Operands[2]
		switch in.Op {
		case "add":
			switch {
			case src2 == RegZero:
				out = append(out, Instruction{Op: "move", Operands: []string{dest, src1}, Comment: "optimized: add x,y,0"})
				changed = true
				continue
			case src1 == RegZero:
				out = append(out, Instruction{Op: "move", Operands: []string{dest, src2}, Comment: "optimized: add x,0,y"})
				changed = true
				continue
			}
		case "sub":
			if src2 == RegZero {
				out = append(out, Instruction{Op: "move", Operands: []string{dest, src1}, Comment: "optimized: sub x,y,0"})
				changed = true
				continue
			}
		case "mul":
			switch {
			case src2 == "0" || src2 == RegZero:
				out = append(out, Instruction{Op: "li", Operands: []string{dest, "0"}, Comment: "optimized: mul x,y,0"})
				changed = true
				continue
			case src2 == "1":
				out = append(out, Instruction{Op: "move", Operands: []string{dest, src1}, Comment: "optimized: mul x,y,1"})
				changed = true
				continue
			case src1 == "1":
				out = append(out, Instruction{Op: "move", Operands: []string{dest, src2}, Comment: "optimized: mul x,1,y"})
				changed = true
				continue
			}
		case "or":
			if src2 == RegZero {
				out = append(out, Instruction{Op: "move", Operands: []string{dest, src1}, Comment: "optimized: or x,y,0"})
				changed = true
				continue
			}
		}
		out = append(out, n)
	}
	return out, changed
}

// rewriteStrengthReduction replaces mul/div by a power of 2 with a shift:
// `mul $d, $s, 2^n` → `sll $d, $s, n`, `div $d, $s, 2^n` → `sra $d, $s, n`
// (arithmetic right shift, to preserve sign).
func rewriteStrengthReduction(nodes []Node) ([]Node, bool) {
	out := make([]Node, 0, len(nodes))
	changed := false
	for _, n := range nodes {
		in, ok := n.(Instruction)
		if !ok || len(in.Operands) != 3 || (in.Op != "mul" && in.Op != "div") {
			out = append(out, n)
			continue
		}
		dest, src1, src2 := in.Operands[0], in.Operands[1], in.Operands[2]
		value, err := strconv.Atoi(src2)
		if err != nil || !isPowerOfTwo(value) {
			out = append(out, n)
			continue
		}
		shift := strconv.Itoa(log2(value))
		op := "sll"
		if in.Op == "div" {
			op = "sra"
		}
		out = append(out, Instruction{Op: op, Operands: []string{dest, src1, shift}, Comment: "optimized: " + in.Op + " by " + src2})
		changed = true
	}
	return out, changed
}

// rewriteConstantFolding tracks known-constant register contents (seeded by
// `li`) across straight-line code and folds add/addi/sub/mul of two known
// constants into a single `li`. The constant table is cleared at every label
// (a jump target may be reached with different register contents than
// whatever straight-line path we just tracked) and any register written by
// an instruction this pass doesn't itself recognize as constant-producing
// has its tracked value invalidated - including `lw`, which can only ever
// produce an unknown value.
func rewriteConstantFolding(nodes []Node) ([]Node, bool) {
	out := make([]Node, 0, len(nodes))
	changed := false
	constants := map[string]int{}

	noInvalidate := map[string]bool{"sw": true, "beq": true, "bne": true, "j": true, "jal": true, "jr": true}

	for _, n := range nodes {
		if _, isLabel := n.(Label); isLabel {
			constants = map[string]int{}
			out = append(out, n)
			continue
		}
		in, ok := n.(Instruction)
		if !ok {
			out = append(out, n)
			continue
		}
		if in.Op == "li" && len(in.Operands) == 2 {
			if v, err := strconv.Atoi(in.Operands[1]); err == nil {
				constants[in.Operands[0]] = v
			}
			out = append(out, n)
			continue
		}

		folded := false
		if (in.Op == "add" || in.Op == "addi" || in.Op == "sub" || in.Op == "mul") && len(in.Operands) == 3 {
			dest, src1, src2 := in.Operands[0], in.Operands[1], in.Operands[2]
			val1, ok1 := constants[src1]
			val2, ok2 := constants[src2]
			if !ok2 {
				if v, err := strconv.Atoi(src2); err == nil {
					val2, ok2 = v, true
				}
			}
			if ok1 && ok2 {
				var result int
				switch in.Op {
				case "add", "addi":
					result = val1 + val2
				case "sub":
					result = val1 - val2
				case "mul":
					result = val1 * val2
				}
				out = append(out, Instruction{Op: "li", Operands: []string{dest, strconv.Itoa(result)},
					Comment: "folded: " + strconv.Itoa(val1) + " " + in.Op + " " + strconv.Itoa(val2)})
				constants[dest] = result
				changed = true
				folded = true
			}
		}
		if !folded {
			out = append(out, n)
			if !noInvalidate[in.Op] && len(in.Operands) > 0 {
				delete(constants, in.Operands[0])
			}
		}
	}
	return out, changed
}

// branchOps are the conditional/unconditional jump opcodes whose last
// operand is a label target, eligible for jump-chain retargeting.
var branchOps = map[string]bool{
	"j": true, "beq": true, "bne": true, "blt": true, "ble": true, "bgt": true, "bge": true,
}

// rewriteJumpChains finds labels that are themselves immediately followed by
// an unconditional `j`, builds a label→target map from that, and redirects
// any jump/branch whose target chains through one or more such labels
// straight to the final destination - following the chain with a visited
// set so a (malformed, allocator-generated-only-in-theory) jump cycle can
// never loop this pass forever.
func rewriteJumpChains(nodes []Node) ([]Node, bool) {
	labelMap := map[string]string{}
	for i, n := range nodes {
		lbl, ok := n.(Label)
		if !ok {
			continue
		}
		for j := i + 1; j < len(nodes); j++ {
			switch next := nodes[j].(type) {
			case Instruction:
				if next.Op == "j" && len(next.Operands) > 0 {
					labelMap[lbl.Name] = next.Operands[0]
				}
			case Label:
				// two labels in a row: nothing to chain through here
			default:
				continue
			}
			break
		}
	}

	out := make([]Node, 0, len(nodes))
	changed := false
	for _, n := range nodes {
		in, ok := n.(Instruction)
		if !ok || !branchOps[in.Op] || len(in.Operands) == 0 {
			out = append(out, n)
			continue
		}
		original := in.Operands[len(in.Operands)-1]
		final := original
		visited := map[string]bool{}
		for {
			next, ok := labelMap[final]
			if !ok || visited[final] {
				break
			}
			visited[final] = true
			final = next
		}
		if final == original {
			out = append(out, n)
			continue
		}
		newOperands := append(append([]string{}, in.Operands[:len(in.Operands)-1]...), final)
		out = append(out, Instruction{Op: in.Op, Operands: newOperands, Comment: "optimized: was " + original})
		changed = true
	}
	return out, changed
}

// rewriteUnreachableAfterJump drops every instruction between an
// unconditional `j`/`jr` and the next label - labels, comments, and
// directives are preserved since a later pass (or a human reading the
// output) still needs them as anchors.
func rewriteUnreachableAfterJump(nodes []Node) ([]Node, bool) {
	out := make([]Node, 0, len(nodes))
	changed := false
	skipping := false
	for _, n := range nodes {
		if skipping {
			if _, isLabel := n.(Label); isLabel {
				skipping = false
				out = append(out, n)
				continue
			}
			if _, isInstr := n.(Instruction); isInstr {
				changed = true
				continue
			}
			out = append(out, n)
			continue
		}
		out = append(out, n)
		if in, ok := n.(Instruction); ok && (in.Op == "j" || in.Op == "jr") {
			skipping = true
		}
	}
	return out, changed
}

// rewriteRedundantMovesAndNops drops `move $r, $r` (self-move, a common
// artifact of the allocator reusing the same register for a source and
// destination) and explicit `nop`s.
func rewriteRedundantMovesAndNops(nodes []Node) ([]Node, bool) {
	out := make([]Node, 0, len(nodes))
	changed := false
	for _, n := range nodes {
		in, ok := n.(Instruction)
		if !ok {
			out = append(out, n)
			continue
		}
		if in.Op == "move" && len(in.Operands) == 2 && in.Operands[0] == in.Operands[1] {
			changed = true
			continue
		}
		if in.Op == "nop" {
			changed = true
			continue
		}
		out = append(out, n)
	}
	return out, changed
}

func isPowerOfTwo(n int) bool {
	return n > 0 && n&(n-1) == 0
}

func log2(n int) int {
	count := 0
	for n > 1 {
		n >>= 1
		count++
	}
	return count
}
