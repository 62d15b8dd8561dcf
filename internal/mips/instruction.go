// Package mips implements the MIPS32 backend (§4.9-4.15): the node model
// and renderer for SPIM-compatible assembly text, register/address
// descriptors and the get_register allocator, the calling convention and
// activation-record builder, the data section manager, the hand-written
// runtime library, the peephole optimizer, and the Integrated MIPS
// Generator that drives TAC -> assembly end to end.
package mips

import (
	"fmt"
	"strings"
)

// Node is the closed set of MIPS output nodes (§4.9): a real instruction,
// a label definition, an assembler directive, or a standalone comment.
type Node interface {
	isNode()
}

// Instruction is one MIPS mnemonic with its operands, e.g.
// Instruction{Op: "addi", Operands: []string{"$sp", "$sp", "-32"}}.
type Instruction struct {
	Op       string
	Operands []string
	Comment  string
}

func (Instruction) isNode() {}

// Label marks a jump/branch target or a data/function entry point.
type Label struct {
	Name string
}

func (Label) isNode() {}

// Directive is an assembler pseudo-op: `.data`, `.text`, `.globl main`,
// `.asciiz "..."`, `.space N`, `.align N`.
type Directive struct {
	Name     string
	Operands []string
	Comment  string
}

func (Directive) isNode() {}

// Comment is a standalone comment line (no associated instruction).
type Comment struct {
	Text string
}

func (Comment) isNode() {}

// commentColumn is where trailing comments are aligned when present (§4.9).
const commentColumn = 24

// Render renders one node in SPIM-compatible syntax: instructions and
// directives indented by a tab, labels flush left, comments aligned at
// column 24 when attached to an instruction/directive.
func Render(n Node) string {
	switch v := n.(type) {
	case Instruction:
		return renderOp("\t"+v.Op+operandSuffix(v.Operands), v.Comment)
	case Directive:
		return renderOp("\t"+v.Name+operandSuffix(v.Operands), v.Comment)
	case Label:
		return v.Name + ":"
	case Comment:
		return "# " + v.Text
	default:
		panic(fmt.Sprintf("mips: Render: unhandled node variant %T", n))
	}
}

func operandSuffix(operands []string) string {
	if len(operands) == 0 {
		return ""
	}
	return " " + strings.Join(operands, ", ")
}

func renderOp(body, comment string) string {
	if comment == "" {
		return body
	}
	if len(body) < commentColumn {
		body += strings.Repeat(" ", commentColumn-len(body))
	} else {
		body += " "
	}
	return body + "# " + comment
}

// RenderProgram renders a full node stream, one node per line.
func RenderProgram(nodes []Node) []string {
	lines := make([]string, 0, len(nodes))
	for _, n := range nodes {
		lines = append(lines, Render(n))
	}
	return lines
}

// Inst is a convenience constructor for a bare instruction with no comment.
func Inst(op string, operands ...string) Instruction {
	return Instruction{Op: op, Operands: operands}
}

// InstC is Inst with a trailing comment.
func InstC(comment, op string, operands ...string) Instruction {
	return Instruction{Op: op, Operands: operands, Comment: comment}
}
