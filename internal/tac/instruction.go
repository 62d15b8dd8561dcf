// Package tac implements the Three-Address Code intermediate representation:
// a closed sum type of instructions with canonical textual rendering (§3,
// §6), the temporary/address/label managers that back it (§4.1-4.3), the
// expression/control-flow/function-class generators that lower a typed AST
// into it (§4.4-4.6), the orchestrating Integrated TAC Generator (§4.7), and
// the post-hoc symbol annotator (§4.8).
//
// Per the source's design note on sum types (spec.md §9): each instruction
// kind is its own struct implementing the Instr marker interface, and
// Render is a single total function matching every variant - there is no
// polymorphic String() per node, so adding a new instruction kind without
// updating Render is a compile-time-visible omission once every call site
// that switches on Instr is checked.
package tac

import (
	"fmt"
	"strings"
)

// Instr is the closed sum type of TAC instructions. Only the variants below
// implement it.
type Instr interface {
	isInstr()
	// Loc is the source location that produced this instruction, zero value
	// when none is attached (e.g. synthesized prologue/epilogue glue).
	Loc() SourceLoc
}

// SourceLoc mirrors ast.SourceLocation without importing the ast package
// into tac's instruction model, keeping the IR representation free-standing
// (the way the source's own tac/instruction.py has no dependency on the
// parser's AST node classes).
type SourceLoc struct {
	Line, Column int
}

type base struct{ at SourceLoc }

func (b base) Loc() SourceLoc { return b.at }

// Assign covers simple (x=y), unary (x = op y) and binary (x = y op z)
// assignment, and the pseudo-ops str_concat, int_to_float, float_to_int,
// to_string, len.
type Assign struct {
	base
	Target   string
	Op1      string
	Operator string // "" for simple assignment
	Op2      string // "" for unary
}

func (Assign) isInstr() {}

type Goto struct {
	base
	Label string
}

func (Goto) isInstr() {}

// IfGoto covers both "if x goto L" (Operator == "") and
// "if x relop y goto L".
type IfGoto struct {
	base
	Cond     string
	Operator string
	Op2      string
	Label    string
}

func (IfGoto) isInstr() {}

type Label struct {
	base
	Name string
}

func (Label) isInstr() {}

type BeginFunc struct {
	base
	Name       string
	ParamCount int
	FrameSize  int      // 0 when not yet known (pre-annotation)
	ParamNames []string // may be nil
}

func (BeginFunc) isInstr() {}

type EndFunc struct {
	base
	Name string
}

func (EndFunc) isInstr() {}

type PushParam struct {
	base
	Value string
}

func (PushParam) isInstr() {}

type Call struct {
	base
	Function   string
	ParamCount int
	Target     string // "" when the result is discarded
}

func (Call) isInstr() {}

type PopParams struct {
	base
	Count int
}

func (PopParams) isInstr() {}

type Return struct {
	base
	Value string // "" for bare return
}

func (Return) isInstr() {}

// ArrayAccess renders as "target = array[index]" when !IsAssignment, or
// "array[index] = target" when IsAssignment (the target field doubles as
// the stored value in that case, matching the source's instruction.py).
type ArrayAccess struct {
	base
	Target       string
	Array        string
	Index        string
	IsAssignment bool
}

func (ArrayAccess) isInstr() {}

type PropertyAccess struct {
	base
	Target       string
	Object       string
	Property     string
	IsAssignment bool
}

func (PropertyAccess) isInstr() {}

type New struct {
	base
	Target string
	Class  string
}

func (New) isInstr() {}

type AllocateArray struct {
	base
	Target  string
	Size    string
	ElemSize int
}

func (AllocateArray) isInstr() {}

type Comment struct {
	base
	Text string
}

func (Comment) isInstr() {}

// Render produces the canonical textual form defined by §6's grammar. It is
// a total function over the closed Instr set; an unrecognized concrete type
// is a programming error, not a user-facing one, and panics accordingly
// (every call site constructs instructions exclusively through this
// package's own constructors, so this can only fire on a package bug).
func Render(i Instr) string {
	switch n := i.(type) {
	case Assign:
		return renderAssign(n)
	case Goto:
		return "goto " + n.Label
	case IfGoto:
		if n.Operator != "" {
			return fmt.Sprintf("if %s %s %s goto %s", n.Cond, n.Operator, n.Op2, n.Label)
		}
		return fmt.Sprintf("if %s goto %s", n.Cond, n.Label)
	case Label:
		return n.Name + ":"
	case BeginFunc:
		return renderBeginFunc(n)
	case EndFunc:
		return "EndFunc " + n.Name
	case PushParam:
		return "PushParam " + n.Value
	case Call:
		call := fmt.Sprintf("call %s, %d", n.Function, n.ParamCount)
		if n.Target != "" {
			return n.Target + " = " + call
		}
		return call
	case PopParams:
		return fmt.Sprintf("PopParams %d", n.Count)
	case Return:
		if n.Value != "" {
			return "return " + n.Value
		}
		return "return"
	case ArrayAccess:
		if n.IsAssignment {
			return fmt.Sprintf("%s[%s] = %s", n.Array, n.Index, n.Target)
		}
		return fmt.Sprintf("%s = %s[%s]", n.Target, n.Array, n.Index)
	case PropertyAccess:
		if n.IsAssignment {
			return fmt.Sprintf("%s.%s = %s", n.Object, n.Property, n.Target)
		}
		return fmt.Sprintf("%s = %s.%s", n.Target, n.Object, n.Property)
	case New:
		return fmt.Sprintf("%s = new %s", n.Target, n.Class)
	case AllocateArray:
		return fmt.Sprintf("%s = allocate_array %s, %d", n.Target, n.Size, n.ElemSize)
	case Comment:
		return "# " + n.Text
	default:
		panic(fmt.Sprintf("tac: Render: unhandled instruction variant %T", i))
	}
}

func renderAssign(n Assign) string {
	switch {
	case n.Operator != "" && n.Op2 != "":
		return fmt.Sprintf("%s = %s %s %s", n.Target, n.Op1, n.Operator, n.Op2)
	case n.Operator != "":
		return fmt.Sprintf("%s = %s %s", n.Target, n.Operator, n.Op1)
	default:
		return fmt.Sprintf("%s = %s", n.Target, n.Op1)
	}
}

func renderBeginFunc(n BeginFunc) string {
	var params string
	if len(n.ParamNames) > 0 {
		params = fmt.Sprintf(", params=[%s]", strings.Join(n.ParamNames, ","))
	}
	if n.FrameSize > 0 {
		return fmt.Sprintf("BeginFunc %s, %d, frame_size=%d%s", n.Name, n.ParamCount, n.FrameSize, params)
	}
	return fmt.Sprintf("BeginFunc %s, %d%s", n.Name, n.ParamCount, params)
}

// RenderProgram renders a full instruction list, one instruction per line,
// which is the canonical on-disk form of output.tac (§6).
func RenderProgram(instrs []Instr) []string {
	lines := make([]string, 0, len(instrs))
	for _, ins := range instrs {
		lines = append(lines, Render(ins))
	}
	return lines
}
