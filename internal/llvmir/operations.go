package llvmir

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"

	"compiscript/internal/tac"
)

// The operand-classification rules below (int/float/string literal shape,
// true/false/null as bare identifiers) mirror internal/mips/translator.go's
// isIntLiteral/isFloatLiteral/isStringLiteral/loadOperand - the same TAC
// text the MIPS backend parses operand-by-operand, read the same way here.

func isIntLiteral(s string) bool {
	_, err := strconv.Atoi(s)
	return err == nil
}

func isFloatLiteral(s string) bool {
	if isIntLiteral(s) {
		return false
	}
	_, err := strconv.ParseFloat(s, 64)
	return err == nil
}

func isStringLiteral(s string) bool {
	return len(s) >= 2 && strings.HasPrefix(s, "\"") && strings.HasSuffix(s, "\"")
}

// load materializes operand's value as an i32, emitting a load instruction
// for a variable reference or a constant expression for a literal.
func (fb *funcBuilder) load(cur *ir.Block, operand string) value.Value {
	switch {
	case operand == "":
		return constant.NewInt(types.I32, 0)
	case operand == "true":
		return constant.NewInt(types.I32, 1)
	case operand == "false", operand == "null":
		return constant.NewInt(types.I32, 0)
	case isIntLiteral(operand):
		n, _ := strconv.ParseInt(operand, 10, 64)
		return constant.NewInt(types.I32, n)
	case isStringLiteral(operand):
		return fb.stringAddr(operand[1 : len(operand)-1])
	case isFloatLiteral(operand):
		// This backend carries every value as i32 (§ package doc); a float
		// literal used directly in integer arithmetic truncates, matching
		// the scope this alternate backend documents in DESIGN.md.
		f, _ := strconv.ParseFloat(operand, 64)
		return constant.NewInt(types.I32, int64(f))
	default:
		return fb.loadVar(cur, operand)
	}
}

func (fb *funcBuilder) loadVar(cur *ir.Block, name string) value.Value {
	if a, ok := fb.allocas[name]; ok {
		return cur.NewLoad(types.I32, a)
	}
	if g, ok := fb.r.globals[name]; ok {
		return cur.NewLoad(types.I32, g)
	}
	fb.err = fmt.Errorf("llvmir: reference to undeclared variable %q", name)
	return constant.NewInt(types.I32, 0)
}

func (fb *funcBuilder) store(cur *ir.Block, name string, val value.Value) {
	if a, ok := fb.allocas[name]; ok {
		cur.NewStore(val, a)
		return
	}
	if g, ok := fb.r.globals[name]; ok {
		cur.NewStore(val, g)
		return
	}
	fb.err = fmt.Errorf("llvmir: assignment to undeclared variable %q", name)
}

// stringAddr interns s as a module-level char array and returns its address
// as an i32 constant expression (gep to the first byte, ptrtoint to i32) -
// no block instructions needed, since both gep-to-constant and ptrtoint are
// themselves constant expressions over a global.
func (fb *funcBuilder) stringAddr(s string) value.Value {
	g := fb.r.internString(s)
	zero := constant.NewInt(types.I64, 0)
	addr := constant.NewGetElementPtr(g.ContentType, g, zero, zero)
	return constant.NewPtrToInt(addr, types.I32)
}

func (r *renderer) internString(s string) *ir.Global {
	if g, ok := r.strConst[s]; ok {
		return g
	}
	r.strCtr++
	name := fmt.Sprintf("str_%d", r.strCtr)
	data := constant.NewCharArrayFromString(s + "\x00")
	g := r.m.NewGlobalDef(name, data)
	r.strConst[s] = g
	return g
}

func relPred(op string) (enum.IPred, bool) {
	switch op {
	case "<":
		return enum.IPredSLT, true
	case "<=":
		return enum.IPredSLE, true
	case ">":
		return enum.IPredSGT, true
	case ">=":
		return enum.IPredSGE, true
	case "==":
		return enum.IPredEQ, true
	case "!=":
		return enum.IPredNE, true
	}
	return 0, false
}

func (fb *funcBuilder) binary(cur *ir.Block, op, a, b string) value.Value {
	x := fb.load(cur, a)
	y := fb.load(cur, b)
	switch op {
	case "+":
		return cur.NewAdd(x, y)
	case "-":
		return cur.NewSub(x, y)
	case "*":
		return cur.NewMul(x, y)
	case "/":
		return cur.NewSDiv(x, y)
	case "%":
		return cur.NewSRem(x, y)
	case "&&":
		return cur.NewAnd(x, y)
	case "||":
		return cur.NewOr(x, y)
	case "str_concat":
		return cur.NewCall(fb.r.runtime["compiscript_rt_strconcat"], x, y)
	}
	if pred, ok := relPred(op); ok {
		cmp := cur.NewICmp(pred, x, y)
		return cur.NewZExt(cmp, types.I32)
	}
	fb.err = fmt.Errorf("llvmir: unsupported binary operator %q", op)
	return constant.NewInt(types.I32, 0)
}

func (fb *funcBuilder) unary(cur *ir.Block, op, a string) value.Value {
	x := fb.load(cur, a)
	switch op {
	case "-":
		return cur.NewSub(constant.NewInt(types.I32, 0), x)
	case "!":
		cmp := cur.NewICmp(enum.IPredEQ, x, constant.NewInt(types.I32, 0))
		return cur.NewZExt(cmp, types.I32)
	case "len":
		return cur.NewCall(fb.r.runtime["compiscript_rt_len"], x)
	case "to_string":
		return cur.NewCall(fb.r.runtime["compiscript_rt_to_string"], x)
	case "int_to_float":
		return cur.NewCall(fb.r.runtime["compiscript_rt_int_to_float"], x)
	case "float_to_int":
		return cur.NewCall(fb.r.runtime["compiscript_rt_float_to_int"], x)
	}
	fb.err = fmt.Errorf("llvmir: unsupported unary operator %q", op)
	return constant.NewInt(types.I32, 0)
}

func (fb *funcBuilder) translateAssign(cur *ir.Block, n tac.Assign) {
	switch {
	case n.Operator == "":
		fb.store(cur, n.Target, fb.load(cur, n.Op1))
	case n.Op2 != "":
		fb.store(cur, n.Target, fb.binary(cur, n.Operator, n.Op1, n.Op2))
	default:
		fb.store(cur, n.Target, fb.unary(cur, n.Operator, n.Op1))
	}
}

// fallthroughBlock returns the block that continues after instruction idx,
// which blockBoundaries always allocates for a Goto/IfGoto/Return that
// isn't the function's last instruction; a dangling conditional at the very
// end of a body (malformed input, since every TAC function is generated
// with a trailing Return) falls through to a synthetic unreachable block
// rather than a nil block.
func (fb *funcBuilder) fallthroughBlock(idx int) *ir.Block {
	if b, ok := fb.blocks[blockKey(idx+1)]; ok {
		return b
	}
	b := fb.f.NewBlock(fmt.Sprintf("unreachable%d", idx))
	b.NewUnreachable()
	return b
}

func (fb *funcBuilder) translateIfGoto(cur *ir.Block, n tac.IfGoto, idx int) {
	if cur.Term != nil {
		return
	}
	var cond value.Value
	if n.Operator == "" {
		c := fb.load(cur, n.Cond)
		cond = cur.NewICmp(enum.IPredNE, c, constant.NewInt(types.I32, 0))
	} else {
		pred, ok := relPred(n.Operator)
		if !ok {
			fb.err = fmt.Errorf("llvmir: unsupported if-goto operator %q", n.Operator)
			return
		}
		x := fb.load(cur, n.Cond)
		y := fb.load(cur, n.Op2)
		cond = cur.NewICmp(pred, x, y)
	}
	cur.NewCondBr(cond, fb.target(n.Label), fb.fallthroughBlock(idx))
}

func (fb *funcBuilder) translateCall(cur *ir.Block, n tac.Call) {
	args := make([]value.Value, len(fb.pending))
	for i, p := range fb.pending {
		args[i] = fb.load(cur, p)
	}
	fb.pending = nil

	callee, ok := fb.r.funcs[n.Function]
	if !ok {
		callee = fb.r.declareCallee(n.Function, len(args))
	}
	result := cur.NewCall(callee, args...)
	if n.Target != "" {
		fb.store(cur, n.Target, result)
	}
}

// declareCallee lazily declares an external function for a callee with no
// BeginFunc span in this program - print/println/input and any other
// builtin still shaped as a plain Call by the time TAC generation is done
// (see internal/mips's own translateCall doc comment on the same set).
func (r *renderer) declareCallee(name string, argc int) *ir.Func {
	params := make([]*ir.Param, argc)
	for i := range params {
		params[i] = ir.NewParam("", types.I32)
	}
	f := r.m.NewFunc(name, types.I32, params...)
	r.funcs[name] = f
	return f
}

// translateArrayAccess indexes an array reference the same way
// AllocateArray below constructs one: arr already points past the
// length-prefix word, so element i sits at arr + i*4 directly.
func (fb *funcBuilder) translateArrayAccess(cur *ir.Block, n tac.ArrayAccess) {
	arr := fb.load(cur, n.Array)
	idx := fb.load(cur, n.Index)
	base := cur.NewIntToPtr(arr, types.NewPointer(types.I32))
	elemPtr := cur.NewGetElementPtr(types.I32, base, idx)
	if n.IsAssignment {
		cur.NewStore(fb.load(cur, n.Target), elemPtr)
		return
	}
	fb.store(cur, n.Target, cur.NewLoad(types.I32, elemPtr))
}

// translatePropertyAccess resolves property to a byte offset via the
// program-wide field table internal/mips.BuildClassTable already computed
// (§ package doc: both backends share this table instead of each
// recomputing their own).
func (fb *funcBuilder) translatePropertyAccess(cur *ir.Block, n tac.PropertyAccess) {
	obj := fb.load(cur, n.Object)
	offset := fb.r.classes.FieldOffset(n.Property)
	base := cur.NewIntToPtr(obj, types.NewPointer(types.I8))
	bytePtr := cur.NewGetElementPtr(types.I8, base, constant.NewInt(types.I32, int64(offset)))
	fieldPtr := cur.NewBitCast(bytePtr, types.NewPointer(types.I32))
	if n.IsAssignment {
		cur.NewStore(fb.load(cur, n.Target), fieldPtr)
		return
	}
	fb.store(cur, n.Target, cur.NewLoad(types.I32, fieldPtr))
}

func (fb *funcBuilder) translateNew(cur *ir.Block, n tac.New) {
	size := fb.r.classes.InstanceSize(n.Class)
	addr := cur.NewCall(fb.r.runtime["compiscript_rt_alloc"], constant.NewInt(types.I32, int64(size)))
	fb.store(cur, n.Target, addr)
}

// translateAllocateArray matches internal/mips's translateAllocateArray
// layout exactly: a length-prefixed block, with the returned reference
// already advanced past the length word.
func (fb *funcBuilder) translateAllocateArray(cur *ir.Block, n tac.AllocateArray) {
	count := fb.load(cur, n.Size)
	bytes := cur.NewAdd(
		cur.NewMul(constant.NewInt(types.I32, int64(n.ElemSize)), count),
		constant.NewInt(types.I32, int64(wordSize)),
	)
	addr := cur.NewCall(fb.r.runtime["compiscript_rt_alloc"], bytes)
	header := cur.NewIntToPtr(addr, types.NewPointer(types.I32))
	cur.NewStore(count, header)
	arrAddr := cur.NewAdd(addr, constant.NewInt(types.I32, int64(wordSize)))
	fb.store(cur, n.Target, arrAddr)
}
