package tac

import (
	"fmt"
	"strconv"
	"strings"

	"compiscript/internal/ast"
)

// Expression TAC Generator (§4.4): every Visit method returns the operand
// name holding the expression's value, wrapped in exprResult so it survives
// the ast.ExprVisitor `any` return type.

func (g *Generator) VisitIntLiteral(n *ast.IntLiteral) any {
	return exprResult{name: strconv.FormatInt(n.Value, 10)}
}

func (g *Generator) VisitFloatLiteral(n *ast.FloatLiteral) any {
	return exprResult{name: strconv.FormatFloat(n.Value, 'g', -1, 64)}
}

func (g *Generator) VisitStringLiteral(n *ast.StringLiteral) any {
	return exprResult{name: `"` + escapeString(n.Value) + `"`}
}

func (g *Generator) VisitBoolLiteral(n *ast.BoolLiteral) any {
	if n.Value {
		return exprResult{name: "true"}
	}
	return exprResult{name: "false"}
}

func (g *Generator) VisitNullLiteral(n *ast.NullLiteral) any {
	return exprResult{name: "null"}
}

func (g *Generator) VisitIdentifier(n *ast.Identifier) any {
	return exprResult{name: n.Name}
}

func (g *Generator) VisitThisExpr(n *ast.ThisExpr) any {
	return exprResult{name: "this"}
}

func escapeString(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`, "\t", `\t`, "\r", `\r`)
	return r.Replace(s)
}

func isStringType(t *ast.TypeRef) bool {
	return t != nil && !t.IsArray() && t.Base == ast.TypeString
}

func isBooleanType(t *ast.TypeRef) bool {
	return t != nil && !t.IsArray() && t.Base == ast.TypeBoolean
}

func isNumericType(t *ast.TypeRef) bool {
	return t != nil && !t.IsArray() && (t.Base == ast.TypeInteger || t.Base == ast.TypeFloat)
}

func isFloatType(t *ast.TypeRef) bool {
	return t != nil && !t.IsArray() && t.Base == ast.TypeFloat
}

func (g *Generator) VisitBinaryExpr(n *ast.BinaryExpr) any {
	leftVal, err := g.expr(n.Left)
	if err != nil {
		return exprResult{err: err}
	}
	rightVal, err := g.expr(n.Right)
	if err != nil {
		return exprResult{err: err}
	}
	lt, rt := n.Left.Type(), n.Right.Type()
	at := n.Location()

	if n.Operator == "+" && (isStringType(lt) || isStringType(rt)) {
		left := leftVal
		if !isStringType(lt) {
			tmp := g.Temps.NewTemp()
			g.emit(Assign{base: base{at: loc(at)}, Target: tmp, Operator: "to_string", Op1: leftVal})
			left = tmp
		}
		right := rightVal
		if !isStringType(rt) {
			tmp := g.Temps.NewTemp()
			g.emit(Assign{base: base{at: loc(at)}, Target: tmp, Operator: "to_string", Op1: rightVal})
			right = tmp
		}
		target := g.Temps.NewTemp()
		g.emit(Assign{base: base{at: loc(at)}, Target: target, Op1: left, Operator: "str_concat", Op2: right})
		return exprResult{name: target}
	}

	if isStringType(lt) || isStringType(rt) {
		return exprResult{err: g.tacErr(fmt.Sprintf("operator %q is not supported on a string operand (only + concatenation is)", n.Operator), at)}
	}

	if isBooleanType(lt) || isBooleanType(rt) {
		if n.Operator != "==" && n.Operator != "!=" {
			return exprResult{err: g.tacErr(fmt.Sprintf("operator %q is not supported on a boolean operand (only ==, != are)", n.Operator), at)}
		}
		target := g.Temps.NewTemp()
		g.emit(Assign{base: base{at: loc(at)}, Target: target, Op1: leftVal, Operator: n.Operator, Op2: rightVal})
		return exprResult{name: target}
	}

	if !isNumericType(lt) || !isNumericType(rt) {
		return exprResult{err: g.tacErr(fmt.Sprintf("operator %q requires numeric operands", n.Operator), at)}
	}

	left, right := leftVal, rightVal
	if lt.Base == ast.TypeFloat && rt.Base == ast.TypeInteger {
		tmp := g.Temps.NewTemp()
		g.emit(Assign{base: base{at: loc(at)}, Target: tmp, Operator: "int_to_float", Op1: rightVal})
		right = tmp
	} else if lt.Base == ast.TypeInteger && rt.Base == ast.TypeFloat {
		tmp := g.Temps.NewTemp()
		g.emit(Assign{base: base{at: loc(at)}, Target: tmp, Operator: "int_to_float", Op1: leftVal})
		left = tmp
	}
	target := g.Temps.NewTemp()
	g.emit(Assign{base: base{at: loc(at)}, Target: target, Op1: left, Operator: n.Operator, Op2: right})
	return exprResult{name: target}
}

// VisitLogicalExpr lowers && and || with short-circuit evaluation (§4.4):
// the right operand is only evaluated if it can affect the result.
func (g *Generator) VisitLogicalExpr(n *ast.LogicalExpr) any {
	at := n.Location()
	leftVal, err := g.expr(n.Left)
	if err != nil {
		return exprResult{err: err}
	}
	result := g.Temps.NewTemp()
	endLabel := g.Labels.NewLabel("Lend")

	if n.Operator == "&&" {
		falseLabel := g.Labels.NewLabel("Lfalse")
		g.Labels.MarkReferenced(falseLabel)
		g.emit(IfGoto{base: base{at: loc(at)}, Cond: leftVal, Operator: "==", Op2: "0", Label: falseLabel})
		rightVal, err := g.expr(n.Right)
		if err != nil {
			return exprResult{err: err}
		}
		g.emit(Assign{base: base{at: loc(at)}, Target: result, Op1: rightVal})
		g.emitGoto(endLabel, at)
		g.emitLabel(falseLabel)
		g.emit(Assign{base: base{at: loc(at)}, Target: result, Op1: "0"})
		g.emitLabel(endLabel)
		return exprResult{name: result}
	}

	trueLabel := g.Labels.NewLabel("Ltrue")
	g.Labels.MarkReferenced(trueLabel)
	g.emit(IfGoto{base: base{at: loc(at)}, Cond: leftVal, Operator: "!=", Op2: "0", Label: trueLabel})
	rightVal, err := g.expr(n.Right)
	if err != nil {
		return exprResult{err: err}
	}
	g.emit(Assign{base: base{at: loc(at)}, Target: result, Op1: rightVal})
	g.emitGoto(endLabel, at)
	g.emitLabel(trueLabel)
	g.emit(Assign{base: base{at: loc(at)}, Target: result, Op1: "1"})
	g.emitLabel(endLabel)
	return exprResult{name: result}
}

func (g *Generator) VisitUnaryExpr(n *ast.UnaryExpr) any {
	val, err := g.expr(n.Operand)
	if err != nil {
		return exprResult{err: err}
	}
	target := g.Temps.NewTemp()
	g.emit(Assign{base: base{at: loc(n.Location())}, Target: target, Operator: n.Operator, Op1: val})
	return exprResult{name: target}
}

// VisitTernaryExpr mirrors if/else lowering at expression scale (§4.4).
func (g *Generator) VisitTernaryExpr(n *ast.TernaryExpr) any {
	at := n.Location()
	condVal, err := g.expr(n.Cond)
	if err != nil {
		return exprResult{err: err}
	}
	result := g.Temps.NewTemp()
	falseLabel := g.Labels.NewLabel("Lfalse")
	endLabel := g.Labels.NewLabel("Lend")
	g.Labels.MarkReferenced(falseLabel)
	g.emit(IfGoto{base: base{at: loc(at)}, Cond: condVal, Operator: "==", Op2: "0", Label: falseLabel})

	thenVal, err := g.expr(n.Then)
	if err != nil {
		return exprResult{err: err}
	}
	g.emit(Assign{base: base{at: loc(at)}, Target: result, Op1: thenVal})
	g.emitGoto(endLabel, at)

	g.emitLabel(falseLabel)
	elseVal, err := g.expr(n.Else)
	if err != nil {
		return exprResult{err: err}
	}
	g.emit(Assign{base: base{at: loc(at)}, Target: result, Op1: elseVal})
	g.emitLabel(endLabel)
	return exprResult{name: result}
}

func (g *Generator) VisitIndexExpr(n *ast.IndexExpr) any {
	obj, err := g.expr(n.Object)
	if err != nil {
		return exprResult{err: err}
	}
	idx, err := g.expr(n.Index)
	if err != nil {
		return exprResult{err: err}
	}
	target := g.Temps.NewTemp()
	g.emit(ArrayAccess{base: base{at: loc(n.Location())}, Target: target, Array: obj, Index: idx})
	return exprResult{name: target}
}

func (g *Generator) VisitPropertyExpr(n *ast.PropertyExpr) any {
	obj, err := g.expr(n.Object)
	if err != nil {
		return exprResult{err: err}
	}
	target := g.Temps.NewTemp()
	g.emit(PropertyAccess{base: base{at: loc(n.Location())}, Target: target, Object: obj, Property: n.Property})
	return exprResult{name: target}
}

func (g *Generator) VisitArrayLiteral(n *ast.ArrayLiteral) any {
	at := n.Location()
	target := g.Temps.NewTemp()
	g.emit(AllocateArray{base: base{at: loc(at)}, Target: target, Size: strconv.Itoa(len(n.Elements)), ElemSize: 4})
	for i, el := range n.Elements {
		val, err := g.expr(el)
		if err != nil {
			return exprResult{err: err}
		}
		g.emit(ArrayAccess{base: base{at: loc(at)}, Target: val, Array: target, Index: strconv.Itoa(i), IsAssignment: true})
	}
	return exprResult{name: target}
}

// VisitNewExpr lowers `new C(args...)` (§4.4): allocate, then resolve and
// invoke the nearest constructor in the superclass chain, pushing `this`
// first (matching the callee's declared parameter order in
// function_generator.go) followed by args left-to-right.
func (g *Generator) VisitNewExpr(n *ast.NewExpr) any {
	at := n.Location()
	target := g.Temps.NewTemp()
	g.emit(New{base: base{at: loc(at)}, Target: target, Class: n.ClassName})

	ctorName, found := g.resolveConstructor(n.ClassName)
	if !found {
		return exprResult{name: target}
	}
	var argVals []string
	for _, a := range n.Args {
		v, err := g.expr(a)
		if err != nil {
			return exprResult{err: err}
		}
		argVals = append(argVals, v)
	}
	g.emit(PushParam{base: base{at: loc(at)}, Value: target})
	for _, v := range argVals {
		g.emit(PushParam{base: base{at: loc(at)}, Value: v})
	}
	argc := len(argVals) + 1
	g.emit(Call{base: base{at: loc(at)}, Function: ctorName, ParamCount: argc})
	if argc > 0 {
		g.emit(PopParams{base: base{at: loc(at)}, Count: argc})
	}
	return exprResult{name: target}
}

// resolveConstructor walks from className up the superclass chain and
// returns the nearest ancestor's constructor name, or ("", false) if no
// class in the chain declares one explicitly.
func (g *Generator) resolveConstructor(className string) (string, bool) {
	name := className
	for name != "" {
		info, ok := g.Classes[name]
		if !ok {
			return "", false
		}
		if info.HasExplicitConstructor {
			return name + "_constructor", true
		}
		name = info.Superclass
	}
	return "", false
}

// VisitCallExpr lowers both free-function calls and obj.method(...) calls
// (§4.6): look up the callee (print/println/input accept any arity; the
// conversion builtins take one argument), evaluate args
// left-to-right, PushParam each, Call, PopParams. An unqualified call to a
// name registered as a method resolves against the current `this` (§4.7's
// bare-name registration exists precisely to make that resolution
// possible from inside the declaring class's own methods).
func (g *Generator) VisitCallExpr(n *ast.CallExpr) any {
	at := n.Location()
	switch callee := n.Callee.(type) {
	case *ast.Identifier:
		name := callee.Name
		if Builtins[name] {
			if result, handled := g.lowerTypedBuiltin(name, n.Args, at); handled {
				return result
			}
			return g.lowerCall(name, nil, n.Args, at)
		}
		info, ok := g.Funcs.Lookup(name)
		if !ok {
			return exprResult{err: g.tacErr(fmt.Sprintf("call to undeclared function %q", name), at)}
		}
		if info.ParamCount != len(n.Args) {
			return exprResult{err: g.tacErr(fmt.Sprintf("function %q expects %d argument(s), got %d", name, info.ParamCount, len(n.Args)), at)}
		}
		if info.IsMethod {
			if g.currentClass == "" {
				return exprResult{err: g.tacErr(fmt.Sprintf("cannot call method %q without a receiver", name), at)}
			}
			return g.lowerCall(info.TargetLabel, []string{"this"}, n.Args, at)
		}
		return g.lowerCall(info.TargetLabel, nil, n.Args, at)
	case *ast.PropertyExpr:
		objVal, err := g.expr(callee.Object)
		if err != nil {
			return exprResult{err: err}
		}
		objType := callee.Object.Type()
		if objType == nil {
			return exprResult{err: g.tacErr(fmt.Sprintf("cannot resolve method %q: receiver has no resolved type", callee.Property), at)}
		}
		qualified := objType.Base + "_" + callee.Property
		info, ok := g.Funcs.Lookup(qualified)
		if !ok {
			return exprResult{err: g.tacErr(fmt.Sprintf("call to undeclared method %q on %s", callee.Property, objType.Base), at)}
		}
		if info.ParamCount != len(n.Args) {
			return exprResult{err: g.tacErr(fmt.Sprintf("method %q expects %d argument(s), got %d", qualified, info.ParamCount, len(n.Args)), at)}
		}
		return g.lowerCall(info.TargetLabel, []string{objVal}, n.Args, at)
	default:
		return exprResult{err: g.tacErr("callee is not a callable expression", at)}
	}
}

// lowerTypedBuiltin handles the conversion builtins (str, int, float, bool,
// len) by consulting the single argument's static type - the same
// information VisitBinaryExpr already uses to pick int_to_float coercions -
// so the right Assign operator (and, transitively, the right MIPS runtime
// routine) is chosen once here instead of re-inferred later from untyped
// TAC text. print/println/input have no argument whose type picks a
// conversion, so they stay on the generic lowerCall/Call path. Returns
// handled=false for any builtin this function doesn't special-case, so the
// caller falls back to lowerCall.
func (g *Generator) lowerTypedBuiltin(name string, args []ast.Expr, at ast.SourceLocation) (result any, handled bool) {
	switch name {
	case "str", "int", "float", "bool", "len":
	default:
		return nil, false
	}
	if len(args) != 1 {
		return exprResult{err: g.tacErr(fmt.Sprintf("%s expects exactly one argument, got %d", name, len(args)), at)}, true
	}
	argVal, err := g.expr(args[0])
	if err != nil {
		return exprResult{err: err}, true
	}
	argType := args[0].Type()

	unary := func(op string) any {
		target := g.Temps.NewTemp()
		g.emit(Assign{base: base{at: loc(at)}, Target: target, Operator: op, Op1: argVal})
		return exprResult{name: target}
	}
	passthrough := func() any { return exprResult{name: argVal} }

	switch name {
	case "len":
		return unary("len"), true
	case "str":
		if isStringType(argType) {
			return passthrough(), true
		}
		return unary("to_string"), true
	case "int":
		switch {
		case isFloatType(argType):
			return unary("float_to_int"), true
		case isStringType(argType):
			return unary("str_to_int"), true
		default:
			return passthrough(), true
		}
	case "float":
		switch {
		case isStringType(argType):
			// Decimal-text float parsing has no hand-written runtime
			// routine (§4.13 only implements itoa/atoi, not a string-to-
			// float scanner) - documented scope boundary, see DESIGN.md.
			return exprResult{err: g.tacErr("float() of a string argument is not supported by this backend", at)}, true
		case isNumericType(argType) && !isFloatType(argType):
			return unary("int_to_float"), true
		default:
			return passthrough(), true
		}
	case "bool":
		if isBooleanType(argType) {
			return passthrough(), true
		}
		return unary("to_bool"), true
	}
	return nil, false
}

// lowerCall evaluates args, already arity-checked by the caller, and emits
// PushParam (any injected `this` first, then args left-to-right, matching
// the callee's declared parameter order)/Call/PopParams.
func (g *Generator) lowerCall(target string, leadingThis []string, args []ast.Expr, at ast.SourceLocation) any {
	var argVals []string
	for _, a := range args {
		v, err := g.expr(a)
		if err != nil {
			return exprResult{err: err}
		}
		argVals = append(argVals, v)
	}
	for _, v := range leadingThis {
		g.emit(PushParam{base: base{at: loc(at)}, Value: v})
	}
	for _, v := range argVals {
		g.emit(PushParam{base: base{at: loc(at)}, Value: v})
	}
	argc := len(argVals) + len(leadingThis)

	if target == g.currentFunc {
		g.emit(Comment{base: base{at: loc(at)}, Text: "recursive call to " + target})
	}

	result := g.Temps.NewTemp()
	g.emit(Call{base: base{at: loc(at)}, Function: target, ParamCount: argc, Target: result})
	if argc > 0 {
		g.emit(PopParams{base: base{at: loc(at)}, Count: argc})
	}
	return exprResult{name: result}
}
