package tac

import "compiscript/internal/ast"

// Control-Flow TAC Generator (§4.5) plus the basic statement forms
// (assignment, expression statements, declarations, blocks) that sit
// alongside it. Every Visit method returns either nil or an error, smuggled
// through the ast.StmtVisitor `any` return type.

func (g *Generator) VisitAssignStmt(n *ast.AssignStmt) any {
	val, err := g.expr(n.Value)
	if err != nil {
		return err
	}
	at := n.Location()
	switch t := n.Target.(type) {
	case ast.VarTarget:
		g.emit(Assign{base: base{at: loc(at)}, Target: t.Name, Op1: val})
	case ast.IndexTarget:
		obj, err := g.expr(t.Object)
		if err != nil {
			return err
		}
		idx, err := g.expr(t.Index)
		if err != nil {
			return err
		}
		g.emit(ArrayAccess{base: base{at: loc(at)}, Target: val, Array: obj, Index: idx, IsAssignment: true})
	case ast.PropertyTarget:
		obj, err := g.expr(t.Object)
		if err != nil {
			return err
		}
		g.emit(PropertyAccess{base: base{at: loc(at)}, Target: val, Object: obj, Property: t.Property, IsAssignment: true})
	}
	return nil
}

func (g *Generator) VisitExprStmt(n *ast.ExprStmt) any {
	_, err := g.expr(n.Expr)
	return err
}

func (g *Generator) VisitBlockStmt(n *ast.BlockStmt) any {
	return g.lowerBlock(n.Stmts)
}

// lowerBlock lowers a statement list within its own temporary scope, so
// temporaries created inside are recycled at block exit (§4.1, §5's
// scoped-acquisition discipline).
func (g *Generator) lowerBlock(stmts []ast.Stmt) error {
	g.Temps.EnterScope()
	defer g.Temps.ExitScope()
	for _, s := range stmts {
		if err := g.stmt(s); err != nil {
			return err
		}
	}
	return nil
}

// exitsUnconditionally reports whether the last statement in a block is a
// return/break/continue, so the if-lowering can skip the redundant `goto
// end` the source avoids emitting in that case (§4.5).
func exitsUnconditionally(stmts []ast.Stmt) bool {
	if len(stmts) == 0 {
		return false
	}
	switch stmts[len(stmts)-1].(type) {
	case *ast.ReturnStmt, *ast.BreakStmt, *ast.ContinueStmt:
		return true
	}
	return false
}

func (g *Generator) VisitIfStmt(n *ast.IfStmt) any {
	at := n.Location()
	condVal, err := g.expr(n.Cond)
	if err != nil {
		return err
	}
	falseLabel := g.Labels.NewLabel("Lfalse")
	g.Labels.MarkReferenced(falseLabel)
	g.emit(IfGoto{base: base{at: loc(at)}, Cond: condVal, Operator: "==", Op2: "0", Label: falseLabel})

	if err := g.lowerBlock(n.Then); err != nil {
		return err
	}

	hasElse := n.Else != nil
	thenExits := exitsUnconditionally(n.Then)
	endLabel := ""
	if hasElse && !thenExits {
		endLabel = g.Labels.NewLabel("Lend")
		g.emitGoto(endLabel, at)
	}

	g.emitLabel(falseLabel)
	if hasElse {
		if err := g.lowerBlock(n.Else); err != nil {
			return err
		}
	}
	if endLabel != "" {
		g.emitLabel(endLabel)
	}
	return nil
}

func (g *Generator) VisitWhileStmt(n *ast.WhileStmt) any {
	at := n.Location()
	startLabel := g.Labels.NewLabel("Lstart")
	endLabel := g.Labels.NewLabel("Lend")
	g.Labels.MarkReferenced(endLabel)

	g.emitLabel(startLabel)
	condVal, err := g.expr(n.Cond)
	if err != nil {
		return err
	}
	g.emit(IfGoto{base: base{at: loc(at)}, Cond: condVal, Operator: "==", Op2: "0", Label: endLabel})

	g.Labels.PushLoop(endLabel, startLabel)
	err = g.lowerBlock(n.Body)
	if popErr := g.Labels.PopLoop(); err == nil {
		err = popErr
	}
	if err != nil {
		return err
	}

	g.emitGoto(startLabel, at)
	g.emitLabel(endLabel)
	return nil
}

func (g *Generator) VisitDoWhileStmt(n *ast.DoWhileStmt) any {
	at := n.Location()
	startLabel := g.Labels.NewLabel("Lstart")
	condLabel := g.Labels.NewLabel("Lcond")
	endLabel := g.Labels.NewLabel("Lend")
	g.Labels.MarkReferenced(endLabel)

	g.emitLabel(startLabel)
	g.Labels.PushLoop(endLabel, condLabel)
	err := g.lowerBlock(n.Body)
	if popErr := g.Labels.PopLoop(); err == nil {
		err = popErr
	}
	if err != nil {
		return err
	}

	g.emitLabel(condLabel)
	condVal, err := g.expr(n.Cond)
	if err != nil {
		return err
	}
	g.emit(IfGoto{base: base{at: loc(at)}, Cond: condVal, Operator: "!=", Op2: "0", Label: startLabel})
	g.emitLabel(endLabel)
	return nil
}

func (g *Generator) VisitForStmt(n *ast.ForStmt) any {
	at := n.Location()
	g.Temps.EnterScope()
	defer g.Temps.ExitScope()

	if n.Init != nil {
		if err := g.stmt(n.Init); err != nil {
			return err
		}
	}

	condLabel := g.Labels.NewLabel("Lcond")
	updateLabel := g.Labels.NewLabel("Lupdate")
	endLabel := g.Labels.NewLabel("Lend")
	g.Labels.MarkReferenced(endLabel)

	g.emitLabel(condLabel)
	if n.Cond != nil {
		condVal, err := g.expr(n.Cond)
		if err != nil {
			return err
		}
		g.emit(IfGoto{base: base{at: loc(at)}, Cond: condVal, Operator: "==", Op2: "0", Label: endLabel})
	}

	g.Labels.PushLoop(endLabel, updateLabel)
	err := g.lowerBlock(n.Body)
	if popErr := g.Labels.PopLoop(); err == nil {
		err = popErr
	}
	if err != nil {
		return err
	}

	g.emitLabel(updateLabel)
	if n.Update != nil {
		if err := g.stmt(n.Update); err != nil {
			return err
		}
	}
	g.emitGoto(condLabel, at)
	g.emitLabel(endLabel)
	return nil
}

func (g *Generator) VisitForEachStmt(n *ast.ForEachStmt) any {
	at := n.Location()
	iterVal, err := g.expr(n.Iterable)
	if err != nil {
		return err
	}

	g.Temps.EnterScope()
	defer g.Temps.ExitScope()

	idxTemp := g.Temps.NewTemp()
	lenTemp := g.Temps.NewTemp()
	g.emit(Assign{base: base{at: loc(at)}, Target: lenTemp, Operator: "len", Op1: iterVal})
	g.emit(Assign{base: base{at: loc(at)}, Target: idxTemp, Op1: "0"})

	startLabel := g.Labels.NewLabel("Lstart")
	endLabel := g.Labels.NewLabel("Lend")
	continueLabel := g.Labels.NewLabel("Lcontinue")
	g.Labels.MarkReferenced(endLabel)

	g.emitLabel(startLabel)
	g.emit(IfGoto{base: base{at: loc(at)}, Cond: idxTemp, Operator: ">=", Op2: lenTemp, Label: endLabel})

	elemTemp := g.Temps.NewTemp()
	g.emit(ArrayAccess{base: base{at: loc(at)}, Target: elemTemp, Array: iterVal, Index: idxTemp})
	g.emit(Assign{base: base{at: loc(at)}, Target: n.VarName, Op1: elemTemp})

	g.Labels.PushLoop(endLabel, continueLabel)
	err = g.lowerBlock(n.Body)
	if popErr := g.Labels.PopLoop(); err == nil {
		err = popErr
	}
	if err != nil {
		return err
	}

	g.emitLabel(continueLabel)
	g.emit(Assign{base: base{at: loc(at)}, Target: idxTemp, Op1: idxTemp, Operator: "+", Op2: "1"})
	g.emitGoto(startLabel, at)
	g.emitLabel(endLabel)
	return nil
}

func (g *Generator) VisitBreakStmt(n *ast.BreakStmt) any {
	label := g.Labels.CurrentBreakLabel()
	if label == "" {
		return g.tacErr("break outside a loop or switch", n.Location())
	}
	g.emitGoto(label, n.Location())
	return nil
}

func (g *Generator) VisitContinueStmt(n *ast.ContinueStmt) any {
	label := g.Labels.CurrentContinueLabel()
	if label == "" {
		return g.tacErr("continue outside a loop", n.Location())
	}
	g.emitGoto(label, n.Location())
	return nil
}

func (g *Generator) VisitReturnStmt(n *ast.ReturnStmt) any {
	at := n.Location()
	if n.Value == nil {
		g.emit(Return{base: base{at: loc(at)}})
		return nil
	}
	val, err := g.expr(n.Value)
	if err != nil {
		return err
	}
	g.emit(Return{base: base{at: loc(at)}, Value: val})
	return nil
}

func (g *Generator) VisitSwitchStmt(n *ast.SwitchStmt) any {
	at := n.Location()
	scrutVal, err := g.expr(n.Scrutinee)
	if err != nil {
		return err
	}

	endLabel := g.Labels.NewLabel("Lend")
	g.Labels.MarkReferenced(endLabel)
	caseLabels := make([]string, len(n.Cases))
	for i := range n.Cases {
		caseLabels[i] = g.Labels.NewLabel("Lcase")
	}
	defaultLabel := ""
	if n.Default != nil {
		defaultLabel = g.Labels.NewLabel("Ldefault")
	}

	for i, c := range n.Cases {
		caseVal, err := g.expr(c.Value)
		if err != nil {
			return err
		}
		g.Labels.MarkReferenced(caseLabels[i])
		g.emit(IfGoto{base: base{at: loc(at)}, Cond: scrutVal, Operator: "==", Op2: caseVal, Label: caseLabels[i]})
	}
	if defaultLabel != "" {
		g.emitGoto(defaultLabel, at)
	} else {
		g.emitGoto(endLabel, at)
	}

	g.Labels.PushSwitch(endLabel)
	for i, c := range n.Cases {
		g.emitLabel(caseLabels[i])
		if err := g.lowerBlock(c.Body); err != nil {
			g.Labels.PopSwitch()
			return err
		}
	}
	if defaultLabel != "" {
		g.emitLabel(defaultLabel)
		if err := g.lowerBlock(n.Default); err != nil {
			g.Labels.PopSwitch()
			return err
		}
	}
	if err := g.Labels.PopSwitch(); err != nil {
		return err
	}
	g.emitLabel(endLabel)
	return nil
}

// VisitTryStmt lowers the try block in line and emits the catch block
// behind an unconditional skip: MIPS32 has no exception/unwind mechanism
// in this runtime, so a thrown value is never actually produced and the
// catch body is unreachable dead code, kept only so its variable bindings
// and statements still type-check and occupy the instruction stream for
// tooling that inspects it (e.g. output.tac).
func (g *Generator) VisitTryStmt(n *ast.TryStmt) any {
	at := n.Location()
	if err := g.lowerBlock(n.Try); err != nil {
		return err
	}
	endLabel := g.Labels.NewLabel("Lend")
	g.emitGoto(endLabel, at)

	catchLabel := g.Labels.NewLabel("Lcatch")
	g.emit(Comment{base: base{at: loc(at)}, Text: "catch block: unreachable, no runtime unwind mechanism"})
	g.emitLabel(catchLabel)
	g.Temps.EnterScope()
	g.emit(Assign{base: base{at: loc(at)}, Target: n.CatchVar, Op1: "null"})
	err := g.lowerBlock(n.Catch)
	g.Temps.ExitScope()
	if err != nil {
		return err
	}
	g.emitLabel(endLabel)
	return nil
}

func defaultValueFor(t *ast.TypeRef) string {
	if t == nil {
		return "null"
	}
	switch t.Base {
	case ast.TypeInteger:
		return "0"
	case ast.TypeFloat:
		return "0.0"
	case ast.TypeString:
		return `""`
	case ast.TypeBoolean:
		return "false"
	default:
		return "null"
	}
}

func (g *Generator) VisitVarDecl(n *ast.VarDecl) any {
	at := n.Location()
	if g.Addr.CurrentRecord() == nil {
		g.Addr.AllocateGlobal(n.Name)
	} else {
		g.Addr.AllocateLocal(n.Name)
	}
	if n.Init != nil {
		val, err := g.expr(n.Init)
		if err != nil {
			return err
		}
		g.emit(Assign{base: base{at: loc(at)}, Target: n.Name, Op1: val})
		return nil
	}
	g.emit(Assign{base: base{at: loc(at)}, Target: n.Name, Op1: defaultValueFor(n.DeclaredType)})
	return nil
}
