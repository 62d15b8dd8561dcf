package ast

import (
	"fmt"
	"strings"
)

// RenderDOT renders prog as a Graphviz DOT graph (§6's `ast.dot` CLI
// output): one node per AST node, one edge per parent→child link. Walks by
// type switch rather than the Expr/StmtVisitor interfaces above - dumping
// structure needs no per-kind semantic behavior, so the extra indirection
// of implementing both 16-method visitor interfaces here would be pure
// boilerplate.
func RenderDOT(prog *Program) string {
	var b strings.Builder
	b.WriteString("digraph AST {\n")
	b.WriteString("  node [shape=box, fontname=\"monospace\"];\n")
	d := &dotBuilder{b: &b}
	root := d.node("Program")
	for _, s := range prog.Stmts {
		d.edge(root, d.stmt(s))
	}
	b.WriteString("}\n")
	return b.String()
}

type dotBuilder struct {
	b   *strings.Builder
	ctr int
}

func (d *dotBuilder) next() int {
	d.ctr++
	return d.ctr
}

func (d *dotBuilder) node(label string) int {
	id := d.next()
	fmt.Fprintf(d.b, "  n%d [label=%q];\n", id, label)
	return id
}

func (d *dotBuilder) edge(parent, child int) {
	fmt.Fprintf(d.b, "  n%d -> n%d;\n", parent, child)
}

func (d *dotBuilder) stmts(parent int, body []Stmt) {
	for _, s := range body {
		d.edge(parent, d.stmt(s))
	}
}

func (d *dotBuilder) stmt(s Stmt) int {
	switch n := s.(type) {
	case *AssignStmt:
		id := d.node("Assign")
		d.edge(id, d.assignTarget(n.Target))
		d.edge(id, d.expr(n.Value))
		return id
	case *ExprStmt:
		id := d.node("ExprStmt")
		d.edge(id, d.expr(n.Expr))
		return id
	case *BlockStmt:
		id := d.node("Block")
		d.stmts(id, n.Stmts)
		return id
	case *IfStmt:
		id := d.node("If")
		d.edge(id, d.expr(n.Cond))
		d.stmts(id, n.Then)
		d.stmts(id, n.Else)
		return id
	case *WhileStmt:
		id := d.node("While")
		d.edge(id, d.expr(n.Cond))
		d.stmts(id, n.Body)
		return id
	case *DoWhileStmt:
		id := d.node("DoWhile")
		d.stmts(id, n.Body)
		d.edge(id, d.expr(n.Cond))
		return id
	case *ForStmt:
		id := d.node("For")
		if n.Init != nil {
			d.edge(id, d.stmt(n.Init))
		}
		if n.Cond != nil {
			d.edge(id, d.expr(n.Cond))
		}
		if n.Update != nil {
			d.edge(id, d.stmt(n.Update))
		}
		d.stmts(id, n.Body)
		return id
	case *ForEachStmt:
		id := d.node(fmt.Sprintf("ForEach(%s)", n.VarName))
		d.edge(id, d.expr(n.Iterable))
		d.stmts(id, n.Body)
		return id
	case *BreakStmt:
		return d.node("Break")
	case *ContinueStmt:
		return d.node("Continue")
	case *ReturnStmt:
		id := d.node("Return")
		if n.Value != nil {
			d.edge(id, d.expr(n.Value))
		}
		return id
	case *TryStmt:
		id := d.node(fmt.Sprintf("Try(catch %s)", n.CatchVar))
		d.stmts(id, n.Try)
		d.stmts(id, n.Catch)
		return id
	case *SwitchStmt:
		id := d.node("Switch")
		d.edge(id, d.expr(n.Scrutinee))
		for _, c := range n.Cases {
			cid := d.node("Case")
			d.edge(cid, d.expr(c.Value))
			d.stmts(cid, c.Body)
			d.edge(id, cid)
		}
		if n.Default != nil {
			did := d.node("Default")
			d.stmts(did, n.Default)
			d.edge(id, did)
		}
		return id
	case *VarDecl:
		label := "Var(" + n.Name + ")"
		if n.Const {
			label = "Const(" + n.Name + ")"
		}
		id := d.node(label)
		if n.Init != nil {
			d.edge(id, d.expr(n.Init))
		}
		return id
	case *FunctionDecl:
		id := d.node("Function(" + n.Name + ")")
		d.stmts(id, n.Body)
		return id
	case *ClassDecl:
		id := d.node("Class(" + n.Name + ")")
		for _, m := range n.Constructors {
			d.edge(id, d.stmt(&m))
		}
		for _, m := range n.Methods {
			d.edge(id, d.stmt(&m))
		}
		return id
	default:
		return d.node(fmt.Sprintf("%T", s))
	}
}

func (d *dotBuilder) assignTarget(t AssignTarget) int {
	switch n := t.(type) {
	case VarTarget:
		return d.node("Var(" + n.Name + ")")
	case IndexTarget:
		id := d.node("Index")
		d.edge(id, d.expr(n.Object))
		d.edge(id, d.expr(n.Index))
		return id
	case PropertyTarget:
		id := d.node("Property(." + n.Property + ")")
		d.edge(id, d.expr(n.Object))
		return id
	default:
		return d.node("AssignTarget?")
	}
}

func (d *dotBuilder) expr(e Expr) int {
	switch n := e.(type) {
	case *IntLiteral:
		return d.node(fmt.Sprintf("Int(%d)", n.Value))
	case *FloatLiteral:
		return d.node(fmt.Sprintf("Float(%g)", n.Value))
	case *StringLiteral:
		return d.node(fmt.Sprintf("String(%q)", n.Value))
	case *BoolLiteral:
		return d.node(fmt.Sprintf("Bool(%t)", n.Value))
	case *NullLiteral:
		return d.node("Null")
	case *Identifier:
		return d.node("Ident(" + n.Name + ")")
	case *BinaryExpr:
		id := d.node("Binary(" + n.Operator + ")")
		d.edge(id, d.expr(n.Left))
		d.edge(id, d.expr(n.Right))
		return id
	case *LogicalExpr:
		id := d.node("Logical(" + n.Operator + ")")
		d.edge(id, d.expr(n.Left))
		d.edge(id, d.expr(n.Right))
		return id
	case *UnaryExpr:
		id := d.node("Unary(" + n.Operator + ")")
		d.edge(id, d.expr(n.Operand))
		return id
	case *TernaryExpr:
		id := d.node("Ternary")
		d.edge(id, d.expr(n.Cond))
		d.edge(id, d.expr(n.Then))
		d.edge(id, d.expr(n.Else))
		return id
	case *CallExpr:
		id := d.node("Call")
		d.edge(id, d.expr(n.Callee))
		for _, a := range n.Args {
			d.edge(id, d.expr(a))
		}
		return id
	case *IndexExpr:
		id := d.node("Index")
		d.edge(id, d.expr(n.Object))
		d.edge(id, d.expr(n.Index))
		return id
	case *PropertyExpr:
		id := d.node("Property(." + n.Property + ")")
		d.edge(id, d.expr(n.Object))
		return id
	case *ArrayLiteral:
		id := d.node("ArrayLiteral")
		for _, el := range n.Elements {
			d.edge(id, d.expr(el))
		}
		return id
	case *ThisExpr:
		return d.node("This")
	case *NewExpr:
		id := d.node("New(" + n.ClassName + ")")
		for _, a := range n.Args {
			d.edge(id, d.expr(a))
		}
		return id
	default:
		return d.node(fmt.Sprintf("%T", e))
	}
}
