package tac

import "compiscript/internal/ast"

// Function/Class TAC Generator (§4.6): function and method/constructor
// lowering, plus the registration helpers the two-pass strategy (§4.7)
// calls before any code is emitted.

// registerFunction records fn in the function registry. className == ""
// for a free top-level function. isConstructor distinguishes a
// Class_constructor entry (no bare alias: `new` resolution looks
// constructors up by class name directly, never by call-site name) from a
// Class_Method entry (registered under both its qualified and bare names).
func (g *Generator) registerFunction(fn *ast.FunctionDecl, className string, isConstructor bool) {
	target := fn.Name
	switch {
	case isConstructor:
		target = className + "_constructor"
	case className != "":
		target = className + "_" + fn.Name
	}

	paramTypes := make([]*ast.TypeRef, len(fn.Params))
	for i, p := range fn.Params {
		paramTypes[i] = p.Type
	}

	qualified := &FuncInfo{
		Name: target, TargetLabel: target,
		ParamCount: len(fn.Params), ParamTypes: paramTypes, ReturnType: fn.ReturnType,
		IsMethod: className != "", ClassName: className,
	}
	g.Funcs.Register(qualified)

	if className != "" && !isConstructor {
		bare := *qualified
		bare.Name = fn.Name
		g.Funcs.Register(&bare)
	}
}

// registerClass records a class's layout and registers its methods and
// constructor(s) in the same pre-pass that registers free functions.
func (g *Generator) registerClass(n *ast.ClassDecl) error {
	g.Classes[n.Name] = &ClassInfo{
		Name: n.Name, Superclass: n.Superclass, Fields: n.Fields,
		HasExplicitConstructor: len(n.Constructors) > 0,
	}
	for i := range n.Methods {
		g.registerFunction(&n.Methods[i], n.Name, false)
	}
	for i := range n.Constructors {
		g.registerFunction(&n.Constructors[i], n.Name, true)
	}
	return nil
}

func bodyEndsInReturn(body []ast.Stmt) bool {
	if len(body) == 0 {
		return false
	}
	_, ok := body[len(body)-1].(*ast.ReturnStmt)
	return ok
}

// VisitFunctionDecl lowers a free top-level function (§4.6).
func (g *Generator) VisitFunctionDecl(n *ast.FunctionDecl) any {
	return g.lowerFunction(n, "", false)
}

// VisitClassDecl lowers a class's methods and constructor(s) (§4.6),
// synthesizing a body-less default constructor when the source declares
// none.
func (g *Generator) VisitClassDecl(n *ast.ClassDecl) any {
	comment := "class " + n.Name
	if n.Superclass != "" {
		comment += " extends " + n.Superclass
	}
	g.emit(Comment{Text: comment})

	for i := range n.Methods {
		if err := g.lowerFunction(&n.Methods[i], n.Name, false); err != nil {
			return err
		}
	}

	if len(n.Constructors) > 0 {
		for i := range n.Constructors {
			if err := g.lowerFunction(&n.Constructors[i], n.Name, true); err != nil {
				return err
			}
		}
		return nil
	}
	return g.lowerDefaultConstructor(n.Name)
}

// lowerFunction emits BeginFunc/body/EndFunc for a free function, method,
// or constructor. Methods and constructors get an injected leading `this`
// parameter; a constructor that falls off the end returns `this` (§4.6),
// everything else synthesizes Return(default-for-type) or a bare Return().
func (g *Generator) lowerFunction(fn *ast.FunctionDecl, className string, isConstructor bool) error {
	fullName := fn.Name
	switch {
	case isConstructor:
		fullName = className + "_constructor"
	case className != "":
		fullName = className + "_" + fn.Name
	}

	paramNames := make([]string, 0, len(fn.Params)+1)
	if className != "" {
		paramNames = append(paramNames, "this")
	}
	for _, p := range fn.Params {
		paramNames = append(paramNames, p.Name)
	}

	prevFunc, prevClass := g.currentFunc, g.currentClass
	g.currentFunc = fullName
	if className != "" {
		g.currentClass = className
	}

	g.Addr.EnterFunction(fullName, paramNames)
	g.Temps.EnterScope()

	g.emit(Comment{Text: "function " + fullName})
	g.emit(BeginFunc{Name: fullName, ParamCount: len(paramNames), ParamNames: paramNames})

	var bodyErr error
	for _, s := range fn.Body {
		if err := g.stmt(s); err != nil {
			bodyErr = err
			break
		}
	}

	if bodyErr == nil && !bodyEndsInReturn(fn.Body) {
		switch {
		case isConstructor:
			g.emit(Return{Value: "this"})
		case fn.ReturnType == nil || fn.ReturnType.Base == ast.TypeVoid:
			g.emit(Return{})
		default:
			g.emit(Return{Value: defaultValueFor(fn.ReturnType)})
		}
	}

	g.emit(EndFunc{Name: fullName})

	g.Temps.ExitScope()
	g.Addr.ExitFunction()
	g.currentFunc, g.currentClass = prevFunc, prevClass

	return bodyErr
}

// lowerDefaultConstructor synthesizes Class_constructor for a class that
// declares no explicit constructor: a bare prologue/epilogue pair that
// returns `this`.
func (g *Generator) lowerDefaultConstructor(className string) error {
	fullName := className + "_constructor"
	prevFunc, prevClass := g.currentFunc, g.currentClass
	g.currentFunc, g.currentClass = fullName, className

	g.Addr.EnterFunction(fullName, []string{"this"})
	g.emit(Comment{Text: "synthesized default constructor for " + className})
	g.emit(BeginFunc{Name: fullName, ParamCount: 1, ParamNames: []string{"this"}})
	g.emit(Return{Value: "this"})
	g.emit(EndFunc{Name: fullName})
	g.Addr.ExitFunction()

	g.currentFunc, g.currentClass = prevFunc, prevClass
	return nil
}
