package frontend

import (
	"fmt"

	"compiscript/internal/ast"
)

// Parser is a standard recursive-descent, precedence-climbing parser over
// the token stream Lexer produces. It builds internal/ast nodes directly
// and never resolves a single type: every ExprBase.ResolvedType is left
// nil, the documented job of the external semantic analyzer this repo does
// not implement (§1, §3's "AST contract package shape").
type Parser struct {
	tokens []Token
	pos    int
}

func NewParser(tokens []Token) *Parser {
	return &Parser{tokens: tokens}
}

// Parse lexes and parses source in one call, returning a *ast.Program.
func Parse(source string) (*ast.Program, error) {
	toks, err := NewLexer(source).ScanAll()
	if err != nil {
		return nil, err
	}
	return NewParser(toks).ParseProgram()
}

func (p *Parser) ParseProgram() (*ast.Program, error) {
	prog := &ast.Program{}
	for !p.check(TokEOF) {
		s, err := p.declaration()
		if err != nil {
			return nil, err
		}
		prog.Stmts = append(prog.Stmts, s)
	}
	return prog, nil
}

// ---------------------------------------------------------------------
// Statements
// ---------------------------------------------------------------------

func (p *Parser) declaration() (ast.Stmt, error) {
	switch {
	case p.check(TokVar), p.check(TokConst):
		return p.varDecl()
	case p.check(TokFunction):
		return p.functionDecl()
	case p.check(TokClass):
		return p.classDecl()
	default:
		return p.statement()
	}
}

func (p *Parser) varDecl() (ast.Stmt, error) {
	isConst := p.check(TokConst)
	tok := p.advance()
	name, err := p.expectType(TokIdent, "variable name")
	if err != nil {
		return nil, err
	}
	var declaredType *ast.TypeRef
	if p.match(TokColon) {
		declaredType, err = p.typeRef()
		if err != nil {
			return nil, err
		}
	}
	var init ast.Expr
	if p.match(TokAssign) {
		init, err = p.expression()
		if err != nil {
			return nil, err
		}
	}
	if _, err := p.expectType(TokSemi, "';'"); err != nil {
		return nil, err
	}
	return &ast.VarDecl{
		StmtBase:     ast.StmtBase{Pos: tok.Loc()},
		Name:         name.Lexeme,
		DeclaredType: declaredType,
		Const:        isConst,
		Init:         init,
	}, nil
}

func (p *Parser) typeRef() (*ast.TypeRef, error) {
	tok := p.advance()
	var base string
	switch tok.Type {
	case TokTypeInteger:
		base = ast.TypeInteger
	case TokTypeFloat:
		base = ast.TypeFloat
	case TokTypeString:
		base = ast.TypeString
	case TokTypeBoolean:
		base = ast.TypeBoolean
	case TokTypeVoid:
		base = ast.TypeVoid
	case TokIdent:
		base = tok.Lexeme
	default:
		return nil, p.errf(tok, "expected type name, got %s", tok.Type)
	}
	dims := 0
	for p.check(TokLBracket) {
		p.advance()
		if _, err := p.expectType(TokRBracket, "']'"); err != nil {
			return nil, err
		}
		dims++
	}
	return &ast.TypeRef{Base: base, Dims: dims}, nil
}

func (p *Parser) params() ([]ast.Param, error) {
	if _, err := p.expectType(TokLParen, "'('"); err != nil {
		return nil, err
	}
	var out []ast.Param
	for !p.check(TokRParen) {
		name, err := p.expectType(TokIdent, "parameter name")
		if err != nil {
			return nil, err
		}
		var t *ast.TypeRef
		if p.match(TokColon) {
			t, err = p.typeRef()
			if err != nil {
				return nil, err
			}
		}
		out = append(out, ast.Param{Name: name.Lexeme, Type: t})
		if !p.match(TokComma) {
			break
		}
	}
	if _, err := p.expectType(TokRParen, "')'"); err != nil {
		return nil, err
	}
	return out, nil
}

func (p *Parser) functionDecl() (*ast.FunctionDecl, error) {
	tok := p.advance()
	name, err := p.expectType(TokIdent, "function name")
	if err != nil {
		return nil, err
	}
	ps, err := p.params()
	if err != nil {
		return nil, err
	}
	var ret *ast.TypeRef
	if p.match(TokColon) {
		ret, err = p.typeRef()
		if err != nil {
			return nil, err
		}
	}
	body, err := p.block()
	if err != nil {
		return nil, err
	}
	return &ast.FunctionDecl{
		StmtBase: ast.StmtBase{Pos: tok.Loc()}, Name: name.Lexeme,
		Params: ps, ReturnType: ret, Body: body,
	}, nil
}

func (p *Parser) classDecl() (ast.Stmt, error) {
	tok := p.advance()
	name, err := p.expectType(TokIdent, "class name")
	if err != nil {
		return nil, err
	}
	super := ""
	if p.match(TokExtends) {
		parent, err := p.expectType(TokIdent, "superclass name")
		if err != nil {
			return nil, err
		}
		super = parent.Lexeme
	}
	if _, err := p.expectType(TokLBrace, "'{'"); err != nil {
		return nil, err
	}
	decl := &ast.ClassDecl{StmtBase: ast.StmtBase{Pos: tok.Loc()}, Name: name.Lexeme, Superclass: super}
	for !p.check(TokRBrace) {
		switch {
		case p.check(TokVar), p.check(TokConst):
			isConst := p.check(TokConst)
			p.advance()
			fname, err := p.expectType(TokIdent, "field name")
			if err != nil {
				return nil, err
			}
			var ft *ast.TypeRef
			if p.match(TokColon) {
				ft, err = p.typeRef()
				if err != nil {
					return nil, err
				}
			}
			var init ast.Expr
			if p.match(TokAssign) {
				init, err = p.expression()
				if err != nil {
					return nil, err
				}
			}
			if _, err := p.expectType(TokSemi, "';'"); err != nil {
				return nil, err
			}
			decl.Fields = append(decl.Fields, ast.FieldDecl{Name: fname.Lexeme, Type: ft, Const: isConst, Init: init})
		case p.check(TokFunction):
			method, err := p.functionDecl()
			if err != nil {
				return nil, err
			}
			if method.Name == "constructor" {
				decl.Constructors = append(decl.Constructors, *method)
			} else {
				decl.Methods = append(decl.Methods, *method)
			}
		default:
			return nil, p.errf(p.peek(), "expected field or method declaration in class body, got %s", p.peek().Type)
		}
	}
	if _, err := p.expectType(TokRBrace, "'}'"); err != nil {
		return nil, err
	}
	return decl, nil
}

func (p *Parser) block() ([]ast.Stmt, error) {
	if _, err := p.expectType(TokLBrace, "'{'"); err != nil {
		return nil, err
	}
	var out []ast.Stmt
	for !p.check(TokRBrace) {
		s, err := p.declaration()
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if _, err := p.expectType(TokRBrace, "'}'"); err != nil {
		return nil, err
	}
	return out, nil
}

func (p *Parser) statement() (ast.Stmt, error) {
	switch {
	case p.check(TokLBrace):
		tok := p.peek()
		stmts, err := p.block()
		if err != nil {
			return nil, err
		}
		return &ast.BlockStmt{StmtBase: ast.StmtBase{Pos: tok.Loc()}, Stmts: stmts}, nil
	case p.check(TokIf):
		return p.ifStmt()
	case p.check(TokWhile):
		return p.whileStmt()
	case p.check(TokDo):
		return p.doWhileStmt()
	case p.check(TokFor):
		return p.forStmt()
	case p.check(TokForeach):
		return p.forEachStmt()
	case p.check(TokBreak):
		tok := p.advance()
		_, err := p.expectType(TokSemi, "';'")
		return &ast.BreakStmt{StmtBase: ast.StmtBase{Pos: tok.Loc()}}, err
	case p.check(TokContinue):
		tok := p.advance()
		_, err := p.expectType(TokSemi, "';'")
		return &ast.ContinueStmt{StmtBase: ast.StmtBase{Pos: tok.Loc()}}, err
	case p.check(TokReturn):
		return p.returnStmt()
	case p.check(TokTry):
		return p.tryStmt()
	case p.check(TokSwitch):
		return p.switchStmt()
	default:
		return p.exprOrAssignStmt()
	}
}

func (p *Parser) ifStmt() (ast.Stmt, error) {
	tok := p.advance()
	if _, err := p.expectType(TokLParen, "'('"); err != nil {
		return nil, err
	}
	cond, err := p.expression()
	if err != nil {
		return nil, err
	}
	if _, err := p.expectType(TokRParen, "')'"); err != nil {
		return nil, err
	}
	then, err := p.blockOrSingle()
	if err != nil {
		return nil, err
	}
	var elseBody []ast.Stmt
	if p.match(TokElse) {
		if p.check(TokIf) {
			nested, err := p.ifStmt()
			if err != nil {
				return nil, err
			}
			elseBody = []ast.Stmt{nested}
		} else {
			elseBody, err = p.blockOrSingle()
			if err != nil {
				return nil, err
			}
		}
	}
	return &ast.IfStmt{StmtBase: ast.StmtBase{Pos: tok.Loc()}, Cond: cond, Then: then, Else: elseBody}, nil
}

// blockOrSingle accepts either a `{ ... }` block or a single statement, so
// `if (x) y = 1;` parses without requiring braces.
func (p *Parser) blockOrSingle() ([]ast.Stmt, error) {
	if p.check(TokLBrace) {
		return p.block()
	}
	s, err := p.statement()
	if err != nil {
		return nil, err
	}
	return []ast.Stmt{s}, nil
}

func (p *Parser) whileStmt() (ast.Stmt, error) {
	tok := p.advance()
	if _, err := p.expectType(TokLParen, "'('"); err != nil {
		return nil, err
	}
	cond, err := p.expression()
	if err != nil {
		return nil, err
	}
	if _, err := p.expectType(TokRParen, "')'"); err != nil {
		return nil, err
	}
	body, err := p.blockOrSingle()
	if err != nil {
		return nil, err
	}
	return &ast.WhileStmt{StmtBase: ast.StmtBase{Pos: tok.Loc()}, Cond: cond, Body: body}, nil
}

func (p *Parser) doWhileStmt() (ast.Stmt, error) {
	tok := p.advance()
	body, err := p.blockOrSingle()
	if err != nil {
		return nil, err
	}
	if _, err := p.expectType(TokWhile, "'while'"); err != nil {
		return nil, err
	}
	if _, err := p.expectType(TokLParen, "'('"); err != nil {
		return nil, err
	}
	cond, err := p.expression()
	if err != nil {
		return nil, err
	}
	if _, err := p.expectType(TokRParen, "')'"); err != nil {
		return nil, err
	}
	if _, err := p.expectType(TokSemi, "';'"); err != nil {
		return nil, err
	}
	return &ast.DoWhileStmt{StmtBase: ast.StmtBase{Pos: tok.Loc()}, Body: body, Cond: cond}, nil
}

func (p *Parser) forStmt() (ast.Stmt, error) {
	tok := p.advance()
	if _, err := p.expectType(TokLParen, "'('"); err != nil {
		return nil, err
	}
	var init ast.Stmt
	var err error
	if !p.check(TokSemi) {
		if p.check(TokVar) || p.check(TokConst) {
			init, err = p.varDecl()
		} else {
			init, err = p.assignStmtNoSemi()
			if err == nil {
				_, err = p.expectType(TokSemi, "';'")
			}
		}
		if err != nil {
			return nil, err
		}
	} else {
		p.advance()
	}
	var cond ast.Expr
	if !p.check(TokSemi) {
		cond, err = p.expression()
		if err != nil {
			return nil, err
		}
	}
	if _, err := p.expectType(TokSemi, "';'"); err != nil {
		return nil, err
	}
	var update ast.Stmt
	if !p.check(TokRParen) {
		update, err = p.assignStmtNoSemi()
		if err != nil {
			return nil, err
		}
	}
	if _, err := p.expectType(TokRParen, "')'"); err != nil {
		return nil, err
	}
	body, err := p.blockOrSingle()
	if err != nil {
		return nil, err
	}
	return &ast.ForStmt{StmtBase: ast.StmtBase{Pos: tok.Loc()}, Init: init, Cond: cond, Update: update, Body: body}, nil
}

func (p *Parser) forEachStmt() (ast.Stmt, error) {
	tok := p.advance()
	if _, err := p.expectType(TokLParen, "'('"); err != nil {
		return nil, err
	}
	if p.check(TokVar) {
		p.advance()
	}
	name, err := p.expectType(TokIdent, "loop variable name")
	if err != nil {
		return nil, err
	}
	var varType *ast.TypeRef
	if p.match(TokColon) {
		varType, err = p.typeRef()
		if err != nil {
			return nil, err
		}
	}
	if _, err := p.expectType(TokIn, "'in'"); err != nil {
		return nil, err
	}
	iterable, err := p.expression()
	if err != nil {
		return nil, err
	}
	if _, err := p.expectType(TokRParen, "')'"); err != nil {
		return nil, err
	}
	body, err := p.blockOrSingle()
	if err != nil {
		return nil, err
	}
	return &ast.ForEachStmt{
		StmtBase: ast.StmtBase{Pos: tok.Loc()}, VarName: name.Lexeme,
		VarType: varType, Iterable: iterable, Body: body,
	}, nil
}

func (p *Parser) returnStmt() (ast.Stmt, error) {
	tok := p.advance()
	var value ast.Expr
	if !p.check(TokSemi) {
		v, err := p.expression()
		if err != nil {
			return nil, err
		}
		value = v
	}
	if _, err := p.expectType(TokSemi, "';'"); err != nil {
		return nil, err
	}
	return &ast.ReturnStmt{StmtBase: ast.StmtBase{Pos: tok.Loc()}, Value: value}, nil
}

func (p *Parser) tryStmt() (ast.Stmt, error) {
	tok := p.advance()
	tryBody, err := p.block()
	if err != nil {
		return nil, err
	}
	if _, err := p.expectType(TokCatch, "'catch'"); err != nil {
		return nil, err
	}
	if _, err := p.expectType(TokLParen, "'('"); err != nil {
		return nil, err
	}
	catchVar, err := p.expectType(TokIdent, "catch variable name")
	if err != nil {
		return nil, err
	}
	if p.match(TokColon) {
		if _, err := p.typeRef(); err != nil {
			return nil, err
		}
	}
	if _, err := p.expectType(TokRParen, "')'"); err != nil {
		return nil, err
	}
	catchBody, err := p.block()
	if err != nil {
		return nil, err
	}
	return &ast.TryStmt{
		StmtBase: ast.StmtBase{Pos: tok.Loc()}, Try: tryBody,
		CatchVar: catchVar.Lexeme, Catch: catchBody,
	}, nil
}

func (p *Parser) switchStmt() (ast.Stmt, error) {
	tok := p.advance()
	if _, err := p.expectType(TokLParen, "'('"); err != nil {
		return nil, err
	}
	scrutinee, err := p.expression()
	if err != nil {
		return nil, err
	}
	if _, err := p.expectType(TokRParen, "')'"); err != nil {
		return nil, err
	}
	if _, err := p.expectType(TokLBrace, "'{'"); err != nil {
		return nil, err
	}
	sw := &ast.SwitchStmt{StmtBase: ast.StmtBase{Pos: tok.Loc()}, Scrutinee: scrutinee}
	for !p.check(TokRBrace) {
		switch {
		case p.check(TokCase):
			p.advance()
			val, err := p.expression()
			if err != nil {
				return nil, err
			}
			if _, err := p.expectType(TokColon, "':'"); err != nil {
				return nil, err
			}
			body, err := p.caseBody()
			if err != nil {
				return nil, err
			}
			sw.Cases = append(sw.Cases, ast.SwitchCase{Value: val, Body: body})
		case p.check(TokDefault):
			p.advance()
			if _, err := p.expectType(TokColon, "':'"); err != nil {
				return nil, err
			}
			body, err := p.caseBody()
			if err != nil {
				return nil, err
			}
			sw.Default = body
		default:
			return nil, p.errf(p.peek(), "expected 'case' or 'default' in switch body, got %s", p.peek().Type)
		}
	}
	if _, err := p.expectType(TokRBrace, "'}'"); err != nil {
		return nil, err
	}
	return sw, nil
}

func (p *Parser) caseBody() ([]ast.Stmt, error) {
	var out []ast.Stmt
	for !p.check(TokCase) && !p.check(TokDefault) && !p.check(TokRBrace) {
		s, err := p.declaration()
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// exprOrAssignStmt parses an expression-statement, disambiguating a bare
// assignment (`target = value;`) from a general expression statement
// (`call(x);`) by parsing the left-hand expression first and checking for
// a following '='.
func (p *Parser) exprOrAssignStmt() (ast.Stmt, error) {
	tok := p.peek()
	expr, err := p.expression()
	if err != nil {
		return nil, err
	}
	if p.check(TokAssign) {
		target, err := exprToAssignTarget(expr)
		if err != nil {
			return nil, err
		}
		p.advance()
		value, err := p.expression()
		if err != nil {
			return nil, err
		}
		if _, err := p.expectType(TokSemi, "';'"); err != nil {
			return nil, err
		}
		return &ast.AssignStmt{StmtBase: ast.StmtBase{Pos: tok.Loc()}, Target: target, Value: value}, nil
	}
	if _, err := p.expectType(TokSemi, "';'"); err != nil {
		return nil, err
	}
	return &ast.ExprStmt{StmtBase: ast.StmtBase{Pos: tok.Loc()}, Expr: expr}, nil
}

// assignStmtNoSemi parses one assignment without consuming a trailing ';'
// for use inside a for-loop's init/update clauses.
func (p *Parser) assignStmtNoSemi() (ast.Stmt, error) {
	tok := p.peek()
	expr, err := p.expression()
	if err != nil {
		return nil, err
	}
	if !p.check(TokAssign) {
		return &ast.ExprStmt{StmtBase: ast.StmtBase{Pos: tok.Loc()}, Expr: expr}, nil
	}
	target, err := exprToAssignTarget(expr)
	if err != nil {
		return nil, err
	}
	p.advance()
	value, err := p.expression()
	if err != nil {
		return nil, err
	}
	return &ast.AssignStmt{StmtBase: ast.StmtBase{Pos: tok.Loc()}, Target: target, Value: value}, nil
}

func exprToAssignTarget(e ast.Expr) (ast.AssignTarget, error) {
	switch n := e.(type) {
	case *ast.Identifier:
		return ast.VarTarget{Name: n.Name}, nil
	case *ast.IndexExpr:
		return ast.IndexTarget{Object: n.Object, Index: n.Index}, nil
	case *ast.PropertyExpr:
		return ast.PropertyTarget{Object: n.Object, Property: n.Property}, nil
	default:
		return nil, fmt.Errorf("invalid assignment target at %s", e.Location())
	}
}

// ---------------------------------------------------------------------
// Expressions (precedence climbing, lowest to highest: ternary, ||, &&,
// equality, relational, additive, multiplicative, unary, call/postfix,
// primary)
// ---------------------------------------------------------------------

func (p *Parser) expression() (ast.Expr, error) { return p.ternary() }

func (p *Parser) ternary() (ast.Expr, error) {
	cond, err := p.or()
	if err != nil {
		return nil, err
	}
	if p.check(TokQuestion) {
		tok := p.advance()
		then, err := p.expression()
		if err != nil {
			return nil, err
		}
		if _, err := p.expectType(TokColon, "':'"); err != nil {
			return nil, err
		}
		els, err := p.expression()
		if err != nil {
			return nil, err
		}
		return &ast.TernaryExpr{ExprBase: ast.ExprBase{Pos: tok.Loc()}, Cond: cond, Then: then, Else: els}, nil
	}
	return cond, nil
}

func (p *Parser) or() (ast.Expr, error) {
	left, err := p.and()
	if err != nil {
		return nil, err
	}
	for p.check(TokOrOr) {
		tok := p.advance()
		right, err := p.and()
		if err != nil {
			return nil, err
		}
		left = &ast.LogicalExpr{ExprBase: ast.ExprBase{Pos: tok.Loc()}, Left: left, Right: right, Operator: "||"}
	}
	return left, nil
}

func (p *Parser) and() (ast.Expr, error) {
	left, err := p.equality()
	if err != nil {
		return nil, err
	}
	for p.check(TokAndAnd) {
		tok := p.advance()
		right, err := p.equality()
		if err != nil {
			return nil, err
		}
		left = &ast.LogicalExpr{ExprBase: ast.ExprBase{Pos: tok.Loc()}, Left: left, Right: right, Operator: "&&"}
	}
	return left, nil
}

func (p *Parser) equality() (ast.Expr, error) {
	return p.binaryLevel(p.relational, TokEq, TokNeq)
}

func (p *Parser) relational() (ast.Expr, error) {
	return p.binaryLevel(p.additive, TokLt, TokGt, TokLe, TokGe)
}

func (p *Parser) additive() (ast.Expr, error) {
	return p.binaryLevel(p.multiplicative, TokPlus, TokMinus)
}

func (p *Parser) multiplicative() (ast.Expr, error) {
	return p.binaryLevel(p.unary, TokStar, TokSlash, TokPercent)
}

func (p *Parser) binaryLevel(next func() (ast.Expr, error), ops ...TokenType) (ast.Expr, error) {
	left, err := next()
	if err != nil {
		return nil, err
	}
	for p.checkAny(ops...) {
		tok := p.advance()
		right, err := next()
		if err != nil {
			return nil, err
		}
		left = &ast.BinaryExpr{ExprBase: ast.ExprBase{Pos: tok.Loc()}, Left: left, Right: right, Operator: string(tok.Type)}
	}
	return left, nil
}

func (p *Parser) unary() (ast.Expr, error) {
	if p.checkAny(TokBang, TokMinus) {
		tok := p.advance()
		operand, err := p.unary()
		if err != nil {
			return nil, err
		}
		return &ast.UnaryExpr{ExprBase: ast.ExprBase{Pos: tok.Loc()}, Operator: string(tok.Type), Operand: operand}, nil
	}
	return p.postfix()
}

func (p *Parser) postfix() (ast.Expr, error) {
	expr, err := p.primary()
	if err != nil {
		return nil, err
	}
	for {
		switch {
		case p.check(TokLParen):
			tok := p.advance()
			args, err := p.argList()
			if err != nil {
				return nil, err
			}
			expr = &ast.CallExpr{ExprBase: ast.ExprBase{Pos: tok.Loc()}, Callee: expr, Args: args}
		case p.check(TokLBracket):
			tok := p.advance()
			idx, err := p.expression()
			if err != nil {
				return nil, err
			}
			if _, err := p.expectType(TokRBracket, "']'"); err != nil {
				return nil, err
			}
			expr = &ast.IndexExpr{ExprBase: ast.ExprBase{Pos: tok.Loc()}, Object: expr, Index: idx}
		case p.check(TokDot):
			tok := p.advance()
			name, err := p.expectType(TokIdent, "property name")
			if err != nil {
				return nil, err
			}
			expr = &ast.PropertyExpr{ExprBase: ast.ExprBase{Pos: tok.Loc()}, Object: expr, Property: name.Lexeme}
		default:
			return expr, nil
		}
	}
}

func (p *Parser) argList() ([]ast.Expr, error) {
	var out []ast.Expr
	for !p.check(TokRParen) {
		e, err := p.expression()
		if err != nil {
			return nil, err
		}
		out = append(out, e)
		if !p.match(TokComma) {
			break
		}
	}
	if _, err := p.expectType(TokRParen, "')'"); err != nil {
		return nil, err
	}
	return out, nil
}

func (p *Parser) primary() (ast.Expr, error) {
	tok := p.peek()
	switch tok.Type {
	case TokInt:
		p.advance()
		var v int64
		fmt.Sscanf(tok.Lexeme, "%d", &v)
		return &ast.IntLiteral{ExprBase: ast.ExprBase{Pos: tok.Loc()}, Value: v}, nil
	case TokFloat:
		p.advance()
		var v float64
		fmt.Sscanf(tok.Lexeme, "%g", &v)
		return &ast.FloatLiteral{ExprBase: ast.ExprBase{Pos: tok.Loc()}, Value: v}, nil
	case TokString:
		p.advance()
		return &ast.StringLiteral{ExprBase: ast.ExprBase{Pos: tok.Loc()}, Value: tok.Lexeme}, nil
	case TokTrue:
		p.advance()
		return &ast.BoolLiteral{ExprBase: ast.ExprBase{Pos: tok.Loc()}, Value: true}, nil
	case TokFalse:
		p.advance()
		return &ast.BoolLiteral{ExprBase: ast.ExprBase{Pos: tok.Loc()}, Value: false}, nil
	case TokNull:
		p.advance()
		return &ast.NullLiteral{ExprBase: ast.ExprBase{Pos: tok.Loc()}}, nil
	case TokThis:
		p.advance()
		return &ast.ThisExpr{ExprBase: ast.ExprBase{Pos: tok.Loc()}}, nil
	case TokIdent:
		p.advance()
		return &ast.Identifier{ExprBase: ast.ExprBase{Pos: tok.Loc()}, Name: tok.Lexeme}, nil
	case TokNew:
		p.advance()
		name, err := p.expectType(TokIdent, "class name")
		if err != nil {
			return nil, err
		}
		if _, err := p.expectType(TokLParen, "'('"); err != nil {
			return nil, err
		}
		args, err := p.argList()
		if err != nil {
			return nil, err
		}
		return &ast.NewExpr{ExprBase: ast.ExprBase{Pos: tok.Loc()}, ClassName: name.Lexeme, Args: args}, nil
	case TokLBracket:
		p.advance()
		var elems []ast.Expr
		for !p.check(TokRBracket) {
			e, err := p.expression()
			if err != nil {
				return nil, err
			}
			elems = append(elems, e)
			if !p.match(TokComma) {
				break
			}
		}
		if _, err := p.expectType(TokRBracket, "']'"); err != nil {
			return nil, err
		}
		return &ast.ArrayLiteral{ExprBase: ast.ExprBase{Pos: tok.Loc()}, Elements: elems}, nil
	case TokLParen:
		p.advance()
		e, err := p.expression()
		if err != nil {
			return nil, err
		}
		if _, err := p.expectType(TokRParen, "')'"); err != nil {
			return nil, err
		}
		return e, nil
	default:
		return nil, p.errf(tok, "unexpected token %s in expression", tok.Type)
	}
}

// ---------------------------------------------------------------------
// Token stream helpers
// ---------------------------------------------------------------------

func (p *Parser) peek() Token { return p.tokens[p.pos] }

func (p *Parser) advance() Token {
	tok := p.tokens[p.pos]
	if p.pos < len(p.tokens)-1 {
		p.pos++
	}
	return tok
}

func (p *Parser) check(t TokenType) bool { return p.peek().Type == t }

func (p *Parser) checkAny(ts ...TokenType) bool {
	for _, t := range ts {
		if p.check(t) {
			return true
		}
	}
	return false
}

func (p *Parser) match(t TokenType) bool {
	if p.check(t) {
		p.advance()
		return true
	}
	return false
}

func (p *Parser) expectType(t TokenType, what string) (Token, error) {
	if !p.check(t) {
		return Token{}, p.errf(p.peek(), "expected %s, got %s %q", what, p.peek().Type, p.peek().Lexeme)
	}
	return p.advance(), nil
}

func (p *Parser) errf(tok Token, format string, args ...any) error {
	return fmt.Errorf("parse error at %d:%d: %s", tok.Line, tok.Column, fmt.Sprintf(format, args...))
}
