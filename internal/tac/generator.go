package tac

import (
	"fmt"
	"sort"

	"compiscript/internal/ast"
	"compiscript/internal/diagnostics"
)

// Builtins is the fixed set of built-in callables (§4.6): they are never
// arity-checked against a registered signature. print/println/input accept
// any arity; str/int/float/bool/len take exactly one argument
// (lowerTypedBuiltin).
var Builtins = map[string]bool{
	"print": true, "println": true, "input": true,
	"str": true, "int": true, "float": true, "bool": true, "len": true,
}

// FuncInfo is one registered callable: a free function, or a method/
// constructor flattened to its Class_Method / Class_constructor name. Name
// is the registry key a call site looks up (a bare method name and its
// qualified Class_Method form both resolve to the same TargetLabel, the
// name actually emitted in BeginFunc/Call instructions).
type FuncInfo struct {
	Name        string
	TargetLabel string
	ParamCount  int
	ParamTypes  []*ast.TypeRef
	ReturnType  *ast.TypeRef
	IsMethod    bool
	ClassName   string
}

// FunctionRegistry is the pre-pass registry that lets later calls resolve
// both forward references and recursion (§4.7).
type FunctionRegistry struct {
	byName map[string]*FuncInfo
}

func NewFunctionRegistry() *FunctionRegistry {
	return &FunctionRegistry{byName: make(map[string]*FuncInfo)}
}

func (r *FunctionRegistry) Register(info *FuncInfo) { r.byName[info.Name] = info }

func (r *FunctionRegistry) Lookup(name string) (*FuncInfo, bool) {
	info, ok := r.byName[name]
	return info, ok
}

// ClassInfo is one registered class: its field layout and constructor
// presence, used by `new` lowering and property-type inference.
type ClassInfo struct {
	Name                   string
	Superclass             string
	Fields                 []ast.FieldDecl
	HasExplicitConstructor bool
}

// exprResult is what every ExprVisitor method actually returns, smuggled
// through the `any` Accept signature; g.expr unwraps it.
type exprResult struct {
	name string
	err  error
}

// Generator is the Integrated TAC Generator (§4.7): it owns the temp,
// address, and label managers, the function/class registries, the
// accumulated instruction stream, and the diagnostics bag, and dispatches
// AST nodes to itself via the ast.ExprVisitor/ast.StmtVisitor interfaces
// (one Visit method per node class, matching the source's dispatch-by-
// node-class-name strategy).
type Generator struct {
	Temps  *TempManager
	Addr   *AddressManager
	Labels *LabelManager
	Diags  *diagnostics.Bag

	Funcs   *FunctionRegistry
	Classes map[string]*ClassInfo

	Instrs []Instr

	currentFunc  string
	currentClass string // "" outside a method/constructor body
}

func NewGenerator() *Generator {
	addr := NewAddressManager()
	return &Generator{
		Temps:   NewTempManager(),
		Addr:    addr,
		Labels:  NewLabelManager(addr),
		Diags:   &diagnostics.Bag{},
		Funcs:   NewFunctionRegistry(),
		Classes: make(map[string]*ClassInfo),
	}
}

func (g *Generator) emit(i Instr) { g.Instrs = append(g.Instrs, i) }

func (g *Generator) emitLabel(name string) {
	g.Labels.MarkDefined(name)
	g.emit(Label{Name: name})
}

func (g *Generator) emitGoto(label string, at ast.SourceLocation) {
	g.Labels.MarkReferenced(label)
	g.emit(Goto{base: base{at: loc(at)}, Label: label})
}

// loc is a no-op conversion helper kept so call sites read
// `base{at: loc(e.Location())}` uniformly; ast.SourceLocation and
// SourceLoc are structurally identical but distinct types.
func loc(l ast.SourceLocation) SourceLoc { return SourceLoc{Line: l.Line, Column: l.Column} }

func (g *Generator) tacErr(message string, at ast.SourceLocation) error {
	d := diagnostics.NewTACError(message, at)
	g.Diags.Add(d)
	return d
}

// expr lowers e and returns the operand name holding its value.
func (g *Generator) expr(e ast.Expr) (string, error) {
	res, _ := e.Accept(g).(exprResult)
	return res.name, res.err
}

// stmt lowers s; any error is both returned and already recorded in Diags.
func (g *Generator) stmt(s ast.Stmt) error {
	res := s.Accept(g)
	if res == nil {
		return nil
	}
	err, _ := res.(error)
	return err
}

// GenerateProgram is the top-level entry point (§4.7): pre-pass registers
// every top-level function and class member, then a second pass emits
// code for each top-level statement in source order.
func (g *Generator) GenerateProgram(prog *ast.Program) ([]string, error) {
	if err := g.registerPass(prog); err != nil {
		return nil, err
	}
	for _, s := range prog.Stmts {
		if err := g.stmt(s); err != nil {
			return nil, err
		}
	}
	g.patchFrameSizes()
	return RenderProgram(g.Instrs), nil
}

// patchFrameSizes back-fills each BeginFunc's FrameSize once its function's
// activation record is complete (it is emitted with FrameSize 0, since the
// final local/temp count isn't known until the whole body has been lowered
// and ExitFunction runs). Without this, the textual form would lose frame
// size information that the MIPS generator's textual-ingestion path (§6)
// needs, even though it round-trips fine as-is (R1 only requires
// parse(render(x)) == x, not that x already carries every downstream
// consumer's derived data).
func (g *Generator) patchFrameSizes() {
	for i, ins := range g.Instrs {
		bf, ok := ins.(BeginFunc)
		if !ok {
			continue
		}
		if rec, ok := g.Addr.CompletedRecord(bf.Name); ok {
			bf.FrameSize = rec.FrameSize
			g.Instrs[i] = bf
		}
	}
}

// registerPass walks top-level declarations, registering every function
// and class (and its methods/constructors, under both the qualified
// Class_method name and the bare method name so unqualified in-class calls
// resolve) before any code is emitted, enabling forward references and
// recursion.
func (g *Generator) registerPass(prog *ast.Program) error {
	for _, s := range prog.Stmts {
		switch n := s.(type) {
		case *ast.FunctionDecl:
			g.registerFunction(n, "", false)
		case *ast.ClassDecl:
			if err := g.registerClass(n); err != nil {
				return err
			}
		}
	}
	return nil
}

// ValidateTAC checks the properties the §4.7 validator is responsible for:
// unresolved labels, unmatched BeginFunc/EndFunc, and (redundantly, as a
// defense-in-depth check) unregistered callees referenced by Call
// instructions. Returns human-readable warning strings, not diagnostics,
// since validation runs after generation has already succeeded or failed.
func (g *Generator) ValidateTAC() []string {
	var warnings []string

	unresolved := g.Labels.UnresolvedLabels()
	sort.Strings(unresolved)
	for _, l := range unresolved {
		warnings = append(warnings, fmt.Sprintf("unresolved label: %s", l))
	}

	depth := 0
	var openFunc string
	for _, ins := range g.Instrs {
		switch n := ins.(type) {
		case BeginFunc:
			if depth > 0 {
				warnings = append(warnings, fmt.Sprintf("BeginFunc %s nested inside %s without matching EndFunc", n.Name, openFunc))
			}
			depth++
			openFunc = n.Name
		case EndFunc:
			if depth == 0 {
				warnings = append(warnings, fmt.Sprintf("EndFunc %s with no matching BeginFunc", n.Name))
			} else {
				depth--
			}
		case Call:
			if !Builtins[n.Function] {
				if _, ok := g.Funcs.Lookup(n.Function); !ok {
					warnings = append(warnings, fmt.Sprintf("call to unregistered function: %s", n.Function))
				}
			}
		}
	}
	if depth != 0 {
		warnings = append(warnings, fmt.Sprintf("%d BeginFunc instruction(s) left unclosed", depth))
	}
	return warnings
}

// Statistics is the §4.7 get_complete_statistics() result.
type Statistics struct {
	InstructionCount     int
	TemporariesUsed      int
	FunctionsRegistered  int
	LabelsDefined        int
	LabelsReferenced     int
	UnresolvedLabelCount int
}

func (g *Generator) GetCompleteStatistics() Statistics {
	return Statistics{
		InstructionCount:     len(g.Instrs),
		TemporariesUsed:      g.Temps.counter,
		FunctionsRegistered:  len(g.Funcs.byName),
		LabelsDefined:        len(g.Labels.defined),
		LabelsReferenced:     len(g.Labels.referenced),
		UnresolvedLabelCount: len(g.Labels.UnresolvedLabels()),
	}
}

// ProgramInfo bundles the exported artifacts the MIPS generator (§4.15)
// needs to turn this TAC stream into assembly: the instruction stream
// itself, where every global variable and every function's activation
// record ended up, and the registry resolving call targets to their
// qualified labels.
type ProgramInfo struct {
	Instructions []Instr
	Globals      map[string]Location
	Frames       map[string]*ActivationRecord
	Funcs        *FunctionRegistry
}

// ProgramInfo snapshots the generator's state for MIPS consumption. Call
// after GenerateProgram returns successfully.
func (g *Generator) ProgramInfo() ProgramInfo {
	return ProgramInfo{
		Instructions: g.Instrs,
		Globals:      g.Addr.Globals(),
		Frames:       g.Addr.CompletedRecords(),
		Funcs:        g.Funcs,
	}
}

// OptimizeTAC applies the one optimization the source's IR-level optimizer
// performs: deduplicating adjacent identical Comment instructions. Peephole
// optimization proper happens later, on MIPS nodes (§4.14).
func (g *Generator) OptimizeTAC() int {
	removed := 0
	out := g.Instrs[:0:0]
	var prevComment string
	havePrev := false
	for _, ins := range g.Instrs {
		if c, ok := ins.(Comment); ok {
			if havePrev && c.Text == prevComment {
				removed++
				continue
			}
			prevComment = c.Text
			havePrev = true
		} else {
			havePrev = false
		}
		out = append(out, ins)
	}
	g.Instrs = out
	return removed
}
