package mips

import (
	"fmt"

	"compiscript/internal/tac"
)

// Generator is the Integrated MIPS Generator (§4.15): it builds the symbol
// table, class layout table, and data section manager from a TAC program
// (however it was obtained - a live tac.Generator's Instrs, or a
// tac.ParseProgram result read back from output.tac), translates every
// function body and the top-level statement sequence (wrapped as `main`),
// links in the runtime library, and assembles the final `.data`/`.text`
// output, running the peephole optimizer once over the whole result.
type Generator struct {
	Instrs  []tac.Instr
	Symbols *SymbolTable
	Data    *DataSectionManager
	Classes *ClassTable
}

// NewGenerator builds a generator over a TAC instruction stream and its
// class declarations (pass tacGen.Classes from the generator that produced
// instrs, or an equivalent table reconstructed for the textual-ingestion
// path - class field layout, unlike variable storage, is not recoverable
// from TAC text alone, so callers on that path must supply it).
func NewGenerator(instrs []tac.Instr, classes map[string]*tac.ClassInfo) *Generator {
	data := NewDataSectionManager()
	RuntimeStrings(data)
	return &Generator{
		Instrs:  instrs,
		Symbols: BuildSymbolTable(instrs),
		Data:    data,
		Classes: BuildClassTable(classes),
	}
}

// Generate runs the full pipeline and returns the final, peephole-optimized
// node stream ready for Render/RenderProgram.
func (g *Generator) Generate() ([]Node, error) {
	textFuncs, topLevel, err := g.translateAll()
	if err != nil {
		return nil, err
	}

	var program []Node
	program = append(program, g.Data.Render()...)
	program = append(program, Directive{Name: ".text"})
	program = append(program, Directive{Name: ".globl", Operands: []string{"main"}})
	program = append(program, g.mainEntry(topLevel)...)
	program = append(program, textFuncs...)
	program = append(program, RuntimeLibrary()...)

	optimized, _ := Peephole(program)
	return optimized, nil
}

// mainEntry wraps the top-level statement translation as the program's
// `main` procedure: no parameters, a conventional prologue (so top-level
// temporaries get real frame slots just like any function body), and a
// program-exit syscall in place of an epilogue once the body completes.
func (g *Generator) mainEntry(body []Node) []Node {
	frame := g.Symbols.Frames[topLevelFrame]
	layout := BuildFrameLayout("main", 0, len(frame.LocalOffsets), 0, nil)
	var out []Node
	out = append(out, Prologue(layout)...)
	out = append(out, body...)
	out = append(out, InstC("program exit", "li", "$v0", "10"), Inst("syscall"))
	return out
}

// translateAll walks the instruction stream once, splitting it into the
// top-level span and one span per function, translating each through a
// fresh FunctionTranslator.
func (g *Generator) translateAll() (functions []Node, topLevel []Node, err error) {
	var current *FunctionTranslator
	var currentFrame *FrameInfo
	topFrame := g.Symbols.Frames[topLevelFrame]
	topTranslator := newFunctionTranslator(g, topFrame)

	for _, ins := range g.Instrs {
		switch n := ins.(type) {
		case tac.BeginFunc:
			currentFrame = g.Symbols.Frames[n.Name]
			current = newFunctionTranslator(g, currentFrame)
		case tac.EndFunc:
			layout := BuildFrameLayout(n.Name, len(currentFrame.ParamOffsets), len(currentFrame.LocalOffsets), current.addr.SpillAreaSize(), savedRegNames(current.usedRegs))
			functions = append(functions, Prologue(layout)...)
			functions = append(functions, current.out...)
			functions = append(functions, Label{Name: current.epilogueLabel()})
			spills := current.alloc.SpillAll(nil)
			for _, s := range spills {
				functions = append(functions, current.renderSpill(s)...)
			}
			functions = append(functions, Epilogue(layout)...)
			current = nil
			currentFrame = nil
		default:
			if current != nil {
				if err := current.Translate(ins); err != nil {
					return nil, nil, fmt.Errorf("mips: function %s: %w", currentFrame.Name, err)
				}
			} else {
				if err := topTranslator.Translate(ins); err != nil {
					return nil, nil, fmt.Errorf("mips: top-level: %w", err)
				}
			}
		}
	}
	return functions, topTranslator.out, nil
}

func savedRegNames(used map[string]bool) []string {
	var out []string
	for _, r := range SavedRegisters {
		if used[r] {
			out = append(out, r)
		}
	}
	return out
}
