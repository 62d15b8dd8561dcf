package mips

import "compiscript/internal/tac"

// FrameInfo is one function's MIPS-relevant shape, reconstructed directly
// from the TAC instruction stream rather than carried in as side-channel
// metadata - this is what lets the Integrated MIPS Generator (§4.15) treat
// its two ingestion paths (a live tac.Generator's Instrs, or a round-tripped
// tac.ParseProgram result read back from output.tac) identically: both are
// just a []tac.Instr, and a TAC program's global/local/param structure is
// fully recoverable from the stream's own BeginFunc/EndFunc nesting and
// assignment targets, exactly as tac.AddressManager built it in the first
// place (first-write-in-order gets the next slot).
type FrameInfo struct {
	Name         string
	ParamNames   []string
	ParamOffsets map[string]int // name -> +offset from $fp
	LocalOffsets map[string]int // name -> -offset from $fp (includes temporaries)
	DeclaredSize int            // BeginFunc's own FrameSize field, 0 if never patched
}

// SymbolTable is the MIPS generator's view of a whole program's variables:
// which bare names are globals (with their data-segment labels) and each
// function's own frame layout.
type SymbolTable struct {
	Globals map[string]string // name -> data label
	Frames  map[string]*FrameInfo
}

// BuildSymbolTable performs the two-pass reconstruction: first, every name
// ever assigned at top level (outside any BeginFunc..EndFunc span) is a
// global; second, within each function, every name that is neither a
// parameter nor already a global gets the next local/temp slot in the order
// it is first written, reproducing tac.AddressManager's own numbering.
// topLevelFrame is the synthetic activation record for code executed
// outside any declared function (top-level statements, effectively the
// program's entry point) - it owns no parameters, only the locals/temps
// top-level code introduces.
const topLevelFrame = "__top__"

func BuildSymbolTable(instrs []tac.Instr) *SymbolTable {
	st := &SymbolTable{Globals: map[string]string{}, Frames: map[string]*FrameInfo{}}

	depth := 0
	for _, ins := range instrs {
		switch ins.(type) {
		case tac.BeginFunc:
			depth++
		case tac.EndFunc:
			depth--
		default:
			if depth == 0 {
				for _, name := range writeTargets(ins) {
					if tac.IsTemporary(name) {
						continue
					}
					if _, ok := st.Globals[name]; !ok {
						st.Globals[name] = "global_" + name
					}
				}
			}
		}
	}

	current := &FrameInfo{Name: topLevelFrame, ParamOffsets: map[string]int{}, LocalOffsets: map[string]int{}}
	st.Frames[topLevelFrame] = current
	for _, ins := range instrs {
		switch n := ins.(type) {
		case tac.BeginFunc:
			current = &FrameInfo{
				Name:         n.Name,
				ParamNames:   append([]string(nil), n.ParamNames...),
				ParamOffsets: map[string]int{},
				LocalOffsets: map[string]int{},
				DeclaredSize: n.FrameSize,
			}
			off := 8
			for _, p := range n.ParamNames {
				current.ParamOffsets[p] = off
				off += wordSize
			}
			st.Frames[n.Name] = current
		case tac.EndFunc:
			current = st.Frames[topLevelFrame]
		default:
			for _, name := range writeTargets(ins) {
				if _, isParam := current.ParamOffsets[name]; isParam {
					continue
				}
				if _, isGlobal := st.Globals[name]; isGlobal {
					continue
				}
				if _, already := current.LocalOffsets[name]; already {
					continue
				}
				slot := len(current.LocalOffsets) + 1
				current.LocalOffsets[name] = -wordSize * slot
			}
		}
	}
	return st
}

// writeTargets reports the name(s) an instruction assigns to, used to
// discover a variable's first appearance.
func writeTargets(ins tac.Instr) []string {
	switch n := ins.(type) {
	case tac.Assign:
		return []string{n.Target}
	case tac.Call:
		if n.Target != "" {
			return []string{n.Target}
		}
	case tac.ArrayAccess:
		if !n.IsAssignment {
			return []string{n.Target}
		}
	case tac.PropertyAccess:
		if !n.IsAssignment {
			return []string{n.Target}
		}
	case tac.New:
		return []string{n.Target}
	case tac.AllocateArray:
		return []string{n.Target}
	}
	return nil
}

// Resolve classifies a bare TAC operand name against the current function's
// frame: a parameter offset, a local/temp offset, a global label, or (for a
// numeric/string/boolean literal or the special names true/false/null)
// not a variable at all. Inside a method or constructor, `this` is a
// parameter and resolves like any other.
func (st *SymbolTable) Resolve(funcName, name string) (loc MemoryLocation, isVariable bool) {
	if frame, ok := st.Frames[funcName]; ok {
		if off, ok := frame.ParamOffsets[name]; ok {
			return MemoryLocation{Offset: off}, true
		}
		if off, ok := frame.LocalOffsets[name]; ok {
			return MemoryLocation{Offset: off}, true
		}
	}
	if label, ok := st.Globals[name]; ok {
		return MemoryLocation{IsGlobal: true, Label: label}, true
	}
	return MemoryLocation{}, false
}
