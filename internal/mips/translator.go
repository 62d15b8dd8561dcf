package mips

import (
	"fmt"
	"strconv"
	"strings"

	"compiscript/internal/tac"
)

// FunctionTranslator lowers one function's TAC body (from its BeginFunc up
// to the matching EndFunc) to MIPS nodes. It owns a fresh register/address
// descriptor pair per function - register contents never survive a
// function boundary, matching the calling convention's save/restore
// contract instead of trying to carry allocator state across calls.
type FunctionTranslator struct {
	gen     *Generator
	frame   *FrameInfo
	regs    *RegisterDescriptor
	addr    *AddressDescriptor
	alloc           *Allocator
	usedRegs        map[string]bool // callee-saved $s registers actually touched, for the epilogue
	spillBase       int             // frame offset (in bytes, below the last local) where spill slot 0 begins
	pendingArgIndex int             // next outgoing-call argument position, reset after each Call
	scratchCounter  int             // source of fresh synthetic names for scratch()
	out             []Node
}

func newFunctionTranslator(gen *Generator, frame *FrameInfo) *FunctionTranslator {
	regs := NewRegisterDescriptor(AllocatableRegisters())
	addr := NewAddressDescriptor()
	for name, off := range frame.ParamOffsets {
		addr.BindMemory(name, MemoryLocation{Offset: off})
	}
	for name, off := range frame.LocalOffsets {
		addr.BindMemory(name, MemoryLocation{Offset: off})
	}
	for name, label := range gen.Symbols.Globals {
		addr.BindMemory(name, MemoryLocation{IsGlobal: true, Label: label})
	}
	return &FunctionTranslator{
		gen:       gen,
		frame:     frame,
		regs:      regs,
		addr:      addr,
		alloc:     NewAllocator(regs, addr),
		usedRegs:  map[string]bool{},
		spillBase: len(frame.LocalOffsets) * wordSize,
	}
}

func (ft *FunctionTranslator) emit(nodes ...Node) { ft.out = append(ft.out, nodes...) }

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

// loadOperand materializes operand's value into a scratch register,
// handling int/bool/null/string literals directly and routing variable
// names (including `this`) through the allocator (which may emit
// spill/load glue). A float literal is rejected with an error.
func (ft *FunctionTranslator) loadOperand(operand string, forbidden []string) (reg string, err error) {
	switch {
	case operand == "":
		return "", fmt.Errorf("mips: empty operand")
	case operand == "true":
		reg = ft.scratch(forbidden)
		ft.emit(Inst("li", reg, "1"))
		return reg, nil
	case operand == "false", operand == "null":
		reg = ft.scratch(forbidden)
		ft.emit(Inst("li", reg, "0"))
		return reg, nil
	case isIntLiteral(operand):
		reg = ft.scratch(forbidden)
		ft.emit(Inst("li", reg, operand))
		return reg, nil
	case isStringLiteral(operand):
		text := operand[1 : len(operand)-1]
		label := ft.gen.Data.InternString(text)
		reg = ft.scratch(forbidden)
		ft.emit(Inst("la", reg, label))
		return reg, nil
	case isFloatLiteral(operand):
		return "", fmt.Errorf("mips: float immediates must flow through $f registers, not loadOperand")
	default:
		return ft.loadVariable(operand, forbidden)
	}
}

// scratch hands out a register for a value with no named TAC variable
// behind it (an immediate, or an address computed mid-expression). It goes
// through the same allocator as a real variable - under a fresh synthetic
// name so a genuinely live occupant is still evicted properly (spilled if
// dirty) - but with forWrite/needsValue both false, so the synthetic
// binding itself is never marked dirty and therefore never produces a
// spill (and never reserves a spill slot) when it is later evicted in
// turn: the value is correct to simply discard once its one use has run.
func (ft *FunctionTranslator) scratch(forbidden []string) string {
	name := fmt.Sprintf("%%scratch%d", ft.scratchCounter)
	ft.scratchCounter++
	reg, spills, _, err := ft.alloc.GetRegister(name, nil, forbidden, false, false, ft.isDead(name))
	if err != nil {
		// Every allocatable register forbidden at once never happens in
		// practice (far fewer simultaneous live operands than registers);
		// fall back to the raw LRU search rather than propagating a panic
		// into instruction translation for an exceptional corner this
		// backend does not expect to hit.
		reg = ft.regs.LeastRecentlyUsed(ft.candidatesMinus(AllocatableRegisters(), forbidden))
		ft.regs.MarkUsed(reg)
		return reg
	}
	ft.emitSpillsAndLoads(spills, nil)
	return reg
}

func (ft *FunctionTranslator) candidatesMinus(pool, forbidden []string) []string {
	forbid := toSet(forbidden)
	var out []string
	for _, r := range pool {
		if !forbid[r] {
			out = append(out, r)
		}
	}
	return out
}

// loadVariable brings a named variable's current value into a register via
// the allocator, emitting any spill/load glue the allocator produces.
func (ft *FunctionTranslator) loadVariable(name string, forbidden []string) (string, error) {
	reg, spills, loads, err := ft.alloc.GetRegister(name, nil, forbidden, false, true, ft.isDead(name))
	if err != nil {
		return "", err
	}
	ft.emitSpillsAndLoads(spills, loads)
	ft.trackSaved(reg)
	return reg, nil
}

// storeTarget acquires a register to receive a write to name, without
// loading its old value.
func (ft *FunctionTranslator) storeTarget(name string, forbidden []string) (string, error) {
	reg, spills, _, err := ft.alloc.GetRegister(name, nil, forbidden, true, false, ft.isDead(name))
	if err != nil {
		return "", err
	}
	ft.emitSpillsAndLoads(spills, nil)
	ft.trackSaved(reg)
	return reg, nil
}

func (ft *FunctionTranslator) trackSaved(reg string) {
	for _, s := range SavedRegisters {
		if s == reg {
			ft.usedRegs[reg] = true
		}
	}
}

// isDead reports whether name has no further use - this backend has no
// liveness analysis, so it conservatively always answers false (never
// treats an occupant as free to discard silently); eviction still happens,
// it is just always routed through a real spill instead of a silent drop.
func (ft *FunctionTranslator) isDead(name string) func(string) bool {
	return func(string) bool { return false }
}

func (ft *FunctionTranslator) emitSpillsAndLoads(spills []SpillAction, loads []LoadAction) {
	for _, s := range spills {
		ft.emit(ft.renderSpill(s)...)
	}
	for _, l := range loads {
		ft.emit(ft.renderLoad(l)...)
	}
}

func (ft *FunctionTranslator) renderSpill(s SpillAction) []Node {
	if s.RequiresGlobalLabel() {
		return []Node{
			Inst("la", "$at", s.GlobalLabel),
			InstC("spill "+s.Variable, "sw", s.Register, "0($at)"),
		}
	}
	off := s.MemoryOffset
	if off == 0 {
		off = -(ft.spillBase + s.SpillOffset + wordSize)
	}
	return []Node{InstC("spill "+s.Variable, "sw", s.Register, fmt.Sprintf("%d(%s)", off, RegFP))}
}

func (ft *FunctionTranslator) renderLoad(l LoadAction) []Node {
	if l.RequiresGlobalLabel() {
		return []Node{
			Inst("la", "$at", l.GlobalLabel),
			InstC("load "+l.Variable, "lw", l.Register, "0($at)"),
		}
	}
	off := l.MemoryOffset
	if off == 0 {
		off = -(ft.spillBase + l.SpillOffset + wordSize)
	}
	return []Node{InstC("load "+l.Variable, "lw", l.Register, fmt.Sprintf("%d(%s)", off, RegFP))}
}
