package mips

import "fmt"

// RegisterAllocationError reports that get_register could not find or free
// a usable register under the given constraints (every candidate pinned).
type RegisterAllocationError struct {
	Variable string
	Reason   string
}

func (e *RegisterAllocationError) Error() string {
	return fmt.Sprintf("mips: cannot allocate register for %q: %s", e.Variable, e.Reason)
}

// SpillAction says: before reusing a register, store its current dirty
// occupant back to memory.
type SpillAction struct {
	Variable     string
	Register     string
	MemoryOffset int // frame offset, valid when !IsGlobal
	SpillOffset  int // spill-area offset, used when the variable has no declared memory home
	IsGlobal     bool
	GlobalLabel  string
}

// RequiresFP reports whether this spill targets a frame-relative address
// (needs $fp in the emitted sw), as opposed to a global label.
func (a SpillAction) RequiresFP() bool { return !a.IsGlobal }

// RequiresGlobalLabel reports whether this spill targets the data segment.
func (a SpillAction) RequiresGlobalLabel() bool { return a.IsGlobal }

// LoadAction says: before a register can be reused for a new value, or
// before reading a variable not currently resident in any register, load
// it from memory into the chosen register.
type LoadAction struct {
	Variable    string
	Register    string
	MemoryOffset int
	SpillOffset  int
	IsGlobal     bool
	GlobalLabel  string
}

func (a LoadAction) RequiresFP() bool           { return !a.IsGlobal }
func (a LoadAction) RequiresGlobalLabel() bool  { return a.IsGlobal }

// Allocator implements the get_register algorithm (§4.10) over a
// RegisterDescriptor/AddressDescriptor pair.
type Allocator struct {
	Regs *RegisterDescriptor
	Addr *AddressDescriptor
	// NextUse, when set, reports the next textual-line number at which a
	// variable is used again (or a large sentinel if never), driving the
	// farthest-next-use tiebreak; nil means every candidate ties and LRU
	// alone decides.
	NextUse func(variable string) int
}

// NewAllocator wires a fresh allocator over the given descriptor pair.
func NewAllocator(regs *RegisterDescriptor, addr *AddressDescriptor) *Allocator {
	return &Allocator{Regs: regs, Addr: addr}
}

// GetRegister implements the four-step search (§4.10):
//  1. reuse a register the variable is already resident in, if not forbidden;
//  2. else build a candidate list (preferred set minus forbidden, falling
//     back to the whole allocatable pool minus forbidden);
//  3. first empty candidate wins; else a candidate whose only occupants are
//     already dead (per isDead); else the farthest-next-use candidate,
//     LRU-tiebroken;
//  4. every evicted occupant that is dirty is queued as a spill; if
//     needsValue and the variable itself isn't already resident anywhere,
//     a load is queued to bring its current value into the chosen
//     register; if forWrite, the variable is marked dirty there.
func (al *Allocator) GetRegister(variable string, preferred, forbidden []string, forWrite, needsValue bool, isDead func(string) bool) (reg string, spills []SpillAction, loads []LoadAction, err error) {
	forbid := toSet(forbidden)

	if cur, ok := al.Regs.WhichRegister(variable); ok && !forbid[cur] {
		al.Regs.MarkUsed(cur)
		return cur, nil, nil, nil
	}

	candidates := al.candidateRegisters(preferred, forbid)
	if len(candidates) == 0 {
		return "", nil, nil, &RegisterAllocationError{Variable: variable, Reason: "no unforbidden register available"}
	}

	chosen := al.pickCandidate(candidates, isDead)
	if chosen == "" {
		return "", nil, nil, &RegisterAllocationError{Variable: variable, Reason: "every candidate register is pinned"}
	}

	state := al.Regs.State(chosen)
	for occupant := range state.Variables {
		if occupant == variable {
			continue
		}
		if state.Dirty[occupant] {
			spills = append(spills, al.buildSpillAction(occupant, chosen))
		}
		al.Regs.Dissociate(chosen, occupant)
		al.Addr.UnbindRegister(occupant, chosen)
	}

	if needsValue {
		if _, resident := al.Regs.WhichRegister(variable); !resident {
			loads = append(loads, al.buildLoadAction(variable, chosen))
		}
	}

	al.Regs.Associate(chosen, variable)
	al.Addr.BindRegister(variable, chosen)
	if forWrite {
		al.Regs.MarkDirty(chosen, variable)
		al.Addr.MarkDirty(variable)
	}
	return chosen, spills, loads, nil
}

func (al *Allocator) candidateRegisters(preferred []string, forbid map[string]bool) []string {
	var out []string
	for _, r := range preferred {
		if !forbid[r] {
			out = append(out, r)
		}
	}
	if len(out) > 0 {
		return out
	}
	for _, r := range AllocatableRegisters() {
		if !forbid[r] {
			out = append(out, r)
		}
	}
	return out
}

func (al *Allocator) pickCandidate(candidates []string, isDead func(string) bool) string {
	for _, r := range candidates {
		if s := al.Regs.State(r); s != nil && s.isEmpty() && !s.Pinned {
			return r
		}
	}
	if isDead != nil {
		for _, r := range candidates {
			s := al.Regs.State(r)
			if s == nil || s.Pinned {
				continue
			}
			allDead := true
			for occupant := range s.Variables {
				if !isDead(occupant) {
					allDead = false
					break
				}
			}
			if allDead {
				return r
			}
		}
	}
	if al.NextUse != nil {
		best := ""
		bestDistance := -1
		for _, r := range candidates {
			s := al.Regs.State(r)
			if s == nil || s.Pinned {
				continue
			}
			nearest := maxInt
			for occupant := range s.Variables {
				if d := al.NextUse(occupant); d < nearest {
					nearest = d
				}
			}
			if nearest > bestDistance {
				bestDistance = nearest
				best = r
			}
		}
		if best != "" {
			return best
		}
	}
	return al.Regs.LeastRecentlyUsed(candidates)
}

const maxInt = int(^uint(0) >> 1)

func (al *Allocator) buildSpillAction(variable, reg string) SpillAction {
	loc, _ := al.Addr.Location(variable)
	if loc != nil && loc.Memory != nil && loc.Memory.IsGlobal {
		al.Addr.MarkClean(variable)
		return SpillAction{Variable: variable, Register: reg, IsGlobal: true, GlobalLabel: loc.Memory.Label}
	}
	if loc != nil && loc.Memory != nil {
		al.Addr.MarkClean(variable)
		return SpillAction{Variable: variable, Register: reg, MemoryOffset: loc.Memory.Offset}
	}
	slot := al.Addr.EnsureSpillSlot(variable)
	al.Addr.MarkClean(variable)
	return SpillAction{Variable: variable, Register: reg, SpillOffset: slot}
}

func (al *Allocator) buildLoadAction(variable, reg string) LoadAction {
	loc, _ := al.Addr.Location(variable)
	if loc != nil && loc.Memory != nil && loc.Memory.IsGlobal {
		return LoadAction{Variable: variable, Register: reg, IsGlobal: true, GlobalLabel: loc.Memory.Label}
	}
	if loc != nil && loc.Memory != nil {
		return LoadAction{Variable: variable, Register: reg, MemoryOffset: loc.Memory.Offset}
	}
	slot := al.Addr.EnsureSpillSlot(variable)
	return LoadAction{Variable: variable, Register: reg, SpillOffset: slot}
}

// SpillAll flushes every dirty register to memory, e.g. at function exit.
// Registers in keep are left untouched (typically the register about to
// carry a call's return value).
func (al *Allocator) SpillAll(keep map[string]bool) []SpillAction {
	return al.SpillRegisters(al.Regs.AllRegisters(), keep)
}

// SpillRegisters is SpillAll restricted to a subset of registers, used
// before a Call to flush only the caller-saved temp registers (§4.11) -
// callee-saved $s registers survive a call unmodified by convention, so
// there is no need to flush them just because a call is about to happen.
func (al *Allocator) SpillRegisters(names []string, keep map[string]bool) []SpillAction {
	var out []SpillAction
	for _, reg := range names {
		if keep[reg] {
			continue
		}
		state := al.Regs.State(reg)
		if state == nil {
			continue
		}
		occupants := make([]string, 0, len(state.Variables))
		for occupant := range state.Variables {
			occupants = append(occupants, occupant)
		}
		for _, occupant := range occupants {
			if state.Dirty[occupant] {
				out = append(out, al.buildSpillAction(occupant, reg))
			}
			al.Addr.UnbindRegister(occupant, reg)
			al.Regs.Dissociate(reg, occupant)
		}
	}
	return out
}

// ReleaseRegister unbinds variable from reg without spilling (used when the
// value is known dead, e.g. a temporary whose last use was the instruction
// that just consumed it).
func (al *Allocator) ReleaseRegister(variable, reg string) {
	al.Regs.Dissociate(reg, variable)
	al.Addr.UnbindRegister(variable, reg)
}

func toSet(xs []string) map[string]bool {
	m := make(map[string]bool, len(xs))
	for _, x := range xs {
		m[x] = true
	}
	return m
}
