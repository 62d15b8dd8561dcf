package mips

// MemoryLocation is a variable's home location outside of registers: either
// a global data-segment label, or a frame-relative offset from $fp.
type MemoryLocation struct {
	IsGlobal bool
	Label    string // valid when IsGlobal
	Offset   int    // valid when !IsGlobal (bytes from $fp; negative for locals/temps)
}

// RegisterState tracks one physical register's current occupants (§4.10):
// which variables currently live in it, which of those are dirty (modified
// since the last store to memory), whether it is pinned against eviction,
// and a logical last-used timestamp for LRU victim selection.
type RegisterState struct {
	Name      string
	Variables map[string]bool
	Dirty     map[string]bool
	Pinned    bool
	LastUsed  int
}

func newRegisterState(name string) *RegisterState {
	return &RegisterState{Name: name, Variables: map[string]bool{}, Dirty: map[string]bool{}}
}

func (s *RegisterState) isEmpty() bool { return len(s.Variables) == 0 }

// RegisterDescriptor is the allocator's full register file: one RegisterState
// per allocatable register, plus a monotonic logical clock driving LRU.
type RegisterDescriptor struct {
	regs  map[string]*RegisterState
	order []string
	clock int
}

// NewRegisterDescriptor builds a descriptor over the given allocatable
// register names, in allocation-preference order.
func NewRegisterDescriptor(names []string) *RegisterDescriptor {
	d := &RegisterDescriptor{regs: map[string]*RegisterState{}, order: append([]string(nil), names...)}
	for _, n := range names {
		d.regs[n] = newRegisterState(n)
	}
	return d
}

func (d *RegisterDescriptor) tick() int {
	d.clock++
	return d.clock
}

// State returns the live state for reg, or nil if reg is not managed by
// this descriptor (e.g. $zero, $sp, $fp, $ra, which the allocator never
// hands out).
func (d *RegisterDescriptor) State(reg string) *RegisterState { return d.regs[reg] }

// MarkUsed bumps reg's LRU timestamp without changing its occupants.
func (d *RegisterDescriptor) MarkUsed(reg string) {
	if s := d.regs[reg]; s != nil {
		s.LastUsed = d.tick()
	}
}

// Pin/Unpin exclude/include reg from LRU eviction (used while a register
// holds a value mid-instruction that must not be spilled out from under it).
func (d *RegisterDescriptor) Pin(reg string)   { setPin(d.regs[reg], true) }
func (d *RegisterDescriptor) Unpin(reg string) { setPin(d.regs[reg], false) }

func setPin(s *RegisterState, v bool) {
	if s != nil {
		s.Pinned = v
	}
}

// Associate records that variable now lives in reg.
func (d *RegisterDescriptor) Associate(reg, variable string) {
	s := d.regs[reg]
	if s == nil {
		return
	}
	s.Variables[variable] = true
	s.LastUsed = d.tick()
}

// Dissociate removes variable from reg's occupant set.
func (d *RegisterDescriptor) Dissociate(reg, variable string) {
	if s := d.regs[reg]; s != nil {
		delete(s.Variables, variable)
		delete(s.Dirty, variable)
	}
}

// MarkDirty/MarkClean flag whether variable's copy in reg differs from its
// memory home.
func (d *RegisterDescriptor) MarkDirty(reg, variable string) {
	if s := d.regs[reg]; s != nil {
		s.Dirty[variable] = true
	}
}

func (d *RegisterDescriptor) MarkClean(reg, variable string) {
	if s := d.regs[reg]; s != nil {
		delete(s.Dirty, variable)
	}
}

// IsDirty reports whether any occupant of reg is dirty.
func (d *RegisterDescriptor) IsDirty(reg string) bool {
	s := d.regs[reg]
	return s != nil && len(s.Dirty) > 0
}

// WhichRegister reports the register presently holding variable, if any,
// scanning in preference order for determinism.
func (d *RegisterDescriptor) WhichRegister(variable string) (string, bool) {
	for _, name := range d.order {
		if d.regs[name].Variables[variable] {
			return name, true
		}
	}
	return "", false
}

// LeastRecentlyUsed picks the lowest-LastUsed, unpinned register among
// candidates, breaking ties by descriptor order. Returns "" if every
// candidate is pinned.
func (d *RegisterDescriptor) LeastRecentlyUsed(candidates []string) string {
	best := ""
	bestTime := 0
	for _, name := range candidates {
		s := d.regs[name]
		if s == nil || s.Pinned {
			continue
		}
		if best == "" || s.LastUsed < bestTime {
			best = name
			bestTime = s.LastUsed
		}
	}
	return best
}

// AllRegisters returns the managed register names in preference order.
func (d *RegisterDescriptor) AllRegisters() []string { return append([]string(nil), d.order...) }

// VariableLocation is one variable's complete location bookkeeping: the set
// of registers currently holding a copy, its memory home (if assigned), its
// reserved spill-area slot (if one was ever needed), and whether the
// register copies are ahead of memory.
type VariableLocation struct {
	Registers map[string]bool
	Memory    *MemoryLocation
	SpillSlot int // -1 until EnsureSpillSlot reserves one
	Dirty     bool
}

func newVariableLocation() *VariableLocation {
	return &VariableLocation{Registers: map[string]bool{}, SpillSlot: -1}
}

// AddressDescriptor is the per-variable counterpart to RegisterDescriptor
// (§4.10): where does this variable currently live, across zero or more
// registers and an optional memory home.
type AddressDescriptor struct {
	vars          map[string]*VariableLocation
	spillAreaSize int
}

// NewAddressDescriptor builds an empty descriptor.
func NewAddressDescriptor() *AddressDescriptor {
	return &AddressDescriptor{vars: map[string]*VariableLocation{}}
}

func (a *AddressDescriptor) entry(variable string) *VariableLocation {
	v, ok := a.vars[variable]
	if !ok {
		v = newVariableLocation()
		a.vars[variable] = v
	}
	return v
}

// BindMemory records variable's permanent memory home (a global label or a
// frame offset).
func (a *AddressDescriptor) BindMemory(variable string, mem MemoryLocation) {
	v := a.entry(variable)
	m := mem
	v.Memory = &m
}

// BindRegister records that variable now also lives in reg.
func (a *AddressDescriptor) BindRegister(variable, reg string) {
	a.entry(variable).Registers[reg] = true
}

// UnbindRegister removes reg from variable's register set.
func (a *AddressDescriptor) UnbindRegister(variable, reg string) {
	if v, ok := a.vars[variable]; ok {
		delete(v.Registers, reg)
	}
}

// ForgetRegister removes reg from every tracked variable's register set -
// used when a register is about to be reassigned to a different variable
// entirely (eviction), as opposed to the owning variable simply losing one
// of several copies.
func (a *AddressDescriptor) ForgetRegister(reg string) {
	for _, v := range a.vars {
		delete(v.Registers, reg)
	}
}

// MarkDirty/MarkClean flag whether variable's register copies are ahead of
// its memory home.
func (a *AddressDescriptor) MarkDirty(variable string) { a.entry(variable).Dirty = true }
func (a *AddressDescriptor) MarkClean(variable string) {
	if v, ok := a.vars[variable]; ok {
		v.Dirty = false
	}
}

// Location returns variable's current bookkeeping, if it has ever been
// touched by the allocator.
func (a *AddressDescriptor) Location(variable string) (*VariableLocation, bool) {
	v, ok := a.vars[variable]
	return v, ok
}

// EnsureSpillSlot lazily reserves a word-sized slot in the function's spill
// area for variable and returns its offset (0, 4, 8, ... growing downward
// from the frame's spill base), reserving on first use only.
func (a *AddressDescriptor) EnsureSpillSlot(variable string) int {
	v := a.entry(variable)
	if v.SpillSlot >= 0 {
		return v.SpillSlot
	}
	v.SpillSlot = a.spillAreaSize
	a.spillAreaSize += wordSize
	return v.SpillSlot
}

// SpillAreaSize reports the total bytes reserved across all spill slots so
// far, for frame-size computation.
func (a *AddressDescriptor) SpillAreaSize() int { return a.spillAreaSize }
