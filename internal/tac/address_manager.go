package tac

import "fmt"

// Location is where a variable lives: either a global (named by label) or
// an offset from $fp within the current activation record.
type Location struct {
	IsGlobal bool
	Label    string // valid when IsGlobal
	Offset   int    // valid when !IsGlobal: signed offset from $fp
}

// ActivationRecord tracks one function's parameter and local layout as it
// is built up during TAC generation (§3's memory layout diagram). Params
// receive positive offsets starting at +8, stepping by 4 (the first two
// slots below +8 are reserved for the saved $ra/$fp pair per §4.11).
// Locals and compiler-introduced temporaries share one negative-offset
// numbering so a temp allocated after N explicit locals lands at
// -4*(N+1+k) for the k-th temp past them.
type ActivationRecord struct {
	FunctionName string
	ParamNames   []string
	ParamOffsets map[string]int
	LocalOffsets map[string]int
	FrameSize    int // filled in once known (post symbol annotation)

	nextParamOffset int
	localsAllocated int
}

func newActivationRecord(name string, params []string) *ActivationRecord {
	rec := &ActivationRecord{
		FunctionName:    name,
		ParamNames:      append([]string(nil), params...),
		ParamOffsets:    make(map[string]int),
		LocalOffsets:    make(map[string]int),
		nextParamOffset: 8,
	}
	for _, p := range params {
		rec.ParamOffsets[p] = rec.nextParamOffset
		rec.nextParamOffset += 4
	}
	return rec
}

// allocateLocal assigns the next negative local slot to name and returns
// its offset. Re-allocating an already-assigned name returns its existing
// offset rather than wasting a new slot.
func (rec *ActivationRecord) allocateLocal(name string) int {
	if off, ok := rec.LocalOffsets[name]; ok {
		return off
	}
	rec.localsAllocated++
	off := -4 * rec.localsAllocated
	rec.LocalOffsets[name] = off
	return off
}

// AddressManager owns the global variable map, the stack of activation
// records under construction, a map of completed records kept for post-hoc
// queries (e.g. by the MIPS generator), and the label counter (§4.2).
type AddressManager struct {
	globals      map[string]Location
	recordStack  []*ActivationRecord
	completed    map[string]*ActivationRecord
	labelCounter int
}

func NewAddressManager() *AddressManager {
	return &AddressManager{
		globals:   make(map[string]Location),
		completed: make(map[string]*ActivationRecord),
	}
}

// AllocateGlobal reserves label global_<name> for a top-level variable.
func (m *AddressManager) AllocateGlobal(name string) Location {
	if loc, ok := m.globals[name]; ok {
		return loc
	}
	loc := Location{IsGlobal: true, Label: "global_" + name}
	m.globals[name] = loc
	return loc
}

// EnterFunction pushes a new activation record for name, pre-registering
// its parameters at their fixed positive offsets.
func (m *AddressManager) EnterFunction(name string, params []string) *ActivationRecord {
	rec := newActivationRecord(name, params)
	m.recordStack = append(m.recordStack, rec)
	return rec
}

// CurrentRecord returns the innermost activation record, or nil at global
// scope.
func (m *AddressManager) CurrentRecord() *ActivationRecord {
	if len(m.recordStack) == 0 {
		return nil
	}
	return m.recordStack[len(m.recordStack)-1]
}

// AllocateLocal assigns a local-variable slot in the current record.
func (m *AddressManager) AllocateLocal(name string) int {
	rec := m.CurrentRecord()
	if rec == nil {
		panic("tac: AllocateLocal called outside a function")
	}
	return rec.allocateLocal(name)
}

// AllocateTemp allocates a slot for a compiler temporary in the current
// record, continuing the same local numbering used by AllocateLocal.
func (m *AddressManager) AllocateTemp(name string) int {
	return m.AllocateLocal(name)
}

// Lookup searches the current activation record (params, then locals),
// then falls back to globals.
func (m *AddressManager) Lookup(name string) (Location, bool) {
	if rec := m.CurrentRecord(); rec != nil {
		if off, ok := rec.ParamOffsets[name]; ok {
			return Location{Offset: off}, true
		}
		if off, ok := rec.LocalOffsets[name]; ok {
			return Location{Offset: off}, true
		}
	}
	if loc, ok := m.globals[name]; ok {
		return loc, true
	}
	return Location{}, false
}

// NewLabel mints a unique label, optionally prefixed (default "L").
func (m *AddressManager) NewLabel(prefix string) string {
	if prefix == "" {
		prefix = "L"
	}
	label := fmt.Sprintf("%s%d", prefix, m.labelCounter)
	m.labelCounter++
	return label
}

// ExitFunction pops the current activation record, computes its final
// frame size (8-byte aligned: saved $ra/$fp + locals/temps, rounded up),
// and archives it under completed for later queries.
func (m *AddressManager) ExitFunction() *ActivationRecord {
	n := len(m.recordStack)
	if n == 0 {
		panic("tac: ExitFunction called with no active function")
	}
	rec := m.recordStack[n-1]
	m.recordStack = m.recordStack[:n-1]
	rec.FrameSize = frameSize(rec.localsAllocated)
	m.completed[rec.FunctionName] = rec
	return rec
}

// CompletedRecord looks up an archived activation record by function name.
func (m *AddressManager) CompletedRecord(name string) (*ActivationRecord, bool) {
	rec, ok := m.completed[name]
	return rec, ok
}

// Globals returns a snapshot of every global variable's allocated location,
// keyed by source name - consulted by the MIPS generator to tell a global
// reference apart from a local/param/temp one when it only has the bare
// TAC instruction stream to work from.
func (m *AddressManager) Globals() map[string]Location {
	out := make(map[string]Location, len(m.globals))
	for k, v := range m.globals {
		out[k] = v
	}
	return out
}

// CompletedRecords returns every archived activation record, keyed by
// function name, for bulk consumption by the MIPS generator.
func (m *AddressManager) CompletedRecords() map[string]*ActivationRecord {
	out := make(map[string]*ActivationRecord, len(m.completed))
	for k, v := range m.completed {
		out[k] = v
	}
	return out
}

// frameSize computes the total bytes needed for $ra + $fp + n local/temp
// slots, rounded up to a multiple of 8 (P6). Callee-saved $s registers and
// spill/outgoing-arg space are added later by the MIPS activation-record
// builder (§4.11), which owns the final, register-allocation-aware size.
func frameSize(locals int) int {
	size := 8 + 4*locals // $ra + $fp, then locals
	if size%8 != 0 {
		size += 8 - size%8
	}
	return size
}
