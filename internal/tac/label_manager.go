package tac

import "fmt"

// loopFrame is one entry in the label manager's nesting context stack. A
// switch frame carries no continue label (ContinueLabel == ""); continue
// lookups skip such frames.
type loopFrame struct {
	isSwitch       bool
	breakLabel     string
	continueLabel  string
}

// LabelManager mints unique labels (delegating to the address manager's
// counter), tracks which names have been defined versus merely referenced,
// and maintains the break/continue context stack used by break/continue
// statements (§4.3).
type LabelManager struct {
	addr      *AddressManager
	defined   map[string]bool
	referenced map[string]bool
	stack     []loopFrame
}

func NewLabelManager(addr *AddressManager) *LabelManager {
	return &LabelManager{
		addr:       addr,
		defined:    make(map[string]bool),
		referenced: make(map[string]bool),
	}
}

// NewLabel mints a fresh unique label via the address manager.
func (m *LabelManager) NewLabel(prefix string) string {
	return m.addr.NewLabel(prefix)
}

// MarkDefined records that name has been emitted as a Label instruction.
func (m *LabelManager) MarkDefined(name string) { m.defined[name] = true }

// MarkReferenced records that name has been used as a Goto/IfGoto target.
func (m *LabelManager) MarkReferenced(name string) { m.referenced[name] = true }

// PushLoop opens a loop context with both a break and continue target.
func (m *LabelManager) PushLoop(breakLabel, continueLabel string) {
	m.stack = append(m.stack, loopFrame{breakLabel: breakLabel, continueLabel: continueLabel})
}

// PopLoop closes the innermost context, which must be a loop frame.
func (m *LabelManager) PopLoop() error {
	return m.pop(false)
}

// PushSwitch opens a switch context with only a break target: continue
// inside a switch passes through to an enclosing loop, so this frame is
// skipped by CurrentContinueLabel.
func (m *LabelManager) PushSwitch(breakLabel string) {
	m.stack = append(m.stack, loopFrame{isSwitch: true, breakLabel: breakLabel})
}

// PopSwitch closes the innermost context, which must be a switch frame.
func (m *LabelManager) PopSwitch() error {
	return m.pop(true)
}

func (m *LabelManager) pop(wantSwitch bool) error {
	n := len(m.stack)
	if n == 0 {
		return fmt.Errorf("tac: label manager: pop on empty context stack")
	}
	top := m.stack[n-1]
	if top.isSwitch != wantSwitch {
		kind := "loop"
		if wantSwitch {
			kind = "switch"
		}
		return fmt.Errorf("tac: label manager: expected to pop a %s frame but found mismatched nesting", kind)
	}
	m.stack = m.stack[:n-1]
	return nil
}

// CurrentBreakLabel returns the break target of the innermost context
// (loop or switch), or "" if none is open.
func (m *LabelManager) CurrentBreakLabel() string {
	if len(m.stack) == 0 {
		return ""
	}
	return m.stack[len(m.stack)-1].breakLabel
}

// CurrentContinueLabel walks outward from the innermost frame, skipping
// switch frames, and returns the nearest loop's continue target.
func (m *LabelManager) CurrentContinueLabel() string {
	for i := len(m.stack) - 1; i >= 0; i-- {
		if !m.stack[i].isSwitch {
			return m.stack[i].continueLabel
		}
	}
	return ""
}

// UnresolvedLabels returns every name that was referenced but never
// defined, in first-referenced order is not preserved (map iteration);
// callers that need determinism should sort the result.
func (m *LabelManager) UnresolvedLabels() []string {
	var out []string
	for name := range m.referenced {
		if !m.defined[name] {
			out = append(out, name)
		}
	}
	return out
}
