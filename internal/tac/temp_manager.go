package tac

import (
	"fmt"
	"strconv"
	"strings"
)

// TempManager issues and recycles temporary names (§4.1). Temporaries
// created within a scope are returned to the free list when that scope
// exits; temporaries from an enclosing scope are left active.
type TempManager struct {
	counter  int
	free     []string
	active   map[string]bool
	scopes   [][]string // one entry per enter_scope call: temps acquired since
}

func NewTempManager() *TempManager {
	return &TempManager{active: make(map[string]bool)}
}

// NewTemp returns a temporary name, preferring the free list over minting a
// new counter value.
func (m *TempManager) NewTemp() string {
	var name string
	if n := len(m.free); n > 0 {
		name = m.free[n-1]
		m.free = m.free[:n-1]
	} else {
		name = fmt.Sprintf("t%d", m.counter)
		m.counter++
	}
	m.active[name] = true
	if len(m.scopes) > 0 {
		top := len(m.scopes) - 1
		m.scopes[top] = append(m.scopes[top], name)
	}
	return name
}

// Release returns a temporary to the free list immediately, without waiting
// for its enclosing scope to exit.
func (m *TempManager) Release(name string) {
	if !m.active[name] {
		return
	}
	delete(m.active, name)
	m.free = append(m.free, name)
}

func (m *TempManager) EnterScope() {
	m.scopes = append(m.scopes, nil)
}

// ExitScope moves every temporary acquired since the matching EnterScope to
// the free list. Calling it with no scope open is a no-op.
func (m *TempManager) ExitScope() {
	if len(m.scopes) == 0 {
		return
	}
	top := len(m.scopes) - 1
	acquired := m.scopes[top]
	m.scopes = m.scopes[:top]
	for _, name := range acquired {
		m.Release(name)
	}
}

// IsTemporary tests the t<digits> naming pattern.
func IsTemporary(name string) bool {
	if !strings.HasPrefix(name, "t") || len(name) < 2 {
		return false
	}
	_, err := strconv.Atoi(name[1:])
	return err == nil
}

// Reset clears all manager state, as if newly constructed.
func (m *TempManager) Reset() {
	m.counter = 0
	m.free = nil
	m.active = make(map[string]bool)
	m.scopes = nil
}
