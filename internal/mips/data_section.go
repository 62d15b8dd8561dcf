package mips

import (
	"fmt"
)

// DataSectionManager owns the `.data` segment (§4.12): global variable
// slots, a deduplicated string-literal pool (so two calls to
// println("hi") share one .asciiz), and a deduplicated float-literal pool.
type DataSectionManager struct {
	globals      map[string]int // label -> size in bytes
	globalOrder  []string
	strings      map[string]string // literal text -> label
	stringOrder  []string
	nextStringID int
	floats       map[string]string // literal text -> label
	floatOrder   []string
	nextFloatID  int
}

// NewDataSectionManager builds an empty manager.
func NewDataSectionManager() *DataSectionManager {
	return &DataSectionManager{
		globals: map[string]int{},
		strings: map[string]string{},
		floats:  map[string]string{},
	}
}

// InternFloat returns the data-segment label for a float literal's `.float`
// entry, interning by exact source text.
func (d *DataSectionManager) InternFloat(text string) string {
	if label, ok := d.floats[text]; ok {
		return label
	}
	label := fmt.Sprintf("flt_%d", d.nextFloatID)
	d.nextFloatID++
	d.floats[text] = label
	d.floatOrder = append(d.floatOrder, text)
	return label
}

// DeclareGlobal reserves sizeBytes for a global variable under label,
// idempotent on repeated declarations of the same label.
func (d *DataSectionManager) DeclareGlobal(label string, sizeBytes int) {
	if _, ok := d.globals[label]; ok {
		return
	}
	d.globals[label] = sizeBytes
	d.globalOrder = append(d.globalOrder, label)
}

// InternString returns the data-segment label for a string literal,
// creating and interning a new `.asciiz` entry on first sight of this
// exact text.
func (d *DataSectionManager) InternString(text string) string {
	if label, ok := d.strings[text]; ok {
		return label
	}
	label := fmt.Sprintf("str_%d", d.nextStringID)
	d.nextStringID++
	d.strings[text] = label
	d.stringOrder = append(d.stringOrder, text)
	return label
}

// Render produces the full `.data` section body in declaration order for
// globals, then string literals in interning order, for deterministic
// output across runs.
func (d *DataSectionManager) Render() []Node {
	var out []Node
	out = append(out, Directive{Name: ".data"})

	// Anchor label for runtime_print's unsigned-address dispatch (§4.13):
	// every global, string, and heap allocation lives at or above this
	// address, so comparing an operand against it distinguishes a pointer
	// from a small integer/boolean value. Must stay first in .data.
	out = append(out, Label{Name: "_data_segment_start"})
	out = append(out, Directive{Name: ".space", Operands: []string{"0"}})

	for _, label := range d.globalOrder {
		out = append(out, Label{Name: label})
		out = append(out, Directive{Name: ".space", Operands: []string{fmt.Sprintf("%d", d.globals[label])}})
	}
	for _, text := range d.stringOrder {
		label := d.strings[text]
		out = append(out, Label{Name: label})
		out = append(out, Directive{Name: ".asciiz", Operands: []string{quoteAsciiz(text)}})
	}
	for _, text := range d.floatOrder {
		label := d.floats[text]
		out = append(out, Label{Name: label})
		out = append(out, Directive{Name: ".float", Operands: []string{text}})
	}
	return out
}

func quoteAsciiz(s string) string {
	return "\"" + s + "\""
}
