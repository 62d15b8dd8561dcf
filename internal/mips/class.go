package mips

import "compiscript/internal/tac"

// ClassTable resolves property names to object field offsets and computes
// per-class instance sizes for `new` (§4.6/§4.11).
//
// TAC's PropertyAccess instruction carries only an object operand and a
// bare property name, with no class tag (that static type information lived
// in the AST and was already consumed by the TAC generator) - so, like the
// rest of this backend's textual-ingestion path, field layout is
// reconstructed without per-instance type information. This backend
// resolves a field name to one offset program-wide rather than per class
// (documented in DESIGN.md): every class's fields are assigned into one
// shared name->offset table in declaration order, so two classes that both
// declare a field named e.g. "value" agree on its offset. This is the one
// place this backend trades full per-class precision for a TAC format that
// doesn't carry static types; a production backend would carry a class tag
// on each object (e.g. a leading vtable/type-id word) instead.
type ClassTable struct {
	fieldOffsets map[string]int
	classSize    map[string]int
	nextOffset   int
}

// BuildClassTable computes field offsets and instance sizes for every
// registered class, processing superclasses before their subclasses so
// inherited fields keep a stable offset across the hierarchy.
func BuildClassTable(classes map[string]*tac.ClassInfo) *ClassTable {
	ct := &ClassTable{fieldOffsets: map[string]int{}, classSize: map[string]int{}}
	visited := map[string]bool{}
	var visit func(name string) int
	visit = func(name string) int {
		if size, ok := ct.classSize[name]; ok {
			return size
		}
		if visited[name] {
			return 0 // inheritance cycle guard; malformed input, never constructed by this generator
		}
		visited[name] = true
		info, ok := classes[name]
		if !ok {
			return 0
		}
		size := 0
		if info.Superclass != "" {
			size = visit(info.Superclass)
		}
		for _, f := range info.Fields {
			if _, ok := ct.fieldOffsets[f.Name]; !ok {
				ct.fieldOffsets[f.Name] = ct.nextOffset
				ct.nextOffset += wordSize
			}
			size += wordSize
		}
		ct.classSize[name] = size
		return size
	}
	for name := range classes {
		visit(name)
	}
	return ct
}

// FieldOffset returns property's assigned offset, or 0 if it was never
// seen during BuildClassTable (a property access on a class this table
// never registered is a generator-input error, not something this backend
// can recover from at this stage).
func (ct *ClassTable) FieldOffset(property string) int {
	return ct.fieldOffsets[property]
}

// InstanceSize returns className's total instance size in bytes, including
// inherited fields.
func (ct *ClassTable) InstanceSize(className string) int {
	return ct.classSize[className]
}
