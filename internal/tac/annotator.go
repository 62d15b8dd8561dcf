package tac

import "compiscript/internal/symbols"

// Annotate is the Symbol Annotator (§4.8): a pure back-annotation pass that
// walks a scope tree after TAC generation and decorates each Symbol with
// its memory metadata, consulting the address manager's completed
// activation records and the function registry. It emits no code.
//
// children supplies the scope tree's parent->child edges, since symbols.Scope
// itself tracks only the parent link (see symbols.Scope.Walk's doc comment);
// the caller that built the scope tree is expected to know its own shape.
func Annotate(root *symbols.Scope, children func(*symbols.Scope) []*symbols.Scope, addr *AddressManager, funcs *FunctionRegistry) {
	root.Walk(children, func(scope *symbols.Scope) {
		annotateScope(scope, addr, funcs)
	})
}

func annotateScope(scope *symbols.Scope, addr *AddressManager, funcs *FunctionRegistry) {
	isGlobal := scope.IsGlobalScope()
	var rec *ActivationRecord
	if !isGlobal && scope.Owner != "" {
		rec, _ = addr.CompletedRecord(scope.Owner)
	}

	for _, name := range scope.Ordered {
		sym := scope.Names[name]
		sym.ByteSize = symbols.ByteSizeOf(sym.Type)

		switch {
		case isGlobal:
			loc := addr.AllocateGlobal(name)
			sym.IsGlobal = true
			sym.GlobalLabel = loc.Label
		case rec != nil:
			if off, ok := rec.ParamOffsets[name]; ok {
				sym.IsParam = true
				sym.FrameOffset = off
				for i, p := range rec.ParamNames {
					if p == name {
						sym.ParamIndex = i
						break
					}
				}
			} else if off, ok := rec.LocalOffsets[name]; ok {
				sym.FrameOffset = off
			}
			sym.FrameSize = rec.FrameSize
		}

		if sym.Kind == symbols.KindFunc {
			annotateFunctionSymbol(sym, addr, funcs)
		}
	}
}

func annotateFunctionSymbol(sym *symbols.Symbol, addr *AddressManager, funcs *FunctionRegistry) {
	info, ok := funcs.Lookup(sym.Name)
	if !ok {
		return
	}
	sym.TACLabel = info.TargetLabel
	if rec, ok := addr.CompletedRecord(info.TargetLabel); ok {
		sym.FrameSize = rec.FrameSize
	}
}
