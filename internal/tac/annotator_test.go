package tac

import (
	"testing"

	"compiscript/internal/symbols"
)

func TestAnnotateGlobalAndFunctionScopes(t *testing.T) {
	addr := NewAddressManager()
	addr.AllocateGlobal("g")

	addr.EnterFunction("f", []string{"a"})
	addr.AllocateLocal("local")
	addr.ExitFunction()

	funcs := NewFunctionRegistry()
	funcs.Register(&FuncInfo{Name: "f", TargetLabel: "f", ParamCount: 1})

	global := symbols.NewScope(nil, "global", "")
	global.Declare(&symbols.Symbol{Name: "g", Kind: symbols.KindVar})
	global.Declare(&symbols.Symbol{Name: "f", Kind: symbols.KindFunc})

	fnScope := symbols.NewScope(global, "function", "f")
	fnScope.Declare(&symbols.Symbol{Name: "a", Kind: symbols.KindVar})
	fnScope.Declare(&symbols.Symbol{Name: "local", Kind: symbols.KindVar})

	children := map[*symbols.Scope][]*symbols.Scope{global: {fnScope}}
	Annotate(global, func(s *symbols.Scope) []*symbols.Scope { return children[s] }, addr, funcs)

	gSym, _ := global.Resolve("g")
	if !gSym.IsGlobal || gSym.GlobalLabel == "" {
		t.Errorf("expected g to be annotated as a global with a label, got %+v", gSym)
	}

	fSym, _ := global.Resolve("f")
	if fSym.TACLabel != "f" {
		t.Errorf("expected f's TACLabel to be \"f\", got %q", fSym.TACLabel)
	}

	aSym, _ := fnScope.ResolveLocal("a")
	if !aSym.IsParam || aSym.FrameOffset != 8 {
		t.Errorf("expected a to be param 0 at offset 8, got %+v", aSym)
	}

	localSym, _ := fnScope.ResolveLocal("local")
	if localSym.IsParam || localSym.FrameOffset != -4 {
		t.Errorf("expected local to be a non-param at offset -4, got %+v", localSym)
	}
	if localSym.FrameSize == 0 {
		t.Error("expected a non-zero frame size once the activation record completes")
	}
}
