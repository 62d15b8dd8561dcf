package tac

import "testing"

func TestRenderAssignVariants(t *testing.T) {
	tests := []struct {
		name string
		n    Assign
		want string
	}{
		{"simple", Assign{Target: "x", Op1: "y"}, "x = y"},
		{"unary", Assign{Target: "x", Operator: "-", Op1: "y"}, "x = - y"},
		{"binary", Assign{Target: "x", Op1: "y", Operator: "+", Op2: "z"}, "x = y + z"},
	}
	for _, tt := range tests {
		if got := Render(tt.n); got != tt.want {
			t.Errorf("%s: got %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestRenderControlFlow(t *testing.T) {
	tests := []struct {
		n    Instr
		want string
	}{
		{Goto{Label: "L1"}, "goto L1"},
		{IfGoto{Cond: "x", Label: "L1"}, "if x goto L1"},
		{IfGoto{Cond: "x", Operator: "<", Op2: "y", Label: "L1"}, "if x < y goto L1"},
		{Label{Name: "L1"}, "L1:"},
	}
	for _, tt := range tests {
		if got := Render(tt.n); got != tt.want {
			t.Errorf("got %q, want %q", got, tt.want)
		}
	}
}

func TestRenderBeginEndFunc(t *testing.T) {
	tests := []struct {
		n    Instr
		want string
	}{
		{BeginFunc{Name: "f", ParamCount: 2}, "BeginFunc f, 2"},
		{BeginFunc{Name: "f", ParamCount: 2, FrameSize: 16}, "BeginFunc f, 2, frame_size=16"},
		{BeginFunc{Name: "f", ParamCount: 2, ParamNames: []string{"a", "b"}}, "BeginFunc f, 2, params=[a,b]"},
		{EndFunc{Name: "f"}, "EndFunc f"},
	}
	for _, tt := range tests {
		if got := Render(tt.n); got != tt.want {
			t.Errorf("got %q, want %q", got, tt.want)
		}
	}
}

func TestRenderCallAndParams(t *testing.T) {
	tests := []struct {
		n    Instr
		want string
	}{
		{PushParam{Value: "x"}, "PushParam x"},
		{Call{Function: "f", ParamCount: 1}, "call f, 1"},
		{Call{Function: "f", ParamCount: 1, Target: "t0"}, "t0 = call f, 1"},
		{PopParams{Count: 1}, "PopParams 1"},
		{Return{}, "return"},
		{Return{Value: "x"}, "return x"},
	}
	for _, tt := range tests {
		if got := Render(tt.n); got != tt.want {
			t.Errorf("got %q, want %q", got, tt.want)
		}
	}
}

func TestRenderArrayAndPropertyAccess(t *testing.T) {
	tests := []struct {
		n    Instr
		want string
	}{
		{ArrayAccess{Target: "t0", Array: "a", Index: "i"}, "t0 = a[i]"},
		{ArrayAccess{Target: "v", Array: "a", Index: "i", IsAssignment: true}, "a[i] = v"},
		{PropertyAccess{Target: "t0", Object: "obj", Property: "x"}, "t0 = obj.x"},
		{PropertyAccess{Target: "v", Object: "obj", Property: "x", IsAssignment: true}, "obj.x = v"},
		{New{Target: "t0", Class: "Point"}, "t0 = new Point"},
		{AllocateArray{Target: "t0", Size: "n", ElemSize: 4}, "t0 = allocate_array n, 4"},
		{Comment{Text: "note"}, "# note"},
	}
	for _, tt := range tests {
		if got := Render(tt.n); got != tt.want {
			t.Errorf("got %q, want %q", got, tt.want)
		}
	}
}

func TestRenderProgramJoinsLines(t *testing.T) {
	lines := RenderProgram([]Instr{
		Label{Name: "L1"},
		Assign{Target: "x", Op1: "1"},
		Goto{Label: "L1"},
	})
	want := []string{"L1:", "x = 1", "goto L1"}
	if len(lines) != len(want) {
		t.Fatalf("got %d lines, want %d", len(lines), len(want))
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Errorf("line %d: got %q, want %q", i, lines[i], want[i])
		}
	}
}
