package mips

import "fmt"

// FrameLayout is the computed shape of one activation record (§4.11):
// how many bytes the prologue must carve out of $sp, and where each piece
// lives relative to $fp.
type FrameLayout struct {
	FunctionName  string
	ParamCount    int
	LocalCount    int  // locals + compiler temporaries assigned a frame slot
	SpillAreaSize int  // bytes reserved by the allocator's spill slots
	SavedRegs     []string // callee-saved registers this function dirties and must restore
	TotalSize     int      // 8-byte aligned total frame size
}

// savedHeaderWords is $ra + $fp, always saved regardless of register usage.
const savedHeaderWords = 2

// BuildFrameLayout computes a function's frame size (§4.11's activation
// record: old $fp, $ra, saved callee registers, locals/temps, spill area),
// rounded up to 8 bytes for MIPS32's stack alignment requirement.
func BuildFrameLayout(functionName string, paramCount, localCount, spillAreaSize int, savedRegs []string) FrameLayout {
	bytes := savedHeaderWords*wordSize + len(savedRegs)*wordSize + localCount*wordSize + spillAreaSize
	total := (bytes + 7) &^ 7
	return FrameLayout{
		FunctionName:  functionName,
		ParamCount:    paramCount,
		LocalCount:    localCount,
		SpillAreaSize: spillAreaSize,
		SavedRegs:     append([]string(nil), savedRegs...),
		TotalSize:     total,
	}
}

// Prologue emits the standard entry sequence: allocate the frame, save the
// caller's $fp and $ra at the frame's two bottom words (out of the way of
// every other offset computed relative to $fp, which all fall in
// [$fp-(TotalSize-8), $fp-4]), set up the new $fp, and save any
// callee-saved registers this function uses just above them.
func Prologue(layout FrameLayout) []Node {
	var out []Node
	out = append(out, Label{Name: layout.FunctionName})
	out = append(out, InstC("allocate frame", "subu", RegSP, RegSP, fmt.Sprintf("%d", layout.TotalSize)))
	out = append(out, Inst("sw", RegRA, fmt.Sprintf("0(%s)", RegSP)))
	out = append(out, Inst("sw", RegFP, fmt.Sprintf("%d(%s)", wordSize, RegSP)))
	out = append(out, InstC("new frame pointer", "addu", RegFP, RegSP, fmt.Sprintf("%d", layout.TotalSize)))
	offset := 2 * wordSize
	for _, reg := range layout.SavedRegs {
		out = append(out, InstC("save callee-saved "+reg, "sw", reg, fmt.Sprintf("%d(%s)", offset, RegSP)))
		offset += wordSize
	}
	return out
}

// Epilogue emits the standard exit sequence: restore callee-saved
// registers, restore $ra/$fp, deallocate the frame, and return.
func Epilogue(layout FrameLayout) []Node {
	var out []Node
	offset := 2 * wordSize
	for _, reg := range layout.SavedRegs {
		out = append(out, Inst("lw", reg, fmt.Sprintf("%d(%s)", offset, RegSP)))
		offset += wordSize
	}
	out = append(out, Inst("lw", RegRA, fmt.Sprintf("0(%s)", RegSP)))
	out = append(out, Inst("lw", RegFP, fmt.Sprintf("%d(%s)", wordSize, RegSP)))
	out = append(out, InstC("deallocate frame", "addu", RegSP, RegSP, fmt.Sprintf("%d", layout.TotalSize)))
	out = append(out, Inst("jr", RegRA))
	return out
}

// ParamLocation reports where the idx'th parameter (0-based) lives on
// entry: the first 4 arrive in $a0-$a3, the rest are pushed by the caller
// just above the frame (§4.11).
func ParamLocation(idx int) (reg string, stackOffsetAboveFP int) {
	if idx < len(ArgRegisters) {
		return ArgRegisters[idx], 0
	}
	return "", 8 + (idx-len(ArgRegisters))*wordSize
}

// EmitArgument places one outgoing call argument (PushParam) either into the
// next argument register or onto the stack, per position.
func EmitArgument(position int, value string) []Node {
	if position < len(ArgRegisters) {
		return []Node{InstC(fmt.Sprintf("arg %d", position), "move", ArgRegisters[position], value)}
	}
	return []Node{
		Inst("subu", RegSP, RegSP, fmt.Sprintf("%d", wordSize)),
		InstC(fmt.Sprintf("arg %d (stack)", position), "sw", value, fmt.Sprintf("0(%s)", RegSP)),
	}
}
