package mips

// wordSize is the MIPS32 word size in bytes, used throughout for frame and
// spill-slot arithmetic.
const wordSize = 4

// Fixed-purpose registers never handed out by the allocator.
const (
	RegZero = "$zero"
	RegGP   = "$gp"
	RegSP   = "$sp"
	RegFP   = "$fp"
	RegRA   = "$ra"
	RegV0   = "$v0"
	RegV1   = "$v1"
)

// ArgRegisters holds the first four integer/pointer arguments (§4.11); the
// fifth and beyond go on the stack.
var ArgRegisters = []string{"$a0", "$a1", "$a2", "$a3"}

// TempRegisters are caller-saved scratch registers: cheap to allocate, but a
// callee is free to clobber them, so the allocator must spill any live
// temp-register value across a Call.
var TempRegisters = []string{"$t0", "$t1", "$t2", "$t3", "$t4", "$t5", "$t6", "$t7", "$t8", "$t9"}

// SavedRegisters are callee-saved: a function that uses one must save/
// restore it in its own prologue/epilogue, but a live value placed here
// survives calls made from the current function without reloading.
var SavedRegisters = []string{"$s0", "$s1", "$s2", "$s3", "$s4", "$s5", "$s6", "$s7"}

// AllocatableRegisters is the allocator's full pool, temps first (cheapest
// to acquire) then saved registers.
func AllocatableRegisters() []string {
	all := make([]string, 0, len(TempRegisters)+len(SavedRegisters))
	all = append(all, TempRegisters...)
	all = append(all, SavedRegisters...)
	return all
}
