package mips

// RuntimeLibrary emits the hand-written helper routines every compiled
// program links against (§4.13): builtin I/O, type-coercion builtins, heap
// allocation for `new`/array literals, and string concatenation. Each
// routine is a plain MIPS label the translators `jal` into using the
// standard calling convention (arguments in $a0-$a3, result in $v0).
//
// Grounded on SPIM's documented syscall table (print_int=1, print_float=2,
// print_string=4, read_int=5, read_string=8, sbrk=9, exit=10) - the same
// table every MIPS32 teaching toolchain (and the original CompilScript
// backend) targets.
func RuntimeLibrary() []Node {
	var out []Node
	out = append(out, Directive{Name: ".text"})
	out = append(out, runtimePrintRoutine()...)
	out = append(out, runtimePrintlnRoutine()...)
	out = append(out, runtimeInputRoutine()...)
	out = append(out, runtimeStrRoutine()...)
	out = append(out, runtimeIntRoutine()...)
	out = append(out, runtimeFloatRoutine()...)
	out = append(out, runtimeBoolRoutine()...)
	out = append(out, runtimeLenRoutine()...)
	out = append(out, runtimeAllocRoutine()...)
	out = append(out, runtimeStrConcatRoutine()...)
	return out
}

// runtime_print is the polymorphic dispatcher print/println actually call
// (§4.13, supplemented from original_source/program/mips/runtime_library.py):
// it distinguishes a string argument from an integer/boolean one by an
// unsigned comparison of $a0 against the `_data_segment_start` anchor label
// (declared first in .data, see data_section.go) - string and heap
// addresses always fall at or above that anchor, while small integer and
// boolean values never do. This is the one place the original backend gets
// away without a static type tag reaching MIPS generation; it cannot by the
// same token distinguish a boolean from an integer (both are small words),
// so a printed boolean renders as 0/1 through this path rather than
// true/false (documented in DESIGN.md) - runtime_print_bool below remains
// available for any call site that already knows statically it has a bool.
func runtimePrintRoutine() []Node {
	return []Node{
		Comment{Text: "runtime_print(a0: int|char*) - dispatches by address range"},
		Label{Name: "runtime_print"},
		Inst("la", "$t9", "_data_segment_start"),
		Inst("sltu", "$t8", "$a0", "$t9"),
		Inst("beq", "$t8", RegZero, "runtime_print_string"),
		Inst("j", "runtime_print_int"),

		Comment{Text: "runtime_print_int(a0: int)"},
		Label{Name: "runtime_print_int"},
		Inst("li", "$v0", "1"),
		Inst("syscall"),
		Inst("jr", RegRA),

		Comment{Text: "runtime_print_float(f12: float)"},
		Label{Name: "runtime_print_float"},
		Inst("li", "$v0", "2"),
		Inst("syscall"),
		Inst("jr", RegRA),

		Comment{Text: "runtime_print_string(a0: char*)"},
		Label{Name: "runtime_print_string"},
		Inst("li", "$v0", "4"),
		Inst("syscall"),
		Inst("jr", RegRA),

		Comment{Text: "runtime_print_bool(a0: 0|1)"},
		Label{Name: "runtime_print_bool"},
		Inst("beq", "$a0", RegZero, "runtime_print_bool_false"),
		Inst("la", "$a0", "runtime_true_str"),
		Inst("j", "runtime_print_string"),
		Label{Name: "runtime_print_bool_false"},
		Inst("la", "$a0", "runtime_false_str"),
		Inst("j", "runtime_print_string"),
	}
}

func runtimePrintlnRoutine() []Node {
	return []Node{
		Comment{Text: "runtime_newline()"},
		Label{Name: "runtime_newline"},
		Inst("li", "$v0", "4"),
		Inst("la", "$a0", "runtime_newline_str"),
		Inst("syscall"),
		Inst("jr", RegRA),
	}
}

func runtimeInputRoutine() []Node {
	return []Node{
		Comment{Text: "runtime_input() -> v0: char* (line buffer, no trailing newline)"},
		Label{Name: "runtime_input"},
		Inst("la", "$a0", "runtime_input_buf"),
		Inst("li", "$a1", "1024"),
		Inst("li", "$v0", "8"),
		Inst("syscall"),
		Inst("la", "$v0", "runtime_input_buf"),
		Inst("jr", RegRA),
	}
}

// runtimeStrRoutine implements int-to-decimal-string conversion by hand
// (digit-by-digit into a scratch buffer, then reversed), since SPIM's
// syscall table has no "convert int to string" primitive - only
// print_int, which writes straight to stdout.
func runtimeStrRoutine() []Node {
	return []Node{
		Comment{Text: "runtime_int_to_str(a0: int) -> v0: char* (into runtime_itoa_buf)"},
		Label{Name: "runtime_int_to_str"},
		Inst("la", "$t0", "runtime_itoa_buf"),
		Inst("li", "$t1", "0"), // negative flag
		Inst("bgez", "$a0", "runtime_itoa_nonneg"),
		Inst("li", "$t1", "1"),
		Inst("sub", "$a0", RegZero, "$a0"),
		Label{Name: "runtime_itoa_nonneg"},
		Inst("move", "$t2", "$t0"), // write cursor, advances with each digit
		Inst("bne", "$a0", RegZero, "runtime_itoa_loop"),
		Inst("li", "$t3", "48"),
		Inst("sb", "$t3", "0($t2)"),
		Inst("addi", "$t2", "$t2", "1"),
		Inst("j", "runtime_itoa_reverse_setup"),
		Label{Name: "runtime_itoa_loop"},
		Inst("beq", "$a0", RegZero, "runtime_itoa_reverse_setup"),
		Inst("li", "$t4", "10"),
		Inst("div", "$a0", "$t4"),
		Inst("mflo", "$t5"), // quotient
		Inst("mfhi", "$t6"), // remainder, this digit
		Inst("addi", "$t6", "$t6", "48"),
		Inst("sb", "$t6", "0($t2)"),
		Inst("addi", "$t2", "$t2", "1"),
		Inst("move", "$a0", "$t5"),
		Inst("j", "runtime_itoa_loop"),
		Label{Name: "runtime_itoa_reverse_setup"},
		Inst("beq", "$t1", RegZero, "runtime_itoa_reverse"),
		Inst("li", "$t3", "45"), // '-'
		Inst("sb", "$t3", "0($t2)"),
		Inst("addi", "$t2", "$t2", "1"),
		Label{Name: "runtime_itoa_reverse"},
		Inst("sb", RegZero, "0($t2)"), // NUL-terminate before reversing in place
		Inst("addi", "$t7", "$t2", "-1"),
		Inst("move", "$t8", "$t0"),
		Label{Name: "runtime_itoa_reverse_loop"},
		Inst("bge", "$t8", "$t7", "runtime_itoa_done"),
		Inst("lb", "$t3", "0($t8)"),
		Inst("lb", "$t4", "0($t7)"),
		Inst("sb", "$t4", "0($t8)"),
		Inst("sb", "$t3", "0($t7)"),
		Inst("addi", "$t8", "$t8", "1"),
		Inst("addi", "$t7", "$t7", "-1"),
		Inst("j", "runtime_itoa_reverse_loop"),
		Label{Name: "runtime_itoa_done"},
		Inst("la", "$v0", "runtime_itoa_buf"),
		Inst("jr", RegRA),
	}
}

func runtimeIntRoutine() []Node {
	return []Node{
		Comment{Text: "runtime_str_to_int(a0: char*) -> v0: int (atoi)"},
		Label{Name: "runtime_str_to_int"},
		Inst("li", "$v0", "0"),
		Inst("li", "$t1", "0"), // sign
		Label{Name: "runtime_str_to_int_loop"},
		Inst("lb", "$t2", "0($a0)"),
		Inst("beq", "$t2", RegZero, "runtime_str_to_int_done"),
		Inst("li", "$t3", "45"), // '-'
		Inst("bne", "$t2", "$t3", "runtime_str_to_int_digit"),
		Inst("li", "$t1", "1"),
		Inst("addi", "$a0", "$a0", "1"),
		Inst("j", "runtime_str_to_int_loop"),
		Label{Name: "runtime_str_to_int_digit"},
		Inst("li", "$t3", "48"), // '0'
		Inst("sub", "$t2", "$t2", "$t3"),
		Inst("mul", "$v0", "$v0", "10"),
		Inst("add", "$v0", "$v0", "$t2"),
		Inst("addi", "$a0", "$a0", "1"),
		Inst("j", "runtime_str_to_int_loop"),
		Label{Name: "runtime_str_to_int_done"},
		Inst("beq", "$t1", RegZero, "runtime_str_to_int_ret"),
		Inst("sub", "$v0", RegZero, "$v0"),
		Label{Name: "runtime_str_to_int_ret"},
		Inst("jr", RegRA),
	}
}

func runtimeFloatRoutine() []Node {
	return []Node{
		Comment{Text: "runtime_int_to_float_conv(a0: int) -> f0: float"},
		Label{Name: "runtime_int_to_float_conv"},
		Inst("mtc1", "$a0", "$f0"),
		Inst("cvt.s.w", "$f0", "$f0"),
		Inst("jr", RegRA),
	}
}

func runtimeBoolRoutine() []Node {
	return []Node{
		Comment{Text: "runtime_to_bool(a0: int) -> v0: 0|1"},
		Label{Name: "runtime_to_bool"},
		Inst("sne", "$v0", "$a0", RegZero),
		Inst("jr", RegRA),
	}
}

func runtimeLenRoutine() []Node {
	return []Node{
		Comment{Text: "runtime_strlen(a0: char*) -> v0: int"},
		Label{Name: "runtime_strlen"},
		Inst("move", "$t0", "$a0"),
		Inst("li", "$v0", "0"),
		Label{Name: "runtime_strlen_loop"},
		Inst("lb", "$t1", "0($t0)"),
		Inst("beq", "$t1", RegZero, "runtime_strlen_done"),
		Inst("addi", "$v0", "$v0", "1"),
		Inst("addi", "$t0", "$t0", "1"),
		Inst("j", "runtime_strlen_loop"),
		Label{Name: "runtime_strlen_done"},
		Inst("jr", RegRA),

		Comment{Text: "runtime_arraylen(a0: array header ptr) -> v0: int (length stored at offset -4)"},
		Label{Name: "runtime_arraylen"},
		Inst("lw", "$v0", "-4($a0)"),
		Inst("jr", RegRA),
	}
}

// runtimeAllocRoutine wraps the sbrk syscall for both `new` (fixed object
// size) and array literals (size computed by the caller as
// elem_size*count + 4 for the length header).
func runtimeAllocRoutine() []Node {
	return []Node{
		Comment{Text: "runtime_alloc(a0: bytes) -> v0: ptr"},
		Label{Name: "runtime_alloc"},
		Inst("li", "$v0", "9"),
		Inst("syscall"),
		Inst("jr", RegRA),
	}
}

func runtimeStrConcatRoutine() []Node {
	return []Node{
		Comment{Text: "runtime_str_concat(a0: char*, a1: char*) -> v0: char* (freshly allocated)"},
		Label{Name: "runtime_str_concat"},
		Inst("move", "$t0", "$a0"),
		Inst("move", "$t1", "$a1"),
		Inst("jal", "runtime_strlen"), // len(a0)
		Inst("move", "$t2", "$v0"),
		Inst("move", "$a0", "$t1"),
		Inst("jal", "runtime_strlen"), // len(a1)
		Inst("add", "$a0", "$t2", "$v0"),
		Inst("addi", "$a0", "$a0", "1"),
		Inst("jal", "runtime_alloc"),
		Inst("move", "$t3", "$v0"),
		Inst("move", "$t4", "$v0"),
		Label{Name: "runtime_str_concat_copy1"},
		Inst("lb", "$t5", "0($t0)"),
		Inst("beq", "$t5", RegZero, "runtime_str_concat_copy2_start"),
		Inst("sb", "$t5", "0($t4)"),
		Inst("addi", "$t0", "$t0", "1"),
		Inst("addi", "$t4", "$t4", "1"),
		Inst("j", "runtime_str_concat_copy1"),
		Label{Name: "runtime_str_concat_copy2_start"},
		Label{Name: "runtime_str_concat_copy2"},
		Inst("lb", "$t5", "0($t1)"),
		Inst("sb", "$t5", "0($t4)"),
		Inst("beq", "$t5", RegZero, "runtime_str_concat_done"),
		Inst("addi", "$t1", "$t1", "1"),
		Inst("addi", "$t4", "$t4", "1"),
		Inst("j", "runtime_str_concat_copy2"),
		Label{Name: "runtime_str_concat_done"},
		Inst("move", "$v0", "$t3"),
		Inst("jr", RegRA),
	}
}

// RuntimeStrings declares the fixed string constants the runtime library
// itself references (booleans' text forms, a scratch input buffer, the
// newline literal), to be merged into the program's data section.
func RuntimeStrings(data *DataSectionManager) {
	data.strings["true"] = "runtime_true_str"
	data.stringOrder = append(data.stringOrder, "true")
	data.strings["false"] = "runtime_false_str"
	data.stringOrder = append(data.stringOrder, "false")
	data.strings["\n"] = "runtime_newline_str"
	data.stringOrder = append(data.stringOrder, "\n")
	data.DeclareGlobal("runtime_input_buf", 1024)
	data.DeclareGlobal("runtime_itoa_buf", 16)
}
