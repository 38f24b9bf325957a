package codegen

import "arkoi/internal/regalloc"

// intRegisterWidths narrows a 64-bit integer register name to the byte
// width an instruction actually needs: {1, 2, 4, 8} bytes, indexed 0..3.
var intRegisterWidths = map[string][4]string{
	"rax": {"al", "ax", "eax", "rax"},
	"rbx": {"bl", "bx", "ebx", "rbx"},
	"rcx": {"cl", "cx", "ecx", "rcx"},
	"rdx": {"dl", "dx", "edx", "rdx"},
	"rsi": {"sil", "si", "esi", "rsi"},
	"rdi": {"dil", "di", "edi", "rdi"},
	"rbp": {"bpl", "bp", "ebp", "rbp"},
	"rsp": {"spl", "sp", "esp", "rsp"},
	"r8":  {"r8b", "r8w", "r8d", "r8"},
	"r9":  {"r9b", "r9w", "r9d", "r9"},
	"r10": {"r10b", "r10w", "r10d", "r10"},
	"r11": {"r11b", "r11w", "r11d", "r11"},
	"r12": {"r12b", "r12w", "r12d", "r12"},
	"r13": {"r13b", "r13w", "r13d", "r13"},
	"r14": {"r14b", "r14w", "r14d", "r14"},
	"r15": {"r15b", "r15w", "r15d", "r15"},
}

func widthIndex(size int) int {
	switch size {
	case 1:
		return 0
	case 2:
		return 1
	case 4:
		return 2
	default:
		return 3
	}
}

// RegisterName renders reg at the given byte width, matching spec.md
// §4.8's "physical register of the appropriate byte width (1/2/4/8 for
// integer, 4/8 for XMM)". Float registers are width-invariant by name;
// width only changes which instruction touches them (movss vs movsd).
func RegisterName(reg regalloc.Register, size int) string {
	if reg.Cls == regalloc.FloatClass {
		return reg.Name
	}
	row, ok := intRegisterWidths[reg.Name]
	if !ok {
		return reg.Name
	}
	return row[widthIndex(size)]
}
