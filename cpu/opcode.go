// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package cpu

import (
	"fmt"
	"iter"
	"maps"
	"strings"

	"github.com/ezrec/eira/internal"
	"github.com/ezrec/eira/mem"
)

// CODE_SIZE is the width of an instruction word in bytes.
const CODE_SIZE = 4

// Opcode is the low byte of an instruction word.
type Opcode uint8

const (
	OP_HALT  = Opcode(0x00) // halt
	OP_NOP   = Opcode(0x01) // nop
	OP_ADD   = Opcode(0x02) // add
	OP_SUB   = Opcode(0x03) // sub
	OP_MOV   = Opcode(0x04) // mov
	OP_MOVI  = Opcode(0x05) // movi
	OP_MOVMR = Opcode(0x06) // movmr
	OP_JMP   = Opcode(0x10) // jmp
	OP_CMP   = Opcode(0x11) // cmp
	OP_BREQ  = Opcode(0x12) // breq
	OP_BRNEQ = Opcode(0x13) // brneq
	OP_STOPC = Opcode(0x14) // stopc
	OP_RST   = Opcode(0x15) // rst

	OP_DIWAIT     = Opcode(0xf0) // diwait
	OP_DICLR      = Opcode(0xf1) // diclr
	OP_DIMD       = Opcode(0xf2) // dimd
	OP_DIWTRT     = Opcode(0xf3) // diwtrt
	OP_DISETXY    = Opcode(0xf4) // disetxy
	OP_DICHAR     = Opcode(0xf5) // dichar
	OP_DIPUTPIXEL = Opcode(0xf6) // diputpixel
)

var _opcode_names = map[Opcode]string{
	OP_HALT:       "halt",
	OP_NOP:        "nop",
	OP_ADD:        "add",
	OP_SUB:        "sub",
	OP_MOV:        "mov",
	OP_MOVI:       "movi",
	OP_MOVMR:      "movmr",
	OP_JMP:        "jmp",
	OP_CMP:        "cmp",
	OP_BREQ:       "breq",
	OP_BRNEQ:      "brneq",
	OP_STOPC:      "stopc",
	OP_RST:        "rst",
	OP_DIWAIT:     "diwait",
	OP_DICLR:      "diclr",
	OP_DIMD:       "dimd",
	OP_DIWTRT:     "diwtrt",
	OP_DISETXY:    "disetxy",
	OP_DICHAR:     "dichar",
	OP_DIPUTPIXEL: "diputpixel",
}

// String returns the mnemonic of the opcode.
func (op Opcode) String() string {
	name, ok := _opcode_names[op]
	if !ok {
		return fmt.Sprintf("op_%02x", uint8(op))
	}
	return name
}

// CodeClass is the executing unit of an opcode.
type CodeClass int

const (
	CLASS_INVALID = CodeClass(0) // invalid
	CLASS_CPU     = CodeClass(1) // cpu
	CLASS_VDC     = CodeClass(2) // vdc
)

// Class returns the unit that executes the opcode.
func (op Opcode) Class() CodeClass {
	if _, ok := _opcode_names[op]; !ok {
		return CLASS_INVALID
	}
	if op >= OP_DIWAIT {
		return CLASS_VDC
	}
	return CLASS_CPU
}

// Mode is the set of operand addressing flags of an instruction word.
type Mode uint32

const (
	OP_SRC_REG = Mode(1 << 12) // Source is a register.
	OP_SRC_MEM = Mode(1 << 13) // Source is a memory address.
	OP_DST_REG = Mode(1 << 14) // Destination is a register.
	OP_DST_MEM = Mode(1 << 15) // Destination is a memory address.

	OP_MODE_MASK = OP_SRC_REG | OP_SRC_MEM | OP_DST_REG | OP_DST_MEM
)

// Has returns true if all flags in mask are set.
func (mode Mode) Has(mask Mode) bool {
	return mode&mask == mask
}

// Code is a raw 32-bit instruction word.
//
//	| opcode | reg  | src | dst | operand |
//	0        8      12    14    16        32
type Code uint32

// Instruction is a decoded instruction word.
type Instruction struct {
	Code    Code   // Raw instruction word.
	Op      Opcode // Operation.
	Reg     int    // Register field, bits [8,12).
	Mode    Mode   // Addressing flags.
	Operand uint16 // Operand field, bits [16,32).
}

// Opcode returns the opcode of the word.
func (code Code) Opcode() Opcode {
	return Opcode(code & 0xff)
}

// Reg returns the register field of the word.
func (code Code) Reg() int {
	return int((code >> 8) & 0xf)
}

// Mode returns the addressing flags of the word.
func (code Code) Mode() Mode {
	return Mode(code) & OP_MODE_MASK
}

// Operand returns the operand field of the word.
func (code Code) Operand() uint16 {
	return uint16(code >> 16)
}

// DisplayMode returns the mode argument of a dimd word.
func (code Code) DisplayMode() int {
	return int((code >> 8) & 0xff)
}

// XY returns the cursor register indexes of a disetxy word.
func (code Code) XY() (xreg int, yreg int) {
	xreg = int((code >> 16) & 0xff)
	yreg = int((code >> 24) & 0xff)
	return
}

// Decode decodes the instruction word.
func (code Code) Decode() Instruction {
	return Instruction{
		Code:    code,
		Op:      code.Opcode(),
		Reg:     code.Reg(),
		Mode:    code.Mode(),
		Operand: code.Operand(),
	}
}

// Make creates an instruction word from its fields.
func Make(op Opcode, reg int, mode Mode, operand uint16) Code {
	return Code(uint32(op) | (uint32(reg&0xf) << 8) | uint32(mode&OP_MODE_MASK) | (uint32(operand) << 16))
}

// MakeRegImm creates 'op rN, #imm'.
func MakeRegImm(op Opcode, dst int, imm uint16) Code {
	return Make(op, dst, OP_DST_REG, imm)
}

// MakeRegReg creates 'op rN, rM'.
func MakeRegReg(op Opcode, dst int, src int) Code {
	return Make(op, dst, OP_DST_REG|OP_SRC_REG, uint16(src))
}

// MakeRegMem creates 'op rN, @addr'.
func MakeRegMem(op Opcode, dst int, addr uint16) Code {
	return Make(op, dst, OP_DST_REG|OP_SRC_MEM, addr)
}

// MakeMemReg creates 'op @addr, rN'.
func MakeMemReg(op Opcode, addr uint16, src int) Code {
	return Make(op, src, OP_DST_MEM, addr)
}

// MakeBranch creates a jmp, breq or brneq to target. Targets below
// MEM_START_ROM name the register holding the address.
func MakeBranch(op Opcode, target uint16) Code {
	return Make(op, 0, 0, target)
}

// MakeStopc creates 'stopc rN'.
func MakeStopc(dst int) Code {
	return Make(OP_STOPC, dst, 0, 0)
}

// MakeMovmr creates 'movmr rN, [rM]'.
func MakeMovmr(dst int, src int) Code {
	return Make(OP_MOVMR, dst, OP_DST_REG, uint16(src))
}

// MakeDisplayMode creates 'dimd mode'.
func MakeDisplayMode(mode int) Code {
	return Code(uint32(OP_DIMD) | (uint32(mode&0xff) << 8))
}

// MakeSetXY creates 'disetxy rX, rY'.
func MakeSetXY(xreg int, yreg int) Code {
	return Code(uint32(OP_DISETXY) | (uint32(xreg&0xff) << 16) | (uint32(yreg&0xff) << 24))
}

// MakeDisplayImm creates a dichar or diputpixel of an immediate value.
func MakeDisplayImm(op Opcode, value uint8) Code {
	return Make(op, 0, 0, uint16(value))
}

// MakeDisplayReg creates a dichar or diputpixel of a register value.
func MakeDisplayReg(op Opcode, reg int) Code {
	return Make(op, 0, OP_SRC_REG, uint16(reg))
}

// MakeDisplayMem creates a dichar or diputpixel of a memory byte.
// Addresses below MEM_START_RW name the register holding the address.
func MakeDisplayMem(op Opcode, addr uint16) Code {
	return Make(op, 0, OP_SRC_MEM, addr)
}

// mnemonicString formats the operands of a two operand instruction.
func (instr Instruction) mnemonicString() string {
	var src string
	switch {
	case instr.Mode&OP_DST_MEM != 0 && instr.Mode&OP_DST_REG == 0:
		return fmt.Sprintf("@0x%04x, r%d", instr.Operand, instr.Reg)
	case instr.Mode&OP_SRC_REG != 0:
		src = fmt.Sprintf("r%d", instr.Operand)
	case instr.Mode&OP_SRC_MEM != 0:
		src = fmt.Sprintf("@0x%04x", instr.Operand)
	default:
		src = fmt.Sprintf("#0x%x", instr.Operand)
	}
	return fmt.Sprintf("r%d, %v", instr.Reg, src)
}

// targetString formats a branch target.
func (instr Instruction) targetString() string {
	if instr.Operand >= mem.MEM_START_ROM {
		return fmt.Sprintf("0x%04x", instr.Operand)
	}
	return fmt.Sprintf("r%d", instr.Operand)
}

// sourceString formats the source of a display instruction.
func (instr Instruction) sourceString() string {
	switch {
	case instr.Mode&OP_SRC_REG != 0:
		return fmt.Sprintf("r%d", instr.Operand)
	case instr.Mode&OP_SRC_MEM != 0:
		if instr.Operand < mem.MEM_START_RW {
			return fmt.Sprintf("[r%d]", instr.Operand)
		}
		return fmt.Sprintf("@0x%04x", instr.Operand)
	}
	return fmt.Sprintf("#0x%02x", instr.Operand&0xff)
}

// String returns the assembly language representation of this instruction.
func (code Code) String() (out string) {
	instr := code.Decode()

	switch instr.Op {
	case OP_HALT, OP_NOP, OP_RST, OP_DIWAIT, OP_DICLR, OP_DIWTRT:
		out = instr.Op.String()
	case OP_ADD, OP_SUB, OP_MOV, OP_MOVI, OP_CMP:
		out = fmt.Sprintf("%v %v", instr.Op, instr.mnemonicString())
	case OP_MOVMR:
		out = fmt.Sprintf("%v r%d, [r%d]", instr.Op, instr.Reg, instr.Operand)
	case OP_JMP, OP_BREQ, OP_BRNEQ:
		out = fmt.Sprintf("%v %v", instr.Op, instr.targetString())
	case OP_STOPC:
		out = fmt.Sprintf("%v r%d", instr.Op, instr.Reg)
	case OP_DIMD:
		out = fmt.Sprintf("%v %d", instr.Op, code.DisplayMode())
	case OP_DISETXY:
		x, y := code.XY()
		out = fmt.Sprintf("%v r%d, r%d", instr.Op, x, y)
	case OP_DICHAR, OP_DIPUTPIXEL:
		out = fmt.Sprintf("%v %v", instr.Op, instr.sourceString())
	default:
		out = fmt.Sprintf(".word 0x%08x", uint32(code))
	}

	return
}

var _cpu_defines = map[string]uint32{
	"OP_SRC_REG": uint32(OP_SRC_REG),
	"OP_SRC_MEM": uint32(OP_SRC_MEM),
	"OP_DST_REG": uint32(OP_DST_REG),
	"OP_DST_MEM": uint32(OP_DST_MEM),
	"COND_EQ":    uint32(COND_EQ),
	"COND_NEQ":   uint32(COND_NEQ),
	"COND_ZERO":  uint32(COND_ZERO),
	"COND_NZERO": uint32(COND_NZERO),
	"COND_GR":    uint32(COND_GR),
	"COND_LE":    uint32(COND_LE),
	"COND_UNDEF": uint32(COND_UNDEF),
	"GP_REG_MAX": GP_REG_MAX,
	"CODE_SIZE":  CODE_SIZE,
}

// Defines returns the instruction set symbols as symbol/value pairs.
func Defines() iter.Seq2[string, string] {
	ops := make(map[string]uint32, len(_opcode_names))
	for op, name := range _opcode_names {
		ops["OP_"+strings.ToUpper(name)] = uint32(op)
	}

	excs := maps.Collect(Exceptions())

	return internal.IterSeq2Concat(
		internal.Defines(_cpu_defines),
		internal.Defines(ops),
		internal.Defines(excs),
	)
}
