package prg

import (
	"iter"

	"github.com/ezrec/eira/cpu"
	"github.com/ezrec/eira/internal"
	"github.com/ezrec/eira/mem"
)

// Boot text seeded into the reserved area at reset.
const (
	BOOT_MESSAGE   = "eira-1"
	BOOT_ANIMATION = "|/-'|/-'"
)

// ROM_BANNER_LEN is the number of boot message characters the ROM shows.
const ROM_BANNER_LEN = 6

// ROM_SETTLE is the number of delay loop iterations the ROM runs after
// queueing the banner, so the VDC drains it before a program reuses the
// banner registers.
const ROM_SETTLE = 64

// Rom returns the boot ROM image, which executes at MEM_START_ROM.
//
// It selects 40x12 text mode, shows the boot message from MEM_ROM_BOOT_MSG
// on row 1, waits for the VDC to settle, then polls MEM_START_PRG until a
// program header appears and jumps to the program entry point.
//
// The VDC reads registers when it executes a queued instruction, not when
// the CPU queues it, so each character uses its own pair of registers:
// r0 holds the row, r10-r15 the columns and r4-r9 the message addresses.
func Rom() *Image {
	b := NewBuilder(mem.MEM_START_ROM)

	b.Emit(
		cpu.Make(cpu.OP_NOP, 0, 0, 0),
		cpu.MakeDisplayMode(0),
		cpu.Make(cpu.OP_DICLR, 0, 0, 0),
		cpu.MakeRegImm(cpu.OP_MOVI, 0, 1),
	)
	for n := range ROM_BANNER_LEN {
		b.Emit(
			cpu.MakeRegImm(cpu.OP_MOVI, 10+n, uint16(10+n)),
			cpu.MakeRegImm(cpu.OP_MOVI, 4+n, uint16(mem.MEM_ROM_BOOT_MSG+n)),
			cpu.MakeSetXY(10+n, 0),
			cpu.MakeDisplayMem(cpu.OP_DICHAR, uint16(4+n)),
		)
	}

	b.Emit(cpu.MakeRegImm(cpu.OP_MOV, 1, 0))
	b.Label("settle").Emit(
		cpu.MakeRegImm(cpu.OP_ADD, 1, 1),
		cpu.MakeRegImm(cpu.OP_CMP, 1, ROM_SETTLE),
	).Branch(cpu.OP_BRNEQ, "settle")

	b.Label("poll").Emit(
		cpu.MakeRegMem(cpu.OP_MOVI, 1, mem.MEM_START_PRG),
		cpu.MakeRegImm(cpu.OP_CMP, 1, PRG_MAGIC&0xffff),
	).Branch(cpu.OP_BRNEQ, "poll").Emit(
		cpu.MakeRegMem(cpu.OP_MOVI, 2, mem.MEM_START_PRG+2),
		cpu.MakeRegImm(cpu.OP_CMP, 2, PRG_MAGIC>>16),
	).Branch(cpu.OP_BRNEQ, "poll").Emit(
		cpu.MakeBranch(cpu.OP_JMP, PRG_ENTRY),
	)

	img, err := b.Image()
	if err != nil {
		panic(err)
	}

	return img
}

// Addresses used by the regression test program.
const (
	REGRESSION_DATA   = 8192 // Scratch byte written through a register.
	REGRESSION_OUTPUT = 42   // Value written to the output register.
)

// RegressionTest returns the built-in regression test program.
//
// On completion r1 is 0xe4, r10 is 196 and RAM[REGRESSION_DATA] is 0xaa.
func RegressionTest() *Image {
	img, err := regression().Image()
	if err != nil {
		panic(err)
	}

	return img
}

// RegressionStopc returns the address of the stopc instruction of the
// regression test program.
func RegressionStopc() uint32 {
	addr, _ := regression().Lookup("stopc")
	return addr
}

func regression() (b *Builder) {
	b = NewBuilder(PRG_ENTRY)

	b.Emit(
		cpu.Make(cpu.OP_NOP, 0, 0, 0),
		cpu.MakeRegImm(cpu.OP_MOV, 1, 0xff),
		cpu.MakeRegImm(cpu.OP_MOV, 4, 0xa0),
		cpu.MakeRegImm(cpu.OP_MOVI, 2, 0x1234),
		cpu.MakeRegImm(cpu.OP_MOV, 3, 0x1234),
		cpu.MakeRegReg(cpu.OP_MOV, 10, 4),
		cpu.MakeRegImm(cpu.OP_ADD, 10, 36),
		cpu.MakeRegImm(cpu.OP_MOV, 5, 0xaa),
		cpu.MakeMemReg(cpu.OP_MOV, REGRESSION_DATA, 5),
		cpu.MakeRegMem(cpu.OP_MOV, 6, REGRESSION_DATA),
		cpu.MakeRegImm(cpu.OP_MOVI, 7, REGRESSION_DATA),
		cpu.MakeMovmr(8, 7),
		cpu.MakeRegImm(cpu.OP_SUB, 1, 27),
		cpu.MakeRegImm(cpu.OP_MOV, 9, 0),
	)

	b.Label("count").Emit(
		cpu.MakeRegImm(cpu.OP_ADD, 9, 1),
		cpu.MakeRegImm(cpu.OP_CMP, 9, 10),
	).Branch(cpu.OP_BRNEQ, "count")

	b.Emit(
		cpu.MakeRegImm(cpu.OP_MOV, 11, 3),
		cpu.MakeMemReg(cpu.OP_ADD, REGRESSION_DATA+1, 11),
		cpu.MakeRegImm(cpu.OP_MOVI, 12, REGRESSION_OUTPUT),
		cpu.MakeMemReg(cpu.OP_MOVI, mem.MEM_IO_OUTPUT, 12),
	)

	b.Label("stopc").Emit(cpu.MakeStopc(13))
	b.Address(14, "done").Emit(
		cpu.MakeBranch(cpu.OP_JMP, 14),
		cpu.Make(cpu.OP_RST, 0, 0, 0),
	)
	b.Label("done").Emit(cpu.Make(cpu.OP_HALT, 0, 0, 0))

	return
}

// Defines returns the program layout symbols as symbol/value pairs.
func Defines() iter.Seq2[string, string] {
	return internal.Defines(map[string]uint32{
		"PRG_MAGIC":         PRG_MAGIC,
		"PRG_HEADER_SIZE":   PRG_HEADER_SIZE,
		"PRG_ENTRY":         PRG_ENTRY,
		"REGRESSION_DATA":   REGRESSION_DATA,
		"REGRESSION_OUTPUT": REGRESSION_OUTPUT,
		"REGRESSION_STOPC":  RegressionStopc(),
	})
}
