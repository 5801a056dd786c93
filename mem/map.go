// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

// Package mem implements the Eira machine RAM and its fixed memory map.
//
// The 64K address space is partitioned into compile time constant zones.
// Everything below MEM_START_RW is reserved for the machine: the CPU may
// read it, but memory stores from instructions are refused. The zones are
// a convention enforced by the CPU operand checks, not by the RAM itself.
package mem

import (
	"iter"

	"github.com/ezrec/eira/internal"
)

// RAM_SIZE is the size of the machine RAM in bytes. The last address of the
// 16-bit space, 0xffff, is outside of RAM.
const RAM_SIZE = 0xffff

// Memory map.
const (
	MEM_ROM_BOOT_MSG  = 0x0020 // 16 chars of boot text segment
	MEM_ROM_BOOT_ANIM = 0x0030 // 16 chars of boot animation
	MEM_ROM_TEXT_SIZE = 16     // Size of each boot text segment

	MEM_PRG_LOADING = 0x0100 // Program loading flag
	MEM_BOOT_STATUS = 0x0101 // Boot status (soft reboot count)

	MEM_START_ROM = 0x0200 // Boot ROM code
	MEM_START_RW  = 0x0400 // First kb of RAM is read only

	MEM_START_IOPORT = 0x0400
	MEM_IO_INPUT     = MEM_START_IOPORT     // 16-bit input register
	MEM_IO_OUTPUT    = MEM_START_IOPORT + 2 // 16-bit output register

	MEM_START_PRG    = 0x1000 // Program region
	MEM_START_VDC_FB = 0x7fff // VDC text framebuffer
)

// Program loading flag values stored at MEM_PRG_LOADING.
const (
	PRG_LOADING_IDLE = 0
	PRG_LOADING      = 1
	PRG_LOADING_DONE = 2
)

var _mem_defines = map[string]int{
	"RAM_SIZE":          RAM_SIZE,
	"MEM_ROM_BOOT_MSG":  MEM_ROM_BOOT_MSG,
	"MEM_ROM_BOOT_ANIM": MEM_ROM_BOOT_ANIM,
	"MEM_PRG_LOADING":   MEM_PRG_LOADING,
	"MEM_BOOT_STATUS":   MEM_BOOT_STATUS,
	"MEM_START_ROM":     MEM_START_ROM,
	"MEM_START_RW":      MEM_START_RW,
	"MEM_IO_INPUT":      MEM_IO_INPUT,
	"MEM_IO_OUTPUT":     MEM_IO_OUTPUT,
	"MEM_START_PRG":     MEM_START_PRG,
	"MEM_START_VDC_FB":  MEM_START_VDC_FB,
	"PRG_LOADING":       PRG_LOADING,
	"PRG_LOADING_DONE":  PRG_LOADING_DONE,
}

// Defines returns the memory map as symbol/value pairs.
func Defines() iter.Seq2[string, string] {
	return internal.Defines(_mem_defines)
}

// Writable returns true if a CPU memory store may target addr.
func Writable(addr uint32) bool {
	return addr >= MEM_START_RW && addr < RAM_SIZE
}
