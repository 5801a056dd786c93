// Package cpu implements the central processor of the Eira machine.
//
// The CPU has sixteen 16-bit general purpose registers (r0-r15), a byte
// addressed program counter, and a condition register set by cmp and
// consumed by the conditional branches. Instructions are fixed 32-bit
// little endian words:
//
//	bits [0,8)   opcode
//	bits [8,12)  register
//	bit  12      source is a register
//	bit  13      source is a memory address
//	bit  14      destination is a register
//	bit  15      destination is a memory address
//	bits [16,32) operand
//
// Display instructions (the di* opcodes) are not executed by the CPU. They
// are forwarded to the video display controller, which executes them
// asynchronously in submission order.
//
// Faults are collected as an Exception bitmask. Peripherals raise faults
// into their own Fault cell, and the CPU merges every cell into its own
// exception once per cycle; any pending fault halts the machine.
package cpu
