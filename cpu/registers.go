package cpu

import (
	"sync/atomic"
)

const (
	GP_REG_COUNT = 16               // General purpose register count.
	GP_REG_MAX   = GP_REG_COUNT - 1 // Highest valid register index.
)

// Registers is the general purpose register file. Cells are atomic so
// co-processors may read them while the CPU runs.
type Registers struct {
	gp [GP_REG_COUNT]atomic.Uint32
}

// Get returns a register value.
func (regs *Registers) Get(index int) (value uint16, err error) {
	if index < 0 || index > GP_REG_MAX {
		err = ErrRegister
		return
	}

	value = uint16(regs.gp[index].Load())
	return
}

// Set sets a register value.
func (regs *Registers) Set(index int, value uint16) (err error) {
	if index < 0 || index > GP_REG_MAX {
		err = ErrRegister
		return
	}

	regs.gp[index].Store(uint32(value))
	return
}

// Reset zeros all registers.
func (regs *Registers) Reset() {
	for n := range regs.gp {
		regs.gp[n].Store(0)
	}
}

// Values returns a copy of the register file.
func (regs *Registers) Values() (values [GP_REG_COUNT]uint16) {
	for n := range regs.gp {
		values[n] = uint16(regs.gp[n].Load())
	}
	return
}
