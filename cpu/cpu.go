// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package cpu

import (
	"fmt"
	"strconv"

	"github.com/sirupsen/logrus"

	"github.com/ezrec/eira/actor"
	"github.com/ezrec/eira/mem"
)

// Cond is the condition register bitmask set by cmp.
type Cond uint8

const (
	COND_EQ    = Cond(1 << 0) // Equal.
	COND_NEQ   = Cond(1 << 1) // Not equal.
	COND_ZERO  = Cond(1 << 2) // Difference is zero.
	COND_NZERO = Cond(1 << 3) // Difference is not zero. Never set by cmp.
	COND_GR    = Cond(1 << 4) // Destination greater than source.
	COND_LE    = Cond(1 << 5) // Destination less than source.
	COND_UNDEF = Cond(1 << 6) // No comparison since the last branch.
)

// String returns the flags of the condition register.
func (cr Cond) String() (text string) {
	names := []string{"eq", "neq", "zero", "nzero", "gr", "le", "undef"}
	for n, name := range names {
		if cr&(1<<n) == 0 {
			continue
		}
		if len(text) > 0 {
			text += "|"
		}
		text += name
	}
	if len(text) == 0 {
		text = "-"
	}
	return
}

// Width is the operand width of a mnemonic, in bytes.
type Width int

const (
	WIDTH_BYTE = Width(1)
	WIDTH_INT  = Width(2)
)

func (w Width) mask() uint16 {
	if w == WIDTH_BYTE {
		return 0xff
	}
	return 0xffff
}

// DBG_HISTORY is the number of executed instructions kept in debug mode.
const DBG_HISTORY = 8

// Cpu is the simulation context of the central processor.
type Cpu struct {
	Verbose bool          // Set to log every executed instruction.
	Debug   bool          // Set to keep an instruction history.
	Log     *logrus.Entry // Logger for diagnostics.

	Ram     *mem.Ram       // Attached memory.
	Control *actor.Control // Reset barrier and halt flag of the current boot.
	Mclk    int            // Master clock, in instructions per second.

	Registers Registers // General purpose registers.
	Pc        uint32    // Address of the executing instruction.
	Cr        Cond      // Condition register.
	Exception Exception // Faults raised by the executing instruction.

	Request   Code // Display instruction forwarded to the VDC.
	Requested bool // Set when Request is valid for this cycle.

	Faults  []*Fault              // Peripheral fault cells collected each cycle.
	Forward func(code Code) error // Display request sink.

	Ticks int // Executed instruction count.

	history      [DBG_HISTORY]historyEntry
	historyIndex int
}

type historyEntry struct {
	pc   uint32
	code Code
}

// NewCpu creates a new CPU attached to ram.
func NewCpu(ram *mem.Ram) (cpu *Cpu) {
	cpu = &Cpu{
		Ram:     ram,
		Control: actor.NewControl(),
		Log:     logrus.NewEntry(logrus.StandardLogger()).WithField("component", "cpu"),
	}

	cpu.Reset(mem.MEM_START_ROM)

	return
}

// Reset the CPU state so the next instruction executes at vector.
func (cpu *Cpu) Reset(vector uint32) {
	if cpu.Verbose {
		cpu.Log.Debugf("reset to 0x%04x", vector)
	}

	cpu.Registers.Reset()
	cpu.Pc = vector - CODE_SIZE
	cpu.Cr = COND_UNDEF
	cpu.Exception = EXC_NONE
	cpu.Request = 0
	cpu.Requested = false
	cpu.Ticks = 0
	cpu.history = [DBG_HISTORY]historyEntry{}
	cpu.historyIndex = 0
}

// Halt stops the machine.
func (cpu *Cpu) Halt() {
	cpu.Control.Halt()
}

// Halted returns true once the machine has halted.
func (cpu *Cpu) Halted() bool {
	return cpu.Control.Halted()
}

// Register returns the value of a general purpose register.
func (cpu *Cpu) Register(index int) (value uint16, err error) {
	return cpu.Registers.Get(index)
}

func (cpu *Cpu) raise(exc Exception) {
	cpu.Exception |= exc
}

// setRegister writes a register, raising EXC_REG for a bad index.
func (cpu *Cpu) setRegister(index int, value uint16) (ok bool) {
	err := cpu.Registers.Set(index, value)
	if err != nil {
		cpu.raise(EXC_REG)
		return
	}

	ok = true
	return
}

// Tick executes a single CPU instruction cycle, and returns the faults it raised.
func (cpu *Cpu) Tick() (exc Exception) {
	cpu.Exception = EXC_NONE
	cpu.Requested = false

	cpu.Pc += CODE_SIZE
	if cpu.Pc >= mem.RAM_SIZE-(CODE_SIZE-1) {
		cpu.raise(EXC_PRG)
		return cpu.Exception
	}

	word, err := cpu.Ram.Long(cpu.Pc)
	if err != nil {
		cpu.raise(EXC_PRG)
		return cpu.Exception
	}

	code := Code(word)
	if cpu.Debug {
		cpu.history[cpu.historyIndex] = historyEntry{pc: cpu.Pc, code: code}
		cpu.historyIndex = (cpu.historyIndex + 1) % DBG_HISTORY
	}

	cpu.Execute(code)
	cpu.Ticks++

	return cpu.Exception
}

// operand is a resolved mnemonic: the destination and the source value.
type operand struct {
	reg   int    // Destination register, or -1 for memory.
	addr  uint32 // Destination address when reg is -1.
	value uint16 // Source value, masked to the width.
}

// decodeMnemonic resolves the destination and source of a two operand
// instruction. It returns false if a fault was raised.
func (cpu *Cpu) decodeMnemonic(instr Instruction, width Width) (op operand, ok bool) {
	switch {
	case instr.Mode&OP_DST_REG != 0:
		op.reg = instr.Reg
		switch {
		case instr.Mode&OP_SRC_REG != 0:
			value, err := cpu.Registers.Get(int(instr.Operand))
			if err != nil {
				cpu.raise(EXC_REG)
				return
			}
			op.value = value
		case instr.Mode&OP_SRC_MEM != 0:
			value, err := cpu.load(uint32(instr.Operand), width)
			if err != nil {
				cpu.raise(EXC_MEM)
				return
			}
			op.value = value
		default:
			op.value = instr.Operand
		}
	case instr.Mode&OP_DST_MEM != 0:
		addr := uint32(instr.Operand)
		if !mem.Writable(addr) || !mem.Writable(addr+uint32(width)-1) {
			cpu.raise(EXC_MEM)
			return
		}
		op.reg = -1
		op.addr = addr
		op.value, _ = cpu.Registers.Get(instr.Reg)
	default:
		cpu.raise(EXC_INSTR)
		return
	}

	op.value &= width.mask()
	ok = true
	return
}

func (cpu *Cpu) load(addr uint32, width Width) (value uint16, err error) {
	if width == WIDTH_BYTE {
		var b uint8
		b, err = cpu.Ram.Byte(addr)
		value = uint16(b)
		return
	}
	return cpu.Ram.Word(addr)
}

// destination returns the current value of the operand destination.
func (cpu *Cpu) destination(op operand, width Width) (value uint16, ok bool) {
	var err error
	if op.reg >= 0 {
		value, err = cpu.Registers.Get(op.reg)
	} else {
		value, err = cpu.load(op.addr, width)
	}
	if err != nil {
		cpu.raise(EXC_MEM)
		return
	}

	ok = true
	return
}

// store writes value to the operand destination. Register destinations
// hold 16 bits, memory destinations hold the operand width.
func (cpu *Cpu) store(op operand, value uint16, width Width) {
	if op.reg >= 0 {
		cpu.setRegister(op.reg, value)
		return
	}

	var err error
	switch {
	case width == WIDTH_BYTE:
		err = cpu.Ram.SetByte(op.addr, uint8(value))
	default:
		err = cpu.Ram.SetWord(op.addr, value)
	}
	if err != nil {
		cpu.raise(EXC_MEM)
	}
}

// branchTarget resolves a branch operand to an address.
func (cpu *Cpu) branchTarget(instr Instruction) (target uint32, ok bool) {
	target = uint32(instr.Operand)
	if target >= mem.MEM_START_ROM {
		ok = true
		return
	}

	value, err := cpu.Registers.Get(int(target))
	if err != nil {
		cpu.raise(EXC_INSTR)
		return
	}

	target = uint32(value)
	ok = true
	return
}

func (cpu *Cpu) jump(target uint32) {
	cpu.Pc = target - CODE_SIZE
}

func (cpu *Cpu) compare(instr Instruction) {
	cpu.Cr = COND_UNDEF

	op, ok := cpu.decodeMnemonic(instr, WIDTH_INT)
	if !ok {
		return
	}
	dst, ok := cpu.destination(op, WIDTH_INT)
	if !ok {
		return
	}

	// cmp a, b orders a against b.
	delta := int(dst) - int(op.value)
	switch {
	case delta == 0:
		cpu.Cr = COND_EQ | COND_ZERO
	case delta > 0:
		cpu.Cr = COND_GR | COND_NEQ
	default:
		cpu.Cr = COND_LE | COND_NEQ
	}
}

func (cpu *Cpu) arith(instr Instruction, negate bool) {
	op, ok := cpu.decodeMnemonic(instr, WIDTH_BYTE)
	if !ok {
		return
	}
	dst, ok := cpu.destination(op, WIDTH_BYTE)
	if !ok {
		return
	}

	value := op.value
	if negate {
		value = -value
	}
	cpu.store(op, dst+value, WIDTH_BYTE)
}

// Execute executes a single instruction word.
func (cpu *Cpu) Execute(code Code) {
	instr := code.Decode()

	if cpu.Verbose {
		cpu.Log.WithFields(logrus.Fields{
			"pc":   fmt.Sprintf("0x%04x", cpu.Pc),
			"word": fmt.Sprintf("0x%08x", uint32(code)),
		}).Debug(code.String())
	}

	switch instr.Op {
	case OP_HALT:
		cpu.Halt()
	case OP_NOP:
	case OP_MOV, OP_MOVI:
		width := WIDTH_BYTE
		if instr.Op == OP_MOVI {
			width = WIDTH_INT
		}
		op, ok := cpu.decodeMnemonic(instr, width)
		if ok {
			cpu.store(op, op.value, width)
		}
	case OP_ADD:
		cpu.arith(instr, false)
	case OP_SUB:
		cpu.arith(instr, true)
	case OP_MOVMR:
		addr, err := cpu.Registers.Get(int(instr.Operand))
		if err != nil {
			cpu.raise(EXC_REG)
			return
		}
		value, err := cpu.Ram.Byte(uint32(addr))
		if err != nil {
			cpu.raise(EXC_MEM)
			return
		}
		cpu.setRegister(instr.Reg, uint16(value))
	case OP_JMP:
		if target, ok := cpu.branchTarget(instr); ok {
			cpu.jump(target)
		}
	case OP_CMP:
		cpu.compare(instr)
	case OP_BREQ, OP_BRNEQ:
		target, ok := cpu.branchTarget(instr)
		if !ok {
			return
		}
		want := COND_EQ
		if instr.Op == OP_BRNEQ {
			want = COND_NEQ
		}
		if cpu.Cr&want != 0 {
			cpu.jump(target)
		}
		cpu.Cr = COND_UNDEF
	case OP_STOPC:
		cpu.setRegister(instr.Reg, uint16(cpu.Pc))
	case OP_RST:
		cpu.raise(EXC_PRG)
	case OP_DIWAIT, OP_DICLR, OP_DIMD, OP_DIWTRT, OP_DISETXY, OP_DICHAR, OP_DIPUTPIXEL:
		cpu.Request = code
		cpu.Requested = true
	default:
		cpu.raise(EXC_INSTR)
	}
}

// collect aggregates the peripheral faults into exc.
func (cpu *Cpu) collect(exc Exception) Exception {
	for _, fault := range cpu.Faults {
		exc |= fault.Take()
	}
	return exc
}

// HandleException logs the faults and halts the machine.
func (cpu *Cpu) HandleException(exc Exception) {
	cpu.raise(exc)

	entry := cpu.Log.WithFields(logrus.Fields{
		"pc":        cpu.Pc,
		"exception": cpu.Exception.String(),
	})
	msg := f("!! %v [pc: %v]", cpu.Exception.Error(), strconv.FormatUint(uint64(cpu.Pc), 10))
	if cpu.Exception == EXC_SHUTDOWN {
		entry.Info(msg)
	} else {
		entry.Error(msg)
	}

	if cpu.Debug {
		for _, line := range cpu.History() {
			entry.Error(line)
		}
	}

	cpu.Halt()
}

// History returns the most recently executed instructions, oldest first.
// It is empty unless Debug is set.
func (cpu *Cpu) History() (lines []string) {
	for n := range DBG_HISTORY {
		entry := cpu.history[(cpu.historyIndex+n)%DBG_HISTORY]
		if entry.code == 0 && entry.pc == 0 {
			continue
		}
		lines = append(lines, fmt.Sprintf("%04x: %v", entry.pc, entry.code))
	}
	return
}

// Run is the CPU actor. It executes one instruction per master clock
// tick until the machine halts, and returns the faults that stopped it.
func (cpu *Cpu) Run() (err error) {
	pace := actor.Pace{Hz: cpu.Mclk}

	for cpu.Control.Park() {
		exc := cpu.Tick()

		if cpu.Requested {
			if cpu.Forward == nil || cpu.Forward(cpu.Request) != nil {
				exc |= EXC_DISP
			}
		}

		exc = cpu.collect(exc)
		if exc != EXC_NONE {
			cpu.HandleException(exc)
			word, _ := cpu.Ram.Long(cpu.Pc)
			err = &ErrFault{Pc: cpu.Pc, Code: Code(word), Exception: cpu.Exception}
			return
		}

		if !pace.Wait(cpu.Control.Done()) {
			break
		}
	}

	return
}

// String returns the current CPU state as a string.
func (cpu *Cpu) String() (text string) {
	text += fmt.Sprintf("%5s: %04x\n", "pc", cpu.Pc)
	text += fmt.Sprintf("%5s: %v\n", "cr", cpu.Cr)
	for n, value := range cpu.Registers.Values() {
		text += fmt.Sprintf("%5s: %04x\n", fmt.Sprintf("r%d", n), value)
	}
	text += fmt.Sprintf("%5s: %v\n", "exc", cpu.Exception)

	return
}
