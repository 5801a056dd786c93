package cpu

import (
	"encoding/binary"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"

	"github.com/ezrec/eira/mem"
)

func newTestCpu(t *testing.T, program ...Code) (cpu *Cpu, hook *test.Hook) {
	ram := mem.NewRam()

	var data []byte
	for _, code := range program {
		data = binary.LittleEndian.AppendUint32(data, uint32(code))
	}
	err := ram.Write(mem.MEM_START_PRG, data)
	assert.NoError(t, err)

	cpu = NewCpu(ram)
	logger, hook := test.NewNullLogger()
	cpu.Log = logrus.NewEntry(logger)
	cpu.Reset(mem.MEM_START_PRG)

	return
}

func runTicks(cpu *Cpu, count int) (exc Exception) {
	for range count {
		exc = cpu.Tick()
		if exc != EXC_NONE {
			return
		}
	}
	return
}

func TestMove(t *testing.T) {
	assert := assert.New(t)

	table := [](struct {
		name    string
		program []Code
		reg     int
		value   uint16
	}){
		{"mov_imm_truncates", []Code{MakeRegImm(OP_MOV, 3, 0x1234)}, 3, 0x34},
		{"movi_imm", []Code{MakeRegImm(OP_MOVI, 2, 0x1234)}, 2, 0x1234},
		{"mov_reg_truncates", []Code{
			MakeRegImm(OP_MOVI, 1, 0xabcd),
			MakeRegReg(OP_MOV, 2, 1),
		}, 2, 0xcd},
		{"movi_reg", []Code{
			MakeRegImm(OP_MOVI, 1, 0xabcd),
			MakeRegReg(OP_MOVI, 2, 1),
		}, 2, 0xabcd},
		{"mov_mem_roundtrip", []Code{
			MakeRegImm(OP_MOV, 5, 0xaa),
			MakeMemReg(OP_MOV, 8192, 5),
			MakeRegMem(OP_MOV, 6, 8192),
		}, 6, 0xaa},
		{"movi_mem_roundtrip", []Code{
			MakeRegImm(OP_MOVI, 5, 0xbeef),
			MakeMemReg(OP_MOVI, 8192, 5),
			MakeRegMem(OP_MOVI, 6, 8192),
		}, 6, 0xbeef},
		{"movmr", []Code{
			MakeRegImm(OP_MOV, 5, 0x5a),
			MakeMemReg(OP_MOV, 0x3000, 5),
			MakeRegImm(OP_MOVI, 7, 0x3000),
			MakeMovmr(8, 7),
		}, 8, 0x5a},
		{"stopc", []Code{MakeRegImm(OP_MOV, 1, 1), MakeStopc(13)}, 13, mem.MEM_START_PRG + CODE_SIZE},
	}

	for _, entry := range table {
		cpu, _ := newTestCpu(t, entry.program...)

		exc := runTicks(cpu, len(entry.program))
		assert.Equal(EXC_NONE, exc, entry.name)

		value, err := cpu.Register(entry.reg)
		assert.NoError(err, entry.name)
		assert.Equal(entry.value, value, entry.name)
	}
}

func TestArith(t *testing.T) {
	assert := assert.New(t)

	table := [](struct {
		name    string
		program []Code
		reg     int
		value   uint16
	}){
		{"add_imm", []Code{MakeRegImm(OP_MOV, 10, 0xa0), MakeRegImm(OP_ADD, 10, 36)}, 10, 196},
		{"sub_imm", []Code{MakeRegImm(OP_MOV, 1, 0xff), MakeRegImm(OP_SUB, 1, 27)}, 1, 0xe4},
		{"add_wraps_16", []Code{MakeRegImm(OP_MOVI, 1, 0xffff), MakeRegImm(OP_ADD, 1, 1)}, 1, 0},
		{"add_above_byte", []Code{MakeRegImm(OP_MOV, 1, 0xff), MakeRegImm(OP_ADD, 1, 0xff)}, 1, 0x1fe},
		{"sub_wraps_16", []Code{MakeRegImm(OP_SUB, 1, 1)}, 1, 0xffff},
		{"add_reg", []Code{
			MakeRegImm(OP_MOV, 1, 3),
			MakeRegImm(OP_MOV, 2, 4),
			MakeRegReg(OP_ADD, 1, 2),
		}, 1, 7},
	}

	for _, entry := range table {
		cpu, _ := newTestCpu(t, entry.program...)

		exc := runTicks(cpu, len(entry.program))
		assert.Equal(EXC_NONE, exc, entry.name)

		value, err := cpu.Register(entry.reg)
		assert.NoError(err, entry.name)
		assert.Equal(entry.value, value, entry.name)
	}
}

func TestArithMemoryWrapsByte(t *testing.T) {
	assert := assert.New(t)

	cpu, _ := newTestCpu(t,
		MakeRegImm(OP_MOV, 1, 0xf0),
		MakeMemReg(OP_MOV, 0x2000, 1),
		MakeRegImm(OP_MOV, 2, 0x20),
		MakeMemReg(OP_ADD, 0x2000, 2),
	)

	assert.Equal(EXC_NONE, runTicks(cpu, 4))

	value, err := cpu.Ram.Byte(0x2000)
	assert.NoError(err)
	assert.Equal(uint8(0x10), value)

	next, err := cpu.Ram.Byte(0x2001)
	assert.NoError(err)
	assert.Equal(uint8(0), next)
}

func TestFaults(t *testing.T) {
	assert := assert.New(t)

	table := [](struct {
		name    string
		program []Code
		exc     Exception
	}){
		{"mem_dst_readonly", []Code{MakeRegImm(OP_MOV, 1, 1), MakeMemReg(OP_MOV, 0x3ff, 1)}, EXC_MEM},
		{"mem_dst_rom", []Code{MakeMemReg(OP_MOV, mem.MEM_START_ROM, 1)}, EXC_MEM},
		{"mem_src_beyond", []Code{MakeRegMem(OP_MOVI, 1, 0xffff)}, EXC_MEM},
		{"movi_word_straddles_end", []Code{MakeMemReg(OP_MOVI, 0xfffe, 1)}, EXC_MEM},
		{"reg_src_invalid", []Code{MakeRegReg(OP_MOV, 1, 16)}, EXC_REG},
		{"movmr_src_invalid", []Code{MakeMovmr(1, 20)}, EXC_REG},
		{"no_destination", []Code{Make(OP_MOV, 1, 0, 5)}, EXC_INSTR},
		{"jmp_bad_register", []Code{MakeBranch(OP_JMP, 0x50)}, EXC_INSTR},
		{"unknown_opcode", []Code{Code(0x7f)}, EXC_INSTR},
		{"rst", []Code{Make(OP_RST, 0, 0, 0)}, EXC_PRG},
	}

	for _, entry := range table {
		cpu, _ := newTestCpu(t, entry.program...)

		before := cpu.Ram.Snapshot()
		exc := runTicks(cpu, len(entry.program))
		assert.Equal(entry.exc, exc, entry.name)
		assert.True(errors.Is(exc, entry.exc), entry.name)
		assert.Equal(before, cpu.Ram.Snapshot(), entry.name)
	}
}

func TestCompare(t *testing.T) {
	assert := assert.New(t)

	table := [](struct {
		name  string
		value uint16
		with  uint16
		cr    Cond
	}){
		{"equal", 5, 5, COND_EQ | COND_ZERO},
		{"less", 3, 5, COND_LE | COND_NEQ},
		{"greater", 7, 5, COND_GR | COND_NEQ},
		{"less_wide", 0x00ff, 0x0100, COND_LE | COND_NEQ},
		{"wide", 0x1234, 0x1234, COND_EQ | COND_ZERO},
	}

	for _, entry := range table {
		cpu, _ := newTestCpu(t,
			MakeRegImm(OP_MOVI, 1, entry.value),
			MakeRegImm(OP_CMP, 1, entry.with),
		)

		assert.Equal(EXC_NONE, runTicks(cpu, 2), entry.name)
		assert.Equal(entry.cr, cpu.Cr, entry.name)
	}
}

func TestBranch(t *testing.T) {
	assert := assert.New(t)

	// Count r9 up to 10.
	cpu, _ := newTestCpu(t,
		MakeRegImm(OP_MOV, 9, 0),
		MakeRegImm(OP_ADD, 9, 1),
		MakeRegImm(OP_CMP, 9, 10),
		MakeBranch(OP_BRNEQ, mem.MEM_START_PRG+CODE_SIZE),
		Make(OP_HALT, 0, 0, 0),
	)

	for !cpu.Halted() {
		assert.Equal(EXC_NONE, cpu.Tick())
		if cpu.Ticks > 100 {
			break
		}
	}

	value, _ := cpu.Register(9)
	assert.Equal(uint16(10), value)
	assert.Equal(COND_UNDEF, cpu.Cr)
	assert.Equal(1+10*3+1, cpu.Ticks)
}

func TestBranchResetsCondition(t *testing.T) {
	assert := assert.New(t)

	cpu, _ := newTestCpu(t,
		MakeRegImm(OP_CMP, 1, 0),
		MakeBranch(OP_BRNEQ, mem.MEM_START_PRG),
		MakeBranch(OP_BREQ, mem.MEM_START_PRG),
	)

	assert.Equal(EXC_NONE, runTicks(cpu, 2))
	assert.Equal(COND_UNDEF, cpu.Cr)
	assert.Equal(uint32(mem.MEM_START_PRG+CODE_SIZE), cpu.Pc)

	// A branch with no comparison since the last branch is not taken.
	assert.Equal(EXC_NONE, runTicks(cpu, 1))
	assert.Equal(uint32(mem.MEM_START_PRG+2*CODE_SIZE), cpu.Pc)
}

func TestJump(t *testing.T) {
	assert := assert.New(t)

	cpu, _ := newTestCpu(t, MakeBranch(OP_JMP, 0x1010))
	assert.Equal(EXC_NONE, runTicks(cpu, 1))
	assert.Equal(uint32(0x1010-CODE_SIZE), cpu.Pc)

	cpu, _ = newTestCpu(t,
		MakeRegImm(OP_MOVI, 4, 0x1008),
		MakeBranch(OP_JMP, 4),
	)
	assert.Equal(EXC_NONE, runTicks(cpu, 2))
	assert.Equal(uint32(0x1008-CODE_SIZE), cpu.Pc)
}

func TestHalt(t *testing.T) {
	assert := assert.New(t)

	cpu, _ := newTestCpu(t, Make(OP_NOP, 0, 0, 0), Make(OP_HALT, 0, 0, 0))

	assert.Equal(EXC_NONE, cpu.Tick())
	assert.False(cpu.Halted())
	assert.Equal(EXC_NONE, cpu.Tick())
	assert.True(cpu.Halted())
}

func TestStrayProgram(t *testing.T) {
	assert := assert.New(t)

	cpu, _ := newTestCpu(t)
	cpu.Reset(mem.RAM_SIZE - CODE_SIZE + 1)

	assert.Equal(EXC_PRG, cpu.Tick())
}

func TestDisplayRequest(t *testing.T) {
	assert := assert.New(t)

	cpu, _ := newTestCpu(t, MakeDisplayMode(1), Make(OP_NOP, 0, 0, 0))

	assert.Equal(EXC_NONE, cpu.Tick())
	assert.True(cpu.Requested)
	assert.Equal(MakeDisplayMode(1), cpu.Request)

	assert.Equal(EXC_NONE, cpu.Tick())
	assert.False(cpu.Requested)
}

func TestRun(t *testing.T) {
	assert := assert.New(t)

	var forwarded []Code
	cpu, _ := newTestCpu(t,
		MakeDisplayImm(OP_DICHAR, 'A'),
		Make(OP_HALT, 0, 0, 0),
	)
	cpu.Forward = func(code Code) error {
		forwarded = append(forwarded, code)
		return nil
	}
	cpu.Control.Release()

	err := cpu.Run()
	assert.NoError(err)
	assert.Equal([]Code{MakeDisplayImm(OP_DICHAR, 'A')}, forwarded)
	assert.True(cpu.Halted())
}

func TestRunFault(t *testing.T) {
	assert := assert.New(t)

	table := [](struct {
		name    string
		forward func(Code) error
		raise   Exception
		exc     Exception
	}){
		{"queue_full", func(Code) error { return errors.New("full") }, EXC_NONE, EXC_DISP},
		{"no_display", nil, EXC_NONE, EXC_DISP},
		{"peripheral", func(Code) error { return nil }, EXC_IOPORT, EXC_IOPORT},
		{"shutdown", func(Code) error { return nil }, EXC_SHUTDOWN, EXC_SHUTDOWN},
	}

	for _, entry := range table {
		cpu, hook := newTestCpu(t,
			MakeDisplayImm(OP_DICHAR, 'A'),
			Make(OP_HALT, 0, 0, 0),
		)
		cpu.Forward = entry.forward

		fault := &Fault{}
		fault.Raise(entry.raise)
		cpu.Faults = []*Fault{fault}
		cpu.Control.Release()

		err := cpu.Run()
		assert.True(errors.Is(err, entry.exc), entry.name)
		assert.Equal(entry.exc, cpu.Exception, entry.name)
		assert.True(cpu.Halted(), entry.name)

		var fe *ErrFault
		assert.True(errors.As(err, &fe), entry.name)
		assert.Equal(uint32(mem.MEM_START_PRG), fe.Pc, entry.name)

		if assert.NotNil(hook.LastEntry(), entry.name) {
			assert.Contains(hook.LastEntry().Message, "[pc: 4096]", entry.name)
		}
	}
}

func TestRunHaltedBeforeRelease(t *testing.T) {
	assert := assert.New(t)

	cpu, _ := newTestCpu(t, Make(OP_NOP, 0, 0, 0))
	cpu.Halt()

	assert.NoError(cpu.Run())
	assert.Equal(0, cpu.Ticks)
}

func TestHistory(t *testing.T) {
	assert := assert.New(t)

	cpu, _ := newTestCpu(t, Make(OP_NOP, 0, 0, 0), MakeRegImm(OP_MOV, 1, 2))
	assert.Empty(cpu.History())

	cpu.Debug = true
	assert.Equal(EXC_NONE, runTicks(cpu, 2))
	assert.Equal([]string{"1000: nop", "1004: mov r1, #0x2"}, cpu.History())
}

func TestString(t *testing.T) {
	assert := assert.New(t)

	cpu, _ := newTestCpu(t, MakeRegImm(OP_MOVI, 15, 0xbeef))
	assert.Equal(EXC_NONE, runTicks(cpu, 1))

	text := cpu.String()
	assert.Contains(text, "  r15: beef\n")
	assert.Contains(text, "   pc: 1000\n")
}

func TestSetRegister(t *testing.T) {
	assert := assert.New(t)

	cpu, _ := newTestCpu(t,
		MakeStopc(GP_REG_MAX),
		MakeRegImm(OP_MOVI, 7, 0x2000),
		MakeMovmr(GP_REG_MAX-1, 7),
	)
	assert.NoError(cpu.Ram.SetByte(0x2000, 0x5a))

	assert.Equal(EXC_NONE, runTicks(cpu, 3))
	regs := cpu.Registers.Values()
	assert.Equal(uint16(mem.MEM_START_PRG), regs[GP_REG_MAX])
	assert.Equal(uint16(0x5a), regs[GP_REG_MAX-1])

	assert.False(cpu.setRegister(GP_REG_COUNT, 1))
	assert.Equal(EXC_REG, cpu.Exception)
	assert.Equal(regs, cpu.Registers.Values())
}
