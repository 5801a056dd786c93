package check

import (
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"

	"github.com/ezrec/eira/cpu"
	"github.com/ezrec/eira/mem"
	"github.com/ezrec/eira/prg"
)

func newTestChecker() (chk *Checker, hook *test.Hook) {
	chk = NewChecker()
	logger, hook := test.NewNullLogger()
	chk.Log = logrus.NewEntry(logger)
	return
}

// regressionSnapshot is the state the regression program leaves behind.
func regressionSnapshot() (snap *Snapshot) {
	snap = &Snapshot{
		Pc:    prg.RegressionStopc() + 4*cpu.CODE_SIZE,
		Ram:   make([]byte, mem.RAM_SIZE),
		Boots: 1,
	}

	snap.Registers[1] = 0xe4
	snap.Registers[2] = 0x1234
	snap.Registers[3] = 0x34
	snap.Registers[6] = 0xaa
	snap.Registers[8] = 0xaa
	snap.Registers[9] = 10
	snap.Registers[10] = 196
	snap.Registers[13] = uint16(prg.RegressionStopc())

	snap.Ram[prg.REGRESSION_DATA] = 0xaa
	snap.Ram[prg.REGRESSION_DATA+1] = 3
	snap.Ram[mem.MEM_IO_OUTPUT] = prg.REGRESSION_OUTPUT
	snap.Ram[mem.MEM_PRG_LOADING] = mem.PRG_LOADING_DONE

	return
}

func TestRegressionPasses(t *testing.T) {
	assert := assert.New(t)

	chk, _ := newTestChecker()
	assert.NoError(chk.Run("regression.star", Regression, regressionSnapshot()))
}

func TestRegressionFails(t *testing.T) {
	assert := assert.New(t)

	snap := regressionSnapshot()
	snap.Registers[9] = 9
	snap.Exception = cpu.EXC_DISP

	chk, _ := newTestChecker()
	err := chk.Run("regression.star", Regression, snap)

	var ec *ErrCheck
	assert.True(errors.As(err, &ec))
	assert.Equal("regression.star", ec.Script)
	assert.Len(ec.Failures, 2)
	assert.Contains(ec.Failures[0], "machine faulted")
	assert.Contains(ec.Failures[1], "count loop ran ten times")
}

func TestScript(t *testing.T) {
	assert := assert.New(t)

	snap := &Snapshot{Ram: []byte{0x34, 0x12}}
	snap.Registers[cpu.GP_REG_MAX] = 7

	table := [](struct {
		name   string
		script string
		ok     bool
	}){
		{"reg", "expect(reg(GP_REG_MAX) == 7)", true},
		{"ram", "expect(ram(1) == 0x12)", true},
		{"ramw", "expect(ramw(0) == 0x1234)", true},
		{"opcode", "expect(OP_DICHAR == 0xf5)", true},
		{"exception", "expect(EXC_SHUTDOWN == 64)", true},
		{"failed", "expect(reg(0) == 1, 'r0')", false},
		{"bad_reg", "reg(16)", false},
		{"bad_ram", "ram(2)", false},
		{"bad_ramw", "ramw(1)", false},
		{"syntax", "expect(", false},
	}

	for _, entry := range table {
		chk, _ := newTestChecker()
		err := chk.Run(entry.name, entry.script, snap)
		if entry.ok {
			assert.NoError(err, entry.name)
		} else {
			assert.Error(err, entry.name)
		}
	}
}

func TestPrint(t *testing.T) {
	assert := assert.New(t)

	chk, hook := newTestChecker()
	assert.NoError(chk.Run("print", "print('pc=%x' % pc)", &Snapshot{Pc: 0x1010}))
	assert.Equal("pc=1010", hook.LastEntry().Message)
}
