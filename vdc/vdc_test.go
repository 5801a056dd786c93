package vdc

import (
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"

	"github.com/ezrec/eira/cpu"
	"github.com/ezrec/eira/display"
	"github.com/ezrec/eira/mem"
)

func newTestVdc() (vdc *Vdc, regs *cpu.Registers, buf *display.Buffer) {
	ram := mem.NewRam()
	regs = &cpu.Registers{}
	buf = &display.Buffer{}

	vdc = NewVdc(ram, regs, buf)
	logger, _ := test.NewNullLogger()
	vdc.Log = logrus.NewEntry(logger)

	return
}

func TestQueue(t *testing.T) {
	assert := assert.New(t)

	var q Queue

	assert.Equal(cpu.Code(cpu.OP_DIWAIT), q.Pop())

	for n := range INSTR_LIST_SIZE {
		assert.NoError(q.Push(cpu.MakeDisplayImm(cpu.OP_DICHAR, uint8(n))))
	}
	assert.ErrorIs(q.Push(cpu.MakeDisplayImm(cpu.OP_DICHAR, 0xff)), ErrQueueFull)
	assert.Equal(INSTR_LIST_SIZE, q.Len())

	for n := range INSTR_LIST_SIZE {
		assert.Equal(cpu.MakeDisplayImm(cpu.OP_DICHAR, uint8(n)), q.Pop())
	}
	assert.Equal(0, q.Len())
	assert.Equal(cpu.Code(cpu.OP_DIWAIT), q.Pop())

	assert.NoError(q.Push(cpu.MakeDisplayMode(0)))
	q.Reset()
	assert.Equal(0, q.Len())
}

func TestQueueConcurrent(t *testing.T) {
	assert := assert.New(t)

	var q Queue
	var wg sync.WaitGroup
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 8 {
				_ = q.Push(cpu.MakeDisplayImm(cpu.OP_DICHAR, 'x'))
			}
		}()
	}
	wg.Wait()

	assert.Equal(INSTR_LIST_SIZE, q.Len())
}

func TestMode(t *testing.T) {
	assert := assert.New(t)

	vdc, _, buf := newTestVdc()

	mode, enabled, _, _ := vdc.State()
	assert.Equal(MODE_40X12, mode)
	assert.False(enabled)

	// A disabled adapter refuses to clear.
	assert.Equal(cpu.EXC_DISP, vdc.Execute(cpu.Make(cpu.OP_DICLR, 0, 0, 0)))

	assert.Equal(cpu.EXC_NONE, vdc.Execute(cpu.MakeDisplayMode(1)))
	mode, enabled, x, y := vdc.State()
	assert.Equal(MODE_80X25, mode)
	assert.True(enabled)
	assert.Equal(0, x)
	assert.Equal(0, y)

	cols, rows, pixel := buf.Size()
	assert.Equal(80, cols)
	assert.Equal(25, rows)
	assert.False(pixel)

	value, err := vdc.Ram.Byte(mem.MEM_START_VDC_FB + 80*25 - 1)
	assert.NoError(err)
	assert.Equal(uint8(' '), value)

	assert.Equal(cpu.EXC_DISP, vdc.Execute(cpu.MakeDisplayMode(3)))
	mode, _, _, _ = vdc.State()
	assert.Equal(MODE_80X25, mode)
}

func TestText(t *testing.T) {
	assert := assert.New(t)

	vdc, regs, buf := newTestVdc()

	assert.NoError(regs.Set(1, 2))
	assert.NoError(regs.Set(2, 3))
	assert.NoError(regs.Set(3, 'r'))
	assert.NoError(regs.Set(4, 0x2000))
	assert.NoError(vdc.Ram.SetByte(0x2000, 'a'))
	assert.NoError(vdc.Ram.SetByte(0x2001, '!'))

	program := []cpu.Code{
		cpu.MakeDisplayMode(0),
		cpu.MakeSetXY(1, 2),
		cpu.MakeDisplayImm(cpu.OP_DICHAR, 'e'),
	}
	for _, code := range program {
		assert.Equal(cpu.EXC_NONE, vdc.Execute(code), code.String())
	}

	assert.NoError(regs.Set(1, 3))
	assert.Equal(cpu.EXC_NONE, vdc.Execute(cpu.MakeSetXY(1, 2)))
	assert.Equal(cpu.EXC_NONE, vdc.Execute(cpu.MakeDisplayReg(cpu.OP_DICHAR, 3)))

	assert.NoError(regs.Set(1, 4))
	assert.Equal(cpu.EXC_NONE, vdc.Execute(cpu.MakeSetXY(1, 2)))
	assert.Equal(cpu.EXC_NONE, vdc.Execute(cpu.MakeDisplayMem(cpu.OP_DICHAR, 4)))

	assert.NoError(regs.Set(1, 5))
	assert.Equal(cpu.EXC_NONE, vdc.Execute(cpu.MakeSetXY(1, 2)))
	assert.Equal(cpu.EXC_NONE, vdc.Execute(cpu.MakeDisplayMem(cpu.OP_DICHAR, 0x2001)))

	value, err := vdc.Ram.Byte(mem.MEM_START_VDC_FB + 3*40 + 2)
	assert.NoError(err)
	assert.Equal(uint8('e'), value)

	assert.NoError(vdc.Retrace())
	assert.Equal("  era!", buf.Line(3))
	assert.Equal(1, buf.Frames())
}

func TestTextFaults(t *testing.T) {
	assert := assert.New(t)

	vdc, regs, _ := newTestVdc()

	// Display instructions on a disabled adapter.
	assert.Equal(cpu.EXC_DISP, vdc.Execute(cpu.MakeDisplayImm(cpu.OP_DICHAR, 'x')))
	assert.Equal(cpu.EXC_DISP, vdc.Execute(cpu.MakeSetXY(1, 0)))
	_, _, x, y := vdc.State()
	assert.Equal(0, x)
	assert.Equal(0, y)

	assert.Equal(cpu.EXC_NONE, vdc.Execute(cpu.MakeDisplayMode(0)))

	// Cursor outside of the plane.
	assert.NoError(regs.Set(1, 40))
	assert.Equal(cpu.EXC_NONE, vdc.Execute(cpu.MakeSetXY(1, 0)))
	assert.Equal(cpu.EXC_DISP, vdc.Execute(cpu.MakeDisplayImm(cpu.OP_DICHAR, 'x')))

	// Bad register indexes.
	assert.Equal(cpu.EXC_REG, vdc.Execute(cpu.MakeSetXY(16, 0)))
	assert.Equal(cpu.EXC_REG, vdc.Execute(cpu.MakeDisplayReg(cpu.OP_DICHAR, 17)))
	assert.Equal(cpu.EXC_REG, vdc.Execute(cpu.MakeDisplayMem(cpu.OP_DICHAR, 0x20)))

	// diputpixel is for pixel mode only.
	assert.NoError(regs.Set(1, 0))
	assert.Equal(cpu.EXC_NONE, vdc.Execute(cpu.MakeSetXY(1, 0)))
	assert.Equal(cpu.EXC_DISP, vdc.Execute(cpu.MakeDisplayImm(cpu.OP_DIPUTPIXEL, 1)))

	// CPU opcodes are not display instructions.
	assert.Equal(cpu.EXC_DISP, vdc.Execute(cpu.Make(cpu.OP_NOP, 0, 0, 0)))
}

func TestPixel(t *testing.T) {
	assert := assert.New(t)

	vdc, regs, buf := newTestVdc()

	assert.Equal(cpu.EXC_NONE, vdc.Execute(cpu.MakeDisplayMode(2)))
	assert.NoError(regs.Set(1, 639))
	assert.NoError(regs.Set(2, 479))
	assert.Equal(cpu.EXC_NONE, vdc.Execute(cpu.MakeSetXY(1, 2)))
	assert.Equal(cpu.EXC_NONE, vdc.Execute(cpu.MakeDisplayImm(cpu.OP_DIPUTPIXEL, 0x3c)))

	value, ok := vdc.Pixel(639, 479)
	assert.True(ok)
	assert.Equal(byte(0x3c), value)

	assert.Equal(cpu.EXC_DISP, vdc.Execute(cpu.MakeDisplayImm(cpu.OP_DICHAR, 'x')))

	assert.NoError(vdc.Retrace())
	assert.Equal(byte(0x3c), buf.Cell(639, 479))

	assert.Equal(cpu.EXC_NONE, vdc.Execute(cpu.Make(cpu.OP_DICLR, 0, 0, 0)))
	value, _ = vdc.Pixel(639, 479)
	assert.Equal(byte(0), value)
}

func TestStep(t *testing.T) {
	assert := assert.New(t)

	vdc, _, _ := newTestVdc()

	assert.Equal(cpu.EXC_NONE, vdc.Step())

	assert.NoError(vdc.Push(cpu.MakeDisplayMode(7)))
	assert.Equal(cpu.EXC_DISP, vdc.Step())
	assert.Equal(cpu.EXC_DISP, vdc.Fault.Take())

	vdc.Fault.Raise(cpu.EXC_DISP)
	assert.NoError(vdc.Push(cpu.MakeDisplayMode(0)))
	vdc.Reset()
	assert.Equal(0, vdc.Queue.Len())
	assert.Equal(cpu.EXC_NONE, vdc.Fault.Load())
}

func TestRetraceDisabled(t *testing.T) {
	assert := assert.New(t)

	vdc, _, buf := newTestVdc()

	assert.NoError(vdc.Retrace())
	assert.Equal(0, buf.Frames())
	assert.Equal(cpu.EXC_DISP, vdc.Execute(cpu.Make(cpu.OP_DIWTRT, 0, 0, 0)))
}

func TestActors(t *testing.T) {
	assert := assert.New(t)

	vdc, regs, buf := newTestVdc()
	vdc.Mclk = 1000

	assert.NoError(regs.Set(1, 1))
	for _, code := range []cpu.Code{
		cpu.MakeDisplayMode(0),
		cpu.MakeSetXY(1, 1),
		cpu.MakeDisplayImm(cpu.OP_DICHAR, 'o'),
		cpu.Make(cpu.OP_DIWTRT, 0, 0, 0),
	} {
		assert.NoError(vdc.Push(code))
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_ = vdc.Run()
	}()
	go func() {
		defer wg.Done()
		_ = vdc.RunRender()
	}()

	vdc.Control.AwaitParked(2)
	vdc.Control.Release()

	assert.Eventually(func() bool {
		return buf.Line(1) == " o"
	}, time.Second, 5*time.Millisecond)

	vdc.Control.Halt()
	wg.Wait()

	assert.Equal(0, vdc.Queue.Len())
	assert.Equal(cpu.EXC_NONE, vdc.Fault.Load())
}
