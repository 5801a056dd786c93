// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

// Package vdc implements the video display controller, a co-processor that
// executes the display instructions forwarded by the CPU.
//
// Text modes render the character framebuffer in RAM at MEM_START_VDC_FB.
// The pixel mode does not fit in RAM, so its plane is owned by the VDC.
package vdc

import (
	"slices"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/ezrec/eira/actor"
	"github.com/ezrec/eira/cpu"
	"github.com/ezrec/eira/display"
	"github.com/ezrec/eira/mem"
)

// DISPLAY_FRAME_RATE is the retrace rate, in Hz.
const DISPLAY_FRAME_RATE = 100

// Mode is a display adapter mode.
type Mode int

const (
	MODE_40X12   = Mode(0) // 40x12 text
	MODE_80X25   = Mode(1) // 80x25 text
	MODE_640X480 = Mode(2) // 640x480 pixels
)

type geometry struct {
	cols  int
	rows  int
	pixel bool
}

var _modes = map[Mode]geometry{
	MODE_40X12:   {40, 12, false},
	MODE_80X25:   {80, 25, false},
	MODE_640X480: {640, 480, true},
}

// Size returns the plane geometry of the mode.
func (mode Mode) Size() (cols, rows int, pixel bool, ok bool) {
	geo, ok := _modes[mode]
	return geo.cols, geo.rows, geo.pixel, ok
}

// Vdc is the video display controller.
type Vdc struct {
	Verbose bool
	Log     *logrus.Entry

	Ram       *mem.Ram       // Memory holding the text framebuffer.
	Registers *cpu.Registers // CPU registers, read by disetxy and register operands.
	Sink      display.Sink   // Output device.
	Control   *actor.Control // Reset barrier and halt flag of the current boot.
	Mclk      int            // Master clock; instructions execute at twice this rate.

	Queue Queue     // Instructions forwarded by the CPU.
	Fault cpu.Fault // Faults collected by the CPU.

	mu       sync.Mutex
	retraced *sync.Cond
	mode     Mode
	enabled  bool
	refresh  bool
	x, y     int
	pixels   []byte

	sinkMu sync.Mutex
}

// NewVdc creates a disabled VDC in 40x12 text mode.
func NewVdc(ram *mem.Ram, regs *cpu.Registers, sink display.Sink) (vdc *Vdc) {
	if sink == nil {
		sink = display.Null{}
	}

	vdc = &Vdc{
		Ram:       ram,
		Registers: regs,
		Sink:      sink,
		Control:   actor.NewControl(),
		Log:       logrus.NewEntry(logrus.StandardLogger()).WithField("component", "vdc"),
	}
	vdc.retraced = sync.NewCond(&vdc.mu)

	vdc.Reset()

	return
}

// Reset empties the queue and disables the adapter in 40x12 text mode.
func (vdc *Vdc) Reset() {
	vdc.mu.Lock()
	vdc.mode = MODE_40X12
	vdc.enabled = false
	vdc.refresh = false
	vdc.x = 0
	vdc.y = 0
	vdc.pixels = nil
	vdc.retraced.Broadcast()
	vdc.mu.Unlock()

	vdc.Queue.Reset()
	vdc.Fault.Take()
}

// Push queues a display instruction from the CPU.
func (vdc *Vdc) Push(code cpu.Code) error {
	return vdc.Queue.Push(code)
}

// State returns the adapter mode, enable flag and cursor.
func (vdc *Vdc) State() (mode Mode, enabled bool, x, y int) {
	vdc.mu.Lock()
	defer vdc.mu.Unlock()

	return vdc.mode, vdc.enabled, vdc.x, vdc.y
}

// Pixel returns a cell of the pixel plane.
func (vdc *Vdc) Pixel(x, y int) (value byte, ok bool) {
	vdc.mu.Lock()
	defer vdc.mu.Unlock()

	cols, rows, pixel, _ := vdc.mode.Size()
	if !pixel || vdc.pixels == nil || x < 0 || y < 0 || x >= cols || y >= rows {
		return
	}

	return vdc.pixels[y*cols+x], true
}

// Step executes the next queued instruction, raising any fault into the
// fault cell.
func (vdc *Vdc) Step() (exc cpu.Exception) {
	code := vdc.Queue.Pop()

	exc = vdc.Execute(code)
	if exc != cpu.EXC_NONE {
		if vdc.Verbose {
			vdc.Log.WithField("exception", exc.String()).Debugf("%v", code)
		}
		vdc.Fault.Raise(exc)
	}

	return
}

// Execute executes a single display instruction.
func (vdc *Vdc) Execute(code cpu.Code) (exc cpu.Exception) {
	instr := code.Decode()

	switch instr.Op {
	case cpu.OP_DIWAIT:
	case cpu.OP_DIWTRT:
		exc = vdc.waitRetrace()
	case cpu.OP_DIMD:
		exc = vdc.setMode(Mode(code.DisplayMode()))
	case cpu.OP_DICLR:
		exc = vdc.clear()
	case cpu.OP_DISETXY:
		exc = vdc.setXY(code.XY())
	case cpu.OP_DICHAR:
		exc = vdc.put(instr, false)
	case cpu.OP_DIPUTPIXEL:
		exc = vdc.put(instr, true)
	default:
		vdc.Log.Errorf("vdc error unknown. instr: 0x%x", uint32(code))
		exc = cpu.EXC_DISP
	}

	return
}

func (vdc *Vdc) setMode(mode Mode) (exc cpu.Exception) {
	cols, rows, pixel, ok := mode.Size()
	if !ok {
		exc = cpu.EXC_DISP
		return
	}

	vdc.mu.Lock()
	vdc.x = 0
	vdc.y = 0
	vdc.mode = mode
	vdc.refresh = false
	vdc.pixels = nil
	if pixel {
		vdc.pixels = make([]byte, cols*rows)
	}
	vdc.enabled = true
	exc = vdc.clearLocked()
	vdc.mu.Unlock()

	vdc.sinkMu.Lock()
	err := vdc.Sink.SetMode(cols, rows, pixel)
	vdc.sinkMu.Unlock()
	if err != nil {
		vdc.Log.WithError(err).Errorf("mode %d", mode)
		exc |= cpu.EXC_DISP
	}

	return
}

func (vdc *Vdc) clear() cpu.Exception {
	vdc.mu.Lock()
	defer vdc.mu.Unlock()

	return vdc.clearLocked()
}

func (vdc *Vdc) clearLocked() (exc cpu.Exception) {
	if !vdc.enabled {
		exc = cpu.EXC_DISP
		return
	}

	cols, rows, pixel, _ := vdc.mode.Size()
	if pixel {
		clear(vdc.pixels)
		return
	}

	err := vdc.Ram.Fill(mem.MEM_START_VDC_FB, cols*rows, ' ')
	if err != nil {
		exc = cpu.EXC_DISP
	}

	return
}

func (vdc *Vdc) waitRetrace() (exc cpu.Exception) {
	vdc.mu.Lock()
	defer vdc.mu.Unlock()

	if !vdc.enabled {
		exc = cpu.EXC_DISP
		return
	}

	for vdc.refresh {
		vdc.retraced.Wait()
	}

	return
}

func (vdc *Vdc) setXY(xreg, yreg int) (exc cpu.Exception) {
	x, err := vdc.Registers.Get(xreg)
	if err != nil {
		exc = cpu.EXC_REG
		return
	}
	y, err := vdc.Registers.Get(yreg)
	if err != nil {
		exc = cpu.EXC_REG
		return
	}

	vdc.mu.Lock()
	defer vdc.mu.Unlock()

	if !vdc.enabled {
		exc = cpu.EXC_DISP
		return
	}

	vdc.x = int(x)
	vdc.y = int(y)

	return
}

// source resolves the value operand of dichar and diputpixel.
func (vdc *Vdc) source(instr cpu.Instruction) (value byte, exc cpu.Exception) {
	switch {
	case instr.Mode&cpu.OP_SRC_MEM != 0:
		addr := uint32(instr.Operand)
		if addr < mem.MEM_START_RW {
			reg, err := vdc.Registers.Get(int(addr))
			if err != nil {
				exc = cpu.EXC_REG
				return
			}
			addr = uint32(reg)
		}
		var err error
		value, err = vdc.Ram.Byte(addr)
		if err != nil {
			exc = cpu.EXC_MEM
		}
	case instr.Mode&cpu.OP_SRC_REG != 0:
		reg, err := vdc.Registers.Get(int(instr.Operand & 0xff))
		if err != nil {
			exc = cpu.EXC_REG
			return
		}
		value = byte(reg)
	default:
		value = byte(instr.Operand)
	}

	return
}

func (vdc *Vdc) put(instr cpu.Instruction, pixel bool) (exc cpu.Exception) {
	value, exc := vdc.source(instr)
	if exc != cpu.EXC_NONE {
		return
	}

	vdc.mu.Lock()
	defer vdc.mu.Unlock()

	cols, rows, modePixel, _ := vdc.mode.Size()
	if !vdc.enabled || pixel != modePixel {
		exc = cpu.EXC_DISP
		return
	}
	if vdc.x >= cols || vdc.y >= rows {
		exc = cpu.EXC_DISP
		return
	}

	index := vdc.y*cols + vdc.x
	if pixel {
		vdc.pixels[index] = value
		return
	}

	err := vdc.Ram.SetByte(uint32(mem.MEM_START_VDC_FB+index), value)
	if err != nil {
		exc = cpu.EXC_DISP
	}

	return
}

// Retrace renders the active plane to the display sink. A disabled adapter
// renders nothing.
func (vdc *Vdc) Retrace() (err error) {
	vdc.mu.Lock()
	if !vdc.enabled {
		vdc.mu.Unlock()
		return
	}

	vdc.refresh = true
	cols, rows, pixel, _ := vdc.mode.Size()
	var cells []byte
	if pixel {
		cells = slices.Clone(vdc.pixels)
	} else {
		cells = make([]byte, cols*rows)
		err = vdc.Ram.Read(mem.MEM_START_VDC_FB, cells)
	}
	vdc.mu.Unlock()

	defer func() {
		vdc.mu.Lock()
		vdc.refresh = false
		vdc.retraced.Broadcast()
		vdc.mu.Unlock()
	}()

	if err != nil {
		return
	}

	vdc.sinkMu.Lock()
	defer vdc.sinkMu.Unlock()

	for y := range rows {
		for x := range cols {
			vdc.Sink.Put(x, y, cells[y*cols+x])
		}
	}

	err = vdc.Sink.Flush()

	return
}

// Run is the VDC instruction actor.
func (vdc *Vdc) Run() (err error) {
	pace := actor.Pace{Hz: 2 * vdc.Mclk}

	for vdc.Control.Park() {
		vdc.Step()
		if !pace.Wait(vdc.Control.Done()) {
			break
		}
	}

	return
}

// RunRender is the VDC retrace actor.
func (vdc *Vdc) RunRender() (err error) {
	pace := actor.Pace{Hz: DISPLAY_FRAME_RATE}

	for vdc.Control.Park() {
		rerr := vdc.Retrace()
		if rerr != nil {
			vdc.Log.WithError(rerr).Error("retrace")
			vdc.Fault.Raise(cpu.EXC_DISP)
		}
		if !pace.Wait(vdc.Control.Done()) {
			break
		}
	}

	return
}
