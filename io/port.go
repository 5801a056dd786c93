// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

// Package io implements the machine I/O port and the streams it can be
// attached to: standard I/O, plain files, named pipes and serial devices.
package io

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"sync"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/ezrec/eira/actor"
	"github.com/ezrec/eira/cpu"
	"github.com/ezrec/eira/mem"
)

// IO_RATE is the output register polling rate, in Hz.
const IO_RATE = 100

// Port is the memory mapped I/O port. Programs read decimal values from
// the input stream at MEM_IO_INPUT, and values stored at MEM_IO_OUTPUT are
// written to the output stream.
type Port struct {
	Verbose bool
	Log     *logrus.Entry

	Ram     *mem.Ram       // Memory holding the port registers.
	Input   io.Reader      // Newline separated decimal values.
	Output  io.Writer      // Receives one decimal value per line.
	Control *actor.Control // Reset barrier and halt flag of the current boot.
	Rate    int            // Output polling rate, in Hz.

	Fault cpu.Fault // Faults collected by the CPU.

	mu   sync.Mutex
	last uint16
	pump *pump
}

// pump reads lines from one input stream for as long as the stream is
// attached, across every boot that uses it.
type pump struct {
	input io.Reader
	lines chan string
	stop  chan struct{}
	err   error // Valid once lines is closed.
}

func newPump(input io.Reader) (p *pump) {
	p = &pump{
		input: input,
		lines: make(chan string),
		stop:  make(chan struct{}),
	}

	go func() {
		defer close(p.lines)
		scanner := bufio.NewScanner(input)
		for scanner.Scan() {
			select {
			case p.lines <- scanner.Text():
			case <-p.stop:
				return
			}
		}
		p.err = scanner.Err()
	}()

	return
}

// lines returns the pump of the attached input stream, replacing the pump
// of a previously attached stream.
func (port *Port) lines() *pump {
	port.mu.Lock()
	defer port.mu.Unlock()

	if port.pump != nil && port.pump.input != port.Input {
		close(port.pump.stop)
		port.pump = nil
	}
	if port.pump == nil {
		port.pump = newPump(port.Input)
	}

	return port.pump
}

// NewPort creates a port with no attached streams.
func NewPort(ram *mem.Ram) (port *Port) {
	port = &Port{
		Ram:     ram,
		Control: actor.NewControl(),
		Rate:    IO_RATE,
		Log:     logrus.NewEntry(logrus.StandardLogger()).WithField("component", "io"),
	}

	return
}

// Reset zeros the port registers.
func (port *Port) Reset() (err error) {
	port.mu.Lock()
	port.last = 0
	port.mu.Unlock()

	port.Fault.Take()

	return errors.Join(
		port.Ram.SetWord(mem.MEM_IO_INPUT, 0),
		port.Ram.SetWord(mem.MEM_IO_OUTPUT, 0),
	)
}

// InputValue returns the input register.
func (port *Port) InputValue() (uint16, error) {
	return port.Ram.Word(mem.MEM_IO_INPUT)
}

// OutputValue returns the output register.
func (port *Port) OutputValue() (uint16, error) {
	return port.Ram.Word(mem.MEM_IO_OUTPUT)
}

// ParseValue converts a decimal line to a register value. Leading blanks
// and a sign are accepted, parsing stops at the first non digit, and text
// without digits is zero. The result is truncated to 16 bits.
func ParseValue(text string) (value uint16) {
	n := 0
	for n < len(text) && (text[n] == ' ' || text[n] == '\t' || text[n] == '\r') {
		n++
	}

	negative := false
	if n < len(text) && (text[n] == '-' || text[n] == '+') {
		negative = text[n] == '-'
		n++
	}

	var total uint32
	for ; n < len(text) && text[n] >= '0' && text[n] <= '9'; n++ {
		total = (total*10 + uint32(text[n]-'0')) & 0xffff
	}

	value = uint16(total)
	if negative {
		value = -value
	}

	return
}

func (port *Port) raise(err error, msg string) {
	if errors.Is(err, syscall.EPIPE) {
		msg = "read side closed pipe"
	}
	port.Log.WithError(err).Error(msg)
	port.Fault.Raise(cpu.EXC_IOPORT)
}

// RunInput is the input actor. Each line read from the input stream is
// stored in the input register. The end of the input stream is not a fault.
//
// The stream is read by a pump that outlives the boot, so a line read
// while the machine reboots is delivered to the next boot.
func (port *Port) RunInput() (err error) {
	if !port.Control.Park() {
		return
	}

	done := port.Control.Done()
	if port.Input == nil {
		<-done
		return
	}

	p := port.lines()

	for {
		select {
		case <-done:
			return
		case line, ok := <-p.lines:
			if !ok {
				if p.err != nil {
					port.raise(p.err, "unable to access input port")
				}
				return
			}
			value := ParseValue(line)
			if port.Verbose {
				port.Log.Debugf("input %d", value)
			}
			werr := port.Ram.SetWord(mem.MEM_IO_INPUT, value)
			if werr != nil {
				port.raise(werr, "input register")
				return
			}
		}
	}
}

// Flush writes the output register if it changed since the last write.
func (port *Port) Flush() (err error) {
	port.mu.Lock()
	defer port.mu.Unlock()

	value, err := port.Ram.Word(mem.MEM_IO_OUTPUT)
	if err != nil {
		return
	}
	if value == port.last {
		return
	}

	if port.Output != nil {
		_, err = fmt.Fprintf(port.Output, "%d\n", value)
		if err != nil {
			return
		}
	}
	port.last = value

	if port.Verbose {
		port.Log.Debugf("output %d", value)
	}

	return
}

// RunOutput is the output actor, polling the output register.
func (port *Port) RunOutput() (err error) {
	rate := port.Rate
	if rate <= 0 {
		rate = IO_RATE
	}
	pace := actor.Pace{Hz: rate}

	for port.Control.Park() {
		ferr := port.Flush()
		if ferr != nil {
			port.raise(ferr, "unable to access output port")
			return
		}
		if !pace.Wait(port.Control.Done()) {
			break
		}
	}

	return
}
