// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

// Package machine assembles the memory, CPU and peripherals into a
// running computer, and drives its reset and soft reboot cycle.
package machine

import (
	"errors"
	"iter"
	"sync/atomic"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/ezrec/eira/actor"
	"github.com/ezrec/eira/check"
	"github.com/ezrec/eira/cpu"
	"github.com/ezrec/eira/display"
	"github.com/ezrec/eira/internal"
	eio "github.com/ezrec/eira/io"
	"github.com/ezrec/eira/mem"
	"github.com/ezrec/eira/prg"
	"github.com/ezrec/eira/vdc"
)

// BOOT_STATUS_MAX is the largest reboot count stored at MEM_BOOT_STATUS.
const BOOT_STATUS_MAX = 0xff

// Machine is the virtual computer.
type Machine struct {
	Config

	Log *logrus.Entry

	Ram    *mem.Ram
	Cpu    *cpu.Cpu
	Vdc    *vdc.Vdc
	Port   *eio.Port
	Loader *prg.Loader

	Fault cpu.Fault // Machine level faults, collected by the CPU.
	Boots int       // Completed boots.

	endpoints *eio.Endpoints
	running   atomic.Bool
	shutdown  atomic.Bool
}

// NewMachine creates a powered off machine.
func NewMachine(config Config) (m *Machine) {
	logger := config.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if config.Sink == nil {
		config.Sink = display.Null{}
	}
	if config.Rom == nil {
		config.Rom = prg.Rom()
	}

	ram := mem.NewRam()

	m = &Machine{
		Config: config,
		Log:    logrus.NewEntry(logger).WithField("component", "machine"),
		Ram:    ram,
		Cpu:    cpu.NewCpu(ram),
		Port:   eio.NewPort(ram),
		Loader: prg.NewLoader(ram),
	}
	m.Vdc = vdc.NewVdc(ram, &m.Cpu.Registers, config.Sink)

	m.Cpu.Log = logrus.NewEntry(logger).WithField("component", "cpu")
	m.Vdc.Log = logrus.NewEntry(logger).WithField("component", "vdc")
	m.Port.Log = logrus.NewEntry(logger).WithField("component", "io")
	m.Loader.Log = logrus.NewEntry(logger).WithField("component", "prg")

	m.Cpu.Verbose = config.Verbose
	m.Cpu.Debug = config.Debug
	m.Vdc.Verbose = config.Verbose
	m.Port.Verbose = config.Verbose
	m.Loader.Verbose = config.Verbose

	m.Cpu.Mclk = config.Mclk
	m.Vdc.Mclk = config.Mclk
	m.Loader.Requests = config.Requests

	m.Cpu.Forward = m.Vdc.Push
	m.Cpu.Faults = []*cpu.Fault{&m.Vdc.Fault, &m.Port.Fault, &m.Loader.Fault, &m.Fault}

	return
}

// Defines returns every symbol visible to machine programs.
func (m *Machine) Defines() iter.Seq2[string, string] {
	return internal.IterSeq2Concat(
		mem.Defines(),
		cpu.Defines(),
		prg.Defines(),
	)
}

// Reset powers the machine on: memory is cleared and seeded, the ROM is
// installed, and every component is reset behind a new held barrier.
func (m *Machine) Reset() (err error) {
	m.Ram.Clear()

	status := min(m.Boots, BOOT_STATUS_MAX)
	err = errors.Join(
		m.Ram.Write(mem.MEM_ROM_BOOT_MSG, []byte(prg.BOOT_MESSAGE)),
		m.Ram.Write(mem.MEM_ROM_BOOT_ANIM, []byte(prg.BOOT_ANIMATION)),
		m.Ram.SetByte(mem.MEM_BOOT_STATUS, uint8(status)),
		prg.LoadDirect(m.Ram, m.Rom, mem.MEM_START_ROM),
		m.Ram.SetByte(mem.MEM_PRG_LOADING, mem.PRG_LOADING_IDLE),
	)
	if err != nil {
		return
	}

	ctl := actor.NewControl()
	m.Cpu.Control = ctl
	m.Vdc.Control = ctl
	m.Port.Control = ctl
	m.Loader.Control = ctl

	m.Cpu.Reset(mem.MEM_START_ROM)
	m.Vdc.Reset()
	m.Loader.Reset()
	err = m.Port.Reset()
	if err != nil {
		return
	}

	return m.attach()
}

// attach reopens the I/O port endpoints.
func (m *Machine) attach() (err error) {
	err = m.detach()
	if err != nil {
		return
	}

	m.Port.Input = nil
	m.Port.Output = nil
	if m.Endpoints == nil {
		return
	}

	ep, err := m.Endpoints()
	if err != nil {
		return
	}

	m.endpoints = ep
	m.Port.Input = ep.Input
	m.Port.Output = ep.Output

	return
}

func (m *Machine) detach() (err error) {
	if m.endpoints != nil {
		err = m.endpoints.Close()
		m.endpoints = nil
	}
	return
}

// actors returns the run loops of every component.
func (m *Machine) actors() []func() error {
	return []func() error{
		m.Cpu.Run,
		m.Vdc.Run,
		m.Vdc.RunRender,
		m.Port.RunInput,
		m.Port.RunOutput,
		m.Loader.Run,
	}
}

// boot starts every actor, waits for all of them to park at the reset
// barrier, releases them together and waits for the machine to halt.
func (m *Machine) boot() (exc cpu.Exception, err error) {
	var group errgroup.Group

	actors := m.actors()
	for _, run := range actors {
		group.Go(run)
	}

	ctl := m.Cpu.Control
	ctl.AwaitParked(len(actors))
	if m.Verbose {
		m.Log.Debugf("boot %d: %d actors parked", m.Boots, len(actors))
	}
	ctl.Release()

	err = group.Wait()

	var fault *cpu.ErrFault
	if errors.As(err, &fault) {
		err = nil
	}
	exc = m.Cpu.Exception

	return
}

// Run boots the machine, rebooting after every fault until a program
// halts cleanly, the machine is shut down, or MaxBoots is reached.
func (m *Machine) Run() (err error) {
	if !m.running.CompareAndSwap(false, true) {
		err = ErrRunning
		return
	}
	defer m.running.Store(false)

	var exc cpu.Exception
	for {
		err = m.Reset()
		if err != nil {
			return
		}

		if m.Boots == 0 {
			m.first()
		}

		exc, err = m.boot()
		m.Boots++
		if err != nil {
			break
		}

		if exc == cpu.EXC_NONE || exc.Has(cpu.EXC_SHUTDOWN) || m.shutdown.Load() {
			break
		}
		if m.MaxBoots > 0 && m.Boots >= m.MaxBoots {
			err = &ErrBoot{Boot: m.Boots, Err: exc}
			break
		}

		m.Log.WithField("exception", exc.String()).Infof("rebooting (%d)", m.Boots)
	}

	return errors.Join(err, m.teardown())
}

// first loads the configured program before the first boot.
func (m *Machine) first() {
	if m.Image != nil {
		_ = m.Loader.Load(m.Image)
	}
	if m.Program != "" {
		m.Loader.Request(m.Program)
	}
}

func (m *Machine) teardown() (err error) {
	err = m.Port.Flush()
	if err != nil {
		m.Log.WithError(err).Error("flush output port")
	}
	err = errors.Join(err, m.detach())

	if m.Check != "" {
		name := m.CheckName
		if name == "" {
			name = "check"
		}
		checker := check.NewChecker()
		checker.Log = m.Log.WithField("component", "check")
		checker.Verbose = m.Verbose
		cerr := checker.Run(name, m.Check, m.Snapshot())
		if cerr != nil {
			err = errors.Join(err, cerr)
		} else {
			m.Log.Infof("%v passed", name)
		}
	}

	if m.Dump != nil {
		if m.DumpRegs {
			err = errors.Join(err, m.DumpRegisters(m.Dump))
		}
		if m.DumpRam != nil {
			err = errors.Join(err, m.DumpMemory(m.Dump, m.DumpRam.From, m.DumpRam.To))
		}
	}

	return
}

// Shutdown stops the machine without a reboot.
func (m *Machine) Shutdown() {
	m.shutdown.Store(true)
	m.Fault.Raise(cpu.EXC_SHUTDOWN)
}

// Snapshot captures the machine state.
func (m *Machine) Snapshot() (snap *check.Snapshot) {
	snap = &check.Snapshot{
		Pc:        m.Cpu.Pc,
		Registers: m.Cpu.Registers.Values(),
		Ram:       m.Ram.Snapshot(),
		Exception: m.Cpu.Exception,
		Boots:     m.Boots,
	}

	return
}
