// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package cpu

import (
	"iter"
	"strings"
	"sync/atomic"
)

// Exception is a bitmask of pending fault kinds.
type Exception uint32

const (
	EXC_NONE     = Exception(0)      // no fault
	EXC_INSTR    = Exception(1 << 0) // illegal instruction
	EXC_MEM      = Exception(1 << 1) // cannot access memory
	EXC_REG      = Exception(1 << 2) // cannot access register
	EXC_PRG      = Exception(1 << 3) // stray program
	EXC_DISP     = Exception(1 << 4) // display error
	EXC_IOPORT   = Exception(1 << 5) // i/o port error
	EXC_SHUTDOWN = Exception(1 << 6) // machine shutdown
)

var _exception_kinds = []struct {
	exc  Exception
	name string
	msg  string
}{
	{EXC_INSTR, "EXC_INSTR", "illegal instruction"},
	{EXC_MEM, "EXC_MEM", "cannot access memory"},
	{EXC_REG, "EXC_REG", "cannot access register"},
	{EXC_PRG, "EXC_PRG", "stray program"},
	{EXC_DISP, "EXC_DISP", "display error"},
	{EXC_IOPORT, "EXC_IOPORT", "i/o port error"},
	{EXC_SHUTDOWN, "EXC_SHUTDOWN", "machine shutdown"},
}

// Exceptions iterates over the named fault kinds.
func Exceptions() iter.Seq2[string, Exception] {
	return func(yield func(string, Exception) bool) {
		for _, kind := range _exception_kinds {
			if !yield(kind.name, kind.exc) {
				return
			}
		}
	}
}

// Error lists the fault kinds in the mask.
func (exc Exception) Error() string {
	if exc == EXC_NONE {
		return f("no exception")
	}

	var kinds []string
	for _, kind := range _exception_kinds {
		if exc&kind.exc != 0 {
			kinds = append(kinds, f(kind.msg))
		}
	}
	if rest := exc &^ exceptionMask(); rest != 0 {
		kinds = append(kinds, f("unknown 0x%x", uint32(rest)))
	}

	return strings.Join(kinds, ", ")
}

// String returns the symbolic names of the fault kinds in the mask.
func (exc Exception) String() string {
	if exc == EXC_NONE {
		return "EXC_NONE"
	}

	var names []string
	for name, kind := range Exceptions() {
		if exc&kind != 0 {
			names = append(names, name)
		}
	}

	return strings.Join(names, "|")
}

// Is matches any exception sharing a fault kind with this one.
func (exc Exception) Is(target error) bool {
	other, ok := target.(Exception)
	if !ok {
		return false
	}
	if other == EXC_NONE || exc == EXC_NONE {
		return other == exc
	}
	return exc&other != 0
}

// Has returns true if any kind in mask is pending.
func (exc Exception) Has(mask Exception) bool {
	return exc&mask != 0
}

func exceptionMask() (mask Exception) {
	for _, kind := range _exception_kinds {
		mask |= kind.exc
	}
	return
}

// Fault is a fault cell an actor raises into and the CPU collects from.
type Fault struct {
	value atomic.Uint32
}

// Raise adds fault kinds to the cell.
func (fault *Fault) Raise(exc Exception) {
	if exc == EXC_NONE {
		return
	}
	fault.value.Or(uint32(exc))
}

// Take returns and clears the pending fault kinds.
func (fault *Fault) Take() Exception {
	return Exception(fault.value.Swap(0))
}

// Load returns the pending fault kinds.
func (fault *Fault) Load() Exception {
	return Exception(fault.value.Load())
}
