// Package check evaluates Starlark scripts against a snapshot of a halted
// machine.
//
// Scripts see the functions reg(n), ram(addr) and ramw(addr), the values
// pc, exception and boots, and every memory map, opcode and program define
// as an integer. Each expect(cond, msg) that fails is collected, and the
// script fails as a whole if any did.
package check

import (
	_ "embed"
	"fmt"
	"strconv"

	"github.com/sirupsen/logrus"
	"go.starlark.net/starlark"
	"go.starlark.net/syntax"

	"github.com/ezrec/eira/cpu"
	"github.com/ezrec/eira/internal"
	"github.com/ezrec/eira/mem"
	"github.com/ezrec/eira/prg"
)

// Regression is the script that verifies the built-in regression test
// program.
//
//go:embed regression.star
var Regression string

// Snapshot is the machine state a script is evaluated against.
type Snapshot struct {
	Pc        uint32
	Registers [cpu.GP_REG_COUNT]uint16
	Ram       []byte
	Exception cpu.Exception
	Boots     int
}

// Checker runs check scripts.
type Checker struct {
	Verbose bool
	Log     *logrus.Entry
}

// NewChecker creates a checker that logs script output.
func NewChecker() *Checker {
	return &Checker{
		Log: logrus.NewEntry(logrus.StandardLogger()).WithField("component", "check"),
	}
}

func (snap *Snapshot) byteAt(addr int) (value uint8, err error) {
	if addr < 0 || addr >= len(snap.Ram) {
		err = fmt.Errorf("%w: 0x%x", ErrAddress, addr)
		return
	}

	value = snap.Ram[addr]
	return
}

func (chk *Checker) predeclared(snap *Snapshot, failures *[]string) (pred starlark.StringDict, err error) {
	pred = starlark.StringDict{}

	defines := internal.IterSeq2Concat(mem.Defines(), cpu.Defines(), prg.Defines())
	for key, value := range defines {
		var value64 uint64
		value64, err = strconv.ParseUint(value, 0, 64)
		if err != nil {
			return
		}
		pred[key] = starlark.MakeUint64(value64)
	}

	pred["pc"] = starlark.MakeUint64(uint64(snap.Pc))
	pred["exception"] = starlark.MakeUint64(uint64(snap.Exception))
	pred["boots"] = starlark.MakeInt(snap.Boots)

	pred["reg"] = starlark.NewBuiltin("reg", func(thread *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		var n int
		if err := starlark.UnpackPositionalArgs(fn.Name(), args, kwargs, 1, &n); err != nil {
			return nil, err
		}
		if n < 0 || n >= len(snap.Registers) {
			return nil, fmt.Errorf("%s: %w", fn.Name(), cpu.ErrRegister)
		}
		return starlark.MakeInt(int(snap.Registers[n])), nil
	})

	pred["ram"] = starlark.NewBuiltin("ram", func(thread *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		var addr int
		if err := starlark.UnpackPositionalArgs(fn.Name(), args, kwargs, 1, &addr); err != nil {
			return nil, err
		}
		value, err := snap.byteAt(addr)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", fn.Name(), err)
		}
		return starlark.MakeInt(int(value)), nil
	})

	pred["ramw"] = starlark.NewBuiltin("ramw", func(thread *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		var addr int
		if err := starlark.UnpackPositionalArgs(fn.Name(), args, kwargs, 1, &addr); err != nil {
			return nil, err
		}
		lo, err := snap.byteAt(addr)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", fn.Name(), err)
		}
		hi, err := snap.byteAt(addr + 1)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", fn.Name(), err)
		}
		return starlark.MakeInt(int(lo) | int(hi)<<8), nil
	})

	pred["expect"] = starlark.NewBuiltin("expect", func(thread *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		var cond starlark.Value
		msg := "expectation failed"
		if err := starlark.UnpackArgs(fn.Name(), args, kwargs, "cond", &cond, "msg?", &msg); err != nil {
			return nil, err
		}
		if !cond.Truth() {
			pos := thread.CallFrame(1).Pos
			*failures = append(*failures, fmt.Sprintf("%v: %s", pos, msg))
		}
		return starlark.None, nil
	})

	return
}

// Run evaluates script against snap. Failed expectations are returned as
// an *ErrCheck.
func (chk *Checker) Run(name string, script string, snap *Snapshot) (err error) {
	var failures []string

	pred, err := chk.predeclared(snap, &failures)
	if err != nil {
		return
	}

	thread := starlark.Thread{
		Name: name,
		Print: func(_ *starlark.Thread, msg string) {
			chk.Log.Info(msg)
		},
	}
	opts := syntax.FileOptions{}

	_, err = starlark.ExecFileOptions(&opts, &thread, name, script, pred)
	if err != nil {
		return
	}

	if len(failures) != 0 {
		err = &ErrCheck{Script: name, Failures: failures}
		return
	}

	if chk.Verbose {
		chk.Log.Infof("%v: passed", name)
	}

	return
}
