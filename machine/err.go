package machine

import (
	"errors"

	"github.com/ezrec/eira/translate"
)

var f = translate.From

var (
	ErrRunning  = errors.New(f("machine already running"))
	ErrDumpSpan = errors.New(f("dump range invalid"))
)

// ErrBoot reports a boot that ended in a fault.
type ErrBoot struct {
	Boot int
	Err  error
}

func (err *ErrBoot) Error() string {
	return f("boot %d: %v", err.Boot, err.Err)
}

func (err *ErrBoot) Unwrap() error {
	return err.Err
}
