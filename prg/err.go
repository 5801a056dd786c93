package prg

import (
	"errors"

	"github.com/ezrec/eira/translate"
)

var f = translate.From

var (
	ErrMagic          = errors.New(f("missing magic in header"))
	ErrTooLarge       = errors.New(f("not enough memory"))
	ErrShort          = errors.New(f("code segment corrupt"))
	ErrHeader         = errors.New(f("corrupt header"))
	ErrLabelDuplicate = errors.New(f("label duplicated"))
)

// ErrLabelMissing reports a branch to an undefined label.
type ErrLabelMissing string

func (el ErrLabelMissing) Error() string {
	return f("label %v missing", string(el))
}

// ErrLoad reports a program that could not be loaded.
type ErrLoad struct {
	Name string
	Err  error
}

func (err *ErrLoad) Error() string {
	return f("cannot open program %v: %v", err.Name, err.Err)
}

func (err *ErrLoad) Unwrap() error {
	return err.Err
}
