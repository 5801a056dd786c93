package cpu

import (
	"errors"
	"strconv"

	"github.com/ezrec/eira/translate"
)

var f = translate.From

var ErrRegister = errors.New(f("register invalid"))

// ErrFault reports an exception raised by an instruction.
type ErrFault struct {
	Pc        uint32
	Code      Code
	Exception Exception
}

func (err *ErrFault) Error() string {
	return f("%v [pc: %v] %v", err.Exception.Error(), strconv.FormatUint(uint64(err.Pc), 10), err.Code.String())
}

func (err *ErrFault) Unwrap() error {
	return err.Exception
}
