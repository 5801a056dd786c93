package check

import (
	"errors"
	"strings"

	"github.com/ezrec/eira/translate"
)

var f = translate.From

var ErrAddress = errors.New(f("address out of range"))

// ErrCheck lists the failed expectations of a check script.
type ErrCheck struct {
	Script   string
	Failures []string
}

func (err *ErrCheck) Error() string {
	return f("%v: %d checks failed: %v", err.Script, len(err.Failures), strings.Join(err.Failures, "; "))
}
