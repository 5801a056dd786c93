package io

import (
	"github.com/ezrec/eira/translate"
)

var f = translate.From

// ErrNotFifo reports an endpoint path that exists but is not a named pipe.
type ErrNotFifo struct {
	Path string
}

func (err *ErrNotFifo) Error() string {
	return f("%v is not a named pipe", err.Path)
}
