package display

import (
	"errors"

	"github.com/ezrec/eira/translate"
)

var f = translate.From

var (
	ErrUnsupported = errors.New(f("display mode unsupported"))
	ErrNoMode      = errors.New(f("display mode not set"))
)

// ErrGeometry reports a plane that does not fit the output device.
type ErrGeometry struct {
	Cols, Rows  int
	Width, Height int
}

func (err *ErrGeometry) Error() string {
	return f("display %dx%d does not fit in %dx%d", err.Cols, err.Rows, err.Width, err.Height)
}
