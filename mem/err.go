package mem

import (
	"github.com/ezrec/eira/translate"
)

var f = translate.From

// ErrAddress is returned when an access falls outside of RAM.
type ErrAddress struct {
	Addr uint32 // First address of the access.
	Size int    // Width of the access in bytes.
}

func (err *ErrAddress) Error() string {
	return f("address 0x%04x (%d bytes) outside of RAM", err.Addr, err.Size)
}
