// Package display holds the output devices the video display controller
// renders into.
//
// A Sink receives one retrace at a time: every cell of the active plane is
// Put in row-major order, then the frame is Flushed. In text modes a cell is
// a character; in pixel mode a cell is a palette index.
package display

// Sink is a display output device.
type Sink interface {
	// SetMode switches the device to a cols by rows plane.
	SetMode(cols, rows int, pixel bool) error
	// Put stores the cell at x, y for the frame being drawn.
	Put(x, y int, value byte)
	// Flush presents the frame.
	Flush() error
}

// Null discards all output.
type Null struct{}

var _ Sink = Null{}

func (Null) SetMode(cols, rows int, pixel bool) error { return nil }
func (Null) Put(x, y int, value byte)                 {}
func (Null) Flush() error                             { return nil }
