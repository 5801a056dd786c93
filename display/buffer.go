package display

import (
	"strings"
	"sync"
)

// Buffer is an in-memory display. The last flushed frame is kept as a
// cell grid.
type Buffer struct {
	mu      sync.Mutex
	cols    int
	rows    int
	pixel   bool
	drawing []byte
	frame   []byte
	frames  int
}

var _ Sink = (*Buffer)(nil)

// SetMode resizes the buffer and discards its contents.
func (buf *Buffer) SetMode(cols, rows int, pixel bool) error {
	buf.mu.Lock()
	defer buf.mu.Unlock()

	buf.cols = cols
	buf.rows = rows
	buf.pixel = pixel
	buf.drawing = make([]byte, cols*rows)
	buf.frame = make([]byte, cols*rows)

	return nil
}

// Put stores a cell. Cells outside of the plane are dropped.
func (buf *Buffer) Put(x, y int, value byte) {
	buf.mu.Lock()
	defer buf.mu.Unlock()

	if x < 0 || y < 0 || x >= buf.cols || y >= buf.rows {
		return
	}
	buf.drawing[y*buf.cols+x] = value
}

// Flush commits the drawn frame.
func (buf *Buffer) Flush() error {
	buf.mu.Lock()
	defer buf.mu.Unlock()

	if buf.drawing == nil {
		return ErrNoMode
	}

	copy(buf.frame, buf.drawing)
	buf.frames++

	return nil
}

// Size returns the current plane geometry.
func (buf *Buffer) Size() (cols, rows int, pixel bool) {
	buf.mu.Lock()
	defer buf.mu.Unlock()

	return buf.cols, buf.rows, buf.pixel
}

// Frames returns the number of flushed frames.
func (buf *Buffer) Frames() int {
	buf.mu.Lock()
	defer buf.mu.Unlock()

	return buf.frames
}

// Cell returns a cell of the last flushed frame.
func (buf *Buffer) Cell(x, y int) (value byte) {
	buf.mu.Lock()
	defer buf.mu.Unlock()

	if x < 0 || y < 0 || x >= buf.cols || y >= buf.rows {
		return
	}
	return buf.frame[y*buf.cols+x]
}

// Line returns a row of the last flushed text frame, without trailing spaces.
func (buf *Buffer) Line(y int) string {
	buf.mu.Lock()
	defer buf.mu.Unlock()

	if y < 0 || y >= buf.rows {
		return ""
	}
	row := buf.frame[y*buf.cols : (y+1)*buf.cols]
	return strings.TrimRight(string(row), " \x00")
}
