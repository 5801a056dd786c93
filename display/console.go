package display

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sync"

	"golang.org/x/term"
)

// ANSI escape sequences.
const (
	ansiClear     = "\033[H\033[J"
	ansiCursorOn  = "\033[?25h"
	ansiCursorOff = "\033[?25l"
	ansiGotoXY    = "\033[%d;%dH"
)

// Console renders text modes onto an ANSI terminal. Only the cells that
// changed since the previous frame are redrawn.
type Console struct {
	mu     sync.Mutex
	out    *bufio.Writer
	fd     int
	isTerm bool
	cols   int
	rows   int
	shadow []byte
	dirty  bool
}

var _ Sink = (*Console)(nil)

// NewConsole creates a console display writing to w.
func NewConsole(w io.Writer) (con *Console) {
	con = &Console{
		out: bufio.NewWriter(w),
		fd:  -1,
	}

	if file, ok := w.(*os.File); ok {
		con.fd = int(file.Fd())
		con.isTerm = term.IsTerminal(con.fd)
	}

	return
}

// SetMode clears the terminal and hides the cursor. Pixel mode is not
// supported on a terminal.
func (con *Console) SetMode(cols, rows int, pixel bool) (err error) {
	con.mu.Lock()
	defer con.mu.Unlock()

	if pixel {
		err = ErrUnsupported
		return
	}

	if con.isTerm {
		width, height, terr := term.GetSize(con.fd)
		if terr == nil && (width < cols || height < rows) {
			err = &ErrGeometry{Cols: cols, Rows: rows, Width: width, Height: height}
			return
		}
	}

	con.cols = cols
	con.rows = rows
	con.shadow = make([]byte, cols*rows)

	_, err = con.out.WriteString(ansiCursorOff + ansiClear)
	if err != nil {
		return
	}
	err = con.out.Flush()

	return
}

// Put draws a character cell if it changed.
func (con *Console) Put(x, y int, value byte) {
	con.mu.Lock()
	defer con.mu.Unlock()

	if x < 0 || y < 0 || x >= con.cols || y >= con.rows {
		return
	}

	index := y*con.cols + x
	if con.shadow[index] == value {
		return
	}
	con.shadow[index] = value

	if value < ' ' || value > '~' {
		value = ' '
	}
	fmt.Fprintf(con.out, ansiGotoXY+"%c", y+1, x+1, value)
	con.dirty = true
}

// Flush writes the pending terminal updates.
func (con *Console) Flush() (err error) {
	con.mu.Lock()
	defer con.mu.Unlock()

	if !con.dirty {
		return
	}
	con.dirty = false

	return con.out.Flush()
}

// Close restores the terminal cursor below the display.
func (con *Console) Close() (err error) {
	con.mu.Lock()
	defer con.mu.Unlock()

	fmt.Fprintf(con.out, ansiGotoXY, con.rows+1, 1)
	_, err = con.out.WriteString(ansiCursorOn)
	if err != nil {
		return
	}

	return con.out.Flush()
}
