package io

import (
	"errors"
	"io"
	"os"
	"path/filepath"

	"github.com/jacobsa/go-serial/serial"
	"golang.org/x/sys/unix"
)

// Default FIFO names, relative to the machine directory.
const (
	IO_INPUT_PORT  = "eira_input"
	IO_OUTPUT_PORT = "eira_output"
)

// Endpoints are the streams attached to the I/O port for one boot.
type Endpoints struct {
	Input  io.Reader
	Output io.Writer

	closers []io.Closer
}

// Close closes the underlying streams.
func (ep *Endpoints) Close() (err error) {
	for _, closer := range ep.closers {
		err = errors.Join(err, closer.Close())
	}
	ep.closers = nil

	return
}

// Stdio attaches the port to the process standard input and output.
func Stdio() *Endpoints {
	return &Endpoints{Input: os.Stdin, Output: os.Stdout}
}

// OpenFiles attaches the port to plain files. An empty name leaves that
// direction unattached.
func OpenFiles(input, output string) (ep *Endpoints, err error) {
	ep = &Endpoints{}

	if input != "" {
		var in *os.File
		in, err = os.Open(input)
		if err != nil {
			return
		}
		ep.Input = in
		ep.closers = append(ep.closers, in)
	}

	if output != "" {
		var out *os.File
		out, err = os.Create(output)
		if err != nil {
			ep.Close()
			return
		}
		ep.Output = out
		ep.closers = append(ep.closers, out)
	}

	return
}

// mkfifo creates a named pipe unless path already is one.
func mkfifo(path string) (err error) {
	info, err := os.Stat(path)
	if err == nil {
		if info.Mode()&os.ModeNamedPipe == 0 {
			err = &ErrNotFifo{Path: path}
		}
		return
	}
	if !errors.Is(err, os.ErrNotExist) {
		return
	}

	err = unix.Mkfifo(path, unix.S_IRUSR|unix.S_IWUSR)
	if err != nil {
		err = &os.PathError{Op: "mkfifo", Path: path, Err: err}
	}

	return
}

// OpenFifo creates, if missing, and opens the input and output named pipes
// in dir. Both pipes are opened read-write so opening never blocks waiting
// for the peer process.
func OpenFifo(dir string) (ep *Endpoints, err error) {
	err = os.MkdirAll(dir, 0o755)
	if err != nil {
		return
	}

	ep = &Endpoints{}
	for _, name := range []string{IO_INPUT_PORT, IO_OUTPUT_PORT} {
		path := filepath.Join(dir, name)
		err = mkfifo(path)
		if err != nil {
			ep.Close()
			return
		}

		var file *os.File
		file, err = os.OpenFile(path, os.O_RDWR, 0)
		if err != nil {
			ep.Close()
			return
		}
		ep.closers = append(ep.closers, file)

		if name == IO_INPUT_PORT {
			ep.Input = file
		} else {
			ep.Output = file
		}
	}

	return
}

// OpenSerial attaches the port to a serial device.
func OpenSerial(device string, baud uint) (ep *Endpoints, err error) {
	options := serial.OpenOptions{
		PortName:        device,
		BaudRate:        baud,
		DataBits:        8,
		StopBits:        1,
		MinimumReadSize: 1,
	}

	port, err := serial.Open(options)
	if err != nil {
		return
	}

	ep = &Endpoints{
		Input:   port,
		Output:  port,
		closers: []io.Closer{port},
	}

	return
}
