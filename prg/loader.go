package prg

import (
	"bufio"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/ezrec/eira/actor"
	"github.com/ezrec/eira/cpu"
	"github.com/ezrec/eira/mem"
)

// PRG_NAME_MAX is the longest accepted program path.
const PRG_NAME_MAX = 0xff

// PRG_REQUEST_QUEUE is the number of load requests that may be pending.
const PRG_REQUEST_QUEUE = 8

// Loader places program images at MEM_START_PRG.
type Loader struct {
	Verbose bool
	Log     *logrus.Entry

	Ram      *mem.Ram       // Destination memory.
	Control  *actor.Control // Reset barrier and halt flag of the current boot.
	Requests io.Reader      // Optional stream of newline separated program paths.

	// Open opens a program by name. Defaults to os.Open.
	Open func(name string) (io.ReadCloser, error)

	Fault cpu.Fault // Faults collected by the CPU.

	pending chan string
}

// NewLoader creates a loader for ram.
func NewLoader(ram *mem.Ram) (ld *Loader) {
	ld = &Loader{
		Ram:     ram,
		Control: actor.NewControl(),
		Log:     logrus.NewEntry(logrus.StandardLogger()).WithField("component", "prg"),
		pending: make(chan string, PRG_REQUEST_QUEUE),
	}

	return
}

// Reset drops pending requests and faults.
func (ld *Loader) Reset() {
	for {
		select {
		case <-ld.pending:
		default:
			ld.Fault.Take()
			return
		}
	}
}

// Load validates img and copies it, header included, to MEM_START_PRG.
// A rejected image raises EXC_PRG and leaves memory untouched.
func (ld *Loader) Load(img *Image) (err error) {
	err = img.Validate()
	if err != nil {
		ld.Fault.Raise(cpu.EXC_PRG)
		return
	}

	data, err := img.MarshalBinary()
	if err != nil {
		ld.Fault.Raise(cpu.EXC_PRG)
		return
	}
	data = data[:PRG_HEADER_SIZE+img.CodeSize]

	err = ld.Ram.SetByte(mem.MEM_PRG_LOADING, mem.PRG_LOADING)
	if err != nil {
		return
	}

	err = ld.Ram.Write(mem.MEM_START_PRG, data)
	if err != nil {
		ld.Fault.Raise(cpu.EXC_PRG)
		return
	}

	err = ld.Ram.SetByte(mem.MEM_PRG_LOADING, mem.PRG_LOADING_DONE)

	return
}

// LoadFile loads a program image by name. A missing file is reported but
// is not a machine fault; a corrupt image raises EXC_PRG.
func (ld *Loader) LoadFile(name string) (err error) {
	defer func() {
		if err != nil {
			err = &ErrLoad{Name: name, Err: err}
			ld.Log.Error(err)
		}
	}()

	open := ld.Open
	if open == nil {
		open = func(name string) (io.ReadCloser, error) { return os.Open(name) }
	}

	file, err := open(name)
	if err != nil {
		return
	}
	defer file.Close()

	if ld.Verbose {
		ld.Log.Debugf("loading %v", name)
	}

	img, err := ReadImage(file)
	if err != nil {
		ld.Fault.Raise(cpu.EXC_PRG)
		return
	}

	return ld.Load(img)
}

// LoadDirect copies the code segment of img to addr without validation.
func LoadDirect(ram *mem.Ram, img *Image, addr uint32) (err error) {
	size := min(img.CodeSize, uint32(len(img.Code)))

	err = ram.SetByte(mem.MEM_PRG_LOADING, mem.PRG_LOADING)
	if err != nil {
		return
	}

	err = ram.Write(addr, img.Code[:size])
	if err != nil {
		return
	}

	return ram.SetByte(mem.MEM_PRG_LOADING, mem.PRG_LOADING_DONE)
}

// Request queues a program to load once the machine runs. It returns
// false if the request queue is full.
func (ld *Loader) Request(name string) (ok bool) {
	select {
	case ld.pending <- name:
		ok = true
	default:
		ld.Log.Warnf("load request %v dropped", name)
	}
	return
}

// Run is the loader actor. It serves queued requests and the request
// stream until the machine halts.
func (ld *Loader) Run() (err error) {
	if !ld.Control.Park() {
		return
	}

	done := ld.Control.Done()

	var names chan string
	if ld.Requests != nil {
		names = make(chan string)
		go func() {
			defer close(names)
			scanner := bufio.NewScanner(ld.Requests)
			for scanner.Scan() {
				select {
				case names <- scanner.Text():
				case <-done:
					return
				}
			}
		}()
	}

	for {
		var name string
		select {
		case <-done:
			return
		case name = <-ld.pending:
		case line, ok := <-names:
			if !ok {
				names = nil
				continue
			}
			name = line
		}

		name = strings.TrimSpace(name)
		if name == "" || len(name) > PRG_NAME_MAX {
			continue
		}
		if ld.Control.Halted() {
			return
		}

		_ = ld.LoadFile(name)
	}
}
