package machine

import (
	"fmt"
	"io"
	"strings"

	"github.com/ezrec/eira/mem"
)

// DUMP_LINE is the number of bytes per RAM dump line.
const DUMP_LINE = 16

// DumpRegisters writes the CPU state.
func (m *Machine) DumpRegisters(w io.Writer) (err error) {
	_, err = io.WriteString(w, m.Cpu.String())
	return
}

// DumpMemory writes RAM from..to, inclusive, as hex lines.
func (m *Machine) DumpMemory(w io.Writer, from, to uint32) (err error) {
	if from > to || to >= mem.RAM_SIZE {
		err = fmt.Errorf("%w: %04x:%04x", ErrDumpSpan, from, to)
		return
	}

	data := make([]byte, to-from+1)
	err = m.Ram.Read(from, data)
	if err != nil {
		return
	}

	for offset := 0; offset < len(data); offset += DUMP_LINE {
		line := data[offset:min(offset+DUMP_LINE, len(data))]

		var text strings.Builder
		fmt.Fprintf(&text, "%04x:", from+uint32(offset))
		for _, value := range line {
			fmt.Fprintf(&text, " %02x", value)
		}
		text.WriteByte('\n')

		_, err = io.WriteString(w, text.String())
		if err != nil {
			return
		}
	}

	return
}
