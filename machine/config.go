package machine

import (
	"io"

	"github.com/sirupsen/logrus"

	"github.com/ezrec/eira/display"
	eio "github.com/ezrec/eira/io"
	"github.com/ezrec/eira/prg"
)

// DumpRange selects the RAM dumped at teardown, inclusive.
type DumpRange struct {
	From uint32
	To   uint32
}

// Config is the machine configuration.
type Config struct {
	Verbose  bool // Log every executed instruction and I/O transfer.
	Debug    bool // Keep an instruction history for fault reports.
	Mclk     int  // Master clock in Hz. Zero runs unthrottled.
	MaxBoots int  // Reboot limit. Zero reboots until halt or shutdown.

	Logger *logrus.Logger // Defaults to the standard logger.
	Sink   display.Sink   // Display output. Defaults to display.Null.

	// Endpoints opens the I/O port streams. It is called at every reset;
	// nil leaves the port unattached.
	Endpoints func() (*eio.Endpoints, error)

	Rom      *prg.Image // Boot ROM. Defaults to prg.Rom().
	Image    *prg.Image // Program loaded before the first boot.
	Program  string     // Program file requested on the first boot.
	Requests io.Reader  // Stream of program files to load while running.

	CheckName string // Name of the check script, for reports.
	Check     string // Starlark check run against the final state.

	Dump     io.Writer  // Destination of teardown dumps.
	DumpRegs bool       // Dump the registers at teardown.
	DumpRam  *DumpRange // Dump a RAM range at teardown.
}
