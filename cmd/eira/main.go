// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/ezrec/eira/check"
	"github.com/ezrec/eira/display"
	"github.com/ezrec/eira/display/window"
	eio "github.com/ezrec/eira/io"
	"github.com/ezrec/eira/machine"
	"github.com/ezrec/eira/prg"
)

// MCLK_DEFAULT is the default master clock, in instructions per second.
const MCLK_DEFAULT = 10000

func parseDump(text string) (dump *machine.DumpRange, err error) {
	from, to, ok := strings.Cut(text, ":")
	if !ok {
		err = fmt.Errorf("%v: expected from:to", text)
		return
	}

	start, err := strconv.ParseUint(from, 0, 16)
	if err != nil {
		return
	}
	end, err := strconv.ParseUint(to, 0, 16)
	if err != nil {
		return
	}

	dump = &machine.DumpRange{From: uint32(start), To: uint32(end)}
	return
}

func writeImage(path string, img *prg.Image) (err error) {
	data, err := img.MarshalBinary()
	if err != nil {
		return
	}

	return os.WriteFile(path, data, 0o644)
}

func export(dir string) (err error) {
	err = os.MkdirAll(dir, 0o755)
	if err != nil {
		return
	}

	err = writeImage(filepath.Join(dir, "rom.bin"), prg.Rom())
	if err != nil {
		return
	}

	return writeImage(filepath.Join(dir, "test.bin"), prg.RegressionTest())
}

func listing(path string) (err error) {
	inf, err := os.Open(path)
	if err != nil {
		return
	}
	defer inf.Close()

	img, err := prg.ReadImage(inf)
	if err != nil {
		return
	}

	return img.Disassemble(os.Stdout, prg.PRG_ENTRY)
}

func endpoints(kind, dir, input, output, device string, baud uint) (open func() (*eio.Endpoints, error), err error) {
	switch kind {
	case "none":
	case "stdio":
		open = func() (*eio.Endpoints, error) { return eio.Stdio(), nil }
	case "fifo":
		open = func() (*eio.Endpoints, error) { return eio.OpenFifo(dir) }
	case "files":
		open = func() (*eio.Endpoints, error) { return eio.OpenFiles(input, output) }
	case "serial":
		open = func() (*eio.Endpoints, error) { return eio.OpenSerial(device, baud) }
	default:
		err = fmt.Errorf("%v: unknown I/O port endpoint", kind)
	}

	return
}

func main() {
	var verbose bool
	var debug bool
	var regression bool
	var list bool
	var mclk int
	var boots int
	var backend string
	var png string
	var script string
	var dump string
	var regs bool
	var ioKind string
	var machineDir string
	var input string
	var output string
	var device string
	var baud uint
	var exportDir string

	flag.BoolVar(&verbose, "v", false, "Verbose mode")
	flag.BoolVar(&debug, "d", false, "Keep an instruction history for fault reports")
	flag.BoolVar(&regression, "t", false, "Run the built-in regression test")
	flag.BoolVar(&list, "l", false, "List the program, do not execute")
	flag.IntVar(&mclk, "clock", MCLK_DEFAULT, "Master clock in Hz, 0 for unthrottled")
	flag.IntVar(&boots, "boots", 0, "Maximum number of boots, 0 for unlimited")
	flag.StringVar(&backend, "display", "console", "Display: console, window, image or null")
	flag.StringVar(&png, "png", "", "Save the final image display frame as PNG")
	flag.StringVar(&script, "check", "", "Starlark check script run at shutdown")
	flag.StringVar(&dump, "dump", "", "Dump RAM from:to at shutdown")
	flag.BoolVar(&regs, "regs", false, "Dump registers at shutdown")
	flag.StringVar(&ioKind, "io", "fifo", "I/O port: fifo, stdio, files, serial or none")
	flag.StringVar(&machineDir, "machine", "machine", "Directory of the I/O port FIFOs")
	flag.StringVar(&input, "i", "", "I/O port input file")
	flag.StringVar(&output, "o", "", "I/O port output file")
	flag.StringVar(&device, "serial", "/dev/ttyUSB0", "I/O port serial device")
	flag.UintVar(&baud, "baud", 115200, "I/O port serial baud rate")
	flag.StringVar(&exportDir, "export", "", "Write rom.bin and test.bin to a directory, do not execute")

	flag.Parse()

	if flag.NArg() > 1 {
		log.Fatalf("%v: Unknown arguments: %v", os.Args[0], flag.Args()[1:])
	}

	if len(exportDir) != 0 {
		err := export(exportDir)
		if err != nil {
			log.Fatalf("%v: %v", exportDir, err)
		}
		return
	}

	var program string
	if flag.NArg() == 1 {
		program = flag.Arg(0)
	}

	if list {
		if len(program) == 0 {
			log.Fatalf("%v: -l needs a program", os.Args[0])
		}
		err := listing(program)
		if err != nil {
			log.Fatalf("%v: %v", program, err)
		}
		return
	}

	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	if verbose {
		logger.SetLevel(logrus.DebugLevel)
	}

	config := machine.Config{
		Verbose:  verbose,
		Debug:    debug,
		Mclk:     mclk,
		MaxBoots: boots,
		Logger:   logger,
		Program:  program,
		Dump:     os.Stdout,
		DumpRegs: regs,
	}

	if len(dump) != 0 {
		var err error
		config.DumpRam, err = parseDump(dump)
		if err != nil {
			log.Fatalf("-dump: %v", err)
		}
	}

	if len(script) != 0 {
		data, err := os.ReadFile(script)
		if err != nil {
			log.Fatalf("%v: %v", script, err)
		}
		config.CheckName = filepath.Base(script)
		config.Check = string(data)
	}

	if regression {
		config.Program = ""
		config.Image = prg.RegressionTest()
		if len(config.Check) == 0 {
			config.CheckName = "regression.star"
			config.Check = check.Regression
		}
	}

	var err error
	config.Endpoints, err = endpoints(ioKind, machineDir, input, output, device, baud)
	if err != nil {
		log.Fatal(err)
	}

	var console *display.Console
	var img *display.Image
	switch backend {
	case "console":
		console = display.NewConsole(os.Stdout)
		config.Sink = console
	case "window", "image":
		img = display.NewImage()
		config.Sink = img
	case "null":
		config.Sink = display.Null{}
	default:
		log.Fatalf("%v: unknown display", backend)
	}

	m := machine.NewMachine(config)

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, os.Interrupt, syscall.SIGTERM)
	go func() {
		for range signals {
			m.Shutdown()
		}
	}()

	done := make(chan struct{})
	var runErr error
	go func() {
		defer close(done)
		runErr = m.Run()
	}()

	if backend == "window" {
		win := window.New(img, "eira")
		win.OnClose = m.Shutdown
		err = win.Run(done)
		if err != nil {
			logger.WithError(err).Error("window")
			m.Shutdown()
		}
	}
	<-done

	if console != nil {
		console.Close()
	}

	if len(png) != 0 && img != nil {
		ouf, err := os.Create(png)
		if err != nil {
			log.Fatalf("%v: %v", png, err)
		}
		err = img.WritePNG(ouf)
		ouf.Close()
		if err != nil {
			log.Fatalf("%v: %v", png, err)
		}
	}

	if runErr != nil {
		log.Fatal(runErr)
	}
}
