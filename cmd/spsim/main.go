// Command spsim runs an SP memory image on the cycle-accurate pipeline.
//
// Usage:
//
//	spsim [-c config.json] [-i] [-d] [-f] [-s maxcycles] [-o dir] [--no-cycle-trace] program.txt
//
// A run writes inst_trace.txt, cycle_trace.txt, srami_out.txt and
// sramd_out.txt (names set by the config) into the output directory.
package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	getopt "github.com/pborman/getopt/v2"
	"github.com/sirupsen/logrus"

	"github.com/sarchlab/spsim/console"
	"github.com/sarchlab/spsim/emu"
	"github.com/sarchlab/spsim/loader"
	"github.com/sarchlab/spsim/timing/config"
	"github.com/sarchlab/spsim/timing/core"
	"github.com/sarchlab/spsim/trace"
)

func main() {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)

	if err := run(os.Args, os.Stdout, logger); err != nil {
		logger.Fatal(err)
	}
}

type options struct {
	configPath   string
	writeConfig  string
	outDir       string
	maxCycles    uint64
	interactive  bool
	debug        bool
	functional   bool
	noCycleTrace bool
	program      string
}

func parseArgs(args []string, stdout io.Writer) (*options, bool, error) {
	set := getopt.New()
	set.SetParameters("program.txt")

	opts := &options{outDir: "."}
	set.FlagLong(&opts.configPath, "config", 'c', "JSON configuration file")
	set.FlagLong(&opts.writeConfig, "write-config", 0, "Write the effective configuration to a file and exit")
	set.FlagLong(&opts.outDir, "out", 'o', "Output directory")
	set.FlagLong(&opts.maxCycles, "max-cycles", 's', "Stop after this many cycles (0 = no limit)")
	set.FlagLong(&opts.interactive, "interactive", 'i', "Step the pipeline from a console")
	set.FlagLong(&opts.debug, "debug", 'd', "Log every cycle")
	set.FlagLong(&opts.functional, "functional", 'f', "Run on the functional emulator only")
	set.FlagLong(&opts.noCycleTrace, "no-cycle-trace", 0, "Do not write the cycle trace")
	help := set.BoolLong("help", 'h', "Help")

	if err := set.Getopt(args, nil); err != nil {
		set.PrintUsage(stdout)
		return nil, false, err
	}
	if *help {
		set.PrintUsage(stdout)
		return nil, true, nil
	}

	if opts.writeConfig == "" {
		if set.NArgs() != 1 {
			set.PrintUsage(stdout)
			return nil, false, fmt.Errorf("expected one program file, got %d", set.NArgs())
		}
		opts.program = set.Arg(0)
	}

	return opts, false, nil
}

func loadConfig(opts *options) (*config.Config, error) {
	cfg := config.Default()
	if opts.configPath != "" {
		var err error
		if cfg, err = config.Load(opts.configPath); err != nil {
			return nil, err
		}
	}

	if opts.maxCycles > 0 {
		cfg.MaxCycles = opts.maxCycles
	}
	if opts.noCycleTrace {
		cfg.Output.CycleTrace = ""
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func run(args []string, stdout io.Writer, logger *logrus.Logger) error {
	opts, done, err := parseArgs(args, stdout)
	if err != nil || done {
		return err
	}

	if opts.debug {
		logger.SetLevel(logrus.DebugLevel)
	}

	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}

	if opts.writeConfig != "" {
		return cfg.Save(opts.writeConfig)
	}

	image, err := loader.Load(opts.program)
	if err != nil {
		return err
	}
	logger.WithFields(logrus.Fields{
		"program": image.Name,
		"lines":   image.Lines(),
	}).Info("program loaded")

	if opts.functional {
		return runFunctional(cfg, image, opts.outDir, stdout, logger)
	}

	c, err := core.OpenCore(cfg, image, opts.outDir, core.WithLogger(logger))
	if err != nil {
		return err
	}

	var runErr error
	if opts.interactive {
		console.Reader(console.New(c, stdout), logger)
	} else {
		runErr = c.Pipeline.Run()
	}

	if err := c.Close(); err != nil {
		return err
	}
	if runErr != nil {
		return runErr
	}

	printStats(stdout, c)
	if f := c.Pipeline.Fault(); f != nil {
		return f
	}
	return nil
}

func runFunctional(
	cfg *config.Config,
	image *loader.Image,
	outDir string,
	stdout io.Writer,
	logger *logrus.Logger,
) error {
	e := emu.NewEmulator(emu.WithMaxInstructions(cfg.MaxCycles))
	e.LoadImage(image.Words)

	if err := e.Run(); err != nil {
		return err
	}

	path := cfg.Output.DMemDump
	if !filepath.IsAbs(path) {
		path = filepath.Join(outDir, path)
	}
	if err := trace.DumpMemoryFile(path, e.Memory().Words()); err != nil {
		return err
	}

	logger.WithFields(logrus.Fields{
		"pc":           e.PC(),
		"instructions": e.InstructionCount(),
	}).Info("emulation finished")

	_, _ = fmt.Fprintf(stdout, "halted at pc %d after %d instructions\n",
		e.PC(), e.InstructionCount())
	if f := e.Fault(); f != nil {
		return f
	}
	return nil
}

func printStats(w io.Writer, c *core.Core) {
	s := c.Stats()
	_, _ = fmt.Fprintf(w, "cycles:          %d\n", s.Cycles)
	_, _ = fmt.Fprintf(w, "instructions:    %d\n", s.Instructions)
	_, _ = fmt.Fprintf(w, "CPI:             %.3f\n", s.CPI())
	_, _ = fmt.Fprintf(w, "stalls:          %d\n", s.Stalls)
	_, _ = fmt.Fprintf(w, "flushes:         %d\n", s.Flushes)
	_, _ = fmt.Fprintf(w, "branch accuracy: %.1f%%\n", s.BranchAccuracy)
	_, _ = fmt.Fprintf(w, "dma words:       %d\n", s.DMAWords)
	_, _ = fmt.Fprintf(w, "simulated time:  %.3g s\n", s.SimulatedSeconds)
}
