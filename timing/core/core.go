// Package core provides the SP machine: the program image, both memories,
// the pipeline and the trace outputs of one run.
package core

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/sarchlab/spsim/emu"
	"github.com/sarchlab/spsim/loader"
	"github.com/sarchlab/spsim/timing/config"
	"github.com/sarchlab/spsim/timing/pipeline"
	"github.com/sarchlab/spsim/trace"
)

// Stats holds performance statistics for the core.
type Stats struct {
	// Cycles is the total number of cycles simulated.
	Cycles uint64
	// Instructions is the number of instructions retired.
	Instructions uint64
	// Stalls is the number of structural stall cycles.
	Stalls uint64
	// Flushes is the number of pipeline flushes.
	Flushes uint64
	// BranchAccuracy is the percentage of correctly predicted branches.
	BranchAccuracy float64
	// DMAWords is the number of words the DMA engine copied.
	DMAWords uint64
	// SimulatedSeconds is Cycles at the configured clock.
	SimulatedSeconds float64
}

// CPI returns cycles per retired instruction.
func (s Stats) CPI() float64 {
	if s.Instructions == 0 {
		return 0
	}
	return float64(s.Cycles) / float64(s.Instructions)
}

// Option configures a Core.
type Option func(*Core)

// WithInstTrace writes the instruction trace to w.
func WithInstTrace(w io.Writer) Option {
	return func(c *Core) {
		c.instTrace = trace.NewInstTrace(w)
	}
}

// WithCycleTrace writes the cycle trace to w.
func WithCycleTrace(w io.Writer) Option {
	return func(c *Core) {
		c.cycleTrace = trace.NewCycleTrace(w)
	}
}

// WithLogger sets the logger handed to the pipeline.
func WithLogger(logger *logrus.Logger) Option {
	return func(c *Core) {
		c.log = logger
	}
}

// Core is one SP machine loaded with a program.
type Core struct {
	// Pipeline is the underlying 6-stage pipeline.
	Pipeline *pipeline.Pipeline

	config *config.Config
	image  *loader.Image
	imem   *emu.Memory
	dmem   *emu.Memory

	instTrace  *trace.InstTrace
	cycleTrace *trace.CycleTrace
	log        *logrus.Logger

	files    []*os.File
	imemDump string
	dmemDump string
}

// NewCore loads image into both memories and builds the pipeline described
// by cfg.
func NewCore(cfg *config.Config, image *loader.Image, opts ...Option) *Core {
	c := &Core{
		config: cfg,
		image:  image,
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.instTrace != nil {
		c.instTrace.Header(c.image.Name, c.image.Lines())
	}

	c.build()
	return c
}

func (c *Core) build() {
	c.imem = emu.NewMemory()
	c.dmem = emu.NewMemory()
	c.imem.LoadImage(c.image.Words)
	c.dmem.LoadImage(c.image.Words)

	opts := c.config.PipelineOptions()
	if c.instTrace != nil {
		opts = append(opts, pipeline.WithTracer(c.instTrace))
	}
	if c.cycleTrace != nil {
		opts = append(opts, pipeline.WithCycleTracer(c.cycleTrace))
	}
	if c.log != nil {
		opts = append(opts, pipeline.WithLogger(c.log))
	}

	c.Pipeline = pipeline.NewPipeline(c.imem, c.dmem, opts...)
	c.Pipeline.Start()
}

// Tick executes one pipeline cycle.
func (c *Core) Tick() {
	c.Pipeline.Tick()
}

// Halted returns true once HLT has retired.
func (c *Core) Halted() bool {
	return c.Pipeline.Halted()
}

// Finished returns true once the core halted and the DMA engine drained.
func (c *Core) Finished() bool {
	return c.Pipeline.Finished()
}

// Run executes the core until it finishes and flushes the traces.
func (c *Core) Run() error {
	runErr := c.Pipeline.Run()
	if err := c.Flush(); err != nil {
		return err
	}
	return runErr
}

// RunCycles executes the core for the specified number of cycles.
// Returns true if still running, false if finished.
func (c *Core) RunCycles(cycles uint64) bool {
	return c.Pipeline.RunCycles(cycles)
}

// Flush writes out buffered trace output.
func (c *Core) Flush() error {
	if c.instTrace != nil {
		if err := c.instTrace.Flush(); err != nil {
			return fmt.Errorf("failed to write instruction trace: %w", err)
		}
	}
	if c.cycleTrace != nil {
		if err := c.cycleTrace.Flush(); err != nil {
			return fmt.Errorf("failed to write cycle trace: %w", err)
		}
	}
	return nil
}

// Reset reloads the program image and restarts the pipeline. The traces
// continue where they left off.
func (c *Core) Reset() {
	c.build()
}

// Image returns the loaded program.
func (c *Core) Image() *loader.Image {
	return c.image
}

// Config returns the configuration the core was built from.
func (c *Core) Config() *config.Config {
	return c.config
}

// InstructionMemory returns the instruction memory.
func (c *Core) InstructionMemory() *emu.Memory {
	return c.imem
}

// DataMemory returns the data memory.
func (c *Core) DataMemory() *emu.Memory {
	return c.dmem
}

// DumpMemories writes both memories to the given files.
func (c *Core) DumpMemories(imemPath, dmemPath string) error {
	if err := trace.DumpMemoryFile(imemPath, c.imem.Words()); err != nil {
		return err
	}
	return trace.DumpMemoryFile(dmemPath, c.dmem.Words())
}

// Stats returns performance statistics for the core.
func (c *Core) Stats() Stats {
	s := c.Pipeline.Stats()
	return Stats{
		Cycles:           s.Cycles,
		Instructions:     s.Instructions,
		Stalls:           s.Stalls,
		Flushes:          s.Flushes,
		BranchAccuracy:   s.BranchAccuracy(),
		DMAWords:         s.DMAWords,
		SimulatedSeconds: c.config.SimulatedSeconds(s.Cycles),
	}
}

// OpenCore builds a core whose traces go to the files named by cfg.Output.
// Relative names are placed under dir. Close dumps the memories and
// releases the files.
func OpenCore(
	cfg *config.Config,
	image *loader.Image,
	dir string,
	opts ...Option,
) (*Core, error) {
	resolve := func(name string) string {
		if filepath.IsAbs(name) {
			return name
		}
		return filepath.Join(dir, name)
	}

	var files []*os.File
	closeAll := func() {
		for _, f := range files {
			_ = f.Close()
		}
	}

	instFile, err := os.Create(resolve(cfg.Output.InstTrace))
	if err != nil {
		return nil, fmt.Errorf("failed to create instruction trace: %w", err)
	}
	files = append(files, instFile)
	opts = append(opts, WithInstTrace(instFile))

	if cfg.Output.CycleTrace != "" {
		cycleFile, err := os.Create(resolve(cfg.Output.CycleTrace))
		if err != nil {
			closeAll()
			return nil, fmt.Errorf("failed to create cycle trace: %w", err)
		}
		files = append(files, cycleFile)
		opts = append(opts, WithCycleTrace(cycleFile))
	}

	c := NewCore(cfg, image, opts...)
	c.files = files
	c.imemDump = resolve(cfg.Output.IMemDump)
	c.dmemDump = resolve(cfg.Output.DMemDump)

	return c, nil
}

// Close flushes the traces, dumps both memories and closes the files
// opened by OpenCore.
func (c *Core) Close() error {
	err := c.Flush()
	if err == nil && c.imemDump != "" {
		err = c.DumpMemories(c.imemDump, c.dmemDump)
	}

	for _, f := range c.files {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	c.files = nil

	return err
}

// RunToFiles runs image to completion with OpenCore outputs. The memories
// are dumped even when the run stops on the cycle limit.
func RunToFiles(
	cfg *config.Config,
	image *loader.Image,
	dir string,
	opts ...Option,
) (*Core, error) {
	c, err := OpenCore(cfg, image, dir, opts...)
	if err != nil {
		return nil, err
	}

	runErr := c.Pipeline.Run()
	if err := c.Close(); err != nil {
		return c, err
	}

	return c, runErr
}
