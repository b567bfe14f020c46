// Package console implements the interactive stepping console of spsim.
package console

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/sarchlab/spsim/timing/core"
	"github.com/sarchlab/spsim/timing/pipeline"
)

// ErrUsage is returned when a command has malformed arguments.
var ErrUsage = errors.New("usage")

type cmd struct {
	name    string // Command name.
	min     int    // Minimum abbreviation.
	usage   string
	process func(c *Console, args []string) (bool, error)
}

var cmdList []cmd

func init() {
	cmdList = []cmd{
		{name: "step", min: 1, usage: "step [n]", process: (*Console).step},
		{name: "run", min: 2, usage: "run", process: (*Console).run},
		{name: "regs", min: 3, usage: "regs", process: (*Console).regs},
		{name: "reset", min: 3, usage: "reset", process: (*Console).reset},
		{name: "pipe", min: 1, usage: "pipe", process: (*Console).pipe},
		{name: "mem", min: 1, usage: "mem addr [n]", process: (*Console).dmem},
		{name: "imem", min: 1, usage: "imem addr [n]", process: (*Console).imem},
		{name: "bht", min: 1, usage: "bht", process: (*Console).bht},
		{name: "dma", min: 1, usage: "dma", process: (*Console).dma},
		{name: "stats", min: 3, usage: "stats", process: (*Console).stats},
		{name: "help", min: 1, usage: "help", process: (*Console).help},
		{name: "quit", min: 1, usage: "quit", process: (*Console).quit},
	}
}

// Console executes commands against one core.
type Console struct {
	core *core.Core
	out  io.Writer
}

// New creates a console driving c that prints to out.
func New(c *core.Core, out io.Writer) *Console {
	return &Console{core: c, out: out}
}

// Process executes one command line. It returns true when the user asked
// to quit.
func (c *Console) Process(commandLine string) (bool, error) {
	if i := strings.IndexByte(commandLine, '#'); i >= 0 {
		commandLine = commandLine[:i]
	}

	words := strings.Fields(commandLine)
	if len(words) == 0 {
		return false, nil
	}

	match := matchList(strings.ToLower(words[0]))
	if len(match) == 0 {
		return false, errors.New("command not found: " + words[0])
	}
	if len(match) > 1 {
		return false, errors.New("unique command not found: " + words[0])
	}

	return match[0].process(c, words[1:])
}

// Complete returns the command names starting with line.
func Complete(line string) []string {
	var out []string
	prefix := strings.ToLower(strings.TrimSpace(line))
	for _, m := range cmdList {
		if strings.HasPrefix(m.name, prefix) {
			out = append(out, m.name)
		}
	}
	return out
}

// Check if command matches at least to minimum length.
func matchCommand(match cmd, command string) bool {
	if len(command) > len(match.name) {
		return false
	}
	return strings.HasPrefix(match.name, command) && len(command) >= match.min
}

func matchList(command string) []cmd {
	var match []cmd
	for _, m := range cmdList {
		if m.name == command {
			return []cmd{m}
		}
		if matchCommand(m, command) {
			match = append(match, m)
		}
	}
	return match
}

func parseNumber(s string) (uint64, error) {
	v, err := strconv.ParseUint(s, 0, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: bad number %q", ErrUsage, s)
	}
	return v, nil
}

func (c *Console) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(c.out, format, args...)
}

func (c *Console) step(args []string) (bool, error) {
	n := uint64(1)
	if len(args) > 1 {
		return false, fmt.Errorf("%w: step [n]", ErrUsage)
	}
	if len(args) == 1 {
		v, err := parseNumber(args[0])
		if err != nil {
			return false, err
		}
		n = v
	}

	if c.core.Finished() {
		c.printf("finished at pc %d\n", c.core.Pipeline.FinalPC())
		return false, nil
	}

	c.core.RunCycles(n)
	return c.pipe(nil)
}

func (c *Console) run(_ []string) (bool, error) {
	err := c.core.Run()
	if _, serr := c.stats(nil); serr != nil {
		return false, serr
	}
	return false, err
}

func (c *Console) reset(_ []string) (bool, error) {
	c.core.Reset()
	c.printf("reset\n")
	return false, nil
}

func (c *Console) regs(_ []string) (bool, error) {
	s := c.core.Pipeline.State()
	for i, r := range s.R {
		c.printf("r%d %08x", i, uint32(r))
		if i%4 == 3 {
			c.printf("\n")
		} else {
			c.printf("  ")
		}
	}
	return false, nil
}

func (c *Console) pipe(_ []string) (bool, error) {
	s := c.core.Pipeline.State()
	c.printf("cycle %d\n", s.CycleCounter)

	fetch := func(name string, r pipeline.FetchRegister) {
		if !r.Active {
			c.printf("%-6s -\n", name)
			return
		}
		c.printf("%-6s %04d\n", name, r.PC)
	}
	decoded := func(name string, f pipeline.DecodedFields) {
		if !f.Active {
			c.printf("%-6s -\n", name)
			return
		}
		c.printf("%-6s %04d %-3s dst=%d src0=%d src1=%d imm=%d\n",
			name, f.PC, f.Opcode, f.Dst, f.Src0, f.Src1, f.Immediate)
	}

	fetch("fetch0", s.Fetch0)
	fetch("fetch1", s.Fetch1)
	if s.Dec0.Active {
		c.printf("%-6s %04d %08x\n", "dec0", s.Dec0.PC, s.Dec0.Inst)
	} else {
		c.printf("%-6s -\n", "dec0")
	}
	decoded("dec1", s.Dec1.DecodedFields)
	decoded("exec0", s.Exec0.DecodedFields)
	decoded("exec1", s.Exec1.DecodedFields)

	if c.core.Finished() {
		c.printf("finished at pc %d\n", c.core.Pipeline.FinalPC())
	}
	return false, nil
}

func (c *Console) memory(args []string, read func(uint16) uint32) (bool, error) {
	if len(args) < 1 || len(args) > 2 {
		return false, fmt.Errorf("%w: mem addr [n]", ErrUsage)
	}

	addr, err := parseNumber(args[0])
	if err != nil {
		return false, err
	}
	n := uint64(8)
	if len(args) == 2 {
		if n, err = parseNumber(args[1]); err != nil {
			return false, err
		}
	}

	for i := uint64(0); i < n; i++ {
		a := addr + i
		if a > 0xFFFF {
			break
		}
		c.printf("%04x: %08x\n", a, read(uint16(a)))
	}
	return false, nil
}

func (c *Console) dmem(args []string) (bool, error) {
	return c.memory(args, c.core.DataMemory().Read)
}

func (c *Console) imem(args []string) (bool, error) {
	return c.memory(args, c.core.InstructionMemory().Read)
}

func (c *Console) bht(_ []string) (bool, error) {
	for i, counter := range c.core.Pipeline.Predictor().Counters() {
		c.printf("bht[%d] %d\n", i, counter)
	}
	return false, nil
}

func (c *Console) dma(_ []string) (bool, error) {
	r := c.core.Pipeline.DMA().Registers()
	c.printf("state %s busy %t src %04x dst %04x remaining %d\n",
		r.State, r.Busy, r.Src, r.Dst, r.Remaining)
	return false, nil
}

func (c *Console) stats(_ []string) (bool, error) {
	s := c.core.Pipeline.Stats()
	c.printf("cycles:        %d\n", s.Cycles)
	c.printf("instructions:  %d\n", s.Instructions)
	c.printf("CPI:           %.3f\n", s.CPI())
	c.printf("stalls:        %d\n", s.Stalls)
	c.printf("flushes:       %d\n", s.Flushes)
	c.printf("branch acc.:   %.1f%%\n", s.BranchAccuracy())
	c.printf("dma words:     %d\n", s.DMAWords)
	return false, nil
}

func (c *Console) help(_ []string) (bool, error) {
	for _, m := range cmdList {
		c.printf("%s\n", m.usage)
	}
	return false, nil
}

func (c *Console) quit(_ []string) (bool, error) {
	return true, nil
}
