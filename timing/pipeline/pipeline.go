package pipeline

import (
	"errors"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/sarchlab/spsim/emu"
	"github.com/sarchlab/spsim/insts"
	"github.com/sarchlab/spsim/timing/cache"
)

// ErrCycleLimit is returned by Run when the cycle bound is reached before
// the program halts.
var ErrCycleLimit = errors.New("max cycles reached")

// Statistics holds pipeline performance statistics.
type Statistics struct {
	// Cycles is the total number of cycles simulated.
	Cycles uint64
	// Instructions is the number of instructions retired.
	Instructions uint64
	// Stalls is the number of load-after-store stall cycles.
	Stalls uint64
	// Flushes is the number of pipeline flushes.
	Flushes uint64
	// BranchPredictions is the number of resolved conditional branches.
	BranchPredictions uint64
	// BranchCorrect is the number of conditional branches fetched down the
	// right path.
	BranchCorrect uint64
	// BranchMispredictions is the number of conditional branches that
	// flushed the pipeline.
	BranchMispredictions uint64
	// DMAWords is the number of words copied by the DMA engine.
	DMAWords uint64
	// DMADeferred is the number of cycles the DMA engine waited for the
	// data port.
	DMADeferred uint64
	// CopiesDropped is the number of CPY requests refused because the DMA
	// engine was busy.
	CopiesDropped uint64
	// PortConflicts is the number of cycles an SRAM port got more than one
	// request. It stays 0 unless the arbitration is broken.
	PortConflicts uint64
}

// CPI returns the cycles per instruction.
func (s Statistics) CPI() float64 {
	if s.Instructions == 0 {
		return 0
	}
	return float64(s.Cycles) / float64(s.Instructions)
}

// BranchAccuracy returns the share of correctly predicted conditional
// branches as a percentage.
func (s Statistics) BranchAccuracy() float64 {
	if s.BranchPredictions == 0 {
		return 0
	}
	return float64(s.BranchCorrect) / float64(s.BranchPredictions) * 100
}

// RetireRecord describes one instruction retiring from exec1.
type RetireRecord struct {
	// Index is the number of instructions retired before this one.
	Index uint64
	// Exec1 is the retiring stage register.
	Exec1 Exec1Register
	// Regs is the register file before this instruction writes back.
	Regs [insts.NumRegs]int32
	// LoadData is the data SRAM output, the loaded word for LD.
	LoadData uint32
}

// Tracer receives every retired instruction and the end of the run.
type Tracer interface {
	Retire(rec RetireRecord)
	Finish(pc uint16, instructions uint64)
}

// CycleTracer receives the committed state at the start of every cycle.
// The state must not be retained.
type CycleTracer interface {
	Cycle(state *State)
}

// PipelineOption is a functional option for configuring the Pipeline.
type PipelineOption func(*Pipeline)

// WithBHTSize sets the number of branch history table entries.
func WithBHTSize(size uint32) PipelineOption {
	return func(p *Pipeline) {
		p.bhtSize = size
	}
}

// WithTracer sets the instruction tracer.
func WithTracer(t Tracer) PipelineOption {
	return func(p *Pipeline) {
		p.tracer = t
	}
}

// WithCycleTracer sets the cycle tracer.
func WithCycleTracer(t CycleTracer) PipelineOption {
	return func(p *Pipeline) {
		p.cycleTracer = t
	}
}

// WithLogger sets the logger. By default nothing is logged.
func WithLogger(logger *logrus.Logger) PipelineOption {
	return func(p *Pipeline) {
		p.log = logger.WithField("unit", "sp")
	}
}

// WithDataCache profiles the data port with a cache of the given geometry.
func WithDataCache(config cache.Config) PipelineOption {
	return func(p *Pipeline) {
		p.dcache = cache.New(config)
	}
}

// WithMaxCycles bounds Run. A value of 0 means no limit.
func WithMaxCycles(max uint64) PipelineOption {
	return func(p *Pipeline) {
		p.maxCycles = max
	}
}

// Pipeline implements the 6-stage SP core with its DMA engine.
//
// All stage registers are double-buffered: every Tick computes p.next from
// p.cur only and then commits next, the predictor, the DMA engine and the
// SRAM ports together.
type Pipeline struct {
	cur  State
	next State

	imem *SRAM
	dmem *SRAM

	decoder    *insts.Decoder
	hazardUnit *HazardUnit
	predictor  *BranchPredictor
	dma        *DMA
	dcache     *cache.Cache

	tracer      Tracer
	cycleTracer CycleTracer
	log         *logrus.Entry

	bhtSize   uint32
	maxCycles uint64

	stats Statistics

	started  bool
	halted   bool
	finished bool
	haltPC   uint16
	fault    *emu.Fault
}

// NewPipeline creates a pipeline fetching from imem with data memory dmem.
// Both memories must already hold the program image.
func NewPipeline(imem, dmem *emu.Memory, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		imem:       NewSRAM(imem),
		dmem:       NewSRAM(dmem),
		decoder:    insts.NewDecoder(),
		hazardUnit: NewHazardUnit(),
		bhtSize:    DefaultBHTSize,
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.log == nil {
		logger := logrus.New()
		logger.SetOutput(io.Discard)
		p.log = logger.WithField("unit", "sp")
	}

	p.predictor = NewBranchPredictor(BranchPredictorConfig{BHTSize: p.bhtSize})
	p.dma = NewDMA(p.dmem)
	if p.dcache != nil {
		p.dma.onWrite = p.dcache.Invalidate
	}

	return p
}

// Start resets the core and activates fetch at PC 0.
func (p *Pipeline) Start() {
	p.cur = State{}
	p.cur.Fetch0 = FetchRegister{Active: true, PC: 0}
	p.next = p.cur

	p.predictor.Reset()
	p.dma.Reset()
	p.stats = Statistics{}
	p.started = true
	p.halted = false
	p.finished = false
	p.haltPC = 0
	p.fault = nil
}

// Tick executes one pipeline cycle.
func (p *Pipeline) Tick() {
	if p.finished {
		return
	}
	if !p.started {
		p.Start()
	}

	if p.cycleTracer != nil {
		p.cycleTracer.Cycle(&p.cur)
	}
	p.logCycle()

	p.next = p.cur
	p.next.CycleCounter = p.cur.CycleCounter + 1

	p.fetch0()
	p.fetch1()
	p.decode0()
	p.decode1()
	p.execute0()
	p.execute1()
	p.dma.Tick(p.memoryBusy())

	p.commit()
	p.stats.Cycles++

	if p.halted && !p.dma.Busy() {
		p.finish()
	}
}

func (p *Pipeline) commit() {
	p.cur = p.next
	p.predictor.Commit()
	p.dma.Commit()
	p.imem.Commit()
	p.dmem.Commit()
}

// halt stops fetching and squashes the younger stages. The run ends once
// the DMA engine has drained.
func (p *Pipeline) halt() {
	e := &p.cur.Exec1

	p.halted = true
	p.haltPC = e.PC
	p.fault = e.Fault
	p.next.squashYounger()

	fields := logrus.Fields{"cycle": p.cur.CycleCounter, "pc": e.PC}
	if e.Fault != nil {
		p.log.WithFields(fields).WithError(e.Fault).Warn("halting on fault")
	}
	if p.dma.Busy() {
		p.log.WithFields(fields).
			WithField("remaining", p.dma.Remaining()).
			Info("halt retired, waiting for DMA")
	}
}

func (p *Pipeline) finish() {
	p.finished = true
	if p.tracer != nil {
		p.tracer.Finish(p.haltPC, p.stats.Instructions)
	}

	p.log.WithFields(logrus.Fields{
		"cycle":        p.cur.CycleCounter,
		"pc":           p.haltPC,
		"instructions": p.stats.Instructions,
	}).Info("sim finished")
}

func (p *Pipeline) logCycle() {
	if !p.log.Logger.IsLevelEnabled(logrus.DebugLevel) {
		return
	}

	s := &p.cur
	p.log.WithFields(logrus.Fields{
		"cycle":  s.CycleCounter,
		"fetch0": stagePC(s.Fetch0.Active, s.Fetch0.PC),
		"fetch1": stagePC(s.Fetch1.Active, s.Fetch1.PC),
		"dec0":   stagePC(s.Dec0.Active, s.Dec0.PC),
		"dec1":   stagePC(s.Dec1.Active, s.Dec1.PC),
		"exec0":  stagePC(s.Exec0.Active, s.Exec0.PC),
		"exec1":  stagePC(s.Exec1.Active, s.Exec1.PC),
		"dma":    p.dma.Registers().State,
	}).Debug("cycle")
}

func stagePC(active bool, pc uint16) int {
	if !active {
		return -1
	}
	return int(pc)
}

// Run ticks until the program halts and the DMA engine drains.
func (p *Pipeline) Run() error {
	for !p.finished {
		if p.maxCycles > 0 && p.stats.Cycles >= p.maxCycles {
			return fmt.Errorf("%w: %d cycles, %d instructions retired",
				ErrCycleLimit, p.stats.Cycles, p.stats.Instructions)
		}
		p.Tick()
	}
	return nil
}

// RunCycles executes the pipeline for the specified number of cycles.
// Returns true if still running, false if finished.
func (p *Pipeline) RunCycles(cycles uint64) bool {
	for i := uint64(0); i < cycles && !p.finished; i++ {
		p.Tick()
	}
	return !p.finished
}

// Halted returns true once HLT (or a faulting instruction) has retired.
func (p *Pipeline) Halted() bool {
	return p.halted
}

// Finished returns true once the core halted and the DMA engine is idle.
func (p *Pipeline) Finished() bool {
	return p.finished
}

// State returns a copy of the committed core state.
func (p *Pipeline) State() State {
	return p.cur
}

// Fault returns the fault that halted the core, if any.
func (p *Pipeline) Fault() *emu.Fault {
	return p.fault
}

// FinalPC returns the PC of the retired HLT.
func (p *Pipeline) FinalPC() uint16 {
	return p.haltPC
}

// Predictor returns the branch predictor.
func (p *Pipeline) Predictor() *BranchPredictor {
	return p.predictor
}

// DMA returns the DMA engine.
func (p *Pipeline) DMA() *DMA {
	return p.dma
}

// InstructionSRAM returns the instruction memory port.
func (p *Pipeline) InstructionSRAM() *SRAM {
	return p.imem
}

// DataSRAM returns the data memory port.
func (p *Pipeline) DataSRAM() *SRAM {
	return p.dmem
}

// UseDataCache returns true if the data port is profiled by a cache.
func (p *Pipeline) UseDataCache() bool {
	return p.dcache != nil
}

// DataCacheStats returns the data cache profiler statistics.
func (p *Pipeline) DataCacheStats() cache.Statistics {
	if p.dcache == nil {
		return cache.Statistics{}
	}
	return p.dcache.Stats()
}

// Stats returns pipeline statistics.
func (p *Pipeline) Stats() Statistics {
	s := p.stats

	dmaStats := p.dma.Stats()
	s.DMAWords = dmaStats.Words
	s.DMADeferred = dmaStats.Deferred
	s.PortConflicts = p.imem.Stats().Conflicts + p.dmem.Stats().Conflicts

	return s
}
