// Package benchmarks provides SP sample programs and a harness that runs
// them on the pipeline and checks the result against the functional
// emulator.
package benchmarks

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/sarchlab/spsim/emu"
	"github.com/sarchlab/spsim/insts"
	"github.com/sarchlab/spsim/timing/cache"
	"github.com/sarchlab/spsim/timing/pipeline"
)

// BenchmarkResult holds the timing results for a single benchmark run.
type BenchmarkResult struct {
	// Name identifies the benchmark
	Name string `json:"name"`

	// Description explains what the benchmark measures
	Description string `json:"description"`

	// SimulatedCycles is the total cycle count from the pipeline
	SimulatedCycles uint64 `json:"simulated_cycles"`

	// InstructionsRetired is the number of instructions retired by the
	// pipeline
	InstructionsRetired uint64 `json:"instructions_retired"`

	// ReferenceInstructions is the number of instructions the functional
	// emulator executed. It differs from InstructionsRetired only for
	// programs that poll the DMA engine.
	ReferenceInstructions uint64 `json:"reference_instructions"`

	// CPI is cycles per instruction
	CPI float64 `json:"cpi"`

	// StallCycles is the number of structural stall cycles
	StallCycles uint64 `json:"stall_cycles"`

	// PipelineFlushes is the number of pipeline flushes
	PipelineFlushes uint64 `json:"pipeline_flushes"`

	// Branch predictor stats
	BranchPredictions     uint64  `json:"branch_predictions,omitempty"`
	BranchCorrect         uint64  `json:"branch_correct,omitempty"`
	BranchMispredictions  uint64  `json:"branch_mispredictions,omitempty"`
	BranchAccuracyPercent float64 `json:"branch_accuracy_percent,omitempty"`

	// DMA stats
	DMAWords      uint64 `json:"dma_words,omitempty"`
	DMADeferred   uint64 `json:"dma_deferred,omitempty"`
	CopiesDropped uint64 `json:"copies_dropped,omitempty"`

	// PortConflicts must stay 0
	PortConflicts uint64 `json:"port_conflicts"`

	// DCacheHits/Misses (if the profiler is enabled)
	DCacheHits   uint64 `json:"dcache_hits,omitempty"`
	DCacheMisses uint64 `json:"dcache_misses,omitempty"`

	// Verified is true when the pipeline and the emulator agree and the
	// benchmark's own check passed
	Verified bool `json:"verified"`

	// Error describes the first disagreement or run failure
	Error string `json:"error,omitempty"`

	// WallTime is the actual time taken to run the simulation
	WallTime time.Duration `json:"wall_time_ns"`
}

// Benchmark defines a single benchmark program.
type Benchmark struct {
	// Name identifies the benchmark
	Name string

	// Description explains what the benchmark measures
	Description string

	// Image is the memory image, loaded into both memories
	Image []uint32

	// Check validates the final registers and data memory
	Check func(regs [insts.NumRegs]int32, memory *emu.Memory) error
}

// HarnessConfig configures the benchmark harness.
type HarnessConfig struct {
	// EnableDCache enables the data-port cache profiler
	EnableDCache bool

	// BHTSize is the branch history table size
	BHTSize uint32

	// MaxCycles bounds every pipeline run
	MaxCycles uint64

	// Output is where to write results (default: os.Stdout)
	Output io.Writer

	// Logger receives pipeline logs. Nil keeps the pipeline silent.
	Logger *logrus.Logger

	// Verbose prints each result as it completes
	Verbose bool
}

// DefaultConfig returns a default harness configuration.
func DefaultConfig() HarnessConfig {
	return HarnessConfig{
		EnableDCache: true,
		BHTSize:      pipeline.DefaultBHTSize,
		MaxCycles:    10_000_000,
		Output:       os.Stdout,
	}
}

// Harness runs timing benchmarks and reports results.
type Harness struct {
	config     HarnessConfig
	benchmarks []Benchmark
}

// NewHarness creates a new benchmark harness.
func NewHarness(config HarnessConfig) *Harness {
	if config.Output == nil {
		config.Output = os.Stdout
	}
	return &Harness{
		config:     config,
		benchmarks: []Benchmark{},
	}
}

// AddBenchmark adds a benchmark to the harness.
func (h *Harness) AddBenchmark(b Benchmark) {
	h.benchmarks = append(h.benchmarks, b)
}

// AddBenchmarks adds multiple benchmarks to the harness.
func (h *Harness) AddBenchmarks(benchmarks []Benchmark) {
	h.benchmarks = append(h.benchmarks, benchmarks...)
}

// RunAll executes all benchmarks and returns results.
func (h *Harness) RunAll() []BenchmarkResult {
	results := make([]BenchmarkResult, 0, len(h.benchmarks))

	for _, bench := range h.benchmarks {
		result := h.runBenchmark(bench)
		if h.config.Verbose {
			_, _ = fmt.Fprintf(h.config.Output, "%s: cycles=%d insts=%d verified=%t\n",
				result.Name, result.SimulatedCycles, result.InstructionsRetired, result.Verified)
		}
		results = append(results, result)
	}

	return results
}

func (h *Harness) pipelineOptions() []pipeline.PipelineOption {
	opts := []pipeline.PipelineOption{
		pipeline.WithMaxCycles(h.config.MaxCycles),
	}
	if h.config.BHTSize > 0 {
		opts = append(opts, pipeline.WithBHTSize(h.config.BHTSize))
	}
	if h.config.EnableDCache {
		opts = append(opts, pipeline.WithDataCache(cache.DefaultConfig()))
	}
	if h.config.Logger != nil {
		opts = append(opts, pipeline.WithLogger(h.config.Logger))
	}
	return opts
}

// runBenchmark executes a single benchmark on both models.
func (h *Harness) runBenchmark(bench Benchmark) BenchmarkResult {
	imem := emu.NewMemory()
	dmem := emu.NewMemory()
	imem.LoadImage(bench.Image)
	dmem.LoadImage(bench.Image)

	pipe := pipeline.NewPipeline(imem, dmem, h.pipelineOptions()...)

	start := time.Now()
	runErr := pipe.Run()
	wallTime := time.Since(start)

	stats := pipe.Stats()
	result := BenchmarkResult{
		Name:                  bench.Name,
		Description:           bench.Description,
		SimulatedCycles:       stats.Cycles,
		InstructionsRetired:   stats.Instructions,
		CPI:                   stats.CPI(),
		StallCycles:           stats.Stalls,
		PipelineFlushes:       stats.Flushes,
		BranchPredictions:     stats.BranchPredictions,
		BranchCorrect:         stats.BranchCorrect,
		BranchMispredictions:  stats.BranchMispredictions,
		BranchAccuracyPercent: stats.BranchAccuracy(),
		DMAWords:              stats.DMAWords,
		DMADeferred:           stats.DMADeferred,
		CopiesDropped:         stats.CopiesDropped,
		PortConflicts:         stats.PortConflicts,
		WallTime:              wallTime,
	}

	if pipe.UseDataCache() {
		dcStats := pipe.DataCacheStats()
		result.DCacheHits = dcStats.Hits
		result.DCacheMisses = dcStats.Misses
	}

	ref := emu.NewEmulator(emu.WithMaxInstructions(h.config.MaxCycles))
	ref.LoadImage(bench.Image)
	refErr := ref.Run()
	result.ReferenceInstructions = ref.InstructionCount()

	err := runErr
	if err == nil && refErr != nil {
		err = fmt.Errorf("emulator: %w", refErr)
	}
	if err == nil {
		err = compare(pipe, ref)
	}
	if err == nil && bench.Check != nil {
		err = bench.Check(pipe.State().R, dmem)
	}

	if err != nil {
		result.Error = err.Error()
	} else {
		result.Verified = true
	}

	return result
}

// compare reports the first difference between the pipeline and the
// emulator after both finished.
func compare(pipe *pipeline.Pipeline, ref *emu.Emulator) error {
	if (pipe.Fault() == nil) != (ref.Fault() == nil) {
		return fmt.Errorf("fault mismatch: pipeline %v, emulator %v",
			pipe.Fault(), ref.Fault())
	}
	if pipe.FinalPC() != ref.PC() {
		return fmt.Errorf("final pc mismatch: pipeline %d, emulator %d",
			pipe.FinalPC(), ref.PC())
	}

	regs := pipe.State().R
	for i := 2; i < insts.NumRegs; i++ {
		if regs[i] != ref.RegFile().R[i] {
			return fmt.Errorf("r%d mismatch: pipeline %08x, emulator %08x",
				i, uint32(regs[i]), uint32(ref.RegFile().R[i]))
		}
	}

	got := pipe.DataSRAM().Memory().Words()
	want := ref.Memory().Words()
	for addr := range got {
		if got[addr] != want[addr] {
			return fmt.Errorf("mem[%d] mismatch: pipeline %08x, emulator %08x",
				addr, got[addr], want[addr])
		}
	}

	return nil
}

// PrintResults outputs benchmark results in a human-readable format.
func (h *Harness) PrintResults(results []BenchmarkResult) {
	_, _ = fmt.Fprintln(h.config.Output, "=== SP Pipeline Benchmark Results ===")
	_, _ = fmt.Fprintln(h.config.Output, "")

	for _, r := range results {
		_, _ = fmt.Fprintf(h.config.Output, "Benchmark: %s\n", r.Name)
		_, _ = fmt.Fprintf(h.config.Output, "  Description: %s\n", r.Description)
		if r.Verified {
			_, _ = fmt.Fprintln(h.config.Output, "  Verified: yes")
		} else {
			_, _ = fmt.Fprintf(h.config.Output, "  Verified: NO (%s)\n", r.Error)
		}
		_, _ = fmt.Fprintln(h.config.Output, "  --- Timing ---")
		_, _ = fmt.Fprintf(h.config.Output, "  Simulated Cycles:     %d\n", r.SimulatedCycles)
		_, _ = fmt.Fprintf(h.config.Output, "  Instructions Retired: %d\n", r.InstructionsRetired)
		_, _ = fmt.Fprintf(h.config.Output, "  CPI:                  %.3f\n", r.CPI)
		_, _ = fmt.Fprintf(h.config.Output, "  Stall Cycles:         %d\n", r.StallCycles)
		_, _ = fmt.Fprintf(h.config.Output, "  Pipeline Flushes:     %d\n", r.PipelineFlushes)

		if r.BranchPredictions > 0 {
			_, _ = fmt.Fprintln(h.config.Output, "  --- Branch Predictor ---")
			_, _ = fmt.Fprintf(h.config.Output, "  Predictions:     %d\n", r.BranchPredictions)
			_, _ = fmt.Fprintf(h.config.Output, "  Correct:         %d\n", r.BranchCorrect)
			_, _ = fmt.Fprintf(h.config.Output, "  Mispredictions:  %d\n", r.BranchMispredictions)
			_, _ = fmt.Fprintf(h.config.Output, "  Accuracy:        %.1f%%\n", r.BranchAccuracyPercent)
		}

		if r.DMAWords > 0 || r.CopiesDropped > 0 {
			_, _ = fmt.Fprintln(h.config.Output, "  --- DMA ---")
			_, _ = fmt.Fprintf(h.config.Output, "  Words:    %d\n", r.DMAWords)
			_, _ = fmt.Fprintf(h.config.Output, "  Deferred: %d\n", r.DMADeferred)
			_, _ = fmt.Fprintf(h.config.Output, "  Dropped:  %d\n", r.CopiesDropped)
		}

		if r.DCacheHits > 0 || r.DCacheMisses > 0 {
			_, _ = fmt.Fprintln(h.config.Output, "  --- D-Cache ---")
			_, _ = fmt.Fprintf(h.config.Output, "  Hits:   %d\n", r.DCacheHits)
			_, _ = fmt.Fprintf(h.config.Output, "  Misses: %d\n", r.DCacheMisses)
		}

		_, _ = fmt.Fprintf(h.config.Output, "  Wall Time: %v\n", r.WallTime)
		_, _ = fmt.Fprintln(h.config.Output, "")
	}
}

// PrintCSV outputs benchmark results in CSV format for easy comparison.
func (h *Harness) PrintCSV(results []BenchmarkResult) {
	_, _ = fmt.Fprintln(h.config.Output,
		"name,cycles,instructions,cpi,stalls,flushes,predictions,correct,dma_words,dma_deferred,dcache_hits,dcache_misses,verified")

	for _, r := range results {
		_, _ = fmt.Fprintf(h.config.Output, "%s,%d,%d,%.3f,%d,%d,%d,%d,%d,%d,%d,%d,%t\n",
			r.Name,
			r.SimulatedCycles,
			r.InstructionsRetired,
			r.CPI,
			r.StallCycles,
			r.PipelineFlushes,
			r.BranchPredictions,
			r.BranchCorrect,
			r.DMAWords,
			r.DMADeferred,
			r.DCacheHits,
			r.DCacheMisses,
			r.Verified,
		)
	}
}

// BenchmarkReport is the complete output format for benchmark results.
type BenchmarkReport struct {
	// Metadata about the benchmark run
	Metadata ReportMetadata `json:"metadata"`

	// Results is the list of individual benchmark results
	Results []BenchmarkResult `json:"results"`

	// Summary contains aggregate statistics
	Summary ReportSummary `json:"summary"`
}

// ReportMetadata contains information about the benchmark run.
type ReportMetadata struct {
	// Timestamp when the benchmark was run
	Timestamp string `json:"timestamp"`

	// Config describes the benchmark configuration
	Config BenchmarkConfig `json:"config"`
}

// BenchmarkConfig describes the harness configuration used.
type BenchmarkConfig struct {
	DCacheEnabled bool   `json:"dcache_enabled"`
	BHTSize       uint32 `json:"bht_size"`
}

// ReportSummary contains aggregate statistics across all benchmarks.
type ReportSummary struct {
	// TotalBenchmarks is the number of benchmarks run
	TotalBenchmarks int `json:"total_benchmarks"`

	// Verified is the number of benchmarks that matched the emulator
	Verified int `json:"verified"`

	// TotalCycles is the sum of all simulated cycles
	TotalCycles uint64 `json:"total_cycles"`

	// TotalInstructions is the sum of all instructions retired
	TotalInstructions uint64 `json:"total_instructions"`

	// AverageCPI is the average cycles per instruction
	AverageCPI float64 `json:"average_cpi"`

	// TotalWallTime is the total wall clock time for all benchmarks
	TotalWallTime time.Duration `json:"total_wall_time_ns"`
}

// Summarize aggregates results.
func Summarize(results []BenchmarkResult) ReportSummary {
	s := ReportSummary{TotalBenchmarks: len(results)}
	for _, r := range results {
		s.TotalCycles += r.SimulatedCycles
		s.TotalInstructions += r.InstructionsRetired
		s.TotalWallTime += r.WallTime
		if r.Verified {
			s.Verified++
		}
	}
	if s.TotalInstructions > 0 {
		s.AverageCPI = float64(s.TotalCycles) / float64(s.TotalInstructions)
	}
	return s
}

// PrintJSON outputs benchmark results in JSON format for automated comparison.
func (h *Harness) PrintJSON(results []BenchmarkResult) error {
	report := BenchmarkReport{
		Metadata: ReportMetadata{
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Config: BenchmarkConfig{
				DCacheEnabled: h.config.EnableDCache,
				BHTSize:       h.config.BHTSize,
			},
		},
		Results: results,
		Summary: Summarize(results),
	}

	encoder := json.NewEncoder(h.config.Output)
	encoder.SetIndent("", "  ")
	return encoder.Encode(report)
}
