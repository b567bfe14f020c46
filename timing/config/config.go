// Package config holds the simulator configuration, stored as JSON.
package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/sarchlab/akita/v4/sim"

	"github.com/sarchlab/spsim/timing/cache"
	"github.com/sarchlab/spsim/timing/pipeline"
)

// OutputConfig names the files a run writes.
type OutputConfig struct {
	// InstTrace is the instruction trace file.
	InstTrace string `json:"inst_trace"`
	// CycleTrace is the cycle trace file. Empty disables the cycle trace.
	CycleTrace string `json:"cycle_trace"`
	// IMemDump receives the instruction memory at the end of the run.
	IMemDump string `json:"imem_dump"`
	// DMemDump receives the data memory at the end of the run.
	DMemDump string `json:"dmem_dump"`
}

// Config holds every simulator parameter.
type Config struct {
	// BHTSize is the number of branch history table entries. Default: 10.
	BHTSize uint32 `json:"bht_size"`

	// MaxCycles bounds the run. 0 means no limit.
	MaxCycles uint64 `json:"max_cycles"`

	// Frequency is the core clock used to report simulated time.
	// Default: 1 GHz.
	Frequency sim.Freq `json:"frequency"`

	// DataCache enables the data-port cache profiler when set.
	DataCache *cache.Config `json:"data_cache,omitempty"`

	// Output names the trace and dump files.
	Output OutputConfig `json:"output"`
}

// Default returns the configuration matching the reference SP core.
func Default() *Config {
	return &Config{
		BHTSize:   pipeline.DefaultBHTSize,
		MaxCycles: 0,
		Frequency: 1 * sim.GHz,
		Output: OutputConfig{
			InstTrace:  "inst_trace.txt",
			CycleTrace: "cycle_trace.txt",
			IMemDump:   "srami_out.txt",
			DMemDump:   "sramd_out.txt",
		},
	}
}

// Load loads a Config from a JSON file. Fields missing from the file keep
// their default values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := Default()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return config, nil
}

// Save writes the Config to a JSON file.
func (c *Config) Save(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks that all values are usable.
func (c *Config) Validate() error {
	if c.BHTSize == 0 {
		return fmt.Errorf("bht_size must be > 0")
	}
	if c.Frequency <= 0 {
		return fmt.Errorf("frequency must be > 0")
	}
	if c.Output.InstTrace == "" {
		return fmt.Errorf("output.inst_trace must be set")
	}
	if c.DataCache != nil {
		if err := c.DataCache.Validate(); err != nil {
			return fmt.Errorf("data_cache: %w", err)
		}
	}
	return nil
}

// Clone returns a deep copy of the Config.
func (c *Config) Clone() *Config {
	clone := *c
	if c.DataCache != nil {
		dc := *c.DataCache
		clone.DataCache = &dc
	}
	return &clone
}

// PipelineOptions returns the pipeline options this configuration implies.
func (c *Config) PipelineOptions() []pipeline.PipelineOption {
	opts := []pipeline.PipelineOption{
		pipeline.WithBHTSize(c.BHTSize),
		pipeline.WithMaxCycles(c.MaxCycles),
	}
	if c.DataCache != nil {
		opts = append(opts, pipeline.WithDataCache(*c.DataCache))
	}
	return opts
}

// SimulatedSeconds converts a cycle count into simulated time.
func (c *Config) SimulatedSeconds(cycles uint64) float64 {
	if c.Frequency <= 0 {
		return 0
	}
	return float64(cycles) / float64(c.Frequency)
}
