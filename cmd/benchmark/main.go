// Command benchmark runs the SP benchmark harness.
//
// Usage:
//
//	go run ./cmd/benchmark [flags]
//
// Flags:
//
//	--csv        Output results in CSV format (default: human-readable)
//	--json       Output results as a JSON report
//	--no-dcache  Disable the data cache profiler
//	--bht n      Branch history table size
//	--core       Run only the core benchmarks
//
// Example:
//
//	# Compare BHT sizes
//	go run ./cmd/benchmark --csv --bht 4 > bht4.csv
//	go run ./cmd/benchmark --csv --bht 16 > bht16.csv
//
// Every benchmark also runs on the functional emulator; a result is
// verified only when both models end in the same state.
package main

import (
	"fmt"
	"os"

	getopt "github.com/pborman/getopt/v2"
	"github.com/sirupsen/logrus"

	"github.com/sarchlab/spsim/benchmarks"
	"github.com/sarchlab/spsim/timing/pipeline"
)

func main() {
	csvOutput := getopt.BoolLong("csv", 0, "Output results in CSV format")
	jsonOutput := getopt.BoolLong("json", 0, "Output results as JSON")
	noDCache := getopt.BoolLong("no-dcache", 0, "Disable the data cache profiler")
	coreOnly := getopt.BoolLong("core", 0, "Run only the core benchmarks")
	bhtSize := getopt.Uint32Long("bht", 'b', pipeline.DefaultBHTSize, "Branch history table size")
	verbose := getopt.BoolLong("verbose", 'v', "Print each result as it completes")
	getopt.Parse()

	logger := logrus.New()
	logger.SetOutput(os.Stderr)

	// Configure harness
	config := benchmarks.DefaultConfig()
	config.EnableDCache = !*noDCache
	config.BHTSize = *bhtSize
	config.Verbose = *verbose
	config.Output = os.Stdout

	harness := benchmarks.NewHarness(config)
	if *coreOnly {
		harness.AddBenchmarks(benchmarks.GetCoreBenchmarks())
	} else {
		harness.AddBenchmarks(benchmarks.GetMicrobenchmarks())
	}

	if !*csvOutput && !*jsonOutput {
		fmt.Println("SP Pipeline Benchmark Harness")
		fmt.Println("=============================")
		fmt.Printf("D-Cache:  %v\n", config.EnableDCache)
		fmt.Printf("BHT size: %d\n", config.BHTSize)
		fmt.Println("")
	}

	results := harness.RunAll()

	switch {
	case *jsonOutput:
		if err := harness.PrintJSON(results); err != nil {
			logger.Fatal(err)
		}
	case *csvOutput:
		harness.PrintCSV(results)
	default:
		harness.PrintResults(results)
	}

	summary := benchmarks.Summarize(results)
	if summary.Verified != summary.TotalBenchmarks {
		logger.WithFields(logrus.Fields{
			"verified": summary.Verified,
			"total":    summary.TotalBenchmarks,
		}).Fatal("benchmarks disagree with the functional emulator")
	}
}
