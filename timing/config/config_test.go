package config_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sarchlab/akita/v4/sim"

	"github.com/sarchlab/spsim/timing/cache"
	"github.com/sarchlab/spsim/timing/config"
)

var _ = Describe("Config", func() {
	var dir string

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
	})

	Describe("Default", func() {
		It("should match the reference core", func() {
			c := config.Default()

			Expect(c.BHTSize).To(Equal(uint32(10)))
			Expect(c.MaxCycles).To(Equal(uint64(0)))
			Expect(c.Frequency).To(Equal(1 * sim.GHz))
			Expect(c.DataCache).To(BeNil())
			Expect(c.Output.InstTrace).To(Equal("inst_trace.txt"))
			Expect(c.Output.CycleTrace).To(Equal("cycle_trace.txt"))
			Expect(c.Output.IMemDump).To(Equal("srami_out.txt"))
			Expect(c.Output.DMemDump).To(Equal("sramd_out.txt"))
			Expect(c.Validate()).To(Succeed())
		})
	})

	Describe("Load and Save", func() {
		It("should round-trip through a file", func() {
			c := config.Default()
			c.BHTSize = 64
			dc := cache.DefaultConfig()
			c.DataCache = &dc
			path := filepath.Join(dir, "sp.json")

			Expect(c.Save(path)).To(Succeed())
			loaded, err := config.Load(path)

			Expect(err).NotTo(HaveOccurred())
			Expect(loaded).To(Equal(c))
		})

		It("should keep defaults for fields missing from the file", func() {
			path := filepath.Join(dir, "partial.json")
			Expect(os.WriteFile(path, []byte(`{"max_cycles": 500}`), 0o644)).To(Succeed())

			c, err := config.Load(path)

			Expect(err).NotTo(HaveOccurred())
			Expect(c.MaxCycles).To(Equal(uint64(500)))
			Expect(c.BHTSize).To(Equal(uint32(10)))
			Expect(c.Output.InstTrace).To(Equal("inst_trace.txt"))
		})

		It("should fail on a missing file", func() {
			_, err := config.Load(filepath.Join(dir, "missing.json"))
			Expect(err).To(HaveOccurred())
		})

		It("should fail on malformed JSON", func() {
			path := filepath.Join(dir, "bad.json")
			Expect(os.WriteFile(path, []byte(`{"bht_size": }`), 0o644)).To(Succeed())

			_, err := config.Load(path)
			Expect(err).To(MatchError(ContainSubstring("failed to parse config")))
		})
	})

	Describe("Validate", func() {
		It("should reject an empty BHT", func() {
			c := config.Default()
			c.BHTSize = 0
			Expect(c.Validate()).To(MatchError(ContainSubstring("bht_size")))
		})

		It("should reject a non-positive frequency", func() {
			c := config.Default()
			c.Frequency = 0
			Expect(c.Validate()).To(MatchError(ContainSubstring("frequency")))
		})

		It("should reject an invalid cache geometry", func() {
			c := config.Default()
			c.DataCache = &cache.Config{Size: 3, Associativity: 2, BlockSize: 2}
			Expect(c.Validate()).To(MatchError(ContainSubstring("data_cache")))
		})
	})

	Describe("Clone", func() {
		It("should not share the cache configuration", func() {
			c := config.Default()
			dc := cache.DefaultConfig()
			c.DataCache = &dc

			clone := c.Clone()
			clone.DataCache.Size = 1024
			clone.BHTSize = 4

			Expect(c.DataCache.Size).To(Equal(256))
			Expect(c.BHTSize).To(Equal(uint32(10)))
		})
	})

	Describe("PipelineOptions", func() {
		It("should add the cache option only when configured", func() {
			c := config.Default()
			Expect(c.PipelineOptions()).To(HaveLen(2))

			dc := cache.DefaultConfig()
			c.DataCache = &dc
			Expect(c.PipelineOptions()).To(HaveLen(3))
		})
	})

	Describe("SimulatedSeconds", func() {
		It("should divide cycles by the clock frequency", func() {
			c := config.Default()
			c.Frequency = 1 * sim.MHz

			Expect(c.SimulatedSeconds(2000000)).To(BeNumerically("~", 2.0, 1e-9))
		})
	})
})
