package pipeline_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/spsim/emu"
	"github.com/sarchlab/spsim/timing/pipeline"
)

var _ = Describe("DMA", func() {
	var (
		mem  *emu.Memory
		sram *pipeline.SRAM
		dma  *pipeline.DMA
	)

	step := func(memoryBusy bool) {
		dma.Tick(memoryBusy)
		sram.Commit()
		dma.Commit()
	}

	runUntilIdle := func() int {
		cycles := 0
		for dma.Busy() && cycles < 1000 {
			step(false)
			cycles++
		}
		return cycles
	}

	BeforeEach(func() {
		mem = emu.NewMemory()
		sram = pipeline.NewSRAM(mem)
		dma = pipeline.NewDMA(sram)
		mem.LoadImage([]uint32{0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 11, 22, 33})
	})

	It("should start idle", func() {
		Expect(dma.Busy()).To(BeFalse())
		Expect(dma.Registers().State).To(Equal(pipeline.DMAIdle))
		step(false)
		Expect(dma.Registers().State).To(Equal(pipeline.DMAIdle))
	})

	It("should not be visible before commit", func() {
		dma.Arm(10, 20, 3)
		Expect(dma.Busy()).To(BeFalse())

		dma.Commit()
		Expect(dma.Busy()).To(BeTrue())
		Expect(dma.Remaining()).To(Equal(int32(3)))
	})

	It("should copy one word per read/write pair", func() {
		dma.Arm(10, 20, 3)
		dma.Commit()

		Expect(runUntilIdle()).To(Equal(7))
		Expect(mem.Read(20)).To(Equal(uint32(11)))
		Expect(mem.Read(21)).To(Equal(uint32(22)))
		Expect(mem.Read(22)).To(Equal(uint32(33)))
		Expect(dma.Remaining()).To(Equal(int32(0)))
		Expect(dma.Stats().Words).To(Equal(uint64(3)))
		Expect(sram.Stats().Conflicts).To(Equal(uint64(0)))
	})

	It("should walk through read and write states", func() {
		dma.Arm(10, 20, 1)
		dma.Commit()

		step(false)
		Expect(dma.Registers().State).To(Equal(pipeline.DMARead))
		step(false)
		Expect(dma.Registers().State).To(Equal(pipeline.DMAWrite))
		step(false)
		Expect(dma.Registers().State).To(Equal(pipeline.DMAIdle))
		Expect(dma.Busy()).To(BeFalse())
	})

	It("should wait while the data port is claimed", func() {
		dma.Arm(10, 20, 1)
		dma.Commit()

		step(true)
		step(true)
		Expect(dma.Registers().State).To(Equal(pipeline.DMAIdle))
		Expect(dma.Stats().Deferred).To(Equal(uint64(2)))
		Expect(sram.Stats().Reads).To(Equal(uint64(0)))

		Expect(runUntilIdle()).To(Equal(3))
		Expect(mem.Read(20)).To(Equal(uint32(11)))
	})

	It("should go idle after a write when the port is claimed", func() {
		dma.Arm(10, 20, 2)
		dma.Commit()

		step(false)
		step(false)
		step(true)
		Expect(dma.Registers().State).To(Equal(pipeline.DMAIdle))
		Expect(dma.Remaining()).To(Equal(int32(1)))
		Expect(dma.Busy()).To(BeTrue())
	})

	It("should copy overlapping blocks in ascending order", func() {
		dma.Arm(10, 11, 2)
		dma.Commit()
		runUntilIdle()

		Expect(mem.Read(11)).To(Equal(uint32(11)))
		Expect(mem.Read(12)).To(Equal(uint32(11)))
	})

	It("should name its states", func() {
		Expect(pipeline.DMARead.String()).To(Equal("read"))
		Expect(pipeline.DMAState(9).String()).To(Equal("unknown"))
	})
})
