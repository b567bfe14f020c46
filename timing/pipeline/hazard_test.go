package pipeline_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/spsim/insts"
	"github.com/sarchlab/spsim/timing/pipeline"
)

func exec1With(op insts.Op, dst uint8, aluOut int32) *pipeline.Exec1Register {
	return &pipeline.Exec1Register{
		DecodedFields: pipeline.DecodedFields{
			Active: true,
			PC:     40,
			Opcode: op,
			Dst:    dst,
		},
		ALUOut: aluOut,
	}
}

var _ = Describe("HazardUnit", func() {
	var h *pipeline.HazardUnit

	BeforeEach(func() {
		h = pipeline.NewHazardUnit()
	})

	Describe("DetectForwarding", func() {
		It("should read register 1 as the immediate even if exec1 names it", func() {
			Expect(h.DetectForwarding(1, exec1With(insts.OpADD, 1, 9))).
				To(Equal(pipeline.ForwardImmediate))
		})

		It("should read register 0 as zero even if exec1 names it", func() {
			Expect(h.DetectForwarding(0, exec1With(insts.OpADD, 0, 9))).
				To(Equal(pipeline.ForwardZero))
		})

		It("should forward load data from a retiring load", func() {
			Expect(h.DetectForwarding(3, exec1With(insts.OpLD, 3, 0))).
				To(Equal(pipeline.ForwardLoadData))
		})

		DescribeTable("should forward the ALU result of result-writing opcodes",
			func(op insts.Op) {
				Expect(h.DetectForwarding(4, exec1With(op, 4, 1))).
					To(Equal(pipeline.ForwardALUOut))
			},
			Entry("ADD", insts.OpADD),
			Entry("LHI", insts.OpLHI),
			Entry("ASK", insts.OpASK),
			Entry("CPY", insts.OpCPY),
		)

		It("should not forward from a store", func() {
			Expect(h.DetectForwarding(4, exec1With(insts.OpST, 4, 0))).
				To(Equal(pipeline.ForwardNone))
		})

		It("should not forward from a different destination", func() {
			Expect(h.DetectForwarding(5, exec1With(insts.OpADD, 4, 0))).
				To(Equal(pipeline.ForwardNone))
		})

		It("should not forward from an inactive stage", func() {
			e := exec1With(insts.OpADD, 4, 0)
			e.Active = false
			Expect(h.DetectForwarding(4, e)).To(Equal(pipeline.ForwardNone))
		})

		It("should forward r7 from a taken branch", func() {
			Expect(h.DetectForwarding(7, exec1With(insts.OpJEQ, 0, 1))).
				To(Equal(pipeline.ForwardLink))
			Expect(h.DetectForwarding(7, exec1With(insts.OpJIN, 0, 1))).
				To(Equal(pipeline.ForwardLink))
		})

		It("should not forward r7 from a branch that is not taken", func() {
			Expect(h.DetectForwarding(7, exec1With(insts.OpJEQ, 0, 0))).
				To(Equal(pipeline.ForwardNone))
		})

		It("should prefer an ALU write of r7 over the link", func() {
			Expect(h.DetectForwarding(7, exec1With(insts.OpADD, 7, 3))).
				To(Equal(pipeline.ForwardALUOut))
		})
	})

	Describe("Forward", func() {
		It("should return the value of the chosen source", func() {
			alu := exec1With(insts.OpSUB, 2, -6)
			ld := exec1With(insts.OpLD, 2, 0)
			br := exec1With(insts.OpJLT, 0, 1)

			Expect(h.Forward(1, -3, 99, alu, 0)).To(Equal(int32(-3)))
			Expect(h.Forward(0, -3, 99, alu, 0)).To(Equal(int32(0)))
			Expect(h.Forward(2, 0, 99, alu, 0)).To(Equal(int32(-6)))
			Expect(h.Forward(2, 0, 99, ld, 0xFFFFFFFF)).To(Equal(int32(-1)))
			Expect(h.Forward(7, 0, 99, br, 0)).To(Equal(int32(40)))
			Expect(h.Forward(3, 0, 99, alu, 0)).To(Equal(int32(99)))
		})
	})

	Describe("DetectStructuralHazard", func() {
		var dec1 *pipeline.Dec1Register

		BeforeEach(func() {
			dec1 = &pipeline.Dec1Register{}
			dec1.Active = true
			dec1.Opcode = insts.OpST
		})

		It("should stall a load directly behind a store", func() {
			ld := insts.Assemble(insts.OpLD, 2, 0, 1, 100)
			Expect(h.DetectStructuralHazard(ld, dec1)).To(BeTrue())
		})

		It("should not stall a store behind a store", func() {
			st := insts.Assemble(insts.OpST, 0, 2, 1, 100)
			Expect(h.DetectStructuralHazard(st, dec1)).To(BeFalse())
		})

		It("should not stall when dec1 is empty", func() {
			dec1.Active = false
			ld := insts.Assemble(insts.OpLD, 2, 0, 1, 100)
			Expect(h.DetectStructuralHazard(ld, dec1)).To(BeFalse())
		})
	})

	It("should name forward sources", func() {
		Expect(pipeline.ForwardLoadData.String()).To(Equal("load"))
		Expect(pipeline.ForwardSource(42).String()).To(Equal("unknown"))
	})
})
