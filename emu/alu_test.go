package emu_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/spsim/emu"
	"github.com/sarchlab/spsim/insts"
)

var _ = Describe("ALU", func() {
	DescribeTable("data operations",
		func(op insts.Op, a, b, want int32) {
			Expect(emu.ALU(op, a, b)).To(Equal(want))
		},
		Entry("ADD", insts.OpADD, int32(5), int32(7), int32(12)),
		Entry("ADD wraps", insts.OpADD, int32(0x7FFFFFFF), int32(1), int32(-0x80000000)),
		Entry("SUB", insts.OpSUB, int32(5), int32(7), int32(-2)),
		Entry("LSF", insts.OpLSF, int32(1), int32(4), int32(16)),
		Entry("LSF by 32 clears", insts.OpLSF, int32(1), int32(32), int32(0)),
		Entry("RSF is arithmetic", insts.OpRSF, int32(-16), int32(2), int32(-4)),
		Entry("RSF with negative count", insts.OpRSF, int32(-16), int32(-1), int32(-1)),
		Entry("AND", insts.OpAND, int32(0xF0), int32(0x3C), int32(0x30)),
		Entry("OR", insts.OpOR, int32(0xF0), int32(0x0F), int32(0xFF)),
		Entry("XOR", insts.OpXOR, int32(0xFF), int32(0x0F), int32(0xF0)),
	)

	DescribeTable("compare operations",
		func(op insts.Op, a, b, want int32) {
			Expect(emu.ALU(op, a, b)).To(Equal(want))
		},
		Entry("JLT true", insts.OpJLT, int32(-1), int32(0), int32(1)),
		Entry("JLT false", insts.OpJLT, int32(0), int32(0), int32(0)),
		Entry("JLE equal", insts.OpJLE, int32(3), int32(3), int32(1)),
		Entry("JEQ", insts.OpJEQ, int32(3), int32(3), int32(1)),
		Entry("JNE", insts.OpJNE, int32(3), int32(3), int32(0)),
	)

	Describe("LHI", func() {
		It("should replace the upper half and keep the lower half", func() {
			Expect(uint32(emu.ALU(insts.OpLHI, 0x12345678, 0x0000BEEF))).
				To(Equal(uint32(0xBEEF5678)))
		})

		It("should use only the low half of a sign-extended immediate", func() {
			imm := insts.Decode(0x0000BEEF).Imm
			Expect(uint32(emu.ALU(insts.OpLHI, 0x00001111, imm))).
				To(Equal(uint32(0xBEEF1111)))
		})
	})

	It("should return 0 for opcodes without an ALU function", func() {
		Expect(emu.ALU(insts.OpLD, 1, 2)).To(Equal(int32(0)))
		Expect(emu.ALU(insts.OpHLT, 1, 2)).To(Equal(int32(0)))
		Expect(emu.ALU(insts.Op(12), 1, 2)).To(Equal(int32(0)))
	})

	Describe("BranchTaken", func() {
		It("should always take JIN", func() {
			Expect(emu.BranchTaken(insts.OpJIN, 0)).To(BeTrue())
		})

		It("should follow the compare result for conditional branches", func() {
			Expect(emu.BranchTaken(insts.OpJEQ, 1)).To(BeTrue())
			Expect(emu.BranchTaken(insts.OpJEQ, 0)).To(BeFalse())
		})

		It("should never take non-branches", func() {
			Expect(emu.BranchTaken(insts.OpADD, 1)).To(BeFalse())
		})
	})
})
