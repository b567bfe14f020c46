package insts_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/spsim/insts"
)

var _ = Describe("Decoder", func() {
	var decoder *insts.Decoder

	BeforeEach(func() {
		decoder = insts.NewDecoder()
	})

	Describe("field extraction", func() {
		// ADD R2, R1, R0, #5 -> 0x00880005
		It("should decode ADD R2, R1, R0, #5", func() {
			inst := decoder.Decode(0x00880005)

			Expect(inst.Op).To(Equal(insts.OpADD))
			Expect(inst.Dst).To(Equal(uint8(2)))
			Expect(inst.Src0).To(Equal(uint8(1)))
			Expect(inst.Src1).To(Equal(uint8(0)))
			Expect(inst.Imm).To(Equal(int32(5)))
			Expect(inst.Word).To(Equal(uint32(0x00880005)))
		})

		// JLT R0, R2, R5, #7 -> opcode 16
		It("should decode JLT R0, R2, R5, #7", func() {
			inst := decoder.Decode(0x20150007)

			Expect(inst.Op).To(Equal(insts.OpJLT))
			Expect(inst.Dst).To(Equal(uint8(0)))
			Expect(inst.Src0).To(Equal(uint8(2)))
			Expect(inst.Src1).To(Equal(uint8(5)))
			Expect(inst.Target()).To(Equal(uint16(7)))
		})

		It("should ignore the two unused top bits", func() {
			inst := decoder.Decode(0xC0880005)

			Expect(inst.Op).To(Equal(insts.OpADD))
			Expect(inst.Dst).To(Equal(uint8(2)))
		})

		It("should decode HLT from an all-opcode word", func() {
			inst := decoder.Decode(uint32(insts.OpHLT) << 25)

			Expect(inst.Op).To(Equal(insts.OpHLT))
			Expect(inst.Imm).To(Equal(int32(0)))
		})
	})

	Describe("sign extension", func() {
		It("should decode immediate 0xFFFF as -1", func() {
			inst := decoder.Decode(0x0000FFFF)
			Expect(inst.Imm).To(Equal(int32(-1)))
		})

		It("should decode immediate 0x8000 as -32768", func() {
			inst := decoder.Decode(0x00008000)
			Expect(inst.Imm).To(Equal(int32(-32768)))
		})

		It("should keep 0x7FFF positive", func() {
			inst := decoder.Decode(0x00007FFF)
			Expect(inst.Imm).To(Equal(int32(0x7FFF)))
		})

		It("should give a 16-bit target even for negative immediates", func() {
			inst := decoder.Decode(0x2000FFFE)
			Expect(inst.Target()).To(Equal(uint16(0xFFFE)))
		})
	})

	Describe("round trip", func() {
		DescribeTable("Encode then Decode reproduces the fields",
			func(op insts.Op, dst, src0, src1 uint8, imm int32) {
				word := insts.Assemble(op, dst, src0, src1, imm)
				inst := decoder.Decode(word)

				Expect(inst.Op).To(Equal(op))
				Expect(inst.Dst).To(Equal(dst))
				Expect(inst.Src0).To(Equal(src0))
				Expect(inst.Src1).To(Equal(src1))
				Expect(inst.Imm).To(Equal(imm))
				Expect(insts.Encode(*inst)).To(Equal(word))
			},
			Entry("ADD", insts.OpADD, uint8(2), uint8(1), uint8(0), int32(50)),
			Entry("SUB negative imm", insts.OpSUB, uint8(3), uint8(3), uint8(1), int32(-1)),
			Entry("LHI", insts.OpLHI, uint8(4), uint8(4), uint8(1), int32(-4353)),
			Entry("LD", insts.OpLD, uint8(6), uint8(0), uint8(3), int32(0)),
			Entry("ST", insts.OpST, uint8(0), uint8(2), uint8(7), int32(0)),
			Entry("JNE", insts.OpJNE, uint8(0), uint8(2), uint8(0), int32(11)),
			Entry("JIN", insts.OpJIN, uint8(0), uint8(7), uint8(0), int32(0)),
			Entry("CPY", insts.OpCPY, uint8(5), uint8(3), uint8(4), int32(50)),
			Entry("ASK", insts.OpASK, uint8(2), uint8(0), uint8(0), int32(0)),
			Entry("min imm", insts.OpADD, uint8(7), uint8(7), uint8(7), int32(-32768)),
			Entry("max imm", insts.OpADD, uint8(7), uint8(7), uint8(7), int32(32767)),
		)
	})
})
