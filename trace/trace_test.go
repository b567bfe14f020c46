package trace_test

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/spsim/emu"
	"github.com/sarchlab/spsim/insts"
	"github.com/sarchlab/spsim/timing/pipeline"
	"github.com/sarchlab/spsim/trace"
)

var asm = insts.Assemble

func run(program []uint32, opts ...pipeline.PipelineOption) *pipeline.Pipeline {
	imem := emu.NewMemory()
	dmem := emu.NewMemory()
	imem.LoadImage(program)
	dmem.LoadImage(program)

	p := pipeline.NewPipeline(imem, dmem, opts...)
	Expect(p.Run()).To(Succeed())
	return p
}

var _ = Describe("InstTrace", func() {
	var (
		buf *bytes.Buffer
		tr  *trace.InstTrace
	)

	BeforeEach(func() {
		buf = &bytes.Buffer{}
		tr = trace.NewInstTrace(buf)
	})

	It("should write the header, one block per instruction and the footer", func() {
		tr.Header("add.bin", 2)
		run([]uint32{
			asm(insts.OpADD, 2, 1, 0, 5),
			asm(insts.OpHLT, 0, 0, 0, 0),
		}, pipeline.WithTracer(tr))

		out := buf.String()
		Expect(out).To(HavePrefix("program add.bin loaded, 2 lines\n\n"))
		Expect(out).To(ContainSubstring(
			"--- instruction 0 (0000) @ PC 0 (0000) ---"))
		Expect(out).To(ContainSubstring(
			"pc = 0000, inst = 00880005, opcode = 0 (ADD), dst = 2, src0 = 1, src1 = 0, immediate = 00000005\n" +
				"r[0] = 00000000 r[1] = 00000005 r[2] = 00000000 r[3] = 00000000 \n" +
				"r[4] = 00000000 r[5] = 00000000 r[6] = 00000000 r[7] = 00000000 \n" +
				"\n" +
				">>>> EXEC: R[2] = 5 ADD 0 <<<<\n"))
		Expect(out).To(ContainSubstring(
			"--- instruction 1 (0001) @ PC 1 (0001) ---"))
		Expect(out).To(ContainSubstring(
			"r[0] = 00000000 r[1] = 00000000 r[2] = 00000005 r[3] = 00000000 \n"))
		Expect(out).To(ContainSubstring(">>>> EXEC: HALT at PC 0001<<<<\n"))
		Expect(out).To(HaveSuffix("sim finished at pc 1, 2 instructions"))
	})

	It("should print memory and branch operations", func() {
		run([]uint32{
			asm(insts.OpST, 0, 1, 1, 9), // MEM[9] = 9
			asm(insts.OpLD, 3, 0, 1, 9), // r3 = MEM[9]
			asm(insts.OpLHI, 4, 4, 1, 0x1234),
			asm(insts.OpJEQ, 0, 0, 0, 5),
			asm(insts.OpHLT, 0, 0, 0, 0),
			asm(insts.OpHLT, 0, 0, 0, 0),
		}, pipeline.WithTracer(tr))

		out := buf.String()
		Expect(out).To(ContainSubstring(">>>> EXEC: MEM[9] = R[1] = 00000009 <<<<\n"))
		Expect(out).To(ContainSubstring(">>>> EXEC: R[3] = MEM[9] = 00000009 <<<<\n"))
		Expect(out).To(ContainSubstring(">>>> EXEC: R[4][31:16] = 0x1234 <<<<\n"))
		Expect(out).To(ContainSubstring(">>>> EXEC: JEQ 0, 0, 5 <<<<\n"))
		Expect(out).To(HaveSuffix("sim finished at pc 5, 5 instructions"))
	})

	It("should print copy requests without a line break", func() {
		program := []uint32{
			asm(insts.OpADD, 5, 1, 0, 20),
			asm(insts.OpADD, 6, 1, 0, 30),
			asm(insts.OpCPY, 2, 5, 6, 2),
			asm(insts.OpASK, 3, 0, 0, 0),
			asm(insts.OpHLT, 0, 0, 0, 0),
		}

		run(program, pipeline.WithTracer(tr))

		out := buf.String()
		Expect(out).To(ContainSubstring(
			">>>> EXEC: CPY from address 0014 to adress 001e with length of 2 words <<<\n"))
		Expect(out).To(ContainSubstring(">>>> EXEC: ASK result saved to register 3 <<<<\n"))
	})

	It("should report a faulted instruction as a halt", func() {
		run([]uint32{uint32(12) << 25}, pipeline.WithTracer(tr))

		Expect(buf.String()).To(ContainSubstring(">>>> EXEC: HALT at PC 0000<<<<\n"))
		Expect(buf.String()).To(HaveSuffix("sim finished at pc 0, 1 instructions"))
	})
})

var _ = Describe("CycleTrace", func() {
	It("should dump every register of every cycle", func() {
		buf := &bytes.Buffer{}
		ct := trace.NewCycleTrace(buf)

		p := run([]uint32{
			asm(insts.OpADD, 2, 1, 0, 5),
			asm(insts.OpHLT, 0, 0, 0, 0),
		}, pipeline.WithCycleTracer(ct))
		Expect(ct.Flush()).To(Succeed())

		out := buf.String()
		blocks := strings.Split(strings.TrimSuffix(out, "\n\n"), "\n\n")
		Expect(blocks).To(HaveLen(int(p.Stats().Cycles)))

		first := strings.Split(blocks[0], "\n")
		Expect(first).To(HaveLen(44))
		Expect(first[:4]).To(Equal([]string{
			"cycle 0",
			"cycle_counter 00000000",
			"r2 00000000",
			"r3 00000000",
		}))
		Expect(first).To(ContainElements(
			"fetch0_active 00000001",
			"fetch0_pc 00000000",
			"fetch1_active 00000000",
			"dec1_opcode 00000000",
			"exec1_aluout 00000000",
		))
		Expect(first[len(first)-1]).To(Equal("exec1_aluout 00000000"))

		// ADD reaches exec1 five cycles after it was fetched.
		Expect(blocks[5]).To(ContainSubstring(
			"exec1_active 00000001\nexec1_pc 00000000\nexec1_inst 00880005\n" +
				"exec1_opcode 00000000\nexec1_src0 00000001\nexec1_src1 00000000\n" +
				"exec1_dst 00000002\nexec1_immediate 00000005\n" +
				"exec1_alu0 00000005\nexec1_alu1 00000000\nexec1_aluout 00000005"))
		Expect(blocks[6]).To(ContainSubstring("r2 00000005\n"))
	})

	It("should print the opcode as a number", func() {
		buf := &bytes.Buffer{}
		ct := trace.NewCycleTrace(buf)
		run([]uint32{asm(insts.OpHLT, 0, 0, 0, 0)}, pipeline.WithCycleTracer(ct))
		Expect(ct.Flush()).To(Succeed())

		Expect(buf.String()).To(ContainSubstring("dec1_opcode 00000018\n"))
	})
})

var _ = Describe("DumpMemory", func() {
	It("should write one word per line", func() {
		buf := &bytes.Buffer{}
		Expect(trace.DumpMemory(buf, []uint32{1, 0xdeadbeef})).To(Succeed())
		Expect(buf.String()).To(Equal("00000001\ndeadbeef\n"))
	})

	It("should dump into a file", func() {
		path := filepath.Join(GinkgoT().TempDir(), "sramd_out.txt")
		Expect(trace.DumpMemoryFile(path, []uint32{0x30000000})).To(Succeed())

		data, err := os.ReadFile(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(data)).To(Equal("30000000\n"))
	})

	It("should fail when the file cannot be created", func() {
		path := filepath.Join(GinkgoT().TempDir(), "missing", "out.txt")
		Expect(trace.DumpMemoryFile(path, nil)).To(HaveOccurred())
	})
})
