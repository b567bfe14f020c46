// Package trace writes the instruction trace, the cycle trace and memory
// dumps of an SP run in the reference text formats.
package trace

import (
	"bufio"
	"fmt"
	"io"

	"github.com/sarchlab/spsim/insts"
	"github.com/sarchlab/spsim/timing/pipeline"
)

// InstTrace writes one block per retired instruction. It implements
// pipeline.Tracer.
type InstTrace struct {
	w   *bufio.Writer
	err error
}

// NewInstTrace creates an instruction trace writer.
func NewInstTrace(w io.Writer) *InstTrace {
	return &InstTrace{w: bufio.NewWriter(w)}
}

func (t *InstTrace) printf(format string, args ...any) {
	if t.err != nil {
		return
	}
	_, t.err = fmt.Fprintf(t.w, format, args...)
}

// Header writes the program load line.
func (t *InstTrace) Header(name string, lines int) {
	t.printf("program %s loaded, %d lines\n", name, lines)
}

// Retire writes the block of one retired instruction.
func (t *InstTrace) Retire(rec pipeline.RetireRecord) {
	e := &rec.Exec1
	r := &rec.Regs

	t.printf("\n")
	t.printf("--- instruction %d (%04x) @ PC %d (%04d) "+
		"-----------------------------------------------------------\n",
		rec.Index, rec.Index, e.PC, e.PC)
	t.printf("pc = %04d, inst = %08x, opcode = %d (%s), dst = %d, src0 = %d, src1 = %d, immediate = %08x\n",
		e.PC, e.Inst, e.Opcode, e.Opcode, e.Dst, e.Src0, e.Src1, e.Inst&0xFFFF)
	t.printf("r[0] = %08x r[1] = %08x r[2] = %08x r[3] = %08x \n",
		0, uint32(e.Immediate), uint32(r[2]), uint32(r[3]))
	t.printf("r[4] = %08x r[5] = %08x r[6] = %08x r[7] = %08x \n",
		uint32(r[4]), uint32(r[5]), uint32(r[6]), uint32(r[7]))
	t.printf("\n")

	t.execLine(rec)
}

func (t *InstTrace) execLine(rec pipeline.RetireRecord) {
	e := &rec.Exec1

	switch op := e.Opcode; op {
	case insts.OpADD, insts.OpSUB, insts.OpLSF, insts.OpRSF,
		insts.OpAND, insts.OpOR, insts.OpXOR:
		t.printf(">>>> EXEC: R[%d] = %d %s %d <<<<\n", e.Dst, e.ALU0, op, e.ALU1)
	case insts.OpLHI:
		t.printf(">>>> EXEC: R[%d][31:16] = 0x%04x <<<<\n", e.Dst, uint32(e.Immediate)&0xFFFF)
	case insts.OpLD:
		t.printf(">>>> EXEC: R[%d] = MEM[%d] = %08x <<<<\n", e.Dst, e.ALU1, rec.LoadData)
	case insts.OpST:
		t.printf(">>>> EXEC: MEM[%d] = R[%d] = %08x <<<<\n", e.ALU1, e.Src0, uint32(e.ALU0))
	case insts.OpJIN:
		t.printf(">>>> EXEC: JIN %d <<<<\n", uint32(e.ALU0)&0xFFFF)
	case insts.OpHLT:
		t.printf(">>>> EXEC: HALT at PC %04x<<<<\n", e.PC)
	case insts.OpJLT, insts.OpJLE, insts.OpJEQ, insts.OpJNE:
		t.printf(">>>> EXEC: %s %d, %d, %d <<<<\n", op, e.ALU0, e.ALU1, e.NextPC())
	case insts.OpCPY:
		t.printf(">>>> EXEC: CPY from address %04x to adress %04x with length of %d words <<<",
			uint32(e.ALU0)&0xFFFF, uint32(e.ALU1)&0xFFFF, e.ALUOut)
	case insts.OpASK:
		t.printf(">>>> EXEC: ASK result saved to register %d <<<<", e.Dst)
	}
}

// Finish writes the termination line and flushes the trace.
func (t *InstTrace) Finish(pc uint16, instructions uint64) {
	t.printf("sim finished at pc %d, %d instructions", pc, instructions)
	_ = t.Flush()
}

// Flush writes buffered output and returns the first write error.
func (t *InstTrace) Flush() error {
	if t.err != nil {
		return t.err
	}
	t.err = t.w.Flush()
	return t.err
}
