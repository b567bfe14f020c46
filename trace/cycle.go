package trace

import (
	"bufio"
	"fmt"
	"io"

	"github.com/sarchlab/spsim/timing/pipeline"
)

// CycleTrace dumps every core register once per cycle. It implements
// pipeline.CycleTracer.
type CycleTrace struct {
	w   *bufio.Writer
	err error
}

// NewCycleTrace creates a cycle trace writer.
func NewCycleTrace(w io.Writer) *CycleTrace {
	return &CycleTrace{w: bufio.NewWriter(w)}
}

func (t *CycleTrace) field(name string, value uint32) {
	if t.err != nil {
		return
	}
	_, t.err = fmt.Fprintf(t.w, "%s %08x\n", name, value)
}

func b2u(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}

// Cycle writes the block of one cycle.
func (t *CycleTrace) Cycle(s *pipeline.State) {
	if t.err == nil {
		_, t.err = fmt.Fprintf(t.w, "cycle %d\n", s.CycleCounter)
	}
	t.field("cycle_counter", s.CycleCounter)
	for i := 2; i < len(s.R); i++ {
		t.field(fmt.Sprintf("r%d", i), uint32(s.R[i]))
	}

	t.field("fetch0_active", b2u(s.Fetch0.Active))
	t.field("fetch0_pc", uint32(s.Fetch0.PC))

	t.field("fetch1_active", b2u(s.Fetch1.Active))
	t.field("fetch1_pc", uint32(s.Fetch1.PC))

	t.field("dec0_active", b2u(s.Dec0.Active))
	t.field("dec0_pc", uint32(s.Dec0.PC))
	t.field("dec0_inst", s.Dec0.Inst)

	t.decoded("dec1", &s.Dec1.DecodedFields)

	t.decoded("exec0", &s.Exec0.DecodedFields)
	t.field("exec0_alu0", uint32(s.Exec0.ALU0))
	t.field("exec0_alu1", uint32(s.Exec0.ALU1))

	t.decoded("exec1", &s.Exec1.DecodedFields)
	t.field("exec1_alu0", uint32(s.Exec1.ALU0))
	t.field("exec1_alu1", uint32(s.Exec1.ALU1))
	t.field("exec1_aluout", uint32(s.Exec1.ALUOut))

	if t.err == nil {
		_, t.err = fmt.Fprintln(t.w)
	}
}

func (t *CycleTrace) decoded(stage string, f *pipeline.DecodedFields) {
	t.field(stage+"_active", b2u(f.Active))
	t.field(stage+"_pc", uint32(f.PC))
	t.field(stage+"_inst", f.Inst)
	t.field(stage+"_opcode", uint32(f.Opcode))
	t.field(stage+"_src0", uint32(f.Src0))
	t.field(stage+"_src1", uint32(f.Src1))
	t.field(stage+"_dst", uint32(f.Dst))
	t.field(stage+"_immediate", uint32(f.Immediate))
}

// Flush writes buffered output and returns the first write error.
func (t *CycleTrace) Flush() error {
	if t.err != nil {
		return t.err
	}
	t.err = t.w.Flush()
	return t.err
}
