// Package pipeline provides the 6-stage SP pipeline for cycle-accurate simulation.
//
// Stages: fetch0 (instruction SRAM read) -> fetch1 (instruction latch) ->
// dec0 (branch prediction, structural hazard) -> dec1 (operand read) ->
// exec0 (ALU, load issue, DMA request) -> exec1 (retire).
package pipeline

import (
	"github.com/sarchlab/spsim/emu"
	"github.com/sarchlab/spsim/insts"
)

// FetchRegister holds a fetch stage: only the PC being fetched.
type FetchRegister struct {
	// Active indicates if this stage holds an instruction.
	Active bool

	// PC is the program counter of the fetched instruction.
	PC uint16
}

// Dec0Register holds the raw instruction word waiting for decode.
type Dec0Register struct {
	Active bool
	PC     uint16

	// Inst is the raw 32-bit instruction word.
	Inst uint32
}

// DecodedFields are the decoded instruction fields carried from dec1 to
// exec1.
type DecodedFields struct {
	Active bool
	PC     uint16
	Inst   uint32

	Opcode insts.Op
	Dst    uint8
	Src0   uint8
	Src1   uint8

	// Immediate is the sign-extended immediate.
	Immediate int32

	// Fault is set when the instruction word had an unmapped opcode. Such an
	// instruction travels down the pipeline as HLT.
	Fault *emu.Fault
}

// OperandRegs returns the register indices that feed ALU operand 0 and 1.
// LHI reads its own destination as operand 0 and the immediate as operand 1.
func (f *DecodedFields) OperandRegs() (uint8, uint8) {
	if f.Opcode == insts.OpLHI {
		return f.Dst, insts.RegImm
	}
	return f.Src0, f.Src1
}

// Dec1Register holds a decoded instruction waiting for its operands.
type Dec1Register struct {
	DecodedFields
}

// Exec0Register holds an instruction with resolved operands.
type Exec0Register struct {
	DecodedFields

	ALU0 int32
	ALU1 int32
}

// Exec1Register holds an executed instruction about to retire.
type Exec1Register struct {
	DecodedFields

	ALU0 int32
	ALU1 int32

	// ALUOut is the ALU result, the compare outcome for branches, the
	// accepted copy length for CPY and the remaining count for ASK.
	ALUOut int32
}

// BranchTaken reports whether the retiring instruction is a taken branch.
func (r *Exec1Register) BranchTaken() bool {
	return r.Active && emu.BranchTaken(r.Opcode, r.ALUOut)
}

// NextPC returns the PC that follows the retiring instruction.
func (r *Exec1Register) NextPC() uint16 {
	switch {
	case r.Opcode == insts.OpJIN:
		return uint16(r.ALU0)
	case r.Opcode.IsConditionalBranch() && r.ALUOut == 1:
		return uint16(r.Immediate)
	}
	return r.PC + 1
}

// State is every register of the SP core: the register file, the cycle
// counter and the six pipeline stage registers.
type State struct {
	R            [insts.NumRegs]int32
	CycleCounter uint32

	Fetch0 FetchRegister
	Fetch1 FetchRegister
	Dec0   Dec0Register
	Dec1   Dec1Register
	Exec0  Exec0Register
	Exec1  Exec1Register
}

// writeReg updates the register file, ignoring the hard-wired registers.
func (s *State) writeReg(reg uint8, value int32) {
	if reg == insts.RegZero || reg == insts.RegImm {
		return
	}
	s.R[reg&7] = value
}

// squashYounger deactivates every stage, exec1 included.
func (s *State) squashYounger() {
	s.Fetch0.Active = false
	s.Fetch1.Active = false
	s.Dec0.Active = false
	s.Dec1.Active = false
	s.Exec0.Active = false
	s.Exec1.Active = false
}
