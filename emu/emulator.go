package emu

import (
	"errors"
	"fmt"

	"github.com/sarchlab/spsim/insts"
)

// ErrInstructionLimit is returned by Run when the instruction bound is hit
// before the program halts.
var ErrInstructionLimit = errors.New("max instructions reached")

// Fault records why execution stopped on something other than HLT.
// Faulting instructions are treated as HLT.
type Fault struct {
	PC     uint16
	Word   uint32
	Reason string
}

func (f *Fault) Error() string {
	return fmt.Sprintf("fault at pc %d (inst %08x): %s", f.PC, f.Word, f.Reason)
}

// UnmappedOpcodeFault returns the fault raised for an undefined opcode.
func UnmappedOpcodeFault(pc uint16, inst *insts.Instruction) *Fault {
	return &Fault{
		PC:     pc,
		Word:   inst.Word,
		Reason: fmt.Sprintf("unmapped opcode %d", inst.Op),
	}
}

// StepResult represents the result of executing a single instruction.
type StepResult struct {
	// Halted is true if the program terminated (HLT or fault).
	Halted bool

	// Fault is set when the program terminated on an invalid instruction.
	Fault *Fault

	// Err is set if the step could not be executed.
	Err error
}

// Emulator executes SP instructions one per step. It is the semantic
// reference for the pipelined model: CPY completes immediately, so ASK
// always reads 0.
type Emulator struct {
	regFile *RegFile
	memory  *Memory
	decoder *insts.Decoder

	// Execution state
	instructionCount uint64
	maxInstructions  uint64 // 0 means no limit
	halted           bool
	fault            *Fault
}

// EmulatorOption is a functional option for configuring the Emulator.
type EmulatorOption func(*Emulator)

// WithMaxInstructions sets the maximum number of instructions to execute.
// A value of 0 means no limit.
func WithMaxInstructions(max uint64) EmulatorOption {
	return func(e *Emulator) {
		e.maxInstructions = max
	}
}

// WithMemory makes the emulator run on an existing memory.
func WithMemory(memory *Memory) EmulatorOption {
	return func(e *Emulator) {
		e.memory = memory
	}
}

// NewEmulator creates a new SP emulator.
func NewEmulator(opts ...EmulatorOption) *Emulator {
	e := &Emulator{
		regFile: &RegFile{},
		decoder: insts.NewDecoder(),
	}

	for _, opt := range opts {
		opt(e)
	}

	if e.memory == nil {
		e.memory = NewMemory()
	}

	return e
}

// RegFile returns the emulator's register file.
func (e *Emulator) RegFile() *RegFile {
	return e.regFile
}

// Memory returns the emulator's memory.
func (e *Emulator) Memory() *Memory {
	return e.memory
}

// InstructionCount returns the number of instructions executed.
func (e *Emulator) InstructionCount() uint64 {
	return e.instructionCount
}

// PC returns the address of the next instruction, or of the halting
// instruction once halted.
func (e *Emulator) PC() uint16 {
	return e.regFile.PC
}

// Halted returns true once HLT or a faulting instruction has executed.
func (e *Emulator) Halted() bool {
	return e.halted
}

// Fault returns the fault that stopped execution, if any.
func (e *Emulator) Fault() *Fault {
	return e.fault
}

// LoadImage loads a memory image at address 0 and resets the PC.
func (e *Emulator) LoadImage(image []uint32) {
	e.memory.LoadImage(image)
	e.regFile.PC = 0
}

// Step executes a single instruction.
func (e *Emulator) Step() StepResult {
	if e.halted {
		return StepResult{Halted: true, Fault: e.fault}
	}

	if e.maxInstructions > 0 && e.instructionCount >= e.maxInstructions {
		return StepResult{Err: ErrInstructionLimit}
	}

	word := e.memory.Read(e.regFile.PC)
	inst := e.decoder.Decode(word)

	e.execute(inst)
	e.instructionCount++

	return StepResult{Halted: e.halted, Fault: e.fault}
}

// Run executes instructions until the program halts or the instruction
// bound is reached.
func (e *Emulator) Run() error {
	for {
		result := e.Step()
		if result.Err != nil {
			return result.Err
		}
		if result.Halted {
			return nil
		}
	}
}

// execute dispatches and executes a decoded instruction.
func (e *Emulator) execute(inst *insts.Instruction) {
	pc := e.regFile.PC
	next := pc + 1

	a := e.regFile.ReadReg(inst.Src0, inst.Imm)
	b := e.regFile.ReadReg(inst.Src1, inst.Imm)

	switch inst.Op {
	case insts.OpADD, insts.OpSUB, insts.OpLSF, insts.OpRSF,
		insts.OpAND, insts.OpOR, insts.OpXOR:
		e.regFile.WriteReg(inst.Dst, ALU(inst.Op, a, b))
	case insts.OpLHI:
		prev := e.regFile.ReadReg(inst.Dst, inst.Imm)
		e.regFile.WriteReg(inst.Dst, ALU(inst.Op, prev, inst.Imm))
	case insts.OpLD:
		e.regFile.WriteReg(inst.Dst, int32(e.memory.Read(uint16(b))))
	case insts.OpST:
		e.memory.Write(uint16(b), uint32(a))
	case insts.OpJLT, insts.OpJLE, insts.OpJEQ, insts.OpJNE:
		if BranchTaken(inst.Op, ALU(inst.Op, a, b)) {
			e.regFile.WriteReg(insts.RegLink, int32(pc))
			next = inst.Target()
		}
	case insts.OpJIN:
		e.regFile.WriteReg(insts.RegLink, int32(pc))
		next = uint16(a)
	case insts.OpHLT:
		e.halted = true
		next = pc
	case insts.OpCPY:
		e.regFile.WriteReg(inst.Dst, e.copyBlock(uint16(a), uint16(b), inst.Imm))
	case insts.OpASK:
		e.regFile.WriteReg(inst.Dst, 0)
	default:
		e.fault = UnmappedOpcodeFault(pc, inst)
		e.halted = true
		next = pc
	}

	e.regFile.PC = next
}

// copyBlock copies n words one at a time in ascending address order, which
// is the order the DMA engine uses, and returns the number of words copied.
func (e *Emulator) copyBlock(src, dst uint16, n int32) int32 {
	if n <= 0 {
		return 0
	}
	for i := int32(0); i < n; i++ {
		e.memory.Write(dst, e.memory.Read(src))
		src++
		dst++
	}
	return n
}
