package insts

// Op represents an SP opcode. It is the raw 5-bit opcode field.
type Op uint8

// SP opcodes.
const (
	OpADD Op = 0
	OpSUB Op = 1
	OpLSF Op = 2
	OpRSF Op = 3
	OpAND Op = 4
	OpOR  Op = 5
	OpXOR Op = 6
	OpLHI Op = 7
	OpLD  Op = 8
	OpST  Op = 9
	OpJLT Op = 16
	OpJLE Op = 17
	OpJEQ Op = 18
	OpJNE Op = 19
	OpJIN Op = 20
	OpHLT Op = 24
	OpCPY Op = 25
	OpASK Op = 26
)

// Register indices with fixed meaning.
const (
	// RegZero always reads as 0.
	RegZero uint8 = 0
	// RegImm reads as the current instruction's sign-extended immediate.
	RegImm uint8 = 1
	// RegLink receives the PC of a taken branch.
	RegLink uint8 = 7
	// NumRegs is the size of the register file.
	NumRegs = 8
)

// Field masks and shifts of the instruction word.
const (
	opcodeShift = 25
	dstShift    = 22
	src0Shift   = 19
	src1Shift   = 16
	opcodeMask  = 0x1F
	regMask     = 0x7
	immMask     = 0xFFFF
)

var opNames = [32]string{
	"ADD", "SUB", "LSF", "RSF", "AND", "OR", "XOR", "LHI",
	"LD", "ST", "U", "U", "U", "U", "U", "U",
	"JLT", "JLE", "JEQ", "JNE", "JIN", "U", "U", "U",
	"HLT", "CPY", "ASK", "U", "U", "U", "U", "U",
}

// String returns the mnemonic of the opcode, or "U" if it is unmapped.
func (op Op) String() string {
	return opNames[op&opcodeMask]
}

// Valid returns true if the opcode is defined by the SP.
func (op Op) Valid() bool {
	return op <= opcodeMask && opNames[op] != "U"
}

// IsALU returns true for the data opcodes evaluated by the ALU whose result
// is written back to dst.
func (op Op) IsALU() bool {
	switch op {
	case OpADD, OpSUB, OpLSF, OpRSF, OpAND, OpOR, OpXOR, OpLHI:
		return true
	}
	return false
}

// IsConditionalBranch returns true for JLT, JLE, JEQ and JNE.
func (op Op) IsConditionalBranch() bool {
	switch op {
	case OpJLT, OpJLE, OpJEQ, OpJNE:
		return true
	}
	return false
}

// IsBranch returns true for all branch opcodes including JIN.
func (op Op) IsBranch() bool {
	return op.IsConditionalBranch() || op == OpJIN
}

// IsMemory returns true for opcodes that use the data memory port.
func (op Op) IsMemory() bool {
	return op == OpLD || op == OpST
}

// WritesResult returns true if the opcode writes its execute result to dst.
// LD is excluded because its value comes from memory, not from the ALU.
func (op Op) WritesResult() bool {
	return op.IsALU() || op == OpASK || op == OpCPY
}

// Instruction represents a decoded SP instruction.
type Instruction struct {
	Word uint32 // Raw instruction word
	Op   Op     // Operation code
	Dst  uint8  // Destination register
	Src0 uint8  // First source register
	Src1 uint8  // Second source register
	Imm  int32  // Sign-extended immediate
}

// Target returns the branch target encoded in the immediate field.
func (i *Instruction) Target() uint16 {
	return uint16(i.Imm)
}

// Decoder decodes SP machine words.
type Decoder struct{}

// NewDecoder creates a new SP instruction decoder.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Decode decodes a 32-bit SP instruction word.
func (d *Decoder) Decode(word uint32) *Instruction {
	inst := Decode(word)
	return &inst
}

// Decode extracts the instruction fields from a word.
func Decode(word uint32) Instruction {
	return Instruction{
		Word: word,
		Op:   Op((word >> opcodeShift) & opcodeMask),
		Dst:  uint8((word >> dstShift) & regMask),
		Src0: uint8((word >> src0Shift) & regMask),
		Src1: uint8((word >> src1Shift) & regMask),
		Imm:  int32(int16(word & immMask)),
	}
}

// Encode packs the instruction fields back into a word. Word is ignored.
func Encode(inst Instruction) uint32 {
	return (uint32(inst.Op)&opcodeMask)<<opcodeShift |
		(uint32(inst.Dst)&regMask)<<dstShift |
		(uint32(inst.Src0)&regMask)<<src0Shift |
		(uint32(inst.Src1)&regMask)<<src1Shift |
		uint32(inst.Imm)&immMask
}

// Assemble encodes one instruction from its fields.
func Assemble(op Op, dst, src0, src1 uint8, imm int32) uint32 {
	return Encode(Instruction{Op: op, Dst: dst, Src0: src0, Src1: src1, Imm: imm})
}
