package emu

import "github.com/sarchlab/spsim/insts"

// ALU evaluates a data or compare opcode on two signed operands.
//
// Compare opcodes (JLT, JLE, JEQ, JNE) return 1 when the condition holds and
// 0 otherwise; the branch itself is resolved by the caller. LHI keeps the low
// half of a and places the low half of b in the high half. Opcodes with no
// ALU function return 0.
func ALU(op insts.Op, a, b int32) int32 {
	switch op {
	case insts.OpADD:
		return a + b
	case insts.OpSUB:
		return a - b
	case insts.OpLSF:
		return a << uint32(b)
	case insts.OpRSF:
		return a >> uint32(b)
	case insts.OpAND:
		return a & b
	case insts.OpOR:
		return a | b
	case insts.OpXOR:
		return a ^ b
	case insts.OpLHI:
		return int32(uint32(a)&0xFFFF | uint32(b)<<16)
	case insts.OpJLT:
		return boolToInt(a < b)
	case insts.OpJLE:
		return boolToInt(a <= b)
	case insts.OpJEQ:
		return boolToInt(a == b)
	case insts.OpJNE:
		return boolToInt(a != b)
	}
	return 0
}

// BranchTaken reports whether a branch with the given ALU result is taken.
// JIN is always taken.
func BranchTaken(op insts.Op, aluOut int32) bool {
	if op == insts.OpJIN {
		return true
	}
	return op.IsConditionalBranch() && aluOut == 1
}

func boolToInt(b bool) int32 {
	if b {
		return 1
	}
	return 0
}
