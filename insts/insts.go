// Package insts provides SP instruction definitions and decoding.
//
// This package implements decoding of SP machine words into structured
// instruction representations. Every 32-bit word decodes; opcodes that the
// SP does not define are reported by Op.Valid rather than by the decoder.
//
// Word layout (bit 31 is the MSB):
//
//	[31:30] unused
//	[29:25] opcode
//	[24:22] dst
//	[21:19] src0
//	[18:16] src1
//	[15:0]  immediate, sign-extended on use
//
// Usage:
//
//	decoder := insts.NewDecoder()
//	inst := decoder.Decode(0x00880005) // ADD R2, R1, R0, #5
//	fmt.Printf("Op: %v, Dst: %d, Imm: %d\n", inst.Op, inst.Dst, inst.Imm)
package insts
