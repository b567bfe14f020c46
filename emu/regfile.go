// Package emu provides functional SP emulation.
package emu

import "github.com/sarchlab/spsim/insts"

// RegFile represents the SP register file.
// It contains eight 32-bit registers and the program counter.
type RegFile struct {
	// R holds the general-purpose registers.
	// R[0] and R[1] are never read: R0 is the zero register and R1 is the
	// immediate of the instruction that reads it.
	R [insts.NumRegs]int32

	// PC is the program counter.
	PC uint16
}

// ReadReg reads a register value as seen by an instruction whose
// sign-extended immediate is imm.
func (r *RegFile) ReadReg(reg uint8, imm int32) int32 {
	switch reg {
	case insts.RegZero:
		return 0
	case insts.RegImm:
		return imm
	}
	return r.R[reg&7]
}

// WriteReg writes a value to a register. Writes to R0 and R1 are ignored.
func (r *RegFile) WriteReg(reg uint8, value int32) {
	if reg == insts.RegZero || reg == insts.RegImm {
		return
	}
	r.R[reg&7] = value
}
