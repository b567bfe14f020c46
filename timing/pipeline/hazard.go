package pipeline

import "github.com/sarchlab/spsim/insts"

// ForwardSource indicates where an operand value comes from.
type ForwardSource int

const (
	// ForwardNone means no forwarding: use the fallback value (the register
	// file at dec1, the dec1 value at exec0).
	ForwardNone ForwardSource = iota
	// ForwardImmediate means the operand is register 1.
	ForwardImmediate
	// ForwardZero means the operand is register 0.
	ForwardZero
	// ForwardLoadData means the operand comes from the data SRAM output of a
	// load retiring in exec1.
	ForwardLoadData
	// ForwardALUOut means the operand comes from the exec1 ALU result.
	ForwardALUOut
	// ForwardLink means the operand is r7 and exec1 holds a taken branch.
	ForwardLink
)

var forwardSourceNames = [...]string{"none", "imm", "zero", "load", "aluout", "link"}

func (s ForwardSource) String() string {
	if int(s) < len(forwardSourceNames) {
		return forwardSourceNames[s]
	}
	return "unknown"
}

// HazardUnit resolves operand bypassing and the load-after-store
// structural hazard.
type HazardUnit struct{}

// NewHazardUnit creates a new hazard detection unit.
func NewHazardUnit() *HazardUnit {
	return &HazardUnit{}
}

// DetectForwarding determines where register reg must be read from given
// the instruction retiring in exec1. Priority: immediate, zero, load data,
// ALU result, link register of a taken branch.
func (h *HazardUnit) DetectForwarding(reg uint8, exec1 *Exec1Register) ForwardSource {
	switch reg {
	case insts.RegImm:
		return ForwardImmediate
	case insts.RegZero:
		return ForwardZero
	}

	if !exec1.Active || exec1.Fault != nil {
		return ForwardNone
	}

	switch {
	case exec1.Opcode == insts.OpLD && exec1.Dst == reg:
		return ForwardLoadData
	case exec1.Opcode.WritesResult() && exec1.Dst == reg:
		return ForwardALUOut
	case reg == insts.RegLink && exec1.BranchTaken():
		return ForwardLink
	}

	return ForwardNone
}

// Forward returns the value of register reg for an instruction whose
// immediate is imm. fallback is used when exec1 does not produce reg.
func (h *HazardUnit) Forward(
	reg uint8,
	imm int32,
	fallback int32,
	exec1 *Exec1Register,
	loadData uint32,
) int32 {
	switch h.DetectForwarding(reg, exec1) {
	case ForwardImmediate:
		return imm
	case ForwardZero:
		return 0
	case ForwardLoadData:
		return int32(loadData)
	case ForwardALUOut:
		return exec1.ALUOut
	case ForwardLink:
		return int32(exec1.PC)
	}
	return fallback
}

// DetectStructuralHazard reports whether the word in dec0 must be held for
// one cycle: a load directly behind a store would have both use the single
// data SRAM port in the same cycle.
func (h *HazardUnit) DetectStructuralHazard(dec0Inst uint32, dec1 *Dec1Register) bool {
	op := insts.Decode(dec0Inst).Op
	return op == insts.OpLD && dec1.Active && dec1.Opcode == insts.OpST
}
