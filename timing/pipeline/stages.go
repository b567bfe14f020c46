package pipeline

import (
	"github.com/sirupsen/logrus"

	"github.com/sarchlab/spsim/emu"
	"github.com/sarchlab/spsim/insts"
)

// Every stage reads only p.cur and writes only p.next. Stages run in
// program order from the youngest, so the writes of an older stage (a
// redirect or flush from dec0 or exec1) override those of younger ones.

// fetch0 issues the instruction SRAM read for the next PC.
func (p *Pipeline) fetch0() {
	cur, next := &p.cur, &p.next

	next.Fetch1.Active = false
	if !cur.Fetch0.Active {
		return
	}

	p.imem.Read(cur.Fetch0.PC)
	next.Fetch0.PC = cur.Fetch0.PC + 1
	next.Fetch1 = FetchRegister{Active: true, PC: cur.Fetch0.PC}
}

// fetch1 latches the word read by fetch0 in the previous cycle.
func (p *Pipeline) fetch1() {
	cur, next := &p.cur, &p.next

	if !cur.Fetch1.Active {
		next.Dec0.Active = false
		return
	}

	next.Dec0 = Dec0Register{
		Active: true,
		PC:     cur.Fetch1.PC,
		Inst:   p.imem.DataOut(),
	}
}

// decode0 decodes the word, predicts conditional branches and holds a load
// that directly follows a store.
func (p *Pipeline) decode0() {
	cur, next := &p.cur, &p.next

	if !cur.Dec0.Active {
		next.Dec1.Active = false
		return
	}

	if p.hazardUnit.DetectStructuralHazard(cur.Dec0.Inst, &cur.Dec1) {
		p.stall()
		return
	}

	inst := p.decoder.Decode(cur.Dec0.Inst)
	fields := DecodedFields{
		Active:    true,
		PC:        cur.Dec0.PC,
		Inst:      cur.Dec0.Inst,
		Opcode:    inst.Op,
		Dst:       inst.Dst,
		Src0:      inst.Src0,
		Src1:      inst.Src1,
		Immediate: inst.Imm,
	}
	if !inst.Op.Valid() {
		fields.Opcode = insts.OpHLT
		fields.Fault = emu.UnmappedOpcodeFault(cur.Dec0.PC, inst)
	}
	next.Dec1 = Dec1Register{DecodedFields: fields}

	if fields.Opcode.IsConditionalBranch() && p.predictor.Predict(cur.Dec0.PC) {
		next.Fetch0 = FetchRegister{Active: true, PC: inst.Target()}
		next.Fetch1.Active = false
		next.Dec0.Active = false
	}
}

// stall keeps the instruction in dec0, inserts a bubble into dec1 and
// rewinds fetch so the word in fetch1 is fetched again.
func (p *Pipeline) stall() {
	cur, next := &p.cur, &p.next

	next.Dec1.Active = false
	next.Dec0 = cur.Dec0
	next.Fetch1.Active = false
	if cur.Fetch1.Active {
		next.Fetch0 = FetchRegister{Active: true, PC: cur.Fetch1.PC}
	} else {
		next.Fetch0 = cur.Fetch0
	}

	p.stats.Stalls++
}

// decode1 reads the operands through the bypass network.
func (p *Pipeline) decode1() {
	cur, next := &p.cur, &p.next

	if !cur.Dec1.Active {
		next.Exec0.Active = false
		return
	}

	r0, r1 := cur.Dec1.OperandRegs()
	loadData := p.dmem.DataOut()
	imm := cur.Dec1.Immediate

	next.Exec0 = Exec0Register{
		DecodedFields: cur.Dec1.DecodedFields,
		ALU0:          p.hazardUnit.Forward(r0, imm, cur.R[r0&7], &cur.Exec1, loadData),
		ALU1:          p.hazardUnit.Forward(r1, imm, cur.R[r1&7], &cur.Exec1, loadData),
	}
}

// execute0 re-bypasses from exec1, evaluates the ALU, issues loads and
// accepts copy requests.
func (p *Pipeline) execute0() {
	cur, next := &p.cur, &p.next

	if !cur.Exec0.Active {
		next.Exec1.Active = false
		return
	}

	e := &cur.Exec0
	r0, r1 := e.OperandRegs()
	loadData := p.dmem.DataOut()
	a := p.hazardUnit.Forward(r0, e.Immediate, e.ALU0, &cur.Exec1, loadData)
	b := p.hazardUnit.Forward(r1, e.Immediate, e.ALU1, &cur.Exec1, loadData)

	var out int32
	switch {
	case e.Opcode == insts.OpLD:
		p.dmem.Read(uint16(b))
		if p.dcache != nil {
			p.dcache.Read(uint16(b))
		}
	case e.Opcode == insts.OpST, e.Opcode == insts.OpHLT:
	case e.Opcode == insts.OpJIN:
		out = 1
	case e.Opcode == insts.OpCPY:
		out = p.acceptCopy(e.Immediate)
	case e.Opcode == insts.OpASK:
		out = p.dmaRemaining()
	default:
		out = emu.ALU(e.Opcode, a, b)
	}

	next.Exec1 = Exec1Register{
		DecodedFields: e.DecodedFields,
		ALU0:          a,
		ALU1:          b,
		ALUOut:        out,
	}
}

// copyPending reports whether exec1 holds a copy that will arm the DMA at
// the end of this cycle.
func (p *Pipeline) copyPending() bool {
	e := &p.cur.Exec1
	return e.Active && e.Opcode == insts.OpCPY && e.ALUOut > 0
}

// acceptCopy returns the number of words a CPY will copy, 0 if the engine
// cannot take the request.
func (p *Pipeline) acceptCopy(length int32) int32 {
	if length <= 0 {
		return 0
	}
	if p.dma.Busy() || p.copyPending() {
		p.stats.CopiesDropped++
		p.log.WithFields(logrus.Fields{
			"cycle": p.cur.CycleCounter,
			"pc":    p.cur.Exec0.PC,
		}).Warn("DMA busy, copy request dropped")
		return 0
	}
	return length
}

// dmaRemaining is the value ASK reads, including a copy about to be armed.
func (p *Pipeline) dmaRemaining() int32 {
	if p.copyPending() {
		return p.cur.Exec1.ALUOut
	}
	return p.dma.Remaining()
}

// execute1 retires the instruction: write back, stores, branch resolution,
// DMA arming and halt.
func (p *Pipeline) execute1() {
	cur, next := &p.cur, &p.next
	e := &cur.Exec1

	if !e.Active {
		return
	}

	loadData := p.dmem.DataOut()
	if p.tracer != nil {
		p.tracer.Retire(RetireRecord{
			Index:    p.stats.Instructions,
			Exec1:    *e,
			Regs:     cur.R,
			LoadData: loadData,
		})
	}
	p.stats.Instructions++

	switch {
	case e.Opcode == insts.OpHLT:
		p.halt()
	case e.Opcode == insts.OpST:
		p.dmem.Write(uint16(e.ALU1), uint32(e.ALU0))
		if p.dcache != nil {
			p.dcache.Write(uint16(e.ALU1))
		}
	case e.Opcode == insts.OpLD:
		next.writeReg(e.Dst, int32(loadData))
	case e.Opcode.IsBranch():
		p.resolveBranch()
	case e.Opcode == insts.OpCPY:
		if e.ALUOut > 0 {
			p.dma.Arm(uint16(e.ALU0), uint16(e.ALU1), e.ALUOut)
		}
		next.writeReg(e.Dst, e.ALUOut)
	default:
		next.writeReg(e.Dst, e.ALUOut)
	}
}

// resolveBranch writes the link register, trains the predictor and flushes
// the younger stages if they hold the wrong path.
func (p *Pipeline) resolveBranch() {
	cur, next := &p.cur, &p.next
	e := &cur.Exec1

	taken := e.BranchTaken()
	target := e.NextPC()

	if taken {
		next.writeReg(insts.RegLink, int32(e.PC))
	}

	mispredicted := p.wrongPath(target)

	if e.Opcode.IsConditionalBranch() {
		p.predictor.Update(e.PC, taken)
		p.stats.BranchPredictions++
		if mispredicted {
			p.stats.BranchMispredictions++
		} else {
			p.stats.BranchCorrect++
		}
	}

	if mispredicted {
		p.flush(target)
	}
}

// wrongPath reports whether the nearest younger active stage does not hold
// target.
func (p *Pipeline) wrongPath(target uint16) bool {
	cur := &p.cur

	switch {
	case cur.Exec0.Active:
		return cur.Exec0.PC != target
	case cur.Dec1.Active:
		return cur.Dec1.PC != target
	case cur.Dec0.Active:
		return cur.Dec0.PC != target
	case cur.Fetch1.Active:
		return cur.Fetch1.PC != target
	case cur.Fetch0.Active:
		return cur.Fetch0.PC != target
	}
	return true
}

// flush squashes every younger stage and restarts fetch at target.
func (p *Pipeline) flush(target uint16) {
	p.next.squashYounger()
	p.next.Fetch0 = FetchRegister{Active: true, PC: target}
	p.stats.Flushes++

	p.log.WithFields(logrus.Fields{
		"cycle":  p.cur.CycleCounter,
		"pc":     p.cur.Exec1.PC,
		"target": target,
	}).Debug("branch flush")
}

// memoryBusy reports whether the pipeline claims the data port in the next
// cycle or the one after.
func (p *Pipeline) memoryBusy() bool {
	next := &p.next
	return claimsDataPort(&next.Dec1.DecodedFields) ||
		claimsDataPort(&next.Exec0.DecodedFields) ||
		claimsDataPort(&next.Exec1.DecodedFields)
}

func claimsDataPort(f *DecodedFields) bool {
	return f.Active && f.Opcode.IsMemory()
}
