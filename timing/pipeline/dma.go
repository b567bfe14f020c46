package pipeline

// DMAState is the state of the DMA engine's transfer machine.
type DMAState uint8

// DMA engine states.
const (
	DMAIdle DMAState = iota
	DMARead
	DMAWrite
)

func (s DMAState) String() string {
	switch s {
	case DMAIdle:
		return "idle"
	case DMARead:
		return "read"
	case DMAWrite:
		return "write"
	}
	return "unknown"
}

// DMARegisters are the architectural registers of the DMA engine.
type DMARegisters struct {
	State DMAState
	// Busy is set from the cycle a copy is armed until its last word is
	// written.
	Busy      bool
	Src       uint16
	Dst       uint16
	Remaining int32
}

// DMAStats holds statistics for the DMA engine.
type DMAStats struct {
	// Transfers is the number of copies armed.
	Transfers uint64
	// Words is the number of words written.
	Words uint64
	// Deferred counts cycles a busy engine waited for the data port.
	Deferred uint64
}

// DMA copies blocks of words inside the data SRAM, one word per Read/Write
// pair, using the SRAM port only in cycles the pipeline leaves it free.
type DMA struct {
	cur  DMARegisters
	next DMARegisters
	mem  *SRAM

	// onWrite is called with the address of every word written.
	onWrite func(addr uint16)

	stats DMAStats
}

// NewDMA creates an idle DMA engine on mem.
func NewDMA(mem *SRAM) *DMA {
	return &DMA{mem: mem}
}

// Registers returns the committed DMA registers.
func (d *DMA) Registers() DMARegisters {
	return d.cur
}

// Busy returns true while a copy is in progress.
func (d *DMA) Busy() bool {
	return d.cur.Busy
}

// Remaining returns the number of words left to copy.
func (d *DMA) Remaining() int32 {
	return d.cur.Remaining
}

// Stats returns the DMA statistics.
func (d *DMA) Stats() DMAStats {
	return d.stats
}

// Arm starts a copy of n words from src to dst on the next cycle. The
// caller must check that the engine is not busy.
func (d *DMA) Arm(src, dst uint16, n int32) {
	d.next.Src = src
	d.next.Dst = dst
	d.next.Remaining = n
	d.next.Busy = true
	d.next.State = DMAIdle
	d.stats.Transfers++
}

// Tick advances the engine one cycle. memoryBusy is true when the pipeline
// will use the data port in the next cycle.
func (d *DMA) Tick(memoryBusy bool) {
	switch d.cur.State {
	case DMAIdle:
		if !d.cur.Busy {
			return
		}
		if memoryBusy {
			d.stats.Deferred++
			return
		}
		d.next.State = DMARead

	case DMARead:
		d.mem.Read(d.cur.Src)
		d.next.State = DMAWrite

	case DMAWrite:
		d.mem.Write(d.cur.Dst, d.mem.DataOut())
		if d.onWrite != nil {
			d.onWrite(d.cur.Dst)
		}
		d.stats.Words++

		d.next.Src = d.cur.Src + 1
		d.next.Dst = d.cur.Dst + 1
		d.next.Remaining = d.cur.Remaining - 1

		switch {
		case d.next.Remaining <= 0:
			d.next.Remaining = 0
			d.next.Busy = false
			d.next.State = DMAIdle
		case memoryBusy:
			d.stats.Deferred++
			d.next.State = DMAIdle
		default:
			d.next.State = DMARead
		}
	}
}

// Commit publishes the next register values.
func (d *DMA) Commit() {
	d.cur = d.next
}

// Reset returns the engine to idle.
func (d *DMA) Reset() {
	d.cur = DMARegisters{}
	d.next = DMARegisters{}
	d.stats = DMAStats{}
}
