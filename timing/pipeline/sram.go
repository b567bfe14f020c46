package pipeline

import "github.com/sarchlab/spsim/emu"

// SRAMStats counts the accesses of one SRAM port.
type SRAMStats struct {
	Reads  uint64
	Writes uint64
	// Conflicts counts cycles in which more than one request was issued.
	Conflicts uint64
}

// SRAM is a single-port, one-cycle-latency word memory. A read issued in one
// cycle shows up on DataOut in the next. A write takes effect at the end of
// the cycle it is issued in.
type SRAM struct {
	mem *emu.Memory

	readPending  bool
	readAddr     uint16
	writePending bool
	writeAddr    uint16
	writeData    uint32
	requests     int

	dataOut uint32
	stats   SRAMStats
}

// NewSRAM creates an SRAM port in front of mem.
func NewSRAM(mem *emu.Memory) *SRAM {
	return &SRAM{mem: mem}
}

// Read requests the word at addr.
func (s *SRAM) Read(addr uint16) {
	s.readPending = true
	s.readAddr = addr
	s.requests++
	s.stats.Reads++
}

// Write requests storing value at addr.
func (s *SRAM) Write(addr uint16, value uint32) {
	s.writePending = true
	s.writeAddr = addr
	s.writeData = value
	s.requests++
	s.stats.Writes++
}

// DataOut returns the word returned by the last completed read.
func (s *SRAM) DataOut() uint32 {
	return s.dataOut
}

// Commit ends the cycle. A read in the same cycle as a write returns the old
// contents.
func (s *SRAM) Commit() {
	if s.requests > 1 {
		s.stats.Conflicts++
	}

	if s.readPending {
		s.dataOut = s.mem.Read(s.readAddr)
	}
	if s.writePending {
		s.mem.Write(s.writeAddr, s.writeData)
	}

	s.readPending = false
	s.writePending = false
	s.requests = 0
}

// Inject writes words starting at address 0 without a port access.
func (s *SRAM) Inject(words []uint32) {
	s.mem.LoadImage(words)
}

// Extract returns the word at addr without a port access.
func (s *SRAM) Extract(addr uint16) uint32 {
	return s.mem.Read(addr)
}

// Memory returns the backing memory.
func (s *SRAM) Memory() *emu.Memory {
	return s.mem
}

// Stats returns the port statistics.
func (s *SRAM) Stats() SRAMStats {
	return s.stats
}
