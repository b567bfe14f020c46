package emu

// MemoryWords is the number of 32-bit words addressable by a 16-bit address.
const MemoryWords = 1 << 16

// Memory is a flat word-addressed SP memory.
type Memory struct {
	words []uint32
}

// NewMemory creates a zeroed memory of MemoryWords words.
func NewMemory() *Memory {
	return &Memory{words: make([]uint32, MemoryWords)}
}

// Read returns the word at addr.
func (m *Memory) Read(addr uint16) uint32 {
	return m.words[addr]
}

// Write stores value at addr.
func (m *Memory) Write(addr uint16, value uint32) {
	m.words[addr] = value
}

// LoadImage copies image into memory starting at address 0.
// Words beyond the end of memory are ignored.
func (m *Memory) LoadImage(image []uint32) {
	copy(m.words, image)
}

// Words returns the backing slice. Callers must not resize it.
func (m *Memory) Words() []uint32 {
	return m.words
}
