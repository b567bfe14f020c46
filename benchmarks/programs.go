package benchmarks

import (
	"fmt"

	"github.com/sarchlab/spsim/emu"
	"github.com/sarchlab/spsim/insts"
)

type regs = [insts.NumRegs]int32

var asm = insts.Assemble

// GetMicrobenchmarks returns the standard set of SP benchmarks. Each one
// targets a specific pipeline characteristic.
func GetMicrobenchmarks() []Benchmark {
	return []Benchmark{
		independentALU(),
		dependencyChain(),
		branchLoop(),
		loadStore(),
		functionCalls(),
		fibonacci(),
		multiply(),
		dmaCopy(),
	}
}

// GetCoreBenchmarks returns a minimal set for quick validation: a loop, a
// memory-heavy kernel and the DMA copy.
func GetCoreBenchmarks() []Benchmark {
	return []Benchmark{
		branchLoop(),
		fibonacci(),
		dmaCopy(),
	}
}

// withData places data words at addr after the program.
func withData(program []uint32, addr int, data ...uint32) []uint32 {
	image := append([]uint32(nil), program...)
	for len(image) < addr {
		image = append(image, 0)
	}
	return append(image[:addr], data...)
}

func expectReg(r regs, reg int, want int32) error {
	if r[reg] != want {
		return fmt.Errorf("r%d = %d, want %d", reg, r[reg], want)
	}
	return nil
}

func expectMem(mem *emu.Memory, addr uint16, want uint32) error {
	if got := mem.Read(addr); got != want {
		return fmt.Errorf("mem[%d] = %08x, want %08x", addr, got, want)
	}
	return nil
}

// 1. Independent ALU - back-to-back ADDs to different registers
func independentALU() Benchmark {
	var program []uint32
	for i := 0; i < 20; i++ {
		reg := uint8(2 + i%5)
		program = append(program, asm(insts.OpADD, reg, reg, insts.RegImm, 1))
	}
	program = append(program, asm(insts.OpHLT, 0, 0, 0, 0))

	return Benchmark{
		Name:        "independent_alu",
		Description: "20 ADDs rotating over r2..r6 - measures ALU throughput",
		Image:       program,
		Check: func(r regs, _ *emu.Memory) error {
			for reg := 2; reg <= 6; reg++ {
				if err := expectReg(r, reg, 4); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

// 2. Dependency Chain - every ADD needs the previous result
func dependencyChain() Benchmark {
	var program []uint32
	for i := 0; i < 20; i++ {
		program = append(program, asm(insts.OpADD, 2, 2, insts.RegImm, 1))
	}
	program = append(program, asm(insts.OpHLT, 0, 0, 0, 0))

	return Benchmark{
		Name:        "dependency_chain",
		Description: "20 dependent ADDs (r2 = r2 + 1) - exercises the bypass network",
		Image:       program,
		Check: func(r regs, _ *emu.Memory) error {
			return expectReg(r, 2, 20)
		},
	}
}

// 3. Branch Loop - a countdown loop with a data-dependent inner branch
func branchLoop() Benchmark {
	return Benchmark{
		Name:        "branch_loop",
		Description: "32 iterations, odd counters skip an ADD - exercises the BHT",
		Image: []uint32{
			asm(insts.OpADD, 2, 0, 1, 32), // 0: r2 = 32
			asm(insts.OpADD, 4, 0, 0, 0),  // 1: r4 = 0
			asm(insts.OpAND, 3, 2, 1, 1),  // 2: r3 = r2 & 1
			asm(insts.OpJEQ, 0, 3, 0, 5),  // 3: if r3 == 0 goto 5
			asm(insts.OpADD, 4, 4, 1, 1),  // 4: r4++
			asm(insts.OpSUB, 2, 2, 1, 1),  // 5: r2--
			asm(insts.OpJNE, 0, 2, 0, 2),  // 6: if r2 != 0 goto 2
			asm(insts.OpHLT, 0, 0, 0, 0),  // 7: halt
		},
		Check: func(r regs, _ *emu.Memory) error {
			if err := expectReg(r, 2, 0); err != nil {
				return err
			}
			return expectReg(r, 4, 16)
		},
	}
}

// 4. Load Store - every store is directly followed by a load
func loadStore() Benchmark {
	return Benchmark{
		Name:        "load_store",
		Description: "16 ST/LD pairs - exercises the load-after-store stall",
		Image: []uint32{
			asm(insts.OpADD, 2, 0, 0, 0),   // 0: r2 = 0
			asm(insts.OpADD, 5, 0, 1, 16),  // 1: r5 = 16
			asm(insts.OpADD, 3, 2, 1, 300), // 2: r3 = r2 + 300
			asm(insts.OpST, 0, 2, 3, 0),    // 3: mem[r3] = r2
			asm(insts.OpLD, 4, 0, 3, 0),    // 4: r4 = mem[r3]
			asm(insts.OpADD, 6, 6, 4, 0),   // 5: r6 += r4
			asm(insts.OpADD, 2, 2, 1, 1),   // 6: r2++
			asm(insts.OpJLT, 0, 2, 5, 2),   // 7: if r2 < r5 goto 2
			asm(insts.OpHLT, 0, 0, 0, 0),   // 8: halt
		},
		Check: func(r regs, mem *emu.Memory) error {
			if err := expectReg(r, 6, 120); err != nil {
				return err
			}
			for i := uint16(0); i < 16; i++ {
				if err := expectMem(mem, 300+i, uint32(i)); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

// 5. Function Calls - JIN into a subroutine that returns through r7
func functionCalls() Benchmark {
	program := []uint32{
		asm(insts.OpADD, 2, 0, 0, 0),  // 0: r2 = 0
		asm(insts.OpADD, 5, 0, 1, 5),  // 1: r5 = 5
		asm(insts.OpADD, 3, 0, 1, 10), // 2: r3 = 10
		asm(insts.OpJIN, 0, 3, 0, 0),  // 3: call r3
		asm(insts.OpSUB, 5, 5, 1, 1),  // 4: r5--
		asm(insts.OpJNE, 0, 5, 0, 3),  // 5: if r5 != 0 goto 3
		asm(insts.OpHLT, 0, 0, 0, 0),  // 6: halt
	}
	program = withData(program, 10,
		asm(insts.OpADD, 2, 2, 1, 3), // 10: r2 += 3
		asm(insts.OpADD, 6, 7, 1, 1), // 11: r6 = r7 + 1
		asm(insts.OpJIN, 0, 6, 0, 0), // 12: return
	)

	return Benchmark{
		Name:        "function_calls",
		Description: "5 calls and returns through JIN - exercises indirect jumps",
		Image:       program,
		Check: func(r regs, _ *emu.Memory) error {
			if err := expectReg(r, 5, 0); err != nil {
				return err
			}
			return expectReg(r, 2, 15)
		},
	}
}

// 6. Fibonacci - stores the sequence to mem[1000..1039]
func fibonacci() Benchmark {
	return Benchmark{
		Name:        "fibonacci",
		Description: "Fibonacci numbers stored to memory - mixed ALU, ST and loop branch",
		Image: []uint32{
			asm(insts.OpADD, 2, 0, 1, 1),    // 0: r2 = 1
			asm(insts.OpADD, 3, 0, 1, 1),    // 1: r3 = 1
			asm(insts.OpST, 0, 2, 1, 1000),  // 2: mem[1000] = r2
			asm(insts.OpST, 0, 3, 1, 1001),  // 3: mem[1001] = r3
			asm(insts.OpADD, 4, 0, 1, 1002), // 4: r4 = 1002
			asm(insts.OpADD, 5, 0, 1, 1040), // 5: r5 = 1040
			asm(insts.OpADD, 3, 3, 2, 0),    // 6: r3 = r3 + r2
			asm(insts.OpSUB, 2, 3, 2, 0),    // 7: r2 = r3 - r2
			asm(insts.OpST, 0, 3, 4, 0),     // 8: mem[r4] = r3
			asm(insts.OpADD, 4, 4, 1, 1),    // 9: r4++
			asm(insts.OpJLT, 0, 4, 5, 6),    // 10: if r4 < r5 goto 6
			asm(insts.OpHLT, 0, 0, 0, 0),    // 11: halt
		},
		Check: func(_ regs, mem *emu.Memory) error {
			if err := expectMem(mem, 1000, 1); err != nil {
				return err
			}
			if err := expectMem(mem, 1001, 1); err != nil {
				return err
			}
			for addr := uint16(1002); addr < 1040; addr++ {
				want := mem.Read(addr-1) + mem.Read(addr-2)
				if err := expectMem(mem, addr, want); err != nil {
					return err
				}
			}
			return expectMem(mem, 1039, 102334155)
		},
	}
}

// 7. Multiply - shift-and-add multiplication of two memory operands
func multiply() Benchmark {
	program := []uint32{
		asm(insts.OpLD, 2, 0, 1, 1000), // 0: r2 = mem[1000]
		asm(insts.OpLD, 3, 0, 1, 1001), // 1: r3 = mem[1001]
		asm(insts.OpADD, 4, 0, 0, 0),   // 2: r4 = 0
		asm(insts.OpAND, 5, 2, 1, 1),   // 3: r5 = r2 & 1
		asm(insts.OpJEQ, 0, 5, 0, 6),   // 4: if r5 == 0 goto 6
		asm(insts.OpADD, 4, 4, 3, 0),   // 5: r4 += r3
		asm(insts.OpLSF, 3, 3, 1, 1),   // 6: r3 <<= 1
		asm(insts.OpRSF, 2, 2, 1, 1),   // 7: r2 >>= 1
		asm(insts.OpJNE, 0, 2, 0, 3),   // 8: if r2 != 0 goto 3
		asm(insts.OpST, 0, 4, 1, 1002), // 9: mem[1002] = r4
		asm(insts.OpHLT, 0, 0, 0, 0),   // 10: halt
	}

	multiplicand := int32(-57)
	return Benchmark{
		Name:        "multiply",
		Description: "192 * -57 by shift and add - load-use and short loop",
		Image:       withData(program, 1000, 192, uint32(multiplicand)),
		Check: func(r regs, mem *emu.Memory) error {
			if err := expectReg(r, 4, 192*-57); err != nil {
				return err
			}
			product := int32(192 * -57)
			return expectMem(mem, 1002, uint32(product))
		},
	}
}

// 8. DMA Copy - a block copy overlapped with a load loop, then polled
// with ASK and verified word by word
func dmaCopy() Benchmark {
	program := []uint32{
		asm(insts.OpADD, 3, 1, 0, 50),  // 0: r3 = 50 (src)
		asm(insts.OpADD, 4, 1, 0, 200), // 1: r4 = 200 (dst)
		asm(insts.OpCPY, 6, 3, 4, 50),  // 2: copy 50 words, r6 = accepted
		asm(insts.OpADD, 2, 1, 0, 50),  // 3: r2 = 50
		asm(insts.OpADD, 5, 1, 0, 100), // 4: r5 = 100
		asm(insts.OpADD, 3, 0, 0, 0),   // 5: r3 = 0
		asm(insts.OpLD, 4, 0, 2, 0),    // 6: r4 = mem[r2]
		asm(insts.OpADD, 3, 3, 4, 0),   // 7: r3 += r4
		asm(insts.OpADD, 2, 2, 1, 1),   // 8: r2++
		asm(insts.OpJLT, 0, 2, 5, 6),   // 9: if r2 < r5 goto 6
		asm(insts.OpASK, 2, 0, 0, 0),   // 10: r2 = remaining
		asm(insts.OpJNE, 0, 2, 0, 10),  // 11: if r2 != 0 goto 10
		asm(insts.OpADD, 2, 1, 0, 1),   // 12: r2 = 1 (copy passed)
		asm(insts.OpADD, 3, 1, 0, 50),  // 13: r3 = 50
		asm(insts.OpADD, 4, 1, 0, 200), // 14: r4 = 200
		asm(insts.OpADD, 5, 1, 0, 100), // 15: r5 = 100
		asm(insts.OpLD, 6, 0, 3, 0),    // 16: r6 = mem[r3]
		asm(insts.OpLD, 7, 0, 4, 0),    // 17: r7 = mem[r4]
		asm(insts.OpJEQ, 0, 6, 7, 21),  // 18: if r6 == r7 goto 21
		asm(insts.OpADD, 2, 0, 0, 0),   // 19: r2 = 0 (copy failed)
		asm(insts.OpJEQ, 0, 0, 0, 24),  // 20: goto 24
		asm(insts.OpADD, 3, 3, 1, 1),   // 21: r3++
		asm(insts.OpADD, 4, 4, 1, 1),   // 22: r4++
		asm(insts.OpJLT, 0, 3, 5, 16),  // 23: if r3 < r5 goto 16
		asm(insts.OpHLT, 0, 0, 0, 0),   // 24: halt
	}

	data := make([]uint32, 50)
	for i := range data {
		data[i] = uint32(i)
	}

	return Benchmark{
		Name:        "dma_copy",
		Description: "50-word CPY overlapped with a load loop, ASK polling - exercises the DMA engine",
		Image:       withData(program, 50, data...),
		Check: func(r regs, mem *emu.Memory) error {
			if err := expectReg(r, 2, 1); err != nil {
				return err
			}
			for i := uint16(0); i < 50; i++ {
				if err := expectMem(mem, 200+i, uint32(i)); err != nil {
					return err
				}
			}
			return nil
		},
	}
}
