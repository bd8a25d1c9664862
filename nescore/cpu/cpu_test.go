package cpu

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valerio/go-nescore/nescore/addr"
)

type busAccess struct {
	kind  byte // 'r', 'w' or 'i'
	addr  uint16
	value uint8
}

// testBus is 64K of flat RAM that logs every cycle.
type testBus struct {
	mem [0x10000]uint8
	log []busAccess
	nmi bool
	irq bool
}

func (b *testBus) Read(address uint16) uint8 {
	v := b.mem[address]
	b.log = append(b.log, busAccess{'r', address, v})
	return v
}

func (b *testBus) Peek(address uint16) uint8 { return b.mem[address] }

func (b *testBus) Write(address uint16, value uint8) {
	b.mem[address] = value
	b.log = append(b.log, busAccess{'w', address, value})
}

func (b *testBus) InternalCycle() { b.log = append(b.log, busAccess{kind: 'i'}) }
func (b *testBus) NMI() bool      { return b.nmi }
func (b *testBus) IRQ() bool      { return b.irq }

func (b *testBus) setVector(vector, target uint16) {
	b.mem[vector] = uint8(target)
	b.mem[vector+1] = uint8(target >> 8)
}

// newTestCPU loads program at origin, runs the reset sequence into it and
// clears the access log.
func newTestCPU(t *testing.T, origin uint16, program ...byte) (*CPU, *testBus) {
	t.Helper()
	b := &testBus{}
	copy(b.mem[origin:], program)
	b.setVector(addr.ResetVector, origin)
	c := New(b, DefaultTable())
	for i := 0; i < 7; i++ {
		c.Clock()
	}
	require.True(t, c.AtBoundary())
	require.Equal(t, origin, c.PC())
	b.log = nil
	return c, b
}

// step runs one whole instruction (or interrupt sequence) and returns its
// length in cycles.
func step(c *CPU) int {
	n := 0
	for {
		c.Clock()
		n++
		if c.AtBoundary() {
			return n
		}
	}
}

func (c *CPU) withRegisters(f func(r *Registers)) {
	r := c.Registers()
	f(&r)
	c.SetRegisters(r)
}

// documented NMOS 6502 cycle counts, JAM counted as its two bus cycles
var cycleTable = [256]int{
	7, 6, 2, 8, 3, 3, 5, 5, 3, 2, 2, 2, 4, 4, 6, 6,
	2, 5, 2, 8, 4, 4, 6, 6, 2, 4, 2, 7, 4, 4, 7, 7,
	6, 6, 2, 8, 3, 3, 5, 5, 4, 2, 2, 2, 4, 4, 6, 6,
	2, 5, 2, 8, 4, 4, 6, 6, 2, 4, 2, 7, 4, 4, 7, 7,
	6, 6, 2, 8, 3, 3, 5, 5, 3, 2, 2, 2, 3, 4, 6, 6,
	2, 5, 2, 8, 4, 4, 6, 6, 2, 4, 2, 7, 4, 4, 7, 7,
	6, 6, 2, 8, 3, 3, 5, 5, 4, 2, 2, 2, 5, 4, 6, 6,
	2, 5, 2, 8, 4, 4, 6, 6, 2, 4, 2, 7, 4, 4, 7, 7,
	2, 6, 2, 6, 3, 3, 3, 3, 2, 2, 2, 2, 4, 4, 4, 4,
	2, 6, 2, 6, 4, 4, 4, 4, 2, 5, 2, 5, 5, 5, 5, 5,
	2, 6, 2, 6, 3, 3, 3, 3, 2, 2, 2, 2, 4, 4, 4, 4,
	2, 5, 2, 5, 4, 4, 4, 4, 2, 4, 2, 4, 4, 4, 4, 4,
	2, 6, 2, 8, 3, 3, 5, 5, 2, 2, 2, 2, 4, 4, 6, 6,
	2, 5, 2, 8, 4, 4, 6, 6, 2, 4, 2, 7, 4, 4, 7, 7,
	2, 6, 2, 8, 3, 3, 5, 5, 2, 2, 2, 2, 4, 4, 6, 6,
	2, 5, 2, 8, 4, 4, 6, 6, 2, 4, 2, 7, 4, 4, 7, 7,
}

func TestTable(t *testing.T) {
	table := DefaultTable()
	assert.Same(t, table, DefaultTable())

	for op := 0; op < 256; op++ {
		instr := table.Lookup(uint8(op))
		assert.Equal(t, uint8(op), instr.Opcode)
		assert.NotEmpty(t, instr.Mnemonic, "opcode 0x%02X", op)
		assert.NotEmpty(t, instr.Steps, "opcode 0x%02X", op)
		assert.Equal(t, cycleTable[op], instr.Cycles, "opcode 0x%02X %s %s", op, instr.Mnemonic, instr.Mode)
	}

	assert.False(t, table.Lookup(0xA9).Illegal)
	assert.True(t, table.Lookup(0xA7).Illegal)
	assert.True(t, table.Lookup(0xBD).PageSensitive)
	assert.False(t, table.Lookup(0x9D).PageSensitive, "stores always pay the fixup")
	assert.False(t, table.Lookup(0xFE).PageSensitive)
	assert.Equal(t, 3, table.Lookup(0x4C).Bytes)
	assert.Equal(t, "JMP", table.Lookup(0x6C).Mnemonic)
	assert.Equal(t, Indirect, table.Lookup(0x6C).Mode)
}

func TestCycleCounts(t *testing.T) {
	for op := 0; op < 256; op++ {
		instr := DefaultTable().Lookup(uint8(op))
		if instr.Mode == Relative {
			continue
		}
		// operands point at $0210, indexes are zero so no page is crossed
		c, b := newTestCPU(t, 0x0200, uint8(op), 0x10, 0x02)
		n := step(c)
		assert.Equal(t, cycleTable[op], n, "opcode 0x%02X %s %s", op, instr.Mnemonic, instr.Mode)
		assert.Len(t, b.log, n, "one bus cycle per clock, opcode 0x%02X %s", op, instr.Mnemonic)
	}
}

func TestBranchCycleCounts(t *testing.T) {
	branches := []struct {
		opcode uint8
		flag   Flag
		onSet  bool
	}{
		{0x10, negativeFlag, false}, // BPL
		{0x30, negativeFlag, true},  // BMI
		{0x50, overflowFlag, false}, // BVC
		{0x70, overflowFlag, true},  // BVS
		{0x90, carryFlag, false},    // BCC
		{0xB0, carryFlag, true},     // BCS
		{0xD0, zeroFlag, false},     // BNE
		{0xF0, zeroFlag, true},      // BEQ
	}
	for _, br := range branches {
		mnemonic := DefaultTable().Lookup(br.opcode).Mnemonic
		status := func(taken bool) uint8 {
			if taken == br.onSet {
				return uint8(br.flag)
			}
			return 0
		}

		t.Run(mnemonic, func(t *testing.T) {
			testCases := []struct {
				desc   string
				origin uint16
				offset uint8
				taken  bool
				cycles int
				pc     uint16
			}{
				{desc: "not taken", origin: 0x8000, offset: 0x10, taken: false, cycles: 2, pc: 0x8002},
				{desc: "taken", origin: 0x8000, offset: 0x10, taken: true, cycles: 3, pc: 0x8012},
				{desc: "taken across a page", origin: 0x80F0, offset: 0x20, taken: true, cycles: 4, pc: 0x8112},
			}
			for _, tC := range testCases {
				t.Run(tC.desc, func(t *testing.T) {
					c, b := newTestCPU(t, tC.origin, br.opcode, tC.offset)
					c.withRegisters(func(r *Registers) { r.P = status(tC.taken) })
					before := c.Cycles()

					assert.Equal(t, tC.cycles, step(c))
					assert.Equal(t, tC.pc, c.PC())
					assert.Len(t, b.log, tC.cycles)
					assert.Equal(t, uint64(tC.cycles), c.Cycles()-before)
				})
			}
		})
	}
}

func TestBranchKeepsCyclesInStep(t *testing.T) {
	// BEQ not taken, BNE taken, BNE taken across a page, LDA #$01
	c, b := newTestCPU(t, 0x80F8, 0xF0, 0x02, 0xD0, 0x00, 0xD0, 0x04, 0xEA, 0xEA, 0xEA, 0xEA, 0xA9, 0x01)
	c.withRegisters(func(r *Registers) { r.P = 0 })

	assert.Equal(t, []int{2, 3, 4, 2}, []int{step(c), step(c), step(c), step(c)})
	assert.Equal(t, uint16(0x8104), c.PC())
	assert.Equal(t, uint8(0x01), c.Registers().A)
	assert.Equal(t, uint64(len(b.log)), c.Cycles()-7)
}

func TestPageCrossing(t *testing.T) {
	t.Run("indexed read pays a dummy read from the wrong page", func(t *testing.T) {
		c, b := newTestCPU(t, 0x8000, 0xBD, 0xF0, 0x02) // LDA $02F0,X
		c.withRegisters(func(r *Registers) { r.X = 0x20 })
		b.mem[0x0310] = 0x99

		assert.Equal(t, 5, step(c))
		assert.Equal(t, uint8(0x99), c.Registers().A)
		assert.Equal(t, []busAccess{
			{'r', 0x8000, 0xBD},
			{'r', 0x8001, 0xF0},
			{'r', 0x8002, 0x02},
			{'r', 0x0210, 0x00},
			{'r', 0x0310, 0x99},
		}, b.log)
	})

	t.Run("indexed read without crossing", func(t *testing.T) {
		c, b := newTestCPU(t, 0x8000, 0xB9, 0x00, 0x03) // LDA $0300,Y
		c.withRegisters(func(r *Registers) { r.Y = 0x10 })

		assert.Equal(t, 4, step(c))
		assert.Len(t, b.log, 4)
	})

	t.Run("(zp),Y read crossing", func(t *testing.T) {
		c, b := newTestCPU(t, 0x8000, 0xB1, 0x40) // LDA ($40),Y
		c.withRegisters(func(r *Registers) { r.Y = 0x01 })
		b.mem[0x40], b.mem[0x41] = 0xFF, 0x04
		b.mem[0x0500] = 0x55

		assert.Equal(t, 6, step(c))
		assert.Equal(t, uint8(0x55), c.Registers().A)
		assert.Equal(t, busAccess{'r', 0x0400, 0x00}, b.log[4])
	})

	t.Run("indexed store always reads before writing", func(t *testing.T) {
		c, b := newTestCPU(t, 0x8000, 0x9D, 0x00, 0x03) // STA $0300,X
		c.withRegisters(func(r *Registers) { r.A = 0x77; r.X = 0x10 })

		assert.Equal(t, 5, step(c))
		assert.Equal(t, []busAccess{
			{'r', 0x8000, 0x9D},
			{'r', 0x8001, 0x00},
			{'r', 0x8002, 0x03},
			{'r', 0x0310, 0x00},
			{'w', 0x0310, 0x77},
		}, b.log)
	})

	t.Run("indexed store crossing reads the uncorrected address", func(t *testing.T) {
		c, b := newTestCPU(t, 0x8000, 0x99, 0xF0, 0x02) // STA $02F0,Y
		c.withRegisters(func(r *Registers) { r.A = 0x77; r.Y = 0x20 })

		assert.Equal(t, 5, step(c))
		assert.Equal(t, busAccess{'r', 0x0210, 0x00}, b.log[3])
		assert.Equal(t, busAccess{'w', 0x0310, 0x77}, b.log[4])
	})

	t.Run("zero page index wraps", func(t *testing.T) {
		c, b := newTestCPU(t, 0x8000, 0xB5, 0xF0) // LDA $F0,X
		c.withRegisters(func(r *Registers) { r.X = 0x20 })
		b.mem[0x0010] = 0x31

		assert.Equal(t, 4, step(c))
		assert.Equal(t, uint8(0x31), c.Registers().A)
		assert.Equal(t, busAccess{'r', 0x00F0, 0x00}, b.log[2])
	})
}

func TestBranches(t *testing.T) {
	t.Run("not taken", func(t *testing.T) {
		c, _ := newTestCPU(t, 0x8000, 0xF0, 0x10) // BEQ
		c.withRegisters(func(r *Registers) { r.P = 0 })
		assert.Equal(t, 2, step(c))
		assert.Equal(t, uint16(0x8002), c.PC())
	})

	t.Run("taken", func(t *testing.T) {
		c, _ := newTestCPU(t, 0x8000, 0xD0, 0x10) // BNE
		c.withRegisters(func(r *Registers) { r.P = 0 })
		assert.Equal(t, 3, step(c))
		assert.Equal(t, uint16(0x8012), c.PC())
	})

	t.Run("taken backwards", func(t *testing.T) {
		c, _ := newTestCPU(t, 0x8010, 0x10, 0xFE) // BPL *
		c.withRegisters(func(r *Registers) { r.P = 0 })
		assert.Equal(t, 3, step(c))
		assert.Equal(t, uint16(0x8010), c.PC())
	})

	t.Run("taken across a page", func(t *testing.T) {
		c, _ := newTestCPU(t, 0x80F0, 0xB0, 0x20) // BCS
		c.withRegisters(func(r *Registers) { r.P = uint8(carryFlag) })
		assert.Equal(t, 4, step(c))
		assert.Equal(t, uint16(0x8112), c.PC())
	})
}

func TestInstructions(t *testing.T) {
	t.Run("LDA immediate", func(t *testing.T) {
		c, _ := newTestCPU(t, 0x8000, 0xA9, 0x42)
		assert.Equal(t, 2, step(c))
		r := c.Registers()
		assert.Equal(t, uint8(0x42), r.A)
		assert.Equal(t, uint16(0x8002), r.PC)
		assert.False(t, c.isSetFlag(zeroFlag))
		assert.False(t, c.isSetFlag(negativeFlag))
	})

	t.Run("DCP zero page", func(t *testing.T) {
		c, b := newTestCPU(t, 0x8000, 0xC7, 0x10)
		c.withRegisters(func(r *Registers) { r.A = 0x05 })
		b.mem[0x10] = 0x05

		assert.Equal(t, 5, step(c))
		assert.Equal(t, uint8(0x04), b.mem[0x10])
		assert.True(t, c.isSetFlag(carryFlag))
		assert.False(t, c.isSetFlag(zeroFlag))
		assert.False(t, c.isSetFlag(negativeFlag))
	})

	t.Run("RMW writes the original value back first", func(t *testing.T) {
		c, b := newTestCPU(t, 0x8000, 0xEE, 0x34, 0x12) // INC $1234
		b.mem[0x1234] = 0x7F

		assert.Equal(t, 6, step(c))
		assert.Equal(t, []busAccess{
			{'r', 0x8000, 0xEE},
			{'r', 0x8001, 0x34},
			{'r', 0x8002, 0x12},
			{'r', 0x1234, 0x7F},
			{'w', 0x1234, 0x7F},
			{'w', 0x1234, 0x80},
		}, b.log)
		assert.True(t, c.isSetFlag(negativeFlag))
	})

	t.Run("JMP indirect wraps within the pointer page", func(t *testing.T) {
		c, b := newTestCPU(t, 0x8000, 0x6C, 0xFF, 0x02)
		b.mem[0x02FF] = 0x34
		b.mem[0x0200] = 0x12
		b.mem[0x0300] = 0x56

		assert.Equal(t, 5, step(c))
		assert.Equal(t, uint16(0x1234), c.PC())
	})

	t.Run("JSR and RTS", func(t *testing.T) {
		c, b := newTestCPU(t, 0x8000, 0x20, 0x00, 0x90) // JSR $9000
		b.mem[0x9000] = 0x60                           // RTS

		assert.Equal(t, 6, step(c))
		assert.Equal(t, uint16(0x9000), c.PC())
		assert.Equal(t, uint8(0x80), b.mem[0x01FD])
		assert.Equal(t, uint8(0x02), b.mem[0x01FC])
		assert.Equal(t, uint8(0xFB), c.Registers().S)

		assert.Equal(t, 6, step(c))
		assert.Equal(t, uint16(0x8003), c.PC())
		assert.Equal(t, uint8(0xFD), c.Registers().S)
	})

	t.Run("PHP pushes B and U, PLP drops B", func(t *testing.T) {
		c, b := newTestCPU(t, 0x8000, 0x08, 0x28) // PHP, PLP
		c.withRegisters(func(r *Registers) { r.P = uint8(carryFlag) })

		assert.Equal(t, 3, step(c))
		assert.Equal(t, uint8(0x31), b.mem[0x01FD])
		assert.Equal(t, 4, step(c))
		assert.Equal(t, uint8(0x21), c.Registers().P)
	})

	t.Run("decimal flag does not affect ADC", func(t *testing.T) {
		c, _ := newTestCPU(t, 0x8000, 0xF8, 0x69, 0x01) // SED, ADC #$01
		c.withRegisters(func(r *Registers) { r.A = 0x09 })
		step(c)
		step(c)
		assert.Equal(t, uint8(0x0A), c.Registers().A)
	})
}

func TestArithmetic(t *testing.T) {
	testCases := []struct {
		desc    string
		program []byte
		a       uint8
		p       uint8
		want    uint8
		flags   Flag
	}{
		{desc: "ADC simple", program: []byte{0x69, 0x01}, a: 0x01, want: 0x02},
		{desc: "ADC carry in", program: []byte{0x69, 0x01}, a: 0x01, p: uint8(carryFlag), want: 0x03},
		{desc: "ADC carry out", program: []byte{0x69, 0x01}, a: 0xFF, want: 0x00, flags: carryFlag | zeroFlag},
		{desc: "ADC signed overflow", program: []byte{0x69, 0x01}, a: 0x7F, want: 0x80, flags: overflowFlag | negativeFlag},
		{desc: "SBC no borrow", program: []byte{0xE9, 0x01}, a: 0x03, p: uint8(carryFlag), want: 0x02, flags: carryFlag},
		{desc: "SBC borrow", program: []byte{0xE9, 0x01}, a: 0x00, p: uint8(carryFlag), want: 0xFF, flags: negativeFlag},
		{desc: "illegal SBC matches SBC", program: []byte{0xEB, 0x01}, a: 0x03, p: uint8(carryFlag), want: 0x02, flags: carryFlag},
		{desc: "CMP equal", program: []byte{0xC9, 0x10}, a: 0x10, want: 0x10, flags: carryFlag | zeroFlag},
		{desc: "ANC copies bit 7 to carry", program: []byte{0x0B, 0x80}, a: 0xFF, want: 0x80, flags: carryFlag | negativeFlag},
		{desc: "ALR", program: []byte{0x4B, 0x03}, a: 0xFF, want: 0x01, flags: carryFlag},
		{desc: "ARR", program: []byte{0x6B, 0xFF}, a: 0xFF, p: uint8(carryFlag), want: 0xFF, flags: carryFlag | negativeFlag},
		{desc: "ARR with bits 6 and 5 equal", program: []byte{0x6B, 0xC0}, a: 0xFF, want: 0x60, flags: carryFlag},
		{desc: "ARR sets overflow", program: []byte{0x6B, 0x80}, a: 0xFF, want: 0x40, flags: carryFlag | overflowFlag},
		{desc: "XAA", program: []byte{0x8B, 0x0F}, a: 0x11, want: 0x0F},
		{desc: "LXA", program: []byte{0xAB, 0x5A}, a: 0x00, want: 0x4A},
	}
	for _, tC := range testCases {
		t.Run(tC.desc, func(t *testing.T) {
			c, _ := newTestCPU(t, 0x8000, tC.program...)
			c.withRegisters(func(r *Registers) { r.A = tC.a; r.X = 0xFF; r.P = tC.p })
			step(c)
			assert.Equal(t, tC.want, c.Registers().A)
			assert.Equal(t, uint8(tC.flags|unusedFlag), c.Registers().P, FlagString(c.Registers().P))
		})
	}

	t.Run("LXA also loads X", func(t *testing.T) {
		c, _ := newTestCPU(t, 0x8000, 0xAB, 0x5A)
		step(c)
		assert.Equal(t, uint8(0x4A), c.Registers().X)
	})

	t.Run("AXS", func(t *testing.T) {
		c, _ := newTestCPU(t, 0x8000, 0xCB, 0x02)
		c.withRegisters(func(r *Registers) { r.A = 0x0F; r.X = 0x03 })
		step(c)
		assert.Equal(t, uint8(0x01), c.Registers().X)
		assert.True(t, c.isSetFlag(carryFlag))
	})
}

func TestUnstableStores(t *testing.T) {
	testCases := []struct {
		desc    string
		program []byte
		regs    Registers
		addr    uint16
		want    uint8
	}{
		{desc: "SHX", program: []byte{0x9E, 0x00, 0x03}, regs: Registers{X: 0xFF, Y: 0x10}, addr: 0x0310, want: 0x04},
		{desc: "SHX crossing replaces the high byte", program: []byte{0x9E, 0xF0, 0x02}, regs: Registers{X: 0x01, Y: 0x20}, addr: 0x0110, want: 0x01},
		{desc: "SHY", program: []byte{0x9C, 0x00, 0x03}, regs: Registers{Y: 0xFF, X: 0x05}, addr: 0x0305, want: 0x04},
		{desc: "SHA absolute", program: []byte{0x9F, 0x00, 0x03}, regs: Registers{A: 0xFF, X: 0xF7, Y: 0x05}, addr: 0x0305, want: 0x04},
		{desc: "SHA indirect", program: []byte{0x93, 0x40}, regs: Registers{A: 0xFF, X: 0xFF, Y: 0x05}, addr: 0x0305, want: 0x04},
	}
	for _, tC := range testCases {
		t.Run(tC.desc, func(t *testing.T) {
			c, b := newTestCPU(t, 0x8000, tC.program...)
			b.mem[0x40], b.mem[0x41] = 0x00, 0x03
			regs := tC.regs
			regs.PC, regs.S = c.PC(), 0xFD
			c.SetRegisters(regs)

			step(c)
			assert.Equal(t, tC.want, b.mem[tC.addr])
		})
	}

	t.Run("SHX crossing leaves the target page alone", func(t *testing.T) {
		c, b := newTestCPU(t, 0x8000, 0x9E, 0xF0, 0x02)
		c.withRegisters(func(r *Registers) { r.X = 0x01; r.Y = 0x20 })
		b.mem[0x0310] = 0xAA
		step(c)
		assert.Equal(t, uint8(0xAA), b.mem[0x0310])
	})

	t.Run("TAS", func(t *testing.T) {
		c, b := newTestCPU(t, 0x8000, 0x9B, 0x00, 0x03)
		c.withRegisters(func(r *Registers) { r.A = 0xF0; r.X = 0x3F; r.Y = 0x05 })
		b.mem[0x0305] = 0xAA

		assert.Equal(t, 5, step(c))
		assert.Equal(t, uint8(0x30), c.Registers().S)
		assert.Equal(t, uint8(0x00), b.mem[0x0305])
	})
}

func TestInterrupts(t *testing.T) {
	setup := func(t *testing.T) (*CPU, *testBus) {
		program := make([]byte, 16)
		for i := range program {
			program[i] = 0xEA // NOP
		}
		c, b := newTestCPU(t, 0x8000, program...)
		b.setVector(addr.NMIVector, 0x9000)
		b.setVector(addr.IRQVector, 0xA000)
		copy(b.mem[0x9000:], program)
		copy(b.mem[0xA000:], program)
		return c, b
	}

	t.Run("NMI wins over IRQ", func(t *testing.T) {
		c, b := setup(t)
		c.withRegisters(func(r *Registers) { r.P = 0 })
		b.nmi, b.irq = true, true

		assert.Equal(t, 2, step(c))
		assert.Equal(t, 7, step(c))
		assert.Equal(t, uint16(0x9000), c.PC())
		assert.True(t, c.isSetFlag(interruptFlag))
		assert.Equal(t, uint8(0x80), b.mem[0x01FD])
		assert.Equal(t, uint8(0x01), b.mem[0x01FC])
		assert.Equal(t, uint8(0x20), b.mem[0x01FB], "B is clear for hardware interrupts")
		assert.False(t, c.NMIPending())
	})

	t.Run("NMI is edge triggered", func(t *testing.T) {
		c, b := setup(t)
		b.nmi = true

		step(c)
		step(c)
		require.Equal(t, uint16(0x9000), c.PC())
		step(c)
		assert.Equal(t, uint16(0x9001), c.PC(), "a held line does not retrigger")

		b.nmi = false
		step(c)
		b.nmi = true
		step(c)
		step(c)
		assert.Equal(t, uint16(0x9000), c.PC())
	})

	t.Run("IRQ masked by I", func(t *testing.T) {
		c, b := setup(t)
		b.irq = true
		step(c)
		step(c)
		assert.Equal(t, uint16(0x8002), c.PC())
	})

	t.Run("IRQ taken when enabled", func(t *testing.T) {
		c, b := setup(t)
		c.withRegisters(func(r *Registers) { r.P = 0 })
		b.irq = true
		step(c)
		assert.Equal(t, 7, step(c))
		assert.Equal(t, uint16(0xA000), c.PC())
	})

	t.Run("CLI takes effect after the next instruction", func(t *testing.T) {
		c, b := setup(t)
		b.mem[0x8000] = 0x58 // CLI
		b.irq = true

		step(c)
		assert.False(t, c.isSetFlag(interruptFlag))
		assert.Equal(t, 2, step(c))
		assert.Equal(t, uint16(0x8002), c.PC())
		assert.Equal(t, 7, step(c))
		assert.Equal(t, uint16(0xA000), c.PC())
		assert.Equal(t, uint8(0x80), b.mem[0x01FD])
		assert.Equal(t, uint8(0x02), b.mem[0x01FC])
	})

	t.Run("BRK pushes B and skips the padding byte", func(t *testing.T) {
		c, b := setup(t)
		b.mem[0x8000] = 0x00
		c.withRegisters(func(r *Registers) { r.P = uint8(carryFlag) })

		assert.Equal(t, 7, step(c))
		assert.Equal(t, uint16(0xA000), c.PC())
		assert.Equal(t, uint8(0x80), b.mem[0x01FD])
		assert.Equal(t, uint8(0x02), b.mem[0x01FC])
		assert.Equal(t, uint8(0x31), b.mem[0x01FB])
		assert.True(t, c.isSetFlag(interruptFlag))
	})

	t.Run("NMI during BRK takes over the vector", func(t *testing.T) {
		c, b := setup(t)
		b.mem[0x8000] = 0x00

		c.Clock()
		c.Clock()
		b.nmi = true
		n := 2 + step(c)

		assert.Equal(t, 7, n)
		assert.Equal(t, uint16(0x9000), c.PC())
		assert.Equal(t, uint8(0x34), b.mem[0x01FB], "B stays set in the pushed status")
		assert.False(t, c.NMIPending())

		step(c)
		assert.Equal(t, uint16(0x9001), c.PC(), "the NMI is not serviced twice")
	})

	t.Run("RTI restores status and PC", func(t *testing.T) {
		c, b := setup(t)
		b.mem[0x9000] = 0x40 // RTI
		c.withRegisters(func(r *Registers) { r.P = uint8(carryFlag) })
		b.nmi = true

		step(c)
		step(c)
		assert.Equal(t, 6, step(c))
		assert.Equal(t, uint16(0x8001), c.PC())
		assert.Equal(t, uint8(carryFlag|unusedFlag), c.Registers().P)
	})
}

func TestResetAndJam(t *testing.T) {
	t.Run("power on reset", func(t *testing.T) {
		b := &testBus{}
		b.setVector(addr.ResetVector, 0xC000)
		c := New(b, DefaultTable())
		assert.False(t, c.AtBoundary())

		assert.Equal(t, 7, step(c))
		r := c.Registers()
		assert.Equal(t, uint16(0xC000), r.PC)
		assert.Equal(t, uint8(0xFD), r.S)
		assert.Equal(t, uint8(0x24), r.P)
		assert.Equal(t, uint64(7), c.Cycles())
		for _, a := range b.log {
			assert.Equal(t, byte('r'), a.kind, "reset never writes")
		}
	})

	t.Run("soft reset keeps A X Y", func(t *testing.T) {
		c, _ := newTestCPU(t, 0x8000, 0xA9, 0x42)
		step(c)
		c.Reset()
		step(c)
		r := c.Registers()
		assert.Equal(t, uint8(0x42), r.A)
		assert.Equal(t, uint8(0xFA), r.S)
		assert.Equal(t, uint16(0x8000), r.PC)
	})

	t.Run("JAM halts until reset", func(t *testing.T) {
		c, b := newTestCPU(t, 0x8000, 0x02)

		assert.Equal(t, 2, step(c))
		assert.True(t, c.Halted())
		pc := c.PC()
		for i := 0; i < 10; i++ {
			c.Clock()
		}
		assert.Equal(t, pc, c.PC())
		assert.Equal(t, uint64(7+12), c.Cycles())
		assert.Equal(t, busAccess{kind: 'i'}, b.log[len(b.log)-1])

		c.Reset()
		assert.False(t, c.Halted())
		step(c)
		assert.Equal(t, uint16(0x8000), c.PC())
	})
}

func TestFlagString(t *testing.T) {
	assert.Equal(t, "nv-bdIzc", FlagString(0x24))
	assert.Equal(t, "NV-BDIZC", FlagString(0xFF))
}
