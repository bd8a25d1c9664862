package cpu

import (
	"github.com/valerio/go-nescore/nescore/addr"
	"github.com/valerio/go-nescore/nescore/bit"
)

// Step is one micro-op. It performs at most one bus Read, Write or
// InternalCycle and reports whether it did; a step that does not apply to
// this execution (page not crossed) returns false and the CPU moves on to
// the next step within the same cycle. Optional steps at the end of a
// template are never reached that way: the step before them calls finish.
type Step func(c *CPU) bool

// template is a step sequence plus the number of optional steps in it.
type template struct {
	steps    []Step
	optional int
}

// access is how an instruction uses its effective address.
type access uint8

const (
	accessRead access = iota
	accessWrite
	accessRMW
)

type indexFunc func(c *CPU) uint8

func indexX(c *CPU) uint8 { return c.x }
func indexY(c *CPU) uint8 { return c.y }

// operand fetches

func fetchAddrLow(c *CPU) bool {
	c.addr = uint16(c.readPC())
	return true
}

func fetchAddrHigh(c *CPU) bool {
	c.addr |= uint16(c.readPC()) << 8
	return true
}

func fetchPointer(c *CPU) bool {
	c.ptr = c.readPC()
	return true
}

// zero page,X / zero page,Y: the CPU reads the unindexed address while it
// adds the index, wrapping within page zero.
func zeroPageIndex(index indexFunc) Step {
	return func(c *CPU) bool {
		c.bus.Read(c.addr)
		c.addr = uint16(uint8(c.addr) + index(c))
		return true
	}
}

// absolute,X / absolute,Y high byte fetch: the low byte add happens here,
// the carry into the high byte costs the fixup cycle.
func fetchAddrHighIndexed(index indexFunc) Step {
	return func(c *CPU) bool {
		c.base = c.addr | uint16(c.readPC())<<8
		c.addr = c.base + uint16(index(c))
		c.crossed = bit.PageCrossed(c.base, c.addr)
		return true
	}
}

// (zp,X)
func indirectXDummy(c *CPU) bool {
	c.bus.Read(uint16(c.ptr))
	c.ptr += c.x
	return true
}

func indirectXLow(c *CPU) bool {
	c.addr = uint16(c.bus.Read(uint16(c.ptr)))
	return true
}

func indirectXHigh(c *CPU) bool {
	c.addr |= uint16(c.bus.Read(uint16(c.ptr+1))) << 8
	return true
}

// (zp),Y
func indirectYLow(c *CPU) bool {
	c.addr = uint16(c.bus.Read(uint16(c.ptr)))
	return true
}

func indirectYHigh(c *CPU) bool {
	c.base = c.addr | uint16(c.bus.Read(uint16(c.ptr+1)))<<8
	c.addr = c.base + uint16(c.y)
	c.crossed = bit.PageCrossed(c.base, c.addr)
	return true
}

// uncorrected is the address the CPU puts on the bus before the high byte
// carry is applied.
func (c *CPU) uncorrected() uint16 {
	return bit.Combine(bit.High(c.base), bit.Low(c.addr))
}

// fixupIfCrossed is the read-only page-cross penalty: a dummy read from the
// wrong page, only when the index carried.
func fixupIfCrossed(c *CPU) bool {
	if !c.crossed {
		return false
	}
	c.bus.Read(c.uncorrected())
	return true
}

// fixupAlways is the same dummy read for writes and RMW, which always pay it.
func fixupAlways(c *CPU) bool {
	c.bus.Read(c.uncorrected())
	return true
}

// operation tails

func readTail(op readOp) []Step {
	return []Step{func(c *CPU) bool {
		op(c, c.bus.Read(c.addr))
		return true
	}}
}

func writeTail(op writeOp) []Step {
	return []Step{func(c *CPU) bool {
		v := op(c)
		c.bus.Write(c.addr, v)
		return true
	}}
}

// rmwTail reads, writes the unmodified value back, then writes the result.
func rmwTail(op rmwOp) []Step {
	return []Step{
		func(c *CPU) bool {
			c.data = c.bus.Read(c.addr)
			return true
		},
		func(c *CPU) bool {
			c.bus.Write(c.addr, c.data)
			return true
		},
		func(c *CPU) bool {
			c.bus.Write(c.addr, op(c, c.data))
			return true
		},
	}
}

// addressing builds the steps that leave the effective address in c.addr.
func addressing(mode Mode, kind access) template {
	var t template
	switch mode {
	case ZeroPage:
		t.steps = []Step{fetchAddrLow}
	case ZeroPageX:
		t.steps = []Step{fetchAddrLow, zeroPageIndex(indexX)}
	case ZeroPageY:
		t.steps = []Step{fetchAddrLow, zeroPageIndex(indexY)}
	case Absolute:
		t.steps = []Step{fetchAddrLow, fetchAddrHigh}
	case AbsoluteX, AbsoluteY:
		index := indexFunc(indexX)
		if mode == AbsoluteY {
			index = indexY
		}
		t.steps = []Step{fetchAddrLow, fetchAddrHighIndexed(index)}
		t = withFixup(t, kind)
	case IndirectX:
		t.steps = []Step{fetchPointer, indirectXDummy, indirectXLow, indirectXHigh}
	case IndirectY:
		t.steps = []Step{fetchPointer, indirectYLow, indirectYHigh}
		t = withFixup(t, kind)
	default:
		panic("cpu: no effective address for mode " + mode.String())
	}
	return t
}

func withFixup(t template, kind access) template {
	if kind == accessRead {
		t.steps = append(t.steps, fixupIfCrossed)
		t.optional++
	} else {
		t.steps = append(t.steps, fixupAlways)
	}
	return t
}

func readSteps(mode Mode, op readOp) template {
	if mode == Immediate {
		return template{steps: []Step{func(c *CPU) bool {
			op(c, c.readPC())
			return true
		}}}
	}
	t := addressing(mode, accessRead)
	t.steps = append(t.steps, readTail(op)...)
	return t
}

func writeSteps(mode Mode, op writeOp) template {
	t := addressing(mode, accessWrite)
	t.steps = append(t.steps, writeTail(op)...)
	return t
}

func rmwSteps(mode Mode, op rmwOp) template {
	if mode == Accumulator {
		return template{steps: []Step{func(c *CPU) bool {
			c.bus.InternalCycle()
			c.a = op(c, c.a)
			return true
		}}}
	}
	t := addressing(mode, accessRMW)
	t.steps = append(t.steps, rmwTail(op)...)
	return t
}

func impliedSteps(op impliedOp) template {
	return template{steps: []Step{func(c *CPU) bool {
		c.bus.InternalCycle()
		op(c)
		return true
	}}}
}

// branchSteps: 2 cycles not taken, 3 taken, 4 taken across a page. The
// last two steps are optional and must not cost a cycle when they don't
// apply, so each step ends the instruction itself once the rest is moot.
func branchSteps(cond func(c *CPU) bool) template {
	return template{
		optional: 2,
		steps: []Step{
			func(c *CPU) bool {
				c.data = c.readPC()
				if !cond(c) {
					c.finish()
				}
				return true
			},
			func(c *CPU) bool {
				c.bus.InternalCycle()
				c.addr = c.pc + uint16(int8(c.data))
				c.crossed = bit.PageCrossed(c.pc, c.addr)
				c.pc = bit.AddLow(c.pc, c.data)
				if !c.crossed {
					c.finish()
				}
				return true
			},
			func(c *CPU) bool {
				c.bus.InternalCycle()
				c.pc = c.addr
				return true
			},
		},
	}
}

// control flow

func jmpAbsoluteSteps() template {
	return template{steps: []Step{
		fetchAddrLow,
		func(c *CPU) bool {
			fetchAddrHigh(c)
			c.pc = c.addr
			return true
		},
	}}
}

// jmpIndirectSteps reproduces the pointer wrap: JMP ($xxFF) reads the high
// byte from $xx00.
func jmpIndirectSteps() template {
	return template{steps: []Step{
		fetchAddrLow,
		fetchAddrHigh,
		func(c *CPU) bool {
			c.data = c.bus.Read(c.addr)
			return true
		},
		func(c *CPU) bool {
			high := c.bus.Read(bit.AddLow(c.addr, 1))
			c.pc = bit.Combine(high, c.data)
			return true
		},
	}}
}

func jsrSteps() template {
	return template{steps: []Step{
		func(c *CPU) bool {
			c.data = c.readPC()
			return true
		},
		func(c *CPU) bool {
			c.bus.InternalCycle()
			return true
		},
		func(c *CPU) bool {
			c.push(bit.High(c.pc))
			return true
		},
		func(c *CPU) bool {
			c.push(bit.Low(c.pc))
			return true
		},
		func(c *CPU) bool {
			high := c.bus.Read(c.pc)
			c.pc = bit.Combine(high, c.data)
			return true
		},
	}}
}

func internal(c *CPU) bool {
	c.bus.InternalCycle()
	return true
}

func rtsSteps() template {
	return template{steps: []Step{
		internal,
		internal,
		func(c *CPU) bool {
			c.data = c.pull()
			return true
		},
		func(c *CPU) bool {
			c.pc = bit.Combine(c.pull(), c.data)
			return true
		},
		func(c *CPU) bool {
			c.bus.InternalCycle()
			c.pc++
			return true
		},
	}}
}

func rtiSteps() template {
	return template{steps: []Step{
		internal,
		internal,
		func(c *CPU) bool {
			c.p = c.pull()&^uint8(breakFlag) | uint8(unusedFlag)
			return true
		},
		func(c *CPU) bool {
			c.data = c.pull()
			return true
		},
		func(c *CPU) bool {
			c.pc = bit.Combine(c.pull(), c.data)
			return true
		},
	}}
}

func phaSteps() template {
	return template{steps: []Step{internal, func(c *CPU) bool {
		c.push(c.a)
		return true
	}}}
}

func phpSteps() template {
	return template{steps: []Step{internal, func(c *CPU) bool {
		c.push(c.p | uint8(breakFlag|unusedFlag))
		return true
	}}}
}

func plaSteps() template {
	return template{steps: []Step{internal, internal, func(c *CPU) bool {
		c.a = c.pull()
		c.setZN(c.a)
		return true
	}}}
}

func plpSteps() template {
	return template{steps: []Step{internal, internal, func(c *CPU) bool {
		c.p = c.pull()&^uint8(breakFlag) | uint8(unusedFlag)
		return true
	}}}
}

func jamSteps() template {
	return template{steps: []Step{func(c *CPU) bool {
		c.bus.Read(c.pc)
		c.jam()
		return true
	}}}
}

// interrupt sequences

func pushPCHigh(c *CPU) bool {
	c.push(bit.High(c.pc))
	return true
}

func pushPCLow(c *CPU) bool {
	c.push(bit.Low(c.pc))
	return true
}

// pushStatus pushes P and resolves the vector. An NMI that arrives while
// BRK or IRQ is pushing takes over the sequence.
func pushStatus(brk bool) Step {
	return func(c *CPU) bool {
		p := c.p | uint8(unusedFlag)
		if brk {
			p |= uint8(breakFlag)
		} else {
			p &^= uint8(breakFlag)
		}
		c.push(p)
		if c.vector == addr.IRQVector && c.nmiPending {
			c.nmiPending = false
			c.vector = addr.NMIVector
		}
		return true
	}
}

func fetchVectorLow(c *CPU) bool {
	c.data = c.bus.Read(c.vector)
	c.setFlag(interruptFlag)
	return true
}

func fetchVectorHigh(c *CPU) bool {
	c.pc = bit.Combine(c.bus.Read(c.vector+1), c.data)
	return true
}

func dummyReadPC(c *CPU) bool {
	c.bus.Read(c.pc)
	return true
}

// brkSteps: the padding byte after BRK is skipped, B is set in the pushed P.
func brkSteps() template {
	return template{steps: []Step{
		func(c *CPU) bool {
			c.readPC()
			c.vector = addr.IRQVector
			return true
		},
		pushPCHigh,
		pushPCLow,
		pushStatus(true),
		fetchVectorLow,
		fetchVectorHigh,
	}}
}

// interruptSteps replace the opcode fetch for IRQ and NMI: two reads of PC
// that do not advance it, then the BRK push and vector sequence.
func interruptSteps() []Step {
	return []Step{
		dummyReadPC,
		dummyReadPC,
		pushPCHigh,
		pushPCLow,
		pushStatus(false),
		fetchVectorLow,
		fetchVectorHigh,
	}
}

// resetSteps run the interrupt sequence with writes suppressed: the stack
// pointer still drops by three.
func resetSteps() []Step {
	stackRead := func(c *CPU) bool {
		c.bus.Read(addr.StackBase | uint16(c.s))
		c.s--
		return true
	}
	return []Step{
		dummyReadPC,
		dummyReadPC,
		stackRead,
		stackRead,
		stackRead,
		func(c *CPU) bool {
			c.vector = addr.ResetVector
			return fetchVectorLow(c)
		},
		fetchVectorHigh,
	}
}
