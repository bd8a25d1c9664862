package cpu

import (
	"fmt"
	"log/slog"

	"github.com/valerio/go-nescore/nescore/addr"
	"github.com/valerio/go-nescore/nescore/bit"
)

// Bus is everything the CPU can touch. Each Read, Write and InternalCycle
// call is exactly one CPU cycle.
type Bus interface {
	Read(address uint16) uint8
	Peek(address uint16) uint8
	Write(address uint16, value uint8)
	InternalCycle()
	NMI() bool
	IRQ() bool
}

// Flag is one bit of the status register P.
type Flag uint8

const (
	carryFlag     Flag = 0x01
	zeroFlag      Flag = 0x02
	interruptFlag Flag = 0x04
	decimalFlag   Flag = 0x08
	breakFlag     Flag = 0x10
	unusedFlag    Flag = 0x20
	overflowFlag  Flag = 0x40
	negativeFlag  Flag = 0x80
)

// template ids above the opcode range
const (
	templateInterrupt = 0x100
	templateReset     = 0x101
)

// CPU is a 2A03 core without decimal mode. It advances one bus cycle per
// Clock call by running the next micro-op of the in-flight instruction.
type CPU struct {
	// registers
	a  uint8
	x  uint8
	y  uint8
	s  uint8
	p  uint8
	pc uint16

	// interrupt lines
	nmiPending bool // edge latched, cleared when serviced
	prevNMI    bool // line level seen on the previous cycle
	nmiPoll    bool // nmiPending as of the start of the previous cycle
	irqPoll    bool // IRQ line and !I as of the start of the previous cycle

	halted bool
	cycles uint64

	// in-flight instruction: template id and cursor into its steps.
	// steps is nil at an instruction boundary.
	template uint16
	steps    []Step
	cursor   int

	// per-instruction scratch, meaningless at a boundary
	addr    uint16
	base    uint16
	ptr     uint8
	data    uint8
	crossed bool
	vector  uint16

	table *Table
	bus   Bus
}

// New returns a CPU in power-on state with the reset sequence queued, so
// the first seven cycles load PC from the reset vector.
func New(bus Bus, table *Table) *CPU {
	c := &CPU{
		bus:   bus,
		table: table,
	}
	c.PowerOn()
	return c
}

// PowerOn puts the registers in their power-up state and queues reset.
func (c *CPU) PowerOn() {
	c.a, c.x, c.y = 0, 0, 0
	c.s = 0x00
	c.p = uint8(unusedFlag)
	c.pc = 0
	c.cycles = 0
	c.nmiPending, c.prevNMI, c.nmiPoll, c.irqPoll = false, false, false, false
	c.Reset()
}

// Reset queues the 7 cycle reset sequence. Registers other than S, P and
// PC are preserved, as on hardware.
func (c *CPU) Reset() {
	c.halted = false
	c.nmiPending = false
	c.irqPoll, c.nmiPoll = false, false
	c.begin(templateReset, c.table.reset)
}

// Clock runs one CPU cycle.
func (c *CPU) Clock() {
	c.detectNMI()

	boundary := c.steps == nil
	takeNMI := boundary && c.nmiPoll
	takeIRQ := boundary && !takeNMI && c.irqPoll

	c.nmiPoll = c.nmiPending
	c.irqPoll = c.bus.IRQ() && !c.isSetFlag(interruptFlag)
	c.cycles++

	if c.halted {
		c.bus.InternalCycle()
		return
	}

	if boundary {
		switch {
		case takeNMI:
			c.nmiPending = false
			c.vector = addr.NMIVector
			c.begin(templateInterrupt, c.table.interrupt)
		case takeIRQ:
			c.vector = addr.IRQVector
			c.begin(templateInterrupt, c.table.interrupt)
		default:
			c.fetch()
			return
		}
	}

	c.execute()
}

func (c *CPU) fetch() {
	opcode := c.readPC()
	instr := &c.table.instructions[opcode]
	c.begin(uint16(opcode), instr.Steps)
}

func (c *CPU) begin(template uint16, steps []Step) {
	c.template = template
	c.steps = steps
	c.cursor = 0
	c.crossed = false
}

// execute runs steps until one of them uses the bus. Steps that do not
// apply to this execution are skipped without spending a cycle.
func (c *CPU) execute() {
	for c.cursor < len(c.steps) {
		step := c.steps[c.cursor]
		c.cursor++
		if step(c) {
			break
		}
	}
	if c.cursor >= len(c.steps) {
		c.steps = nil
		c.cursor = 0
	}
}

// finish drops the remaining steps of the in-flight instruction, so the
// cycle that called it is the instruction's last.
func (c *CPU) finish() {
	c.cursor = len(c.steps)
}

func (c *CPU) detectNMI() {
	line := c.bus.NMI()
	if line && !c.prevNMI {
		c.nmiPending = true
	}
	c.prevNMI = line
}

func (c *CPU) jam() {
	c.halted = true
	slog.Debug("CPU jammed", "pc", fmt.Sprintf("0x%04X", c.pc-1), "opcode", fmt.Sprintf("0x%02X", c.template))
}

// readPC reads the byte at PC and advances PC.
func (c *CPU) readPC() uint8 {
	v := c.bus.Read(c.pc)
	c.pc++
	return v
}

func (c *CPU) push(value uint8) {
	c.bus.Write(addr.StackBase|uint16(c.s), value)
	c.s--
}

func (c *CPU) pull() uint8 {
	c.s++
	return c.bus.Read(addr.StackBase | uint16(c.s))
}

func (c *CPU) setFlag(flag Flag) {
	c.p |= uint8(flag)
}

func (c *CPU) resetFlag(flag Flag) {
	c.p &^= uint8(flag)
}

func (c *CPU) isSetFlag(flag Flag) bool {
	return c.p&uint8(flag) != 0
}

// flagToBit will return 1 if the passed flag is set, 0 otherwise
func (c *CPU) flagToBit(flag Flag) uint8 {
	if c.isSetFlag(flag) {
		return 1
	}
	return 0
}

func (c *CPU) setFlagToCondition(flag Flag, condition bool) {
	if condition {
		c.setFlag(flag)
	} else {
		c.resetFlag(flag)
	}
}

func (c *CPU) setZN(value uint8) {
	c.setFlagToCondition(zeroFlag, value == 0)
	c.setFlagToCondition(negativeFlag, bit.IsSet(7, value))
}

// Registers is a copy of the programmer-visible registers.
type Registers struct {
	A, X, Y, S, P uint8
	PC            uint16
}

// Registers returns the current register values.
func (c *CPU) Registers() Registers {
	return Registers{A: c.a, X: c.x, Y: c.y, S: c.s, P: c.p, PC: c.pc}
}

// SetRegisters overwrites the registers. Used by tests and debuggers to
// start execution from a known state; it does not touch the cursor.
func (c *CPU) SetRegisters(r Registers) {
	c.a, c.x, c.y, c.s, c.p, c.pc = r.A, r.X, r.Y, r.S, r.P|uint8(unusedFlag), r.PC
}

// Debug getters
func (c *CPU) PC() uint16       { return c.pc }
func (c *CPU) Cycles() uint64   { return c.cycles }
func (c *CPU) Halted() bool     { return c.halted }
func (c *CPU) AtBoundary() bool { return c.steps == nil }
func (c *CPU) NMIPending() bool { return c.nmiPending }

// InFlight returns the template id and cursor of the running instruction.
// Ids 0x00-0xFF are opcodes; higher ids are the interrupt and reset sequences.
func (c *CPU) InFlight() (template uint16, cursor int) {
	return c.template, c.cursor
}

// Table returns the instruction table the CPU decodes with.
func (c *CPU) Table() *Table { return c.table }

// GetFlagString returns the status register as NV-BDIZC letters.
func (c *CPU) GetFlagString() string {
	return FlagString(c.p)
}

// FlagString formats a status byte, upper case for set flags.
func FlagString(p uint8) string {
	const set, clear = "NV-BDIZC", "nv-bdizc"
	out := make([]byte, 8)
	for i := 0; i < 8; i++ {
		if bit.IsSet(uint8(7-i), p) {
			out[i] = set[i]
		} else {
			out[i] = clear[i]
		}
	}
	return string(out)
}
