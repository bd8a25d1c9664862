package nescore

import (
	"github.com/valerio/go-nescore/nescore/bus"
	"github.com/valerio/go-nescore/nescore/cartridge"
	"github.com/valerio/go-nescore/nescore/cpu"
	"github.com/valerio/go-nescore/nescore/debug"
	"github.com/valerio/go-nescore/nescore/disasm"
)

// Console is the root struct and entry point for running the emulation. It
// is single threaded: every method must be called from the goroutine that
// drives it.
type Console struct {
	cpu  *cpu.CPU
	bus  *bus.Bus
	cart *cartridge.Cartridge
	dma  dma
}

// New creates a console around cart, powered on with the reset sequence
// queued. A nil cartridge gives a machine with open bus above $4020.
func New(cart *cartridge.Cartridge) *Console {
	b := bus.New()
	if cart != nil {
		b = bus.NewWithCartridge(cart)
	}
	b.Reset(cartridge.PowerOn)

	return &Console{
		cpu:  cpu.New(b, cpu.DefaultTable()),
		bus:  b,
		cart: cart,
	}
}

// NewWithFile creates a new console and loads the ROM file specified into it.
func NewWithFile(path string) (*Console, error) {
	cart, err := cartridge.LoadFile(path)
	if err != nil {
		return nil, err
	}
	return New(cart), nil
}

// Clock advances the machine by one CPU cycle.
func (c *Console) Clock() {
	if c.dma.active {
		c.dma.clock(c.bus)
		return
	}

	c.cpu.Clock()

	if page, ok := c.bus.PendingDMA(); ok {
		c.dma.start(page, c.bus.Cycles())
	}
}

// Step runs to the next instruction boundary and returns the cycles spent.
func (c *Console) Step() int {
	n := 0
	for {
		c.Clock()
		n++
		if c.AtBoundary() {
			return n
		}
	}
}

// AtBoundary reports whether the CPU sits between two instructions with no
// DMA transfer in progress. Snapshots can only be taken here.
func (c *Console) AtBoundary() bool {
	return c.cpu.AtBoundary() && !c.dma.active
}

// Reset presses the reset button. RAM and cartridge RAM survive.
func (c *Console) Reset() {
	c.bus.Reset(cartridge.SoftReset)
	c.cpu.Reset()
	c.dma = dma{}
}

// PowerCycle turns the console off and on again.
func (c *Console) PowerCycle() {
	c.bus.Reset(cartridge.PowerOn)
	c.cpu.PowerOn()
	c.dma = dma{}
}

// Peek reads address without side effects.
func (c *Console) Peek(address uint16) uint8 {
	return c.bus.Peek(address)
}

// Controller returns the pad plugged into port 0 or 1.
func (c *Console) Controller(port int) *bus.Controller {
	return c.bus.Controller(port)
}

func (c *Console) Cartridge() *cartridge.Cartridge { return c.cart }
func (c *Console) CPU() *cpu.CPU                   { return c.cpu }
func (c *Console) Bus() *bus.Bus                   { return c.bus }

func (c *Console) PC() uint16               { return c.cpu.PC() }
func (c *Console) Registers() cpu.Registers { return c.cpu.Registers() }
func (c *Console) Cycles() uint64           { return c.cpu.Cycles() }

var _ debug.Inspector = (*Console)(nil)

const (
	debugCodeBefore   = 8
	debugSnapshotSize = 200
)

// ExtractDebugData collects CPU and memory information for debug displays.
// It only peeks, so it never disturbs the machine.
func (c *Console) ExtractDebugData() *debug.CompleteDebugData {
	if c == nil || c.cpu == nil || c.bus == nil {
		return nil
	}

	r := c.cpu.Registers()
	start := r.PC
	if lines := disasm.DisassembleAround(r.PC, debugCodeBefore, 0, c); len(lines) > 0 {
		start = lines[0].Address
	}

	return &debug.CompleteDebugData{
		CPU: &debug.CPUState{
			A:          r.A,
			X:          r.X,
			Y:          r.Y,
			S:          r.S,
			P:          r.P,
			PC:         r.PC,
			Cycles:     c.cpu.Cycles(),
			Halted:     c.cpu.Halted(),
			NMIPending: c.cpu.NMIPending(),
		},
		Memory:     c.snapshot(start, debugSnapshotSize),
		ZeroPage:   c.snapshot(0x0000, 0x100),
		Stack:      c.snapshot(0x0100, 0x100),
		IRQSources: uint8(c.bus.IRQSources()),
		NMILine:    c.bus.NMI(),
		OpenBus:    c.bus.OpenBus().Sample(),
	}
}

// snapshot peeks size bytes from start, truncated at the top of the
// address space instead of wrapping.
func (c *Console) snapshot(start uint16, size int) *debug.MemorySnapshot {
	if int(start)+size > 0x10000 {
		size = 0x10000 - int(start)
	}
	bytes := make([]uint8, size)
	for i := range bytes {
		bytes[i] = c.bus.Peek(start + uint16(i))
	}
	return &debug.MemorySnapshot{StartAddr: start, Bytes: bytes}
}
