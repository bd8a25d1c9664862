package bus

import (
	"fmt"
	"log/slog"

	"github.com/valerio/go-nescore/nescore/addr"
	"github.com/valerio/go-nescore/nescore/cartridge"
)

type memRegion uint8

const (
	regionRAM memRegion = iota
	regionPPU
	regionIO
	regionCartridge
)

// Device is a peripheral register window (PPU at $2000-$2007, APU at
// $4000-$4017). Reads report whether the device drove the bus; an undriven
// read falls back to open bus.
type Device interface {
	ReadRegister(address uint16) (uint8, bool)
	// PeekRegister must not change any device state.
	PeekRegister(address uint16) (uint8, bool)
	WriteRegister(address uint16, value uint8)
}

// IRQSource is one of the wired-OR inputs of the CPU /IRQ line.
type IRQSource uint8

const (
	IRQExternal IRQSource = 1 << iota
	IRQFrameCounter
	IRQDMC
	IRQMapper
)

// Bus is the CPU address space. Every Read, Write and InternalCycle is one
// CPU cycle; Peek is free and never mutates anything.
type Bus struct {
	ram       [addr.RAMSize]uint8
	regionMap [256]memRegion
	openBus   OpenBus
	cycles    uint64

	cart    *cartridge.Cartridge
	ppu     Device
	apu     Device
	joypads [2]*Controller

	irq IRQSource
	nmi bool

	dmaPending bool
	dmaPage    uint8
}

// New creates a bus with no cartridge and no peripherals attached.
func New() *Bus {
	b := &Bus{
		joypads: [2]*Controller{NewController(), NewController()},
	}
	initRegionMap(b)
	return b
}

// NewWithCartridge creates a bus with cart inserted.
func NewWithCartridge(cart *cartridge.Cartridge) *Bus {
	b := New()
	b.cart = cart
	return b
}

func initRegionMap(b *Bus) {
	// RAM and mirrors: 0x0000-0x1FFF
	for i := 0x00; i <= 0x1F; i++ {
		b.regionMap[i] = regionRAM
	}
	// PPU registers and mirrors: 0x2000-0x3FFF
	for i := 0x20; i <= 0x3F; i++ {
		b.regionMap[i] = regionPPU
	}
	// APU, I/O and test mode: 0x4000-0x401F, the rest of the page is cartridge
	b.regionMap[0x40] = regionIO
	// Cartridge: 0x4100-0xFFFF
	for i := 0x41; i <= 0xFF; i++ {
		b.regionMap[i] = regionCartridge
	}
}

// AttachPPU connects the PPU register window.
func (b *Bus) AttachPPU(d Device) { b.ppu = d }

// AttachAPU connects the APU register window.
func (b *Bus) AttachAPU(d Device) { b.apu = d }

// Cartridge returns the inserted cartridge, nil when there is none.
func (b *Bus) Cartridge() *cartridge.Cartridge { return b.cart }

// Controller returns the pad in port 0 or 1.
func (b *Bus) Controller(port int) *Controller {
	return b.joypads[port&1]
}

// OpenBus exposes the latches for inspection.
func (b *Bus) OpenBus() OpenBus { return b.openBus }

// Cycles is the number of CPU cycles run through the bus.
func (b *Bus) Cycles() uint64 { return b.cycles }

// RAM returns a copy of the 2KB internal RAM.
func (b *Bus) RAM() [addr.RAMSize]uint8 { return b.ram }

// Read performs a CPU read cycle.
func (b *Bus) Read(address uint16) uint8 {
	b.cycles++

	switch b.regionMap[address>>8] {
	case regionRAM:
		v := b.ram[address&addr.RAMMask]
		b.openBus.drive(v)
		return v
	case regionPPU:
		if b.ppu != nil {
			if v, ok := b.ppu.ReadRegister(address&addr.PPUMirrorMask); ok {
				b.openBus.drive(v)
				return v
			}
		}
	case regionIO:
		if address <= addr.TestModeEnd {
			return b.readIO(address)
		}
		return b.readCartridge(address)
	case regionCartridge:
		return b.readCartridge(address)
	}

	return b.floating()
}

func (b *Bus) readIO(address uint16) uint8 {
	switch address {
	case addr.APUStatus:
		// $4015 is inside the 2A03: bit 5 is never driven and the value does
		// not reach the external bus.
		var status uint8
		if b.apu != nil {
			status, _ = b.apu.ReadRegister(address)
		}
		v := status&^0x20 | b.openBus.Internal&0x20
		b.openBus.Set(v, true)
		return v
	case addr.JOY1, addr.JOY2:
		pad := b.joypads[address-addr.JOY1]
		v := b.openBus.External&0xE0 | pad.Read()&0x1F
		b.openBus.drive(v)
		return v
	}

	return b.floating()
}

func (b *Bus) readCartridge(address uint16) uint8 {
	if b.cart != nil {
		if v, ok := b.cart.Mapper.CPURead(address); ok {
			b.openBus.drive(v)
			return v
		}
	}
	return b.floating()
}

// floating resolves an undriven read. The last driven byte is re-latched so
// both latches agree on what the CPU received.
func (b *Bus) floating() uint8 {
	v := b.openBus.Sample()
	b.openBus.drive(v)
	return v
}

// Peek returns what Read would return without running a cycle, touching the
// latches or triggering register side effects.
func (b *Bus) Peek(address uint16) uint8 {
	switch b.regionMap[address>>8] {
	case regionRAM:
		return b.ram[address&addr.RAMMask]
	case regionPPU:
		if b.ppu != nil {
			if v, ok := b.ppu.PeekRegister(address&addr.PPUMirrorMask); ok {
				return v
			}
		}
	case regionIO:
		if address > addr.TestModeEnd {
			return b.peekCartridge(address)
		}
		switch address {
		case addr.APUStatus:
			var status uint8
			if b.apu != nil {
				status, _ = b.apu.PeekRegister(address)
			}
			return status&^0x20 | b.openBus.Internal&0x20
		case addr.JOY1, addr.JOY2:
			return b.openBus.External&0xE0 | b.joypads[address-addr.JOY1].Peek()&0x1F
		}
	case regionCartridge:
		return b.peekCartridge(address)
	}

	return b.openBus.Sample()
}

func (b *Bus) peekCartridge(address uint16) uint8 {
	if b.cart != nil {
		if v, ok := b.cart.Mapper.CPUPeek(address); ok {
			return v
		}
	}
	return b.openBus.Sample()
}

// Write performs a CPU write cycle. The CPU drives the data lines, so both
// latches take the written value whether or not anything listens.
func (b *Bus) Write(address uint16, value uint8) {
	b.cycles++
	b.openBus.drive(value)

	switch b.regionMap[address>>8] {
	case regionRAM:
		b.ram[address&addr.RAMMask] = value
	case regionPPU:
		if b.ppu != nil {
			b.ppu.WriteRegister(address&addr.PPUMirrorMask, value)
		}
	case regionIO:
		if address > addr.TestModeEnd {
			b.writeCartridge(address, value)
			return
		}
		b.writeIO(address, value)
	case regionCartridge:
		b.writeCartridge(address, value)
	}
}

func (b *Bus) writeIO(address uint16, value uint8) {
	switch {
	case address == addr.OAMDMA:
		b.dmaPending = true
		b.dmaPage = value
	case address == addr.JOY1:
		b.joypads[0].Write(value)
		b.joypads[1].Write(value)
	case address <= addr.APUEnd, address == addr.APUStatus, address == addr.JOY2:
		// $4017 is the APU frame counter on write
		if b.apu != nil {
			b.apu.WriteRegister(address, value)
		}
	default:
		slog.Debug("Write to test mode register", "addr", fmt.Sprintf("0x%04X", address), "value", fmt.Sprintf("0x%02X", value))
	}
}

func (b *Bus) writeCartridge(address uint16, value uint8) {
	if b.cart != nil {
		b.cart.Mapper.CPUWrite(address, value)
	}
}

// InternalCycle spends one CPU cycle without a memory transaction.
func (b *Bus) InternalCycle() {
	b.cycles++
}

// SetNMI drives the /NMI line. The CPU detects the edge.
func (b *Bus) SetNMI(level bool) { b.nmi = level }

// NMI reports the current /NMI line level (true means asserted).
func (b *Bus) NMI() bool { return b.nmi }

// SetIRQ asserts one IRQ source.
func (b *Bus) SetIRQ(source IRQSource) { b.irq |= source }

// ClearIRQ releases one IRQ source.
func (b *Bus) ClearIRQ(source IRQSource) { b.irq &^= source }

// IRQ reports whether any source holds the /IRQ line.
func (b *Bus) IRQ() bool {
	if b.irq != 0 {
		return true
	}
	return b.cart != nil && b.cart.Mapper.IRQPending()
}

// IRQSources returns the asserted sources, including the mapper.
func (b *Bus) IRQSources() IRQSource {
	s := b.irq
	if b.cart != nil && b.cart.Mapper.IRQPending() {
		s |= IRQMapper
	}
	return s
}

// PendingDMA returns and clears a queued OAM DMA page.
func (b *Bus) PendingDMA() (uint8, bool) {
	if !b.dmaPending {
		return 0, false
	}
	b.dmaPending = false
	return b.dmaPage, true
}

// Reset handles power-on and the reset button. RAM survives a soft reset.
func (b *Bus) Reset(kind cartridge.ResetKind) {
	if kind == cartridge.PowerOn {
		b.ram = [addr.RAMSize]uint8{}
		b.openBus = OpenBus{}
		b.cycles = 0
	}
	b.irq = 0
	b.nmi = false
	b.dmaPending = false
	b.dmaPage = 0
	for _, pad := range b.joypads {
		pad.reset()
	}
	if b.cart != nil {
		b.cart.Mapper.Reset(kind)
	}
}
