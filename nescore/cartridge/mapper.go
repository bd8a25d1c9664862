package cartridge

import (
	"github.com/valerio/go-nescore/nescore/addr"
	"github.com/valerio/go-nescore/nescore/state"
)

// Mapper is the cartridge-side banking logic. It sees every CPU access in
// the cartridge window ($4020-$FFFF) and every PPU pattern table access.
type Mapper interface {
	// CPURead returns the byte at address and whether the cartridge drove
	// the bus. Undriven reads resolve to open bus.
	CPURead(address uint16) (uint8, bool)
	// CPUPeek is CPURead without side effects.
	CPUPeek(address uint16) (uint8, bool)
	CPUWrite(address uint16, value uint8)

	PPURead(address uint16) uint8
	PPUWrite(address uint16, value uint8)

	Mirroring() Mirroring
	IRQPending() bool

	ID() uint16
	Name() string

	Reset(kind ResetKind)
	// Clone returns an independent copy sharing only immutable ROM.
	Clone() Mapper

	// SaveState encodes the mutable mapper state (registers and RAM).
	SaveState(e *state.Encoder)
	// LoadState restores state written by SaveState.
	LoadState(d *state.Decoder) error
}

// ROM holds the raw sections that follow the header.
type ROM struct {
	PRG     []byte
	CHR     []byte
	Trainer []byte
}

// board holds what every discrete-logic board has in common: PRG ROM, CHR
// ROM or RAM, optional PRG RAM at $6000 and fixed header mirroring.
type board struct {
	header    Header
	prg       []byte
	chr       []byte
	chrIsRAM  bool
	prgRAM    []byte
	mirroring Mirroring
}

func newBoard(h Header, rom ROM) board {
	b := board{
		header:    h,
		prg:       rom.PRG,
		mirroring: h.Mirroring,
	}

	if len(rom.CHR) > 0 {
		b.chr = rom.CHR
	} else {
		size := h.CHRRAMTotal()
		if size == 0 {
			size = chrUnit
		}
		b.chr = make([]byte, size)
		b.chrIsRAM = true
	}

	if size := h.PRGRAMTotal(); size > 0 || len(rom.Trainer) > 0 {
		if size < chrUnit {
			size = chrUnit
		}
		b.prgRAM = make([]byte, size)
	}
	if len(rom.Trainer) > 0 {
		copy(b.prgRAM[addr.TrainerStart-addr.PRGRAMStart:], rom.Trainer)
	}

	return b
}

func (b *board) clone() board {
	c := *b
	if b.chrIsRAM {
		c.chr = append([]byte(nil), b.chr...)
	}
	if b.prgRAM != nil {
		c.prgRAM = append([]byte(nil), b.prgRAM...)
	}
	return c
}

func (b *board) readPRGRAM(address uint16) (uint8, bool) {
	if len(b.prgRAM) == 0 {
		return 0, false
	}
	return b.prgRAM[int(address-addr.PRGRAMStart)%len(b.prgRAM)], true
}

func (b *board) writePRGRAM(address uint16, value uint8) {
	if len(b.prgRAM) == 0 {
		return
	}
	b.prgRAM[int(address-addr.PRGRAMStart)%len(b.prgRAM)] = value
}

// readPRG reads through a bank of bankSize bytes at offset into PRG ROM.
func (b *board) readPRG(bank int, bankSize int, offset uint16) uint8 {
	if len(b.prg) == 0 {
		return 0
	}
	banks := len(b.prg) / bankSize
	if banks == 0 {
		banks = 1
	}
	index := (bank%banks)*bankSize + int(offset)
	return b.prg[index%len(b.prg)]
}

func (b *board) chrIndex(bank int, address uint16) int {
	const bankSize = chrUnit
	banks := len(b.chr) / bankSize
	if banks == 0 {
		banks = 1
	}
	return ((bank%banks)*bankSize + int(address&0x1FFF)) % len(b.chr)
}

func (b *board) Mirroring() Mirroring { return b.mirroring }
func (b *board) IRQPending() bool     { return false }
func (b *board) ID() uint16           { return b.header.Mapper }

func (b *board) saveRAM(e *state.Encoder) {
	e.Blob(b.prgRAM)
	if b.chrIsRAM {
		e.Blob(b.chr)
	} else {
		e.Blob(nil)
	}
}

func (b *board) loadRAM(d *state.Decoder) {
	if len(b.prgRAM) > 0 {
		d.BlobInto(b.prgRAM)
	} else {
		d.BlobInto(nil)
	}
	if b.chrIsRAM {
		d.BlobInto(b.chr)
	} else {
		d.BlobInto(nil)
	}
}
