package cartridge

import (
	"github.com/valerio/go-nescore/nescore/addr"
	"github.com/valerio/go-nescore/nescore/state"
)

// NROM (mapper 0) has no banking hardware at all:
// - 16KB or 32KB PRG ROM at $8000-$FFFF, a 16KB image is mirrored at $C000
// - 8KB CHR ROM, or 8KB CHR RAM when the header declares no CHR ROM
// - Optional PRG RAM at $6000-$7FFF (Family Basic)
// - Mirroring hardwired by solder pads, taken from the header
type NROM struct {
	board
}

// NewNROM creates a mapper 0 board.
func NewNROM(h Header, rom ROM) (Mapper, error) {
	return &NROM{board: newBoard(h, rom)}, nil
}

func (m *NROM) Name() string { return "NROM" }

func (m *NROM) CPURead(address uint16) (uint8, bool) {
	return m.CPUPeek(address)
}

func (m *NROM) CPUPeek(address uint16) (uint8, bool) {
	switch {
	case address >= addr.PRGROMStart:
		return m.readPRG(0, len(m.prg), address-addr.PRGROMStart), true
	case address >= addr.PRGRAMStart:
		return m.readPRGRAM(address)
	default:
		return 0, false
	}
}

func (m *NROM) CPUWrite(address uint16, value uint8) {
	if address >= addr.PRGRAMStart && address <= addr.PRGRAMEnd {
		m.writePRGRAM(address, value)
	}
}

func (m *NROM) PPURead(address uint16) uint8 {
	return m.chr[m.chrIndex(0, address)]
}

func (m *NROM) PPUWrite(address uint16, value uint8) {
	if m.chrIsRAM {
		m.chr[m.chrIndex(0, address)] = value
	}
}

func (m *NROM) Reset(kind ResetKind) {}

func (m *NROM) Clone() Mapper {
	return &NROM{board: m.board.clone()}
}

func (m *NROM) SaveState(e *state.Encoder) {
	m.saveRAM(e)
}

func (m *NROM) LoadState(d *state.Decoder) error {
	m.loadRAM(d)
	return d.Err()
}
