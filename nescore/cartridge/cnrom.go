package cartridge

import (
	"github.com/valerio/go-nescore/nescore/addr"
	"github.com/valerio/go-nescore/nescore/state"
)

// CNROM (mapper 3) keeps NROM's PRG layout and banks CHR:
// - 16KB or 32KB PRG ROM at $8000-$FFFF
// - Switchable 8KB CHR ROM bank, selected by any write to $8000-$FFFF
type CNROM struct {
	board
	chrBank uint8
}

// NewCNROM creates a mapper 3 board.
func NewCNROM(h Header, rom ROM) (Mapper, error) {
	return &CNROM{board: newBoard(h, rom)}, nil
}

func (m *CNROM) Name() string { return "CNROM" }

func (m *CNROM) CPURead(address uint16) (uint8, bool) {
	return m.CPUPeek(address)
}

func (m *CNROM) CPUPeek(address uint16) (uint8, bool) {
	switch {
	case address >= addr.PRGROMStart:
		return m.readPRG(0, len(m.prg), address-addr.PRGROMStart), true
	case address >= addr.PRGRAMStart:
		return m.readPRGRAM(address)
	default:
		return 0, false
	}
}

func (m *CNROM) CPUWrite(address uint16, value uint8) {
	switch {
	case address >= addr.PRGROMStart:
		m.chrBank = value
	case address >= addr.PRGRAMStart:
		m.writePRGRAM(address, value)
	}
}

func (m *CNROM) PPURead(address uint16) uint8 {
	return m.chr[m.chrIndex(int(m.chrBank), address)]
}

func (m *CNROM) PPUWrite(address uint16, value uint8) {
	if m.chrIsRAM {
		m.chr[m.chrIndex(int(m.chrBank), address)] = value
	}
}

func (m *CNROM) Reset(kind ResetKind) {
	if kind == PowerOn {
		m.chrBank = 0
	}
}

func (m *CNROM) Clone() Mapper {
	return &CNROM{board: m.board.clone(), chrBank: m.chrBank}
}

func (m *CNROM) SaveState(e *state.Encoder) {
	e.Uint8(m.chrBank)
	m.saveRAM(e)
}

func (m *CNROM) LoadState(d *state.Decoder) error {
	m.chrBank = d.Uint8()
	m.loadRAM(d)
	return d.Err()
}
