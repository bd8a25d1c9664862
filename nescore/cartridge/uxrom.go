package cartridge

import (
	"github.com/valerio/go-nescore/nescore/addr"
	"github.com/valerio/go-nescore/nescore/state"
)

const prgBank16K = 0x4000

// UxROM (mapper 2) switches the lower PRG window:
// - Switchable 16KB PRG bank at $8000-$BFFF, selected by any write to $8000-$FFFF
// - Last 16KB PRG bank fixed at $C000-$FFFF
// - 8KB CHR RAM, no CHR banking
type UxROM struct {
	board
	bank uint8
}

// NewUxROM creates a mapper 2 board.
func NewUxROM(h Header, rom ROM) (Mapper, error) {
	return &UxROM{board: newBoard(h, rom)}, nil
}

func (m *UxROM) Name() string { return "UxROM" }

func (m *UxROM) lastBank() int {
	if len(m.prg) < prgBank16K {
		return 0
	}
	return len(m.prg)/prgBank16K - 1
}

func (m *UxROM) CPURead(address uint16) (uint8, bool) {
	return m.CPUPeek(address)
}

func (m *UxROM) CPUPeek(address uint16) (uint8, bool) {
	switch {
	case address >= 0xC000:
		return m.readPRG(m.lastBank(), prgBank16K, address-0xC000), true
	case address >= addr.PRGROMStart:
		return m.readPRG(int(m.bank), prgBank16K, address-addr.PRGROMStart), true
	case address >= addr.PRGRAMStart:
		return m.readPRGRAM(address)
	default:
		return 0, false
	}
}

func (m *UxROM) CPUWrite(address uint16, value uint8) {
	switch {
	case address >= addr.PRGROMStart:
		m.bank = value
	case address >= addr.PRGRAMStart:
		m.writePRGRAM(address, value)
	}
}

func (m *UxROM) PPURead(address uint16) uint8 {
	return m.chr[m.chrIndex(0, address)]
}

func (m *UxROM) PPUWrite(address uint16, value uint8) {
	if m.chrIsRAM {
		m.chr[m.chrIndex(0, address)] = value
	}
}

// Reset clears the bank latch on power-on only; the board has no reset line.
func (m *UxROM) Reset(kind ResetKind) {
	if kind == PowerOn {
		m.bank = 0
	}
}

func (m *UxROM) Clone() Mapper {
	return &UxROM{board: m.board.clone(), bank: m.bank}
}

func (m *UxROM) SaveState(e *state.Encoder) {
	e.Uint8(m.bank)
	m.saveRAM(e)
}

func (m *UxROM) LoadState(d *state.Decoder) error {
	m.bank = d.Uint8()
	m.loadRAM(d)
	return d.Err()
}
