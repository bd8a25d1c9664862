package cartridge

import (
	"github.com/valerio/go-nescore/nescore/addr"
	"github.com/valerio/go-nescore/nescore/bit"
	"github.com/valerio/go-nescore/nescore/state"
)

const prgBank32K = 0x8000

// AxROM (mapper 7) switches all of PRG at once and controls mirroring:
// - Switchable 32KB PRG bank at $8000-$FFFF (bits 0-2 of the written value)
// - Single-screen mirroring, nametable selected by bit 4
// - 8KB CHR RAM
type AxROM struct {
	board
	bank uint8
}

// NewAxROM creates a mapper 7 board.
func NewAxROM(h Header, rom ROM) (Mapper, error) {
	m := &AxROM{board: newBoard(h, rom)}
	m.mirroring = MirrorSingleScreenLower
	return m, nil
}

func (m *AxROM) Name() string { return "AxROM" }

func (m *AxROM) CPURead(address uint16) (uint8, bool) {
	return m.CPUPeek(address)
}

func (m *AxROM) CPUPeek(address uint16) (uint8, bool) {
	if address < addr.PRGROMStart {
		return 0, false
	}
	return m.readPRG(int(m.bank&0x07), prgBank32K, address-addr.PRGROMStart), true
}

func (m *AxROM) CPUWrite(address uint16, value uint8) {
	if address < addr.PRGROMStart {
		return
	}
	m.bank = value & 0x07
	if bit.IsSet(4, value) {
		m.mirroring = MirrorSingleScreenUpper
	} else {
		m.mirroring = MirrorSingleScreenLower
	}
}

func (m *AxROM) PPURead(address uint16) uint8 {
	return m.chr[m.chrIndex(0, address)]
}

func (m *AxROM) PPUWrite(address uint16, value uint8) {
	if m.chrIsRAM {
		m.chr[m.chrIndex(0, address)] = value
	}
}

func (m *AxROM) Reset(kind ResetKind) {
	if kind == PowerOn {
		m.bank = 0
		m.mirroring = MirrorSingleScreenLower
	}
}

func (m *AxROM) Clone() Mapper {
	return &AxROM{board: m.board.clone(), bank: m.bank}
}

func (m *AxROM) SaveState(e *state.Encoder) {
	e.Uint8(m.bank)
	e.Uint8(uint8(m.mirroring))
	m.saveRAM(e)
}

func (m *AxROM) LoadState(d *state.Decoder) error {
	m.bank = d.Uint8()
	m.mirroring = Mirroring(d.Uint8())
	m.loadRAM(d)
	return d.Err()
}
