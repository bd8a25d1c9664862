package cartridge

import (
	"fmt"
	"math/bits"

	"github.com/valerio/go-nescore/nescore/bit"
)

const (
	HeaderSize  = 16
	TrainerSize = 512

	prgUnit = 16 * 1024
	chrUnit = 8 * 1024

	// largest ROM section we accept from an exponent size field
	maxSectionSize = 1 << 30
)

var magic = [4]byte{'N', 'E', 'S', 0x1A}

const (
	flags6Vertical   = 0
	flags6Battery    = 1
	flags6Trainer    = 2
	flags6FourScreen = 3
)

// Header is the decoded 16 byte iNES / NES 2.0 header.
type Header struct {
	Format    RomFormat
	Console   ConsoleType
	Mapper    uint16
	Submapper uint8
	Mirroring Mirroring
	Battery   bool
	Trainer   bool
	Timing    Timing

	PRGROMSize   int
	CHRROMSize   int
	PRGRAMSize   int
	PRGNVRAMSize int
	CHRRAMSize   int
	CHRNVRAMSize int

	// NES 2.0 only
	VsPPU           VsPPUType
	VsHardware      VsHardwareType
	ExtendedConsole ExtendedConsoleType
	MiscROMs        uint8
	ExpansionDevice uint8

	// iNES only: bytes 11-15, kept verbatim
	Padding [5]byte
}

// ParseHeader decodes the first 16 bytes of b. Archaic headers are returned
// without error, callers decide whether to accept them with Supported.
func ParseHeader(b []byte) (Header, error) {
	var h Header
	if len(b) < HeaderSize {
		return h, ErrHeaderTooShort
	}
	if [4]byte(b[0:4]) != magic {
		return h, ErrBadMagic
	}

	flags6, flags7 := b[6], b[7]

	switch bit.ExtractBits(flags7, 3, 2) {
	case 0b10:
		h.Format = FormatNES20
	case 0b00:
		h.Format = FormatINES
	default:
		h.Format = FormatArchaic
	}

	h.Battery = bit.IsSet(flags6Battery, flags6)
	h.Trainer = bit.IsSet(flags6Trainer, flags6)
	switch {
	case bit.IsSet(flags6FourScreen, flags6):
		h.Mirroring = MirrorFourScreen
	case bit.IsSet(flags6Vertical, flags6):
		h.Mirroring = MirrorVertical
	default:
		h.Mirroring = MirrorHorizontal
	}

	h.Mapper = uint16(flags6 >> 4)
	if h.Format != FormatArchaic {
		h.Mapper |= uint16(flags7 & 0xF0)
		h.Console = ConsoleType(flags7 & 0x03)
	}

	var err error
	if h.Format == FormatNES20 {
		err = h.parseNES20(b)
	} else {
		h.parseINES(b)
	}
	if err != nil {
		return Header{}, err
	}

	return h, nil
}

func (h *Header) parseINES(b []byte) {
	h.PRGROMSize = int(b[4]) * prgUnit
	h.CHRROMSize = int(b[5]) * chrUnit

	ramUnits := int(b[8])
	if ramUnits == 0 {
		ramUnits = 1
	}
	if h.Battery {
		h.PRGNVRAMSize = ramUnits * chrUnit
	} else {
		h.PRGRAMSize = ramUnits * chrUnit
	}
	if h.CHRROMSize == 0 {
		h.CHRRAMSize = chrUnit
	}

	switch {
	case bit.IsSet(0, b[9]):
		h.Timing = TimingPAL
	case b[10]&0x03 == 0x02:
		h.Timing = TimingPAL
	case b[10]&0x01 == 0x01:
		h.Timing = TimingMultiRegion
	default:
		h.Timing = TimingNTSC
	}

	copy(h.Padding[:], b[11:16])
}

func (h *Header) parseNES20(b []byte) error {
	h.Mapper |= uint16(b[8]&0x0F) << 8
	h.Submapper = b[8] >> 4

	prg, ok := nes20ROMSize(b[4], b[9]&0x0F, prgUnit)
	if !ok {
		return &SizeError{Field: "PRG ROM", Value: prg}
	}
	chr, ok := nes20ROMSize(b[5], b[9]>>4, chrUnit)
	if !ok {
		return &SizeError{Field: "CHR ROM", Value: chr}
	}
	h.PRGROMSize = int(prg)
	h.CHRROMSize = int(chr)

	h.PRGRAMSize = nes20RAMSize(b[10] & 0x0F)
	h.PRGNVRAMSize = nes20RAMSize(b[10] >> 4)
	h.CHRRAMSize = nes20RAMSize(b[11] & 0x0F)
	h.CHRNVRAMSize = nes20RAMSize(b[11] >> 4)

	h.Timing = Timing(b[12] & 0x03)

	switch h.Console {
	case ConsoleVsSystem:
		h.VsPPU = VsPPUType(b[13] & 0x0F)
		h.VsHardware = VsHardwareType(b[13] >> 4)
	case ConsoleExtended:
		h.ExtendedConsole = ExtendedConsoleType(b[13] & 0x0F)
	}

	h.MiscROMs = b[14] & 0x03
	h.ExpansionDevice = b[15] & 0x3F
	return nil
}

// nes20ROMSize decodes a NES 2.0 ROM size from its LSB byte and MSB nibble.
// An MSB nibble of 0xF switches to the exponent-multiplier notation. The
// second result is false when the decoded size is larger than we accept.
func nes20ROMSize(lsb, msb uint8, unit uint64) (uint64, bool) {
	if msb != 0x0F {
		return (uint64(msb)<<8 | uint64(lsb)) * unit, true
	}

	exponent := uint(lsb >> 2)
	multiplier := uint64(lsb&0x03)*2 + 1
	hi, size := bits.Mul64(uint64(1)<<exponent, multiplier)
	if hi != 0 || size > maxSectionSize {
		return size, false
	}
	return size, true
}

// nes20RAMSize decodes a RAM shift count: 0 means none, otherwise 64 << n.
func nes20RAMSize(shift uint8) int {
	if shift == 0 {
		return 0
	}
	return 64 << shift
}

// Supported reports whether the header layout is one the loader trusts.
func (h Header) Supported() error {
	if h.Format == FormatArchaic {
		return fmt.Errorf("%w: %s", ErrUnsupportedVersion, h.Format)
	}
	return nil
}

// PRGRAMTotal is the combined volatile and battery backed PRG RAM size.
func (h Header) PRGRAMTotal() int {
	return h.PRGRAMSize + h.PRGNVRAMSize
}

// CHRRAMTotal is the combined volatile and battery backed CHR RAM size.
func (h Header) CHRRAMTotal() int {
	return h.CHRRAMSize + h.CHRNVRAMSize
}

func (h Header) String() string {
	return fmt.Sprintf("%s mapper=%d.%d console=%s timing=%s mirroring=%s prg=%dKiB chr=%dKiB battery=%v trainer=%v",
		h.Format, h.Mapper, h.Submapper, h.Console, h.Timing, h.Mirroring,
		h.PRGROMSize/1024, h.CHRROMSize/1024, h.Battery, h.Trainer)
}
