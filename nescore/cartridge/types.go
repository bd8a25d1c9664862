package cartridge

import "fmt"

// RomFormat identifies which revision of the header layout a ROM uses.
type RomFormat uint8

const (
	FormatINES RomFormat = iota
	FormatNES20
	FormatArchaic
)

func (f RomFormat) String() string {
	switch f {
	case FormatINES:
		return "iNES"
	case FormatNES20:
		return "NES 2.0"
	case FormatArchaic:
		return "Archaic iNES"
	}
	return fmt.Sprintf("RomFormat(%d)", uint8(f))
}

// Mirroring is the nametable arrangement seen by the PPU.
type Mirroring uint8

const (
	MirrorHorizontal Mirroring = iota
	MirrorVertical
	MirrorFourScreen
	MirrorSingleScreenLower
	MirrorSingleScreenUpper
	MirrorMapperControlled
)

func (m Mirroring) String() string {
	switch m {
	case MirrorHorizontal:
		return "Horizontal"
	case MirrorVertical:
		return "Vertical"
	case MirrorFourScreen:
		return "FourScreen"
	case MirrorSingleScreenLower:
		return "SingleScreenLower"
	case MirrorSingleScreenUpper:
		return "SingleScreenUpper"
	case MirrorMapperControlled:
		return "MapperControlled"
	}
	return fmt.Sprintf("Mirroring(%d)", uint8(m))
}

// ConsoleType comes from flags 7 bits 0-1.
type ConsoleType uint8

const (
	ConsoleNESFamicom ConsoleType = iota
	ConsoleVsSystem
	ConsolePlayChoice10
	ConsoleExtended
)

func (c ConsoleType) String() string {
	switch c {
	case ConsoleNESFamicom:
		return "NES/Famicom"
	case ConsoleVsSystem:
		return "Vs. System"
	case ConsolePlayChoice10:
		return "PlayChoice-10"
	case ConsoleExtended:
		return "Extended"
	}
	return fmt.Sprintf("ConsoleType(%d)", uint8(c))
}

// Timing is the CPU/PPU timing region of the cartridge.
type Timing uint8

const (
	TimingNTSC Timing = iota
	TimingPAL
	TimingMultiRegion
	TimingDendy
)

func (t Timing) String() string {
	switch t {
	case TimingNTSC:
		return "NTSC"
	case TimingPAL:
		return "PAL"
	case TimingMultiRegion:
		return "Multi-region"
	case TimingDendy:
		return "Dendy"
	}
	return fmt.Sprintf("Timing(%d)", uint8(t))
}

// VsPPUType is the low nibble of NES 2.0 byte 13 for Vs. System carts.
type VsPPUType uint8

var vsPPUNames = map[VsPPUType]string{
	0x0: "RP2C03/RC2C03",
	0x2: "RP2C04-0001",
	0x3: "RP2C04-0002",
	0x4: "RP2C04-0003",
	0x5: "RP2C04-0004",
	0x8: "RC2C05-01",
	0x9: "RC2C05-02",
	0xA: "RC2C05-03",
	0xB: "RC2C05-04",
}

func (v VsPPUType) String() string {
	if name, ok := vsPPUNames[v]; ok {
		return name
	}
	return fmt.Sprintf("VsPPU(%d)", uint8(v))
}

// VsHardwareType is the high nibble of NES 2.0 byte 13 for Vs. System carts.
type VsHardwareType uint8

var vsHardwareNames = map[VsHardwareType]string{
	0x0: "Vs. Unisystem",
	0x1: "Vs. Unisystem (RBI Baseball)",
	0x2: "Vs. Unisystem (TKO Boxing)",
	0x3: "Vs. Unisystem (Super Xevious)",
	0x4: "Vs. Unisystem (Vs. Ice Climber Japan)",
	0x5: "Vs. Dual System",
	0x6: "Vs. Dual System (Raid on Bungeling Bay)",
}

func (v VsHardwareType) String() string {
	if name, ok := vsHardwareNames[v]; ok {
		return name
	}
	return fmt.Sprintf("VsHardware(%d)", uint8(v))
}

// ExtendedConsoleType is the low nibble of NES 2.0 byte 13 for extended consoles.
type ExtendedConsoleType uint8

var extendedConsoleNames = [...]string{
	"Regular NES/Famicom",
	"Vs. System",
	"PlayChoice-10",
	"Famiclone with decimal mode",
	"EPSM",
	"VT01",
	"VT02",
	"VT03",
	"VT09",
	"VT32",
	"VT369",
	"UM6578",
	"Famicom Network System",
}

func (e ExtendedConsoleType) String() string {
	if int(e) < len(extendedConsoleNames) {
		return extendedConsoleNames[e]
	}
	return fmt.Sprintf("ExtendedConsole(%d)", uint8(e))
}

// ResetKind distinguishes a cold boot from the console reset button.
type ResetKind uint8

const (
	PowerOn ResetKind = iota
	SoftReset
)
