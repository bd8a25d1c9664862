package addr

// internal RAM
const (
	// RAMStart is the first byte of the 2KB work RAM.
	RAMStart uint16 = 0x0000
	// RAMMirrorEnd is the last mirrored RAM address.
	RAMMirrorEnd uint16 = 0x1FFF
	// RAMMask folds mirrored addresses onto the 2KB array.
	RAMMask uint16 = 0x07FF
	// RAMSize is the size of the internal RAM.
	RAMSize = 0x800

	// StackBase is the page used by the hardware stack.
	StackBase uint16 = 0x0100
)

// PPU register window, mirrored every 8 bytes
const (
	PPUStart      uint16 = 0x2000
	PPUEnd        uint16 = 0x3FFF
	PPUMirrorMask uint16 = 0x2007

	PPUCTRL   uint16 = 0x2000
	PPUMASK   uint16 = 0x2001
	PPUSTATUS uint16 = 0x2002
	OAMADDR   uint16 = 0x2003
	OAMDATA   uint16 = 0x2004
	PPUSCROLL uint16 = 0x2005
	PPUADDR   uint16 = 0x2006
	PPUDATA   uint16 = 0x2007
)

// APU and I/O registers
const (
	APUStart uint16 = 0x4000
	APUEnd   uint16 = 0x4013

	OAMDMA    uint16 = 0x4014
	APUStatus uint16 = 0x4015
	JOY1      uint16 = 0x4016
	JOY2      uint16 = 0x4017 // reads: controller 2, writes: frame counter

	TestModeStart uint16 = 0x4018
	TestModeEnd   uint16 = 0x401F
)

// cartridge space
const (
	CartridgeStart uint16 = 0x4020
	PRGRAMStart    uint16 = 0x6000
	PRGRAMEnd      uint16 = 0x7FFF
	TrainerStart   uint16 = 0x7000
	PRGROMStart    uint16 = 0x8000
)

// interrupt vectors
const (
	NMIVector   uint16 = 0xFFFA
	ResetVector uint16 = 0xFFFC
	IRQVector   uint16 = 0xFFFE
)
