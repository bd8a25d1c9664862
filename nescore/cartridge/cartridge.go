package cartridge

import (
	"crypto/sha256"
	"fmt"
	"log/slog"
	"os"
)

// Cartridge is a parsed ROM image with its constructed mapper.
type Cartridge struct {
	Header Header
	Mapper Mapper
	// Hash is the SHA-256 of the PRG and CHR payload, excluding the header.
	Hash [32]byte
}

// LoadOptions controls how strictly a ROM image is accepted.
type LoadOptions struct {
	// AllowArchaic accepts pre-NES 2.0 headers with garbage in bytes 7-15.
	AllowArchaic bool
	// Registry resolves mapper numbers, DefaultRegistry when nil.
	Registry *Registry
}

// LoadFile reads and loads the ROM image at path with default options.
func LoadFile(path string) (*Cartridge, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	slog.Info("Loaded ROM file", "path", path, "bytes", len(data))
	return Load(data, LoadOptions{})
}

// Load parses a complete iNES / NES 2.0 image and constructs its mapper.
func Load(data []byte, opts LoadOptions) (*Cartridge, error) {
	h, err := ParseHeader(data)
	if err != nil {
		return nil, err
	}
	if !opts.AllowArchaic {
		if err := h.Supported(); err != nil {
			return nil, err
		}
	}

	rom, err := splitSections(h, data[HeaderSize:])
	if err != nil {
		return nil, err
	}

	registry := opts.Registry
	if registry == nil {
		registry = DefaultRegistry()
	}
	mapper, err := registry.New(h, rom)
	if err != nil {
		return nil, err
	}

	hasher := sha256.New()
	hasher.Write(rom.PRG)
	hasher.Write(rom.CHR)

	cart := &Cartridge{Header: h, Mapper: mapper}
	copy(cart.Hash[:], hasher.Sum(nil))

	slog.Info("Cartridge loaded",
		"format", h.Format.String(),
		"mapper", h.Mapper,
		"board", mapper.Name(),
		"prg", h.PRGROMSize,
		"chr", h.CHRROMSize,
		"mirroring", h.Mirroring.String())

	return cart, nil
}

func splitSections(h Header, body []byte) (ROM, error) {
	var rom ROM
	need := h.PRGROMSize + h.CHRROMSize
	if h.Trainer {
		need += TrainerSize
	}
	if len(body) < need {
		return rom, fmt.Errorf("%w: have %d bytes, need %d", ErrSectionTooShort, len(body), need)
	}

	offset := 0
	if h.Trainer {
		rom.Trainer = body[:TrainerSize]
		offset = TrainerSize
	}
	rom.PRG = body[offset : offset+h.PRGROMSize]
	offset += h.PRGROMSize
	rom.CHR = body[offset : offset+h.CHRROMSize]

	return rom, nil
}
