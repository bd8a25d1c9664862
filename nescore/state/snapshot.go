package state

import (
	"errors"
	"fmt"
)

// FormatVersion is the layout version written by this build for every
// subsystem. Bump it whenever any encoded field changes.
const FormatVersion uint32 = 1

var (
	ErrVersionMismatch = errors.New("state: format version mismatch")
	ErrCorrupt         = errors.New("state: corrupt state data")
	ErrNoCartridge     = errors.New("state: no cartridge loaded")
	ErrMidInstruction  = errors.New("state: save requested mid-instruction")
	ErrRomMismatch     = errors.New("state: snapshot belongs to a different ROM")
	ErrMapperMismatch  = errors.New("state: snapshot belongs to a different mapper")
	ErrIncomplete      = errors.New("state: fragment set incomplete")
)

// Meta is attached to every snapshot so incompatible data can be rejected
// instead of silently applied.
type Meta struct {
	FormatVersion uint32
	// Tick is the CPU cycle count (or frame, for callers that prefer it) at capture.
	Tick uint64

	HasRomHash bool
	RomHash    [32]byte

	HasMapper bool
	MapperID  uint16
	Submapper uint8
}

// DefaultMeta returns metadata stamped with the current FormatVersion.
func DefaultMeta() Meta {
	return Meta{FormatVersion: FormatVersion}
}

// WithRom records the ROM identity the snapshot belongs to.
func (m Meta) WithRom(hash [32]byte, mapper uint16, submapper uint8) Meta {
	m.HasRomHash = true
	m.RomHash = hash
	m.HasMapper = true
	m.MapperID = mapper
	m.Submapper = submapper
	return m
}

// CheckVersion fails with ErrVersionMismatch when m was written by a
// different layout version.
func (m Meta) CheckVersion() error {
	if m.FormatVersion != FormatVersion {
		return fmt.Errorf("%w: got %d, want %d", ErrVersionMismatch, m.FormatVersion, FormatVersion)
	}
	return nil
}

// CheckRom verifies the snapshot was taken with the same cartridge. Fields
// that were not recorded are not compared.
func (m Meta) CheckRom(hash [32]byte, mapper uint16, submapper uint8) error {
	if m.HasRomHash && m.RomHash != hash {
		return ErrRomMismatch
	}
	if m.HasMapper && (m.MapperID != mapper || m.Submapper != submapper) {
		return fmt.Errorf("%w: snapshot %d.%d, cartridge %d.%d",
			ErrMapperMismatch, m.MapperID, m.Submapper, mapper, submapper)
	}
	return nil
}

// Snapshot pairs metadata with one subsystem's state at an instruction boundary.
type Snapshot[T any] struct {
	Meta Meta
	Data T
}

// SaveState is implemented by every stateful subsystem.
type SaveState[T any] interface {
	Save(meta Meta) (Snapshot[T], error)
	Load(snapshot *Snapshot[T]) error
}

// EncodeMeta appends m to e.
func EncodeMeta(e *Encoder, m Meta) {
	e.Uint32(m.FormatVersion)
	e.Uint64(m.Tick)
	e.Bool(m.HasRomHash)
	e.Blob(m.RomHash[:])
	e.Bool(m.HasMapper)
	e.Uint16(m.MapperID)
	e.Uint8(m.Submapper)
}

// DecodeMeta reads a Meta written by EncodeMeta.
func DecodeMeta(d *Decoder) Meta {
	var m Meta
	m.FormatVersion = d.Uint32()
	m.Tick = d.Uint64()
	m.HasRomHash = d.Bool()
	d.BlobInto(m.RomHash[:])
	m.HasMapper = d.Bool()
	m.MapperID = d.Uint16()
	m.Submapper = d.Uint8()
	return m
}
