package cartridge

import (
	"errors"
	"fmt"
)

var (
	ErrHeaderTooShort     = errors.New("cartridge: header shorter than 16 bytes")
	ErrBadMagic           = errors.New("cartridge: missing NES<EOF> signature")
	ErrUnsupportedVersion = errors.New("cartridge: unsupported header version")
	ErrSectionTooShort    = errors.New("cartridge: file shorter than declared sections")
	ErrUnsupportedMapper  = errors.New("cartridge: unsupported mapper")
	ErrBadState           = errors.New("cartridge: malformed mapper state")
)

// SizeError reports a size field that cannot be represented.
type SizeError struct {
	Field string
	Value uint64
}

func (e *SizeError) Error() string {
	return fmt.Sprintf("cartridge: %s size out of range (%d)", e.Field, e.Value)
}

// UnsupportedMapperError is returned by dispatch when no constructor or
// provider claims a mapper number.
type UnsupportedMapperError struct {
	ID        uint16
	Submapper uint8
}

func (e *UnsupportedMapperError) Error() string {
	return fmt.Sprintf("cartridge: unsupported mapper %d (submapper %d)", e.ID, e.Submapper)
}

// Is lets errors.Is(err, ErrUnsupportedMapper) match.
func (e *UnsupportedMapperError) Is(target error) bool {
	return target == ErrUnsupportedMapper
}
