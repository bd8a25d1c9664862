package cartridge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valerio/go-nescore/nescore/state"
)

// image builds a ROM file where every PRG bank is filled with its bank
// number and every CHR bank with 0x80 plus its bank number.
func image(flags6, flags7 byte, prgBanks, chrBanks int, trainer []byte) []byte {
	if len(trainer) > 0 {
		flags6 |= 0x04
	}
	data := header(byte(prgBanks), byte(chrBanks), flags6, flags7)
	data = append(data, trainer...)
	for i := 0; i < prgBanks; i++ {
		for j := 0; j < prgUnit; j++ {
			data = append(data, byte(i))
		}
	}
	for i := 0; i < chrBanks; i++ {
		for j := 0; j < chrUnit; j++ {
			data = append(data, 0x80|byte(i))
		}
	}
	return data
}

func load(t *testing.T, data []byte) *Cartridge {
	t.Helper()
	cart, err := Load(data, LoadOptions{})
	require.NoError(t, err)
	return cart
}

func TestNROM(t *testing.T) {
	t.Run("16KB image is mirrored", func(t *testing.T) {
		data := image(0, 0, 1, 1, nil)
		data[HeaderSize+0x3FFC] = 0x34
		data[HeaderSize+0x3FFD] = 0x12
		m := load(t, data).Mapper

		lo, ok := m.CPURead(0xBFFC)
		require.True(t, ok)
		hi, _ := m.CPURead(0xFFFD)
		assert.Equal(t, uint8(0x34), lo)
		assert.Equal(t, uint8(0x12), hi)
	})

	t.Run("PRG ROM is read only", func(t *testing.T) {
		m := load(t, image(0, 0, 2, 1, nil)).Mapper
		m.CPUWrite(0x8000, 0xFF)
		v, _ := m.CPURead(0x8000)
		assert.Equal(t, uint8(0), v)
		v, _ = m.CPURead(0xC000)
		assert.Equal(t, uint8(1), v)
	})

	t.Run("PRG RAM", func(t *testing.T) {
		m := load(t, image(0, 0, 1, 1, nil)).Mapper
		m.CPUWrite(0x6123, 0x5A)
		v, ok := m.CPURead(0x6123)
		require.True(t, ok)
		assert.Equal(t, uint8(0x5A), v)
	})

	t.Run("expansion area is undriven", func(t *testing.T) {
		m := load(t, image(0, 0, 1, 1, nil)).Mapper
		_, ok := m.CPURead(0x5000)
		assert.False(t, ok)
	})

	t.Run("CHR RAM when no CHR ROM", func(t *testing.T) {
		m := load(t, image(0, 0, 1, 0, nil)).Mapper
		m.PPUWrite(0x1234, 0x77)
		assert.Equal(t, uint8(0x77), m.PPURead(0x1234))
	})

	t.Run("CHR ROM ignores writes", func(t *testing.T) {
		m := load(t, image(0, 0, 1, 1, nil)).Mapper
		m.PPUWrite(0x0010, 0x11)
		assert.Equal(t, uint8(0x80), m.PPURead(0x0010))
	})

	t.Run("trainer lands at $7000", func(t *testing.T) {
		trainer := make([]byte, TrainerSize)
		for i := range trainer {
			trainer[i] = byte(i)
		}
		cart := load(t, image(0, 0, 1, 1, trainer))
		assert.True(t, cart.Header.Trainer)

		v, ok := cart.Mapper.CPURead(0x7000)
		require.True(t, ok)
		assert.Equal(t, uint8(0), v)
		v, _ = cart.Mapper.CPURead(0x71FF)
		assert.Equal(t, uint8(0xFF), v)
	})

	t.Run("header mirroring", func(t *testing.T) {
		m := load(t, image(0x01, 0, 1, 1, nil)).Mapper
		assert.Equal(t, MirrorVertical, m.Mirroring())
		assert.False(t, m.IRQPending())
		assert.Equal(t, uint16(0), m.ID())
		assert.Equal(t, "NROM", m.Name())
	})
}

func TestUxROM(t *testing.T) {
	m := load(t, image(0x20, 0, 8, 0, nil)).Mapper
	require.Equal(t, "UxROM", m.Name())

	v, _ := m.CPURead(0xC000)
	assert.Equal(t, uint8(7), v, "last bank fixed at $C000")
	v, _ = m.CPURead(0x8000)
	assert.Equal(t, uint8(0), v)

	m.CPUWrite(0x8000, 5)
	v, _ = m.CPURead(0x8000)
	assert.Equal(t, uint8(5), v)
	v, _ = m.CPURead(0xFFFF)
	assert.Equal(t, uint8(7), v)

	t.Run("soft reset keeps the bank", func(t *testing.T) {
		m.Reset(SoftReset)
		v, _ := m.CPURead(0x8000)
		assert.Equal(t, uint8(5), v)
	})

	t.Run("power on returns to bank 0", func(t *testing.T) {
		m.Reset(PowerOn)
		v, _ := m.CPURead(0x8000)
		assert.Equal(t, uint8(0), v)
	})
}

func TestCNROM(t *testing.T) {
	m := load(t, image(0x30, 0, 2, 4, nil)).Mapper
	require.Equal(t, "CNROM", m.Name())

	assert.Equal(t, uint8(0x80), m.PPURead(0x0000))
	m.CPUWrite(0x8000, 2)
	assert.Equal(t, uint8(0x82), m.PPURead(0x0000))
	assert.Equal(t, uint8(0x82), m.PPURead(0x1FFF))

	v, _ := m.CPURead(0xC000)
	assert.Equal(t, uint8(1), v, "PRG unaffected by CHR bank")

	m.Reset(SoftReset)
	assert.Equal(t, uint8(0x82), m.PPURead(0x0000))
	m.Reset(PowerOn)
	assert.Equal(t, uint8(0x80), m.PPURead(0x0000))
}

func TestAxROM(t *testing.T) {
	m := load(t, image(0x70, 0, 8, 0, nil)).Mapper
	require.Equal(t, "AxROM", m.Name())
	assert.Equal(t, MirrorSingleScreenLower, m.Mirroring())

	v, _ := m.CPURead(0x8000)
	assert.Equal(t, uint8(0), v)
	v, _ = m.CPURead(0xC000)
	assert.Equal(t, uint8(1), v)

	m.CPUWrite(0x8000, 0x12)
	assert.Equal(t, MirrorSingleScreenUpper, m.Mirroring())
	v, _ = m.CPURead(0x8000)
	assert.Equal(t, uint8(4), v)
	v, _ = m.CPURead(0xFFFF)
	assert.Equal(t, uint8(5), v)

	c := m.Clone()
	assert.Equal(t, MirrorSingleScreenUpper, c.Mirroring())

	m.Reset(SoftReset)
	assert.Equal(t, MirrorSingleScreenUpper, m.Mirroring())
	v, _ = m.CPURead(0x8000)
	assert.Equal(t, uint8(4), v)

	m.Reset(PowerOn)
	assert.Equal(t, MirrorSingleScreenLower, m.Mirroring())
	v, _ = m.CPURead(0x8000)
	assert.Equal(t, uint8(0), v)
}

func TestMapperClone(t *testing.T) {
	m := load(t, image(0x20, 0, 4, 0, nil)).Mapper
	m.CPUWrite(0x6000, 0x11)
	m.PPUWrite(0x0000, 0x22)

	c := m.Clone()
	c.CPUWrite(0x6000, 0x99)
	c.PPUWrite(0x0000, 0x98)
	c.CPUWrite(0x8000, 3)

	v, _ := m.CPURead(0x6000)
	assert.Equal(t, uint8(0x11), v)
	assert.Equal(t, uint8(0x22), m.PPURead(0x0000))
	v, _ = m.CPURead(0x8000)
	assert.Equal(t, uint8(0), v)

	v, _ = c.CPURead(0x8000)
	assert.Equal(t, uint8(3), v)
}

func TestMapperState(t *testing.T) {
	testCases := []struct {
		name   string
		flags6 byte
		prg    int
		chr    int
	}{
		{"NROM", 0x00, 1, 0},
		{"UxROM", 0x20, 4, 0},
		{"CNROM", 0x30, 2, 4},
		{"AxROM", 0x70, 8, 0},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			data := image(tc.flags6, 0, tc.prg, tc.chr, nil)
			m := load(t, data).Mapper

			m.CPUWrite(0x8000, 0x11)
			m.CPUWrite(0x6010, 0xAB)
			m.PPUWrite(0x0042, 0xCD)

			e := state.NewEncoder()
			m.SaveState(e)

			restored := load(t, data).Mapper
			d := state.NewDecoder(e.Bytes())
			require.NoError(t, restored.LoadState(d))
			require.NoError(t, d.Finish())

			for _, address := range []uint16{0x6010, 0x8000, 0xC000, 0xFFFF} {
				want, _ := m.CPURead(address)
				got, _ := restored.CPURead(address)
				assert.Equal(t, want, got, "address 0x%04X", address)
			}
			assert.Equal(t, m.PPURead(0x0042), restored.PPURead(0x0042))
			assert.Equal(t, m.Mirroring(), restored.Mirroring())
		})
	}

	t.Run("truncated state fails", func(t *testing.T) {
		m := load(t, image(0x20, 0, 4, 0, nil)).Mapper
		e := state.NewEncoder()
		m.SaveState(e)

		d := state.NewDecoder(e.Bytes()[:len(e.Bytes())-10])
		assert.ErrorIs(t, m.LoadState(d), state.ErrCorrupt)
	})
}
