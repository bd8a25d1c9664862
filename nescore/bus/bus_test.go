package bus

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valerio/go-nescore/nescore/cartridge"
)

// fakeDevice records register traffic. Registers listed in driven return
// their value; everything else is left floating.
type fakeDevice struct {
	driven map[uint16]uint8
	reads  []uint16
	writes map[uint16]uint8
}

func newFakeDevice() *fakeDevice {
	return &fakeDevice{driven: map[uint16]uint8{}, writes: map[uint16]uint8{}}
}

func (d *fakeDevice) ReadRegister(address uint16) (uint8, bool) {
	d.reads = append(d.reads, address)
	v, ok := d.driven[address]
	return v, ok
}

func (d *fakeDevice) PeekRegister(address uint16) (uint8, bool) {
	v, ok := d.driven[address]
	return v, ok
}

func (d *fakeDevice) WriteRegister(address uint16, value uint8) {
	d.writes[address] = value
}

// testCartridge builds an NROM cartridge with a 32KB PRG where every byte
// holds the high byte of its CPU address.
func testCartridge(t *testing.T, mapper byte) *cartridge.Cartridge {
	t.Helper()
	data := make([]byte, cartridge.HeaderSize, cartridge.HeaderSize+0x8000)
	copy(data, []byte{'N', 'E', 'S', 0x1A, 2, 0, mapper << 4, 0})
	for i := 0; i < 0x8000; i++ {
		data = append(data, byte((0x8000+i)>>8))
	}
	cart, err := cartridge.Load(data, cartridge.LoadOptions{})
	require.NoError(t, err)
	return cart
}

func TestRAM(t *testing.T) {
	b := New()

	t.Run("mirrors", func(t *testing.T) {
		b.Write(0x0001, 0x42)
		assert.Equal(t, uint8(0x42), b.Read(0x0801))
		assert.Equal(t, uint8(0x42), b.Read(0x1001))
		assert.Equal(t, uint8(0x42), b.Read(0x1801))
	})

	t.Run("cycles", func(t *testing.T) {
		before := b.Cycles()
		b.Read(0x0000)
		b.Write(0x0000, 1)
		b.InternalCycle()
		b.Peek(0x0000)
		assert.Equal(t, before+3, b.Cycles())
	})
}

func TestOpenBus(t *testing.T) {
	t.Run("undriven read returns last driven byte", func(t *testing.T) {
		b := New()
		b.Write(0x0010, 0x5A)
		assert.Equal(t, uint8(0x5A), b.Read(0x0010))

		for _, address := range []uint16{0x2002, 0x4000, 0x4013, 0x4014, 0x4018, 0x401F, 0x5000, 0x8000} {
			assert.Equal(t, uint8(0x5A), b.Read(address), "address 0x%04X", address)
		}
		assert.Equal(t, uint8(0x5A), b.OpenBus().Sample())
	})

	t.Run("writes latch even when nothing listens", func(t *testing.T) {
		b := New()
		b.Write(0x4018, 0x33)
		assert.Equal(t, uint8(0x33), b.OpenBus().Sample())
		assert.Equal(t, uint8(0x33), b.OpenBus().InternalSample())
		assert.Equal(t, uint8(0x33), b.Read(0x6000))
	})

	t.Run("never a fixed default", func(t *testing.T) {
		b := New()
		b.Write(0x0000, 0xFF)
		b.Read(0x0000)
		assert.Equal(t, uint8(0xFF), b.Read(0x4000))
	})

	t.Run("driven cartridge read latches", func(t *testing.T) {
		b := NewWithCartridge(testCartridge(t, 0))
		assert.Equal(t, uint8(0xC1), b.Read(0xC123))
		assert.Equal(t, uint8(0xC1), b.Read(0x5000))
	})

	t.Run("$4015 only updates the internal latch", func(t *testing.T) {
		b := New()
		apu := newFakeDevice()
		apu.driven[0x4015] = 0x1F
		b.AttachAPU(apu)

		b.Write(0x0000, 0xE0)
		v := b.Read(0x4015)
		assert.Equal(t, uint8(0x3F), v, "bit 5 comes from the internal latch")
		assert.Equal(t, uint8(0xE0), b.OpenBus().Sample())
		assert.Equal(t, uint8(0x3F), b.OpenBus().InternalSample())
	})

	t.Run("set updates one latch", func(t *testing.T) {
		var o OpenBus
		o.Set(0x12, false)
		o.Set(0x34, true)
		assert.Equal(t, uint8(0x12), o.Sample())
		assert.Equal(t, uint8(0x34), o.InternalSample())
	})
}

func TestPeek(t *testing.T) {
	b := NewWithCartridge(testCartridge(t, 0))
	ppu := newFakeDevice()
	ppu.driven[0x2002] = 0x80
	b.AttachPPU(ppu)
	b.Write(0x0005, 0x77)
	b.Controller(0).Press(ButtonA)
	b.Write(0x4016, 1)
	b.Write(0x4016, 0)

	before := b.OpenBus()
	cycles := b.Cycles()

	assert.Equal(t, uint8(0x77), b.Peek(0x0805))
	assert.Equal(t, uint8(0x80), b.Peek(0x3FFA))
	assert.Equal(t, uint8(0xFF), b.Peek(0xFFFF))
	assert.Equal(t, uint8(0x00), b.Peek(0x4000), "undriven peek samples without latching")
	for i := 0; i < 4; i++ {
		assert.Equal(t, uint8(1), b.Peek(0x4016)&1, "peek does not shift")
	}

	assert.Equal(t, before, b.OpenBus())
	assert.Equal(t, cycles, b.Cycles())
	assert.Empty(t, ppu.reads)
}

func TestPPUWindow(t *testing.T) {
	b := New()
	ppu := newFakeDevice()
	ppu.driven[0x2002] = 0x80
	b.AttachPPU(ppu)

	assert.Equal(t, uint8(0x80), b.Read(0x3FFA))
	assert.Equal(t, []uint16{0x2002}, ppu.reads)

	b.Write(0x2FF8, 0x11)
	assert.Equal(t, uint8(0x11), ppu.writes[0x2000])

	t.Run("write-only register reads open bus", func(t *testing.T) {
		b.Write(0x0000, 0x44)
		assert.Equal(t, uint8(0x44), b.Read(0x2000))
	})
}

func TestIORouting(t *testing.T) {
	b := New()
	apu := newFakeDevice()
	b.AttachAPU(apu)

	b.Write(0x4000, 0x01)
	b.Write(0x4013, 0x02)
	b.Write(0x4015, 0x03)
	b.Write(0x4017, 0x40)
	assert.Equal(t, map[uint16]uint8{0x4000: 1, 0x4013: 2, 0x4015: 3, 0x4017: 0x40}, apu.writes)

	b.Write(0x4014, 0x02)
	page, ok := b.PendingDMA()
	require.True(t, ok)
	assert.Equal(t, uint8(0x02), page)
	_, ok = b.PendingDMA()
	assert.False(t, ok)
}

func TestControllerPort(t *testing.T) {
	b := New()
	pad := b.Controller(0)
	pad.Press(ButtonA)
	pad.Press(ButtonStart)
	pad.Press(ButtonRight)

	b.Write(0x4016, 1)
	b.Write(0x4016, 0)

	want := []uint8{1, 0, 0, 1, 0, 0, 0, 1, 1, 1}
	for i, bit := range want {
		assert.Equal(t, bit, b.Read(0x4016)&1, "read %d", i)
	}

	t.Run("upper bits from open bus", func(t *testing.T) {
		b.Write(0x0000, 0x40)
		b.Read(0x0000)
		assert.Equal(t, uint8(0x41), b.Read(0x4016))
	})

	t.Run("strobe high keeps returning A", func(t *testing.T) {
		b.Write(0x4016, 1)
		for i := 0; i < 3; i++ {
			assert.Equal(t, uint8(1), b.Read(0x4016)&1)
		}
	})

	t.Run("port 2 is independent", func(t *testing.T) {
		b.Write(0x4016, 0)
		assert.Equal(t, uint8(0), b.Read(0x4017)&1)
	})
}

func TestControllerButtons(t *testing.T) {
	pad := NewController()
	pad.SetButton(ButtonB, true)
	pad.Press(ButtonUp)
	assert.True(t, pad.Held(ButtonB))
	assert.True(t, pad.Held(ButtonUp))

	pad.Release(ButtonUp)
	pad.SetButton(ButtonB, false)
	assert.False(t, pad.Held(ButtonB))
	assert.False(t, pad.Held(ButtonUp))

	t.Run("strobe reloads the shift register", func(t *testing.T) {
		pad.Write(1)
		assert.Equal(t, uint8(0), pad.Peek())
		pad.SetButton(ButtonA, true)
		assert.Equal(t, uint8(1), pad.Peek())
		assert.Equal(t, uint8(1), pad.Read())
	})
}

func TestInterruptLines(t *testing.T) {
	b := New()
	assert.False(t, b.IRQ())

	b.SetIRQ(IRQFrameCounter)
	b.SetIRQ(IRQDMC)
	assert.True(t, b.IRQ())
	b.ClearIRQ(IRQFrameCounter)
	assert.True(t, b.IRQ())
	assert.Equal(t, IRQDMC, b.IRQSources())
	b.ClearIRQ(IRQDMC)
	assert.False(t, b.IRQ())

	b.SetNMI(true)
	assert.True(t, b.NMI())
	b.SetNMI(false)
	assert.False(t, b.NMI())
}

func TestReset(t *testing.T) {
	b := New()
	b.Write(0x0000, 0x12)
	b.SetIRQ(IRQExternal)

	b.Reset(cartridge.SoftReset)
	assert.Equal(t, uint8(0x12), b.Peek(0x0000), "RAM survives the reset button")
	assert.False(t, b.IRQ())

	b.Reset(cartridge.PowerOn)
	assert.Equal(t, uint8(0x00), b.Peek(0x0000))
	assert.Equal(t, uint64(0), b.Cycles())
}
