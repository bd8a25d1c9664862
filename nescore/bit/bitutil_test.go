package bit

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCombine(t *testing.T) {
	tests := []struct {
		high, low uint8
		expected  uint16
	}{
		{0xAB, 0xCD, 0xABCD},
		{0x00, 0x00, 0x0000},
		{0xFF, 0xFF, 0xFFFF},
		{0x12, 0x34, 0x1234},
	}

	for _, tt := range tests {
		result := Combine(tt.high, tt.low)
		if result != tt.expected {
			t.Errorf("Combine(%X, %X) = %X; want %X", tt.high, tt.low, result, tt.expected)
		}
	}
}

func TestSetClear(t *testing.T) {
	assert.Equal(t, uint8(0x81), Set(7, 0x01))
	assert.Equal(t, uint8(0x01), Clear(7, 0x81))
	assert.Equal(t, uint8(0x04), SetTo(2, 0x00, true))
	assert.Equal(t, uint8(0x00), SetTo(2, 0x04, false))
	assert.True(t, IsSet(6, 0x40))
	assert.False(t, IsSet(5, 0x40))
	assert.Equal(t, uint8(1), GetBitValue(0, 0x01))
	assert.Equal(t, uint8(0), GetBitValue(1, 0x01))
}

func TestLowHigh(t *testing.T) {
	assert.Equal(t, uint8(0x34), Low(0x1234))
	assert.Equal(t, uint8(0x12), High(0x1234))
}

func TestExtractBits(t *testing.T) {
	assert.Equal(t, uint8(0b101), ExtractBits(0b11010110, 6, 4))
	assert.Equal(t, uint8(0b11), ExtractBits(0b00001100, 3, 2))
}

func TestPageCrossed(t *testing.T) {
	tests := []struct {
		name string
		a, b uint16
		want bool
	}{
		{"same page", 0x12F0, 0x12FF, false},
		{"next page", 0x12FF, 0x1300, true},
		{"wrap", 0xFFFF, 0x0000, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PageCrossed(tt.a, tt.b))
		})
	}
}

func TestAddLow(t *testing.T) {
	assert.Equal(t, uint16(0x1210), AddLow(0x12F0, 0x20))
	assert.Equal(t, uint16(0x12F5), AddLow(0x12F0, 0x05))
}
