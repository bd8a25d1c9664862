package main

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/valerio/go-nescore/nescore/cartridge"
	"github.com/valerio/go-nescore/nescore/timing"
)

func TestParseAddress(t *testing.T) {
	testCases := []struct {
		in      string
		want    uint16
		wantErr bool
	}{
		{in: "$C000", want: 0xC000},
		{in: "0x8000", want: 0x8000},
		{in: "fffc", want: 0xFFFC},
		{in: "10000", wantErr: true},
		{in: "zz", wantErr: true},
	}
	for _, tC := range testCases {
		t.Run(tC.in, func(t *testing.T) {
			got, err := parseAddress(tC.in)
			if tC.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tC.want, got)
		})
	}
}

func TestRegionOf(t *testing.T) {
	cart := &cartridge.Cartridge{}
	assert.Equal(t, timing.NTSC, regionOf(cart))
	cart.Header.Timing = cartridge.TimingPAL
	assert.Equal(t, timing.PAL, regionOf(cart))
	cart.Header.Timing = cartridge.TimingMultiRegion
	assert.Equal(t, timing.NTSC, regionOf(cart))
}
