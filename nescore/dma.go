package nescore

import (
	"github.com/valerio/go-nescore/nescore/addr"
	"github.com/valerio/go-nescore/nescore/bus"
)

// dma copies one CPU page to OAMDATA while the CPU is stalled: one idle
// cycle (two when it starts on an odd cycle), then 256 read/write pairs.
type dma struct {
	active bool
	page   uint8
	index  int
	idle   int
	write  bool
	data   uint8
}

func (d *dma) start(page uint8, cycle uint64) {
	*d = dma{active: true, page: page, idle: 1}
	if cycle%2 == 1 {
		d.idle++
	}
}

func (d *dma) clock(b *bus.Bus) {
	switch {
	case d.idle > 0:
		b.InternalCycle()
		d.idle--
	case !d.write:
		d.data = b.Read(uint16(d.page)<<8 | uint16(d.index))
		d.write = true
	default:
		b.Write(addr.OAMDATA, d.data)
		d.write = false
		d.index++
		if d.index == 256 {
			d.active = false
		}
	}
}
