package bus

import (
	"fmt"

	"github.com/valerio/go-nescore/nescore/addr"
	"github.com/valerio/go-nescore/nescore/cartridge"
	"github.com/valerio/go-nescore/nescore/state"
)

// State is everything the bus owns, including the mapper's encoded state.
type State struct {
	RAM         [addr.RAMSize]uint8
	OpenBus     OpenBus
	Cycles      uint64
	IRQ         IRQSource
	NMI         bool
	DMAPending  bool
	DMAPage     uint8
	Controllers [2]ControllerState

	// Mapper is the cartridge's SaveState output, empty without a cartridge.
	Mapper []byte
}

// Save captures the bus, mapper included.
func (b *Bus) Save(meta state.Meta) (state.Snapshot[State], error) {
	s := State{
		RAM:        b.ram,
		OpenBus:    b.openBus,
		Cycles:     b.cycles,
		IRQ:        b.irq,
		NMI:        b.nmi,
		DMAPending: b.dmaPending,
		DMAPage:    b.dmaPage,
	}
	for i, pad := range b.joypads {
		s.Controllers[i] = pad.save()
	}

	if b.cart != nil {
		h := b.cart.Header
		meta = meta.WithRom(b.cart.Hash, h.Mapper, h.Submapper)
		e := state.NewEncoder()
		b.cart.Mapper.SaveState(e)
		s.Mapper = e.Bytes()
	}

	return state.Snapshot[State]{Meta: meta, Data: s}, nil
}

// Load restores a snapshot. Nothing is modified unless every check passes
// and the mapper state decodes completely.
func (b *Bus) Load(snap *state.Snapshot[State]) error {
	mapper, err := b.prepare(snap)
	if err != nil {
		return err
	}
	b.apply(&snap.Data, mapper)
	return nil
}

// prepare validates snap and decodes its mapper state into a clone of the
// live mapper. The returned mapper is nil when there is no cartridge.
func (b *Bus) prepare(snap *state.Snapshot[State]) (cartridge.Mapper, error) {
	if err := snap.Meta.CheckVersion(); err != nil {
		return nil, err
	}

	if b.cart == nil {
		if len(snap.Data.Mapper) > 0 {
			return nil, state.ErrNoCartridge
		}
		return nil, nil
	}

	h := b.cart.Header
	if err := snap.Meta.CheckRom(b.cart.Hash, h.Mapper, h.Submapper); err != nil {
		return nil, err
	}

	mapper := b.cart.Mapper.Clone()
	d := state.NewDecoder(snap.Data.Mapper)
	if err := mapper.LoadState(d); err != nil {
		return nil, fmt.Errorf("mapper %d: %w", h.Mapper, err)
	}
	if err := d.Finish(); err != nil {
		return nil, fmt.Errorf("mapper %d: %w", h.Mapper, err)
	}
	return mapper, nil
}

func (b *Bus) apply(s *State, mapper cartridge.Mapper) {
	b.ram = s.RAM
	b.openBus = s.OpenBus
	b.cycles = s.Cycles
	b.irq = s.IRQ
	b.nmi = s.NMI
	b.dmaPending = s.DMAPending
	b.dmaPage = s.DMAPage
	for i, pad := range b.joypads {
		pad.load(s.Controllers[i])
	}
	if mapper != nil {
		b.cart.Mapper = mapper
	}
}

// Prepared is a validated bus snapshot waiting to be applied. Composite
// loaders prepare every subsystem first and commit only when all succeed.
type Prepared struct {
	bus    *Bus
	state  State
	mapper cartridge.Mapper
}

// Prepare validates snap without modifying the bus.
func (b *Bus) Prepare(snap *state.Snapshot[State]) (*Prepared, error) {
	mapper, err := b.prepare(snap)
	if err != nil {
		return nil, err
	}
	return &Prepared{bus: b, state: snap.Data, mapper: mapper}, nil
}

// Commit applies the prepared state. It cannot fail.
func (p *Prepared) Commit() {
	p.bus.apply(&p.state, p.mapper)
}

// Encode appends s to e.
func (s *State) Encode(e *state.Encoder) {
	e.Blob(s.RAM[:])
	e.Uint8(s.OpenBus.External)
	e.Uint8(s.OpenBus.Internal)
	e.Uint64(s.Cycles)
	e.Uint8(uint8(s.IRQ))
	e.Bool(s.NMI)
	e.Bool(s.DMAPending)
	e.Uint8(s.DMAPage)
	for _, c := range s.Controllers {
		e.Uint8(c.Buttons)
		e.Uint8(c.Shift)
		e.Bool(c.Strobe)
	}
	e.Blob(s.Mapper)
}

// DecodeState reads a State written by Encode.
func DecodeState(d *state.Decoder) (State, error) {
	var s State
	d.BlobInto(s.RAM[:])
	s.OpenBus.External = d.Uint8()
	s.OpenBus.Internal = d.Uint8()
	s.Cycles = d.Uint64()
	s.IRQ = IRQSource(d.Uint8())
	s.NMI = d.Bool()
	s.DMAPending = d.Bool()
	s.DMAPage = d.Uint8()
	for i := range s.Controllers {
		s.Controllers[i].Buttons = d.Uint8()
		s.Controllers[i].Shift = d.Uint8()
		s.Controllers[i].Strobe = d.Bool()
	}
	s.Mapper = d.Blob()
	return s, d.Err()
}
