package nescore

import (
	"fmt"

	"github.com/valerio/go-nescore/nescore/bus"
	"github.com/valerio/go-nescore/nescore/cpu"
	"github.com/valerio/go-nescore/nescore/state"
)

// SystemState is every subsystem of the console. It is saved and loaded as
// one unit; there is no way to apply only part of it.
type SystemState struct {
	CPU cpu.State
	Bus bus.State
}

// Save captures the whole machine. It fails with state.ErrMidInstruction
// unless the console is at an instruction boundary.
func (c *Console) Save(meta state.Meta) (state.Snapshot[SystemState], error) {
	if c.dma.active {
		return state.Snapshot[SystemState]{}, state.ErrMidInstruction
	}
	cpuSnap, err := c.cpu.Save(meta)
	if err != nil {
		return state.Snapshot[SystemState]{}, err
	}
	busSnap, err := c.bus.Save(meta)
	if err != nil {
		return state.Snapshot[SystemState]{}, err
	}

	m := busSnap.Meta
	m.Tick = cpuSnap.Meta.Tick
	return state.Snapshot[SystemState]{
		Meta: m,
		Data: SystemState{CPU: cpuSnap.Data, Bus: busSnap.Data},
	}, nil
}

// Load restores snap. Every part is validated before anything is applied,
// so a failed load leaves the console exactly as it was.
func (c *Console) Load(snap *state.Snapshot[SystemState]) error {
	prepared, err := c.bus.Prepare(&state.Snapshot[bus.State]{Meta: snap.Meta, Data: snap.Data.Bus})
	if err != nil {
		return err
	}
	// cpu.Load only fails on the version check Prepare already passed
	if err := c.cpu.Load(&state.Snapshot[cpu.State]{Meta: snap.Meta, Data: snap.Data.CPU}); err != nil {
		return err
	}
	prepared.Commit()
	c.dma = dma{}
	return nil
}

// snapshotMagic starts every serialized console snapshot.
const snapshotMagic = "NESS"

// Marshal saves the console and serializes the snapshot.
func (c *Console) Marshal() ([]byte, error) {
	snap, err := c.Save(state.DefaultMeta())
	if err != nil {
		return nil, err
	}
	return EncodeSnapshot(&snap), nil
}

// Unmarshal decodes data completely, then loads it.
func (c *Console) Unmarshal(data []byte) error {
	snap, err := DecodeSnapshot(data)
	if err != nil {
		return err
	}
	return c.Load(&snap)
}

// MarshalFragments is Marshal cut into fragments of at most size bytes.
func (c *Console) MarshalFragments(size int) ([]state.Fragment, error) {
	data, err := c.Marshal()
	if err != nil {
		return nil, err
	}
	return state.Split(data, size), nil
}

// UnmarshalFragments reassembles fragments in any order and loads the
// result. An incomplete set fails with state.ErrIncomplete.
func (c *Console) UnmarshalFragments(fragments []state.Fragment) error {
	var a state.Assembler
	for _, f := range fragments {
		if _, err := a.Add(f); err != nil {
			return err
		}
	}
	data, err := a.Bytes()
	if err != nil {
		return err
	}
	return c.Unmarshal(data)
}

// EncodeSnapshot serializes snap: magic, meta, CPU, then bus.
func EncodeSnapshot(snap *state.Snapshot[SystemState]) []byte {
	e := state.NewEncoder()
	e.Blob([]byte(snapshotMagic))
	state.EncodeMeta(e, snap.Meta)
	snap.Data.CPU.Encode(e)
	snap.Data.Bus.Encode(e)
	return e.Bytes()
}

// DecodeSnapshot parses bytes written by EncodeSnapshot. Data from another
// format version is rejected before the body is decoded.
func DecodeSnapshot(data []byte) (state.Snapshot[SystemState], error) {
	var snap state.Snapshot[SystemState]
	d := state.NewDecoder(data)

	if magic := d.Blob(); string(magic) != snapshotMagic {
		if err := d.Err(); err != nil {
			return snap, err
		}
		return snap, fmt.Errorf("%w: bad magic %q", state.ErrCorrupt, magic)
	}

	snap.Meta = state.DecodeMeta(d)
	if err := d.Err(); err != nil {
		return snap, err
	}
	if err := snap.Meta.CheckVersion(); err != nil {
		return snap, err
	}

	var err error
	if snap.Data.CPU, err = cpu.DecodeState(d); err != nil {
		return snap, err
	}
	if snap.Data.Bus, err = bus.DecodeState(d); err != nil {
		return snap, err
	}
	if err := d.Finish(); err != nil {
		return snap, err
	}
	return snap, nil
}
