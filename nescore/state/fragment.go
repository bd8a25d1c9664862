package state

import (
	"fmt"

	"github.com/tinylib/msgp/msgp"
)

// Fragment is one indexed slice of a serialized snapshot, sized for a
// transport that cannot carry the whole state in one message.
type Fragment struct {
	Index   uint32
	Total   uint32
	Payload []byte
}

// MarshalMsg appends the fragment as a 3 element MessagePack array.
func (f Fragment) MarshalMsg(b []byte) ([]byte, error) {
	b = msgp.AppendArrayHeader(b, 3)
	b = msgp.AppendUint32(b, f.Index)
	b = msgp.AppendUint32(b, f.Total)
	b = msgp.AppendBytes(b, f.Payload)
	return b, nil
}

// UnmarshalMsg decodes a fragment and returns the remaining bytes.
func (f *Fragment) UnmarshalMsg(b []byte) ([]byte, error) {
	n, b, err := msgp.ReadArrayHeaderBytes(b)
	if err != nil {
		return b, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if n != 3 {
		return b, fmt.Errorf("%w: fragment has %d fields", ErrCorrupt, n)
	}
	if f.Index, b, err = msgp.ReadUint32Bytes(b); err != nil {
		return b, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if f.Total, b, err = msgp.ReadUint32Bytes(b); err != nil {
		return b, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if f.Payload, b, err = msgp.ReadBytesBytes(b, nil); err != nil {
		return b, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return b, nil
}

// Split cuts data into fragments of at most size bytes. Empty data still
// produces a single empty fragment so the receiver sees a total.
func Split(data []byte, size int) []Fragment {
	if size <= 0 {
		size = len(data)
	}
	total := 1
	if len(data) > 0 && size > 0 {
		total = (len(data) + size - 1) / size
	}

	fragments := make([]Fragment, 0, total)
	for i := 0; i < total; i++ {
		start := i * size
		end := start + size
		if end > len(data) {
			end = len(data)
		}
		if start > end {
			start = end
		}
		fragments = append(fragments, Fragment{
			Index:   uint32(i),
			Total:   uint32(total),
			Payload: append([]byte(nil), data[start:end]...),
		})
	}
	return fragments
}

// Limits on what an Assembler accepts. A console snapshot is a few KiB,
// so anything past these is not a snapshot.
const (
	MaxFragments    = 1 << 16
	MaxSnapshotSize = 16 << 20
)

// Assembler collects fragments in any order and rebuilds the original bytes
// once every index has arrived.
type Assembler struct {
	total uint32
	parts map[uint32][]byte
	size  int
}

// Add stores f. It reports true once the set is complete. Duplicate indices
// are ignored; a fragment that disagrees on the total, or a set that grows
// past MaxFragments or MaxSnapshotSize, is rejected.
func (a *Assembler) Add(f Fragment) (bool, error) {
	if f.Total == 0 || f.Index >= f.Total {
		return false, fmt.Errorf("%w: fragment %d of %d", ErrCorrupt, f.Index, f.Total)
	}
	if f.Total > MaxFragments {
		return false, fmt.Errorf("%w: %d fragments, limit %d", ErrCorrupt, f.Total, MaxFragments)
	}
	if a.parts == nil {
		a.total = f.Total
		a.parts = make(map[uint32][]byte)
	}
	if f.Total != a.total {
		return false, fmt.Errorf("%w: fragment total %d, expected %d", ErrCorrupt, f.Total, a.total)
	}
	if _, ok := a.parts[f.Index]; !ok {
		if a.size+len(f.Payload) > MaxSnapshotSize {
			return false, fmt.Errorf("%w: fragments exceed %d bytes", ErrCorrupt, MaxSnapshotSize)
		}
		a.parts[f.Index] = append([]byte{}, f.Payload...)
		a.size += len(f.Payload)
	}
	return a.Complete(), nil
}

// Complete reports whether every fragment has been received.
func (a *Assembler) Complete() bool {
	return a.parts != nil && len(a.parts) == int(a.total)
}

// Bytes concatenates the fragments in index order.
func (a *Assembler) Bytes() ([]byte, error) {
	if !a.Complete() {
		return nil, fmt.Errorf("%w: %d of %d", ErrIncomplete, len(a.parts), a.total)
	}
	out := make([]byte, 0, a.size)
	for i := uint32(0); i < a.total; i++ {
		out = append(out, a.parts[i]...)
	}
	return out, nil
}

// Reset discards collected fragments.
func (a *Assembler) Reset() {
	*a = Assembler{}
}
