package state

import (
	"fmt"

	"github.com/tinylib/msgp/msgp"
)

// Encoder appends MessagePack values to a growing buffer. Field order is the
// layout: encoders and decoders must visit fields in the same sequence.
type Encoder struct {
	buf []byte
}

func NewEncoder() *Encoder {
	return &Encoder{buf: make([]byte, 0, 256)}
}

func (e *Encoder) Uint8(v uint8)   { e.buf = msgp.AppendUint8(e.buf, v) }
func (e *Encoder) Uint16(v uint16) { e.buf = msgp.AppendUint16(e.buf, v) }
func (e *Encoder) Uint32(v uint32) { e.buf = msgp.AppendUint32(e.buf, v) }
func (e *Encoder) Uint64(v uint64) { e.buf = msgp.AppendUint64(e.buf, v) }
func (e *Encoder) Bool(v bool)     { e.buf = msgp.AppendBool(e.buf, v) }
func (e *Encoder) Blob(v []byte)   { e.buf = msgp.AppendBytes(e.buf, v) }

// Bytes returns the encoded buffer.
func (e *Encoder) Bytes() []byte {
	return e.buf
}

// Decoder reads values written by Encoder. The first failure is sticky:
// later reads return zero values and Err reports the original problem.
type Decoder struct {
	buf []byte
	err error
}

func NewDecoder(b []byte) *Decoder {
	return &Decoder{buf: b}
}

func (d *Decoder) fail(err error) {
	if d.err == nil {
		d.err = fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
}

func (d *Decoder) Uint8() uint8 {
	if d.err != nil {
		return 0
	}
	v, rest, err := msgp.ReadUint8Bytes(d.buf)
	if err != nil {
		d.fail(err)
		return 0
	}
	d.buf = rest
	return v
}

func (d *Decoder) Uint16() uint16 {
	if d.err != nil {
		return 0
	}
	v, rest, err := msgp.ReadUint16Bytes(d.buf)
	if err != nil {
		d.fail(err)
		return 0
	}
	d.buf = rest
	return v
}

func (d *Decoder) Uint32() uint32 {
	if d.err != nil {
		return 0
	}
	v, rest, err := msgp.ReadUint32Bytes(d.buf)
	if err != nil {
		d.fail(err)
		return 0
	}
	d.buf = rest
	return v
}

func (d *Decoder) Uint64() uint64 {
	if d.err != nil {
		return 0
	}
	v, rest, err := msgp.ReadUint64Bytes(d.buf)
	if err != nil {
		d.fail(err)
		return 0
	}
	d.buf = rest
	return v
}

func (d *Decoder) Bool() bool {
	if d.err != nil {
		return false
	}
	v, rest, err := msgp.ReadBoolBytes(d.buf)
	if err != nil {
		d.fail(err)
		return false
	}
	d.buf = rest
	return v
}

// Blob reads a byte slice into freshly allocated memory.
func (d *Decoder) Blob() []byte {
	if d.err != nil {
		return nil
	}
	v, rest, err := msgp.ReadBytesBytes(d.buf, nil)
	if err != nil {
		d.fail(err)
		return nil
	}
	d.buf = rest
	return v
}

// BlobInto reads a byte slice that must exactly fill dst.
func (d *Decoder) BlobInto(dst []byte) {
	v := d.Blob()
	if d.err != nil {
		return
	}
	if len(v) != len(dst) {
		d.fail(fmt.Errorf("blob length %d, want %d", len(v), len(dst)))
		return
	}
	copy(dst, v)
}

// Err returns the first decoding error, wrapped with ErrCorrupt.
func (d *Decoder) Err() error {
	return d.err
}

// Finish reports any decoding error and rejects trailing bytes.
func (d *Decoder) Finish() error {
	if d.err != nil {
		return d.err
	}
	if len(d.buf) != 0 {
		return fmt.Errorf("%w: %d trailing bytes", ErrCorrupt, len(d.buf))
	}
	return nil
}
