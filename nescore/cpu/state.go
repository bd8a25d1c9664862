package cpu

import (
	"github.com/valerio/go-nescore/nescore/state"
)

// State is the CPU at an instruction boundary. The in-flight cursor is not
// part of it: a loaded CPU is always ready to fetch.
type State struct {
	A, X, Y, S, P uint8
	PC            uint16

	NMIPending bool
	PrevNMI    bool
	NMIPoll    bool
	IRQPoll    bool
	Halted     bool
	Cycles     uint64
}

// Save captures the CPU. It fails with state.ErrMidInstruction unless the
// CPU sits between two instructions.
func (c *CPU) Save(meta state.Meta) (state.Snapshot[State], error) {
	if !c.AtBoundary() {
		return state.Snapshot[State]{}, state.ErrMidInstruction
	}
	meta.Tick = c.cycles
	return state.Snapshot[State]{Meta: meta, Data: c.capture()}, nil
}

func (c *CPU) capture() State {
	return State{
		A: c.a, X: c.x, Y: c.y, S: c.s, P: c.p, PC: c.pc,
		NMIPending: c.nmiPending,
		PrevNMI:    c.prevNMI,
		NMIPoll:    c.nmiPoll,
		IRQPoll:    c.irqPoll,
		Halted:     c.halted,
		Cycles:     c.cycles,
	}
}

// Load overwrites every CPU field from snap and drops any in-flight
// instruction.
func (c *CPU) Load(snap *state.Snapshot[State]) error {
	if err := snap.Meta.CheckVersion(); err != nil {
		return err
	}
	c.restore(&snap.Data)
	return nil
}

func (c *CPU) restore(s *State) {
	c.a, c.x, c.y, c.s, c.p, c.pc = s.A, s.X, s.Y, s.S, s.P, s.PC
	c.nmiPending = s.NMIPending
	c.prevNMI = s.PrevNMI
	c.nmiPoll = s.NMIPoll
	c.irqPoll = s.IRQPoll
	c.halted = s.Halted
	c.cycles = s.Cycles

	c.template = 0
	c.steps = nil
	c.cursor = 0
	c.addr, c.base, c.ptr, c.data, c.vector = 0, 0, 0, 0, 0
	c.crossed = false
}

// Encode appends s to e.
func (s *State) Encode(e *state.Encoder) {
	e.Uint8(s.A)
	e.Uint8(s.X)
	e.Uint8(s.Y)
	e.Uint8(s.S)
	e.Uint8(s.P)
	e.Uint16(s.PC)
	e.Bool(s.NMIPending)
	e.Bool(s.PrevNMI)
	e.Bool(s.NMIPoll)
	e.Bool(s.IRQPoll)
	e.Bool(s.Halted)
	e.Uint64(s.Cycles)
}

// DecodeState reads a State written by Encode.
func DecodeState(d *state.Decoder) (State, error) {
	var s State
	s.A = d.Uint8()
	s.X = d.Uint8()
	s.Y = d.Uint8()
	s.S = d.Uint8()
	s.P = d.Uint8()
	s.PC = d.Uint16()
	s.NMIPending = d.Bool()
	s.PrevNMI = d.Bool()
	s.NMIPoll = d.Bool()
	s.IRQPoll = d.Bool()
	s.Halted = d.Bool()
	s.Cycles = d.Uint64()
	return s, d.Err()
}
