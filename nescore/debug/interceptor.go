package debug

import (
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/valerio/go-nescore/nescore/cpu"
	"github.com/valerio/go-nescore/nescore/disasm"
)

// Inspector is the read-only view an interceptor gets of the machine at an
// instruction boundary.
type Inspector interface {
	PC() uint16
	Registers() cpu.Registers
	Cycles() uint64
	Peek(address uint16) uint8
}

// Action is what an interceptor asks the driving loop to do next.
type Action int

const (
	Continue Action = iota
	Pause
)

// Interceptor observes every instruction boundary. It is handed to the
// driving loop, never stored in the CPU.
type Interceptor interface {
	OnInstruction(in Inspector) Action
}

// InterceptorFunc adapts a function to Interceptor.
type InterceptorFunc func(in Inspector) Action

func (f InterceptorFunc) OnInstruction(in Inspector) Action { return f(in) }

// Chain calls every interceptor in order and pauses if any of them asks to.
type Chain []Interceptor

func (c Chain) OnInstruction(in Inspector) Action {
	action := Continue
	for _, i := range c {
		if i.OnInstruction(in) == Pause {
			action = Pause
		}
	}
	return action
}

// Breakpoints pauses when PC reaches one of its addresses. It is safe to
// edit from another goroutine while the loop runs.
type Breakpoints struct {
	mu    sync.RWMutex
	addrs map[uint16]struct{}
	hits  int
}

func NewBreakpoints(addrs ...uint16) *Breakpoints {
	b := &Breakpoints{addrs: make(map[uint16]struct{})}
	for _, a := range addrs {
		b.addrs[a] = struct{}{}
	}
	return b
}

func (b *Breakpoints) Add(address uint16) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.addrs == nil {
		b.addrs = make(map[uint16]struct{})
	}
	b.addrs[address] = struct{}{}
}

func (b *Breakpoints) Remove(address uint16) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.addrs, address)
}

// Toggle flips the breakpoint at address and reports whether it is now set.
func (b *Breakpoints) Toggle(address uint16) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.addrs[address]; ok {
		delete(b.addrs, address)
		return false
	}
	if b.addrs == nil {
		b.addrs = make(map[uint16]struct{})
	}
	b.addrs[address] = struct{}{}
	return true
}

func (b *Breakpoints) Has(address uint16) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, ok := b.addrs[address]
	return ok
}

// List returns the addresses in ascending order.
func (b *Breakpoints) List() []uint16 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]uint16, 0, len(b.addrs))
	for a := range b.addrs {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (b *Breakpoints) Hits() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.hits
}

func (b *Breakpoints) OnInstruction(in Inspector) Action {
	pc := in.PC()
	b.mu.Lock()
	_, hit := b.addrs[pc]
	if hit {
		b.hits++
	}
	b.mu.Unlock()

	if !hit {
		return Continue
	}
	slog.Info("Breakpoint hit", "pc", fmt.Sprintf("0x%04X", pc), "cycles", in.Cycles())
	return Pause
}

// Trace writes one line per instruction in the usual 6502 log layout:
// address, raw bytes, disassembly, registers and cycle count.
type Trace struct {
	w io.Writer
}

func NewTrace(w io.Writer) *Trace {
	return &Trace{w: w}
}

func (t *Trace) OnInstruction(in Inspector) Action {
	fmt.Fprintln(t.w, TraceLine(in))
	return Continue
}

// TraceLine formats the instruction at the inspector's PC.
func TraceLine(in Inspector) string {
	pc := in.PC()
	line := disasm.DisassembleAt(pc, in)

	raw := make([]string, 0, 3)
	for i := 0; i < line.Length; i++ {
		raw = append(raw, fmt.Sprintf("%02X", in.Peek(pc+uint16(i))))
	}

	r := in.Registers()
	return fmt.Sprintf("%04X  %-8s  %-14s A:%02X X:%02X Y:%02X P:%02X SP:%02X CYC:%d",
		pc, strings.Join(raw, " "), line.Instruction, r.A, r.X, r.Y, r.P, r.S, in.Cycles())
}
