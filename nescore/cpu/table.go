package cpu

import (
	"fmt"
	"sync"
)

// Mode is an addressing mode.
type Mode uint8

const (
	Implied Mode = iota
	Accumulator
	Immediate
	ZeroPage
	ZeroPageX
	ZeroPageY
	Absolute
	AbsoluteX
	AbsoluteY
	Indirect
	IndirectX
	IndirectY
	Relative
)

var modeNames = [...]string{
	"Implied", "Accumulator", "Immediate", "ZeroPage", "ZeroPageX", "ZeroPageY",
	"Absolute", "AbsoluteX", "AbsoluteY", "Indirect", "IndirectX", "IndirectY", "Relative",
}

func (m Mode) String() string {
	if int(m) < len(modeNames) {
		return modeNames[m]
	}
	return fmt.Sprintf("Mode(%d)", uint8(m))
}

// Bytes is the instruction length for an opcode in this mode.
func (m Mode) Bytes() int {
	switch m {
	case Implied, Accumulator:
		return 1
	case Absolute, AbsoluteX, AbsoluteY, Indirect:
		return 3
	default:
		return 2
	}
}

// Instruction is the immutable template for one opcode. Steps start after
// the opcode fetch, so Cycles = 1 + the mandatory steps.
type Instruction struct {
	Opcode   uint8
	Mnemonic string
	Mode     Mode
	Bytes    int
	// Cycles is the count without page-cross or branch penalties.
	Cycles int
	// PageSensitive marks reads that take one more cycle when indexing
	// crosses a page.
	PageSensitive bool
	Illegal       bool
	Steps         []Step
}

// Table maps every opcode to its template, plus the interrupt and reset
// sequences. It is built once and shared read-only between CPUs.
type Table struct {
	instructions [256]Instruction
	interrupt    []Step
	reset        []Step
}

var (
	defaultTable     *Table
	defaultTableOnce sync.Once
)

// DefaultTable returns a process-wide table, built on first use.
func DefaultTable() *Table {
	defaultTableOnce.Do(func() {
		defaultTable = NewTable()
	})
	return defaultTable
}

// Lookup returns the template for opcode.
func (t *Table) Lookup(opcode uint8) *Instruction {
	return &t.instructions[opcode]
}

type definition struct {
	opcode   uint8
	mnemonic string
	mode     Mode
	illegal  bool
	behavior
}

// behavior is how an opcode turns its addressing mode into steps.
type behavior struct {
	build func(Mode) template
	kind  access
}

func read(op readOp) behavior {
	return behavior{func(m Mode) template { return readSteps(m, op) }, accessRead}
}

func write(op writeOp) behavior {
	return behavior{func(m Mode) template { return writeSteps(m, op) }, accessWrite}
}

func rmw(op rmwOp) behavior {
	return behavior{func(m Mode) template { return rmwSteps(m, op) }, accessRMW}
}

func implied(op impliedOp) behavior {
	return behavior{func(Mode) template { return impliedSteps(op) }, accessRead}
}

func branch(cond func(c *CPU) bool) behavior {
	return behavior{func(Mode) template { return branchSteps(cond) }, accessRead}
}

func fixed(build func() template) behavior {
	return behavior{func(Mode) template { return build() }, accessRead}
}

func def(opcode uint8, mnemonic string, mode Mode, b behavior) definition {
	return definition{opcode: opcode, mnemonic: mnemonic, mode: mode, behavior: b}
}

func illegal(opcode uint8, mnemonic string, mode Mode, b behavior) definition {
	d := def(opcode, mnemonic, mode, b)
	d.illegal = true
	return d
}

// NewTable builds the 256 opcode templates.
func NewTable() *Table {
	t := &Table{
		interrupt: interruptSteps(),
		reset:     resetSteps(),
	}

	var seen [256]bool
	for _, d := range definitions() {
		if seen[d.opcode] {
			panic(fmt.Sprintf("cpu: opcode 0x%02X defined twice", d.opcode))
		}
		seen[d.opcode] = true

		tmpl := d.build(d.mode)
		instr := Instruction{
			Opcode:   d.opcode,
			Mnemonic: d.mnemonic,
			Mode:     d.mode,
			Bytes:    d.mode.Bytes(),
			Cycles:   1 + len(tmpl.steps) - tmpl.optional,
			Illegal:  d.illegal,
			Steps:    tmpl.steps,
		}
		if d.kind == accessRead {
			switch d.mode {
			case AbsoluteX, AbsoluteY, IndirectY:
				instr.PageSensitive = true
			}
		}
		t.instructions[d.opcode] = instr
	}
	for opcode, ok := range seen {
		if !ok {
			panic(fmt.Sprintf("cpu: opcode 0x%02X missing", opcode))
		}
	}

	return t
}

func definitions() []definition {
	return []definition{
		def(0x00, "BRK", Implied, fixed(brkSteps)),
		def(0x01, "ORA", IndirectX, read(ora)),
		illegal(0x02, "JAM", Implied, fixed(jamSteps)),
		illegal(0x03, "SLO", IndirectX, rmw(slo)),
		illegal(0x04, "NOP", ZeroPage, read(nopRead)),
		def(0x05, "ORA", ZeroPage, read(ora)),
		def(0x06, "ASL", ZeroPage, rmw(asl)),
		illegal(0x07, "SLO", ZeroPage, rmw(slo)),
		def(0x08, "PHP", Implied, fixed(phpSteps)),
		def(0x09, "ORA", Immediate, read(ora)),
		def(0x0A, "ASL", Accumulator, rmw(asl)),
		illegal(0x0B, "ANC", Immediate, read(anc)),
		illegal(0x0C, "NOP", Absolute, read(nopRead)),
		def(0x0D, "ORA", Absolute, read(ora)),
		def(0x0E, "ASL", Absolute, rmw(asl)),
		illegal(0x0F, "SLO", Absolute, rmw(slo)),

		def(0x10, "BPL", Relative, branch(bpl)),
		def(0x11, "ORA", IndirectY, read(ora)),
		illegal(0x12, "JAM", Implied, fixed(jamSteps)),
		illegal(0x13, "SLO", IndirectY, rmw(slo)),
		illegal(0x14, "NOP", ZeroPageX, read(nopRead)),
		def(0x15, "ORA", ZeroPageX, read(ora)),
		def(0x16, "ASL", ZeroPageX, rmw(asl)),
		illegal(0x17, "SLO", ZeroPageX, rmw(slo)),
		def(0x18, "CLC", Implied, implied(clc)),
		def(0x19, "ORA", AbsoluteY, read(ora)),
		illegal(0x1A, "NOP", Implied, implied(nop)),
		illegal(0x1B, "SLO", AbsoluteY, rmw(slo)),
		illegal(0x1C, "NOP", AbsoluteX, read(nopRead)),
		def(0x1D, "ORA", AbsoluteX, read(ora)),
		def(0x1E, "ASL", AbsoluteX, rmw(asl)),
		illegal(0x1F, "SLO", AbsoluteX, rmw(slo)),

		def(0x20, "JSR", Absolute, fixed(jsrSteps)),
		def(0x21, "AND", IndirectX, read(and)),
		illegal(0x22, "JAM", Implied, fixed(jamSteps)),
		illegal(0x23, "RLA", IndirectX, rmw(rla)),
		def(0x24, "BIT", ZeroPage, read(bitTest)),
		def(0x25, "AND", ZeroPage, read(and)),
		def(0x26, "ROL", ZeroPage, rmw(rol)),
		illegal(0x27, "RLA", ZeroPage, rmw(rla)),
		def(0x28, "PLP", Implied, fixed(plpSteps)),
		def(0x29, "AND", Immediate, read(and)),
		def(0x2A, "ROL", Accumulator, rmw(rol)),
		illegal(0x2B, "ANC", Immediate, read(anc)),
		def(0x2C, "BIT", Absolute, read(bitTest)),
		def(0x2D, "AND", Absolute, read(and)),
		def(0x2E, "ROL", Absolute, rmw(rol)),
		illegal(0x2F, "RLA", Absolute, rmw(rla)),

		def(0x30, "BMI", Relative, branch(bmi)),
		def(0x31, "AND", IndirectY, read(and)),
		illegal(0x32, "JAM", Implied, fixed(jamSteps)),
		illegal(0x33, "RLA", IndirectY, rmw(rla)),
		illegal(0x34, "NOP", ZeroPageX, read(nopRead)),
		def(0x35, "AND", ZeroPageX, read(and)),
		def(0x36, "ROL", ZeroPageX, rmw(rol)),
		illegal(0x37, "RLA", ZeroPageX, rmw(rla)),
		def(0x38, "SEC", Implied, implied(sec)),
		def(0x39, "AND", AbsoluteY, read(and)),
		illegal(0x3A, "NOP", Implied, implied(nop)),
		illegal(0x3B, "RLA", AbsoluteY, rmw(rla)),
		illegal(0x3C, "NOP", AbsoluteX, read(nopRead)),
		def(0x3D, "AND", AbsoluteX, read(and)),
		def(0x3E, "ROL", AbsoluteX, rmw(rol)),
		illegal(0x3F, "RLA", AbsoluteX, rmw(rla)),

		def(0x40, "RTI", Implied, fixed(rtiSteps)),
		def(0x41, "EOR", IndirectX, read(eor)),
		illegal(0x42, "JAM", Implied, fixed(jamSteps)),
		illegal(0x43, "SRE", IndirectX, rmw(sre)),
		illegal(0x44, "NOP", ZeroPage, read(nopRead)),
		def(0x45, "EOR", ZeroPage, read(eor)),
		def(0x46, "LSR", ZeroPage, rmw(lsr)),
		illegal(0x47, "SRE", ZeroPage, rmw(sre)),
		def(0x48, "PHA", Implied, fixed(phaSteps)),
		def(0x49, "EOR", Immediate, read(eor)),
		def(0x4A, "LSR", Accumulator, rmw(lsr)),
		illegal(0x4B, "ALR", Immediate, read(alr)),
		def(0x4C, "JMP", Absolute, fixed(jmpAbsoluteSteps)),
		def(0x4D, "EOR", Absolute, read(eor)),
		def(0x4E, "LSR", Absolute, rmw(lsr)),
		illegal(0x4F, "SRE", Absolute, rmw(sre)),

		def(0x50, "BVC", Relative, branch(bvc)),
		def(0x51, "EOR", IndirectY, read(eor)),
		illegal(0x52, "JAM", Implied, fixed(jamSteps)),
		illegal(0x53, "SRE", IndirectY, rmw(sre)),
		illegal(0x54, "NOP", ZeroPageX, read(nopRead)),
		def(0x55, "EOR", ZeroPageX, read(eor)),
		def(0x56, "LSR", ZeroPageX, rmw(lsr)),
		illegal(0x57, "SRE", ZeroPageX, rmw(sre)),
		def(0x58, "CLI", Implied, implied(cli)),
		def(0x59, "EOR", AbsoluteY, read(eor)),
		illegal(0x5A, "NOP", Implied, implied(nop)),
		illegal(0x5B, "SRE", AbsoluteY, rmw(sre)),
		illegal(0x5C, "NOP", AbsoluteX, read(nopRead)),
		def(0x5D, "EOR", AbsoluteX, read(eor)),
		def(0x5E, "LSR", AbsoluteX, rmw(lsr)),
		illegal(0x5F, "SRE", AbsoluteX, rmw(sre)),

		def(0x60, "RTS", Implied, fixed(rtsSteps)),
		def(0x61, "ADC", IndirectX, read(adc)),
		illegal(0x62, "JAM", Implied, fixed(jamSteps)),
		illegal(0x63, "RRA", IndirectX, rmw(rra)),
		illegal(0x64, "NOP", ZeroPage, read(nopRead)),
		def(0x65, "ADC", ZeroPage, read(adc)),
		def(0x66, "ROR", ZeroPage, rmw(ror)),
		illegal(0x67, "RRA", ZeroPage, rmw(rra)),
		def(0x68, "PLA", Implied, fixed(plaSteps)),
		def(0x69, "ADC", Immediate, read(adc)),
		def(0x6A, "ROR", Accumulator, rmw(ror)),
		illegal(0x6B, "ARR", Immediate, read(arr)),
		def(0x6C, "JMP", Indirect, fixed(jmpIndirectSteps)),
		def(0x6D, "ADC", Absolute, read(adc)),
		def(0x6E, "ROR", Absolute, rmw(ror)),
		illegal(0x6F, "RRA", Absolute, rmw(rra)),

		def(0x70, "BVS", Relative, branch(bvs)),
		def(0x71, "ADC", IndirectY, read(adc)),
		illegal(0x72, "JAM", Implied, fixed(jamSteps)),
		illegal(0x73, "RRA", IndirectY, rmw(rra)),
		illegal(0x74, "NOP", ZeroPageX, read(nopRead)),
		def(0x75, "ADC", ZeroPageX, read(adc)),
		def(0x76, "ROR", ZeroPageX, rmw(ror)),
		illegal(0x77, "RRA", ZeroPageX, rmw(rra)),
		def(0x78, "SEI", Implied, implied(sei)),
		def(0x79, "ADC", AbsoluteY, read(adc)),
		illegal(0x7A, "NOP", Implied, implied(nop)),
		illegal(0x7B, "RRA", AbsoluteY, rmw(rra)),
		illegal(0x7C, "NOP", AbsoluteX, read(nopRead)),
		def(0x7D, "ADC", AbsoluteX, read(adc)),
		def(0x7E, "ROR", AbsoluteX, rmw(ror)),
		illegal(0x7F, "RRA", AbsoluteX, rmw(rra)),

		illegal(0x80, "NOP", Immediate, read(nopRead)),
		def(0x81, "STA", IndirectX, write(sta)),
		illegal(0x82, "NOP", Immediate, read(nopRead)),
		illegal(0x83, "SAX", IndirectX, write(sax)),
		def(0x84, "STY", ZeroPage, write(sty)),
		def(0x85, "STA", ZeroPage, write(sta)),
		def(0x86, "STX", ZeroPage, write(stx)),
		illegal(0x87, "SAX", ZeroPage, write(sax)),
		def(0x88, "DEY", Implied, implied(dey)),
		illegal(0x89, "NOP", Immediate, read(nopRead)),
		def(0x8A, "TXA", Implied, implied(txa)),
		illegal(0x8B, "XAA", Immediate, read(xaa)),
		def(0x8C, "STY", Absolute, write(sty)),
		def(0x8D, "STA", Absolute, write(sta)),
		def(0x8E, "STX", Absolute, write(stx)),
		illegal(0x8F, "SAX", Absolute, write(sax)),

		def(0x90, "BCC", Relative, branch(bcc)),
		def(0x91, "STA", IndirectY, write(sta)),
		illegal(0x92, "JAM", Implied, fixed(jamSteps)),
		illegal(0x93, "SHA", IndirectY, write(sha)),
		def(0x94, "STY", ZeroPageX, write(sty)),
		def(0x95, "STA", ZeroPageX, write(sta)),
		def(0x96, "STX", ZeroPageY, write(stx)),
		illegal(0x97, "SAX", ZeroPageY, write(sax)),
		def(0x98, "TYA", Implied, implied(tya)),
		def(0x99, "STA", AbsoluteY, write(sta)),
		def(0x9A, "TXS", Implied, implied(txs)),
		illegal(0x9B, "TAS", AbsoluteY, write(tas)),
		illegal(0x9C, "SHY", AbsoluteX, write(shy)),
		def(0x9D, "STA", AbsoluteX, write(sta)),
		illegal(0x9E, "SHX", AbsoluteY, write(shx)),
		illegal(0x9F, "SHA", AbsoluteY, write(sha)),

		def(0xA0, "LDY", Immediate, read(ldy)),
		def(0xA1, "LDA", IndirectX, read(lda)),
		def(0xA2, "LDX", Immediate, read(ldx)),
		illegal(0xA3, "LAX", IndirectX, read(lax)),
		def(0xA4, "LDY", ZeroPage, read(ldy)),
		def(0xA5, "LDA", ZeroPage, read(lda)),
		def(0xA6, "LDX", ZeroPage, read(ldx)),
		illegal(0xA7, "LAX", ZeroPage, read(lax)),
		def(0xA8, "TAY", Implied, implied(tay)),
		def(0xA9, "LDA", Immediate, read(lda)),
		def(0xAA, "TAX", Implied, implied(tax)),
		illegal(0xAB, "LAX", Immediate, read(lxa)),
		def(0xAC, "LDY", Absolute, read(ldy)),
		def(0xAD, "LDA", Absolute, read(lda)),
		def(0xAE, "LDX", Absolute, read(ldx)),
		illegal(0xAF, "LAX", Absolute, read(lax)),

		def(0xB0, "BCS", Relative, branch(bcs)),
		def(0xB1, "LDA", IndirectY, read(lda)),
		illegal(0xB2, "JAM", Implied, fixed(jamSteps)),
		illegal(0xB3, "LAX", IndirectY, read(lax)),
		def(0xB4, "LDY", ZeroPageX, read(ldy)),
		def(0xB5, "LDA", ZeroPageX, read(lda)),
		def(0xB6, "LDX", ZeroPageY, read(ldx)),
		illegal(0xB7, "LAX", ZeroPageY, read(lax)),
		def(0xB8, "CLV", Implied, implied(clv)),
		def(0xB9, "LDA", AbsoluteY, read(lda)),
		def(0xBA, "TSX", Implied, implied(tsx)),
		illegal(0xBB, "LAS", AbsoluteY, read(las)),
		def(0xBC, "LDY", AbsoluteX, read(ldy)),
		def(0xBD, "LDA", AbsoluteX, read(lda)),
		def(0xBE, "LDX", AbsoluteY, read(ldx)),
		illegal(0xBF, "LAX", AbsoluteY, read(lax)),

		def(0xC0, "CPY", Immediate, read(cpy)),
		def(0xC1, "CMP", IndirectX, read(cmp)),
		illegal(0xC2, "NOP", Immediate, read(nopRead)),
		illegal(0xC3, "DCP", IndirectX, rmw(dcp)),
		def(0xC4, "CPY", ZeroPage, read(cpy)),
		def(0xC5, "CMP", ZeroPage, read(cmp)),
		def(0xC6, "DEC", ZeroPage, rmw(dec)),
		illegal(0xC7, "DCP", ZeroPage, rmw(dcp)),
		def(0xC8, "INY", Implied, implied(iny)),
		def(0xC9, "CMP", Immediate, read(cmp)),
		def(0xCA, "DEX", Implied, implied(dex)),
		illegal(0xCB, "AXS", Immediate, read(axs)),
		def(0xCC, "CPY", Absolute, read(cpy)),
		def(0xCD, "CMP", Absolute, read(cmp)),
		def(0xCE, "DEC", Absolute, rmw(dec)),
		illegal(0xCF, "DCP", Absolute, rmw(dcp)),

		def(0xD0, "BNE", Relative, branch(bne)),
		def(0xD1, "CMP", IndirectY, read(cmp)),
		illegal(0xD2, "JAM", Implied, fixed(jamSteps)),
		illegal(0xD3, "DCP", IndirectY, rmw(dcp)),
		illegal(0xD4, "NOP", ZeroPageX, read(nopRead)),
		def(0xD5, "CMP", ZeroPageX, read(cmp)),
		def(0xD6, "DEC", ZeroPageX, rmw(dec)),
		illegal(0xD7, "DCP", ZeroPageX, rmw(dcp)),
		def(0xD8, "CLD", Implied, implied(cld)),
		def(0xD9, "CMP", AbsoluteY, read(cmp)),
		illegal(0xDA, "NOP", Implied, implied(nop)),
		illegal(0xDB, "DCP", AbsoluteY, rmw(dcp)),
		illegal(0xDC, "NOP", AbsoluteX, read(nopRead)),
		def(0xDD, "CMP", AbsoluteX, read(cmp)),
		def(0xDE, "DEC", AbsoluteX, rmw(dec)),
		illegal(0xDF, "DCP", AbsoluteX, rmw(dcp)),

		def(0xE0, "CPX", Immediate, read(cpx)),
		def(0xE1, "SBC", IndirectX, read(sbc)),
		illegal(0xE2, "NOP", Immediate, read(nopRead)),
		illegal(0xE3, "ISC", IndirectX, rmw(isc)),
		def(0xE4, "CPX", ZeroPage, read(cpx)),
		def(0xE5, "SBC", ZeroPage, read(sbc)),
		def(0xE6, "INC", ZeroPage, rmw(inc)),
		illegal(0xE7, "ISC", ZeroPage, rmw(isc)),
		def(0xE8, "INX", Implied, implied(inx)),
		def(0xE9, "SBC", Immediate, read(sbc)),
		def(0xEA, "NOP", Implied, implied(nop)),
		illegal(0xEB, "SBC", Immediate, read(sbc)),
		def(0xEC, "CPX", Absolute, read(cpx)),
		def(0xED, "SBC", Absolute, read(sbc)),
		def(0xEE, "INC", Absolute, rmw(inc)),
		illegal(0xEF, "ISC", Absolute, rmw(isc)),

		def(0xF0, "BEQ", Relative, branch(beq)),
		def(0xF1, "SBC", IndirectY, read(sbc)),
		illegal(0xF2, "JAM", Implied, fixed(jamSteps)),
		illegal(0xF3, "ISC", IndirectY, rmw(isc)),
		illegal(0xF4, "NOP", ZeroPageX, read(nopRead)),
		def(0xF5, "SBC", ZeroPageX, read(sbc)),
		def(0xF6, "INC", ZeroPageX, rmw(inc)),
		illegal(0xF7, "ISC", ZeroPageX, rmw(isc)),
		def(0xF8, "SED", Implied, implied(sed)),
		def(0xF9, "SBC", AbsoluteY, read(sbc)),
		illegal(0xFA, "NOP", Implied, implied(nop)),
		illegal(0xFB, "ISC", AbsoluteY, rmw(isc)),
		illegal(0xFC, "NOP", AbsoluteX, read(nopRead)),
		def(0xFD, "SBC", AbsoluteX, read(sbc)),
		def(0xFE, "INC", AbsoluteX, rmw(inc)),
		illegal(0xFF, "ISC", AbsoluteX, rmw(isc)),
	}
}
