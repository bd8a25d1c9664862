package disasm

import (
	"fmt"

	"github.com/valerio/go-nescore/nescore/bit"
	"github.com/valerio/go-nescore/nescore/cpu"
)

// Reader is a side-effect-free view of the CPU address space.
type Reader interface {
	Peek(address uint16) uint8
}

// DisassemblyLine represents a single disassembled instruction
type DisassemblyLine struct {
	Address     uint16
	Instruction string
	Length      int
}

// DisassembleAt disassembles the instruction at the given program counter
func DisassembleAt(pc uint16, r Reader) DisassemblyLine {
	instr := cpu.DefaultTable().Lookup(r.Peek(pc))

	var lo, hi uint8
	if instr.Bytes > 1 && pc < 0xFFFF {
		lo = r.Peek(pc + 1)
	}
	if instr.Bytes > 2 && pc < 0xFFFE {
		hi = r.Peek(pc + 2)
	}

	return DisassemblyLine{
		Address:     pc,
		Instruction: format(instr, pc, lo, hi),
		Length:      instr.Bytes,
	}
}

// DisassembleBytes disassembles the instruction at data[offset] for a
// buffer that starts at address base. Missing operand bytes read as zero.
func DisassembleBytes(data []byte, offset int, base uint16) (string, int) {
	if offset < 0 || offset >= len(data) {
		return "??", 1
	}
	instr := cpu.DefaultTable().Lookup(data[offset])

	var lo, hi uint8
	if offset+1 < len(data) {
		lo = data[offset+1]
	}
	if offset+2 < len(data) {
		hi = data[offset+2]
	}
	return format(instr, base+uint16(offset), lo, hi), instr.Bytes
}

func format(instr *cpu.Instruction, pc uint16, lo, hi uint8) string {
	name := instr.Mnemonic
	if instr.Illegal {
		name = "*" + name
	}

	word := bit.Combine(hi, lo)
	switch instr.Mode {
	case cpu.Implied:
		return name
	case cpu.Accumulator:
		return name + " A"
	case cpu.Immediate:
		return fmt.Sprintf("%s #$%02X", name, lo)
	case cpu.ZeroPage:
		return fmt.Sprintf("%s $%02X", name, lo)
	case cpu.ZeroPageX:
		return fmt.Sprintf("%s $%02X,X", name, lo)
	case cpu.ZeroPageY:
		return fmt.Sprintf("%s $%02X,Y", name, lo)
	case cpu.Absolute:
		return fmt.Sprintf("%s $%04X", name, word)
	case cpu.AbsoluteX:
		return fmt.Sprintf("%s $%04X,X", name, word)
	case cpu.AbsoluteY:
		return fmt.Sprintf("%s $%04X,Y", name, word)
	case cpu.Indirect:
		return fmt.Sprintf("%s ($%04X)", name, word)
	case cpu.IndirectX:
		return fmt.Sprintf("%s ($%02X,X)", name, lo)
	case cpu.IndirectY:
		return fmt.Sprintf("%s ($%02X),Y", name, lo)
	case cpu.Relative:
		target := pc + 2 + uint16(int8(lo))
		return fmt.Sprintf("%s $%04X", name, target)
	default:
		return name
	}
}

// DisassembleRange disassembles multiple instructions starting from the given PC
func DisassembleRange(startPC uint16, count int, r Reader) []DisassemblyLine {
	lines := make([]DisassemblyLine, 0, count)
	pc := startPC

	for i := 0; i < count; i++ {
		line := DisassembleAt(pc, r)
		lines = append(lines, line)
		next := pc + uint16(line.Length)
		if next < pc {
			break
		}
		pc = next
	}

	return lines
}

// DisassembleAround disassembles instructions around the given PC
// Returns instructions before, at, and after the PC
func DisassembleAround(currentPC uint16, beforeCount, afterCount int, r Reader) []DisassemblyLine {
	// Variable length instructions cannot be decoded backwards, so try start
	// points further back until one lands exactly on currentPC.
	for offset := beforeCount * 3; offset > 0; offset-- {
		if int(currentPC) < offset {
			continue
		}
		startPC := currentPC - uint16(offset)

		pc := startPC
		count := 0
		for pc < currentPC {
			next := pc + uint16(DisassembleAt(pc, r).Length)
			if next < pc {
				break
			}
			pc = next
			count++
		}
		if pc == currentPC && count >= beforeCount {
			lines := DisassembleRange(startPC, count+1+afterCount, r)
			return lines[count-beforeCount:]
		}
	}

	return DisassembleRange(currentPC, 1+afterCount, r)
}

// FormatDisassemblyLine formats a disassembly line for display
func FormatDisassemblyLine(line DisassemblyLine, isCurrentPC bool) string {
	prefix := " "
	if isCurrentPC {
		prefix = ">"
	}

	return fmt.Sprintf("%s$%04X: %s", prefix, line.Address, line.Instruction)
}
