package debug

import (
	"github.com/valerio/go-nescore/nescore/disasm"
)

type DisasmLine struct {
	Address     uint16
	Instruction string
	IsCurrent   bool
}

// DisasmBuffer holds pre-allocated buffers for disassembly lines
type DisasmBuffer struct {
	Lines    []DisasmLine
	AllLines []DisasmLine
}

func NewDisasmBuffer(maxLines int) *DisasmBuffer {
	return &DisasmBuffer{
		Lines:    make([]DisasmLine, 0, maxLines),
		AllLines: make([]DisasmLine, 0, maxLines*3),
	}
}

func CreateDisassembly(snapshot *MemorySnapshot, pc uint16, maxLines int) []DisasmLine {
	buf := NewDisasmBuffer(maxLines)
	return CreateDisassemblyWithBuffer(snapshot, pc, maxLines, buf)
}

// CreateDisassemblyWithBuffer decodes the snapshot and returns at most
// maxLines lines, centered on pc when pc is inside the snapshot.
func CreateDisassemblyWithBuffer(snapshot *MemorySnapshot, pc uint16, maxLines int, buf *DisasmBuffer) []DisasmLine {
	if snapshot == nil || maxLines <= 0 {
		return nil
	}

	if !snapshot.Contains(pc) {
		buf.Lines = buf.Lines[:0]
		for i := 0; i < len(snapshot.Bytes) && len(buf.Lines) < maxLines-1; {
			instruction, length := disasm.DisassembleBytes(snapshot.Bytes, i, snapshot.StartAddr)
			buf.Lines = append(buf.Lines, DisasmLine{
				Address:     snapshot.StartAddr + uint16(i),
				Instruction: instruction,
			})
			i += length
		}
		buf.Lines = append(buf.Lines, DisasmLine{
			Address:     pc,
			Instruction: "[PC outside snapshot range]",
			IsCurrent:   true,
		})
		return buf.Lines
	}

	// Snapshots are taken starting at PC or a few bytes before it, so
	// decoding from the start lands on PC in practice. When it does not, the
	// closest decoded line is used as the center.
	buf.AllLines = buf.AllLines[:0]
	pcIndex, closest := -1, 0
	closestDist := 0x10000
	for i := 0; i < len(snapshot.Bytes); {
		address := snapshot.StartAddr + uint16(i)
		instruction, length := disasm.DisassembleBytes(snapshot.Bytes, i, snapshot.StartAddr)
		buf.AllLines = append(buf.AllLines, DisasmLine{
			Address:     address,
			Instruction: instruction,
			IsCurrent:   address == pc,
		})
		if address == pc {
			pcIndex = len(buf.AllLines) - 1
		}
		if dist := absDiff(address, pc); dist < closestDist {
			closestDist, closest = dist, len(buf.AllLines)-1
		}
		i += length
	}

	center := pcIndex
	if center < 0 {
		center = closest
	}

	startIdx := center - maxLines/2
	if startIdx < 0 {
		startIdx = 0
	}
	endIdx := startIdx + maxLines
	if endIdx > len(buf.AllLines) {
		endIdx = len(buf.AllLines)
		startIdx = endIdx - maxLines
		if startIdx < 0 {
			startIdx = 0
		}
	}

	buf.Lines = buf.Lines[:0]
	buf.Lines = append(buf.Lines, buf.AllLines[startIdx:endIdx]...)
	return buf.Lines
}

func absDiff(a, b uint16) int {
	if a > b {
		return int(a - b)
	}
	return int(b - a)
}
