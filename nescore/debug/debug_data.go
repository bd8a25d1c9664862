package debug

// CPUState contains all CPU register information for debugging
type CPUState struct {
	A  uint8
	X  uint8
	Y  uint8
	S  uint8
	P  uint8
	PC uint16

	Cycles     uint64
	Halted     bool
	NMIPending bool
}

// MemorySnapshot contains a snapshot of memory for disassembly
type MemorySnapshot struct {
	StartAddr uint16
	Bytes     []uint8
}

// Contains reports whether address falls inside the snapshot.
func (m *MemorySnapshot) Contains(address uint16) bool {
	return m != nil && address >= m.StartAddr && int(address-m.StartAddr) < len(m.Bytes)
}

// DebuggerState represents the current debugger state
type DebuggerState int

const (
	DebuggerRunning DebuggerState = iota
	DebuggerPaused
	DebuggerStepInstruction
	DebuggerStepFrame
)

func (s DebuggerState) String() string {
	switch s {
	case DebuggerRunning:
		return "running"
	case DebuggerPaused:
		return "paused"
	case DebuggerStepInstruction:
		return "step"
	case DebuggerStepFrame:
		return "frame"
	}
	return "unknown"
}

// CompleteDebugData contains all debug information needed by debug displays
type CompleteDebugData struct {
	CPU           *CPUState
	Memory        *MemorySnapshot // code around PC
	ZeroPage      *MemorySnapshot
	Stack         *MemorySnapshot
	DebuggerState DebuggerState
	IRQSources    uint8 // bus IRQ lines, one bit per source
	NMILine       bool
	OpenBus       uint8
}
