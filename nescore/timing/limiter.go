package timing

import "time"

// Limiter controls frame rate timing for emulation.
type Limiter interface {
	// WaitForNextFrame blocks until it's time for the next frame.
	// Returns immediately if timing is behind schedule.
	WaitForNextFrame()

	// Reset resets the timing state, useful after pauses.
	Reset()
}

// NewNoOpLimiter returns a limiter that doesn't limit (for headless mode).
func NewNoOpLimiter() Limiter {
	return &noOpLimiter{}
}

type noOpLimiter struct{}

func (n *noOpLimiter) WaitForNextFrame() {}
func (n *noOpLimiter) Reset()            {}

// Region selects the console clock.
type Region int

const (
	NTSC Region = iota
	PAL
)

func (r Region) String() string {
	if r == PAL {
		return "PAL"
	}
	return "NTSC"
}

// CPU clocks. A frame is counted in CPU cycles by the driving loop; the
// core itself never signals frame boundaries.
const (
	CPUFrequencyNTSC   = 1789773
	CyclesPerFrameNTSC = 29780
	CPUFrequencyPAL    = 1662607
	CyclesPerFramePAL  = 33247
)

// CyclesPerFrame returns the CPU cycles in one video frame.
func (r Region) CyclesPerFrame() int {
	if r == PAL {
		return CyclesPerFramePAL
	}
	return CyclesPerFrameNTSC
}

// CPUFrequency returns the CPU clock in Hz.
func (r Region) CPUFrequency() int {
	if r == PAL {
		return CPUFrequencyPAL
	}
	return CPUFrequencyNTSC
}

// TargetFPS calculates the exact frame rate for the region.
func (r Region) TargetFPS() float64 {
	return float64(r.CPUFrequency()) / float64(r.CyclesPerFrame())
}

// FrameDuration returns the target duration of a single frame.
func (r Region) FrameDuration() time.Duration {
	return time.Duration(float64(time.Second) / r.TargetFPS())
}
