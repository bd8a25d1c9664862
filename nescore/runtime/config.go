package runtime

import (
	"errors"

	"github.com/valerio/go-nescore/nescore/debug"
	"github.com/valerio/go-nescore/nescore/timing"
)

var (
	// ErrStopped is returned by Handle methods once the runner has exited.
	ErrStopped = errors.New("runtime: runner stopped")
	// ErrNoHistory is returned by Rewind when no frames were recorded.
	ErrNoHistory = errors.New("runtime: no rewind history")
	// ErrInvalidPort is returned for controller ports other than 0 and 1.
	ErrInvalidPort = errors.New("runtime: invalid controller port")
)

// DefaultRewindCapacity keeps ten seconds of NTSC frames.
const DefaultRewindCapacity = 600

// Config holds configuration for a Runner.
type Config struct {
	Region      timing.Region
	Limiter     timing.Limiter    // nil runs unthrottled
	Interceptor debug.Interceptor // optional, consulted before every instruction

	StartPaused    bool
	RewindCapacity int    // frames of history, 0 disables rewind
	CycleLimit     uint64 // Run returns once the CPU has run this many cycles, 0 for no limit
}

// ResetKind selects what Handle.Reset does.
type ResetKind int

const (
	SoftReset ResetKind = iota
	PowerCycle
)

func (k ResetKind) String() string {
	if k == PowerCycle {
		return "power"
	}
	return "soft"
}
