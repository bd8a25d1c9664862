package runtime

import (
	"errors"
	"log/slog"

	"github.com/valerio/go-nescore/nescore/bus"
	"github.com/valerio/go-nescore/nescore/debug"
)

// Handle controls a Runner from any goroutine. Every call except Paused,
// Frames and SetButton is applied on the emulation goroutine between two
// instructions and waits for it to finish.
type Handle struct {
	r *Runner
}

func (h *Handle) do(f func(r *Runner) error) error {
	cmd := command{apply: f, reply: make(chan error, 1)}
	select {
	case h.r.commands <- cmd:
	case <-h.r.done:
		return ErrStopped
	}
	select {
	case err := <-cmd.reply:
		return err
	case <-h.r.done:
		select {
		case err := <-cmd.reply:
			return err
		default:
			return ErrStopped
		}
	}
}

// Done is closed when the runner has exited.
func (h *Handle) Done() <-chan struct{} {
	return h.r.done
}

// Paused reports whether the runner is paused.
func (h *Handle) Paused() bool {
	return h.r.paused.Load()
}

// Frames returns the number of frames completed so far.
func (h *Handle) Frames() uint64 {
	return h.r.frames.Load()
}

// Pause stops the runner after the current frame.
func (h *Handle) Pause() error {
	return h.do(func(r *Runner) error {
		if !r.paused.Swap(true) {
			slog.Debug("Paused")
		}
		return nil
	})
}

// Resume continues a paused runner.
func (h *Handle) Resume() error {
	return h.do(func(r *Runner) error {
		if r.paused.Swap(false) {
			r.limiter.Reset()
			slog.Debug("Resumed")
		}
		return nil
	})
}

// Step pauses the runner and executes exactly one instruction, returning
// the cycles it took.
func (h *Handle) Step() (int, error) {
	var cycles int
	err := h.do(func(r *Runner) error {
		r.paused.Store(true)
		r.applyPads()
		cycles = r.console.Step()
		r.budget -= cycles
		r.skipIntercept = false
		return nil
	})
	return cycles, err
}

// SaveState serializes the console.
func (h *Handle) SaveState() ([]byte, error) {
	var data []byte
	err := h.do(func(r *Runner) error {
		var err error
		data, err = r.console.Marshal()
		return err
	})
	return data, err
}

// LoadState restores a state produced by SaveState. A rejected state leaves
// the console unchanged.
func (h *Handle) LoadState(data []byte) error {
	return h.do(func(r *Runner) error {
		if err := r.console.Unmarshal(data); err != nil {
			return err
		}
		r.budget = 0
		r.skipIntercept = false
		return nil
	})
}

// Reset resets the console and drops the rewind history.
func (h *Handle) Reset(kind ResetKind) error {
	return h.do(func(r *Runner) error {
		switch kind {
		case PowerCycle:
			r.console.PowerCycle()
		default:
			r.console.Reset()
		}
		r.history.clear()
		r.budget = 0
		r.skipIntercept = false
		slog.Info("Console reset", "kind", kind.String())
		return nil
	})
}

// Rewind restores the state recorded the given number of frames ago and
// discards every newer frame.
func (h *Handle) Rewind(frames int) error {
	return h.do(func(r *Runner) error {
		data, ok := r.history.pop(frames)
		if !ok {
			return ErrNoHistory
		}
		if err := r.console.Unmarshal(data); err != nil {
			return err
		}
		r.budget = 0
		r.skipIntercept = false
		return nil
	})
}

// RewindDepth returns the number of frames available to Rewind.
func (h *Handle) RewindDepth() (int, error) {
	var n int
	err := h.do(func(r *Runner) error {
		n = r.history.len()
		return nil
	})
	return n, err
}

// SetButton updates the held buttons of a controller. The change is seen by
// the console at the start of the next frame or step.
func (h *Handle) SetButton(port int, b bus.Button, pressed bool) error {
	if port < 0 || port >= len(h.r.pads) {
		return ErrInvalidPort
	}
	if pressed {
		h.r.pads[port].Or(1 << b)
	} else {
		h.r.pads[port].And(^uint32(1 << b))
	}
	return nil
}

// DebugData collects a debug view of the console.
func (h *Handle) DebugData() (*debug.CompleteDebugData, error) {
	var data *debug.CompleteDebugData
	err := h.do(func(r *Runner) error {
		data = r.console.ExtractDebugData()
		if data != nil && r.paused.Load() {
			data.DebuggerState = debug.DebuggerPaused
		}
		return nil
	})
	return data, err
}

// Stop ends Run and waits for it to return. Stopping a stopped runner is a
// no-op.
func (h *Handle) Stop() error {
	err := h.do(func(r *Runner) error {
		r.stopping = true
		return nil
	})
	if errors.Is(err, ErrStopped) {
		return nil
	}
	<-h.r.done
	return err
}
