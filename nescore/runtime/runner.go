package runtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/valerio/go-nescore/nescore"
	"github.com/valerio/go-nescore/nescore/bus"
	"github.com/valerio/go-nescore/nescore/debug"
	"github.com/valerio/go-nescore/nescore/timing"
)

var errStop = errors.New("stop requested")

// command runs on the emulation goroutine between two instructions.
type command struct {
	apply func(r *Runner) error
	reply chan error
}

// Runner owns a Console and drives it frame by frame on the goroutine that
// calls Run. Everything else talks to it through a Handle.
type Runner struct {
	console *nescore.Console
	cfg     Config
	limiter timing.Limiter

	commands chan command
	done     chan struct{}

	paused atomic.Bool
	pads   [2]atomic.Uint32
	frames atomic.Uint64

	// budget carries the cycles left in the current frame across pauses.
	budget        int
	skipIntercept bool
	stopping      bool
	history       *history
}

// New creates a runner for console. The console must not be touched by
// anything else once Run has started.
func New(console *nescore.Console, cfg Config) *Runner {
	limiter := cfg.Limiter
	if limiter == nil {
		limiter = timing.NewNoOpLimiter()
	}
	r := &Runner{
		console:  console,
		cfg:      cfg,
		limiter:  limiter,
		commands: make(chan command),
		done:     make(chan struct{}),
		history:  newHistory(cfg.RewindCapacity),
	}
	r.paused.Store(cfg.StartPaused)
	return r
}

// Handle returns a handle for controlling the runner from other goroutines.
func (r *Runner) Handle() *Handle {
	return &Handle{r: r}
}

// Run drives the console until ctx is cancelled, Stop is called or the
// configured cycle limit is reached. It returns nil on Stop or limit and
// ctx.Err() on cancellation.
func (r *Runner) Run(ctx context.Context) error {
	defer close(r.done)

	slog.Info("Runner started",
		"region", r.cfg.Region.String(),
		"paused", r.paused.Load(),
		"rewind", r.cfg.RewindCapacity)

	r.limiter.Reset()
	for {
		if err := r.service(ctx); err != nil {
			slog.Info("Runner stopped", "frames", r.frames.Load(), "cycles", r.console.Cycles())
			if errors.Is(err, errStop) {
				return nil
			}
			return err
		}
		if r.paused.Load() {
			continue
		}

		r.runFrame()
		if r.limitReached() {
			slog.Info("Cycle limit reached", "cycles", r.console.Cycles(), "frames", r.frames.Load())
			return nil
		}
		if !r.paused.Load() {
			r.limiter.WaitForNextFrame()
		}
	}
}

// service applies pending commands. While paused it blocks for at least one.
func (r *Runner) service(ctx context.Context) error {
	if r.paused.Load() && !r.stopping {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case cmd := <-r.commands:
			r.exec(cmd)
		}
	}
	for !r.stopping {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case cmd := <-r.commands:
			r.exec(cmd)
		default:
			return nil
		}
	}
	return errStop
}

func (r *Runner) exec(cmd command) {
	err := cmd.apply(r)
	if cmd.reply != nil {
		cmd.reply <- err
	}
}

// runFrame runs instructions until the frame's cycle budget is spent or an
// interceptor asks to pause.
func (r *Runner) runFrame() {
	r.applyPads()
	r.budget += r.cfg.Region.CyclesPerFrame()

	for r.budget > 0 {
		if r.intercept() {
			r.paused.Store(true)
			return
		}
		r.budget -= r.console.Step()
		if r.limitReached() {
			return
		}
	}

	r.frames.Add(1)
	r.record()
}

func (r *Runner) intercept() bool {
	if r.cfg.Interceptor == nil {
		return false
	}
	if r.skipIntercept {
		r.skipIntercept = false
		return false
	}
	if r.cfg.Interceptor.OnInstruction(r.console) != debug.Pause {
		return false
	}
	slog.Debug("Paused by interceptor", "pc", fmt.Sprintf("0x%04X", r.console.PC()))
	// Resuming must execute the instruction that caused the pause.
	r.skipIntercept = true
	return true
}

func (r *Runner) limitReached() bool {
	return r.cfg.CycleLimit > 0 && r.console.Cycles() >= r.cfg.CycleLimit
}

func (r *Runner) record() {
	if r.history == nil {
		return
	}
	data, err := r.console.Marshal()
	if err != nil {
		slog.Warn("Skipping rewind frame", "error", err)
		return
	}
	r.history.push(data)
}

func (r *Runner) applyPads() {
	for port := range r.pads {
		mask := r.pads[port].Load()
		pad := r.console.Controller(port)
		for b := bus.ButtonA; b <= bus.ButtonRight; b++ {
			pad.SetButton(b, mask&(1<<b) != 0)
		}
	}
}
