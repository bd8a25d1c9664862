package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/urfave/cli"
	"golang.org/x/term"

	"github.com/valerio/go-nescore/nescore"
	"github.com/valerio/go-nescore/nescore/cartridge"
	"github.com/valerio/go-nescore/nescore/debug"
	"github.com/valerio/go-nescore/nescore/monitor"
	"github.com/valerio/go-nescore/nescore/runtime"
	"github.com/valerio/go-nescore/nescore/script"
	"github.com/valerio/go-nescore/nescore/state"
	"github.com/valerio/go-nescore/nescore/timing"
)

func main() {
	app := cli.NewApp()
	app.Name = "nescore"
	app.Description = "A cycle accurate NES CPU core"
	app.Usage = "nescore <command> [options] <ROM file>"
	app.Version = "1.0.0"
	app.Flags = []cli.Flag{
		cli.BoolFlag{
			Name:  "allow-archaic",
			Usage: "Accept pre-NES 2.0 headers with garbage in bytes 7-15",
		},
	}
	app.Commands = []cli.Command{
		{
			Name:      "info",
			Usage:     "Print the cartridge header",
			ArgsUsage: "<ROM file>",
			Action:    runInfo,
		},
		{
			Name:      "run",
			Usage:     "Run headless",
			ArgsUsage: "<ROM file>",
			Action:    runHeadless,
			Flags: []cli.Flag{
				cli.Uint64Flag{
					Name:  "cycles",
					Usage: "Stop after this many CPU cycles (0 = until interrupted)",
				},
				cli.StringFlag{
					Name:  "script",
					Usage: "Lua script with an on_instruction(pc, opcode) hook; returning true stops the run",
				},
				cli.StringFlag{
					Name:  "state-in",
					Usage: "Load this state file before running",
				},
				cli.StringFlag{
					Name:  "state-out",
					Usage: "Write the final state to this file",
				},
				cli.BoolFlag{
					Name:  "trace",
					Usage: "Write one line per instruction to stderr",
				},
				cli.BoolFlag{
					Name:  "realtime",
					Usage: "Pace the run to the console frame rate",
				},
				cli.StringFlag{
					Name:  "statsview",
					Usage: "Serve runtime statistics on this address (e.g. localhost:12600)",
				},
			},
		},
		{
			Name:      "monitor",
			Usage:     "Run with the terminal monitor",
			ArgsUsage: "<ROM file>",
			Action:    runMonitor,
			Flags: []cli.Flag{
				cli.BoolFlag{
					Name:  "paused",
					Usage: "Start paused",
				},
				cli.StringSliceFlag{
					Name:  "break",
					Usage: "Pause when PC reaches this hex address (repeatable)",
				},
				cli.StringFlag{
					Name:  "script",
					Usage: "Lua script with an on_instruction(pc, opcode) hook; returning true pauses",
				},
			},
		},
		{
			Name:      "graph",
			Usage:     "Write a dot graph of the machine state",
			ArgsUsage: "<ROM file>",
			Action:    runGraph,
			Flags: []cli.Flag{
				cli.Uint64Flag{
					Name:  "cycles",
					Usage: "Run this many CPU cycles first",
				},
				cli.StringFlag{
					Name:  "out",
					Usage: "Output file (default: stdout)",
				},
			},
		},
	}

	err := app.Run(os.Args)
	if err != nil {
		slog.Error("Error running emulator", "error", err)
		os.Exit(1)
	}
}

func loadCartridge(c *cli.Context) (*cartridge.Cartridge, error) {
	if c.NArg() == 0 {
		cli.ShowCommandHelp(c, c.Command.Name)
		return nil, errors.New("no ROM path provided")
	}
	path := c.Args().First()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cart, err := cartridge.Load(data, cartridge.LoadOptions{AllowArchaic: c.GlobalBool("allow-archaic")})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	slog.Info("Loaded ROM file", "path", path, "mapper", cart.Mapper.Name())
	return cart, nil
}

func regionOf(cart *cartridge.Cartridge) timing.Region {
	if cart.Header.Timing == cartridge.TimingPAL || cart.Header.Timing == cartridge.TimingDendy {
		return timing.PAL
	}
	return timing.NTSC
}

func runInfo(c *cli.Context) error {
	cart, err := loadCartridge(c)
	if err != nil {
		return err
	}

	h := cart.Header
	w := c.App.Writer
	fmt.Fprintf(w, "Format:     %s\n", h.Format)
	fmt.Fprintf(w, "Mapper:     %d.%d (%s)\n", h.Mapper, h.Submapper, cart.Mapper.Name())
	fmt.Fprintf(w, "Console:    %s\n", h.Console)
	fmt.Fprintf(w, "Timing:     %s\n", h.Timing)
	fmt.Fprintf(w, "Mirroring:  %s\n", h.Mirroring)
	fmt.Fprintf(w, "PRG ROM:    %d KiB\n", h.PRGROMSize/1024)
	fmt.Fprintf(w, "CHR ROM:    %d KiB\n", h.CHRROMSize/1024)
	fmt.Fprintf(w, "PRG RAM:    %d bytes (%d battery backed)\n", h.PRGRAMTotal(), h.PRGNVRAMSize)
	fmt.Fprintf(w, "CHR RAM:    %d bytes\n", h.CHRRAMTotal())
	fmt.Fprintf(w, "Battery:    %v\n", h.Battery)
	fmt.Fprintf(w, "Trainer:    %v\n", h.Trainer)
	fmt.Fprintf(w, "SHA-256:    %x\n", cart.Hash)
	return nil
}

func runHeadless(c *cli.Context) error {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	})
	slog.SetDefault(slog.New(handler))

	cart, err := loadCartridge(c)
	if err != nil {
		return err
	}
	console := nescore.New(cart)

	if path := c.String("state-in"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		// A state can only be loaded at an instruction boundary, so the
		// reset sequence runs first.
		console.Step()
		if err := console.Unmarshal(data); err != nil {
			return fmt.Errorf("loading %s: %w", path, err)
		}
		slog.Info("Loaded state", "path", path, "cycles", console.Cycles())
	}

	if addr := c.String("statsview"); addr != "" {
		launchStatsview(addr, os.Stderr)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var chain debug.Chain
	if c.Bool("trace") {
		chain = append(chain, debug.NewTrace(os.Stderr))
	}
	var hook *script.Script
	if path := c.String("script"); path != "" {
		hook, err = script.Load(path)
		if err != nil {
			return err
		}
		defer hook.Close()
		chain = append(chain, hook)
	}

	cfg := runtime.Config{
		Region:     regionOf(cart),
		CycleLimit: c.Uint64("cycles"),
	}
	if c.Bool("realtime") {
		cfg.Limiter = timing.NewAdaptiveLimiter(cfg.Region)
	}
	if len(chain) > 0 {
		// Nobody can resume a headless run, so a pause ends it.
		cfg.Interceptor = debug.InterceptorFunc(func(in debug.Inspector) debug.Action {
			if chain.OnInstruction(in) == debug.Pause {
				slog.Info("Stop requested by hook", "pc", fmt.Sprintf("0x%04X", in.PC()))
				stop()
				return debug.Pause
			}
			return debug.Continue
		})
	}

	slog.Info("Running headless mode", "cycles", cfg.CycleLimit, "region", cfg.Region.String())
	r := runtime.New(console, cfg)
	if err := r.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	if hook != nil && hook.Err() != nil {
		return hook.Err()
	}

	slog.Info("Headless execution completed",
		"cycles", console.Cycles(),
		"frames", r.Handle().Frames(),
		"pc", fmt.Sprintf("0x%04X", console.PC()))

	if path := c.String("state-out"); path != "" {
		data, err := console.Marshal()
		if err != nil {
			return err
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return err
		}
		slog.Info("Saved state", "path", path, "bytes", len(data))
	}
	return nil
}

func runMonitor(c *cli.Context) error {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return errors.New("the monitor needs a terminal on stdout")
	}

	cart, err := loadCartridge(c)
	if err != nil {
		return err
	}

	var chain debug.Chain
	if addrs := c.StringSlice("break"); len(addrs) > 0 {
		bp := debug.NewBreakpoints()
		for _, s := range addrs {
			addr, err := parseAddress(s)
			if err != nil {
				return err
			}
			bp.Add(addr)
		}
		chain = append(chain, bp)
	}
	if path := c.String("script"); path != "" {
		hook, err := script.Load(path)
		if err != nil {
			return err
		}
		defer hook.Close()
		chain = append(chain, hook)
	}

	region := regionOf(cart)
	limiter := timing.NewTickerLimiter(region)
	defer limiter.Stop()

	cfg := runtime.Config{
		Region:         region,
		Limiter:        limiter,
		StartPaused:    c.Bool("paused"),
		RewindCapacity: runtime.DefaultRewindCapacity,
	}
	if len(chain) > 0 {
		cfg.Interceptor = chain
	}

	r := runtime.New(nescore.New(cart), cfg)
	h := r.Handle()
	m := monitor.New(h, monitor.Config{Title: fmt.Sprintf("%s %s", cart.Mapper.Name(), region)})
	if err := m.Init(); err != nil {
		return err
	}
	defer m.Cleanup()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errs := make(chan error, 1)
	go func() { errs <- r.Run(ctx) }()

	if err := m.Run(ctx); err != nil {
		return err
	}
	if err := h.Stop(); err != nil {
		return err
	}
	if err := <-errs; err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func runGraph(c *cli.Context) error {
	cart, err := loadCartridge(c)
	if err != nil {
		return err
	}
	console := nescore.New(cart)

	limit := c.Uint64("cycles")
	console.Step()
	for console.Cycles() < limit {
		console.Step()
	}

	snap, err := console.Save(state.DefaultMeta())
	if err != nil {
		return err
	}

	var w io.Writer = c.App.Writer
	if path := c.String("out"); path != "" {
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}
	debug.WriteStateGraph(w, &snap)
	return nil
}

// parseAddress accepts $C000, 0xC000 and C000.
func parseAddress(s string) (uint16, error) {
	trimmed := strings.TrimPrefix(strings.TrimPrefix(strings.ToLower(s), "$"), "0x")
	v, err := strconv.ParseUint(trimmed, 16, 16)
	if err != nil {
		return 0, fmt.Errorf("invalid address %q: %w", s, err)
	}
	return uint16(v), nil
}
