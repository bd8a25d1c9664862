package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/valerio/go-nescore/nescore/bus"
	"github.com/valerio/go-nescore/nescore/cpu"
	"github.com/valerio/go-nescore/nescore/debug"
	"github.com/valerio/go-nescore/nescore/runtime"
)

const (
	leftWidth      = 26
	registerHeight = 7
	disasmHeight   = 9
	zeroPageRows   = 16
	minTermWidth   = 80
	minTermHeight  = 24

	rewindFrames = 60
	keyTimeout   = 100 * time.Millisecond
)

// Controller is the part of a runtime.Handle the monitor drives.
type Controller interface {
	Pause() error
	Resume() error
	Paused() bool
	Step() (int, error)
	SaveState() ([]byte, error)
	LoadState(data []byte) error
	Reset(kind runtime.ResetKind) error
	Rewind(frames int) error
	SetButton(port int, b bus.Button, pressed bool) error
	DebugData() (*debug.CompleteDebugData, error)
	Frames() uint64
	Done() <-chan struct{}
}

var _ Controller = (*runtime.Handle)(nil)

// Config holds configuration for the monitor
type Config struct {
	Title       string
	Screen      tcell.Screen  // nil opens the real terminal
	LogBuffer   *LogBuffer    // nil creates one and installs it as the default logger
	RefreshRate time.Duration // defaults to 30 redraws per second
}

// Monitor is a terminal debugger showing registers, disassembly, zero page
// and recent log lines.
type Monitor struct {
	screen    tcell.Screen
	ctrl      Controller
	config    Config
	logBuffer *LogBuffer
	logLevel  slog.Level

	slot      []byte
	keyStates map[bus.Button]time.Time
	disasm    *debug.DisasmBuffer
}

// New creates a monitor for ctrl. Init must be called before Run.
func New(ctrl Controller, config Config) *Monitor {
	if config.Title == "" {
		config.Title = "nescore"
	}
	if config.RefreshRate <= 0 {
		config.RefreshRate = time.Second / 30
	}
	return &Monitor{
		ctrl:      ctrl,
		config:    config,
		logLevel:  slog.LevelInfo,
		keyStates: make(map[bus.Button]time.Time),
		disasm:    debug.NewDisasmBuffer(disasmHeight),
	}
}

// Init opens the screen and hooks up logging.
func (m *Monitor) Init() error {
	screen := m.config.Screen
	if screen == nil {
		var err error
		screen, err = tcell.NewScreen()
		if err != nil {
			return fmt.Errorf("failed to initialize terminal: %w", err)
		}
	}
	if err := screen.Init(); err != nil {
		return fmt.Errorf("failed to initialize terminal: %w", err)
	}
	m.screen = screen

	m.logBuffer = m.config.LogBuffer
	if m.logBuffer == nil {
		m.logBuffer = NewLogBuffer(100)
		slog.SetDefault(slog.New(NewLogBufferHandler(m.logBuffer, slog.LevelDebug)))
	}

	m.screen.SetStyle(tcell.StyleDefault.Background(tcell.ColorBlack).Foreground(tcell.ColorWhite))
	m.screen.Clear()
	slog.Info("Terminal monitor initialized")
	return nil
}

// Run processes keys and redraws until the user quits, ctx is cancelled or
// the runner exits.
func (m *Monitor) Run(ctx context.Context) error {
	events := make(chan tcell.Event, 16)
	quit := make(chan struct{})
	go m.screen.ChannelEvents(events, quit)
	defer close(quit)

	ticker := time.NewTicker(m.config.RefreshRate)
	defer ticker.Stop()

	m.render()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-m.ctrl.Done():
			return nil
		case ev, ok := <-events:
			if !ok || m.handleEvent(ev, time.Now()) {
				return nil
			}
		case now := <-ticker.C:
			m.releaseExpired(now)
			m.render()
		}
	}
}

// Cleanup restores the terminal.
func (m *Monitor) Cleanup() {
	if m.screen != nil {
		m.screen.Fini()
		m.screen = nil
	}
}

// handleEvent returns true when the user asked to quit.
func (m *Monitor) handleEvent(ev tcell.Event, now time.Time) bool {
	switch ev := ev.(type) {
	case *tcell.EventResize:
		m.screen.Sync()
	case *tcell.EventKey:
		return m.handleKey(ev, now)
	}
	return false
}

var keyButtons = map[tcell.Key]bus.Button{
	tcell.KeyUp:    bus.ButtonUp,
	tcell.KeyDown:  bus.ButtonDown,
	tcell.KeyLeft:  bus.ButtonLeft,
	tcell.KeyRight: bus.ButtonRight,
	tcell.KeyEnter: bus.ButtonStart,
}

var runeButtons = map[rune]bus.Button{
	'x': bus.ButtonA,
	'z': bus.ButtonB,
	'c': bus.ButtonSelect,
}

func (m *Monitor) handleKey(ev *tcell.EventKey, now time.Time) bool {
	switch ev.Key() {
	case tcell.KeyEscape, tcell.KeyCtrlC:
		return true
	case tcell.KeyRune:
		return m.handleRune(ev.Rune(), now)
	}
	if b, ok := keyButtons[ev.Key()]; ok {
		m.press(b, now)
	}
	return false
}

func (m *Monitor) handleRune(r rune, now time.Time) bool {
	if b, ok := runeButtons[r]; ok {
		m.press(b, now)
		return false
	}

	var err error
	switch r {
	case 'q':
		return true
	case ' ':
		if m.ctrl.Paused() {
			err = m.ctrl.Resume()
		} else {
			err = m.ctrl.Pause()
		}
	case 'n':
		var cycles int
		cycles, err = m.ctrl.Step()
		if err == nil {
			slog.Debug("Stepped", "cycles", cycles)
		}
	case 's':
		var data []byte
		data, err = m.ctrl.SaveState()
		if err == nil {
			m.slot = data
			slog.Info("State saved", "bytes", len(data))
		}
	case 'l':
		if m.slot == nil {
			slog.Warn("No saved state")
			return false
		}
		err = m.ctrl.LoadState(m.slot)
		if err == nil {
			slog.Info("State loaded")
		}
	case 'r':
		err = m.ctrl.Reset(runtime.SoftReset)
	case 'b':
		err = m.ctrl.Rewind(rewindFrames)
		if err == nil {
			slog.Info("Rewound", "frames", rewindFrames)
		}
	case '+', '=':
		m.changeLogLevel(1)
	case '-', '_':
		m.changeLogLevel(-1)
	}
	if err != nil {
		slog.Warn("Command failed", "key", string(r), "error", err)
	}
	return false
}

// press holds a button until no key repeat has been seen for keyTimeout,
// since terminals never report key releases.
func (m *Monitor) press(b bus.Button, now time.Time) {
	if isDirection(b) {
		for _, other := range []bus.Button{bus.ButtonUp, bus.ButtonDown, bus.ButtonLeft, bus.ButtonRight} {
			if other != b {
				m.release(other)
			}
		}
	}
	if _, held := m.keyStates[b]; !held {
		if err := m.ctrl.SetButton(0, b, true); err != nil {
			slog.Warn("Button press failed", "button", b.String(), "error", err)
		}
	}
	m.keyStates[b] = now
}

func (m *Monitor) release(b bus.Button) {
	if _, held := m.keyStates[b]; !held {
		return
	}
	delete(m.keyStates, b)
	if err := m.ctrl.SetButton(0, b, false); err != nil {
		slog.Warn("Button release failed", "button", b.String(), "error", err)
	}
}

func (m *Monitor) releaseExpired(now time.Time) {
	for b, at := range m.keyStates {
		if now.Sub(at) >= keyTimeout {
			m.release(b)
		}
	}
}

func isDirection(b bus.Button) bool {
	return b >= bus.ButtonUp && b <= bus.ButtonRight
}

func (m *Monitor) changeLogLevel(direction int) {
	oldLevel := m.logLevel
	switch direction {
	case -1:
		switch m.logLevel {
		case slog.LevelDebug:
			m.logLevel = slog.LevelInfo
		case slog.LevelInfo:
			m.logLevel = slog.LevelWarn
		case slog.LevelWarn:
			m.logLevel = slog.LevelError
		}
	case 1:
		switch m.logLevel {
		case slog.LevelError:
			m.logLevel = slog.LevelWarn
		case slog.LevelWarn:
			m.logLevel = slog.LevelInfo
		case slog.LevelInfo:
			m.logLevel = slog.LevelDebug
		}
	}
	if oldLevel != m.logLevel {
		slog.Info("Log filter changed", "from", oldLevel, "to", m.logLevel)
	}
}

var (
	borderStyle  = tcell.StyleDefault.Foreground(tcell.ColorWhite)
	titleStyle   = tcell.StyleDefault.Foreground(tcell.ColorYellow)
	regStyle     = tcell.StyleDefault.Foreground(tcell.ColorBlue)
	codeStyle    = tcell.StyleDefault.Foreground(tcell.ColorGreen)
	currentStyle = tcell.StyleDefault.Foreground(tcell.ColorYellow).Bold(true)
	memStyle     = tcell.StyleDefault.Foreground(tcell.ColorSilver)
)

func (m *Monitor) render() {
	termWidth, termHeight := m.screen.Size()
	m.screen.Clear()
	if termWidth < minTermWidth || termHeight < minTermHeight {
		msg := fmt.Sprintf("Terminal too small! Need at least %dx%d", minTermWidth, minTermHeight)
		m.drawText(0, termHeight/2, termWidth, msg, tcell.StyleDefault.Foreground(tcell.ColorRed))
		m.screen.Show()
		return
	}

	data, err := m.ctrl.DebugData()
	if err != nil {
		data = nil
	}

	logsY := zeroPageRows + 2
	m.drawBorders(termWidth, termHeight, logsY)
	if data != nil && data.CPU != nil {
		m.drawRegisters(1, 1, data)
		m.drawDisassembly(1, registerHeight+2, data)
		m.drawZeroPage(leftWidth+2, 1, data.ZeroPage)
	}
	m.drawLogs(1, logsY+1, termWidth-2, termHeight-logsY-2)
	m.screen.Show()
}

func (m *Monitor) drawBorders(termWidth, termHeight, logsY int) {
	for y := 0; y < logsY; y++ {
		m.screen.SetContent(leftWidth, y, '│', nil, borderStyle)
	}
	for x := 0; x < leftWidth; x++ {
		m.screen.SetContent(x, registerHeight+1, '─', nil, borderStyle)
	}
	m.screen.SetContent(leftWidth, registerHeight+1, '┤', nil, borderStyle)
	for x := 0; x < termWidth; x++ {
		m.screen.SetContent(x, logsY, '─', nil, borderStyle)
	}
	m.screen.SetContent(leftWidth, logsY, '┴', nil, borderStyle)

	m.drawText(1, 0, leftWidth-1, " "+m.config.Title+" ", titleStyle)
	m.drawText(leftWidth+2, 0, termWidth, " Zero Page ", titleStyle)
	m.drawText(1, registerHeight+1, leftWidth-1, " Disassembly ", titleStyle)

	levelStr := "INFO"
	switch m.logLevel {
	case slog.LevelDebug:
		levelStr = "DEBUG"
	case slog.LevelWarn:
		levelStr = "WARN"
	case slog.LevelError:
		levelStr = "ERROR"
	}
	m.drawText(1, logsY, termWidth, fmt.Sprintf(" Logs [%s] (-/+ filter) ", levelStr), titleStyle)

	help := " SPACE pause  N step  S save  L load  R reset  B rewind  Q quit "
	m.drawText(0, termHeight-1, termWidth, help, borderStyle)
}

func (m *Monitor) drawRegisters(x, y int, data *debug.CompleteDebugData) {
	c := data.CPU
	status := "RUNNING"
	switch {
	case c.Halted:
		status = "HALTED"
	case data.DebuggerState == debug.DebuggerPaused:
		status = "PAUSED"
	}

	lines := []string{
		fmt.Sprintf("Status: %s", status),
		fmt.Sprintf("A:$%02X  X:$%02X  Y:$%02X", c.A, c.X, c.Y),
		fmt.Sprintf("S:$%02X  P:$%02X  PC:$%04X", c.S, c.P, c.PC),
		fmt.Sprintf("Flags: %s", cpu.FlagString(c.P)),
		fmt.Sprintf("NMI: %t  IRQ: $%02X", c.NMIPending || data.NMILine, data.IRQSources),
		fmt.Sprintf("Cycles: %d", c.Cycles),
		fmt.Sprintf("Frames: %d", m.ctrl.Frames()),
	}
	for i, line := range lines {
		m.drawText(x, y+i, leftWidth-x, line, regStyle)
	}
}

func (m *Monitor) drawDisassembly(x, y int, data *debug.CompleteDebugData) {
	pc := data.CPU.PC
	lines := debug.CreateDisassemblyWithBuffer(data.Memory, pc, disasmHeight, m.disasm)
	for i, line := range lines {
		text := fmt.Sprintf(" $%04X: %s", line.Address, line.Instruction)
		style := codeStyle
		if line.Address == pc {
			text = "→" + text[1:]
			style = currentStyle
		}
		m.drawText(x, y+i, leftWidth-x, text, style)
	}
}

func (m *Monitor) drawZeroPage(x, y int, snapshot *debug.MemorySnapshot) {
	if snapshot == nil {
		return
	}
	for row := 0; row < zeroPageRows && row*16 < len(snapshot.Bytes); row++ {
		end := row*16 + 16
		if end > len(snapshot.Bytes) {
			end = len(snapshot.Bytes)
		}
		text := fmt.Sprintf("$%02X % X", row*16, snapshot.Bytes[row*16:end])
		m.drawText(x, y+row, minTermWidth-x, text, memStyle)
	}
}

func (m *Monitor) drawLogs(x, y, width, height int) {
	if width <= 0 || height <= 0 || m.logBuffer == nil {
		return
	}

	debugStyle := tcell.StyleDefault.Foreground(tcell.ColorGray)
	infoStyle := tcell.StyleDefault.Foreground(tcell.ColorBlue)
	warnStyle := tcell.StyleDefault.Foreground(tcell.ColorYellow)
	errStyle := tcell.StyleDefault.Foreground(tcell.ColorRed).Bold(true)

	for i, entry := range m.logBuffer.GetRecent(height, m.logLevel) {
		style := infoStyle
		switch entry.Level {
		case slog.LevelDebug:
			style = debugStyle
		case slog.LevelWarn:
			style = warnStyle
		case slog.LevelError:
			style = errStyle
		}

		text := FormatLogEntry(entry)
		if len(text) > width && width > 3 {
			text = text[:width-3] + "..."
		}
		m.drawText(x, y+i, width, text, style)
	}
}

func (m *Monitor) drawText(x, y, width int, text string, style tcell.Style) {
	col := 0
	for _, ch := range text {
		if col >= width {
			break
		}
		m.screen.SetContent(x+col, y, ch, nil, style)
		col++
	}
}
