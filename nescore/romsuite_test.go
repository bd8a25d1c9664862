package nescore

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valerio/go-nescore/nescore/cpu"
)

// nestestDir holds nestest.nes and, optionally, its reference nestest.log.
// Override with NESTEST_DIR.
func nestestDir() string {
	if dir := os.Getenv("NESTEST_DIR"); dir != "" {
		return dir
	}
	return filepath.Join("..", "test-roms", "nestest")
}

type nestestLine struct {
	pc            uint16
	a, x, y, p, s uint8
	cycles        uint64
}

// parseNestestLine reads the PC, registers and CYC columns of a log line.
func parseNestestLine(line string) (nestestLine, error) {
	var l nestestLine
	if len(line) < 4 {
		return l, fmt.Errorf("short line %q", line)
	}
	pc, err := strconv.ParseUint(line[:4], 16, 16)
	if err != nil {
		return l, err
	}
	l.pc = uint16(pc)

	i := strings.Index(line, "A:")
	if i < 0 {
		return l, fmt.Errorf("no registers in %q", line)
	}
	var a, x, y, p, s uint
	if _, err := fmt.Sscanf(line[i:], "A:%2X X:%2X Y:%2X P:%2X SP:%2X", &a, &x, &y, &p, &s); err != nil {
		return l, fmt.Errorf("registers in %q: %w", line, err)
	}
	l.a, l.x, l.y, l.p, l.s = uint8(a), uint8(x), uint8(y), uint8(p), uint8(s)

	if i := strings.LastIndex(line, "CYC:"); i >= 0 {
		c, err := strconv.ParseUint(strings.TrimSpace(line[i+4:]), 10, 64)
		if err != nil {
			return l, err
		}
		l.cycles = c
	}
	return l, nil
}

func TestParseNestestLine(t *testing.T) {
	line := "C000  4C F5 C5  JMP $C5F5                       A:00 X:00 Y:00 P:24 SP:FD PPU:  0, 21 CYC:7"
	got, err := parseNestestLine(line)
	require.NoError(t, err)
	assert.Equal(t, nestestLine{pc: 0xC000, p: 0x24, s: 0xFD, cycles: 7}, got)
}

// TestNestest runs nestest in automation mode from $C000. The official and
// unofficial opcode result codes land in $02 and $03.
func TestNestest(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping ROM suite in short mode")
	}
	romPath := filepath.Join(nestestDir(), "nestest.nes")
	if _, err := os.Stat(romPath); os.IsNotExist(err) {
		t.Skipf("Test ROM not found: %s (set NESTEST_DIR to run it)", romPath)
	}

	c, err := NewWithFile(romPath)
	require.NoError(t, err)
	require.Equal(t, 7, c.Step())
	c.CPU().SetRegisters(cpu.Registers{PC: 0xC000, S: 0xFD, P: 0x24})

	var reference *bufio.Scanner
	if f, err := os.Open(filepath.Join(nestestDir(), "nestest.log")); err == nil {
		defer f.Close()
		reference = bufio.NewScanner(f)
	} else {
		t.Logf("No nestest.log, checking result codes only")
	}

	const endPC, maxInstructions = 0xC66E, 10000
	for n := 0; n < maxInstructions && c.PC() != endPC; n++ {
		if reference != nil && reference.Scan() {
			want, err := parseNestestLine(reference.Text())
			require.NoError(t, err)

			r := c.Registers()
			got := nestestLine{pc: r.PC, a: r.A, x: r.X, y: r.Y, p: r.P, s: r.S, cycles: c.Cycles()}
			require.Equal(t, want, got, "instruction %d diverges\n  log: %s", n+1, reference.Text())
		}
		c.Step()
	}

	assert.Equal(t, uint16(endPC), c.PC(), "did not reach the end of the test")
	assert.Equal(t, uint8(0x00), c.Peek(0x0002), "official opcode result")
	assert.Equal(t, uint8(0x00), c.Peek(0x0003), "unofficial opcode result")
}
