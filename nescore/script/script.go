// Package script runs Lua hooks at every instruction boundary.
//
// A script defines a global function on_instruction(pc, opcode). Returning
// true pauses the runner. The following globals are available to it:
//
//	peek(addr)  read a byte without side effects
//	reg(name)   read a register: a, x, y, s, p or pc
//	cycles()    CPU cycles since power on
//	log(msg)    write an info line to the emulator log
package script

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	lua "github.com/yuin/gopher-lua"

	"github.com/valerio/go-nescore/nescore/debug"
)

const hookName = "on_instruction"

// ErrNoHook is returned when a script does not define on_instruction.
var ErrNoHook = errors.New("script: on_instruction is not defined")

// Script is a loaded Lua hook. It implements debug.Interceptor and must be
// called from a single goroutine.
type Script struct {
	name string
	L    *lua.LState
	hook lua.LValue
	in   debug.Inspector

	mu  sync.Mutex
	err error
}

// Load runs the Lua file at path and returns its hook.
func Load(path string) (*Script, error) {
	s := newScript(path)
	if err := s.L.DoFile(path); err != nil {
		s.Close()
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}
	return s.bind()
}

// LoadString runs src as a chunk called name and returns its hook.
func LoadString(name, src string) (*Script, error) {
	s := newScript(name)
	if err := s.L.DoString(src); err != nil {
		s.Close()
		return nil, fmt.Errorf("loading %s: %w", name, err)
	}
	return s.bind()
}

func newScript(name string) *Script {
	s := &Script{name: name, L: lua.NewState()}
	s.L.SetGlobal("peek", s.L.NewFunction(s.peek))
	s.L.SetGlobal("reg", s.L.NewFunction(s.reg))
	s.L.SetGlobal("cycles", s.L.NewFunction(s.cycles))
	s.L.SetGlobal("log", s.L.NewFunction(s.log))
	return s
}

func (s *Script) bind() (*Script, error) {
	hook := s.L.GetGlobal(hookName)
	if hook.Type() != lua.LTFunction {
		s.Close()
		return nil, fmt.Errorf("%s: %w", s.name, ErrNoHook)
	}
	s.hook = hook
	slog.Info("Script loaded", "name", s.name)
	return s, nil
}

// OnInstruction calls the hook. A failing hook pauses once, records the
// error and is not called again.
func (s *Script) OnInstruction(in debug.Inspector) debug.Action {
	if s.hook == nil || s.hook == lua.LNil {
		return debug.Continue
	}

	pc := in.PC()
	s.in = in
	err := s.L.CallByParam(lua.P{
		Fn:      s.hook,
		NRet:    1,
		Protect: true,
	}, lua.LNumber(pc), lua.LNumber(in.Peek(pc)))
	s.in = nil

	if err != nil {
		s.fail(err)
		return debug.Pause
	}

	ret := s.L.Get(-1)
	s.L.Pop(1)
	if ret == lua.LTrue {
		return debug.Pause
	}
	return debug.Continue
}

func (s *Script) fail(err error) {
	s.hook = lua.LNil
	s.mu.Lock()
	s.err = fmt.Errorf("%s: %w", s.name, err)
	s.mu.Unlock()
	slog.Error("Script error", "name", s.name, "error", err)
}

// Err returns the error that disabled the hook, if any.
func (s *Script) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Close releases the Lua state.
func (s *Script) Close() {
	if s.L != nil {
		s.L.Close()
		s.L = nil
	}
}

func (s *Script) inspector(L *lua.LState) debug.Inspector {
	if s.in == nil {
		L.RaiseError("machine is only visible inside %s", hookName)
	}
	return s.in
}

func (s *Script) peek(L *lua.LState) int {
	address := L.CheckInt(1)
	if address < 0 || address > 0xFFFF {
		L.ArgError(1, fmt.Sprintf("address %d out of range", address))
	}
	L.Push(lua.LNumber(s.inspector(L).Peek(uint16(address))))
	return 1
}

func (s *Script) reg(L *lua.LState) int {
	name := strings.ToLower(L.CheckString(1))
	r := s.inspector(L).Registers()

	var v int
	switch name {
	case "a":
		v = int(r.A)
	case "x":
		v = int(r.X)
	case "y":
		v = int(r.Y)
	case "s", "sp":
		v = int(r.S)
	case "p":
		v = int(r.P)
	case "pc":
		v = int(r.PC)
	default:
		L.ArgError(1, "unknown register "+name)
	}
	L.Push(lua.LNumber(v))
	return 1
}

func (s *Script) cycles(L *lua.LState) int {
	L.Push(lua.LNumber(s.inspector(L).Cycles()))
	return 1
}

func (s *Script) log(L *lua.LState) int {
	slog.Info("Script", "name", s.name, "message", L.CheckString(1))
	return 0
}

var _ debug.Interceptor = (*Script)(nil)
