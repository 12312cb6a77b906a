package debug

import (
	"fmt"
	"sync"

	lua "github.com/yuin/gopher-lua"
)

// LuaCondition is a breakpoint predicate written as a Lua expression, for
// example
//
//	reg("A") == 0x10 and peek(0x5C3A) ~= 0xFF
//
// The expression sees these globals:
//
//	reg(name)    register value (A, HL, IX, PC, AF', ...)
//	flag(name)   true when the flag is set (S, Z, H, PV, N, C)
//	peek(addr)   memory byte
//	peekw(addr)  little-endian memory word
//	hits         hit count including this one
//
// Only the base, string and math libraries are opened.
type LuaCondition struct {
	mu     sync.Mutex
	expr   string
	state  *lua.LState
	fn     *lua.LFunction
	target Target
}

// NewLuaCondition compiles expr. Close releases the interpreter.
func NewLuaCondition(expr string) (*LuaCondition, error) {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	for _, lib := range []struct {
		name string
		open lua.LGFunction
	}{
		{lua.BaseLibName, lua.OpenBase},
		{lua.StringLibName, lua.OpenString},
		{lua.MathLibName, lua.OpenMath},
	} {
		if err := L.CallByParam(lua.P{
			Fn:      L.NewFunction(lib.open),
			NRet:    0,
			Protect: true,
		}, lua.LString(lib.name)); err != nil {
			L.Close()
			return nil, fmt.Errorf("debug: open lua %s: %w", lib.name, err)
		}
	}

	fn, err := L.LoadString("return " + expr)
	if err != nil {
		L.Close()
		return nil, fmt.Errorf("debug: compile %q: %w", expr, err)
	}

	c := &LuaCondition{expr: expr, state: L, fn: fn}
	L.SetGlobal("reg", L.NewFunction(c.luaReg))
	L.SetGlobal("flag", L.NewFunction(c.luaFlag))
	L.SetGlobal("peek", L.NewFunction(c.luaPeek))
	L.SetGlobal("peekw", L.NewFunction(c.luaPeekWord))
	return c, nil
}

func (c *LuaCondition) Holds(t Target, hits uint64) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == nil {
		return false, fmt.Errorf("debug: lua condition %q is closed", c.expr)
	}

	c.target = t
	L := c.state
	L.SetGlobal("hits", lua.LNumber(hits))
	L.Push(c.fn)
	if err := L.PCall(0, 1, nil); err != nil {
		return false, fmt.Errorf("debug: evaluate %q: %w", c.expr, err)
	}
	v := L.Get(-1)
	L.Pop(1)
	return lua.LVAsBool(v), nil
}

func (c *LuaCondition) String() string { return "lua " + c.expr }

func (c *LuaCondition) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != nil {
		c.state.Close()
		c.state = nil
	}
}

func (c *LuaCondition) luaReg(L *lua.LState) int {
	name := L.CheckString(1)
	if c.target.CPU == nil {
		L.RaiseError("no CPU attached")
		return 0
	}
	v, ok := RegisterValue(c.target.CPU, name)
	if !ok {
		L.ArgError(1, "unknown register "+name)
		return 0
	}
	L.Push(lua.LNumber(v))
	return 1
}

func (c *LuaCondition) luaFlag(L *lua.LState) int {
	name := L.CheckString(1)
	mask, ok := FlagMask(name)
	if !ok {
		L.ArgError(1, "unknown flag "+name)
		return 0
	}
	if c.target.CPU == nil {
		L.RaiseError("no CPU attached")
		return 0
	}
	L.Push(lua.LBool(c.target.CPU.F&mask != 0))
	return 1
}

func (c *LuaCondition) luaPeek(L *lua.LState) int {
	addr := uint16(L.CheckInt(1))
	if c.target.Memory == nil {
		L.RaiseError("no memory attached")
		return 0
	}
	L.Push(lua.LNumber(c.target.Memory.Read(addr)))
	return 1
}

func (c *LuaCondition) luaPeekWord(L *lua.LState) int {
	addr := uint16(L.CheckInt(1))
	if c.target.Memory == nil {
		L.RaiseError("no memory attached")
		return 0
	}
	lo := c.target.Memory.Read(addr)
	hi := c.target.Memory.Read(addr + 1)
	L.Push(lua.LNumber(uint16(hi)<<8 | uint16(lo)))
	return 1
}
