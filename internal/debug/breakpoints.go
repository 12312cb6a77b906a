// Package debug holds the breakpoint set the machine consults in Debugger
// mode, with register/memory conditions and Lua predicates.
package debug

import (
	"fmt"
	"slices"
	"strings"
	"sync"
)

// Breakpoint is one address the debugger stops at. A nil Condition always
// fires.
type Breakpoint struct {
	Addr      uint16
	Condition Predicate
	HitCount  uint64
}

func (bp *Breakpoint) String() string {
	if bp.Condition == nil {
		return fmt.Sprintf("$%04X", bp.Addr)
	}
	if _, ok := bp.Condition.(*LuaCondition); ok {
		return fmt.Sprintf("$%04X %s", bp.Addr, bp.Condition)
	}
	return fmt.Sprintf("$%04X if %s", bp.Addr, bp.Condition)
}

// Breakpoints is a set of breakpoints keyed by address. It implements the
// machine's DebugProvider.
type Breakpoints struct {
	mu     sync.Mutex
	target Target
	points map[uint16]*Breakpoint
	err    error
}

func NewBreakpoints(target Target) *Breakpoints {
	return &Breakpoints{target: target, points: make(map[uint16]*Breakpoint)}
}

// Add sets a breakpoint at addr, replacing any previous one there.
func (b *Breakpoints) Add(addr uint16, cond Predicate) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.release(addr)
	b.points[addr] = &Breakpoint{Addr: addr, Condition: cond}
}

// AddSpec parses and adds a breakpoint written as
//
//	ADDR
//	ADDR if CONDITION
//	ADDR lua EXPRESSION
func (b *Breakpoints) AddSpec(spec string) (*Breakpoint, error) {
	addr, cond, err := ParseBreakpoint(spec)
	if err != nil {
		return nil, err
	}
	b.Add(addr, cond)
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.points[addr], nil
}

// ParseBreakpoint splits a breakpoint spec into its address and condition.
func ParseBreakpoint(spec string) (uint16, Predicate, error) {
	spec = strings.TrimSpace(spec)
	head, rest, _ := strings.Cut(spec, " ")
	value, ok := ParseAddress(head)
	if !ok || value > 0xFFFF {
		return 0, nil, fmt.Errorf("debug: invalid breakpoint address %q", head)
	}
	addr := uint16(value)

	rest = strings.TrimSpace(rest)
	if rest == "" {
		return addr, nil, nil
	}
	kind, body, _ := strings.Cut(rest, " ")
	body = strings.TrimSpace(body)
	switch strings.ToLower(kind) {
	case "if":
		cond, err := ParseCondition(body)
		if err != nil {
			return 0, nil, fmt.Errorf("debug: breakpoint %q: %w", spec, err)
		}
		return addr, cond, nil
	case "lua":
		if body == "" {
			return 0, nil, fmt.Errorf("debug: breakpoint %q: empty lua expression", spec)
		}
		cond, err := NewLuaCondition(body)
		if err != nil {
			return 0, nil, err
		}
		return addr, cond, nil
	}
	return 0, nil, fmt.Errorf("debug: breakpoint %q: expected 'if' or 'lua' after the address", spec)
}

// Remove deletes the breakpoint at addr and reports whether one existed.
func (b *Breakpoints) Remove(addr uint16) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.points[addr]
	b.release(addr)
	delete(b.points, addr)
	return ok
}

func (b *Breakpoints) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for addr := range b.points {
		b.release(addr)
	}
	clear(b.points)
}

// Caller holds mu.
func (b *Breakpoints) release(addr uint16) {
	if bp, ok := b.points[addr]; ok {
		if lc, ok := bp.Condition.(*LuaCondition); ok {
			lc.Close()
		}
	}
}

// List returns copies of the breakpoints ordered by address.
func (b *Breakpoints) List() []Breakpoint {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Breakpoint, 0, len(b.points))
	for _, bp := range b.points {
		out = append(out, *bp)
	}
	slices.SortFunc(out, func(x, y Breakpoint) int { return int(x.Addr) - int(y.Addr) })
	return out
}

func (b *Breakpoints) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.points)
}

// ShouldBreakAtAddress counts a hit on the breakpoint at addr and evaluates
// its condition. A condition that fails to evaluate stops the machine; the
// error is kept for Err.
func (b *Breakpoints) ShouldBreakAtAddress(addr uint16) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	bp, ok := b.points[addr]
	if !ok {
		return false
	}
	bp.HitCount++
	if bp.Condition == nil {
		return true
	}
	holds, err := bp.Condition.Holds(b.target, bp.HitCount)
	if err != nil {
		b.err = fmt.Errorf("breakpoint $%04X: %w", addr, err)
		return true
	}
	return holds
}

// Err returns the last condition evaluation error and clears it.
func (b *Breakpoints) Err() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	err := b.err
	b.err = nil
	return err
}
