package debug

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/intuitionamiga/SpectrumEngine/internal/z80"
)

// MemoryReader is the part of the memory device conditions look at.
type MemoryReader interface {
	Read(addr uint16) byte
}

// Target is the machine state a condition is evaluated against.
type Target struct {
	CPU    *z80.CPU
	Memory MemoryReader
}

// Predicate decides whether a breakpoint fires. hits already includes the
// current hit.
type Predicate interface {
	Holds(t Target, hits uint64) (bool, error)
	String() string
}

type ConditionOp int

const (
	OpEqual ConditionOp = iota
	OpNotEqual
	OpLess
	OpGreater
	OpLessEqual
	OpGreaterEqual
)

var opText = [...]string{"==", "!=", "<", ">", "<=", ">="}

func (op ConditionOp) String() string {
	if op < 0 || int(op) >= len(opText) {
		return "?"
	}
	return opText[op]
}

type ConditionSource int

const (
	SourceRegister ConditionSource = iota
	SourceMemory
	SourceHitCount
)

// Condition compares a register, a memory byte or the hit count with a
// constant.
type Condition struct {
	Source   ConditionSource
	Register string
	Addr     uint16
	Op       ConditionOp
	Value    uint64
}

// ParseCondition parses a condition string. Formats:
//
//	A==$FF         register A, op ==, value 0xFF
//	[$5C3A]==#0    memory at 0x5C3A, op ==, value 0
//	hitcount>10    hit count, op >, value 10
func ParseCondition(text string) (*Condition, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("empty condition")
	}

	// two-character operators first so "<=" is not read as "<"
	var opStr string
	var opIdx int
	for _, candidate := range []string{"==", "!=", "<=", ">=", "<", ">"} {
		if idx := strings.Index(text, candidate); idx >= 0 {
			opStr = candidate
			opIdx = idx
			break
		}
	}
	if opStr == "" {
		return nil, fmt.Errorf("no operator found (use ==, !=, <, >, <=, >=)")
	}

	var op ConditionOp
	switch opStr {
	case "==":
		op = OpEqual
	case "!=":
		op = OpNotEqual
	case "<":
		op = OpLess
	case ">":
		op = OpGreater
	case "<=":
		op = OpLessEqual
	case ">=":
		op = OpGreaterEqual
	}

	lhs := strings.TrimSpace(text[:opIdx])
	rhs := strings.TrimSpace(text[opIdx+len(opStr):])

	value, ok := ParseAddress(rhs)
	if !ok {
		return nil, fmt.Errorf("invalid value: %s", rhs)
	}

	if strings.HasPrefix(lhs, "[") && strings.HasSuffix(lhs, "]") {
		addrStr := lhs[1 : len(lhs)-1]
		addr, ok := ParseAddress(addrStr)
		if !ok || addr > 0xFFFF {
			return nil, fmt.Errorf("invalid memory address: %s", addrStr)
		}
		return &Condition{Source: SourceMemory, Addr: uint16(addr), Op: op, Value: value}, nil
	}

	if strings.EqualFold(lhs, "hitcount") {
		return &Condition{Source: SourceHitCount, Op: op, Value: value}, nil
	}

	name := strings.ToUpper(lhs)
	if _, ok := RegisterValue(&z80.CPU{}, name); !ok {
		return nil, fmt.Errorf("unknown register: %s", lhs)
	}
	return &Condition{Source: SourceRegister, Register: name, Op: op, Value: value}, nil
}

func (c *Condition) Holds(t Target, hits uint64) (bool, error) {
	var actual uint64
	switch c.Source {
	case SourceRegister:
		v, ok := RegisterValue(t.CPU, c.Register)
		if !ok {
			return false, fmt.Errorf("unknown register: %s", c.Register)
		}
		actual = v
	case SourceMemory:
		if t.Memory == nil {
			return false, fmt.Errorf("no memory to read [$%04X]", c.Addr)
		}
		actual = uint64(t.Memory.Read(c.Addr))
	case SourceHitCount:
		actual = hits
	}
	return compareValues(actual, c.Op, c.Value), nil
}

func compareValues(actual uint64, op ConditionOp, expected uint64) bool {
	switch op {
	case OpEqual:
		return actual == expected
	case OpNotEqual:
		return actual != expected
	case OpLess:
		return actual < expected
	case OpGreater:
		return actual > expected
	case OpLessEqual:
		return actual <= expected
	case OpGreaterEqual:
		return actual >= expected
	}
	return false
}

// String formats the condition so that ParseCondition reads it back.
func (c *Condition) String() string {
	var lhs string
	switch c.Source {
	case SourceRegister:
		lhs = c.Register
	case SourceMemory:
		lhs = fmt.Sprintf("[$%04X]", c.Addr)
	case SourceHitCount:
		lhs = "hitcount"
	}
	return fmt.Sprintf("%s%s$%X", lhs, c.Op, c.Value)
}

// ParseAddress parses a number in one of the monitor notations: $hex,
// #decimal, 0x hex or bare hex.
func ParseAddress(s string) (uint64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}

	if strings.HasPrefix(s, "#") {
		v, err := strconv.ParseUint(s[1:], 10, 64)
		return v, err == nil
	}
	if strings.HasPrefix(s, "$") {
		v, err := strconv.ParseUint(s[1:], 16, 64)
		return v, err == nil
	}
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		v, err := strconv.ParseUint(s[2:], 16, 64)
		return v, err == nil
	}

	v, err := strconv.ParseUint(s, 16, 64)
	return v, err == nil
}
