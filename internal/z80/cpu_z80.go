// cpu_z80.go - Tact-accurate Z80 CPU core

/*
 ██▓ ███▄    █ ▄▄▄█████▓ █    ██  ██▓▄▄▄█████▓ ██▓ ▒█████   ███▄    █    ▓█████  ███▄    █   ▄████  ██▓ ███▄    █ ▓█████
▓██▒ ██ ▀█   █ ▓  ██▒ ▓▒ ██  ▓██▒▓██▒▓  ██▒ ▓▒▓██▒▒██▒  ██▒ ██ ▀█   █    ▓█   ▀  ██ ▀█   █  ██▒ ▀█▒▓██▒ ██ ▀█   █ ▓█   ▀
▒██▒▓██  ▀█ ██▒▒ ▓██░ ▒░▓██  ▒██░▒██▒▒ ▓██░ ▒░▒██▒▒██░  ██▒▓██  ▀█ ██▒   ▒███   ▓██  ▀█ ██▒▒██░▄▄▄░▒██▒▓██  ▀█ ██▒▒███
░██░▓██▒  ▐▌██▒░ ▓██▓ ░ ▓▓█  ░██░░██░░ ▓██▓ ░ ░██░▒██   ██░▓██▒  ▐▌██▒   ▒▓█  ▄ ▓██▒  ▐▌██▒░▓█  ██▓░██░▓██▒  ▐▌██▒▒▓█  ▄
░██░▒██░   ▓██░  ▒██▒ ░ ▒▒█████▓ ░██░  ▒██▒ ░ ░██░░ ████▓▒░▒██░   ▓██░   ░▒████▒▒██░   ▓██░░▒▓███▀▒░██░▒██░   ▓██░░▒████▒
░▓  ░ ▒░   ▒ ▒   ▒ ░░   ░▒▓▒ ▒ ▒ ░▓    ▒ ░░   ░▓  ░ ▒░▒░▒░ ░ ▒░   ▒ ▒    ░░ ▒░ ░░ ▒░   ▒ ▒  ░▒   ▒ ░▓  ░ ▒░   ▒ ▒ ░░ ▒░ ░
 ▒ ░░ ░░   ░ ▒░    ░    ░░▒░ ░ ░  ▒ ░    ░     ▒ ░  ░ ▒ ▒░ ░ ░░   ░ ▒░    ░ ░  ░░ ░░   ░ ▒░  ░   ░  ▒ ░░ ░░   ░ ▒░ ░ ░  ░
 ▒ ░   ░   ░ ░   ░       ░░░ ░ ░  ▒ ░  ░       ▒ ░░ ░ ░ ▒     ░   ░ ░       ░      ░   ░ ░ ░ ░   ░  ▒ ░   ░   ░ ░    ░
 ░           ░             ░      ░            ░      ░ ░           ░       ░  ░         ░       ░  ░           ░    ░  ░

(c) 2024 - 2026 Zayn Otley
https://github.com/IntuitionAmiga/IntuitionEngine
License: GPLv3 or later
*/

/*
cpu_z80.go - Z80 CPU

The CPU advances its own tact counter one machine cycle at a time so that
every memory and I/O access happens at the exact tact the real chip would
perform it. Devices sharing the bus (the ULA in particular) slow the CPU
down through the optional Contender interface.

ExecuteCpuCycle processes a single step: a pending signal, a halted refresh
cycle, or one opcode byte. Prefix bytes (CB, ED, DD, FD) take their own step
and keep the CPU "in op execution" until the full instruction completes.
*/

package z80

type Bus interface {
	Read(addr uint16) byte
	Write(addr uint16, value byte)
	In(port uint16) byte
	Out(port uint16, value byte)
}

// Contender reports the extra tacts a bus access costs at the current tact.
type Contender interface {
	// MemoryContention returns the delay for an access to addr right now,
	// zero for uncontended addresses.
	MemoryContention(addr uint16) int
	// ULAContention returns the delay for the current tact regardless of
	// the address (used for ULA port access).
	ULAContention() int
}

const (
	FlagS  = 0x80
	FlagZ  = 0x40
	FlagY  = 0x20 // undocumented bit 5
	FlagH  = 0x10
	FlagX  = 0x08 // undocumented bit 3
	FlagPV = 0x04
	FlagN  = 0x02
	FlagC  = 0x01

	flagXY = FlagX | FlagY
)

const (
	prefixNone byte = iota
	prefixCB
	prefixED
)

const (
	indexNone byte = iota
	indexIX
	indexIY
)

type CPU struct {
	A  byte
	F  byte
	B  byte
	C  byte
	D  byte
	E  byte
	H  byte
	L  byte
	A2 byte
	F2 byte
	B2 byte
	C2 byte
	D2 byte
	E2 byte
	H2 byte
	L2 byte

	IX uint16
	IY uint16
	SP uint16
	PC uint16

	I  byte
	R  byte
	IM byte
	WZ uint16

	IFF1 bool
	IFF2 bool

	// Tacts is the machine clock. It never decreases except on Reset.
	Tacts uint64

	// InstructionCount counts completed instructions (prefixes excluded).
	InstructionCount uint64

	halted           bool
	irqLine          bool
	nmiLine          bool
	nmiPending       bool
	resetPending     bool
	interruptBlocked bool
	inOpExecution    bool
	interruptEntered bool

	prefix byte
	index  byte

	bus       Bus
	contender Contender

	baseOps [256]func(*CPU)
	cbOps   [256]func(*CPU)
	edOps   [256]func(*CPU)
}

// New creates a CPU wired to bus. contender may be nil, in which case every
// access costs exactly its documented tact count.
func New(bus Bus, contender Contender) *CPU {
	cpu := &CPU{
		bus:       bus,
		contender: contender,
	}
	cpu.initBaseOps()
	cpu.initCBOps()
	cpu.initEDOps()
	cpu.Reset()
	return cpu
}

// Reset performs a hard reset: registers as after power up, clock back to 0.
func (c *CPU) Reset() {
	c.A, c.F = 0xFF, 0xFF
	c.B, c.C, c.D, c.E, c.H, c.L = 0, 0, 0, 0, 0, 0
	c.A2, c.F2 = 0xFF, 0xFF
	c.B2, c.C2, c.D2, c.E2, c.H2, c.L2 = 0, 0, 0, 0, 0, 0
	c.IX = 0xFFFF
	c.IY = 0xFFFF
	c.SP = 0xFFFF
	c.PC = 0
	c.I = 0
	c.R = 0
	c.IM = 0
	c.WZ = 0
	c.IFF1 = false
	c.IFF2 = false
	c.Tacts = 0
	c.InstructionCount = 0

	c.halted = false
	c.irqLine = false
	c.nmiLine = false
	c.nmiPending = false
	c.resetPending = false
	c.interruptBlocked = false
	c.inOpExecution = false
	c.interruptEntered = false
	c.prefix = prefixNone
	c.index = indexNone
}

func (c *CPU) AF() uint16  { return uint16(c.A)<<8 | uint16(c.F) }
func (c *CPU) BC() uint16  { return uint16(c.B)<<8 | uint16(c.C) }
func (c *CPU) DE() uint16  { return uint16(c.D)<<8 | uint16(c.E) }
func (c *CPU) HL() uint16  { return uint16(c.H)<<8 | uint16(c.L) }
func (c *CPU) AF2() uint16 { return uint16(c.A2)<<8 | uint16(c.F2) }
func (c *CPU) BC2() uint16 { return uint16(c.B2)<<8 | uint16(c.C2) }
func (c *CPU) DE2() uint16 { return uint16(c.D2)<<8 | uint16(c.E2) }
func (c *CPU) HL2() uint16 { return uint16(c.H2)<<8 | uint16(c.L2) }
func (c *CPU) IR() uint16  { return uint16(c.I)<<8 | uint16(c.R) }

func (c *CPU) SetAF(value uint16)  { c.A, c.F = byte(value>>8), byte(value) }
func (c *CPU) SetBC(value uint16)  { c.B, c.C = byte(value>>8), byte(value) }
func (c *CPU) SetDE(value uint16)  { c.D, c.E = byte(value>>8), byte(value) }
func (c *CPU) SetHL(value uint16)  { c.H, c.L = byte(value>>8), byte(value) }
func (c *CPU) SetAF2(value uint16) { c.A2, c.F2 = byte(value>>8), byte(value) }
func (c *CPU) SetBC2(value uint16) { c.B2, c.C2 = byte(value>>8), byte(value) }
func (c *CPU) SetDE2(value uint16) { c.D2, c.E2 = byte(value>>8), byte(value) }
func (c *CPU) SetHL2(value uint16) { c.H2, c.L2 = byte(value>>8), byte(value) }

func (c *CPU) Flag(mask byte) bool {
	return c.F&mask != 0
}

func (c *CPU) SetFlag(mask byte, on bool) {
	if on {
		c.F |= mask
	} else {
		c.F &^= mask
	}
}

// SetIRQLine drives the maskable interrupt input (level sensitive).
func (c *CPU) SetIRQLine(assert bool) {
	c.irqLine = assert
}

// IRQLine reports the current state of the INT input.
func (c *CPU) IRQLine() bool {
	return c.irqLine
}

// SetNMILine drives the NMI input. The NMI is taken on the rising edge.
func (c *CPU) SetNMILine(assert bool) {
	if assert && !c.nmiLine {
		c.nmiPending = true
	}
	c.nmiLine = assert
}

// SetResetLine requests a reset that is carried out on the next cycle.
func (c *CPU) SetResetLine() {
	c.resetPending = true
	c.interruptBlocked = true
}

// IsInterruptBlocked reports whether INT would be ignored at this point:
// between prefix bytes, right after EI, or while a reset is pending.
func (c *CPU) IsInterruptBlocked() bool {
	return c.interruptBlocked
}

// IsInOpExecution reports whether the CPU is between the bytes of a
// prefixed instruction.
func (c *CPU) IsInOpExecution() bool {
	return c.inOpExecution
}

func (c *CPU) IsHalted() bool {
	return c.halted
}

// MaskableInterruptModeEntered reports whether the last cycle accepted a
// maskable interrupt.
func (c *CPU) MaskableInterruptModeEntered() bool {
	return c.interruptEntered
}

// ClearExecutionState drops HALT, a half-decoded prefix and pending NMI or
// RESET requests. Registers and the clock are kept. Use it before loading
// registers from outside, such as from a snapshot.
func (c *CPU) ClearExecutionState() {
	c.halted = false
	c.nmiPending = false
	c.resetPending = false
	c.interruptBlocked = false
	c.inOpExecution = false
	c.interruptEntered = false
	c.prefix = prefixNone
	c.index = indexNone
}

// ExecuteCpuCycle runs one step of the CPU.
func (c *CPU) ExecuteCpuCycle() {
	if !c.inOpExecution {
		c.interruptEntered = false
	}
	if c.processSignals() {
		return
	}

	opcode := c.fetchOpcode()

	switch c.prefix {
	case prefixCB:
		c.interruptBlocked = false
		c.cbOps[opcode](c)
		c.completeInstruction()
		return
	case prefixED:
		c.interruptBlocked = false
		c.edOps[opcode](c)
		c.completeInstruction()
		return
	}

	switch opcode {
	case 0xDD:
		c.index = indexIX
		c.inOpExecution, c.interruptBlocked = true, true
		return
	case 0xFD:
		c.index = indexIY
		c.inOpExecution, c.interruptBlocked = true, true
		return
	case 0xED:
		c.index = indexNone
		c.prefix = prefixED
		c.inOpExecution, c.interruptBlocked = true, true
		return
	case 0xCB:
		if c.index != indexNone {
			c.interruptBlocked = false
			c.executeIndexedBitOp()
			c.completeInstruction()
			return
		}
		c.prefix = prefixCB
		c.inOpExecution, c.interruptBlocked = true, true
		return
	}

	c.interruptBlocked = false
	c.baseOps[opcode](c)
	c.completeInstruction()
}

func (c *CPU) completeInstruction() {
	c.prefix = prefixNone
	c.index = indexNone
	c.inOpExecution = false
	c.InstructionCount++
}

// processSignals handles RESET, NMI, INT and the HALT state. It returns true
// when the cycle has been consumed.
func (c *CPU) processSignals() bool {
	if c.resetPending {
		c.Reset()
		return true
	}
	if c.inOpExecution {
		return false
	}
	if c.nmiPending {
		c.nmiPending = false
		c.executeNMI()
		return true
	}
	if c.irqLine && c.IFF1 && !c.interruptBlocked {
		c.executeInterrupt()
		return true
	}
	if c.halted {
		c.contend(c.PC)
		c.Tacts += 3
		c.refreshMemory()
		return true
	}
	return false
}

func (c *CPU) leaveHalt() {
	if c.halted {
		c.PC++
		c.halted = false
	}
}

func (c *CPU) executeNMI() {
	c.leaveHalt()
	c.IFF2 = c.IFF1
	c.IFF1 = false
	c.Tacts += 4
	c.refreshMemory()
	c.pushWord(c.PC)
	c.PC = 0x0066
	c.WZ = c.PC
}

func (c *CPU) executeInterrupt() {
	c.leaveHalt()
	c.IFF1 = false
	c.IFF2 = false
	c.interruptEntered = true

	// Acknowledge cycle: M1 with two wait states.
	c.Tacts += 6
	c.refreshMemory()
	c.pushWord(c.PC)

	switch c.IM {
	case 2:
		// The data bus floats high during acknowledge.
		addr := uint16(c.I)<<8 | 0xFF
		lo := c.read(addr)
		hi := c.read(addr + 1)
		c.WZ = uint16(hi)<<8 | uint16(lo)
	default:
		// IM 0 sees 0xFF on the data bus, which is RST 38h.
		c.WZ = 0x0038
	}
	c.PC = c.WZ
}

// CallInstructionLength returns the length of a CALL-like instruction at PC
// (CALL, RST, HALT or a repeating block instruction), or 0 otherwise.
func (c *CPU) CallInstructionLength() int {
	opcode := c.bus.Read(c.PC)
	switch {
	case opcode == 0xCD:
		return 3
	case opcode&0xC7 == 0xC4:
		return 3
	case opcode&0xC7 == 0xC7:
		return 1
	case opcode == 0x76:
		return 1
	case opcode == 0xED:
		switch c.bus.Read(c.PC + 1) {
		case 0xB0, 0xB1, 0xB2, 0xB3, 0xB8, 0xB9, 0xBA, 0xBB:
			return 2
		}
	}
	return 0
}

// --- Bus cycles ---

func (c *CPU) contend(addr uint16) {
	if c.contender != nil {
		c.Tacts += uint64(c.contender.MemoryContention(addr))
	}
}

func (c *CPU) refreshMemory() {
	c.R = (c.R & 0x80) | ((c.R + 1) & 0x7F)
	c.Tacts++
}

func (c *CPU) fetchOpcode() byte {
	c.contend(c.PC)
	opcode := c.bus.Read(c.PC)
	c.Tacts += 3
	c.PC++
	c.refreshMemory()
	return opcode
}

func (c *CPU) read(addr uint16) byte {
	c.contend(addr)
	value := c.bus.Read(addr)
	c.Tacts += 3
	return value
}

func (c *CPU) write(addr uint16, value byte) {
	c.contend(addr)
	c.bus.Write(addr, value)
	c.Tacts += 3
}

func (c *CPU) fetchByte() byte {
	value := c.read(c.PC)
	c.PC++
	return value
}

func (c *CPU) fetchWord() uint16 {
	lo := c.fetchByte()
	hi := c.fetchByte()
	return uint16(hi)<<8 | uint16(lo)
}

func (c *CPU) readWord(addr uint16) uint16 {
	lo := c.read(addr)
	hi := c.read(addr + 1)
	return uint16(hi)<<8 | uint16(lo)
}

func (c *CPU) writeWord(addr uint16, value uint16) {
	c.write(addr, byte(value))
	c.write(addr+1, byte(value>>8))
}

// internal burns n internal tacts with addr on the address bus.
func (c *CPU) internal(addr uint16, n int) {
	if c.contender == nil {
		c.Tacts += uint64(n)
		return
	}
	for i := 0; i < n; i++ {
		c.contend(addr)
		c.Tacts++
	}
}

// ioCycle spends the four tacts of an I/O machine cycle, including the
// contention pattern of the Spectrum ULA.
func (c *CPU) ioCycle(port uint16) {
	if c.contender == nil {
		c.Tacts += 4
		return
	}
	if port&0x0001 != 0 {
		for i := 0; i < 4; i++ {
			c.contend(port)
			c.Tacts++
		}
		return
	}
	c.contend(port)
	c.Tacts++
	c.Tacts += uint64(c.contender.ULAContention())
	c.Tacts += 3
}

func (c *CPU) in(port uint16) byte {
	c.ioCycle(port)
	return c.bus.In(port)
}

func (c *CPU) out(port uint16, value byte) {
	c.ioCycle(port)
	c.bus.Out(port, value)
}

func (c *CPU) pushWord(value uint16) {
	c.SP--
	c.write(c.SP, byte(value>>8))
	c.SP--
	c.write(c.SP, byte(value))
}

func (c *CPU) popWord() uint16 {
	lo := c.read(c.SP)
	c.SP++
	hi := c.read(c.SP)
	c.SP++
	return uint16(hi)<<8 | uint16(lo)
}
