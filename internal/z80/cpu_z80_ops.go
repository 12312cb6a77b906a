package z80

// Register codes follow the opcode encoding: B C D E H L (HL) A.
const (
	regB byte = iota
	regC
	regD
	regE
	regH
	regL
	regMem
	regA
)

// indexReg returns HL, IX or IY depending on the active prefix.
func (c *CPU) indexReg() uint16 {
	switch c.index {
	case indexIX:
		return c.IX
	case indexIY:
		return c.IY
	}
	return c.HL()
}

func (c *CPU) setIndexReg(value uint16) {
	switch c.index {
	case indexIX:
		c.IX = value
	case indexIY:
		c.IY = value
	default:
		c.SetHL(value)
	}
}

// reg8 reads a register by opcode code. H and L map to the index halves
// under a DD/FD prefix.
func (c *CPU) reg8(code byte) byte {
	switch code {
	case regH:
		return byte(c.indexReg() >> 8)
	case regL:
		return byte(c.indexReg())
	}
	return c.reg8Plain(code)
}

func (c *CPU) setReg8(code byte, value byte) {
	switch code {
	case regH:
		c.setIndexReg(c.indexReg()&0x00FF | uint16(value)<<8)
		return
	case regL:
		c.setIndexReg(c.indexReg()&0xFF00 | uint16(value))
		return
	}
	c.setReg8Plain(code, value)
}

func (c *CPU) reg8Plain(code byte) byte {
	switch code {
	case regB:
		return c.B
	case regC:
		return c.C
	case regD:
		return c.D
	case regE:
		return c.E
	case regH:
		return c.H
	case regL:
		return c.L
	case regA:
		return c.A
	}
	return 0
}

func (c *CPU) setReg8Plain(code byte, value byte) {
	switch code {
	case regB:
		c.B = value
	case regC:
		c.C = value
	case regD:
		c.D = value
	case regE:
		c.E = value
	case regH:
		c.H = value
	case regL:
		c.L = value
	case regA:
		c.A = value
	}
}

// regPair reads BC, DE, HL (or the index register) or SP.
func (c *CPU) regPair(code byte) uint16 {
	switch code & 0x03 {
	case 0:
		return c.BC()
	case 1:
		return c.DE()
	case 2:
		return c.indexReg()
	}
	return c.SP
}

func (c *CPU) setRegPair(code byte, value uint16) {
	switch code & 0x03 {
	case 0:
		c.SetBC(value)
	case 1:
		c.SetDE(value)
	case 2:
		c.setIndexReg(value)
	default:
		c.SP = value
	}
}

// condition evaluates NZ Z NC C PO PE P M.
func (c *CPU) condition(code byte) bool {
	switch code & 0x07 {
	case 0:
		return !c.Flag(FlagZ)
	case 1:
		return c.Flag(FlagZ)
	case 2:
		return !c.Flag(FlagC)
	case 3:
		return c.Flag(FlagC)
	case 4:
		return !c.Flag(FlagPV)
	case 5:
		return c.Flag(FlagPV)
	case 6:
		return !c.Flag(FlagS)
	}
	return c.Flag(FlagS)
}

// indexedAddr reads the displacement of an (IX+d)/(IY+d) operand and spends
// delay internal tacts on it.
func (c *CPU) indexedAddr(delay int) uint16 {
	d := int8(c.fetchByte())
	c.internal(c.PC-1, delay)
	addr := c.indexReg() + uint16(int16(d))
	c.WZ = addr
	return addr
}

// memOperand returns the address of the (HL) operand, or (IX+d)/(IY+d)
// under a prefix.
func (c *CPU) memOperand() uint16 {
	if c.index == indexNone {
		return c.HL()
	}
	return c.indexedAddr(5)
}

func (c *CPU) initBaseOps() {
	c.baseOps[0x00] = (*CPU).opNOP
	c.baseOps[0x76] = (*CPU).opHALT

	for opcode := 0x40; opcode <= 0x7F; opcode++ {
		if opcode == 0x76 {
			continue
		}
		dest := byte(opcode>>3) & 0x07
		src := byte(opcode) & 0x07
		c.baseOps[opcode] = func(cpu *CPU) {
			cpu.opLDRegReg(dest, src)
		}
	}

	for reg := byte(0); reg < 8; reg++ {
		r := reg
		c.baseOps[0x06|r<<3] = func(cpu *CPU) {
			cpu.opLDRegImm(r)
		}
		c.baseOps[0x04|r<<3] = func(cpu *CPU) {
			cpu.opIncDec8(r, true)
		}
		c.baseOps[0x05|r<<3] = func(cpu *CPU) {
			cpu.opIncDec8(r, false)
		}
	}

	for op := aluAdd; op <= aluCp; op++ {
		alu := op
		for reg := byte(0); reg < 8; reg++ {
			src := reg
			c.baseOps[0x80|byte(alu)<<3|src] = func(cpu *CPU) {
				cpu.opALUReg(alu, src)
			}
		}
		c.baseOps[0xC6|byte(alu)<<3] = func(cpu *CPU) {
			cpu.performALU(alu, cpu.fetchByte())
		}
	}

	for rp := byte(0); rp < 4; rp++ {
		pair := rp
		c.baseOps[0x01|pair<<4] = func(cpu *CPU) {
			cpu.setRegPair(pair, cpu.fetchWord())
		}
		c.baseOps[0x03|pair<<4] = func(cpu *CPU) {
			cpu.internal(cpu.IR(), 2)
			cpu.setRegPair(pair, cpu.regPair(pair)+1)
		}
		c.baseOps[0x0B|pair<<4] = func(cpu *CPU) {
			cpu.internal(cpu.IR(), 2)
			cpu.setRegPair(pair, cpu.regPair(pair)-1)
		}
		c.baseOps[0x09|pair<<4] = func(cpu *CPU) {
			cpu.internal(cpu.IR(), 7)
			cpu.setIndexReg(cpu.add16(cpu.indexReg(), cpu.regPair(pair)))
		}
		c.baseOps[0xC1|pair<<4] = func(cpu *CPU) {
			cpu.opPOP(pair)
		}
		c.baseOps[0xC5|pair<<4] = func(cpu *CPU) {
			cpu.opPUSH(pair)
		}
	}

	for cc := byte(0); cc < 8; cc++ {
		cond := cc
		c.baseOps[0xC2|cond<<3] = func(cpu *CPU) {
			cpu.jpCond(cpu.condition(cond))
		}
		c.baseOps[0xC4|cond<<3] = func(cpu *CPU) {
			cpu.callCond(cpu.condition(cond))
		}
		c.baseOps[0xC0|cond<<3] = func(cpu *CPU) {
			cpu.retCond(cond)
		}
		vector := uint16(cond) << 3
		c.baseOps[0xC7|cond<<3] = func(cpu *CPU) {
			cpu.opRST(vector)
		}
	}
	for cc := byte(0); cc < 4; cc++ {
		cond := cc
		c.baseOps[0x20|cond<<3] = func(cpu *CPU) {
			cpu.jrCond(cpu.condition(cond))
		}
	}

	c.baseOps[0x02] = func(cpu *CPU) { cpu.opLDMemA(cpu.BC()) }
	c.baseOps[0x12] = func(cpu *CPU) { cpu.opLDMemA(cpu.DE()) }
	c.baseOps[0x0A] = func(cpu *CPU) { cpu.opLDAMem(cpu.BC()) }
	c.baseOps[0x1A] = func(cpu *CPU) { cpu.opLDAMem(cpu.DE()) }

	c.baseOps[0x07] = func(cpu *CPU) { cpu.rotateA(0) }
	c.baseOps[0x0F] = func(cpu *CPU) { cpu.rotateA(1) }
	c.baseOps[0x17] = func(cpu *CPU) { cpu.rotateA(2) }
	c.baseOps[0x1F] = func(cpu *CPU) { cpu.rotateA(3) }

	c.baseOps[0x08] = (*CPU).opEXAF
	c.baseOps[0x10] = (*CPU).opDJNZ
	c.baseOps[0x18] = func(cpu *CPU) { cpu.jrCond(true) }
	c.baseOps[0x22] = (*CPU).opLDNNHL
	c.baseOps[0x2A] = (*CPU).opLDHLNN
	c.baseOps[0x27] = func(cpu *CPU) { cpu.daa() }
	c.baseOps[0x2F] = (*CPU).opCPL
	c.baseOps[0x32] = (*CPU).opLDNNA
	c.baseOps[0x3A] = (*CPU).opLDANN
	c.baseOps[0x37] = (*CPU).opSCF
	c.baseOps[0x3F] = (*CPU).opCCF

	c.baseOps[0xC3] = func(cpu *CPU) { cpu.jpCond(true) }
	c.baseOps[0xC9] = (*CPU).opRET
	c.baseOps[0xCD] = func(cpu *CPU) { cpu.callCond(true) }
	c.baseOps[0xD3] = (*CPU).opOUTNA
	c.baseOps[0xD9] = (*CPU).opEXX
	c.baseOps[0xDB] = (*CPU).opINAN
	c.baseOps[0xE3] = (*CPU).opEXSPHL
	c.baseOps[0xE9] = (*CPU).opJPHL
	c.baseOps[0xEB] = (*CPU).opEXDEHL
	c.baseOps[0xF3] = (*CPU).opDI
	c.baseOps[0xF9] = (*CPU).opLDSPHL
	c.baseOps[0xFB] = (*CPU).opEI

	// Prefix bytes are decoded by ExecuteCpuCycle; the table entries stay
	// as NOPs so that every slot is callable.
	for _, prefix := range []byte{0xCB, 0xDD, 0xED, 0xFD} {
		c.baseOps[prefix] = (*CPU).opNOP
	}
}

func (c *CPU) opNOP() {}

func (c *CPU) opHALT() {
	c.halted = true
	c.PC--
}

func (c *CPU) opLDRegReg(dest, src byte) {
	switch {
	case dest == regMem:
		addr := c.memOperand()
		c.write(addr, c.reg8Plain(src))
	case src == regMem:
		addr := c.memOperand()
		c.setReg8Plain(dest, c.read(addr))
	default:
		c.setReg8(dest, c.reg8(src))
	}
}

func (c *CPU) opLDRegImm(dest byte) {
	if dest != regMem {
		c.setReg8(dest, c.fetchByte())
		return
	}
	if c.index == indexNone {
		value := c.fetchByte()
		c.write(c.HL(), value)
		return
	}
	d := int8(c.fetchByte())
	value := c.fetchByte()
	c.internal(c.PC-1, 2)
	addr := c.indexReg() + uint16(int16(d))
	c.WZ = addr
	c.write(addr, value)
}

func (c *CPU) opIncDec8(reg byte, inc bool) {
	apply := c.dec8
	if inc {
		apply = c.inc8
	}
	if reg != regMem {
		c.setReg8(reg, apply(c.reg8(reg)))
		return
	}
	addr := c.memOperand()
	value := c.read(addr)
	c.internal(addr, 1)
	c.write(addr, apply(value))
}

func (c *CPU) opALUReg(op aluOp, src byte) {
	if src != regMem {
		c.performALU(op, c.reg8(src))
		return
	}
	addr := c.memOperand()
	c.performALU(op, c.read(addr))
}

func (c *CPU) opLDMemA(addr uint16) {
	c.write(addr, c.A)
	c.WZ = uint16(c.A)<<8 | (addr+1)&0x00FF
}

func (c *CPU) opLDAMem(addr uint16) {
	c.A = c.read(addr)
	c.WZ = addr + 1
}

func (c *CPU) opLDNNHL() {
	addr := c.fetchWord()
	c.writeWord(addr, c.indexReg())
	c.WZ = addr + 1
}

func (c *CPU) opLDHLNN() {
	addr := c.fetchWord()
	c.setIndexReg(c.readWord(addr))
	c.WZ = addr + 1
}

func (c *CPU) opLDNNA() {
	addr := c.fetchWord()
	c.write(addr, c.A)
	c.WZ = uint16(c.A)<<8 | (addr+1)&0x00FF
}

func (c *CPU) opLDANN() {
	addr := c.fetchWord()
	c.A = c.read(addr)
	c.WZ = addr + 1
}

func (c *CPU) opCPL() {
	c.A = ^c.A
	c.F = (c.F & (FlagS | FlagZ | FlagPV | FlagC)) | FlagH | FlagN
	c.F |= c.A & flagXY
}

func (c *CPU) opSCF() {
	c.F = (c.F & (FlagS | FlagZ | FlagPV)) | FlagC
	c.F |= c.A & flagXY
}

func (c *CPU) opCCF() {
	carry := c.Flag(FlagC)
	c.F = (c.F & (FlagS | FlagZ | FlagPV)) | (c.A & flagXY)
	if carry {
		c.F |= FlagH
	} else {
		c.F |= FlagC
	}
}

func (c *CPU) opEXAF() {
	c.A, c.A2 = c.A2, c.A
	c.F, c.F2 = c.F2, c.F
}

func (c *CPU) opEXX() {
	c.B, c.B2 = c.B2, c.B
	c.C, c.C2 = c.C2, c.C
	c.D, c.D2 = c.D2, c.D
	c.E, c.E2 = c.E2, c.E
	c.H, c.H2 = c.H2, c.H
	c.L, c.L2 = c.L2, c.L
}

func (c *CPU) opEXDEHL() {
	c.D, c.H = c.H, c.D
	c.E, c.L = c.L, c.E
}

func (c *CPU) opEXSPHL() {
	sp := c.SP
	lo := c.read(sp)
	hi := c.read(sp + 1)
	c.internal(sp+1, 1)
	value := c.indexReg()
	c.write(sp+1, byte(value>>8))
	c.write(sp, byte(value))
	c.internal(sp, 2)
	c.WZ = uint16(hi)<<8 | uint16(lo)
	c.setIndexReg(c.WZ)
}

func (c *CPU) opJPHL() {
	c.PC = c.indexReg()
}

func (c *CPU) opLDSPHL() {
	c.internal(c.IR(), 2)
	c.SP = c.indexReg()
}

func (c *CPU) opDI() {
	c.IFF1 = false
	c.IFF2 = false
}

func (c *CPU) opEI() {
	c.IFF1 = true
	c.IFF2 = true
	c.interruptBlocked = true
}

func (c *CPU) opOUTNA() {
	n := c.fetchByte()
	port := uint16(c.A)<<8 | uint16(n)
	c.out(port, c.A)
	c.WZ = uint16(c.A)<<8 | uint16(n+1)
}

func (c *CPU) opINAN() {
	n := c.fetchByte()
	port := uint16(c.A)<<8 | uint16(n)
	c.A = c.in(port)
	c.WZ = port + 1
}

func (c *CPU) opPUSH(pair byte) {
	c.internal(c.IR(), 1)
	if pair == 3 {
		c.pushWord(c.AF())
		return
	}
	c.pushWord(c.regPair(pair))
}

func (c *CPU) opPOP(pair byte) {
	value := c.popWord()
	if pair == 3 {
		c.SetAF(value)
		return
	}
	c.setRegPair(pair, value)
}

func (c *CPU) opDJNZ() {
	c.internal(c.IR(), 1)
	e := int8(c.fetchByte())
	c.B--
	if c.B == 0 {
		return
	}
	c.internal(c.PC-1, 5)
	c.PC += uint16(int16(e))
	c.WZ = c.PC
}

func (c *CPU) jrCond(cond bool) {
	e := int8(c.fetchByte())
	if !cond {
		return
	}
	c.internal(c.PC-1, 5)
	c.PC += uint16(int16(e))
	c.WZ = c.PC
}

func (c *CPU) jpCond(cond bool) {
	addr := c.fetchWord()
	c.WZ = addr
	if cond {
		c.PC = addr
	}
}

func (c *CPU) callCond(cond bool) {
	addr := c.fetchWord()
	c.WZ = addr
	if !cond {
		return
	}
	c.internal(c.PC-1, 1)
	c.pushWord(c.PC)
	c.PC = addr
}

func (c *CPU) retCond(cond byte) {
	c.internal(c.IR(), 1)
	if c.condition(cond) {
		c.opRET()
	}
}

func (c *CPU) opRET() {
	c.PC = c.popWord()
	c.WZ = c.PC
}

func (c *CPU) opRST(vector uint16) {
	c.internal(c.IR(), 1)
	c.pushWord(c.PC)
	c.PC = vector
	c.WZ = vector
}
