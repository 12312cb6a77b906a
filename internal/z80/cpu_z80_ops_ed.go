package z80

func (c *CPU) initCBOps() {
	for opcode := 0; opcode <= 0xFF; opcode++ {
		op := byte(opcode)
		group := (op >> 3) & 0x07
		reg := op & 0x07
		switch op >> 6 {
		case 0:
			c.cbOps[op] = func(cpu *CPU) {
				cpu.opCBModify(reg, func(v byte) byte { return cpu.rotateShift(group, v) })
			}
		case 1:
			c.cbOps[op] = func(cpu *CPU) {
				cpu.opCBBIT(group, reg)
			}
		case 2:
			mask := ^byte(1 << group)
			c.cbOps[op] = func(cpu *CPU) {
				cpu.opCBModify(reg, func(v byte) byte { return v & mask })
			}
		case 3:
			mask := byte(1 << group)
			c.cbOps[op] = func(cpu *CPU) {
				cpu.opCBModify(reg, func(v byte) byte { return v | mask })
			}
		}
	}
}

func (c *CPU) opCBModify(reg byte, apply func(byte) byte) {
	if reg != regMem {
		c.setReg8Plain(reg, apply(c.reg8Plain(reg)))
		return
	}
	addr := c.HL()
	value := c.read(addr)
	c.internal(addr, 1)
	c.write(addr, apply(value))
}

func (c *CPU) opCBBIT(bit, reg byte) {
	if reg != regMem {
		value := c.reg8Plain(reg)
		c.bitTest(bit, value, value)
		return
	}
	addr := c.HL()
	value := c.read(addr)
	c.internal(addr, 1)
	c.bitTest(bit, value, byte(c.WZ>>8))
}

// executeIndexedBitOp runs a DDCB/FDCB instruction. The displacement and
// the operation byte are plain memory reads, not M1 cycles.
func (c *CPU) executeIndexedBitOp() {
	d := int8(c.fetchByte())
	op := c.fetchByte()
	c.internal(c.PC-1, 2)

	addr := c.indexReg() + uint16(int16(d))
	c.WZ = addr
	value := c.read(addr)
	group := (op >> 3) & 0x07
	reg := op & 0x07

	var res byte
	switch op >> 6 {
	case 0:
		res = c.rotateShift(group, value)
	case 1:
		c.internal(addr, 1)
		c.bitTest(group, value, byte(addr>>8))
		return
	case 2:
		res = value &^ (1 << group)
	case 3:
		res = value | 1<<group
	}
	c.internal(addr, 1)
	c.write(addr, res)
	// Undocumented: the result is also copied to a register.
	if reg != regMem {
		c.setReg8Plain(reg, res)
	}
}

func (c *CPU) initEDOps() {
	for i := range c.edOps {
		c.edOps[i] = (*CPU).opNOP
	}

	for reg := byte(0); reg < 8; reg++ {
		r := reg
		c.edOps[0x40|r<<3] = func(cpu *CPU) {
			cpu.opINRC(r)
		}
		c.edOps[0x41|r<<3] = func(cpu *CPU) {
			cpu.opOUTCR(r)
		}
		// NEG, RETN/RETI and IM are mirrored across the block.
		c.edOps[0x44|r<<3] = func(cpu *CPU) {
			cpu.neg()
		}
		c.edOps[0x45|r<<3] = (*CPU).opRETN
	}

	for rp := byte(0); rp < 4; rp++ {
		pair := rp
		c.edOps[0x42|pair<<4] = func(cpu *CPU) {
			cpu.internal(cpu.IR(), 7)
			cpu.sbcHL(cpu.regPair(pair))
		}
		c.edOps[0x4A|pair<<4] = func(cpu *CPU) {
			cpu.internal(cpu.IR(), 7)
			cpu.adcHL(cpu.regPair(pair))
		}
		c.edOps[0x43|pair<<4] = func(cpu *CPU) {
			addr := cpu.fetchWord()
			cpu.writeWord(addr, cpu.regPair(pair))
			cpu.WZ = addr + 1
		}
		c.edOps[0x4B|pair<<4] = func(cpu *CPU) {
			addr := cpu.fetchWord()
			cpu.setRegPair(pair, cpu.readWord(addr))
			cpu.WZ = addr + 1
		}
	}

	for _, op := range []byte{0x46, 0x4E, 0x66, 0x6E} {
		c.edOps[op] = func(cpu *CPU) { cpu.IM = 0 }
	}
	for _, op := range []byte{0x56, 0x76} {
		c.edOps[op] = func(cpu *CPU) { cpu.IM = 1 }
	}
	for _, op := range []byte{0x5E, 0x7E} {
		c.edOps[op] = func(cpu *CPU) { cpu.IM = 2 }
	}

	c.edOps[0x47] = (*CPU).opLDIA
	c.edOps[0x4F] = (*CPU).opLDRA
	c.edOps[0x57] = (*CPU).opLDAI
	c.edOps[0x5F] = (*CPU).opLDAR
	c.edOps[0x67] = (*CPU).opRRD
	c.edOps[0x6F] = (*CPU).opRLD

	c.edOps[0xA0] = func(cpu *CPU) { cpu.blockLoad(1, false) }
	c.edOps[0xA8] = func(cpu *CPU) { cpu.blockLoad(-1, false) }
	c.edOps[0xB0] = func(cpu *CPU) { cpu.blockLoad(1, true) }
	c.edOps[0xB8] = func(cpu *CPU) { cpu.blockLoad(-1, true) }
	c.edOps[0xA1] = func(cpu *CPU) { cpu.blockCompare(1, false) }
	c.edOps[0xA9] = func(cpu *CPU) { cpu.blockCompare(-1, false) }
	c.edOps[0xB1] = func(cpu *CPU) { cpu.blockCompare(1, true) }
	c.edOps[0xB9] = func(cpu *CPU) { cpu.blockCompare(-1, true) }
	c.edOps[0xA2] = func(cpu *CPU) { cpu.blockIn(1, false) }
	c.edOps[0xAA] = func(cpu *CPU) { cpu.blockIn(-1, false) }
	c.edOps[0xB2] = func(cpu *CPU) { cpu.blockIn(1, true) }
	c.edOps[0xBA] = func(cpu *CPU) { cpu.blockIn(-1, true) }
	c.edOps[0xA3] = func(cpu *CPU) { cpu.blockOut(1, false) }
	c.edOps[0xAB] = func(cpu *CPU) { cpu.blockOut(-1, false) }
	c.edOps[0xB3] = func(cpu *CPU) { cpu.blockOut(1, true) }
	c.edOps[0xBB] = func(cpu *CPU) { cpu.blockOut(-1, true) }
}

func (c *CPU) opINRC(reg byte) {
	port := c.BC()
	value := c.in(port)
	c.WZ = port + 1
	c.F &= FlagC
	c.setSZPFlags(value)
	// ED 70 only sets the flags.
	if reg != regMem {
		c.setReg8Plain(reg, value)
	}
}

func (c *CPU) opOUTCR(reg byte) {
	port := c.BC()
	value := byte(0)
	if reg != regMem {
		value = c.reg8Plain(reg)
	}
	c.out(port, value)
	c.WZ = port + 1
}

func (c *CPU) opRETN() {
	c.IFF1 = c.IFF2
	c.opRET()
}

func (c *CPU) opLDIA() {
	c.internal(c.IR(), 1)
	c.I = c.A
}

func (c *CPU) opLDRA() {
	c.internal(c.IR(), 1)
	c.R = c.A
}

func (c *CPU) opLDAI() {
	c.internal(c.IR(), 1)
	c.A = c.I
	c.updateLDAIRFlags()
}

func (c *CPU) opLDAR() {
	c.internal(c.IR(), 1)
	c.A = c.R
	c.updateLDAIRFlags()
}

func (c *CPU) updateLDAIRFlags() {
	c.F &= FlagC
	if c.A == 0 {
		c.F |= FlagZ
	}
	if c.A&0x80 != 0 {
		c.F |= FlagS
	}
	if c.IFF2 {
		c.F |= FlagPV
	}
	c.F |= c.A & flagXY
}

func (c *CPU) opRRD() {
	addr := c.HL()
	value := c.read(addr)
	c.internal(addr, 4)
	c.write(addr, c.A<<4|value>>4)
	c.A = c.A&0xF0 | value&0x0F
	c.F &= FlagC
	c.setSZPFlags(c.A)
	c.WZ = addr + 1
}

func (c *CPU) opRLD() {
	addr := c.HL()
	value := c.read(addr)
	c.internal(addr, 4)
	c.write(addr, value<<4|c.A&0x0F)
	c.A = c.A&0xF0 | value>>4
	c.F &= FlagC
	c.setSZPFlags(c.A)
	c.WZ = addr + 1
}

// repeatBlock rewinds PC onto the ED prefix so the instruction runs again.
func (c *CPU) repeatBlock(addr uint16) {
	c.internal(addr, 5)
	c.PC -= 2
	c.WZ = c.PC + 1
}

// blockLoad implements LDI, LDD, LDIR and LDDR.
func (c *CPU) blockLoad(step int, repeat bool) {
	hl, de := c.HL(), c.DE()
	value := c.read(hl)
	c.write(de, value)
	c.internal(de, 2)
	c.SetHL(hl + uint16(step))
	c.SetDE(de + uint16(step))
	bc := c.BC() - 1
	c.SetBC(bc)

	n := c.A + value
	c.F &= FlagS | FlagZ | FlagC
	if bc != 0 {
		c.F |= FlagPV
	}
	c.F |= n&FlagX | (n&0x02)<<4

	if repeat && bc != 0 {
		c.repeatBlock(de)
	}
}

// blockCompare implements CPI, CPD, CPIR and CPDR.
func (c *CPU) blockCompare(step int, repeat bool) {
	hl := c.HL()
	value := c.read(hl)
	c.internal(hl, 5)
	c.SetHL(hl + uint16(step))
	bc := c.BC() - 1
	c.SetBC(bc)
	c.WZ += uint16(step)

	res := c.A - value
	halfBorrow := c.A&0x0F < value&0x0F
	c.F = c.F&FlagC | FlagN
	if res == 0 {
		c.F |= FlagZ
	}
	if res&0x80 != 0 {
		c.F |= FlagS
	}
	n := res
	if halfBorrow {
		c.F |= FlagH
		n--
	}
	if bc != 0 {
		c.F |= FlagPV
	}
	c.F |= n&FlagX | (n&0x02)<<4

	if repeat && bc != 0 && res != 0 {
		c.repeatBlock(hl)
	}
}

// blockIOFlags sets the flags shared by INI/IND/OUTI/OUTD. k is the 9-bit
// sum the undocumented H, C and PV flags are derived from.
func (c *CPU) blockIOFlags(value byte, k uint16) {
	c.F = 0
	c.setSZPFlags(c.B)
	c.F &^= FlagPV
	if value&0x80 != 0 {
		c.F |= FlagN
	}
	if k > 0xFF {
		c.F |= FlagH | FlagC
	}
	if parity8(byte(k)&0x07 ^ c.B) {
		c.F |= FlagPV
	}
}

// blockIn implements INI, IND, INIR and INDR.
func (c *CPU) blockIn(step int, repeat bool) {
	c.internal(c.IR(), 1)
	port := c.BC()
	value := c.in(port)
	hl := c.HL()
	c.write(hl, value)
	c.WZ = port + uint16(step)
	c.B--
	c.SetHL(hl + uint16(step))

	k := uint16(value) + uint16(c.C+byte(step))
	c.blockIOFlags(value, k)

	if repeat && c.B != 0 {
		c.repeatBlock(hl)
	}
}

// blockOut implements OUTI, OUTD, OTIR and OTDR.
func (c *CPU) blockOut(step int, repeat bool) {
	c.internal(c.IR(), 1)
	hl := c.HL()
	value := c.read(hl)
	c.B--
	port := c.BC()
	c.out(port, value)
	c.WZ = port + uint16(step)
	c.SetHL(hl + uint16(step))

	k := uint16(value) + uint16(c.L)
	c.blockIOFlags(value, k)

	if repeat && c.B != 0 {
		c.repeatBlock(port)
	}
}
