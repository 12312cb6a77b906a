package z80

type aluOp byte

const (
	aluAdd aluOp = iota
	aluAdc
	aluSub
	aluSbc
	aluAnd
	aluXor
	aluOr
	aluCp
)

func (c *CPU) carryBit() byte {
	return c.F & FlagC
}

func (c *CPU) performALU(op aluOp, value byte) {
	switch op {
	case aluAdd:
		c.addA(value, 0)
	case aluAdc:
		c.addA(value, c.carryBit())
	case aluSub:
		c.subA(value, 0, true)
	case aluSbc:
		c.subA(value, c.carryBit(), true)
	case aluAnd:
		c.andA(value)
	case aluXor:
		c.xorA(value)
	case aluOr:
		c.orA(value)
	case aluCp:
		c.subA(value, 0, false)
	}
}

func (c *CPU) addA(value byte, carry byte) {
	a := c.A
	sum := uint16(a) + uint16(value) + uint16(carry)
	res := byte(sum)

	c.A = res
	c.F = 0
	if res == 0 {
		c.F |= FlagZ
	}
	if res&0x80 != 0 {
		c.F |= FlagS
	}
	if ((a&0x0F)+(value&0x0F)+carry)&0x10 != 0 {
		c.F |= FlagH
	}
	if ((^(a ^ value))&(a^res))&0x80 != 0 {
		c.F |= FlagPV
	}
	if sum > 0xFF {
		c.F |= FlagC
	}
	c.F |= res & flagXY
}

// subA implements SUB, SBC and CP. CP leaves A alone and copies bits 3 and
// 5 of the operand instead of the result.
func (c *CPU) subA(value byte, carry byte, store bool) {
	a := c.A
	diff := int(a) - int(value) - int(carry)
	res := byte(diff)

	c.F = FlagN
	if res == 0 {
		c.F |= FlagZ
	}
	if res&0x80 != 0 {
		c.F |= FlagS
	}
	if int(a&0x0F)-int(value&0x0F)-int(carry) < 0 {
		c.F |= FlagH
	}
	if ((a ^ value) & (a ^ res) & 0x80) != 0 {
		c.F |= FlagPV
	}
	if diff < 0 {
		c.F |= FlagC
	}
	if store {
		c.A = res
		c.F |= res & flagXY
	} else {
		c.F |= value & flagXY
	}
}

func (c *CPU) andA(value byte) {
	c.A &= value
	c.F = FlagH
	c.setSZPFlags(c.A)
}

func (c *CPU) xorA(value byte) {
	c.A ^= value
	c.F = 0
	c.setSZPFlags(c.A)
}

func (c *CPU) orA(value byte) {
	c.A |= value
	c.F = 0
	c.setSZPFlags(c.A)
}

func (c *CPU) inc8(value byte) byte {
	res := value + 1
	c.F &= FlagC
	if res == 0 {
		c.F |= FlagZ
	}
	if res&0x80 != 0 {
		c.F |= FlagS
	}
	if value&0x0F == 0x0F {
		c.F |= FlagH
	}
	if value == 0x7F {
		c.F |= FlagPV
	}
	c.F |= res & flagXY
	return res
}

func (c *CPU) dec8(value byte) byte {
	res := value - 1
	c.F = (c.F & FlagC) | FlagN
	if res == 0 {
		c.F |= FlagZ
	}
	if res&0x80 != 0 {
		c.F |= FlagS
	}
	if value&0x0F == 0 {
		c.F |= FlagH
	}
	if value == 0x80 {
		c.F |= FlagPV
	}
	c.F |= res & flagXY
	return res
}

// add16 is ADD HL/IX/IY,rr. S, Z and PV are preserved.
func (c *CPU) add16(dest, value uint16) uint16 {
	sum := uint32(dest) + uint32(value)

	c.F &^= FlagH | FlagN | FlagC | flagXY
	if ((dest&0x0FFF)+(value&0x0FFF))&0x1000 != 0 {
		c.F |= FlagH
	}
	if sum > 0xFFFF {
		c.F |= FlagC
	}
	result := uint16(sum)
	c.F |= byte(result>>8) & flagXY
	c.WZ = dest + 1
	return result
}

func (c *CPU) adcHL(value uint16) {
	hl := c.HL()
	carry := uint16(c.carryBit())
	sum := uint32(hl) + uint32(value) + uint32(carry)
	res := uint16(sum)

	c.F = 0
	if res == 0 {
		c.F |= FlagZ
	}
	if res&0x8000 != 0 {
		c.F |= FlagS
	}
	if ((hl&0x0FFF)+(value&0x0FFF)+carry)&0x1000 != 0 {
		c.F |= FlagH
	}
	if ((^(hl ^ value))&(hl^res))&0x8000 != 0 {
		c.F |= FlagPV
	}
	if sum > 0xFFFF {
		c.F |= FlagC
	}
	c.F |= byte(res>>8) & flagXY
	c.WZ = hl + 1
	c.SetHL(res)
}

func (c *CPU) sbcHL(value uint16) {
	hl := c.HL()
	carry := uint16(c.carryBit())
	diff := int32(hl) - int32(value) - int32(carry)
	res := uint16(diff)

	c.F = FlagN
	if res == 0 {
		c.F |= FlagZ
	}
	if res&0x8000 != 0 {
		c.F |= FlagS
	}
	if int32(hl&0x0FFF)-int32(value&0x0FFF)-int32(carry) < 0 {
		c.F |= FlagH
	}
	if ((hl ^ value) & (hl ^ res) & 0x8000) != 0 {
		c.F |= FlagPV
	}
	if diff < 0 {
		c.F |= FlagC
	}
	c.F |= byte(res>>8) & flagXY
	c.WZ = hl + 1
	c.SetHL(res)
}

func (c *CPU) daa() {
	a := c.A
	adj := byte(0)
	carry := c.Flag(FlagC)
	subtract := c.Flag(FlagN)
	if c.Flag(FlagH) || a&0x0F > 0x09 {
		adj |= 0x06
	}
	if carry || a > 0x99 {
		adj |= 0x60
		carry = true
	}

	var res byte
	if subtract {
		res = a - adj
	} else {
		res = a + adj
	}

	c.A = res
	c.F &= FlagN
	c.setSZPFlags(res)
	if (a^res)&0x10 != 0 {
		c.F |= FlagH
	}
	if carry {
		c.F |= FlagC
	}
}

func (c *CPU) neg() {
	value := c.A
	c.A = 0
	c.subA(value, 0, true)
}

// setSZPFlags sets S, Z, PV (parity) and the undocumented bits from value,
// keeping H, N and C.
func (c *CPU) setSZPFlags(value byte) {
	c.F &^= FlagS | FlagZ | FlagPV | flagXY
	if value == 0 {
		c.F |= FlagZ
	}
	if value&0x80 != 0 {
		c.F |= FlagS
	}
	if parity8(value) {
		c.F |= FlagPV
	}
	c.F |= value & flagXY
}

// rotateShift performs the CB group operation (RLC, RRC, RL, RR, SLA, SRA,
// SLL, SRL) and sets the flags.
func (c *CPU) rotateShift(group byte, value byte) byte {
	var res byte
	var carry bool
	switch group & 0x07 {
	case 0:
		carry = value&0x80 != 0
		res = value<<1 | value>>7
	case 1:
		carry = value&0x01 != 0
		res = value>>1 | value<<7
	case 2:
		carry = value&0x80 != 0
		res = value<<1 | c.carryBit()
	case 3:
		carry = value&0x01 != 0
		res = value>>1 | c.carryBit()<<7
	case 4:
		carry = value&0x80 != 0
		res = value << 1
	case 5:
		carry = value&0x01 != 0
		res = value>>1 | value&0x80
	case 6:
		// SLL shifts a 1 into bit 0.
		carry = value&0x80 != 0
		res = value<<1 | 0x01
	case 7:
		carry = value&0x01 != 0
		res = value >> 1
	}
	c.F = 0
	if carry {
		c.F |= FlagC
	}
	c.setSZPFlags(res)
	return res
}

// rotateA implements RLCA, RRCA, RLA and RRA: S, Z and PV are preserved.
func (c *CPU) rotateA(group byte) {
	keep := c.F & (FlagS | FlagZ | FlagPV)
	c.A = c.rotateShift(group, c.A)
	c.F = keep | (c.F & FlagC) | (c.A & flagXY)
}

// bitTest implements BIT n. xy supplies the undocumented bits 3 and 5.
func (c *CPU) bitTest(bit byte, value byte, xy byte) {
	tested := value & (1 << bit)
	c.F = (c.F & FlagC) | FlagH
	if tested == 0 {
		c.F |= FlagZ | FlagPV
	}
	if bit == 7 && tested != 0 {
		c.F |= FlagS
	}
	c.F |= xy & flagXY
}

func parity8(value byte) bool {
	value ^= value >> 4
	value ^= value >> 2
	value ^= value >> 1
	return value&1 == 0
}
