package z80

import "testing"

func TestZ80InstructionTacts(t *testing.T) {
	tests := []struct {
		name    string
		program []byte
		setup   func(*CPU)
		want    uint64
	}{
		{name: "NOP", program: []byte{0x00}, want: 4},
		{name: "LD BC,nn", program: []byte{0x01, 0x34, 0x12}, want: 10},
		{name: "LD (BC),A", program: []byte{0x02}, want: 7},
		{name: "INC BC", program: []byte{0x03}, want: 6},
		{name: "INC B", program: []byte{0x04}, want: 4},
		{name: "LD B,n", program: []byte{0x06, 0x01}, want: 7},
		{name: "ADD HL,BC", program: []byte{0x09}, want: 11},
		{name: "DJNZ taken", program: []byte{0x10, 0xFE}, want: 13},
		{name: "DJNZ not taken", program: []byte{0x10, 0xFE}, setup: func(c *CPU) { c.B = 1 }, want: 8},
		{name: "JR e", program: []byte{0x18, 0x00}, want: 12},
		{name: "JR NZ not taken", program: []byte{0x20, 0x00}, want: 7},
		{name: "JR Z taken", program: []byte{0x28, 0x00}, want: 12},
		{name: "LD (nn),HL", program: []byte{0x22, 0x00, 0x80}, want: 16},
		{name: "LD HL,(nn)", program: []byte{0x2A, 0x00, 0x80}, want: 16},
		{name: "INC (HL)", program: []byte{0x34}, setup: func(c *CPU) { c.SetHL(0x8000) }, want: 11},
		{name: "LD (HL),n", program: []byte{0x36, 0x05}, setup: func(c *CPU) { c.SetHL(0x8000) }, want: 10},
		{name: "LD A,(nn)", program: []byte{0x3A, 0x00, 0x80}, want: 13},
		{name: "LD (nn),A", program: []byte{0x32, 0x00, 0x80}, want: 13},
		{name: "HALT", program: []byte{0x76}, want: 4},
		{name: "LD B,C", program: []byte{0x41}, want: 4},
		{name: "LD B,(HL)", program: []byte{0x46}, want: 7},
		{name: "ADD A,(HL)", program: []byte{0x86}, want: 7},
		{name: "CP n", program: []byte{0xFE, 0x10}, want: 7},
		{name: "RET NZ not taken", program: []byte{0xC0}, want: 5},
		{name: "RET Z taken", program: []byte{0xC8}, want: 11},
		{name: "POP BC", program: []byte{0xC1}, want: 10},
		{name: "PUSH BC", program: []byte{0xC5}, want: 11},
		{name: "JP nn", program: []byte{0xC3, 0x00, 0x80}, want: 10},
		{name: "JP NZ,nn not taken", program: []byte{0xC2, 0x00, 0x80}, want: 10},
		{name: "CALL nn", program: []byte{0xCD, 0x00, 0x80}, want: 17},
		{name: "CALL NZ,nn not taken", program: []byte{0xC4, 0x00, 0x80}, want: 10},
		{name: "CALL Z,nn taken", program: []byte{0xCC, 0x00, 0x80}, want: 17},
		{name: "RST 38h", program: []byte{0xFF}, want: 11},
		{name: "RET", program: []byte{0xC9}, want: 10},
		{name: "OUT (n),A", program: []byte{0xD3, 0xFE}, want: 11},
		{name: "IN A,(n)", program: []byte{0xDB, 0xFE}, want: 11},
		{name: "EX (SP),HL", program: []byte{0xE3}, want: 19},
		{name: "JP (HL)", program: []byte{0xE9}, want: 4},
		{name: "EX DE,HL", program: []byte{0xEB}, want: 4},
		{name: "LD SP,HL", program: []byte{0xF9}, want: 6},
		{name: "DI", program: []byte{0xF3}, want: 4},

		{name: "RLC B", program: []byte{0xCB, 0x00}, want: 8},
		{name: "RLC (HL)", program: []byte{0xCB, 0x06}, setup: func(c *CPU) { c.SetHL(0x8000) }, want: 15},
		{name: "BIT 0,(HL)", program: []byte{0xCB, 0x46}, want: 12},
		{name: "SET 0,(HL)", program: []byte{0xCB, 0xC6}, setup: func(c *CPU) { c.SetHL(0x8000) }, want: 15},
		{name: "SLL A", program: []byte{0xCB, 0x37}, want: 8},

		{name: "IN B,(C)", program: []byte{0xED, 0x40}, want: 12},
		{name: "OUT (C),B", program: []byte{0xED, 0x41}, want: 12},
		{name: "SBC HL,BC", program: []byte{0xED, 0x42}, want: 15},
		{name: "ADC HL,DE", program: []byte{0xED, 0x5A}, want: 15},
		{name: "LD (nn),BC", program: []byte{0xED, 0x43, 0x00, 0x80}, want: 20},
		{name: "LD DE,(nn)", program: []byte{0xED, 0x5B, 0x00, 0x80}, want: 20},
		{name: "NEG", program: []byte{0xED, 0x44}, want: 8},
		{name: "RETN", program: []byte{0xED, 0x45}, want: 14},
		{name: "RETI", program: []byte{0xED, 0x4D}, want: 14},
		{name: "IM 1", program: []byte{0xED, 0x56}, want: 8},
		{name: "LD I,A", program: []byte{0xED, 0x47}, want: 9},
		{name: "LD A,R", program: []byte{0xED, 0x5F}, want: 9},
		{name: "RRD", program: []byte{0xED, 0x67}, setup: func(c *CPU) { c.SetHL(0x8000) }, want: 18},
		{name: "LDI", program: []byte{0xED, 0xA0}, setup: func(c *CPU) { c.SetDE(0x8000) }, want: 16},
		{name: "LDIR repeating", program: []byte{0xED, 0xB0}, setup: func(c *CPU) { c.SetDE(0x8000) }, want: 21},
		{name: "LDIR last", program: []byte{0xED, 0xB0}, setup: func(c *CPU) { c.SetDE(0x8000); c.SetBC(1) }, want: 16},
		{name: "CPI", program: []byte{0xED, 0xA1}, want: 16},
		{name: "CPIR repeating", program: []byte{0xED, 0xB1}, want: 21},
		{name: "INI", program: []byte{0xED, 0xA2}, setup: func(c *CPU) { c.SetHL(0x8000) }, want: 16},
		{name: "INIR repeating", program: []byte{0xED, 0xB2}, setup: func(c *CPU) { c.SetHL(0x8000); c.B = 2 }, want: 21},
		{name: "OUTI", program: []byte{0xED, 0xA3}, want: 16},
		{name: "OTIR repeating", program: []byte{0xED, 0xB3}, setup: func(c *CPU) { c.B = 2 }, want: 21},
		{name: "ED NOP", program: []byte{0xED, 0x00}, want: 8},

		{name: "LD IX,nn", program: []byte{0xDD, 0x21, 0x00, 0x00}, want: 14},
		{name: "LD A,(IX+d)", program: []byte{0xDD, 0x7E, 0x01}, want: 19},
		{name: "LD (IX+d),B", program: []byte{0xDD, 0x70, 0x01}, setup: func(c *CPU) { c.IX = 0x8000 }, want: 19},
		{name: "LD (IX+d),n", program: []byte{0xDD, 0x36, 0x01, 0x02}, setup: func(c *CPU) { c.IX = 0x8000 }, want: 19},
		{name: "INC (IX+d)", program: []byte{0xDD, 0x34, 0x01}, setup: func(c *CPU) { c.IX = 0x8000 }, want: 23},
		{name: "ADD A,(IY+d)", program: []byte{0xFD, 0x86, 0x01}, want: 19},
		{name: "ADD IX,BC", program: []byte{0xDD, 0x09}, want: 15},
		{name: "INC IX", program: []byte{0xDD, 0x23}, want: 10},
		{name: "PUSH IX", program: []byte{0xDD, 0xE5}, want: 15},
		{name: "POP IY", program: []byte{0xFD, 0xE1}, want: 14},
		{name: "EX (SP),IX", program: []byte{0xDD, 0xE3}, want: 23},
		{name: "JP (IX)", program: []byte{0xDD, 0xE9}, want: 8},
		{name: "LD SP,IY", program: []byte{0xFD, 0xF9}, want: 10},
		{name: "LD IXH,n", program: []byte{0xDD, 0x26, 0x01}, want: 11},
		{name: "ADD A,IYL", program: []byte{0xFD, 0x85}, want: 8},
		{name: "DD NOP", program: []byte{0xDD, 0x00}, want: 8},
		{name: "BIT 0,(IX+d)", program: []byte{0xDD, 0xCB, 0x01, 0x46}, want: 20},
		{name: "RLC (IX+d)", program: []byte{0xDD, 0xCB, 0x01, 0x06}, setup: func(c *CPU) { c.IX = 0x8000 }, want: 23},
		{name: "SET 0,(IY+d)", program: []byte{0xFD, 0xCB, 0x01, 0xC6}, setup: func(c *CPU) { c.IY = 0x8000 }, want: 23},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rig := newCPUZ80TestRig()
			rig.resetAndLoad(0x0000, tt.program)
			if tt.setup != nil {
				tt.setup(rig.cpu)
			}
			rig.step()
			requireZ80Tacts(t, rig.cpu, tt.want)
		})
	}
}

func TestZ80RRegisterIncrementsWithPrefixes(t *testing.T) {
	rig := newCPUZ80TestRig()
	rig.resetAndLoad(0x0000, []byte{
		0xDD, 0xCB, 0x01, 0x06, // RLC (IX+1)
		0xED, 0x44, // NEG
		0x00, // NOP
	})
	rig.cpu.IX = 0x8000

	rig.step()
	if rig.cpu.R&0x7F != 2 {
		t.Fatalf("R = 0x%02X after DDCB, want low 7 bits = 2", rig.cpu.R)
	}
	rig.step()
	rig.step()
	if rig.cpu.R&0x7F != 5 {
		t.Fatalf("R = 0x%02X, want low 7 bits = 5", rig.cpu.R)
	}
}

func TestZ80RRegisterKeepsBit7(t *testing.T) {
	rig := newCPUZ80TestRig()
	rig.resetAndLoad(0x0000, []byte{0x00})
	rig.cpu.R = 0xFF

	rig.step()

	requireZ80EqualU8(t, "R", rig.cpu.R, 0x80)
}

func TestZ80PrefixTakesItsOwnCycle(t *testing.T) {
	rig := newCPUZ80TestRig()
	rig.resetAndLoad(0x0000, []byte{0xDD, 0x21, 0x34, 0x12})

	rig.cpu.ExecuteCpuCycle()
	if !rig.cpu.IsInOpExecution() {
		t.Fatalf("DD prefix should leave the CPU in op execution")
	}
	if !rig.cpu.IsInterruptBlocked() {
		t.Fatalf("DD prefix should block interrupts")
	}
	requireZ80Tacts(t, rig.cpu, 4)

	rig.cpu.ExecuteCpuCycle()
	if rig.cpu.IsInOpExecution() {
		t.Fatalf("instruction should be complete")
	}
	requireZ80EqualU16(t, "IX", rig.cpu.IX, 0x1234)
	requireZ80Tacts(t, rig.cpu, 14)
}

func TestZ80CallInstructionLength(t *testing.T) {
	tests := []struct {
		name    string
		program []byte
		want    int
	}{
		{"CALL nn", []byte{0xCD, 0x00, 0x80}, 3},
		{"CALL NZ,nn", []byte{0xC4, 0x00, 0x80}, 3},
		{"RST 10h", []byte{0xD7}, 1},
		{"HALT", []byte{0x76}, 1},
		{"LDIR", []byte{0xED, 0xB0}, 2},
		{"OTDR", []byte{0xED, 0xBB}, 2},
		{"LDI", []byte{0xED, 0xA0}, 0},
		{"JP nn", []byte{0xC3, 0x00, 0x80}, 0},
		{"NOP", []byte{0x00}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rig := newCPUZ80TestRig()
			rig.resetAndLoad(0x8000, tt.program)
			if got := rig.cpu.CallInstructionLength(); got != tt.want {
				t.Fatalf("CallInstructionLength() = %d, want %d", got, tt.want)
			}
		})
	}
}
