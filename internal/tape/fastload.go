package tape

import "github.com/intuitionamiga/SpectrumEngine/internal/z80"

// fastLoad serves a call to LD-BYTES from the next data block.
//
// On entry A holds the expected flag byte, carry selects LOAD (set) or
// VERIFY (reset), IX is the destination and DE the length. On return carry
// is set when the block matched and its checksum was correct.
func (d *Device) fastLoad() {
	cpu := d.cpu
	ok := d.fastLoadBlock(cpu)
	if ok {
		// The ROM leaves A=0 after the final CP 01h on the parity byte.
		cpu.A = 0
		cpu.F = z80.FlagS | z80.FlagH | z80.FlagN | z80.FlagC
	} else {
		cpu.F &^= z80.FlagC | z80.FlagZ
	}

	lo := d.memory.Read(cpu.SP)
	hi := d.memory.Read(cpu.SP + 1)
	cpu.SP += 2
	cpu.PC = uint16(hi)<<8 | uint16(lo)
	cpu.WZ = cpu.PC
}

func (d *Device) fastLoadBlock(cpu *z80.CPU) bool {
	if d.fastBlocks == nil {
		blocks, err := d.readBlocks()
		if err != nil {
			if err != d.err {
				d.logf("fast load failed: %v", err)
			}
			d.err = err
			return false
		}
		d.err = nil
		d.fastBlocks = [][]byte{}
		for _, b := range blocks {
			if data, ok := DataOf(b); ok && len(data) > 0 {
				d.fastBlocks = append(d.fastBlocks, data)
			}
		}
		d.fastIndex = 0
	}

	if d.fastIndex >= len(d.fastBlocks) {
		// Rewind so the next LOAD starts from the beginning.
		d.fastIndex = 0
		d.logf("fast load: end of tape")
		return false
	}
	data := d.fastBlocks[d.fastIndex]
	d.fastIndex++

	if data[0] != cpu.A {
		return false
	}

	load := cpu.F&z80.FlagC != 0
	length := int(cpu.DE())
	if len(data) < length+2 {
		return false
	}

	parity := data[0]
	addr := cpu.IX
	for i := range length {
		value := data[1+i]
		parity ^= value
		if load {
			d.memory.Write(addr, value)
		} else if d.memory.Read(addr) != value {
			cpu.IX = addr
			return false
		}
		addr++
	}
	parity ^= data[1+length]

	cpu.IX = addr
	cpu.SetDE(0)
	d.logf("fast load: %d bytes", length)
	return parity == 0
}
