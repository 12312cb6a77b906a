package machine

const (
	earBit = 0x10
	micBit = 0x08

	borderMask = 0x07
	tapeEarBit = 0x40
)

// portDevice is the CPU's view of the machine: memory plus ULA port
// decoding. The ULA answers every even port, the 128K paging register
// every port with A15 and A1 low.
type portDevice struct {
	m *Machine
}

func (p *portDevice) Read(addr uint16) byte         { return p.m.memory.Read(addr) }
func (p *portDevice) Write(addr uint16, value byte) { p.m.memory.Write(addr, value) }

func (p *portDevice) In(port uint16) byte {
	if port&0x0001 != 0 {
		// Floating bus is not modelled.
		return 0xFF
	}
	value := p.m.keyboard.GetLineStatus(byte(port >> 8))
	if !p.m.tape.GetEarBit(p.m.cpu.Tacts) {
		value &^= tapeEarBit
	}
	return value
}

func (p *portDevice) Out(port uint16, value byte) {
	if port&0x0001 == 0 {
		p.m.screen.BorderColor = value & borderMask
		p.m.beeper.ProcessEarBitValue(false, value&earBit != 0)
		p.m.tape.ProcessMicBitValue(value&micBit != 0)
	}
	if p.m.paging != nil && port&0x8002 == 0 {
		p.m.paging.SelectBank(value)
	}
}
