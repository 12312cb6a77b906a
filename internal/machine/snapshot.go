package machine

import (
	"encoding/binary"
	"errors"
	"fmt"
)

const (
	snaHeaderLength = 27
	snaRAMLength    = 0xC000
	snaLength       = snaHeaderLength + snaRAMLength
	snaRAMStart     = 0x4000
)

var ErrSnapshotSize = errors.New("48K snapshot must be 49179 bytes")

// LoadSNA restores a 48K .sna snapshot: header registers plus RAM from
// 4000h. The snapshot stores PC on the stack, so it is popped after the
// RAM is in place.
func (m *Machine) LoadSNA(data []byte) error {
	if len(data) != snaLength {
		return fmt.Errorf("machine: LoadSNA (%d bytes): %w", len(data), ErrSnapshotSize)
	}
	h := data[:snaHeaderLength]
	if im := h[25]; im > 2 {
		return fmt.Errorf("machine: LoadSNA: interrupt mode %d", im)
	}

	for i, b := range data[snaHeaderLength:] {
		m.memory.Write(uint16(snaRAMStart+i), b)
	}

	le := binary.LittleEndian
	c := m.cpu
	c.ClearExecutionState()
	c.I = h[0]
	c.L2, c.H2 = h[1], h[2]
	c.E2, c.D2 = h[3], h[4]
	c.C2, c.B2 = h[5], h[6]
	c.F2, c.A2 = h[7], h[8]
	c.L, c.H = h[9], h[10]
	c.E, c.D = h[11], h[12]
	c.C, c.B = h[13], h[14]
	c.IY = le.Uint16(h[15:])
	c.IX = le.Uint16(h[17:])
	c.IFF2 = h[19]&0x04 != 0
	c.IFF1 = c.IFF2
	c.R = h[20]
	c.F, c.A = h[21], h[22]
	c.SP = le.Uint16(h[23:])
	c.IM = h[25]
	m.screen.BorderColor = h[26] & borderMask

	lo := m.memory.Read(c.SP)
	hi := m.memory.Read(c.SP + 1)
	c.SP += 2
	c.PC = uint16(hi)<<8 | uint16(lo)
	c.WZ = c.PC
	return nil
}

// SaveSNA writes the machine state as a 48K .sna snapshot. PC is pushed
// onto the stack inside the image only; the running machine is unchanged.
func (m *Machine) SaveSNA() []byte {
	c := m.cpu
	out := make([]byte, snaLength)
	h := out[:snaHeaderLength]
	le := binary.LittleEndian

	h[0] = c.I
	h[1], h[2] = c.L2, c.H2
	h[3], h[4] = c.E2, c.D2
	h[5], h[6] = c.C2, c.B2
	h[7], h[8] = c.F2, c.A2
	h[9], h[10] = c.L, c.H
	h[11], h[12] = c.E, c.D
	h[13], h[14] = c.C, c.B
	le.PutUint16(h[15:], c.IY)
	le.PutUint16(h[17:], c.IX)
	if c.IFF2 {
		h[19] = 0x04
	}
	h[20] = c.R
	h[21], h[22] = c.F, c.A
	sp := c.SP - 2
	le.PutUint16(h[23:], sp)
	h[25] = c.IM
	h[26] = m.screen.BorderColor

	ram := out[snaHeaderLength:]
	for i := range ram {
		ram[i] = m.memory.Read(uint16(snaRAMStart + i))
	}
	for i, b := range []byte{byte(c.PC), byte(c.PC >> 8)} {
		if addr := int(sp) + i; addr >= snaRAMStart && addr <= 0xFFFF {
			ram[addr-snaRAMStart] = b
		}
	}
	return out
}
