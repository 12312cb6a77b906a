package memory

import "fmt"

const (
	ram128Banks = 8
	rom128Count = 2

	pagingScreenBit = 0x08
	pagingROMBit    = 0x10
	pagingLockBit   = 0x20
)

// Memory128 is the paged memory of the Spectrum 128.
type Memory128 struct {
	roms [rom128Count][BankSize]byte
	ram  [ram128Banks][BankSize]byte

	selectedROM  int
	selectedBank int
	shadowScreen bool
	locked       bool

	contention ContentionSource
}

func NewMemory128() *Memory128 {
	m := &Memory128{}
	m.Reset()
	return m
}

func (m *Memory128) SetContentionSource(src ContentionSource) {
	m.contention = src
}

// LoadROM copies ROM 0 (128 editor) or ROM 1 (48K BASIC).
func (m *Memory128) LoadROM(index int, image []byte) error {
	if index < 0 || index >= rom128Count {
		return fmt.Errorf("memory: ROM %d: 128K model has %d ROMs", index, rom128Count)
	}
	if len(image) != BankSize {
		return fmt.Errorf("memory: ROM %d (%d bytes): %w", index, len(image), ErrROMSize)
	}
	copy(m.roms[index][:], image)
	return nil
}

func (m *Memory128) slotBank(addr uint16) int {
	switch addr >> 14 {
	case 1:
		return 5
	case 2:
		return 2
	}
	return m.selectedBank
}

func (m *Memory128) Read(addr uint16) byte {
	if addr < BankSize {
		return m.roms[m.selectedROM][addr]
	}
	return m.ram[m.slotBank(addr)][addr&0x3FFF]
}

func (m *Memory128) Write(addr uint16, value byte) {
	if addr < BankSize {
		return
	}
	m.ram[m.slotBank(addr)][addr&0x3FFF] = value
}

// ReadScreen reads from bank 5 or, with the shadow screen selected, bank 7.
func (m *Memory128) ReadScreen(addr uint16) byte {
	bank := 5
	if m.shadowScreen {
		bank = 7
	}
	return m.ram[bank][addr&0x3FFF]
}

// IsContended reports whether addr maps to an odd RAM bank.
func (m *Memory128) IsContended(addr uint16) bool {
	if addr < BankSize {
		return false
	}
	return m.slotBank(addr)&0x01 != 0
}

func (m *Memory128) ContentionDelay(addr uint16, frameTact int) int {
	if m.contention == nil || !m.IsContended(addr) {
		return 0
	}
	return m.contention.GetContentionValue(frameTact)
}

// SelectBank handles a write to port 7FFDh. Once bit 5 is written the
// paging is locked until the next reset.
func (m *Memory128) SelectBank(value byte) {
	if m.locked {
		return
	}
	m.selectedBank = int(value & 0x07)
	m.shadowScreen = value&pagingScreenBit != 0
	m.selectedROM = 0
	if value&pagingROMBit != 0 {
		m.selectedROM = 1
	}
	m.locked = value&pagingLockBit != 0
}

func (m *Memory128) Reset() {
	for bank := range m.ram {
		for i := range m.ram[bank] {
			m.ram[bank][i] = 0xFF
		}
	}
	m.selectedROM = 0
	m.selectedBank = 0
	m.shadowScreen = false
	m.locked = false
}

func (m *Memory128) SelectedROM() int {
	return m.selectedROM
}

func (m *Memory128) SelectedBank() int {
	return m.selectedBank
}
