// memory.go - Spectrum memory devices

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
memory.go - Spectrum memory devices

The CPU sees a 64K address space split into four 16K slots. On the 48K
model slot 0 holds the BASIC ROM and slots 1-3 are flat RAM. The 128K model
maps RAM banks into slots 1-3 and pages them through port 7FFDh.

The ULA reads the screen through ReadScreen, which never goes through the
CPU's paging of slot 3 and never costs contention.
*/

package memory

import (
	"errors"
	"fmt"
)

const (
	BankSize = 0x4000

	screenOffset = 0x4000
)

var ErrROMSize = errors.New("ROM image must be 16K")

// ContentionSource provides the ULA's contention delay for a frame tact.
type ContentionSource interface {
	GetContentionValue(frameTact int) int
}

type Device interface {
	Read(addr uint16) byte
	Write(addr uint16, value byte)
	ReadScreen(addr uint16) byte
	ContentionDelay(addr uint16, frameTact int) int
	IsContended(addr uint16) bool
	Reset()
	SelectedROM() int
}

type Memory48 struct {
	/*
		Memory48 is the flat 64K memory of the 48K Spectrum. Writes to the
		ROM area are silently dropped.
	*/

	mem        [0x10000]byte
	contention ContentionSource
}

func NewMemory48() *Memory48 {
	m := &Memory48{}
	m.Reset()
	return m
}

// SetContentionSource wires the ULA table used by ContentionDelay.
func (m *Memory48) SetContentionSource(src ContentionSource) {
	m.contention = src
}

// LoadROM copies a 16K ROM image. Only index 0 exists on this model.
func (m *Memory48) LoadROM(index int, image []byte) error {
	if index != 0 {
		return fmt.Errorf("memory: ROM %d: 48K model has a single ROM", index)
	}
	if len(image) != BankSize {
		return fmt.Errorf("memory: ROM %d (%d bytes): %w", index, len(image), ErrROMSize)
	}
	copy(m.mem[:BankSize], image)
	return nil
}

func (m *Memory48) Read(addr uint16) byte {
	return m.mem[addr]
}

func (m *Memory48) Write(addr uint16, value byte) {
	if addr < BankSize {
		return
	}
	m.mem[addr] = value
}

func (m *Memory48) ReadScreen(addr uint16) byte {
	return m.mem[uint32(addr&0x3FFF)+screenOffset]
}

func (m *Memory48) IsContended(addr uint16) bool {
	return addr&0xC000 == 0x4000
}

func (m *Memory48) ContentionDelay(addr uint16, frameTact int) int {
	if m.contention == nil || !m.IsContended(addr) {
		return 0
	}
	return m.contention.GetContentionValue(frameTact)
}

// Reset clears RAM. The ROM image is kept.
func (m *Memory48) Reset() {
	for i := BankSize; i < len(m.mem); i++ {
		m.mem[i] = 0xFF
	}
}

func (m *Memory48) SelectedROM() int {
	return 0
}

// RAM returns the 48K RAM image (4000h-FFFFh), for snapshots.
func (m *Memory48) RAM() []byte {
	return m.mem[BankSize:]
}
