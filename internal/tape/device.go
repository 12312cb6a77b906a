// device.go - Spectrum cassette tape device

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
device.go - Spectrum Cassette Tape Device

The tape device watches the program counter after every instruction. When
the ROM enters its LOAD or SAVE routines the device switches mode:

Passive -> Load  at LD-START (056Ch). The tape content is parsed up front
                 and played back through GetEarBit, which the port device
                 calls on every read of port FEh.
Passive -> Save  at SA-BYTES (04C2h). Every MIC edge written to port FEh is
                 classified by its width and decoded back into bytes.

Load ends when the player runs out of blocks or the ROM jumps to its error
restart. Save ends on the error restart or after a long silence on MIC.

With FastLoad set, a call to LD-BYTES (0556h) is served directly from the
next data block and the routine returns at once.
*/

package tape

import (
	"fmt"
	"io"
	"strings"

	"github.com/intuitionamiga/SpectrumEngine/internal/z80"
)

// Mode is the tape device state.
type Mode int

const (
	ModePassive Mode = iota
	ModeLoad
	ModeSave
)

func (m Mode) String() string {
	switch m {
	case ModeLoad:
		return "Load"
	case ModeSave:
		return "Save"
	}
	return "Passive"
}

// SavePhase is the decoder state while recording.
type SavePhase int

const (
	SaveNone SavePhase = iota
	SavePilot
	SaveSync1
	SaveSync2
	SaveData
	SaveError
)

// MicPulse is the classification of a MIC pulse width.
type MicPulse int

const (
	PulseNone MicPulse = iota
	PulseTooShort
	PulseTooLong
	PulsePilot
	PulseSync1
	PulseSync2
	PulseBit0
	PulseBit1
	PulseTermSync
)

const (
	// SaveStopSilence is the MIC silence that ends a SAVE at 3.5 MHz.
	SaveStopSilence = 17_500_000

	SaveBytesROMAddress = 0x04C2
	LoadStartROMAddress = 0x056C
	LoadBytesROMAddress = 0x0556
	ErrorROMAddress     = 0x0008

	SavePulseTolerance = 24
	MinPilotPulseCount = 3000
	DataBufferLength   = 0x10000

	headerBlockLength = 19
)

// Memory is the part of the memory device the tape needs.
type Memory interface {
	Read(addr uint16) byte
	Write(addr uint16, value byte)
	SelectedROM() int
}

// EarSink receives EAR levels played from tape.
type EarSink interface {
	ProcessEarBitValue(fromTape, earBit bool)
	SetTapeOverride(active bool)
}

// Config holds the tape device settings.
type Config struct {
	// ClockHz scales the save silence timeout. Zero means 3.5 MHz.
	ClockHz int
	// BasicROM is the ROM index holding the 48K BASIC routines.
	BasicROM int
	FastLoad bool
	// Is48K makes stop-if-48K tape blocks stop the tape.
	Is48K bool
	Log   io.Writer
}

type Device struct {
	cpu      *z80.CPU
	memory   Memory
	beeper   EarSink
	provider Provider
	cfg      Config

	saveStopSilence uint64

	mode   Mode
	player *Player
	err    error

	// Save decoder
	lastMicActivity uint64
	micBit          bool
	savePhase       SavePhase
	pilotCount      int
	bitOffset       int
	dataByte        byte
	dataLength      int
	dataBuffer      []byte
	dataBlockCount  int
	prevDataPulse   MicPulse

	// Fast load cursor over the data blocks of the tape
	fastBlocks [][]byte
	fastIndex  int
}

func NewDevice(cpu *z80.CPU, memory Memory, beeper EarSink, provider Provider, cfg Config) *Device {
	if cfg.ClockHz <= 0 {
		cfg.ClockHz = 3_500_000
	}
	d := &Device{
		cpu:             cpu,
		memory:          memory,
		beeper:          beeper,
		provider:        provider,
		cfg:             cfg,
		saveStopSilence: uint64(SaveStopSilence) * uint64(cfg.ClockHz) / 3_500_000,
	}
	d.Reset()
	return d
}

func (d *Device) SetProvider(p Provider) {
	d.provider = p
	d.fastBlocks = nil
	d.fastIndex = 0
}

func (d *Device) SetFastLoad(on bool) { d.cfg.FastLoad = on }

func (d *Device) Mode() Mode              { return d.mode }
func (d *Device) Player() *Player         { return d.player }
func (d *Device) SavePhase() SavePhase    { return d.savePhase }
func (d *Device) PilotPulseCount() int    { return d.pilotCount }
func (d *Device) DataLength() int         { return d.dataLength }
func (d *Device) DataBlockCount() int     { return d.dataBlockCount }
func (d *Device) LastMicActivity() uint64 { return d.lastMicActivity }
func (d *Device) SaveStopSilence() uint64 { return d.saveStopSilence }
func (d *Device) PrevDataPulse() MicPulse { return d.prevDataPulse }

// Err returns the error of the last failed LOAD attempt.
func (d *Device) Err() error { return d.err }

func (d *Device) Reset() {
	d.player = nil
	d.mode = ModePassive
	d.savePhase = SaveNone
	d.micBit = true
	d.fastBlocks = nil
	d.fastIndex = 0
	if d.beeper != nil {
		d.beeper.SetTapeOverride(false)
	}
}

func (d *Device) OnNewFrame()       {}
func (d *Device) OnFrameCompleted() {}

// OnCPUOperationCompleted runs after every instruction.
func (d *Device) OnCPUOperationCompleted() {
	if d.memory != nil && d.memory.SelectedROM() != d.cfg.BasicROM {
		return
	}
	if d.cfg.FastLoad && d.mode == ModePassive && d.cpu.PC == LoadBytesROMAddress {
		d.fastLoad()
		return
	}
	d.SetTapeMode()
}

func (d *Device) logf(format string, args ...any) {
	if d.cfg.Log != nil {
		fmt.Fprintf(d.cfg.Log, "tape: "+format+"\n", args...)
	}
}

// SetTapeMode moves between the tape modes according to the PC.
func (d *Device) SetTapeMode() {
	pc := d.cpu.PC
	switch d.mode {
	case ModePassive:
		if pc == LoadStartROMAddress {
			d.enterLoadMode()
		} else if pc == SaveBytesROMAddress {
			d.enterSaveMode()
		}
	case ModeSave:
		if pc == ErrorROMAddress || d.cpu.Tacts-d.lastMicActivity > d.saveStopSilence {
			d.leaveSaveMode()
		}
	case ModeLoad:
		if (d.player != nil && d.player.Eof()) || pc == ErrorROMAddress {
			d.leaveLoadMode()
		}
	}
}

func (d *Device) readBlocks() ([]Block, error) {
	if d.provider == nil {
		return nil, ErrNoTape
	}
	r, err := d.provider.TapeContent()
	if err != nil {
		return nil, err
	}
	return ReadContent(r, d.cfg.ClockHz)
}

func (d *Device) enterLoadMode() {
	blocks, err := d.readBlocks()
	if err != nil {
		if err != d.err {
			d.logf("load failed: %v", err)
		}
		d.err = err
		return
	}
	d.err = nil
	d.mode = ModeLoad
	d.player = NewPlayer(blocks)
	d.player.Is48K = d.cfg.Is48K
	d.player.InitPlay(d.cpu.Tacts)
	d.beeper.SetTapeOverride(true)
	d.logf("load started, %d blocks", len(blocks))
}

func (d *Device) leaveLoadMode() {
	d.mode = ModePassive
	d.player = nil
	d.beeper.SetTapeOverride(false)
	d.logf("load finished")
}

func (d *Device) enterSaveMode() {
	d.mode = ModeSave
	d.savePhase = SaveNone
	d.micBit = true
	d.lastMicActivity = d.cpu.Tacts
	d.pilotCount = 0
	d.prevDataPulse = PulseNone
	d.dataBlockCount = 0
	if d.provider != nil {
		if err := d.provider.CreateTapeFile(); err != nil {
			d.logf("save: %v", err)
		}
	}
	d.logf("save started")
}

func (d *Device) leaveSaveMode() {
	d.mode = ModePassive
	if d.provider != nil {
		if err := d.provider.FinalizeTapeFile(); err != nil {
			d.logf("save: %v", err)
		}
	}
	d.logf("save finished, %d blocks", d.dataBlockCount)
}

// GetEarBit returns the tape signal at tact. Outside LOAD the line idles
// high.
func (d *Device) GetEarBit(tact uint64) bool {
	if d.mode != ModeLoad || d.player == nil {
		return true
	}
	bit := d.player.GetEarBit(tact)
	d.beeper.ProcessEarBitValue(true, bit)
	return bit
}

func inRange(length, pulse int) bool {
	return length >= pulse-SavePulseTolerance && length <= pulse+SavePulseTolerance
}

// ClassifyPulse maps a MIC pulse width in tacts to its kind.
func ClassifyPulse(length int) MicPulse {
	switch {
	case inRange(length, Bit0Pulse):
		return PulseBit0
	case inRange(length, Bit1Pulse):
		return PulseBit1
	case inRange(length, PilotPulse):
		return PulsePilot
	case inRange(length, Sync1Pulse):
		return PulseSync1
	case inRange(length, Sync2Pulse):
		return PulseSync2
	case inRange(length, TermSyncPulse):
		return PulseTermSync
	case length < Sync1Pulse-SavePulseTolerance:
		return PulseTooShort
	case length > PilotPulse+2*SavePulseTolerance:
		return PulseTooLong
	}
	return PulseNone
}

// ProcessMicBitValue decodes MIC edges while saving.
func (d *Device) ProcessMicBitValue(micBit bool) {
	if d.mode != ModeSave || d.micBit == micBit {
		return
	}

	length := int(d.cpu.Tacts - d.lastMicActivity)
	pulse := ClassifyPulse(length)
	d.micBit = micBit
	d.lastMicActivity = d.cpu.Tacts

	next := SaveError
	switch d.savePhase {
	case SaveNone:
		switch pulse {
		case PulseTooShort, PulseTooLong:
			next = SaveNone
		case PulsePilot:
			d.pilotCount = 1
			next = SavePilot
		}

	case SavePilot:
		if pulse == PulsePilot {
			d.pilotCount++
			next = SavePilot
		} else if pulse == PulseSync1 && d.pilotCount >= MinPilotPulseCount {
			next = SaveSync1
		}

	case SaveSync1:
		if pulse == PulseSync2 {
			next = SaveSync2
		}

	case SaveSync2:
		if pulse == PulseBit0 || pulse == PulseBit1 {
			d.prevDataPulse = pulse
			d.bitOffset = 0
			d.dataByte = 0
			d.dataLength = 0
			d.dataBuffer = make([]byte, DataBufferLength)
			next = SaveData
		}

	case SaveData:
		switch pulse {
		case PulseBit0, PulseBit1:
			if d.prevDataPulse == PulseNone {
				d.prevDataPulse = pulse
				next = SaveData
			} else if d.prevDataPulse == pulse {
				d.prevDataPulse = PulseNone
				next = SaveData
				d.dataByte <<= 1
				if pulse == PulseBit1 {
					d.dataByte |= 1
				}
				d.bitOffset++
				if d.bitOffset == 8 {
					if d.dataLength < len(d.dataBuffer) {
						d.dataBuffer[d.dataLength] = d.dataByte
						d.dataLength++
					}
					d.dataByte = 0
					d.bitOffset = 0
				}
			}
		case PulseTermSync:
			next = SaveNone
			d.saveBlock()
		}
	}
	d.savePhase = next
}

func (d *Device) saveBlock() {
	d.dataBlockCount++
	data := append([]byte(nil), d.dataBuffer[:d.dataLength]...)
	if d.provider == nil {
		return
	}
	if d.dataBlockCount == 1 && len(data) == headerBlockLength {
		name := strings.TrimRight(string(data[2:12]), " ")
		d.provider.SetName(name)
		d.logf("save: header %q", name)
	}
	if err := d.provider.SaveTapeBlock(StandardSpeedBlock{PauseAfter: DefaultPause, Data: data}); err != nil {
		d.logf("save: %v", err)
	}
}
