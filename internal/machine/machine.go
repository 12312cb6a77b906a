// machine.go - ZX Spectrum machine

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
machine.go - ZX Spectrum Machine

The machine is the composition root. It owns the Z80 and every device and
keeps them on one clock: the CPU tact counter. Each device works in frame
tacts, derived as Tacts - lastFrameStart.

Frame loop (see ExecuteCycle):

  OnNewFrame -> [ interrupt check, one CPU step, render up to the current
  tact, CPU-bound devices ] until the frame is full -> OnFrameCompleted

The CPU bus goes through the port device, which decodes port FEh for the
ULA (border, EAR, MIC, keyboard) and 7FFDh for 128K paging.
*/

package machine

import (
	"github.com/intuitionamiga/SpectrumEngine/internal/beeper"
	"github.com/intuitionamiga/SpectrumEngine/internal/interrupt"
	"github.com/intuitionamiga/SpectrumEngine/internal/keyboard"
	"github.com/intuitionamiga/SpectrumEngine/internal/memory"
	"github.com/intuitionamiga/SpectrumEngine/internal/tape"
	"github.com/intuitionamiga/SpectrumEngine/internal/ula"
	"github.com/intuitionamiga/SpectrumEngine/internal/z80"
)

// ClockedDevice takes part in the frame cycle.
type ClockedDevice interface {
	Reset()
	OnNewFrame()
	OnFrameCompleted()
}

// CPUBoundDevice is notified after every CPU step.
type CPUBoundDevice interface {
	OnCPUOperationCompleted()
}

// DebugProvider decides where the Debugger mode stops.
type DebugProvider interface {
	ShouldBreakAtAddress(addr uint16) bool
}

// memoryDevice is what the machine needs from both memory models.
type memoryDevice interface {
	memory.Device
	LoadROM(index int, image []byte) error
	SetContentionSource(src memory.ContentionSource)
}

type Machine struct {
	cfg Config

	cpu       *z80.CPU
	memory    memoryDevice
	paging    *memory.Memory128
	ports     *portDevice
	screen    *ula.Device
	interrupt *interrupt.Device
	beeper    *beeper.Device
	tape      *tape.Device
	keyboard  *keyboard.Device
	clock     *Clock

	devices  []ClockedDevice
	cpuBound []CPUBoundDevice

	frameTacts    int
	frameDuration int64

	// Wall clock origin and frames paced since, see ContinuePacing.
	paceStart  int64
	paceFrames int64

	frameCompleted   bool
	lastFrameStart   uint64
	lastRenderedTact int
	overflow         int
	frameCount       int

	runsInMaskableInterrupt bool
	completionReason        CompletionReason

	debug            DebugProvider
	lastBreakpoint   uint16
	hasLastBreak     bool
	imminentBreak    uint16
	hasImminentBreak bool
}

// New builds a machine from cfg. The ROM images are copied; cfg keeps no
// references into the machine.
func New(cfg Config) (*Machine, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	m := &Machine{cfg: cfg, debug: cfg.Debug}

	var params ula.DisplayParameters
	switch cfg.Model {
	case Model128:
		m.paging = memory.NewMemory128()
		m.memory = m.paging
		params = ula.Parameters128()
	default:
		m.memory = memory.NewMemory48()
		params = ula.Parameters48()
	}
	for i, rom := range cfg.ROMs {
		if err := m.memory.LoadROM(i, rom); err != nil {
			return nil, &ConfigError{Operation: "New", Details: "loading ROM", Err: err}
		}
	}

	m.ports = &portDevice{m: m}
	m.cpu = z80.New(m.ports, m)

	m.screen = ula.NewDevice(params, m.memory)
	m.memory.SetContentionSource(m.screen)
	m.frameTacts = params.FrameTacts()
	m.frameDuration = int64(m.frameTacts) * 1_000_000_000 / int64(cfg.ClockHz)

	m.interrupt = interrupt.NewDevice(m.cpu, params.InterruptTact)
	m.beeper = beeper.NewDevice(m, m.frameTacts, cfg.ClockHz, cfg.SampleRate)
	m.keyboard = keyboard.New()
	m.tape = tape.NewDevice(m.cpu, m.memory, m.beeper, cfg.TapeProvider, tape.Config{
		ClockHz:  cfg.ClockHz,
		BasicROM: cfg.Model.BasicROM(),
		FastLoad: cfg.FastLoad,
		Is48K:    cfg.Model == Model48,
		Log:      cfg.Log,
	})
	m.clock = NewClock()

	if cfg.FrameProvider != nil {
		m.screen.SetFrameProvider(cfg.FrameProvider)
	}
	if cfg.SoundProvider != nil {
		m.beeper.SetSoundProvider(cfg.SoundProvider)
	}

	m.devices = []ClockedDevice{m.screen, m.interrupt, m.beeper, m.keyboard, m.tape}
	m.cpuBound = []CPUBoundDevice{m.tape}

	m.Reset()
	return m, nil
}

// Reset is a hard reset: the CPU clock restarts at zero.
func (m *Machine) Reset() {
	m.cpu.Reset()
	m.memory.Reset()
	for _, d := range m.devices {
		d.Reset()
	}
	m.frameCompleted = true
	m.lastFrameStart = 0
	m.lastRenderedTact = 0
	m.overflow = 0
	m.frameCount = 0
	m.paceFrames = 0
	m.runsInMaskableInterrupt = false
	m.completionReason = ReasonNone
	m.hasLastBreak = false
	m.hasImminentBreak = false
}

func (m *Machine) CPU() *z80.CPU                      { return m.cpu }
func (m *Machine) Memory() memory.Device              { return m.memory }
func (m *Machine) Screen() *ula.Device                { return m.screen }
func (m *Machine) Interrupt() *interrupt.Device       { return m.interrupt }
func (m *Machine) Beeper() *beeper.Device             { return m.beeper }
func (m *Machine) Tape() *tape.Device                 { return m.tape }
func (m *Machine) Keyboard() *keyboard.Device         { return m.keyboard }
func (m *Machine) Clock() *Clock                      { return m.clock }
func (m *Machine) Model() Model                       { return m.cfg.Model }
func (m *Machine) ClockHz() int                       { return m.cfg.ClockHz }
func (m *Machine) FrameTacts() int                    { return m.frameTacts }
func (m *Machine) FrameCount() int                    { return m.frameCount }
func (m *Machine) Overflow() int                      { return m.overflow }
func (m *Machine) LastFrameStartTact() uint64         { return m.lastFrameStart }
func (m *Machine) CompletionReason() CompletionReason { return m.completionReason }
func (m *Machine) RunsInMaskableInterrupt() bool      { return m.runsInMaskableInterrupt }

// FrameDuration is the wall time of one frame in nanoseconds.
func (m *Machine) FrameDuration() int64 { return m.frameDuration }

func (m *Machine) SetDebugProvider(p DebugProvider) { m.debug = p }

// ImminentBreakpoint is the return address step-over is waiting for.
func (m *Machine) ImminentBreakpoint() (uint16, bool) {
	return m.imminentBreak, m.hasImminentBreak
}

func (m *Machine) ClearImminentBreakpoint() { m.hasImminentBreak = false }

// CurrentFrameTact is the tact within the running frame. It can exceed
// FrameTacts while the last instruction of a frame finishes.
func (m *Machine) CurrentFrameTact() int {
	return int(m.cpu.Tacts - m.lastFrameStart)
}

// MemoryContention implements z80.Contender.
func (m *Machine) MemoryContention(addr uint16) int {
	return m.memory.ContentionDelay(addr, m.CurrentFrameTact())
}

// ULAContention implements z80.Contender.
func (m *Machine) ULAContention() int {
	return m.screen.GetContentionValue(m.CurrentFrameTact())
}
