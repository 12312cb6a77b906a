package machine

import (
	"context"
	"fmt"

	"github.com/intuitionamiga/SpectrumEngine/internal/beeper"
	"github.com/intuitionamiga/SpectrumEngine/internal/ula"
)

// ExecutionMode tells ExecuteCycle when to return.
type ExecutionMode int

const (
	Continuous ExecutionMode = iota
	Debugger
	UntilHalt
	UntilFrameEnds
	UntilExecutionPoint
	// UntilNextFrame returns after each frame once its wall time has passed.
	UntilNextFrame
)

var modeNames = [...]string{"Continuous", "Debugger", "UntilHalt", "UntilFrameEnds", "UntilExecutionPoint", "UntilNextFrame"}

func (m ExecutionMode) String() string {
	if int(m) < len(modeNames) {
		return modeNames[m]
	}
	return fmt.Sprintf("ExecutionMode(%d)", int(m))
}

// DebugStepMode selects the stop rule in Debugger mode.
type DebugStepMode int

const (
	StopAtBreakpoint DebugStepMode = iota
	StepInto
	StepOver
)

// CompletionReason is why ExecuteCycle returned.
type CompletionReason int

const (
	ReasonNone CompletionReason = iota
	Cancelled
	Timeout
	TerminationPointReached
	BreakpointReached
	Halted
	FrameCompleted
)

var reasonNames = [...]string{"None", "Cancelled", "Timeout", "TerminationPointReached", "BreakpointReached", "Halted", "FrameCompleted"}

func (r CompletionReason) String() string {
	if int(r) < len(reasonNames) {
		return reasonNames[r]
	}
	return fmt.Sprintf("CompletionReason(%d)", int(r))
}

type ExecuteCycleOptions struct {
	Mode      ExecutionMode
	DebugStep DebugStepMode

	// FastVMMode runs frames back to back without waiting for wall time.
	FastVMMode bool

	// TerminationPoint ends an UntilExecutionPoint run. Below 4000h the
	// selected ROM must also be TerminationROM.
	TerminationPoint uint16
	TerminationROM   int

	// TimeoutTacts ends the run after this many tacts. Zero disables it.
	TimeoutTacts uint64

	// ContinuePacing keeps the wall clock origin of the previous run, so a
	// caller returning every frame or every slice stays on schedule.
	ContinuePacing bool

	SkipInterruptRoutine   bool
	DisableScreenRendering bool
}

// interruptRoutineExit is the last instruction of the ROM's IM 1 handler.
const interruptRoutineExit = 0x0052

// maxPacingLag is how many frames a continued run may be behind before the
// pacing origin restarts.
const maxPacingLag = 5

// ExecuteCycle runs the machine until opts says to stop or ctx is done.
// It must not be called concurrently with itself.
//
// A timing violation raised by a device ends the run with ReasonNone and
// the violation as error. Other panics propagate.
func (m *Machine) ExecuteCycle(ctx context.Context, opts ExecuteCycleOptions) (reason CompletionReason, err error) {
	defer func() {
		if r := recover(); r != nil {
			switch v := r.(type) {
			case *ula.RenderError:
				err = fmt.Errorf("machine: screen: %w", v)
			case *beeper.TimingError:
				err = fmt.Errorf("machine: beeper: %w", v)
			default:
				panic(r)
			}
			reason = ReasonNone
		}
		m.completionReason = reason
	}()

	cpu := m.cpu
	cycleStartTime := m.clock.Now()
	cycleStartTact := cpu.Tacts
	cycleFrames := int64(0)
	executed := -1

	if opts.ContinuePacing && m.paceFrames > 0 {
		behind := cycleStartTime - (m.paceStart + m.paceFrames*m.frameDuration)
		if behind < maxPacingLag*m.frameDuration {
			cycleStartTime, cycleFrames = m.paceStart, m.paceFrames
		}
	}
	m.paceStart, m.paceFrames = cycleStartTime, cycleFrames

	for ctx.Err() == nil {
		if m.frameCompleted {
			m.lastFrameStart = cpu.Tacts - uint64(m.overflow)
			m.screen.Overflow = m.overflow
			for _, d := range m.devices {
				d.OnNewFrame()
			}
			m.lastRenderedTact = m.overflow
			m.frameCompleted = false
		}

		for !m.frameCompleted {
			if m.runsInMaskableInterrupt && cpu.PC == interruptRoutineExit {
				m.runsInMaskableInterrupt = false
			}

			if !cpu.IsInOpExecution() {
				if ctx.Err() != nil {
					return Cancelled, nil
				}
				executed++

				if opts.TimeoutTacts > 0 && cycleStartTact+opts.TimeoutTacts < cpu.Tacts {
					return Timeout, nil
				}
				if opts.Mode == UntilExecutionPoint && m.atTerminationPoint(opts) {
					return TerminationPointReached, nil
				}
				if cpu.MaskableInterruptModeEntered() {
					m.runsInMaskableInterrupt = true
				}
				if opts.Mode == Debugger && m.isDebugStop(opts, executed) {
					m.screen.OnFrameCompleted()
					return BreakpointReached, nil
				}
			}

			m.interrupt.CheckForInterrupt(m.CurrentFrameTact())
			cpu.ExecuteCpuCycle()
			m.hasLastBreak = false

			lastTact := m.CurrentFrameTact()
			if !opts.DisableScreenRendering {
				m.screen.RenderScreen(m.lastRenderedTact, lastTact)
			}
			m.lastRenderedTact = lastTact

			if opts.Mode == UntilHalt && cpu.IsHalted() {
				return Halted, nil
			}
			for _, d := range m.cpuBound {
				d.OnCPUOperationCompleted()
			}
			m.frameCompleted = !cpu.IsInOpExecution() && m.CurrentFrameTact() >= m.frameTacts
		}

		cycleFrames++
		m.paceFrames = cycleFrames
		m.frameCount++
		m.overflow = m.CurrentFrameTact() % m.frameTacts
		for _, d := range m.devices {
			d.OnFrameCompleted()
		}

		if opts.Mode == UntilFrameEnds {
			return FrameCompleted, nil
		}
		if !opts.FastVMMode {
			m.clock.WaitUntil(ctx, cycleStartTime+cycleFrames*m.frameDuration)
		}
		if opts.Mode == UntilNextFrame {
			return FrameCompleted, nil
		}
	}
	return Cancelled, nil
}

func (m *Machine) atTerminationPoint(opts ExecuteCycleOptions) bool {
	if m.cpu.PC != opts.TerminationPoint {
		return false
	}
	if opts.TerminationPoint < 0x4000 {
		return m.memory.SelectedROM() == opts.TerminationROM
	}
	return true
}

// isDebugStop reports whether Debugger mode stops before the next
// instruction. executed counts the instructions run in this cycle.
func (m *Machine) isDebugStop(opts ExecuteCycleOptions, executed int) bool {
	if m.debug == nil {
		return false
	}
	if m.runsInMaskableInterrupt && opts.SkipInterruptRoutine {
		return false
	}

	pc := m.cpu.PC
	switch opts.DebugStep {
	case StepInto:
		return executed > 0

	case StopAtBreakpoint:
		if m.debug.ShouldBreakAtAddress(pc) &&
			(executed > 0 || !m.hasLastBreak || m.lastBreakpoint != pc) {
			m.lastBreakpoint = pc
			m.hasLastBreak = true
			return true
		}

	case StepOver:
		if m.hasImminentBreak {
			if m.imminentBreak == pc {
				m.hasImminentBreak = false
				return true
			}
			return false
		}
		justCreated := false
		if n := m.cpu.CallInstructionLength(); n > 0 {
			m.imminentBreak = pc + uint16(n)
			m.hasImminentBreak = true
			justCreated = true
		}
		return executed > 0 && (!m.hasImminentBreak || justCreated)
	}
	return false
}
