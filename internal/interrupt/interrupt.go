// Package interrupt raises the ULA's maskable interrupt once per frame.
package interrupt

// LongestOpTacts is how long the INT line stays up after InterruptTact. An
// instruction started just before the window can take this long to finish.
const LongestOpTacts = 23

// CPU is the part of the Z80 the interrupt device drives.
type CPU interface {
	SetIRQLine(active bool)
	IsInterruptBlocked() bool
}

type Device struct {
	cpu CPU

	InterruptTact int
	Raised        bool
	Revoked       bool

	// FrameCount counts the interrupts raised.
	FrameCount int
}

func NewDevice(cpu CPU, interruptTact int) *Device {
	return &Device{cpu: cpu, InterruptTact: interruptTact}
}

func (d *Device) Reset() {
	d.Raised = false
	d.Revoked = false
	d.FrameCount = 0
	d.cpu.SetIRQLine(false)
}

// CheckForInterrupt raises INT within the window
// [InterruptTact, InterruptTact+LongestOpTacts] of the frame and drops it
// once the window has passed.
func (d *Device) CheckForInterrupt(currentTact int) {
	if d.Revoked || currentTact < d.InterruptTact {
		return
	}
	if currentTact > d.InterruptTact+LongestOpTacts {
		d.Revoked = true
		d.cpu.SetIRQLine(false)
		return
	}
	if d.Raised || d.cpu.IsInterruptBlocked() {
		return
	}
	d.Raised = true
	d.cpu.SetIRQLine(true)
	d.FrameCount++
}

func (d *Device) OnNewFrame() {
	d.Raised = false
	d.Revoked = false
}

func (d *Device) OnFrameCompleted() {}
