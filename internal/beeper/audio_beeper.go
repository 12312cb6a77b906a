// Package beeper records the EAR line as a list of pulses per frame and
// renders them into audio samples.
package beeper

import "fmt"

const (
	DefaultSampleRate = 35000
	DefaultClockHz    = 3_500_000

	// ClockHz128 is the 128K clock, 3.5469 MHz.
	ClockHz128 = 3_546_900
)

// EarBitPulse is a stretch of constant EAR level.
type EarBitPulse struct {
	EarBit bool
	Lenght int
}

// FrameClock supplies the tact within the current frame.
type FrameClock interface {
	CurrentFrameTact() int
}

// SoundProvider receives the samples of every completed frame.
type SoundProvider interface {
	AddSamples(samples []float32)
}

// TimingError reports an EAR change at a tact earlier than the last one
// recorded in the frame.
type TimingError struct {
	Tact          int
	LastPulseTact int
}

func (e *TimingError) Error() string {
	return fmt.Sprintf("beeper: EAR change at tact %d before last pulse at %d", e.Tact, e.LastPulseTact)
}

type Device struct {
	clock      FrameClock
	frameTacts int

	tactsPerSample int
	sampleOffset   int
	samples        []float32
	provider       SoundProvider

	pulses        []EarBitPulse
	LastEarBit    bool
	LastPulseTact int
	FrameCount    int

	tapeOverride bool
}

// NewDevice creates a beeper rendering at sampleRate for a CPU running at
// clockHz. A zero sampleRate or clockHz selects the defaults.
func NewDevice(clock FrameClock, frameTacts, clockHz, sampleRate int) *Device {
	if clockHz <= 0 {
		clockHz = DefaultClockHz
	}
	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}
	tps := clockHz / sampleRate
	if tps < 1 {
		tps = 1
	}
	d := &Device{
		clock:          clock,
		frameTacts:     frameTacts,
		tactsPerSample: tps,
		pulses:         make([]EarBitPulse, 0, 1000),
	}
	d.Reset()
	return d
}

func (d *Device) SetSoundProvider(p SoundProvider) {
	d.provider = p
}

// Pulses returns the pulses of the current frame. The slice is reused by
// the next frame.
func (d *Device) Pulses() []EarBitPulse {
	return d.pulses
}

func (d *Device) TactsPerSample() int {
	return d.tactsPerSample
}

// SampleRate is the effective rate after rounding tacts per sample.
func (d *Device) SampleRate(clockHz int) int {
	return clockHz / d.tactsPerSample
}

// SamplesPerFrame is the largest sample count a frame can produce.
func (d *Device) SamplesPerFrame() int {
	return (d.frameTacts+d.tactsPerSample-1)/d.tactsPerSample + 1
}

// SetTapeOverride makes the tape the only EAR source while active.
func (d *Device) SetTapeOverride(active bool) {
	d.tapeOverride = active
}

func (d *Device) ProcessEarBitValue(fromTape, earBit bool) {
	if !fromTape && d.tapeOverride {
		return
	}
	if earBit == d.LastEarBit {
		return
	}
	d.LastEarBit = earBit

	currentTact := min(d.clock.CurrentFrameTact(), d.frameTacts)
	if currentTact < d.LastPulseTact {
		panic(&TimingError{Tact: currentTact, LastPulseTact: d.LastPulseTact})
	}
	// A toggle at the first tact of the frame leaves no pulse.
	if length := currentTact - d.LastPulseTact; length > 0 {
		d.pulses = append(d.pulses, EarBitPulse{EarBit: !earBit, Lenght: length})
	}
	d.LastPulseTact = currentTact
}

func (d *Device) Reset() {
	d.pulses = d.pulses[:0]
	d.LastPulseTact = 0
	d.LastEarBit = true
	d.FrameCount = 0
	d.sampleOffset = 0
	d.tapeOverride = false
}

func (d *Device) OnNewFrame() {
	d.pulses = d.pulses[:0]
	d.LastPulseTact = 0
	d.FrameCount++
}

// OnFrameCompleted closes the frame with a pulse at the held level and
// hands the rendered samples to the sound provider.
func (d *Device) OnFrameCompleted() {
	if d.LastPulseTact <= d.frameTacts-1 {
		d.pulses = append(d.pulses, EarBitPulse{
			EarBit: d.LastEarBit,
			Lenght: d.frameTacts - d.LastPulseTact,
		})
	}

	count := (d.frameTacts + d.sampleOffset) / d.tactsPerSample
	if cap(d.samples) < count {
		d.samples = make([]float32, count)
	}
	d.samples = d.samples[:count]
	RenderFloat(d.pulses, d.tactsPerSample, d.sampleOffset, d.samples, 0, 1, 0)
	d.sampleOffset = (d.frameTacts + d.sampleOffset) % d.tactsPerSample

	if d.provider != nil {
		d.provider.AddSamples(d.samples)
	}
}

// RenderFloat converts pulses into samples written at buffer[offset:].
// Sample i takes the level of tact (i+1)*tactsInSample-sampleOffset-1, so
// every sample belongs to exactly one pulse. It returns the number of
// samples written.
func RenderFloat(pulses []EarBitPulse, tactsInSample, sampleOffset int, buffer []float32, offset int, high, low float32) int {
	end := 0
	written := 0
	for _, p := range pulses {
		first := (end + sampleOffset) / tactsInSample
		last := (end + p.Lenght + sampleOffset) / tactsInSample
		level := low
		if p.EarBit {
			level = high
		}
		for i := first; i < last && offset+i < len(buffer); i++ {
			buffer[offset+i] = level
			written++
		}
		end += p.Lenght
	}
	return written
}
