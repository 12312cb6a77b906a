package beeper

import (
	"errors"
	"testing"
)

const frameTacts = 69888

type testClock struct{ tact int }

func (c *testClock) CurrentFrameTact() int { return c.tact }

type captureSound struct {
	frames  int
	samples []float32
}

func (s *captureSound) AddSamples(samples []float32) {
	s.frames++
	s.samples = append(s.samples[:0], samples...)
}

func newTestBeeper() (*Device, *testClock) {
	clock := &testClock{}
	return NewDevice(clock, frameTacts, 0, 0), clock
}

func pulseTotal(pulses []EarBitPulse) int {
	total := 0
	for _, p := range pulses {
		total += p.Lenght
	}
	return total
}

func TestBeeperDefaults(t *testing.T) {
	d, _ := newTestBeeper()
	if d.TactsPerSample() != 100 {
		t.Fatalf("TactsPerSample = %d, want 100", d.TactsPerSample())
	}
	if !d.LastEarBit {
		t.Fatalf("LastEarBit should start high")
	}
}

func TestBeeperSameBitAddsNoPulse(t *testing.T) {
	d, clock := newTestBeeper()
	clock.tact = 100
	d.ProcessEarBitValue(false, true)
	d.ProcessEarBitValue(false, true)
	if len(d.Pulses()) != 0 {
		t.Fatalf("pulses = %v, want none", d.Pulses())
	}
}

func TestBeeperToggleAtTactZeroDropped(t *testing.T) {
	d, _ := newTestBeeper()
	d.ProcessEarBitValue(false, false)
	if len(d.Pulses()) != 0 {
		t.Fatalf("pulses = %v, want none", d.Pulses())
	}
	if d.LastEarBit {
		t.Fatalf("LastEarBit should follow the toggle")
	}
}

func TestBeeperPulses(t *testing.T) {
	d, clock := newTestBeeper()

	clock.tact = 1000
	d.ProcessEarBitValue(false, false)
	clock.tact = 1500
	d.ProcessEarBitValue(false, true)
	d.OnFrameCompleted()

	want := []EarBitPulse{
		{EarBit: true, Lenght: 1000},
		{EarBit: false, Lenght: 500},
		{EarBit: true, Lenght: frameTacts - 1500},
	}
	got := d.Pulses()
	if len(got) != len(want) {
		t.Fatalf("pulses = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("pulse %d = %+v, want %+v", i, got[i], want[i])
		}
	}
	if total := pulseTotal(got); total != frameTacts {
		t.Fatalf("pulse total = %d, want %d", total, frameTacts)
	}
}

func TestBeeperSilentFrameSinglePulse(t *testing.T) {
	d, _ := newTestBeeper()
	d.OnFrameCompleted()

	pulses := d.Pulses()
	if len(pulses) != 1 || pulses[0] != (EarBitPulse{EarBit: true, Lenght: frameTacts}) {
		t.Fatalf("pulses = %v, want one whole-frame high pulse", pulses)
	}
}

func TestBeeperTactClampedToFrame(t *testing.T) {
	d, clock := newTestBeeper()
	clock.tact = frameTacts + 30
	d.ProcessEarBitValue(false, false)
	d.OnFrameCompleted()

	pulses := d.Pulses()
	if len(pulses) != 1 || pulses[0].Lenght != frameTacts {
		t.Fatalf("pulses = %v, want a single pulse of the frame length", pulses)
	}
}

func TestBeeperNewFrameKeepsLevel(t *testing.T) {
	d, clock := newTestBeeper()
	clock.tact = 200
	d.ProcessEarBitValue(false, false)
	d.OnFrameCompleted()
	d.OnNewFrame()

	if len(d.Pulses()) != 0 || d.LastPulseTact != 0 || d.FrameCount != 1 {
		t.Fatalf("OnNewFrame left pulses=%d last=%d count=%d", len(d.Pulses()), d.LastPulseTact, d.FrameCount)
	}
	d.OnFrameCompleted()
	if p := d.Pulses(); len(p) != 1 || p[0].EarBit {
		t.Fatalf("held low level not carried over: %v", p)
	}
}

func TestBeeperTapeOverride(t *testing.T) {
	d, clock := newTestBeeper()
	d.SetTapeOverride(true)
	clock.tact = 300
	d.ProcessEarBitValue(false, false)
	if !d.LastEarBit {
		t.Fatalf("OUT-driven EAR accepted during tape override")
	}
	d.ProcessEarBitValue(true, false)
	if d.LastEarBit || len(d.Pulses()) != 1 {
		t.Fatalf("tape-driven EAR ignored")
	}
}

func TestBeeperDecreasingTactPanics(t *testing.T) {
	d, clock := newTestBeeper()
	clock.tact = 500
	d.ProcessEarBitValue(false, false)

	defer func() {
		err, _ := recover().(error)
		var timing *TimingError
		if !errors.As(err, &timing) {
			t.Fatalf("recovered %v, want *TimingError", err)
		}
	}()
	clock.tact = 400
	d.ProcessEarBitValue(false, true)
}

func TestRenderFloatRoundTrip(t *testing.T) {
	pulses := []EarBitPulse{
		{EarBit: true, Lenght: 1234},
		{EarBit: false, Lenght: 855},
		{EarBit: true, Lenght: 1710},
		{EarBit: false, Lenght: 2168},
		{EarBit: true, Lenght: 333},
	}
	total := pulseTotal(pulses)

	for _, tps := range []int{1, 7, 50, 100} {
		for _, off := range []int{0, tps / 2, tps - 1} {
			count := (total + off) / tps
			buf := make([]float32, count)
			for i := range buf {
				buf[i] = -1
			}
			if n := RenderFloat(pulses, tps, off, buf, 0, 1, 0); n != count {
				t.Fatalf("tps=%d off=%d: wrote %d samples, want %d", tps, off, n, count)
			}

			// Rebuild the level runs and compare them with the pulses.
			var runs []EarBitPulse
			for _, s := range buf {
				if s < 0 {
					t.Fatalf("tps=%d off=%d: gap in samples", tps, off)
				}
				bit := s == 1
				if len(runs) > 0 && runs[len(runs)-1].EarBit == bit {
					runs[len(runs)-1].Lenght += tps
					continue
				}
				runs = append(runs, EarBitPulse{EarBit: bit, Lenght: tps})
			}
			if len(runs) != len(pulses) {
				t.Fatalf("tps=%d off=%d: %d runs, want %d", tps, off, len(runs), len(pulses))
			}
			for i := range pulses {
				if runs[i].EarBit != pulses[i].EarBit {
					t.Fatalf("tps=%d off=%d: run %d level mismatch", tps, off, i)
				}
				if diff := runs[i].Lenght - pulses[i].Lenght; diff > tps || diff < -tps {
					t.Fatalf("tps=%d off=%d: run %d length %d, pulse %d", tps, off, i, runs[i].Lenght, pulses[i].Lenght)
				}
			}
		}
	}
}

func TestBeeperSamplesAcrossFrames(t *testing.T) {
	d, clock := newTestBeeper()
	sound := &captureSound{}
	d.SetSoundProvider(sound)

	total := 0
	for range 25 {
		clock.tact = 10000
		d.ProcessEarBitValue(false, !d.LastEarBit)
		d.OnFrameCompleted()
		total += len(sound.samples)
		d.OnNewFrame()
	}
	if sound.frames != 25 {
		t.Fatalf("AddSamples calls = %d, want 25", sound.frames)
	}
	if want := 25 * frameTacts / 100; total != want {
		t.Fatalf("total samples = %d, want %d", total, want)
	}
	if len(sound.samples) > d.SamplesPerFrame() {
		t.Fatalf("frame produced %d samples, SamplesPerFrame = %d", len(sound.samples), d.SamplesPerFrame())
	}
}
