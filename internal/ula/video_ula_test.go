package ula

import (
	"errors"
	"testing"
)

type testScreenMemory struct {
	mem   [0x4000]byte
	reads int
}

func (m *testScreenMemory) ReadScreen(addr uint16) byte {
	m.reads++
	return m.mem[addr&0x3FFF]
}

type captureProvider struct {
	frames int
	last   []byte
}

func (p *captureProvider) DisplayFrame(frame []byte) {
	p.frames++
	p.last = append(p.last[:0], frame...)
}

func newTestDevice() (*Device, *testScreenMemory) {
	mem := &testScreenMemory{}
	return NewDevice(Parameters48(), mem), mem
}

func TestULAParameters48(t *testing.T) {
	p := Parameters48()

	checks := []struct {
		name      string
		got, want int
	}{
		{"ScreenLines", p.ScreenLines(), 288},
		{"ScreenWidth", p.ScreenWidth(), 352},
		{"FirstPixelTactInLine", p.FirstPixelTactInLine(), 64},
		{"LineTime", p.LineTime(), 224},
		{"FirstDisplayLine", p.FirstDisplayLine(), 64},
		{"LastDisplayLine", p.LastDisplayLine(), 255},
		{"FrameTacts", p.FrameTacts(), 69888},
		{"FirstDisplayPixelTact", p.FirstDisplayPixelTact(), 14400},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s = %d, want %d", c.name, c.got, c.want)
		}
	}
}

func TestULAParameters128(t *testing.T) {
	p := Parameters128()
	if p.LineTime() != 228 {
		t.Fatalf("LineTime = %d, want 228", p.LineTime())
	}
	if p.FrameLines() != 311 {
		t.Fatalf("FrameLines = %d, want 311", p.FrameLines())
	}
	if p.FrameTacts() != 70908 {
		t.Fatalf("FrameTacts = %d, want 70908", p.FrameTacts())
	}
}

func TestULAContentionPattern(t *testing.T) {
	d, _ := newTestDevice()

	want := []int{6, 5, 4, 3, 2, 1, 0, 0, 6, 5, 4}
	for i, w := range want {
		tact := 14398 + i
		if got := d.GetContentionValue(tact); got != w {
			t.Errorf("GetContentionValue(%d) = %d, want %d", tact, got, w)
		}
	}

	if got := d.GetContentionValue(0); got != 0 {
		t.Errorf("GetContentionValue(0) = %d, want 0", got)
	}
	if got := d.GetContentionValue(14400 + 69888); got != 4 {
		t.Errorf("GetContentionValue wraps at frame length, got %d", got)
	}
	if d.GetContentionValue(14400) != d.GetContentionValue(14400) {
		t.Errorf("GetContentionValue is not idempotent")
	}
}

func TestULAContentionEndOfLine(t *testing.T) {
	d, _ := newTestDevice()
	p := d.Parameters()

	lineStart := p.FirstDisplayLine() * p.LineTime()
	lastPixel := p.FirstPixelTactInLine() + p.DisplayLineTime
	for tact := lastPixel - 2; tact < lastPixel; tact++ {
		if got := d.GetContentionValue(lineStart + tact); got != 0 {
			t.Errorf("tact in line %d contention = %d, want 0", tact, got)
		}
	}
	if got := d.GetContentionValue(lineStart + lastPixel); got != 0 {
		t.Errorf("right border contention = %d, want 0", got)
	}
}

func TestULAFetchAddresses(t *testing.T) {
	d, _ := newTestDevice()
	table := d.RenderingTable()
	p := d.Parameters()

	first := p.FirstDisplayPixelTact()
	if e := table[first-2]; e.Phase != PhaseBorderAndFetchPixelByte || e.PixelAddr != 0x4000 {
		t.Fatalf("pixel prefetch = %v %04X, want BorderAndFetchPixelByte 4000", e.Phase, e.PixelAddr)
	}
	if e := table[first-1]; e.Phase != PhaseBorderAndFetchPixelAttribute || e.AttrAddr != 0x5800 {
		t.Fatalf("attr prefetch = %v %04X, want BorderAndFetchPixelAttribute 5800", e.Phase, e.AttrAddr)
	}
	if e := table[first+2]; e.Phase != PhaseDisplayByte1AndFetchByte2 || e.PixelAddr != 0x4001 {
		t.Fatalf("second byte fetch = %v %04X, want 4001", e.Phase, e.PixelAddr)
	}
	if e := table[first+3]; e.AttrAddr != 0x5801 {
		t.Fatalf("second attr fetch = %04X, want 5801", e.AttrAddr)
	}

	row1 := first + p.LineTime() - 2
	if e := table[row1]; e.PixelAddr != 0x4100 {
		t.Fatalf("row 1 pixel address = %04X, want 4100", e.PixelAddr)
	}
	row8 := first + 8*p.LineTime() - 2
	if e := table[row8]; e.PixelAddr != 0x4020 {
		t.Fatalf("row 8 pixel address = %04X, want 4020", e.PixelAddr)
	}
	if e := table[row8+1]; e.AttrAddr != 0x5820 {
		t.Fatalf("row 8 attr address = %04X, want 5820", e.AttrAddr)
	}
}

func TestULAVisibleArea(t *testing.T) {
	d, _ := newTestDevice()
	table := d.RenderingTable()
	p := d.Parameters()

	if table[0].Phase != PhaseNone {
		t.Fatalf("tact 0 phase = %v, want None", table[0].Phase)
	}
	firstVisible := (p.VerticalSyncLines+p.NonVisibleBorderTopLines)*p.LineTime() + p.HorizontalBlankingTime
	e := table[firstVisible]
	if e.Phase != PhaseBorder || e.XPos != 0 || e.YPos != 0 {
		t.Fatalf("first visible tact = %v (%d,%d), want Border (0,0)", e.Phase, e.XPos, e.YPos)
	}
	e = table[p.FirstDisplayPixelTact()]
	if e.XPos != 48 || e.YPos != 48 {
		t.Fatalf("first display pixel at (%d,%d), want (48,48)", e.XPos, e.YPos)
	}
}

func TestULARenderDisplayPixels(t *testing.T) {
	d, mem := newTestDevice()
	mem.mem[0x0000] = 0b1010_0000
	mem.mem[0x1800] = 0x38 | 0x02 // white paper, red ink

	d.BorderColor = 1
	d.RenderScreen(0, d.Parameters().FrameTacts())
	d.OnFrameCompleted()

	provider := &captureProvider{}
	d.SetFrameProvider(provider)
	d.OnFrameCompleted()
	if provider.frames != 1 {
		t.Fatalf("DisplayFrame calls = %d, want 1", provider.frames)
	}

	frame := provider.last
	width := d.Width()
	base := 48*width + 48
	want := []byte{2, 7, 2, 7, 7, 7, 7, 7}
	for i, w := range want {
		if frame[base+i] != w {
			t.Fatalf("pixel %d = %d, want %d", i, frame[base+i], w)
		}
	}
	if frame[0] != 1 || frame[48*width+47] != 1 {
		t.Fatalf("border pixels = %d/%d, want 1", frame[0], frame[48*width+47])
	}
}

func TestULABrightColors(t *testing.T) {
	d, mem := newTestDevice()
	mem.mem[0x0000] = 0xFF
	mem.mem[0x1800] = 0x40 | 0x05

	d.RenderScreen(0, d.Parameters().FrameTacts())
	provider := &captureProvider{}
	d.SetFrameProvider(provider)
	d.OnFrameCompleted()

	if got := provider.last[48*d.Width()+48]; got != 13 {
		t.Fatalf("bright cyan ink = %d, want 13", got)
	}
	if pal := d.Palette(); pal[13] != 0xFF00FFFF || pal[5] != 0xFF00CDCD {
		t.Fatalf("palette cyan = %08X/%08X", pal[13], pal[5])
	}
}

func TestULAFlashSwapsInkAndPaper(t *testing.T) {
	d, mem := newTestDevice()
	mem.mem[0x0000] = 0x80
	mem.mem[0x1800] = 0x80 | 0x08 | 0x06 // flash, blue paper, yellow ink

	var toggledAt int
	for range 25 {
		d.RenderScreen(0, d.Parameters().FrameTacts())
		d.OnFrameCompleted()
		d.OnNewFrame()
		if d.FlashPhase() && toggledAt == 0 {
			toggledAt = d.FrameCount()
		}
	}
	if toggledAt != 25 {
		t.Fatalf("flash toggled at frame %d, want 25", toggledAt)
	}

	d.RenderScreen(0, d.Parameters().FrameTacts())
	provider := &captureProvider{}
	d.SetFrameProvider(provider)
	d.OnFrameCompleted()

	base := 48*d.Width() + 48
	if provider.last[base] != 1 || provider.last[base+1] != 6 {
		t.Fatalf("flashing pixels = %d,%d, want 1,6", provider.last[base], provider.last[base+1])
	}
}

func TestULARenderTwicePanics(t *testing.T) {
	d, _ := newTestDevice()
	d.RenderScreen(0, 1000)

	defer func() {
		r := recover()
		err, ok := r.(error)
		var renderErr *RenderError
		if !ok || !errors.As(err, &renderErr) {
			t.Fatalf("recovered %v, want *RenderError", r)
		}
		if renderErr.FromTact != 500 || renderErr.RenderedUpTo != 1000 {
			t.Fatalf("RenderError = %+v", renderErr)
		}
	}()
	d.RenderScreen(500, 1200)
}

func TestULARenderClampsAndCursorResets(t *testing.T) {
	d, _ := newTestDevice()
	d.RenderScreen(0, 1_000_000)
	d.RenderScreen(69888, 69900)

	d.Overflow = 10
	d.OnNewFrame()
	d.RenderScreen(10, 20)
}

func TestULAFrameBufferIsLastCompletedFrame(t *testing.T) {
	d, _ := newTestDevice()
	d.BorderColor = 4
	d.RenderScreen(0, d.Parameters().FrameTacts())
	d.OnNewFrame()

	d.BorderColor = 2
	d.RenderScreen(0, 20000)

	fb := d.FrameBuffer()
	if len(fb) != 352*288 {
		t.Fatalf("FrameBuffer length = %d", len(fb))
	}
	if fb[0] != 4 {
		t.Fatalf("FrameBuffer pixel = %d, want 4 from the completed frame", fb[0])
	}
}

func TestULAScreenReadsPerFrame(t *testing.T) {
	d, mem := newTestDevice()
	d.RenderScreen(0, d.Parameters().FrameTacts())
	// 32 bitmap and 32 attribute reads per display line.
	if mem.reads != 192*64 {
		t.Fatalf("screen reads = %d, want %d", mem.reads, 192*64)
	}
}
