// video_ula.go - ZX Spectrum ULA screen device

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
video_ula.go - ZX Spectrum ULA Screen Device

The ULA draws the screen in lock step with the CPU. Every frame tact has an
entry in the rendering table telling what the ULA does in that tact: draw
two border pixels, draw two display pixels, prefetch a bitmap or attribute
byte, or nothing at all (blanking). The same table holds the contention
delay the CPU suffers when it accesses contended memory in that tact.

Signal Flow:
1. The machine calls RenderScreen after every CPU cycle with the tact range
   the CPU has just spent
2. The ULA replays the table phases for that range into the back buffer,
   reading screen memory exactly when the real chip would
3. OnFrameCompleted hands the finished buffer to the frame provider
4. OnNewFrame swaps the buffers and starts the next frame

Pixels are palette indexes (0-15). Palette() maps them to ARGB.
*/

package ula

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// ScreenMemory is the ULA's view of memory.
type ScreenMemory interface {
	ReadScreen(addr uint16) byte
}

// FrameProvider receives every completed frame. The slice is only valid for
// the duration of the call.
type FrameProvider interface {
	DisplayFrame(frame []byte)
}

// RenderError reports an attempt to render tacts that were already rendered
// in the current frame.
type RenderError struct {
	FromTact     int
	RenderedUpTo int
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("ula: render from tact %d, already rendered up to %d", e.FromTact, e.RenderedUpTo)
}

// Normal and bright RGB levels of the Spectrum palette.
var colorNormal = [8][3]uint8{
	{0, 0, 0},       // Black
	{0, 0, 205},     // Blue
	{205, 0, 0},     // Red
	{205, 0, 205},   // Magenta
	{0, 205, 0},     // Green
	{0, 205, 205},   // Cyan
	{205, 205, 0},   // Yellow
	{205, 205, 205}, // White
}

var colorBright = [8][3]uint8{
	{0, 0, 0},
	{0, 0, 255},
	{255, 0, 0},
	{255, 0, 255},
	{0, 255, 0},
	{0, 255, 255},
	{255, 255, 0},
	{255, 255, 255},
}

type Device struct {
	params     DisplayParameters
	table      []RenderingTact
	frameTacts int
	width      int

	memory   ScreenMemory
	provider FrameProvider

	// Back buffer is buffers[1-front]. The swap and FrameBuffer copies are
	// serialized by swapMu so readers never see a buffer being drawn.
	buffers [2][]byte
	front   atomic.Int32
	swapMu  sync.Mutex

	palette  [16]uint32
	flashOff [0x200]byte
	flashOn  [0x200]byte

	flashPhase bool
	frameCount int
	renderedTo int

	pixelByte1 byte
	pixelByte2 byte
	attrByte1  byte
	attrByte2  byte

	// BorderColor is the color index (0-7) last written to the ULA port.
	BorderColor byte

	// Overflow is the number of tacts the last instruction of the previous
	// frame ran into this frame. OnNewFrame renders them first.
	Overflow int
}

func NewDevice(params DisplayParameters, memory ScreenMemory) *Device {
	d := &Device{
		params:     params,
		table:      buildRenderingTable(params),
		frameTacts: params.FrameTacts(),
		width:      params.ScreenWidth(),
		memory:     memory,
	}

	size := d.width * params.ScreenLines()
	for i := range d.buffers {
		d.buffers[i] = make([]byte, size)
	}

	for i := range 8 {
		c := colorNormal[i]
		d.palette[i] = 0xFF000000 | uint32(c[0])<<16 | uint32(c[1])<<8 | uint32(c[2])
		c = colorBright[i]
		d.palette[8+i] = 0xFF000000 | uint32(c[0])<<16 | uint32(c[1])<<8 | uint32(c[2])
	}

	for attr := range 0x100 {
		ink := byte(attr&0x07 | (attr&0x40)>>3)
		paper := byte((attr&0x38)>>3 | (attr&0x40)>>3)
		d.flashOff[attr] = paper
		d.flashOff[0x100+attr] = ink
		if attr&0x80 != 0 {
			d.flashOn[attr] = ink
			d.flashOn[0x100+attr] = paper
		} else {
			d.flashOn[attr] = paper
			d.flashOn[0x100+attr] = ink
		}
	}
	return d
}

func (d *Device) SetFrameProvider(p FrameProvider) {
	d.provider = p
}

func (d *Device) Parameters() DisplayParameters {
	return d.params
}

// RenderingTable returns the per-tact table. Callers must not modify it.
func (d *Device) RenderingTable() []RenderingTact {
	return d.table
}

// Palette returns the 16 colors as 0xAARRGGBB.
func (d *Device) Palette() [16]uint32 {
	return d.palette
}

func (d *Device) FrameCount() int {
	return d.frameCount
}

func (d *Device) FlashPhase() bool {
	return d.flashPhase
}

func (d *Device) Width() int {
	return d.width
}

func (d *Device) Height() int {
	return d.params.ScreenLines()
}

// GetContentionValue returns the contention delay at a frame tact.
func (d *Device) GetContentionValue(tact int) int {
	return d.table[tact%d.frameTacts].ContentionDelay
}

func (d *Device) Reset() {
	d.flashPhase = false
	d.frameCount = 0
	d.renderedTo = 0
	d.Overflow = 0
	d.BorderColor = 0
}

// OnNewFrame swaps the buffers, advances the flash phase and renders the
// overflow tacts of the previous frame.
func (d *Device) OnNewFrame() {
	d.frameCount++
	if d.params.FlashToggleFrames > 0 && d.frameCount%d.params.FlashToggleFrames == 0 {
		d.flashPhase = !d.flashPhase
	}

	d.swapMu.Lock()
	d.front.Store(1 - d.front.Load())
	d.swapMu.Unlock()

	d.renderedTo = 0
	d.RenderScreen(0, d.Overflow)
}

// OnFrameCompleted delivers the buffer that has just been drawn.
func (d *Device) OnFrameCompleted() {
	if d.provider != nil {
		d.provider.DisplayFrame(d.backBuffer())
	}
}

func (d *Device) backBuffer() []byte {
	return d.buffers[1-d.front.Load()]
}

// FrameBuffer returns a copy of the last completed frame.
func (d *Device) FrameBuffer() []byte {
	d.swapMu.Lock()
	defer d.swapMu.Unlock()
	src := d.buffers[d.front.Load()]
	out := make([]byte, len(src))
	copy(out, src)
	return out
}

// RenderScreen replays the table phases for frame tacts [fromTact, toTact).
// toTact is clamped to the frame length.
func (d *Device) RenderScreen(fromTact, toTact int) {
	if fromTact < d.renderedTo {
		panic(&RenderError{FromTact: fromTact, RenderedUpTo: d.renderedTo})
	}
	if toTact > d.frameTacts {
		toTact = d.frameTacts
	}
	if toTact <= fromTact {
		return
	}

	buf := d.backBuffer()
	for tact := fromTact; tact < toTact; tact++ {
		item := &d.table[tact]
		pos := item.YPos*d.width + item.XPos

		switch item.Phase {
		case PhaseNone:
			continue

		case PhaseBorder:
			buf[pos], buf[pos+1] = d.BorderColor, d.BorderColor

		case PhaseBorderAndFetchPixelByte:
			buf[pos], buf[pos+1] = d.BorderColor, d.BorderColor
			d.pixelByte1 = d.memory.ReadScreen(item.PixelAddr)

		case PhaseBorderAndFetchPixelAttribute:
			buf[pos], buf[pos+1] = d.BorderColor, d.BorderColor
			d.attrByte1 = d.memory.ReadScreen(item.AttrAddr)

		case PhaseDisplayByte1:
			d.displayByte1(buf, pos)

		case PhaseDisplayByte1AndFetchByte2:
			d.displayByte1(buf, pos)
			d.pixelByte2 = d.memory.ReadScreen(item.PixelAddr)

		case PhaseDisplayByte1AndFetchAttribute2:
			d.displayByte1(buf, pos)
			d.attrByte2 = d.memory.ReadScreen(item.AttrAddr)

		case PhaseDisplayByte2:
			d.displayByte2(buf, pos)

		case PhaseDisplayByte2AndFetchByte1:
			d.displayByte2(buf, pos)
			d.pixelByte1 = d.memory.ReadScreen(item.PixelAddr)

		case PhaseDisplayByte2AndFetchAttribute1:
			d.displayByte2(buf, pos)
			d.attrByte1 = d.memory.ReadScreen(item.AttrAddr)
		}
	}
	d.renderedTo = toTact
}

func (d *Device) displayByte1(buf []byte, pos int) {
	buf[pos] = d.color(d.pixelByte1&0x80, d.attrByte1)
	buf[pos+1] = d.color(d.pixelByte1&0x40, d.attrByte1)
	d.pixelByte1 <<= 2
}

func (d *Device) displayByte2(buf []byte, pos int) {
	buf[pos] = d.color(d.pixelByte2&0x80, d.attrByte2)
	buf[pos+1] = d.color(d.pixelByte2&0x40, d.attrByte2)
	d.pixelByte2 <<= 2
}

func (d *Device) color(pixel byte, attr byte) byte {
	offset := int(attr)
	if pixel != 0 {
		offset += 0x100
	}
	if d.flashPhase {
		return d.flashOn[offset]
	}
	return d.flashOff[offset]
}
