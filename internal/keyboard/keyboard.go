// Package keyboard models the Spectrum keyboard matrix: 40 keys wired as
// eight half-rows of five, each half-row selected by one of the address
// lines A8-A15 during an IN from port FEh.
package keyboard

import (
	"strings"
	"sync"
	"sync/atomic"
)

// Key is a matrix position: half-row*5 + bit.
type Key int

// Keys in matrix order. Half-row 0 is selected by A8, half-row 7 by A15.
const (
	CShift Key = iota
	Z
	X
	C
	V

	A
	S
	D
	F
	G

	Q
	W
	E
	R
	T

	N1
	N2
	N3
	N4
	N5

	N0
	N9
	N8
	N7
	N6

	P
	O
	I
	U
	Y

	Enter
	L
	K
	J
	H

	Space
	SShift
	M
	N
	B

	KeyCount
)

// NoKey marks an unused slot in a stroke.
const NoKey Key = -1

var keyNames = [KeyCount]string{
	"CShift", "Z", "X", "C", "V",
	"A", "S", "D", "F", "G",
	"Q", "W", "E", "R", "T",
	"1", "2", "3", "4", "5",
	"0", "9", "8", "7", "6",
	"P", "O", "I", "U", "Y",
	"Enter", "L", "K", "J", "H",
	"Space", "SShift", "M", "N", "B",
}

func (k Key) String() string {
	if k < 0 || k >= KeyCount {
		return "NoKey"
	}
	return keyNames[k]
}

// HalfRow returns the half-row index and the data bit of k.
func (k Key) HalfRow() (row, bit int) {
	return int(k) / 5, int(k) % 5
}

// ParseKey looks a key up by name, ignoring case.
func ParseKey(name string) (Key, bool) {
	for i, n := range keyNames {
		if strings.EqualFold(n, name) {
			return Key(i), true
		}
	}
	return NoKey, false
}

const (
	// KeyPressFrames is how long a typed key is held down.
	KeyPressFrames = 5
	// RepeatGapFrames separates two strokes of the same key so the ROM's
	// debounce sees a release.
	RepeatGapFrames = 5
)

// Stroke is one typed key combination.
type Stroke struct {
	Primary   Key
	Secondary Key
}

// Device is the keyboard matrix. SetStatus and Type may be called from a
// host goroutine while the emulation reads lines.
type Device struct {
	matrix atomic.Uint64

	mu      sync.Mutex
	queue   []Stroke
	holding bool
	current Stroke
	frames  int
	gap     int
}

func New() *Device {
	return &Device{}
}

// SetStatus presses or releases key.
func (d *Device) SetStatus(key Key, down bool) {
	if key < 0 || key >= KeyCount {
		return
	}
	mask := uint64(1) << uint(key)
	if down {
		d.matrix.Or(mask)
	} else {
		d.matrix.And(^mask)
	}
}

func (d *Device) IsPressed(key Key) bool {
	if key < 0 || key >= KeyCount {
		return false
	}
	return d.matrix.Load()&(uint64(1)<<uint(key)) != 0
}

// GetLineStatus returns the data bits for an IN from port FEh with the
// given high address byte. Every half-row whose address line is low is
// scanned; a pressed key reads as 0. Bits 5-7 are always set.
func (d *Device) GetLineStatus(addrHigh byte) byte {
	m := d.matrix.Load()
	var pressed byte
	for row := range 8 {
		if addrHigh&(1<<row) == 0 {
			pressed |= byte(m>>(row*5)) & 0x1F
		}
	}
	return ^pressed
}

// Type queues the key strokes that produce text in 48K BASIC. Characters
// without a key combination are skipped. It returns the number of strokes
// queued.
func (d *Device) Type(text string) int {
	var strokes []Stroke
	for _, r := range text {
		if s, ok := StrokeFor(r); ok {
			strokes = append(strokes, s)
		}
	}
	d.Queue(strokes...)
	return len(strokes)
}

// Queue appends strokes to the typing queue.
func (d *Device) Queue(strokes ...Stroke) {
	d.mu.Lock()
	d.queue = append(d.queue, strokes...)
	d.mu.Unlock()
}

// Pending returns the number of strokes not yet released.
func (d *Device) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := len(d.queue)
	if d.holding {
		n++
	}
	return n
}

func (d *Device) press(s Stroke, down bool) {
	d.SetStatus(s.Primary, down)
	if s.Secondary != NoKey {
		d.SetStatus(s.Secondary, down)
	}
}

// OnNewFrame advances the typing queue by one frame.
func (d *Device) OnNewFrame() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.holding {
		d.frames--
		if d.frames > 0 {
			return
		}
		d.press(d.current, false)
		d.holding = false
		d.gap = 1
		if len(d.queue) > 0 && d.queue[0] == d.current {
			d.gap = RepeatGapFrames
		}
	}
	if d.gap > 0 {
		d.gap--
		return
	}
	if len(d.queue) == 0 {
		return
	}
	d.current = d.queue[0]
	d.queue = d.queue[1:]
	d.press(d.current, true)
	d.holding = true
	d.frames = KeyPressFrames
}

func (d *Device) OnFrameCompleted() {}

// Reset releases every key and drops the typing queue.
func (d *Device) Reset() {
	d.mu.Lock()
	d.queue = nil
	d.holding = false
	d.gap = 0
	d.mu.Unlock()
	d.matrix.Store(0)
}
