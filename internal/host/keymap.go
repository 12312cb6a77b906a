//go:build !headless

package host

import (
	"github.com/hajimehoshi/ebiten/v2"

	"github.com/intuitionamiga/SpectrumEngine/internal/keyboard"
)

// hostKeys maps PC keys to the Spectrum keys they hold down. Keys that
// only exist on a PC keyboard press a shift plus a Spectrum key.
var hostKeys = map[ebiten.Key][]keyboard.Key{
	ebiten.KeyA: {keyboard.A}, ebiten.KeyB: {keyboard.B}, ebiten.KeyC: {keyboard.C},
	ebiten.KeyD: {keyboard.D}, ebiten.KeyE: {keyboard.E}, ebiten.KeyF: {keyboard.F},
	ebiten.KeyG: {keyboard.G}, ebiten.KeyH: {keyboard.H}, ebiten.KeyI: {keyboard.I},
	ebiten.KeyJ: {keyboard.J}, ebiten.KeyK: {keyboard.K}, ebiten.KeyL: {keyboard.L},
	ebiten.KeyM: {keyboard.M}, ebiten.KeyN: {keyboard.N}, ebiten.KeyO: {keyboard.O},
	ebiten.KeyP: {keyboard.P}, ebiten.KeyQ: {keyboard.Q}, ebiten.KeyR: {keyboard.R},
	ebiten.KeyS: {keyboard.S}, ebiten.KeyT: {keyboard.T}, ebiten.KeyU: {keyboard.U},
	ebiten.KeyV: {keyboard.V}, ebiten.KeyW: {keyboard.W}, ebiten.KeyX: {keyboard.X},
	ebiten.KeyY: {keyboard.Y}, ebiten.KeyZ: {keyboard.Z},

	ebiten.KeyDigit0: {keyboard.N0}, ebiten.KeyDigit1: {keyboard.N1},
	ebiten.KeyDigit2: {keyboard.N2}, ebiten.KeyDigit3: {keyboard.N3},
	ebiten.KeyDigit4: {keyboard.N4}, ebiten.KeyDigit5: {keyboard.N5},
	ebiten.KeyDigit6: {keyboard.N6}, ebiten.KeyDigit7: {keyboard.N7},
	ebiten.KeyDigit8: {keyboard.N8}, ebiten.KeyDigit9: {keyboard.N9},

	ebiten.KeyEnter:        {keyboard.Enter},
	ebiten.KeyNumpadEnter:  {keyboard.Enter},
	ebiten.KeySpace:        {keyboard.Space},
	ebiten.KeyShiftLeft:    {keyboard.CShift},
	ebiten.KeyShiftRight:   {keyboard.CShift},
	ebiten.KeyControlLeft:  {keyboard.SShift},
	ebiten.KeyControlRight: {keyboard.SShift},
	ebiten.KeyAltLeft:      {keyboard.SShift},
	ebiten.KeyAltRight:     {keyboard.SShift},

	// CAPS SHIFT combinations
	ebiten.KeyBackspace:  {keyboard.CShift, keyboard.N0},
	ebiten.KeyArrowLeft:  {keyboard.CShift, keyboard.N5},
	ebiten.KeyArrowDown:  {keyboard.CShift, keyboard.N6},
	ebiten.KeyArrowUp:    {keyboard.CShift, keyboard.N7},
	ebiten.KeyArrowRight: {keyboard.CShift, keyboard.N8},
	ebiten.KeyCapsLock:   {keyboard.CShift, keyboard.N2},
	ebiten.KeyEscape:     {keyboard.CShift, keyboard.Space},

	// SYMBOL SHIFT combinations
	ebiten.KeyComma:     {keyboard.SShift, keyboard.N},
	ebiten.KeyPeriod:    {keyboard.SShift, keyboard.M},
	ebiten.KeyMinus:     {keyboard.SShift, keyboard.J},
	ebiten.KeyEqual:     {keyboard.SShift, keyboard.L},
	ebiten.KeySemicolon: {keyboard.SShift, keyboard.O},
	ebiten.KeySlash:     {keyboard.SShift, keyboard.V},
	ebiten.KeyQuote:     {keyboard.SShift, keyboard.P},
}

// heldKeys returns the Spectrum keys held by the pressed PC keys.
func heldKeys(pressed []ebiten.Key) uint64 {
	var held uint64
	for _, k := range pressed {
		for _, sk := range hostKeys[k] {
			held |= 1 << uint(sk)
		}
	}
	return held
}

// KeyTracker applies PC key state to the Spectrum matrix. Only keys whose
// state changed are touched so typed strokes are left alone.
type KeyTracker struct {
	kb   *keyboard.Device
	held uint64
}

func NewKeyTracker(kb *keyboard.Device) *KeyTracker {
	return &KeyTracker{kb: kb}
}

func (t *KeyTracker) Update(pressed []ebiten.Key) {
	held := heldKeys(pressed)
	changed := held ^ t.held
	for k := keyboard.Key(0); k < keyboard.KeyCount; k++ {
		if changed&(1<<uint(k)) != 0 {
			t.kb.SetStatus(k, held&(1<<uint(k)) != 0)
		}
	}
	t.held = held
}

// Release lifts every key the tracker holds, for when the window loses
// focus.
func (t *KeyTracker) Release() {
	t.Update(nil)
}
