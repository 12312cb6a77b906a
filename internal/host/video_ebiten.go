//go:build !headless

// video_ebiten.go - Ebiten window for the Spectrum screen

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

package host

import (
	"fmt"
	"image/color"
	"sync"
	"sync/atomic"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/text"
	"golang.design/x/clipboard"
	"golang.org/x/image/font/basicfont"

	"github.com/intuitionamiga/SpectrumEngine/internal/keyboard"
)

// maxPaste caps how much clipboard text is queued for typing.
const maxPaste = 4096

// StatusFunc returns the text of the status bar.
type StatusFunc func() string

// EbitenOutput shows the frames collected by a FrameSink in a window and
// feeds the PC keyboard into the Spectrum matrix.
type EbitenOutput struct {
	sink   *FrameSink
	kb     *keyboard.Device
	keys   *KeyTracker
	title  string
	scale  int
	width  int
	height int

	window     *ebiten.Image
	pixels     []byte
	fullscreen bool
	running    atomic.Bool
	done       chan struct{}
	doneOnce   sync.Once

	handlerMu        sync.RWMutex
	resetHandler     func()
	screenshotHandle func()
	status           StatusFunc
	showStatusBar    bool

	clipboardOnce sync.Once
	clipboardOK   bool
	resetBusy     atomic.Bool
}

func NewEbitenOutput(sink *FrameSink, kb *keyboard.Device, title string, scale int) *EbitenOutput {
	if scale < 1 {
		scale = 1
	}
	return &EbitenOutput{
		sink:   sink,
		kb:     kb,
		keys:   NewKeyTracker(kb),
		title:  title,
		scale:  scale,
		width:  sink.Width(),
		height: sink.Height(),
		pixels: make([]byte, sink.Width()*sink.Height()*4),
		done:   make(chan struct{}),
	}
}

func (eo *EbitenOutput) SetResetHandler(fn func()) {
	eo.handlerMu.Lock()
	eo.resetHandler = fn
	eo.handlerMu.Unlock()
}

func (eo *EbitenOutput) SetScreenshotHandler(fn func()) {
	eo.handlerMu.Lock()
	eo.screenshotHandle = fn
	eo.handlerMu.Unlock()
}

func (eo *EbitenOutput) SetStatus(fn StatusFunc) {
	eo.handlerMu.Lock()
	eo.status = fn
	eo.handlerMu.Unlock()
}

// Run opens the window and blocks until it is closed or Stop is called.
// Ebiten requires this to run on the main goroutine.
func (eo *EbitenOutput) Run() error {
	eo.running.Store(true)
	defer eo.markDone()

	ebiten.SetWindowSize(eo.width*eo.scale, eo.height*eo.scale)
	ebiten.SetWindowTitle(eo.title)
	ebiten.SetWindowResizable(true)
	ebiten.SetRunnableOnUnfocused(true)
	ebiten.SetVsyncEnabled(true)
	if err := ebiten.RunGame(eo); err != nil {
		return fmt.Errorf("host: ebiten: %w", err)
	}
	return nil
}

func (eo *EbitenOutput) Stop() {
	eo.running.Store(false)
}

// Done is closed once the window has gone.
func (eo *EbitenOutput) Done() <-chan struct{} {
	return eo.done
}

func (eo *EbitenOutput) markDone() {
	eo.running.Store(false)
	eo.doneOnce.Do(func() { close(eo.done) })
}

func (eo *EbitenOutput) Update() error {
	if ebiten.IsWindowBeingClosed() || !eo.running.Load() {
		eo.keys.Release()
		return ebiten.Termination
	}

	if inpututil.IsKeyJustPressed(ebiten.KeyF2) {
		eo.handlerMu.RLock()
		fn := eo.screenshotHandle
		eo.handlerMu.RUnlock()
		if fn != nil {
			fn()
		}
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyF10) {
		eo.hardReset()
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyF11) {
		eo.fullscreen = !eo.fullscreen
		ebiten.SetFullscreen(eo.fullscreen)
		if !eo.fullscreen {
			ebiten.SetWindowSize(eo.width*eo.scale, eo.height*eo.scale)
		}
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyF12) {
		eo.handlerMu.Lock()
		eo.showStatusBar = !eo.showStatusBar
		eo.handlerMu.Unlock()
	}

	if !ebiten.IsFocused() {
		eo.keys.Release()
		return nil
	}
	ctrl := ebiten.IsKeyPressed(ebiten.KeyControlLeft) || ebiten.IsKeyPressed(ebiten.KeyControlRight)
	shift := ebiten.IsKeyPressed(ebiten.KeyShiftLeft) || ebiten.IsKeyPressed(ebiten.KeyShiftRight)
	if ctrl && shift && inpututil.IsKeyJustPressed(ebiten.KeyV) {
		eo.keys.Release()
		eo.handleClipboardPaste()
		return nil
	}
	eo.keys.Update(inpututil.AppendPressedKeys(nil))
	return nil
}

func (eo *EbitenOutput) hardReset() {
	if !eo.resetBusy.CompareAndSwap(false, true) {
		return
	}
	eo.handlerMu.RLock()
	handler := eo.resetHandler
	eo.handlerMu.RUnlock()
	if handler == nil {
		eo.resetBusy.Store(false)
		return
	}
	go func() {
		defer eo.resetBusy.Store(false)
		handler()
	}()
}

func (eo *EbitenOutput) handleClipboardPaste() {
	eo.clipboardOnce.Do(func() {
		eo.clipboardOK = clipboard.Init() == nil
	})
	if !eo.clipboardOK {
		return
	}
	data := clipboard.Read(clipboard.FmtText)
	if len(data) == 0 {
		return
	}
	pasted := normalizePasteText(data)
	if len(pasted) > maxPaste {
		pasted = pasted[:maxPaste]
	}
	eo.kb.Type(string(pasted))
}

func (eo *EbitenOutput) Draw(screen *ebiten.Image) {
	if eo.window == nil {
		eo.window = ebiten.NewImage(eo.width, eo.height)
	}
	eo.sink.CopyPixels(eo.pixels)
	eo.window.WritePixels(eo.pixels)
	screen.DrawImage(eo.window, nil)

	eo.handlerMu.RLock()
	show, status := eo.showStatusBar, eo.status
	eo.handlerMu.RUnlock()
	if show {
		line := fmt.Sprintf("FPS %.1f", ebiten.ActualFPS())
		if status != nil {
			line = status() + "  " + line
		}
		eo.drawStatusBar(screen, line)
	}
}

func (eo *EbitenOutput) Layout(_, _ int) (int, int) {
	return eo.width, eo.height
}

func (eo *EbitenOutput) drawStatusBar(screen *ebiten.Image, line string) {
	face := basicfont.Face7x13
	barHeight := 30
	if barHeight >= eo.height {
		return
	}
	y := eo.height - barHeight
	ebitenutil.DrawRect(screen, 0, float64(y), float64(eo.width), float64(barHeight), color.RGBA{0, 0, 0, 180})
	text.Draw(screen, line, face, 6, y+12, color.RGBA{0, 220, 90, 255})
	text.Draw(screen, "F2 Shot  F10 Reset  F11 Full  F12 Bar", face, 6, y+25, color.RGBA{160, 160, 160, 255})
}
