//go:build headless

package host

import (
	"sync"
	"sync/atomic"

	"github.com/intuitionamiga/SpectrumEngine/internal/keyboard"
)

type StatusFunc func() string

// EbitenOutput has no window in headless builds. Run blocks until Stop.
type EbitenOutput struct {
	sink     *FrameSink
	running  atomic.Bool
	done     chan struct{}
	doneOnce sync.Once
	stop     chan struct{}
	stopOnce sync.Once
}

func NewEbitenOutput(sink *FrameSink, kb *keyboard.Device, title string, scale int) *EbitenOutput {
	return &EbitenOutput{sink: sink, done: make(chan struct{}), stop: make(chan struct{})}
}

func (eo *EbitenOutput) SetResetHandler(fn func())      {}
func (eo *EbitenOutput) SetScreenshotHandler(fn func()) {}
func (eo *EbitenOutput) SetStatus(fn StatusFunc)        {}

func (eo *EbitenOutput) Run() error {
	eo.running.Store(true)
	<-eo.stop
	eo.running.Store(false)
	eo.doneOnce.Do(func() { close(eo.done) })
	return nil
}

func (eo *EbitenOutput) Stop() {
	eo.stopOnce.Do(func() { close(eo.stop) })
}

func (eo *EbitenOutput) Done() <-chan struct{} { return eo.done }
