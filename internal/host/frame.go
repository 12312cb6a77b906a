// Package host connects the machine to the outside world: the ebiten
// window, oto audio, the terminal, screenshots and WAV recordings.
package host

import (
	"image"
	"sync"
)

// Palette is the ULA palette as 0xAARRGGBB values.
type Palette [16]uint32

// ToRGBA expands palette-indexed pixels into dst as RGBA bytes. dst must
// hold 4 bytes per pixel.
func ToRGBA(dst, frame []byte, palette Palette) {
	for i, idx := range frame {
		argb := palette[idx&0x0F]
		o := i * 4
		dst[o] = byte(argb >> 16)
		dst[o+1] = byte(argb >> 8)
		dst[o+2] = byte(argb)
		dst[o+3] = byte(argb >> 24)
	}
}

// FrameImage converts an indexed frame into an image.
func FrameImage(frame []byte, width, height int, palette Palette) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	n := min(len(frame), width*height)
	ToRGBA(img.Pix, frame[:n], palette)
	return img
}

// FrameSink keeps the latest frame as RGBA. It implements
// ula.FrameProvider and is safe to read from another goroutine.
type FrameSink struct {
	width   int
	height  int
	palette Palette

	mu     sync.RWMutex
	pixels []byte
	frames uint64
	notify chan struct{}
}

func NewFrameSink(width, height int, palette Palette) *FrameSink {
	return &FrameSink{
		width:   width,
		height:  height,
		palette: palette,
		pixels:  make([]byte, width*height*4),
		notify:  make(chan struct{}, 1),
	}
}

func (s *FrameSink) DisplayFrame(frame []byte) {
	s.mu.Lock()
	ToRGBA(s.pixels, frame[:min(len(frame), s.width*s.height)], s.palette)
	s.frames++
	s.mu.Unlock()
	select {
	case s.notify <- struct{}{}:
	default:
	}
}

func (s *FrameSink) Width() int  { return s.width }
func (s *FrameSink) Height() int { return s.height }

func (s *FrameSink) Frames() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.frames
}

// Updated signals, without blocking the emulation, that a frame arrived.
func (s *FrameSink) Updated() <-chan struct{} { return s.notify }

// CopyPixels copies the RGBA frame into dst.
func (s *FrameSink) CopyPixels(dst []byte) {
	s.mu.RLock()
	copy(dst, s.pixels)
	s.mu.RUnlock()
}

// Snapshot returns the frame as an image.
func (s *FrameSink) Snapshot() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, s.width, s.height))
	s.CopyPixels(img.Pix)
	return img
}
