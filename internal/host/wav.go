package host

import (
	"fmt"
	"io"
	"math"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// WavRecorder writes beeper output to a 16-bit mono WAV file.
type WavRecorder struct {
	w   io.WriteSeeker
	enc *wav.Encoder
	buf *audio.IntBuffer
	err error

	// Samples counts the samples written so far.
	Samples int
}

// NewWavRecorder starts a recording at sampleRate on w. Close finishes the
// header; the caller still owns w.
func NewWavRecorder(w io.WriteSeeker, sampleRate int) *WavRecorder {
	return &WavRecorder{
		w:   w,
		enc: wav.NewEncoder(w, sampleRate, 16, 1, 1),
		buf: &audio.IntBuffer{
			Format:         &audio.Format{NumChannels: 1, SampleRate: sampleRate},
			SourceBitDepth: 16,
		},
	}
}

// CreateWavRecorder records into a new file at path. Close also closes the
// file.
func CreateWavRecorder(path string, sampleRate int) (*WavRecorder, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("host: create wav: %w", err)
	}
	return NewWavRecorder(f, sampleRate), nil
}

// AddSamples implements beeper.SoundProvider. The first write error is kept
// and returned by Close.
func (r *WavRecorder) AddSamples(samples []float32) {
	if r.err != nil || len(samples) == 0 {
		return
	}
	data := r.buf.Data[:0]
	for _, s := range samples {
		s = max(-1, min(1, s))
		data = append(data, int(math.Round(float64(s)*math.MaxInt16)))
	}
	r.buf.Data = data
	if err := r.enc.Write(r.buf); err != nil {
		r.err = fmt.Errorf("host: write wav: %w", err)
		return
	}
	r.Samples += len(samples)
}

func (r *WavRecorder) Close() error {
	err := r.enc.Close()
	if c, ok := r.w.(io.Closer); ok {
		if cerr := c.Close(); err == nil {
			err = cerr
		}
	}
	if r.err != nil {
		return r.err
	}
	if err != nil {
		return fmt.Errorf("host: finish wav: %w", err)
	}
	return nil
}
