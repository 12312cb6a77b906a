package tape

import (
	"bytes"
	"fmt"
	"io"

	"github.com/go-audio/wav"
)

// IsWAV reports whether data looks like a RIFF WAVE file.
func IsWAV(data []byte) bool {
	return len(data) >= 12 && string(data[0:4]) == "RIFF" && string(data[8:12]) == "WAVE"
}

// WavPlayer plays a tape recording. The first channel is sliced at the
// midpoint between its lowest and highest sample into EAR edges.
type WavPlayer struct {
	// edges holds the offsets in tacts of every level change.
	edges     []uint64
	firstHigh bool
	length    uint64

	startTact uint64
	edgeIndex int
	phase     PlayPhase
}

// NewWavPlayer decodes a WAV recording for a CPU clocked at clockHz.
func NewWavPlayer(r io.ReadSeeker, clockHz int) (*WavPlayer, error) {
	dec := wav.NewDecoder(r)
	if dec == nil || !dec.IsValidFile() {
		return nil, &FormatError{Operation: "NewWavPlayer", Details: "not a valid wav file"}
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, &FormatError{Operation: "NewWavPlayer", Details: "decoding samples", Err: err}
	}
	if dec.SampleRate == 0 || dec.NumChans == 0 {
		return nil, &FormatError{Operation: "NewWavPlayer", Details: fmt.Sprintf("%d Hz, %d channels", dec.SampleRate, dec.NumChans)}
	}

	samples := buf.AsFloat32Buffer().Data
	chans := int(dec.NumChans)
	rate := uint64(dec.SampleRate)

	lo, hi := float32(0), float32(0)
	for i := 0; i < len(samples); i += chans {
		if i == 0 || samples[i] < lo {
			lo = samples[i]
		}
		if i == 0 || samples[i] > hi {
			hi = samples[i]
		}
	}
	threshold := (lo + hi) / 2

	p := &WavPlayer{}
	level := false
	count := 0
	for i := 0; i < len(samples); i += chans {
		high := samples[i] > threshold
		if count == 0 {
			p.firstHigh = high
			level = high
		} else if high != level {
			p.edges = append(p.edges, uint64(count)*uint64(clockHz)/rate)
			level = high
		}
		count++
	}
	p.length = uint64(count) * uint64(clockHz) / rate
	return p, nil
}

// NewWavPlayerFromBytes is NewWavPlayer over an in-memory file.
func NewWavPlayerFromBytes(data []byte, clockHz int) (*WavPlayer, error) {
	return NewWavPlayer(bytes.NewReader(data), clockHz)
}

func (p *WavPlayer) Phase() PlayPhase { return p.phase }

// Edges returns the number of level changes in the recording.
func (p *WavPlayer) Edges() int { return len(p.edges) }

func (p *WavPlayer) InitPlay(startTact uint64) {
	p.startTact = startTact
	p.edgeIndex = 0
	p.phase = PhaseData
	if p.length == 0 {
		p.phase = PhaseCompleted
	}
}

func (p *WavPlayer) GetEarBit(currentTact uint64) bool {
	if p.phase == PhaseCompleted {
		return true
	}
	pos := currentTact - p.startTact
	if pos >= p.length {
		p.phase = PhaseCompleted
		return true
	}
	for p.edgeIndex < len(p.edges) && p.edges[p.edgeIndex] <= pos {
		p.edgeIndex++
	}
	// Every edge flips the level.
	return p.firstHigh == (p.edgeIndex%2 == 0)
}

// RecordingBlock carries a WAV recording as one playable block, like a TZX
// direct recording.
type RecordingBlock struct {
	Recording *WavPlayer
}

func (b *RecordingBlock) ID() byte            { return 0x15 }
func (b *RecordingBlock) Player() BlockPlayer { return b.Recording }
