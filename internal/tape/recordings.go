package tape

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"fmt"
	"io"
	"math/bits"
)

// tzxClockHz is the clock TZX timings are given in.
const tzxClockHz = 3_500_000

// maxUncodedSymbols bounds a data stream that takes no bits of the file.
const maxUncodedSymbols = 0xFFFF

// segment is a stretch of constant EAR level.
type segment struct {
	high   bool
	length uint64
}

// segmentBuilder collects the levels of a block. The line idles high, so an
// edge from the idle state starts a low pulse.
type segmentBuilder struct {
	segments []segment
	level    bool
	pauseAt  int
}

func newSegmentBuilder() *segmentBuilder {
	return &segmentBuilder{level: true, pauseAt: -1}
}

// add appends length tacts at the given level, merging with the previous
// stretch when the level does not change.
func (b *segmentBuilder) add(high bool, length uint64) {
	b.level = high
	if length == 0 {
		return
	}
	if n := len(b.segments); n > 0 && b.segments[n-1].high == high && b.pauseAt < 0 {
		b.segments[n-1].length += length
		return
	}
	b.segments = append(b.segments, segment{high: high, length: length})
}

// pulse toggles the level and holds it for length tacts.
func (b *segmentBuilder) pulse(length uint64) {
	b.add(!b.level, length)
}

func (b *segmentBuilder) pause(ms uint16) {
	if ms == 0 {
		return
	}
	b.pauseAt = len(b.segments)
	b.segments = append(b.segments, segment{high: true, length: uint64(ms) * TactsPerMs})
}

func (b *segmentBuilder) player() *segmentPlayer {
	return &segmentPlayer{segments: b.segments, pauseAt: b.pauseAt}
}

// segmentPlayer plays a precomputed list of levels.
type segmentPlayer struct {
	segments []segment
	pauseAt  int

	phase PlayPhase
	index int
	ends  uint64
}

func (p *segmentPlayer) Phase() PlayPhase { return p.phase }

func (p *segmentPlayer) InitPlay(startTact uint64) {
	p.index = 0
	if len(p.segments) == 0 {
		p.phase = PhaseCompleted
		return
	}
	p.phase = PhaseData
	if p.pauseAt == 0 {
		p.phase = PhasePause
	}
	p.ends = startTact + p.segments[0].length
}

func (p *segmentPlayer) GetEarBit(currentTact uint64) bool {
	if p.phase == PhaseCompleted {
		return true
	}
	for currentTact >= p.ends {
		p.index++
		if p.index >= len(p.segments) {
			p.phase = PhaseCompleted
			return true
		}
		if p.index == p.pauseAt {
			p.phase = PhasePause
		}
		p.ends += p.segments[p.index].length
	}
	return p.segments[p.index].high
}

// DirectRecordingBlock is TZX block 15h: one bit per sample, 1 is high.
type DirectRecordingBlock struct {
	TactsPerSample uint16
	PauseAfter     uint16
	LastByteBits   byte
	Data           []byte

	levels *segmentBuilder
}

func (b *DirectRecordingBlock) ID() byte { return 0x15 }

func (b *DirectRecordingBlock) Player() BlockPlayer {
	if b.levels == nil {
		sb := newSegmentBuilder()
		last := int(b.LastByteBits)
		if last <= 0 || last > 8 {
			last = 8
		}
		for i, v := range b.Data {
			n := 8
			if i == len(b.Data)-1 {
				n = last
			}
			for j := range n {
				sb.add(v&(0x80>>j) != 0, uint64(b.TactsPerSample))
			}
		}
		sb.pause(b.PauseAfter)
		b.levels = sb
	}
	return b.levels.player()
}

// CSW compression types.
const (
	CSWRunLength  = 1
	CSWZRunLength = 2
)

// CSWRecordingBlock is TZX block 18h. Pulses holds the decoded pulse
// lengths in samples.
type CSWRecordingBlock struct {
	PauseAfter  uint16
	SampleRate  int
	Compression byte
	PulseCount  uint32
	Data        []byte
	Pulses      []uint32

	levels *segmentBuilder
}

func (b *CSWRecordingBlock) ID() byte { return 0x18 }

func (b *CSWRecordingBlock) Player() BlockPlayer {
	if b.levels == nil {
		sb := newSegmentBuilder()
		if b.SampleRate > 0 {
			// Cumulative conversion keeps rounding errors from adding up.
			var samples, tacts uint64
			for _, n := range b.Pulses {
				samples += uint64(n)
				end := samples * tzxClockHz / uint64(b.SampleRate)
				sb.pulse(end - tacts)
				tacts = end
			}
		}
		sb.pause(b.PauseAfter)
		b.levels = sb
	}
	return b.levels.player()
}

// decodeCSW expands CSW run lengths. A zero byte is followed by a 32-bit
// run length.
func decodeCSW(compression byte, data []byte) ([]uint32, error) {
	switch compression {
	case CSWRunLength:
	case CSWZRunLength:
		zr, err := zlib.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("inflate CSW data: %w", err)
		}
		defer zr.Close()
		if data, err = io.ReadAll(zr); err != nil {
			return nil, fmt.Errorf("inflate CSW data: %w", err)
		}
	default:
		return nil, fmt.Errorf("unknown CSW compression %d", compression)
	}

	var pulses []uint32
	for i := 0; i < len(data); {
		if data[i] != 0 {
			pulses = append(pulses, uint32(data[i]))
			i++
			continue
		}
		if len(data) < i+5 {
			return nil, errTruncated
		}
		pulses = append(pulses, binary.LittleEndian.Uint32(data[i+1:]))
		i += 5
	}
	return pulses, nil
}

// Symbol edge types of a generalized data block.
const (
	SymbolEdge = iota
	SymbolKeep
	SymbolLow
	SymbolHigh
)

// Symbol is one entry of a generalized data block alphabet. A zero pulse
// ends the symbol early.
type Symbol struct {
	Flags  byte
	Pulses []uint16
}

// SymbolRun plays Symbol Repeat times.
type SymbolRun struct {
	Symbol byte
	Repeat uint16
}

// GeneralizedDataBlock is TZX block 19h.
type GeneralizedDataBlock struct {
	PauseAfter  uint16
	PilotTable  []Symbol
	Pilot       []SymbolRun
	DataTable   []Symbol
	DataSymbols uint32
	Data        []byte

	levels *segmentBuilder
}

func (b *GeneralizedDataBlock) ID() byte { return 0x19 }

// symbolBits is the width of a data symbol in the data stream.
func (b *GeneralizedDataBlock) symbolBits() int {
	if len(b.DataTable) <= 1 {
		return 0
	}
	return bits.Len(uint(len(b.DataTable) - 1))
}

// DataSymbol returns the index of the n-th symbol of the data stream.
func (b *GeneralizedDataBlock) DataSymbol(n int) int {
	width := b.symbolBits()
	sym := 0
	for i := range width {
		pos := n*width + i
		bit := b.Data[pos/8] >> (7 - pos%8) & 1
		sym = sym<<1 | int(bit)
	}
	return sym
}

func (b *GeneralizedDataBlock) Player() BlockPlayer {
	if b.levels == nil {
		sb := newSegmentBuilder()
		for _, run := range b.Pilot {
			if int(run.Symbol) >= len(b.PilotTable) {
				continue
			}
			for range run.Repeat {
				playSymbol(sb, b.PilotTable[run.Symbol])
			}
		}
		for n := range int(b.DataSymbols) {
			if sym := b.DataSymbol(n); sym < len(b.DataTable) {
				playSymbol(sb, b.DataTable[sym])
			}
		}
		sb.pause(b.PauseAfter)
		b.levels = sb
	}
	return b.levels.player()
}

func playSymbol(sb *segmentBuilder, s Symbol) {
	for i, length := range s.Pulses {
		if length == 0 {
			return
		}
		if i > 0 {
			sb.pulse(uint64(length))
			continue
		}
		switch s.Flags & 0x03 {
		case SymbolEdge:
			sb.pulse(uint64(length))
		case SymbolKeep:
			sb.add(sb.level, uint64(length))
		case SymbolLow:
			sb.add(false, uint64(length))
		case SymbolHigh:
			sb.add(true, uint64(length))
		}
	}
}

func readSymbols(c *byteCursor, count, pulses int) []Symbol {
	table := make([]Symbol, count)
	for i := range table {
		table[i].Flags = c.u8()
		table[i].Pulses = make([]uint16, pulses)
		for j := range table[i].Pulses {
			table[i].Pulses[j] = c.u16()
		}
	}
	return table
}

func readGeneralized(body []byte) (*GeneralizedDataBlock, error) {
	c := &byteCursor{data: body}
	b := &GeneralizedDataBlock{PauseAfter: c.u16()}
	totp := c.u32()
	npp := int(c.u8())
	asp := int(c.u8())
	b.DataSymbols = c.u32()
	npd := int(c.u8())
	asd := int(c.u8())
	if asp == 0 {
		asp = 256
	}
	if asd == 0 {
		asd = 256
	}
	if c.err != nil {
		return nil, c.err
	}

	if totp > 0 {
		b.PilotTable = readSymbols(c, asp, npp)
		if c.err != nil {
			return nil, c.err
		}
		if uint64(totp)*3 > uint64(c.remaining()) {
			return nil, errTruncated
		}
		b.Pilot = make([]SymbolRun, totp)
		for i := range b.Pilot {
			b.Pilot[i] = SymbolRun{Symbol: c.u8(), Repeat: c.u16()}
		}
	}
	if b.DataSymbols > 0 {
		b.DataTable = readSymbols(c, asd, npd)
		width := uint64(b.symbolBits())
		if width == 0 && b.DataSymbols > maxUncodedSymbols {
			return nil, fmt.Errorf("%d symbols of a one symbol alphabet", b.DataSymbols)
		}
		b.Data = c.bytesCopy(int((width*uint64(b.DataSymbols) + 7) / 8))
	}
	return b, c.err
}
