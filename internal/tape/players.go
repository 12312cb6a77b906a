package tape

type dataTiming struct {
	PilotPulse   int
	PilotCount   int
	Sync1        int
	Sync2        int
	Bit0         int
	Bit1         int
	LastByteBits int
	TermSync     int
	PauseAfter   uint16

	// derivePilot picks the pilot length from the flag byte like the ROM
	// SAVE routine does.
	derivePilot bool
	dataOnly    bool
}

// dataPlayer plays pilot, sync, data bits, the terminating sync and the
// pause of a data-carrying block. Every bit is two equal pulses, low first.
type dataPlayer struct {
	data   []byte
	timing dataTiming

	phase      PlayPhase
	startTact  uint64
	pilotEnds  int64
	sync1Ends  int64
	sync2Ends  int64
	bitStarts  int64
	bitLength  int64
	byteIndex  int
	bitMask    byte
	termEnds   uint64
	pauseEnds  uint64
	lastBitEnd byte
}

func newDataPlayer(data []byte, timing dataTiming) *dataPlayer {
	if timing.LastByteBits <= 0 || timing.LastByteBits > 8 {
		timing.LastByteBits = 8
	}
	return &dataPlayer{data: data, timing: timing}
}

func (p *dataPlayer) Phase() PlayPhase { return p.phase }

func (p *dataPlayer) InitPlay(startTact uint64) {
	p.startTact = startTact
	p.byteIndex = 0
	p.bitMask = 0x80
	p.lastBitEnd = 0x80 >> p.timing.LastByteBits

	if len(p.data) == 0 {
		p.phase = PhaseCompleted
		return
	}

	pilotCount := p.timing.PilotCount
	if p.timing.derivePilot {
		pilotCount = DataPilotCount
		if p.data[0]&0x80 == 0 {
			pilotCount = HeaderPilotCount
		}
	}
	p.pilotEnds = int64(pilotCount * p.timing.PilotPulse)
	p.sync1Ends = p.pilotEnds + int64(p.timing.Sync1)
	p.sync2Ends = p.sync1Ends + int64(p.timing.Sync2)

	p.phase = PhasePilot
	if p.timing.dataOnly {
		p.phase = PhaseData
		p.startBit(0)
	}
}

func (p *dataPlayer) startBit(at int64) {
	p.bitStarts = at
	p.bitLength = int64(p.timing.Bit0)
	if p.data[p.byteIndex]&p.bitMask != 0 {
		p.bitLength = int64(p.timing.Bit1)
	}
}

func (p *dataPlayer) GetEarBit(currentTact uint64) bool {
	pos := int64(currentTact - p.startTact)

	switch p.phase {
	case PhasePilot, PhaseSync:
		if pos <= p.pilotEnds {
			return (pos/int64(max(p.timing.PilotPulse, 1)))%2 == 0
		}
		if pos <= p.sync1Ends {
			p.phase = PhaseSync
			return false
		}
		if pos <= p.sync2Ends {
			p.phase = PhaseSync
			return true
		}
		p.phase = PhaseData
		p.startBit(p.sync2Ends)
		fallthrough

	case PhaseData:
		bitPos := pos - p.bitStarts
		if bitPos < p.bitLength {
			return false
		}
		if bitPos < 2*p.bitLength {
			return true
		}

		p.bitMask >>= 1
		if p.bitMask == 0 {
			p.bitMask = 0x80
			p.byteIndex++
		}
		if p.byteIndex < len(p.data) && !p.lastBitsPlayed() {
			p.startBit(p.bitStarts + 2*p.bitLength)
			return false
		}

		p.phase = PhaseTermSync
		p.termEnds = currentTact + uint64(p.timing.TermSync)
		if p.timing.TermSync > 0 {
			return false
		}
		fallthrough

	case PhaseTermSync:
		if currentTact < p.termEnds {
			return false
		}
		p.phase = PhasePause
		p.pauseEnds = currentTact + TactsPerMs*uint64(p.timing.PauseAfter)
		return true

	case PhasePause:
		if currentTact > p.pauseEnds {
			p.phase = PhaseCompleted
		}
		return true
	}
	return true
}

// lastBitsPlayed reports that a partial last byte has run out of bits.
func (p *dataPlayer) lastBitsPlayed() bool {
	return p.byteIndex == len(p.data)-1 && p.lastBitEnd != 0 && p.bitMask == p.lastBitEnd
}

// pulsePlayer produces a sequence of pulses, toggling the level at every
// pulse edge. The first pulse is low and the line returns high at the end.
type pulsePlayer struct {
	pulses    []int
	phase     PlayPhase
	startTact uint64
	index     int
	pulseEnds uint64
}

func (p *pulsePlayer) Phase() PlayPhase { return p.phase }

func (p *pulsePlayer) InitPlay(startTact uint64) {
	p.startTact = startTact
	p.index = 0
	p.phase = PhaseData
	if len(p.pulses) == 0 {
		p.phase = PhaseCompleted
		return
	}
	p.pulseEnds = startTact + uint64(p.pulses[0])
}

func (p *pulsePlayer) GetEarBit(currentTact uint64) bool {
	if p.phase == PhaseCompleted {
		return true
	}
	for currentTact >= p.pulseEnds {
		p.index++
		if p.index >= len(p.pulses) {
			p.phase = PhaseCompleted
			return true
		}
		p.pulseEnds += uint64(p.pulses[p.index])
	}
	return p.index%2 != 0
}

// pausePlayer holds the EAR line high for a fixed time. A zero length
// completes at once.
type pausePlayer struct {
	length  uint64
	phase   PlayPhase
	endTact uint64
}

func (p *pausePlayer) Phase() PlayPhase { return p.phase }

func (p *pausePlayer) InitPlay(startTact uint64) {
	p.endTact = startTact + p.length
	p.phase = PhasePause
	if p.length == 0 {
		p.phase = PhaseCompleted
	}
}

func (p *pausePlayer) GetEarBit(currentTact uint64) bool {
	if currentTact >= p.endTact {
		p.phase = PhaseCompleted
	}
	return true
}
