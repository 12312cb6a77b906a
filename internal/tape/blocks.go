package tape

// PlayPhase is the part of a block a player is producing.
type PlayPhase int

const (
	PhaseNone PlayPhase = iota
	PhasePilot
	PhaseSync
	PhaseData
	PhaseTermSync
	PhasePause
	PhaseCompleted
)

func (p PlayPhase) String() string {
	switch p {
	case PhasePilot:
		return "Pilot"
	case PhaseSync:
		return "Sync"
	case PhaseData:
		return "Data"
	case PhaseTermSync:
		return "TermSync"
	case PhasePause:
		return "Pause"
	case PhaseCompleted:
		return "Completed"
	}
	return "None"
}

// BlockPlayer turns a tape block into EAR levels over CPU tacts.
type BlockPlayer interface {
	InitPlay(startTact uint64)
	GetEarBit(currentTact uint64) bool
	Phase() PlayPhase
}

// Block is a parsed TZX block. Playable blocks also return a player.
type Block interface {
	ID() byte
	Player() BlockPlayer
}

// Standard ROM timing in tacts.
const (
	PilotPulse       = 2168
	HeaderPilotCount = 8063
	DataPilotCount   = 3223
	Sync1Pulse       = 667
	Sync2Pulse       = 735
	Bit0Pulse        = 855
	Bit1Pulse        = 1710
	TermSyncPulse    = 947

	// TactsPerMs is one millisecond at 3.5 MHz.
	TactsPerMs = 3500

	DefaultPause = 1000
)

// StandardSpeedBlock is TZX block 10h, and every block of a TAP file.
type StandardSpeedBlock struct {
	PauseAfter uint16
	Data       []byte
}

func (b *StandardSpeedBlock) ID() byte { return 0x10 }

func (b *StandardSpeedBlock) Player() BlockPlayer {
	return newDataPlayer(b.Data, dataTiming{
		PilotPulse:   PilotPulse,
		derivePilot:  true,
		Sync1:        Sync1Pulse,
		Sync2:        Sync2Pulse,
		Bit0:         Bit0Pulse,
		Bit1:         Bit1Pulse,
		LastByteBits: 8,
		TermSync:     TermSyncPulse,
		PauseAfter:   b.PauseAfter,
	})
}

// TurboSpeedBlock is TZX block 11h.
type TurboSpeedBlock struct {
	PilotPulse   uint16
	Sync1        uint16
	Sync2        uint16
	Bit0         uint16
	Bit1         uint16
	PilotCount   uint16
	LastByteBits byte
	PauseAfter   uint16
	Data         []byte
}

func (b *TurboSpeedBlock) ID() byte { return 0x11 }

func (b *TurboSpeedBlock) Player() BlockPlayer {
	return newDataPlayer(b.Data, dataTiming{
		PilotPulse:   int(b.PilotPulse),
		PilotCount:   int(b.PilotCount),
		Sync1:        int(b.Sync1),
		Sync2:        int(b.Sync2),
		Bit0:         int(b.Bit0),
		Bit1:         int(b.Bit1),
		LastByteBits: int(b.LastByteBits),
		PauseAfter:   b.PauseAfter,
	})
}

// PureToneBlock is TZX block 12h.
type PureToneBlock struct {
	PulseLength uint16
	PulseCount  uint16
}

func (b *PureToneBlock) ID() byte { return 0x12 }

func (b *PureToneBlock) Player() BlockPlayer {
	pulses := make([]int, b.PulseCount)
	for i := range pulses {
		pulses[i] = int(b.PulseLength)
	}
	return &pulsePlayer{pulses: pulses}
}

// PulseSequenceBlock is TZX block 13h.
type PulseSequenceBlock struct {
	Pulses []uint16
}

func (b *PulseSequenceBlock) ID() byte { return 0x13 }

func (b *PulseSequenceBlock) Player() BlockPlayer {
	pulses := make([]int, len(b.Pulses))
	for i, p := range b.Pulses {
		pulses[i] = int(p)
	}
	return &pulsePlayer{pulses: pulses}
}

// PureDataBlock is TZX block 14h: data bits without pilot or sync.
type PureDataBlock struct {
	Bit0         uint16
	Bit1         uint16
	LastByteBits byte
	PauseAfter   uint16
	Data         []byte
}

func (b *PureDataBlock) ID() byte { return 0x14 }

func (b *PureDataBlock) Player() BlockPlayer {
	return newDataPlayer(b.Data, dataTiming{
		Bit0:         int(b.Bit0),
		Bit1:         int(b.Bit1),
		LastByteBits: int(b.LastByteBits),
		PauseAfter:   b.PauseAfter,
		dataOnly:     true,
	})
}

// PauseBlock is TZX block 20h. A zero duration stops the tape.
type PauseBlock struct {
	Duration uint16
}

func (b *PauseBlock) ID() byte { return 0x20 }

func (b *PauseBlock) Player() BlockPlayer {
	return &pausePlayer{length: uint64(b.Duration) * TactsPerMs}
}

// InfoBlock is any block that carries no signal (group markers, texts,
// archive info, glue). Only the ID and the raw body are kept.
type InfoBlock struct {
	BlockID byte
	Body    []byte
}

func (b *InfoBlock) ID() byte            { return b.BlockID }
func (b *InfoBlock) Player() BlockPlayer { return nil }

// DataOf returns the data bytes of a block that carries them.
func DataOf(b Block) ([]byte, bool) {
	switch blk := b.(type) {
	case *StandardSpeedBlock:
		return blk.Data, true
	case *TurboSpeedBlock:
		return blk.Data, true
	case *PureDataBlock:
		return blk.Data, true
	}
	return nil, false
}
