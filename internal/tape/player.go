package tape

// maxFlowSteps bounds the blocks visited while looking for the next one to
// play, so a jump cycle without signal cannot hang the player.
const maxFlowSteps = 1 << 20

// Player plays a sequence of parsed blocks one after the other. It follows
// jumps, loops and call sequences. Non-playable blocks are skipped; a zero
// length pause, or a stop block on a 48K machine, stops the tape.
type Player struct {
	// Is48K makes stop-if-48K blocks stop the tape.
	Is48K bool

	blocks  []Block
	index   int
	next    int
	current BlockPlayer
	phase   PlayPhase

	loopStart int
	loopCount int
	calls     []callFrame

	// lowLevel inverts the block started after a low signal level block.
	lowLevel bool
	inverted bool
}

func NewPlayer(blocks []Block) *Player {
	return &Player{blocks: blocks}
}

func (p *Player) Blocks() []Block { return p.blocks }

func (p *Player) CurrentBlockIndex() int { return p.index }

func (p *Player) Phase() PlayPhase { return p.phase }

// Eof reports that every playable block has been played.
func (p *Player) Eof() bool {
	return p.phase == PhaseCompleted
}

func (p *Player) InitPlay(startTact uint64) {
	p.index = -1
	p.next = 0
	p.phase = PhaseNone
	p.loopCount = 0
	p.calls = p.calls[:0]
	p.lowLevel = false
	p.startNext(startTact)
}

func (p *Player) GetEarBit(currentTact uint64) bool {
	if p.current == nil {
		p.phase = PhaseCompleted
		return true
	}
	bit := p.current.GetEarBit(currentTact)
	if p.inverted {
		bit = !bit
	}
	p.phase = p.current.Phase()
	if p.phase == PhaseCompleted {
		p.startNext(currentTact)
	}
	return bit
}

func (p *Player) stop() {
	p.current = nil
	p.index = len(p.blocks)
	p.phase = PhaseCompleted
}

// startNext moves to the next block with a signal and starts it at tact.
func (p *Player) startNext(tact uint64) {
	p.current = nil
	for range maxFlowSteps {
		i := p.next
		if i < 0 || i >= len(p.blocks) {
			break
		}
		p.index = i
		p.next = i + 1

		switch b := p.blocks[i].(type) {
		case *PauseBlock:
			if b.Duration == 0 {
				p.stop()
				return
			}
		case *StopIf48Block:
			if p.Is48K {
				p.stop()
				return
			}
			continue
		case *JumpBlock:
			if b.Offset != 0 {
				p.next = i + int(b.Offset)
			}
			continue
		case *LoopStartBlock:
			p.loopStart = i + 1
			p.loopCount = int(b.Repetitions)
			continue
		case *LoopEndBlock:
			if p.loopCount > 1 {
				p.loopCount--
				p.next = p.loopStart
			}
			continue
		case *CallSequenceBlock:
			if len(b.Offsets) > 0 {
				p.calls = append(p.calls, callFrame{block: i})
				p.next = i + int(b.Offsets[0])
			}
			continue
		case *ReturnBlock:
			p.returnFromCall()
			continue
		case *SignalLevelBlock:
			p.lowLevel = !b.High
			continue
		}

		player := p.blocks[i].Player()
		if player == nil {
			continue
		}
		player.InitPlay(tact)
		if player.Phase() == PhaseCompleted {
			continue
		}
		p.current = player
		p.inverted = p.lowLevel
		p.lowLevel = false
		p.phase = player.Phase()
		return
	}
	p.stop()
}

// returnFromCall continues with the next sequence of the innermost call, or
// after the call block when all its sequences have been played.
func (p *Player) returnFromCall() {
	n := len(p.calls)
	if n == 0 {
		return
	}
	frame := &p.calls[n-1]
	call := p.blocks[frame.block].(*CallSequenceBlock)
	frame.pos++
	if frame.pos < len(call.Offsets) {
		p.next = frame.block + int(call.Offsets[frame.pos])
		return
	}
	p.next = frame.block + 1
	p.calls = p.calls[:n-1]
}
