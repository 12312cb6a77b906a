package tape

// Flow control blocks carry no signal. The Player acts on them while it
// looks for the next block to play.

// JumpBlock is TZX block 23h. Offset is relative to the jump block itself.
type JumpBlock struct {
	Offset int16
}

func (b *JumpBlock) ID() byte            { return 0x23 }
func (b *JumpBlock) Player() BlockPlayer { return nil }

// LoopStartBlock is TZX block 24h. The blocks up to the next loop end are
// played Repetitions times.
type LoopStartBlock struct {
	Repetitions uint16
}

func (b *LoopStartBlock) ID() byte            { return 0x24 }
func (b *LoopStartBlock) Player() BlockPlayer { return nil }

// LoopEndBlock is TZX block 25h.
type LoopEndBlock struct{}

func (b *LoopEndBlock) ID() byte            { return 0x25 }
func (b *LoopEndBlock) Player() BlockPlayer { return nil }

// CallSequenceBlock is TZX block 26h. Each offset, relative to the call
// block, names a block sequence that ends with a return block.
type CallSequenceBlock struct {
	Offsets []int16
}

func (b *CallSequenceBlock) ID() byte            { return 0x26 }
func (b *CallSequenceBlock) Player() BlockPlayer { return nil }

// ReturnBlock is TZX block 27h.
type ReturnBlock struct{}

func (b *ReturnBlock) ID() byte            { return 0x27 }
func (b *ReturnBlock) Player() BlockPlayer { return nil }

// SelectChoice is one entry of a select block.
type SelectChoice struct {
	Offset int16
	Text   string
}

// SelectBlock is TZX block 28h. Playback does not prompt; it carries on
// with the next block.
type SelectBlock struct {
	Choices []SelectChoice
}

func (b *SelectBlock) ID() byte            { return 0x28 }
func (b *SelectBlock) Player() BlockPlayer { return nil }

// StopIf48Block is TZX block 2Ah. It stops the tape on a 48K machine.
type StopIf48Block struct{}

func (b *StopIf48Block) ID() byte            { return 0x2A }
func (b *StopIf48Block) Player() BlockPlayer { return nil }

// SignalLevelBlock is TZX block 2Bh. It sets the level the next block
// starts from.
type SignalLevelBlock struct {
	High bool
}

func (b *SignalLevelBlock) ID() byte            { return 0x2B }
func (b *SignalLevelBlock) Player() BlockPlayer { return nil }

// callFrame is an active call sequence: the call block and the position in
// its offset list.
type callFrame struct {
	block int
	pos   int
}
