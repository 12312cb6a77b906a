package tape

import (
	"bytes"
	"testing"
)

type tapePulse struct {
	high   bool
	length int
}

// collectPulses samples p at every tact until it completes or limit tacts
// have passed.
func collectPulses(p BlockPlayer, start, limit uint64) []tapePulse {
	p.InitPlay(start)
	var pulses []tapePulse
	for tact := start; tact < start+limit && p.Phase() != PhaseCompleted; tact++ {
		bit := p.GetEarBit(tact)
		if n := len(pulses); n > 0 && pulses[n-1].high == bit {
			pulses[n-1].length++
			continue
		}
		pulses = append(pulses, tapePulse{high: bit, length: 1})
	}
	return pulses
}

// decodeStandard reads the pulses back the way the SAVE decoder does and
// returns the pilot count, the data bits and whether a terminating sync
// was seen.
func decodeStandard(t *testing.T, pulses []tapePulse) (int, []byte, bool) {
	t.Helper()
	pilot := 0
	i := 0
	for ; i < len(pulses) && ClassifyPulse(pulses[i].length) == PulsePilot; i++ {
		pilot++
	}
	if i+1 >= len(pulses) || ClassifyPulse(pulses[i].length) != PulseSync1 || ClassifyPulse(pulses[i+1].length) != PulseSync2 {
		t.Fatalf("no sync pulses after %d pilot pulses", pilot)
	}
	i += 2

	var bits []byte
	for ; i+1 < len(pulses); i += 2 {
		first := ClassifyPulse(pulses[i].length)
		if first == PulseTermSync {
			return pilot, bits, true
		}
		second := ClassifyPulse(pulses[i+1].length)
		if first != second || (first != PulseBit0 && first != PulseBit1) {
			t.Fatalf("pulse %d: bad bit pair %v/%v", i, first, second)
		}
		if first == PulseBit1 {
			bits = append(bits, 1)
		} else {
			bits = append(bits, 0)
		}
	}
	if i < len(pulses) && ClassifyPulse(pulses[i].length) == PulseTermSync {
		return pilot, bits, true
	}
	return pilot, bits, false
}

func bitsOf(data []byte, lastBits int) []byte {
	var bits []byte
	for i, b := range data {
		n := 8
		if i == len(data)-1 {
			n = lastBits
		}
		for j := range n {
			bits = append(bits, (b>>(7-j))&1)
		}
	}
	return bits
}

func TestStandardSpeedBlockPlayback(t *testing.T) {
	data := []byte{0xFF, 0x81, 0x3C, 0xC2}
	block := &StandardSpeedBlock{PauseAfter: 1, Data: data}

	player := block.Player()
	pulses := collectPulses(player, 1000, 20_000_000)
	if player.Phase() != PhaseCompleted {
		t.Fatalf("block did not complete, phase %v", player.Phase())
	}

	pilot, bits, term := decodeStandard(t, pulses)
	if pilot < DataPilotCount-1 || pilot > DataPilotCount {
		t.Fatalf("pilot pulses = %d, want about %d", pilot, DataPilotCount)
	}
	if !bytes.Equal(bits, bitsOf(data, 8)) {
		t.Fatalf("decoded bits = %v", bits)
	}
	if !term {
		t.Fatalf("no terminating sync pulse")
	}
	if last := pulses[len(pulses)-1]; !last.high || last.length < TactsPerMs {
		t.Fatalf("trailing pause = %+v", last)
	}
}

func TestStandardSpeedHeaderPilot(t *testing.T) {
	p := (&StandardSpeedBlock{Data: []byte{0x00, 0x01}}).Player().(*dataPlayer)
	p.InitPlay(0)
	if p.pilotEnds != HeaderPilotCount*PilotPulse {
		t.Fatalf("header pilot ends at %d, want %d", p.pilotEnds, HeaderPilotCount*PilotPulse)
	}
}

func TestTurboBlockLastByteBits(t *testing.T) {
	block := &TurboSpeedBlock{
		PilotPulse: 2000, Sync1: 667, Sync2: 735, Bit0: 855, Bit1: 1710,
		PilotCount: 3001, LastByteBits: 6, Data: []byte{0xAA, 0x55},
	}
	pulses := collectPulses(block.Player(), 0, 20_000_000)
	// 2000 tact pilot pulses classify as neither pilot nor sync, skip them.
	i := 0
	for ; i < len(pulses) && pulses[i].length >= 1900; i++ {
	}
	_, bits, _ := decodeStandard(t, append([]tapePulse{{length: PilotPulse}}, pulses[i:]...))
	if !bytes.Equal(bits, bitsOf(block.Data, 6)) {
		t.Fatalf("decoded bits = %v, want %v", bits, bitsOf(block.Data, 6))
	}
}

func TestPureDataBlockHasNoPilot(t *testing.T) {
	block := &PureDataBlock{Bit0: 855, Bit1: 1710, LastByteBits: 8, Data: []byte{0x80}}
	pulses := collectPulses(block.Player(), 0, 1_000_000)
	if pulses[0].high || ClassifyPulse(pulses[0].length) != PulseBit1 {
		t.Fatalf("first pulse = %+v, want low bit 1 pulse", pulses[0])
	}
}

func TestPulsePlayer(t *testing.T) {
	p := (&PulseSequenceBlock{Pulses: []uint16{100, 200, 300}}).Player()
	pulses := collectPulses(p, 50, 10_000)

	want := []tapePulse{{false, 100}, {true, 200}, {false, 300}}
	if len(pulses) < len(want) {
		t.Fatalf("pulses = %v", pulses)
	}
	for i, w := range want {
		if pulses[i] != w {
			t.Fatalf("pulse %d = %+v, want %+v", i, pulses[i], w)
		}
	}
	if p.Phase() != PhaseCompleted {
		t.Fatalf("pulse sequence did not complete")
	}

	tone := (&PureToneBlock{PulseLength: 10, PulseCount: 4}).Player()
	if got := collectPulses(tone, 0, 1000); len(got) != 4 {
		t.Fatalf("pure tone pulses = %v", got)
	}
}

func TestPlayerSequencesBlocks(t *testing.T) {
	blocks := []Block{
		&InfoBlock{BlockID: 0x30},
		&PureToneBlock{PulseLength: 100, PulseCount: 2},
		&PauseBlock{Duration: 1},
		&PauseBlock{Duration: 0},
		&StandardSpeedBlock{Data: []byte{0xFF, 0x00}},
	}
	p := NewPlayer(blocks)
	p.InitPlay(0)
	if p.CurrentBlockIndex() != 1 {
		t.Fatalf("first playable block = %d, want 1", p.CurrentBlockIndex())
	}

	tact := uint64(0)
	for ; tact < 100_000 && !p.Eof(); tact++ {
		p.GetEarBit(tact)
	}
	if !p.Eof() {
		t.Fatalf("player did not stop at the zero pause")
	}
	if tact < 200+TactsPerMs {
		t.Fatalf("stopped after %d tacts, too early", tact)
	}
	if !p.GetEarBit(tact) {
		t.Fatalf("EAR should idle high after the end of the tape")
	}
}

func TestPlayerEmptyTape(t *testing.T) {
	p := NewPlayer(nil)
	p.InitPlay(0)
	if !p.Eof() || !p.GetEarBit(10) {
		t.Fatalf("empty tape should be at EOF with EAR high")
	}
}
