package tape

import (
	"bytes"
	"compress/zlib"
	"errors"
	"testing"
)

func tzxImage(blocks ...[]byte) []byte {
	img := append([]byte("ZXTape!\x1A"), 1, 20)
	for _, b := range blocks {
		img = append(img, b...)
	}
	return img
}

func TestReadTZXBlocks(t *testing.T) {
	img := tzxImage(
		[]byte{0x30, 3, 'a', 'b', 'c'},
		[]byte{0x10, 0xE8, 0x03, 0x03, 0x00, 0xFF, 0x01, 0xFE},
		[]byte{0x12, 0x78, 0x08, 0x10, 0x00},
		[]byte{0x13, 0x02, 0x9B, 0x02, 0xDF, 0x02},
		[]byte{0x11, 0x78, 0x08, 0x9B, 0x02, 0xDF, 0x02, 0x57, 0x03, 0xAE, 0x06, 0x7F, 0x0C, 0x06, 0x00, 0x00, 0x02, 0x00, 0x00, 0xAA, 0x55},
		[]byte{0x14, 0x57, 0x03, 0xAE, 0x06, 0x08, 0x64, 0x00, 0x01, 0x00, 0x00, 0x42},
		[]byte{0x21, 0x02, 'g', '1'},
		[]byte{0x22},
		[]byte{0x20, 0x00, 0x00},
		[]byte{0x5A, 'X', 'T', 'a', 'p', 'e', '!', 0x1A, 1, 20},
	)

	blocks, err := ReadTZX(img)
	if err != nil {
		t.Fatalf("ReadTZX: %v", err)
	}
	wantIDs := []byte{0x30, 0x10, 0x12, 0x13, 0x11, 0x14, 0x21, 0x22, 0x20, 0x5A}
	if len(blocks) != len(wantIDs) {
		t.Fatalf("got %d blocks, want %d", len(blocks), len(wantIDs))
	}
	for i, id := range wantIDs {
		if blocks[i].ID() != id {
			t.Errorf("block %d ID = %02X, want %02X", i, blocks[i].ID(), id)
		}
	}

	std := blocks[1].(*StandardSpeedBlock)
	if std.PauseAfter != 1000 || !bytes.Equal(std.Data, []byte{0xFF, 0x01, 0xFE}) {
		t.Errorf("standard block = %+v", std)
	}
	tone := blocks[2].(*PureToneBlock)
	if tone.PulseLength != 2168 || tone.PulseCount != 16 {
		t.Errorf("pure tone = %+v", tone)
	}
	seq := blocks[3].(*PulseSequenceBlock)
	if len(seq.Pulses) != 2 || seq.Pulses[0] != 667 || seq.Pulses[1] != 735 {
		t.Errorf("pulse sequence = %+v", seq)
	}
	turbo := blocks[4].(*TurboSpeedBlock)
	if turbo.PilotCount != 3199 || turbo.LastByteBits != 6 || !bytes.Equal(turbo.Data, []byte{0xAA, 0x55}) {
		t.Errorf("turbo = %+v", turbo)
	}
	pure := blocks[5].(*PureDataBlock)
	if pure.PauseAfter != 100 || len(pure.Data) != 1 {
		t.Errorf("pure data = %+v", pure)
	}
	if blocks[0].Player() != nil {
		t.Errorf("text block should not be playable")
	}
}

func TestReadTZXErrors(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"bad header", []byte("NOTATAPE!!")},
		{"bad version", append([]byte("ZXTape!\x1A"), 2, 0)},
		{"unknown block without length", tzxImage([]byte{0x99})},
		{"unknown CSW compression", tzxImage([]byte{0x18, 0x0B, 0, 0, 0, 0, 0, 0xB8, 0x88, 0x00, 0x03, 1, 0, 0, 0, 0x0A})},
		{"truncated signal level", tzxImage([]byte{0x2B, 0, 0, 0, 0})},
		{"truncated block", tzxImage([]byte{0x10, 0x00, 0x00, 0x05, 0x00, 0x01})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadTZX(tt.data)
			var fe *FormatError
			if !errors.As(err, &fe) {
				t.Fatalf("error = %v, want *FormatError", err)
			}
		})
	}
}

func TestReadTAP(t *testing.T) {
	data := []byte{
		0x03, 0x00, 0x00, 0x11, 0x22,
		0x02, 0x00, 0xFF, 0x33,
	}
	blocks, err := ReadTAP(data)
	if err != nil {
		t.Fatalf("ReadTAP: %v", err)
	}
	if len(blocks) != 2 {
		t.Fatalf("got %d blocks, want 2", len(blocks))
	}
	b := blocks[1].(*StandardSpeedBlock)
	if b.PauseAfter != DefaultPause || !bytes.Equal(b.Data, []byte{0xFF, 0x33}) {
		t.Fatalf("block 1 = %+v", b)
	}

	if _, err := ReadTAP([]byte{0x05, 0x00, 0x01}); err == nil {
		t.Fatalf("truncated TAP should fail")
	}
}

func TestReadContentDetectsFormat(t *testing.T) {
	blocks, err := ReadContent(bytes.NewReader(tzxImage([]byte{0x10, 0, 0, 1, 0, 0xFF})), 3_500_000)
	if err != nil || len(blocks) != 1 {
		t.Fatalf("TZX content: %v, %d blocks", err, len(blocks))
	}
	blocks, err = ReadContent(bytes.NewReader([]byte{0x01, 0x00, 0xFF}), 3_500_000)
	if err != nil || len(blocks) != 1 {
		t.Fatalf("TAP content: %v, %d blocks", err, len(blocks))
	}
}

func TestTzxWriterRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	tw, err := NewTzxWriter(&buf)
	if err != nil {
		t.Fatalf("NewTzxWriter: %v", err)
	}
	in := []StandardSpeedBlock{
		{PauseAfter: 1000, Data: []byte{0x00, 0x03, 'T', 'E', 'S', 'T'}},
		{PauseAfter: 0, Data: []byte{0xFF, 0x01, 0x02, 0x03}},
	}
	for i := range in {
		if err := tw.WriteBlock(&in[i]); err != nil {
			t.Fatalf("WriteBlock: %v", err)
		}
	}

	blocks, err := ReadTZX(buf.Bytes())
	if err != nil {
		t.Fatalf("ReadTZX: %v", err)
	}
	if len(blocks) != len(in) {
		t.Fatalf("got %d blocks, want %d", len(blocks), len(in))
	}
	for i, b := range blocks {
		got := b.(*StandardSpeedBlock)
		if got.PauseAfter != in[i].PauseAfter || !bytes.Equal(got.Data, in[i].Data) {
			t.Errorf("block %d = %+v, want %+v", i, got, in[i])
		}
	}
}

func TestReadTZXFlowAndRecordingBlocks(t *testing.T) {
	img := tzxImage(
		[]byte{0x15, 0x4F, 0x00, 0x00, 0x00, 0x04, 0x01, 0x00, 0x00, 0xA0},
		[]byte{0x16, 0x03, 0x00, 0x00, 0x00, 0x01, 0x02, 0x03},
		[]byte{0x23, 0xFE, 0xFF},
		[]byte{0x24, 0x05, 0x00},
		[]byte{0x25},
		[]byte{0x26, 0x02, 0x00, 0x03, 0x00, 0x05, 0x00},
		[]byte{0x27},
		[]byte{0x28, 0x06, 0x00, 0x01, 0x02, 0x00, 0x02, 'G', 'O'},
		[]byte{0x2A, 0x00, 0x00, 0x00, 0x00},
		[]byte{0x2B, 0x01, 0x00, 0x00, 0x00, 0x01},
		[]byte{0x99, 0x02, 0x00, 0x00, 0x00, 0xAB, 0xCD},
		[]byte{0x10, 0x00, 0x00, 0x01, 0x00, 0xFF},
	)
	blocks, err := ReadTZX(img)
	if err != nil {
		t.Fatalf("ReadTZX: %v", err)
	}
	wantIDs := []byte{0x15, 0x16, 0x23, 0x24, 0x25, 0x26, 0x27, 0x28, 0x2A, 0x2B, 0x99, 0x10}
	if len(blocks) != len(wantIDs) {
		t.Fatalf("got %d blocks, want %d", len(blocks), len(wantIDs))
	}
	for i, id := range wantIDs {
		if blocks[i].ID() != id {
			t.Errorf("block %d ID = %02X, want %02X", i, blocks[i].ID(), id)
		}
	}

	direct := blocks[0].(*DirectRecordingBlock)
	if direct.TactsPerSample != 79 || direct.LastByteBits != 4 || !bytes.Equal(direct.Data, []byte{0xA0}) {
		t.Errorf("direct recording = %+v", direct)
	}
	if skipped := blocks[1].(*InfoBlock); !bytes.Equal(skipped.Body, []byte{1, 2, 3}) {
		t.Errorf("C64 block body = % X", skipped.Body)
	}
	if jump := blocks[2].(*JumpBlock); jump.Offset != -2 {
		t.Errorf("jump offset = %d", jump.Offset)
	}
	if loop := blocks[3].(*LoopStartBlock); loop.Repetitions != 5 {
		t.Errorf("loop repetitions = %d", loop.Repetitions)
	}
	if call := blocks[5].(*CallSequenceBlock); len(call.Offsets) != 2 || call.Offsets[0] != 3 || call.Offsets[1] != 5 {
		t.Errorf("call offsets = %v", call.Offsets)
	}
	sel := blocks[7].(*SelectBlock)
	if len(sel.Choices) != 1 || sel.Choices[0].Offset != 2 || sel.Choices[0].Text != "GO" {
		t.Errorf("select = %+v", sel)
	}
	if level := blocks[9].(*SignalLevelBlock); !level.High {
		t.Errorf("signal level should be high")
	}
	if unknown := blocks[10].(*InfoBlock); !bytes.Equal(unknown.Body, []byte{0xAB, 0xCD}) {
		t.Errorf("unknown block body = % X", unknown.Body)
	}

	pulses := collectPulses(direct.Player(), 0, 10_000)
	want := []tapePulse{{true, 79}, {false, 79}, {true, 79}, {false, 79}}
	if len(pulses) < len(want) {
		t.Fatalf("direct recording pulses = %v", pulses)
	}
	for i, w := range want {
		if pulses[i] != w {
			t.Fatalf("direct recording pulse %d = %+v, want %+v", i, pulses[i], w)
		}
	}
}

func cswBlock(compression byte, data []byte) []byte {
	length := 10 + len(data)
	b := []byte{0x18, byte(length), byte(length >> 8), 0, 0,
		0x00, 0x00, // pause
		0xB8, 0x88, 0x00, // 35000 Hz
		compression,
		0x03, 0x00, 0x00, 0x00,
	}
	return append(b, data...)
}

func TestReadTZXCSWRecording(t *testing.T) {
	rle := []byte{10, 20, 0x00, 30, 0, 0, 0}
	var z bytes.Buffer
	zw := zlib.NewWriter(&z)
	zw.Write(rle)
	zw.Close()

	blocks, err := ReadTZX(tzxImage(cswBlock(CSWRunLength, rle), cswBlock(CSWZRunLength, z.Bytes())))
	if err != nil {
		t.Fatalf("ReadTZX: %v", err)
	}
	for i, b := range blocks {
		csw := b.(*CSWRecordingBlock)
		if csw.SampleRate != 35000 || len(csw.Pulses) != 3 || csw.Pulses[0] != 10 || csw.Pulses[1] != 20 || csw.Pulses[2] != 30 {
			t.Fatalf("block %d = %+v", i, csw)
		}
		pulses := collectPulses(csw.Player(), 0, 100_000)
		want := []tapePulse{{false, 1000}, {true, 2000}, {false, 3000}}
		if len(pulses) < len(want) {
			t.Fatalf("block %d pulses = %v", i, pulses)
		}
		for j, w := range want {
			if pulses[j] != w {
				t.Fatalf("block %d pulse %d = %+v, want %+v", i, j, pulses[j], w)
			}
		}
	}
}

func TestReadTZXGeneralizedData(t *testing.T) {
	body := []byte{
		0x00, 0x00, // pause
		0x01, 0x00, 0x00, 0x00, 0x02, 0x01, // TOTP 1, NPP 2, ASP 1
		0x04, 0x00, 0x00, 0x00, 0x02, 0x02, // TOTD 4, NPD 2, ASD 2
		0x00, 0xF4, 0x01, 0xF4, 0x01, // pilot symbol: 500, 500
		0x00, 0x02, 0x00, // pilot symbol 0 twice
		0x00, 0x2C, 0x01, 0x2C, 0x01, // data symbol 0: 300, 300
		0x00, 0x58, 0x02, 0x58, 0x02, // data symbol 1: 600, 600
		0xB0, // 1 0 1 1
	}
	block := append([]byte{0x19, byte(len(body)), 0, 0, 0}, body...)
	blocks, err := ReadTZX(tzxImage(block))
	if err != nil {
		t.Fatalf("ReadTZX: %v", err)
	}
	g := blocks[0].(*GeneralizedDataBlock)
	for n, want := range []int{1, 0, 1, 1} {
		if got := g.DataSymbol(n); got != want {
			t.Fatalf("symbol %d = %d, want %d", n, got, want)
		}
	}

	pulses := collectPulses(g.Player(), 0, 100_000)
	want := []int{500, 500, 500, 500, 600, 600, 300, 300, 600, 600, 600}
	if len(pulses) < len(want) {
		t.Fatalf("pulses = %v", pulses)
	}
	for i, w := range want {
		if pulses[i].length != w || pulses[i].high != (i%2 == 1) {
			t.Fatalf("pulse %d = %+v, want length %d", i, pulses[i], w)
		}
	}
}

func lowPulses(pulses []tapePulse) []int {
	var lows []int
	for _, p := range pulses {
		if !p.high {
			lows = append(lows, p.length)
		}
	}
	return lows
}

func TestTZXLoopPlaysRepetitions(t *testing.T) {
	blocks, err := ReadTZX(tzxImage(
		[]byte{0x24, 0x03, 0x00},
		[]byte{0x12, 0x64, 0x00, 0x02, 0x00},
		[]byte{0x13, 0x01, 0x32, 0x00},
		[]byte{0x25},
	))
	if err != nil {
		t.Fatalf("ReadTZX: %v", err)
	}
	p := NewPlayer(blocks)
	pulses := collectPulses(p, 0, 100_000)
	if !p.Eof() {
		t.Fatalf("loop did not end")
	}
	// Every block after the first starts one tact after the previous ends.
	lows := lowPulses(pulses)
	want := []int{100, 49, 99, 49, 99, 49}
	if len(lows) != len(want) {
		t.Fatalf("low pulses = %v, want %v", lows, want)
	}
	for i := range want {
		if lows[i] != want[i] {
			t.Fatalf("low pulses = %v, want %v", lows, want)
		}
	}
}

func TestTZXStopIf48AndSignalLevel(t *testing.T) {
	img := tzxImage(
		[]byte{0x12, 0x64, 0x00, 0x02, 0x00},
		[]byte{0x2B, 0x01, 0x00, 0x00, 0x00, 0x00},
		[]byte{0x12, 0x3C, 0x00, 0x02, 0x00},
		[]byte{0x2A, 0x00, 0x00, 0x00, 0x00},
		[]byte{0x12, 0x64, 0x00, 0x02, 0x00},
	)
	blocks, err := ReadTZX(img)
	if err != nil {
		t.Fatalf("ReadTZX: %v", err)
	}

	p := NewPlayer(blocks)
	p.Is48K = true
	pulses := collectPulses(p, 0, 100_000)
	want := []tapePulse{{false, 100}, {true, 160}, {false, 61}}
	if len(pulses) != len(want) {
		t.Fatalf("48K pulses = %v, want %v", pulses, want)
	}
	for i, w := range want {
		if pulses[i] != w {
			t.Fatalf("48K pulse %d = %+v, want %+v", i, pulses[i], w)
		}
	}
	if !p.Eof() || p.CurrentBlockIndex() != len(blocks) {
		t.Fatalf("48K tape should stop at block 2Ah, index %d", p.CurrentBlockIndex())
	}

	p = NewPlayer(blocks)
	pulses = collectPulses(p, 0, 100_000)
	want = []tapePulse{{false, 100}, {true, 160}, {false, 160}, {true, 101}}
	if len(pulses) != len(want) {
		t.Fatalf("128K pulses = %v, want %v", pulses, want)
	}
	for i, w := range want {
		if pulses[i] != w {
			t.Fatalf("128K pulse %d = %+v, want %+v", i, pulses[i], w)
		}
	}
}
