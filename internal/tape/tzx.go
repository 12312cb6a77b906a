package tape

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

var tzxSignature = []byte("ZXTape!\x1A")

const (
	tzxMajorVersion = 1
	tzxMinorVersion = 20
	tzxHeaderLength = 10
)

var (
	ErrNoTape = errors.New("no tape inserted")

	errTruncated = errors.New("unexpected end of data")
)

// FormatError describes tape content that cannot be parsed.
type FormatError struct {
	Operation string
	Details   string
	Err       error
}

func (e *FormatError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("tape %s failed: %s: %v", e.Operation, e.Details, e.Err)
	}
	return fmt.Sprintf("tape %s failed: %s", e.Operation, e.Details)
}

func (e *FormatError) Unwrap() error { return e.Err }

// IsTZX reports whether data starts with the TZX signature.
func IsTZX(data []byte) bool {
	return bytes.HasPrefix(data, tzxSignature)
}

// byteCursor reads little-endian fields from a block body.
type byteCursor struct {
	data []byte
	pos  int
	err  error
}

func (c *byteCursor) remaining() int { return len(c.data) - c.pos }

func (c *byteCursor) take(n int) []byte {
	if c.err != nil {
		return nil
	}
	if n < 0 || c.remaining() < n {
		c.err = errTruncated
		return nil
	}
	b := c.data[c.pos : c.pos+n]
	c.pos += n
	return b
}

func (c *byteCursor) u8() byte {
	if b := c.take(1); b != nil {
		return b[0]
	}
	return 0
}

func (c *byteCursor) u16() uint16 {
	if b := c.take(2); b != nil {
		return binary.LittleEndian.Uint16(b)
	}
	return 0
}

func (c *byteCursor) u24() int {
	if b := c.take(3); b != nil {
		return int(b[0]) | int(b[1])<<8 | int(b[2])<<16
	}
	return 0
}

func (c *byteCursor) u32() uint32 {
	if b := c.take(4); b != nil {
		return binary.LittleEndian.Uint32(b)
	}
	return 0
}

// bytesCopy copies so parsed blocks never alias the caller's buffer.
func (c *byteCursor) bytesCopy(n int) []byte {
	b := c.take(n)
	if b == nil {
		return nil
	}
	return append([]byte(nil), b...)
}

// ReadTZX parses a complete TZX image.
func ReadTZX(data []byte) ([]Block, error) {
	if len(data) < tzxHeaderLength || !IsTZX(data) {
		return nil, &FormatError{Operation: "ReadTZX", Details: "invalid TZX header"}
	}
	major := data[8]
	if major != tzxMajorVersion {
		return nil, &FormatError{Operation: "ReadTZX", Details: fmt.Sprintf("unsupported TZX version %d.%d", major, data[9])}
	}

	c := &byteCursor{data: data, pos: tzxHeaderLength}
	var blocks []Block
	for c.remaining() > 0 {
		offset := c.pos
		id := c.u8()
		block, err := readTZXBlock(c, id)
		if err == nil {
			err = c.err
		}
		if err != nil {
			return nil, &FormatError{
				Operation: "ReadTZX",
				Details:   fmt.Sprintf("block %02Xh at offset %d", id, offset),
				Err:       err,
			}
		}
		blocks = append(blocks, block)
	}
	return blocks, nil
}

func readTZXBlock(c *byteCursor, id byte) (Block, error) {
	switch id {
	case 0x10:
		pause := c.u16()
		length := int(c.u16())
		return &StandardSpeedBlock{PauseAfter: pause, Data: c.bytesCopy(length)}, nil

	case 0x11:
		b := &TurboSpeedBlock{
			PilotPulse:   c.u16(),
			Sync1:        c.u16(),
			Sync2:        c.u16(),
			Bit0:         c.u16(),
			Bit1:         c.u16(),
			PilotCount:   c.u16(),
			LastByteBits: c.u8(),
			PauseAfter:   c.u16(),
		}
		b.Data = c.bytesCopy(c.u24())
		return b, nil

	case 0x12:
		return &PureToneBlock{PulseLength: c.u16(), PulseCount: c.u16()}, nil

	case 0x13:
		n := int(c.u8())
		b := &PulseSequenceBlock{Pulses: make([]uint16, n)}
		for i := range b.Pulses {
			b.Pulses[i] = c.u16()
		}
		return b, nil

	case 0x14:
		b := &PureDataBlock{
			Bit0:         c.u16(),
			Bit1:         c.u16(),
			LastByteBits: c.u8(),
			PauseAfter:   c.u16(),
		}
		b.Data = c.bytesCopy(c.u24())
		return b, nil

	case 0x15:
		b := &DirectRecordingBlock{
			TactsPerSample: c.u16(),
			PauseAfter:     c.u16(),
			LastByteBits:   c.u8(),
		}
		b.Data = c.bytesCopy(c.u24())
		return b, nil

	case 0x18:
		body := c.take(int(c.u32()))
		if c.err != nil {
			return nil, c.err
		}
		bc := &byteCursor{data: body}
		b := &CSWRecordingBlock{
			PauseAfter:  bc.u16(),
			SampleRate:  bc.u24(),
			Compression: bc.u8(),
			PulseCount:  bc.u32(),
		}
		if bc.err != nil {
			return nil, bc.err
		}
		b.Data = bc.bytesCopy(bc.remaining())
		pulses, err := decodeCSW(b.Compression, b.Data)
		if err != nil {
			return nil, err
		}
		b.Pulses = pulses
		return b, nil

	case 0x19:
		body := c.take(int(c.u32()))
		if c.err != nil {
			return nil, c.err
		}
		g, err := readGeneralized(body)
		if err != nil {
			return nil, err
		}
		return g, nil

	case 0x20:
		return &PauseBlock{Duration: c.u16()}, nil

	case 0x21, 0x30:
		return info(c, id, int(c.u8())), nil
	case 0x22:
		return &InfoBlock{BlockID: id}, nil

	case 0x23:
		return &JumpBlock{Offset: int16(c.u16())}, nil
	case 0x24:
		return &LoopStartBlock{Repetitions: c.u16()}, nil
	case 0x25:
		return &LoopEndBlock{}, nil
	case 0x26:
		b := &CallSequenceBlock{Offsets: make([]int16, c.u16())}
		if c.err == nil && 2*len(b.Offsets) > c.remaining() {
			return nil, errTruncated
		}
		for i := range b.Offsets {
			b.Offsets[i] = int16(c.u16())
		}
		return b, nil
	case 0x27:
		return &ReturnBlock{}, nil
	case 0x28:
		body := c.take(int(c.u16()))
		if c.err != nil {
			return nil, c.err
		}
		bc := &byteCursor{data: body}
		b := &SelectBlock{Choices: make([]SelectChoice, bc.u8())}
		for i := range b.Choices {
			b.Choices[i].Offset = int16(bc.u16())
			b.Choices[i].Text = string(bc.take(int(bc.u8())))
		}
		return b, bc.err
	case 0x2A:
		c.take(int(c.u32()))
		return &StopIf48Block{}, nil
	case 0x2B:
		body := c.take(int(c.u32()))
		if c.err != nil {
			return nil, c.err
		}
		if len(body) < 1 {
			return nil, errTruncated
		}
		return &SignalLevelBlock{High: body[0] != 0}, nil

	case 0x31:
		start := c.pos
		c.u8()
		n := int(c.u8())
		c.take(n)
		return &InfoBlock{BlockID: id, Body: c.data[start:c.pos]}, nil
	case 0x32:
		return info(c, id, int(c.u16())), nil
	case 0x33:
		return info(c, id, 3*int(c.u8())), nil
	case 0x34:
		return info(c, id, 8), nil
	case 0x35:
		start := c.pos
		c.take(0x10)
		n := int(c.u32())
		c.take(n)
		return &InfoBlock{BlockID: id, Body: c.data[start:c.pos]}, nil
	case 0x40:
		c.u8()
		return info(c, id, c.u24()), nil
	case 0x5A:
		return info(c, id, 9), nil
	}

	// Every other block, including the C64 blocks 16h and 17h, starts with
	// its length.
	return info(c, id, int(c.u32())), nil
}

func info(c *byteCursor, id byte, length int) Block {
	return &InfoBlock{BlockID: id, Body: c.bytesCopy(length)}
}

// ReadTAP parses a TAP image: a sequence of length-prefixed standard speed
// blocks.
func ReadTAP(data []byte) ([]Block, error) {
	c := &byteCursor{data: data}
	var blocks []Block
	for c.remaining() > 0 {
		offset := c.pos
		length := int(c.u16())
		body := c.bytesCopy(length)
		if c.err != nil {
			return nil, &FormatError{
				Operation: "ReadTAP",
				Details:   fmt.Sprintf("block at offset %d", offset),
				Err:       c.err,
			}
		}
		blocks = append(blocks, &StandardSpeedBlock{PauseAfter: DefaultPause, Data: body})
	}
	return blocks, nil
}

// ReadContent reads all of r and parses it as TZX, WAV or, failing both
// signature checks, TAP. clockHz is only used to time WAV recordings.
func ReadContent(r io.Reader, clockHz int) ([]Block, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, &FormatError{Operation: "ReadContent", Details: "reading tape", Err: err}
	}
	switch {
	case IsTZX(data):
		return ReadTZX(data)
	case IsWAV(data):
		rec, err := NewWavPlayerFromBytes(data, clockHz)
		if err != nil {
			return nil, err
		}
		return []Block{&RecordingBlock{Recording: rec}}, nil
	}
	return ReadTAP(data)
}

// TzxWriter writes a TZX file made of standard speed blocks.
type TzxWriter struct {
	w   io.Writer
	err error
}

// NewTzxWriter writes the TZX header to w.
func NewTzxWriter(w io.Writer) (*TzxWriter, error) {
	tw := &TzxWriter{w: w}
	header := append(append([]byte(nil), tzxSignature...), tzxMajorVersion, tzxMinorVersion)
	if _, err := w.Write(header); err != nil {
		return nil, fmt.Errorf("tape: write TZX header: %w", err)
	}
	return tw, nil
}

func (tw *TzxWriter) WriteBlock(b *StandardSpeedBlock) error {
	if tw.err != nil {
		return tw.err
	}
	if len(b.Data) > 0xFFFF {
		return &FormatError{Operation: "WriteBlock", Details: fmt.Sprintf("block of %d bytes", len(b.Data))}
	}
	buf := make([]byte, 5, 5+len(b.Data))
	buf[0] = 0x10
	binary.LittleEndian.PutUint16(buf[1:], b.PauseAfter)
	binary.LittleEndian.PutUint16(buf[3:], uint16(len(b.Data)))
	buf = append(buf, b.Data...)
	if _, err := tw.w.Write(buf); err != nil {
		tw.err = fmt.Errorf("tape: write TZX block: %w", err)
	}
	return tw.err
}
