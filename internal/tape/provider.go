package tape

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Provider supplies tape content for LOAD and receives blocks from SAVE.
type Provider interface {
	TapeContent() (io.Reader, error)

	CreateTapeFile() error
	SetName(name string)
	SaveTapeBlock(block StandardSpeedBlock) error
	FinalizeTapeFile() error
}

// FileProvider loads from an in-memory tape image and saves every recorded
// file as <name>.tzx into Dir.
type FileProvider struct {
	Content []byte
	Dir     string

	name   string
	blocks []StandardSpeedBlock

	// LastSaved is the path of the last file written.
	LastSaved string
}

func NewFileProvider(content []byte, dir string) *FileProvider {
	return &FileProvider{Content: content, Dir: dir}
}

func (p *FileProvider) TapeContent() (io.Reader, error) {
	if len(p.Content) == 0 {
		return nil, ErrNoTape
	}
	return bytes.NewReader(p.Content), nil
}

func (p *FileProvider) CreateTapeFile() error {
	p.name = ""
	p.blocks = p.blocks[:0]
	return nil
}

func (p *FileProvider) SetName(name string) {
	p.name = name
}

func (p *FileProvider) SaveTapeBlock(block StandardSpeedBlock) error {
	p.blocks = append(p.blocks, block)
	return nil
}

// FinalizeTapeFile writes the collected blocks. Nothing is written when no
// block was recorded.
func (p *FileProvider) FinalizeTapeFile() error {
	if len(p.blocks) == 0 {
		return nil
	}
	if p.Dir == "" {
		return fmt.Errorf("tape: no save directory")
	}

	path := filepath.Join(p.Dir, fileName(p.name)+".tzx")
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("tape: create %s: %w", path, err)
	}
	defer f.Close()

	bw := bufio.NewWriter(f)
	tw, err := NewTzxWriter(bw)
	if err != nil {
		return err
	}
	for i := range p.blocks {
		if err := tw.WriteBlock(&p.blocks[i]); err != nil {
			return err
		}
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("tape: write %s: %w", path, err)
	}
	p.LastSaved = path
	p.blocks = p.blocks[:0]
	return nil
}

// fileName turns a Spectrum tape name into something safe for a file system.
func fileName(name string) string {
	name = strings.TrimSpace(name)
	name = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		case r == ' ', r == '.':
			return '_'
		}
		return -1
	}, name)
	if name == "" {
		return "tape"
	}
	return name
}
