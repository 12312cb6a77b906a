package machine

import (
	"fmt"
	"io"
	"strings"

	"github.com/intuitionamiga/SpectrumEngine/internal/beeper"
	"github.com/intuitionamiga/SpectrumEngine/internal/tape"
	"github.com/intuitionamiga/SpectrumEngine/internal/ula"
)

// Model selects the emulated hardware.
type Model int

const (
	Model48 Model = iota
	Model128
)

func (m Model) String() string {
	if m == Model128 {
		return "128k"
	}
	return "48k"
}

// ROMCount is the number of 16K ROM images the model needs.
func (m Model) ROMCount() int {
	if m == Model128 {
		return 2
	}
	return 1
}

// BasicROM is the index of the ROM holding the 48K BASIC tape routines.
func (m Model) BasicROM() int {
	if m == Model128 {
		return 1
	}
	return 0
}

// ParseModel accepts "48", "48k", "128" and "128k" in any case.
func ParseModel(s string) (Model, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "48", "48k":
		return Model48, nil
	case "128", "128k":
		return Model128, nil
	}
	return Model48, &ConfigError{Operation: "ParseModel", Details: fmt.Sprintf("unknown model %q", s)}
}

// Config describes a machine. Start from DefaultConfig and fill in the ROM
// images.
type Config struct {
	Model Model

	// ROMs holds Model.ROMCount() images of 16K each.
	ROMs [][]byte

	ClockHz    int
	SampleRate int

	// FastLoad serves the ROM's LD-BYTES routine straight from the tape.
	FastLoad bool

	TapeProvider  tape.Provider
	FrameProvider ula.FrameProvider
	SoundProvider beeper.SoundProvider
	Debug         DebugProvider

	// Log receives device status lines. Nil discards them.
	Log io.Writer
}

// ClockHz is the CPU clock of the model.
func (m Model) ClockHz() int {
	if m == Model128 {
		return beeper.ClockHz128
	}
	return beeper.DefaultClockHz
}

func DefaultConfig(model Model) Config {
	return Config{
		Model:      model,
		ClockHz:    model.ClockHz(),
		SampleRate: beeper.DefaultSampleRate,
	}
}

// ConfigError reports a machine that cannot be built.
type ConfigError struct {
	Operation string
	Details   string
	Err       error
}

func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("machine %s failed: %s: %v", e.Operation, e.Details, e.Err)
	}
	return fmt.Sprintf("machine %s failed: %s", e.Operation, e.Details)
}

func (e *ConfigError) Unwrap() error { return e.Err }

func (c *Config) validate() error {
	if c.Model != Model48 && c.Model != Model128 {
		return &ConfigError{Operation: "New", Details: fmt.Sprintf("unknown model %d", c.Model)}
	}
	if len(c.ROMs) != c.Model.ROMCount() {
		return &ConfigError{
			Operation: "New",
			Details:   fmt.Sprintf("%s model needs %d ROM images, got %d", c.Model, c.Model.ROMCount(), len(c.ROMs)),
		}
	}
	if c.ClockHz <= 0 {
		return &ConfigError{Operation: "New", Details: fmt.Sprintf("clock frequency %d Hz", c.ClockHz)}
	}
	if c.SampleRate <= 0 || c.SampleRate > c.ClockHz {
		return &ConfigError{Operation: "New", Details: fmt.Sprintf("sample rate %d Hz", c.SampleRate)}
	}
	return nil
}
