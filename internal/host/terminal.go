package host

import (
	"fmt"
	"io"
	"os"
	"sync"

	"golang.org/x/term"

	"github.com/intuitionamiga/SpectrumEngine/internal/keyboard"
)

const ctrlC = 0x03

// TerminalHost types the characters read from a terminal into the Spectrum
// keyboard. It is the input path of headless runs.
type TerminalHost struct {
	in          io.Reader
	kb          *keyboard.Device
	onInterrupt func()

	fd       int
	oldState *term.State

	stopCh   chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

// NewTerminalHost reads from in. onInterrupt, when set, is called for
// Ctrl-C since raw mode stops the terminal from raising SIGINT.
func NewTerminalHost(in io.Reader, kb *keyboard.Device, onInterrupt func()) *TerminalHost {
	return &TerminalHost{
		in:          in,
		kb:          kb,
		onInterrupt: onInterrupt,
		stopCh:      make(chan struct{}),
		done:        make(chan struct{}),
	}
}

// Start switches a terminal input to raw mode and starts the reader.
func (h *TerminalHost) Start() {
	if f, ok := h.in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		h.fd = int(f.Fd())
		oldState, err := term.MakeRaw(h.fd)
		if err != nil {
			fmt.Fprintf(os.Stderr, "terminal: failed to set raw mode: %v\n", err)
		} else {
			h.oldState = oldState
		}
	}

	go func() {
		defer close(h.done)
		buf := make([]byte, 64)
		for {
			n, err := h.in.Read(buf)
			select {
			case <-h.stopCh:
				return
			default:
			}
			if n > 0 {
				h.route(buf[:n])
			}
			if err != nil {
				return
			}
		}
	}()
}

func (h *TerminalHost) route(data []byte) {
	for _, b := range data {
		if b == ctrlC {
			if h.onInterrupt != nil {
				h.onInterrupt()
			}
			return
		}
	}
	h.kb.Type(string(translateTerminalInput(data)))
}

// translateTerminalInput maps raw terminal bytes onto the characters
// keyboard.Type understands: CR and CRLF become LF and DEL becomes BS.
func translateTerminalInput(raw []byte) []byte {
	out := normalizePasteText(raw)
	for i, b := range out {
		if b == 0x7F {
			out[i] = '\b'
		}
	}
	return out
}

// normalizePasteText turns CR and CRLF line ends into LF.
func normalizePasteText(raw []byte) []byte {
	norm := make([]byte, 0, len(raw))
	for i := 0; i < len(raw); i++ {
		if raw[i] == '\r' {
			if i+1 < len(raw) && raw[i+1] == '\n' {
				i++
			}
			norm = append(norm, '\n')
			continue
		}
		norm = append(norm, raw[i])
	}
	return norm
}

// Stop restores the terminal. A reader blocked in Read is abandoned; it
// exits after its next byte.
func (h *TerminalHost) Stop() {
	h.stopOnce.Do(func() {
		close(h.stopCh)
		if h.oldState != nil {
			_ = term.Restore(h.fd, h.oldState)
			h.oldState = nil
		}
	})
}

// Done is closed when the reader has finished, at end of input or after
// Stop.
func (h *TerminalHost) Done() <-chan struct{} { return h.done }
