package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/intuitionamiga/SpectrumEngine/internal/debug"
	"github.com/intuitionamiga/SpectrumEngine/internal/host"
	"github.com/intuitionamiga/SpectrumEngine/internal/machine"
	"github.com/intuitionamiga/SpectrumEngine/internal/statsview"
	"github.com/intuitionamiga/SpectrumEngine/internal/tape"
	"github.com/intuitionamiga/SpectrumEngine/internal/z80"
)

// bootFrames is how long the ROM needs before it scans the keyboard.
const bootFrames = 150

// loadROMs reads the ROM files. A single 32K file is split into the two
// 128K ROMs.
func loadROMs(model machine.Model, paths []string) ([][]byte, error) {
	var roms [][]byte
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("read ROM: %w", err)
		}
		if len(data) == 2*0x4000 && model.ROMCount() == 2 && len(paths) == 1 {
			roms = append(roms, data[:0x4000], data[0x4000:])
			continue
		}
		roms = append(roms, data)
	}
	return roms, nil
}

type emulator struct {
	opts   *options
	stdout io.Writer
	stderr io.Writer

	m       *machine.Machine
	sink    *host.FrameSink
	palette host.Palette
	bps     *debug.Breakpoints

	reset      atomic.Bool
	screenshot atomic.Bool
	status     atomic.Pointer[string]
	shots      int
}

func newEmulator(opts *options, stdout, stderr io.Writer) (*emulator, error) {
	model, err := machine.ParseModel(opts.model)
	if err != nil {
		return nil, err
	}
	cfg := machine.DefaultConfig(model)
	if cfg.ROMs, err = loadROMs(model, opts.roms); err != nil {
		return nil, err
	}
	cfg.FastLoad = opts.fastLoad
	if opts.verbose {
		cfg.Log = stderr
	}

	var content []byte
	if opts.tape != "" {
		if content, err = os.ReadFile(opts.tape); err != nil {
			return nil, fmt.Errorf("read tape: %w", err)
		}
		if _, err := tape.ReadContent(bytes.NewReader(content), cfg.ClockHz); err != nil {
			return nil, err
		}
	}
	cfg.TapeProvider = tape.NewFileProvider(content, opts.saveDir)

	m, err := machine.New(cfg)
	if err != nil {
		return nil, err
	}

	if opts.sna != "" {
		data, err := os.ReadFile(opts.sna)
		if err != nil {
			return nil, fmt.Errorf("read snapshot: %w", err)
		}
		if err := m.LoadSNA(data); err != nil {
			return nil, err
		}
	}

	e := &emulator{opts: opts, stdout: stdout, stderr: stderr, m: m}
	screen := m.Screen()
	e.palette = host.Palette(screen.Palette())
	e.sink = host.NewFrameSink(screen.Width(), screen.Height(), e.palette)
	screen.SetFrameProvider(e.sink)

	e.bps = debug.NewBreakpoints(debug.Target{CPU: m.CPU(), Memory: m.Memory()})
	for _, spec := range opts.breaks {
		bp, err := e.bps.AddSpec(spec)
		if err != nil {
			return nil, err
		}
		fmt.Fprintf(stdout, "breakpoint %s\n", bp)
	}
	if e.bps.Len() > 0 {
		m.SetDebugProvider(e.bps)
	}
	e.updateStatus()
	return e, nil
}

func (e *emulator) updateStatus() {
	s := fmt.Sprintf("%s  frame %d  tape %s", e.m.Model(), e.m.FrameCount(), e.m.Tape().Mode())
	e.status.Store(&s)
}

func (e *emulator) statusLine() string {
	if s := e.status.Load(); s != nil {
		return *s
	}
	return ""
}

// emulate runs the machine until ctx is cancelled or the frame limit is
// reached. It owns the machine; other goroutines only set flags.
func (e *emulator) emulate(ctx context.Context) error {
	opts := machine.ExecuteCycleOptions{Mode: machine.UntilNextFrame, FastVMMode: e.opts.fast, ContinuePacing: true}
	if e.bps.Len() > 0 {
		// Debugger runs return at least once a frame.
		opts.Mode = machine.Debugger
		opts.DebugStep = machine.StopAtBreakpoint
		opts.TimeoutTacts = uint64(e.m.FrameTacts())
	}

	typeAt := bootFrames
	if e.opts.sna != "" {
		typeAt = 0
	}
	typed := e.opts.typeText == ""

	for {
		if e.reset.Swap(false) {
			e.m.Reset()
			fmt.Fprintln(e.stdout, "machine: reset")
		}
		if e.screenshot.Swap(false) {
			e.shots++
			e.saveScreenshot(fmt.Sprintf("spectrum-%03d.png", e.shots))
		}
		if !typed && e.m.FrameCount() >= typeAt {
			e.m.Keyboard().Type(e.opts.typeText)
			typed = true
		}
		if e.opts.frames > 0 && e.m.FrameCount() >= e.opts.frames {
			return nil
		}

		reason, err := e.m.ExecuteCycle(ctx, opts)
		if err != nil {
			return err
		}
		e.updateStatus()

		switch reason {
		case machine.Cancelled:
			return nil
		case machine.BreakpointReached:
			if err := e.bps.Err(); err != nil {
				fmt.Fprintf(e.stderr, "debug: %v\n", err)
			}
			fmt.Fprintf(e.stdout, "break at $%04X  %s\n", e.m.CPU().PC, formatRegisters(e.m.CPU()))
		}
	}
}

func (e *emulator) saveScreenshot(path string) {
	img := host.FrameImage(e.m.Screen().FrameBuffer(), e.sink.Width(), e.sink.Height(), e.palette)
	if err := host.SaveScreenshot(path, img, e.opts.scale); err != nil {
		fmt.Fprintf(e.stderr, "screenshot: %v\n", err)
		return
	}
	fmt.Fprintf(e.stdout, "screenshot: %s\n", path)
}

func formatRegisters(cpu *z80.CPU) string {
	return fmt.Sprintf("AF=%04X BC=%04X DE=%04X HL=%04X IX=%04X IY=%04X SP=%04X IM%d IFF1=%t",
		cpu.AF(), cpu.BC(), cpu.DE(), cpu.HL(), cpu.IX, cpu.IY, cpu.SP, cpu.IM, cpu.IFF1)
}

func run(ctx context.Context, opts *options, stdout, stderr io.Writer) error {
	e, err := newEmulator(opts, stdout, stderr)
	if err != nil {
		return err
	}

	if opts.stats {
		if statsview.Available() {
			statsview.Launch(stdout)
		} else {
			fmt.Fprintln(stderr, "statsview: not available in this build (use -tags statsview)")
		}
	}

	sampleRate := e.m.Beeper().SampleRate(e.m.ClockHz())
	var sound host.SoundFanout

	if opts.wav != "" {
		rec, err := host.CreateWavRecorder(opts.wav, sampleRate)
		if err != nil {
			return err
		}
		defer func() {
			if err := rec.Close(); err != nil {
				fmt.Fprintf(stderr, "wav: %v\n", err)
				return
			}
			fmt.Fprintf(stdout, "wav: %d samples written to %s\n", rec.Samples, opts.wav)
		}()
		sound = append(sound, rec)
	}

	if !opts.mute && !opts.fast {
		ring := host.NewSampleRing(sampleRate / 2)
		player, err := host.NewOtoPlayer(sampleRate, ring)
		if err != nil {
			fmt.Fprintf(stderr, "audio: %v (continuing without sound)\n", err)
		} else {
			player.Start()
			defer player.Close()
			sound = append(sound, ring)
		}
	}
	if len(sound) > 0 {
		e.m.Beeper().SetSoundProvider(sound)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer cancel()
		return e.emulate(gctx)
	})

	if opts.headless {
		if opts.frames == 0 {
			term := host.NewTerminalHost(os.Stdin, e.m.Keyboard(), cancel)
			term.Start()
			defer term.Stop()
		}
	} else {
		out := host.NewEbitenOutput(e.sink, e.m.Keyboard(), "SpectrumEngine "+e.m.Model().String(), opts.scale)
		out.SetResetHandler(func() { e.reset.Store(true) })
		out.SetScreenshotHandler(func() { e.screenshot.Store(true) })
		out.SetStatus(e.statusLine)
		g.Go(func() error {
			<-gctx.Done()
			out.Stop()
			return nil
		})
		// Ebiten has to own the main goroutine.
		if err := out.Run(); err != nil {
			cancel()
			_ = g.Wait()
			return err
		}
		cancel()
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	if opts.screenshot != "" {
		e.saveScreenshot(opts.screenshot)
	}
	if saved := e.m.Tape(); saved.Err() != nil && !errors.Is(saved.Err(), tape.ErrNoTape) {
		fmt.Fprintf(stderr, "tape: %v\n", saved.Err())
	}
	fmt.Fprintf(stdout, "machine: stopped after %d frames\n", e.m.FrameCount())
	return nil
}
