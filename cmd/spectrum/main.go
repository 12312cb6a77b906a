// main.go - SpectrumEngine command line

/*
 ██▓ ███▄    █ ▄▄▄█████▓ █    ██  ██▓▄▄▄█████▓ ██▓ ▒█████   ███▄    █    ▓█████  ███▄    █   ▄████  ██▓ ███▄    █ ▓█████
▓██▒ ██ ▀█   █ ▓  ██▒ ▓▒ ██  ▓██▒▓██▒▓  ██▒ ▓▒▓██▒▒██▒  ██▒ ██ ▀█   █    ▓█   ▀  ██ ▀█   █  ██▒ ▀█▒▓██▒ ██ ▀█   █ ▓█   ▀
▒██▒▓██  ▀█ ██▒▒ ▓██░ ▒░▓██  ▒██░▒██▒▒ ▓██░ ▒░▒██▒▒██░  ██▒▓██  ▀█ ██▒   ▒███   ▓██  ▀█ ██▒▒██░▄▄▄░▒██▒▓██  ▀█ ██▒▒███
░██░▓██▒  ▐▌██▒░ ▓██▓ ░ ▓▓█  ░██░░██░░ ▓██▓ ░ ░██░▒██   ██░▓██▒  ▐▌██▒   ▒▓█  ▄ ▓██▒  ▐▌██▒░▓█  ██▓░██░▓██▒  ▐▌██▒▒▓█  ▄
░██░▒██░   ▓██░  ▒██▒ ░ ▒▒█████▓ ░██░  ▒██▒ ░ ░██░░ ████▓▒░▒██░   ▓██░   ░▒████▒▒██░   ▓██░░▒▓███▀▒░██░▒██░   ▓██░░▒████▒
░▓  ░ ▒░   ▒ ▒   ▒ ░░   ░▒▓▒ ▒ ▒ ░▓    ▒ ░░   ░▓  ░ ▒░▒░▒░ ░ ▒░   ▒ ▒    ░░ ▒░ ░░ ▒░   ▒ ▒  ░▒   ▒ ░▓  ░ ▒░   ▒ ▒ ░░ ▒░ ░
 ▒ ░░ ░░   ░ ▒░    ░    ░░▒░ ░ ░  ▒ ░    ░     ▒ ░  ░ ▒ ▒░ ░ ░░   ░ ▒░    ░ ░  ░░ ░░   ░ ▒░  ░   ░  ▒ ░░ ░░   ░ ▒░ ░ ░  ░
 ▒ ░   ░   ░ ░   ░       ░░░ ░ ░  ▒ ░  ░       ▒ ░░ ░ ░ ▒     ░   ░ ░       ░      ░   ░ ░ ░ ░   ░  ▒ ░   ░   ░ ░    ░
 ░           ░             ░      ░            ░      ░ ░           ░       ░  ░         ░       ░  ░           ░    ░  ░

(c) 2024 - 2026 Zayn Otley
https://github.com/IntuitionAmiga/IntuitionEngine
License: GPLv3 or later
*/

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
)

// listFlag collects a flag given more than once.
type listFlag []string

func (l *listFlag) String() string { return strings.Join(*l, ",") }

func (l *listFlag) Set(v string) error {
	*l = append(*l, v)
	return nil
}

type options struct {
	model      string
	roms       listFlag
	tape       string
	sna        string
	fastLoad   bool
	saveDir    string
	breaks     listFlag
	frames     int
	fast       bool
	headless   bool
	mute       bool
	wav        string
	screenshot string
	scale      int
	typeText   string
	stats      bool
	verbose    bool
}

func parseFlags(args []string, stdout io.Writer) (*options, error) {
	o := &options{}
	flagSet := flag.NewFlagSet("spectrum", flag.ContinueOnError)
	flagSet.SetOutput(io.Discard)
	flagSet.StringVar(&o.model, "model", "48k", "Machine model: 48k or 128k")
	flagSet.Var(&o.roms, "rom", "ROM image (16K each; give twice, or one 32K file, for 128k)")
	flagSet.StringVar(&o.tape, "tape", "", "Tape image to LOAD from (TZX, TAP or WAV)")
	flagSet.StringVar(&o.sna, "sna", "", "48K .sna snapshot to start from")
	flagSet.BoolVar(&o.fastLoad, "fastload", false, "Load standard tape blocks instantly")
	flagSet.StringVar(&o.saveDir, "save-dir", ".", "Directory SAVE writes .tzx files to")
	flagSet.Var(&o.breaks, "break", "Breakpoint: ADDR, 'ADDR if COND' or 'ADDR lua EXPR' (repeatable)")
	flagSet.IntVar(&o.frames, "frames", 0, "Stop after this many frames (0 runs until closed)")
	flagSet.BoolVar(&o.fast, "fast", false, "Run as fast as possible instead of at 50 Hz")
	flagSet.BoolVar(&o.headless, "headless", false, "No window; read the keyboard from the terminal")
	flagSet.BoolVar(&o.mute, "mute", false, "Disable audio output")
	flagSet.StringVar(&o.wav, "wav", "", "Record the beeper to a WAV file")
	flagSet.StringVar(&o.screenshot, "screenshot", "", "Write the last frame to a PNG file on exit")
	flagSet.IntVar(&o.scale, "scale", 2, "Window and screenshot scale")
	flagSet.StringVar(&o.typeText, "type", "", "Text to type once BASIC is ready (\\n for ENTER)")
	flagSet.BoolVar(&o.stats, "stats", false, "Serve runtime statistics (statsview builds only)")
	flagSet.BoolVar(&o.verbose, "v", false, "Log tape activity to stderr")

	flagSet.Usage = func() {
		flagSet.SetOutput(stdout)
		fmt.Fprintln(stdout, "Usage: spectrum -rom 48.rom [-tape game.tzx] [-sna game.sna] [options]")
		flagSet.PrintDefaults()
	}

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			flagSet.Usage()
		}
		return nil, err
	}
	if flagSet.NArg() > 0 {
		if o.tape != "" {
			return nil, fmt.Errorf("unexpected argument %q", flagSet.Arg(0))
		}
		o.tape = flagSet.Arg(0)
	}
	if len(o.roms) == 0 {
		return nil, fmt.Errorf("no ROM image given (use -rom)")
	}
	if o.frames < 0 {
		return nil, fmt.Errorf("-frames must not be negative")
	}
	if o.scale < 1 || o.scale > 8 {
		return nil, fmt.Errorf("-scale must be between 1 and 8")
	}
	o.typeText = strings.ReplaceAll(o.typeText, `\n`, "\n")
	return o, nil
}

func main() {
	opts, err := parseFlags(os.Args[1:], os.Stdout)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, opts, os.Stdout, os.Stderr); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}
