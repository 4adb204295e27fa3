// ABOUTME: Entry point for the ascii-video terminal media player
// ABOUTME: Parses CLI flags and runs a playback session with or without the TUI
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/cobyj33/ascii-video/internal/app"
	"github.com/cobyj33/ascii-video/internal/ui"
	"github.com/cobyj33/ascii-video/internal/version"
	"github.com/cobyj33/ascii-video/pkg/audio/output"
)

var (
	backend     = flag.String("backend", "auto", "Demuxer backend: "+strings.Join(app.Backends, ", "))
	outputName  = flag.String("output", "malgo", "Audio output: "+strings.Join(output.Names, ", "))
	logFile     = flag.String("log-file", "ascii-video.log", "Log file path")
	noTUI       = flag.Bool("no-tui", false, "Disable TUI, play headless with streaming logs")
	volume      = flag.Float64("volume", 1.0, "Initial volume between 0 and 1")
	speed       = flag.Float64("speed", 1.0, "Initial playback speed")
	sampleRate  = flag.Int("sample-rate", 0, "Output sample rate in Hz (0 keeps the stream rate)")
	videoWidth  = flag.Int("video-width", 320, "Maximum decoded video width in pixels")
	debugSize   = flag.Int("debug-size", 100, "Number of debug messages kept")
	showVersion = flag.Bool("version", false, "Print version and exit")
)

// statusInterval is how often headless mode logs the playback position
const statusInterval = 5 * time.Second

func main() {
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags] <media file>\n", version.Product)
		flag.PrintDefaults()
	}
	flag.Parse()

	if *showVersion {
		fmt.Printf("%s %s\n", version.Product, version.Version)
		return
	}
	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}
	path := flag.Arg(0)
	useTUI := !*noTUI

	// Set up logging
	f, err := os.OpenFile(*logFile, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		log.Fatalf("error opening log file: %v", err)
	}
	defer func() { _ = f.Close() }()

	if useTUI {
		// TUI mode: log only to file
		log.SetOutput(f)
	} else {
		log.SetOutput(io.MultiWriter(os.Stdout, f))
	}

	cfg := app.DefaultConfig(path)
	cfg.Backend = *backend
	cfg.Output = *outputName
	cfg.Volume = *volume
	cfg.Speed = *speed
	cfg.SampleRate = *sampleRate
	cfg.VideoWidth = *videoWidth
	cfg.DebugMessages = *debugSize

	log.Printf("Starting %s %s: %s", version.Product, version.Version, path)
	session, err := app.New(cfg)
	if err != nil {
		log.Printf("Failed to open %s: %v", path, err)
		fmt.Fprintf(os.Stderr, "%s: %v\n", version.Product, err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errc := make(chan error, 1)
	go func() {
		errc <- session.Run(ctx)
	}()

	if useTUI {
		if err := ui.Run(session); err != nil {
			log.Printf("[%s] TUI error: %v", session.ShortID(), err)
		}
	} else {
		logStatus(session)
	}

	if err := <-errc; err != nil {
		log.Printf("[%s] Playback error: %v", session.ShortID(), err)
		os.Exit(1)
	}
	log.Printf("[%s] Player stopped", session.ShortID())
}

// logStatus logs the playback position until the session ends
func logStatus(session *app.Session) {
	ticker := time.NewTicker(statusInterval)
	defer ticker.Stop()

	for {
		select {
		case <-session.Done():
			return
		case <-ticker.C:
			st := session.Status()
			log.Printf("[%s] %.1fs / %.1fs playing=%v buffered=%.2fs resyncs=%d underruns=%d",
				st.ID[:8], st.Time, st.Duration, st.Playing, st.BufferedAudio,
				st.AudioRun.Resyncs, st.AudioRun.Bridge.Underruns)
		}
	}
}
