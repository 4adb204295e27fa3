// ABOUTME: Test app to verify audio and clock synchronization
// ABOUTME: Plays a file headless, seeks around and reports drift corrections
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/cobyj33/ascii-video/internal/app"
	"github.com/cobyj33/ascii-video/internal/debug"
)

var (
	backend    = flag.String("backend", "auto", "Demuxer backend")
	outputName = flag.String("output", "malgo", "Audio output")
	playFor    = flag.Duration("play", 10*time.Second, "How long to play")
	jumpEvery  = flag.Duration("jump-every", 3*time.Second, "Interval between seeks (0 disables)")
	jumpBy     = flag.Float64("jump-by", 5, "Seek distance in seconds; alternates direction")
	speed      = flag.Float64("speed", 1.0, "Playback speed")
)

func main() {
	flag.Parse()
	if flag.NArg() != 1 {
		log.Fatalf("Usage: sync-check [flags] <media file>")
	}

	log.SetFlags(log.Ltime | log.Lmicroseconds)

	fmt.Println("=== Sync Check ===")
	fmt.Println("This test will:")
	fmt.Println("1. Play the file without a TUI")
	fmt.Println("2. Seek back and forth at a fixed interval")
	fmt.Println("3. Report how often audio had to be resynchronized")
	fmt.Println()

	cfg := app.DefaultConfig(flag.Arg(0))
	cfg.Backend = *backend
	cfg.Output = *outputName
	cfg.Speed = *speed

	session, err := app.New(cfg)
	if err != nil {
		log.Fatalf("Failed to open: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *playFor)
	defer cancel()

	errc := make(chan error, 1)
	go func() {
		errc <- session.Run(ctx)
	}()

	var jumps <-chan time.Time
	if *jumpEvery > 0 {
		ticker := time.NewTicker(*jumpEvery)
		defer ticker.Stop()
		jumps = ticker.C
	}

	direction := 1.0
	for done := false; !done; {
		select {
		case <-session.Done():
			done = true
		case <-jumps:
			target, ended := session.Jump(direction * *jumpBy)
			log.Printf("Jumped %+.1fs to %.2fs", direction*(*jumpBy), target)
			if ended {
				log.Printf("Jump reached the end of the media")
			}
			direction = -direction
		}
	}

	if err := <-errc; err != nil {
		log.Fatalf("Playback error: %v", err)
	}

	st := session.Status()
	fmt.Println()
	fmt.Printf("Clock:        %.2fs of %.2fs\n", st.Time, st.Duration)
	fmt.Printf("Audio cycles: %d (%d frames, %d dropped)\n", st.AudioRun.Cycles, st.AudioRun.Frames, st.AudioRun.Dropped)
	fmt.Printf("Soft adjusts: %d\n", st.AudioRun.SoftAdjusts)
	fmt.Printf("Hard resyncs: %d\n", st.AudioRun.Resyncs)
	fmt.Printf("Callbacks:    %d filled, %d silent, %d underruns\n",
		st.AudioRun.Bridge.Filled, st.AudioRun.Bridge.Silent, st.AudioRun.Bridge.Underruns)
	fmt.Printf("Loader:       %d packets read, %d discarded, %d errors\n",
		st.Loader.PacketsRead, st.Loader.Discarded, st.Loader.Errors)
	fmt.Printf("Video:        %d decoded, %d published\n", st.VideoRun.Decoded, st.VideoRun.Published)

	for _, msg := range session.Debug().Messages("", debug.TypeError) {
		fmt.Printf("  %s\n", msg)
	}
	log.Printf("Test complete")
}
