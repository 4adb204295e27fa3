// ABOUTME: Tests for TUI model and state management
// ABOUTME: Tests key handling, jump accumulation, modes and rendering
package ui

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/cobyj33/ascii-video/internal/app"
	"github.com/cobyj33/ascii-video/internal/debug"
	"github.com/cobyj33/ascii-video/pkg/media"
)

type fakeTransport struct {
	status   app.Status
	frame    *media.VideoFrame
	samples  []float32
	log      *debug.Log
	done     chan struct{}
	jumps    []float64
	endAfter float64
	stopped  int
}

func newFakeTransport() *fakeTransport {
	video := media.StreamInfo{Index: 1, Type: media.MediaTypeVideo}
	return &fakeTransport{
		status: app.Status{Path: "clip.mp4", Duration: 90, Volume: 1, Speed: 1, Video: &video},
		frame:  &media.VideoFrame{Width: 4, Height: 2, Pixels: make([]byte, 24)},
		log:    debug.New(10),
		done:   make(chan struct{}),
	}
}

func (f *fakeTransport) Status() app.Status       { return f.status }
func (f *fakeTransport) Frame() *media.VideoFrame { return f.frame }
func (f *fakeTransport) Debug() *debug.Log        { return f.log }
func (f *fakeTransport) Done() <-chan struct{}    { return f.done }
func (f *fakeTransport) Stop()                    { f.stopped++ }
func (f *fakeTransport) Waveform(n int) []float32 { return f.samples[:min(n, len(f.samples))] }

func (f *fakeTransport) TogglePlaying() bool {
	f.status.Playing = !f.status.Playing
	return f.status.Playing
}

func (f *fakeTransport) AdjustVolume(delta float64) float64 {
	f.status.Volume = max(0, min(1, f.status.Volume+delta))
	return f.status.Volume
}

func (f *fakeTransport) AdjustSpeed(delta float64) float64 {
	f.status.Speed = max(0.25, min(5, f.status.Speed+delta))
	return f.status.Speed
}

func (f *fakeTransport) Jump(delta float64) (float64, bool) {
	f.jumps = append(f.jumps, delta)
	target := f.status.Time + delta
	if f.endAfter > 0 && target >= f.endAfter {
		return target, true
	}
	f.status.Time = max(0, target)
	return f.status.Time, false
}

func key(s string) tea.KeyMsg {
	switch s {
	case "left":
		return tea.KeyMsg{Type: tea.KeyLeft}
	case "right":
		return tea.KeyMsg{Type: tea.KeyRight}
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "ctrl+c":
		return tea.KeyMsg{Type: tea.KeyCtrlC}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	model, ok := next.(Model)
	if !ok {
		t.Fatalf("expected Model, got %T", next)
	}
	return model, cmd
}

func isQuit(cmd tea.Cmd) bool {
	if cmd == nil {
		return false
	}
	_, ok := cmd().(tea.QuitMsg)
	return ok
}

func TestNewModel(t *testing.T) {
	model := NewModel(newFakeTransport())

	if model.mode != ModeVideo {
		t.Errorf("expected video mode, got %v", model.mode)
	}
	if model.showDebug {
		t.Error("expected showDebug to be false initially")
	}
	if model.status.Path != "clip.mp4" {
		t.Errorf("expected status loaded, got %q", model.status.Path)
	}
}

func TestNewModelAudioOnly(t *testing.T) {
	tr := newFakeTransport()
	tr.status.Video = nil

	model := NewModel(tr)
	if model.mode != ModeAudio {
		t.Errorf("expected audio mode without video, got %v", model.mode)
	}

	model, _ = update(t, model, key("c"))
	if model.mode != ModeAudio {
		t.Errorf("expected mode to stay audio, got %v", model.mode)
	}
}

func TestTransportKeys(t *testing.T) {
	tests := []struct {
		name   string
		keys   []string
		volume float64
		speed  float64
		play   bool
	}{
		{"toggle play", []string{" "}, 1, 1, true},
		{"toggle twice", []string{" ", " "}, 1, 1, false},
		{"volume down", []string{"down", "down"}, 0.9, 1, false},
		{"volume clamps", []string{"up"}, 1, 1, false},
		{"speed up", []string{"m", "m"}, 1, 1.5, false},
		{"speed down", []string{"n"}, 1, 0.75, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := newFakeTransport()
			model := NewModel(tr)
			for _, k := range tt.keys {
				model, _ = update(t, model, key(k))
			}

			if diff := model.status.Volume - tt.volume; diff > 1e-9 || diff < -1e-9 {
				t.Errorf("expected volume %v, got %v", tt.volume, model.status.Volume)
			}
			if model.status.Speed != tt.speed {
				t.Errorf("expected speed %v, got %v", tt.speed, model.status.Speed)
			}
			if model.status.Playing != tt.play {
				t.Errorf("expected playing %v, got %v", tt.play, model.status.Playing)
			}
		})
	}
}

func TestJumpAccumulatesUntilTick(t *testing.T) {
	tr := newFakeTransport()
	model := NewModel(tr)

	for _, k := range []string{"right", "right", "right", "left"} {
		model, _ = update(t, model, key(k))
	}
	if len(tr.jumps) != 0 {
		t.Fatalf("expected no jump before tick, got %v", tr.jumps)
	}
	if model.jumpRequest != 10 {
		t.Errorf("expected pending request of 10s, got %v", model.jumpRequest)
	}

	model, cmd := update(t, model, tickMsg(time.Now()))
	if len(tr.jumps) != 1 || tr.jumps[0] != 10 {
		t.Errorf("expected one jump of 10s, got %v", tr.jumps)
	}
	if model.jumpRequest != 0 {
		t.Errorf("expected request cleared, got %v", model.jumpRequest)
	}
	if cmd == nil {
		t.Error("expected tick to schedule the next tick")
	}

	update(t, model, tickMsg(time.Now()))
	if len(tr.jumps) != 1 {
		t.Errorf("expected no jump without a request, got %v", tr.jumps)
	}
}

func TestJumpPastEndQuits(t *testing.T) {
	tr := newFakeTransport()
	tr.endAfter = 5
	model := NewModel(tr)

	model, _ = update(t, model, key("right"))
	model, cmd := update(t, model, tickMsg(time.Now()))
	if !isQuit(cmd) {
		t.Error("expected quit after jumping past the end")
	}
	if !model.quitting {
		t.Error("expected quitting state")
	}
}

func TestQuitKeys(t *testing.T) {
	for _, k := range []string{"q", "x", "esc", "ctrl+c"} {
		t.Run(k, func(t *testing.T) {
			tr := newFakeTransport()
			model, cmd := update(t, NewModel(tr), key(k))
			if !isQuit(cmd) {
				t.Error("expected quit command")
			}
			if tr.stopped != 1 {
				t.Errorf("expected transport stopped once, got %d", tr.stopped)
			}
			if !strings.Contains(model.View(), "Stopping") {
				t.Errorf("unexpected quitting view %q", model.View())
			}
		})
	}
}

func TestSessionDoneQuits(t *testing.T) {
	tr := newFakeTransport()
	close(tr.done)

	msg := waitDone(tr.Done())()
	_, cmd := update(t, NewModel(tr), msg)
	if !isQuit(cmd) {
		t.Error("expected quit when the session ends")
	}
}

func TestModeCycle(t *testing.T) {
	model := NewModel(newFakeTransport())
	expected := []Mode{ModeColor, ModeAudio, ModeVideo}

	for _, want := range expected {
		model, _ = update(t, model, key("c"))
		if model.mode != want {
			t.Errorf("expected %v, got %v", want, model.mode)
		}
	}
}

func TestViewBeforeSize(t *testing.T) {
	if got := NewModel(newFakeTransport()).View(); got != "Loading..." {
		t.Errorf("expected Loading..., got %q", got)
	}
}

func TestView(t *testing.T) {
	tr := newFakeTransport()
	tr.status.Time = 65
	tr.samples = []float32{0, 0.5, -0.5, 1}
	tr.log.Add(debug.SourceAudio, debug.TypeError, "Audio Device", "device lost")

	model := NewModel(tr)
	model, _ = update(t, model, tea.WindowSizeMsg{Width: 80, Height: 24})

	view := model.View()
	for _, want := range []string{"clip.mp4", "1:05 / 1:30", "video"} {
		if !strings.Contains(view, want) {
			t.Errorf("expected view to contain %q", want)
		}
	}

	model, _ = update(t, model, key("d"))
	if view := model.View(); !strings.Contains(view, "device lost") {
		t.Error("expected debug panel to show messages")
	}

	model, _ = update(t, model, key("c"))
	model, _ = update(t, model, key("c"))
	if view := model.View(); !strings.Contains(view, "|") {
		t.Error("expected waveform in audio mode")
	}
}

func TestRenderWaveform(t *testing.T) {
	got := renderWaveform([]float32{0, 1, -1}, 3, 5)
	lines := strings.Split(got, "\n")
	if len(lines) != 5 {
		t.Fatalf("expected 5 rows, got %d", len(lines))
	}
	if lines[2] != "|||" {
		t.Errorf("expected middle row fully drawn, got %q", lines[2])
	}
	if lines[0] != " | " {
		t.Errorf("expected positive peak in top row, got %q", lines[0])
	}
	if lines[4] != "  |" {
		t.Errorf("expected negative peak in bottom row, got %q", lines[4])
	}

	empty := renderWaveform(nil, 4, 3)
	if strings.Split(empty, "\n")[1] != "----" {
		t.Errorf("expected flat line without samples, got %q", empty)
	}
}

func TestFormatTime(t *testing.T) {
	tests := []struct {
		seconds  float64
		expected string
	}{
		{0, "0:00"},
		{-3, "0:00"},
		{59.9, "0:59"},
		{65, "1:05"},
		{3725, "1:02:05"},
	}

	for _, tt := range tests {
		if got := formatTime(tt.seconds); got != tt.expected {
			t.Errorf("formatTime(%v): expected %q, got %q", tt.seconds, tt.expected, got)
		}
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Errorf("expected unchanged string, got %q", got)
	}
	if got := truncate("a long file name", 10); got != "a long ..." {
		t.Errorf("expected truncated string, got %q", got)
	}
}
