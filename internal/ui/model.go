// ABOUTME: Bubbletea model for the player TUI
// ABOUTME: Maps keys to transport controls and renders video, waveform and status
package ui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/cobyj33/ascii-video/internal/app"
	"github.com/cobyj33/ascii-video/internal/ascii"
	"github.com/cobyj33/ascii-video/internal/debug"
	psync "github.com/cobyj33/ascii-video/internal/sync"
	"github.com/cobyj33/ascii-video/pkg/media"
)

// frameInterval is the redraw period of the TUI
const frameInterval = 33 * time.Millisecond

// debugLines is how many debug messages the debug panel shows
const debugLines = 8

// Transport is the playback surface driven by the TUI
type Transport interface {
	Status() app.Status
	Frame() *media.VideoFrame
	Waveform(n int) []float32
	Debug() *debug.Log
	TogglePlaying() bool
	AdjustVolume(delta float64) float64
	AdjustSpeed(delta float64) float64
	Jump(delta float64) (target float64, ended bool)
	Stop()
	Done() <-chan struct{}
}

// Mode selects what the main area shows
type Mode int

const (
	ModeVideo Mode = iota
	ModeColor
	ModeAudio
)

func (m Mode) String() string {
	switch m {
	case ModeVideo:
		return "video"
	case ModeColor:
		return "color"
	case ModeAudio:
		return "audio"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// next cycles modes, skipping the video modes when there is no video
func (m Mode) next(hasVideo bool) Mode {
	if !hasVideo {
		return ModeAudio
	}
	return (m + 1) % 3
}

// Model represents the TUI state
type Model struct {
	transport Transport
	status    app.Status

	mode        Mode
	showDebug   bool
	jumpRequest float64 // seconds accumulated by arrow keys
	quitting    bool

	width  int
	height int
}

type tickMsg time.Time
type doneMsg struct{}

// NewModel creates a TUI model for t
func NewModel(t Transport) Model {
	m := Model{transport: t}
	m.status = t.Status()
	if m.status.Video == nil {
		m.mode = ModeAudio
	}
	return m
}

// Init starts the redraw ticker and waits for the session to end
func (m Model) Init() tea.Cmd {
	return tea.Batch(tickEvery(), waitDone(m.transport.Done()))
}

func tickEvery() tea.Cmd {
	return tea.Tick(frameInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func waitDone(done <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		<-done
		return doneMsg{}
	}
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tickMsg:
		if m.jumpRequest != 0 {
			_, ended := m.transport.Jump(m.jumpRequest)
			m.jumpRequest = 0
			if ended {
				m.quitting = true
				return m, tea.Quit
			}
		}
		m.status = m.transport.Status()
		return m, tickEvery()

	case doneMsg:
		m.quitting = true
		return m, tea.Quit
	}

	return m, nil
}

// handleKey handles keyboard input
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "x", "esc", "q", "ctrl+c":
		m.quitting = true
		m.transport.Stop()
		return m, tea.Quit
	case " ", "space":
		m.status.Playing = m.transport.TogglePlaying()
	case "left":
		m.jumpRequest -= psync.TimeStep
	case "right":
		m.jumpRequest += psync.TimeStep
	case "up":
		m.status.Volume = m.transport.AdjustVolume(psync.VolumeStep)
	case "down":
		m.status.Volume = m.transport.AdjustVolume(-psync.VolumeStep)
	case "m":
		m.status.Speed = m.transport.AdjustSpeed(psync.SpeedStep)
	case "n":
		m.status.Speed = m.transport.AdjustSpeed(-psync.SpeedStep)
	case "c":
		m.mode = m.mode.next(m.status.Video != nil)
	case "d":
		m.showDebug = !m.showDebug
	}

	return m, nil
}

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	valueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("250"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	helpStyle   = lipgloss.NewStyle().Faint(true)
)

// View renders the TUI
func (m Model) View() string {
	if m.quitting {
		return "Stopping playback...\n"
	}
	if m.width == 0 {
		return "Loading..."
	}

	header := m.renderHeader()
	help := helpStyle.Render("space:Play  ←/→:Seek  ↑/↓:Volume  n/m:Speed  c:Mode  d:Debug  q:Quit")

	var debugPanel string
	if m.showDebug {
		debugPanel = m.renderDebug()
	}

	rows := m.height - lipgloss.Height(header) - lipgloss.Height(help) - 1
	if debugPanel != "" {
		rows -= lipgloss.Height(debugPanel)
	}

	var b strings.Builder
	b.WriteString(header)
	b.WriteString("\n")
	b.WriteString(m.renderBody(m.width, rows))
	b.WriteString("\n")
	if debugPanel != "" {
		b.WriteString(debugPanel)
		b.WriteString("\n")
	}
	b.WriteString(help)
	return b.String()
}

func (m Model) renderHeader() string {
	icon := "⏸"
	if m.status.Playing {
		icon = "▶"
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("ascii-video"))
	b.WriteString(" ")
	b.WriteString(valueStyle.Render(truncate(m.status.Path, max(m.width-14, 4))))
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("%s %s / %s ", icon, formatTime(m.status.Time), formatTime(m.status.Duration)))
	b.WriteString(headerStyle.Render("Vol: "))
	b.WriteString(valueStyle.Render(fmt.Sprintf("%3.0f%% ", m.status.Volume*100)))
	b.WriteString(headerStyle.Render("Speed: "))
	b.WriteString(valueStyle.Render(fmt.Sprintf("%.2fx ", m.status.Speed)))
	b.WriteString(headerStyle.Render("Mode: "))
	b.WriteString(valueStyle.Render(m.mode.String()))
	if m.jumpRequest != 0 {
		b.WriteString(valueStyle.Render(fmt.Sprintf(" (seek %+.0fs)", m.jumpRequest)))
	}
	return b.String()
}

func (m Model) renderBody(cols, rows int) string {
	if rows < 1 || cols < 1 {
		return ""
	}

	switch m.mode {
	case ModeAudio:
		return renderWaveform(m.transport.Waveform(cols), cols, rows)
	default:
		frame := m.transport.Frame()
		if frame == nil {
			return valueStyle.Render("No video frame")
		}
		img := ascii.Convert(frame, cols, rows)
		if m.mode == ModeColor {
			return renderColor(img)
		}
		return img.String()
	}
}

// renderColor paints each character with the average color of its cell
func renderColor(img ascii.Image) string {
	var b strings.Builder
	for row, line := range img.Lines {
		if row > 0 {
			b.WriteString("\n")
		}
		for col := 0; col < len(line); col++ {
			c := img.Colors[row*img.Width+col]
			style := lipgloss.NewStyle().Foreground(lipgloss.Color(fmt.Sprintf("#%02x%02x%02x", c[0], c[1], c[2])))
			b.WriteString(style.Render(string(line[col])))
		}
	}
	return b.String()
}

// renderWaveform draws one column per sample, centered on the middle row
func renderWaveform(samples []float32, cols, rows int) string {
	grid := make([][]byte, rows)
	for i := range grid {
		grid[i] = []byte(strings.Repeat(" ", cols))
	}

	mid := rows / 2
	for col := 0; col < min(cols, len(samples)); col++ {
		v := max(-1, min(1, samples[col]))
		row := mid - int(v*float32(rows)/2)
		row = max(0, min(rows-1, row))
		lo, hi := min(row, mid), max(row, mid)
		for r := lo; r <= hi; r++ {
			grid[r][col] = '|'
		}
	}
	if len(samples) == 0 {
		for col := 0; col < cols; col++ {
			grid[mid][col] = '-'
		}
	}

	lines := make([]string, rows)
	for i, r := range grid {
		lines[i] = string(r)
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderDebug() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("Debug"))
	b.WriteString(valueStyle.Render(fmt.Sprintf("  buffered %.2fs  audio %d cycles %d resyncs %d underruns  loader %d read %d errors  video %d decoded",
		m.status.BufferedAudio,
		m.status.AudioRun.Cycles, m.status.AudioRun.Resyncs, m.status.AudioRun.Bridge.Underruns,
		m.status.Loader.PacketsRead, m.status.Loader.Errors,
		m.status.VideoRun.Decoded)))

	msgs := m.transport.Debug().Messages("", "")
	if len(msgs) > debugLines {
		msgs = msgs[len(msgs)-debugLines:]
	}
	for _, msg := range msgs {
		b.WriteString("\n")
		line := truncate(msg.String(), max(m.width, 8))
		if msg.Type == debug.TypeError {
			b.WriteString(errorStyle.Render(line))
		} else {
			b.WriteString(valueStyle.Render(line))
		}
	}
	return b.String()
}

// formatTime renders seconds as m:ss, or h:mm:ss past an hour
func formatTime(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	total := int(seconds)
	h, m, s := total/3600, (total/60)%60, total%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

func truncate(s string, length int) string {
	if len(s) <= length {
		return s
	}
	if length <= 3 {
		return s[:length]
	}
	return s[:length-3] + "..."
}
