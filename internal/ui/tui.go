// ABOUTME: TUI initialization and control
// ABOUTME: Wraps the bubbletea program around a playback session
package ui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
)

// Run shows the TUI until the user quits or playback ends. The
// transport is stopped before Run returns.
func Run(t Transport) error {
	p := tea.NewProgram(NewModel(t), tea.WithAltScreen())
	_, err := p.Run()
	t.Stop()
	if err != nil {
		return fmt.Errorf("tui: %w", err)
	}
	return nil
}
