package tui

import (
	"fmt"

	"nftmarket/pkg/config"
	"nftmarket/pkg/store"
	"nftmarket/pkg/watcher"

	tea "github.com/charmbracelet/bubbletea"
)

// Start runs the terminal UI until the user quits. w may be nil.
func Start(s *store.Store, w *watcher.Watcher, cfg config.Config, version string) error {
	Version = version
	m := initialModel(s, w, cfg)
	defer s.Unsubscribe(m.sub)

	p := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("running terminal ui: %w", err)
	}
	return nil
}
