package tui

import (
	"fmt"
	"time"

	"nftmarket/pkg/store"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"
)

func clearStatusAfter(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return clearStatusMsg{}
	})
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.viewport.Width = msg.Width - 8
		m.viewport.Height = msg.Height / 2
		if m.showDetail {
			m.updateDetailViewport()
		}

	case store.Event:
		cmds = append(cmds, listenForEvents(m.sub))

		switch msg.Type {
		case store.EventOrdersReplaced:
			m.loading = false
		case store.EventRefreshFailed:
			m.loading = false
			m.statusMessage = "Refreshing orders failed"
			cmds = append(cmds, clearStatusAfter(3*time.Second))
		}
		m.reload()
		m.lastUpdate = time.Now()

	case connectResultMsg:
		if msg.ok {
			m.statusMessage = "Wallet connected"
		} else {
			m.statusMessage = "Wallet connection failed"
		}
		m.reload()
		cmds = append(cmds, clearStatusAfter(2*time.Second))

	case refreshResultMsg:
		m.loading = false
		if msg.err != nil {
			m.statusMessage = fmt.Sprintf("Refresh failed: %v", msg.err)
		} else {
			m.statusMessage = fmt.Sprintf("Loaded %d orders", msg.count)
		}
		m.reload()
		cmds = append(cmds, clearStatusAfter(2*time.Second))

	case tea.KeyMsg:
		if msg.String() == "?" {
			m.showHelp = !m.showHelp
			return m, nil
		}
		if m.showHelp {
			if msg.String() == "q" || msg.String() == "esc" {
				m.showHelp = false
			}
			return m, nil
		}

		if m.showDetail {
			switch msg.String() {
			case "q", "esc", "enter":
				m.showDetail = false
				return m, nil
			}
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}

		switch msg.String() {
		case "q", "ctrl+c":
			if m.showMine {
				m.showMine = false
				return m, nil
			}
			return m, tea.Quit

		case "r":
			m.loading = true
			m.statusMessage = "Refreshing orders..."
			cmds = append(cmds, refreshCmd(m.store, m.config.RequestTimeout()))

		case "R":
			if m.watcher != nil {
				m.loading = true
				m.watcher.Trigger()
				m.statusMessage = "Full sync requested"
				cmds = append(cmds, clearStatusAfter(2*time.Second))
			}

		case "c":
			if m.connection.Connected {
				m.statusMessage = "Already connected"
				cmds = append(cmds, clearStatusAfter(2*time.Second))
				break
			}
			m.statusMessage = "Waiting for wallet approval..."
			cmds = append(cmds, connectCmd(m.store, m.config.RequestTimeout()))

		case "d":
			m.store.Disconnect()
			m.reload()
			m.statusMessage = "Disconnected"
			cmds = append(cmds, clearStatusAfter(2*time.Second))

		case "y":
			if !m.connection.Connected {
				break
			}
			if err := clipboard.WriteAll(m.connection.Address); err != nil {
				m.statusMessage = "Failed to copy to clipboard"
			} else {
				m.statusMessage = "Address copied to clipboard!"
			}
			cmds = append(cmds, clearStatusAfter(2*time.Second))

		case "o":
			row, ok := m.selectedCollection()
			if !ok || row.Info.IconURL == "" {
				m.statusMessage = "No icon for this collection"
			} else if err := openBrowser(row.Info.IconURL); err != nil {
				m.statusMessage = fmt.Sprintf("Failed to open browser: %v", err)
			} else {
				m.statusMessage = "Opened in browser"
			}
			cmds = append(cmds, clearStatusAfter(2*time.Second))

		case "m":
			m.showMine = !m.showMine

		case "enter":
			if len(m.collections) > 0 {
				m.showDetail = true
				m.updateDetailViewport()
				m.viewport.YOffset = 0
			}

		case "tab", "down", "j":
			if len(m.collections) > 0 {
				m.selected = (m.selected + 1) % len(m.collections)
			}
		case "shift+tab", "up", "k":
			if len(m.collections) > 0 {
				m.selected--
				if m.selected < 0 {
					m.selected = len(m.collections) - 1
				}
			}
		}

	case uiTickMsg:
		cmds = append(cmds, tea.Tick(time.Second, func(t time.Time) tea.Msg { return uiTickMsg(t) }))

	case clearStatusMsg:
		m.statusMessage = ""
	}

	if m.loading {
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}
