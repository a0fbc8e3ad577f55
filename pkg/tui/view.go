package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"nftmarket/pkg/utils"
)

func (m model) View() string {
	if m.showHelp {
		return m.viewHelp()
	}
	if m.showDetail {
		return m.viewDetail()
	}

	targetWidth := m.width - 4
	if targetWidth < 0 {
		targetWidth = 0
	}

	header := titleStyle.Render("NFT Market")
	conn := m.viewConnection()

	var body string
	if m.loading && len(m.collections) == 0 {
		body = fmt.Sprintf("%s Loading orders...", m.spinner.View())
	} else if m.showMine {
		body = m.viewMyListings()
	} else {
		body = m.viewCollections()
	}

	content := boxStyle.Width(targetWidth).Render(lipgloss.JoinVertical(lipgloss.Left,
		header,
		conn,
		"\n",
		body,
	))

	return lipgloss.JoinVertical(lipgloss.Left, content, m.viewFooter())
}

func (m model) viewConnection() string {
	if !m.connection.Connected {
		return errStyle.Render("Wallet: not connected")
	}
	token := m.paymentToken()
	line := fmt.Sprintf("Wallet: %s", utils.ShortAddress(m.connection.Address))
	if token.Name != "" {
		line += subtleStyle.Render(fmt.Sprintf(" • paying in %s (%s)", token.Name, token.Symbol))
	}
	return infoStyle.Render(line)
}

func (m model) viewCollections() string {
	if len(m.collections) == 0 {
		return subtleStyle.Render("No orders on the market yet.")
	}

	rows := []string{
		tableHeaderStyle.Render(fmt.Sprintf("  %-24s %-14s %-20s %s", "COLLECTION", "ADDRESS", "FLOOR", "LISTED")),
	}
	for i, c := range m.collections {
		cursor := "  "
		if i == m.selected {
			cursor = "> "
		}
		line := fmt.Sprintf("%s%-24s %-14s %-20s %d",
			cursor,
			utils.TruncateString(c.Info.Name, 24),
			utils.ShortAddress(c.Address),
			m.formatPrice(c.Floor),
			c.Listings,
		)
		if i == m.selected {
			line = selectedStyle.Render(line)
		}
		rows = append(rows, line)
	}
	return strings.Join(rows, "\n")
}

func (m model) viewMyListings() string {
	if !m.connection.Connected {
		return subtleStyle.Render("Connect a wallet (c) to see your listings.")
	}
	if len(m.myListings) == 0 {
		return subtleStyle.Render("You have no active listings.")
	}

	rows := []string{
		tableHeaderStyle.Render(fmt.Sprintf("%-6s %-24s %-10s %s", "ID", "COLLECTION", "TOKEN", "PRICE")),
	}
	for _, o := range m.myListings {
		rows = append(rows, fmt.Sprintf("%-6d %-24s %-10s %s",
			o.ID,
			utils.TruncateString(m.store.CollectionInfo(o.NFTContractAddress).Name, 24),
			utils.TruncateString(o.TokenID.String(), 10),
			m.formatPrice(o.Price),
		))
	}
	return strings.Join(rows, "\n")
}

func (m model) viewDetail() string {
	row, ok := m.selectedCollection()
	if !ok {
		return "No collection selected."
	}

	targetWidth := m.width - 4
	if targetWidth < 0 {
		targetWidth = 0
	}
	graphWidth := targetWidth - 12
	if graphWidth < 10 {
		graphWidth = 10
	}

	header := titleStyle.Render(row.Info.Name)
	stats := fmt.Sprintf("%s\nFloor: %s • Listed: %d", row.Address, m.formatPrice(row.Floor), row.Listings)
	if row.Info.IconURL != "" {
		stats += "\n" + subtleStyle.Render("Icon: "+utils.TruncateString(row.Info.IconURL, 60))
	}

	var graph string
	series := listingSeries(m.store.ListingPrices(row.Address), m.paymentToken().Decimals)
	if len(series) > 1 {
		graph = asciigraph.Plot(series,
			asciigraph.Height(8),
			asciigraph.Width(graphWidth),
			asciigraph.Caption(fmt.Sprintf("Listing prices, lowest first (%s)", m.paymentToken().Symbol)),
		)
	} else {
		graph = "Not enough listings to draw graph."
	}

	content := boxStyle.Width(targetWidth).Render(lipgloss.JoinVertical(lipgloss.Left,
		header, stats, "\n", graph, "\n", m.viewport.View(),
	))
	footer := subtleStyle.Render("↑/↓: scroll • enter/esc/q: back")
	return lipgloss.JoinVertical(lipgloss.Left, content, footer)
}

func (m model) viewHelp() string {
	shortcuts := []string{
		"c: Connect Wallet",
		"d: Disconnect",
		"y: Copy Address",
		"r: Refresh Orders",
		"R: Full Sync",
		"m: Toggle My Listings",
		"o: Open Collection Icon",
		"enter: Collection Details",
		"Tab/j/Down: Next Collection",
		"S-Tab/k/Up: Prev Collection",
		"?: Toggle Help",
		"q: Quit",
	}
	content := boxStyle.Render(lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render("Keyboard Shortcuts"),
		"\n",
		strings.Join(shortcuts, "\n"),
	))
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, content)
}

func (m model) viewFooter() string {
	spinnerView := ""
	if m.loading {
		spinnerView = m.spinner.View() + " "
	}
	updated := "never"
	if !m.lastUpdate.IsZero() {
		updated = m.lastUpdate.Format("15:04:05")
	}

	line := fmt.Sprintf("%sLast updated: %s • c:con • d:dis • r:ref • m:mine • ent:dt • ?:hlp • q:quit • v%s",
		spinnerView, updated, Version)
	footer := subtleStyle.Render(line)
	if m.statusMessage != "" {
		footer = lipgloss.JoinVertical(lipgloss.Left, infoStyle.Render(m.statusMessage), footer)
	}
	return footer
}
