package tui

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"nftmarket/pkg/models"
	"nftmarket/pkg/store"
	"nftmarket/pkg/utils"

	tea "github.com/charmbracelet/bubbletea"
)

// defaultTokenDecimals applies until the payment token info is loaded.
const defaultTokenDecimals = 18

type collectionRow struct {
	Address  string
	Info     models.CollectionInfo
	Floor    *big.Int
	Listings int
}

func buildCollectionRows(s *store.Store) []collectionRow {
	addrs := s.Collections()
	rows := make([]collectionRow, 0, len(addrs))
	for _, addr := range addrs {
		row := collectionRow{
			Address:  addr,
			Info:     s.CollectionInfo(addr),
			Listings: len(s.ActiveOrders(addr)),
		}
		if floor, ok := s.FloorPrice(addr); ok {
			row.Floor = floor
		}
		rows = append(rows, row)
	}
	return rows
}

// reload pulls everything the views need from the store.
func (m *model) reload() {
	m.connection = m.store.Connection()
	m.collections = buildCollectionRows(m.store)
	m.myListings = m.store.ListingsBySeller(m.connection.Address)
	if m.selected >= len(m.collections) {
		m.selected = len(m.collections) - 1
	}
	if m.selected < 0 {
		m.selected = 0
	}
	if m.showDetail {
		m.updateDetailViewport()
	}
}

func (m model) selectedCollection() (collectionRow, bool) {
	if len(m.collections) == 0 {
		return collectionRow{}, false
	}
	return m.collections[m.selected], true
}

func (m model) paymentToken() models.TokenInfo {
	return m.store.TokenInfo(m.config.RexAddress, models.TokenInfo{
		Symbol:   m.config.CurrencySymbol,
		Decimals: defaultTokenDecimals,
	})
}

func (m model) formatPrice(p *big.Int) string {
	if p == nil {
		return "-"
	}
	token := m.paymentToken()
	return fmt.Sprintf("%s %s", utils.FormatPrice(p, token.Decimals, m.config.PriceDecimals), token.Symbol)
}

// listingSeries converts listing prices to plot points.
func listingSeries(prices []*big.Int, decimals int) []float64 {
	series := make([]float64, 0, len(prices))
	for _, p := range prices {
		series = append(series, utils.PriceToFloat64(p, decimals))
	}
	return series
}

func (m *model) updateDetailViewport() {
	row, ok := m.selectedCollection()
	if !ok {
		m.viewport.SetContent("No collection selected.")
		return
	}

	orders := m.store.ActiveOrders(row.Address)
	if len(orders) == 0 {
		m.viewport.SetContent("No active listings.")
		return
	}

	var lines []string
	lines = append(lines, tableHeaderStyle.Render(fmt.Sprintf("%-6s %-10s %-20s %-14s", "ID", "TOKEN", "PRICE", "SELLER")))
	for _, o := range orders {
		key := models.NewTokenKey(o.NFTContractAddress, o.TokenID)
		line := fmt.Sprintf("%-6d %-10s %-20s %-14s",
			o.ID,
			utils.TruncateString(key.TokenID, 10),
			m.formatPrice(o.Price),
			utils.ShortAddress(o.Seller),
		)
		if strings.EqualFold(o.Seller, m.connection.Address) && m.connection.Connected {
			line = infoStyle.Render(line)
		}
		lines = append(lines, line)
		if img := m.store.TokenImage(key, ""); img != "" {
			lines = append(lines, subtleStyle.Render("       "+utils.TruncateString(img, 60)))
		}
	}
	m.viewport.SetContent(strings.Join(lines, "\n"))
}

func listenForEvents(sub store.Subscriber) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-sub
		if !ok {
			return nil
		}
		return ev
	}
}

func timeoutContext(d time.Duration) (context.Context, context.CancelFunc) {
	if d > 0 {
		return context.WithTimeout(context.Background(), d)
	}
	return context.WithCancel(context.Background())
}

func connectCmd(s *store.Store, timeout time.Duration) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := timeoutContext(timeout)
		defer cancel()
		return connectResultMsg{ok: s.RequestConnection(ctx)}
	}
}

func refreshCmd(s *store.Store, timeout time.Duration) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := timeoutContext(timeout)
		defer cancel()
		orders, err := s.Refresh(ctx)
		return refreshResultMsg{count: len(orders), err: err}
	}
}
