package tui

import (
	"time"

	"nftmarket/pkg/config"
	"nftmarket/pkg/models"
	"nftmarket/pkg/store"
	"nftmarket/pkg/watcher"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Version is set by Start()
var Version = "dev"

// --- Messages ---

type clearStatusMsg struct{}
type uiTickMsg time.Time

type connectResultMsg struct {
	ok bool
}

type refreshResultMsg struct {
	count int
	err   error
}

// --- Model ---

type model struct {
	store   *store.Store
	watcher *watcher.Watcher
	config  config.Config
	sub     store.Subscriber

	connection  models.ConnectionState
	collections []collectionRow
	myListings  []models.Order
	selected    int

	width         int
	height        int
	loading       bool
	lastUpdate    time.Time
	spinner       spinner.Model
	viewport      viewport.Model
	statusMessage string
	showHelp      bool
	showDetail    bool
	showMine      bool
}

func initialModel(s *store.Store, w *watcher.Watcher, cfg config.Config) model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	m := model{
		store:    s,
		watcher:  w,
		config:   cfg,
		sub:      s.Subscribe(),
		loading:  true,
		spinner:  sp,
		viewport: viewport.New(0, 0),
	}
	m.reload()
	return m
}

func (m model) Init() tea.Cmd {
	return tea.Batch(
		listenForEvents(m.sub),
		m.spinner.Tick,
		tea.Tick(time.Second, func(t time.Time) tea.Msg { return uiTickMsg(t) }),
	)
}
