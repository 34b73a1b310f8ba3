// Package tui is the interactive dashboard for the till client.
package tui

import (
	"context"
	"errors"

	"github.com/Veraticus/till/internal/intent"
	"github.com/Veraticus/till/internal/model"
	"github.com/Veraticus/till/internal/tui/themes"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// Tab is one page of the dashboard.
type Tab int

// Dashboard tabs in display order.
const (
	TabOverview Tab = iota
	TabWithdraw
	TabDeposit
	TabHistory
)

var tabNames = []string{"Overview", "Withdraw", "Deposit", "History"}

func (t Tab) String() string {
	if t < 0 || int(t) >= len(tabNames) {
		return "Unknown"
	}
	return tabNames[t]
}

// Model holds the dashboard state.
type Model struct {
	ctx           context.Context
	account       Account
	pipeline      *intent.Pipeline
	theme         themes.Theme
	snapshot      model.Snapshot
	banner        banner
	withdraw      formModel
	deposit       formModel
	spinner       spinner.Model
	help          help.Model
	keymap        KeyMap
	config        Config
	width         int
	height        int
	historyOffset int
	tab           Tab
	refreshing    bool
	showHelp      bool
	quitting      bool
}

// newModel creates a new model with the given configuration.
func newModel(cfg Config) (Model, error) {
	if cfg.Pipeline == nil {
		return Model{}, errors.New("pipeline is required")
	}
	if cfg.Account == nil {
		return Model{}, errors.New("account is required")
	}
	if cfg.Context == nil {
		cfg.Context = context.Background()
	}

	s := spinner.New(spinner.WithSpinner(spinner.Dot))
	s.Style = s.Style.Foreground(cfg.Theme.Primary)

	return Model{
		ctx:      cfg.Context,
		account:  cfg.Account,
		pipeline: cfg.Pipeline,
		theme:    cfg.Theme,
		snapshot: cfg.Account.Snapshot(),
		withdraw: newFormModel(cfg.Pipeline.Withdraw(), cfg.Catalog, cfg.DefaultCountry),
		deposit:  newFormModel(cfg.Pipeline.Deposit(), cfg.Catalog, cfg.DefaultCountry),
		spinner:  s,
		help:     help.New(),
		keymap:   DefaultKeyMap(),
		config:   cfg,
		width:    cfg.Width,
		height:   cfg.Height,
		tab:      TabOverview,
	}, nil
}

// Init initializes the model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.refreshAccount(),
		m.spinner.Tick,
		textinput.Blink,
	)
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case snapshotMsg:
		m.refreshing = false
		m.snapshot = msg.snapshot
		if msg.err != nil {
			m.snapshot = m.account.Snapshot()
			m.banner = banner{kind: bannerWarning, text: "Could not refresh: " + msg.err.Error()}
		}
		return m, nil

	case confirmDoneMsg:
		return m.handleConfirmDone(msg), nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	if f := m.activeForm(); f != nil {
		cmd := f.updateInput(msg)
		return m, cmd
	}
	return m, nil
}

// handleKey dispatches key presses. Keys are interpreted according to the
// active form's intent status.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keymap.Quit) {
		m.quitting = true
		return m, tea.Quit
	}

	f := m.activeForm()
	if f == nil {
		return m.handleBrowseKey(msg)
	}

	switch f.status() {
	case model.StatusSubmitting:
		// Nothing but quit applies while a call is outstanding.
		return m, nil

	case model.StatusPendingConfirmation:
		switch {
		case key.Matches(msg, m.keymap.NextTab):
			m.switchTab(1)
		case key.Matches(msg, m.keymap.PrevTab):
			m.switchTab(-1)
		case key.Matches(msg, m.keymap.Confirm):
			m.banner = banner{}
			return m, tea.Batch(m.confirmIntent(f.form), m.spinner.Tick)
		case key.Matches(msg, m.keymap.Cancel):
			if _, err := f.form.Cancel(); err != nil {
				m.banner = banner{kind: bannerError, text: err.Error()}
			} else {
				m.banner = banner{}
			}
		}
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keymap.NextTab):
		m.switchTab(1)
		return m, nil
	case key.Matches(msg, m.keymap.PrevTab):
		m.switchTab(-1)
		return m, nil
	case key.Matches(msg, m.keymap.Refresh):
		return m.startRefresh()
	case key.Matches(msg, m.keymap.Clear):
		if err := f.clear(); err != nil {
			m.banner = banner{kind: bannerError, text: err.Error()}
		} else {
			m.banner = banner{}
		}
		return m, nil
	case key.Matches(msg, m.keymap.NextField):
		f.moveFocus(1)
		return m, nil
	case key.Matches(msg, m.keymap.PrevField):
		f.moveFocus(-1)
		return m, nil
	case key.Matches(msg, m.keymap.Submit):
		if _, err := f.submit(); err != nil {
			m.banner = banner{kind: bannerError, text: validationMessage(err)}
		} else {
			m.banner = banner{}
		}
		return m, nil
	}

	if sel := f.focused(); sel == fieldMethod || sel == fieldCountry || sel == fieldBank {
		switch {
		case key.Matches(msg, m.keymap.Left):
			f.cycle(-1)
		case key.Matches(msg, m.keymap.Right):
			f.cycle(1)
		}
		return m, nil
	}

	return m, f.updateInput(msg)
}

func (m Model) handleBrowseKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keymap.NextTab):
		m.switchTab(1)
	case key.Matches(msg, m.keymap.PrevTab):
		m.switchTab(-1)
	case key.Matches(msg, m.keymap.Refresh):
		return m.startRefresh()
	case key.Matches(msg, m.keymap.Help):
		m.showHelp = !m.showHelp
		m.help.ShowAll = m.showHelp
	case msg.String() == "q":
		m.quitting = true
		return m, tea.Quit
	case m.tab == TabHistory && key.Matches(msg, m.keymap.NextField):
		if m.historyOffset < len(m.snapshot.Transactions)-1 {
			m.historyOffset++
		}
	case m.tab == TabHistory && key.Matches(msg, m.keymap.PrevField):
		if m.historyOffset > 0 {
			m.historyOffset--
		}
	}
	return m, nil
}

func (m Model) startRefresh() (tea.Model, tea.Cmd) {
	if m.refreshing {
		return m, nil
	}
	m.refreshing = true
	return m, tea.Batch(m.refreshAccount(), m.spinner.Tick)
}

// handleConfirmDone applies the outcome of a confirmed intent.
func (m Model) handleConfirmDone(msg confirmDoneMsg) Model {
	// A repeated confirm key press is rejected by the form. The first call
	// reports the real outcome.
	if errors.Is(msg.err, intent.ErrBusy) || errors.Is(msg.err, intent.ErrInvalidTransition) {
		return m
	}

	f := m.formFor(msg.kind)
	m.snapshot = m.account.Snapshot()

	if msg.err != nil {
		text := msg.outcome.Intent.Error
		if text == "" {
			text = msg.err.Error()
		}
		m.banner = banner{kind: bannerError, text: text}
		return m
	}

	f.reset()
	m.banner = banner{kind: bannerSuccess, text: msg.outcome.Message()}
	if msg.outcome.Intent.Status == model.StatusDispatched {
		m.banner.kind = bannerInfo
	}
	if msg.outcome.RefreshErr != nil {
		m.banner.text += " (history will update on next refresh)"
	}
	return m
}

func (m *Model) switchTab(delta int) {
	n := len(tabNames)
	m.tab = Tab((int(m.tab) + delta + n) % n)
	m.banner = banner{}
}

// activeForm returns the form of the current tab, or nil on browse tabs.
func (m *Model) activeForm() *formModel {
	switch m.tab {
	case TabWithdraw:
		return &m.withdraw
	case TabDeposit:
		return &m.deposit
	default:
		return nil
	}
}

func (m *Model) formFor(kind model.IntentKind) *formModel {
	if kind == model.KindDeposit {
		return &m.deposit
	}
	return &m.withdraw
}
