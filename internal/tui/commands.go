package tui

import (
	"context"

	"github.com/Veraticus/till/internal/intent"
	tea "github.com/charmbracelet/bubbletea"
)

// refreshAccount fetches a fresh snapshot.
func (m Model) refreshAccount() tea.Cmd {
	account := m.account
	parent := m.ctx
	timeout := m.config.RefreshTimeout

	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(parent, timeout)
		defer cancel()

		snap, err := account.Refresh(ctx)
		return snapshotMsg{snapshot: snap, err: err}
	}
}

// confirmIntent performs the remote call of a pending intent. The form
// itself rejects a second confirmation while the first is outstanding.
func (m Model) confirmIntent(form *intent.Form) tea.Cmd {
	parent := m.ctx

	return func() tea.Msg {
		outcome, err := form.Confirm(parent)
		return confirmDoneMsg{kind: form.Kind(), outcome: outcome, err: err}
	}
}
