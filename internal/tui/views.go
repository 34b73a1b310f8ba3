package tui

import (
	"fmt"
	"strings"

	"github.com/Veraticus/till/internal/cli"
	"github.com/Veraticus/till/internal/model"
	"github.com/charmbracelet/lipgloss"
)

// View renders the current state.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	sections := []string{
		m.renderHeader(),
		m.renderTabs(),
	}
	if b := m.renderBanner(); b != "" {
		sections = append(sections, b)
	}

	switch m.tab {
	case TabOverview:
		sections = append(sections, m.renderOverview())
	case TabWithdraw, TabDeposit:
		sections = append(sections, m.renderForm(m.activeFormValue()))
	case TabHistory:
		sections = append(sections, m.renderHistory())
	}

	sections = append(sections, m.renderHelp())
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) activeFormValue() formModel {
	if m.tab == TabDeposit {
		return m.deposit
	}
	return m.withdraw
}

func (m Model) renderHeader() string {
	title := m.theme.Title.Render("💸 till")
	if m.config.UserEmail != "" {
		title = lipgloss.JoinHorizontal(lipgloss.Top, title, "  ", m.theme.Subtitle.Render(m.config.UserEmail))
	}
	return title
}

func (m Model) renderTabs() string {
	tabs := make([]string, len(tabNames))
	for i, name := range tabNames {
		if Tab(i) == m.tab {
			tabs[i] = m.theme.ActiveTab.Render(name)
		} else {
			tabs[i] = m.theme.Tab.Render(name)
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, tabs...) + "\n"
}

func (m Model) renderBanner() string {
	switch m.banner.kind {
	case bannerInfo:
		return m.theme.StatusInfo.Render("ℹ " + m.banner.text)
	case bannerSuccess:
		return m.theme.StatusSuccess.Render("✓ " + m.banner.text)
	case bannerWarning:
		return m.theme.StatusWarning.Render("⚠ " + m.banner.text)
	case bannerError:
		return m.theme.StatusError.Render("✗ " + m.banner.text)
	default:
		return ""
	}
}

func (m Model) renderOverview() string {
	var b strings.Builder

	b.WriteString(m.theme.Subtitle.Render("Available balance"))
	b.WriteString("\n")
	b.WriteString(m.theme.Balance.Render(cli.FormatMoney(m.snapshot.Balance)))
	b.WriteString("\n\n")

	switch {
	case m.refreshing:
		b.WriteString(m.spinner.View() + " Refreshing...")
	case m.snapshot.FetchedAt.IsZero():
		b.WriteString(m.theme.Disabled.Render("Not loaded yet"))
	default:
		updated := "Updated " + m.snapshot.FetchedAt.Local().Format("Jan 2 15:04")
		if m.snapshot.Stale {
			updated += " (cached)"
		}
		b.WriteString(m.theme.Subtitle.Render(updated))
	}
	b.WriteString("\n\n")

	recent := m.snapshot.Transactions
	if len(recent) > 5 {
		recent = recent[:5]
	}
	if len(recent) > 0 {
		b.WriteString(m.theme.Bold.Render("Recent activity"))
		b.WriteString("\n")
		for _, txn := range recent {
			b.WriteString(m.renderTransaction(txn))
			b.WriteString("\n")
		}
	}

	return m.theme.RoundedBox.Render(strings.TrimRight(b.String(), "\n"))
}

func (m Model) renderForm(f formModel) string {
	intent := f.form.Intent()

	switch intent.Status {
	case model.StatusPendingConfirmation:
		return m.renderConfirmation(intent.Summary())
	case model.StatusSubmitting:
		return m.theme.RoundedBox.Render(m.spinner.View() + " Contacting the bank...")
	}

	var rows []string
	for i, fld := range f.fields() {
		focused := i == f.focus
		label := m.theme.Label
		if focused {
			label = m.theme.FocusedLabel
		}
		rows = append(rows, label.Render(fieldLabel(fld))+m.renderField(f, fld, focused))
	}

	action := "Withdraw"
	if f.form.Kind() == model.KindDeposit {
		action = "Deposit"
	}
	button := m.theme.Disabled.Render("[ " + action + " ]")
	if f.editable() {
		button = m.theme.ActiveTab.Render(action)
	}
	rows = append(rows, "", button)

	return m.theme.RoundedBox.Render(strings.Join(rows, "\n"))
}

func fieldLabel(f field) string {
	switch f {
	case fieldAmount:
		return "Amount"
	case fieldMethod:
		return "Method"
	case fieldCountry:
		return "Country"
	case fieldPhone:
		return "Phone"
	case fieldBank:
		return "Bank"
	case fieldAccount:
		return "Account"
	default:
		return ""
	}
}

func (m Model) renderField(f formModel, fld field, focused bool) string {
	switch fld {
	case fieldAmount:
		return f.amount.View()
	case fieldPhone:
		return f.phone.View()
	case fieldAccount:
		return f.account.View()
	case fieldMethod:
		name := "M-PESA"
		if f.method == model.ChannelBankTransfer {
			name = "Bank transfer"
		}
		return m.renderChoice(name, focused)
	case fieldCountry:
		countries := f.catalog.Countries()
		if len(countries) == 0 {
			return m.theme.Disabled.Render("none")
		}
		c := countries[wrap(f.countryIdx, len(countries))]
		return m.renderChoice(fmt.Sprintf("%s %s (%s)", c.Flag, c.Name, c.CallingCode), focused)
	case fieldBank:
		banks := f.catalog.Banks()
		if len(banks) == 0 {
			return m.theme.Disabled.Render("none")
		}
		bank := banks[wrap(f.bankIdx, len(banks))]
		return m.renderChoice(bank.Name, focused)
	default:
		return ""
	}
}

func (m Model) renderChoice(text string, focused bool) string {
	if focused {
		return m.theme.Choice.Render("‹ " + text + " ›")
	}
	return m.theme.Choice.Render(text)
}

func (m Model) renderConfirmation(s model.IntentSummary) string {
	direction := "To"
	if s.Direction == "Deposit" {
		direction = "From"
	}

	lines := []string{
		m.theme.Bold.Render("Confirm " + strings.ToLower(s.Direction)),
		"",
		m.theme.Label.Render("Amount") + m.theme.Balance.Render("$"+s.Amount),
		m.theme.Label.Render("Via") + s.ChannelName,
		m.theme.Label.Render(direction) + s.FullIdentifier,
		"",
		m.theme.Subtitle.Render("y/Enter to confirm · n/Esc to go back"),
	}
	return m.theme.Modal.Render(strings.Join(lines, "\n"))
}

func (m Model) renderHistory() string {
	txns := m.snapshot.Transactions
	if len(txns) == 0 {
		return m.theme.RoundedBox.Render(m.theme.Disabled.Render("No transactions yet"))
	}

	start := m.historyOffset
	if start >= len(txns) {
		start = len(txns) - 1
	}
	end := start + m.config.HistoryRows
	if m.config.HistoryRows <= 0 || end > len(txns) {
		end = len(txns)
	}

	rows := make([]string, 0, end-start+1)
	for _, txn := range txns[start:end] {
		rows = append(rows, m.renderTransaction(txn))
	}
	rows = append(rows, m.theme.Subtitle.Render(fmt.Sprintf("%d-%d of %d", start+1, end, len(txns))))
	return m.theme.RoundedBox.Render(strings.Join(rows, "\n"))
}

func (m Model) renderTransaction(txn model.Transaction) string {
	date := "          "
	if !txn.CreatedAt.IsZero() {
		date = txn.CreatedAt.Local().Format("2006-01-02")
	}

	amount := m.theme.Credit.Render(fmt.Sprintf("%12s", "+"+cli.FormatMoney(txn.Amount)))
	if txn.Type == model.TransactionWithdrawal {
		amount = m.theme.Debit.Render(fmt.Sprintf("%12s", cli.FormatMoney(txn.SignedAmount())))
	}

	return fmt.Sprintf("%s  %s  %s", m.theme.Subtitle.Render(date), amount, txn.Description)
}

func (m Model) renderHelp() string {
	return "\n" + m.help.View(m.keymap)
}
