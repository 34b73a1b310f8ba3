package tui

import (
	"errors"
	"strings"

	"github.com/Veraticus/till/internal/catalog"
	"github.com/Veraticus/till/internal/intent"
	"github.com/Veraticus/till/internal/model"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// field identifies one row of a transfer form.
type field int

const (
	fieldAmount field = iota
	fieldMethod
	fieldCountry
	fieldPhone
	fieldBank
	fieldAccount
)

// formModel is the editable view of one intent.Form. The form's intent
// status decides what the view shows and which keys apply.
type formModel struct {
	form       *intent.Form
	catalog    *catalog.Catalog
	amount     textinput.Model
	phone      textinput.Model
	account    textinput.Model
	method     model.ChannelType
	countryIdx int
	bankIdx    int
	focus      int
}

func newFormModel(form *intent.Form, cat *catalog.Catalog, defaultCountry string) formModel {
	amount := textinput.New()
	amount.Placeholder = "0.00"
	amount.Prompt = "$ "
	amount.CharLimit = 12

	phone := textinput.New()
	phone.Placeholder = "712345678"
	phone.CharLimit = 16

	account := textinput.New()
	account.Placeholder = "Account number"
	account.CharLimit = 34

	countryIdx := cat.CountryIndex(defaultCountry)
	if countryIdx < 0 {
		countryIdx = 0
	}

	f := formModel{
		form:       form,
		catalog:    cat,
		amount:     amount,
		phone:      phone,
		account:    account,
		method:     model.ChannelMobileMoney,
		countryIdx: countryIdx,
	}
	f.syncFocus()
	return f
}

// fields lists the rows visible for the selected method. A bank field never
// shows for mobile money and vice versa.
func (f formModel) fields() []field {
	if f.method == model.ChannelBankTransfer {
		return []field{fieldAmount, fieldMethod, fieldBank, fieldAccount}
	}
	return []field{fieldAmount, fieldMethod, fieldCountry, fieldPhone}
}

func (f formModel) focused() field {
	fields := f.fields()
	if f.focus < 0 || f.focus >= len(fields) {
		return fieldAmount
	}
	return fields[f.focus]
}

// status is the live status of the underlying intent.
func (f formModel) status() model.IntentStatus {
	return f.form.Intent().Status
}

// editable reports whether the form accepts input.
func (f formModel) editable() bool {
	return f.form.CanSubmit()
}

// channel builds the tagged channel from the inputs. Only the fields of the
// selected method are read.
func (f formModel) channel() model.Channel {
	if f.method == model.ChannelBankTransfer {
		banks := f.catalog.Banks()
		var bankID string
		if f.bankIdx >= 0 && f.bankIdx < len(banks) {
			bankID = banks[f.bankIdx].ID
		}
		return model.BankTransfer{
			BankID:        bankID,
			AccountNumber: strings.TrimSpace(f.account.Value()),
		}
	}

	countries := f.catalog.Countries()
	var code string
	if f.countryIdx >= 0 && f.countryIdx < len(countries) {
		code = countries[f.countryIdx].CallingCode
	}
	return model.MobileMoney{
		CountryCallingCode: code,
		LocalNumber:        catalog.NormalizeLocalNumber(f.phone.Value(), code),
	}
}

// submit validates the inputs and asks for confirmation. On success the
// summary to show is returned.
func (f *formModel) submit() (model.IntentSummary, error) {
	if _, err := f.form.Validate(f.amount.Value(), f.channel()); err != nil {
		return model.IntentSummary{}, err
	}
	return f.form.RequestConfirmation()
}

// reset clears the inputs after a settled intent. Method and selections are
// kept so a repeat transfer is quick.
func (f *formModel) reset() {
	f.amount.SetValue("")
	f.phone.SetValue("")
	f.account.SetValue("")
	f.focus = 0
	f.syncFocus()
}

// clear discards both the inputs and the current intent.
func (f *formModel) clear() error {
	if err := f.form.Reset(); err != nil {
		return err
	}
	f.reset()
	return nil
}

func (f *formModel) moveFocus(delta int) {
	n := len(f.fields())
	f.focus = (f.focus + delta + n) % n
	f.syncFocus()
}

// cycle changes the option of the focused selector.
func (f *formModel) cycle(delta int) {
	switch f.focused() {
	case fieldMethod:
		if f.method == model.ChannelMobileMoney {
			f.method = model.ChannelBankTransfer
		} else {
			f.method = model.ChannelMobileMoney
		}
	case fieldCountry:
		f.countryIdx = wrap(f.countryIdx+delta, len(f.catalog.Countries()))
	case fieldBank:
		f.bankIdx = wrap(f.bankIdx+delta, len(f.catalog.Banks()))
	}
}

func wrap(i, n int) int {
	if n == 0 {
		return 0
	}
	return (i%n + n) % n
}

func (f *formModel) syncFocus() {
	f.amount.Blur()
	f.phone.Blur()
	f.account.Blur()

	switch f.focused() {
	case fieldAmount:
		f.amount.Focus()
	case fieldPhone:
		f.phone.Focus()
	case fieldAccount:
		f.account.Focus()
	}
}

// updateInput forwards a message to the focused text input.
func (f *formModel) updateInput(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	switch f.focused() {
	case fieldAmount:
		f.amount, cmd = f.amount.Update(msg)
	case fieldPhone:
		f.phone, cmd = f.phone.Update(msg)
	case fieldAccount:
		f.account, cmd = f.account.Update(msg)
	}
	return cmd
}

// validationMessage extracts the user-facing text of a submit error.
func validationMessage(err error) string {
	var verr *intent.ValidationError
	if errors.As(err, &verr) {
		return verr.Message
	}
	return err.Error()
}
