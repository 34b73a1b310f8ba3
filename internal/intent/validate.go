// Package intent runs withdrawals and deposits through validation, an
// explicit confirmation step, a single remote call and reconciliation of the
// cached account snapshot.
package intent

import (
	"regexp"
	"strings"

	"github.com/Veraticus/till/internal/catalog"
	"github.com/Veraticus/till/internal/model"
	"github.com/shopspring/decimal"
)

// Limits bounds what the client accepts before calling the server.
type Limits struct {
	WithdrawalMin           decimal.Decimal
	DepositMin              decimal.Decimal
	DepositMax              decimal.Decimal
	MinPhoneDigits          int
	MaxPhoneDigits          int
	MinDepositAccountDigits int
}

// DefaultLimits returns the limits the banking API enforces.
func DefaultLimits() Limits {
	return Limits{
		WithdrawalMin:           decimal.NewFromInt(10),
		DepositMin:              decimal.NewFromInt(1),
		DepositMax:              decimal.NewFromInt(50000),
		MinPhoneDigits:          9,
		MaxPhoneDigits:          12,
		MinDepositAccountDigits: 5,
	}
}

// Validator checks user input and builds Draft intents.
type Validator struct {
	catalog *catalog.Catalog
	limits  Limits
}

// NewValidator creates a validator. A nil catalog skips the bank and country
// membership checks.
func NewValidator(limits Limits, cat *catalog.Catalog) *Validator {
	return &Validator{limits: limits, catalog: cat}
}

// Limits returns the limits in force.
func (v *Validator) Limits() Limits {
	return v.limits
}

// plainAmount matches an unsigned decimal without exponent.
var plainAmount = regexp.MustCompile(`^\d+(\.\d+)?$`)

// ParseAmount turns form input into a positive amount. Only plain decimals
// are accepted; thousands separators are ignored.
func ParseAmount(raw string) (decimal.Decimal, error) {
	raw = strings.TrimSpace(strings.ReplaceAll(raw, ",", ""))
	if !plainAmount.MatchString(raw) {
		return decimal.Zero, newValidationError(CodeInvalidAmount, "Please enter a valid amount")
	}

	amount, err := decimal.NewFromString(raw)
	if err != nil || !amount.IsPositive() {
		return decimal.Zero, newValidationError(CodeInvalidAmount, "Please enter a valid amount")
	}

	return amount, nil
}

// ValidateWithdrawal checks a withdrawal against the cached balance. Amount
// rules are checked before channel rules.
func (v *Validator) ValidateWithdrawal(rawAmount string, balance decimal.Decimal, channel model.Channel) (model.TransactionIntent, error) {
	amount, err := ParseAmount(rawAmount)
	if err != nil {
		return model.TransactionIntent{}, err
	}

	if amount.LessThan(v.limits.WithdrawalMin) {
		return model.TransactionIntent{}, newValidationError(CodeBelowMinimum,
			"Minimum withdrawal amount is %s", v.limits.WithdrawalMin.StringFixed(2))
	}

	if amount.GreaterThan(balance) {
		return model.TransactionIntent{}, newValidationError(CodeInsufficientBalance, "Insufficient balance")
	}

	resolved, err := v.checkChannel(channel, 0)
	if err != nil {
		return model.TransactionIntent{}, err
	}

	return newDraft(model.KindWithdrawal, amount, resolved), nil
}

// ValidateDeposit checks a deposit. Amount rules are checked before channel
// rules.
func (v *Validator) ValidateDeposit(rawAmount string, channel model.Channel) (model.TransactionIntent, error) {
	amount, err := ParseAmount(rawAmount)
	if err != nil {
		return model.TransactionIntent{}, err
	}

	if amount.LessThan(v.limits.DepositMin) {
		return model.TransactionIntent{}, newValidationError(CodeBelowMinimum,
			"Minimum deposit amount is %s", v.limits.DepositMin.StringFixed(2))
	}

	if amount.GreaterThan(v.limits.DepositMax) {
		return model.TransactionIntent{}, newValidationError(CodeAboveMaximum,
			"Maximum deposit amount is %s", v.limits.DepositMax.StringFixed(2))
	}

	resolved, err := v.checkChannel(channel, v.limits.MinDepositAccountDigits)
	if err != nil {
		return model.TransactionIntent{}, err
	}

	return newDraft(model.KindDeposit, amount, resolved), nil
}

// checkChannel enforces the per-channel rules and fills display names from
// the catalog. minAccountLen of zero only requires a non-empty account.
func (v *Validator) checkChannel(channel model.Channel, minAccountLen int) (model.Channel, error) {
	switch ch := channel.(type) {
	case model.MobileMoney:
		return v.checkMobileMoney(ch)
	case model.BankTransfer:
		return v.checkBank(ch, minAccountLen)
	default:
		return nil, newValidationError(CodeMissingChannelDetails, "Choose M-PESA or a bank")
	}
}

func (v *Validator) checkMobileMoney(ch model.MobileMoney) (model.Channel, error) {
	code := strings.TrimSpace(ch.CountryCallingCode)
	if code == "" {
		return nil, newValidationError(CodeMissingChannelDetails, "Select a country code")
	}
	if !strings.HasPrefix(code, "+") {
		code = "+" + code
	}
	if v.catalog != nil {
		if _, ok := v.catalog.LookupCallingCode(code); !ok {
			return nil, newValidationError(CodeMissingChannelDetails, "Unsupported country code %s", code)
		}
	}

	number := strings.TrimSpace(ch.LocalNumber)
	if !isDigits(number) || len(number) < v.limits.MinPhoneDigits {
		return nil, newValidationError(CodeMissingChannelDetails,
			"Enter a phone number of at least %d digits", v.limits.MinPhoneDigits)
	}
	if v.limits.MaxPhoneDigits > 0 && len(number) > v.limits.MaxPhoneDigits {
		return nil, newValidationError(CodeMissingChannelDetails,
			"Phone number cannot be longer than %d digits", v.limits.MaxPhoneDigits)
	}

	return model.MobileMoney{CountryCallingCode: code, LocalNumber: number}, nil
}

func (v *Validator) checkBank(ch model.BankTransfer, minAccountLen int) (model.Channel, error) {
	bankID := strings.TrimSpace(ch.BankID)
	if bankID == "" {
		return nil, newValidationError(CodeMissingChannelDetails, "Select a bank")
	}

	name := ch.BankDisplayName
	if v.catalog != nil {
		bank, ok := v.catalog.LookupBank(bankID)
		if !ok {
			return nil, newValidationError(CodeMissingChannelDetails, "Unknown bank %q", bankID)
		}
		bankID, name = bank.ID, bank.Name
	}

	account := strings.TrimSpace(ch.AccountNumber)
	if account == "" {
		return nil, newValidationError(CodeMissingChannelDetails, "Enter an account number")
	}
	if len(account) < minAccountLen {
		return nil, newValidationError(CodeMissingChannelDetails,
			"Account number must be at least %d characters", minAccountLen)
	}

	return model.BankTransfer{BankID: bankID, BankDisplayName: name, AccountNumber: account}, nil
}

func newDraft(kind model.IntentKind, amount decimal.Decimal, channel model.Channel) model.TransactionIntent {
	return model.TransactionIntent{
		Kind:    kind,
		Amount:  amount.Round(2),
		Channel: channel,
		Status:  model.StatusDraft,
	}
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
