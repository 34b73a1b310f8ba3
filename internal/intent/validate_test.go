package intent

import (
	"testing"

	"github.com/Veraticus/till/internal/catalog"
	"github.com/Veraticus/till/internal/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var kenyanPhone = model.MobileMoney{CountryCallingCode: "+254", LocalNumber: "712345678"}

func newTestValidator() *Validator {
	return NewValidator(DefaultLimits(), catalog.Default())
}

func TestValidateWithdrawal_AmountRules(t *testing.T) {
	v := newTestValidator()
	balance := decimal.RequireFromString("100.00")

	tests := []struct {
		name    string
		amount  string
		wantErr error
	}{
		{"negative", "-5", ErrInvalidAmount},
		{"zero", "0", ErrInvalidAmount},
		{"empty", "", ErrInvalidAmount},
		{"garbage", "ten", ErrInvalidAmount},
		{"exponent", "5e1", ErrInvalidAmount},
		{"negative exponent", "1e-3", ErrInvalidAmount},
		{"huge exponent", "1e99999999", ErrInvalidAmount},
		{"leading dot", ".5", ErrInvalidAmount},
		{"below minimum", "5", ErrBelowMinimum},
		{"just below minimum", "9.99", ErrBelowMinimum},
		{"at minimum", "10", nil},
		{"with thousands separator", "1,0", nil},
		{"at balance", "100", nil},
		{"fractional cent over balance", "100.001", ErrInsufficientBalance},
		{"over balance", "150", ErrInsufficientBalance},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			draft, err := v.ValidateWithdrawal(tt.amount, balance, kenyanPhone)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, model.StatusDraft, draft.Status)
			assert.Equal(t, model.KindWithdrawal, draft.Kind)
		})
	}
}

func TestValidateWithdrawal_RejectsIffOutOfRange(t *testing.T) {
	v := newTestValidator()
	balance := decimal.RequireFromString("100.00")
	minimum := decimal.NewFromInt(10)

	for cents := int64(-200); cents <= 20000; cents += 37 {
		a := decimal.New(cents, -2)
		_, err := v.ValidateWithdrawal(a.String(), balance, kenyanPhone)

		wantReject := !a.IsPositive() || a.LessThan(minimum) || a.GreaterThan(balance)
		assert.Equal(t, wantReject, err != nil, "amount %s", a)
	}
}

func TestValidateDeposit_RejectsIffOutOfRange(t *testing.T) {
	v := newTestValidator()
	bank := model.BankTransfer{BankID: "kcb", AccountNumber: "1234567890"}

	for _, raw := range []string{"-1", "0", "0.5", "0.99", "1", "1.01", "49999.99", "50000", "50000.01", "60000"} {
		a := decimal.RequireFromString(raw)
		_, err := v.ValidateDeposit(raw, bank)

		wantReject := !a.IsPositive() || a.LessThan(decimal.NewFromInt(1)) || a.GreaterThan(decimal.NewFromInt(50000))
		assert.Equal(t, wantReject, err != nil, "amount %s", raw)
	}
}

func TestValidateWithdrawal_BelowMinimumMakesNoCall(t *testing.T) {
	mock, p := newTestPipeline(t, "100.00")

	_, err := p.Withdraw().Validate("5", kenyanPhone)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, CodeBelowMinimum, verr.Code)
	withdrawals, _, _ := mock.Calls()
	assert.Empty(t, withdrawals)
}

func TestValidateWithdrawal_InsufficientBalance(t *testing.T) {
	v := newTestValidator()

	_, err := v.ValidateWithdrawal("150", decimal.RequireFromString("100.00"), kenyanPhone)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, CodeInsufficientBalance, verr.Code)
	assert.Equal(t, "Insufficient balance", verr.Message)
}

func TestValidateDeposit_AmountCheckedBeforeChannel(t *testing.T) {
	v := newTestValidator()

	// No channel at all; the amount error must still win.
	_, err := v.ValidateDeposit("60000", nil)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, CodeAboveMaximum, verr.Code)
}

func TestValidate_BankChannel(t *testing.T) {
	v := newTestValidator()
	balance := decimal.NewFromInt(1000)

	tests := []struct {
		name    string
		channel model.BankTransfer
		deposit bool
		wantErr bool
	}{
		{"no bank", model.BankTransfer{AccountNumber: "12345678"}, false, true},
		{"unknown bank", model.BankTransfer{BankID: "nope", AccountNumber: "12345678"}, false, true},
		{"empty account", model.BankTransfer{BankID: "kcb"}, false, true},
		{"blank account", model.BankTransfer{BankID: "kcb", AccountNumber: "   "}, false, true},
		{"short account on withdrawal", model.BankTransfer{BankID: "kcb", AccountNumber: "12"}, false, false},
		{"short account on deposit", model.BankTransfer{BankID: "kcb", AccountNumber: "1234"}, true, true},
		{"valid deposit", model.BankTransfer{BankID: "equity", AccountNumber: "12345"}, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var err error
			if tt.deposit {
				_, err = v.ValidateDeposit("50", tt.channel)
			} else {
				_, err = v.ValidateWithdrawal("50", balance, tt.channel)
			}
			if tt.wantErr {
				require.ErrorIs(t, err, ErrMissingChannelDetails)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestValidate_BankFilledFromCatalog(t *testing.T) {
	v := newTestValidator()

	draft, err := v.ValidateDeposit("50", model.BankTransfer{BankID: "KCB", AccountNumber: "1234567"})
	require.NoError(t, err)

	bank, ok := draft.Channel.(model.BankTransfer)
	require.True(t, ok)
	assert.Equal(t, "kcb", bank.BankID)
	assert.NotEmpty(t, bank.BankDisplayName)
}

func TestValidate_MobileMoneyChannel(t *testing.T) {
	v := newTestValidator()
	balance := decimal.NewFromInt(1000)

	tests := []struct {
		name    string
		channel model.MobileMoney
		wantErr bool
	}{
		{"valid", kenyanPhone, false},
		{"code without plus", model.MobileMoney{CountryCallingCode: "254", LocalNumber: "712345678"}, false},
		{"no code", model.MobileMoney{LocalNumber: "712345678"}, true},
		{"unknown code", model.MobileMoney{CountryCallingCode: "+999", LocalNumber: "712345678"}, true},
		{"too short", model.MobileMoney{CountryCallingCode: "+254", LocalNumber: "71234567"}, true},
		{"too long", model.MobileMoney{CountryCallingCode: "+254", LocalNumber: "7123456789012"}, true},
		{"not digits", model.MobileMoney{CountryCallingCode: "+254", LocalNumber: "71234567a"}, true},
		{"letter inside digits", model.MobileMoney{CountryCallingCode: "+254", LocalNumber: "71a2345678"}, true},
		{"empty", model.MobileMoney{CountryCallingCode: "+254"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			draft, err := v.ValidateWithdrawal("50", balance, tt.channel)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrMissingChannelDetails)
				return
			}
			require.NoError(t, err)
			mm, ok := draft.Channel.(model.MobileMoney)
			require.True(t, ok)
			assert.Equal(t, "+254", mm.CountryCallingCode)
		})
	}
}

func TestValidate_RoundsToCents(t *testing.T) {
	v := newTestValidator()

	draft, err := v.ValidateDeposit("12.345", kenyanPhone)
	require.NoError(t, err)
	assert.Equal(t, "12.35", draft.Amount.StringFixed(2))
}

func TestValidator_NilCatalogSkipsMembership(t *testing.T) {
	v := NewValidator(DefaultLimits(), nil)

	_, err := v.ValidateDeposit("50", model.BankTransfer{BankID: "custom", BankDisplayName: "Custom", AccountNumber: "12345"})
	require.NoError(t, err)

	_, err = v.ValidateDeposit("50", model.MobileMoney{CountryCallingCode: "+999", LocalNumber: "712345678"})
	require.NoError(t, err)
}

func TestValidateDeposit_RejectsExponentNotation(t *testing.T) {
	v := newTestValidator()

	for _, raw := range []string{"5e1", "1E2", "1e-3", "1e99999999", "0x10", "+50", "50.", " 5 0 "} {
		t.Run(raw, func(t *testing.T) {
			_, err := v.ValidateDeposit(raw, kenyanPhone)
			require.ErrorIs(t, err, ErrInvalidAmount)
		})
	}
}
