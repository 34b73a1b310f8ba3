// Package model defines the core domain models used throughout the application.
package model

import (
	"strings"

	"github.com/shopspring/decimal"
)

// IntentKind is the direction money moves for an intent.
type IntentKind string

// Intent kinds.
const (
	KindWithdrawal IntentKind = "withdrawal"
	KindDeposit    IntentKind = "deposit"
)

// IntentStatus tracks an intent through the confirmation pipeline.
type IntentStatus string

// Intent status constants.
const (
	StatusDraft               IntentStatus = "DRAFT"
	StatusPendingConfirmation IntentStatus = "PENDING_CONFIRMATION"
	StatusSubmitting          IntentStatus = "SUBMITTING"
	StatusSettled             IntentStatus = "SETTLED"
	// StatusDispatched means a mobile-money push was sent to the payer's
	// phone. Funds are not confirmed until the provider settles out of band.
	StatusDispatched IntentStatus = "DISPATCHED"
	StatusFailed     IntentStatus = "FAILED"
)

// IsTerminal reports whether no further transition is expected from s.
func (s IntentStatus) IsTerminal() bool {
	return s == StatusSettled || s == StatusDispatched || s == StatusFailed
}

// ChannelType names a payment rail.
type ChannelType string

// Channel types, spelled the way the API expects them in withdrawal_method.
const (
	ChannelMobileMoney  ChannelType = "mpesa"
	ChannelBankTransfer ChannelType = "bank"
)

// Channel is the payment rail chosen for an intent. It is implemented only by
// MobileMoney and BankTransfer.
type Channel interface {
	Type() ChannelType
	DisplayName() string
	// Identifier is the full account identifier (phone or account number).
	Identifier() string
	// MaskedIdentifier hides all but the last four characters of Identifier.
	MaskedIdentifier() string
	isChannel()
}

// MobileMoney pays to or from a phone number.
type MobileMoney struct {
	CountryCallingCode string // e.g. "+254"
	LocalNumber        string // digits only, no leading zero
}

// Type implements Channel.
func (MobileMoney) Type() ChannelType { return ChannelMobileMoney }

// DisplayName implements Channel.
func (MobileMoney) DisplayName() string { return "M-PESA" }

// FullNumber is the calling code digits followed by the local number, the
// form the mobile-money endpoint expects (e.g. 254712345678).
func (m MobileMoney) FullNumber() string {
	return strings.TrimPrefix(m.CountryCallingCode, "+") + m.LocalNumber
}

// Identifier implements Channel.
func (m MobileMoney) Identifier() string {
	return m.CountryCallingCode + m.LocalNumber
}

// MaskedIdentifier implements Channel.
func (m MobileMoney) MaskedIdentifier() string {
	return m.CountryCallingCode + mask(m.LocalNumber)
}

func (MobileMoney) isChannel() {}

// BankTransfer pays to or from a bank account.
type BankTransfer struct {
	BankID          string
	BankDisplayName string
	AccountNumber   string
}

// Type implements Channel.
func (BankTransfer) Type() ChannelType { return ChannelBankTransfer }

// DisplayName implements Channel.
func (b BankTransfer) DisplayName() string {
	if b.BankDisplayName == "" {
		return b.BankID
	}
	return b.BankDisplayName
}

// Identifier implements Channel.
func (b BankTransfer) Identifier() string { return b.AccountNumber }

// MaskedIdentifier implements Channel.
func (b BankTransfer) MaskedIdentifier() string { return mask(b.AccountNumber) }

func (BankTransfer) isChannel() {}

func mask(s string) string {
	if len(s) <= 4 {
		return s
	}
	return strings.Repeat("•", len(s)-4) + s[len(s)-4:]
}

// TransactionIntent is a user-declared desire to move money. It lives only
// in memory and is consumed by a successful remote call or discarded.
type TransactionIntent struct {
	Amount  decimal.Decimal
	Channel Channel
	Kind    IntentKind
	Status  IntentStatus
	// IdempotencyKey is minted when confirmation is requested and sent with
	// the remote call.
	IdempotencyKey string
	// Reference is the provider request id returned for mobile-money pushes.
	Reference string
	// Error holds the user-visible message of the last failure.
	Error string
}

// IntentSummary is the human-readable view shown at the confirmation step.
type IntentSummary struct {
	Direction        string
	Amount           string
	ChannelName      string
	MaskedIdentifier string
	FullIdentifier   string
}

// Summary builds the confirmation view of the intent.
func (t TransactionIntent) Summary() IntentSummary {
	s := IntentSummary{
		Direction: "Withdraw",
		Amount:    t.Amount.StringFixed(2),
	}
	if t.Kind == KindDeposit {
		s.Direction = "Deposit"
	}
	if t.Channel != nil {
		s.ChannelName = t.Channel.DisplayName()
		s.MaskedIdentifier = t.Channel.MaskedIdentifier()
		s.FullIdentifier = t.Channel.Identifier()
	}
	return s
}
