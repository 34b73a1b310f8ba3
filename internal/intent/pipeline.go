package intent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Veraticus/till/internal/api"
	"github.com/Veraticus/till/internal/model"
	"github.com/Veraticus/till/internal/service"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	// DefaultConfirmTimeout bounds a single money-moving call.
	DefaultConfirmTimeout = 30 * time.Second
	// DefaultRefreshTimeout bounds the snapshot refresh after a call.
	DefaultRefreshTimeout = 10 * time.Second
)

// Config wires a Pipeline to its collaborators.
type Config struct {
	Transfers service.TransferAPI
	Account   Refresher
	Validator *Validator
	// NewKey mints idempotency keys. Defaults to uuid.NewString.
	NewKey         func() string
	ConfirmTimeout time.Duration
	RefreshTimeout time.Duration
}

// Pipeline owns the withdraw and deposit forms of one dashboard.
type Pipeline struct {
	transfers      service.TransferAPI
	account        Refresher
	validator      *Validator
	newKey         func() string
	withdraw       *Form
	deposit        *Form
	timeout        time.Duration
	refreshTimeout time.Duration
}

// NewPipeline creates a pipeline with empty Draft forms.
func NewPipeline(cfg Config) (*Pipeline, error) {
	if cfg.Transfers == nil {
		return nil, errors.New("transfer API is required")
	}
	if cfg.Account == nil {
		return nil, errors.New("account is required")
	}
	if cfg.Validator == nil {
		cfg.Validator = NewValidator(DefaultLimits(), nil)
	}
	if cfg.NewKey == nil {
		cfg.NewKey = uuid.NewString
	}
	if cfg.ConfirmTimeout <= 0 {
		cfg.ConfirmTimeout = DefaultConfirmTimeout
	}
	if cfg.RefreshTimeout <= 0 {
		cfg.RefreshTimeout = DefaultRefreshTimeout
	}

	p := &Pipeline{
		transfers:      cfg.Transfers,
		account:        cfg.Account,
		validator:      cfg.Validator,
		newKey:         cfg.NewKey,
		timeout:        cfg.ConfirmTimeout,
		refreshTimeout: cfg.RefreshTimeout,
	}
	p.withdraw = newForm(p, model.KindWithdrawal)
	p.deposit = newForm(p, model.KindDeposit)
	return p, nil
}

// Withdraw returns the withdrawal form.
func (p *Pipeline) Withdraw() *Form { return p.withdraw }

// Deposit returns the deposit form.
func (p *Pipeline) Deposit() *Form { return p.deposit }

// Form returns the form for kind.
func (p *Pipeline) Form(kind model.IntentKind) *Form {
	if kind == model.KindDeposit {
		return p.deposit
	}
	return p.withdraw
}

// Validator returns the validator the forms use.
func (p *Pipeline) Validator() *Validator { return p.validator }

// Outcome is the result of a confirmed intent.
type Outcome struct {
	// RefreshErr is set when the post-call snapshot refresh failed. The
	// optimistic balance is still applied.
	RefreshErr error
	NewBalance *decimal.Decimal
	Intent     model.TransactionIntent
}

// Message is the line shown to the user for a successful outcome.
func (o Outcome) Message() string {
	s := o.Intent.Summary()
	switch o.Intent.Status {
	case model.StatusDispatched:
		return fmt.Sprintf("Payment prompt for %s sent to %s. Approve it on your phone to complete the deposit.",
			s.Amount, s.MaskedIdentifier)
	case model.StatusSettled:
		if o.Intent.Kind == model.KindDeposit {
			return fmt.Sprintf("Successfully deposited %s from %s", s.Amount, s.ChannelName)
		}
		return fmt.Sprintf("Successfully withdrew %s to %s", s.Amount, s.ChannelName)
	default:
		return o.Intent.Error
	}
}

// Form is the state machine for one direction. Exactly one intent is
// authoritative at a time.
type Form struct {
	pipeline *Pipeline
	kind     model.IntentKind
	current  model.TransactionIntent
	mu       sync.Mutex
}

func newForm(p *Pipeline, kind model.IntentKind) *Form {
	return &Form{
		pipeline: p,
		kind:     kind,
		current:  emptyDraft(kind),
	}
}

func emptyDraft(kind model.IntentKind) model.TransactionIntent {
	return model.TransactionIntent{Kind: kind, Status: model.StatusDraft}
}

// Kind is the direction this form moves money.
func (f *Form) Kind() model.IntentKind { return f.kind }

// Intent returns the current intent.
func (f *Form) Intent() model.TransactionIntent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.current
}

// Busy reports whether a remote call is outstanding.
func (f *Form) Busy() bool {
	return f.Intent().Status == model.StatusSubmitting
}

// CanSubmit reports whether the form accepts new input.
func (f *Form) CanSubmit() bool {
	s := f.Intent().Status
	return s == model.StatusDraft || s == model.StatusFailed
}

// Validate checks the input and, on success, makes the resulting Draft the
// form's intent. On failure the current intent is kept and the validation
// error is returned; no network call is made either way.
func (f *Form) Validate(rawAmount string, channel model.Channel) (model.TransactionIntent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch f.current.Status {
	case model.StatusSubmitting:
		return f.current, ErrBusy
	case model.StatusPendingConfirmation:
		return f.current, transitionError("edit", f.current.Status)
	}

	var (
		draft model.TransactionIntent
		err   error
	)
	if f.kind == model.KindDeposit {
		draft, err = f.pipeline.validator.ValidateDeposit(rawAmount, channel)
	} else {
		snap := f.pipeline.account.Snapshot()
		if snap.Stale {
			return f.current, newValidationError(CodeStaleBalance,
				"Balance is out of date. Refresh before withdrawing.")
		}
		draft, err = f.pipeline.validator.ValidateWithdrawal(rawAmount, snap.Balance, channel)
	}
	if err != nil {
		return f.current, err
	}

	f.current = draft
	return draft, nil
}

// RequestConfirmation moves a Draft to PendingConfirmation and returns the
// summary to show. The intent's fields are not changed.
func (f *Form) RequestConfirmation() (model.IntentSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	pending, err := RequestConfirmation(f.current, f.pipeline.newKey)
	if err != nil {
		return model.IntentSummary{}, err
	}
	f.current = pending
	return pending.Summary(), nil
}

// Cancel returns a PendingConfirmation intent to its Draft without calling
// the server.
func (f *Form) Cancel() (model.TransactionIntent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	draft, err := Cancel(f.current)
	if err != nil {
		return f.current, err
	}
	f.current = draft
	return draft, nil
}

// Reset discards whatever the form holds unless a call is outstanding.
func (f *Form) Reset() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.current.Status == model.StatusSubmitting {
		return ErrBusy
	}
	f.current = emptyDraft(f.kind)
	return nil
}

// Confirm performs the single remote call for the pending intent. A second
// Confirm while the first is outstanding returns ErrBusy and makes no call.
// On success the form resets to an empty Draft before the account is
// refreshed; on failure it holds the Failed intent with the entered values.
func (f *Form) Confirm(ctx context.Context) (Outcome, error) {
	f.mu.Lock()
	switch f.current.Status {
	case model.StatusSubmitting:
		f.mu.Unlock()
		return Outcome{}, ErrBusy
	case model.StatusPendingConfirmation:
	default:
		status := f.current.Status
		f.mu.Unlock()
		return Outcome{}, transitionError("confirm", status)
	}
	f.current.Status = model.StatusSubmitting
	f.current.Error = ""
	submitting := f.current
	f.mu.Unlock()

	outcome, err := f.pipeline.dispatch(ctx, submitting)

	f.mu.Lock()
	if err != nil {
		f.current = outcome.Intent
		f.mu.Unlock()
		return outcome, err
	}
	f.current = emptyDraft(f.kind)
	f.mu.Unlock()

	outcome.RefreshErr = f.pipeline.reconcile(ctx)
	return outcome, nil
}

// RequestConfirmation is the pure Draft → PendingConfirmation transition.
// It only changes the status and mints the idempotency key.
func RequestConfirmation(draft model.TransactionIntent, newKey func() string) (model.TransactionIntent, error) {
	if draft.Status != model.StatusDraft {
		return draft, transitionError("request confirmation", draft.Status)
	}
	if draft.Channel == nil || !draft.Amount.IsPositive() {
		return draft, transitionError("request confirmation", draft.Status)
	}

	pending := draft
	pending.Status = model.StatusPendingConfirmation
	pending.IdempotencyKey = newKey()
	return pending, nil
}

// Cancel is the pure PendingConfirmation → Draft transition. It yields the
// exact Draft that RequestConfirmation was given.
func Cancel(pending model.TransactionIntent) (model.TransactionIntent, error) {
	if pending.Status != model.StatusPendingConfirmation {
		return pending, transitionError("cancel", pending.Status)
	}

	draft := pending
	draft.Status = model.StatusDraft
	draft.IdempotencyKey = ""
	return draft, nil
}

// dispatch issues the remote call for a Submitting intent and reconciles
// the account snapshot.
func (p *Pipeline) dispatch(ctx context.Context, intent model.TransactionIntent) (Outcome, error) {
	callCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	log := slog.With(
		"kind", intent.Kind,
		"channel", intent.Channel.Type(),
		"amount", intent.Amount.StringFixed(2),
		"to", intent.Channel.MaskedIdentifier(),
		"idempotency_key", intent.IdempotencyKey)
	log.Info("Submitting transaction intent")

	var (
		newBalance *decimal.Decimal
		status     = model.StatusSettled
		err        error
	)

	switch {
	case intent.Kind == model.KindWithdrawal:
		var balance decimal.Decimal
		balance, err = p.transfers.Withdraw(callCtx, service.WithdrawRequest{
			Amount:         intent.Amount,
			Channel:        intent.Channel,
			IdempotencyKey: intent.IdempotencyKey,
		})
		newBalance = &balance

	case intent.Channel.Type() == model.ChannelMobileMoney:
		mm, _ := intent.Channel.(model.MobileMoney)
		var dispatch service.MobileMoneyDispatch
		dispatch, err = p.transfers.InitiateMobileMoneyDeposit(callCtx, service.MobileMoneyDepositRequest{
			Phone:          mm.FullNumber(),
			Amount:         intent.Amount,
			IdempotencyKey: intent.IdempotencyKey,
		})
		intent.Reference = dispatch.CheckoutRequestID
		status = model.StatusDispatched

	default:
		bank, _ := intent.Channel.(model.BankTransfer)
		var balance decimal.Decimal
		balance, err = p.transfers.Deposit(callCtx, service.DepositRequest{
			Amount:         intent.Amount,
			Bank:           bank,
			IdempotencyKey: intent.IdempotencyKey,
		})
		newBalance = &balance
	}

	if err != nil {
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			err = fmt.Errorf("no response from the bank after %s: %w", p.timeout, err)
		}
		intent.Status = model.StatusFailed
		intent.Error = api.UserMessage(err)
		log.Warn("Transaction intent failed", "error", err)
		return Outcome{Intent: intent}, err
	}

	intent.Status = status
	outcome := Outcome{Intent: intent}

	if newBalance != nil {
		p.account.ApplyBalance(*newBalance)
		outcome.NewBalance = newBalance
	}

	log.Info("Transaction intent completed", "status", intent.Status, "reference", intent.Reference)
	return outcome, nil
}

// reconcile refreshes the account after a successful call. A failure does
// not undo the optimistic balance.
func (p *Pipeline) reconcile(ctx context.Context) error {
	refreshCtx, cancel := context.WithTimeout(ctx, p.refreshTimeout)
	defer cancel()

	if _, err := p.account.Refresh(refreshCtx); err != nil {
		slog.Warn("Account refresh after transaction failed", "error", err)
		return err
	}
	return nil
}
