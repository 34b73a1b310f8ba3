package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/Veraticus/till/internal/model"
	"github.com/Veraticus/till/internal/service"
	"github.com/shopspring/decimal"
)

// withdrawBody mirrors the withdraw endpoint. Absent channel fields are sent
// as explicit nulls.
type withdrawBody struct {
	PhoneCountryCode *string     `json:"phone_country_code"`
	PhoneNumber      *string     `json:"phone_number"`
	BankID           *string     `json:"bank_id"`
	BankName         *string     `json:"bank_name"`
	AccountNumber    *string     `json:"account_number"`
	Amount           json.Number `json:"amount"`
	WithdrawalMethod string      `json:"withdrawal_method"`
}

type depositBody struct {
	BankID        *string     `json:"bank_id"`
	BankName      *string     `json:"bank_name"`
	AccountNumber *string     `json:"account_number"`
	Amount        json.Number `json:"amount"`
}

type mobileMoneyDepositBody struct {
	Phone  string      `json:"phone"`
	Amount json.Number `json:"amount"`
}

type newBalanceResponse struct {
	NewBalance decimal.NullDecimal `json:"new_balance"`
}

func amountNumber(d decimal.Decimal) json.Number {
	return json.Number(d.Round(2).String())
}

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Withdraw moves funds out of the account. It returns the new balance.
func (c *Client) Withdraw(ctx context.Context, req service.WithdrawRequest) (decimal.Decimal, error) {
	body := withdrawBody{Amount: amountNumber(req.Amount)}

	switch ch := req.Channel.(type) {
	case model.MobileMoney:
		body.WithdrawalMethod = string(model.ChannelMobileMoney)
		body.PhoneCountryCode = strPtr(ch.CountryCallingCode)
		body.PhoneNumber = strPtr(ch.LocalNumber)
	case model.BankTransfer:
		body.WithdrawalMethod = string(model.ChannelBankTransfer)
		body.BankID = strPtr(ch.BankID)
		body.BankName = strPtr(ch.BankDisplayName)
		body.AccountNumber = strPtr(ch.AccountNumber)
	default:
		return decimal.Zero, &TransportError{Op: "withdraw", Err: errors.New("withdrawal needs a channel")}
	}

	var out newBalanceResponse
	err := c.do(ctx, request{
		method:         http.MethodPost,
		path:           "withdraw",
		op:             "withdraw",
		body:           body,
		out:            &out,
		idempotencyKey: req.IdempotencyKey,
	})
	if err != nil {
		return decimal.Zero, err
	}

	return requireNewBalance("withdraw", out)
}

// Deposit credits the account from a bank. It returns the new balance.
func (c *Client) Deposit(ctx context.Context, req service.DepositRequest) (decimal.Decimal, error) {
	body := depositBody{
		Amount:        amountNumber(req.Amount),
		BankID:        strPtr(req.Bank.BankID),
		BankName:      strPtr(req.Bank.BankDisplayName),
		AccountNumber: strPtr(req.Bank.AccountNumber),
	}

	var out newBalanceResponse
	err := c.do(ctx, request{
		method:         http.MethodPost,
		path:           "deposit",
		op:             "deposit",
		body:           body,
		out:            &out,
		idempotencyKey: req.IdempotencyKey,
	})
	if err != nil {
		return decimal.Zero, err
	}

	return requireNewBalance("deposit", out)
}

// InitiateMobileMoneyDeposit asks the provider to push a payment prompt to
// the phone. Success means the prompt went out, not that money arrived.
func (c *Client) InitiateMobileMoneyDeposit(ctx context.Context, req service.MobileMoneyDepositRequest) (service.MobileMoneyDispatch, error) {
	var out struct {
		CheckoutRequestID string `json:"checkout_request_id"`
		Message           string `json:"message"`
	}
	err := c.do(ctx, request{
		method:         http.MethodPost,
		path:           "mpesa/deposit/initiate",
		op:             "initiate mobile-money deposit",
		body:           mobileMoneyDepositBody{Phone: req.Phone, Amount: amountNumber(req.Amount)},
		out:            &out,
		idempotencyKey: req.IdempotencyKey,
	})
	if err != nil {
		return service.MobileMoneyDispatch{}, err
	}

	return service.MobileMoneyDispatch{
		CheckoutRequestID: out.CheckoutRequestID,
		Message:           out.Message,
	}, nil
}

// MobileMoneyStatus queries the provider for a dispatched push.
func (c *Client) MobileMoneyStatus(ctx context.Context, checkoutRequestID string) (service.MobileMoneyStatus, error) {
	if checkoutRequestID == "" {
		return service.MobileMoneyStatus{}, &TransportError{Op: "mobile-money status", Err: errors.New("reference is required")}
	}

	var out struct {
		Status            string     `json:"status"`
		ResultCode        flexibleID `json:"result_code"`
		ResultDescription string     `json:"result_description"`
	}
	err := c.do(ctx, request{
		method: http.MethodGet,
		path:   "mpesa/status/" + checkoutRequestID,
		op:     "mobile-money status",
		out:    &out,
	})
	if err != nil {
		return service.MobileMoneyStatus{}, err
	}

	return service.MobileMoneyStatus{
		Status:            out.Status,
		ResultCode:        string(out.ResultCode),
		ResultDescription: out.ResultDescription,
	}, nil
}

func requireNewBalance(op string, out newBalanceResponse) (decimal.Decimal, error) {
	if !out.NewBalance.Valid {
		return decimal.Zero, &TransportError{Op: op, Err: fmt.Errorf("response has no new_balance")}
	}
	return out.NewBalance.Decimal, nil
}
