package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/Veraticus/till/internal/api"
	"github.com/Veraticus/till/internal/catalog"
	"github.com/Veraticus/till/internal/cli"
	"github.com/Veraticus/till/internal/common"
	"github.com/Veraticus/till/internal/intent"
	"github.com/Veraticus/till/internal/model"
	"github.com/spf13/cobra"
)

// transferFlags are the flags shared by withdraw and deposit.
type transferFlags struct {
	amount  string
	mpesa   string
	country string
	bank    string
	account string
	yes     bool
}

func addTransferFlags(cmd *cobra.Command, f *transferFlags) {
	cmd.Flags().StringVarP(&f.amount, "amount", "a", "", "amount in dollars, e.g. 50 or 12.50")
	cmd.Flags().StringVar(&f.mpesa, "mpesa", "", "M-PESA phone number")
	cmd.Flags().StringVar(&f.country, "country", "", "country of the M-PESA number (ISO code, default from config)")
	cmd.Flags().StringVar(&f.bank, "bank", "", "bank id (see `till banks`)")
	cmd.Flags().StringVar(&f.account, "account", "", "bank account number")
	cmd.Flags().BoolVarP(&f.yes, "yes", "y", false, "skip the confirmation prompt")

	_ = cmd.MarkFlagRequired("amount")
	cmd.MarkFlagsMutuallyExclusive("mpesa", "bank")
	cmd.MarkFlagsOneRequired("mpesa", "bank")
}

// channel builds the destination or source from the flags.
func (f transferFlags) channel(cat *catalog.Catalog, defaultCountry string) (model.Channel, error) {
	if f.bank != "" {
		return model.BankTransfer{BankID: f.bank, AccountNumber: strings.TrimSpace(f.account)}, nil
	}

	iso := f.country
	if iso == "" {
		iso = defaultCountry
	}
	country, ok := cat.LookupCountry(iso)
	if !ok {
		return nil, common.NewUserError(fmt.Sprintf("Unsupported country %q. See `till countries`.", iso), nil)
	}

	return model.MobileMoney{
		CountryCallingCode: country.CallingCode,
		LocalNumber:        catalog.NormalizeLocalNumber(f.mpesa, country.CallingCode),
	}, nil
}

// runTransfer drives one intent from flags to outcome: validate, confirm,
// submit, report.
func runTransfer(cmd *cobra.Command, kind model.IntentKind, flags transferFlags) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	env, err := openEnvironment(ctx)
	if err != nil {
		return err
	}
	defer env.Close()

	channel, err := flags.channel(env.catalog, env.settings.DefaultCountry)
	if err != nil {
		return err
	}

	// Validation needs the current balance; a cached one would be unsafe.
	spin := cli.StartSpinner(cmd.ErrOrStderr(), "Checking your balance...")
	_, err = env.account.Refresh(ctx)
	spin.Stop()
	if err != nil {
		if errors.Is(err, api.ErrUnauthorized) {
			return env.authError(err)
		}
		return common.NewUserError(api.UserMessage(err), err)
	}

	pipeline, err := intent.NewPipeline(intent.Config{
		Transfers:      env.client,
		Account:        env.account,
		Validator:      intent.NewValidator(intent.DefaultLimits(), env.catalog),
		ConfirmTimeout: env.settings.ConfirmTimeout,
	})
	if err != nil {
		return err
	}
	form := pipeline.Form(kind)

	if _, err := form.Validate(flags.amount, channel); err != nil {
		var verr *intent.ValidationError
		if errors.As(err, &verr) {
			return common.NewUserError(verr.Message, nil)
		}
		return err
	}

	summary, err := form.RequestConfirmation()
	if err != nil {
		return err
	}

	prompter := cli.NewPrompter(cmd.InOrStdin(), out)
	prompter.AssumeYes(flags.yes)

	confirmed, err := prompter.ConfirmIntent(ctx, summary)
	if err != nil {
		if _, cancelErr := form.Cancel(); cancelErr != nil {
			slog.Debug("Failed to cancel intent", "error", cancelErr)
		}
		if errors.Is(err, cli.ErrInputCancelled) {
			fmt.Fprintln(out, cli.FormatInfo("Cancelled. Nothing was sent."))
			return nil
		}
		return err
	}
	if !confirmed {
		if _, err := form.Cancel(); err != nil {
			return err
		}
		fmt.Fprintln(out, cli.FormatInfo("Cancelled. Nothing was sent."))
		return nil
	}

	return submitIntent(ctx, cmd, env, form)
}

func submitIntent(ctx context.Context, cmd *cobra.Command, env *environment, form *intent.Form) error {
	out := cmd.OutOrStdout()

	handler := cli.NewInterruptHandler(cmd.ErrOrStderr(), form.Busy)
	ictx, stop := handler.HandleInterrupts(ctx)
	defer stop()

	spin := cli.StartSpinner(cmd.ErrOrStderr(), "Contacting the bank...")
	outcome, err := form.Confirm(ictx)
	spin.Stop()

	if err != nil {
		if handler.WasInterrupted() {
			return common.NewUserError("Interrupted before the bank answered.", err)
		}
		if errors.Is(err, api.ErrUnauthorized) {
			return env.authError(err)
		}
		msg := outcome.Intent.Error
		if msg == "" {
			msg = api.UserMessage(err)
		}
		return common.NewUserError(msg, err)
	}

	if outcome.Intent.Status == model.StatusDispatched {
		recordDispatch(ctx, env, outcome.Intent)
	}

	reportOutcome(out, outcome)
	return nil
}

// recordDispatch remembers a mobile-money push for `till mpesa status`.
func recordDispatch(ctx context.Context, env *environment, ti model.TransactionIntent) {
	if env.store == nil || ti.Reference == "" {
		return
	}
	mm, ok := ti.Channel.(model.MobileMoney)
	if !ok {
		return
	}

	err := env.store.SaveDispatch(ctx, &model.Dispatch{
		CheckoutRequestID: ti.Reference,
		UserID:            env.session.UserID,
		Amount:            ti.Amount,
		Phone:             mm.FullNumber(),
		IdempotencyKey:    ti.IdempotencyKey,
	})
	if err != nil {
		slog.Warn("Failed to record mobile-money dispatch", "error", err)
	}
}

func reportOutcome(out io.Writer, outcome intent.Outcome) {
	if outcome.Intent.Status == model.StatusDispatched {
		fmt.Fprintln(out, cli.FormatInfo(outcome.Message()))
		if ref := outcome.Intent.Reference; ref != "" {
			fmt.Fprintln(out, cli.LabelStyle.Render("Reference")+ref)
			fmt.Fprintln(out, cli.FormatInfo("Check progress with `till mpesa status "+ref+"`."))
		}
	} else {
		fmt.Fprintln(out, cli.FormatSuccess(outcome.Message()))
	}

	if outcome.NewBalance != nil {
		fmt.Fprintln(out, cli.LabelStyle.Render("Balance")+cli.AmountStyle.Render(cli.FormatMoney(*outcome.NewBalance)))
	}
	if outcome.RefreshErr != nil {
		fmt.Fprintln(out, cli.FormatWarning("History could not be refreshed; run `till transactions` to see it."))
	}
}
