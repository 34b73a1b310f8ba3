package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/Veraticus/till/internal/model"
	"github.com/shopspring/decimal"
)

// FormatMoney renders an amount with two decimals and thousands separators.
func FormatMoney(d decimal.Decimal) string {
	s := d.Abs().StringFixed(2)
	whole, frac, _ := strings.Cut(s, ".")

	var b strings.Builder
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}

	sign := ""
	if d.IsNegative() {
		sign = "-"
	}
	return sign + "$" + b.String() + "." + frac
}

// RenderSummary is the confirmation box for an intent.
func RenderSummary(s model.IntentSummary) string {
	icon := BankIcon
	if strings.HasPrefix(s.FullIdentifier, "+") {
		icon = PhoneIcon
	}

	lines := []string{
		LabelStyle.Render("Amount") + AmountStyle.Render("$"+s.Amount),
		LabelStyle.Render("Via") + icon + " " + s.ChannelName,
		LabelStyle.Render("To") + s.FullIdentifier,
	}
	if s.Direction == "Deposit" {
		lines[2] = LabelStyle.Render("From") + s.FullIdentifier
	}

	return RenderBox("Confirm "+strings.ToLower(s.Direction), strings.Join(lines, "\n"))
}

// WriteTransactions prints history as an aligned table.
func WriteTransactions(w io.Writer, txns []model.Transaction) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	if _, err := fmt.Fprintln(tw, "DATE\tTYPE\tAMOUNT\tDESCRIPTION"); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for _, txn := range txns {
		date := "-"
		if !txn.CreatedAt.IsZero() {
			date = txn.CreatedAt.Local().Format("2006-01-02 15:04")
		}

		amount := FormatMoney(txn.SignedAmount())
		if txn.Type == model.TransactionDeposit {
			amount = SuccessStyle.Render("+" + amount)
		} else {
			amount = ErrorStyle.Render(amount)
		}

		if _, err := fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", date, txn.Type, amount, txn.Description); err != nil {
			return fmt.Errorf("failed to write transaction %s: %w", txn.ID, err)
		}
	}

	return tw.Flush()
}
