package cli

import (
	"fmt"

	"github.com/recibos/taxbot/internal/application/invoicing"
	"github.com/recibos/taxbot/internal/domain/invoice"
	"github.com/spf13/cobra"
)

type submitFlags struct {
	input    invoice.Input
	confirm  bool
	dryRun   bool
	headless bool
}

func newSubmitCommand(a *app) *cobra.Command {
	var flags submitFlags

	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Convert an invoice to EUR and issue it on the portal",
		Long: `Logs in to the tax portal and issues one invoice.

Fields not given as flags are prompted for. A blank description offers a
menu of canned descriptions. Amounts in another currency are converted to
EUR with the ECB rate published on the invoice date.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			inv, err := invoice.FromInput(invoice.NewTerminalPrompter(a.in, a.env.Out), flags.input)
			if err != nil {
				return err
			}

			var headless *bool
			if cmd.Flags().Changed("headless") {
				headless = &flags.headless
			}
			svc, shutdown, err := a.service(cmd.Context(), headless)
			if err != nil {
				return err
			}
			defer a.shutdown(cmd.Context(), shutdown)

			sub, err := svc.Submit(cmd.Context(), inv, invoicing.SubmitOptions{
				Confirm: flags.confirm,
				DryRun:  flags.dryRun,
			})
			if err != nil {
				return err
			}
			printSubmission(cmd, sub)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&flags.input.Amount, "amount", "", "Invoice amount")
	f.StringVar(&flags.input.Currency, "currency", "", "ISO 4217 currency of the amount (default USD)")
	f.StringVar(&flags.input.Date, "date", "", "Invoice date, YYYY-MM-DD")
	f.StringVar(&flags.input.ClientName, "client", "", "Full name of the client")
	f.StringVar(&flags.input.Description, "description", "", "Description of the work")
	f.BoolVar(&flags.confirm, "confirm", true, "Pause for ENTER before and after issuing")
	f.BoolVar(&flags.dryRun, "dry-run", false, "Fill the form without issuing the invoice")
	f.BoolVar(&flags.headless, "headless", false, "Run the browser without a window")
	return cmd
}

func printSubmission(cmd *cobra.Command, sub *invoicing.Submission) {
	out := cmd.OutOrStdout()
	switch sub.Status {
	case invoicing.StatusDryRun:
		fmt.Fprintln(out, "Dry run: the form was filled but the invoice was not issued.")
	default:
		fmt.Fprintln(out, "Invoice issued.")
	}
	fmt.Fprintf(out, "  Client:   %s\n", sub.Invoice.ClientName())
	fmt.Fprintf(out, "  Date:     %s\n", sub.Invoice.DateString())
	fmt.Fprintf(out, "  Amount:   %s %s", sub.Invoice.AmountFixed(), sub.Invoice.Currency())
	if sub.Original.Currency() != sub.Invoice.Currency() {
		fmt.Fprintf(out, " (%s %s)", sub.Original.AmountFixed(), sub.Original.Currency())
	}
	fmt.Fprintln(out)
	if sub.ReceiptLocation != "" {
		fmt.Fprintf(out, "  Receipt:  %s\n", sub.ReceiptLocation)
	}
	fmt.Fprintf(out, "  ID:       %s\n", sub.ID)
}
