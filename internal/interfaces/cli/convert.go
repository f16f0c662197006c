package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/recibos/taxbot/internal/domain/invoice"
	"github.com/recibos/taxbot/internal/domain/shared"
	"github.com/recibos/taxbot/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

func newConvertCommand(a *app) *cobra.Command {
	var date string

	cmd := &cobra.Command{
		Use:     "convert AMOUNT FROM TO",
		Short:   "Convert an amount with the ECB reference rates",
		Example: "  taxbot convert 100 USD EUR --date 2024-04-19",
		Args:    cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := decimal.NewFromString(strings.TrimSpace(args[0]))
			if err != nil {
				return shared.NewValidationError("amount", "must be a decimal number")
			}
			from, err := valueobject.ParseCurrency(args[1])
			if err != nil {
				return shared.NewValidationError("from", "must be a three-letter ISO 4217 code")
			}
			to, err := valueobject.ParseCurrency(args[2])
			if err != nil {
				return shared.NewValidationError("to", "must be a three-letter ISO 4217 code")
			}

			on := a.env.Now().UTC()
			if date != "" {
				if on, err = time.Parse(invoice.DateLayout, date); err != nil {
					return shared.NewValidationError("date", "must be a date in YYYY-MM-DD format")
				}
			}

			svc, shutdown, err := a.service(cmd.Context(), nil)
			if err != nil {
				return err
			}
			defer a.shutdown(cmd.Context(), shutdown)

			converted, err := svc.Convert(cmd.Context(), amount, from, to, on)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s = %s %s (%s)\n",
				amount.String(), from, converted.StringFixed(2), to, on.Format(invoice.DateLayout))
			return nil
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "Rate date, YYYY-MM-DD (default today)")
	return cmd
}
