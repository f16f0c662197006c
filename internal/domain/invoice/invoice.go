package invoice

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/recibos/taxbot/internal/domain/shared"
	"github.com/recibos/taxbot/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// DateLayout is the ISO calendar date layout used for invoice dates
const DateLayout = "2006-01-02"

// Converter re-denominates an amount between currencies using the rate
// published for a given day.
type Converter interface {
	Convert(ctx context.Context, amount decimal.Decimal, from, to valueobject.Currency, on time.Time) (decimal.Decimal, error)
}

// Invoice is the record of billable work submitted to the tax authority.
// It is immutable: ToCurrency returns a new Invoice and leaves the receiver untouched.
type Invoice struct {
	money       valueobject.Money
	date        time.Time
	clientName  string
	description string
}

// New creates a validated Invoice.
// An empty currency defaults to USD. The date is truncated to a UTC calendar day.
func New(
	amount decimal.Decimal,
	currency valueobject.Currency,
	date time.Time,
	clientName string,
	description string,
) (Invoice, error) {
	if currency == "" {
		currency = valueobject.DefaultCurrency
	}
	if !amount.IsPositive() {
		return Invoice{}, shared.NewValidationError(FieldAmount, "must be greater than zero")
	}
	money, err := valueobject.NewMoney(amount, currency)
	if err != nil {
		return Invoice{}, shared.NewValidationError(FieldCurrency, "must be a three-letter ISO 4217 code")
	}
	if date.IsZero() {
		return Invoice{}, shared.NewValidationError(FieldDate, "is required")
	}
	if strings.TrimSpace(clientName) == "" {
		return Invoice{}, shared.NewValidationError(FieldClientName, "cannot be empty")
	}
	if strings.TrimSpace(description) == "" {
		return Invoice{}, shared.NewValidationError(FieldDescription, "cannot be empty")
	}

	return Invoice{
		money:       money,
		date:        time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC),
		clientName:  clientName,
		description: description,
	}, nil
}

// Amount returns the invoice amount
func (i Invoice) Amount() decimal.Decimal {
	return i.money.Amount()
}

// Currency returns the invoice currency
func (i Invoice) Currency() valueobject.Currency {
	return i.money.Currency()
}

// Money returns amount and currency together
func (i Invoice) Money() valueobject.Money {
	return i.money
}

// Date returns the invoice date (UTC midnight)
func (i Invoice) Date() time.Time {
	return i.date
}

// DateString returns the invoice date as YYYY-MM-DD
func (i Invoice) DateString() string {
	return i.date.Format(DateLayout)
}

// ClientName returns the client name
func (i Invoice) ClientName() string {
	return i.clientName
}

// Description returns the description of the service provided
func (i Invoice) Description() string {
	return i.description
}

// AmountFixed returns the amount with exactly two decimal places, as the portal expects
func (i Invoice) AmountFixed() string {
	return i.money.StringFixed(2)
}

// IsZero reports whether the invoice is the zero value
func (i Invoice) IsZero() bool {
	return i.date.IsZero() && i.clientName == ""
}

// ToCurrency returns a new Invoice whose amount is converted into target
// using the rate published on the invoice date. Date, client and description
// are copied unchanged.
func (i Invoice) ToCurrency(ctx context.Context, converter Converter, target valueobject.Currency) (Invoice, error) {
	amount, err := converter.Convert(ctx, i.Amount(), i.Currency(), target, i.date)
	if err != nil {
		return Invoice{}, err
	}
	return New(amount, target, i.date, i.clientName, i.description)
}

// MarshalJSON implements json.Marshaler
func (i Invoice) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Amount      string `json:"amount"`
		Currency    string `json:"currency"`
		Date        string `json:"date"`
		ClientName  string `json:"client_name"`
		Description string `json:"description"`
	}{
		Amount:      i.Amount().String(),
		Currency:    i.Currency().String(),
		Date:        i.DateString(),
		ClientName:  i.clientName,
		Description: i.description,
	})
}
