package invoice

import (
	"errors"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
	"github.com/recibos/taxbot/internal/domain/shared"
	"github.com/recibos/taxbot/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// Field names used in validation errors
const (
	FieldAmount      = "amount"
	FieldCurrency    = "currency"
	FieldDate        = "date"
	FieldClientName  = "client_name"
	FieldDescription = "description"
)

// Input holds the raw invoice fields as typed by a user or posted by a form.
// Fields are validated in declaration order; the first failure is reported.
type Input struct {
	Amount      string `json:"amount" form:"amount" validate:"required,decimal"`
	Currency    string `json:"currency" form:"currency" validate:"omitempty,iso4217"`
	Date        string `json:"date" form:"date" validate:"required,datetime=2006-01-02"`
	ClientName  string `json:"client_name" form:"client_name" validate:"required,notblank"`
	Description string `json:"description" form:"description" validate:"required,notblank"`
}

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// inputValidator returns the shared validator, configured on first use
func inputValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		// Use JSON tag names for field names in errors
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
		_ = validate.RegisterValidation("notblank", validators.NotBlank)
		_ = validate.RegisterValidation("decimal", func(fl validator.FieldLevel) bool {
			_, err := decimal.NewFromString(strings.TrimSpace(fl.Field().String()))
			return err == nil
		})
	})
	return validate
}

// Validate checks the raw fields and returns a VALIDATION error naming the
// first offending field.
func (in Input) Validate() error {
	normalized := in
	normalized.Currency = strings.ToUpper(strings.TrimSpace(in.Currency))
	normalized.Date = strings.TrimSpace(in.Date)

	err := inputValidator().Struct(normalized)
	if err == nil {
		return nil
	}

	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) && len(validationErrors) > 0 {
		fe := validationErrors[0]
		return shared.NewValidationError(fe.Field(), validationMessage(fe))
	}
	return shared.NewValidationError("", err.Error())
}

// validationMessage returns a human-readable validation message
func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "notblank":
		return "is required"
	case "decimal":
		return "must be a decimal number"
	case "iso4217":
		return "must be a three-letter ISO 4217 code"
	case "datetime":
		return "must be a date in YYYY-MM-DD format"
	default:
		return "is invalid"
	}
}

// Parse validates the raw fields and builds an Invoice.
// The returned Invoice is the zero value whenever err is non-nil.
func Parse(in Input) (Invoice, error) {
	if err := in.Validate(); err != nil {
		return Invoice{}, err
	}

	amount, err := decimal.NewFromString(strings.TrimSpace(in.Amount))
	if err != nil {
		return Invoice{}, shared.NewValidationError(FieldAmount, "must be a decimal number")
	}

	currency := valueobject.DefaultCurrency
	if strings.TrimSpace(in.Currency) != "" {
		currency, err = valueobject.ParseCurrency(in.Currency)
		if err != nil {
			return Invoice{}, shared.NewValidationError(FieldCurrency, "must be a three-letter ISO 4217 code")
		}
	}

	date, err := time.Parse(DateLayout, strings.TrimSpace(in.Date))
	if err != nil {
		return Invoice{}, shared.NewValidationError(FieldDate, "must be a date in YYYY-MM-DD format")
	}

	return New(amount, currency, date, in.ClientName, in.Description)
}
