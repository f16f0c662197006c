package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/recibos/taxbot/internal/application/invoicing"
	"github.com/recibos/taxbot/internal/domain/invoice"
	"github.com/recibos/taxbot/internal/domain/shared"
	"github.com/recibos/taxbot/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ecbUSD = decimal.RequireFromString("1.0647")

type fakeService struct {
	req       ServiceRequest
	submitted []invoice.Invoice
	opts      []invoicing.SubmitOptions
	convertOn time.Time
	loggedIn  bool
	err       error
	shutdowns int
}

func (f *fakeService) factory(_ context.Context, req ServiceRequest) (Service, func(context.Context) error, error) {
	f.req = req
	return f, func(context.Context) error {
		f.shutdowns++
		return nil
	}, nil
}

func (f *fakeService) Submit(ctx context.Context, inv invoice.Invoice, opts invoicing.SubmitOptions) (*invoicing.Submission, error) {
	f.submitted = append(f.submitted, inv)
	f.opts = append(f.opts, opts)
	if f.err != nil {
		return nil, f.err
	}
	if opts.Confirm {
		if err := f.req.Confirmer.Confirm(ctx, "Check the form."); err != nil {
			return nil, err
		}
	}
	eur, err := inv.ToCurrency(ctx, converterFunc(func(amount decimal.Decimal) decimal.Decimal {
		return amount.Div(ecbUSD)
	}), valueobject.EUR)
	if err != nil {
		return nil, err
	}
	status := invoicing.StatusSubmitted
	if opts.DryRun {
		status = invoicing.StatusDryRun
	}
	return &invoicing.Submission{ID: uuid.New(), Invoice: eur, Original: inv, Status: status}, nil
}

func (f *fakeService) Convert(_ context.Context, amount decimal.Decimal, _, to valueobject.Currency, on time.Time) (valueobject.Money, error) {
	f.convertOn = on
	if f.err != nil {
		return valueobject.Money{}, f.err
	}
	return valueobject.NewMoney(amount.Div(ecbUSD), to)
}

func (f *fakeService) CheckLogin(context.Context) error {
	if f.err != nil {
		return f.err
	}
	f.loggedIn = true
	return nil
}

type converterFunc func(decimal.Decimal) decimal.Decimal

func (c converterFunc) Convert(_ context.Context, amount decimal.Decimal, from, to valueobject.Currency, _ time.Time) (decimal.Decimal, error) {
	if from == to {
		return amount, nil
	}
	return c(amount), nil
}

type run struct {
	code int
	out  string
	err  string
}

func execute(t *testing.T, svc *fakeService, input string, args ...string) run {
	t.Helper()
	var out, errOut bytes.Buffer
	code := Execute(context.Background(), Environment{
		In:         strings.NewReader(input),
		Out:        &out,
		Err:        &errOut,
		NewService: svc.factory,
		Now:        func() time.Time { return time.Date(2024, 4, 19, 18, 0, 0, 0, time.UTC) },
	}, args)
	return run{code: code, out: out.String(), err: errOut.String()}
}

func TestSubmit(t *testing.T) {
	t.Run("all fields from flags", func(t *testing.T) {
		svc := &fakeService{}
		r := execute(t, svc, "",
			"submit", "--amount", "100", "--date", "2024-04-19",
			"--client", "John Smith", "--description", "Consulting", "--confirm=false",
		)

		require.Equal(t, 0, r.code, r.err)
		require.Len(t, svc.submitted, 1)
		assert.Equal(t, valueobject.USD, svc.submitted[0].Currency())
		assert.Equal(t, invoicing.SubmitOptions{}, svc.opts[0])
		assert.Contains(t, r.out, "Invoice issued.")
		assert.Contains(t, r.out, "93.92 EUR (100.00 USD)")
		assert.Equal(t, 1, svc.shutdowns)
		assert.Nil(t, svc.req.Headless)
	})

	t.Run("prompts for missing fields and confirms on the same input", func(t *testing.T) {
		svc := &fakeService{}
		r := execute(t, svc, "John Smith\n100\n2024-04-19\n\n2\n\n", "submit")

		require.Equal(t, 0, r.code, r.err)
		require.Len(t, svc.submitted, 1)
		inv := svc.submitted[0]
		assert.Equal(t, "John Smith", inv.ClientName())
		assert.Equal(t, "Website design and development services", inv.Description())
		assert.True(t, svc.opts[0].Confirm)
		assert.Contains(t, r.out, "Enter the invoice amount in USD: $")
		assert.Contains(t, r.out, "Press ENTER to continue")
	})

	t.Run("dry run and headless", func(t *testing.T) {
		svc := &fakeService{}
		r := execute(t, svc, "",
			"submit", "--amount", "50", "--currency", "eur", "--date", "2024-04-19",
			"--client", "Jane", "--description", "Work", "--confirm=false", "--dry-run", "--headless",
		)

		require.Equal(t, 0, r.code, r.err)
		assert.True(t, svc.opts[0].DryRun)
		require.NotNil(t, svc.req.Headless)
		assert.True(t, *svc.req.Headless)
		assert.Contains(t, r.out, "Dry run")
		assert.Contains(t, r.out, "50.00 EUR\n")
	})

	t.Run("invalid amount fails before the browser", func(t *testing.T) {
		svc := &fakeService{}
		r := execute(t, svc, "",
			"submit", "--amount", "abc", "--date", "2024-04-19",
			"--client", "John Smith", "--description", "Consulting",
		)

		assert.Equal(t, 1, r.code)
		assert.Contains(t, r.err, "amount")
		assert.Empty(t, svc.submitted)
		assert.Zero(t, svc.shutdowns)
	})

	t.Run("automation failure exits non-zero", func(t *testing.T) {
		svc := &fakeService{err: shared.NewAutomationError("EMITIR button not found", nil)}
		r := execute(t, svc, "",
			"submit", "--amount", "100", "--date", "2024-04-19",
			"--client", "John Smith", "--description", "Consulting", "--confirm=false",
		)

		assert.Equal(t, 1, r.code)
		assert.Contains(t, r.err, "EMITIR button not found")
	})
}

func TestConvert(t *testing.T) {
	t.Run("converts on the given date", func(t *testing.T) {
		svc := &fakeService{}
		r := execute(t, svc, "", "convert", "100", "usd", "EUR", "--date", "2024-04-19")

		require.Equal(t, 0, r.code, r.err)
		assert.Equal(t, "100 USD = 93.92 EUR (2024-04-19)\n", r.out)
	})

	t.Run("date defaults to today", func(t *testing.T) {
		svc := &fakeService{}
		r := execute(t, svc, "", "convert", "10", "USD", "EUR")

		require.Equal(t, 0, r.code, r.err)
		assert.Equal(t, "2024-04-19", svc.convertOn.Format(invoice.DateLayout))
	})

	t.Run("argument errors", func(t *testing.T) {
		for _, args := range [][]string{
			{"convert", "ten", "USD", "EUR"},
			{"convert", "10", "US", "EUR"},
			{"convert", "10", "USD", "EUR", "--date", "19/04/2024"},
			{"convert", "10", "USD"},
		} {
			r := execute(t, &fakeService{}, "", args...)
			assert.Equal(t, 1, r.code, args)
		}
	})

	t.Run("missing rate", func(t *testing.T) {
		svc := &fakeService{err: shared.NewRateNotFoundError("no USD rate on 2099-01-01", nil)}
		r := execute(t, svc, "", "convert", "10", "USD", "EUR", "--date", "2099-01-01")

		assert.Equal(t, 1, r.code)
		assert.Contains(t, r.err, "no USD rate")
	})
}

func TestLogin(t *testing.T) {
	svc := &fakeService{}
	r := execute(t, svc, "", "login")

	require.Equal(t, 0, r.code, r.err)
	assert.True(t, svc.loggedIn)
	assert.Equal(t, "Logged in.\n", r.out)
}

func TestConfigFlag(t *testing.T) {
	r := execute(t, &fakeService{}, "", "--config", "/nonexistent/config.toml", "login")

	assert.Equal(t, 1, r.code)
	assert.Contains(t, r.err, "config")
}
