package handler

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/recibos/taxbot/internal/application/invoicing"
	"github.com/recibos/taxbot/internal/domain/invoice"
	"github.com/recibos/taxbot/internal/domain/shared"
	"github.com/recibos/taxbot/internal/domain/shared/valueobject"
	"github.com/recibos/taxbot/internal/interfaces/http/dto"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeInvoiceService struct {
	submitted   []invoice.Invoice
	opts        []invoicing.SubmitOptions
	dryRun      bool
	submitErr   error
	convertErr  error
	convertedOn time.Time
}

func (f *fakeInvoiceService) Submit(_ context.Context, inv invoice.Invoice, opts invoicing.SubmitOptions) (*invoicing.Submission, error) {
	f.submitted = append(f.submitted, inv)
	f.opts = append(f.opts, opts)
	if f.submitErr != nil {
		return nil, f.submitErr
	}
	eur, err := invoice.New(decimal.RequireFromString("93.92"), valueobject.EUR, inv.Date(), inv.ClientName(), inv.Description())
	if err != nil {
		return nil, err
	}
	status := invoicing.StatusSubmitted
	if opts.DryRun {
		status = invoicing.StatusDryRun
	}
	return &invoicing.Submission{
		ID:              uuid.MustParse("6f1c2f0e-4d3b-4a57-9a57-0d6c3bb1f3a1"),
		Invoice:         eur,
		Original:        inv,
		Status:          status,
		URL:             "https://portal.example/complete",
		ReceiptLocation: "receipts/2024-04-19/6f1c2f0e-4d3b-4a57-9a57-0d6c3bb1f3a1.png",
	}, nil
}

func (f *fakeInvoiceService) Convert(_ context.Context, amount decimal.Decimal, _, to valueobject.Currency, on time.Time) (valueobject.Money, error) {
	f.convertedOn = on
	if f.convertErr != nil {
		return valueobject.Money{}, f.convertErr
	}
	return valueobject.NewMoney(amount.Div(decimal.RequireFromString("1.0647")), to)
}

func newInvoiceEngine(h *InvoiceHandler) *gin.Engine {
	r := gin.New()
	r.POST("/api/v1/invoices", h.Submit)
	r.POST("/api/v1/conversions", h.Convert)
	return r
}

func postJSON(r http.Handler, path, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}

const validInvoiceBody = `{"amount":"100","date":"2024-04-19","client_name":"John Smith","description":"Consulting"}`

func TestInvoiceHandler_Submit(t *testing.T) {
	t.Run("issues the invoice", func(t *testing.T) {
		svc := &fakeInvoiceService{}
		r := newInvoiceEngine(NewInvoiceHandler(svc, true))

		w := postJSON(r, "/api/v1/invoices", validInvoiceBody)

		assert.Equal(t, http.StatusCreated, w.Code)
		resp := decodeResponse(t, w)
		assert.True(t, resp.Success)
		data := resp.Data.(map[string]interface{})
		assert.Equal(t, "submitted", data["status"])
		assert.Equal(t, "93.92", data["invoice"].(map[string]interface{})["amount"])
		assert.Equal(t, "USD", data["original"].(map[string]interface{})["currency"])

		require.Len(t, svc.submitted, 1)
		assert.Equal(t, "John Smith", svc.submitted[0].ClientName())
		assert.Equal(t, invoicing.SubmitOptions{Confirm: true}, svc.opts[0])
	})

	t.Run("request overrides confirmation and asks for a dry run", func(t *testing.T) {
		svc := &fakeInvoiceService{}
		r := newInvoiceEngine(NewInvoiceHandler(svc, true))

		body := `{"amount":"100","date":"2024-04-19","client_name":"John Smith","description":"Consulting","confirm":false,"dry_run":true}`
		w := postJSON(r, "/api/v1/invoices", body)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "dry_run", decodeResponse(t, w).Data.(map[string]interface{})["status"])
		assert.Equal(t, invoicing.SubmitOptions{Confirm: false, DryRun: true}, svc.opts[0])
	})

	t.Run("invalid field is a validation error", func(t *testing.T) {
		svc := &fakeInvoiceService{}
		r := newInvoiceEngine(NewInvoiceHandler(svc, false))

		w := postJSON(r, "/api/v1/invoices", `{"amount":"abc","date":"2024-04-19","client_name":"A","description":"B"}`)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		resp := decodeResponse(t, w)
		assert.Equal(t, dto.ErrCodeValidation, resp.Error.Code)
		assert.Equal(t, invoice.FieldAmount, resp.Error.Field)
		assert.Empty(t, svc.submitted)
	})

	t.Run("malformed json", func(t *testing.T) {
		r := newInvoiceEngine(NewInvoiceHandler(&fakeInvoiceService{}, false))

		w := postJSON(r, "/api/v1/invoices", `{"amount":`)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, dto.ErrCodeBadRequest, decodeResponse(t, w).Error.Code)
	})

	t.Run("automation failure maps to 500", func(t *testing.T) {
		svc := &fakeInvoiceService{submitErr: shared.NewAutomationError("EMITIR button not found", nil)}
		r := newInvoiceEngine(NewInvoiceHandler(svc, false))

		w := postJSON(r, "/api/v1/invoices", validInvoiceBody)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Equal(t, dto.ErrCodeAutomation, decodeResponse(t, w).Error.Code)
	})
}

func TestInvoiceHandler_Convert(t *testing.T) {
	t.Run("converts on the given date", func(t *testing.T) {
		svc := &fakeInvoiceService{}
		r := newInvoiceEngine(NewInvoiceHandler(svc, false))

		w := postJSON(r, "/api/v1/conversions", `{"amount":"100","from":"usd","to":"EUR","date":"2024-04-19"}`)

		assert.Equal(t, http.StatusOK, w.Code)
		data := decodeResponse(t, w).Data.(map[string]interface{})
		assert.Equal(t, "93.92", data["converted"])
		assert.Equal(t, "USD", data["from"])
		assert.Equal(t, "EUR", data["to"])
		assert.Equal(t, "2024-04-19", data["date"])
		assert.Equal(t, time.Date(2024, 4, 19, 0, 0, 0, 0, time.UTC), svc.convertedOn)
	})

	t.Run("date defaults to today", func(t *testing.T) {
		svc := &fakeInvoiceService{}
		h := NewInvoiceHandler(svc, false)
		h.clock = func() time.Time { return time.Date(2024, 5, 2, 9, 30, 0, 0, time.UTC) }
		r := newInvoiceEngine(h)

		w := postJSON(r, "/api/v1/conversions", `{"amount":"10","from":"USD","to":"EUR"}`)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "2024-05-02", decodeResponse(t, w).Data.(map[string]interface{})["date"])
	})

	t.Run("bad amount", func(t *testing.T) {
		r := newInvoiceEngine(NewInvoiceHandler(&fakeInvoiceService{}, false))

		w := postJSON(r, "/api/v1/conversions", `{"amount":"ten","from":"USD","to":"EUR"}`)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		resp := decodeResponse(t, w)
		assert.Equal(t, dto.ErrCodeValidation, resp.Error.Code)
		assert.Equal(t, "amount", resp.Error.Field)
	})

	t.Run("missing rate maps to 422", func(t *testing.T) {
		svc := &fakeInvoiceService{convertErr: shared.NewRateNotFoundError("no USD rate on 2099-01-01", nil)}
		r := newInvoiceEngine(NewInvoiceHandler(svc, false))

		w := postJSON(r, "/api/v1/conversions", `{"amount":"10","from":"USD","to":"EUR","date":"2099-01-01"}`)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Equal(t, dto.ErrCodeRateNotFound, decodeResponse(t, w).Error.Code)
	})

	t.Run("currency code of the wrong length", func(t *testing.T) {
		r := newInvoiceEngine(NewInvoiceHandler(&fakeInvoiceService{}, false))

		w := postJSON(r, "/api/v1/conversions", `{"amount":"10","from":"US","to":"EUR"}`)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
