package handler

import (
	"context"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/recibos/taxbot/internal/application/invoicing"
	"github.com/recibos/taxbot/internal/domain/invoice"
	"github.com/recibos/taxbot/internal/domain/shared"
	"github.com/recibos/taxbot/internal/domain/shared/valueobject"
	"github.com/recibos/taxbot/internal/interfaces/http/dto"
	"github.com/shopspring/decimal"
)

// InvoiceService is what the HTTP front end needs from the invoicing service
type InvoiceService interface {
	Submit(ctx context.Context, inv invoice.Invoice, opts invoicing.SubmitOptions) (*invoicing.Submission, error)
	Convert(ctx context.Context, amount decimal.Decimal, from, to valueobject.Currency, on time.Time) (valueobject.Money, error)
}

// InvoiceHandler serves the JSON invoice API
type InvoiceHandler struct {
	BaseHandler
	service        InvoiceService
	confirmDefault bool
	clock          func() time.Time
}

// NewInvoiceHandler creates an InvoiceHandler. confirmDefault applies when a
// request does not say whether to pause for confirmation.
func NewInvoiceHandler(service InvoiceService, confirmDefault bool) *InvoiceHandler {
	return &InvoiceHandler{
		service:        service,
		confirmDefault: confirmDefault,
		clock:          time.Now,
	}
}

// Submit handles POST /api/v1/invoices
func (h *InvoiceHandler) Submit(c *gin.Context) {
	var req dto.SubmitInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	inv, err := invoice.Parse(req.Input)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	opts := invoicing.SubmitOptions{Confirm: h.confirmDefault, DryRun: req.DryRun}
	if req.Confirm != nil {
		opts.Confirm = *req.Confirm
	}

	sub, err := h.service.Submit(c.Request.Context(), inv, opts)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	resp := ToSubmissionResponse(sub)
	if sub.Status == invoicing.StatusSubmitted {
		h.Created(c, resp)
		return
	}
	h.Success(c, resp)
}

// Convert handles POST /api/v1/conversions
func (h *InvoiceHandler) Convert(c *gin.Context) {
	var req dto.ConvertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	amount, err := decimal.NewFromString(strings.TrimSpace(req.Amount))
	if err != nil {
		h.HandleError(c, shared.NewValidationError("amount", "must be a decimal number"))
		return
	}

	on := h.clock().UTC()
	if req.Date != "" {
		on, err = time.Parse(invoice.DateLayout, req.Date)
		if err != nil {
			h.HandleError(c, shared.NewValidationError("date", "must be a date in YYYY-MM-DD format"))
			return
		}
	}

	from := valueobject.Currency(strings.ToUpper(req.From))
	to := valueobject.Currency(strings.ToUpper(req.To))
	converted, err := h.service.Convert(c.Request.Context(), amount, from, to, on)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, dto.ConversionResponse{
		Amount:    amount.String(),
		From:      string(from),
		To:        string(to),
		Date:      on.Format(invoice.DateLayout),
		Converted: converted.Amount().StringFixed(2),
	})
}

// ToSubmissionResponse converts a Submission to its API shape
func ToSubmissionResponse(sub *invoicing.Submission) dto.SubmissionResponse {
	return dto.SubmissionResponse{
		ID:              sub.ID.String(),
		Status:          string(sub.Status),
		Invoice:         sub.Invoice,
		Original:        sub.Original,
		URL:             sub.URL,
		ReceiptLocation: sub.ReceiptLocation,
		StartedAt:       sub.StartedAt,
		FinishedAt:      sub.FinishedAt,
	}
}

