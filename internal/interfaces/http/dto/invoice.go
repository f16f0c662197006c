package dto

import (
	"time"

	"github.com/recibos/taxbot/internal/domain/invoice"
)

// SubmitInvoiceRequest is the body of POST /api/v1/invoices
type SubmitInvoiceRequest struct {
	invoice.Input
	// Confirm overrides the server's confirmation default when set
	Confirm *bool `json:"confirm,omitempty"`
	DryRun  bool  `json:"dry_run"`
}

// ConvertRequest is the body of POST /api/v1/conversions
type ConvertRequest struct {
	Amount string `json:"amount" binding:"required"`
	From   string `json:"from" binding:"required,len=3"`
	To     string `json:"to" binding:"required,len=3"`
	// Date defaults to today
	Date string `json:"date" binding:"omitempty,datetime=2006-01-02"`
}

// ConversionResponse is the result of a conversion
type ConversionResponse struct {
	Amount    string `json:"amount"`
	From      string `json:"from"`
	To        string `json:"to"`
	Date      string `json:"date"`
	Converted string `json:"converted"`
}

// SubmissionResponse describes a finished submission
type SubmissionResponse struct {
	ID              string          `json:"id"`
	Status          string          `json:"status"`
	Invoice         invoice.Invoice `json:"invoice"`
	Original        invoice.Invoice `json:"original"`
	URL             string          `json:"url"`
	ReceiptLocation string          `json:"receipt_location,omitempty"`
	StartedAt       time.Time       `json:"started_at"`
	FinishedAt      time.Time       `json:"finished_at"`
}
