// Package invoicing runs invoice submissions end to end: one browser session,
// login, form filling, issuing and receipt archiving.
package invoicing

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/recibos/taxbot/internal/domain/invoice"
	"github.com/recibos/taxbot/internal/domain/shared"
	"github.com/recibos/taxbot/internal/domain/shared/valueobject"
	"github.com/recibos/taxbot/internal/infrastructure/logger"
	"github.com/recibos/taxbot/internal/infrastructure/metrics"
	"github.com/recibos/taxbot/internal/infrastructure/portal"
	"github.com/recibos/taxbot/internal/infrastructure/storage"
	"github.com/recibos/taxbot/internal/infrastructure/telemetry"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Portal is one logged-out browser session on the tax portal.
// *portal.Website implements it.
type Portal interface {
	Login(ctx context.Context) error
	SubmitInvoice(ctx context.Context, inv invoice.Invoice, opts portal.SubmitOptions) (portal.Result, error)
	Screenshot(ctx context.Context) ([]byte, error)
	Close() error
}

// PortalFactory opens a new browser session
type PortalFactory func(ctx context.Context) (Portal, error)

// Status of a finished submission
type Status string

const (
	StatusSubmitted Status = "submitted"
	StatusDryRun    Status = "dry_run"
)

// SubmitOptions controls one submission
type SubmitOptions struct {
	// Confirm pauses for the operator before and after issuing
	Confirm bool
	// DryRun fills the form but does not issue the invoice
	DryRun bool
}

// Submission is the outcome of a successful Submit
type Submission struct {
	ID uuid.UUID `json:"id"`
	// Invoice is what was typed into the form (always EUR)
	Invoice invoice.Invoice `json:"invoice"`
	// Original is the invoice as the operator entered it
	Original        invoice.Invoice `json:"original"`
	Status          Status          `json:"status"`
	URL             string          `json:"url"`
	ReceiptLocation string          `json:"receipt_location,omitempty"`
	StartedAt       time.Time       `json:"started_at"`
	FinishedAt      time.Time       `json:"finished_at"`
}

// Config holds the collaborators of a Service
type Config struct {
	Portals   PortalFactory
	Converter invoice.Converter
	// Archive stores receipts of issued invoices. Nil disables archiving.
	Archive storage.Archive
	Metrics *metrics.Metrics
	Logger  *zap.Logger
	Clock   func() time.Time
}

// Service submits invoices and converts amounts
type Service struct {
	portals   PortalFactory
	converter invoice.Converter
	archive   storage.Archive
	metrics   *metrics.Metrics
	logger    *zap.Logger
	clock     func() time.Time
}

// NewService creates a Service
func NewService(cfg Config) *Service {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	return &Service{
		portals:   cfg.Portals,
		converter: cfg.Converter,
		archive:   cfg.Archive,
		metrics:   cfg.Metrics,
		logger:    cfg.Logger,
		clock:     cfg.Clock,
	}
}

// Submit logs in and submits inv in a fresh browser session.
// The session is closed after a successful run. After a failure it is left
// open so the operator can see where the run stopped.
func (s *Service) Submit(ctx context.Context, inv invoice.Invoice, opts SubmitOptions) (*Submission, error) {
	sub := &Submission{
		ID:        uuid.New(),
		Original:  inv,
		StartedAt: s.clock(),
	}
	ctx, log := logger.WithSubmissionID(ctx, logger.FromContext(ctx, s.logger), sub.ID.String())
	ctx, span := telemetry.StartSpan(ctx, "invoicing.submit",
		telemetry.WithAttribute(telemetry.SpanAttrSubmissionID, sub.ID.String()),
		telemetry.WithAttribute(telemetry.SpanAttrDryRun, opts.DryRun),
	)
	defer span.End()

	log.Info("Submission started",
		zap.String("amount", inv.Money().String()),
		zap.String("date", inv.DateString()),
		zap.Bool("confirm", opts.Confirm),
		zap.Bool("dry_run", opts.DryRun),
	)

	err := s.submit(ctx, log, inv, opts, sub)
	sub.FinishedAt = s.clock()
	elapsed := sub.FinishedAt.Sub(sub.StartedAt)
	if err != nil {
		s.metrics.RecordSubmission(metrics.ResultLabel(err), elapsed)
		telemetry.RecordError(span, err)
		log.Error("Submission failed", zap.Duration("elapsed", elapsed), zap.Error(err))
		return nil, err
	}

	s.metrics.RecordSubmission(string(sub.Status), elapsed)
	telemetry.SetOK(span)
	log.Info("Submission finished",
		zap.String("status", string(sub.Status)),
		zap.String("url", sub.URL),
		zap.String("receipt", sub.ReceiptLocation),
		zap.Duration("elapsed", elapsed),
	)
	return sub, nil
}

func (s *Service) submit(ctx context.Context, log *zap.Logger, inv invoice.Invoice, opts SubmitOptions, sub *Submission) error {
	session, err := s.open(ctx)
	if err != nil {
		return err
	}

	if err := session.Login(ctx); err != nil {
		return err
	}

	result, err := session.SubmitInvoice(ctx, inv, portal.SubmitOptions{Confirm: opts.Confirm, DryRun: opts.DryRun})
	if err != nil {
		return err
	}
	sub.Invoice = result.Invoice
	sub.URL = result.URL
	sub.Status = StatusSubmitted
	if !result.Issued {
		sub.Status = StatusDryRun
	}

	if result.Issued && s.archive != nil {
		location, err := s.storeReceipt(ctx, session, inv, sub.ID)
		if err != nil {
			return err
		}
		sub.ReceiptLocation = location
	}

	if err := session.Close(); err != nil {
		log.Warn("Failed to close browser", zap.Error(err))
	}
	return nil
}

func (s *Service) storeReceipt(ctx context.Context, session Portal, inv invoice.Invoice, id uuid.UUID) (string, error) {
	data, err := session.Screenshot(ctx)
	if err != nil {
		return "", err
	}
	location, err := s.archive.Store(ctx, storage.ReceiptKey(inv.Date(), id), data, storage.ContentTypePNG)
	if err != nil {
		return "", shared.NewAutomationError("failed to archive receipt", err)
	}
	return location, nil
}

// CheckLogin opens a session and only logs in.
// The session is closed when the login succeeds.
func (s *Service) CheckLogin(ctx context.Context) error {
	ctx, span := telemetry.StartSpan(ctx, "invoicing.check_login")
	defer span.End()

	session, err := s.open(ctx)
	if err != nil {
		telemetry.RecordError(span, err)
		return err
	}
	if err := session.Login(ctx); err != nil {
		telemetry.RecordError(span, err)
		return err
	}
	if err := session.Close(); err != nil {
		logger.L(ctx, s.logger).Warn("Failed to close browser", zap.Error(err))
	}
	return nil
}

// Convert re-denominates amount using the rates published on the given day
func (s *Service) Convert(ctx context.Context, amount decimal.Decimal, from, to valueobject.Currency, on time.Time) (valueobject.Money, error) {
	if !from.IsValid() {
		return valueobject.Money{}, shared.NewValidationError("from", "must be a three-letter ISO 4217 code")
	}
	if !to.IsValid() {
		return valueobject.Money{}, shared.NewValidationError("to", "must be a three-letter ISO 4217 code")
	}
	converted, err := s.converter.Convert(ctx, amount, from, to, on)
	if err != nil {
		return valueobject.Money{}, err
	}
	return valueobject.NewMoney(converted, to)
}

func (s *Service) open(ctx context.Context) (Portal, error) {
	session, err := s.portals(ctx)
	if err != nil {
		var domainErr *shared.DomainError
		if errors.As(err, &domainErr) {
			return nil, err
		}
		return nil, shared.NewAutomationError("failed to start browser", err)
	}
	return session, nil
}
