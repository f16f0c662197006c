package portal

import (
	"context"
	"fmt"

	"github.com/recibos/taxbot/internal/domain/invoice"
	"github.com/recibos/taxbot/internal/domain/shared"
	"github.com/recibos/taxbot/internal/domain/shared/valueobject"
	"github.com/recibos/taxbot/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// PortalCurrency is the currency invoices are issued in
const PortalCurrency = valueobject.EUR

// SubmitOptions controls one SubmitInvoice call
type SubmitOptions struct {
	// Confirm pauses for the operator before and after issuing
	Confirm bool
	// DryRun fills the form but never clicks EMITIR
	DryRun bool
}

// Result describes what SubmitInvoice did
type Result struct {
	// Invoice is the invoice as typed into the form (in EUR)
	Invoice invoice.Invoice
	// Issued is false for dry runs
	Issued bool
	// URL is the page the browser ended on
	URL string
}

// WebsiteConfig holds the collaborators of a Website
type WebsiteConfig struct {
	Browser     Browser
	Converter   invoice.Converter
	Confirmer   Confirmer
	Credentials CredentialsSource
	Pages       Pages
	Logger      *zap.Logger
}

// Website drives one browser session through login and invoice issuing.
// Steps run strictly in order; a failed step stops the run and leaves the
// browser where it was.
type Website struct {
	browser     Browser
	converter   invoice.Converter
	confirmer   Confirmer
	credentials CredentialsSource
	pages       Pages
	logger      *zap.Logger
}

// NewWebsite creates a Website
func NewWebsite(cfg WebsiteConfig) *Website {
	if cfg.Confirmer == nil {
		cfg.Confirmer = NoopConfirmer{}
	}
	if cfg.Credentials == nil {
		cfg.Credentials = EnvCredentials(".env")
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Website{
		browser:     cfg.Browser,
		converter:   cfg.Converter,
		confirmer:   cfg.Confirmer,
		credentials: cfg.Credentials,
		pages:       cfg.Pages.withDefaults(),
		logger:      cfg.Logger,
	}
}

// Screenshot captures the page the browser is on
func (w *Website) Screenshot(ctx context.Context) ([]byte, error) {
	data, err := w.browser.Screenshot(ctx)
	if err != nil {
		return nil, automation("capture screenshot", err)
	}
	return data, nil
}

// Close ends the browser session
func (w *Website) Close() error {
	return w.browser.Close()
}

// Login signs in with the NIF tab of the login page and waits until the
// portal redirects to the logged-in address.
func (w *Website) Login(ctx context.Context) error {
	ctx, span := telemetry.StartSpan(ctx, "portal.login")
	defer span.End()

	err := w.login(ctx)
	if err != nil {
		telemetry.RecordError(span, err)
		w.logger.Error("Portal login failed", zap.Error(err))
		return err
	}
	w.logger.Info("Logged in to the tax portal")
	return nil
}

func (w *Website) login(ctx context.Context) error {
	if err := w.browser.Navigate(ctx, w.pages.LoginURL); err != nil {
		return automation("open login page", err)
	}

	tabs, err := w.browser.Elements(ctx, selTabLabel)
	if err != nil {
		return automation("read login tabs", err)
	}
	if len(tabs) <= loginTabIndex {
		return shared.NewAutomationError(fmt.Sprintf("login page shows %d tabs, expected the NIF tab", len(tabs)), nil)
	}
	if err := w.browser.ClickElement(ctx, selTabLabel, loginTabIndex); err != nil {
		return automation("select NIF login tab", err)
	}

	creds, err := w.credentials()
	if err != nil {
		return err
	}

	if err := w.browser.SendKeys(ctx, selUsername, creds.NIF); err != nil {
		return automation("type NIF", err)
	}
	if err := w.browser.SendKeys(ctx, selPassword, creds.Password); err != nil {
		return automation("type password", err)
	}
	if err := w.browser.Click(ctx, selLoginSubmit); err != nil {
		return automation("submit login", err)
	}
	if err := w.browser.WaitURLContains(ctx, w.pages.LoggedInMarker, w.pages.WaitTimeout); err != nil {
		return automation("wait for login", err)
	}
	return nil
}

// SubmitInvoice converts inv to EUR when needed, fills the invoice form and
// issues it. With opts.DryRun it stops before the first EMITIR click.
func (w *Website) SubmitInvoice(ctx context.Context, inv invoice.Invoice, opts SubmitOptions) (Result, error) {
	ctx, span := telemetry.StartSpan(ctx, "portal.submit_invoice",
		telemetry.WithAttribute(telemetry.SpanAttrInvoiceDate, inv.DateString()),
		telemetry.WithAttribute(telemetry.SpanAttrDryRun, opts.DryRun),
	)
	defer span.End()

	result, err := w.submit(ctx, inv, opts)
	if err != nil {
		telemetry.RecordError(span, err)
		w.logger.Error("Invoice submission failed",
			zap.String("date", inv.DateString()),
			zap.Error(err),
		)
		return Result{}, err
	}

	w.logger.Info("Invoice form completed",
		zap.String("amount", result.Invoice.Money().String()),
		zap.String("date", result.Invoice.DateString()),
		zap.Bool("issued", result.Issued),
		zap.String("url", result.URL),
	)
	return result, nil
}

func (w *Website) submit(ctx context.Context, inv invoice.Invoice, opts SubmitOptions) (Result, error) {
	if inv.Currency() != PortalCurrency {
		converted, err := inv.ToCurrency(ctx, w.converter, PortalCurrency)
		if err != nil {
			return Result{}, err
		}
		w.logger.Info("Invoice converted",
			zap.String("original", inv.Money().String()),
			zap.String("converted", converted.Money().String()),
			zap.String("date", inv.DateString()),
		)
		inv = converted
	}

	if err := w.fillForm(ctx, inv); err != nil {
		return Result{}, err
	}
	telemetry.AddEvent(telemetry.SpanFromContext(ctx), "form_filled",
		telemetry.SpanAttrAmount, inv.AmountFixed(),
	)

	if err := w.confirm(ctx, opts, "Review the invoice form."); err != nil {
		return Result{}, err
	}

	if opts.DryRun {
		location, err := w.browser.URL(ctx)
		if err != nil {
			return Result{}, automation("read page address", err)
		}
		return Result{Invoice: inv, Issued: false, URL: location}, nil
	}

	if err := w.issue(ctx, opts); err != nil {
		return Result{}, err
	}

	location, err := w.browser.URL(ctx)
	if err != nil {
		return Result{}, automation("read page address", err)
	}
	return Result{Invoice: inv, Issued: true, URL: location}, nil
}

func (w *Website) fillForm(ctx context.Context, inv invoice.Invoice) error {
	if err := w.browser.Navigate(ctx, w.pages.InvoiceFormURL(inv)); err != nil {
		return automation("open invoice form", err)
	}
	if err := w.browser.SelectOption(ctx, selCountry, w.pages.Country); err != nil {
		return automation("select client country", err)
	}
	if err := w.browser.SendKeys(ctx, selClientName, inv.ClientName()); err != nil {
		return automation("type client name", err)
	}
	if err := w.browser.Click(ctx, titleSelector(w.pages.ReceiptTitle)); err != nil {
		return automation("choose receipt title", err)
	}
	if err := w.browser.SendKeys(ctx, selDescription, inv.Description()); err != nil {
		return automation("type description", err)
	}
	if err := w.browser.SendKeys(ctx, selBaseValue, inv.AmountFixed()); err != nil {
		return automation("type amount", err)
	}
	if err := w.browser.SelectOption(ctx, selVATRegime, w.pages.VATRegime); err != nil {
		return automation("select VAT regime", err)
	}
	if err := w.browser.SelectOption(ctx, selIRSRegime, w.pages.IRSRegime); err != nil {
		return automation("select IRS regime", err)
	}
	return nil
}

// issue clicks EMITIR, then the EMITIR of the confirmation dialog, and waits
// for the completion page.
func (w *Website) issue(ctx context.Context, opts SubmitOptions) error {
	buttons, err := w.browser.Elements(ctx, selButton)
	if err != nil {
		return automation("read form buttons", err)
	}
	idx := findByText(buttons, issueLabel, false)
	if idx < 0 {
		return shared.NewAutomationError("no EMITIR button on the invoice form", nil)
	}
	if err := w.browser.ClickElement(ctx, selButton, idx); err != nil {
		return automation("click EMITIR", err)
	}

	if err := w.confirm(ctx, opts, "Review the confirmation dialog."); err != nil {
		return err
	}

	if err := w.browser.WaitVisible(ctx, selSuccessButton, w.pages.WaitTimeout); err != nil {
		return automation("wait for confirmation dialog", err)
	}
	confirmButtons, err := w.browser.Elements(ctx, selSuccessButton)
	if err != nil {
		return automation("read confirmation buttons", err)
	}
	idx = findByText(confirmButtons, issueLabel, true)
	if idx < 0 {
		return shared.NewAutomationError("no visible EMITIR button in the confirmation dialog", nil)
	}
	if err := w.browser.ClickElement(ctx, selSuccessButton, idx); err != nil {
		return automation("confirm EMITIR", err)
	}

	if err := w.browser.WaitURLContains(ctx, w.pages.CompletedMarker, w.pages.WaitTimeout); err != nil {
		return automation("wait for issued invoice", err)
	}

	return w.confirm(ctx, opts, "Invoice issued.")
}

func (w *Website) confirm(ctx context.Context, opts SubmitOptions, message string) error {
	if !opts.Confirm {
		return nil
	}
	if err := w.confirmer.Confirm(ctx, message); err != nil {
		return automation("operator confirmation", err)
	}
	return nil
}

func automation(step string, err error) error {
	return shared.NewAutomationError("failed to "+step, err)
}
