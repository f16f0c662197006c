package portal

import (
	"net/url"
	"time"

	"github.com/recibos/taxbot/internal/domain/invoice"
)

// Pages holds the portal addresses and the fixed answers typed into the form
type Pages struct {
	LoginURL string
	// LoggedInMarker appears in the URL once the login succeeded
	LoggedInMarker string
	// FormURL is the invoice form, without query
	FormURL string
	// CompletedMarker appears in the URL once the invoice is issued
	CompletedMarker string

	Country      string
	VATRegime    string
	IRSRegime    string
	WaitTimeout  time.Duration
	ReceiptTitle string
}

// DefaultPages returns the production portal settings
func DefaultPages() Pages {
	return Pages{
		LoginURL:        "https://www.acesso.gov.pt/v2/loginForm?partID=SIRE&path=/recibos/portal/",
		LoggedInMarker:  "https://irs.portaldasfinancas.gov.pt/recibos/;sireinter_JSessionID=",
		FormURL:         "https://irs.portaldasfinancas.gov.pt/recibos/portal/emitir/emitirfatura",
		CompletedMarker: "recibos/portal/consultar",
		Country:         "ESTADOS UNIDOS",
		VATRegime:       "Regras de localização - art.º 6.º [do CIVA]",
		IRSRegime:       "Sem retenção - Não residente sem estabelecimento",
		WaitTimeout:     10 * time.Second,
		ReceiptTitle:    "1",
	}
}

func (p Pages) withDefaults() Pages {
	d := DefaultPages()
	if p.LoginURL == "" {
		p.LoginURL = d.LoginURL
	}
	if p.LoggedInMarker == "" {
		p.LoggedInMarker = d.LoggedInMarker
	}
	if p.FormURL == "" {
		p.FormURL = d.FormURL
	}
	if p.CompletedMarker == "" {
		p.CompletedMarker = d.CompletedMarker
	}
	if p.Country == "" {
		p.Country = d.Country
	}
	if p.VATRegime == "" {
		p.VATRegime = d.VATRegime
	}
	if p.IRSRegime == "" {
		p.IRSRegime = d.IRSRegime
	}
	if p.WaitTimeout <= 0 {
		p.WaitTimeout = d.WaitTimeout
	}
	if p.ReceiptTitle == "" {
		p.ReceiptTitle = d.ReceiptTitle
	}
	return p
}

// InvoiceFormURL returns the form address for an invoice dated on inv's date
func (p Pages) InvoiceFormURL(inv invoice.Invoice) string {
	q := url.Values{}
	q.Set("dataCopia", inv.DateString())
	q.Set("tipoRecibo", "FR")
	return p.FormURL + "?" + q.Encode()
}

// Form selectors
const (
	selTabLabel      = ".tab-label"
	selUsername      = "#username"
	selPassword      = "#password-nif"
	selLoginSubmit   = "#sbmtLogin"
	selCountry       = `select[name="pais"]`
	selClientName    = `input[name="nomeAdquirente"]`
	selDescription   = `textarea[name="servicoPrestado"]`
	selBaseValue     = `input[name="valorBase"]`
	selVATRegime     = `select[name="regimeIva"]`
	selIRSRegime     = `select[name="regimeIncidenciaIrs"]`
	selButton        = "button"
	selSuccessButton = "button.btn-success"
	issueLabel       = "EMITIR"
	loginTabIndex    = 1
)

func titleSelector(value string) string {
	return `input[name="titulo"][value="` + value + `"]`
}
