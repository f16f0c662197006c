package handler

import (
	"embed"
	"html/template"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/render"
	"github.com/recibos/taxbot/internal/application/invoicing"
	"github.com/recibos/taxbot/internal/domain/invoice"
	"github.com/recibos/taxbot/internal/domain/shared/valueobject"
	"github.com/recibos/taxbot/internal/infrastructure/logger"
	"github.com/recibos/taxbot/internal/interfaces/http/dto"
	"go.uber.org/zap"
)

//go:embed templates/index.html
var templateFS embed.FS

var formTemplate = template.Must(template.ParseFS(templateFS, "templates/index.html"))

const formTemplateName = "index.html"

// FormRequest is the form posted to /start-automation
type FormRequest struct {
	invoice.Input
	Situation string `form:"situation"`
}

// formPage is the data the form template renders
type formPage struct {
	Form         invoice.Input
	Situation    string
	Descriptions []string
	Submission   *invoicing.Submission
	Error        string
}

// FormHandler serves the HTML front end
type FormHandler struct {
	service InvoiceService
	confirm bool
}

// NewFormHandler creates a FormHandler. confirm controls whether form
// submissions pause for the operator at the portal.
func NewFormHandler(service InvoiceService, confirm bool) *FormHandler {
	return &FormHandler{service: service, confirm: confirm}
}

// Index handles GET /
func (h *FormHandler) Index(c *gin.Context) {
	h.render(c, http.StatusOK, formPage{
		Form: invoice.Input{Currency: valueobject.DefaultCurrency.String()},
	})
}

// StartAutomation handles POST /start-automation. The submission runs
// synchronously; the page is rendered again with its outcome.
func (h *FormHandler) StartAutomation(c *gin.Context) {
	var req FormRequest
	if err := c.ShouldBind(&req); err != nil {
		h.render(c, http.StatusBadRequest, formPage{Form: req.Input, Situation: req.Situation, Error: err.Error()})
		return
	}

	log := logger.GetGinLogger(c)
	log.Info("Automation requested from form",
		zap.String("client_name", req.ClientName),
		zap.String("situation", req.Situation),
	)

	page := formPage{Form: req.Input, Situation: req.Situation}
	inv, err := invoice.Parse(req.Input)
	if err != nil {
		_, info := dto.FromError(err)
		page.Error = info.Message
		h.render(c, http.StatusBadRequest, page)
		return
	}

	sub, err := h.service.Submit(c.Request.Context(), inv, invoicing.SubmitOptions{Confirm: h.confirm})
	if err != nil {
		_ = c.Error(err)
		status, info := dto.FromError(err)
		page.Error = info.Message
		h.render(c, status, page)
		return
	}

	page.Submission = sub
	page.Form = invoice.Input{Currency: valueobject.DefaultCurrency.String()}
	page.Situation = ""
	h.render(c, http.StatusOK, page)
}

func (h *FormHandler) render(c *gin.Context, status int, page formPage) {
	page.Descriptions = cannedDescriptions()
	c.Render(status, render.HTML{
		Template: formTemplate,
		Name:     formTemplateName,
		Data:     page,
	})
}

func cannedDescriptions() []string {
	keys := invoice.DescriptionKeys()
	texts := make([]string, 0, len(keys))
	for _, key := range keys {
		if text, ok := invoice.CannedDescription(key); ok {
			texts = append(texts, text)
		}
	}
	return texts
}
