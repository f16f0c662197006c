package router

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/recibos/taxbot/internal/infrastructure/logger"
	"github.com/recibos/taxbot/internal/infrastructure/metrics"
	"github.com/recibos/taxbot/internal/interfaces/http/handler"
	"github.com/recibos/taxbot/internal/interfaces/http/middleware"
	"go.uber.org/zap"
)

// EngineConfig holds everything New needs to build the engine
type EngineConfig struct {
	AppName        string
	Version        string
	TrustedProxies []string
	MaxBodySize    int64
	Tracing        middleware.TracingConfig
	// Metrics enables GET /metrics and request metrics when non-nil
	Metrics *metrics.Metrics
	Logger  *zap.Logger
	// Invoices backs the form page and the invoice API
	Invoices handler.InvoiceService
	// Confirm is the default confirmation mode of submissions
	Confirm bool
}

// New builds the gin engine with the middleware stack and every route
func New(cfg EngineConfig) (*gin.Engine, error) {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		return nil, fmt.Errorf("set trusted proxies: %w", err)
	}

	// Order matters: the request ID must exist before logging and tracing read it
	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(cfg.Logger))
	engine.Use(middleware.Tracing(cfg.Tracing))
	engine.Use(middleware.SpanEnricher())
	engine.Use(logger.GinMiddleware(cfg.Logger))
	engine.Use(middleware.HTTPMetrics(cfg.Metrics))
	engine.Use(middleware.Secure(middleware.DefaultSecurityConfig()))
	if cfg.MaxBodySize > 0 {
		engine.Use(middleware.BodyLimit(cfg.MaxBodySize))
	}

	systemHandler := handler.NewSystemHandler(cfg.AppName, cfg.Version)
	engine.GET("/health", systemHandler.Health)
	if cfg.Metrics != nil {
		engine.GET("/metrics", gin.WrapH(cfg.Metrics.Handler()))
	}

	formHandler := handler.NewFormHandler(cfg.Invoices, cfg.Confirm)
	engine.GET("/", formHandler.Index)
	engine.POST("/start-automation", formHandler.StartAutomation)

	invoiceHandler := handler.NewInvoiceHandler(cfg.Invoices, cfg.Confirm)

	systemRoutes := NewDomainGroup("system", "/system")
	systemRoutes.GET("/info", systemHandler.GetSystemInfo)
	systemRoutes.GET("/ping", systemHandler.Ping)

	invoiceRoutes := NewDomainGroup("invoices", "/invoices")
	invoiceRoutes.POST("", invoiceHandler.Submit)

	conversionRoutes := NewDomainGroup("conversions", "/conversions")
	conversionRoutes.POST("", invoiceHandler.Convert)

	groups := []*DomainGroup{systemRoutes, invoiceRoutes, conversionRoutes}
	r := NewRouter(engine)
	for _, g := range groups {
		r.Register(g)
		cfg.Logger.Debug("Routes registered",
			zap.String("group", g.Name()),
			zap.Strings("routes", g.Routes()),
		)
	}
	r.Setup()

	return engine, nil
}
