// Package v1 provides the HTTP API.
package v1

import (
	"github.com/gin-gonic/gin"

	"invoicedesk/internal/core/docstore"
	"invoicedesk/internal/domain/customer"
	"invoicedesk/internal/domain/invoice"
	"invoicedesk/internal/domain/product"
	"invoicedesk/internal/infrastructure/http/v1/handlers"
	"invoicedesk/internal/infrastructure/http/v1/middleware"
	"invoicedesk/internal/infrastructure/idempotency"
	"invoicedesk/pkg/logger"
)

// RouterConfig holds router dependencies.
type RouterConfig struct {
	// Store backs the readiness check
	Store       docstore.Store
	StoreDriver string

	// Logger for request logging
	Logger *logger.Logger

	// Development enables gin debug mode
	Development bool

	// JWTValidator, when set, enables bearer-token auth on /api
	JWTValidator middleware.JWTValidator

	// AuthOptional lets requests without a token through; tokens that are
	// present still identify the caller
	AuthOptional bool

	// AdminRole is required to delete customers and products when auth is on
	AdminRole string

	// Idempotency, when set, enables X-Idempotency-Key handling on /api
	Idempotency *idempotency.Store

	Customers *customer.Service
	Products  *product.Service
	Invoices  *invoice.Service
	Sequence  handlers.SequenceService
}

// NewRouter creates and configures the Gin router.
func NewRouter(cfg RouterConfig) *gin.Engine {
	if cfg.Development {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Global middleware (order matters!)
	router.Use(middleware.Recovery())
	router.Use(middleware.Trace())
	router.Use(middleware.Logger(cfg.Logger))
	router.Use(middleware.ErrorHandler())

	healthHandler := handlers.NewHealthHandler(cfg.Store, cfg.StoreDriver)
	health := router.Group("/health")
	{
		health.GET("/live", healthHandler.Live)
		health.GET("/ready", healthHandler.Ready)
	}

	api := router.Group("/api")
	var adminOnly []gin.HandlerFunc
	if cfg.JWTValidator != nil {
		if cfg.AuthOptional {
			api.Use(middleware.OptionalAuth(cfg.JWTValidator))
		} else {
			api.Use(middleware.Auth(cfg.JWTValidator))
		}
		if cfg.AdminRole != "" {
			adminOnly = append(adminOnly, middleware.RequireRole(cfg.AdminRole))
		}
	}
	if cfg.Idempotency != nil {
		api.Use(middleware.Idempotency(cfg.Idempotency))
	}

	baseHandler := handlers.NewBaseHandler()
	registerCustomerRoutes(api, baseHandler, cfg, adminOnly)
	registerProductRoutes(api, baseHandler, cfg, adminOnly)
	registerInvoiceRoutes(api, baseHandler, cfg)
	registerMetaDataRoutes(api, baseHandler, cfg)

	return router
}

func registerCustomerRoutes(rg *gin.RouterGroup, base *handlers.BaseHandler, cfg RouterConfig, deleteGuards []gin.HandlerFunc) {
	handler := handlers.NewCustomerHandler(base, cfg.Customers)
	group := rg.Group("/customers")
	group.GET("/search", handler.Search)
	RegisterEntityRoutes(group, handler, deleteGuards...)
}

func registerProductRoutes(rg *gin.RouterGroup, base *handlers.BaseHandler, cfg RouterConfig, deleteGuards []gin.HandlerFunc) {
	handler := handlers.NewProductHandler(base, cfg.Products)
	group := rg.Group("/products")
	group.GET("/code", handler.GetByCode)
	RegisterEntityRoutes(group, handler, deleteGuards...)
}

// Invoices are immutable once issued: no update or delete routes.
func registerInvoiceRoutes(rg *gin.RouterGroup, base *handlers.BaseHandler, cfg RouterConfig) {
	handler := handlers.NewInvoiceHandler(base, cfg.Invoices)
	group := rg.Group("/invoices")
	group.GET("", handler.List)
	group.POST("", handler.Create)
	group.GET("/:id", handler.Get)
}

func registerMetaDataRoutes(rg *gin.RouterGroup, base *handlers.BaseHandler, cfg RouterConfig) {
	handler := handlers.NewMetaDataHandler(base, cfg.Sequence)
	rg.GET("/meta_data", handler.Get)
	rg.POST("/meta_data", handler.Sequence)
}
