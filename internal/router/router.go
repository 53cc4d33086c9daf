package router

import (
	"github.com/gin-gonic/gin"

	"invox/internal/domain"
	"invox/internal/handler"
	"invox/internal/middleware"
	"invox/internal/service"
)

// Setup configures the Gin engine with all routes and middleware.
func Setup(
	authSvc service.AuthService,
	authH *handler.AuthHandler,
	invoiceH *handler.InvoiceHandler,
	chatH *handler.ChatHandler,
	healthH *handler.HealthHandler,
	allowedOrigins []string,
) *gin.Engine {
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.CORS(allowedOrigins))

	// Health checks
	r.GET("/healthz", healthH.Liveness)
	r.GET("/readyz", healthH.Readiness)

	v1 := r.Group("/api/v1")

	// Public auth routes
	auth := v1.Group("/auth")
	auth.POST("/login", authH.Login)
	auth.POST("/refresh", authH.RefreshToken)

	// Protected routes - require valid JWT
	protected := v1.Group("")
	protected.Use(middleware.AuthMiddleware(authSvc))

	protected.POST("/auth/register", middleware.RequireRole(domain.RoleAdmin), authH.Register)

	// Invoice routes
	invoices := protected.Group("/invoices")
	invoices.POST("", invoiceH.Upload)
	invoices.GET("", invoiceH.List)
	invoices.GET("/export", invoiceH.Export)
	invoices.DELETE("", middleware.RequireRole(domain.RoleAdmin), invoiceH.DeleteAll)
	invoices.GET("/:id", invoiceH.Get)
	invoices.DELETE("/:id", invoiceH.Delete)
	invoices.POST("/:id/reprocess", invoiceH.Reprocess)
	invoices.GET("/:id/file", invoiceH.FileURL)
	invoices.POST("/:id/chat", chatH.Ask)
	invoices.GET("/:id/chat/suggestions", chatH.Suggest)

	return r
}
