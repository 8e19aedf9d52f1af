package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"librarydesk/internal/auth"
	"librarydesk/internal/services"
)

// Services bundles what the HTTP layer needs. Ping backs the health check.
type Services struct {
	Borrows  services.BorrowService
	Reports  services.ReportService
	Catalog  services.CatalogService
	Accounts services.AccountService
	Tokens   *auth.TokenManager
	Ping     func(ctx context.Context) error
}

type LibraryHandler struct {
	Services
	log *zap.Logger
}

func RegisterRoutes(r *gin.Engine, svcs Services, log *zap.Logger) {
	h := &LibraryHandler{Services: svcs, log: log.Named("http")}
	authed := RequireAuth(svcs.Tokens)
	admin := RequireAdmin()

	r.GET("/healthz", h.health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	api.POST("/login", h.login)
	api.GET("/user/profile", authed, h.profile)

	// Borrow lifecycle and reports
	borrow := api.Group("/borrow", authed)
	borrow.POST("", h.borrowBook)
	borrow.POST("/return", h.returnBook)
	borrow.GET("/history", h.borrowHistory)
	borrow.GET("/records", admin, h.borrowRecords)

	// Catalogue
	books := api.Group("/books")
	books.GET("/available", h.listAvailableBooks)
	books.GET("", authed, admin, h.listBooks)
	books.POST("", authed, admin, h.createBook)
	books.PUT("/:id", authed, admin, h.updateBook)
	books.DELETE("/delete/:id", authed, admin, h.deleteBook)
	books.PUT("/restore/:id", authed, admin, h.restoreBook)

	// Account administration
	users := api.Group("/admin/user", authed, admin)
	users.GET("", h.listUsers)
	users.POST("", h.createUser)
	users.PUT("/:id", h.updateUser)
	users.DELETE("/:id", h.deleteUser)
}

func (h *LibraryHandler) health(c *gin.Context) {
	if h.Ping != nil {
		if err := h.Ping(c.Request.Context()); err != nil {
			h.log.Warn("health: database ping failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
