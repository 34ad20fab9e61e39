package httpserver

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"souq-orders/internal/domain"
	ordersvc "souq-orders/internal/service/order"
)

type orderService interface {
	CalculatePricing(ctx context.Context, in ordersvc.PreviewInput) (*ordersvc.Preview, error)
	AddOrder(ctx context.Context, in ordersvc.AddOrderInput) (*ordersvc.Receipt, error)
	Modify(ctx context.Context, id int64, in ordersvc.ModifyInput) (*domain.Order, error)
	Get(ctx context.Context, id int64) (*domain.Order, error)
	List(ctx context.Context, q ordersvc.ListQuery) (*ordersvc.Page, error)
	Export(ctx context.Context, status string) ([]domain.Order, error)
	UpdateStatus(ctx context.Context, id int64, status string) (*domain.Order, error)
	Delete(ctx context.Context, id int64) error
}

type notificationService interface {
	List(ctx context.Context, unreadOnly bool, limit int) ([]domain.Notification, error)
	MarkRead(ctx context.Context, id int64) error
}

// Deps are the services behind the routes. A nil Hub disables /admin/ws.
type Deps struct {
	Orders        orderService
	Notifications notificationService
	Hub           http.Handler
}

// Options tunes router behavior.
type Options struct {
	DevMode        bool
	AllowedOrigins []string
	// AdminKeyHash is a bcrypt hash of the admin key. Empty disables the gate.
	AdminKeyHash string
}

// buildRouter wires routes for the API.
func buildRouter(logger *log.Logger, checks map[string]Check, deps Deps, opts Options) (*gin.Engine, error) {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	if deps.Orders == nil {
		return nil, errors.New("order service is required")
	}
	if deps.Notifications == nil {
		return nil, errors.New("notification service is required")
	}

	if gin.Mode() != gin.TestMode {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(requestID(), gin.LoggerWithWriter(logger.Writer()), gin.Recovery(), corsMiddleware(opts.AllowedOrigins))

	router.GET("/healthz", healthHandler)
	router.GET("/readyz", readyHandler(checks))

	h := &handlers{
		orders:        deps.Orders,
		notifications: deps.Notifications,
		logger:        logger,
		devMode:       opts.DevMode,
	}

	router.POST("/calculate-pricing", h.calculatePricing)
	router.POST("/order/add", h.addOrder)

	admin := router.Group("/", adminGate(opts.AdminKeyHash))
	admin.GET("/order/getAll", h.listOrders)
	admin.GET("/order/export", h.exportOrders)
	admin.GET("/order/:id", h.getOrder)
	admin.POST("/order/:id", h.modifyOrder)
	admin.PATCH("/order/:id/status", h.updateStatus)
	admin.DELETE("/order/:id", h.deleteOrder)
	admin.GET("/notifications", h.listNotifications)
	admin.PATCH("/notifications/:id/read", h.markNotificationRead)
	if deps.Hub != nil {
		admin.GET("/admin/ws", gin.WrapH(deps.Hub))
	}

	return router, nil
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", adminKeyHeader, requestIDHeader},
		ExposeHeaders: []string{"Content-Length", "Content-Disposition", requestIDHeader},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
		cfg.AllowCredentials = true
	}
	return cors.New(cfg)
}
