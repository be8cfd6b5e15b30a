// Package api is the HTTP surface of the gateway: order entry for callers,
// order and request inspection, health and metrics.
package api

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"

	"github.com/Aidin1998/pincex_gateway/api/handlers"
	"github.com/Aidin1998/pincex_gateway/pkg/validation"
)

// Server represents the API server
type Server struct {
	router    *gin.Engine
	logger    *zap.Logger
	service   handlers.OrderService
	orders    *handlers.OrderHandlers
	validator *validation.Validator
}

// NewServer creates a new API server over the gateway
func NewServer(logger *zap.Logger, service handlers.OrderService) *Server {
	logger = logger.Named("api")
	validate := validation.NewValidator(logger)
	server := &Server{
		logger:    logger,
		service:   service,
		orders:    handlers.NewOrderHandlers(service, validate, logger),
		validator: validate,
	}

	router := gin.New()
	router.Use(ginzap.Ginzap(logger, time.RFC3339, true))
	router.Use(ginzap.RecoveryWithZap(logger, true))
	router.Use(otelgin.Middleware("pincex-gateway"))
	router.Use(cors.New(cors.Config{
		AllowOrigins:  []string{"*"},
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "X-Trace-ID"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}))

	server.router = router
	server.registerRoutes()
	return server
}

// Router returns the internal Gin engine
func (s *Server) Router() *gin.Engine {
	return s.router
}

func (s *Server) registerRoutes() {
	public := s.router.Group("/api/v1")
	{
		public.GET("/metrics", gin.WrapH(promhttp.Handler()))
		public.GET("/health", s.healthCheck)

		orders := public.Group("/orders")
		{
			orders.POST("", s.orders.CreateOrder)
			orders.GET("/:id", s.orders.GetOrder)
			orders.PUT("/:id", s.orders.ReplaceOrder)
			orders.DELETE("/:id", s.orders.CancelOrder)
			orders.GET("/:id/executions", s.orders.GetExecutions)
		}

		public.GET("/requests/:clOrdId", s.orders.ResolveRequest)
	}
}

// healthCheck handles the health check endpoint
func (s *Server) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"session": s.service.SessionActive(),
		"time":    time.Now().UTC(),
	})
}
