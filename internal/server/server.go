package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/crm/internal/config"
	customerdomain "github.com/smallbiznis/crm/internal/customer/domain"
	jobrundomain "github.com/smallbiznis/crm/internal/jobrun/domain"
	"github.com/smallbiznis/crm/internal/observability"
	obsmiddleware "github.com/smallbiznis/crm/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/crm/internal/observability/metrics"
	obstracing "github.com/smallbiznis/crm/internal/observability/tracing"
	orderdomain "github.com/smallbiznis/crm/internal/order/domain"
	productdomain "github.com/smallbiznis/crm/internal/product/domain"
	"github.com/smallbiznis/crm/internal/ratelimit"
	"github.com/smallbiznis/crm/internal/replenishment"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Module serves the API. The domain modules it depends on are wired by the
// binaries so the scheduler-only binary can share them.
var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	ratelimit.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

const helloMessage = "Hello, GraphQL!"

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware(nil))
	if httpMetrics != nil {
		r.Use(httpMetrics.Middleware())
	}
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	return NewEngine(obsCfg, httpMetrics)
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatal("http server stopped", zap.Error(err))
				}
			}()
			log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine        *gin.Engine
	log           *zap.Logger
	customerSvc   customerdomain.Service
	productSvc    productdomain.Service
	orderSvc      orderdomain.Service
	jobRunSvc     jobrundomain.Service
	replenishment *replenishment.Service
	writeLimiter  *ratelimit.WriteLimiter
}

type ServerParams struct {
	fx.In

	Gin           *gin.Engine
	Log           *zap.Logger
	CustomerSvc   customerdomain.Service
	ProductSvc    productdomain.Service
	OrderSvc      orderdomain.Service
	JobRunSvc     jobrundomain.Service
	Replenishment *replenishment.Service
	WriteLimiter  *ratelimit.WriteLimiter `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:        p.Gin,
		log:           p.Log.Named("http.server"),
		customerSvc:   p.CustomerSvc,
		productSvc:    p.ProductSvc,
		orderSvc:      p.OrderSvc,
		jobRunSvc:     p.JobRunSvc,
		replenishment: p.Replenishment,
		writeLimiter:  p.WriteLimiter,
	}

	svc.RegisterAPIRoutes()
	return svc
}

func (s *Server) RegisterAPIRoutes() {
	api := s.engine.Group("/api")
	api.GET("/hello", s.Hello)

	write := s.writeLimiter.Middleware()

	s.registerCustomerRoutes(api, write)
	s.registerProductRoutes(api, write)
	s.registerOrderRoutes(api, write)

	api.GET("/job-runs", s.ListJobRuns)
}

func (s *Server) registerCustomerRoutes(api *gin.RouterGroup, write gin.HandlerFunc) {
	customers := api.Group("/customers")
	customers.GET("", s.ListCustomers)
	customers.POST("", write, s.CreateCustomer)
	customers.POST("/bulk", write, s.BulkCreateCustomers)
}

func (s *Server) registerProductRoutes(api *gin.RouterGroup, write gin.HandlerFunc) {
	products := api.Group("/products")
	products.GET("", s.ListProducts)
	products.POST("", write, s.CreateProduct)
	products.POST("/low-stock", write, s.UpdateLowStockProducts)
}

func (s *Server) registerOrderRoutes(api *gin.RouterGroup, write gin.HandlerFunc) {
	orders := api.Group("/orders")
	orders.GET("", s.ListOrders)
	orders.POST("", write, s.CreateOrder)
}

func (s *Server) Hello(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"data": gin.H{"hello": helloMessage}})
}
