package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/millrun/internal/auth"
	"github.com/smallbiznis/millrun/internal/authorization"
	"github.com/smallbiznis/millrun/internal/catalog"
	"github.com/smallbiznis/millrun/internal/clock"
	"github.com/smallbiznis/millrun/internal/config"
	"github.com/smallbiznis/millrun/internal/customer"
	customerdomain "github.com/smallbiznis/millrun/internal/customer/domain"
	"github.com/smallbiznis/millrun/internal/discount"
	discountdomain "github.com/smallbiznis/millrun/internal/discount/domain"
	"github.com/smallbiznis/millrun/internal/invoice"
	invoicedomain "github.com/smallbiznis/millrun/internal/invoice/domain"
	"github.com/smallbiznis/millrun/internal/observability"
	obslogger "github.com/smallbiznis/millrun/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/millrun/internal/observability/metrics"
	obstracing "github.com/smallbiznis/millrun/internal/observability/tracing"
	"github.com/smallbiznis/millrun/internal/order"
	orderdomain "github.com/smallbiznis/millrun/internal/order/domain"
	"github.com/smallbiznis/millrun/internal/pricing"
	"github.com/smallbiznis/millrun/internal/process"
	processdomain "github.com/smallbiznis/millrun/internal/process/domain"
	"github.com/smallbiznis/millrun/internal/production"
	productiondomain "github.com/smallbiznis/millrun/internal/production/domain"
	"github.com/smallbiznis/millrun/internal/providers"
	"github.com/smallbiznis/millrun/internal/ratelimit"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	auth.Module,
	authorization.Module,
	ratelimit.Module,
	clock.Module,
	providers.Module,
	catalog.Module,
	customer.Module,
	discount.Module,
	pricing.Module,
	order.Module,
	invoice.Module,
	production.Module,
	process.Module,
	fx.Provide(NewEngine),
	fx.Provide(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obslogger.GinMiddleware(obslogger.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func run(lc fx.Lifecycle, cfg config.Config, s *Server, log *zap.Logger) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           s.Engine(),
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
	verifier      *auth.Verifier
	authzSvc      authorization.Service
	limiter       *ratelimit.Limiter
	customerSvc   customerdomain.Service
	orderSvc      orderdomain.Service
	invoiceSvc    invoicedomain.Service
	discountSvc   discountdomain.Service
	productionSvc productiondomain.Service
	processSvc    processdomain.Service
}

type ServerParams struct {
	fx.In

	Gin           *gin.Engine
	Verifier      *auth.Verifier
	AuthzSvc      authorization.Service
	Limiter       *ratelimit.Limiter `optional:"true"`
	CustomerSvc   customerdomain.Service
	OrderSvc      orderdomain.Service
	InvoiceSvc    invoicedomain.Service
	DiscountSvc   discountdomain.Service
	ProductionSvc productiondomain.Service
	ProcessSvc    processdomain.Service
}

func NewServer(p ServerParams) *Server {
	s := &Server{
		engine:        p.Gin,
		verifier:      p.Verifier,
		authzSvc:      p.AuthzSvc,
		limiter:       p.Limiter,
		customerSvc:   p.CustomerSvc,
		orderSvc:      p.OrderSvc,
		invoiceSvc:    p.InvoiceSvc,
		discountSvc:   p.DiscountSvc,
		productionSvc: p.ProductionSvc,
		processSvc:    p.ProcessSvc,
	}

	s.registerAPIRoutes()
	return s
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api")
	api.Use(auth.Middleware(s.verifier))
	if s.limiter.Enabled() {
		api.Use(s.limiter.Middleware())
	}

	// -------- Customers --------
	api.GET("/customers/:id", s.authorize(authorization.ObjectCustomer, authorization.ActionView), s.GetCustomer)
	api.GET("/customers/:id/statement", s.authorize(authorization.ObjectCustomer, authorization.ActionView), s.GetCustomerStatement)

	// -------- Orders --------
	api.GET("/orders", s.authorize(authorization.ObjectOrder, authorization.ActionView), s.ListOrders)
	api.POST("/orders", s.authorize(authorization.ObjectOrder, authorization.ActionCreate), s.CreateOrder)
	api.GET("/orders/:id", s.authorize(authorization.ObjectOrder, authorization.ActionView), s.GetOrder)
	api.PUT("/orders/:id", s.authorize(authorization.ObjectOrder, authorization.ActionUpdate), s.UpdateOrder)
	api.PATCH("/orders/:id/status", s.authorize(authorization.ObjectOrder, authorization.ActionUpdateStatus), s.UpdateOrderStatus)
	api.DELETE("/orders/:id", s.authorize(authorization.ObjectOrder, authorization.ActionDelete), s.DeleteOrder)
	api.POST("/orders/:id/items", s.authorize(authorization.ObjectOrder, authorization.ActionUpdate), s.AddOrderItem)
	api.PUT("/orders/:id/items/:itemId", s.authorize(authorization.ObjectOrder, authorization.ActionUpdate), s.UpdateOrderItem)
	api.DELETE("/orders/:id/items/:itemId", s.authorize(authorization.ObjectOrder, authorization.ActionUpdate), s.DeleteOrderItem)

	// -------- Invoices --------
	api.GET("/invoices", s.authorize(authorization.ObjectInvoice, authorization.ActionView), s.ListInvoices)
	api.POST("/invoices", s.authorize(authorization.ObjectInvoice, authorization.ActionCreate), s.CreateInvoice)
	api.GET("/invoices/:id", s.authorize(authorization.ObjectInvoice, authorization.ActionView), s.GetInvoice)
	api.PUT("/invoices/:id", s.authorize(authorization.ObjectInvoice, authorization.ActionUpdate), s.UpdateInvoice)
	api.DELETE("/invoices/:id", s.authorize(authorization.ObjectInvoice, authorization.ActionDelete), s.DeleteInvoice)
	api.POST("/invoices/:id/payment", s.authorize(authorization.ObjectInvoice, authorization.ActionPay), s.AddInvoicePayment)
	api.GET("/invoices/:id/pdf", s.authorize(authorization.ObjectInvoice, authorization.ActionView), s.RenderInvoicePDF)

	// -------- Discounts --------
	api.GET("/discounts", s.authorize(authorization.ObjectDiscount, authorization.ActionView), s.ListDiscounts)
	api.POST("/discounts", s.authorize(authorization.ObjectDiscount, authorization.ActionCreate), s.CreateDiscount)
	api.PUT("/discounts/:id", s.authorize(authorization.ObjectDiscount, authorization.ActionUpdate), s.UpdateDiscount)
	api.DELETE("/discounts/:id", s.authorize(authorization.ObjectDiscount, authorization.ActionDelete), s.DeleteDiscount)

	// -------- Production orders --------
	api.GET("/production-orders", s.authorize(authorization.ObjectProductionOrder, authorization.ActionView), s.ListProductionOrders)
	api.POST("/production-orders", s.authorize(authorization.ObjectProductionOrder, authorization.ActionCreate), s.CreateProductionOrder)
	api.GET("/production-orders/item/:id", s.authorize(authorization.ObjectProductionItem, authorization.ActionView), s.GetProductionItem)
	api.PATCH("/production-orders/item/:id", s.authorize(authorization.ObjectProductionItem, authorization.ActionUpdateStatus), s.UpdateProductionItemStatus)
	api.PUT("/production-orders/item/:id", s.authorize(authorization.ObjectProductionItem, authorization.ActionUpdate), s.UpdateProductionItem)
	api.DELETE("/production-orders/item/:id", s.authorize(authorization.ObjectProductionItem, authorization.ActionDelete), s.DeleteProductionItem)
	api.GET("/production-orders/:id", s.authorize(authorization.ObjectProductionOrder, authorization.ActionView), s.GetProductionOrder)
	api.PUT("/production-orders/:id", s.authorize(authorization.ObjectProductionOrder, authorization.ActionUpdate), s.UpdateProductionOrder)
	api.DELETE("/production-orders/:id", s.authorize(authorization.ObjectProductionOrder, authorization.ActionDelete), s.DeleteProductionOrder)
	api.GET("/production-orders/:id/items", s.authorize(authorization.ObjectProductionItem, authorization.ActionView), s.ListProductionItems)
	api.POST("/production-orders/:id/items", s.authorize(authorization.ObjectProductionItem, authorization.ActionCreate), s.CreateProductionItems)

	// -------- Processes --------
	api.GET("/processes", s.authorize(authorization.ObjectProcess, authorization.ActionView), s.ListProcesses)
	api.POST("/processes", s.authorize(authorization.ObjectProcess, authorization.ActionCreate), s.CreateProcess)
	api.GET("/processes/:id", s.authorize(authorization.ObjectProcess, authorization.ActionView), s.GetProcess)
	api.PUT("/processes/:id", s.authorize(authorization.ObjectProcess, authorization.ActionUpdate), s.UpdateProcess)
	api.DELETE("/processes/:id", s.authorize(authorization.ObjectProcess, authorization.ActionDelete), s.DeleteProcess)

	// -------- Slites --------
	api.GET("/slites", s.authorize(authorization.ObjectSlite, authorization.ActionView), s.ListSlites)
	api.POST("/slites", s.authorize(authorization.ObjectSlite, authorization.ActionCreate), s.CreateSlite)
	api.GET("/slites/:id", s.authorize(authorization.ObjectSlite, authorization.ActionView), s.GetSlite)
	api.PUT("/slites/:id", s.authorize(authorization.ObjectSlite, authorization.ActionUpdate), s.UpdateSlite)
	api.DELETE("/slites/:id", s.authorize(authorization.ObjectSlite, authorization.ActionDelete), s.DeleteSlite)
}
