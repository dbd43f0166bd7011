package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	adaccountdomain "github.com/smallbiznis/adledger/internal/adaccount/domain"
	agencydomain "github.com/smallbiznis/adledger/internal/agency/domain"
	billdomain "github.com/smallbiznis/adledger/internal/bill/domain"
	"github.com/smallbiznis/adledger/internal/config"
	consumptiondomain "github.com/smallbiznis/adledger/internal/consumption/domain"
	obsmiddleware "github.com/smallbiznis/adledger/internal/observability/logger"
	obstracing "github.com/smallbiznis/adledger/internal/observability/tracing"
	rebatedomain "github.com/smallbiznis/adledger/internal/rebate/domain"
	rechargedomain "github.com/smallbiznis/adledger/internal/recharge/domain"
	reconciledomain "github.com/smallbiznis/adledger/internal/reconcile/domain"
	settlementdomain "github.com/smallbiznis/adledger/internal/settlement/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(classifyErrorForLog))
	r.Use(obstracing.GinMiddleware())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(cfg config.Config) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	return NewEngine()
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
				log.Info("http server listening", zap.String("addr", srv.Addr))
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal("http server stopped", zap.Error(err))
				}
			}()
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
	engine         *gin.Engine
	agencySvc      agencydomain.Service
	adAccountSvc   adaccountdomain.Service
	rechargeSvc    rechargedomain.Service
	consumptionSvc consumptiondomain.Service
	settlementSvc  settlementdomain.Service
	billSvc        billdomain.Service
	rebateSvc      rebatedomain.Service
	reconcileSvc   reconciledomain.Service
}

type ServerParams struct {
	fx.In

	Gin            *gin.Engine
	AgencySvc      agencydomain.Service
	AdAccountSvc   adaccountdomain.Service
	RechargeSvc    rechargedomain.Service
	ConsumptionSvc consumptiondomain.Service
	SettlementSvc  settlementdomain.Service
	BillSvc        billdomain.Service
	RebateSvc      rebatedomain.Service
	ReconcileSvc   reconciledomain.Service
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:         p.Gin,
		agencySvc:      p.AgencySvc,
		adAccountSvc:   p.AdAccountSvc,
		rechargeSvc:    p.RechargeSvc,
		consumptionSvc: p.ConsumptionSvc,
		settlementSvc:  p.SettlementSvc,
		billSvc:        p.BillSvc,
		rebateSvc:      p.RebateSvc,
		reconcileSvc:   p.ReconcileSvc,
	}

	svc.registerAPIRoutes()
	svc.registerFallback()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api/v1")

	// -------- Agencies --------
	api.POST("/agencies", s.CreateAgency)
	api.GET("/agencies", s.ListAgencies)
	api.GET("/agencies/:id", s.GetAgencyByID)
	api.PATCH("/agencies/:id", s.UpdateAgency)

	// -------- Ad accounts --------
	api.POST("/ad-accounts", s.CreateAdAccount)
	api.GET("/ad-accounts", s.ListAdAccounts)
	api.GET("/ad-accounts/:id", s.GetAdAccountByID)
	api.POST("/ad-accounts/:id/reconcile", s.ReconcileAdAccount)
	api.GET("/ad-accounts/:id/receivables", s.ListReceivables)

	// -------- Recharges --------
	api.POST("/recharges", s.CreateRecharge)
	api.GET("/recharges/:id", s.GetRechargeByID)
	api.PATCH("/recharges/:id/payment-status", s.UpdateRechargePaymentStatus)

	// -------- Consumptions --------
	api.POST("/consumptions", s.CreateConsumption)
	api.GET("/consumptions/unsettled", s.ListUnsettledConsumptions)
	api.GET("/consumptions/:id", s.GetConsumptionByID)

	// -------- Settlements --------
	api.POST("/settlements", s.Settle)
	api.POST("/settlements/month", s.SettleMonth)

	// -------- Bills --------
	api.GET("/bills", s.ListBills)
	api.GET("/bills/:id", s.GetBillByID)
	api.GET("/bills/:id/statement.pdf", s.DownloadBillStatement)
}

func (s *Server) registerFallback() {
	s.engine.NoRoute(func(c *gin.Context) {
		AbortWithError(c, ErrNotFound)
	})
}
