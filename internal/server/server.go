package server

import (
	"context"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/machikado/market/internal/authorization"
	"github.com/machikado/market/internal/clock"
	"github.com/machikado/market/internal/config"
	"github.com/machikado/market/internal/conversation"
	conversationdomain "github.com/machikado/market/internal/conversation/domain"
	"github.com/machikado/market/internal/form"
	formdomain "github.com/machikado/market/internal/form/domain"
	"github.com/machikado/market/internal/memo"
	memodomain "github.com/machikado/market/internal/memo/domain"
	"github.com/machikado/market/internal/observability"
	"github.com/machikado/market/internal/observability/metrics"
	"github.com/machikado/market/internal/ownership"
	ownershipdomain "github.com/machikado/market/internal/ownership/domain"
	"github.com/machikado/market/internal/payment"
	paymentdomain "github.com/machikado/market/internal/payment/domain"
	"github.com/machikado/market/internal/product"
	productdomain "github.com/machikado/market/internal/product/domain"
	"github.com/machikado/market/internal/providers/minting"
	"github.com/machikado/market/internal/ratelimit"
	"github.com/machikado/market/internal/reference"
	referencedomain "github.com/machikado/market/internal/reference/domain"
	"github.com/machikado/market/internal/support"
	supportdomain "github.com/machikado/market/internal/support/domain"
	"github.com/machikado/market/internal/transfer"
	transferdomain "github.com/machikado/market/internal/transfer/domain"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	authorization.Module,
	observability.Module,
	ratelimit.Module,
	reference.Module,
	product.Module,
	payment.Module,
	ownership.Module,
	transfer.Module,
	conversation.Module,
	memo.Module,
	form.Module,
	support.Module,
	minting.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(log *zap.Logger, m *metrics.Metrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(observability.GinMiddleware(log, m))
	r.Use(ErrorHandlingMiddleware())
	r.Use(ActorContext())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(m.Registry(), promhttp.HandlerOpts{})))

	return r
}

func registerGin(log *zap.Logger, m *metrics.Metrics) *gin.Engine {
	return NewEngine(log, m)
}

func run(lc fx.Lifecycle, r *gin.Engine, cfg config.Config, log *zap.Logger) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
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
	engine          *gin.Engine
	cfg             config.Config
	db              *gorm.DB
	genID           *snowflake.Node
	clock           clock.Clock
	paymentSvc      paymentdomain.Service
	ownershipSvc    ownershipdomain.Service
	transferSvc     transferdomain.Service
	conversationSvc conversationdomain.Service
	memoSvc         memodomain.Service
	supportSvc      supportdomain.Service
	productSvc      productdomain.Service
	formRepo        formdomain.Repository
	refrepo         referencedomain.Repository
}

type ServerParams struct {
	fx.In

	Gin             *gin.Engine
	Cfg             config.Config
	DB              *gorm.DB
	GenID           *snowflake.Node
	Clock           clock.Clock
	PaymentSvc      paymentdomain.Service
	OwnershipSvc    ownershipdomain.Service
	TransferSvc     transferdomain.Service
	ConversationSvc conversationdomain.Service
	MemoSvc         memodomain.Service
	SupportSvc      supportdomain.Service
	ProductSvc      productdomain.Service
	FormRepo        formdomain.Repository
	Refrepo         referencedomain.Repository
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:          p.Gin,
		cfg:             p.Cfg,
		db:              p.DB,
		genID:           p.GenID,
		clock:           p.Clock,
		paymentSvc:      p.PaymentSvc,
		ownershipSvc:    p.OwnershipSvc,
		transferSvc:     p.TransferSvc,
		conversationSvc: p.ConversationSvc,
		memoSvc:         p.MemoSvc,
		supportSvc:      p.SupportSvc,
		productSvc:      p.ProductSvc,
		formRepo:        p.FormRepo,
		refrepo:         p.Refrepo,
	}

	svc.registerAPIRoutes()
	svc.registerWebhookRoutes()
	svc.registerSupportRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api")

	api.GET("/towns", s.ListTowns)
	api.GET("/towns/:id/businesses", s.ListBusinesses)

	// -------- Products --------
	api.GET("/products", s.ListProducts)
	api.GET("/products/:id", s.GetProductByID)
	api.POST("/products", StaffRequired(), s.CreateProduct)

	// -------- Checkout / Payments --------
	api.POST("/checkout", AuthRequired(), s.OpenPayment)
	api.GET("/payments/:reference", AuthRequired(), s.GetPayment)
	api.POST("/payments/:reference/cancel", AuthRequired(), s.CancelPayment)

	// -------- Ownership --------
	api.GET("/users/:userId/ownerships", AuthRequired(), s.ListOwnershipsByUser)
	api.GET("/products/:id/tokens/:tokenId", AuthRequired(), s.GetOwnership)
	api.GET("/products/:id/tokens/:tokenId/holder", AuthRequired(), s.GetCurrentHolder)
	api.POST("/products/:id/tokens/:tokenId/cancel", StaffRequired(), s.CancelOwnership)
	api.PATCH("/ownerships/:id/admin-status", StaffRequired(), s.UpdateOwnershipAdminStatus)
	api.PUT("/ownerships/:id/attributes", StaffRequired(), s.UpdateOwnershipAttributes)
	api.PATCH("/transfers/:id/admin-status", StaffRequired(), s.UpdateTransferAdminStatus)
	api.PUT("/transfers/:id/attributes", StaffRequired(), s.UpdateTransferAttributes)

	// -------- Conversations --------
	api.GET("/conversation", AuthRequired(), s.GetConversation)
	api.POST("/conversation/messages", AuthRequired(), s.PostMessage)
	api.POST("/conversation/acknowledge", AuthRequired(), s.AcknowledgeConversation)
	api.GET("/conversation/search", AuthRequired(), s.SearchConversation)
	api.GET("/users/:userId/conversations", AuthRequired(), s.ListConversationsByUser)

	// -------- Form answers --------
	api.POST("/forms/answers", AuthRequired(), s.IngestFormAnswer)
}

// Webhooks are called by trusted backends (payment gateway, minting service,
// chain watcher), not end users; the gateway layer gates them by network.
func (s *Server) registerWebhookRoutes() {
	hooks := s.engine.Group("/webhooks")

	hooks.POST("/payments/:reference", s.ResolvePayment)
	hooks.POST("/mints", s.HandleMintCallback)
	hooks.POST("/transfers", s.HandleTransferNotification)
}

func (s *Server) registerSupportRoutes() {
	console := s.engine.Group("/support", StaffRequired())

	console.GET("/purchasers", s.ListPurchasers)

	console.PUT("/memos", s.UpsertMemo)
	console.GET("/memos", s.GetMemo)
	console.DELETE("/memos", s.DeleteMemo)
}
