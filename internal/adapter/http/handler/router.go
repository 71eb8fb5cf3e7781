package handler

import (
	"wallet-settlement-gateway/internal/adapter/http/middleware"
	"wallet-settlement-gateway/internal/core/ports"
	"wallet-settlement-gateway/pkg/envelope"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	SettlementSvc  ports.SettlementService
	Codec          *envelope.Codec
	HealthCheckers []ports.HealthChecker
	Logger         zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestLogger(deps.Logger))

	// Health check (deep, verifies PostgreSQL + Redis)
	r.GET("/health", HealthCheck(deps.HealthCheckers...))

	// Provider callbacks. The provider issues GETs and reads the outcome from
	// the envelope body, so no auth middleware sits in front; each callback
	// carries its own request hash.
	cb := NewCallbackHandler(deps.SettlementSvc, deps.Codec, deps.Logger)
	betsoft := r.Group("/betsoft")
	{
		betsoft.GET("/authenticate", cb.Authenticate)
		betsoft.GET("/balance", cb.Balance)
		betsoft.GET("/account", cb.Account)
		betsoft.GET("/betResult", cb.BetResult)
		betsoft.GET("/refundBet", cb.RefundBet)
		betsoft.GET("/bonusRelease", cb.BonusRelease)
	}

	return r
}
