// internal/server/router.go
package server

import (
	"github.com/gin-gonic/gin"
)

type Config struct {
	TradeHandler *TradeHandler
	Debug        bool
}

func NewRouter(cfg *Config) *gin.Engine {
	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()

	router.POST("/buy", cfg.TradeHandler.Buy)
	router.POST("/sell", cfg.TradeHandler.Sell)
	router.GET("/pnl/:userId", cfg.TradeHandler.PnL)
	router.GET("/healthz", cfg.TradeHandler.Health)

	return router
}
