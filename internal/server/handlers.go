// internal/server/handlers.go
package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rovshanmuradov/jupiter-swap-service/internal/pnl"
	"github.com/rovshanmuradov/jupiter-swap-service/internal/service"
	"github.com/rovshanmuradov/jupiter-swap-service/internal/storage/models"
)

// TradingService — контракт сервисного слоя для HTTP-обработчиков.
type TradingService interface {
	Buy(ctx context.Context, req service.TradeRequest) (*models.Trade, error)
	Sell(ctx context.Context, req service.TradeRequest) (*models.Trade, error)
	PnL(ctx context.Context, userID string) (*pnl.Report, error)
}

type TradeHandler struct {
	trading TradingService
}

func NewTradeHandler(trading TradingService) *TradeHandler {
	return &TradeHandler{trading: trading}
}

func (h *TradeHandler) Buy(c *gin.Context) {
	h.trade(c, h.trading.Buy)
}

func (h *TradeHandler) Sell(c *gin.Context) {
	h.trade(c, h.trading.Sell)
}

func (h *TradeHandler) trade(c *gin.Context, execute func(context.Context, service.TradeRequest) (*models.Trade, error)) {
	var req service.TradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"err": "invalid request body"})
		return
	}

	trade, err := execute(c.Request.Context(), req)
	if err != nil {
		var validationErr *service.ValidationError
		if errors.As(err, &validationErr) {
			c.JSON(http.StatusBadRequest, gin.H{"err": validationErr.Message})
			return
		}
		// Ошибки исполнения отдаются сырой строкой, как их сообщили
		// внешние сервисы.
		c.String(http.StatusInternalServerError, err.Error())
		return
	}

	c.JSON(http.StatusOK, trade)
}

func (h *TradeHandler) PnL(c *gin.Context) {
	userID := c.Param("userId")

	report, err := h.trading.PnL(c.Request.Context(), userID)
	if err != nil {
		c.String(http.StatusInternalServerError, err.Error())
		return
	}

	c.JSON(http.StatusOK, report)
}

func (h *TradeHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
