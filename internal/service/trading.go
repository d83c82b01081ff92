// internal/service/trading.go
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/jupiter-swap-service/internal/jupiter"
	"github.com/rovshanmuradov/jupiter-swap-service/internal/logger"
	"github.com/rovshanmuradov/jupiter-swap-service/internal/pnl"
	"github.com/rovshanmuradov/jupiter-swap-service/internal/storage"
	"github.com/rovshanmuradov/jupiter-swap-service/internal/storage/models"
	"github.com/rovshanmuradov/jupiter-swap-service/internal/swap"
	"github.com/rovshanmuradov/jupiter-swap-service/internal/wallet"
)

// SwapExecutor — контракт исполнителя свапов (реализуется swap.Executor).
type SwapExecutor interface {
	Execute(ctx context.Context, inputMint, outputMint solana.PublicKey, humanAmount decimal.Decimal, signer *wallet.Wallet) (*swap.Result, error)
}

// TradeRequest — входные поля запроса buy/sell.
type TradeRequest struct {
	Mint             string `json:"mint"`
	Amount           string `json:"amount"`
	PrivateKeyBase58 string `json:"privateKeyBase58"`
}

// Service связывает исполнитель свапов, журнал сделок и ценовой оракул.
type Service struct {
	executor SwapExecutor
	store    storage.Storage
	oracle   jupiter.PriceOracleInterface
	cashMint solana.PublicKey
	logger   *logger.Logger
}

func New(executor SwapExecutor, store storage.Storage, oracle jupiter.PriceOracleInterface, cashMint solana.PublicKey, log *logger.Logger) *Service {
	return &Service{
		executor: executor,
		store:    store,
		oracle:   oracle,
		cashMint: cashMint,
		logger:   log,
	}
}

// Buy покупает токен за референсный актив и фиксирует сделку в журнале.
func (s *Service) Buy(ctx context.Context, req TradeRequest) (*models.Trade, error) {
	return s.trade(ctx, req, models.SideBuy)
}

// Sell продаёт токен за референсный актив и фиксирует сделку в журнале.
func (s *Service) Sell(ctx context.Context, req TradeRequest) (*models.Trade, error) {
	return s.trade(ctx, req, models.SideSell)
}

func (s *Service) trade(ctx context.Context, req TradeRequest, side models.Side) (*models.Trade, error) {
	mint, amount, signer, err := s.validate(req)
	if err != nil {
		return nil, err
	}

	log := s.logger.WithOperation(string(side)).With(
		zap.String("user_id", signer.PublicKey.String()),
		zap.String("token", mint.String()),
		zap.String("amount", amount.String()),
	)

	// BUY тратит референсный актив, SELL — сам токен.
	inputMint, outputMint := s.cashMint, mint
	if side == models.SideSell {
		inputMint, outputMint = mint, s.cashMint
	}

	result, err := s.executor.Execute(ctx, inputMint, outputMint, amount, signer)
	if err != nil {
		log.Error("Swap execution failed", zap.Error(err))
		return nil, err
	}

	trade := &models.Trade{
		UserID:    signer.PublicKey.String(),
		Token:     mint.String(),
		Side:      side,
		Amount:    amount,
		Price:     result.RealizedPrice,
		TxHash:    result.TxHash,
		Timestamp: time.Now().UTC(),
	}

	persisted, err := s.store.Append(ctx, trade)
	if err != nil {
		// Своп уже необратимо исполнен on-chain. Потеря записи логируется
		// отдельно от ошибок исполнения и не ведёт к повтору свопа.
		log.Error("Trade not recorded after executed swap",
			zap.Bool("data_loss", true),
			zap.String("tx_hash", result.TxHash),
			zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrLedgerWrite, err)
	}

	log.Info("Trade recorded",
		zap.String("tx_hash", persisted.TxHash),
		zap.String("price", persisted.Price.String()))

	return persisted, nil
}

func (s *Service) validate(req TradeRequest) (solana.PublicKey, decimal.Decimal, *wallet.Wallet, error) {
	if req.Mint == "" || req.Amount == "" || req.PrivateKeyBase58 == "" {
		return solana.PublicKey{}, decimal.Zero, nil,
			&ValidationError{Message: "mint, amount, privateKeyBase58 to make a transaction"}
	}

	mint, err := solana.PublicKeyFromBase58(req.Mint)
	if err != nil {
		return solana.PublicKey{}, decimal.Zero, nil,
			&ValidationError{Message: fmt.Sprintf("invalid mint: %v", err)}
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil || !amount.IsPositive() {
		return solana.PublicKey{}, decimal.Zero, nil,
			&ValidationError{Message: "amount must be a positive decimal number"}
	}

	signer, err := wallet.NewWallet(req.PrivateKeyBase58)
	if err != nil {
		return solana.PublicKey{}, decimal.Zero, nil,
			&ValidationError{Message: fmt.Sprintf("invalid private key: %v", err)}
	}

	return mint, amount, signer, nil
}

// PnL считает отчёт по истории сделок пользователя и текущим ценам оракула.
func (s *Service) PnL(ctx context.Context, userID string) (*pnl.Report, error) {
	trades, err := s.store.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query trades: %w", err)
	}

	if len(trades) == 0 {
		return pnl.Compute(userID, nil, nil), nil
	}

	tokens := uniqueTokens(trades)
	prices, err := s.oracle.Prices(ctx, tokens)
	if err != nil {
		// Деградация оракула не роняет расчёт: unrealized по токенам без цены
		// обнуляется и помечается в отчёте.
		s.logger.Warn("Price oracle degraded, unrealized PnL zeroed",
			zap.String("user_id", userID),
			zap.Error(err))
		prices = nil
	} else if len(prices) < len(tokens) {
		s.logger.Warn("Prices missing for some tokens",
			zap.String("user_id", userID),
			zap.Int("requested", len(tokens)),
			zap.Int("received", len(prices)))
	}

	return pnl.Compute(userID, trades, prices), nil
}

func uniqueTokens(trades []models.Trade) []string {
	seen := make(map[string]struct{}, len(trades))
	var tokens []string
	for _, trade := range trades {
		if _, ok := seen[trade.Token]; ok {
			continue
		}
		seen[trade.Token] = struct{}{}
		tokens = append(tokens, trade.Token)
	}
	return tokens
}
