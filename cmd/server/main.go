// ====================================
// File: cmd/server/main.go
// ====================================
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"

	solanaclient "github.com/rovshanmuradov/jupiter-swap-service/internal/blockchain/solana"
	"github.com/rovshanmuradov/jupiter-swap-service/internal/config"
	"github.com/rovshanmuradov/jupiter-swap-service/internal/jupiter"
	"github.com/rovshanmuradov/jupiter-swap-service/internal/logger"
	"github.com/rovshanmuradov/jupiter-swap-service/internal/server"
	"github.com/rovshanmuradov/jupiter-swap-service/internal/service"
	sqlitestorage "github.com/rovshanmuradov/jupiter-swap-service/internal/storage/sqlite"
	"github.com/rovshanmuradov/jupiter-swap-service/internal/swap"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		panic(err)
	}

	logCfg := logger.DefaultConfig()
	logCfg.Development = cfg.DebugLogging
	log, err := logger.New(logCfg)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	log.Info("Starting swap service",
		zap.String("listen_addr", cfg.ListenAddr),
		zap.String("cash_mint", cfg.CashMint))

	// Хранилище журнала сделок
	store, err := sqlitestorage.NewStorage(cfg.DatabaseDSN, log.WithComponent("storage"))
	if err != nil {
		log.Fatal("Failed to open trade ledger", zap.Error(err))
	}
	defer store.Close()

	if err := store.RunMigrations(); err != nil {
		log.Fatal("Failed to run migrations", zap.Error(err))
	}

	// Клиент сети Solana
	chain, err := solanaclient.NewClient(
		cfg.RPCList,
		rpc.CommitmentType(cfg.Commitment),
		time.Duration(cfg.ConfirmTimeoutMs)*time.Millisecond,
		log.WithComponent("blockchain"),
	)
	if err != nil {
		log.Fatal("Failed to initialize Solana client", zap.Error(err))
	}

	// Клиент агрегатора и ценового оракула
	jupClient := jupiter.NewClient(
		cfg.JupiterBaseURL,
		cfg.PriceBaseURL,
		cfg.APIRateLimit,
		cfg.APIRateBurst,
		log.WithComponent("jupiter"),
	)

	cashMint := solana.MustPublicKeyFromBase58(cfg.CashMint)

	executor := swap.NewExecutor(chain, jupClient, cashMint, log.WithComponent("swap"))
	trading := service.New(executor, store, jupClient, cashMint, log)

	router := server.NewRouter(&server.Config{
		TradeHandler: server.NewTradeHandler(trading),
		Debug:        cfg.DebugLogging,
	})

	srv := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: router,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("HTTP server error", zap.Error(err))
		}
	}()
	log.Info("HTTP server listening", zap.String("addr", cfg.ListenAddr))

	// Graceful shutdown по SIGINT/SIGTERM
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("Forced shutdown", zap.Error(err))
	}
}
