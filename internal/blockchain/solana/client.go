// internal/blockchain/solana/client.go
package solana

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/token"
	"github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"
)

const (
	maxRetries     = 3
	retryDelay     = 500 * time.Millisecond
	defaultTimeout = 10 * time.Second

	// DefaultMintDecimals используется, когда mint-аккаунт существует,
	// но его данные не удаётся разобрать как token.Mint.
	DefaultMintDecimals = uint8(9)
)

// Определение ошибок
var (
	ErrAccountUnavailable   = errors.New("mint account unavailable")
	ErrTransactionFailed    = errors.New("transaction failed on-chain")
	ErrConfirmationTimeout  = errors.New("confirmation timeout")
	ErrTransactionNotFound  = errors.New("transaction not found")
	errNoActiveClients      = errors.New("no active RPC clients available")
	maxSupportedTxVersion   = uint64(0)
)

// NewClient создает новый экземпляр клиента Solana с пулом RPC-узлов.
func NewClient(rpcURLs []string, commitment rpc.CommitmentType, confirmTTL time.Duration, logger *zap.Logger) (*Client, error) {
	if len(rpcURLs) == 0 {
		return nil, errors.New("empty RPC URL list")
	}

	var clients []*RPCClient
	for _, urlStr := range rpcURLs {
		if _, err := url.Parse(urlStr); err != nil {
			logger.Warn("Invalid RPC URL", zap.String("url", urlStr), zap.Error(err))
			continue
		}

		client := &RPCClient{
			Client:  rpc.New(urlStr),
			URL:     urlStr,
			active:  true,
			metrics: &RPCMetrics{},
		}
		clients = append(clients, client)
	}

	if len(clients) == 0 {
		return nil, errors.New("no valid RPC URLs provided")
	}

	c := &Client{
		rpcClients: clients,
		commitment: commitment,
		confirmTTL: confirmTTL,
		logger:     logger.Named("solana-client"),
	}

	if err := c.validateConnections(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to validate connections: %w", err)
	}

	return c, nil
}

// testConnection проверяет подключение к RPC узлу
func (c *Client) testConnection(ctx context.Context, rpcClient *RPCClient) error {
	version, err := rpcClient.Client.GetVersion(ctx)
	if err != nil {
		return fmt.Errorf("failed to get version: %w", err)
	}

	c.logger.Debug("Successfully connected to RPC",
		zap.String("url", rpcClient.URL),
		zap.String("solana_core", version.SolanaCore))

	return nil
}

func (c *Client) validateConnections(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var wg sync.WaitGroup
	errChan := make(chan error, len(c.rpcClients))

	for _, client := range c.rpcClients {
		wg.Add(1)
		go func(rpcClient *RPCClient) {
			defer wg.Done()

			var lastErr error
			for attempt := 0; attempt < maxRetries; attempt++ {
				start := time.Now()
				if err := c.testConnection(ctx, rpcClient); err != nil {
					lastErr = err
					rpcClient.updateMetrics(false, time.Since(start))
					time.Sleep(retryDelay)
					continue
				}
				rpcClient.updateMetrics(true, time.Since(start))
				return
			}
			if lastErr != nil {
				errChan <- fmt.Errorf("failed to connect to %s: %w", rpcClient.URL, lastErr)
				rpcClient.setActive(false)
			}
		}(client)
	}

	wg.Wait()
	close(errChan)

	if !c.hasActiveClients() {
		return errors.New("no active RPC connections available")
	}

	return nil
}

// GetMintDecimals читает mint-аккаунт токена и возвращает его decimal precision.
// Недоступный аккаунт — ошибка; существующий аккаунт без разбираемого
// token.Mint-лейаута даёт документированный fallback в 9 знаков.
func (c *Client) GetMintDecimals(ctx context.Context, mint solana.PublicKey) (uint8, error) {
	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		client := c.getNextClient()
		if client == nil {
			return 0, errNoActiveClients
		}

		start := time.Now()
		result, err := client.Client.GetAccountInfoWithOpts(ctx, mint, &rpc.GetAccountInfoOpts{
			Encoding:   solana.EncodingBase64,
			Commitment: c.commitment,
		})
		client.updateMetrics(err == nil, time.Since(start))

		if err != nil {
			lastErr = err
			client.setActive(false)
			continue
		}

		if result == nil || result.Value == nil {
			return DefaultMintDecimals, nil
		}

		var mintAccount token.Mint
		if err := bin.NewBinDecoder(result.Value.Data.GetBinary()).Decode(&mintAccount); err != nil {
			c.logger.Warn("Failed to decode mint account, using default decimals",
				zap.String("mint", mint.String()),
				zap.Error(err))
			return DefaultMintDecimals, nil
		}

		return mintAccount.Decimals, nil
	}

	return 0, fmt.Errorf("%w: %s: %v", ErrAccountUnavailable, mint.String(), lastErr)
}

// SendRawTransaction отправляет подписанную транзакцию в сеть.
// Ровно одна попытка без ротации узлов: повторная отправка после
// возможного принятия транзакции грозит двойным исполнением свапа.
func (c *Client) SendRawTransaction(ctx context.Context, rawTx []byte) (solana.Signature, error) {
	client := c.getNextClient()
	if client == nil {
		return solana.Signature{}, errNoActiveClients
	}

	start := time.Now()
	sig, err := client.Client.SendRawTransactionWithOpts(ctx, rawTx, rpc.TransactionOpts{
		SkipPreflight:       false,
		PreflightCommitment: c.commitment,
	})
	client.updateMetrics(err == nil, time.Since(start))

	if err != nil {
		return solana.Signature{}, fmt.Errorf("failed to send transaction: %w", err)
	}

	return sig, nil
}

// WaitForConfirmation ожидает подтверждения транзакции на заданном уровне
// коммитмента, опрашивая статусы с экспоненциальным backoff.
func (c *Client) WaitForConfirmation(ctx context.Context, signature solana.Signature) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 500 * time.Millisecond
	bo.MaxInterval = 3 * time.Second

	operation := func() (struct{}, error) {
		client := c.getNextClient()
		if client == nil {
			return struct{}{}, backoff.Permanent(errNoActiveClients)
		}

		start := time.Now()
		statuses, err := client.Client.GetSignatureStatuses(ctx, false, signature)
		client.updateMetrics(err == nil, time.Since(start))

		if err != nil {
			c.logger.Warn("Error getting signature statuses", zap.Error(err))
			return struct{}{}, err
		}

		if statuses == nil || len(statuses.Value) == 0 || statuses.Value[0] == nil {
			return struct{}{}, errors.New("status not yet available")
		}

		status := statuses.Value[0]
		if status.Err != nil {
			return struct{}{}, backoff.Permanent(fmt.Errorf("%w: %v", ErrTransactionFailed, status.Err))
		}
		if !commitmentReached(status.ConfirmationStatus, c.commitment) {
			return struct{}{}, errors.New("commitment not yet reached")
		}

		return struct{}{}, nil
	}

	_, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(bo),
		backoff.WithMaxElapsedTime(c.confirmTTL),
	)
	if err != nil {
		if errors.Is(err, ErrTransactionFailed) || errors.Is(err, errNoActiveClients) {
			return err
		}
		return fmt.Errorf("%w: %s", ErrConfirmationTimeout, signature.String())
	}
	return nil
}

// commitmentReached сравнивает достигнутый статус подтверждения с целевым уровнем.
func commitmentReached(status rpc.ConfirmationStatusType, target rpc.CommitmentType) bool {
	rank := func(s string) int {
		switch s {
		case string(rpc.ConfirmationStatusProcessed):
			return 1
		case string(rpc.ConfirmationStatusConfirmed):
			return 2
		case string(rpc.ConfirmationStatusFinalized):
			return 3
		}
		return 0
	}
	return rank(string(status)) >= rank(string(target))
}

// GetParsedTransaction получает подтверждённую транзакцию вместе с
// pre/post балансами токен-аккаунтов из её метаданных.
func (c *Client) GetParsedTransaction(ctx context.Context, signature solana.Signature) (*rpc.GetTransactionResult, error) {
	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		client := c.getNextClient()
		if client == nil {
			return nil, errNoActiveClients
		}

		start := time.Now()
		result, err := client.Client.GetTransaction(ctx, signature, &rpc.GetTransactionOpts{
			Commitment:                     c.commitment,
			MaxSupportedTransactionVersion: &maxSupportedTxVersion,
		})
		client.updateMetrics(err == nil, time.Since(start))

		if err != nil {
			lastErr = err
			client.setActive(false)
			continue
		}

		if result == nil {
			return nil, fmt.Errorf("%w: %s", ErrTransactionNotFound, signature.String())
		}

		return result, nil
	}

	return nil, fmt.Errorf("failed to get transaction after %d attempts: %w", maxRetries, lastErr)
}
