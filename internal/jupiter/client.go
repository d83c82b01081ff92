// internal/jupiter/client.go
package jupiter

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Client — клиент lite-api Jupiter: котировки, сборка свапов и цены.
type Client struct {
	swapClient  *resty.Client
	priceClient *resty.Client
	limiter     *rate.Limiter
	logger      *zap.Logger
}

var _ AggregatorInterface = (*Client)(nil)
var _ PriceOracleInterface = (*Client)(nil)

// NewClient создает клиента Jupiter с общим rate limiter на все вызовы.
func NewClient(swapBaseURL, priceBaseURL string, rps float64, burst int, logger *zap.Logger) *Client {
	return &Client{
		swapClient:  resty.New().SetBaseURL(swapBaseURL).SetTimeout(15 * time.Second),
		priceClient: resty.New().SetBaseURL(priceBaseURL).SetTimeout(10 * time.Second),
		limiter:     rate.NewLimiter(rate.Limit(rps), burst),
		logger:      logger.Named("jupiter"),
	}
}

// Quote запрашивает котировку inputMint -> outputMint на сырое целое количество.
// Ответ возвращается как есть (json.RawMessage): он передаётся в BuildSwap
// без переинтерпретации. Ошибка агрегатора декодируется в типизированный QuoteError;
// повторных попыток нет.
func (c *Client) Quote(ctx context.Context, inputMint, outputMint, rawAmount string) (json.RawMessage, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter wait failed: %w", err)
	}

	resp, err := c.swapClient.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"inputMint":  inputMint,
			"outputMint": outputMint,
			"amount":     rawAmount,
		}).
		Get("/quote")
	if err != nil {
		return nil, fmt.Errorf("quote request failed: %w", err)
	}

	body := resp.Body()

	var envelope errorEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, &QuoteError{Message: fmt.Sprintf("unexpected response shape: %s", truncate(body))}
	}
	if envelope.Error != "" {
		return nil, &QuoteError{Message: envelope.Error}
	}
	if resp.IsError() {
		return nil, &QuoteError{Message: fmt.Sprintf("status %d: %s", resp.StatusCode(), truncate(body))}
	}

	c.logger.Debug("Quote received",
		zap.String("input_mint", inputMint),
		zap.String("output_mint", outputMint),
		zap.String("raw_amount", rawAmount))

	return json.RawMessage(body), nil
}

// BuildSwap запрашивает у агрегатора исполняемую транзакцию под котировку,
// привязанную к публичному ключу подписанта. Возвращает десериализованные
// байты транзакции.
func (c *Client) BuildSwap(ctx context.Context, userPublicKey string, quote json.RawMessage) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter wait failed: %w", err)
	}

	resp, err := c.swapClient.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(map[string]interface{}{
			"userPublicKey": userPublicKey,
			"quoteResponse": quote,
		}).
		Post("/swap")
	if err != nil {
		return nil, fmt.Errorf("swap build request failed: %w", err)
	}

	var result swapResponse
	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		return nil, &SwapBuildError{Message: fmt.Sprintf("unexpected response shape: %s", truncate(resp.Body()))}
	}
	if result.Error != "" {
		return nil, &SwapBuildError{Message: result.Error}
	}
	if result.SwapTransaction == "" {
		return nil, &SwapBuildError{Message: "empty swapTransaction in response"}
	}

	rawTx, err := base64.StdEncoding.DecodeString(result.SwapTransaction)
	if err != nil {
		return nil, &SwapBuildError{Message: fmt.Sprintf("invalid base64 transaction: %v", err)}
	}

	return rawTx, nil
}

// Prices возвращает текущие USD-цены токенов одним batch-запросом.
// Токены без цены отсутствуют в результате — вызывающая сторона решает,
// как обходиться с деградацией.
func (c *Client) Prices(ctx context.Context, mints []string) (map[string]decimal.Decimal, error) {
	prices := make(map[string]decimal.Decimal, len(mints))
	if len(mints) == 0 {
		return prices, nil
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter wait failed: %w", err)
	}

	resp, err := c.priceClient.R().
		SetContext(ctx).
		SetQueryParam("ids", strings.Join(mints, ",")).
		Get("")
	if err != nil {
		return nil, fmt.Errorf("price request failed: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("price request failed with status %d: %s", resp.StatusCode(), truncate(resp.Body()))
	}

	var entries map[string]*priceEntry
	if err := json.Unmarshal(resp.Body(), &entries); err != nil {
		return nil, fmt.Errorf("failed to decode price response: %w", err)
	}

	for _, mint := range mints {
		entry, ok := entries[mint]
		if !ok || entry == nil {
			c.logger.Warn("Price unavailable for token", zap.String("mint", mint))
			continue
		}
		prices[mint] = decimal.NewFromFloat(entry.UsdPrice)
	}

	return prices, nil
}

func truncate(body []byte) string {
	const limit = 256
	if len(body) > limit {
		return string(body[:limit]) + "..."
	}
	return string(body)
}
