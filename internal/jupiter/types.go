// internal/jupiter/types.go
package jupiter

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// AggregatorInterface — контракт агрегатора ликвидности для исполнителя свапов.
type AggregatorInterface interface {
	Quote(ctx context.Context, inputMint, outputMint, rawAmount string) (json.RawMessage, error)
	BuildSwap(ctx context.Context, userPublicKey string, quote json.RawMessage) ([]byte, error)
}

// PriceOracleInterface — контракт ценового оракула для PnL-запросов.
// Отсутствующие в ответе токены не попадают в карту: это деградация, не ошибка.
type PriceOracleInterface interface {
	Prices(ctx context.Context, mints []string) (map[string]decimal.Decimal, error)
}

// QuoteError — ошибка, о которой сообщил агрегатор на этапе котировки.
type QuoteError struct {
	Message string
}

func (e *QuoteError) Error() string {
	return fmt.Sprintf("quote error: %s", e.Message)
}

// SwapBuildError — ошибка агрегатора при сборке swap-транзакции.
type SwapBuildError struct {
	Message string
}

func (e *SwapBuildError) Error() string {
	return fmt.Sprintf("swap build error: %s", e.Message)
}

// errorEnvelope — общий конверт ошибки lite-api (`{"error": "..."}`).
type errorEnvelope struct {
	Error string `json:"error"`
}

// swapResponse — ответ swap-build эндпоинта.
type swapResponse struct {
	SwapTransaction string `json:"swapTransaction"`
	Error           string `json:"error"`
}

// priceEntry — запись ценового ответа price/v3 по одному токену.
type priceEntry struct {
	UsdPrice float64 `json:"usdPrice"`
}
