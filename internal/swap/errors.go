// internal/swap/errors.go
package swap

import "errors"

// Ошибки этапов исполнения свапа. Ошибки агрегатора (QuoteError,
// SwapBuildError) типизированы в пакете jupiter и проходят насквозь.
var (
	// ErrDecimalsUnavailable — mint-аккаунт входного актива не удалось прочитать.
	ErrDecimalsUnavailable = errors.New("token decimals unavailable")

	// ErrSubmission — сеть отклонила отправку подписанной транзакции.
	ErrSubmission = errors.New("transaction submission rejected")

	// ErrOnChainFailure — транзакция подтверждена, но исполнение on-chain упало.
	ErrOnChainFailure = errors.New("transaction failed on-chain")

	// ErrTransactionNotFound — подтверждённую транзакцию или её балансовые
	// метаданные не удалось получить целиком.
	ErrTransactionNotFound = errors.New("transaction not found")

	// ErrZeroTokenDelta — нулевая дельта токена при выводе реализованной цены:
	// деление невозможно, сделка не записывается.
	ErrZeroTokenDelta = errors.New("zero token balance delta")
)
