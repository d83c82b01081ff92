// internal/service/errors.go
package service

import "errors"

// ErrLedgerWrite — своп исполнен on-chain, но запись в журнал не удалась.
// Событие потери данных: свой своп необратим и повторяться не должен.
var ErrLedgerWrite = errors.New("ledger write failed after executed swap")

// ValidationError — отсутствующие или некорректные входные поля.
// Возвращается до любого сетевого вызова.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}
