// internal/storage/models/trade.go
package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Side — направление сделки относительно референсного актива.
type Side string

const (
	SideBuy  Side = "BUY"  // референсный актив потрачен на покупку токена
	SideSell Side = "SELL" // токен продан за референсный актив
)

// Trade — один исполненный своп. Запись неизменяема: создаётся только после
// подтверждения транзакции on-chain и сверки балансов, никогда не обновляется
// и не удаляется. Единственный источник истины для расчёта PnL.
type Trade struct {
	ID        uint            `gorm:"primarykey" json:"id"`
	UserID    string          `gorm:"index;not null;type:varchar(44)" json:"user_id"`
	Token     string          `gorm:"not null;type:varchar(44)" json:"token"`
	Side      Side            `gorm:"not null;type:varchar(4)" json:"side"`
	Amount    decimal.Decimal `gorm:"not null;type:decimal(38,18)" json:"amount"`
	Price     decimal.Decimal `gorm:"not null;type:decimal(38,18)" json:"price"`
	TxHash    string          `gorm:"unique;not null;type:varchar(88)" json:"tx_hash"`
	Timestamp time.Time       `gorm:"index;not null" json:"timestamp"`
}
