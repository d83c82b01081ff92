// internal/storage/storage.go
package storage

import (
	"context"

	"github.com/rovshanmuradov/jupiter-swap-service/internal/storage/models"
)

// Storage определяет контракт журнала сделок (append-only).
// Чтение сразу после Append для того же пользователя обязано видеть
// добавленную запись: на этом держится корректность PnL-расчёта.
type Storage interface {
	Append(ctx context.Context, trade *models.Trade) (*models.Trade, error)
	ListByUser(ctx context.Context, userID string) ([]models.Trade, error)

	RunMigrations() error
	Close() error
}
