// internal/storage/sqlite/sqlite.go
package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/rovshanmuradov/jupiter-swap-service/internal/storage"
	"github.com/rovshanmuradov/jupiter-swap-service/internal/storage/models"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// gormLogger реализует интерфейс logger.Interface для GORM
type gormLogger struct {
	zapLogger *zap.Logger
	logLevel  logger.LogLevel
}

func newGormLogger(zapLogger *zap.Logger) logger.Interface {
	return &gormLogger{
		zapLogger: zapLogger,
		logLevel:  logger.Warn,
	}
}

// LogMode реализация интерфейса logger.Interface
func (l *gormLogger) LogMode(level logger.LogLevel) logger.Interface {
	newLogger := *l
	newLogger.logLevel = level
	return &newLogger
}

// Info реализация интерфейса logger.Interface
func (l *gormLogger) Info(_ context.Context, msg string, data ...interface{}) {
	if l.logLevel >= logger.Info {
		l.zapLogger.Sugar().Infof(msg, data...)
	}
}

// Warn реализация интерфейса logger.Interface
func (l *gormLogger) Warn(_ context.Context, msg string, data ...interface{}) {
	if l.logLevel >= logger.Warn {
		l.zapLogger.Sugar().Warnf(msg, data...)
	}
}

// Error реализация интерфейса logger.Interface
func (l *gormLogger) Error(_ context.Context, msg string, data ...interface{}) {
	if l.logLevel >= logger.Error {
		l.zapLogger.Sugar().Errorf(msg, data...)
	}
}

// Trace реализация интерфейса logger.Interface
func (l *gormLogger) Trace(_ context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.logLevel <= logger.Silent {
		return
	}

	elapsed := time.Since(begin)
	sql, rows := fc()

	fields := []zap.Field{
		zap.Duration("elapsed", elapsed),
		zap.String("sql", sql),
		zap.Int64("rows", rows),
	}

	if err != nil {
		l.zapLogger.Error("trace", append(fields, zap.Error(err))...)
		return
	}

	if l.logLevel >= logger.Info {
		l.zapLogger.Info("trace", fields...)
	}
}

// sqliteStorage реализует интерфейс storage.Storage поверх gorm/sqlite.
type sqliteStorage struct {
	db     *gorm.DB
	logger *zap.Logger
}

func NewStorage(dsn string, zapLogger *zap.Logger) (storage.Storage, error) {
	gormLogger := newGormLogger(zapLogger.Named("gorm"))

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormLogger,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return &sqliteStorage{
		db:     db,
		logger: zapLogger,
	}, nil
}

// RunMigrations использует GORM AutoMigrate
func (s *sqliteStorage) RunMigrations() error {
	if err := s.db.AutoMigrate(&models.Trade{}); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// Append добавляет запись о сделке. Запись должна быть зафиксирована до того,
// как запрос будет отмечен успешным; обновлений и удалений у журнала нет.
func (s *sqliteStorage) Append(ctx context.Context, trade *models.Trade) (*models.Trade, error) {
	if err := s.db.WithContext(ctx).Create(trade).Error; err != nil {
		return nil, err
	}
	return trade, nil
}

// ListByUser возвращает все сделки пользователя в порядке их фиксации.
func (s *sqliteStorage) ListByUser(ctx context.Context, userID string) ([]models.Trade, error) {
	var trades []models.Trade
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("timestamp asc, id asc").
		Find(&trades).Error
	return trades, err
}

func (s *sqliteStorage) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
