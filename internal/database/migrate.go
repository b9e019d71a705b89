package database

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"

	// pgx5 driver нужен для применения миграций через pgx.
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"

	"github.com/central-university-dev/go-RoomWatcher/internal/config"
)

// RunMigrations применяет миграции из cfg.MigrationsPath к базе данных.
func RunMigrations(cfg *config.Config, logger *slog.Logger) error {
	m, err := migrate.New(cfg.MigrationsPath, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("ошибка при инициализации миграций: %w", err)
	}

	defer func() {
		sourceErr, dbErr := m.Close()
		if sourceErr != nil {
			logger.Error("Ошибка при закрытии источника миграций", "error", sourceErr)
		}

		if dbErr != nil {
			logger.Error("Ошибка при закрытии соединения миграций", "error", dbErr)
		}
	}()

	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			logger.Info("Новых миграций нет")
			return nil
		}

		return fmt.Errorf("ошибка при применении миграций: %w", err)
	}

	logger.Info("Миграции успешно применены")

	return nil
}
