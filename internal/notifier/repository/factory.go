package repository

import (
	"log/slog"

	"github.com/central-university-dev/go-RoomWatcher/internal/config"
	"github.com/central-university-dev/go-RoomWatcher/internal/database"
	"github.com/central-university-dev/go-RoomWatcher/internal/domain/errors"
	"github.com/central-university-dev/go-RoomWatcher/internal/notifier/repository/orm"
	sqlrepo "github.com/central-university-dev/go-RoomWatcher/internal/notifier/repository/sql"
	"github.com/central-university-dev/go-RoomWatcher/pkg/txs"
)

type Factory struct {
	db        *database.PostgresDB
	txManager txs.Transactor
	config    *config.Config
	logger    *slog.Logger
}

func NewFactory(db *database.PostgresDB, txManager txs.Transactor, config *config.Config, logger *slog.Logger) *Factory {
	return &Factory{
		db:        db,
		txManager: txManager,
		config:    config,
		logger:    logger,
	}
}

func (f *Factory) CreateWatcherRepository() (WatcherRepository, error) {
	switch f.config.DatabaseAccessType {
	case config.SquirrelAccess:
		f.logger.Info("Создание ORM (Squirrel) репозитория вотчеров")
		return orm.NewWatcherRepository(f.db, f.txManager), nil
	case config.SQLAccess:
		f.logger.Info("Создание SQL репозитория вотчеров")
		return sqlrepo.NewWatcherRepository(f.db), nil
	default:
		return nil, &errors.ErrUnknownDBAccessType{AccessType: string(f.config.DatabaseAccessType)}
	}
}

func (f *Factory) CreateAlertRepository() (AlertRepository, error) {
	switch f.config.DatabaseAccessType {
	case config.SquirrelAccess:
		f.logger.Info("Создание ORM (Squirrel) репозитория алертов")
		return orm.NewAlertRepository(f.db, f.txManager), nil
	case config.SQLAccess:
		f.logger.Info("Создание SQL репозитория алертов")
		return sqlrepo.NewAlertRepository(f.db), nil
	default:
		return nil, &errors.ErrUnknownDBAccessType{AccessType: string(f.config.DatabaseAccessType)}
	}
}

func (f *Factory) CreatePhonePermissionRepository() (PhonePermissionRepository, error) {
	switch f.config.DatabaseAccessType {
	case config.SquirrelAccess:
		f.logger.Info("Создание ORM (Squirrel) репозитория телефонных разрешений")
		return orm.NewPhonePermissionRepository(f.db, f.txManager), nil
	case config.SQLAccess:
		f.logger.Info("Создание SQL репозитория телефонных разрешений")
		return sqlrepo.NewPhonePermissionRepository(f.db), nil
	default:
		return nil, &errors.ErrUnknownDBAccessType{AccessType: string(f.config.DatabaseAccessType)}
	}
}

// Репозитории отелей, снапшотов и журнала уведомлений существуют только в
// SQL-варианте: их запросы тривиальны, дублировать их на squirrel смысла нет.
func (f *Factory) CreateHotelRepository() HotelRepository {
	return sqlrepo.NewHotelRepository(f.db)
}

func (f *Factory) CreateSnapshotRepository() SnapshotRepository {
	return sqlrepo.NewSnapshotRepository(f.db)
}

func (f *Factory) CreateNotificationLogRepository() NotificationLogRepository {
	return sqlrepo.NewNotificationLogRepository(f.db)
}
