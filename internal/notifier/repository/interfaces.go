package repository

import (
	"context"
	"time"

	"github.com/central-university-dev/go-RoomWatcher/internal/domain/models"
)

type WatcherRepository interface {
	Save(ctx context.Context, watcher *models.Watcher) error
	FindByID(ctx context.Context, id string) (*models.Watcher, error)
	FindActiveByYear(ctx context.Context, year int) ([]*models.Watcher, error)
	Update(ctx context.Context, watcher *models.Watcher) error
	Deactivate(ctx context.Context, id string) error

	// ClaimCooldown — best-effort атомарная заявка на отправку:
	// условный апдейт last_notified_at с проверкой кулдауна и дневного
	// потолка. Возвращает false, если вотчер ещё в кулдауне или исчерпал
	// дневной лимит.
	ClaimCooldown(ctx context.Context, id string, now time.Time) (bool, error)
}

type AlertRepository interface {
	Save(ctx context.Context, alert *models.Alert) error
	FindByID(ctx context.Context, id string) (*models.Alert, error)
	FindEnabled(ctx context.Context) ([]*models.Alert, error)
	FindEnabledByUser(ctx context.Context, userID string) ([]*models.Alert, error)
	Update(ctx context.Context, alert *models.Alert) error
	Delete(ctx context.Context, id string) error
	ClaimCooldown(ctx context.Context, id string, now time.Time) (bool, error)
}

type HotelRepository interface {
	Save(ctx context.Context, hotel *models.Hotel) error
	FindByID(ctx context.Context, id string) (*models.Hotel, error)
	FindByYear(ctx context.Context, year int) ([]*models.Hotel, error)
}

type SnapshotRepository interface {
	Save(ctx context.Context, snapshot *models.RoomSnapshot) error
	FindByID(ctx context.Context, id string) (*models.RoomSnapshot, error)

	// FindCreatedAfter используется polling-источником ленты как запасной
	// путь вместо push-событий.
	FindCreatedAfter(ctx context.Context, year int, after time.Time) ([]*models.RoomSnapshot, error)
}

type PhonePermissionRepository interface {
	Upsert(ctx context.Context, permission *models.PhonePermission) error
	Get(ctx context.Context, userID string) (*models.PhonePermission, error)

	// IncrementIfUnderLimit — атомарный compare-and-increment дневного
	// счётчика канала со сбросом на границе суток. Возвращает false,
	// если разрешение не выдано или квота исчерпана.
	IncrementIfUnderLimit(ctx context.Context, userID string, channel models.ChannelKind) (bool, error)
}

type NotificationLogRepository interface {
	// Append — журнал append-only, записи не изменяются после вставки.
	Append(ctx context.Context, record *models.NotificationRecord) error
	FindByWatcher(ctx context.Context, watcherID string, limit int) ([]*models.NotificationRecord, error)
	FindByUser(ctx context.Context, userID string, limit int) ([]*models.NotificationRecord, error)
}
