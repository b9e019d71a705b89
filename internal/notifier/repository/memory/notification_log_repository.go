package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/central-university-dev/go-RoomWatcher/internal/domain/models"
)

type NotificationLogRepository struct {
	records []*models.NotificationRecord
	mu      sync.RWMutex
}

func NewNotificationLogRepository() *NotificationLogRepository {
	return &NotificationLogRepository{}
}

func (r *NotificationLogRepository) Append(ctx context.Context, record *models.NotificationRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if record.ID == "" {
		record.ID = uuid.NewString()
	}

	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now()
	}

	r.records = append(r.records, record)

	return nil
}

func (r *NotificationLogRepository) FindByWatcher(ctx context.Context, watcherID string, limit int) ([]*models.NotificationRecord, error) {
	return r.filter(limit, func(record *models.NotificationRecord) bool {
		return record.WatcherID == watcherID
	})
}

func (r *NotificationLogRepository) FindByUser(ctx context.Context, userID string, limit int) ([]*models.NotificationRecord, error) {
	return r.filter(limit, func(record *models.NotificationRecord) bool {
		return record.UserID == userID
	})
}

func (r *NotificationLogRepository) filter(limit int, match func(*models.NotificationRecord) bool) ([]*models.NotificationRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var records []*models.NotificationRecord

	for i := len(r.records) - 1; i >= 0 && len(records) < limit; i-- {
		if match(r.records[i]) {
			records = append(records, r.records[i])
		}
	}

	return records, nil
}
