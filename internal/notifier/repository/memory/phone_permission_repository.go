package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/central-university-dev/go-RoomWatcher/internal/domain/errors"
	"github.com/central-university-dev/go-RoomWatcher/internal/domain/models"
)

type PhonePermissionRepository struct {
	permissions map[string]*models.PhonePermission
	mu          sync.Mutex
}

func NewPhonePermissionRepository() *PhonePermissionRepository {
	return &PhonePermissionRepository{
		permissions: make(map[string]*models.PhonePermission),
	}
}

func (r *PhonePermissionRepository) Upsert(ctx context.Context, permission *models.PhonePermission) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, exists := r.permissions[permission.UserID]
	if exists {
		existing.Enabled = permission.Enabled
		existing.DailySMSLimit = permission.DailySMSLimit
		existing.DailyCallLimit = permission.DailyCallLimit

		return nil
	}

	r.permissions[permission.UserID] = permission

	return nil
}

func (r *PhonePermissionRepository) Get(ctx context.Context, userID string) (*models.PhonePermission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	permission, exists := r.permissions[userID]
	if !exists {
		return nil, &errors.ErrPhonePermissionDenied{UserID: userID}
	}

	return permission, nil
}

func (r *PhonePermissionRepository) IncrementIfUnderLimit(ctx context.Context, userID string, channel models.ChannelKind) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	permission, exists := r.permissions[userID]
	if !exists || !permission.Enabled {
		return false, nil
	}

	today := time.Now().Truncate(24 * time.Hour)
	if permission.LastResetDate.Before(today) {
		permission.SMSSentToday = 0
		permission.CallsSentToday = 0
		permission.LastResetDate = today
	}

	switch channel {
	case models.ChannelSMS:
		if permission.SMSSentToday >= permission.DailySMSLimit {
			return false, nil
		}

		permission.SMSSentToday++
	case models.ChannelCall:
		if permission.CallsSentToday >= permission.DailyCallLimit {
			return false, nil
		}

		permission.CallsSentToday++
	default:
		return false, fmt.Errorf("канал %s не квотируется", channel)
	}

	return true, nil
}
