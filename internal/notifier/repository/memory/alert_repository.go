package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/central-university-dev/go-RoomWatcher/internal/domain/errors"
	"github.com/central-university-dev/go-RoomWatcher/internal/domain/models"
)

type AlertRepository struct {
	alerts map[string]*models.Alert
	mu     sync.RWMutex
}

func NewAlertRepository() *AlertRepository {
	return &AlertRepository{
		alerts: make(map[string]*models.Alert),
	}
}

func (r *AlertRepository) Save(ctx context.Context, alert *models.Alert) error {
	if !alert.HasCriteria() {
		return &errors.ErrNoCriteria{}
	}

	if !alert.HasChannel() {
		return &errors.ErrNoChannel{}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if alert.ID == "" {
		alert.ID = uuid.NewString()
	}

	if alert.CreatedAt.IsZero() {
		alert.CreatedAt = time.Now()
	}

	r.alerts[alert.ID] = alert

	return nil
}

func (r *AlertRepository) FindByID(ctx context.Context, id string) (*models.Alert, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	alert, exists := r.alerts[id]
	if !exists {
		return nil, &errors.ErrAlertNotFound{ID: id}
	}

	return alert, nil
}

func (r *AlertRepository) FindEnabled(ctx context.Context) ([]*models.Alert, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var alerts []*models.Alert

	for _, alert := range r.alerts {
		if alert.Enabled {
			alerts = append(alerts, alert)
		}
	}

	return alerts, nil
}

func (r *AlertRepository) FindEnabledByUser(ctx context.Context, userID string) ([]*models.Alert, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var alerts []*models.Alert

	for _, alert := range r.alerts {
		if alert.Enabled && alert.UserID == userID {
			alerts = append(alerts, alert)
		}
	}

	return alerts, nil
}

func (r *AlertRepository) Update(ctx context.Context, alert *models.Alert) error {
	if !alert.HasCriteria() {
		return &errors.ErrNoCriteria{}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.alerts[alert.ID]; !exists {
		return &errors.ErrAlertNotFound{ID: alert.ID}
	}

	r.alerts[alert.ID] = alert

	return nil
}

func (r *AlertRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.alerts[id]; !exists {
		return &errors.ErrAlertNotFound{ID: id}
	}

	delete(r.alerts, id)

	return nil
}

func (r *AlertRepository) ClaimCooldown(ctx context.Context, id string, now time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	alert, exists := r.alerts[id]
	if !exists || !alert.Enabled {
		return false, nil
	}

	if alert.InCooldown(now) {
		return false, nil
	}

	notifiedAt := now
	alert.LastNotifiedAt = &notifiedAt

	return true, nil
}
