package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/central-university-dev/go-RoomWatcher/internal/domain/errors"
	"github.com/central-university-dev/go-RoomWatcher/internal/domain/models"
)

type WatcherRepository struct {
	watchers map[string]*models.Watcher
	mu       sync.RWMutex
}

func NewWatcherRepository() *WatcherRepository {
	return &WatcherRepository{
		watchers: make(map[string]*models.Watcher),
	}
}

func (r *WatcherRepository) Save(ctx context.Context, watcher *models.Watcher) error {
	if !watcher.HasContact() {
		return &errors.ErrNoContact{}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if watcher.ID == "" {
		watcher.ID = uuid.NewString()
	}

	if watcher.CreatedAt.IsZero() {
		watcher.CreatedAt = time.Now()
	}

	r.watchers[watcher.ID] = watcher

	return nil
}

func (r *WatcherRepository) FindByID(ctx context.Context, id string) (*models.Watcher, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	watcher, exists := r.watchers[id]
	if !exists {
		return nil, &errors.ErrWatcherNotFound{ID: id}
	}

	return watcher, nil
}

func (r *WatcherRepository) FindActiveByYear(ctx context.Context, year int) ([]*models.Watcher, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var watchers []*models.Watcher

	for _, watcher := range r.watchers {
		if watcher.Active && watcher.Year == year {
			watchers = append(watchers, watcher)
		}
	}

	return watchers, nil
}

func (r *WatcherRepository) Update(ctx context.Context, watcher *models.Watcher) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.watchers[watcher.ID]; !exists {
		return &errors.ErrWatcherNotFound{ID: watcher.ID}
	}

	r.watchers[watcher.ID] = watcher

	return nil
}

func (r *WatcherRepository) Deactivate(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	watcher, exists := r.watchers[id]
	if !exists {
		return &errors.ErrWatcherNotFound{ID: id}
	}

	watcher.Active = false

	return nil
}

func (r *WatcherRepository) ClaimCooldown(ctx context.Context, id string, now time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	watcher, exists := r.watchers[id]
	if !exists || !watcher.Active {
		return false, nil
	}

	if watcher.InCooldown(now) {
		return false, nil
	}

	sameDay := watcher.LastNotifiedAt != nil &&
		watcher.LastNotifiedAt.Truncate(24*time.Hour).Equal(now.Truncate(24*time.Hour))

	if sameDay {
		if watcher.NotificationsSentToday >= watcher.DailyLimit {
			return false, nil
		}

		watcher.NotificationsSentToday++
	} else {
		watcher.NotificationsSentToday = 1
	}

	notifiedAt := now
	watcher.LastNotifiedAt = &notifiedAt

	return true, nil
}
