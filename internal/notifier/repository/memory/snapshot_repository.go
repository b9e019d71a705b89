package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/central-university-dev/go-RoomWatcher/internal/domain/models"
)

type SnapshotRepository struct {
	snapshots map[string]*models.RoomSnapshot
	mu        sync.RWMutex
}

func NewSnapshotRepository() *SnapshotRepository {
	return &SnapshotRepository{
		snapshots: make(map[string]*models.RoomSnapshot),
	}
}

func (r *SnapshotRepository) Save(ctx context.Context, snapshot *models.RoomSnapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if snapshot.ID == "" {
		snapshot.ID = uuid.NewString()
	}

	if snapshot.ScrapedAt.IsZero() {
		snapshot.ScrapedAt = time.Now()
	}

	r.snapshots[snapshot.ID] = snapshot

	return nil
}

func (r *SnapshotRepository) FindByID(ctx context.Context, id string) (*models.RoomSnapshot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	snapshot, exists := r.snapshots[id]
	if !exists {
		return nil, fmt.Errorf("снапшот не найден: %s", id)
	}

	return snapshot, nil
}

func (r *SnapshotRepository) FindCreatedAfter(ctx context.Context, year int, after time.Time) ([]*models.RoomSnapshot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var snapshots []*models.RoomSnapshot

	for _, snapshot := range r.snapshots {
		if snapshot.Year == year && snapshot.ScrapedAt.After(after) {
			snapshots = append(snapshots, snapshot)
		}
	}

	sort.Slice(snapshots, func(i, j int) bool {
		return snapshots[i].ScrapedAt.Before(snapshots[j].ScrapedAt)
	})

	return snapshots, nil
}
