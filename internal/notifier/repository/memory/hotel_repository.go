package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/central-university-dev/go-RoomWatcher/internal/domain/errors"
	"github.com/central-university-dev/go-RoomWatcher/internal/domain/models"
)

type HotelRepository struct {
	hotels map[string]*models.Hotel
	mu     sync.RWMutex
}

func NewHotelRepository() *HotelRepository {
	return &HotelRepository{
		hotels: make(map[string]*models.Hotel),
	}
}

func (r *HotelRepository) Save(ctx context.Context, hotel *models.Hotel) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if hotel.ID == "" {
		hotel.ID = uuid.NewString()
	}

	now := time.Now()
	hotel.UpdatedAt = &now

	r.hotels[hotel.ID] = hotel

	return nil
}

func (r *HotelRepository) FindByID(ctx context.Context, id string) (*models.Hotel, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	hotel, exists := r.hotels[id]
	if !exists {
		return nil, &errors.ErrHotelNotFound{ID: id}
	}

	return hotel, nil
}

func (r *HotelRepository) FindByYear(ctx context.Context, year int) ([]*models.Hotel, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var hotels []*models.Hotel

	for _, hotel := range r.hotels {
		if hotel.Year == year {
			hotels = append(hotels, hotel)
		}
	}

	return hotels, nil
}
