package sql

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/central-university-dev/go-RoomWatcher/internal/database"
	customerrors "github.com/central-university-dev/go-RoomWatcher/internal/domain/errors"
	"github.com/central-university-dev/go-RoomWatcher/internal/domain/models"
)

type HotelRepository struct {
	db *database.PostgresDB
}

func NewHotelRepository(db *database.PostgresDB) *HotelRepository {
	return &HotelRepository{db: db}
}

const hotelColumns = `id, passkey_hotel_id, name, distance_from_icc, distance_unit,
	has_skywalk, area, year, updated_at`

func (r *HotelRepository) Save(ctx context.Context, hotel *models.Hotel) error {
	err := r.db.Pool.QueryRow(ctx,
		`INSERT INTO hotels (passkey_hotel_id, name, distance_from_icc, distance_unit, has_skywalk, area, year)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (name, year) DO UPDATE
			SET distance_from_icc = EXCLUDED.distance_from_icc,
				distance_unit = EXCLUDED.distance_unit,
				updated_at = now()
		RETURNING id`,
		hotel.PasskeyHotelID, hotel.Name, hotel.DistanceFromICC, hotel.DistanceUnit,
		hotel.HasSkywalk, hotel.Area, hotel.Year,
	).Scan(&hotel.ID)
	if err != nil {
		return fmt.Errorf("ошибка при сохранении отеля: %w", err)
	}

	return nil
}

func (r *HotelRepository) FindByID(ctx context.Context, id string) (*models.Hotel, error) {
	row := r.db.Pool.QueryRow(ctx, "SELECT "+hotelColumns+" FROM hotels WHERE id = $1", id)

	hotel, err := scanHotel(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &customerrors.ErrHotelNotFound{ID: id}
		}

		return nil, fmt.Errorf("ошибка при поиске отеля по ID: %w", err)
	}

	return hotel, nil
}

func (r *HotelRepository) FindByYear(ctx context.Context, year int) ([]*models.Hotel, error) {
	rows, err := r.db.Pool.Query(ctx, "SELECT "+hotelColumns+" FROM hotels WHERE year = $1", year)
	if err != nil {
		return nil, fmt.Errorf("ошибка при запросе отелей: %w", err)
	}
	defer rows.Close()

	var hotels []*models.Hotel

	for rows.Next() {
		hotel, err := scanHotel(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка при сканировании отеля: %w", err)
		}

		hotels = append(hotels, hotel)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка при обработке результатов запроса отелей: %w", err)
	}

	return hotels, nil
}

func scanHotel(row pgx.Row) (*models.Hotel, error) {
	hotel := &models.Hotel{}

	err := row.Scan(&hotel.ID, &hotel.PasskeyHotelID, &hotel.Name, &hotel.DistanceFromICC,
		&hotel.DistanceUnit, &hotel.HasSkywalk, &hotel.Area, &hotel.Year, &hotel.UpdatedAt)
	if err != nil {
		return nil, err
	}

	return hotel, nil
}
