package sql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/central-university-dev/go-RoomWatcher/internal/database"
	"github.com/central-university-dev/go-RoomWatcher/internal/domain/models"
)

type SnapshotRepository struct {
	db *database.PostgresDB
}

func NewSnapshotRepository(db *database.PostgresDB) *SnapshotRepository {
	return &SnapshotRepository{db: db}
}

const snapshotColumns = `id, scrape_run_id, hotel_id, room_type, available_count, nightly_rate,
	total_price, check_in, check_out, year, partial_availability, nights_available, total_nights, created_at`

func (r *SnapshotRepository) Save(ctx context.Context, snapshot *models.RoomSnapshot) error {
	if snapshot.ScrapedAt.IsZero() {
		snapshot.ScrapedAt = time.Now()
	}

	err := r.db.Pool.QueryRow(ctx,
		`INSERT INTO room_snapshots (scrape_run_id, hotel_id, room_type, available_count,
			nightly_rate, total_price, check_in, check_out, year,
			partial_availability, nights_available, total_nights, created_at)
		VALUES (NULLIF($1, '')::uuid, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id`,
		snapshot.ScrapeRunID, snapshot.HotelID, snapshot.RoomType, snapshot.AvailableCount,
		snapshot.NightlyRate, snapshot.TotalPrice, snapshot.CheckIn, snapshot.CheckOut,
		snapshot.Year, snapshot.PartialAvailability, snapshot.NightsAvailable,
		snapshot.TotalNights, snapshot.ScrapedAt,
	).Scan(&snapshot.ID)
	if err != nil {
		return fmt.Errorf("ошибка при сохранении снапшота: %w", err)
	}

	return nil
}

func (r *SnapshotRepository) FindByID(ctx context.Context, id string) (*models.RoomSnapshot, error) {
	row := r.db.Pool.QueryRow(ctx,
		"SELECT "+snapshotColumns+" FROM room_snapshots WHERE id = $1", id)

	snapshot, err := scanSnapshot(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("снапшот не найден: %s", id)
		}

		return nil, fmt.Errorf("ошибка при поиске снапшота по ID: %w", err)
	}

	return snapshot, nil
}

func (r *SnapshotRepository) FindCreatedAfter(ctx context.Context, year int, after time.Time) ([]*models.RoomSnapshot, error) {
	rows, err := r.db.Pool.Query(ctx,
		"SELECT "+snapshotColumns+" FROM room_snapshots WHERE year = $1 AND created_at > $2 ORDER BY created_at",
		year, after)
	if err != nil {
		return nil, fmt.Errorf("ошибка при запросе свежих снапшотов: %w", err)
	}
	defer rows.Close()

	var snapshots []*models.RoomSnapshot

	for rows.Next() {
		snapshot, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка при сканировании снапшота: %w", err)
		}

		snapshots = append(snapshots, snapshot)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка при обработке результатов запроса снапшотов: %w", err)
	}

	return snapshots, nil
}

func scanSnapshot(row pgx.Row) (*models.RoomSnapshot, error) {
	snapshot := &models.RoomSnapshot{}

	var scrapeRunID *string

	err := row.Scan(&snapshot.ID, &scrapeRunID, &snapshot.HotelID, &snapshot.RoomType,
		&snapshot.AvailableCount, &snapshot.NightlyRate, &snapshot.TotalPrice,
		&snapshot.CheckIn, &snapshot.CheckOut, &snapshot.Year, &snapshot.PartialAvailability,
		&snapshot.NightsAvailable, &snapshot.TotalNights, &snapshot.ScrapedAt)
	if err != nil {
		return nil, err
	}

	if scrapeRunID != nil {
		snapshot.ScrapeRunID = *scrapeRunID
	}

	return snapshot, nil
}
