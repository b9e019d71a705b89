package sql

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/central-university-dev/go-RoomWatcher/internal/database"
	"github.com/central-university-dev/go-RoomWatcher/internal/domain/models"
)

type NotificationLogRepository struct {
	db *database.PostgresDB
}

func NewNotificationLogRepository(db *database.PostgresDB) *NotificationLogRepository {
	return &NotificationLogRepository{db: db}
}

const recordColumns = `id, watcher_id, user_id, room_snapshot_id, channel, destination,
	payload_summary, status, provider_message_id, error_message, created_at`

// Append только вставляет: журнал доставок не изменяется после записи.
func (r *NotificationLogRepository) Append(ctx context.Context, record *models.NotificationRecord) error {
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now()
	}

	err := r.db.Pool.QueryRow(ctx,
		`INSERT INTO notification_log (watcher_id, user_id, room_snapshot_id, channel, destination,
			payload_summary, status, provider_message_id, error_message, created_at)
		VALUES (NULLIF($1, '')::uuid, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id`,
		record.WatcherID, record.UserID, record.RoomSnapshotID, string(record.Channel),
		record.Destination, record.PayloadSummary, string(record.Status),
		record.ProviderMessageID, record.ErrorMessage, record.CreatedAt,
	).Scan(&record.ID)
	if err != nil {
		return fmt.Errorf("ошибка при записи в журнал уведомлений: %w", err)
	}

	return nil
}

func (r *NotificationLogRepository) FindByWatcher(ctx context.Context, watcherID string, limit int) ([]*models.NotificationRecord, error) {
	return r.queryRecords(ctx,
		"SELECT "+recordColumns+" FROM notification_log WHERE watcher_id = $1 ORDER BY created_at DESC LIMIT $2",
		watcherID, limit)
}

func (r *NotificationLogRepository) FindByUser(ctx context.Context, userID string, limit int) ([]*models.NotificationRecord, error) {
	return r.queryRecords(ctx,
		"SELECT "+recordColumns+" FROM notification_log WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2",
		userID, limit)
}

func (r *NotificationLogRepository) queryRecords(ctx context.Context, query string, args ...any) ([]*models.NotificationRecord, error) {
	rows, err := r.db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка при запросе журнала уведомлений: %w", err)
	}
	defer rows.Close()

	var records []*models.NotificationRecord

	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка при сканировании записи журнала: %w", err)
		}

		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка при обработке результатов запроса журнала: %w", err)
	}

	return records, nil
}

func scanRecord(row pgx.Row) (*models.NotificationRecord, error) {
	record := &models.NotificationRecord{}

	var (
		watcherID *string
		channel   string
		status    string
	)

	err := row.Scan(&record.ID, &watcherID, &record.UserID, &record.RoomSnapshotID, &channel,
		&record.Destination, &record.PayloadSummary, &status, &record.ProviderMessageID,
		&record.ErrorMessage, &record.CreatedAt)
	if err != nil {
		return nil, err
	}

	if watcherID != nil {
		record.WatcherID = *watcherID
	}

	record.Channel = models.ChannelKind(channel)
	record.Status = models.DeliveryStatus(status)

	return record, nil
}
