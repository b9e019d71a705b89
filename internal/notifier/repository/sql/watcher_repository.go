package sql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/central-university-dev/go-RoomWatcher/internal/database"
	customerrors "github.com/central-university-dev/go-RoomWatcher/internal/domain/errors"
	"github.com/central-university-dev/go-RoomWatcher/internal/domain/models"
)

type WatcherRepository struct {
	db *database.PostgresDB
}

func NewWatcherRepository(db *database.PostgresDB) *WatcherRepository {
	return &WatcherRepository{db: db}
}

const watcherColumns = `id, token_hash, email, discord_webhook_url, discord_mention, phone_number,
	push_subscription, hotel_id, max_nightly_rate, max_distance, require_skywalk, room_type_pattern,
	active, cooldown_minutes, last_notified_at, notifications_sent_today, daily_limit, year, created_at`

func (r *WatcherRepository) Save(ctx context.Context, watcher *models.Watcher) error {
	if !watcher.HasContact() {
		return &customerrors.ErrNoContact{}
	}

	if watcher.CreatedAt.IsZero() {
		watcher.CreatedAt = time.Now()
	}

	err := r.db.Pool.QueryRow(ctx,
		`INSERT INTO watchers (token_hash, email, discord_webhook_url, discord_mention, phone_number,
			push_subscription, hotel_id, max_nightly_rate, max_distance, require_skywalk, room_type_pattern,
			active, cooldown_minutes, daily_limit, year, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), $8, $9, $10, $11, $12, $13, $14, $15, $16)
		RETURNING id`,
		watcher.TokenHash, watcher.Email, watcher.DiscordWebhookURL, watcher.DiscordMention,
		watcher.PhoneNumber, watcher.PushSubscription, watcher.HotelID, watcher.MaxNightlyRate,
		watcher.MaxDistance, watcher.RequireSkywalk, watcher.RoomTypePattern, watcher.Active,
		watcher.CooldownMinutes, watcher.DailyLimit, watcher.Year, watcher.CreatedAt,
	).Scan(&watcher.ID)
	if err != nil {
		return fmt.Errorf("ошибка при сохранении вотчера: %w", err)
	}

	return nil
}

func (r *WatcherRepository) FindByID(ctx context.Context, id string) (*models.Watcher, error) {
	row := r.db.Pool.QueryRow(ctx,
		"SELECT "+watcherColumns+" FROM watchers WHERE id = $1", id)

	watcher, err := scanWatcher(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &customerrors.ErrWatcherNotFound{ID: id}
		}

		return nil, fmt.Errorf("ошибка при поиске вотчера по ID: %w", err)
	}

	return watcher, nil
}

func (r *WatcherRepository) FindActiveByYear(ctx context.Context, year int) ([]*models.Watcher, error) {
	rows, err := r.db.Pool.Query(ctx,
		"SELECT "+watcherColumns+" FROM watchers WHERE active AND year = $1", year)
	if err != nil {
		return nil, fmt.Errorf("ошибка при запросе активных вотчеров: %w", err)
	}
	defer rows.Close()

	var watchers []*models.Watcher

	for rows.Next() {
		watcher, err := scanWatcher(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка при сканировании вотчера: %w", err)
		}

		watchers = append(watchers, watcher)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка при обработке результатов запроса вотчеров: %w", err)
	}

	return watchers, nil
}

func (r *WatcherRepository) Update(ctx context.Context, watcher *models.Watcher) error {
	tag, err := r.db.Pool.Exec(ctx,
		`UPDATE watchers SET email = $2, discord_webhook_url = $3, discord_mention = $4,
			phone_number = $5, push_subscription = $6, hotel_id = NULLIF($7, ''),
			max_nightly_rate = $8, max_distance = $9, require_skywalk = $10,
			room_type_pattern = $11, active = $12, cooldown_minutes = $13, daily_limit = $14
		WHERE id = $1`,
		watcher.ID, watcher.Email, watcher.DiscordWebhookURL, watcher.DiscordMention,
		watcher.PhoneNumber, watcher.PushSubscription, watcher.HotelID, watcher.MaxNightlyRate,
		watcher.MaxDistance, watcher.RequireSkywalk, watcher.RoomTypePattern, watcher.Active,
		watcher.CooldownMinutes, watcher.DailyLimit)
	if err != nil {
		return fmt.Errorf("ошибка при обновлении вотчера: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return &customerrors.ErrWatcherNotFound{ID: watcher.ID}
	}

	return nil
}

func (r *WatcherRepository) Deactivate(ctx context.Context, id string) error {
	tag, err := r.db.Pool.Exec(ctx, "UPDATE watchers SET active = FALSE WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("ошибка при деактивации вотчера: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return &customerrors.ErrWatcherNotFound{ID: id}
	}

	return nil
}

// ClaimCooldown — одиночный условный UPDATE вместо read-compare-write:
// при конкурентных вызовах строку заберёт не больше одного. Дневной
// счётчик сбрасывается на границе суток в том же выражении.
func (r *WatcherRepository) ClaimCooldown(ctx context.Context, id string, now time.Time) (bool, error) {
	tag, err := r.db.Pool.Exec(ctx,
		`UPDATE watchers
		SET notifications_sent_today = CASE
				WHEN last_notified_at IS NULL OR last_notified_at < date_trunc('day', $2::timestamptz) THEN 1
				ELSE notifications_sent_today + 1
			END,
			last_notified_at = $2
		WHERE id = $1 AND active
			AND (last_notified_at IS NULL
				OR last_notified_at <= $2::timestamptz - make_interval(mins => cooldown_minutes))
			AND (last_notified_at IS NULL
				OR last_notified_at < date_trunc('day', $2::timestamptz)
				OR notifications_sent_today < daily_limit)`,
		id, now)
	if err != nil {
		return false, fmt.Errorf("ошибка при заявке на отправку уведомления: %w", err)
	}

	return tag.RowsAffected() > 0, nil
}

func scanWatcher(row pgx.Row) (*models.Watcher, error) {
	watcher := &models.Watcher{}

	var hotelID *string

	err := row.Scan(&watcher.ID, &watcher.TokenHash, &watcher.Email, &watcher.DiscordWebhookURL,
		&watcher.DiscordMention, &watcher.PhoneNumber, &watcher.PushSubscription, &hotelID,
		&watcher.MaxNightlyRate, &watcher.MaxDistance, &watcher.RequireSkywalk,
		&watcher.RoomTypePattern, &watcher.Active, &watcher.CooldownMinutes,
		&watcher.LastNotifiedAt, &watcher.NotificationsSentToday, &watcher.DailyLimit,
		&watcher.Year, &watcher.CreatedAt)
	if err != nil {
		return nil, err
	}

	if hotelID != nil {
		watcher.HotelID = *hotelID
	}

	return watcher, nil
}
