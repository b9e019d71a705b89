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

type AlertRepository struct {
	db *database.PostgresDB
}

func NewAlertRepository(db *database.PostgresDB) *AlertRepository {
	return &AlertRepository{db: db}
}

const alertColumns = `id, user_id, hotel_name, max_total_price, max_distance, require_skywalk,
	areas, min_nights_available, downtown_only, enabled, sound_enabled, fullscreen_enabled,
	discord_watcher_id, phone_number, sms_body, cooldown_minutes, last_notified_at, created_at`

func (r *AlertRepository) Save(ctx context.Context, alert *models.Alert) error {
	if !alert.HasCriteria() {
		return &customerrors.ErrNoCriteria{}
	}

	if !alert.HasChannel() {
		return &customerrors.ErrNoChannel{}
	}

	if alert.CreatedAt.IsZero() {
		alert.CreatedAt = time.Now()
	}

	err := r.db.Pool.QueryRow(ctx,
		`INSERT INTO alerts (user_id, hotel_name, max_total_price, max_distance, require_skywalk,
			areas, min_nights_available, downtown_only, enabled, sound_enabled, fullscreen_enabled,
			discord_watcher_id, phone_number, sms_body, cooldown_minutes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NULLIF($12, ''), $13, $14, $15, $16)
		RETURNING id`,
		alert.UserID, alert.HotelName, alert.MaxTotalPrice, alert.MaxDistance, alert.RequireSkywalk,
		alert.Areas, alert.MinNightsAvailable, alert.DowntownOnly, alert.Enabled, alert.SoundEnabled,
		alert.FullScreenEnabled, alert.DiscordWatcherID, alert.PhoneNumber, alert.SMSBody,
		alert.CooldownMinutes, alert.CreatedAt,
	).Scan(&alert.ID)
	if err != nil {
		return fmt.Errorf("ошибка при сохранении алерта: %w", err)
	}

	return nil
}

func (r *AlertRepository) FindByID(ctx context.Context, id string) (*models.Alert, error) {
	row := r.db.Pool.QueryRow(ctx, "SELECT "+alertColumns+" FROM alerts WHERE id = $1", id)

	alert, err := scanAlert(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &customerrors.ErrAlertNotFound{ID: id}
		}

		return nil, fmt.Errorf("ошибка при поиске алерта по ID: %w", err)
	}

	return alert, nil
}

func (r *AlertRepository) FindEnabled(ctx context.Context) ([]*models.Alert, error) {
	return r.queryAlerts(ctx, "SELECT "+alertColumns+" FROM alerts WHERE enabled")
}

func (r *AlertRepository) FindEnabledByUser(ctx context.Context, userID string) ([]*models.Alert, error) {
	return r.queryAlerts(ctx,
		"SELECT "+alertColumns+" FROM alerts WHERE enabled AND user_id = $1", userID)
}

func (r *AlertRepository) queryAlerts(ctx context.Context, query string, args ...any) ([]*models.Alert, error) {
	rows, err := r.db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка при запросе алертов: %w", err)
	}
	defer rows.Close()

	var alerts []*models.Alert

	for rows.Next() {
		alert, err := scanAlert(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка при сканировании алерта: %w", err)
		}

		alerts = append(alerts, alert)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка при обработке результатов запроса алертов: %w", err)
	}

	return alerts, nil
}

func (r *AlertRepository) Update(ctx context.Context, alert *models.Alert) error {
	if !alert.HasCriteria() {
		return &customerrors.ErrNoCriteria{}
	}

	tag, err := r.db.Pool.Exec(ctx,
		`UPDATE alerts SET hotel_name = $2, max_total_price = $3, max_distance = $4,
			require_skywalk = $5, areas = $6, min_nights_available = $7, downtown_only = $8,
			enabled = $9, sound_enabled = $10, fullscreen_enabled = $11,
			discord_watcher_id = NULLIF($12, ''), phone_number = $13, sms_body = $14,
			cooldown_minutes = $15
		WHERE id = $1`,
		alert.ID, alert.HotelName, alert.MaxTotalPrice, alert.MaxDistance, alert.RequireSkywalk,
		alert.Areas, alert.MinNightsAvailable, alert.DowntownOnly, alert.Enabled, alert.SoundEnabled,
		alert.FullScreenEnabled, alert.DiscordWatcherID, alert.PhoneNumber, alert.SMSBody,
		alert.CooldownMinutes)
	if err != nil {
		return fmt.Errorf("ошибка при обновлении алерта: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return &customerrors.ErrAlertNotFound{ID: alert.ID}
	}

	return nil
}

func (r *AlertRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Pool.Exec(ctx, "DELETE FROM alerts WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("ошибка при удалении алерта: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return &customerrors.ErrAlertNotFound{ID: id}
	}

	return nil
}

func (r *AlertRepository) ClaimCooldown(ctx context.Context, id string, now time.Time) (bool, error) {
	tag, err := r.db.Pool.Exec(ctx,
		`UPDATE alerts SET last_notified_at = $2
		WHERE id = $1 AND enabled
			AND (last_notified_at IS NULL
				OR last_notified_at <= $2::timestamptz - make_interval(mins => cooldown_minutes))`,
		id, now)
	if err != nil {
		return false, fmt.Errorf("ошибка при заявке на отправку уведомления алерта: %w", err)
	}

	return tag.RowsAffected() > 0, nil
}

func scanAlert(row pgx.Row) (*models.Alert, error) {
	alert := &models.Alert{}

	var discordWatcherID *string

	err := row.Scan(&alert.ID, &alert.UserID, &alert.HotelName, &alert.MaxTotalPrice,
		&alert.MaxDistance, &alert.RequireSkywalk, &alert.Areas, &alert.MinNightsAvailable,
		&alert.DowntownOnly, &alert.Enabled, &alert.SoundEnabled, &alert.FullScreenEnabled,
		&discordWatcherID, &alert.PhoneNumber, &alert.SMSBody, &alert.CooldownMinutes,
		&alert.LastNotifiedAt, &alert.CreatedAt)
	if err != nil {
		return nil, err
	}

	if discordWatcherID != nil {
		alert.DiscordWatcherID = *discordWatcherID
	}

	return alert, nil
}
