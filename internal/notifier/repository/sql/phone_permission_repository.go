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

type PhonePermissionRepository struct {
	db *database.PostgresDB
}

func NewPhonePermissionRepository(db *database.PostgresDB) *PhonePermissionRepository {
	return &PhonePermissionRepository{db: db}
}

func (r *PhonePermissionRepository) Upsert(ctx context.Context, permission *models.PhonePermission) error {
	_, err := r.db.Pool.Exec(ctx,
		`INSERT INTO phone_permissions (user_id, enabled, daily_sms_limit, daily_call_limit,
			sms_sent_today, calls_sent_today, last_reset_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (user_id) DO UPDATE
			SET enabled = EXCLUDED.enabled,
				daily_sms_limit = EXCLUDED.daily_sms_limit,
				daily_call_limit = EXCLUDED.daily_call_limit`,
		permission.UserID, permission.Enabled, permission.DailySMSLimit, permission.DailyCallLimit,
		permission.SMSSentToday, permission.CallsSentToday, permission.LastResetDate)
	if err != nil {
		return fmt.Errorf("ошибка при сохранении телефонного разрешения: %w", err)
	}

	return nil
}

func (r *PhonePermissionRepository) Get(ctx context.Context, userID string) (*models.PhonePermission, error) {
	permission := &models.PhonePermission{UserID: userID}

	err := r.db.Pool.QueryRow(ctx,
		`SELECT enabled, daily_sms_limit, daily_call_limit, sms_sent_today, calls_sent_today, last_reset_date
		FROM phone_permissions WHERE user_id = $1`, userID).
		Scan(&permission.Enabled, &permission.DailySMSLimit, &permission.DailyCallLimit,
			&permission.SMSSentToday, &permission.CallsSentToday, &permission.LastResetDate)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &customerrors.ErrPhonePermissionDenied{UserID: userID}
		}

		return nil, fmt.Errorf("ошибка при чтении телефонного разрешения: %w", err)
	}

	return permission, nil
}

// IncrementIfUnderLimit — атомарный compare-and-increment: проверка лимита
// и инкремент выполняются одним UPDATE, конкурентные вызовы не могут
// проскочить мимо квоты. Счётчики сбрасываются на границе суток.
func (r *PhonePermissionRepository) IncrementIfUnderLimit(ctx context.Context, userID string, channel models.ChannelKind) (bool, error) {
	var query string

	switch channel {
	case models.ChannelSMS:
		query = `UPDATE phone_permissions
			SET sms_sent_today = CASE WHEN last_reset_date < CURRENT_DATE THEN 1 ELSE sms_sent_today + 1 END,
				calls_sent_today = CASE WHEN last_reset_date < CURRENT_DATE THEN 0 ELSE calls_sent_today END,
				last_reset_date = CURRENT_DATE
			WHERE user_id = $1 AND enabled
				AND (last_reset_date < CURRENT_DATE OR sms_sent_today < daily_sms_limit)`
	case models.ChannelCall:
		query = `UPDATE phone_permissions
			SET calls_sent_today = CASE WHEN last_reset_date < CURRENT_DATE THEN 1 ELSE calls_sent_today + 1 END,
				sms_sent_today = CASE WHEN last_reset_date < CURRENT_DATE THEN 0 ELSE sms_sent_today END,
				last_reset_date = CURRENT_DATE
			WHERE user_id = $1 AND enabled
				AND (last_reset_date < CURRENT_DATE OR calls_sent_today < daily_call_limit)`
	default:
		return false, fmt.Errorf("канал %s не квотируется", channel)
	}

	tag, err := r.db.Pool.Exec(ctx, query, userID)
	if err != nil {
		return false, fmt.Errorf("ошибка при инкременте квоты: %w", err)
	}

	return tag.RowsAffected() > 0, nil
}
