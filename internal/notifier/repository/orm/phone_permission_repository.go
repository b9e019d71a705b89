package orm

import (
	"context"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/central-university-dev/go-RoomWatcher/internal/database"
	customerrors "github.com/central-university-dev/go-RoomWatcher/internal/domain/errors"
	"github.com/central-university-dev/go-RoomWatcher/internal/domain/models"
	"github.com/central-university-dev/go-RoomWatcher/pkg/txs"
)

type PhonePermissionRepository struct {
	db        *database.PostgresDB
	sq        sq.StatementBuilderType
	txManager txs.Transactor
}

func NewPhonePermissionRepository(db *database.PostgresDB, txManager txs.Transactor) *PhonePermissionRepository {
	return &PhonePermissionRepository{
		db:        db,
		sq:        sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
		txManager: txManager,
	}
}

func (r *PhonePermissionRepository) Upsert(ctx context.Context, permission *models.PhonePermission) error {
	return r.txManager.WithTransaction(ctx, func(ctx context.Context) error {
		querier := txs.GetQuerier(ctx, r.db.Pool)

		insertQuery := r.sq.Insert("phone_permissions").
			Columns("user_id", "enabled", "daily_sms_limit", "daily_call_limit",
				"sms_sent_today", "calls_sent_today", "last_reset_date").
			Values(permission.UserID, permission.Enabled, permission.DailySMSLimit,
				permission.DailyCallLimit, permission.SMSSentToday, permission.CallsSentToday,
				permission.LastResetDate).
			Suffix(`ON CONFLICT (user_id) DO UPDATE
				SET enabled = EXCLUDED.enabled,
					daily_sms_limit = EXCLUDED.daily_sms_limit,
					daily_call_limit = EXCLUDED.daily_call_limit`)

		query, args, err := insertQuery.ToSql()
		if err != nil {
			return &customerrors.ErrBuildSQLQuery{Operation: "сохранение телефонного разрешения", Cause: err}
		}

		if _, err := querier.Exec(ctx, query, args...); err != nil {
			return &customerrors.ErrSQLExecution{Operation: "сохранение телефонного разрешения", Cause: err}
		}

		return nil
	})
}

func (r *PhonePermissionRepository) Get(ctx context.Context, userID string) (*models.PhonePermission, error) {
	selectQuery := r.sq.Select("enabled", "daily_sms_limit", "daily_call_limit",
		"sms_sent_today", "calls_sent_today", "last_reset_date").
		From("phone_permissions").Where(sq.Eq{"user_id": userID})

	query, args, err := selectQuery.ToSql()
	if err != nil {
		return nil, &customerrors.ErrBuildSQLQuery{Operation: "чтение телефонного разрешения", Cause: err}
	}

	querier := txs.GetQuerier(ctx, r.db.Pool)

	permission := &models.PhonePermission{UserID: userID}

	err = querier.QueryRow(ctx, query, args...).
		Scan(&permission.Enabled, &permission.DailySMSLimit, &permission.DailyCallLimit,
			&permission.SMSSentToday, &permission.CallsSentToday, &permission.LastResetDate)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &customerrors.ErrPhonePermissionDenied{UserID: userID}
		}

		return nil, &customerrors.ErrSQLExecution{Operation: "чтение телефонного разрешения", Cause: err}
	}

	return permission, nil
}

// IncrementIfUnderLimit остаётся на сыром SQL: условный UPDATE с CASE
// squirrel не выражает, а разбивать его на SELECT+UPDATE нельзя —
// потеряется атомарность квоты.
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

	querier := txs.GetQuerier(ctx, r.db.Pool)

	tag, err := querier.Exec(ctx, query, userID)
	if err != nil {
		return false, &customerrors.ErrSQLExecution{Operation: "инкремент квоты", Cause: err}
	}

	return tag.RowsAffected() > 0, nil
}
