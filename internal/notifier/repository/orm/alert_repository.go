package orm

import (
	"context"
	"errors"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/central-university-dev/go-RoomWatcher/internal/database"
	customerrors "github.com/central-university-dev/go-RoomWatcher/internal/domain/errors"
	"github.com/central-university-dev/go-RoomWatcher/internal/domain/models"
	"github.com/central-university-dev/go-RoomWatcher/pkg/txs"
)

type AlertRepository struct {
	db        *database.PostgresDB
	sq        sq.StatementBuilderType
	txManager txs.Transactor
}

func NewAlertRepository(db *database.PostgresDB, txManager txs.Transactor) *AlertRepository {
	return &AlertRepository{
		db:        db,
		sq:        sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
		txManager: txManager,
	}
}

var alertColumns = []string{
	"id", "user_id", "hotel_name", "max_total_price", "max_distance", "require_skywalk",
	"areas", "min_nights_available", "downtown_only", "enabled", "sound_enabled",
	"fullscreen_enabled", "discord_watcher_id", "phone_number", "sms_body",
	"cooldown_minutes", "last_notified_at", "created_at",
}

func (r *AlertRepository) Save(ctx context.Context, alert *models.Alert) error {
	if !alert.HasCriteria() {
		return &customerrors.ErrNoCriteria{}
	}

	if !alert.HasChannel() {
		return &customerrors.ErrNoChannel{}
	}

	return r.txManager.WithTransaction(ctx, func(ctx context.Context) error {
		querier := txs.GetQuerier(ctx, r.db.Pool)

		if alert.CreatedAt.IsZero() {
			alert.CreatedAt = time.Now()
		}

		var discordWatcherID any
		if alert.DiscordWatcherID != "" {
			discordWatcherID = alert.DiscordWatcherID
		}

		insertQuery := r.sq.Insert("alerts").
			Columns("user_id", "hotel_name", "max_total_price", "max_distance", "require_skywalk",
				"areas", "min_nights_available", "downtown_only", "enabled", "sound_enabled",
				"fullscreen_enabled", "discord_watcher_id", "phone_number", "sms_body",
				"cooldown_minutes", "created_at").
			Values(alert.UserID, alert.HotelName, alert.MaxTotalPrice, alert.MaxDistance,
				alert.RequireSkywalk, alert.Areas, alert.MinNightsAvailable, alert.DowntownOnly,
				alert.Enabled, alert.SoundEnabled, alert.FullScreenEnabled, discordWatcherID,
				alert.PhoneNumber, alert.SMSBody, alert.CooldownMinutes, alert.CreatedAt).
			Suffix("RETURNING id")

		query, args, err := insertQuery.ToSql()
		if err != nil {
			return &customerrors.ErrBuildSQLQuery{Operation: "вставка алерта", Cause: err}
		}

		if err := querier.QueryRow(ctx, query, args...).Scan(&alert.ID); err != nil {
			return &customerrors.ErrSQLExecution{Operation: "сохранение алерта", Cause: err}
		}

		return nil
	})
}

func (r *AlertRepository) FindByID(ctx context.Context, id string) (*models.Alert, error) {
	selectQuery := r.sq.Select(alertColumns...).From("alerts").Where(sq.Eq{"id": id})

	query, args, err := selectQuery.ToSql()
	if err != nil {
		return nil, &customerrors.ErrBuildSQLQuery{Operation: "поиск алерта", Cause: err}
	}

	querier := txs.GetQuerier(ctx, r.db.Pool)

	alert, err := scanAlert(querier.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &customerrors.ErrAlertNotFound{ID: id}
		}

		return nil, &customerrors.ErrSQLExecution{Operation: "поиск алерта", Cause: err}
	}

	return alert, nil
}

func (r *AlertRepository) FindEnabled(ctx context.Context) ([]*models.Alert, error) {
	return r.queryAlerts(ctx, r.sq.Select(alertColumns...).From("alerts").Where(sq.Eq{"enabled": true}))
}

func (r *AlertRepository) FindEnabledByUser(ctx context.Context, userID string) ([]*models.Alert, error) {
	return r.queryAlerts(ctx, r.sq.Select(alertColumns...).From("alerts").
		Where(sq.Eq{"enabled": true, "user_id": userID}))
}

func (r *AlertRepository) queryAlerts(ctx context.Context, selectQuery sq.SelectBuilder) ([]*models.Alert, error) {
	query, args, err := selectQuery.ToSql()
	if err != nil {
		return nil, &customerrors.ErrBuildSQLQuery{Operation: "выборка алертов", Cause: err}
	}

	querier := txs.GetQuerier(ctx, r.db.Pool)

	rows, err := querier.Query(ctx, query, args...)
	if err != nil {
		return nil, &customerrors.ErrSQLExecution{Operation: "выборка алертов", Cause: err}
	}
	defer rows.Close()

	var alerts []*models.Alert

	for rows.Next() {
		alert, err := scanAlert(rows)
		if err != nil {
			return nil, &customerrors.ErrSQLExecution{Operation: "сканирование алерта", Cause: err}
		}

		alerts = append(alerts, alert)
	}

	if err := rows.Err(); err != nil {
		return nil, &customerrors.ErrSQLExecution{Operation: "обработка выборки алертов", Cause: err}
	}

	return alerts, nil
}

func (r *AlertRepository) Update(ctx context.Context, alert *models.Alert) error {
	if !alert.HasCriteria() {
		return &customerrors.ErrNoCriteria{}
	}

	var discordWatcherID any
	if alert.DiscordWatcherID != "" {
		discordWatcherID = alert.DiscordWatcherID
	}

	updateQuery := r.sq.Update("alerts").
		Set("hotel_name", alert.HotelName).
		Set("max_total_price", alert.MaxTotalPrice).
		Set("max_distance", alert.MaxDistance).
		Set("require_skywalk", alert.RequireSkywalk).
		Set("areas", alert.Areas).
		Set("min_nights_available", alert.MinNightsAvailable).
		Set("downtown_only", alert.DowntownOnly).
		Set("enabled", alert.Enabled).
		Set("sound_enabled", alert.SoundEnabled).
		Set("fullscreen_enabled", alert.FullScreenEnabled).
		Set("discord_watcher_id", discordWatcherID).
		Set("phone_number", alert.PhoneNumber).
		Set("sms_body", alert.SMSBody).
		Set("cooldown_minutes", alert.CooldownMinutes).
		Where(sq.Eq{"id": alert.ID})

	query, args, err := updateQuery.ToSql()
	if err != nil {
		return &customerrors.ErrBuildSQLQuery{Operation: "обновление алерта", Cause: err}
	}

	querier := txs.GetQuerier(ctx, r.db.Pool)

	tag, err := querier.Exec(ctx, query, args...)
	if err != nil {
		return &customerrors.ErrSQLExecution{Operation: "обновление алерта", Cause: err}
	}

	if tag.RowsAffected() == 0 {
		return &customerrors.ErrAlertNotFound{ID: alert.ID}
	}

	return nil
}

func (r *AlertRepository) Delete(ctx context.Context, id string) error {
	deleteQuery := r.sq.Delete("alerts").Where(sq.Eq{"id": id})

	query, args, err := deleteQuery.ToSql()
	if err != nil {
		return &customerrors.ErrBuildSQLQuery{Operation: "удаление алерта", Cause: err}
	}

	querier := txs.GetQuerier(ctx, r.db.Pool)

	tag, err := querier.Exec(ctx, query, args...)
	if err != nil {
		return &customerrors.ErrSQLExecution{Operation: "удаление алерта", Cause: err}
	}

	if tag.RowsAffected() == 0 {
		return &customerrors.ErrAlertNotFound{ID: id}
	}

	return nil
}

func (r *AlertRepository) ClaimCooldown(ctx context.Context, id string, now time.Time) (bool, error) {
	querier := txs.GetQuerier(ctx, r.db.Pool)

	tag, err := querier.Exec(ctx,
		`UPDATE alerts SET last_notified_at = $2
		WHERE id = $1 AND enabled
			AND (last_notified_at IS NULL
				OR last_notified_at <= $2::timestamptz - make_interval(mins => cooldown_minutes))`,
		id, now)
	if err != nil {
		return false, &customerrors.ErrSQLExecution{Operation: "заявка на отправку уведомления алерта", Cause: err}
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
