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

type WatcherRepository struct {
	db        *database.PostgresDB
	sq        sq.StatementBuilderType
	txManager txs.Transactor
}

func NewWatcherRepository(db *database.PostgresDB, txManager txs.Transactor) *WatcherRepository {
	return &WatcherRepository{
		db:        db,
		sq:        sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
		txManager: txManager,
	}
}

var watcherColumns = []string{
	"id", "token_hash", "email", "discord_webhook_url", "discord_mention", "phone_number",
	"push_subscription", "hotel_id", "max_nightly_rate", "max_distance", "require_skywalk",
	"room_type_pattern", "active", "cooldown_minutes", "last_notified_at",
	"notifications_sent_today", "daily_limit", "year", "created_at",
}

func (r *WatcherRepository) Save(ctx context.Context, watcher *models.Watcher) error {
	if !watcher.HasContact() {
		return &customerrors.ErrNoContact{}
	}

	return r.txManager.WithTransaction(ctx, func(ctx context.Context) error {
		querier := txs.GetQuerier(ctx, r.db.Pool)

		if watcher.CreatedAt.IsZero() {
			watcher.CreatedAt = time.Now()
		}

		var hotelID any
		if watcher.HotelID != "" {
			hotelID = watcher.HotelID
		}

		insertQuery := r.sq.Insert("watchers").
			Columns("token_hash", "email", "discord_webhook_url", "discord_mention", "phone_number",
				"push_subscription", "hotel_id", "max_nightly_rate", "max_distance", "require_skywalk",
				"room_type_pattern", "active", "cooldown_minutes", "daily_limit", "year", "created_at").
			Values(watcher.TokenHash, watcher.Email, watcher.DiscordWebhookURL, watcher.DiscordMention,
				watcher.PhoneNumber, watcher.PushSubscription, hotelID, watcher.MaxNightlyRate,
				watcher.MaxDistance, watcher.RequireSkywalk, watcher.RoomTypePattern, watcher.Active,
				watcher.CooldownMinutes, watcher.DailyLimit, watcher.Year, watcher.CreatedAt).
			Suffix("RETURNING id")

		query, args, err := insertQuery.ToSql()
		if err != nil {
			return &customerrors.ErrBuildSQLQuery{Operation: "вставка вотчера", Cause: err}
		}

		if err := querier.QueryRow(ctx, query, args...).Scan(&watcher.ID); err != nil {
			return &customerrors.ErrSQLExecution{Operation: "сохранение вотчера", Cause: err}
		}

		return nil
	})
}

func (r *WatcherRepository) FindByID(ctx context.Context, id string) (*models.Watcher, error) {
	selectQuery := r.sq.Select(watcherColumns...).From("watchers").Where(sq.Eq{"id": id})

	query, args, err := selectQuery.ToSql()
	if err != nil {
		return nil, &customerrors.ErrBuildSQLQuery{Operation: "поиск вотчера", Cause: err}
	}

	querier := txs.GetQuerier(ctx, r.db.Pool)

	watcher, err := scanWatcher(querier.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &customerrors.ErrWatcherNotFound{ID: id}
		}

		return nil, &customerrors.ErrSQLExecution{Operation: "поиск вотчера", Cause: err}
	}

	return watcher, nil
}

func (r *WatcherRepository) FindActiveByYear(ctx context.Context, year int) ([]*models.Watcher, error) {
	selectQuery := r.sq.Select(watcherColumns...).From("watchers").
		Where(sq.Eq{"active": true, "year": year})

	query, args, err := selectQuery.ToSql()
	if err != nil {
		return nil, &customerrors.ErrBuildSQLQuery{Operation: "выборка активных вотчеров", Cause: err}
	}

	querier := txs.GetQuerier(ctx, r.db.Pool)

	rows, err := querier.Query(ctx, query, args...)
	if err != nil {
		return nil, &customerrors.ErrSQLExecution{Operation: "выборка активных вотчеров", Cause: err}
	}
	defer rows.Close()

	var watchers []*models.Watcher

	for rows.Next() {
		watcher, err := scanWatcher(rows)
		if err != nil {
			return nil, &customerrors.ErrSQLExecution{Operation: "сканирование вотчера", Cause: err}
		}

		watchers = append(watchers, watcher)
	}

	if err := rows.Err(); err != nil {
		return nil, &customerrors.ErrSQLExecution{Operation: "обработка выборки вотчеров", Cause: err}
	}

	return watchers, nil
}

func (r *WatcherRepository) Update(ctx context.Context, watcher *models.Watcher) error {
	var hotelID any
	if watcher.HotelID != "" {
		hotelID = watcher.HotelID
	}

	updateQuery := r.sq.Update("watchers").
		Set("email", watcher.Email).
		Set("discord_webhook_url", watcher.DiscordWebhookURL).
		Set("discord_mention", watcher.DiscordMention).
		Set("phone_number", watcher.PhoneNumber).
		Set("push_subscription", watcher.PushSubscription).
		Set("hotel_id", hotelID).
		Set("max_nightly_rate", watcher.MaxNightlyRate).
		Set("max_distance", watcher.MaxDistance).
		Set("require_skywalk", watcher.RequireSkywalk).
		Set("room_type_pattern", watcher.RoomTypePattern).
		Set("active", watcher.Active).
		Set("cooldown_minutes", watcher.CooldownMinutes).
		Set("daily_limit", watcher.DailyLimit).
		Where(sq.Eq{"id": watcher.ID})

	query, args, err := updateQuery.ToSql()
	if err != nil {
		return &customerrors.ErrBuildSQLQuery{Operation: "обновление вотчера", Cause: err}
	}

	querier := txs.GetQuerier(ctx, r.db.Pool)

	tag, err := querier.Exec(ctx, query, args...)
	if err != nil {
		return &customerrors.ErrSQLExecution{Operation: "обновление вотчера", Cause: err}
	}

	if tag.RowsAffected() == 0 {
		return &customerrors.ErrWatcherNotFound{ID: watcher.ID}
	}

	return nil
}

func (r *WatcherRepository) Deactivate(ctx context.Context, id string) error {
	updateQuery := r.sq.Update("watchers").Set("active", false).Where(sq.Eq{"id": id})

	query, args, err := updateQuery.ToSql()
	if err != nil {
		return &customerrors.ErrBuildSQLQuery{Operation: "деактивация вотчера", Cause: err}
	}

	querier := txs.GetQuerier(ctx, r.db.Pool)

	tag, err := querier.Exec(ctx, query, args...)
	if err != nil {
		return &customerrors.ErrSQLExecution{Operation: "деактивация вотчера", Cause: err}
	}

	if tag.RowsAffected() == 0 {
		return &customerrors.ErrWatcherNotFound{ID: id}
	}

	return nil
}

// ClaimCooldown использует сырой SQL и в squirrel-варианте: условный
// UPDATE с CASE squirrel не выражает.
func (r *WatcherRepository) ClaimCooldown(ctx context.Context, id string, now time.Time) (bool, error) {
	querier := txs.GetQuerier(ctx, r.db.Pool)

	tag, err := querier.Exec(ctx,
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
		return false, &customerrors.ErrSQLExecution{Operation: "заявка на отправку уведомления", Cause: err}
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
