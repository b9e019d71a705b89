// Package gate отвечает за подавление повторных уведомлений: кулдаун
// получателя и дневные квоты телефонных каналов. Кулдаун и дедупликация
// ортогональны: дедупликация отвечает на вопрос «видели ли мы эту
// комнату», кулдаун — «не слишком ли часто мы беспокоим получателя».
package gate

import (
	"context"
	"errors"
	"log/slog"
	"time"

	customerrors "github.com/central-university-dev/go-RoomWatcher/internal/domain/errors"
	"github.com/central-university-dev/go-RoomWatcher/internal/domain/models"
)

// CooldownClaimer — условная заявка на отправку. Реализуется репозиториями
// вотчеров и алертов одним условным UPDATE, поэтому конкурентные матчи по
// одному получателю не приводят к двойной отправке.
type CooldownClaimer interface {
	ClaimCooldown(ctx context.Context, id string, now time.Time) (bool, error)
}

// PhoneQuota — разрешение на телефонные каналы и атомарный дневной счётчик.
type PhoneQuota interface {
	Get(ctx context.Context, userID string) (*models.PhonePermission, error)
	IncrementIfUnderLimit(ctx context.Context, userID string, channel models.ChannelKind) (bool, error)
}

type Gate struct {
	watchers CooldownClaimer
	alerts   CooldownClaimer
	quotas   PhoneQuota
	now      func() time.Time
	logger   *slog.Logger
}

func NewGate(watchers, alerts CooldownClaimer, quotas PhoneQuota, logger *slog.Logger) *Gate {
	return &Gate{
		watchers: watchers,
		alerts:   alerts,
		quotas:   quotas,
		now:      time.Now,
		logger:   logger,
	}
}

// AllowWatcher возвращает true, если вотчеру можно отправлять прямо сейчас,
// и одновременно фиксирует отправку. Ошибка хранилища трактуется как отказ:
// лучше пропустить уведомление, чем заспамить получателя.
func (g *Gate) AllowWatcher(ctx context.Context, watcherID string) (bool, error) {
	claimed, err := g.watchers.ClaimCooldown(ctx, watcherID, g.now())
	if err != nil {
		g.logger.Error("Ошибка при заявке кулдауна вотчера",
			"watcherID", watcherID,
			"error", err,
		)

		return false, err
	}

	return claimed, nil
}

func (g *Gate) AllowAlert(ctx context.Context, alertID string) (bool, error) {
	claimed, err := g.alerts.ClaimCooldown(ctx, alertID, g.now())
	if err != nil {
		g.logger.Error("Ошибка при заявке кулдауна алерта",
			"alertID", alertID,
			"error", err,
		)

		return false, err
	}

	return claimed, nil
}

// ReservePhoneSlot резервирует место в дневной квоте телефонного канала ДО
// обращения к провайдеру. Отказ возвращается типизированной ошибкой, чтобы
// диспетчер мог записать подавление в журнал, не считая его ошибкой доставки.
// Отсутствие или отзыв разрешения отличим от исчерпанной квоты.
func (g *Gate) ReservePhoneSlot(ctx context.Context, userID string, channel models.ChannelKind) error {
	allowed, err := g.quotas.IncrementIfUnderLimit(ctx, userID, channel)
	if err != nil {
		return err
	}

	if allowed {
		return nil
	}

	permission, err := g.quotas.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, &customerrors.ErrPhonePermissionDenied{}) {
			return &customerrors.ErrPhonePermissionDenied{UserID: userID}
		}

		return err
	}

	if !permission.Enabled {
		return &customerrors.ErrPhonePermissionDenied{UserID: userID}
	}

	return &customerrors.ErrQuotaExceeded{UserID: userID, Channel: string(channel)}
}
