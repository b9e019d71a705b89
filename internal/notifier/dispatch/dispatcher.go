package dispatch

import (
	"context"
	"errors"
	"log/slog"

	"go.uber.org/multierr"

	customerrors "github.com/central-university-dev/go-RoomWatcher/internal/domain/errors"
	"github.com/central-university-dev/go-RoomWatcher/internal/domain/models"
	"github.com/central-university-dev/go-RoomWatcher/internal/notifier/repository"
)

var errUnsupportedChannel = errors.New("канал обслуживается только в сессии клиента")

// PhoneSlotReserver резервирует место в дневной квоте ДО обращения к
// провайдеру. Отказ квоты не считается ошибкой доставки.
type PhoneSlotReserver interface {
	ReservePhoneSlot(ctx context.Context, userID string, channel models.ChannelKind) error
}

// Dispatcher разводит один матч по каналам получателя. Каналы изолированы:
// отказ вебхука не мешает SMS, и наоборот. Каждая попытка фиксируется в
// append-only журнале.
type Dispatcher struct {
	discord DiscordSender
	phone   PhoneSender
	push    PushSender
	quotas  PhoneSlotReserver
	log     repository.NotificationLogRepository
	logger  *slog.Logger
}

func NewDispatcher(
	discord DiscordSender,
	phone PhoneSender,
	push PushSender,
	quotas PhoneSlotReserver,
	log repository.NotificationLogRepository,
	logger *slog.Logger,
) *Dispatcher {
	return &Dispatcher{
		discord: discord,
		phone:   phone,
		push:    push,
		quotas:  quotas,
		log:     log,
		logger:  logger,
	}
}

// Delivery — адресат одной доставки: матч плюс идентификаторы для журнала.
type Delivery struct {
	Match     *models.Match
	WatcherID string
	UserID    string
}

// Dispatch выполняет fan-out по каналам и возвращает поканальные итоги.
// Агрегированная ошибка собирает отказы всех каналов, но частичный успех —
// это успех: уже доставленные каналы не откатываются.
func (d *Dispatcher) Dispatch(ctx context.Context, delivery Delivery, channels []models.Channel) ([]models.ChannelResult, error) {
	results := make([]models.ChannelResult, 0, len(channels))

	var combined error

	for _, channel := range channels {
		result := d.dispatchOne(ctx, delivery, channel)
		results = append(results, result)

		if result.Err != nil {
			combined = multierr.Append(combined, result.Err)

			d.logger.Error("Ошибка доставки по каналу",
				"channel", string(channel.Kind()),
				"match", delivery.Match.Key(),
				"error", result.Err,
			)
		}

		d.record(ctx, delivery, channel, result)
	}

	return results, combined
}

func (d *Dispatcher) dispatchOne(ctx context.Context, delivery Delivery, channel models.Channel) models.ChannelResult {
	result := models.ChannelResult{Channel: channel.Kind()}

	switch ch := channel.(type) {
	case models.DiscordChannel:
		if ch.WebhookURL == "" {
			result.Status = models.StatusFailed
			result.Err = &customerrors.ErrMissingWebhookURL{WatcherID: delivery.WatcherID}

			return result
		}

		if err := d.discord.SendRoomAvailable(ctx, ch.WebhookURL, ch.Mention, delivery.Match); err != nil {
			result.Status = models.StatusFailed
			result.Err = err

			return result
		}

		result.Status = models.StatusSent

	case models.SMSChannel:
		if err := d.quotas.ReservePhoneSlot(ctx, ch.UserID, models.ChannelSMS); err != nil {
			result.Status = models.StatusFailed
			result.Err = err

			return result
		}

		messageID, err := d.phone.SendSMS(ctx, ch.PhoneNumber, SMSBody(delivery.Match, ch.CustomBody))
		if err != nil {
			result.Status = models.StatusFailed
			result.Err = err

			return result
		}

		result.Status = models.StatusSent
		result.ProviderMessageID = messageID

	case models.CallChannel:
		if err := d.quotas.ReservePhoneSlot(ctx, ch.UserID, models.ChannelCall); err != nil {
			result.Status = models.StatusFailed
			result.Err = err

			return result
		}

		callID, err := d.phone.StartCall(ctx, ch.PhoneNumber, CallScript(delivery.Match))
		if err != nil {
			result.Status = models.StatusFailed
			result.Err = err

			return result
		}

		// Провайдер лишь принял звонок, дозвон не гарантирован.
		result.Status = models.StatusInitiated
		result.ProviderMessageID = callID

	case models.PushChannel:
		if err := d.push.SendPush(ctx, ch.Subscription, delivery.Match); err != nil {
			result.Status = models.StatusFailed
			result.Err = err

			return result
		}

		result.Status = models.StatusSent

	default:
		// Визуальные и звуковые каналы живут в сессии клиента,
		// серверный диспетчер их не обслуживает.
		result.Status = models.StatusFailed
		result.Err = &customerrors.ErrDeliveryFailed{
			Channel: string(channel.Kind()),
			Cause:   errUnsupportedChannel,
		}
	}

	return result
}

func (d *Dispatcher) record(ctx context.Context, delivery Delivery, channel models.Channel, result models.ChannelResult) {
	record := &models.NotificationRecord{
		WatcherID:         delivery.WatcherID,
		UserID:            delivery.UserID,
		RoomSnapshotID:    delivery.Match.SnapshotID,
		Channel:           channel.Kind(),
		Destination:       destination(channel),
		PayloadSummary:    Summary(delivery.Match),
		Status:            result.Status,
		ProviderMessageID: result.ProviderMessageID,
	}

	if result.Err != nil {
		record.ErrorMessage = result.Err.Error()
	}

	if err := d.log.Append(ctx, record); err != nil {
		// Журнал не должен блокировать доставку.
		d.logger.Error("Ошибка записи в журнал уведомлений",
			"channel", string(channel.Kind()),
			"error", err,
		)
	}
}

func destination(channel models.Channel) string {
	switch ch := channel.(type) {
	case models.DiscordChannel:
		return ch.WebhookURL
	case models.SMSChannel:
		return ch.PhoneNumber
	case models.CallChannel:
		return ch.PhoneNumber
	case models.PushChannel:
		return truncate(ch.Subscription, 64)
	default:
		return ""
	}
}
