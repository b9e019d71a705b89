package service

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/central-university-dev/go-RoomWatcher/internal/common/metrics"
	customerrors "github.com/central-university-dev/go-RoomWatcher/internal/domain/errors"
	"github.com/central-university-dev/go-RoomWatcher/internal/domain/models"
	"github.com/central-university-dev/go-RoomWatcher/internal/notifier/dedup"
	"github.com/central-university-dev/go-RoomWatcher/internal/notifier/dispatch"
	"github.com/central-university-dev/go-RoomWatcher/internal/notifier/matcher"
	"github.com/central-university-dev/go-RoomWatcher/internal/notifier/repository"
)

// MatchDispatcher — fan-out одного матча по каналам получателя.
type MatchDispatcher interface {
	Dispatch(ctx context.Context, delivery dispatch.Delivery, channels []models.Channel) ([]models.ChannelResult, error)
}

// CooldownGate — кулдаун получателей и квоты телефонных каналов.
type CooldownGate interface {
	AllowWatcher(ctx context.Context, watcherID string) (bool, error)
	AllowAlert(ctx context.Context, alertID string) (bool, error)
	ReservePhoneSlot(ctx context.Context, userID string, channel models.ChannelKind) error
}

type TestPhoneSender interface {
	SendSMS(ctx context.Context, to, body string) (string, error)
	StartCall(ctx context.Context, to, script string) (string, error)
}

// NotifierService — серверный конвейер: снапшот -> матчи -> дедупликация ->
// кулдаун -> диспетчеризация. Каждый этап может только сузить множество
// доставляемых матчей.
type NotifierService struct {
	watchers   repository.WatcherRepository
	alerts     repository.AlertRepository
	hotels     repository.HotelRepository
	snapshots  repository.SnapshotRepository
	log        repository.NotificationLogRepository
	tracker    *dedup.Tracker
	gate       CooldownGate
	dispatcher MatchDispatcher
	phone      TestPhoneSender
	logger     *slog.Logger

	processing atomic.Bool
}

func NewNotifierService(
	watchers repository.WatcherRepository,
	alerts repository.AlertRepository,
	hotels repository.HotelRepository,
	snapshots repository.SnapshotRepository,
	log repository.NotificationLogRepository,
	tracker *dedup.Tracker,
	g CooldownGate,
	dispatcher MatchDispatcher,
	phone TestPhoneSender,
	logger *slog.Logger,
) *NotifierService {
	s := &NotifierService{
		watchers:   watchers,
		alerts:     alerts,
		hotels:     hotels,
		snapshots:  snapshots,
		log:        log,
		tracker:    tracker,
		gate:       g,
		dispatcher: dispatcher,
		phone:      phone,
		logger:     logger,
	}

	s.processing.Store(true)

	return s
}

// SetProcessing включает или выключает обработку входящих снапшотов.
// Выключенный сервис продолжает принимать события, но молча их пропускает.
func (s *NotifierService) SetProcessing(enabled bool) {
	s.processing.Store(enabled)

	s.logger.Info("Переключение обработки снапшотов",
		"enabled", enabled,
	)
}

func (s *NotifierService) IsProcessing() bool {
	return s.processing.Load()
}

// HandleSnapshot реализует потребителя ленты снапшотов.
func (s *NotifierService) HandleSnapshot(ctx context.Context, snapshot *models.RoomSnapshot) error {
	if !s.processing.Load() {
		metrics.RecordSnapshot("feed", "skipped", 0)
		return nil
	}

	start := time.Now()

	if err := s.processSnapshot(ctx, snapshot); err != nil {
		metrics.RecordSnapshot("feed", "error", time.Since(start))
		return err
	}

	metrics.RecordSnapshot("feed", "success", time.Since(start))

	return nil
}

func (s *NotifierService) processSnapshot(ctx context.Context, snapshot *models.RoomSnapshot) error {
	hotel, err := s.hotels.FindByID(ctx, snapshot.HotelID)
	if err != nil {
		// Неизвестный отель не блокирует матчинг: фильтры по отелю
		// просто не сойдутся.
		if !errors.Is(err, &customerrors.ErrHotelNotFound{}) {
			return err
		}

		s.logger.Warn("Отель снапшота не найден",
			"hotelID", snapshot.HotelID,
		)

		hotel = nil
	}

	watchers, err := s.watchers.FindActiveByYear(ctx, snapshot.Year)
	if err != nil {
		return err
	}

	metrics.ActiveWatchers.WithLabelValues(strconv.Itoa(snapshot.Year)).Set(float64(len(watchers)))

	var found []models.Match

	byID := make(map[string]*models.Watcher, len(watchers))

	for _, w := range watchers {
		if !matcher.MatchesWatcher(snapshot, hotel, w) {
			continue
		}

		byID[w.ID] = w

		found = append(found, models.Match{
			CriteriaID: w.ID,
			SnapshotID: snapshot.ID,
			Snapshot:   snapshot,
			Hotel:      hotel,
			FoundAt:    time.Now(),
		})
	}

	metrics.MatchesFound.WithLabelValues("watcher").Add(float64(len(found)))

	alerts, err := s.alerts.FindEnabled(ctx)
	if err != nil {
		return err
	}

	alertByID := make(map[string]*models.Alert)

	for _, a := range alerts {
		// Звуковой и визуальный каналы живут в сессии клиента; на сервере
		// алерт доставляется только через привязанный Discord или телефон.
		if a.DiscordWatcherID == "" && a.PhoneNumber == "" {
			continue
		}

		if !matcher.MatchesAlert(snapshot, hotel, a) {
			continue
		}

		alertByID[a.ID] = a

		found = append(found, models.Match{
			CriteriaID: a.ID,
			SnapshotID: snapshot.ID,
			Snapshot:   snapshot,
			Hotel:      hotel,
			FoundAt:    time.Now(),
		})
	}

	metrics.MatchesFound.WithLabelValues("alert").Add(float64(len(alertByID)))

	if len(found) == 0 {
		return nil
	}

	brandNew, err := s.tracker.MarkNew(ctx, found)
	if err != nil {
		// Матчи уже отобраны, хранилище дедупликации догонит позже.
		s.logger.Error("Ошибка при сохранении множества дедупликации",
			"error", err,
		)
	}

	for i := 0; i < len(found)-len(brandNew); i++ {
		metrics.RecordSuppression(string(models.OutcomeDedupedOut))
	}

	for _, m := range brandNew {
		if w, ok := byID[m.CriteriaID]; ok {
			s.deliver(ctx, m, w)
			continue
		}

		if a, ok := alertByID[m.CriteriaID]; ok {
			s.deliverAlert(ctx, m, a)
		}
	}

	return nil
}

func (s *NotifierService) deliver(ctx context.Context, m models.Match, w *models.Watcher) {
	allowed, err := s.gate.AllowWatcher(ctx, w.ID)
	if err != nil {
		return
	}

	if !allowed {
		metrics.RecordSuppression(string(models.OutcomeCooldownSuppressed))

		s.logger.Info("Матч подавлен кулдауном или дневным лимитом",
			"watcherID", w.ID,
			"match", m.Key(),
		)

		return
	}

	channels := channelsForWatcher(w)
	if len(channels) == 0 {
		return
	}

	delivery := dispatch.Delivery{Match: &m, WatcherID: w.ID, UserID: w.ID}

	results, err := s.dispatcher.Dispatch(ctx, delivery, channels)
	if err != nil {
		s.logger.Error("Частичный отказ доставки",
			"watcherID", w.ID,
			"match", m.Key(),
			"error", err,
		)
	}

	for _, result := range results {
		metrics.RecordDispatch(string(result.Channel), string(result.Status))
	}
}

func (s *NotifierService) deliverAlert(ctx context.Context, m models.Match, a *models.Alert) {
	allowed, err := s.gate.AllowAlert(ctx, a.ID)
	if err != nil {
		return
	}

	if !allowed {
		metrics.RecordSuppression(string(models.OutcomeCooldownSuppressed))

		s.logger.Info("Матч алерта подавлен кулдауном",
			"alertID", a.ID,
			"match", m.Key(),
		)

		return
	}

	channels := s.channelsForAlert(ctx, a)
	if len(channels) == 0 {
		return
	}

	delivery := dispatch.Delivery{Match: &m, WatcherID: a.DiscordWatcherID, UserID: a.UserID}

	results, err := s.dispatcher.Dispatch(ctx, delivery, channels)
	if err != nil {
		s.logger.Error("Частичный отказ доставки алерта",
			"alertID", a.ID,
			"match", m.Key(),
			"error", err,
		)
	}

	for _, result := range results {
		metrics.RecordDispatch(string(result.Channel), string(result.Status))
	}
}

// channelsForAlert собирает серверные каналы алерта: вебхук привязанного
// Discord-вотчера и SMS с пользовательским текстом.
func (s *NotifierService) channelsForAlert(ctx context.Context, a *models.Alert) []models.Channel {
	var channels []models.Channel

	if a.DiscordWatcherID != "" {
		w, err := s.watchers.FindByID(ctx, a.DiscordWatcherID)

		switch {
		case err != nil:
			s.logger.Warn("Привязанный к алерту вотчер не найден",
				"alertID", a.ID,
				"watcherID", a.DiscordWatcherID,
			)
		case w.DiscordWebhookURL == "":
			s.logger.Warn("У привязанного вотчера не задан Discord webhook",
				"alertID", a.ID,
				"watcherID", a.DiscordWatcherID,
			)
		default:
			channels = append(channels, models.DiscordChannel{
				WebhookURL: w.DiscordWebhookURL,
				Mention:    w.DiscordMention,
			})
		}
	}

	if a.PhoneNumber != "" {
		channels = append(channels, models.SMSChannel{
			UserID:      a.UserID,
			PhoneNumber: a.PhoneNumber,
			CustomBody:  a.SMSBody,
		})
	}

	return channels
}

// channelsForWatcher собирает каналы из контактов вотчера. Email-контакт
// используется только для связи с владельцем и каналом не является.
func channelsForWatcher(w *models.Watcher) []models.Channel {
	var channels []models.Channel

	if w.DiscordWebhookURL != "" {
		channels = append(channels, models.DiscordChannel{
			WebhookURL: w.DiscordWebhookURL,
			Mention:    w.DiscordMention,
		})
	}

	if w.PhoneNumber != "" {
		channels = append(channels, models.SMSChannel{
			UserID:      w.ID,
			PhoneNumber: w.PhoneNumber,
		})
	}

	if w.PushSubscription != "" {
		channels = append(channels, models.PushChannel{
			Subscription: w.PushSubscription,
		})
	}

	return channels
}

const (
	testSMSBody    = "Test notification: your room watcher is configured correctly."
	testCallScript = "This is a test call from your room watcher. Configuration is correct. Goodbye."
)

// SendTestSMS отправляет проверочное SMS. Тратит дневную квоту:
// проверка должна проходить тот же путь, что и боевое уведомление.
func (s *NotifierService) SendTestSMS(ctx context.Context, userID, phoneNumber string) (string, error) {
	if err := s.gate.ReservePhoneSlot(ctx, userID, models.ChannelSMS); err != nil {
		return "", err
	}

	messageID, err := s.phone.SendSMS(ctx, phoneNumber, testSMSBody)

	s.recordTest(ctx, userID, phoneNumber, models.ChannelSMS, messageID, err)

	return messageID, err
}

func (s *NotifierService) SendTestCall(ctx context.Context, userID, phoneNumber string) (string, error) {
	if err := s.gate.ReservePhoneSlot(ctx, userID, models.ChannelCall); err != nil {
		return "", err
	}

	callID, err := s.phone.StartCall(ctx, phoneNumber, testCallScript)

	s.recordTest(ctx, userID, phoneNumber, models.ChannelCall, callID, err)

	return callID, err
}

func (s *NotifierService) recordTest(ctx context.Context, userID, phoneNumber string, channel models.ChannelKind, providerID string, deliveryErr error) {
	record := &models.NotificationRecord{
		UserID:            userID,
		Channel:           channel,
		Destination:       phoneNumber,
		PayloadSummary:    "test notification",
		ProviderMessageID: providerID,
		Status:            models.StatusSent,
	}

	if channel == models.ChannelCall {
		record.Status = models.StatusInitiated
	}

	if deliveryErr != nil {
		record.Status = models.StatusFailed
		record.ErrorMessage = deliveryErr.Error()
	}

	if err := s.log.Append(ctx, record); err != nil {
		s.logger.Error("Ошибка записи тестовой отправки в журнал",
			"error", err,
		)
	}
}
