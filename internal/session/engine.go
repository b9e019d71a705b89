// Package session — клиентский движок эфемерных алертов: пересчёт по
// полному текущему инвентарю, локальные визуальные и звуковые каналы,
// тревога до явного подтверждения. Алерты живут в памяти сессии и не
// переживают её, в отличие от серверных вотчеров.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/central-university-dev/go-RoomWatcher/internal/common/metrics"
	customerrors "github.com/central-university-dev/go-RoomWatcher/internal/domain/errors"
	"github.com/central-university-dev/go-RoomWatcher/internal/domain/models"
	"github.com/central-university-dev/go-RoomWatcher/internal/notifier/dedup"
	"github.com/central-university-dev/go-RoomWatcher/internal/notifier/matcher"
)

// MatchEvent — событие для визуального слоя сессии.
type MatchEvent struct {
	Match      models.Match
	FullScreen bool
}

// Engine хранит алерты сессии и пересчитывает совпадения по каждому
// обновлению инвентаря. Пересчёты считаются последними по счётчику
// поколений: результат устаревшего пересчёта отбрасывается целиком.
type Engine struct {
	tracker  *dedup.Tracker
	alarm    *AlarmService
	notifier BrowserNotifier
	onMatch  func(MatchEvent)
	logger   *slog.Logger

	mu     sync.Mutex
	alerts map[string]*models.Alert

	// recomputeMu покрывает проверку поколения и замещение запомненного
	// множества: устаревший пересчёт не может затереть более новый.
	recomputeMu sync.Mutex
	generation  atomic.Uint64
	now         func() time.Time
}

func NewEngine(
	tracker *dedup.Tracker,
	alarm *AlarmService,
	notifier BrowserNotifier,
	onMatch func(MatchEvent),
	logger *slog.Logger,
) *Engine {
	return &Engine{
		tracker:  tracker,
		alarm:    alarm,
		notifier: notifier,
		onMatch:  onMatch,
		logger:   logger,
		alerts:   make(map[string]*models.Alert),
		now:      time.Now,
	}
}

// UpsertAlert добавляет или замещает алерт сессии.
func (e *Engine) UpsertAlert(alert *models.Alert) error {
	if !alert.HasCriteria() {
		return &customerrors.ErrNoCriteria{}
	}

	if !alert.HasChannel() {
		return &customerrors.ErrNoChannel{}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.alerts[alert.ID] = alert

	return nil
}

// RegisterAlerts загружает сохранённые алерты в сессию, пропуская
// некорректные. Возвращает число зарегистрированных.
func (e *Engine) RegisterAlerts(alerts []*models.Alert) int {
	registered := 0

	for _, a := range alerts {
		if err := e.UpsertAlert(a); err != nil {
			e.logger.Warn("Алерт пропущен при загрузке",
				"alertID", a.ID,
				"error", err,
			)

			continue
		}

		registered++
	}

	return registered
}

func (e *Engine) RemoveAlert(id string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	delete(e.alerts, id)
}

func (e *Engine) Alerts() []*models.Alert {
	e.mu.Lock()
	defer e.mu.Unlock()

	alerts := make([]*models.Alert, 0, len(e.alerts))
	for _, a := range e.alerts {
		alerts = append(alerts, a)
	}

	return alerts
}

// Seed помечает текущие совпадения как виденные, не уведомляя о них.
// Вызывается при создании алерта: комнаты, доступные в момент создания,
// не должны немедленно поднять тревогу.
func (e *Engine) Seed(snapshots []*models.RoomSnapshot, hotels []*models.Hotel) {
	e.tracker.Seed(e.evaluate(snapshots, hotels))
}

// Recompute — полный пересчёт по текущему инвентарю. Возвращает только
// впервые увиденные совпадения; запомненное множество замещается целиком,
// поэтому распроданный и вновь появившийся номер снова считается новым.
func (e *Engine) Recompute(ctx context.Context, snapshots []*models.RoomSnapshot, hotels []*models.Hotel) ([]models.Match, error) {
	gen := e.generation.Add(1)

	matches := e.evaluate(snapshots, hotels)

	e.recomputeMu.Lock()
	defer e.recomputeMu.Unlock()

	// Последний пересчёт выигрывает: если за время оценки начался новый,
	// наш результат устарел и не применяется.
	if e.generation.Load() != gen {
		metrics.SessionRechecks.WithLabelValues("stale").Inc()
		return nil, nil
	}

	brandNew, err := e.tracker.Update(ctx, matches)
	if err != nil {
		e.logger.Error("Ошибка при сохранении множества дедупликации сессии",
			"error", err,
		)
	}

	metrics.SessionRechecks.WithLabelValues("applied").Inc()

	for _, m := range brandNew {
		e.fire(m)
	}

	return brandNew, nil
}

func (e *Engine) evaluate(snapshots []*models.RoomSnapshot, hotels []*models.Hotel) []models.Match {
	hotelByID := make(map[string]*models.Hotel, len(hotels))
	for _, h := range hotels {
		hotelByID[h.ID] = h
	}

	e.mu.Lock()
	alerts := make([]*models.Alert, 0, len(e.alerts))

	for _, a := range e.alerts {
		alerts = append(alerts, a)
	}
	e.mu.Unlock()

	var matches []models.Match

	for _, snapshot := range snapshots {
		hotel := hotelByID[snapshot.HotelID]

		for _, alert := range alerts {
			if !matcher.MatchesAlert(snapshot, hotel, alert) {
				continue
			}

			matches = append(matches, models.Match{
				CriteriaID: alert.ID,
				SnapshotID: snapshot.ID,
				Snapshot:   snapshot,
				Hotel:      hotel,
				FoundAt:    e.now(),
			})
		}
	}

	return matches
}

// fire раздаёт матч по локальным каналам алерта с учётом кулдауна.
func (e *Engine) fire(m models.Match) {
	e.mu.Lock()
	alert, ok := e.alerts[m.CriteriaID]

	if !ok {
		e.mu.Unlock()
		return
	}

	now := e.now()
	if alert.InCooldown(now) {
		e.mu.Unlock()

		metrics.RecordSuppression(string(models.OutcomeCooldownSuppressed))

		return
	}

	notifiedAt := now
	alert.LastNotifiedAt = &notifiedAt

	sound := alert.SoundEnabled
	fullScreen := alert.FullScreenEnabled
	e.mu.Unlock()

	if sound {
		e.alarm.Start()
		metrics.RecordDispatch(string(models.ChannelSound), string(models.StatusSent))
	}

	if e.onMatch != nil {
		e.onMatch(MatchEvent{Match: m, FullScreen: fullScreen})
		metrics.RecordDispatch(string(models.ChannelVisual), string(models.StatusSent))
	}

	// Тег дедупликации стабилен для пары алерт-снапшот: повторное
	// уведомление замещает предыдущее, а не плодит новые.
	e.notifier.Notify(
		fmt.Sprintf("room-%s", m.Key()),
		"Hotel room found!",
		summaryLine(m),
	)
}

// AcknowledgeAlarm останавливает тревогу. Матчи остаются виденными:
// подтверждение не возвращает их в рассылку.
func (e *Engine) AcknowledgeAlarm() {
	e.alarm.Stop()
}

func (e *Engine) AlarmActive() bool {
	return e.alarm.IsActive()
}

func summaryLine(m models.Match) string {
	hotelName := "Unknown hotel"
	if m.Hotel != nil && m.Hotel.Name != "" {
		hotelName = m.Hotel.Name
	}

	return fmt.Sprintf("%s: %s, $%.0f total", hotelName, m.Snapshot.RoomType, m.Snapshot.TotalPrice)
}
