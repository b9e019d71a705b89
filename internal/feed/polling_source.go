package feed

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/central-university-dev/go-RoomWatcher/internal/config"
	"github.com/central-university-dev/go-RoomWatcher/internal/notifier/repository"
)

// PollingSource — запасной путь, когда push-лента недоступна: периодически
// выбирает из базы снапшоты новее вотермарки. При ошибках опроса интервал
// между попытками растёт экспоненциально до PollMaxBackoff, при первом
// успехе сбрасывается.
type PollingSource struct {
	scheduler *gocron.Scheduler
	snapshots repository.SnapshotRepository
	handler   SnapshotHandler
	logger    *slog.Logger

	interval   time.Duration
	maxBackoff time.Duration
	year       int

	mu          sync.Mutex
	watermark   time.Time
	backoff     time.Duration
	nextAttempt time.Time
}

func NewPollingSource(
	cfg *config.Config,
	snapshots repository.SnapshotRepository,
	handler SnapshotHandler,
	logger *slog.Logger,
) *PollingSource {
	return &PollingSource{
		scheduler:  gocron.NewScheduler(time.UTC),
		snapshots:  snapshots,
		handler:    handler,
		logger:     logger,
		interval:   cfg.PollInterval,
		maxBackoff: cfg.PollMaxBackoff,
		year:       cfg.CurrentYear,
		watermark:  time.Now(),
	}
}

func (s *PollingSource) Start(ctx context.Context) {
	s.logger.Info("Запуск опроса снапшотов",
		"interval", s.interval.String(),
	)

	_, err := s.scheduler.Every(s.interval).Do(func() {
		s.poll(ctx)
	})
	if err != nil {
		s.logger.Error("Ошибка при настройке планировщика опроса",
			"error", err,
		)

		return
	}

	s.scheduler.StartAsync()
}

func (s *PollingSource) Stop() {
	s.logger.Info("Остановка опроса снапшотов")
	s.scheduler.Stop()
}

func (s *PollingSource) poll(ctx context.Context) {
	s.mu.Lock()
	if time.Now().Before(s.nextAttempt) {
		s.mu.Unlock()
		return
	}

	since := s.watermark
	s.mu.Unlock()

	snapshots, err := s.snapshots.FindCreatedAfter(ctx, s.year, since)
	if err != nil {
		s.registerFailure(err)
		return
	}

	s.registerSuccess()

	for _, snapshot := range snapshots {
		if err := s.handler.HandleSnapshot(ctx, snapshot); err != nil {
			s.logger.Error("Ошибка при обработке снапшота из опроса",
				"snapshotID", snapshot.ID,
				"error", err,
			)
		}

		s.advanceWatermark(snapshot.ScrapedAt)
	}
}

func (s *PollingSource) advanceWatermark(t time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t.After(s.watermark) {
		s.watermark = t
	}
}

func (s *PollingSource) registerFailure(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.backoff == 0 {
		s.backoff = s.interval
	} else {
		s.backoff *= 2
	}

	if s.backoff > s.maxBackoff {
		s.backoff = s.maxBackoff
	}

	s.nextAttempt = time.Now().Add(s.backoff)

	s.logger.Error("Ошибка при опросе снапшотов",
		"backoff", s.backoff.String(),
		"error", err,
	)
}

func (s *PollingSource) registerSuccess() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.backoff = 0
	s.nextAttempt = time.Time{}
}
