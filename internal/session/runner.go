package session

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/central-university-dev/go-RoomWatcher/internal/domain/models"
)

// InventoryProvider отдаёт текущий инвентарь сессии целиком:
// пересчёт работает по полному множеству, а не по дельтам.
type InventoryProvider interface {
	CurrentInventory(ctx context.Context) ([]*models.RoomSnapshot, []*models.Hotel, error)
}

// Runner периодически пересчитывает алерты сессии по свежему инвентарю.
type Runner struct {
	scheduler *gocron.Scheduler
	engine    *Engine
	provider  InventoryProvider
	interval  time.Duration
	logger    *slog.Logger
}

func NewRunner(engine *Engine, provider InventoryProvider, interval time.Duration, logger *slog.Logger) *Runner {
	return &Runner{
		scheduler: gocron.NewScheduler(time.UTC),
		engine:    engine,
		provider:  provider,
		interval:  interval,
		logger:    logger,
	}
}

func (r *Runner) Start(ctx context.Context) {
	r.logger.Info("Запуск периодического пересчёта алертов",
		"interval", r.interval.String(),
	)

	_, err := r.scheduler.Every(r.interval).Do(func() {
		r.recheck(ctx)
	})
	if err != nil {
		r.logger.Error("Ошибка при настройке планировщика пересчёта",
			"error", err,
		)

		return
	}

	r.scheduler.StartAsync()
}

func (r *Runner) Stop() {
	r.logger.Info("Остановка периодического пересчёта алертов")
	r.scheduler.Stop()
}

func (r *Runner) recheck(ctx context.Context) {
	snapshots, hotels, err := r.provider.CurrentInventory(ctx)
	if err != nil {
		r.logger.Error("Ошибка при получении инвентаря",
			"error", err,
		)

		return
	}

	if _, err := r.engine.Recompute(ctx, snapshots, hotels); err != nil {
		r.logger.Error("Ошибка при пересчёте алертов",
			"error", err,
		)
	}
}
