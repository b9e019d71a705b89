// Package feed абстрагирует ленту появления снапшотов: push-вариант на
// Kafka и polling-вариант поверх базы. Ядро уведомлений не знает, откуда
// пришёл снапшот.
package feed

import (
	"context"
	"log/slog"

	"github.com/central-university-dev/go-RoomWatcher/internal/config"
	customerrors "github.com/central-university-dev/go-RoomWatcher/internal/domain/errors"
	"github.com/central-university-dev/go-RoomWatcher/internal/domain/models"
	"github.com/central-university-dev/go-RoomWatcher/internal/notifier/repository"
)

// SnapshotHandler — потребитель ленты. Ошибка обработчика не останавливает
// ленту: источник логирует её и продолжает.
type SnapshotHandler interface {
	HandleSnapshot(ctx context.Context, snapshot *models.RoomSnapshot) error
}

type Source interface {
	Start(ctx context.Context)
	Stop()
}

func NewSource(
	cfg *config.Config,
	snapshots repository.SnapshotRepository,
	handler SnapshotHandler,
	logger *slog.Logger,
) (Source, error) {
	switch cfg.FeedMode {
	case config.KafkaFeed:
		logger.Info("Лента снапшотов: Kafka", "topic", cfg.TopicSnapshots)
		return NewKafkaSource(cfg, handler, logger), nil
	case config.PollingFeed:
		logger.Info("Лента снапшотов: опрос базы", "interval", cfg.PollInterval.String())
		return NewPollingSource(cfg, snapshots, handler, logger), nil
	default:
		return nil, &customerrors.ErrUnknownFeedMode{Mode: string(cfg.FeedMode)}
	}
}
