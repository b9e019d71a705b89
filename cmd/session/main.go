package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/central-university-dev/go-RoomWatcher/internal/common/metrics"
	"github.com/central-university-dev/go-RoomWatcher/internal/config"
	"github.com/central-university-dev/go-RoomWatcher/internal/database"
	"github.com/central-university-dev/go-RoomWatcher/internal/domain/models"
	"github.com/central-university-dev/go-RoomWatcher/internal/notifier/dedup"
	"github.com/central-university-dev/go-RoomWatcher/internal/notifier/repository"
	sqlrepo "github.com/central-university-dev/go-RoomWatcher/internal/notifier/repository/sql"
	"github.com/central-university-dev/go-RoomWatcher/internal/session"
	"github.com/central-university-dev/go-RoomWatcher/pkg"
)

const (
	sessionSeenSetKey = "room-watcher:session-seen"

	// Инвентарём сессии считаются снапшоты за последний час:
	// более старые наблюдения скрапер уже заместил.
	inventoryWindow = time.Hour
)

// terminalBeeper — звуковой сигнал терминала.
type terminalBeeper struct{}

func (terminalBeeper) Beep() {
	fmt.Print("\a")
}

// dbInventory читает текущий инвентарь напрямую из базы скрапера.
type dbInventory struct {
	snapshots repository.SnapshotRepository
	hotels    repository.HotelRepository
	year      int
}

func (p *dbInventory) CurrentInventory(ctx context.Context) ([]*models.RoomSnapshot, []*models.Hotel, error) {
	snapshots, err := p.snapshots.FindCreatedAfter(ctx, p.year, time.Now().Add(-inventoryWindow))
	if err != nil {
		return nil, nil, err
	}

	hotels, err := p.hotels.FindByYear(ctx, p.year)
	if err != nil {
		return nil, nil, err
	}

	return snapshots, hotels, nil
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Ошибка запуска сессии: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	appLogger := pkg.NewLogger(os.Stderr)

	cfg := config.LoadConfig()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := database.NewPostgresDB(ctx, cfg, appLogger)
	if err != nil {
		appLogger.Error("Ошибка при подключении к базе данных",
			"error", err,
		)

		return fmt.Errorf("ошибка подключения к базе данных: %w", err)
	}

	defer db.Close()

	tracker := dedup.NewTracker(nil)

	seenStore, err := dedup.NewRedisStore(cfg.RedisURL, cfg.RedisPassword, cfg.RedisDB, sessionSeenSetKey, cfg.RedisSeenTTL, appLogger)
	if err != nil {
		appLogger.Warn("Сессия без персистентной дедупликации",
			"reason", err.Error(),
		)
	} else {
		defer func() {
			if err := seenStore.Close(); err != nil {
				appLogger.Error("Ошибка при закрытии соединения с Redis", "error", err)
			}
		}()

		tracker = dedup.NewTracker(seenStore)

		if err := tracker.Restore(ctx); err != nil {
			appLogger.Error("Ошибка при восстановлении множества дедупликации",
				"error", err,
			)
		}
	}

	alarm := session.NewAlarmService(terminalBeeper{}, cfg.AlarmBeepInterval, appLogger)
	notifier := session.NewLogNotifier(appLogger)

	engine := session.NewEngine(tracker, alarm, notifier, func(event session.MatchEvent) {
		marker := ""
		if event.FullScreen {
			marker = " [FULLSCREEN]"
		}

		fmt.Printf(">>> MATCH%s %s\n", marker, event.Match.Key())
	}, appLogger)

	storedAlerts, err := sqlrepo.NewAlertRepository(db).FindEnabled(ctx)
	if err != nil {
		appLogger.Error("Ошибка при загрузке алертов",
			"error", err,
		)

		return fmt.Errorf("ошибка загрузки алертов: %w", err)
	}

	registered := engine.RegisterAlerts(storedAlerts)

	appLogger.Info("Алерты сессии зарегистрированы",
		"count", registered,
	)

	provider := &dbInventory{
		snapshots: sqlrepo.NewSnapshotRepository(db),
		hotels:    sqlrepo.NewHotelRepository(db),
		year:      cfg.CurrentYear,
	}

	// Существующие на момент запуска номера не должны поднять тревогу.
	snapshots, hotels, err := provider.CurrentInventory(ctx)
	if err != nil {
		appLogger.Error("Ошибка при первичной загрузке инвентаря",
			"error", err,
		)
	} else {
		engine.Seed(snapshots, hotels)
	}

	runner := session.NewRunner(engine, provider, cfg.SessionRecheckInterval, appLogger)
	runner.Start(ctx)

	defer runner.Stop()

	metricsServer := metrics.NewMetricsServer(cfg.SessionMetricsPort, appLogger)
	if err := metricsServer.Start(ctx); err != nil {
		appLogger.Error("Ошибка при запуске сервера метрик",
			"error", err,
		)
	}

	// Enter подтверждает тревогу, Ctrl+C завершает сессию.
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			if engine.AlarmActive() {
				engine.AcknowledgeAlarm()
				fmt.Println("Тревога подтверждена")
			}
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	appLogger.Info("Получен системный сигнал",
		"signal", sig.String(),
	)

	alarm.Stop()

	return nil
}
