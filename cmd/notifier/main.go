package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"log/slog"

	"github.com/central-university-dev/go-RoomWatcher/internal/common/metrics"
	"github.com/central-university-dev/go-RoomWatcher/internal/common/middleware"
	"github.com/central-university-dev/go-RoomWatcher/internal/config"
	"github.com/central-university-dev/go-RoomWatcher/internal/database"
	"github.com/central-university-dev/go-RoomWatcher/internal/feed"
	"github.com/central-university-dev/go-RoomWatcher/internal/notifier/dedup"
	"github.com/central-university-dev/go-RoomWatcher/internal/notifier/dispatch"
	"github.com/central-university-dev/go-RoomWatcher/internal/notifier/gate"
	"github.com/central-university-dev/go-RoomWatcher/internal/notifier/handler"
	"github.com/central-university-dev/go-RoomWatcher/internal/notifier/repository"
	"github.com/central-university-dev/go-RoomWatcher/internal/notifier/service"
	"github.com/central-university-dev/go-RoomWatcher/pkg"
	"github.com/central-university-dev/go-RoomWatcher/pkg/txs"
)

const seenSetKey = "room-watcher:seen"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Ошибка запуска сервиса: %v\n", err)
		os.Exit(1)
	}
}

//nolint:funlen // Длина функции обусловлена необходимостью последовательной инициализации всех компонентов.
func run() error {
	appLogger := pkg.NewLogger(os.Stdout)

	cfg := config.LoadConfig()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := database.RunMigrations(cfg, appLogger); err != nil {
		appLogger.Error("Ошибка при применении миграций",
			"error", err,
		)

		return fmt.Errorf("ошибка применения миграций: %w", err)
	}

	db, err := database.NewPostgresDB(ctx, cfg, appLogger)
	if err != nil {
		appLogger.Error("Ошибка при подключении к базе данных",
			"error", err,
		)

		return fmt.Errorf("ошибка подключения к базе данных: %w", err)
	}

	defer db.Close()

	txManager := txs.NewTxManager(db.Pool, appLogger)

	repoFactory := repository.NewFactory(db, txManager, cfg, appLogger)

	watcherRepo, err := repoFactory.CreateWatcherRepository()
	if err != nil {
		appLogger.Error("Ошибка при создании репозитория вотчеров",
			"error", err,
		)

		return err
	}

	alertRepo, err := repoFactory.CreateAlertRepository()
	if err != nil {
		appLogger.Error("Ошибка при создании репозитория алертов",
			"error", err,
		)

		return err
	}

	permissionRepo, err := repoFactory.CreatePhonePermissionRepository()
	if err != nil {
		appLogger.Error("Ошибка при создании репозитория телефонных разрешений",
			"error", err,
		)

		return err
	}

	hotelRepo := repoFactory.CreateHotelRepository()
	snapshotRepo := repoFactory.CreateSnapshotRepository()
	logRepo := repoFactory.CreateNotificationLogRepository()

	tracker := dedup.NewTracker(nil)

	seenStore, err := dedup.NewRedisStore(cfg.RedisURL, cfg.RedisPassword, cfg.RedisDB, seenSetKey, cfg.RedisSeenTTL, appLogger)
	if err != nil {
		appLogger.Error("Ошибка при подключении к Redis",
			"error", err,
		)

		appLogger.Warn("Продолжаем без персистентной дедупликации")
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

	notificationGate := gate.NewGate(watcherRepo, alertRepo, permissionRepo, appLogger)

	discordClient := dispatch.NewDiscordClient(cfg, appLogger)
	pushClient := dispatch.NewPushClient(appLogger)

	phoneClient, err := dispatch.NewPhoneClient(cfg, appLogger)
	if err != nil {
		appLogger.Warn("Телефонные каналы отключены",
			"reason", err.Error(),
		)

		phoneClient = dispatch.NewNoopPhoneClient(appLogger)
	}

	dispatcher := dispatch.NewDispatcher(discordClient, phoneClient, pushClient, notificationGate, logRepo, appLogger)

	notifierService := service.NewNotifierService(
		watcherRepo,
		alertRepo,
		hotelRepo,
		snapshotRepo,
		logRepo,
		tracker,
		notificationGate,
		dispatcher,
		phoneClient,
		appLogger,
	)

	snapshotSource, err := feed.NewSource(cfg, snapshotRepo, notifierService, appLogger)
	if err != nil {
		appLogger.Error("Ошибка при создании источника ленты",
			"error", err,
		)

		return err
	}

	snapshotSource.Start(ctx)

	metricsServer := metrics.NewMetricsServer(cfg.NotifierMetricsPort, appLogger)
	if err := metricsServer.Start(ctx); err != nil {
		appLogger.Error("Ошибка при запуске сервера метрик",
			"error", err,
		)
	}

	rateLimiter := middleware.NewRateLimiterMiddleware(
		ctx,
		cfg.RateLimitRequests,
		cfg.RateLimitWindow,
		appLogger,
	)

	h := handler.NewHandler(cfg, notifierService, watcherRepo, permissionRepo, logRepo, appLogger)

	httpServer := &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.NotifierServerPort),
		Handler:           h.NewRouter(rateLimiter),
		ReadHeaderTimeout: 10 * time.Second,
	}

	stopCh := make(chan struct{})

	startHTTPServer(httpServer, cfg.NotifierServerPort, stopCh, appLogger)

	gracefulShutdown(cancel, httpServer, snapshotSource, stopCh, appLogger)

	return nil
}

func startHTTPServer(server *http.Server, port int, stopCh chan<- struct{}, appLogger *slog.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		appLogger.Info("Получен системный сигнал",
			"signal", sig.String(),
		)
		close(stopCh)
	}()

	go func() {
		appLogger.Info("Запуск HTTP сервера уведомлений",
			"port", port,
		)

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Error("Ошибка при запуске HTTP сервера",
				"error", err,
			)
			close(stopCh)
		}
	}()
}

func gracefulShutdown(
	cancel context.CancelFunc,
	server *http.Server,
	snapshotSource feed.Source,
	stopCh <-chan struct{},
	appLogger *slog.Logger,
) {
	<-stopCh
	appLogger.Info("Получен сигнал завершения")

	snapshotSource.Stop()
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("Ошибка при остановке HTTP сервера",
			"error", err,
		)
	}

	appLogger.Info("Сервер успешно остановлен")
}
