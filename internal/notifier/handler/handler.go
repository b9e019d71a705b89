package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/central-university-dev/go-RoomWatcher/internal/common/middleware"
	"github.com/central-university-dev/go-RoomWatcher/internal/config"
	customerrors "github.com/central-university-dev/go-RoomWatcher/internal/domain/errors"
	"github.com/central-university-dev/go-RoomWatcher/internal/domain/models"
	"github.com/central-university-dev/go-RoomWatcher/internal/notifier/repository"
	"github.com/central-university-dev/go-RoomWatcher/internal/notifier/service"
)

type Handler struct {
	cfg         *config.Config
	service     *service.NotifierService
	watchers    repository.WatcherRepository
	permissions repository.PhonePermissionRepository
	log         repository.NotificationLogRepository
	logger      *slog.Logger
}

func NewHandler(
	cfg *config.Config,
	svc *service.NotifierService,
	watchers repository.WatcherRepository,
	permissions repository.PhonePermissionRepository,
	log repository.NotificationLogRepository,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		cfg:         cfg,
		service:     svc,
		watchers:    watchers,
		permissions: permissions,
		log:         log,
		logger:      logger,
	}
}

// NewRouter собирает маршруты сервиса уведомлений. Приём событий закрыт
// API-ключом, остальные ручки — только rate limiter.
func (h *Handler) NewRouter(rateLimiter *middleware.RateLimiterMiddleware) chi.Router {
	r := chi.NewRouter()

	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(rateLimiter.Middleware)
	r.Use(middleware.NewMetricsMiddleware("notifier").Middleware)

	r.Get("/health", h.health)
	r.Get("/status", h.status)
	r.Post("/processing", h.toggleProcessing)

	r.Route("/events", func(r chi.Router) {
		r.Use(middleware.NewAPIKeyMiddleware(h.cfg.EventAPIKey, h.logger).Middleware)
		r.Post("/room-snapshot", h.roomSnapshotEvent)
	})

	r.Route("/watchers", func(r chi.Router) {
		r.Post("/", h.createWatcher)
		r.Get("/{id}", h.getWatcher)
		r.Delete("/{id}", h.deactivateWatcher)
		r.Get("/{id}/notifications", h.watcherNotifications)
		r.Post("/{id}/phone-permission", h.grantPhonePermission)
		r.Post("/{id}/test-sms", h.testSMS)
		r.Post("/{id}/test-call", h.testCall)
	})

	return r
}

func (h *Handler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) status(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"processing": h.service.IsProcessing(),
	})
}

type toggleRequest struct {
	Enabled bool `json:"enabled"`
}

func (h *Handler) toggleProcessing(w http.ResponseWriter, r *http.Request) {
	var req toggleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "некорректное тело запроса")
		return
	}

	h.service.SetProcessing(req.Enabled)
	writeJSON(w, http.StatusOK, map[string]any{"processing": req.Enabled})
}

// roomSnapshotEvent принимает payload триггера скрапера.
func (h *Handler) roomSnapshotEvent(w http.ResponseWriter, r *http.Request) {
	var event models.SnapshotEvent
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		writeError(w, http.StatusBadRequest, "некорректное тело события")
		return
	}

	if event.Snapshot.HotelID == "" || event.Snapshot.RoomType == "" {
		writeError(w, http.StatusBadRequest, "в снапшоте отсутствуют обязательные поля")
		return
	}

	if err := h.service.HandleSnapshot(r.Context(), &event.Snapshot); err != nil {
		h.logger.Error("Ошибка при обработке события снапшота",
			"error", err,
		)

		writeError(w, http.StatusInternalServerError, "ошибка обработки события")

		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}

func (h *Handler) createWatcher(w http.ResponseWriter, r *http.Request) {
	var watcher models.Watcher
	if err := json.NewDecoder(r.Body).Decode(&watcher); err != nil {
		writeError(w, http.StatusBadRequest, "некорректное тело запроса")
		return
	}

	created := models.NewWatcher(watcher.TokenHash, watcher.Year)
	created.Email = watcher.Email
	created.DiscordWebhookURL = watcher.DiscordWebhookURL
	created.DiscordMention = watcher.DiscordMention
	created.PhoneNumber = watcher.PhoneNumber
	created.PushSubscription = watcher.PushSubscription
	created.HotelID = watcher.HotelID
	created.MaxNightlyRate = watcher.MaxNightlyRate
	created.MaxDistance = watcher.MaxDistance
	created.RequireSkywalk = watcher.RequireSkywalk
	created.RoomTypePattern = watcher.RoomTypePattern

	switch {
	case watcher.CooldownMinutes > 0:
		created.CooldownMinutes = watcher.CooldownMinutes
	case h.cfg.DefaultCooldown > 0:
		created.CooldownMinutes = int(h.cfg.DefaultCooldown / time.Minute)
	}

	if err := h.watchers.Save(r.Context(), created); err != nil {
		var noContact *customerrors.ErrNoContact
		if errors.As(err, &noContact) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		h.logger.Error("Ошибка при создании вотчера",
			"error", err,
		)

		writeError(w, http.StatusInternalServerError, "ошибка при создании вотчера")

		return
	}

	writeJSON(w, http.StatusCreated, created)
}

func (h *Handler) getWatcher(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	watcher, err := h.watchers.FindByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, &customerrors.ErrWatcherNotFound{}) {
			writeError(w, http.StatusNotFound, "вотчер не найден")
			return
		}

		writeError(w, http.StatusInternalServerError, "ошибка при поиске вотчера")

		return
	}

	writeJSON(w, http.StatusOK, watcher)
}

func (h *Handler) deactivateWatcher(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.watchers.Deactivate(r.Context(), id); err != nil {
		if errors.Is(err, &customerrors.ErrWatcherNotFound{}) {
			writeError(w, http.StatusNotFound, "вотчер не найден")
			return
		}

		writeError(w, http.StatusInternalServerError, "ошибка при деактивации вотчера")

		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) watcherNotifications(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	records, err := h.log.FindByWatcher(r.Context(), id, 50)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "ошибка при чтении журнала")
		return
	}

	writeJSON(w, http.StatusOK, records)
}

// grantPhonePermission выдаёт вотчеру разрешение на телефонные каналы
// с дневными лимитами из конфигурации.
func (h *Handler) grantPhonePermission(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	watcher, err := h.watchers.FindByID(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusNotFound, "вотчер не найден")
		return
	}

	if watcher.PhoneNumber == "" {
		writeError(w, http.StatusBadRequest, "у вотчера не задан номер телефона")
		return
	}

	permission := &models.PhonePermission{
		UserID:         watcher.ID,
		Enabled:        true,
		DailySMSLimit:  h.cfg.DailySMSLimit,
		DailyCallLimit: h.cfg.DailyCallLimit,
	}

	if err := h.permissions.Upsert(r.Context(), permission); err != nil {
		h.logger.Error("Ошибка при выдаче телефонного разрешения",
			"watcherID", watcher.ID,
			"error", err,
		)

		writeError(w, http.StatusInternalServerError, "ошибка при выдаче разрешения")

		return
	}

	writeJSON(w, http.StatusCreated, permission)
}

func (h *Handler) testSMS(w http.ResponseWriter, r *http.Request) {
	h.testPhone(w, r, h.service.SendTestSMS)
}

func (h *Handler) testCall(w http.ResponseWriter, r *http.Request) {
	h.testPhone(w, r, h.service.SendTestCall)
}

func (h *Handler) testPhone(w http.ResponseWriter, r *http.Request, send func(ctx context.Context, userID, phone string) (string, error)) {
	id := chi.URLParam(r, "id")

	watcher, err := h.watchers.FindByID(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusNotFound, "вотчер не найден")
		return
	}

	if watcher.PhoneNumber == "" {
		writeError(w, http.StatusBadRequest, "у вотчера не задан номер телефона")
		return
	}

	providerID, err := send(r.Context(), watcher.ID, watcher.PhoneNumber)
	if err != nil {
		var permErr *customerrors.ErrPhonePermissionDenied
		if errors.As(err, &permErr) {
			writeError(w, http.StatusForbidden, err.Error())
			return
		}

		var quotaErr *customerrors.ErrQuotaExceeded
		if errors.As(err, &quotaErr) {
			writeError(w, http.StatusTooManyRequests, err.Error())
			return
		}

		writeError(w, http.StatusBadGateway, "ошибка отправки через провайдера")

		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"providerMessageId": providerID})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
