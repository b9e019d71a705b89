package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/central-university-dev/go-RoomWatcher/internal/common/middleware"
	"github.com/central-university-dev/go-RoomWatcher/internal/config"
	"github.com/central-university-dev/go-RoomWatcher/internal/domain/models"
	"github.com/central-university-dev/go-RoomWatcher/internal/notifier/dedup"
	"github.com/central-university-dev/go-RoomWatcher/internal/notifier/dispatch"
	"github.com/central-university-dev/go-RoomWatcher/internal/notifier/gate"
	"github.com/central-university-dev/go-RoomWatcher/internal/notifier/handler"
	"github.com/central-university-dev/go-RoomWatcher/internal/notifier/repository/memory"
	"github.com/central-university-dev/go-RoomWatcher/internal/notifier/service"
)

type nopDispatcher struct{}

func (nopDispatcher) Dispatch(_ context.Context, _ dispatch.Delivery, channels []models.Channel) ([]models.ChannelResult, error) {
	results := make([]models.ChannelResult, 0, len(channels))
	for _, ch := range channels {
		results = append(results, models.ChannelResult{Channel: ch.Kind(), Status: models.StatusSent})
	}

	return results, nil
}

type nopPhone struct{}

func (nopPhone) SendSMS(_ context.Context, _, _ string) (string, error)   { return "SM1", nil }
func (nopPhone) StartCall(_ context.Context, _, _ string) (string, error) { return "CA1", nil }

func newTestServer(t *testing.T, apiKey string) (*httptest.Server, *memory.WatcherRepository) {
	t.Helper()

	watchers := memory.NewWatcherRepository()
	alerts := memory.NewAlertRepository()
	hotels := memory.NewHotelRepository()
	snapshots := memory.NewSnapshotRepository()
	log := memory.NewNotificationLogRepository()
	quotas := memory.NewPhonePermissionRepository()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	g := gate.NewGate(watchers, alerts, quotas, logger)
	svc := service.NewNotifierService(watchers, alerts, hotels, snapshots, log, dedup.NewTracker(nil), g, nopDispatcher{}, nopPhone{}, logger)

	cfg := &config.Config{
		EventAPIKey:     apiKey,
		DefaultCooldown: 20 * time.Minute,
		DailySMSLimit:   10,
		DailyCallLimit:  5,
	}
	rateLimiter := middleware.NewRateLimiterMiddleware(context.Background(), 1000, time.Minute, logger)

	h := handler.NewHandler(cfg, svc, watchers, quotas, log, logger)
	srv := httptest.NewServer(h.NewRouter(rateLimiter))
	t.Cleanup(srv.Close)

	return srv, watchers
}

func TestHandler_Health(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t, "")

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)

	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestHandler_EventRequiresAPIKey(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t, "secret")

	event := models.SnapshotEvent{
		Type:  "INSERT",
		Table: "room_snapshots",
		Snapshot: models.RoomSnapshot{
			ID:             "snap-1",
			HotelID:        "hotel-1",
			RoomType:       "King",
			AvailableCount: 1,
			Year:           2026,
		},
	}

	body, err := json.Marshal(event)
	require.NoError(t, err)

	resp, err := http.Post(srv.URL+"/events/room-snapshot", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/events/room-snapshot", bytes.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("X-Api-Key", "secret")

	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
}

func TestHandler_CreateWatcher_RequiresContact(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t, "")

	body := []byte(`{"year": 2026}`)

	resp, err := http.Post(srv.URL+"/watchers/", "application/json", bytes.NewReader(body))
	require.NoError(t, err)

	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHandler_CreateAndGetWatcher(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t, "")

	body := []byte(`{"year": 2026, "email": "attendee@example.com", "maxNightlyRate": 250}`)

	resp, err := http.Post(srv.URL+"/watchers/", "application/json", bytes.NewReader(body))
	require.NoError(t, err)

	defer resp.Body.Close()

	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created models.Watcher
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	require.NotEmpty(t, created.ID)
	assert.True(t, created.Active)
	assert.Equal(t, 20, created.CooldownMinutes, "кулдаун по умолчанию берётся из конфигурации")

	getResp, err := http.Get(srv.URL + "/watchers/" + created.ID)
	require.NoError(t, err)

	defer getResp.Body.Close()

	assert.Equal(t, http.StatusOK, getResp.StatusCode)
}

func TestHandler_DeactivateWatcher(t *testing.T) {
	t.Parallel()

	srv, watchers := newTestServer(t, "")

	watcher := models.NewWatcher("token", 2026)
	watcher.Email = "attendee@example.com"
	require.NoError(t, watchers.Save(context.Background(), watcher))

	req, err := http.NewRequest(http.MethodDelete, srv.URL+"/watchers/"+watcher.ID, nil)
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	stored, err := watchers.FindByID(context.Background(), watcher.ID)
	require.NoError(t, err)
	assert.False(t, stored.Active)
}

func TestHandler_ToggleProcessing(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t, "")

	resp, err := http.Post(srv.URL+"/processing", "application/json", bytes.NewReader([]byte(`{"enabled": false}`)))
	require.NoError(t, err)
	resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	statusResp, err := http.Get(srv.URL + "/status")
	require.NoError(t, err)

	defer statusResp.Body.Close()

	var status struct {
		Processing bool `json:"processing"`
	}

	require.NoError(t, json.NewDecoder(statusResp.Body).Decode(&status))
	assert.False(t, status.Processing)
}

func TestHandler_GrantPhonePermission_EnablesTestSMS(t *testing.T) {
	t.Parallel()

	srv, watchers := newTestServer(t, "")

	watcher := models.NewWatcher("token", 2026)
	watcher.PhoneNumber = "+13175550100"
	require.NoError(t, watchers.Save(context.Background(), watcher))

	// Без разрешения телефонные каналы закрыты.
	resp, err := http.Post(srv.URL+"/watchers/"+watcher.ID+"/test-sms", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusForbidden, resp.StatusCode)

	grantResp, err := http.Post(srv.URL+"/watchers/"+watcher.ID+"/phone-permission", "application/json", nil)
	require.NoError(t, err)

	defer grantResp.Body.Close()

	require.Equal(t, http.StatusCreated, grantResp.StatusCode)

	var permission models.PhonePermission
	require.NoError(t, json.NewDecoder(grantResp.Body).Decode(&permission))
	assert.Equal(t, 10, permission.DailySMSLimit, "лимиты берутся из конфигурации")
	assert.Equal(t, 5, permission.DailyCallLimit)

	smsResp, err := http.Post(srv.URL+"/watchers/"+watcher.ID+"/test-sms", "application/json", nil)
	require.NoError(t, err)
	smsResp.Body.Close()

	assert.Equal(t, http.StatusOK, smsResp.StatusCode)
}

func TestHandler_TestSMS_NoPhoneNumber(t *testing.T) {
	t.Parallel()

	srv, watchers := newTestServer(t, "")

	watcher := models.NewWatcher("token", 2026)
	watcher.Email = "attendee@example.com"
	require.NoError(t, watchers.Save(context.Background(), watcher))

	resp, err := http.Post(srv.URL+"/watchers/"+watcher.ID+"/test-sms", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
