package gate_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	customerrors "github.com/central-university-dev/go-RoomWatcher/internal/domain/errors"
	"github.com/central-university-dev/go-RoomWatcher/internal/domain/models"
	"github.com/central-university-dev/go-RoomWatcher/internal/notifier/gate"
	"github.com/central-university-dev/go-RoomWatcher/internal/notifier/repository/memory"
)

func newTestGate(t *testing.T) (*gate.Gate, *memory.WatcherRepository, *memory.AlertRepository, *memory.PhonePermissionRepository) {
	t.Helper()

	watchers := memory.NewWatcherRepository()
	alerts := memory.NewAlertRepository()
	quotas := memory.NewPhonePermissionRepository()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	return gate.NewGate(watchers, alerts, quotas, logger), watchers, alerts, quotas
}

func newActiveWatcher(t *testing.T, repo *memory.WatcherRepository) *models.Watcher {
	t.Helper()

	watcher := models.NewWatcher("token-hash", 2026)
	watcher.Email = "attendee@example.com"

	require.NoError(t, repo.Save(context.Background(), watcher))

	return watcher
}

func TestGate_AllowWatcher_FirstNotification(t *testing.T) {
	t.Parallel()

	g, watchers, _, _ := newTestGate(t)
	watcher := newActiveWatcher(t, watchers)

	allowed, err := g.AllowWatcher(context.Background(), watcher.ID)

	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestGate_AllowWatcher_InsideCooldown(t *testing.T) {
	t.Parallel()

	g, watchers, _, _ := newTestGate(t)
	watcher := newActiveWatcher(t, watchers)

	lastNotified := time.Now().Add(-5 * time.Minute)
	watcher.LastNotifiedAt = &lastNotified
	watcher.NotificationsSentToday = 1

	allowed, err := g.AllowWatcher(context.Background(), watcher.ID)

	require.NoError(t, err)
	assert.False(t, allowed, "5 минут с последней отправки — кулдаун ещё не истёк")
}

func TestGate_AllowWatcher_CooldownExpired(t *testing.T) {
	t.Parallel()

	g, watchers, _, _ := newTestGate(t)
	watcher := newActiveWatcher(t, watchers)

	lastNotified := time.Now().Add(-16 * time.Minute)
	watcher.LastNotifiedAt = &lastNotified
	watcher.NotificationsSentToday = 1

	allowed, err := g.AllowWatcher(context.Background(), watcher.ID)

	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestGate_AllowWatcher_DailyLimitReached(t *testing.T) {
	t.Parallel()

	g, watchers, _, _ := newTestGate(t)
	watcher := newActiveWatcher(t, watchers)

	lastNotified := time.Now().Add(-time.Hour)
	watcher.LastNotifiedAt = &lastNotified
	watcher.NotificationsSentToday = watcher.DailyLimit

	allowed, err := g.AllowWatcher(context.Background(), watcher.ID)

	require.NoError(t, err)
	assert.False(t, allowed)
}

func TestGate_AllowWatcher_Concurrent_OnlyOneClaims(t *testing.T) {
	t.Parallel()

	g, watchers, _, _ := newTestGate(t)
	watcher := newActiveWatcher(t, watchers)

	const goroutines = 8

	results := make(chan bool, goroutines)

	for i := 0; i < goroutines; i++ {
		go func() {
			allowed, err := g.AllowWatcher(context.Background(), watcher.ID)
			results <- allowed && err == nil
		}()
	}

	claimed := 0

	for i := 0; i < goroutines; i++ {
		if <-results {
			claimed++
		}
	}

	assert.Equal(t, 1, claimed, "из конкурентных матчей отправить должен ровно один")
}

func TestGate_AllowAlert_RespectsCooldown(t *testing.T) {
	t.Parallel()

	g, _, alerts, _ := newTestGate(t)

	alert := models.NewAlert("user-1")
	alert.HotelName = "Marriott"
	alert.Enabled = true

	require.NoError(t, alerts.Save(context.Background(), alert))

	allowed, err := g.AllowAlert(context.Background(), alert.ID)
	require.NoError(t, err)
	assert.True(t, allowed)

	allowed, err = g.AllowAlert(context.Background(), alert.ID)
	require.NoError(t, err)
	assert.False(t, allowed, "повторная заявка сразу после отправки должна быть отклонена")
}

func TestGate_ReservePhoneSlot_UnderLimit(t *testing.T) {
	t.Parallel()

	g, _, _, quotas := newTestGate(t)

	err := quotas.Upsert(context.Background(), &models.PhonePermission{
		UserID:         "user-1",
		Enabled:        true,
		DailySMSLimit:  10,
		DailyCallLimit: 5,
	})
	require.NoError(t, err)

	require.NoError(t, g.ReservePhoneSlot(context.Background(), "user-1", models.ChannelSMS))

	permission, err := quotas.Get(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, 1, permission.SMSSentToday)
}

func TestGate_ReservePhoneSlot_QuotaExhausted(t *testing.T) {
	t.Parallel()

	g, _, _, quotas := newTestGate(t)

	err := quotas.Upsert(context.Background(), &models.PhonePermission{
		UserID:         "user-1",
		Enabled:        true,
		DailySMSLimit:  2,
		DailyCallLimit: 5,
	})
	require.NoError(t, err)

	require.NoError(t, g.ReservePhoneSlot(context.Background(), "user-1", models.ChannelSMS))
	require.NoError(t, g.ReservePhoneSlot(context.Background(), "user-1", models.ChannelSMS))

	err = g.ReservePhoneSlot(context.Background(), "user-1", models.ChannelSMS)

	var quotaErr *customerrors.ErrQuotaExceeded

	require.Error(t, err)
	assert.True(t, errors.As(err, &quotaErr))

	permission, err := quotas.Get(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, 2, permission.SMSSentToday, "отказ не должен инкрементировать счётчик")
}

func TestGate_ReservePhoneSlot_NoPermission(t *testing.T) {
	t.Parallel()

	g, _, _, _ := newTestGate(t)

	err := g.ReservePhoneSlot(context.Background(), "stranger", models.ChannelCall)

	var permErr *customerrors.ErrPhonePermissionDenied

	require.Error(t, err)
	assert.True(t, errors.As(err, &permErr), "без разрешения отказ должен отличаться от исчерпанной квоты")
	assert.False(t, errors.Is(err, &customerrors.ErrQuotaExceeded{}))
}

func TestGate_ReservePhoneSlot_DisabledPermission(t *testing.T) {
	t.Parallel()

	g, _, _, quotas := newTestGate(t)

	err := quotas.Upsert(context.Background(), &models.PhonePermission{
		UserID:         "user-1",
		Enabled:        false,
		DailySMSLimit:  10,
		DailyCallLimit: 5,
	})
	require.NoError(t, err)

	err = g.ReservePhoneSlot(context.Background(), "user-1", models.ChannelSMS)

	var permErr *customerrors.ErrPhonePermissionDenied

	require.Error(t, err)
	assert.True(t, errors.As(err, &permErr), "отозванное разрешение — не квота")
}

func TestGate_ReservePhoneSlot_CallsAndSMSIndependent(t *testing.T) {
	t.Parallel()

	g, _, _, quotas := newTestGate(t)

	err := quotas.Upsert(context.Background(), &models.PhonePermission{
		UserID:         "user-1",
		Enabled:        true,
		DailySMSLimit:  1,
		DailyCallLimit: 1,
	})
	require.NoError(t, err)

	require.NoError(t, g.ReservePhoneSlot(context.Background(), "user-1", models.ChannelSMS))
	require.NoError(t, g.ReservePhoneSlot(context.Background(), "user-1", models.ChannelCall),
		"квота звонков не должна зависеть от квоты SMS")
}
