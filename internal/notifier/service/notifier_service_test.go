package service_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	customerrors "github.com/central-university-dev/go-RoomWatcher/internal/domain/errors"
	"github.com/central-university-dev/go-RoomWatcher/internal/domain/models"
	"github.com/central-university-dev/go-RoomWatcher/internal/notifier/dedup"
	"github.com/central-university-dev/go-RoomWatcher/internal/notifier/dispatch"
	"github.com/central-university-dev/go-RoomWatcher/internal/notifier/gate"
	"github.com/central-university-dev/go-RoomWatcher/internal/notifier/repository/memory"
	"github.com/central-university-dev/go-RoomWatcher/internal/notifier/service"
)

type fakeDispatcher struct {
	deliveries []dispatch.Delivery
	channels   [][]models.Channel
}

func (f *fakeDispatcher) Dispatch(_ context.Context, delivery dispatch.Delivery, channels []models.Channel) ([]models.ChannelResult, error) {
	f.deliveries = append(f.deliveries, delivery)
	f.channels = append(f.channels, channels)

	results := make([]models.ChannelResult, 0, len(channels))
	for _, ch := range channels {
		results = append(results, models.ChannelResult{Channel: ch.Kind(), Status: models.StatusSent})
	}

	return results, nil
}

type fakePhone struct {
	smsCalls int
}

func (f *fakePhone) SendSMS(_ context.Context, _, _ string) (string, error) {
	f.smsCalls++
	return "SM1", nil
}

func (f *fakePhone) StartCall(_ context.Context, _, _ string) (string, error) {
	return "CA1", nil
}

type fixture struct {
	service    *service.NotifierService
	watchers   *memory.WatcherRepository
	alerts     *memory.AlertRepository
	hotels     *memory.HotelRepository
	quotas     *memory.PhonePermissionRepository
	dispatcher *fakeDispatcher
	phone      *fakePhone
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	watchers := memory.NewWatcherRepository()
	alerts := memory.NewAlertRepository()
	hotels := memory.NewHotelRepository()
	snapshots := memory.NewSnapshotRepository()
	log := memory.NewNotificationLogRepository()
	quotas := memory.NewPhonePermissionRepository()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	dispatcher := &fakeDispatcher{}
	phone := &fakePhone{}
	g := gate.NewGate(watchers, alerts, quotas, logger)
	tracker := dedup.NewTracker(nil)

	svc := service.NewNotifierService(watchers, alerts, hotels, snapshots, log, tracker, g, dispatcher, phone, logger)

	return &fixture{
		service:    svc,
		watchers:   watchers,
		alerts:     alerts,
		hotels:     hotels,
		quotas:     quotas,
		dispatcher: dispatcher,
		phone:      phone,
	}
}

func (f *fixture) addHotel(t *testing.T, name string, distance float64, skywalk bool) *models.Hotel {
	t.Helper()

	hotel := &models.Hotel{
		Name:            name,
		DistanceFromICC: &distance,
		HasSkywalk:      skywalk,
		Area:            "downtown",
		Year:            2026,
	}

	require.NoError(t, f.hotels.Save(context.Background(), hotel))

	return hotel
}

func (f *fixture) addWatcher(t *testing.T) *models.Watcher {
	t.Helper()

	watcher := models.NewWatcher("token", 2026)
	watcher.DiscordWebhookURL = "https://discord.com/api/webhooks/1/x"

	require.NoError(t, f.watchers.Save(context.Background(), watcher))

	return watcher
}

func snapshotFor(hotel *models.Hotel, id string) *models.RoomSnapshot {
	return &models.RoomSnapshot{
		ID:             id,
		HotelID:        hotel.ID,
		RoomType:       "2 Queen Beds",
		AvailableCount: 1,
		NightlyRate:    199,
		TotalPrice:     796,
		CheckIn:        time.Date(2026, 7, 30, 0, 0, 0, 0, time.UTC),
		CheckOut:       time.Date(2026, 8, 3, 0, 0, 0, 0, time.UTC),
		Year:           2026,
		ScrapedAt:      time.Now(),
	}
}

func TestNotifierService_DispatchesOncePerMatch(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	hotel := f.addHotel(t, "Marriott", 0.2, true)
	watcher := f.addWatcher(t)

	snapshot := snapshotFor(hotel, "snap-1")

	require.NoError(t, f.service.HandleSnapshot(context.Background(), snapshot))
	require.Len(t, f.dispatcher.deliveries, 1)
	assert.Equal(t, watcher.ID, f.dispatcher.deliveries[0].WatcherID)

	// Повторное событие того же снапшота дедуплицируется.
	require.NoError(t, f.service.HandleSnapshot(context.Background(), snapshot))
	assert.Len(t, f.dispatcher.deliveries, 1)
}

func TestNotifierService_CooldownSuppressesSecondSnapshot(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	hotel := f.addHotel(t, "Marriott", 0.2, true)
	f.addWatcher(t)

	require.NoError(t, f.service.HandleSnapshot(context.Background(), snapshotFor(hotel, "snap-1")))
	require.Len(t, f.dispatcher.deliveries, 1)

	// Другой снапшот — другой ключ дедупликации, но вотчер в кулдауне.
	require.NoError(t, f.service.HandleSnapshot(context.Background(), snapshotFor(hotel, "snap-2")))
	assert.Len(t, f.dispatcher.deliveries, 1)
}

func TestNotifierService_NonMatchingSnapshotIgnored(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	hotel := f.addHotel(t, "Marriott", 0.2, true)

	watcher := models.NewWatcher("token", 2026)
	watcher.DiscordWebhookURL = "https://discord.com/api/webhooks/1/x"
	maxRate := 100.0
	watcher.MaxNightlyRate = &maxRate

	require.NoError(t, f.watchers.Save(context.Background(), watcher))

	require.NoError(t, f.service.HandleSnapshot(context.Background(), snapshotFor(hotel, "snap-1")))
	assert.Empty(t, f.dispatcher.deliveries)
}

func TestNotifierService_ProcessingDisabled(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	hotel := f.addHotel(t, "Marriott", 0.2, true)
	f.addWatcher(t)

	f.service.SetProcessing(false)
	require.False(t, f.service.IsProcessing())

	require.NoError(t, f.service.HandleSnapshot(context.Background(), snapshotFor(hotel, "snap-1")))
	assert.Empty(t, f.dispatcher.deliveries)

	f.service.SetProcessing(true)

	require.NoError(t, f.service.HandleSnapshot(context.Background(), snapshotFor(hotel, "snap-1")))
	assert.Len(t, f.dispatcher.deliveries, 1)
}

func TestNotifierService_UnknownHotelStillMatches(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.addWatcher(t)

	snapshot := &models.RoomSnapshot{
		ID:             "snap-1",
		HotelID:        "ghost-hotel",
		RoomType:       "King",
		AvailableCount: 1,
		NightlyRate:    150,
		Year:           2026,
		ScrapedAt:      time.Now(),
	}

	require.NoError(t, f.service.HandleSnapshot(context.Background(), snapshot))
	assert.Len(t, f.dispatcher.deliveries, 1, "вотчер без фильтров по отелю должен совпасть и без записи об отеле")
}

func TestNotifierService_AlertDeliversViaLinkedDiscordWatcher(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	hotel := f.addHotel(t, "Marriott", 0.2, true)

	// Привязанный вотчер несёт только настройки Discord: как деактивированный
	// он сам не матчится.
	linked := models.NewWatcher("token", 2026)
	linked.DiscordWebhookURL = "https://discord.com/api/webhooks/9/y"
	linked.DiscordMention = "@here"

	require.NoError(t, f.watchers.Save(context.Background(), linked))
	require.NoError(t, f.watchers.Deactivate(context.Background(), linked.ID))

	alert := models.NewAlert("user-7")
	alert.HotelName = "Marriott"
	alert.DiscordWatcherID = linked.ID

	require.NoError(t, f.alerts.Save(context.Background(), alert))

	require.NoError(t, f.service.HandleSnapshot(context.Background(), snapshotFor(hotel, "snap-1")))

	require.Len(t, f.dispatcher.deliveries, 1)
	assert.Equal(t, "user-7", f.dispatcher.deliveries[0].UserID)

	require.Len(t, f.dispatcher.channels[0], 1)

	discord, ok := f.dispatcher.channels[0][0].(models.DiscordChannel)
	require.True(t, ok)
	assert.Equal(t, linked.DiscordWebhookURL, discord.WebhookURL)
	assert.Equal(t, "@here", discord.Mention)
}

func TestNotifierService_AlertSMSCarriesCustomBody(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	hotel := f.addHotel(t, "Marriott", 0.2, true)

	alert := models.NewAlert("user-7")
	alert.HotelName = "Marriott"
	alert.PhoneNumber = "+13175550100"
	alert.SMSBody = "Rooms at the Marriott!"

	require.NoError(t, f.alerts.Save(context.Background(), alert))

	require.NoError(t, f.service.HandleSnapshot(context.Background(), snapshotFor(hotel, "snap-1")))

	require.Len(t, f.dispatcher.channels, 1)
	require.Len(t, f.dispatcher.channels[0], 1)

	sms, ok := f.dispatcher.channels[0][0].(models.SMSChannel)
	require.True(t, ok)
	assert.Equal(t, "+13175550100", sms.PhoneNumber)
	assert.Equal(t, "Rooms at the Marriott!", sms.CustomBody)
	assert.Equal(t, "user-7", sms.UserID)
}

func TestNotifierService_AlertCooldownSuppressesSecondSnapshot(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	hotel := f.addHotel(t, "Marriott", 0.2, true)

	alert := models.NewAlert("user-7")
	alert.HotelName = "Marriott"
	alert.PhoneNumber = "+13175550100"

	require.NoError(t, f.alerts.Save(context.Background(), alert))

	require.NoError(t, f.service.HandleSnapshot(context.Background(), snapshotFor(hotel, "snap-1")))
	require.Len(t, f.dispatcher.deliveries, 1)

	// Другой снапшот — другой ключ дедупликации, но алерт в кулдауне.
	require.NoError(t, f.service.HandleSnapshot(context.Background(), snapshotFor(hotel, "snap-2")))
	assert.Len(t, f.dispatcher.deliveries, 1)
}

func TestNotifierService_SessionOnlyAlertNotDispatched(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	hotel := f.addHotel(t, "Marriott", 0.2, true)

	// Только звук и полноэкранный режим — серверу нечего доставлять.
	alert := models.NewAlert("user-7")
	alert.HotelName = "Marriott"
	alert.FullScreenEnabled = true

	require.NoError(t, f.alerts.Save(context.Background(), alert))

	require.NoError(t, f.service.HandleSnapshot(context.Background(), snapshotFor(hotel, "snap-1")))
	assert.Empty(t, f.dispatcher.deliveries)
}

func TestNotifierService_SendTestSMS_QuotaExhausted(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	err := f.quotas.Upsert(context.Background(), &models.PhonePermission{
		UserID:        "user-1",
		Enabled:       true,
		DailySMSLimit: 1,
	})
	require.NoError(t, err)

	_, err = f.service.SendTestSMS(context.Background(), "user-1", "+13175550100")
	require.NoError(t, err)

	_, err = f.service.SendTestSMS(context.Background(), "user-1", "+13175550100")

	var quotaErr *customerrors.ErrQuotaExceeded

	require.ErrorAs(t, err, &quotaErr)
	assert.Equal(t, 1, f.phone.smsCalls, "после исчерпания квоты провайдер не вызывается")
}
