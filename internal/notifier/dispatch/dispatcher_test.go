package dispatch_test

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
	"github.com/central-university-dev/go-RoomWatcher/internal/notifier/dispatch"
	"github.com/central-university-dev/go-RoomWatcher/internal/notifier/repository/memory"
)

type fakeDiscord struct {
	calls int
	err   error
}

func (f *fakeDiscord) SendRoomAvailable(_ context.Context, _, _ string, _ *models.Match) error {
	f.calls++
	return f.err
}

type fakePhone struct {
	smsCalls  int
	callCalls int
	err       error
}

func (f *fakePhone) SendSMS(_ context.Context, _, _ string) (string, error) {
	f.smsCalls++
	return "SM123", f.err
}

func (f *fakePhone) StartCall(_ context.Context, _, _ string) (string, error) {
	f.callCalls++
	return "CA456", f.err
}

type fakePush struct {
	calls int
}

func (f *fakePush) SendPush(_ context.Context, _ string, _ *models.Match) error {
	f.calls++
	return nil
}

type fakeQuotas struct {
	denied bool
}

func (f *fakeQuotas) ReservePhoneSlot(_ context.Context, userID string, channel models.ChannelKind) error {
	if f.denied {
		return &customerrors.ErrQuotaExceeded{UserID: userID, Channel: string(channel)}
	}

	return nil
}

func testMatch() *models.Match {
	distance := 0.2

	return &models.Match{
		CriteriaID: "watcher-1",
		SnapshotID: "snapshot-1",
		Snapshot: &models.RoomSnapshot{
			ID:          "snapshot-1",
			HotelID:     "hotel-1",
			RoomType:    "2 Queen Beds",
			NightlyRate: 189,
			TotalPrice:  756,
			CheckIn:     time.Date(2026, 7, 30, 0, 0, 0, 0, time.UTC),
			CheckOut:    time.Date(2026, 8, 3, 0, 0, 0, 0, time.UTC),
			Year:        2026,
		},
		Hotel: &models.Hotel{
			ID:              "hotel-1",
			Name:            "Indianapolis Marriott Downtown",
			DistanceFromICC: &distance,
			HasSkywalk:      true,
		},
		FoundAt: time.Now(),
	}
}

func newTestDispatcher(discord *fakeDiscord, phone *fakePhone, push *fakePush, quotas *fakeQuotas) (*dispatch.Dispatcher, *memory.NotificationLogRepository) {
	log := memory.NewNotificationLogRepository()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	return dispatch.NewDispatcher(discord, phone, push, quotas, log, logger), log
}

func TestDispatcher_ChannelFailureIsIsolated(t *testing.T) {
	t.Parallel()

	discord := &fakeDiscord{err: errors.New("webhook down")}
	phone := &fakePhone{}
	d, log := newTestDispatcher(discord, phone, &fakePush{}, &fakeQuotas{})

	delivery := dispatch.Delivery{Match: testMatch(), WatcherID: "watcher-1", UserID: "user-1"}
	channels := []models.Channel{
		models.DiscordChannel{WebhookURL: "https://discord.com/api/webhooks/1/x"},
		models.SMSChannel{UserID: "user-1", PhoneNumber: "+13175550100"},
	}

	results, err := d.Dispatch(context.Background(), delivery, channels)

	require.Error(t, err, "агрегат должен содержать ошибку Discord")
	require.Len(t, results, 2)

	assert.Equal(t, models.StatusFailed, results[0].Status)
	assert.Equal(t, models.StatusSent, results[1].Status)
	assert.Equal(t, 1, phone.smsCalls, "отказ Discord не должен мешать SMS")

	records, err := log.FindByUser(context.Background(), "user-1", 10)
	require.NoError(t, err)
	assert.Len(t, records, 2, "обе попытки должны попасть в журнал")
}

func TestDispatcher_QuotaDenied_ProviderNotCalled(t *testing.T) {
	t.Parallel()

	phone := &fakePhone{}
	d, log := newTestDispatcher(&fakeDiscord{}, phone, &fakePush{}, &fakeQuotas{denied: true})

	delivery := dispatch.Delivery{Match: testMatch(), UserID: "user-1"}
	channels := []models.Channel{
		models.SMSChannel{UserID: "user-1", PhoneNumber: "+13175550100"},
	}

	results, err := d.Dispatch(context.Background(), delivery, channels)

	require.Error(t, err)
	require.Len(t, results, 1)

	assert.Equal(t, models.StatusFailed, results[0].Status)
	assert.Equal(t, 0, phone.smsCalls, "при исчерпанной квоте провайдер не вызывается")

	var quotaErr *customerrors.ErrQuotaExceeded

	assert.True(t, errors.As(results[0].Err, &quotaErr))

	records, err := log.FindByUser(context.Background(), "user-1", 10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, models.StatusFailed, records[0].Status)
}

func TestDispatcher_CallIsInitiatedNotSent(t *testing.T) {
	t.Parallel()

	phone := &fakePhone{}
	d, _ := newTestDispatcher(&fakeDiscord{}, phone, &fakePush{}, &fakeQuotas{})

	delivery := dispatch.Delivery{Match: testMatch(), UserID: "user-1"}
	channels := []models.Channel{
		models.CallChannel{UserID: "user-1", PhoneNumber: "+13175550100"},
	}

	results, err := d.Dispatch(context.Background(), delivery, channels)

	require.NoError(t, err)
	require.Len(t, results, 1)

	assert.Equal(t, models.StatusInitiated, results[0].Status)
	assert.Equal(t, "CA456", results[0].ProviderMessageID)
}

func TestDispatcher_MissingWebhookURL(t *testing.T) {
	t.Parallel()

	discord := &fakeDiscord{}
	d, _ := newTestDispatcher(discord, &fakePhone{}, &fakePush{}, &fakeQuotas{})

	delivery := dispatch.Delivery{Match: testMatch(), WatcherID: "watcher-1"}
	channels := []models.Channel{models.DiscordChannel{}}

	results, err := d.Dispatch(context.Background(), delivery, channels)

	require.Error(t, err)
	assert.Equal(t, models.StatusFailed, results[0].Status)
	assert.Equal(t, 0, discord.calls, "без URL вебхук не вызывается")
}

func TestDispatcher_PushStubSucceeds(t *testing.T) {
	t.Parallel()

	push := &fakePush{}
	d, log := newTestDispatcher(&fakeDiscord{}, &fakePhone{}, push, &fakeQuotas{})

	delivery := dispatch.Delivery{Match: testMatch(), WatcherID: "watcher-1"}
	channels := []models.Channel{models.PushChannel{Subscription: "{\"endpoint\":\"https://push.example\"}"}}

	results, err := d.Dispatch(context.Background(), delivery, channels)

	require.NoError(t, err)
	assert.Equal(t, models.StatusSent, results[0].Status)
	assert.Equal(t, 1, push.calls)

	records, err := log.FindByWatcher(context.Background(), "watcher-1", 10)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestDispatcher_SessionChannelRejected(t *testing.T) {
	t.Parallel()

	d, _ := newTestDispatcher(&fakeDiscord{}, &fakePhone{}, &fakePush{}, &fakeQuotas{})

	delivery := dispatch.Delivery{Match: testMatch(), UserID: "user-1"}
	channels := []models.Channel{models.SoundChannel{}}

	results, err := d.Dispatch(context.Background(), delivery, channels)

	require.Error(t, err)
	assert.Equal(t, models.StatusFailed, results[0].Status)
}
