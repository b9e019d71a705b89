package feed

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/central-university-dev/go-RoomWatcher/internal/config"
	"github.com/central-university-dev/go-RoomWatcher/internal/domain/models"
)

type fakeSnapshotRepo struct {
	snapshots []*models.RoomSnapshot
	err       error
	calls     int
	lastAfter time.Time
}

func (f *fakeSnapshotRepo) Save(_ context.Context, _ *models.RoomSnapshot) error { return nil }

func (f *fakeSnapshotRepo) FindByID(_ context.Context, _ string) (*models.RoomSnapshot, error) {
	return nil, errors.New("не реализовано")
}

func (f *fakeSnapshotRepo) FindCreatedAfter(_ context.Context, _ int, after time.Time) ([]*models.RoomSnapshot, error) {
	f.calls++
	f.lastAfter = after

	if f.err != nil {
		return nil, f.err
	}

	return f.snapshots, nil
}

type collectingHandler struct {
	seen []string
}

func (h *collectingHandler) HandleSnapshot(_ context.Context, snapshot *models.RoomSnapshot) error {
	h.seen = append(h.seen, snapshot.ID)
	return nil
}

func newPollingSourceForTest(repo *fakeSnapshotRepo, handler SnapshotHandler) *PollingSource {
	cfg := &config.Config{
		PollInterval:   time.Minute,
		PollMaxBackoff: 10 * time.Minute,
		CurrentYear:    2026,
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	return NewPollingSource(cfg, repo, handler, logger)
}

func TestPollingSource_DeliversAndAdvancesWatermark(t *testing.T) {
	t.Parallel()

	scrapedAt := time.Now().Add(time.Minute)
	repo := &fakeSnapshotRepo{
		snapshots: []*models.RoomSnapshot{
			{ID: "snap-1", HotelID: "hotel-1", RoomType: "King", Year: 2026, ScrapedAt: scrapedAt},
		},
	}
	handler := &collectingHandler{}

	s := newPollingSourceForTest(repo, handler)
	s.poll(context.Background())

	assert.Equal(t, []string{"snap-1"}, handler.seen)
	assert.Equal(t, scrapedAt, s.watermark, "вотермарка должна сдвинуться на время последнего снапшота")
}

func TestPollingSource_BackoffGrowsAndCaps(t *testing.T) {
	t.Parallel()

	repo := &fakeSnapshotRepo{err: errors.New("база недоступна")}
	s := newPollingSourceForTest(repo, &collectingHandler{})

	s.poll(context.Background())
	require.Equal(t, time.Minute, s.backoff)

	// Пока не истёк backoff, повторный тик не опрашивает базу.
	s.poll(context.Background())
	assert.Equal(t, 1, repo.calls)

	s.nextAttempt = time.Time{}
	s.poll(context.Background())
	assert.Equal(t, 2*time.Minute, s.backoff)

	for i := 0; i < 10; i++ {
		s.nextAttempt = time.Time{}
		s.poll(context.Background())
	}

	assert.Equal(t, 10*time.Minute, s.backoff, "backoff не должен превышать потолок")
}

func TestPollingSource_BackoffResetsOnSuccess(t *testing.T) {
	t.Parallel()

	repo := &fakeSnapshotRepo{err: errors.New("база недоступна")}
	s := newPollingSourceForTest(repo, &collectingHandler{})

	s.poll(context.Background())
	require.NotZero(t, s.backoff)

	repo.err = nil
	s.nextAttempt = time.Time{}
	s.poll(context.Background())

	assert.Zero(t, s.backoff)
}

func TestValidateEvent(t *testing.T) {
	t.Parallel()

	valid := &models.SnapshotEvent{
		Type:  eventTypeInsert,
		Table: snapshotsTable,
		Snapshot: models.RoomSnapshot{
			HotelID:  "hotel-1",
			RoomType: "King",
		},
	}

	require.NoError(t, validateEvent(valid))

	badType := *valid
	badType.Type = "UPDATE"
	assert.Error(t, validateEvent(&badType))

	badTable := *valid
	badTable.Table = "hotels"
	assert.Error(t, validateEvent(&badTable))

	missingFields := *valid
	missingFields.Snapshot.RoomType = ""
	assert.Error(t, validateEvent(&missingFields))
}
