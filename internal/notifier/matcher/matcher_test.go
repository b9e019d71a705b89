package matcher_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/central-university-dev/go-RoomWatcher/internal/domain/models"
	"github.com/central-university-dev/go-RoomWatcher/internal/notifier/matcher"
)

func floatPtr(v float64) *float64 { return &v }

func intPtr(v int) *int { return &v }

func testSnapshot() *models.RoomSnapshot {
	return &models.RoomSnapshot{
		ID:             "snap-1",
		HotelID:        "hotel-1",
		RoomType:       "2 Queen Beds",
		AvailableCount: 2,
		NightlyRate:    150,
		TotalPrice:     600,
		Year:           2026,
	}
}

func testHotel() *models.Hotel {
	return &models.Hotel{
		ID:              "hotel-1",
		Name:            "Marriott Downtown",
		DistanceFromICC: floatPtr(1),
		HasSkywalk:      true,
		Area:            "downtown",
		Year:            2026,
	}
}

func TestMatchesAlert_NoFiltersMatchesAnyAvailability(t *testing.T) {
	t.Parallel()

	alert := &models.Alert{ID: "a1", Enabled: true}
	snapshot := testSnapshot()

	assert.True(t, matcher.MatchesAlert(snapshot, testHotel(), alert))

	snapshot.AvailableCount = 0
	assert.False(t, matcher.MatchesAlert(snapshot, testHotel(), alert))
}

func TestMatchesAlert_DisabledNeverMatches(t *testing.T) {
	t.Parallel()

	alert := &models.Alert{ID: "a1", Enabled: false, MaxTotalPrice: floatPtr(1000)}

	assert.False(t, matcher.MatchesAlert(testSnapshot(), testHotel(), alert))
}

func TestMatchesAlert_SkywalkAndPrice(t *testing.T) {
	t.Parallel()

	// Сценарий A: maxPrice 200/ночь против nightly 150 — для алерта
	// сравнение идёт по total price, берём просторный лимит.
	alert := &models.Alert{ID: "a1", Enabled: true, MaxTotalPrice: floatPtr(800), RequireSkywalk: true}
	assert.True(t, matcher.MatchesAlert(testSnapshot(), testHotel(), alert))

	// Сценарий B: лимит ниже цены — не совпадает.
	cheap := &models.Alert{ID: "a2", Enabled: true, MaxTotalPrice: floatPtr(100)}
	assert.False(t, matcher.MatchesAlert(testSnapshot(), testHotel(), cheap))
}

func TestMatchesAlert_SkywalkRequiredRejectsNoSkywalk(t *testing.T) {
	t.Parallel()

	alert := &models.Alert{ID: "a1", Enabled: true, RequireSkywalk: true}
	hotel := testHotel()
	hotel.HasSkywalk = false

	assert.False(t, matcher.MatchesAlert(testSnapshot(), hotel, alert))
}

func TestMatchesAlert_PartialAvailability(t *testing.T) {
	t.Parallel()

	snapshot := testSnapshot()
	snapshot.PartialAvailability = true
	snapshot.NightsAvailable = 2
	snapshot.TotalNights = 4
	snapshot.AvailableCount = 0

	// Сценарий C: без minNightsAvailable частичная доступность исключена.
	plain := &models.Alert{ID: "a1", Enabled: true}
	assert.False(t, matcher.MatchesAlert(snapshot, testHotel(), plain))

	// С порогом 2 ночи — совпадает.
	thresholded := &models.Alert{ID: "a2", Enabled: true, MinNightsAvailable: intPtr(2)}
	assert.True(t, matcher.MatchesAlert(snapshot, testHotel(), thresholded))

	// С порогом 3 ночи — нет.
	strict := &models.Alert{ID: "a3", Enabled: true, MinNightsAvailable: intPtr(3)}
	assert.False(t, matcher.MatchesAlert(snapshot, testHotel(), strict))
}

func TestMatchesAlert_HotelNameSubstringCaseInsensitive(t *testing.T) {
	t.Parallel()

	alert := &models.Alert{ID: "a1", Enabled: true, HotelName: "marriott"}
	assert.True(t, matcher.MatchesAlert(testSnapshot(), testHotel(), alert))

	alert.HotelName = "hyatt"
	assert.False(t, matcher.MatchesAlert(testSnapshot(), testHotel(), alert))
}

func TestMatchesAlert_UnknownDistanceFailsSetFilter(t *testing.T) {
	t.Parallel()

	hotel := testHotel()
	hotel.DistanceFromICC = nil

	filtered := &models.Alert{ID: "a1", Enabled: true, MaxDistance: floatPtr(3)}
	assert.False(t, matcher.MatchesAlert(testSnapshot(), hotel, filtered))

	// Без фильтра неизвестная дистанция не мешает.
	unfiltered := &models.Alert{ID: "a2", Enabled: true, MaxTotalPrice: floatPtr(1000)}
	assert.True(t, matcher.MatchesAlert(testSnapshot(), hotel, unfiltered))
}

func TestMatchesAlert_AreaSetAndDowntownOnly(t *testing.T) {
	t.Parallel()

	hotel := testHotel()
	hotel.Area = "airport"

	alert := &models.Alert{ID: "a1", Enabled: true, Areas: []string{"Downtown", "Airport"}}
	assert.True(t, matcher.MatchesAlert(testSnapshot(), hotel, alert))

	alert.Areas = []string{"downtown"}
	assert.False(t, matcher.MatchesAlert(testSnapshot(), hotel, alert))

	downtown := &models.Alert{ID: "a2", Enabled: true, DowntownOnly: true}
	assert.False(t, matcher.MatchesAlert(testSnapshot(), hotel, downtown))

	hotel.Area = "downtown"
	assert.True(t, matcher.MatchesAlert(testSnapshot(), hotel, downtown))
}

func TestMatchesWatcher_Filters(t *testing.T) {
	t.Parallel()

	snapshot := testSnapshot()
	hotel := testHotel()

	wideOpen := &models.Watcher{ID: "w1", Active: true}
	assert.True(t, matcher.MatchesWatcher(snapshot, hotel, wideOpen))

	inactive := &models.Watcher{ID: "w2", Active: false}
	assert.False(t, matcher.MatchesWatcher(snapshot, hotel, inactive))

	// Вотчер сравнивает лимит с nightly rate.
	priced := &models.Watcher{ID: "w3", Active: true, MaxNightlyRate: floatPtr(100)}
	assert.False(t, matcher.MatchesWatcher(snapshot, hotel, priced))

	priced.MaxNightlyRate = floatPtr(200)
	assert.True(t, matcher.MatchesWatcher(snapshot, hotel, priced))

	roomType := &models.Watcher{ID: "w4", Active: true, RoomTypePattern: "queen"}
	assert.True(t, matcher.MatchesWatcher(snapshot, hotel, roomType))

	roomType.RoomTypePattern = "suite"
	assert.False(t, matcher.MatchesWatcher(snapshot, hotel, roomType))

	pinned := &models.Watcher{ID: "w5", Active: true, HotelID: "hotel-2"}
	assert.False(t, matcher.MatchesWatcher(snapshot, hotel, pinned))
}

func TestMatchesWatcher_SoldOutNeverMatches(t *testing.T) {
	t.Parallel()

	snapshot := testSnapshot()
	snapshot.AvailableCount = 0

	wideOpen := &models.Watcher{ID: "w1", Active: true}
	assert.False(t, matcher.MatchesWatcher(snapshot, testHotel(), wideOpen))
}
